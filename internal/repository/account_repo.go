package repository

import (
	"context"
	"fmt"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func (s *GormStore) CreateAccount(ctx context.Context, account *models.Account) error {
	newID(&account.ID)
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *GormStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

func (s *GormStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Order("name ASC").Find(&accounts).Error
	return accounts, err
}

// AdjustAccountBalance adds delta to the running balance in a single UPDATE.
func (s *GormStore) AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	result := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to adjust account balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
