package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *GormStore) CreateReconciliation(ctx context.Context, rec *models.BankReconciliation) error {
	newID(&rec.ID)
	if rec.Status == "" {
		rec.Status = models.ReconciliationInProgress
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create reconciliation: %w", err)
	}
	return nil
}

func (s *GormStore) GetReconciliation(ctx context.Context, id uuid.UUID) (*models.BankReconciliation, error) {
	var rec models.BankReconciliation
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (s *GormStore) ListReconciliations(ctx context.Context, accountID uuid.UUID) ([]models.BankReconciliation, error) {
	var recs []models.BankReconciliation
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

// FindInProgressReconciliation returns nil, nil when the statement has no open session.
func (s *GormStore) FindInProgressReconciliation(ctx context.Context, statementID uuid.UUID) (*models.BankReconciliation, error) {
	var rec models.BankReconciliation
	err := s.db.WithContext(ctx).
		Where("bank_statement_id = ? AND status = ?", statementID, models.ReconciliationInProgress).
		First(&rec).Error
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) UpdateBookBalances(ctx context.Context, id uuid.UUID, opening, closing decimal.Decimal) error {
	result := s.db.WithContext(ctx).Model(&models.BankReconciliation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"book_opening_balance": opening,
			"book_closing_balance": closing,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update book balances: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkReconciliationCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.BankReconciliation{}).
		Where("id = ? AND status = ?", id, models.ReconciliationInProgress).
		Updates(map[string]interface{}{
			"status":        models.ReconciliationCompleted,
			"reconciled_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete reconciliation: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
