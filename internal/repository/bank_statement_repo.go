package repository

import (
	"context"
	"fmt"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const statementInsertBatchSize = 200

func (s *GormStore) CreateBankStatement(ctx context.Context, statement *models.BankStatement, lines []models.BankTransaction) error {
	newID(&statement.ID)
	statement.TotalTransactions = len(lines)

	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(statement).Error; err != nil {
			return fmt.Errorf("failed to insert statement: %w", err)
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			newID(&lines[i].ID)
			lines[i].BankStatementID = statement.ID
			lines[i].AccountID = statement.AccountID
		}
		if err := db.CreateInBatches(lines, statementInsertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert statement lines: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetBankStatement(ctx context.Context, id uuid.UUID) (*models.BankStatement, error) {
	var statement models.BankStatement
	if err := s.db.WithContext(ctx).First(&statement, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &statement, nil
}

func (s *GormStore) ListBankStatements(ctx context.Context, accountID uuid.UUID) ([]models.BankStatement, error) {
	var statements []models.BankStatement
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("period_end DESC").
		Find(&statements).Error
	return statements, err
}
