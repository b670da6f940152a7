package repository

import (
	"context"
	"fmt"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *GormStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	newID(&tx.ID)
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *GormStore) FindTransactions(ctx context.Context, ids []uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	if len(ids) == 0 {
		return txs, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&txs).Error
	return txs, err
}

func (s *GormStore) UnreconciledTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND is_reconciled = ?", accountID, false).
		Order("transaction_date ASC, id ASC").
		Find(&txs).Error
	return txs, err
}

// SumTransactionsBetween totals book entries dated within [from, to].
func (s *GormStore) SumTransactionsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var row struct {
		Sum decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ? AND transaction_date >= ? AND transaction_date <= ?", accountID, from, to).
		Select("COALESCE(SUM(amount), 0) AS sum").
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return row.Sum, nil
}

func (s *GormStore) SetTransactionsReconciled(ctx context.Context, ids []uuid.UUID, reconciled bool) error {
	if len(ids) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id IN ? AND is_reconciled = ?", ids, !reconciled).
		Update("is_reconciled", reconciled)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction reconciled flag: %w", result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("transactions: %w", ErrFlagConflict)
	}
	return nil
}

func (s *GormStore) TransactionStats(ctx context.Context, accountID uuid.UUID) ([]StatRow, error) {
	return flagStats(s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ?", accountID), "is_reconciled")
}
