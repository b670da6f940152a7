package repository

import (
	"context"
	"fmt"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

func (s *GormStore) CreateMatches(ctx context.Context, matches []models.BankReconciliationMatch) error {
	if len(matches) == 0 {
		return nil
	}
	for i := range matches {
		newID(&matches[i].ID)
	}
	if err := s.db.WithContext(ctx).Create(&matches).Error; err != nil {
		return fmt.Errorf("failed to insert matches: %w", err)
	}
	return nil
}

func (s *GormStore) ListMatches(ctx context.Context, reconciliationID uuid.UUID) ([]models.BankReconciliationMatch, error) {
	var matches []models.BankReconciliationMatch
	err := s.db.WithContext(ctx).
		Where("bank_reconciliation_id = ?", reconciliationID).
		Order("created_at ASC, id ASC").
		Find(&matches).Error
	return matches, err
}

// FindMatchesForTransactions returns rows touching any of the given ids.
func (s *GormStore) FindMatchesForTransactions(ctx context.Context, reconciliationID uuid.UUID, bankIDs, bookIDs []uuid.UUID) ([]models.BankReconciliationMatch, error) {
	var matches []models.BankReconciliationMatch
	if len(bankIDs) == 0 && len(bookIDs) == 0 {
		return matches, nil
	}

	query := s.db.WithContext(ctx).Where("bank_reconciliation_id = ?", reconciliationID)
	switch {
	case len(bankIDs) > 0 && len(bookIDs) > 0:
		query = query.Where("bank_transaction_id IN ? OR transaction_id IN ?", bankIDs, bookIDs)
	case len(bankIDs) > 0:
		query = query.Where("bank_transaction_id IN ?", bankIDs)
	default:
		query = query.Where("transaction_id IN ?", bookIDs)
	}

	err := query.Find(&matches).Error
	return matches, err
}

func (s *GormStore) FindMatchesByGroups(ctx context.Context, reconciliationID uuid.UUID, groupIDs []uuid.UUID) ([]models.BankReconciliationMatch, error) {
	var matches []models.BankReconciliationMatch
	if len(groupIDs) == 0 {
		return matches, nil
	}
	err := s.db.WithContext(ctx).
		Where("bank_reconciliation_id = ? AND group_id IN ?", reconciliationID, groupIDs).
		Find(&matches).Error
	return matches, err
}

func (s *GormStore) DeleteMatches(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.BankReconciliationMatch{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete matches: %w", result.Error)
	}
	return result.RowsAffected, nil
}
