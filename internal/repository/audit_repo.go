package repository

import (
	"context"
	"fmt"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

func (s *GormStore) CreateAuditLog(ctx context.Context, entry *models.ReconciliationAuditLog) error {
	newID(&entry.ID)
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *GormStore) ListAuditLogs(ctx context.Context, reconciliationID uuid.UUID) ([]models.ReconciliationAuditLog, error) {
	var entries []models.ReconciliationAuditLog
	err := s.db.WithContext(ctx).
		Where("bank_reconciliation_id = ?", reconciliationID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
