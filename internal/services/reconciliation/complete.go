package reconciliation

import (
	"context"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	outcomeCompleted  = "completed"
	outcomeUnbalanced = "unbalanced"
)

// CompleteReconciliation closes a reconciliation whose statement and book
// closing balances agree. An unbalanced reconciliation is left in progress
// and false is returned without an error.
func (s *Service) CompleteReconciliation(ctx context.Context, recID uuid.UUID) (completed bool, err error) {
	ctx, span := s.startSpan(ctx, "Complete", recID)
	defer func() { s.finish(span, "CompleteReconciliation", recID, err) }()

	var rec *models.BankReconciliation
	err = s.mutate(ctx, recID, func(store repository.Store, current *models.BankReconciliation) error {
		rec = current
		if !current.IsBalanced() {
			return nil
		}

		ok, err := store.MarkReconciliationCompleted(ctx, current.ID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrReconciliationCompleted
		}
		completed = true
		return writeAudit(ctx, store, current.ID, models.AuditActionComplete, nil, nil, "")
	})
	if err != nil {
		return false, err
	}

	fields := logrus.Fields{
		"module":            moduleName,
		"reconciliation_id": recID,
		"difference":        rec.Difference().String(),
	}
	if !completed {
		s.metrics.Completion(outcomeUnbalanced)
		s.logger.WithFields(fields).Warn("reconciliation is not balanced")
		return false, nil
	}
	s.metrics.Completion(outcomeCompleted)
	s.logger.WithFields(fields).Info("reconciliation completed")
	return true, nil
}
