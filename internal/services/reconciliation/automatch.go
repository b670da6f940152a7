package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AutoMatchTransactions pairs the unmatched lines of the reconciliation's
// statement with unreconciled book entries on its account and returns the
// number of matches created. Already matched transactions are never
// considered, so a second run only picks up what the first left behind.
func (s *Service) AutoMatchTransactions(ctx context.Context, recID uuid.UUID) (created int, err error) {
	ctx, span := s.startSpan(ctx, "AutoMatch", recID)
	defer func() { s.finish(span, "AutoMatchTransactions", recID, err) }()

	var matches []models.BankReconciliationMatch
	err = s.mutate(ctx, recID, func(store repository.Store, rec *models.BankReconciliation) error {
		lines, err := store.UnmatchedBankTransactions(ctx, rec.BankStatementID)
		if err != nil {
			return fmt.Errorf("failed to load statement lines: %w", err)
		}
		book, err := store.UnreconciledTransactions(ctx, rec.AccountID)
		if err != nil {
			return fmt.Errorf("failed to load book entries: %w", err)
		}
		if len(lines) == 0 || len(book) == 0 {
			return nil
		}

		pairs := s.scorer.Assign(lines, book)
		if len(pairs) == 0 {
			return nil
		}

		bankIDs := make([]uuid.UUID, 0, len(pairs))
		bookIDs := make([]uuid.UUID, 0, len(pairs))
		matches = make([]models.BankReconciliationMatch, 0, len(pairs))
		for _, p := range pairs {
			details, err := json.Marshal(p.Breakdown)
			if err != nil {
				return fmt.Errorf("failed to encode match details: %w", err)
			}
			line, entry := lines[p.BankIndex], book[p.BookIndex]
			matches = append(matches, models.BankReconciliationMatch{
				BankReconciliationID: rec.ID,
				GroupID:              uuid.New(),
				BankTransactionID:    line.ID,
				TransactionID:        entry.ID,
				MatchType:            models.MatchTypeAuto,
				ConfidenceScore:      p.Breakdown.Confidence,
				MatchDetails:         details,
			})
			bankIDs = append(bankIDs, line.ID)
			bookIDs = append(bookIDs, entry.ID)
		}

		if err := store.CreateMatches(ctx, matches); err != nil {
			return err
		}
		if err := markMatched(ctx, store, bankIDs, bookIDs); err != nil {
			return err
		}
		return writeAudit(ctx, store, rec.ID, models.AuditActionAutoMatch, bankIDs, bookIDs,
			fmt.Sprintf("auto-matched %d pairs", len(matches)))
	})
	if err != nil {
		return 0, err
	}

	s.metrics.MatchesCreated(string(models.MatchTypeAuto), len(matches))
	for _, m := range matches {
		s.metrics.ObserveConfidence(m.ConfidenceScore)
	}
	s.logger.WithFields(logrus.Fields{
		"module":            moduleName,
		"reconciliation_id": recID,
		"matched":           len(matches),
	}).Info("auto-match finished")
	return len(matches), nil
}

func writeAudit(ctx context.Context, store repository.Store, recID uuid.UUID, action models.AuditAction, bankIDs, bookIDs []uuid.UUID, reason string) error {
	bankJSON, err := json.Marshal(nonNil(bankIDs))
	if err != nil {
		return err
	}
	bookJSON, err := json.Marshal(nonNil(bookIDs))
	if err != nil {
		return err
	}
	return store.CreateAuditLog(ctx, &models.ReconciliationAuditLog{
		BankReconciliationID: recID,
		Action:               action,
		BankTransactionIDs:   bankJSON,
		TransactionIDs:       bookJSON,
		PerformedBy:          actorFrom(ctx),
		Reason:               reason,
	})
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
