package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type manualDetails struct {
	Override    bool               `json:"override"`
	ScoreAtTime matching.Breakdown `json:"score_at_match"`
}

// ManualMatch pairs the given statement lines with the given book entries
// regardless of similarity. Every line is paired with every entry, so one
// deposit can settle several book entries (and the reverse); all rows from
// one call share a group and are unmatched together.
func (s *Service) ManualMatch(ctx context.Context, recID uuid.UUID, bankIDs, bookIDs []uuid.UUID, notes string) (matches []models.BankReconciliationMatch, err error) {
	ctx, span := s.startSpan(ctx, "ManualMatch", recID)
	defer func() { s.finish(span, "ManualMatch", recID, err) }()

	bankIDs = uniqueIDs(bankIDs)
	bookIDs = uniqueIDs(bookIDs)
	if len(bankIDs) == 0 || len(bookIDs) == 0 {
		return nil, ErrNoTransactions
	}

	err = s.mutate(ctx, recID, func(store repository.Store, rec *models.BankReconciliation) error {
		lines, err := store.FindBankTransactions(ctx, bankIDs)
		if err != nil {
			return err
		}
		if len(lines) != len(bankIDs) {
			return fmt.Errorf("bank transaction: %w", ErrNotFound)
		}
		for _, line := range lines {
			if line.BankStatementID != rec.BankStatementID {
				return fmt.Errorf("bank transaction %s: %w", line.ID, ErrOutOfScope)
			}
			if line.IsMatched {
				return fmt.Errorf("bank transaction %s: %w", line.ID, ErrAlreadyMatched)
			}
		}

		book, err := store.FindTransactions(ctx, bookIDs)
		if err != nil {
			return err
		}
		if len(book) != len(bookIDs) {
			return fmt.Errorf("transaction: %w", ErrNotFound)
		}
		for _, entry := range book {
			if entry.AccountID != rec.AccountID {
				return fmt.Errorf("transaction %s: %w", entry.ID, ErrOutOfScope)
			}
			if entry.IsReconciled {
				return fmt.Errorf("transaction %s: %w", entry.ID, ErrAlreadyMatched)
			}
		}

		group := uuid.New()
		matches = make([]models.BankReconciliationMatch, 0, len(lines)*len(book))
		for _, line := range lines {
			for _, entry := range book {
				details, err := json.Marshal(manualDetails{
					Override:    true,
					ScoreAtTime: s.scorer.Score(line, entry),
				})
				if err != nil {
					return fmt.Errorf("failed to encode match details: %w", err)
				}
				matches = append(matches, models.BankReconciliationMatch{
					BankReconciliationID: rec.ID,
					GroupID:              group,
					BankTransactionID:    line.ID,
					TransactionID:        entry.ID,
					MatchType:            models.MatchTypeManual,
					ConfidenceScore:      matching.ManualConfidence,
					Notes:                notes,
					MatchDetails:         details,
				})
			}
		}

		if err := store.CreateMatches(ctx, matches); err != nil {
			return err
		}
		if err := markMatched(ctx, store, bankIDs, bookIDs); err != nil {
			return err
		}
		return writeAudit(ctx, store, rec.ID, models.AuditActionManualMatch, bankIDs, bookIDs, notes)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchesCreated(string(models.MatchTypeManual), len(matches))
	s.logger.WithFields(logrus.Fields{
		"module":            moduleName,
		"reconciliation_id": recID,
		"bank_ids":          bankIDs,
		"book_ids":          bookIDs,
		"performed_by":      actorFrom(ctx),
	}).Info("manual match created")
	return matches, nil
}
