package reconciliation

import (
	"context"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UnmatchTransactions removes every match touching the given ids, including
// the rest of any manual group they belong to, and clears the flags of all
// transactions on the removed rows. It returns the number of rows deleted.
func (s *Service) UnmatchTransactions(ctx context.Context, recID uuid.UUID, bankIDs, bookIDs []uuid.UUID) (removed int, err error) {
	ctx, span := s.startSpan(ctx, "Unmatch", recID)
	defer func() { s.finish(span, "UnmatchTransactions", recID, err) }()

	bankIDs = uniqueIDs(bankIDs)
	bookIDs = uniqueIDs(bookIDs)
	if len(bankIDs) == 0 && len(bookIDs) == 0 {
		return 0, ErrNoTransactions
	}

	var clearedBank, clearedBook []uuid.UUID
	err = s.mutate(ctx, recID, func(store repository.Store, rec *models.BankReconciliation) error {
		direct, err := store.FindMatchesForTransactions(ctx, rec.ID, bankIDs, bookIDs)
		if err != nil {
			return err
		}
		if len(direct) == 0 {
			return nil
		}

		groups := make([]uuid.UUID, 0, len(direct))
		seenGroup := map[uuid.UUID]bool{}
		for _, m := range direct {
			if m.GroupID != uuid.Nil && !seenGroup[m.GroupID] {
				seenGroup[m.GroupID] = true
				groups = append(groups, m.GroupID)
			}
		}
		grouped, err := store.FindMatchesByGroups(ctx, rec.ID, groups)
		if err != nil {
			return err
		}

		rows := map[uuid.UUID]models.BankReconciliationMatch{}
		for _, m := range append(direct, grouped...) {
			rows[m.ID] = m
		}

		matchIDs := make([]uuid.UUID, 0, len(rows))
		for id, m := range rows {
			matchIDs = append(matchIDs, id)
			clearedBank = append(clearedBank, m.BankTransactionID)
			clearedBook = append(clearedBook, m.TransactionID)
		}
		clearedBank = uniqueIDs(clearedBank)
		clearedBook = uniqueIDs(clearedBook)

		n, err := store.DeleteMatches(ctx, matchIDs)
		if err != nil {
			return err
		}
		removed = int(n)

		if err := store.SetBankTransactionsMatched(ctx, clearedBank, false); err != nil {
			return err
		}
		if err := store.SetTransactionsReconciled(ctx, clearedBook, false); err != nil {
			return err
		}
		return writeAudit(ctx, store, rec.ID, models.AuditActionUnmatch, clearedBank, clearedBook, "")
	})
	if err != nil {
		return 0, err
	}

	s.metrics.MatchesRemoved(removed)
	s.logger.WithFields(logrus.Fields{
		"module":            moduleName,
		"reconciliation_id": recID,
		"removed":           removed,
		"performed_by":      actorFrom(ctx),
	}).Info("transactions unmatched")
	return removed, nil
}
