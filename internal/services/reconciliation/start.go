package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type StartInput struct {
	AccountID       uuid.UUID
	BankStatementID uuid.UUID
	// Book balances default to the account's running balance (closing) and
	// that balance less the entries dated inside the statement period (opening).
	BookOpeningBalance *decimal.Decimal
	BookClosingBalance *decimal.Decimal
	Notes              string
}

// StartReconciliation opens an in-progress reconciliation of one statement.
func (s *Service) StartReconciliation(ctx context.Context, in StartInput) (rec *models.BankReconciliation, err error) {
	ctx, span := s.startSpan(ctx, "Start", in.BankStatementID)
	defer func() { s.finish(span, "StartReconciliation", in.BankStatementID, err) }()

	unlock, err := s.locker.Lock(ctx, accountLockKey(in.AccountID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.store.WithinTransaction(ctx, func(store repository.Store) error {
		statement, err := store.GetBankStatement(ctx, in.BankStatementID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("bank statement %s: %w", in.BankStatementID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if statement.AccountID != in.AccountID {
			return fmt.Errorf("bank statement %s belongs to another account: %w", statement.ID, ErrOutOfScope)
		}

		account, err := store.GetAccount(ctx, in.AccountID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("account %s: %w", in.AccountID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		open, err := store.FindInProgressReconciliation(ctx, statement.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("reconciliation %s: %w", open.ID, ErrReconciliationInProgress)
		}

		closing := account.Balance
		if in.BookClosingBalance != nil {
			closing = *in.BookClosingBalance
		}
		opening := decimal.Zero
		if in.BookOpeningBalance != nil {
			opening = *in.BookOpeningBalance
		} else {
			periodEnd := statement.PeriodEnd.Add(24*time.Hour - time.Nanosecond)
			moved, err := store.SumTransactionsBetween(ctx, account.ID, statement.PeriodStart, periodEnd)
			if err != nil {
				return err
			}
			opening = closing.Sub(moved)
		}

		rec = &models.BankReconciliation{
			AccountID:               account.ID,
			BankStatementID:         statement.ID,
			StatementOpeningBalance: statement.OpeningBalance,
			StatementClosingBalance: statement.ClosingBalance,
			BookOpeningBalance:      opening,
			BookClosingBalance:      closing,
			Status:                  models.ReconciliationInProgress,
			Notes:                   in.Notes,
		}
		return store.CreateReconciliation(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"module":            moduleName,
		"reconciliation_id": rec.ID,
		"statement_id":      rec.BankStatementID,
	}).Info("reconciliation started")
	return rec, nil
}

// UpdateBookBalances overrides the book figures of an in-progress reconciliation.
func (s *Service) UpdateBookBalances(ctx context.Context, recID uuid.UUID, opening, closing decimal.Decimal) (rec *models.BankReconciliation, err error) {
	ctx, span := s.startSpan(ctx, "UpdateBookBalances", recID)
	defer func() { s.finish(span, "UpdateBookBalances", recID, err) }()

	err = s.mutate(ctx, recID, func(store repository.Store, current *models.BankReconciliation) error {
		if err := store.UpdateBookBalances(ctx, recID, opening, closing); err != nil {
			return err
		}
		current.BookOpeningBalance = opening
		current.BookClosingBalance = closing
		rec = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
