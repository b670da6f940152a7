// Package statement imports bank statements and records book-side entries.
package statement

import (
	"context"
	"errors"
	"fmt"

	"bank-reconciliation-backend/internal/config"
	"bank-reconciliation-backend/internal/metrics"
	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const moduleName = "statement"

var ErrNotFound = errors.New("not found")

type Service struct {
	store   repository.Store
	logger  logrus.FieldLogger
	metrics *metrics.Recorder
}

func NewService(store repository.Store, logger logrus.FieldLogger, recorder *metrics.Recorder) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: store, logger: logger, metrics: recorder}
}

type ImportInput struct {
	AccountID      uuid.UUID
	Filename       string
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Parsed         *ParseResult
}

// Import saves a parsed statement and its lines in one transaction. The
// statement period spans the earliest to the latest line date.
func (s *Service) Import(ctx context.Context, in ImportInput) (*models.BankStatement, error) {
	if in.Parsed == nil || len(in.Parsed.Rows) == 0 {
		return nil, ErrNoValidRows
	}
	if _, err := s.GetAccount(ctx, in.AccountID); err != nil {
		return nil, err
	}

	rows := in.Parsed.Rows
	statement := &models.BankStatement{
		AccountID:      in.AccountID,
		Filename:       in.Filename,
		PeriodStart:    rows[0].Date,
		PeriodEnd:      rows[0].Date,
		OpeningBalance: in.OpeningBalance,
		ClosingBalance: in.ClosingBalance,
		SkippedRows:    len(in.Parsed.Skipped),
	}
	lines := make([]models.BankTransaction, 0, len(rows))
	for _, row := range rows {
		if row.Date.Before(statement.PeriodStart) {
			statement.PeriodStart = row.Date
		}
		if row.Date.After(statement.PeriodEnd) {
			statement.PeriodEnd = row.Date
		}
		lines = append(lines, models.BankTransaction{
			TransactionDate: row.Date,
			Description:     row.Description,
			Amount:          row.Amount,
			ReferenceNumber: row.Reference,
		})
	}

	if err := s.store.CreateBankStatement(ctx, statement, lines); err != nil {
		config.LogError(s.logger, moduleName, "Import", "failed to save statement", map[string]any{
			"account_id": in.AccountID.String(),
			"filename":   in.Filename,
			"lines":      len(lines),
		}, err)
		return nil, err
	}

	s.metrics.LinesImported(len(lines))
	s.logger.WithFields(logrus.Fields{
		"module":       moduleName,
		"statement_id": statement.ID,
		"lines":        len(lines),
		"skipped":      statement.SkippedRows,
	}).Info("statement imported")
	return statement, nil
}

func (s *Service) GetStatement(ctx context.Context, id uuid.UUID) (*models.BankStatement, error) {
	statement, err := s.store.GetBankStatement(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("bank statement %s: %w", id, ErrNotFound)
	}
	return statement, err
}

func (s *Service) ListStatements(ctx context.Context, accountID uuid.UUID) ([]models.BankStatement, error) {
	return s.store.ListBankStatements(ctx, accountID)
}

// ListLines pages through a statement's lines.
func (s *Service) ListLines(ctx context.Context, filter repository.BankTransactionFilter) (repository.BankTransactionPage, error) {
	if _, err := s.GetStatement(ctx, filter.StatementID); err != nil {
		return repository.BankTransactionPage{}, err
	}
	return s.store.ListBankTransactions(ctx, filter)
}

func (s *Service) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.Type == "" {
		account.Type = models.AccountTypeChecking
	}
	return s.store.CreateAccount(ctx, account)
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return account, err
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}

// CreateTransaction records a book entry and moves the account's running
// balance by its amount.
func (s *Service) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	err := s.store.WithinTransaction(ctx, func(store repository.Store) error {
		if err := store.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		err := store.AdjustAccountBalance(ctx, tx.AccountID, tx.Amount)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("account %s: %w", tx.AccountID, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"module":         moduleName,
		"transaction_id": tx.ID,
		"account_id":     tx.AccountID,
		"amount":         tx.Amount.String(),
	}).Debug("book transaction recorded")
	return nil
}
