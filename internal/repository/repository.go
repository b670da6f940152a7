// Package repository persists reconciliation data. Services depend on the
// Store interface; GormStore is the gorm-backed implementation.
package repository

import (
	"context"
	"errors"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// ErrFlagConflict means a conditional flag update found some rows already in
// the requested state, i.e. another writer got there first.
var ErrFlagConflict = errors.New("flag already changed by another writer")

// Store is the persistence surface used by the service layer.
type Store interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	AdjustAccountBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	// CreateBankStatement inserts the statement and its lines.
	CreateBankStatement(ctx context.Context, statement *models.BankStatement, lines []models.BankTransaction) error
	GetBankStatement(ctx context.Context, id uuid.UUID) (*models.BankStatement, error)
	ListBankStatements(ctx context.Context, accountID uuid.UUID) ([]models.BankStatement, error)

	GetBankTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
	FindBankTransactions(ctx context.Context, ids []uuid.UUID) ([]models.BankTransaction, error)
	UnmatchedBankTransactions(ctx context.Context, statementID uuid.UUID) ([]models.BankTransaction, error)
	ListBankTransactions(ctx context.Context, filter BankTransactionFilter) (BankTransactionPage, error)
	// SetBankTransactionsMatched flips is_matched on ids that currently hold
	// the opposite value and returns ErrFlagConflict if any did not.
	SetBankTransactionsMatched(ctx context.Context, ids []uuid.UUID, matched bool) error
	BankTransactionStats(ctx context.Context, statementID uuid.UUID) ([]StatRow, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	FindTransactions(ctx context.Context, ids []uuid.UUID) ([]models.Transaction, error)
	UnreconciledTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)
	SumTransactionsBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	// SetTransactionsReconciled behaves like SetBankTransactionsMatched for
	// is_reconciled.
	SetTransactionsReconciled(ctx context.Context, ids []uuid.UUID, reconciled bool) error
	TransactionStats(ctx context.Context, accountID uuid.UUID) ([]StatRow, error)

	CreateReconciliation(ctx context.Context, rec *models.BankReconciliation) error
	GetReconciliation(ctx context.Context, id uuid.UUID) (*models.BankReconciliation, error)
	ListReconciliations(ctx context.Context, accountID uuid.UUID) ([]models.BankReconciliation, error)
	FindInProgressReconciliation(ctx context.Context, statementID uuid.UUID) (*models.BankReconciliation, error)
	UpdateBookBalances(ctx context.Context, id uuid.UUID, opening, closing decimal.Decimal) error
	// MarkReconciliationCompleted flips an in-progress reconciliation to
	// completed and reports whether a row changed.
	MarkReconciliationCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	CreateMatches(ctx context.Context, matches []models.BankReconciliationMatch) error
	ListMatches(ctx context.Context, reconciliationID uuid.UUID) ([]models.BankReconciliationMatch, error)
	FindMatchesForTransactions(ctx context.Context, reconciliationID uuid.UUID, bankIDs, bookIDs []uuid.UUID) ([]models.BankReconciliationMatch, error)
	FindMatchesByGroups(ctx context.Context, reconciliationID uuid.UUID, groupIDs []uuid.UUID) ([]models.BankReconciliationMatch, error)
	DeleteMatches(ctx context.Context, ids []uuid.UUID) (int64, error)

	CreateAuditLog(ctx context.Context, entry *models.ReconciliationAuditLog) error
	ListAuditLogs(ctx context.Context, reconciliationID uuid.UUID) ([]models.ReconciliationAuditLog, error)

	// WithinTransaction runs fn against a Store bound to one database
	// transaction. Returning an error rolls everything back.
	WithinTransaction(ctx context.Context, fn func(Store) error) error
}

// StatRow is one group of a COUNT/SUM aggregate keyed by a boolean flag.
type StatRow struct {
	Flag  bool
	Count int64
	Sum   decimal.Decimal
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// AutoMigrate creates or updates every table.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(models.All()...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
