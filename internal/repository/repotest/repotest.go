// Package repotest opens throwaway SQLite-backed stores for tests.
package repotest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewStore returns a migrated store backed by a file in t.TempDir().
func NewStore(t *testing.T) *repository.GormStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	store := repository.NewGormStore(db)
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return store
}

// Date builds a UTC midnight timestamp.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Amount parses a decimal literal and panics on bad input.
func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedAccount creates a checking account with the given running balance.
func SeedAccount(t *testing.T, store repository.Store, balance string) *models.Account {
	t.Helper()
	account := &models.Account{
		Name:          "Operating " + uuid.NewString()[:8],
		AccountNumber: "000123456",
		Type:          models.AccountTypeChecking,
		Currency:      "USD",
		Balance:       Amount(balance),
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

// SeedStatement imports lines as a statement on account and returns the
// saved lines in input order.
func SeedStatement(t *testing.T, store repository.Store, account *models.Account, opening, closing string, lines ...models.BankTransaction) (*models.BankStatement, []models.BankTransaction) {
	t.Helper()
	statement := &models.BankStatement{
		AccountID:      account.ID,
		Filename:       "statement.csv",
		PeriodStart:    Date(2024, time.January, 1),
		PeriodEnd:      Date(2024, time.January, 31),
		OpeningBalance: Amount(opening),
		ClosingBalance: Amount(closing),
	}
	if err := store.CreateBankStatement(context.Background(), statement, lines); err != nil {
		t.Fatalf("failed to seed statement: %v", err)
	}
	return statement, lines
}

// SeedBook creates a book-side entry on account.
func SeedBook(t *testing.T, store repository.Store, account *models.Account, amount, description string, date time.Time) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		AccountID:       account.ID,
		Amount:          Amount(amount),
		Description:     description,
		TransactionDate: date,
	}
	if err := store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("failed to seed transaction: %v", err)
	}
	return tx
}

// Line builds an unsaved statement line.
func Line(amount, description string, date time.Time) models.BankTransaction {
	return models.BankTransaction{
		Amount:          Amount(amount),
		Description:     description,
		TransactionDate: date,
	}
}
