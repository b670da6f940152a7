package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReconciliationStatus string

const (
	ReconciliationInProgress ReconciliationStatus = "in_progress"
	ReconciliationCompleted  ReconciliationStatus = "completed"
)

type BankReconciliation struct {
	ID                      uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID               uuid.UUID            `gorm:"type:uuid;index;not null" json:"account_id"`
	BankStatementID         uuid.UUID            `gorm:"type:uuid;index;not null" json:"bank_statement_id"`
	StatementOpeningBalance decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"statement_opening_balance"`
	StatementClosingBalance decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"statement_closing_balance"`
	BookOpeningBalance      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"book_opening_balance"`
	BookClosingBalance      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"book_closing_balance"`
	Status                  ReconciliationStatus `gorm:"index;not null" json:"status"`
	Notes                   string               `json:"notes"`
	ReconciledAt            *time.Time           `json:"reconciled_at"`
	CreatedAt               time.Time            `json:"created_at"`
	UpdatedAt               time.Time            `json:"updated_at"`
}

func (r *BankReconciliation) IsCompleted() bool {
	return r.Status == ReconciliationCompleted
}

// Difference is statement closing minus book closing, rounded to cents.
func (r *BankReconciliation) Difference() decimal.Decimal {
	return r.StatementClosingBalance.Round(2).Sub(r.BookClosingBalance.Round(2))
}

func (r *BankReconciliation) IsBalanced() bool {
	return r.Difference().IsZero()
}
