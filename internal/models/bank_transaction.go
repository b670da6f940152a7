package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankTransaction is a single statement line. Only IsMatched changes after import.
type BankTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankStatementID uuid.UUID       `gorm:"type:uuid;index;not null" json:"bank_statement_id"`
	AccountID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"account_id"`
	TransactionDate time.Time       `gorm:"column:transaction_date;index" json:"transaction_date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);index" json:"amount"`
	ReferenceNumber string          `json:"reference_number"`
	IsMatched       bool            `gorm:"index;default:false" json:"is_matched"`
	CreatedAt       time.Time       `json:"created_at"`
}
