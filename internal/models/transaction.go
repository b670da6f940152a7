package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a book-side ledger entry on an account.
type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"account_id"`
	TransactionDate time.Time       `gorm:"column:transaction_date;index" json:"transaction_date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);index" json:"amount"`
	ReferenceNumber string          `json:"reference_number"`
	IsReconciled    bool            `gorm:"index;default:false" json:"is_reconciled"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
