package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankStatement is one imported statement file for an account.
type BankStatement struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"account_id"`
	Filename          string          `json:"filename"`
	PeriodStart       time.Time       `json:"period_start"`
	PeriodEnd         time.Time       `json:"period_end"`
	OpeningBalance    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	ClosingBalance    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"closing_balance"`
	TotalTransactions int             `json:"total_transactions"`
	SkippedRows       int             `json:"skipped_rows"`
	CreatedAt         time.Time       `json:"created_at"`
}
