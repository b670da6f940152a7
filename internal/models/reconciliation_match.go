package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchType string

const (
	MatchTypeAuto   MatchType = "auto"
	MatchTypeManual MatchType = "manual"
)

// BankReconciliationMatch pairs one statement line with one book entry.
// Rows created by the same manual call share a GroupID.
type BankReconciliationMatch struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BankReconciliationID uuid.UUID      `gorm:"type:uuid;index;not null" json:"bank_reconciliation_id"`
	GroupID              uuid.UUID      `gorm:"type:uuid;index" json:"group_id"`
	BankTransactionID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"bank_transaction_id"`
	TransactionID        uuid.UUID      `gorm:"type:uuid;index;not null" json:"transaction_id"`
	MatchType            MatchType      `gorm:"index;not null" json:"match_type"`
	ConfidenceScore      int            `json:"confidence_score"`
	Notes                string         `json:"notes"`
	MatchDetails         datatypes.JSON `json:"match_details"`
	CreatedAt            time.Time      `json:"created_at"`
}
