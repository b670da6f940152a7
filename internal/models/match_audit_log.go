package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditActionAutoMatch   AuditAction = "auto_match"
	AuditActionManualMatch AuditAction = "manual_match"
	AuditActionUnmatch     AuditAction = "unmatch"
	AuditActionComplete    AuditAction = "complete"
)

type ReconciliationAuditLog struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BankReconciliationID uuid.UUID      `gorm:"type:uuid;index" json:"bank_reconciliation_id"`
	Action               AuditAction    `gorm:"index" json:"action"`
	BankTransactionIDs   datatypes.JSON `json:"bank_transaction_ids"`
	TransactionIDs       datatypes.JSON `json:"transaction_ids"`
	PerformedBy          string         `json:"performed_by"`
	Reason               string         `json:"reason"`
	CreatedAt            time.Time      `json:"created_at"`
}
