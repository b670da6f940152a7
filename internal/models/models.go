package models

// All lists every model for AutoMigrate, parents before children.
func All() []any {
	return []any{
		&Account{},
		&BankStatement{},
		&BankTransaction{},
		&Transaction{},
		&BankReconciliation{},
		&BankReconciliationMatch{},
		&ReconciliationAuditLog{},
	}
}
