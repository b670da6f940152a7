package reconciliation

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrReconciliationCompleted  = errors.New("reconciliation is already completed")
	ErrReconciliationInProgress = errors.New("statement already has a reconciliation in progress")
	ErrAlreadyMatched           = errors.New("transaction is already matched")
	ErrOutOfScope               = errors.New("transaction does not belong to this reconciliation")
	ErrNoTransactions           = errors.New("no transactions given")
)
