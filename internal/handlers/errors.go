package handler

import (
	"errors"
	"net/http"

	"bank-reconciliation-backend/internal/lock"
	"bank-reconciliation-backend/internal/services/reconciliation"
	"bank-reconciliation-backend/internal/services/statement"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, reconciliation.ErrNotFound), errors.Is(err, statement.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconciliation.ErrReconciliationCompleted),
		errors.Is(err, reconciliation.ErrReconciliationInProgress),
		errors.Is(err, reconciliation.ErrAlreadyMatched),
		errors.Is(err, lock.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, reconciliation.ErrOutOfScope),
		errors.Is(err, reconciliation.ErrNoTransactions),
		errors.Is(err, statement.ErrNoValidRows),
		errors.Is(err, statement.ErrMissingColumns),
		errors.Is(err, statement.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
