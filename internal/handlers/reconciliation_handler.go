package handler

import (
	"net/http"

	"bank-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActorHeader names the operator recorded in audit logs.
const ActorHeader = "X-Performed-By"

type ReconciliationHandler struct {
	service *reconciliation.Service
}

func NewReconciliationHandler(s *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

func withActor(c *gin.Context) *gin.Context {
	if actor := c.GetHeader(ActorHeader); actor != "" {
		c.Request = c.Request.WithContext(reconciliation.ContextWithActor(c.Request.Context(), actor))
	}
	return c
}

func (h *ReconciliationHandler) Start(c *gin.Context) {
	var payload struct {
		AccountID          uuid.UUID        `json:"account_id" binding:"required"`
		BankStatementID    uuid.UUID        `json:"bank_statement_id" binding:"required"`
		BookOpeningBalance *decimal.Decimal `json:"book_opening_balance"`
		BookClosingBalance *decimal.Decimal `json:"book_closing_balance"`
		Notes              string           `json:"notes"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rec, err := h.service.StartReconciliation(c.Request.Context(), reconciliation.StartInput{
		AccountID:          payload.AccountID,
		BankStatementID:    payload.BankStatementID,
		BookOpeningBalance: payload.BookOpeningBalance,
		BookClosingBalance: payload.BookClosingBalance,
		Notes:              payload.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *ReconciliationHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rec, err := h.service.GetReconciliation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ReconciliationHandler) ListForAccount(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}
	recs, err := h.service.ListReconciliations(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}

func (h *ReconciliationHandler) UpdateBookBalances(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		BookOpeningBalance decimal.Decimal `json:"book_opening_balance"`
		BookClosingBalance decimal.Decimal `json:"book_closing_balance"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rec, err := h.service.UpdateBookBalances(c.Request.Context(), id, payload.BookOpeningBalance, payload.BookClosingBalance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	count, err := h.service.AutoMatchTransactions(withActor(c).Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": count})
}

type matchPayload struct {
	BankTransactionIDs []uuid.UUID `json:"bank_transaction_ids"`
	TransactionIDs     []uuid.UUID `json:"transaction_ids"`
	Notes              string      `json:"notes"`
}

func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload matchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	matches, err := h.service.ManualMatch(withActor(c).Request.Context(), id,
		payload.BankTransactionIDs, payload.TransactionIDs, payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"matches": matches})
}

func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var payload matchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	removed, err := h.service.UnmatchTransactions(withActor(c).Request.Context(), id,
		payload.BankTransactionIDs, payload.TransactionIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *ReconciliationHandler) Matches(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	matches, err := h.service.ListMatches(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": matches})
}

func (h *ReconciliationHandler) Suggestions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := parseID(c, "bankTransactionId")
	if !ok {
		return
	}
	suggestions, err := h.service.GetSuggestedMatches(c.Request.Context(), id, lineID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": suggestions})
}

func (h *ReconciliationHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReconciliationHandler) AuditLog(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.ListAuditLogs(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *ReconciliationHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := withActor(c).Request.Context()
	completed, err := h.service.CompleteReconciliation(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !completed {
		rec, err := h.service.GetReconciliation(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"completed":  false,
			"error":      "statement and book closing balances differ",
			"difference": rec.Difference(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": true})
}
