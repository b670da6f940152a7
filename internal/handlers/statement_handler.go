package handler

import (
	"net/http"
	"strconv"
	"time"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/services/statement"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type StatementHandler struct {
	service *statement.Service
}

func NewStatementHandler(s *statement.Service) *StatementHandler {
	return &StatementHandler{service: s}
}

func (h *StatementHandler) CreateAccount(c *gin.Context) {
	var payload struct {
		Name          string             `json:"name" binding:"required"`
		AccountNumber string             `json:"account_number"`
		Type          models.AccountType `json:"type" binding:"omitempty,oneof=checking savings credit_card cash"`
		Currency      string             `json:"currency" binding:"omitempty,len=3"`
		Balance       decimal.Decimal    `json:"balance"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	account := &models.Account{
		Name:          payload.Name,
		AccountNumber: payload.AccountNumber,
		Type:          payload.Type,
		Currency:      payload.Currency,
		Balance:       payload.Balance,
	}
	if err := h.service.CreateAccount(c.Request.Context(), account); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *StatementHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.service.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": accounts})
}

func (h *StatementHandler) GetAccount(c *gin.Context) {
	id, ok := parseID(c, "accountId")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *StatementHandler) CreateTransaction(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}
	var payload struct {
		Date            string          `json:"transaction_date" binding:"required"` // "yyyy-mm-dd"
		Description     string          `json:"description" binding:"required"`
		Amount          decimal.Decimal `json:"amount"`
		ReferenceNumber string          `json:"reference_number"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction date format, expected yyyy-mm-dd"})
		return
	}

	tx := &models.Transaction{
		AccountID:       accountID,
		TransactionDate: date,
		Description:     payload.Description,
		Amount:          payload.Amount,
		ReferenceNumber: payload.ReferenceNumber,
	}
	if err := h.service.CreateTransaction(c.Request.Context(), tx); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// Upload imports a statement file sent as multipart field "file" together
// with opening_balance and closing_balance form fields.
func (h *StatementHandler) Upload(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	opening, err := decimal.NewFromString(c.DefaultPostForm("opening_balance", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid opening_balance"})
		return
	}
	closing, err := decimal.NewFromString(c.DefaultPostForm("closing_balance", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid closing_balance"})
		return
	}

	parsed, err := statement.Parse(header.Filename, file)
	if err != nil {
		body := gin.H{"error": err.Error()}
		if parsed != nil {
			body["skipped"] = parsed.Skipped
		}
		c.JSON(statusFor(err), body)
		return
	}

	saved, err := h.service.Import(c.Request.Context(), statement.ImportInput{
		AccountID:      accountID,
		Filename:       header.Filename,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Parsed:         parsed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"statement": saved,
		"imported":  saved.TotalTransactions,
		"skipped":   parsed.Skipped,
	})
}

func (h *StatementHandler) ListStatements(c *gin.Context) {
	accountID, ok := parseID(c, "accountId")
	if !ok {
		return
	}
	statements, err := h.service.ListStatements(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": statements})
}

func (h *StatementHandler) ListLines(c *gin.Context) {
	statementID, ok := parseID(c, "statementId")
	if !ok {
		return
	}

	limit := defaultPageSize
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxPageSize)
	}

	cursor := c.Query("cursor")
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
	}

	page, err := h.service.ListLines(c.Request.Context(), repository.BankTransactionFilter{
		StatementID: statementID,
		Status:      c.Query("status"),
		Cursor:      cursor,
		Limit:       limit,
		Search:      c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
