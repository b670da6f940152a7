package repository

import (
	"context"
	"fmt"
	"strings"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusMatched   = "matched"
	StatusUnmatched = "unmatched"
)

// BankTransactionFilter drives cursor pagination over a statement's lines.
type BankTransactionFilter struct {
	StatementID uuid.UUID
	Status      string // matched, unmatched, all or empty
	Cursor      string
	Limit       int
	Search      string
}

type BankTransactionPage struct {
	Items      []models.BankTransaction `json:"items"`
	NextCursor string                   `json:"next_cursor"`
	HasMore    bool                     `json:"has_more"`
}

func (s *GormStore) GetBankTransaction(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var line models.BankTransaction
	if err := s.db.WithContext(ctx).First(&line, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

func (s *GormStore) FindBankTransactions(ctx context.Context, ids []uuid.UUID) ([]models.BankTransaction, error) {
	var lines []models.BankTransaction
	if len(ids) == 0 {
		return lines, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&lines).Error
	return lines, err
}

func (s *GormStore) UnmatchedBankTransactions(ctx context.Context, statementID uuid.UUID) ([]models.BankTransaction, error) {
	var lines []models.BankTransaction
	err := s.db.WithContext(ctx).
		Where("bank_statement_id = ? AND is_matched = ?", statementID, false).
		Order("transaction_date ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

func (s *GormStore) ListBankTransactions(ctx context.Context, filter BankTransactionFilter) (BankTransactionPage, error) {
	var page BankTransactionPage
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := s.db.WithContext(ctx).
		Where("bank_statement_id = ?", filter.StatementID).
		Order("id ASC").
		Limit(limit + 1)

	switch filter.Status {
	case StatusMatched:
		query = query.Where("is_matched = ?", true)
	case StatusUnmatched:
		query = query.Where("is_matched = ?", false)
	}

	if filter.Cursor != "" {
		query = query.Where("id > ?", filter.Cursor)
	}

	// filter by search (description or amount)
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(description) LIKE ? OR CAST(amount AS TEXT) LIKE ?",
			like, like,
		)
	}

	var lines []models.BankTransaction
	if err := query.Find(&lines).Error; err != nil {
		return page, fmt.Errorf("failed to list statement lines: %w", err)
	}

	if len(lines) > limit {
		page.HasMore = true
		page.NextCursor = lines[limit-1].ID.String()
		lines = lines[:limit]
	}
	page.Items = lines
	return page, nil
}

func (s *GormStore) SetBankTransactionsMatched(ctx context.Context, ids []uuid.UUID, matched bool) error {
	if len(ids) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("id IN ? AND is_matched = ?", ids, !matched).
		Update("is_matched", matched)
	if result.Error != nil {
		return fmt.Errorf("failed to update bank transaction match flag: %w", result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("bank transactions: %w", ErrFlagConflict)
	}
	return nil
}

func (s *GormStore) BankTransactionStats(ctx context.Context, statementID uuid.UUID) ([]StatRow, error) {
	return flagStats(s.db.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("bank_statement_id = ?", statementID), "is_matched")
}

// flagStats runs COUNT/SUM(amount) once per value of a boolean column.
func flagStats(base *gorm.DB, column string) ([]StatRow, error) {
	rows := make([]StatRow, 0, 2)
	for _, flag := range []bool{true, false} {
		row := StatRow{Flag: flag}
		err := base.Session(&gorm.Session{}).
			Where(column+" = ?", flag).
			Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
			Scan(&row).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", column, err)
		}
		row.Flag = flag
		rows = append(rows, row)
	}
	return rows, nil
}
