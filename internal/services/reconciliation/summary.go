package reconciliation

import (
	"context"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Summary struct {
	Reconciliation models.BankReconciliation `json:"reconciliation"`

	MatchedBankCount   int64           `json:"matched_bank_count"`
	MatchedBankTotal   decimal.Decimal `json:"matched_bank_total"`
	UnmatchedBankCount int64           `json:"unmatched_bank_count"`
	UnmatchedBankTotal decimal.Decimal `json:"unmatched_bank_total"`

	MatchedBookCount      int             `json:"matched_book_count"`
	MatchedBookTotal      decimal.Decimal `json:"matched_book_total"`
	UnreconciledBookCount int64           `json:"unreconciled_book_count"`
	UnreconciledBookTotal decimal.Decimal `json:"unreconciled_book_total"`

	AutoMatches   int `json:"auto_matches"`
	ManualMatches int `json:"manual_matches"`

	Difference decimal.Decimal `json:"difference"`
	IsBalanced bool            `json:"is_balanced"`
}

// Summary reports match progress and the closing-balance difference.
func (s *Service) Summary(ctx context.Context, recID uuid.UUID) (*Summary, error) {
	rec, err := getReconciliation(ctx, s.store, recID)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		Reconciliation: *rec,
		Difference:     rec.Difference(),
		IsBalanced:     rec.IsBalanced(),
	}

	bankStats, err := s.store.BankTransactionStats(ctx, rec.BankStatementID)
	if err != nil {
		return nil, err
	}
	for _, row := range bankStats {
		if row.Flag {
			out.MatchedBankCount, out.MatchedBankTotal = row.Count, row.Sum
		} else {
			out.UnmatchedBankCount, out.UnmatchedBankTotal = row.Count, row.Sum
		}
	}

	bookStats, err := s.store.TransactionStats(ctx, rec.AccountID)
	if err != nil {
		return nil, err
	}
	for _, row := range bookStats {
		if !row.Flag {
			out.UnreconciledBookCount, out.UnreconciledBookTotal = row.Count, row.Sum
		}
	}

	matches, err := s.store.ListMatches(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	var bookIDs []uuid.UUID
	for _, m := range matches {
		switch m.MatchType {
		case models.MatchTypeAuto:
			out.AutoMatches++
		case models.MatchTypeManual:
			out.ManualMatches++
		}
		bookIDs = append(bookIDs, m.TransactionID)
	}

	book, err := s.store.FindTransactions(ctx, uniqueIDs(bookIDs))
	if err != nil {
		return nil, err
	}
	out.MatchedBookCount = len(book)
	out.MatchedBookTotal = decimal.Zero
	for _, entry := range book {
		out.MatchedBookTotal = out.MatchedBookTotal.Add(entry.Amount)
	}
	return out, nil
}
