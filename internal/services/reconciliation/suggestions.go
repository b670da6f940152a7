package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
)

type Suggestion struct {
	Transaction     models.Transaction `json:"transaction"`
	ConfidenceScore int                `json:"confidence_score"`
	Breakdown       matching.Breakdown `json:"breakdown"`
}

// GetSuggestedMatches ranks unreconciled book entries for one unmatched
// statement line, highest confidence first. Nothing is written.
func (s *Service) GetSuggestedMatches(ctx context.Context, recID, bankTxID uuid.UUID) (out []Suggestion, err error) {
	ctx, span := s.startSpan(ctx, "Suggest", recID)
	defer func() { s.finish(span, "GetSuggestedMatches", recID, err) }()

	rec, err := getReconciliation(ctx, s.store, recID)
	if err != nil {
		return nil, err
	}

	line, err := s.store.GetBankTransaction(ctx, bankTxID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("bank transaction %s: %w", bankTxID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if line.BankStatementID != rec.BankStatementID {
		return nil, fmt.Errorf("bank transaction %s: %w", line.ID, ErrOutOfScope)
	}
	if line.IsMatched {
		return nil, fmt.Errorf("bank transaction %s: %w", line.ID, ErrAlreadyMatched)
	}

	book, err := s.store.UnreconciledTransactions(ctx, rec.AccountID)
	if err != nil {
		return nil, err
	}

	candidates := s.scorer.Rank(*line, book, s.scorer.Config().MaxSuggestions)
	out = make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Suggestion{
			Transaction:     c.Transaction,
			ConfidenceScore: c.Breakdown.Confidence,
			Breakdown:       c.Breakdown,
		})
	}
	return out, nil
}
