package matching

import (
	"sort"

	"bank-reconciliation-backend/internal/models"
)

// Pair is an accepted pairing by slice index.
type Pair struct {
	BankIndex int
	BookIndex int
	Breakdown Breakdown
}

// Candidate is a ranked book entry for one statement line.
type Candidate struct {
	Transaction models.Transaction `json:"transaction"`
	Breakdown   Breakdown          `json:"breakdown"`
}

// Assign scores every eligible pair and accepts them best-first so that each
// statement line and each book entry is used at most once.
func (s *Scorer) Assign(bank []models.BankTransaction, book []models.Transaction) []Pair {
	var pairs []Pair
	for i := range bank {
		for j := range book {
			b := s.Score(bank[i], book[j])
			if !b.Eligible {
				continue
			}
			pairs = append(pairs, Pair{BankIndex: i, BookIndex: j, Breakdown: b})
		}
	}

	sort.SliceStable(pairs, func(x, y int) bool {
		px, py := pairs[x], pairs[y]
		if c := compareBreakdown(px.Breakdown, py.Breakdown); c != 0 {
			return c < 0
		}
		bx, by := bank[px.BankIndex], bank[py.BankIndex]
		if !bx.TransactionDate.Equal(by.TransactionDate) {
			return bx.TransactionDate.Before(by.TransactionDate)
		}
		if bx.ID != by.ID {
			return bx.ID.String() < by.ID.String()
		}
		return book[px.BookIndex].ID.String() < book[py.BookIndex].ID.String()
	})

	usedBank := make(map[int]bool, len(bank))
	usedBook := make(map[int]bool, len(book))
	accepted := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if usedBank[p.BankIndex] || usedBook[p.BookIndex] {
			continue
		}
		usedBank[p.BankIndex] = true
		usedBook[p.BookIndex] = true
		accepted = append(accepted, p)
	}
	return accepted
}

// Rank returns the eligible book entries for one statement line, best first,
// capped at limit when limit > 0.
func (s *Scorer) Rank(bank models.BankTransaction, book []models.Transaction, limit int) []Candidate {
	var candidates []Candidate
	for _, tx := range book {
		b := s.Score(bank, tx)
		if !b.Eligible {
			continue
		}
		candidates = append(candidates, Candidate{Transaction: tx, Breakdown: b})
	}

	sort.SliceStable(candidates, func(x, y int) bool {
		cx, cy := candidates[x], candidates[y]
		if c := compareBreakdown(cx.Breakdown, cy.Breakdown); c != 0 {
			return c < 0
		}
		return cx.Transaction.ID.String() < cy.Transaction.ID.String()
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// compareBreakdown orders higher confidence first, then the smaller amount
// gap, then the smaller date gap.
func compareBreakdown(a, b Breakdown) int {
	if a.Confidence != b.Confidence {
		if a.Confidence > b.Confidence {
			return -1
		}
		return 1
	}
	if c := a.AmountDiff.Cmp(b.AmountDiff); c != 0 {
		return c
	}
	switch {
	case a.DaysApart < b.DaysApart:
		return -1
	case a.DaysApart > b.DaysApart:
		return 1
	}
	return 0
}
