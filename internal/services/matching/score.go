// Package matching scores bank statement lines against book entries.
//
// A pair is eligible only when the absolute amount gap is within
// Config.AmountTolerance and the calendar-day gap is within
// Config.DateToleranceDays. Eligible pairs get a 0..100 confidence:
//
//	confidence = round(100 * (wA*amount + wD*date + wS*description) / (wA + wD + wS))
//
// where amount and date decay linearly from 1 (exact) to 0.5 (at the bound)
// and description is DescriptionSimilarity. Ineligible pairs score 0.
package matching

import (
	"math"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Breakdown is the per-dimension result of scoring one pair.
type Breakdown struct {
	Eligible         bool            `json:"eligible"`
	AmountDiff       decimal.Decimal `json:"amount_diff"`
	DaysApart        int             `json:"days_apart"`
	AmountScore      float64         `json:"amount_score"`
	DateScore        float64         `json:"date_score"`
	DescriptionScore float64         `json:"description_score"`
	Confidence       int             `json:"confidence"`
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Score evaluates a statement line against a book entry.
func (s *Scorer) Score(bank models.BankTransaction, book models.Transaction) Breakdown {
	b := Breakdown{
		AmountDiff: bank.Amount.Sub(book.Amount).Abs(),
		DaysApart:  DaysApart(bank.TransactionDate, book.TransactionDate),
	}

	amount, ok := AmountScore(b.AmountDiff, s.cfg.AmountTolerance)
	if !ok {
		return b
	}
	date, ok := DateScore(b.DaysApart, s.cfg.DateToleranceDays)
	if !ok {
		return b
	}

	b.Eligible = true
	b.AmountScore = amount
	b.DateScore = date
	b.DescriptionScore = DescriptionSimilarity(bank.Description, book.Description)
	b.Confidence = s.combine(b.AmountScore, b.DateScore, b.DescriptionScore)
	return b
}

// Confidence is Score reduced to the 0..100 integer.
func (s *Scorer) Confidence(bank models.BankTransaction, book models.Transaction) int {
	return s.Score(bank, book).Confidence
}

func (s *Scorer) combine(amount, date, description float64) int {
	total := s.cfg.AmountWeight + s.cfg.DateWeight + s.cfg.DescriptionWeight
	if total <= 0 {
		return 0
	}
	weighted := s.cfg.AmountWeight*amount + s.cfg.DateWeight*date + s.cfg.DescriptionWeight*description
	score := int(math.Round(weighted / total * MaxConfidence))
	switch {
	case score < 0:
		return 0
	case score > MaxConfidence:
		return MaxConfidence
	}
	return score
}

// AmountScore maps an absolute amount gap to 0.5..1. It reports false when
// the gap exceeds tolerance.
func AmountScore(diff, tolerance decimal.Decimal) (float64, bool) {
	diff = diff.Abs()
	if diff.IsZero() {
		return 1, true
	}
	if diff.GreaterThan(tolerance) || !tolerance.IsPositive() {
		return 0, false
	}
	return 1 - 0.5*diff.Div(tolerance).InexactFloat64(), true
}

// DateScore maps a calendar-day gap to 0.5..1. It reports false when the gap
// exceeds toleranceDays.
func DateScore(days, toleranceDays int) (float64, bool) {
	if days < 0 {
		days = -days
	}
	if days == 0 {
		return 1, true
	}
	if days > toleranceDays {
		return 0, false
	}
	return 1 - 0.5*float64(days)/float64(toleranceDays), true
}

// DaysApart counts whole calendar days between two timestamps in UTC.
func DaysApart(a, b time.Time) int {
	da := dateOnly(a)
	db := dateOnly(b)
	days := int(math.Round(da.Sub(db).Hours() / 24))
	if days < 0 {
		return -days
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
