package matching

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// ManualConfidence is recorded on operator-asserted matches.
	ManualConfidence = 100
	MaxConfidence    = 100

	DefaultDateToleranceDays = 3
	DefaultAmountWeight      = 50
	DefaultDateWeight        = 30
	DefaultDescriptionWeight = 20
	DefaultMaxSuggestions    = 10
)

// DefaultAmountTolerance is the largest absolute amount gap still eligible.
var DefaultAmountTolerance = decimal.RequireFromString("1.00")

// Config holds the matching bounds and scoring weights.
type Config struct {
	AmountTolerance   decimal.Decimal `json:"amount_tolerance"`
	DateToleranceDays int             `json:"date_tolerance_days"`
	AmountWeight      float64         `json:"amount_weight"`
	DateWeight        float64         `json:"date_weight"`
	DescriptionWeight float64         `json:"description_weight"`
	MaxSuggestions    int             `json:"max_suggestions"`
}

func DefaultConfig() Config {
	return Config{
		AmountTolerance:   DefaultAmountTolerance,
		DateToleranceDays: DefaultDateToleranceDays,
		AmountWeight:      DefaultAmountWeight,
		DateWeight:        DefaultDateWeight,
		DescriptionWeight: DefaultDescriptionWeight,
		MaxSuggestions:    DefaultMaxSuggestions,
	}
}

func (c Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return errors.New("amount tolerance must not be negative")
	}
	if c.DateToleranceDays < 0 {
		return errors.New("date tolerance must not be negative")
	}
	if c.AmountWeight < 0 || c.DateWeight < 0 || c.DescriptionWeight < 0 {
		return errors.New("weights must not be negative")
	}
	if c.AmountWeight+c.DateWeight+c.DescriptionWeight == 0 {
		return errors.New("at least one weight must be positive")
	}
	if c.MaxSuggestions <= 0 {
		return errors.New("max suggestions must be positive")
	}
	return nil
}
