package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bank-reconciliation-backend/internal/services/matching"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL  string   `validate:"required"`
	HTTPAddr     string   `validate:"required"`
	CORSOrigins  []string `validate:"dive,url"`
	LogLevel     string   `validate:"oneof=debug info warn error"`
	RedisAddress string   `validate:"omitempty,hostname_port"`
	Matching     matching.Config
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Load .env
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:  getenv("DATABASE_URL"),
		HTTPAddr:     withDefault(getenv("HTTP_ADDR"), ":8080"),
		CORSOrigins:  splitList(withDefault(getenv("CORS_ORIGINS"), "http://localhost:3000")),
		LogLevel:     strings.ToLower(withDefault(getenv("LOG_LEVEL"), "info")),
		RedisAddress: getenv("REDIS_ADDRESS"),
		Matching:     matching.DefaultConfig(),
	}

	if v := getenv("MATCH_AMOUNT_TOLERANCE"); v != "" {
		tol, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_AMOUNT_TOLERANCE: %w", err)
		}
		cfg.Matching.AmountTolerance = tol
	}
	if v := getenv("MATCH_DATE_TOLERANCE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_DATE_TOLERANCE_DAYS: %w", err)
		}
		cfg.Matching.DateToleranceDays = days
	}
	if v := getenv("MATCH_WEIGHTS"); v != "" {
		weights, err := parseWeights(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_WEIGHTS: %w", err)
		}
		cfg.Matching.AmountWeight = weights[0]
		cfg.Matching.DateWeight = weights[1]
		cfg.Matching.DescriptionWeight = weights[2]
	}
	if v := getenv("MATCH_MAX_SUGGESTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_MAX_SUGGESTIONS: %w", err)
		}
		cfg.Matching.MaxSuggestions = n
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Matching.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}
	return cfg, nil
}

// parseWeights reads "amount,date,description".
func parseWeights(s string) ([3]float64, error) {
	var out [3]float64
	parts := splitList(s)
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 comma-separated weights, got %d", len(parts))
	}
	for i, p := range parts {
		w, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return out, err
		}
		out[i] = w
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
