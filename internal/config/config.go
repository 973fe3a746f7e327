// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/HSfac/token-buyer-analyze/internal/domain"
)

// ErrMissingAPIKey is returned when no upstream credential is configured.
// Analysis cannot run without one; callers report this instead of retrying.
var ErrMissingAPIKey = errors.New("HELIUS_API_KEY is required")

// Config holds all runtime configuration.
type Config struct {
	// Upstream
	HeliusAPIKey string
	RPCEndpoint  string // optional override of the default RPC endpoint
	APIEndpoint  string // optional override of the enhanced API endpoint

	// Storage
	PostgresDSN   string
	ClickhouseDSN string

	// HTTP
	ListenAddr string

	// Analysis defaults
	DefaultLimit       int
	ResolveConcurrency int
	RangeBounds        []decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; existing env vars take precedence.
func Load() (*Config, error) {
	// Returns an error when the file is absent, which is the normal case in
	// production. Only malformed files matter.
	_ = godotenv.Load()

	cfg := &Config{
		HeliusAPIKey:       os.Getenv("HELIUS_API_KEY"),
		RPCEndpoint:        os.Getenv("HELIUS_RPC_ENDPOINT"),
		APIEndpoint:        os.Getenv("HELIUS_API_ENDPOINT"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN:      os.Getenv("CLICKHOUSE_DSN"),
		ListenAddr:         envOr("LISTEN_ADDR", ":8080"),
		DefaultLimit:       200,
		ResolveConcurrency: 8,
	}

	if raw := os.Getenv("ANALYSIS_DEFAULT_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ANALYSIS_DEFAULT_LIMIT: %w", err)
		}
		cfg.DefaultLimit = n
	}
	if raw := os.Getenv("RESOLVE_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse RESOLVE_CONCURRENCY: %w", err)
		}
		cfg.ResolveConcurrency = n
	}

	bounds, err := ParseRangeBounds(os.Getenv("SOL_RANGE_BOUNDS"))
	if err != nil {
		return nil, err
	}
	cfg.RangeBounds = bounds

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.HeliusAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default limit must be positive, got %d", c.DefaultLimit)
	}
	if c.ResolveConcurrency < 1 {
		return fmt.Errorf("resolve concurrency must be positive, got %d", c.ResolveConcurrency)
	}
	if _, err := c.RangeTable(); err != nil {
		return err
	}
	return nil
}

// RangeTable builds the volume range table from the configured boundaries,
// or the default table when none are configured.
func (c *Config) RangeTable() (domain.RangeTable, error) {
	if len(c.RangeBounds) == 0 {
		return domain.DefaultRangeTable(), nil
	}
	return domain.NewRangeTable(c.RangeBounds)
}

// ParseRangeBounds parses a comma-separated boundary list like "0,1,5,10".
// An empty input yields nil, meaning use the default table.
func ParseRangeBounds(raw string) ([]decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	bounds := make([]decimal.Decimal, 0, len(parts))
	for _, part := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse range bound %q: %w", part, err)
		}
		bounds = append(bounds, d)
	}
	return bounds, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
