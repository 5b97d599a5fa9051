// Package common provides shared utilities for the momentum service
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/momentum/internal/models"
)

// Config holds all configuration
type Config struct {
	Environment string           `toml:"environment"`
	Provider    string           `toml:"provider" validate:"oneof=eodhd snapshot"`
	Clients     ClientsConfig    `toml:"clients"`
	Logging     LoggingConfig    `toml:"logging"`
	Scoring     ScoringConfig    `toml:"scoring"`
	Watchlist   WatchlistConfig  `toml:"watchlist"`
	Allocation  AllocationConfig `toml:"allocation"`
}

// ClientsConfig holds market data provider configurations
type ClientsConfig struct {
	EODHD    EODHDConfig    `toml:"eodhd"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL         string             `toml:"base_url"`
	APIKey          string             `toml:"api_key"`
	RateLimit       int                `toml:"rate_limit" validate:"gte=1"`
	Timeout         string             `toml:"timeout"`
	DefaultExchange string             `toml:"default_exchange"`
	SectorPE        map[string]float64 `toml:"sector_pe"` // sector name -> P/E used as the valuation baseline
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SnapshotConfig points at a YAML market snapshot file
type SnapshotConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// ScoringConfig tunes the momentum engine and its batch worker pool
type ScoringConfig struct {
	WorkerCount         int              `toml:"worker_count" validate:"gte=1,lte=256"`
	TickerTimeout       string           `toml:"ticker_timeout"`
	BatchDeadline       string           `toml:"batch_deadline"`
	MinPriceHistory     int              `toml:"min_price_history" validate:"gte=2"`
	MinTechnicalHistory int              `toml:"min_technical_history" validate:"gte=21"`
	RelativeLookback    int              `toml:"relative_lookback" validate:"gte=1"`
	DefaultBenchmark    string           `toml:"default_benchmark" validate:"required,ticker"`
	Ratings             RatingThresholds `toml:"ratings"`
}

// GetTickerTimeout parses the per-ticker fetch timeout
func (c *ScoringConfig) GetTickerTimeout() time.Duration {
	d, err := time.ParseDuration(c.TickerTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetBatchDeadline parses the overall batch deadline
func (c *ScoringConfig) GetBatchDeadline() time.Duration {
	d, err := time.ParseDuration(c.BatchDeadline)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// RatingThresholds are the lower bounds (inclusive) of each rating band.
// Anything below Sell is Strong Sell.
type RatingThresholds struct {
	StrongBuy float64 `toml:"strong_buy"`
	Buy       float64 `toml:"buy"`
	Hold      float64 `toml:"hold"`
	Sell      float64 `toml:"sell"`
}

// DefaultRatingThresholds returns the documented default bands.
func DefaultRatingThresholds() RatingThresholds {
	return RatingThresholds{StrongBuy: 8.0, Buy: 6.5, Hold: 4.5, Sell: 3.0}
}

// Validate checks the bands are strictly descending and inside the score range.
func (r RatingThresholds) Validate() error {
	bands := []struct {
		name string
		v    float64
	}{{"strong_buy", r.StrongBuy}, {"buy", r.Buy}, {"hold", r.Hold}, {"sell", r.Sell}}
	for i, b := range bands {
		if b.v < models.ScoreMin || b.v > models.ScoreMax {
			return &ValidationError{Field: "scoring.ratings." + b.name, Value: fmtFloat(b.v), Reason: "must be within 0-10"}
		}
		if i > 0 && b.v >= bands[i-1].v {
			return &ValidationError{Field: "scoring.ratings." + b.name, Value: fmtFloat(b.v), Reason: "must be below " + bands[i-1].name}
		}
	}
	return nil
}

// WatchlistConfig tunes the gap analyzer
type WatchlistConfig struct {
	MaxCandidatesPerCategory int                `toml:"max_candidates_per_category" validate:"gte=1"`
	MinHeldWeightPct         float64            `toml:"min_held_weight_pct" validate:"gte=0,lte=100"`
	Priority                 PriorityThresholds `toml:"priority"`
}

// PriorityThresholds are the gap sizes (percentage points) for High and Medium.
type PriorityThresholds struct {
	High   float64 `toml:"high"`
	Medium float64 `toml:"medium"`
}

// DefaultPriorityThresholds returns the documented default gap cut points.
func DefaultPriorityThresholds() PriorityThresholds {
	return PriorityThresholds{High: 5.0, Medium: 2.0}
}

// Validate checks High > Medium > 0.
func (p PriorityThresholds) Validate() error {
	if p.Medium <= 0 {
		return &ValidationError{Field: "watchlist.priority.medium", Value: fmtFloat(p.Medium), Reason: "must be > 0"}
	}
	if p.High <= p.Medium {
		return &ValidationError{Field: "watchlist.priority.high", Value: fmtFloat(p.High), Reason: "must be above medium"}
	}
	return nil
}

// AllocationConfig holds the category allocation model
type AllocationConfig struct {
	AllowPartialTargets bool              `toml:"allow_partial_targets"`
	Categories          []models.Category `toml:"categories"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Provider:    "eodhd",
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:         "https://eodhd.com/api",
				RateLimit:       10,
				Timeout:         "30s",
				DefaultExchange: "US",
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Outputs:  []string{"console"},
			FilePath: "./logs/momentum.log",
		},
		Scoring: ScoringConfig{
			WorkerCount:         8,
			TickerTimeout:       "10s",
			BatchDeadline:       "60s",
			MinPriceHistory:     252,
			MinTechnicalHistory: 60,
			RelativeLookback:    63,
			DefaultBenchmark:    "SPY",
			Ratings:             DefaultRatingThresholds(),
		},
		Watchlist: WatchlistConfig{
			MaxCandidatesPerCategory: 3,
			MinHeldWeightPct:         1.0,
			Priority:                 DefaultPriorityThresholds(),
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	normalizeCategories(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct tags and the cross-field rules on thresholds.
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Scoring.Ratings.Validate(); err != nil {
		return err
	}
	if c.Scoring.MinPriceHistory <= c.Scoring.RelativeLookback {
		return &ValidationError{
			Field:  "scoring.min_price_history",
			Value:  strconv.Itoa(c.Scoring.MinPriceHistory),
			Reason: "must exceed relative_lookback",
		}
	}
	if c.Scoring.MinTechnicalHistory > c.Scoring.MinPriceHistory {
		return &ValidationError{
			Field:  "scoring.min_technical_history",
			Value:  strconv.Itoa(c.Scoring.MinTechnicalHistory),
			Reason: "must not exceed min_price_history",
		}
	}
	return c.Watchlist.Priority.Validate()
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MOMENTUM_ENV"); env != "" {
		config.Environment = env
	}

	if p := os.Getenv("MOMENTUM_PROVIDER"); p != "" {
		config.Provider = strings.ToLower(p)
	}

	if level := os.Getenv("MOMENTUM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	for _, name := range []string{"EODHD_API_KEY", "MOMENTUM_EODHD_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.EODHD.APIKey = v
			break
		}
	}

	if path := os.Getenv("MOMENTUM_SNAPSHOT_PATH"); path != "" {
		config.Clients.Snapshot.Path = path
	}

	if wc := os.Getenv("MOMENTUM_WORKER_COUNT"); wc != "" {
		if n, err := strconv.Atoi(wc); err == nil {
			config.Scoring.WorkerCount = n
		}
	}
}

// normalizeCategories upper-cases benchmark and member symbols
func normalizeCategories(config *Config) {
	config.Scoring.DefaultBenchmark = models.NormalizeTicker(config.Scoring.DefaultBenchmark)
	for i := range config.Allocation.Categories {
		cat := &config.Allocation.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		cat.Benchmark = models.NormalizeTicker(cat.Benchmark)
		for j := range cat.Members {
			cat.Members[j] = models.NormalizeTicker(cat.Members[j])
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
