// Package interfaces defines service contracts
package interfaces

import (
	"context"

	"github.com/bobmcallan/momentum/internal/models"
)

// MarketDataProvider supplies price history and fundamentals per ticker.
//
// Implementations report an unknown ticker as *common.TickerNotFoundError and
// transport or availability failures as *common.MarketDataError.
type MarketDataProvider interface {
	// GetPriceSeries returns up to lookbackDays trading days, oldest first
	GetPriceSeries(ctx context.Context, ticker string, lookbackDays int) ([]models.EODBar, error)

	// GetFundamentals returns the available fundamental metrics; may be partial or empty
	GetFundamentals(ctx context.Context, ticker string) (models.Fundamentals, error)
}

// BenchmarkResolver maps a ticker to the benchmark it is measured against
type BenchmarkResolver interface {
	BenchmarkFor(ticker string) string
}
