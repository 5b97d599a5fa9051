package interfaces

import (
	"context"

	"github.com/bobmcallan/momentum/internal/models"
)

// MomentumService scores tickers
type MomentumService interface {
	// CalculateMomentumScore scores a single ticker, propagating the first error
	CalculateMomentumScore(ctx context.Context, ticker string) (*models.MomentumScore, error)

	// ScoreBatch scores tickers concurrently; failures are isolated per ticker
	ScoreBatch(ctx context.Context, tickers []string) *models.BatchResult
}

// PortfolioService analyses holdings against the category allocation model
type PortfolioService interface {
	// AnalyzePortfolio values, weights and scores every holding
	AnalyzePortfolio(ctx context.Context, holdings []models.Holding) (*models.PortfolioSnapshot, error)

	// AnalyzeByCategories aggregates holdings into category allocations
	AnalyzeByCategories(ctx context.Context, holdings []models.Holding) ([]models.CategoryAllocation, error)
}

// WatchlistService proposes candidates for under-allocated categories
type WatchlistService interface {
	// GenerateWatchlist ranks un-held members of under-allocated categories
	GenerateWatchlist(ctx context.Context, holdings []models.Holding, maxCandidatesPerCategory int) (*models.Watchlist, error)
}
