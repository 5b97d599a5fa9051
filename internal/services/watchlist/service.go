// Package watchlist provides gap analysis and watchlist generation services
package watchlist

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bobmcallan/momentum/internal/allocation"
	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/interfaces"
	"github.com/bobmcallan/momentum/internal/models"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*GapAnalyzer)(nil)

// AllocationSource supplies the category breakdown and per-holding weights
type AllocationSource interface {
	Allocation(ctx context.Context, holdings []models.Holding) ([]models.CategoryAllocation, map[string]float64, error)
}

// GapAnalyzer implements WatchlistService
type GapAnalyzer struct {
	allocations AllocationSource
	scorer      interfaces.MomentumService
	model       *allocation.Model
	logger      *common.Logger
	config      common.WatchlistConfig
	now         func() time.Time
}

// Option configures the gap analyzer
type Option func(*GapAnalyzer)

// WithConfig sets candidate limits, the held-weight threshold and priority cut points
func WithConfig(cfg common.WatchlistConfig) Option {
	return func(g *GapAnalyzer) {
		g.config = cfg
	}
}

// WithClock overrides the clock used for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(g *GapAnalyzer) {
		g.now = now
	}
}

// NewGapAnalyzer creates a new gap analyzer
func NewGapAnalyzer(allocations AllocationSource, scorer interfaces.MomentumService, model *allocation.Model, logger *common.Logger, opts ...Option) *GapAnalyzer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	g := &GapAnalyzer{
		allocations: allocations,
		scorer:      scorer,
		model:       model,
		logger:      logger,
		config:      common.NewDefaultConfig().Watchlist,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateWatchlist proposes up to maxCandidatesPerCategory members of each
// under-allocated category. Members already held at or above the held-weight
// threshold are excluded. A non-positive limit uses the configured default.
func (g *GapAnalyzer) GenerateWatchlist(ctx context.Context, holdings []models.Holding, maxCandidatesPerCategory int) (*models.Watchlist, error) {
	limit := maxCandidatesPerCategory
	if limit <= 0 {
		limit = g.config.MaxCandidatesPerCategory
	}

	categories, weights, err := g.allocations.Allocation(ctx, holdings)
	if err != nil {
		return nil, fmt.Errorf("failed to analyse allocation: %w", err)
	}

	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		held[models.NormalizeTicker(h.Ticker)] = true
	}

	var under []models.CategoryAllocation
	eligible := make(map[string][]string)
	var toScore []string
	for _, c := range categories {
		if !c.UnderAllocated() {
			continue
		}
		cat, ok := g.model.Category(c.Category)
		if !ok {
			continue
		}
		under = append(under, c)
		for _, t := range cat.Members {
			if held[t] {
				w, priced := weights[t]
				if !priced || w >= g.config.MinHeldWeightPct {
					continue
				}
			}
			eligible[c.Category] = append(eligible[c.Category], t)
			toScore = append(toScore, t)
		}
	}

	watchlist := &models.Watchlist{
		Candidates:  []models.WatchlistCandidate{},
		Categories:  categories,
		GeneratedAt: g.now(),
	}
	if len(toScore) == 0 {
		g.logger.Info().Int("under_allocated", len(under)).Msg("No watchlist candidates to score")
		return watchlist, nil
	}

	batch := g.scorer.ScoreBatch(ctx, toScore)
	skipped := make(map[string]string)

	sort.SliceStable(under, func(i, j int) bool {
		pi := PriorityFor(under[i].Gap, g.config.Priority).Rank()
		pj := PriorityFor(under[j].Gap, g.config.Priority).Rank()
		if pi != pj {
			return pi < pj
		}
		if under[i].Gap != under[j].Gap {
			return under[i].Gap > under[j].Gap
		}
		return under[i].Category < under[j].Category
	})

	for _, c := range under {
		priority := PriorityFor(c.Gap, g.config.Priority)

		var ranked []models.WatchlistCandidate
		for _, t := range eligible[c.Category] {
			r, ok := batch.Results[t]
			if !ok || !r.OK() {
				reason := "not scored"
				if ok {
					reason = r.Error
				}
				skipped[t] = reason
				continue
			}
			ranked = append(ranked, models.WatchlistCandidate{
				Ticker:        t,
				Category:      c.Category,
				MomentumScore: r.Score.Composite,
				Rating:        r.Score.Rating,
				Priority:      priority,
				Gap:           c.Gap,
			})
		}

		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].MomentumScore != ranked[j].MomentumScore {
				return ranked[i].MomentumScore > ranked[j].MomentumScore
			}
			return ranked[i].Ticker < ranked[j].Ticker
		})
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		watchlist.Candidates = append(watchlist.Candidates, ranked...)

		g.logger.Debug().
			Str("category", c.Category).
			Str("gap", strconv.FormatFloat(c.Gap, 'f', 2, 64)).
			Str("priority", string(priority)).
			Int("candidates", len(ranked)).
			Msg("Category gap analysed")
	}

	if len(skipped) > 0 {
		watchlist.Skipped = skipped
	}

	g.logger.Info().
		Int("under_allocated", len(under)).
		Int("candidates", len(watchlist.Candidates)).
		Int("skipped", len(skipped)).
		Msg("Watchlist generated")

	return watchlist, nil
}

// PriorityFor labels a category gap. Thresholds are inclusive lower bounds.
func PriorityFor(gap float64, thresholds common.PriorityThresholds) models.Priority {
	switch {
	case gap >= thresholds.High:
		return models.PriorityHigh
	case gap >= thresholds.Medium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
