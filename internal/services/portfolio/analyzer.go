// Package portfolio provides portfolio valuation and category allocation analysis
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/momentum/internal/allocation"
	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/interfaces"
	"github.com/bobmcallan/momentum/internal/models"
)

// priceLookback is the number of bars requested to find a latest close.
const priceLookback = 5

var hundred = decimal.NewFromInt(100)

// Analyzer implements PortfolioService
type Analyzer struct {
	provider interfaces.MarketDataProvider
	scorer   interfaces.MomentumService
	model    *allocation.Model
	logger   *common.Logger
	config   common.ScoringConfig
	now      func() time.Time
}

// Option configures the analyzer
type Option func(*Analyzer)

// WithConfig sets the worker count and per-ticker timeout used for price fetches
func WithConfig(cfg common.ScoringConfig) Option {
	return func(a *Analyzer) {
		a.config = cfg
	}
}

// WithClock overrides the clock used for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer creates a new portfolio analyzer
func NewAnalyzer(provider interfaces.MarketDataProvider, scorer interfaces.MomentumService, model *allocation.Model, logger *common.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &Analyzer{
		provider: provider,
		scorer:   scorer,
		model:    model,
		logger:   logger,
		config:   common.NewDefaultConfig().Scoring,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// valued is a priced holding
type valued struct {
	holding models.Holding
	price   decimal.Decimal
	value   decimal.Decimal
}

// valuation is the priced view shared by both analyses
type valuation struct {
	positions  []valued // market value desc, ticker asc
	categories []models.CategoryAllocation
	total      decimal.Decimal
	totalValue float64
	errors     map[string]string
}

// AnalyzePortfolio values, weights and scores every holding.
func (a *Analyzer) AnalyzePortfolio(ctx context.Context, holdings []models.Holding) (*models.PortfolioSnapshot, error) {
	v, err := a.value(ctx, holdings)
	if err != nil {
		return nil, err
	}

	tickers := make([]string, 0, len(v.positions))
	for _, p := range v.positions {
		tickers = append(tickers, p.holding.Ticker)
	}
	var scores map[string]models.TickerResult
	if len(tickers) > 0 {
		scores = a.scorer.ScoreBatch(ctx, tickers).Results
	}

	snapshot := &models.PortfolioSnapshot{
		Holdings:    make([]models.HoldingAnalysis, 0, len(v.positions)),
		TotalValue:  v.totalValue,
		Categories:  v.categories,
		Errors:      v.errors,
		GeneratedAt: a.now(),
	}

	var composites []float64
	for _, p := range v.positions {
		h := models.HoldingAnalysis{
			Ticker:           p.holding.Ticker,
			Category:         a.model.CategoryOf(p.holding.Ticker),
			Shares:           p.holding.Shares,
			Price:            p.price.InexactFloat64(),
			MarketValue:      p.value.InexactFloat64(),
			PortfolioPercent: percentOf(p.value, v.total),
			CostBasis:        p.holding.CostBasis,
		}
		if p.holding.CostBasis != nil {
			cost := decimal.NewFromFloat(*p.holding.CostBasis).Mul(decimal.NewFromFloat(p.holding.Shares))
			gain := p.value.Sub(cost).InexactFloat64()
			h.UnrealizedGain = &gain
		}

		if r, ok := scores[p.holding.Ticker]; ok && r.OK() {
			h.Momentum = r.Score
			composites = append(composites, r.Score.Composite)
		} else if ok {
			snapshot.Errors[p.holding.Ticker] = fmt.Sprintf("momentum: %s", r.Error)
		}

		snapshot.Holdings = append(snapshot.Holdings, h)
	}

	if len(composites) > 0 {
		snapshot.AverageMomentum = stat.Mean(composites, nil)
	}
	if len(snapshot.Errors) == 0 {
		snapshot.Errors = nil
	}

	a.logger.Info().
		Int("holdings", len(snapshot.Holdings)).
		Int("errors", len(snapshot.Errors)).
		Str("total_value", v.total.StringFixed(2)).
		Msg("Portfolio analysed")

	return snapshot, nil
}

// AnalyzeByCategories aggregates holdings into the configured categories,
// in config order, followed by "Other" when unmapped holdings carry value.
func (a *Analyzer) AnalyzeByCategories(ctx context.Context, holdings []models.Holding) ([]models.CategoryAllocation, error) {
	v, err := a.value(ctx, holdings)
	if err != nil {
		return nil, err
	}
	for ticker, reason := range v.errors {
		a.logger.Warn().Str("ticker", ticker).Str("reason", reason).Msg("Holding excluded from category breakdown")
	}
	return v.categories, nil
}

// Allocation returns the category breakdown together with each priced
// holding's portfolio percent, from a single pricing pass.
func (a *Analyzer) Allocation(ctx context.Context, holdings []models.Holding) ([]models.CategoryAllocation, map[string]float64, error) {
	v, err := a.value(ctx, holdings)
	if err != nil {
		return nil, nil, err
	}
	weights := make(map[string]float64, len(v.positions))
	for _, p := range v.positions {
		weights[p.holding.Ticker] = percentOf(p.value, v.total)
	}
	return v.categories, weights, nil
}

// value validates holdings, fetches prices and computes market values and
// category aggregates.
func (a *Analyzer) value(ctx context.Context, holdings []models.Holding) (*valuation, error) {
	holdings, err := ValidateHoldings(holdings)
	if err != nil {
		return nil, err
	}

	prices, failures := a.fetchPrices(ctx, holdings)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("portfolio valuation cancelled: %w", err)
	}

	v := &valuation{
		positions: make([]valued, 0, len(holdings)),
		total:     decimal.Zero,
		errors:    make(map[string]string),
	}
	for ticker, err := range failures {
		v.errors[ticker] = err.Error()
	}

	for _, h := range holdings {
		price, ok := prices[h.Ticker]
		if !ok {
			continue
		}
		value := decimal.NewFromFloat(h.Shares).Mul(price)
		v.positions = append(v.positions, valued{holding: h, price: price, value: value})
		v.total = v.total.Add(value)
	}

	sort.SliceStable(v.positions, func(i, j int) bool {
		if c := v.positions[i].value.Cmp(v.positions[j].value); c != 0 {
			return c > 0
		}
		return v.positions[i].holding.Ticker < v.positions[j].holding.Ticker
	})

	v.categories, v.totalValue = a.aggregate(v.positions, v.total)
	return v, nil
}

// aggregate groups positions by category. The returned total is the sum of
// the category values in output order.
func (a *Analyzer) aggregate(positions []valued, total decimal.Decimal) ([]models.CategoryAllocation, float64) {
	values := make(map[string]decimal.Decimal)
	members := make(map[string][]string)
	for _, p := range positions {
		name := a.model.CategoryOf(p.holding.Ticker)
		values[name] = values[name].Add(p.value)
		members[name] = append(members[name], p.holding.Ticker)
	}

	var out []models.CategoryAllocation
	build := func(name string, target float64) models.CategoryAllocation {
		value := values[name]
		current := percentOf(value, total)
		return models.CategoryAllocation{
			Category:             name,
			CurrentValue:         value.InexactFloat64(),
			CurrentAllocationPct: current,
			TargetAllocationPct:  target,
			Gap:                  target - current,
			Holdings:             members[name],
		}
	}

	for _, c := range a.model.Categories() {
		out = append(out, build(c.Name, c.TargetAllocationPct))
	}
	if other, ok := values[models.OtherCategory]; ok && other.IsPositive() {
		out = append(out, build(models.OtherCategory, a.model.TargetFor(models.OtherCategory)))
	}

	sum := 0.0
	for _, c := range out {
		sum += c.CurrentValue
	}
	return out, sum
}

// fetchPrices gets the latest close for each holding on a bounded pool.
func (a *Analyzer) fetchPrices(ctx context.Context, holdings []models.Holding) (map[string]decimal.Decimal, map[string]error) {
	prices := make(map[string]decimal.Decimal, len(holdings))
	failures := make(map[string]error)
	var mu sync.Mutex

	workers := a.config.WorkerCount
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for _, h := range holdings {
		ticker := h.Ticker
		g.Go(func() error {
			price, err := a.latestPrice(ctx, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn().Str("ticker", ticker).Err(err).Msg("Price unavailable, holding excluded")
				failures[ticker] = err
				return nil
			}
			prices[ticker] = price
			return nil
		})
	}
	_ = g.Wait()

	return prices, failures
}

func (a *Analyzer) latestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.config.GetTickerTimeout())
	defer cancel()

	bars, err := a.provider.GetPriceSeries(fetchCtx, ticker, priceLookback)
	if err != nil {
		if fetchCtx.Err() == context.DeadlineExceeded {
			return decimal.Zero, &common.TimeoutError{Ticker: ticker, Err: err}
		}
		return decimal.Zero, err
	}
	if len(bars) == 0 {
		return decimal.Zero, &common.InsufficientDataError{Ticker: ticker, RequiredDays: 1, AvailableDays: 0}
	}
	price := models.LatestClose(bars)
	if !finite(price) || price <= 0 {
		return decimal.Zero, &common.MarketDataError{Ticker: ticker, Op: "price", Err: fmt.Errorf("invalid close %v", price)}
	}
	return decimal.NewFromFloat(price), nil
}

// ValidateHoldings normalises tickers and rejects malformed, non-finite,
// negative or duplicate holdings. Zero shares are allowed.
func ValidateHoldings(holdings []models.Holding) ([]models.Holding, error) {
	out := make([]models.Holding, 0, len(holdings))
	seen := make(map[string]bool, len(holdings))
	for i, h := range holdings {
		h.Ticker = models.NormalizeTicker(h.Ticker)
		if !finite(h.Shares) {
			return nil, &common.ValidationError{Field: fmt.Sprintf("holdings[%d].shares", i), Value: fmt.Sprint(h.Shares), Reason: "must be finite"}
		}
		if h.CostBasis != nil && !finite(*h.CostBasis) {
			return nil, &common.ValidationError{Field: fmt.Sprintf("holdings[%d].cost_basis", i), Value: fmt.Sprint(*h.CostBasis), Reason: "must be finite"}
		}
		if err := common.ValidateStruct(h); err != nil {
			return nil, fmt.Errorf("holding %d: %w", i, err)
		}
		if seen[h.Ticker] {
			return nil, &common.ValidationError{Field: "holdings.ticker", Value: h.Ticker, Reason: "duplicate holding"}
		}
		seen[h.Ticker] = true
		out = append(out, h)
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// percentOf returns part/total*100, or 0 for a non-positive total.
func percentOf(part, total decimal.Decimal) float64 {
	if !total.IsPositive() {
		return 0
	}
	return part.Div(total).Mul(hundred).InexactFloat64()
}
