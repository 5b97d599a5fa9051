// Package momentum provides momentum scoring services
package momentum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/interfaces"
	"github.com/bobmcallan/momentum/internal/models"
	"github.com/bobmcallan/momentum/internal/signals"
)

// Engine implements MomentumService
type Engine struct {
	provider   interfaces.MarketDataProvider
	benchmarks interfaces.BenchmarkResolver
	logger     *common.Logger
	computer   *signals.Computer
	config     common.ScoringConfig
	now        func() time.Time
}

// Option configures the engine
type Option func(*Engine)

// WithConfig sets the scoring configuration
func WithConfig(cfg common.ScoringConfig) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithClock overrides the clock used for ComputedAt
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a new momentum engine. benchmarks may be nil, in which
// case every ticker is measured against the configured default benchmark.
func NewEngine(provider interfaces.MarketDataProvider, benchmarks interfaces.BenchmarkResolver, logger *common.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	e := &Engine{
		provider:   provider,
		benchmarks: benchmarks,
		logger:     logger,
		computer:   signals.NewComputer(),
		config:     common.NewDefaultConfig().Scoring,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculatePriceMomentum scores multi-timeframe returns and the SMA50/SMA200
// crossover.
func (e *Engine) CalculatePriceMomentum(ticker string, bars []models.EODBar) (float64, error) {
	if len(bars) < e.config.MinPriceHistory {
		return 0, &common.InsufficientDataError{Ticker: ticker, RequiredDays: e.config.MinPriceHistory, AvailableDays: len(bars)}
	}
	return e.computer.PriceMomentum(models.Closes(bars)), nil
}

// CalculateTechnicalMomentum scores RSI, volume trend and rate of change.
func (e *Engine) CalculateTechnicalMomentum(ticker string, bars []models.EODBar) (float64, error) {
	if len(bars) < e.config.MinTechnicalHistory {
		return 0, &common.InsufficientDataError{Ticker: ticker, RequiredDays: e.config.MinTechnicalHistory, AvailableDays: len(bars)}
	}
	return e.computer.TechnicalMomentum(models.Closes(bars), models.Volumes(bars)), nil
}

// CalculateFundamentalMomentum scores valuation, growth and analyst
// revisions. Missing metrics degrade the result; it never fails.
func (e *Engine) CalculateFundamentalMomentum(ticker string, fundamentals models.Fundamentals) models.FundamentalResult {
	return e.computer.FundamentalMomentum(fundamentals)
}

// CalculateRelativeMomentum scores the ticker's excess return over its
// benchmark across the configured lookback.
func (e *Engine) CalculateRelativeMomentum(ticker string, bars, benchmarkBars []models.EODBar) (float64, error) {
	need := e.config.RelativeLookback + 1
	if len(bars) < need {
		return 0, &common.InsufficientDataError{Ticker: ticker, RequiredDays: need, AvailableDays: len(bars)}
	}
	if len(benchmarkBars) < need {
		return 0, &common.InsufficientDataError{Ticker: e.benchmarkFor(ticker), RequiredDays: need, AvailableDays: len(benchmarkBars)}
	}
	return e.computer.RelativeMomentum(models.Closes(bars), models.Closes(benchmarkBars), e.config.RelativeLookback), nil
}

// CalculateMomentumScore fetches data for ticker and computes the composite
// score. Errors from the price series propagate; fundamentals and benchmark
// failures degrade the score instead.
func (e *Engine) CalculateMomentumScore(ctx context.Context, ticker string) (*models.MomentumScore, error) {
	ticker = models.NormalizeTicker(ticker)
	if err := common.ValidateTicker(ticker); err != nil {
		return nil, err
	}

	bars, err := e.fetchSeries(ctx, ticker, e.historyWindow())
	if err != nil {
		return nil, err
	}

	price, err := e.CalculatePriceMomentum(ticker, bars)
	if err != nil {
		return nil, err
	}
	technical, err := e.CalculateTechnicalMomentum(ticker, bars)
	if err != nil {
		return nil, err
	}

	var warnings []string

	fundamentals, err := e.fetchFundamentals(ctx, ticker)
	if err != nil {
		e.logger.Warn().Str("ticker", ticker).Err(err).Msg("Fundamentals unavailable, scoring neutral")
		warnings = append(warnings, fmt.Sprintf("fundamentals unavailable: %v", err))
	}
	fundamental := e.CalculateFundamentalMomentum(ticker, fundamentals)
	warnings = append(warnings, fundamental.Warnings...)

	benchmark := e.benchmarkFor(ticker)
	relative, err := e.relativeScore(ctx, ticker, benchmark, bars)
	if err != nil {
		e.logger.Warn().Str("ticker", ticker).Str("benchmark", benchmark).Err(err).Msg("Relative momentum unavailable, scoring neutral")
		warnings = append(warnings, fmt.Sprintf("relative momentum vs %s unavailable: %v", benchmark, err))
		relative = models.ScoreNeutral
	}

	composite := signals.Clamp(models.Composite(price, technical, fundamental.Score, relative))

	e.logger.Debug().
		Str("ticker", ticker).
		Str("composite", formatScore(composite)).
		Bool("degraded", len(warnings) > 0).
		Msg("Momentum scored")

	return &models.MomentumScore{
		Ticker:           ticker,
		PriceScore:       price,
		TechnicalScore:   technical,
		FundamentalScore: fundamental.Score,
		RelativeScore:    relative,
		Composite:        composite,
		Rating:           Rate(composite, e.config.Ratings),
		Benchmark:        benchmark,
		Degraded:         len(warnings) > 0,
		Warnings:         warnings,
		ComputedAt:       e.now(),
	}, nil
}

func (e *Engine) relativeScore(ctx context.Context, ticker, benchmark string, bars []models.EODBar) (float64, error) {
	benchBars := bars
	if benchmark != ticker {
		var err error
		benchBars, err = e.fetchSeries(ctx, benchmark, e.config.RelativeLookback+1)
		if err != nil {
			return 0, err
		}
	}
	return e.CalculateRelativeMomentum(ticker, bars, benchBars)
}

// ScoreBatch scores tickers on a bounded worker pool. Results are keyed by
// input ticker; a failure in one ticker never affects another, and tickers
// still running at the batch deadline are recorded as timeouts.
func (e *Engine) ScoreBatch(ctx context.Context, tickers []string) *models.BatchResult {
	requestID := uuid.New().String()
	logger := e.logger.WithCorrelation(requestID)

	batchCtx, cancel := context.WithTimeout(ctx, e.config.GetBatchDeadline())
	defer cancel()

	result := &models.BatchResult{
		RequestID: requestID,
		Results:   make(map[string]models.TickerResult, len(tickers)),
	}
	var mu sync.Mutex
	record := func(ticker string, score *models.MomentumScore, err error) {
		r := models.TickerResult{Ticker: ticker, Score: score, Err: err}
		if err != nil {
			r.Score = nil
			r.Error = err.Error()
		}
		mu.Lock()
		result.Results[ticker] = r
		mu.Unlock()
	}

	start := time.Now()
	logger.Info().Int("tickers", len(tickers)).Msg("Batch scoring started")

	workers := e.config.WorkerCount
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)

	seen := make(map[string]bool, len(tickers))
	for _, ticker := range tickers {
		if seen[ticker] {
			continue
		}
		seen[ticker] = true

		ticker := ticker
		g.Go(func() error {
			if err := batchCtx.Err(); err != nil {
				record(ticker, nil, &common.TimeoutError{Ticker: ticker, Err: err})
				return nil
			}
			score, err := e.scoreWithDeadline(batchCtx, ticker)
			if err != nil {
				logger.Debug().Str("ticker", ticker).Err(err).Msg("Ticker scoring failed")
			}
			record(ticker, score, err)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range result.Results {
		if !r.OK() {
			failed++
		}
	}
	logger.Info().
		Int("tickers", len(result.Results)).
		Int("failed", failed).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("Batch scoring complete")

	return result
}

// scoreWithDeadline returns when scoring finishes or the batch context ends,
// whichever comes first. A provider that ignores cancellation is abandoned.
func (e *Engine) scoreWithDeadline(ctx context.Context, ticker string) (*models.MomentumScore, error) {
	type outcome struct {
		score *models.MomentumScore
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		score, err := e.CalculateMomentumScore(ctx, ticker)
		done <- outcome{score, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() != nil && !common.IsTimeout(o.err) && errors.Is(o.err, ctx.Err()) {
			return nil, &common.TimeoutError{Ticker: ticker, Err: o.err}
		}
		return o.score, o.err
	case <-ctx.Done():
		return nil, &common.TimeoutError{Ticker: ticker, Err: ctx.Err()}
	}
}

// historyWindow is the number of bars fetched for scoring: the minimum price
// history, widened so the longest return timeframe spans its full interval.
func (e *Engine) historyWindow() int {
	n := e.config.MinPriceHistory
	if e.config.MinTechnicalHistory > n {
		n = e.config.MinTechnicalHistory
	}
	for _, tf := range e.computer.Timeframes {
		if tf.Days+1 > n {
			n = tf.Days + 1
		}
	}
	return n
}

// fetchSeries applies the per-ticker timeout to one price series request.
func (e *Engine) fetchSeries(ctx context.Context, ticker string, lookback int) ([]models.EODBar, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.config.GetTickerTimeout())
	defer cancel()

	bars, err := e.provider.GetPriceSeries(fetchCtx, ticker, lookback)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || fetchCtx.Err() == context.DeadlineExceeded {
			return nil, &common.TimeoutError{Ticker: ticker, Err: err}
		}
		return nil, err
	}
	return bars, nil
}

func (e *Engine) fetchFundamentals(ctx context.Context, ticker string) (models.Fundamentals, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.config.GetTickerTimeout())
	defer cancel()
	return e.provider.GetFundamentals(fetchCtx, ticker)
}

func (e *Engine) benchmarkFor(ticker string) string {
	if e.benchmarks != nil {
		if b := e.benchmarks.BenchmarkFor(ticker); b != "" {
			return b
		}
	}
	return e.config.DefaultBenchmark
}

// Rate maps a composite score to its rating. Each threshold is an inclusive
// lower bound; a NaN composite is rated Hold.
func Rate(composite float64, thresholds common.RatingThresholds) models.Rating {
	switch {
	case math.IsNaN(composite):
		return models.RatingHold
	case composite >= thresholds.StrongBuy:
		return models.RatingStrongBuy
	case composite >= thresholds.Buy:
		return models.RatingBuy
	case composite >= thresholds.Hold:
		return models.RatingHold
	case composite >= thresholds.Sell:
		return models.RatingSell
	default:
		return models.RatingStrongSell
	}
}

// formatScore renders a score for log fields
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
