// Package common provides shared test infrastructure
package common

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
)

// MockProvider implements interfaces.MarketDataProvider from in-memory maps.
// Tickers with no entry in Bars are reported as not found.
type MockProvider struct {
	mu sync.Mutex

	Bars         map[string][]models.EODBar
	Fundamentals map[string]models.Fundamentals
	PriceErrors  map[string]error
	FundErrors   map[string]error

	// Block holds GetPriceSeries for the listed tickers until the channel is
	// closed. The call ignores context cancellation while blocked.
	Block map[string]chan struct{}

	GetPriceCalls map[string]int
	GetFundCalls  int

	// Lookbacks records the most recent lookbackDays requested per ticker.
	Lookbacks map[string]int
}

// NewMockProvider creates an empty mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Bars:          make(map[string][]models.EODBar),
		Fundamentals:  make(map[string]models.Fundamentals),
		PriceErrors:   make(map[string]error),
		FundErrors:    make(map[string]error),
		Block:         make(map[string]chan struct{}),
		GetPriceCalls: make(map[string]int),
		Lookbacks:     make(map[string]int),
	}
}

// WithSeries registers bars for ticker and returns the mock for chaining
func (m *MockProvider) WithSeries(ticker string, bars []models.EODBar) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bars[ticker] = bars
	return m
}

// WithFundamentals registers fundamentals for ticker
func (m *MockProvider) WithFundamentals(ticker string, f models.Fundamentals) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fundamentals[ticker] = f
	return m
}

func (m *MockProvider) GetPriceSeries(ctx context.Context, ticker string, lookbackDays int) ([]models.EODBar, error) {
	m.mu.Lock()
	m.GetPriceCalls[ticker]++
	m.Lookbacks[ticker] = lookbackDays
	block := m.Block[ticker]
	err := m.PriceErrors[ticker]
	bars, ok := m.Bars[ticker]
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &common.TickerNotFoundError{Ticker: ticker}
	}
	if lookbackDays > 0 && len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}
	out := make([]models.EODBar, len(bars))
	copy(out, bars)
	return out, nil
}

func (m *MockProvider) GetFundamentals(ctx context.Context, ticker string) (models.Fundamentals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetFundCalls++
	if err := m.FundErrors[ticker]; err != nil {
		return nil, err
	}
	if _, ok := m.Bars[ticker]; !ok {
		return nil, &common.TickerNotFoundError{Ticker: ticker}
	}
	out := make(models.Fundamentals, len(m.Fundamentals[ticker]))
	for k, v := range m.Fundamentals[ticker] {
		out[k] = v
	}
	return out, nil
}

// PriceCalls returns how many times GetPriceSeries was called for ticker
func (m *MockProvider) PriceCalls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetPriceCalls[ticker]
}

// FlatBars generates n daily bars at a constant price, oldest first
func FlatBars(price float64, n int) []models.EODBar {
	return TrendBars(price, 0, n)
}

// TrendBars generates n daily bars moving by dailyChange each day, oldest first
func TrendBars(startPrice, dailyChange float64, n int) []models.EODBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.EODBar, n)
	price := startPrice
	for i := 0; i < n; i++ {
		bars[i] = models.EODBar{
			Date:     start.AddDate(0, 0, i),
			Open:     price,
			High:     price + 0.5,
			Low:      price - 0.5,
			Close:    price,
			AdjClose: price,
			Volume:   1000000,
		}
		price += dailyChange
	}
	return bars
}

// GrowthBars generates n bars compounding by dailyPct (0.001 = 0.1%) per day
func GrowthBars(startPrice, dailyPct float64, n int) []models.EODBar {
	bars := FlatBars(startPrice, n)
	price := startPrice
	for i := range bars {
		bars[i].Open = price
		bars[i].High = price * 1.005
		bars[i].Low = price * 0.995
		bars[i].Close = price
		bars[i].AdjClose = price
		price *= 1 + dailyPct
	}
	return bars
}

// CompleteFundamentals returns a fundamentals map with every known metric
func CompleteFundamentals(pe, sectorPE, growthPct, analystDelta float64) models.Fundamentals {
	return models.Fundamentals{
		models.MetricPERatio:            pe,
		models.MetricSectorPE:           sectorPE,
		models.MetricGrowthRate:         growthPct,
		models.MetricAnalystRatingDelta: analystDelta,
	}
}

// StubScorer implements interfaces.MomentumService with fixed composites.
// Tickers without a composite or error fail with TickerNotFoundError.
type StubScorer struct {
	mu sync.Mutex

	Composites map[string]float64
	Errors     map[string]error
	BatchCalls int
	Scored     []string
}

// NewStubScorer creates a scorer returning the given composites
func NewStubScorer(composites map[string]float64) *StubScorer {
	return &StubScorer{Composites: composites, Errors: make(map[string]error)}
}

func (s *StubScorer) CalculateMomentumScore(ctx context.Context, ticker string) (*models.MomentumScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score(ticker)
}

func (s *StubScorer) ScoreBatch(ctx context.Context, tickers []string) *models.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BatchCalls++

	result := &models.BatchResult{RequestID: "stub", Results: make(map[string]models.TickerResult, len(tickers))}
	for _, t := range tickers {
		score, err := s.score(t)
		r := models.TickerResult{Ticker: t, Score: score, Err: err}
		if err != nil {
			r.Error = err.Error()
		}
		result.Results[t] = r
	}
	return result
}

func (s *StubScorer) score(ticker string) (*models.MomentumScore, error) {
	s.Scored = append(s.Scored, ticker)
	if err := s.Errors[ticker]; err != nil {
		return nil, err
	}
	c, ok := s.Composites[ticker]
	if !ok {
		return nil, &common.TickerNotFoundError{Ticker: ticker}
	}
	return &models.MomentumScore{
		Ticker:           ticker,
		PriceScore:       c,
		TechnicalScore:   c,
		FundamentalScore: c,
		RelativeScore:    c,
		Composite:        c,
		Rating:           stubRating(c),
	}, nil
}

func stubRating(c float64) models.Rating {
	switch {
	case c >= 8:
		return models.RatingStrongBuy
	case c >= 6.5:
		return models.RatingBuy
	case c >= 4.5:
		return models.RatingHold
	case c >= 3:
		return models.RatingSell
	default:
		return models.RatingStrongSell
	}
}
