package portfolio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/momentum/internal/allocation"
	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
	testcommon "github.com/bobmcallan/momentum/test/common"
)

var fixedNow = time.Date(2025, 6, 30, 16, 0, 0, 0, time.UTC)

func testModel(t *testing.T) *allocation.Model {
	t.Helper()
	m, err := allocation.NewModel([]models.Category{
		{Name: "Large-Cap Anchors", TargetAllocationPct: 20, Benchmark: "SPY", Members: []string{"AAPL", "MSFT", "NVDA"}},
		{Name: "Growth", TargetAllocationPct: 45, Benchmark: "QQQ", Members: []string{"GOOGL", "AMZN", "META"}},
		{Name: "Emerging Markets", TargetAllocationPct: 35, Benchmark: "EEM", Members: []string{"TSM", "BABA"}},
	})
	require.NoError(t, err)
	return m
}

func testProvider() *testcommon.MockProvider {
	p := testcommon.NewMockProvider()
	p.WithSeries("AAPL", testcommon.FlatBars(140, 10))
	p.WithSeries("NVDA", testcommon.FlatBars(70, 10))
	p.WithSeries("GOOGL", testcommon.FlatBars(130, 10))
	p.WithSeries("MSFT", testcommon.FlatBars(400, 10))
	p.WithSeries("XOM", testcommon.FlatBars(100, 10))
	return p
}

func testScorer() *testcommon.StubScorer {
	return testcommon.NewStubScorer(map[string]float64{
		"AAPL":  6.0,
		"NVDA":  8.5,
		"GOOGL": 4.0,
		"MSFT":  7.0,
		"XOM":   3.5,
	})
}

func newTestAnalyzer(t *testing.T, p *testcommon.MockProvider, s *testcommon.StubScorer) *Analyzer {
	return NewAnalyzer(p, s, testModel(t), common.NewSilentLogger(), WithClock(func() time.Time { return fixedNow }))
}

// AAPL 10 x 140 = 1400, NVDA 5 x 70 = 350, GOOGL 25 x 130 = 3250; total 5000.
func scenarioHoldings() []models.Holding {
	return []models.Holding{
		{Ticker: "AAPL", Shares: 10},
		{Ticker: "NVDA", Shares: 5},
		{Ticker: "GOOGL", Shares: 25},
	}
}

func TestAnalyzePortfolio_ValuesAndOrders(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())

	snap, err := a.AnalyzePortfolio(context.Background(), scenarioHoldings())
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, snap.TotalValue, 1e-9)
	require.Len(t, snap.Holdings, 3)
	assert.Equal(t, "GOOGL", snap.Holdings[0].Ticker)
	assert.Equal(t, "AAPL", snap.Holdings[1].Ticker)
	assert.Equal(t, "NVDA", snap.Holdings[2].Ticker)

	assert.InDelta(t, 3250.0, snap.Holdings[0].MarketValue, 1e-9)
	assert.InDelta(t, 65.0, snap.Holdings[0].PortfolioPercent, 1e-9)
	assert.Equal(t, "Growth", snap.Holdings[0].Category)
	assert.Equal(t, 130.0, snap.Holdings[0].Price)

	sum := 0.0
	for _, h := range snap.Holdings {
		sum += h.PortfolioPercent
		require.NotNil(t, h.Momentum)
	}
	assert.InEpsilon(t, 100.0, sum, 1e-6)

	assert.InDelta(t, (6.0+8.5+4.0)/3, snap.AverageMomentum, 1e-9)
	assert.Nil(t, snap.Errors)
	assert.Equal(t, fixedNow, snap.GeneratedAt)
}

func TestAnalyzePortfolio_TiesBrokenByTicker(t *testing.T) {
	p := testProvider()
	p.WithSeries("META", testcommon.FlatBars(140, 10))
	s := testScorer()
	s.Composites["META"] = 5

	a := newTestAnalyzer(t, p, s)
	snap, err := a.AnalyzePortfolio(context.Background(), []models.Holding{
		{Ticker: "META", Shares: 10},
		{Ticker: "AAPL", Shares: 10},
	})
	require.NoError(t, err)

	require.Len(t, snap.Holdings, 2)
	assert.Equal(t, "AAPL", snap.Holdings[0].Ticker)
	assert.Equal(t, "META", snap.Holdings[1].Ticker)
}

func TestAnalyzePortfolio_ZeroValue(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())

	snap, err := a.AnalyzePortfolio(context.Background(), []models.Holding{
		{Ticker: "AAPL", Shares: 0},
		{Ticker: "NVDA", Shares: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, snap.TotalValue)
	for _, h := range snap.Holdings {
		assert.Equal(t, 0.0, h.PortfolioPercent)
	}
	for _, c := range snap.Categories {
		assert.Equal(t, 0.0, c.CurrentAllocationPct)
		assert.Equal(t, c.TargetAllocationPct, c.Gap)
	}
}

func TestAnalyzePortfolio_Empty(t *testing.T) {
	s := testScorer()
	a := newTestAnalyzer(t, testProvider(), s)

	snap, err := a.AnalyzePortfolio(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, snap.Holdings)
	assert.Equal(t, 0.0, snap.AverageMomentum)
	assert.Len(t, snap.Categories, 3)
	assert.Equal(t, 0, s.BatchCalls)
}

func TestAnalyzePortfolio_PriceFailureExcluded(t *testing.T) {
	p := testProvider()
	p.PriceErrors["MSFT"] = &common.MarketDataError{Ticker: "MSFT", Op: "eod", Err: errors.New("503")}
	a := newTestAnalyzer(t, p, testScorer())

	holdings := append(scenarioHoldings(), models.Holding{Ticker: "MSFT", Shares: 3}, models.Holding{Ticker: "ZZZ", Shares: 1})
	snap, err := a.AnalyzePortfolio(context.Background(), holdings)
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, snap.TotalValue, 1e-9)
	assert.Len(t, snap.Holdings, 3)
	assert.Nil(t, snap.FindHolding("MSFT"))
	assert.Contains(t, snap.Errors["MSFT"], "503")
	assert.Contains(t, snap.Errors["ZZZ"], "not found")
}

func TestAnalyzePortfolio_ScoringFailureKeepsHolding(t *testing.T) {
	s := testScorer()
	s.Errors["NVDA"] = &common.InsufficientDataError{Ticker: "NVDA", RequiredDays: 252, AvailableDays: 40}
	a := newTestAnalyzer(t, testProvider(), s)

	snap, err := a.AnalyzePortfolio(context.Background(), scenarioHoldings())
	require.NoError(t, err)

	nvda := snap.FindHolding("NVDA")
	require.NotNil(t, nvda)
	assert.Nil(t, nvda.Momentum)
	assert.InDelta(t, 350.0, nvda.MarketValue, 1e-9)
	assert.Contains(t, snap.Errors["NVDA"], "momentum")
	assert.InDelta(t, (6.0+4.0)/2, snap.AverageMomentum, 1e-9)
}

func TestAnalyzePortfolio_UnrealizedGain(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())
	cost := 100.0

	snap, err := a.AnalyzePortfolio(context.Background(), []models.Holding{{Ticker: "aapl", Shares: 10, CostBasis: &cost}})
	require.NoError(t, err)

	h := snap.FindHolding("AAPL")
	require.NotNil(t, h)
	require.NotNil(t, h.UnrealizedGain)
	assert.InDelta(t, 400.0, *h.UnrealizedGain, 1e-9)
}

func TestAnalyzePortfolio_InvalidHoldings(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())
	inf := math.Inf(1)

	tests := []struct {
		name     string
		holdings []models.Holding
	}{
		{"negative shares", []models.Holding{{Ticker: "AAPL", Shares: -1}}},
		{"malformed ticker", []models.Holding{{Ticker: "NOT A TICKER", Shares: 1}}},
		{"empty ticker", []models.Holding{{Ticker: "", Shares: 1}}},
		{"duplicate", []models.Holding{{Ticker: "AAPL", Shares: 1}, {Ticker: "aapl", Shares: 2}}},
		{"infinite shares", []models.Holding{{Ticker: "AAPL", Shares: math.Inf(1)}}},
		{"nan shares", []models.Holding{{Ticker: "AAPL", Shares: math.NaN()}}},
		{"infinite cost basis", []models.Holding{{Ticker: "AAPL", Shares: 1, CostBasis: &inf}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AnalyzePortfolio(context.Background(), tt.holdings)
			require.Error(t, err)
			assert.True(t, common.IsValidation(err), "got %T: %v", err, err)
		})
	}
}

func TestAnalyzePortfolio_NonFiniteCloseExcluded(t *testing.T) {
	p := testProvider()
	p.WithSeries("MSFT", testcommon.FlatBars(math.Inf(1), 10))
	p.WithSeries("XOM", testcommon.FlatBars(math.NaN(), 10))
	a := newTestAnalyzer(t, p, testScorer())

	holdings := append(scenarioHoldings(), models.Holding{Ticker: "MSFT", Shares: 3}, models.Holding{Ticker: "XOM", Shares: 2})
	snap, err := a.AnalyzePortfolio(context.Background(), holdings)
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, snap.TotalValue, 1e-9)
	assert.Nil(t, snap.FindHolding("MSFT"))
	assert.Nil(t, snap.FindHolding("XOM"))
	assert.Contains(t, snap.Errors["MSFT"], "invalid close")
	assert.Contains(t, snap.Errors["XOM"], "invalid close")

	_, weights, err := a.Allocation(context.Background(), holdings)
	require.NoError(t, err)
	assert.NotContains(t, weights, "MSFT")
}

func TestAnalyzeByCategories_OverAllocated(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())

	cats, err := a.AnalyzeByCategories(context.Background(), scenarioHoldings())
	require.NoError(t, err)
	require.Len(t, cats, 3)

	anchors := cats[0]
	assert.Equal(t, "Large-Cap Anchors", anchors.Category)
	assert.InDelta(t, 1750.0, anchors.CurrentValue, 1e-9)
	assert.InDelta(t, 35.0, anchors.CurrentAllocationPct, 1e-9)
	assert.InDelta(t, -15.0, anchors.Gap, 1e-9)
	assert.False(t, anchors.UnderAllocated())
	assert.Equal(t, []string{"AAPL", "NVDA"}, anchors.Holdings)

	emerging := cats[2]
	assert.Equal(t, 0.0, emerging.CurrentValue)
	assert.InDelta(t, 35.0, emerging.Gap, 1e-9)
}

func TestAnalyzeByCategories_SumsToTotal(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())
	holdings := []models.Holding{
		{Ticker: "AAPL", Shares: 3.3},
		{Ticker: "NVDA", Shares: 7.1},
		{Ticker: "GOOGL", Shares: 1.9},
		{Ticker: "XOM", Shares: 12.7},
	}

	snap, err := a.AnalyzePortfolio(context.Background(), holdings)
	require.NoError(t, err)

	sum := 0.0
	pct := 0.0
	for _, c := range snap.Categories {
		sum += c.CurrentValue
		pct += c.CurrentAllocationPct
	}
	assert.Equal(t, snap.TotalValue, sum)
	assert.InEpsilon(t, 100.0, pct, 1e-6)

	last := snap.Categories[len(snap.Categories)-1]
	assert.Equal(t, models.OtherCategory, last.Category)
	assert.Equal(t, 0.0, last.TargetAllocationPct)
	assert.Equal(t, []string{"XOM"}, last.Holdings)
}

func TestAnalyzeByCategories_OtherOmittedWhenEmpty(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())

	cats, err := a.AnalyzeByCategories(context.Background(), scenarioHoldings())
	require.NoError(t, err)
	for _, c := range cats {
		assert.NotEqual(t, models.OtherCategory, c.Category)
	}
}

func TestAnalyzeByCategories_DoesNotScore(t *testing.T) {
	s := testScorer()
	a := newTestAnalyzer(t, testProvider(), s)

	_, err := a.AnalyzeByCategories(context.Background(), scenarioHoldings())
	require.NoError(t, err)
	assert.Equal(t, 0, s.BatchCalls)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())

	first, err := a.AnalyzePortfolio(context.Background(), scenarioHoldings())
	require.NoError(t, err)
	second, err := a.AnalyzePortfolio(context.Background(), scenarioHoldings())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderAllocationChart(t *testing.T) {
	a := newTestAnalyzer(t, testProvider(), testScorer())
	cats, err := a.AnalyzeByCategories(context.Background(), scenarioHoldings())
	require.NoError(t, err)

	png, err := RenderAllocationChart(cats)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = RenderAllocationChart(nil)
	assert.Error(t, err)
}
