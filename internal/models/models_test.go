package models

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposite_Weights(t *testing.T) {
	assert.InDelta(t, 1.0, WeightPrice+WeightTechnical+WeightFundamental+WeightRelative, 1e-12)
	assert.InDelta(t, 5.0, Composite(5, 5, 5, 5), 1e-12)
	assert.InDelta(t, 0.4*8+0.25*6+0.25*4+0.1*2, Composite(8, 6, 4, 2), 1e-12)
}

func TestFundamentals_Get(t *testing.T) {
	f := Fundamentals{MetricPERatio: 20, MetricGrowthRate: math.NaN()}

	v, ok := f.Get(MetricPERatio)
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = f.Get(MetricGrowthRate)
	assert.False(t, ok, "NaN is treated as missing")

	_, ok = f.Get(MetricSectorPE)
	assert.False(t, ok)

	var empty Fundamentals
	_, ok = empty.Get(MetricPERatio)
	assert.False(t, ok)
}

func TestSeriesHelpers(t *testing.T) {
	bars := []EODBar{{Close: 1, Volume: 10}, {Close: 2, Volume: 20}}
	assert.Equal(t, []float64{1, 2}, Closes(bars))
	assert.Equal(t, []float64{10, 20}, Volumes(bars))
	assert.Equal(t, 2.0, LatestClose(bars))
	assert.Equal(t, 0.0, LatestClose(nil))
}

func TestCloses_PrefersAdjustedAcrossSplit(t *testing.T) {
	// 10:1 split between the bars; the adjusted series is continuous.
	split := []EODBar{{Close: 500, AdjClose: 50}, {Close: 51, AdjClose: 51}}
	assert.Equal(t, []float64{50, 51}, Closes(split))

	// A single missing adjusted close falls back to raw closes for every bar.
	partial := []EODBar{{Close: 500, AdjClose: 50}, {Close: 51}}
	assert.Equal(t, []float64{500, 51}, Closes(partial))

	assert.Empty(t, Closes(nil))
}

func TestPriority_Rank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestBatchResult_SucceededAndFailed(t *testing.T) {
	failure := errors.New("boom")
	b := &BatchResult{Results: map[string]TickerResult{
		"MSFT": {Ticker: "MSFT", Score: &MomentumScore{Ticker: "MSFT"}},
		"AAPL": {Ticker: "AAPL", Score: &MomentumScore{Ticker: "AAPL"}},
		"BAD":  {Ticker: "BAD", Err: failure, Error: failure.Error()},
	}}

	ok := b.Succeeded()
	if assert.Len(t, ok, 2) {
		assert.Equal(t, "AAPL", ok[0].Ticker)
		assert.Equal(t, "MSFT", ok[1].Ticker)
	}
	assert.Equal(t, map[string]error{"BAD": failure}, b.Failed())
}

func TestPortfolioSnapshot_FindHolding(t *testing.T) {
	p := &PortfolioSnapshot{Holdings: []HoldingAnalysis{{Ticker: "AAPL"}, {Ticker: "NVDA"}}}
	assert.NotNil(t, p.FindHolding(" nvda "))
	assert.Nil(t, p.FindHolding("TSLA"))
}

func TestCategoryAllocation_UnderAllocated(t *testing.T) {
	assert.True(t, CategoryAllocation{Gap: 0.5}.UnderAllocated())
	assert.False(t, CategoryAllocation{Gap: 0}.UnderAllocated())
	assert.False(t, CategoryAllocation{Gap: -3}.UnderAllocated())
}
