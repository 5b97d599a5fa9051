package signals

import (
	"fmt"
	"math"

	"github.com/bobmcallan/momentum/internal/models"
)

// Timeframe is one lookback window of the multi-timeframe return blend.
type Timeframe struct {
	Days   int
	Weight float64
	Scale  float64 // return that maps to a score of ~8.8
}

// DefaultTimeframes are roughly 1, 3, 6 and 12 months of trading days.
var DefaultTimeframes = []Timeframe{
	{Days: 21, Weight: 0.40, Scale: 0.10},
	{Days: 63, Weight: 0.30, Scale: 0.15},
	{Days: 126, Weight: 0.20, Scale: 0.25},
	{Days: 252, Weight: 0.10, Scale: 0.35},
}

// Blend weights inside each sub-score.
const (
	priceReturnsWeight   = 0.70
	priceCrossoverWeight = 0.30

	techRSIWeight    = 0.40
	techVolumeWeight = 0.30
	techROCWeight    = 0.30

	fundValuationWeight = 0.40
	fundGrowthWeight    = 0.35
	fundAnalystWeight   = 0.25
)

// Indicator periods.
const (
	RSIPeriod         = 14
	ROCPeriod         = 20
	VolumeTrendWindow = 20
	FastSMA           = 50
	SlowSMA           = 200
)

// DefaultSectorPE stands in for a missing sector P/E.
const DefaultSectorPE = 20.0

// unprofitableValuationScore is the valuation score for a non-positive P/E.
const unprofitableValuationScore = 2.0

// Computer turns price and fundamental data into 0-10 sub-scores. It holds
// no state between calls.
type Computer struct {
	Timeframes []Timeframe
}

// NewComputer creates a computer with the default timeframes
func NewComputer() *Computer {
	return &Computer{Timeframes: DefaultTimeframes}
}

// PriceMomentum blends weighted multi-timeframe returns with the
// SMA50/SMA200 crossover.
func (c *Computer) PriceMomentum(closes []float64) float64 {
	returns := 0.0
	for _, tf := range c.Timeframes {
		returns += tf.Weight * Normalize(Return(closes, tf.Days), tf.Scale)
	}
	cross := Normalize(Crossover(closes, FastSMA, SlowSMA), 0.10)
	return Clamp(priceReturnsWeight*returns + priceCrossoverWeight*cross)
}

// TechnicalMomentum blends RSI, volume trend confirmation and ROC.
func (c *Computer) TechnicalMomentum(closes, volumes []float64) float64 {
	rsi := Clamp(RSI(closes, RSIPeriod) / 10)

	// Rising volume confirms the prevailing price direction.
	volume := Normalize(VolumeTrend(volumes, VolumeTrendWindow)*Direction(closes, VolumeTrendWindow), 0.5)

	roc := Normalize(ROC(closes, ROCPeriod)/100, 0.10)

	return Clamp(techRSIWeight*rsi + techVolumeWeight*volume + techROCWeight*roc)
}

// FundamentalMomentum scores valuation, growth and analyst revisions. Each
// missing metric is replaced by the neutral score and reported as a warning.
func (c *Computer) FundamentalMomentum(f models.Fundamentals) models.FundamentalResult {
	var warnings []string

	valuation := models.ScoreNeutral
	if pe, ok := f.Get(models.MetricPERatio); ok {
		if pe <= 0 {
			valuation = unprofitableValuationScore
		} else {
			sector, ok := f.Get(models.MetricSectorPE)
			if !ok || sector <= 0 {
				sector = DefaultSectorPE
				warnings = append(warnings, fmt.Sprintf("%s unavailable, using %.0f", models.MetricSectorPE, DefaultSectorPE))
			}
			valuation = Normalize(sector/pe-1, 0.5)
		}
	} else {
		warnings = append(warnings, models.MetricPERatio+" unavailable, valuation neutral")
	}

	growth := models.ScoreNeutral
	if g, ok := f.Get(models.MetricGrowthRate); ok {
		growth = Normalize(g/100, 0.25)
	} else {
		warnings = append(warnings, models.MetricGrowthRate+" unavailable, growth neutral")
	}

	analyst := models.ScoreNeutral
	if d, ok := f.Get(models.MetricAnalystRatingDelta); ok {
		analyst = Normalize(d, 1.0)
	} else {
		warnings = append(warnings, models.MetricAnalystRatingDelta+" unavailable, analyst neutral")
	}

	score := fundValuationWeight*valuation + fundGrowthWeight*growth + fundAnalystWeight*analyst
	return models.FundamentalResult{
		Score:    Clamp(score),
		Degraded: len(warnings) > 0,
		Warnings: warnings,
	}
}

// RelativeMomentum scores the ticker's excess return over the benchmark
// across lookback bars.
func (c *Computer) RelativeMomentum(closes, benchmark []float64, lookback int) float64 {
	excess := Return(closes, lookback) - Return(benchmark, lookback)
	if math.IsNaN(excess) {
		return models.ScoreNeutral
	}
	return Normalize(excess, 0.10)
}
