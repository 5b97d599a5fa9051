// Package models defines data structures for momentum scoring and allocation analysis
package models

import (
	"math"
	"time"
)

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date" yaml:"date"`
	Open     float64   `json:"open" yaml:"open"`
	High     float64   `json:"high" yaml:"high"`
	Low      float64   `json:"low" yaml:"low"`
	Close    float64   `json:"close" yaml:"close"`
	AdjClose float64   `json:"adjusted_close" yaml:"adjusted_close"`
	Volume   int64     `json:"volume" yaml:"volume"`
}

// Fundamental metric keys understood by the momentum engine.
const (
	MetricPERatio            = "pe_ratio"
	MetricSectorPE           = "sector_pe"
	MetricGrowthRate         = "growth_rate" // percent, e.g. 18.5 for 18.5%
	MetricAnalystRatingDelta = "analyst_rating_delta"
)

// Fundamentals maps a metric name to its value. Absent keys are unavailable;
// providers may return a partial or empty map.
type Fundamentals map[string]float64

// Get returns the metric value and whether it is present and finite.
func (f Fundamentals) Get(metric string) (float64, bool) {
	if f == nil {
		return 0, false
	}
	v, ok := f[metric]
	if !ok || v != v {
		return 0, false
	}
	return v, true
}

// Closes extracts split-adjusted closing prices, oldest first. Raw closes are
// used unless every bar carries a positive finite adjusted close, so a series
// never mixes the two.
func Closes(bars []EODBar) []float64 {
	adjusted := len(bars) > 0
	for _, b := range bars {
		if !(b.AdjClose > 0) || math.IsInf(b.AdjClose, 0) {
			adjusted = false
			break
		}
	}

	out := make([]float64, len(bars))
	for i, b := range bars {
		if adjusted {
			out[i] = b.AdjClose
		} else {
			out[i] = b.Close
		}
	}
	return out
}

// Volumes extracts volumes as float64, oldest first.
func Volumes(bars []EODBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// LatestClose returns the close of the most recent bar, or 0 for an empty series.
func LatestClose(bars []EODBar) float64 {
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].Close
}
