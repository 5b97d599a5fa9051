// Package signals provides technical indicator calculations.
//
// Every series is ordered oldest first, which is the layout go-talib expects.
package signals

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// SMA returns the simple moving average of the last period closes, or 0 when
// the series is shorter than period.
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sma := talib.Sma(closes, period)
	return lastFinite(sma)
}

// RSI returns the Relative Strength Index of the series. A series too short
// for the period, or one with no price changes, is neutral (50).
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	if flat(closes[len(closes)-period-1:]) {
		return 50
	}
	return lastFinite(talib.Rsi(closes, period))
}

// ROC returns the rate of change over period bars, in percent.
func ROC(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}
	return lastFinite(talib.Roc(closes, period))
}

// Return is the fractional change from days bars ago to the latest close.
// The window shrinks to the available history; a non-positive base yields 0.
func Return(closes []float64, days int) float64 {
	n := len(closes)
	if n < 2 || days <= 0 {
		return 0
	}
	if days > n-1 {
		days = n - 1
	}
	base := closes[n-1-days]
	if base <= 0 {
		return 0
	}
	return closes[n-1]/base - 1
}

// Crossover returns SMA(fast)/SMA(slow) - 1. Positive means the fast average
// is above the slow one.
func Crossover(closes []float64, fast, slow int) float64 {
	f := SMA(closes, fast)
	s := SMA(closes, slow)
	if f == 0 || s == 0 {
		return 0
	}
	return f/s - 1
}

// VolumeTrend fits a line through the last window volumes and returns its
// slope scaled to the fractional change in volume across the window.
func VolumeTrend(volumes []float64, window int) float64 {
	if window < 2 || len(volumes) < window {
		return 0
	}
	ys := volumes[len(volumes)-window:]
	mean := stat.Mean(ys, nil)
	if mean <= 0 {
		return 0
	}
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta * float64(window-1) / mean
}

// Direction returns +1, -1 or 0 for the sign of the move over days bars.
func Direction(closes []float64, days int) float64 {
	r := Return(closes, days)
	switch {
	case r > 0:
		return 1
	case r < 0:
		return -1
	default:
		return 0
	}
}

// Normalize maps an unbounded signal onto the 0-10 score scale with a tanh
// curve centred on 5. scale is the input that lands at roughly 8.8.
func Normalize(x, scale float64) float64 {
	if scale <= 0 || math.IsNaN(x) {
		return 5
	}
	return Clamp(5 + 5*math.Tanh(x/scale))
}

// Clamp bounds a score to 0-10; NaN becomes the neutral 5.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 5
	case v < 0:
		return 0
	case v > 10:
		return 10
	default:
		return v
	}
}

func flat(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] != xs[0] {
			return false
		}
	}
	return true
}

func lastFinite(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	v := xs[len(xs)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
