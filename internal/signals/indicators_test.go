package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		period   int
		expected float64
	}{
		{
			name:     "simple 3-day SMA",
			closes:   []float64{10, 20, 30},
			period:   3,
			expected: 20.0,
		},
		{
			name:     "uses the most recent closes",
			closes:   []float64{10, 20, 30, 40, 50},
			period:   3,
			expected: 40.0,
		},
		{
			name:     "insufficient data",
			closes:   []float64{10, 20},
			period:   5,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SMA(tt.closes, tt.period), 0.01)
		})
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		minRSI float64
		maxRSI float64
	}{
		{
			name:   "uptrend should have high RSI",
			closes: trend(50, 1.0, 30),
			minRSI: 60,
			maxRSI: 100,
		},
		{
			name:   "downtrend should have low RSI",
			closes: trend(80, -1.0, 30),
			minRSI: 0,
			maxRSI: 40,
		},
		{
			name:   "flat series is neutral",
			closes: constant(100, 30),
			minRSI: 50,
			maxRSI: 50,
		},
		{
			name:   "short series is neutral",
			closes: trend(50, 1.0, 5),
			minRSI: 50,
			maxRSI: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RSI(tt.closes, 14)
			assert.GreaterOrEqual(t, result, tt.minRSI)
			assert.LessOrEqual(t, result, tt.maxRSI)
		})
	}
}

func TestROC(t *testing.T) {
	closes := trend(100, 1.0, 21) // 100..120
	assert.InDelta(t, 20.0, ROC(closes, 20), 1e-9)
	assert.Equal(t, 0.0, ROC(closes[:10], 20))
}

func TestReturn(t *testing.T) {
	closes := []float64{100, 110, 121}

	assert.InDelta(t, 0.10, Return(closes, 1), 1e-9)
	assert.InDelta(t, 0.21, Return(closes, 2), 1e-9)
	assert.InDelta(t, 0.21, Return(closes, 10), 1e-9, "window shrinks to available history")
	assert.Equal(t, 0.0, Return(closes[:1], 1))
	assert.Equal(t, 0.0, Return([]float64{0, 10}, 1))
}

func TestCrossover(t *testing.T) {
	assert.Greater(t, Crossover(trend(100, 0.5, 250), FastSMA, SlowSMA), 0.0)
	assert.Less(t, Crossover(trend(300, -0.5, 250), FastSMA, SlowSMA), 0.0)
	assert.Equal(t, 0.0, Crossover(trend(100, 0.5, 100), FastSMA, SlowSMA))
}

func TestVolumeTrend(t *testing.T) {
	rising := trend(100, 1.0, 20) // 100..119
	assert.InDelta(t, 19.0/109.5, VolumeTrend(rising, 20), 1e-9)
	assert.InDelta(t, 0.0, VolumeTrend(constant(5000, 20), 20), 1e-9)
	assert.Equal(t, 0.0, VolumeTrend(constant(0, 20), 20))
	assert.Equal(t, 0.0, VolumeTrend(rising[:5], 20))
}

func TestDirection(t *testing.T) {
	assert.Equal(t, 1.0, Direction(trend(10, 1, 25), 20))
	assert.Equal(t, -1.0, Direction(trend(50, -1, 25), 20))
	assert.Equal(t, 0.0, Direction(constant(10, 25), 20))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 5.0, Normalize(0, 1))
	assert.Equal(t, 5.0, Normalize(3, 0))
	assert.Equal(t, 5.0, Normalize(math.NaN(), 1))

	prev := -1.0
	for x := -5.0; x <= 5.0; x += 0.25 {
		v := Normalize(x, 1)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 10.0)
		assert.GreaterOrEqual(t, v, prev, "monotonic at x=%v", x)
		prev = v
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-3))
	assert.Equal(t, 10.0, Clamp(42))
	assert.Equal(t, 7.5, Clamp(7.5))
	assert.Equal(t, 5.0, Clamp(math.NaN()))
}

// Helper functions

func trend(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
