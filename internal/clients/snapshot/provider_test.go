package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
)

const sample = `
tickers:
  aapl:
    bars:
      - {date: 2025-01-06, close: 103, volume: 1200}
      - {date: 2025-01-02, close: 100, volume: 1000}
      - {date: 2025-01-03, close: 101, volume: 1100}
    fundamentals:
      pe_ratio: 28.5
      sector_pe: 25
  SPY:
    bars:
      - {date: 2025-01-02, close: 480, volume: 5000}
`

func TestParse_SortsAndNormalises(t *testing.T) {
	p, err := Parse([]byte(sample), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "SPY"}, p.Tickers())

	bars, err := p.GetPriceSeries(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, []float64{100, 101, 103}, models.Closes(bars))
	assert.Equal(t, int64(1200), bars[2].Volume)
}

func TestGetPriceSeries_TrimsToNewest(t *testing.T) {
	p, err := Parse([]byte(sample), nil)
	require.NoError(t, err)

	bars, err := p.GetPriceSeries(context.Background(), "aapl", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 103}, models.Closes(bars))

	// The returned slice is a copy.
	bars[0].Close = -1
	again, err := p.GetPriceSeries(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, 101.0, again[0].Close)
}

func TestGetPriceSeries_Errors(t *testing.T) {
	p, err := Parse([]byte(sample), nil)
	require.NoError(t, err)

	_, err = p.GetPriceSeries(context.Background(), "MSFT", 10)
	assert.True(t, common.IsNotFound(err))

	_, err = p.GetPriceSeries(context.Background(), "AAPL", 0)
	assert.True(t, common.IsValidation(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GetPriceSeries(ctx, "AAPL", 10)
	var mde *common.MarketDataError
	assert.ErrorAs(t, err, &mde)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetFundamentals(t *testing.T) {
	p, err := Parse([]byte(sample), nil)
	require.NoError(t, err)

	f, err := p.GetFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)
	pe, ok := f.Get(models.MetricPERatio)
	assert.True(t, ok)
	assert.Equal(t, 28.5, pe)

	empty, err := p.GetFundamentals(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = p.GetFundamentals(context.Background(), "MSFT")
	assert.True(t, common.IsNotFound(err))
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "tickers: [unterminated"},
		{"bad ticker", "tickers:\n  'BAD TICKER':\n    bars: []\n"},
		{"duplicate after normalising", "tickers:\n  aapl: {}\n  AAPL: {}\n"},
		{"non-positive close", "tickers:\n  AAPL:\n    bars:\n      - {date: 2025-01-02, close: 0}\n"},
		{"infinite close", "tickers:\n  AAPL:\n    bars:\n      - {date: 2025-01-02, close: .inf}\n"},
		{"nan close", "tickers:\n  AAPL:\n    bars:\n      - {date: 2025-01-02, close: .nan}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	p, err := Load(path, common.NewSilentLogger())
	require.NoError(t, err)
	assert.Len(t, p.Tickers(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
