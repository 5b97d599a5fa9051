// Package snapshot provides a market data provider backed by a YAML file
package snapshot

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/interfaces"
	"github.com/bobmcallan/momentum/internal/models"
)

// File is the on-disk layout:
//
//	tickers:
//	  AAPL:
//	    bars:
//	      - {date: 2025-01-02, close: 185.6, volume: 41000000}
//	    fundamentals:
//	      pe_ratio: 29.4
type File struct {
	Tickers map[string]TickerData `yaml:"tickers"`
}

// TickerData is the recorded history for one symbol
type TickerData struct {
	Bars         []models.EODBar     `yaml:"bars"`
	Fundamentals models.Fundamentals `yaml:"fundamentals"`
}

// Provider serves price series and fundamentals from an in-memory snapshot.
// It is read-only after construction and safe for concurrent use.
type Provider struct {
	tickers map[string]TickerData
	logger  *common.Logger
}

var _ interfaces.MarketDataProvider = (*Provider)(nil)

// Load reads and parses a snapshot file
func Load(path string, logger *common.Logger) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	p, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return p, nil
}

// Parse builds a provider from YAML bytes. Ticker keys are normalised and
// bars are sorted oldest first.
func Parse(data []byte, logger *common.Logger) (*Provider, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f, logger)
}

// New builds a provider from an already decoded snapshot
func New(f File, logger *common.Logger) (*Provider, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	tickers := make(map[string]TickerData, len(f.Tickers))
	for raw, td := range f.Tickers {
		ticker := models.NormalizeTicker(raw)
		if err := common.ValidateTicker(ticker); err != nil {
			return nil, err
		}
		if _, dup := tickers[ticker]; dup {
			return nil, &common.ValidationError{Field: "tickers", Value: ticker, Reason: "duplicate ticker"}
		}

		bars := make([]models.EODBar, len(td.Bars))
		copy(bars, td.Bars)
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		for i, b := range bars {
			if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
				return nil, &common.ValidationError{
					Field:  "tickers." + ticker + ".bars[" + strconv.Itoa(i) + "].close",
					Value:  strconv.FormatFloat(b.Close, 'f', -1, 64),
					Reason: "must be a finite number > 0",
				}
			}
		}

		tickers[ticker] = TickerData{Bars: bars, Fundamentals: td.Fundamentals}
	}

	logger.Debug().Int("tickers", len(tickers)).Msg("Snapshot loaded")
	return &Provider{tickers: tickers, logger: logger}, nil
}

// Tickers returns the symbols in the snapshot, sorted
func (p *Provider) Tickers() []string {
	out := make([]string, 0, len(p.tickers))
	for t := range p.tickers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GetPriceSeries returns the newest lookbackDays bars, oldest first
func (p *Provider) GetPriceSeries(ctx context.Context, ticker string, lookbackDays int) ([]models.EODBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, &common.MarketDataError{Ticker: ticker, Op: "eod", Err: err}
	}
	if lookbackDays <= 0 {
		return nil, &common.ValidationError{Field: "lookback_days", Value: strconv.Itoa(lookbackDays), Reason: "must be > 0"}
	}

	td, ok := p.tickers[models.NormalizeTicker(ticker)]
	if !ok || len(td.Bars) == 0 {
		return nil, &common.TickerNotFoundError{Ticker: ticker}
	}

	bars := td.Bars
	if len(bars) > lookbackDays {
		bars = bars[len(bars)-lookbackDays:]
	}
	out := make([]models.EODBar, len(bars))
	copy(out, bars)
	return out, nil
}

// GetFundamentals returns the recorded metrics; an absent block is an empty map
func (p *Provider) GetFundamentals(ctx context.Context, ticker string) (models.Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return nil, &common.MarketDataError{Ticker: ticker, Op: "fundamentals", Err: err}
	}

	td, ok := p.tickers[models.NormalizeTicker(ticker)]
	if !ok {
		return nil, &common.TickerNotFoundError{Ticker: ticker}
	}

	out := make(models.Fundamentals, len(td.Fundamentals))
	for k, v := range td.Fundamentals {
		out[k] = v
	}
	return out, nil
}
