package models

import (
	"strings"
	"time"
)

// OtherCategory is the implicit bucket for tickers with no configured category.
const OtherCategory = "Other"

// Category is a named investment bucket with a target weight
type Category struct {
	Name                string   `json:"name" toml:"name" validate:"required"`
	TargetAllocationPct float64  `json:"target_allocation_pct" toml:"target_allocation_pct" validate:"gte=0,lte=100"`
	Benchmark           string   `json:"benchmark" toml:"benchmark" validate:"required,ticker"`
	Members             []string `json:"members" toml:"members" validate:"dive,ticker"`
}

// Holding is a caller-supplied position
type Holding struct {
	Ticker    string   `json:"ticker" yaml:"ticker" validate:"required,ticker"`
	Shares    float64  `json:"shares" yaml:"shares" validate:"gte=0"`
	CostBasis *float64 `json:"cost_basis,omitempty" yaml:"cost_basis,omitempty" validate:"omitempty,gte=0"`
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// HoldingAnalysis is the per-holding result of a portfolio analysis
type HoldingAnalysis struct {
	Ticker           string         `json:"ticker"`
	Category         string         `json:"category"`
	Shares           float64        `json:"shares"`
	Price            float64        `json:"price"`
	MarketValue      float64        `json:"market_value"`
	PortfolioPercent float64        `json:"portfolio_percent"`
	Momentum         *MomentumScore `json:"momentum,omitempty"`
	CostBasis        *float64       `json:"cost_basis,omitempty"`
	UnrealizedGain   *float64       `json:"unrealized_gain,omitempty"`
}

// CategoryAllocation compares a category's current weight with its target
type CategoryAllocation struct {
	Category             string   `json:"category"`
	CurrentValue         float64  `json:"current_value"`
	CurrentAllocationPct float64  `json:"current_allocation_pct"`
	TargetAllocationPct  float64  `json:"target_allocation_pct"`
	Gap                  float64  `json:"gap"` // target - current; positive means under-allocated
	Holdings             []string `json:"holdings,omitempty"`
}

// UnderAllocated reports whether the category is below its target.
func (c CategoryAllocation) UnderAllocated() bool {
	return c.Gap > 0
}

// PortfolioSnapshot is the recomputed view of a set of holdings
type PortfolioSnapshot struct {
	Holdings        []HoldingAnalysis    `json:"holdings"`
	TotalValue      float64              `json:"total_value"`
	AverageMomentum float64              `json:"average_momentum"`
	Categories      []CategoryAllocation `json:"categories"`
	Errors          map[string]string    `json:"errors,omitempty"` // ticker -> failure reason
	GeneratedAt     time.Time            `json:"generated_at"`
}

// FindHolding returns the analysis for ticker, or nil.
func (p *PortfolioSnapshot) FindHolding(ticker string) *HoldingAnalysis {
	ticker = NormalizeTicker(ticker)
	for i := range p.Holdings {
		if p.Holdings[i].Ticker == ticker {
			return &p.Holdings[i]
		}
	}
	return nil
}
