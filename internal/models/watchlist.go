package models

import "time"

// Priority ranks how urgently an under-allocated category needs attention
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities High < Medium < Low for sorting.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// WatchlistCandidate is a ticker proposed to close a category gap
type WatchlistCandidate struct {
	Ticker        string   `json:"ticker"`
	Category      string   `json:"category"`
	MomentumScore float64  `json:"momentum_score"`
	Rating        Rating   `json:"rating"`
	Priority      Priority `json:"priority"`
	Gap           float64  `json:"gap"`
}

// Watchlist is the ordered output of a gap analysis
type Watchlist struct {
	Candidates  []WatchlistCandidate `json:"candidates"`
	Categories  []CategoryAllocation `json:"categories"`
	Skipped     map[string]string    `json:"skipped,omitempty"` // ticker -> reason it could not be scored
	GeneratedAt time.Time            `json:"generated_at"`
}

// ForCategory returns the candidates for one category, preserving order.
func (w *Watchlist) ForCategory(category string) []WatchlistCandidate {
	var out []WatchlistCandidate
	for _, c := range w.Candidates {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}
