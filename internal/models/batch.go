package models

import "sort"

// TickerResult holds either a score or the error that prevented it
type TickerResult struct {
	Ticker string         `json:"ticker"`
	Score  *MomentumScore `json:"score,omitempty"`
	Err    error          `json:"-"`
	Error  string         `json:"error,omitempty"`
}

// OK reports whether the ticker was scored.
func (r TickerResult) OK() bool {
	return r.Err == nil && r.Score != nil
}

// BatchResult is keyed by input ticker, never by completion order
type BatchResult struct {
	RequestID string                  `json:"request_id"`
	Results   map[string]TickerResult `json:"results"`
}

// Succeeded returns the successful scores sorted by ticker.
func (b *BatchResult) Succeeded() []*MomentumScore {
	out := make([]*MomentumScore, 0, len(b.Results))
	for _, t := range b.sortedTickers() {
		if r := b.Results[t]; r.OK() {
			out = append(out, r.Score)
		}
	}
	return out
}

// Failed returns ticker -> error for every failed entry.
func (b *BatchResult) Failed() map[string]error {
	out := make(map[string]error)
	for t, r := range b.Results {
		if !r.OK() {
			out[t] = r.Err
		}
	}
	return out
}

func (b *BatchResult) sortedTickers() []string {
	keys := make([]string, 0, len(b.Results))
	for k := range b.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
