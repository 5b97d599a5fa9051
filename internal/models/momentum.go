package models

import "time"

// Rating is the discrete label derived from a composite momentum score
type Rating string

const (
	RatingStrongBuy  Rating = "Strong Buy"
	RatingBuy        Rating = "Buy"
	RatingHold       Rating = "Hold"
	RatingSell       Rating = "Sell"
	RatingStrongSell Rating = "Strong Sell"
)

// Score bounds shared by sub-scores and the composite.
const (
	ScoreMin     = 0.0
	ScoreMax     = 10.0
	ScoreNeutral = 5.0
)

// Sub-score weights for the composite. They sum to 1.0.
const (
	WeightPrice       = 0.40
	WeightTechnical   = 0.25
	WeightFundamental = 0.25
	WeightRelative    = 0.10
)

// MomentumScore is the result of scoring one ticker. Created fresh per call.
type MomentumScore struct {
	Ticker           string    `json:"ticker"`
	PriceScore       float64   `json:"price_score"`
	TechnicalScore   float64   `json:"technical_score"`
	FundamentalScore float64   `json:"fundamental_score"`
	RelativeScore    float64   `json:"relative_score"`
	Composite        float64   `json:"composite"`
	Rating           Rating    `json:"rating"`
	Benchmark        string    `json:"benchmark,omitempty"`
	Degraded         bool      `json:"degraded"`
	Warnings         []string  `json:"warnings,omitempty"`
	ComputedAt       time.Time `json:"computed_at"`
}

// FundamentalResult carries the fundamental sub-score and any degradation notes.
type FundamentalResult struct {
	Score    float64  `json:"score"`
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}

// Composite computes the weighted sum of the four sub-scores.
func Composite(price, technical, fundamental, relative float64) float64 {
	return WeightPrice*price + WeightTechnical*technical + WeightFundamental*fundamental + WeightRelative*relative
}
