package contracts

import "time"

// Rating categories
const (
	CategoryGrowth          = "growth"
	CategoryProfitability   = "profitability"
	CategoryFinancialHealth = "financialHealth"
)

// CategoryScore holds per-attribute integer scores (-100..100) and their mean.
// Average is computed from the unrounded attribute scores.
type CategoryScore struct {
	Scores  map[string]int `json:"scores"`
	Average float64        `json:"average"`
}

// RatingBreakdown is the Rating Engine output
type RatingBreakdown struct {
	Growth                CategoryScore `json:"growth"`
	Profitability         CategoryScore `json:"profitability"`
	FinancialHealth       CategoryScore `json:"financialHealth"`
	PricePredictionReturn float64       `json:"pricePredictionReturn"`
	FinalRate             int           `json:"finalRate"`
	PriceReturnGrade      int           `json:"priceReturnGrade"`
}

// Categories returns the category scores in reporting order
func (r *RatingBreakdown) Categories() []CategoryScore {
	return []CategoryScore{r.Growth, r.Profitability, r.FinancialHealth}
}

// RatingSnapshot is a persisted pipeline result
type RatingSnapshot struct {
	ID         int64                  `json:"id"`
	RunID      string                 `json:"run_id"`
	Ticker     string                 `json:"ticker"`
	FinalRate  int                    `json:"final_rate"`
	Grade      int                    `json:"grade"`
	ConfigHash string                 `json:"config_hash"`
	Payload    map[string]interface{} `json:"payload"`
	CreatedAt  time.Time              `json:"created_at"`
}

// RatingComputedEvent is published after every successful run
type RatingComputedEvent struct {
	RunID      string    `json:"run_id"`
	Ticker     string    `json:"ticker"`
	FinalRate  int       `json:"final_rate"`
	Grade      int       `json:"grade"`
	ConfigHash string    `json:"config_hash"`
	ComputedAt time.Time `json:"computed_at"`
}
