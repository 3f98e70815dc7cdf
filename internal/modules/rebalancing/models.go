// Package rebalancing turns target weights into concrete trade plans with
// whole-unit quantities and a transaction cost estimate.
package rebalancing

import "time"

// Action is the direction of a rebalance trade.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// DefaultThreshold is the weight drift below which a position is left alone.
const DefaultThreshold = 0.05

// targetSumTolerance is how far target weights may stray from 100%.
const targetSumTolerance = 1e-3

// CostModel prices a rebalance: a fixed fee per executed trade, a variable
// rate on traded value and a market impact rate on traded value.
type CostModel struct {
	FixedCost        float64 `json:"fixed_cost"`
	VariableRate     float64 `json:"variable_rate"`
	MarketImpactRate float64 `json:"market_impact_rate"`
}

// Trade is one planned position adjustment.
type Trade struct {
	Symbol        string  `json:"symbol"`
	Action        Action  `json:"action"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
	WeightDelta   float64 `json:"weight_delta"`
	Quantity      int64   `json:"quantity"`
	Price         float64 `json:"price"`
	Value         float64 `json:"value"`
}

// CostBreakdown itemizes the estimated cost of executing a plan.
type CostBreakdown struct {
	Fixed        float64 `json:"fixed"`
	Variable     float64 `json:"variable"`
	MarketImpact float64 `json:"market_impact"`
	Total        float64 `json:"total"`
}

// Plan is a complete rebalance proposal. Trades appear for every symbol,
// HOLD entries included, in input symbol order.
type Plan struct {
	ID          string        `json:"id"`
	PortfolioID string        `json:"portfolio_id,omitempty"`
	Trades      []Trade       `json:"trades"`
	Turnover    float64       `json:"turnover"`
	Cost        CostBreakdown `json:"cost"`
	CreatedAt   time.Time     `json:"created_at"`
}
