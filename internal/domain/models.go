// Package domain provides the shared value types, provider interfaces and
// error kinds used across the engine modules.
package domain

import "time"

// Holding represents a portfolio position as the engine sees it: identity,
// size and the prices needed to compute weights.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Sector       string  `json:"sector,omitempty"`
	Quantity     float64 `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	CurrentPrice float64 `json:"current_price"`
}

// MarketValue returns the current market value of the holding.
func (h Holding) MarketValue() float64 {
	return h.Quantity * h.CurrentPrice
}

// PricePoint is one daily bar of price history. Volume is a pointer because
// some sources report no volume at all and zero is a legitimate value.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume *int64    `json:"volume,omitempty"`
}

// ReturnSeries holds simple daily returns for one symbol, aligned to Dates.
// Returns[t] = (Close[t] - Close[t-1]) / Close[t-1], so the series is one
// element shorter than the price history it came from.
type ReturnSeries struct {
	Symbol  string      `json:"symbol"`
	Dates   []time.Time `json:"dates"`
	Returns []float64   `json:"returns"`
}

// PortfolioSnapshot is the persisted result of a scheduled batch run:
// the risk assessment and minimum-risk allocation for one portfolio at a
// point in time.
type PortfolioSnapshot struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	TakenAt     time.Time `json:"taken_at"`
	TotalValue  float64   `json:"total_value"`
	Payload     []byte    `json:"payload"`
}
