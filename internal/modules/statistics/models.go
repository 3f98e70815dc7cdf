// Package statistics builds the market statistics consumed by the optimizer
// and risk modules: aligned return series, the sample covariance matrix and
// annualized expected returns, with data quality flags.
package statistics

import "time"

// DefaultWindow is the statistics lookback in trading days.
const DefaultWindow = 60

// minConfidentObservations is the observation count below which results are
// flagged low confidence.
const minConfidentObservations = 60

// highCorrelationThreshold flags asset pairs whose return correlation is
// strong enough to make the covariance matrix nearly collinear.
const highCorrelationThreshold = 0.80

// DataQuality describes how trustworthy a statistics build is.
type DataQuality struct {
	LowConfidence       bool     `json:"low_confidence"`
	SyntheticSymbols    []string `json:"synthetic_symbols,omitempty"`
	ShortHistorySymbols []string `json:"short_history_symbols,omitempty"`
	FilledPoints        int      `json:"filled_points"`
}

// CorrelationPair reports one strongly correlated asset pair.
type CorrelationPair struct {
	SymbolA     string  `json:"symbol_a"`
	SymbolB     string  `json:"symbol_b"`
	Correlation float64 `json:"correlation"`
}

// MarketStats is the aligned statistical snapshot of a symbol universe.
// Covariance and ExpectedReturns are indexed in Symbols order; covariance
// entries are daily, expected returns annualized.
type MarketStats struct {
	Symbols          []string             `json:"symbols"`
	Dates            []time.Time          `json:"dates"`
	Returns          map[string][]float64 `json:"returns"`
	Covariance       [][]float64          `json:"covariance"`
	ExpectedReturns  []float64            `json:"expected_returns"`
	Observations     int                  `json:"observations"`
	Quality          DataQuality          `json:"quality"`
	HighCorrelations []CorrelationPair    `json:"high_correlations,omitempty"`
}
