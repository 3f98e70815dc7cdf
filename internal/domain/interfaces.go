package domain

import "context"

// PriceHistoryProvider serves daily price history for a symbol, oldest
// first. Implementations may return fewer points than requested when the
// stored history is short; callers decide whether that is acceptable.
type PriceHistoryProvider interface {
	GetDailyPrices(ctx context.Context, symbol string, lookbackDays int) ([]PricePoint, error)
}

// HoldingsProvider serves the current positions of a portfolio and the
// portfolio's total value (positions plus cash).
type HoldingsProvider interface {
	GetHoldings(ctx context.Context, portfolioID string) ([]Holding, float64, error)
	ListPortfolios(ctx context.Context) ([]string, error)
}

// BenchmarkProvider serves daily return series for a named benchmark,
// used by relative risk metrics (beta, alpha, tracking error).
type BenchmarkProvider interface {
	GetBenchmarkReturns(ctx context.Context, name string, lookbackDays int) ([]float64, error)
}
