package marketdata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// BenchmarkRepository computes daily return series for benchmark symbols
// stored in the same price history database. It implements
// domain.BenchmarkProvider.
type BenchmarkRepository struct {
	history domain.PriceHistoryProvider
	log     zerolog.Logger
}

// NewBenchmarkRepository creates a benchmark provider over a price history store.
func NewBenchmarkRepository(history domain.PriceHistoryProvider, log zerolog.Logger) *BenchmarkRepository {
	return &BenchmarkRepository{
		history: history,
		log:     log.With().Str("component", "benchmark_repo").Logger(),
	}
}

// GetBenchmarkReturns returns up to lookbackDays daily simple returns for
// the named benchmark, oldest first.
func (b *BenchmarkRepository) GetBenchmarkReturns(ctx context.Context, name string, lookbackDays int) ([]float64, error) {
	prices, err := b.history.GetDailyPrices(ctx, name, lookbackDays+1)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", name, err)
	}
	if len(prices) < 2 {
		return nil, fmt.Errorf("benchmark %s has %d bars: %w", name, len(prices), domain.ErrInsufficientData)
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1].Close
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (prices[i].Close-prev)/prev)
	}
	return returns, nil
}
