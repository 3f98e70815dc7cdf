package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// SeriesResult is the outcome of fetching one symbol's history. Synthetic
// marks series produced by the fallback generator rather than storage.
type SeriesResult struct {
	Symbol    string
	Prices    []domain.PricePoint
	Synthetic bool
	Err       error
}

// Fetcher loads price history for many symbols concurrently, bounded by a
// semaphore so a large universe cannot saturate the database. Symbols that
// fail individually degrade to an error entry instead of failing the batch.
type Fetcher struct {
	history        domain.PriceHistoryProvider
	synthetic      *SyntheticGenerator
	allowSynthetic bool
	concurrency    int
	log            zerolog.Logger
}

// NewFetcher creates a fetcher. When allowSynthetic is false, symbols with
// no usable history surface as errors in their SeriesResult.
func NewFetcher(history domain.PriceHistoryProvider, allowSynthetic bool, concurrency int, log zerolog.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Fetcher{
		history:        history,
		synthetic:      NewSyntheticGenerator(),
		allowSynthetic: allowSynthetic,
		concurrency:    concurrency,
		log:            log.With().Str("component", "fetcher").Logger(),
	}
}

// FetchAll fetches lookbackDays of history for every symbol in parallel.
// Results are returned in input order.
func (f *Fetcher) FetchAll(ctx context.Context, symbols []string, lookbackDays int) ([]SeriesResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("fetch: %w", domain.ErrInsufficientData)
	}

	results := make([]SeriesResult, len(symbols))
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SeriesResult{Symbol: sym, Err: ctx.Err()}
				return
			}

			results[idx] = f.fetchOne(ctx, sym, lookbackDays)
		}(i, symbol)
	}
	wg.Wait()

	return results, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, symbol string, lookbackDays int) SeriesResult {
	prices, err := f.history.GetDailyPrices(ctx, symbol, lookbackDays+1)
	if err != nil {
		f.log.Warn().Err(err).Str("symbol", symbol).Msg("Price history fetch failed")
		return SeriesResult{Symbol: symbol, Err: err}
	}

	// Fewer than two bars means no return can be computed.
	if len(prices) < 2 {
		if f.allowSynthetic {
			f.log.Warn().Str("symbol", symbol).Int("bars", len(prices)).
				Msg("Insufficient history, generating synthetic series")
			return SeriesResult{
				Symbol:    symbol,
				Prices:    f.synthetic.Generate(symbol, lookbackDays, time.Now().UTC()),
				Synthetic: true,
			}
		}
		return SeriesResult{
			Symbol: symbol,
			Prices: prices,
			Err:    fmt.Errorf("symbol %s has %d bars: %w", symbol, len(prices), domain.ErrInsufficientData),
		}
	}

	return SeriesResult{Symbol: symbol, Prices: prices}
}
