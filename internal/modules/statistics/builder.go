package statistics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfolio/engine/internal/cache"
	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/marketdata"
)

// cache settings for statistics builds
const (
	cacheSection = "market_stats"
	cacheTTL     = 60 * time.Second
)

// PriceFetcher loads price series for a set of symbols.
type PriceFetcher interface {
	FetchAll(ctx context.Context, symbols []string, lookbackDays int) ([]marketdata.SeriesResult, error)
}

// Builder assembles MarketStats from price history. Builds are memoized in
// the injected cache so repeated optimizer and risk calls over the same
// universe reuse one covariance computation.
type Builder struct {
	fetcher PriceFetcher
	cache   *cache.Cache
	log     zerolog.Logger
}

// NewBuilder creates a statistics builder
func NewBuilder(fetcher PriceFetcher, c *cache.Cache, log zerolog.Logger) *Builder {
	return &Builder{
		fetcher: fetcher,
		cache:   c,
		log:     log.With().Str("component", "statistics").Logger(),
	}
}

// Build computes MarketStats for the given symbols over a lookback window of
// trading days. Symbols whose history cannot be loaded degrade to flagged
// zero-return series rather than failing the whole build.
func (b *Builder) Build(ctx context.Context, symbols []string, window int) (*MarketStats, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("statistics build: %w", domain.ErrInsufficientData)
	}
	if window <= 0 {
		window = DefaultWindow
	}

	key := buildKey(symbols, window)
	if b.cache != nil {
		if data, ok := b.cache.Get(cacheSection, key); ok {
			var stats MarketStats
			if err := msgpack.Unmarshal(data, &stats); err == nil {
				b.log.Debug().Str("key", key[:12]).Msg("Statistics cache hit")
				return &stats, nil
			}
		}
	}

	results, err := b.fetcher.FetchAll(ctx, symbols, window)
	if err != nil {
		return nil, err
	}

	stats, err := b.assemble(results, window)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		if data, err := msgpack.Marshal(stats); err == nil {
			b.cache.Set(cacheSection, key, data, cacheTTL)
		}
	}

	return stats, nil
}

// assemble aligns series on a shared date axis, fills gaps, and computes
// returns, covariance and expected returns.
func (b *Builder) assemble(results []marketdata.SeriesResult, window int) (*MarketStats, error) {
	quality := DataQuality{}

	// Date axis: union of dates across all usable series.
	dateSet := make(map[time.Time]struct{})
	closes := make(map[string]map[time.Time]float64)
	var symbols []string

	for _, res := range results {
		symbols = append(symbols, res.Symbol)
		if res.Err != nil || len(res.Prices) < 2 {
			quality.ShortHistorySymbols = append(quality.ShortHistorySymbols, res.Symbol)
			continue
		}
		if res.Synthetic {
			quality.SyntheticSymbols = append(quality.SyntheticSymbols, res.Symbol)
		}
		m := make(map[time.Time]float64, len(res.Prices))
		for _, p := range res.Prices {
			d := p.Date.Truncate(24 * time.Hour)
			m[d] = p.Close
			dateSet[d] = struct{}{}
		}
		closes[res.Symbol] = m
	}

	if len(dateSet) < 2 {
		return nil, fmt.Errorf("no usable price history in universe: %w", domain.ErrInsufficientData)
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > window+1 {
		dates = dates[len(dates)-(window+1):]
	}

	n := len(symbols)
	obs := len(dates) - 1
	returns := make(map[string][]float64, n)

	for _, sym := range symbols {
		m, ok := closes[sym]
		if !ok {
			// Degraded symbol: zero-return placeholder keeps the matrix
			// square while the quality flags tell the caller what happened.
			returns[sym] = make([]float64, obs)
			continue
		}
		series, filled := alignSeries(m, dates)
		quality.FilledPoints += filled
		returns[sym] = dailyReturns(series)
	}

	cov := make([][]float64, n)
	expected := make([]float64, n)
	for i, symI := range symbols {
		cov[i] = make([]float64, n)
		expected[i] = stat.Mean(returns[symI], nil) * 252
		for j := 0; j <= i; j++ {
			c := stat.Covariance(returns[symI], returns[symbols[j]], nil)
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	quality.LowConfidence = obs < minConfidentObservations ||
		len(quality.SyntheticSymbols) > 0 || len(quality.ShortHistorySymbols) > 0

	stats := &MarketStats{
		Symbols:          symbols,
		Dates:            dates,
		Returns:          returns,
		Covariance:       cov,
		ExpectedReturns:  expected,
		Observations:     obs,
		Quality:          quality,
		HighCorrelations: highCorrelations(symbols, returns),
	}

	b.log.Debug().Int("symbols", n).Int("observations", obs).
		Bool("low_confidence", quality.LowConfidence).Msg("Built market statistics")

	return stats, nil
}

// alignSeries maps the close prices onto the shared date axis. Interior and
// trailing gaps are forward-filled, leading gaps back-filled; the second
// return value counts filled points.
func alignSeries(closes map[time.Time]float64, dates []time.Time) ([]float64, int) {
	out := make([]float64, len(dates))
	filled := 0

	last := 0.0
	haveLast := false
	for i, d := range dates {
		if v, ok := closes[d]; ok {
			out[i] = v
			last = v
			haveLast = true
			continue
		}
		filled++
		if haveLast {
			out[i] = last
		}
	}

	// Back-fill any leading gap from the first real observation.
	firstReal := -1
	for i, d := range dates {
		if _, ok := closes[d]; ok {
			firstReal = i
			break
		}
	}
	if firstReal > 0 {
		for i := 0; i < firstReal; i++ {
			out[i] = out[firstReal]
		}
	}

	return out, filled
}

// dailyReturns computes simple returns from a price series.
func dailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return out
}

// highCorrelations reports asset pairs with strong return correlation.
func highCorrelations(symbols []string, returns map[string][]float64) []CorrelationPair {
	var pairs []CorrelationPair
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			ri, rj := returns[symbols[i]], returns[symbols[j]]
			if len(ri) < 2 || len(ri) != len(rj) {
				continue
			}
			if stat.StdDev(ri, nil) == 0 || stat.StdDev(rj, nil) == 0 {
				continue
			}
			rho := stat.Correlation(ri, rj, nil)
			if rho >= highCorrelationThreshold || rho <= -highCorrelationThreshold {
				pairs = append(pairs, CorrelationPair{
					SymbolA:     symbols[i],
					SymbolB:     symbols[j],
					Correlation: rho,
				})
			}
		}
	}
	return pairs
}

// buildKey hashes the symbol set and window into a cache key. Symbol order
// does not matter.
func buildKey(symbols []string, window int) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(strings.Join(sorted, "|")))
	fmt.Fprintf(h, "|%d", window)
	return hex.EncodeToString(h.Sum(nil))
}
