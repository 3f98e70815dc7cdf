package risk

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/statistics"
)

func testHoldings() []domain.Holding {
	return []domain.Holding{
		{Symbol: "TECH", Sector: "Technology", Quantity: 60, CurrentPrice: 100}, // 6000
		{Symbol: "UTIL", Sector: "Utilities", Quantity: 80, CurrentPrice: 50},   // 4000
	}
}

type fakeHoldings struct {
	holdings []domain.Holding
	total    float64
}

func (f *fakeHoldings) GetHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, float64, error) {
	return f.holdings, f.total, nil
}

func (f *fakeHoldings) ListPortfolios(ctx context.Context) ([]string, error) {
	return []string{"p1"}, nil
}

type fakeStats struct {
	stats *statistics.MarketStats
}

func (f *fakeStats) Build(ctx context.Context, symbols []string, window int) (*statistics.MarketStats, error) {
	return f.stats, nil
}

type fakeBenchmarks struct {
	returns []float64
}

func (f *fakeBenchmarks) GetBenchmarkReturns(ctx context.Context, name string, lookbackDays int) ([]float64, error) {
	return f.returns, nil
}

// statsFixture builds aligned two-symbol statistics with a seesaw pattern.
func statsFixture(obs int) *statistics.MarketStats {
	dates := make([]time.Time, obs+1)
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	tech := make([]float64, obs)
	util := make([]float64, obs)
	for i := 0; i < obs; i++ {
		if i%2 == 0 {
			tech[i], util[i] = 0.012, -0.004
		} else {
			tech[i], util[i] = -0.008, 0.006
		}
	}

	return &statistics.MarketStats{
		Symbols:      []string{"TECH", "UTIL"},
		Dates:        dates,
		Returns:      map[string][]float64{"TECH": tech, "UTIL": util},
		Observations: obs,
	}
}

func newTestService(stats *statistics.MarketStats, bench []float64) *Service {
	return NewService(
		&fakeStats{stats: stats},
		&fakeHoldings{holdings: testHoldings(), total: 10000},
		&fakeBenchmarks{returns: bench},
		0.02,
		zerolog.Nop(),
	)
}

func TestAnalyzeRiskBasics(t *testing.T) {
	s := newTestService(statsFixture(252), nil)

	a, err := s.AnalyzeRisk(context.Background(), "p1", "")
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "p1", a.PortfolioID)
	assert.Equal(t, riskWindow, a.Window)

	assert.Greater(t, a.VaR95, 0.0)
	assert.GreaterOrEqual(t, a.VaR99, a.VaR95)
	assert.GreaterOrEqual(t, a.CVaR95, a.VaR95)
	assert.Greater(t, a.MonteCarloCVaR95, 0.0)

	assert.Greater(t, a.AnnualizedVolatility, 0.0)
	assert.Greater(t, a.VolatilityRatio, 0.0)
	assert.False(t, math.IsNaN(a.SharpeRatio))
	assert.Nil(t, a.Relative)
}

func TestAnalyzeRiskWithBenchmark(t *testing.T) {
	stats := statsFixture(252)
	bench := make([]float64, 252)
	for i := range bench {
		if i%2 == 0 {
			bench[i] = 0.008
		} else {
			bench[i] = -0.004
		}
	}
	s := newTestService(stats, bench)

	a, err := s.AnalyzeRisk(context.Background(), "p1", "SPY")
	require.NoError(t, err)
	require.NotNil(t, a.Relative)
	assert.Equal(t, "SPY", a.Relative.Benchmark)
	assert.NotZero(t, a.Relative.Beta)
	assert.GreaterOrEqual(t, a.Relative.TrackingError, 0.0)
}

func TestAnalyzeRiskEmptyPortfolio(t *testing.T) {
	s := NewService(
		&fakeStats{stats: statsFixture(252)},
		&fakeHoldings{holdings: nil, total: 0},
		&fakeBenchmarks{},
		0.02,
		zerolog.Nop(),
	)
	_, err := s.AnalyzeRisk(context.Background(), "empty", "")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestAnalyzeRiskFlagsLowConfidence(t *testing.T) {
	stats := statsFixture(40)
	stats.Quality.LowConfidence = true
	s := newTestService(stats, nil)

	a, err := s.AnalyzeRisk(context.Background(), "p1", "")
	require.NoError(t, err)
	assert.True(t, a.LowConfidence)
}

func TestStressTestDefaultScenarios(t *testing.T) {
	s := newTestService(statsFixture(252), nil)

	results, err := s.StressTest(context.Background(), "p1", nil)
	require.NoError(t, err)
	assert.Len(t, results, len(DefaultScenarios()))
	for _, r := range results {
		assert.Less(t, r.ImpactPct, 0.0)
		assert.Greater(t, r.RecoveryDays, 0)
	}
}

func TestCurrentWeights(t *testing.T) {
	symbols, weights := currentWeights(testHoldings())
	assert.Equal(t, []string{"TECH", "UTIL"}, symbols)
	assert.InDelta(t, 0.6, weights[0], 1e-12)
	assert.InDelta(t, 0.4, weights[1], 1e-12)
}

func TestWeightedReturnsMatchBySymbol(t *testing.T) {
	// Statistics may order symbols differently than the holdings; weights
	// must still land on the right series.
	stats := &statistics.MarketStats{
		Symbols: []string{"UTIL", "TECH"},
		Returns: map[string][]float64{
			"TECH": {0.01, 0.02},
			"UTIL": {-0.05, -0.06},
		},
		Observations: 2,
	}
	got := weightedReturns(stats, map[string]float64{"TECH": 1.0, "UTIL": 0.0})
	assert.InDelta(t, 0.01, got[0], 1e-12)
	assert.InDelta(t, 0.02, got[1], 1e-12)
}

func TestCumulativeValues(t *testing.T) {
	values := cumulativeValues([]float64{0.10, -0.10})
	require.Len(t, values, 3)
	assert.InDelta(t, 1.0, values[0], 1e-12)
	assert.InDelta(t, 1.1, values[1], 1e-12)
	assert.InDelta(t, 0.99, values[2], 1e-12)
}
