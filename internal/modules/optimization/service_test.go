package optimization

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/rebalancing"
	"github.com/quantfolio/engine/internal/modules/statistics"
)

type fakeStats struct {
	stats *statistics.MarketStats
}

func (f *fakeStats) Build(ctx context.Context, symbols []string, window int) (*statistics.MarketStats, error) {
	return f.stats, nil
}

type fakeHoldings struct {
	holdings []domain.Holding
}

func (f *fakeHoldings) GetHoldings(ctx context.Context, portfolioID string) ([]domain.Holding, float64, error) {
	total := 0.0
	for _, h := range f.holdings {
		total += h.MarketValue()
	}
	return f.holdings, total, nil
}

func (f *fakeHoldings) ListPortfolios(ctx context.Context) ([]string, error) {
	return []string{"p1"}, nil
}

func newTestPlanner() *rebalancing.Planner {
	return rebalancing.NewPlanner(rebalancing.CostModel{
		FixedCost:        1,
		VariableRate:     0.001,
		MarketImpactRate: 0.0005,
	}, 0.05, zerolog.Nop())
}

func newTestServiceWithHoldings(holdings []domain.Holding) *Service {
	stats := &statistics.MarketStats{
		Symbols:         []string{"A", "B", "C"},
		Covariance:      testCov,
		ExpectedReturns: testMu,
		Observations:    252,
	}
	opt := newTestOptimizer()
	return NewService(
		&fakeStats{stats: stats},
		&fakeHoldings{holdings: holdings},
		opt,
		NewFrontierBuilder(opt, zerolog.Nop()),
		newTestPlanner(),
		60,
		zerolog.Nop(),
	)
}

func newTestService() *Service {
	return newTestServiceWithHoldings([]domain.Holding{
		{Symbol: "A", Quantity: 10, CurrentPrice: 100},
		{Symbol: "B", Quantity: 10, CurrentPrice: 100},
		{Symbol: "C", Quantity: 10, CurrentPrice: 100},
	})
}

func TestOptimizePortfolio(t *testing.T) {
	s := newTestService()

	result, err := s.OptimizePortfolio(context.Background(), "p1", ObjectiveMinRisk, DefaultConstraints())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, ObjectiveMinRisk, result.Objective)
	require.Len(t, result.Allocations, 3)

	sum := 0.0
	for _, a := range result.Allocations {
		sum += a.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Greater(t, result.Metrics.Risk, 0.0)
	assert.Greater(t, result.Metrics.EffectiveAssets, 1.0)
}

func TestOptimizePortfolioEmptyHoldings(t *testing.T) {
	s := NewService(
		&fakeStats{},
		&fakeHoldings{holdings: nil},
		newTestOptimizer(),
		newTestFrontier(),
		newTestPlanner(),
		60,
		zerolog.Nop(),
	)
	_, err := s.OptimizePortfolio(context.Background(), "empty", ObjectiveMinRisk, DefaultConstraints())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestOptimizePortfolioAttachesTrades(t *testing.T) {
	// 60/20/20 book against equal-weight targets: one sell, two buys.
	s := newTestServiceWithHoldings([]domain.Holding{
		{Symbol: "A", Quantity: 60, CurrentPrice: 10},
		{Symbol: "B", Quantity: 20, CurrentPrice: 10},
		{Symbol: "C", Quantity: 20, CurrentPrice: 10},
	})

	result, err := s.OptimizePortfolio(context.Background(), "p1", ObjectiveEqualWeight, DefaultConstraints())
	require.NoError(t, err)
	require.Len(t, result.Allocations, 3)

	a := result.Allocations[0]
	assert.InDelta(t, 0.6, a.CurrentWeight, 1e-9)
	assert.Equal(t, rebalancing.ActionSell, a.Action)
	assert.Equal(t, int64(26), a.Quantity)
	assert.InDelta(t, (0.6-1.0/3.0)*1000, a.Amount, 1e-6)

	for _, b := range result.Allocations[1:] {
		assert.InDelta(t, 0.2, b.CurrentWeight, 1e-9)
		assert.Equal(t, rebalancing.ActionBuy, b.Action)
		assert.Equal(t, int64(13), b.Quantity)
	}

	assert.True(t, result.RebalancingNeeded)
	require.NotNil(t, result.Cost)
	assert.Greater(t, result.Cost.Total, 0.0)
}

func TestOptimizePortfolioBalancedBookHolds(t *testing.T) {
	// Already at equal weight: no trades, no rebalancing flag.
	result, err := newTestService().OptimizePortfolio(context.Background(), "p1", ObjectiveEqualWeight, DefaultConstraints())
	require.NoError(t, err)

	for _, a := range result.Allocations {
		assert.Equal(t, rebalancing.ActionHold, a.Action)
		assert.Zero(t, a.Quantity)
	}
	assert.False(t, result.RebalancingNeeded)
	require.NotNil(t, result.Cost)
	assert.Zero(t, result.Cost.Total)
}

func TestBuildFrontierViaService(t *testing.T) {
	s := newTestService()

	points, err := s.BuildFrontier(context.Background(), "p1", DefaultConstraints(), 8)
	require.NoError(t, err)
	assert.Len(t, points, 8)
}

func TestRiskParityFromCovariance(t *testing.T) {
	s := newTestService()

	result, err := s.RiskParityFromCovariance(nil, testCov, DefaultConstraints())
	require.NoError(t, err)
	assert.Equal(t, ObjectiveRiskParity, result.Objective)
	assert.True(t, result.Converged)

	// Generated positional names when the caller gave none.
	assert.Equal(t, "asset_0", result.Allocations[0].Symbol)

	weights := make([]float64, len(result.Allocations))
	for i, a := range result.Allocations {
		weights[i] = a.Weight
	}
	rc := RiskContributions(testCov, weights)
	target := PortfolioRisk(testCov, weights) / 3.0
	for i, c := range rc {
		assert.InDelta(t, target, c, target*0.01, "asset %d", i)
	}
}

func TestRiskParityFromCovarianceValidation(t *testing.T) {
	s := newTestService()

	_, err := s.RiskParityFromCovariance(nil, nil, DefaultConstraints())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = s.RiskParityFromCovariance([]string{"A"}, testCov, DefaultConstraints())
	assert.ErrorIs(t, err, domain.ErrInvalidCovarianceMatrix)
}
