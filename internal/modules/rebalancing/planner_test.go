package rebalancing

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/engine/internal/domain"
)

func testCosts() CostModel {
	return CostModel{
		FixedCost:        1.0,
		VariableRate:     0.001,
		MarketImpactRate: 0.0005,
	}
}

func testHoldings() []domain.Holding {
	return []domain.Holding{
		{Symbol: "AAA", Quantity: 60, CurrentPrice: 100}, // 6000, 60%
		{Symbol: "BBB", Quantity: 40, CurrentPrice: 100}, // 4000, 40%
	}
}

func TestBuildPlanAlreadyBalanced(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	plan, err := p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 0.58,
		"BBB": 0.42,
	})
	require.NoError(t, err)

	// Both drifts are within the 5% band.
	for _, tr := range plan.Trades {
		assert.Equal(t, ActionHold, tr.Action)
		assert.Zero(t, tr.Quantity)
	}
	assert.Zero(t, plan.Turnover)
	assert.Zero(t, plan.Cost.Total)
}

func TestBuildPlanTradesAndQuantities(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	plan, err := p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 0.40,
		"BBB": 0.60,
	})
	require.NoError(t, err)
	require.Len(t, plan.Trades, 2)

	sell, buy := plan.Trades[0], plan.Trades[1]
	assert.Equal(t, ActionSell, sell.Action)
	assert.Equal(t, "AAA", sell.Symbol)
	// |Δw·V|/price = 2000/100 = 20 units.
	assert.Equal(t, int64(20), sell.Quantity)

	assert.Equal(t, ActionBuy, buy.Action)
	assert.Equal(t, int64(20), buy.Quantity)

	assert.InDelta(t, 4000.0, plan.Turnover, 1e-9)

	// 2 trades fixed + (0.001+0.0005)·4000.
	assert.InDelta(t, 2.0, plan.Cost.Fixed, 1e-9)
	assert.InDelta(t, 4.0, plan.Cost.Variable, 1e-9)
	assert.InDelta(t, 2.0, plan.Cost.MarketImpact, 1e-9)
	assert.InDelta(t, 8.0, plan.Cost.Total, 1e-9)
}

func TestBuildPlanQuantityFloors(t *testing.T) {
	holdings := []domain.Holding{
		{Symbol: "AAA", Quantity: 7, CurrentPrice: 950}, // 6650
		{Symbol: "BBB", Quantity: 67, CurrentPrice: 50}, // 3350
	}
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	plan, err := p.BuildPlan(holdings, 10000, map[string]float64{
		"AAA": 0.50,
		"BBB": 0.50,
	})
	require.NoError(t, err)

	// AAA must shed 1650 at 950/unit: floor gives 1 unit.
	assert.Equal(t, int64(1), plan.Trades[0].Quantity)
	assert.Equal(t, ActionSell, plan.Trades[0].Action)
}

func TestBuildPlanNewPosition(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	plan, err := p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 0.50,
		"BBB": 0.30,
		"CCC": 0.20,
	})
	require.NoError(t, err)
	require.Len(t, plan.Trades, 3)

	ccc := plan.Trades[2]
	assert.Equal(t, "CCC", ccc.Symbol)
	assert.Equal(t, ActionBuy, ccc.Action)
	// No stored price for a new symbol, so no unit count, but the cash
	// amount is planned.
	assert.Zero(t, ccc.Quantity)
	assert.InDelta(t, 2000.0, ccc.Value, 1e-9)
}

func TestBuildPlanFullExit(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	// BBB is absent from the targets, so it is sold down to zero.
	plan, err := p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 1.0,
	})
	require.NoError(t, err)

	bbb := plan.Trades[1]
	assert.Equal(t, ActionSell, bbb.Action)
	assert.Equal(t, int64(40), bbb.Quantity)
}

func TestBuildPlanInvalidTargets(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	_, err := p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 0.6,
		"BBB": 0.6,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAllocationTargets)

	_, err = p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 1.4,
		"BBB": -0.4,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAllocationTargets)
}

func TestBuildPlanToleratesTinyTargetDrift(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())

	_, err := p.BuildPlan(testHoldings(), 10000, map[string]float64{
		"AAA": 0.40005,
		"BBB": 0.6,
	})
	assert.NoError(t, err)
}

func TestBuildPlanRejectsWorthlessPortfolio(t *testing.T) {
	p := NewPlanner(testCosts(), 0.05, zerolog.Nop())
	_, err := p.BuildPlan(testHoldings(), 0, map[string]float64{"AAA": 1.0})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestDefaultThresholdApplied(t *testing.T) {
	p := NewPlanner(testCosts(), 0, zerolog.Nop())
	assert.Equal(t, DefaultThreshold, p.threshold)
}
