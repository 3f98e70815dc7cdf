package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/engine/internal/domain"
)

var testCov = [][]float64{
	{0.04, 0.02, 0.01},
	{0.02, 0.09, 0.015},
	{0.01, 0.015, 0.16},
}

var testMu = []float64{0.08, 0.12, 0.15}

func newTestOptimizer() *Optimizer {
	return NewOptimizer(zerolog.Nop())
}

func sumOf(w []float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func TestEqualWeight(t *testing.T) {
	o := newTestOptimizer()
	w, _, converged, err := o.ComputeWeights([]string{"A", "B", "C"}, testMu, testCov, ObjectiveEqualWeight, DefaultConstraints())
	require.NoError(t, err)
	assert.True(t, converged)
	for _, v := range w {
		assert.InDelta(t, 1.0/3.0, v, 1e-12)
	}
}

func TestSingleAssetGetsEverything(t *testing.T) {
	o := newTestOptimizer()
	for _, obj := range []Objective{ObjectiveMinRisk, ObjectiveMaxSharpe, ObjectiveRiskParity, ObjectiveMaxReturn, ObjectiveEqualWeight} {
		w, _, _, err := o.ComputeWeights([]string{"ONLY"}, []float64{0.1}, [][]float64{{0}}, obj, DefaultConstraints())
		require.NoError(t, err, "objective %s", obj)
		assert.Equal(t, []float64{1.0}, w)
	}
}

func TestMinRiskTwoAssetAnalytic(t *testing.T) {
	// Uncorrelated pair: w1 = (1/σ1²) / (1/σ1² + 1/σ2²).
	cov := [][]float64{
		{0.04, 0.0},
		{0.0, 0.09},
	}
	o := newTestOptimizer()
	w, _, _, err := o.ComputeWeights([]string{"A", "B"}, []float64{0.1, 0.1}, cov, ObjectiveMinRisk, DefaultConstraints())
	require.NoError(t, err)

	want := (1.0 / 0.04) / (1.0/0.04 + 1.0/0.09)
	assert.InDelta(t, want, w[0], 1e-9)
	assert.InDelta(t, 1-want, w[1], 1e-9)
}

func TestMinRiskIsLowestRisk(t *testing.T) {
	o := newTestOptimizer()
	symbols := []string{"A", "B", "C"}

	minW, _, _, err := o.ComputeWeights(symbols, testMu, testCov, ObjectiveMinRisk, DefaultConstraints())
	require.NoError(t, err)
	minRisk := PortfolioRisk(testCov, minW)

	for _, obj := range []Objective{ObjectiveEqualWeight, ObjectiveMaxSharpe, ObjectiveRiskParity, ObjectiveMaxReturn} {
		w, _, _, err := o.ComputeWeights(symbols, testMu, testCov, obj, DefaultConstraints())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, PortfolioRisk(testCov, w)+1e-9, minRisk, "objective %s", obj)
	}
}

func TestMaxSharpeTangencyAnalytic(t *testing.T) {
	// Uncorrelated pair: w ∝ Σ⁻¹(μ−rf) = [(0.10−0.02)/0.04, (0.05−0.02)/0.02] = [2, 1.5].
	cov := [][]float64{
		{0.04, 0.0},
		{0.0, 0.02},
	}
	mu := []float64{0.10, 0.05}
	o := newTestOptimizer()

	c := DefaultConstraints()
	c.RiskFreeRate = 0.02
	w, _, _, err := o.ComputeWeights([]string{"A", "B"}, mu, cov, ObjectiveMaxSharpe, c)
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.5, w[0], 1e-9)
	assert.InDelta(t, 1.5/3.5, w[1], 1e-9)
}

func TestMaxReturnGreedyTieBreak(t *testing.T) {
	// B and C tie on expected return; input order puts B first.
	mu := []float64{0.10, 0.20, 0.20}
	c := DefaultConstraints()
	c.MaxWeight = 0.6

	o := newTestOptimizer()
	w, _, _, err := o.ComputeWeights([]string{"A", "B", "C"}, mu, testCov, ObjectiveMaxReturn, c)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, w[0], 1e-9)
	assert.InDelta(t, 0.6, w[1], 1e-9)
	assert.InDelta(t, 0.4, w[2], 1e-9)
}

func TestMaxReturnRiskCeiling(t *testing.T) {
	// The top-return asset alone would blow through the ceiling, so the
	// allocation lands on the quieter assets instead.
	mu := []float64{0.30, 0.08, 0.07}
	cov := [][]float64{
		{0.25, 0.0, 0.0},
		{0.0, 0.0004, 0.0},
		{0.0, 0.0, 0.0004},
	}
	ceiling := 0.5 // annualized
	c := DefaultConstraints()
	c.MaxRisk = &ceiling

	o := newTestOptimizer()
	w, _, _, err := o.ComputeWeights([]string{"HOT", "CALM1", "CALM2"}, mu, cov, ObjectiveMaxReturn, c)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, w[0], 1e-9)
	assert.InDelta(t, 1.0, sumOf(w), 1e-9)
	assert.LessOrEqual(t, AnnualizedRisk(cov, w), ceiling)
}

func TestRiskParityEqualizesContributions(t *testing.T) {
	o := newTestOptimizer()
	w, iterations, converged, err := o.ComputeWeights([]string{"A", "B", "C"}, testMu, testCov, ObjectiveRiskParity, DefaultConstraints())
	require.NoError(t, err)
	assert.True(t, converged)
	assert.LessOrEqual(t, iterations, 100)
	assert.InDelta(t, 1.0, sumOf(w), 1e-9)

	// Lower-volatility assets carry more weight.
	assert.Greater(t, w[0], w[1])
	assert.Greater(t, w[1], w[2])

	// Risk contributions are equal at the fixed point.
	rc := RiskContributions(testCov, w)
	target := PortfolioRisk(testCov, w) / 3.0
	for i, c := range rc {
		assert.InDelta(t, target, c, target*0.01, "asset %d", i)
	}
}

func TestInfeasibleConstraints(t *testing.T) {
	o := newTestOptimizer()
	symbols := []string{"A", "B", "C"}

	tooHighMin := DefaultConstraints()
	tooHighMin.MinWeight = 0.5
	_, _, _, err := o.ComputeWeights(symbols, testMu, testCov, ObjectiveEqualWeight, tooHighMin)
	assert.ErrorIs(t, err, domain.ErrInfeasibleConstraints)

	tooLowMax := DefaultConstraints()
	tooLowMax.MaxWeight = 0.2
	_, _, _, err = o.ComputeWeights(symbols, testMu, testCov, ObjectiveEqualWeight, tooLowMax)
	assert.ErrorIs(t, err, domain.ErrInfeasibleConstraints)

	inverted := DefaultConstraints()
	inverted.MinWeight = 0.5
	inverted.MaxWeight = 0.3
	_, _, _, err = o.ComputeWeights(symbols, testMu, testCov, ObjectiveEqualWeight, inverted)
	assert.ErrorIs(t, err, domain.ErrInfeasibleConstraints)
}

func TestEmptyUniverse(t *testing.T) {
	o := newTestOptimizer()
	_, _, _, err := o.ComputeWeights(nil, nil, nil, ObjectiveEqualWeight, DefaultConstraints())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestBoundsRespectedAfterProjection(t *testing.T) {
	c := DefaultConstraints()
	c.MinWeight = 0.10
	c.MaxWeight = 0.50

	o := newTestOptimizer()
	for _, obj := range []Objective{ObjectiveMinRisk, ObjectiveMaxSharpe, ObjectiveRiskParity, ObjectiveMaxReturn} {
		w, _, _, err := o.ComputeWeights([]string{"A", "B", "C"}, testMu, testCov, obj, c)
		require.NoError(t, err, "objective %s", obj)
		assert.InDelta(t, 1.0, sumOf(w), 1e-6, "objective %s", obj)
		for i, v := range w {
			assert.GreaterOrEqual(t, v+1e-9, c.MinWeight, "objective %s asset %d", obj, i)
			assert.LessOrEqual(t, v-1e-9, c.MaxWeight, "objective %s asset %d", obj, i)
		}
	}
}

func TestApplyBoxConstraints(t *testing.T) {
	w := applyBoxConstraints([]float64{0.9, 0.05, 0.05}, 0.10, 0.50)
	assert.InDelta(t, 1.0, sumOf(w), 1e-9)
	for _, v := range w {
		assert.GreaterOrEqual(t, v+1e-9, 0.10)
		assert.LessOrEqual(t, v-1e-9, 0.50)
	}

	// Negative raw weights (shorts from the closed-form solve) clamp to min.
	w = applyBoxConstraints([]float64{1.3, -0.3}, 0.0, 1.0)
	assert.InDelta(t, 1.0, sumOf(w), 1e-9)
	assert.GreaterOrEqual(t, w[1], 0.0)
}

func TestUnknownObjective(t *testing.T) {
	o := newTestOptimizer()
	_, _, _, err := o.ComputeWeights([]string{"A"}, []float64{0.1}, [][]float64{{0.04}}, Objective("MAX_FUN"), DefaultConstraints())
	assert.Error(t, err)
}
