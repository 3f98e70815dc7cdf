package optimization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFrontier() *FrontierBuilder {
	return NewFrontierBuilder(newTestOptimizer(), zerolog.Nop())
}

func TestFrontierShape(t *testing.T) {
	f := newTestFrontier()
	points, err := f.Build([]string{"A", "B", "C"}, testMu, testCov, DefaultConstraints(), 10)
	require.NoError(t, err)
	require.Len(t, points, 10)

	for i, p := range points {
		sum := 0.0
		for _, w := range p.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-6, "point %d", i)
		assert.GreaterOrEqual(t, p.Risk, 0.0)
	}

	// Risk ascends along the frontier.
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Risk+1e-12, points[i-1].Risk)
	}

	// Endpoints span min-risk to max-return.
	first, last := points[0], points[len(points)-1]
	assert.LessOrEqual(t, first.Risk, last.Risk)
	assert.LessOrEqual(t, first.Return, last.Return+1e-12)
}

func TestFrontierPointCountClamped(t *testing.T) {
	f := newTestFrontier()

	points, err := f.Build([]string{"A", "B", "C"}, testMu, testCov, DefaultConstraints(), 0)
	require.NoError(t, err)
	assert.Len(t, points, defaultFrontierPoints)

	points, err = f.Build([]string{"A", "B", "C"}, testMu, testCov, DefaultConstraints(), 5000)
	require.NoError(t, err)
	assert.Len(t, points, maxFrontierPoints)
}

func TestFrontierTargetReturnPinsPoint(t *testing.T) {
	f := newTestFrontier()
	base, err := f.Build([]string{"A", "B", "C"}, testMu, testCov, DefaultConstraints(), 10)
	require.NoError(t, err)
	rLow, rHigh := base[0].Return, base[len(base)-1].Return

	// Midway target: exactly one point, at exactly that return.
	target := (rLow + rHigh) / 2
	c := DefaultConstraints()
	c.TargetReturn = &target
	points, err := f.Build([]string{"A", "B", "C"}, testMu, testCov, c, 10)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, target, points[0].Return, 1e-9)

	// An unreachable target clamps to the max-return endpoint.
	beyond := rHigh + 1.0
	c.TargetReturn = &beyond
	points, err = f.Build([]string{"A", "B", "C"}, testMu, testCov, c, 10)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, rHigh, points[0].Return, 1e-9)
}

func TestFrontierFlatReturnsCollapses(t *testing.T) {
	// Identical expected returns leave nothing to trade off.
	mu := []float64{0.10, 0.10, 0.10}
	f := newTestFrontier()

	points, err := f.Build([]string{"A", "B", "C"}, mu, testCov, DefaultConstraints(), 10)
	require.NoError(t, err)
	assert.Len(t, points, 1)
}
