package optimization

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
)

// Frontier point count bounds.
const (
	defaultFrontierPoints = 20
	maxFrontierPoints     = 100
)

// FrontierBuilder sweeps the efficient frontier between the minimum-risk
// and maximum-return portfolios.
type FrontierBuilder struct {
	optimizer *Optimizer
	log       zerolog.Logger
}

// NewFrontierBuilder creates a frontier builder sharing the optimizer's solvers.
func NewFrontierBuilder(optimizer *Optimizer, log zerolog.Logger) *FrontierBuilder {
	return &FrontierBuilder{
		optimizer: optimizer,
		log:       log.With().Str("component", "frontier").Logger(),
	}
}

// Build computes pointCount frontier portfolios. Interior points blend the
// endpoint weight vectors along a linear target-return grid, so every point
// satisfies the box constraints the endpoints satisfy. Output is sorted by
// ascending risk.
func (f *FrontierBuilder) Build(symbols []string, mu []float64, cov [][]float64, constraints Constraints, pointCount int) ([]FrontierPoint, error) {
	if pointCount <= 0 {
		pointCount = defaultFrontierPoints
	}
	if pointCount > maxFrontierPoints {
		pointCount = maxFrontierPoints
	}
	if pointCount < 2 {
		pointCount = 2
	}

	minRiskW, _, _, err := f.optimizer.ComputeWeights(symbols, mu, cov, ObjectiveMinRisk, constraints)
	if err != nil {
		return nil, err
	}

	// The high end of the frontier ignores any risk ceiling; the ceiling is
	// a portfolio construction constraint, not a frontier bound.
	unbounded := constraints
	unbounded.MaxRisk = nil
	maxReturnW, _, _, err := f.optimizer.ComputeWeights(symbols, mu, cov, ObjectiveMaxReturn, unbounded)
	if err != nil {
		return nil, err
	}

	returnAt := func(w []float64) float64 {
		r := 0.0
		for i := range w {
			r += w[i] * mu[i]
		}
		return r
	}

	rLow := returnAt(minRiskW)
	rHigh := returnAt(maxReturnW)

	// A flat return spread collapses the frontier to the min-risk point.
	if math.Abs(rHigh-rLow) < 1e-12 {
		return []FrontierPoint{f.point(symbols, mu, cov, minRiskW, constraints)}, nil
	}

	// A pinned target return yields the single portfolio matching it,
	// clamped to the achievable range.
	if constraints.TargetReturn != nil {
		alpha := (*constraints.TargetReturn - rLow) / (rHigh - rLow)
		alpha = math.Max(0, math.Min(1, alpha))
		w := blendWeights(minRiskW, maxReturnW, alpha)
		w = applyBoxConstraints(w, constraints.MinWeight, constraints.MaxWeight)
		return []FrontierPoint{f.point(symbols, mu, cov, w, constraints)}, nil
	}

	points := make([]FrontierPoint, 0, pointCount)
	for k := 0; k < pointCount; k++ {
		alpha := float64(k) / float64(pointCount-1)
		w := blendWeights(minRiskW, maxReturnW, alpha)
		w = applyBoxConstraints(w, constraints.MinWeight, constraints.MaxWeight)
		points = append(points, f.point(symbols, mu, cov, w, constraints))
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Risk < points[j].Risk })

	f.log.Debug().Int("points", len(points)).
		Float64("risk_low", points[0].Risk).
		Float64("risk_high", points[len(points)-1].Risk).
		Msg("Built efficient frontier")

	return points, nil
}

func blendWeights(a, b []float64, alpha float64) []float64 {
	w := make([]float64, len(a))
	for i := range w {
		w[i] = (1-alpha)*a[i] + alpha*b[i]
	}
	return w
}

func (f *FrontierBuilder) point(symbols []string, mu []float64, cov [][]float64, w []float64, constraints Constraints) FrontierPoint {
	risk := AnnualizedRisk(cov, w)
	ret := 0.0
	weights := make(map[string]float64, len(symbols))
	for i, s := range symbols {
		ret += w[i] * mu[i]
		weights[s] = w[i]
	}

	sharpe := 0.0
	if risk > 0 {
		sharpe = (ret - constraints.RiskFreeRate) / risk
	}

	return FrontierPoint{Risk: risk, Return: ret, Sharpe: sharpe, Weights: weights}
}
