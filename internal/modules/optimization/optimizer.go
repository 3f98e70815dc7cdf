package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// Risk parity iteration limits.
const (
	riskParityMaxIterations = 100
	riskParityTolerance     = 1e-6
)

// Optimizer computes portfolio weight vectors for the supported objectives.
// Inputs are indexed consistently: mu[i] and cov[i][j] belong to symbols[i].
// Expected returns are annualized, covariance entries daily.
type Optimizer struct {
	log zerolog.Logger
}

// NewOptimizer creates a new optimizer
func NewOptimizer(log zerolog.Logger) *Optimizer {
	return &Optimizer{
		log: log.With().Str("component", "optimizer").Logger(),
	}
}

// ComputeWeights solves the chosen objective and returns weights in symbol
// order, plus the iteration count for iterative objectives and whether the
// solve converged.
func (o *Optimizer) ComputeWeights(symbols []string, mu []float64, cov [][]float64, objective Objective, constraints Constraints) ([]float64, int, bool, error) {
	n := len(symbols)
	if n == 0 {
		return nil, 0, false, fmt.Errorf("optimize: %w", domain.ErrInsufficientData)
	}
	if len(mu) != n || len(cov) != n {
		return nil, 0, false, fmt.Errorf("optimize: inputs sized %d/%d for %d symbols: %w",
			len(mu), len(cov), n, domain.ErrInvalidCovarianceMatrix)
	}
	if !objective.Valid() {
		return nil, 0, false, fmt.Errorf("unknown objective %q", objective)
	}
	if err := checkFeasibility(n, constraints); err != nil {
		return nil, 0, false, err
	}

	// One asset can only hold everything.
	if n == 1 {
		return []float64{1.0}, 0, true, nil
	}

	var weights []float64
	iterations := 0
	converged := true
	var err error

	switch objective {
	case ObjectiveEqualWeight:
		weights = equalWeights(n)
	case ObjectiveMinRisk:
		weights, err = o.minRiskWeights(cov)
	case ObjectiveMaxSharpe:
		weights, err = o.maxSharpeWeights(mu, cov, constraints.RiskFreeRate)
	case ObjectiveMaxReturn:
		weights = o.maxReturnWeights(mu, cov, constraints)
	case ObjectiveRiskParity:
		weights, iterations, converged, err = o.riskParityWeights(cov, constraints)
	}
	if err != nil {
		return nil, 0, false, err
	}

	weights = applyBoxConstraints(weights, constraints.MinWeight, constraints.MaxWeight)

	o.log.Debug().Str("objective", string(objective)).Int("assets", n).
		Int("iterations", iterations).Bool("converged", converged).Msg("Computed weights")

	return weights, iterations, converged, nil
}

// minRiskWeights solves the closed-form global minimum variance portfolio,
// w = Σ⁻¹1 / (1ᵀΣ⁻¹1).
func (o *Optimizer) minRiskWeights(cov [][]float64) ([]float64, error) {
	inv, err := InvertCovariance(cov)
	if err != nil {
		return nil, err
	}

	n := len(cov)
	raw := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			raw[i] += inv.At(i, j)
		}
		total += raw[i]
	}
	if total == 0 {
		return nil, fmt.Errorf("degenerate minimum risk solution: %w", domain.ErrInvalidCovarianceMatrix)
	}
	for i := range raw {
		raw[i] /= total
	}
	return raw, nil
}

// maxSharpeWeights solves the closed-form tangency portfolio,
// w ∝ Σ⁻¹(μ − r_f·1). Negative entries are handled by box projection.
func (o *Optimizer) maxSharpeWeights(mu []float64, cov [][]float64, riskFreeRate float64) ([]float64, error) {
	inv, err := InvertCovariance(cov)
	if err != nil {
		return nil, err
	}

	n := len(mu)
	excess := make([]float64, n)
	for i := range mu {
		excess[i] = mu[i] - riskFreeRate
	}

	raw := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			raw[i] += inv.At(i, j) * excess[j]
		}
		total += raw[i]
	}
	if total == 0 {
		// No asset clears the risk-free rate in aggregate; the least risky
		// feasible portfolio is the sensible answer.
		return o.minRiskWeights(cov)
	}
	for i := range raw {
		raw[i] /= total
	}
	return raw, nil
}

// maxReturnWeights fills greedily from the highest expected return down,
// each position up to MaxWeight. Ties keep input order. With a risk ceiling,
// assignment stops before the ceiling is crossed and the remainder spreads
// equally over the untouched assets.
func (o *Optimizer) maxReturnWeights(mu []float64, cov [][]float64, constraints Constraints) []float64 {
	n := len(mu)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return mu[order[a]] > mu[order[b]] })

	maxW := constraints.MaxWeight
	if maxW <= 0 || maxW > 1 {
		maxW = 1.0
	}

	weights := make([]float64, n)
	remaining := 1.0
	touched := make(map[int]bool, n)

	for _, idx := range order {
		if remaining <= 0 {
			break
		}
		w := math.Min(maxW, remaining)

		if constraints.MaxRisk != nil {
			trial := make([]float64, n)
			copy(trial, weights)
			trial[idx] = w
			if AnnualizedRisk(cov, trial) > *constraints.MaxRisk {
				// Too risky at full size; skip it for the remainder spread too.
				touched[idx] = true
				continue
			}
		}

		weights[idx] = w
		touched[idx] = true
		remaining -= w
	}

	// Spread whatever the ceiling left unallocated across untouched assets.
	if remaining > 1e-12 {
		var untouched []int
		for i := 0; i < n; i++ {
			if !touched[i] {
				untouched = append(untouched, i)
			}
		}
		if len(untouched) > 0 {
			share := remaining / float64(len(untouched))
			for _, i := range untouched {
				weights[i] += share
			}
		}
	}

	return weights
}

// riskParityWeights iterates w_i ← w_i·sqrt(targetRC/RC_i) from an equal
// start, projecting into bounds and renormalizing each step, until the L1
// change drops below tolerance or the iteration cap is hit.
func (o *Optimizer) riskParityWeights(cov [][]float64, constraints Constraints) ([]float64, int, bool, error) {
	if err := ValidateCovariance(cov); err != nil {
		return nil, 0, false, err
	}

	n := len(cov)
	weights := equalWeights(n)

	for iter := 1; iter <= riskParityMaxIterations; iter++ {
		sigma := PortfolioRisk(cov, weights)
		if sigma == 0 {
			// All-zero risk universe: equal weight is the fixed point.
			return weights, iter, true, nil
		}

		contributions := RiskContributions(cov, weights)
		target := sigma / float64(n)

		next := make([]float64, n)
		for i := range weights {
			rc := contributions[i]
			if rc < 1e-12 {
				rc = 1e-12
			}
			next[i] = weights[i] * math.Sqrt(target/rc)
		}
		next = applyBoxConstraints(next, constraints.MinWeight, constraints.MaxWeight)

		change := 0.0
		for i := range next {
			change += math.Abs(next[i] - weights[i])
		}
		weights = next

		if change < riskParityTolerance {
			return weights, iter, true, nil
		}
	}

	o.log.Warn().Int("iterations", riskParityMaxIterations).Msg("Risk parity did not converge")
	return weights, riskParityMaxIterations, false, nil
}

func equalWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}

// checkFeasibility rejects box constraints no weight vector can satisfy.
func checkFeasibility(n int, c Constraints) error {
	minW, maxW := c.MinWeight, c.MaxWeight
	if maxW <= 0 {
		maxW = 1.0
	}
	if minW < 0 || minW > maxW {
		return fmt.Errorf("min weight %.4f, max weight %.4f: %w", minW, maxW, domain.ErrInfeasibleConstraints)
	}
	if float64(n)*minW > 1.0+1e-9 {
		return fmt.Errorf("%d assets at min weight %.4f exceed 100%%: %w", n, minW, domain.ErrInfeasibleConstraints)
	}
	if float64(n)*maxW < 1.0-1e-9 {
		return fmt.Errorf("%d assets at max weight %.4f cannot reach 100%%: %w", n, maxW, domain.ErrInfeasibleConstraints)
	}
	return nil
}

// applyBoxConstraints clamps weights into [minW, maxW] and redistributes the
// imbalance proportionally to each asset's remaining headroom until the
// vector sums to 1 again.
func applyBoxConstraints(weights []float64, minW, maxW float64) []float64 {
	n := len(weights)
	if n == 0 {
		return weights
	}
	if maxW <= 0 || maxW > 1 {
		maxW = 1.0
	}

	out := make([]float64, n)
	copy(out, weights)

	for pass := 0; pass <= n; pass++ {
		sum := 0.0
		for i := range out {
			out[i] = math.Min(math.Max(out[i], minW), maxW)
			sum += out[i]
		}
		diff := 1.0 - sum
		if math.Abs(diff) < 1e-10 {
			break
		}

		// Headroom toward the bound the adjustment moves into.
		totalHeadroom := 0.0
		headroom := make([]float64, n)
		for i := range out {
			if diff > 0 {
				headroom[i] = maxW - out[i]
			} else {
				headroom[i] = out[i] - minW
			}
			totalHeadroom += headroom[i]
		}
		if totalHeadroom <= 0 {
			break
		}
		for i := range out {
			out[i] += diff * headroom[i] / totalHeadroom
		}
	}

	return out
}
