package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfolio/engine/internal/domain"
)

// symmetryTolerance is the max allowed |Σ[i][j]-Σ[j][i]|.
const symmetryTolerance = 1e-10

// tikhonovLevels are the ridge terms tried, in order, when the covariance
// matrix is not positive definite as given.
var tikhonovLevels = []float64{0, 1e-10, 1e-8, 1e-6, 1e-4}

// ValidateCovariance checks that the matrix is square, symmetric within
// tolerance, has no negative diagonal entries and contains no NaN/Inf.
func ValidateCovariance(cov [][]float64) error {
	n := len(cov)
	if n == 0 {
		return fmt.Errorf("empty covariance matrix: %w", domain.ErrInvalidCovarianceMatrix)
	}
	for i := range cov {
		if len(cov[i]) != n {
			return fmt.Errorf("covariance row %d has %d columns, expected %d: %w",
				i, len(cov[i]), n, domain.ErrInvalidCovarianceMatrix)
		}
		for j := range cov[i] {
			v := cov[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("covariance[%d][%d] is not finite: %w", i, j, domain.ErrInvalidCovarianceMatrix)
			}
			if math.Abs(v-cov[j][i]) > symmetryTolerance {
				return fmt.Errorf("covariance asymmetric at [%d][%d]: %w", i, j, domain.ErrInvalidCovarianceMatrix)
			}
		}
		if cov[i][i] < 0 {
			return fmt.Errorf("negative variance at [%d][%d]: %w", i, i, domain.ErrInvalidCovarianceMatrix)
		}
	}
	return nil
}

// InvertCovariance computes a real inverse via Cholesky factorization. When
// the matrix is not positive definite it retries with escalating ridge terms
// on the diagonal; a matrix that stays singular is an error, never silently
// replaced by an approximation.
func InvertCovariance(cov [][]float64) (*mat.SymDense, error) {
	if err := ValidateCovariance(cov); err != nil {
		return nil, err
	}
	n := len(cov)

	for _, ridge := range tikhonovLevels {
		sym := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := cov[i][j]
				if i == j {
					v += ridge
				}
				sym.SetSym(i, j, v)
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(sym) {
			continue
		}
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err != nil {
			continue
		}
		return &inv, nil
	}

	return nil, fmt.Errorf("covariance matrix singular beyond regularization: %w",
		domain.ErrInvalidCovarianceMatrix)
}

// PortfolioVariance returns wᵀΣw.
func PortfolioVariance(cov [][]float64, weights []float64) float64 {
	variance := 0.0
	for i := range weights {
		for j := range weights {
			variance += weights[i] * cov[i][j] * weights[j]
		}
	}
	// Guard tiny negative values from floating point cancellation.
	if variance < 0 {
		return 0
	}
	return variance
}

// PortfolioRisk returns sqrt(wᵀΣw), in the same period units as Σ.
func PortfolioRisk(cov [][]float64, weights []float64) float64 {
	return math.Sqrt(PortfolioVariance(cov, weights))
}

// AnnualizedRisk converts daily portfolio risk to annual.
func AnnualizedRisk(cov [][]float64, weights []float64) float64 {
	return PortfolioRisk(cov, weights) * math.Sqrt(252)
}

// RiskContributions returns each asset's contribution to portfolio risk,
// RC_i = w_i·(Σw)_i / σ_p. Contributions sum to σ_p. A zero-risk portfolio
// yields all zeros.
func RiskContributions(cov [][]float64, weights []float64) []float64 {
	n := len(weights)
	contributions := make([]float64, n)

	sigma := PortfolioRisk(cov, weights)
	if sigma == 0 {
		return contributions
	}

	for i := 0; i < n; i++ {
		marginal := 0.0
		for j := 0; j < n; j++ {
			marginal += cov[i][j] * weights[j]
		}
		contributions[i] = weights[i] * marginal / sigma
	}
	return contributions
}

// DiversificationRatio is the weighted average of individual volatilities
// over portfolio volatility. 1.0 means no diversification benefit.
func DiversificationRatio(cov [][]float64, weights []float64) float64 {
	sigma := PortfolioRisk(cov, weights)
	if sigma == 0 {
		return 0
	}
	weightedVol := 0.0
	for i, w := range weights {
		weightedVol += w * math.Sqrt(cov[i][i])
	}
	return weightedVol / sigma
}

// HerfindahlIndex is the sum of squared weights; its reciprocal is the
// effective number of independent positions.
func HerfindahlIndex(weights []float64) float64 {
	hhi := 0.0
	for _, w := range weights {
		hhi += w * w
	}
	return hhi
}
