// Package risk computes portfolio risk metrics: historical and Monte Carlo
// tail measures, drawdown, volatility diagnostics, benchmark-relative
// statistics and stress scenarios.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// tradingDays is the annualization factor for daily series.
const tradingDays = 252

// CalculateVaR returns historical Value at Risk at the given confidence
// level as a positive loss fraction. The estimate is the return at index
// floor((1-confidence)*n) of the ascending sort.
func CalculateVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return math.Abs(sorted[idx])
}

// CalculateCVaR returns the expected loss in the tail at or below the VaR
// threshold, as a positive fraction.
func CalculateCVaR(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}

	sum := 0.0
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	return math.Abs(sum / float64(idx+1))
}

// MaxDrawdown returns the largest peak-to-trough decline of a value series
// as a positive fraction, and the date of the trough. Dates may be nil.
func MaxDrawdown(values []float64, dates []time.Time) (float64, time.Time) {
	var troughDate time.Time
	if len(values) < 2 {
		return 0, troughDate
	}

	maxDrawdown := 0.0
	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
				if dates != nil && i < len(dates) {
					troughDate = dates[i]
				}
			}
		}
	}
	return maxDrawdown, troughDate
}

// AnnualizedVolatility converts the standard deviation of daily returns to
// an annual figure.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(tradingDays)
}

// SharpeRatio is the annualized excess return over annualized volatility.
// Zero volatility yields 0.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	vol := AnnualizedVolatility(returns)
	if vol == 0 {
		return 0
	}
	annualReturn := stat.Mean(returns, nil) * tradingDays
	return (annualReturn - riskFreeRate) / vol
}

// SortinoRatio penalizes only downside volatility. A series with no
// negative returns has no downside risk at all, which saturates the ratio
// rather than zeroing it.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sumSq := 0.0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
		}
	}
	downside := math.Sqrt(sumSq/float64(len(returns))) * math.Sqrt(tradingDays)

	annualReturn := stat.Mean(returns, nil) * tradingDays
	if downside == 0 {
		return math.MaxFloat64
	}
	return (annualReturn - riskFreeRate) / downside
}

// CalmarRatio is annualized return over maximum drawdown. Zero drawdown
// yields 0.
func CalmarRatio(returns []float64, maxDrawdown float64) float64 {
	if maxDrawdown == 0 || len(returns) == 0 {
		return 0
	}
	annualReturn := stat.Mean(returns, nil) * tradingDays
	return annualReturn / maxDrawdown
}

// BetaAlpha regresses portfolio returns on benchmark returns. Beta is
// cov(p,b)/var(b); alpha the annualized intercept. A flat benchmark yields
// zeros.
func BetaAlpha(portfolio, benchmark []float64) (float64, float64) {
	n := min(len(portfolio), len(benchmark))
	if n < 2 {
		return 0, 0
	}
	p, b := portfolio[:n], benchmark[:n]

	varB := stat.Variance(b, nil)
	if varB == 0 {
		return 0, 0
	}
	beta := stat.Covariance(p, b, nil) / varB
	alpha := (stat.Mean(p, nil) - beta*stat.Mean(b, nil)) * tradingDays
	return beta, alpha
}

// Correlation of portfolio and benchmark returns. 0 when either side is flat.
func Correlation(portfolio, benchmark []float64) float64 {
	n := min(len(portfolio), len(benchmark))
	if n < 2 {
		return 0
	}
	p, b := portfolio[:n], benchmark[:n]
	if stat.StdDev(p, nil) == 0 || stat.StdDev(b, nil) == 0 {
		return 0
	}
	return stat.Correlation(p, b, nil)
}

// TrackingError is the annualized standard deviation of active returns.
func TrackingError(portfolio, benchmark []float64) float64 {
	n := min(len(portfolio), len(benchmark))
	if n < 2 {
		return 0
	}
	active := make([]float64, n)
	for i := 0; i < n; i++ {
		active[i] = portfolio[i] - benchmark[i]
	}
	return stat.StdDev(active, nil) * math.Sqrt(tradingDays)
}

// InformationRatio is annualized active return over tracking error.
func InformationRatio(portfolio, benchmark []float64) float64 {
	te := TrackingError(portfolio, benchmark)
	if te == 0 {
		return 0
	}
	n := min(len(portfolio), len(benchmark))
	active := make([]float64, n)
	for i := 0; i < n; i++ {
		active[i] = portfolio[i] - benchmark[i]
	}
	return stat.Mean(active, nil) * tradingDays / te
}

// VolatilityRatio compares recent (60-day) to long-run volatility of a
// return series. Values above 1 mean volatility is elevated right now.
// Requires at least 60 observations.
func VolatilityRatio(returns []float64) float64 {
	const recentWindow = 60
	if len(returns) < recentWindow {
		return 0
	}

	rolling := talib.StdDev(returns, recentWindow, 1.0)
	recent := rolling[len(rolling)-1]
	longRun := stat.StdDev(returns, nil)
	if longRun == 0 {
		return 0
	}
	return recent / longRun
}

// MonteCarloCVaR estimates CVaR by sampling daily portfolio returns from a
// normal distribution with the portfolio's historical mean and volatility.
// It cross-checks the historical estimate on short windows.
func MonteCarloCVaR(returns []float64, confidence float64, samples int) float64 {
	if len(returns) < 2 || samples <= 0 {
		return 0
	}

	dist := distuv.Normal{
		Mu:    stat.Mean(returns, nil),
		Sigma: stat.StdDev(returns, nil),
	}
	if dist.Sigma == 0 {
		return 0
	}

	simulated := make([]float64, samples)
	for i := range simulated {
		simulated[i] = dist.Rand()
	}
	return CalculateCVaR(simulated, confidence)
}
