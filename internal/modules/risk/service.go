package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/statistics"
)

// monteCarloSamples is the draw count for the simulated CVaR cross-check.
const monteCarloSamples = 10000

// StatsSource builds market statistics for a symbol universe.
type StatsSource interface {
	Build(ctx context.Context, symbols []string, window int) (*statistics.MarketStats, error)
}

// Service computes risk assessments and stress tests over stored portfolios.
type Service struct {
	stats        StatsSource
	holdings     domain.HoldingsProvider
	benchmarks   domain.BenchmarkProvider
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates a new risk service
func NewService(stats StatsSource, holdings domain.HoldingsProvider, benchmarks domain.BenchmarkProvider, riskFreeRate float64, log zerolog.Logger) *Service {
	return &Service{
		stats:        stats,
		holdings:     holdings,
		benchmarks:   benchmarks,
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "risk").Logger(),
	}
}

// AnalyzeRisk builds a full risk assessment for a portfolio. When benchmark
// is non-empty, benchmark-relative metrics are included.
func (s *Service) AnalyzeRisk(ctx context.Context, portfolioID, benchmark string) (*Assessment, error) {
	holdings, _, err := s.holdings.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("portfolio %s has no holdings: %w", portfolioID, domain.ErrInsufficientData)
	}

	symbols, weights := currentWeights(holdings)
	stats, err := s.stats.Build(ctx, symbols, riskWindow)
	if err != nil {
		return nil, err
	}

	weightBySymbol := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		weightBySymbol[sym] = weights[i]
	}
	portfolioReturns := weightedReturns(stats, weightBySymbol)
	if len(portfolioReturns) < 2 {
		return nil, fmt.Errorf("portfolio %s: %d return observations: %w",
			portfolioID, len(portfolioReturns), domain.ErrInsufficientData)
	}

	values := cumulativeValues(portfolioReturns)
	maxDD, troughDate := MaxDrawdown(values, stats.Dates)

	assessment := &Assessment{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Window:      riskWindow,

		VaR95:            CalculateVaR(portfolioReturns, 0.95),
		VaR99:            CalculateVaR(portfolioReturns, 0.99),
		CVaR95:           CalculateCVaR(portfolioReturns, 0.95),
		CVaR99:           CalculateCVaR(portfolioReturns, 0.99),
		MonteCarloCVaR95: MonteCarloCVaR(portfolioReturns, 0.95, monteCarloSamples),

		MaxDrawdown: maxDD,

		AnnualizedVolatility: AnnualizedVolatility(portfolioReturns),
		VolatilityRatio:      VolatilityRatio(portfolioReturns),

		SharpeRatio:  SharpeRatio(portfolioReturns, s.riskFreeRate),
		SortinoRatio: SortinoRatio(portfolioReturns, s.riskFreeRate),
		CalmarRatio:  CalmarRatio(portfolioReturns, maxDD),

		LowConfidence: stats.Quality.LowConfidence,
		CreatedAt:     time.Now().UTC(),
	}
	if !troughDate.IsZero() {
		assessment.MaxDrawdownDate = &troughDate
	}

	if benchmark != "" {
		benchReturns, err := s.benchmarks.GetBenchmarkReturns(ctx, benchmark, riskWindow)
		if err != nil {
			return nil, fmt.Errorf("benchmark metrics: %w", err)
		}
		p, b := alignTails(portfolioReturns, benchReturns)
		beta, alpha := BetaAlpha(p, b)
		assessment.Relative = &BenchmarkStats{
			Benchmark:        benchmark,
			Beta:             beta,
			Alpha:            alpha,
			Correlation:      Correlation(p, b),
			TrackingError:    TrackingError(p, b),
			InformationRatio: InformationRatio(p, b),
		}
	}

	s.log.Info().Str("portfolio", portfolioID).
		Float64("var_95", assessment.VaR95).
		Float64("max_drawdown", assessment.MaxDrawdown).
		Bool("low_confidence", assessment.LowConfidence).
		Msg("Risk assessment complete")

	return assessment, nil
}

// StressTest applies scenarios to a portfolio's current holdings. An empty
// scenario list runs the defaults.
func (s *Service) StressTest(ctx context.Context, portfolioID string, scenarios []Scenario) ([]ScenarioResult, error) {
	holdings, totalValue, err := s.holdings.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("portfolio %s has no holdings: %w", portfolioID, domain.ErrInsufficientData)
	}

	if len(scenarios) == 0 {
		scenarios = DefaultScenarios()
	}
	return RunStressScenarios(holdings, totalValue, scenarios), nil
}

// currentWeights derives weights from holding market values.
func currentWeights(holdings []domain.Holding) ([]string, []float64) {
	symbols := make([]string, len(holdings))
	weights := make([]float64, len(holdings))

	invested := 0.0
	for _, h := range holdings {
		invested += h.MarketValue()
	}
	for i, h := range holdings {
		symbols[i] = h.Symbol
		if invested > 0 {
			weights[i] = h.MarketValue() / invested
		}
	}
	return symbols, weights
}

// weightedReturns collapses per-symbol return series into the portfolio's
// daily return series. Weights are matched by symbol, so the statistics
// symbol ordering need not match the caller's.
func weightedReturns(stats *statistics.MarketStats, weights map[string]float64) []float64 {
	out := make([]float64, stats.Observations)
	for _, sym := range stats.Symbols {
		w := weights[sym]
		series := stats.Returns[sym]
		for t := 0; t < len(out) && t < len(series); t++ {
			out[t] += w * series[t]
		}
	}
	return out
}

// cumulativeValues grows a unit investment through the return series. The
// result has one more element than returns, matching the stats date axis.
func cumulativeValues(returns []float64) []float64 {
	values := make([]float64, len(returns)+1)
	values[0] = 1.0
	for i, r := range returns {
		values[i+1] = values[i] * (1 + r)
	}
	return values
}

// alignTails trims both series to their common most-recent length.
func alignTails(a, b []float64) ([]float64, []float64) {
	n := min(len(a), len(b))
	return a[len(a)-n:], b[len(b)-n:]
}
