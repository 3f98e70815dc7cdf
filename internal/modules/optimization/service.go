package optimization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
	"github.com/quantfolio/engine/internal/modules/rebalancing"
	"github.com/quantfolio/engine/internal/modules/statistics"
)

// StatsSource builds market statistics for a symbol universe.
type StatsSource interface {
	Build(ctx context.Context, symbols []string, window int) (*statistics.MarketStats, error)
}

// Service orchestrates optimization over stored portfolios: it loads
// holdings, builds statistics and runs the requested objective.
type Service struct {
	stats     StatsSource
	holdings  domain.HoldingsProvider
	optimizer *Optimizer
	frontier  *FrontierBuilder
	planner   *rebalancing.Planner
	window    int
	log       zerolog.Logger
}

// NewService creates a new optimization service
func NewService(stats StatsSource, holdings domain.HoldingsProvider, optimizer *Optimizer, frontier *FrontierBuilder, planner *rebalancing.Planner, window int, log zerolog.Logger) *Service {
	if window <= 0 {
		window = statistics.DefaultWindow
	}
	return &Service{
		stats:     stats,
		holdings:  holdings,
		optimizer: optimizer,
		frontier:  frontier,
		planner:   planner,
		window:    window,
		log:       log.With().Str("component", "optimization").Logger(),
	}
}

// OptimizePortfolio runs an objective over a stored portfolio's holdings.
// The result carries per-asset trade actions and an estimated cost for
// moving the portfolio onto the optimized targets.
func (s *Service) OptimizePortfolio(ctx context.Context, portfolioID string, objective Objective, constraints Constraints) (*Result, error) {
	holdings, totalValue, err := s.holdings.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("portfolio %s has no holdings: %w", portfolioID, domain.ErrInsufficientData)
	}

	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}

	result, err := s.OptimizeUniverse(ctx, symbols, objective, constraints)
	if err != nil {
		return nil, err
	}

	s.attachRebalance(result, holdings, totalValue)
	return result, nil
}

// OptimizeUniverse runs an objective over an arbitrary symbol universe.
func (s *Service) OptimizeUniverse(ctx context.Context, symbols []string, objective Objective, constraints Constraints) (*Result, error) {
	stats, err := s.stats.Build(ctx, symbols, s.window)
	if err != nil {
		return nil, err
	}

	weights, iterations, converged, err := s.optimizer.ComputeWeights(
		stats.Symbols, stats.ExpectedReturns, stats.Covariance, objective, constraints)
	if err != nil {
		return nil, err
	}

	return s.buildResult(stats, weights, objective, constraints, iterations, converged), nil
}

// BuildFrontier computes the efficient frontier for a stored portfolio.
func (s *Service) BuildFrontier(ctx context.Context, portfolioID string, constraints Constraints, pointCount int) ([]FrontierPoint, error) {
	symbols, err := s.portfolioSymbols(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.Build(ctx, symbols, s.window)
	if err != nil {
		return nil, err
	}

	return s.frontier.Build(stats.Symbols, stats.ExpectedReturns, stats.Covariance, constraints, pointCount)
}

// RiskParityFromCovariance runs risk parity directly on a caller-supplied
// covariance matrix, for callers that precompute their own statistics.
// Symbols may be empty, in which case positional names are generated.
func (s *Service) RiskParityFromCovariance(symbols []string, cov [][]float64, constraints Constraints) (*Result, error) {
	n := len(cov)
	if n == 0 {
		return nil, fmt.Errorf("risk parity: %w", domain.ErrInsufficientData)
	}
	if len(symbols) == 0 {
		symbols = make([]string, n)
		for i := range symbols {
			symbols[i] = fmt.Sprintf("asset_%d", i)
		}
	}
	if len(symbols) != n {
		return nil, fmt.Errorf("risk parity: %d symbols for %d covariance rows: %w",
			len(symbols), n, domain.ErrInvalidCovarianceMatrix)
	}

	mu := make([]float64, n)
	weights, iterations, converged, err := s.optimizer.ComputeWeights(symbols, mu, cov, ObjectiveRiskParity, constraints)
	if err != nil {
		return nil, err
	}

	stats := &statistics.MarketStats{Symbols: symbols, Covariance: cov, ExpectedReturns: mu}
	return s.buildResult(stats, weights, ObjectiveRiskParity, constraints, iterations, converged), nil
}

func (s *Service) portfolioSymbols(ctx context.Context, portfolioID string) ([]string, error) {
	holdings, _, err := s.holdings.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("portfolio %s has no holdings: %w", portfolioID, domain.ErrInsufficientData)
	}
	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	return symbols, nil
}

// attachRebalance plans the move from the portfolio's current book to the
// optimized targets and folds the trades into the allocations.
func (s *Service) attachRebalance(result *Result, holdings []domain.Holding, totalValue float64) {
	if s.planner == nil || totalValue <= 0 {
		return
	}

	targets := make(map[string]float64, len(result.Allocations))
	for _, a := range result.Allocations {
		targets[a.Symbol] = a.Weight
	}

	plan, err := s.planner.BuildPlan(holdings, totalValue, targets)
	if err != nil {
		s.log.Warn().Err(err).Msg("Could not plan trades for optimization result")
		return
	}

	trades := make(map[string]rebalancing.Trade, len(plan.Trades))
	for _, tr := range plan.Trades {
		trades[tr.Symbol] = tr
	}
	for i := range result.Allocations {
		tr, ok := trades[result.Allocations[i].Symbol]
		if !ok {
			continue
		}
		result.Allocations[i].CurrentWeight = tr.CurrentWeight
		result.Allocations[i].Action = tr.Action
		result.Allocations[i].Quantity = tr.Quantity
		result.Allocations[i].Amount = tr.Value
		if tr.Action != rebalancing.ActionHold {
			result.RebalancingNeeded = true
		}
	}
	result.Cost = &plan.Cost
}

func (s *Service) buildResult(stats *statistics.MarketStats, weights []float64, objective Objective, constraints Constraints, iterations int, converged bool) *Result {
	allocations := make([]Allocation, len(stats.Symbols))
	expectedReturn := 0.0
	for i, sym := range stats.Symbols {
		allocations[i] = Allocation{Symbol: sym, Weight: weights[i]}
		expectedReturn += weights[i] * stats.ExpectedReturns[i]
	}

	risk := AnnualizedRisk(stats.Covariance, weights)
	sharpe := 0.0
	if risk > 0 {
		sharpe = (expectedReturn - constraints.RiskFreeRate) / risk
	}

	hhi := HerfindahlIndex(weights)
	effective := 0.0
	if hhi > 0 {
		effective = 1.0 / hhi
	}

	result := &Result{
		ID:          uuid.New().String(),
		Objective:   objective,
		Allocations: allocations,
		Metrics: PortfolioMetrics{
			ExpectedReturn:       expectedReturn,
			Risk:                 risk,
			SharpeRatio:          sharpe,
			DiversificationRatio: DiversificationRatio(stats.Covariance, weights),
			HerfindahlIndex:      hhi,
			EffectiveAssets:      effective,
		},
		Iterations:    iterations,
		Converged:     converged,
		LowConfidence: stats.Quality.LowConfidence,
		CreatedAt:     time.Now().UTC(),
	}

	s.log.Info().Str("objective", string(objective)).
		Float64("risk", risk).Float64("expected_return", expectedReturn).
		Bool("low_confidence", result.LowConfidence).Msg("Optimization complete")

	return result
}
