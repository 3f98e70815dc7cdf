package rebalancing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// Service plans rebalances for stored portfolios.
type Service struct {
	holdings domain.HoldingsProvider
	planner  *Planner
	log      zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(holdings domain.HoldingsProvider, planner *Planner, log zerolog.Logger) *Service {
	return &Service{
		holdings: holdings,
		planner:  planner,
		log:      log.With().Str("component", "rebalancing").Logger(),
	}
}

// PlanRebalance builds a trade plan moving a stored portfolio to the target
// weights.
func (s *Service) PlanRebalance(ctx context.Context, portfolioID string, targets map[string]float64) (*Plan, error) {
	holdings, totalValue, err := s.holdings.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("portfolio %s has no holdings: %w", portfolioID, domain.ErrInsufficientData)
	}

	plan, err := s.planner.BuildPlan(holdings, totalValue, targets)
	if err != nil {
		return nil, err
	}
	plan.PortfolioID = portfolioID
	return plan, nil
}
