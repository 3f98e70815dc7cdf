package rebalancing

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantfolio/engine/internal/domain"
)

// Planner diffs current against target allocations and prices the trades.
type Planner struct {
	costs     CostModel
	threshold float64
	log       zerolog.Logger
}

// NewPlanner creates a planner. A non-positive threshold falls back to the
// default 5% drift band.
func NewPlanner(costs CostModel, threshold float64, log zerolog.Logger) *Planner {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Planner{
		costs:     costs,
		threshold: threshold,
		log:       log.With().Str("component", "rebalance_planner").Logger(),
	}
}

// BuildPlan computes the trades that move a portfolio from its current
// holdings to the target weights. Target weights must sum to ~1; symbols
// absent from the targets are treated as zero-weight (full exit).
func (p *Planner) BuildPlan(holdings []domain.Holding, totalValue float64, targets map[string]float64) (*Plan, error) {
	if len(holdings) == 0 && len(targets) == 0 {
		return nil, fmt.Errorf("rebalance: %w", domain.ErrInsufficientData)
	}
	if totalValue <= 0 {
		return nil, fmt.Errorf("rebalance: portfolio value %.2f: %w", totalValue, domain.ErrInsufficientData)
	}

	sum := 0.0
	for sym, w := range targets {
		if w < 0 {
			return nil, fmt.Errorf("negative target weight for %s: %w", sym, domain.ErrInvalidAllocationTargets)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > targetSumTolerance {
		return nil, fmt.Errorf("target weights sum to %.6f: %w", sum, domain.ErrInvalidAllocationTargets)
	}

	current := make(map[string]float64, len(holdings))
	prices := make(map[string]float64, len(holdings))
	var symbols []string
	for _, h := range holdings {
		current[h.Symbol] = h.MarketValue() / totalValue
		prices[h.Symbol] = h.CurrentPrice
		symbols = append(symbols, h.Symbol)
	}
	// Targets may introduce positions the portfolio does not hold yet.
	for sym := range targets {
		if _, held := current[sym]; !held {
			symbols = append(symbols, sym)
		}
	}

	plan := &Plan{
		ID:        uuid.New().String(),
		Trades:    make([]Trade, 0, len(symbols)),
		CreatedAt: time.Now().UTC(),
	}

	numTrades := 0
	for _, sym := range symbols {
		cur := current[sym]
		tgt := targets[sym]
		delta := tgt - cur

		trade := Trade{
			Symbol:        sym,
			CurrentWeight: cur,
			TargetWeight:  tgt,
			WeightDelta:   delta,
			Price:         prices[sym],
		}

		if math.Abs(delta) <= p.threshold {
			trade.Action = ActionHold
			plan.Trades = append(plan.Trades, trade)
			continue
		}

		tradeValue := math.Abs(delta) * totalValue
		if trade.Price > 0 {
			trade.Quantity = int64(math.Floor(tradeValue / trade.Price))
		}
		trade.Value = tradeValue
		if delta > 0 {
			trade.Action = ActionBuy
		} else {
			trade.Action = ActionSell
		}

		// A trade that rounds to zero units cannot execute.
		if trade.Quantity == 0 && trade.Price > 0 {
			trade.Action = ActionHold
			trade.Value = 0
		} else {
			plan.Turnover += tradeValue
			numTrades++
		}
		plan.Trades = append(plan.Trades, trade)
	}

	plan.Cost = p.estimateCost(numTrades, plan.Turnover)

	p.log.Debug().Int("trades", numTrades).
		Float64("turnover", plan.Turnover).
		Float64("cost", plan.Cost.Total).
		Msg("Built rebalance plan")

	return plan, nil
}

// estimateCost prices the plan under the configured cost model.
func (p *Planner) estimateCost(numTrades int, turnover float64) CostBreakdown {
	c := CostBreakdown{
		Fixed:        p.costs.FixedCost * float64(numTrades),
		Variable:     p.costs.VariableRate * turnover,
		MarketImpact: p.costs.MarketImpactRate * turnover,
	}
	c.Total = c.Fixed + c.Variable + c.MarketImpact
	return c
}
