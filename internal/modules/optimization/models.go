// Package optimization implements mean-variance portfolio construction:
// closed-form minimum-risk and maximum-Sharpe solutions, risk parity,
// greedy return maximization and the efficient frontier.
package optimization

import (
	"time"

	"github.com/quantfolio/engine/internal/modules/rebalancing"
)

// Objective selects the optimization target.
type Objective string

const (
	ObjectiveMinRisk     Objective = "MIN_RISK"
	ObjectiveMaxReturn   Objective = "MAX_RETURN"
	ObjectiveMaxSharpe   Objective = "MAX_SHARPE"
	ObjectiveRiskParity  Objective = "RISK_PARITY"
	ObjectiveEqualWeight Objective = "EQUAL_WEIGHT"
)

// Valid reports whether the objective is one of the supported values.
func (o Objective) Valid() bool {
	switch o {
	case ObjectiveMinRisk, ObjectiveMaxReturn, ObjectiveMaxSharpe,
		ObjectiveRiskParity, ObjectiveEqualWeight:
		return true
	}
	return false
}

// Constraints bounds the weight vector. MaxRisk caps annualized portfolio
// risk for MAX_RETURN; nil means no ceiling. TargetReturn pins a frontier
// build to the single portfolio whose expected return matches it.
type Constraints struct {
	MinWeight    float64  `json:"min_weight"`
	MaxWeight    float64  `json:"max_weight"`
	MaxRisk      *float64 `json:"max_risk,omitempty"`
	TargetReturn *float64 `json:"target_return,omitempty"`
	RiskFreeRate float64  `json:"risk_free_rate"`
}

// DefaultConstraints returns unconstrained long-only bounds.
func DefaultConstraints() Constraints {
	return Constraints{MinWeight: 0.0, MaxWeight: 1.0}
}

// Allocation is one asset's share of the optimized portfolio. The trade
// fields compare the target against the portfolio's current position; they
// are zero when the optimization ran over a bare symbol universe.
type Allocation struct {
	Symbol        string             `json:"symbol"`
	Weight        float64            `json:"weight"`
	CurrentWeight float64            `json:"current_weight,omitempty"`
	Action        rebalancing.Action `json:"action,omitempty"`
	Quantity      int64              `json:"quantity,omitempty"`
	Amount        float64            `json:"amount,omitempty"`
}

// PortfolioMetrics summarizes an optimized weight vector.
type PortfolioMetrics struct {
	ExpectedReturn       float64 `json:"expected_return"`
	Risk                 float64 `json:"risk"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	DiversificationRatio float64 `json:"diversification_ratio"`
	HerfindahlIndex      float64 `json:"herfindahl_index"`
	EffectiveAssets      float64 `json:"effective_assets"`
}

// Result is a completed optimization run. RebalancingNeeded and Cost are set
// when the run was planned against a stored portfolio's current holdings.
type Result struct {
	ID                string                     `json:"id"`
	Objective         Objective                  `json:"objective"`
	Allocations       []Allocation               `json:"allocations"`
	Metrics           PortfolioMetrics           `json:"metrics"`
	RebalancingNeeded bool                       `json:"rebalancing_needed"`
	Cost              *rebalancing.CostBreakdown `json:"cost,omitempty"`
	Iterations        int                        `json:"iterations,omitempty"`
	Converged         bool                       `json:"converged"`
	LowConfidence     bool                       `json:"low_confidence,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
}

// FrontierPoint is one portfolio on the efficient frontier.
type FrontierPoint struct {
	Risk    float64            `json:"risk"`
	Return  float64            `json:"return"`
	Sharpe  float64            `json:"sharpe"`
	Weights map[string]float64 `json:"weights"`
}
