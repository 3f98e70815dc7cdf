package risk

import (
	"math"

	"github.com/quantfolio/engine/internal/domain"
)

// recoveryDaysPerPoint scales scenario losses into an estimated recovery
// horizon: five trading days per percentage point lost.
const recoveryDaysPerPoint = 5

// RunStressScenario applies one scenario to a set of holdings. Each holding
// takes its sector's shock when the scenario defines one, otherwise the
// market-wide shock.
func RunStressScenario(holdings []domain.Holding, totalValue float64, scenario Scenario) ScenarioResult {
	impactValue := 0.0
	worstSymbol := ""
	worstImpact := 0.0
	for _, h := range holdings {
		shock := scenario.MarketShock
		if s, ok := scenario.SectorShocks[h.Sector]; ok {
			shock = s
		}
		loss := h.MarketValue() * shock
		impactValue += loss
		if math.Abs(loss) > math.Abs(worstImpact) {
			worstSymbol = h.Symbol
			worstImpact = loss
		}
	}

	impactPct := 0.0
	if totalValue > 0 {
		impactPct = impactValue / totalValue
	}

	return ScenarioResult{
		Name:               scenario.Name,
		ImpactPct:          impactPct,
		ImpactValue:        impactValue,
		WorstHolding:       worstSymbol,
		WorstHoldingImpact: worstImpact,
		RecoveryDays:       int(math.Abs(impactPct) * 100 * recoveryDaysPerPoint),
	}
}

// RunStressScenarios applies every scenario in order.
func RunStressScenarios(holdings []domain.Holding, totalValue float64, scenarios []Scenario) []ScenarioResult {
	results := make([]ScenarioResult, len(scenarios))
	for i, s := range scenarios {
		results[i] = RunStressScenario(holdings, totalValue, s)
	}
	return results
}
