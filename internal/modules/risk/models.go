package risk

import "time"

// riskWindow is the lookback for risk assessments, in trading days.
// Annualized figures need a longer window than the optimizer's default.
const riskWindow = 252

// BenchmarkStats holds benchmark-relative metrics, present only when the
// caller named a benchmark.
type BenchmarkStats struct {
	Benchmark        string  `json:"benchmark"`
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"`
	Correlation      float64 `json:"correlation"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
}

// Assessment is a complete risk report for one portfolio.
type Assessment struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolio_id"`
	Window      int    `json:"window"`

	VaR95            float64 `json:"var_95"`
	VaR99            float64 `json:"var_99"`
	CVaR95           float64 `json:"cvar_95"`
	CVaR99           float64 `json:"cvar_99"`
	MonteCarloCVaR95 float64 `json:"monte_carlo_cvar_95"`

	MaxDrawdown     float64    `json:"max_drawdown"`
	MaxDrawdownDate *time.Time `json:"max_drawdown_date,omitempty"`

	AnnualizedVolatility float64 `json:"annualized_volatility"`
	VolatilityRatio      float64 `json:"volatility_ratio"`

	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`

	Relative *BenchmarkStats `json:"relative,omitempty"`

	LowConfidence bool      `json:"low_confidence,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Scenario is a hypothetical market move. MarketShock applies to every
// holding unless a SectorShocks entry overrides it for that sector.
type Scenario struct {
	Name         string             `json:"name"`
	MarketShock  float64            `json:"market_shock"`
	SectorShocks map[string]float64 `json:"sector_shocks,omitempty"`
}

// ScenarioResult reports one scenario's impact. WorstHolding identifies the
// position with the largest absolute shocked loss.
type ScenarioResult struct {
	Name               string  `json:"name"`
	ImpactPct          float64 `json:"impact_pct"`
	ImpactValue        float64 `json:"impact_value"`
	WorstHolding       string  `json:"worst_holding,omitempty"`
	WorstHoldingImpact float64 `json:"worst_holding_impact"`
	RecoveryDays       int     `json:"recovery_days"`
}

// DefaultScenarios returns the stock set of stress scenarios applied when a
// request names none.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "2008 Financial Crisis",
			MarketShock: -0.40,
			SectorShocks: map[string]float64{
				"Financials":  -0.55,
				"Real Estate": -0.50,
			},
		},
		{
			Name:        "2020 Pandemic Crash",
			MarketShock: -0.30,
			SectorShocks: map[string]float64{
				"Energy":     -0.45,
				"Technology": -0.20,
			},
		},
		{
			Name:        "Rate Shock",
			MarketShock: -0.15,
			SectorShocks: map[string]float64{
				"Technology":  -0.25,
				"Utilities":   -0.20,
				"Real Estate": -0.22,
			},
		},
		{
			Name:        "Mild Correction",
			MarketShock: -0.10,
		},
	}
}
