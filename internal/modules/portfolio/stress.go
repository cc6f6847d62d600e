package portfolio

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Scenario is a uniform market shock in percent (negative for a loss)
type Scenario struct {
	Name     string  `yaml:"name" json:"name" validate:"required"`
	ShockPct float64 `yaml:"shock_pct" json:"shock_pct" validate:"gte=-100,lte=100"`
}

// ScenarioSet is the stress configuration: a base portfolio value and the
// shocks to apply to it.
//
// Example file:
//
//	base_value: 250000
//	currency: EUR
//	scenarios:
//	  - name: Rate Shock
//	    shock_pct: -15
type ScenarioSet struct {
	BaseValue float64    `yaml:"base_value" json:"base_value" default:"1000000" validate:"gt=0"`
	Currency  string     `yaml:"currency" json:"currency" default:"USD" validate:"required"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios" validate:"dive"`
}

// DefaultScenarios returns the built-in shocks against a 1,000,000 base
func DefaultScenarios() *ScenarioSet {
	set := &ScenarioSet{}
	_ = defaults.Set(set)
	set.Scenarios = builtinScenarios()
	return set
}

func builtinScenarios() []Scenario {
	return []Scenario{
		{Name: "Mild Correction", ShockPct: -10},
		{Name: "Market Selloff", ShockPct: -20},
		{Name: "Financial Crisis", ShockPct: -30},
		{Name: "Black Swan", ShockPct: -40},
	}
}

// LoadScenarios reads a YAML scenario file. An empty path yields the defaults;
// a file without scenarios keeps the built-in shocks but its own base value.
func LoadScenarios(path string) (*ScenarioSet, error) {
	if path == "" {
		return DefaultScenarios(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	set := &ScenarioSet{}
	if err := yaml.Unmarshal(raw, set); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	if err := defaults.Set(set); err != nil {
		return nil, fmt.Errorf("failed to apply scenario defaults: %w", err)
	}
	if len(set.Scenarios) == 0 {
		set.Scenarios = builtinScenarios()
	}

	if err := validator.New().Struct(set); err != nil {
		return nil, fmt.Errorf("invalid scenario file %s: %w", path, err)
	}
	return set, nil
}

// StressResult is the outcome of one scenario. Money amounts are rounded to cents.
type StressResult struct {
	Scenario      string          `json:"scenario"`
	ShockPct      float64         `json:"shock_pct"`
	BaseValue     decimal.Decimal `json:"base_value"`
	StressedValue decimal.Decimal `json:"stressed_value"`
	Change        decimal.Decimal `json:"change"`
	Loss          decimal.Decimal `json:"loss"`
}

// Apply runs every scenario against the base value:
// stressed = base·(1 + shock/100), loss = base − stressed.
func (s *ScenarioSet) Apply() []StressResult {
	base := decimal.NewFromFloat(s.BaseValue)
	hundred := decimal.NewFromInt(100)

	out := make([]StressResult, len(s.Scenarios))
	for i, sc := range s.Scenarios {
		shock := decimal.NewFromFloat(sc.ShockPct).Div(hundred)
		stressed := base.Mul(decimal.NewFromInt(1).Add(shock)).Round(2)
		out[i] = StressResult{
			Scenario:      sc.Name,
			ShockPct:      sc.ShockPct,
			BaseValue:     base.Round(2),
			StressedValue: stressed,
			Change:        stressed.Sub(base).Round(2),
			Loss:          base.Sub(stressed).Round(2),
		}
	}
	return out
}

// WorstCase returns the scenario with the largest loss
func WorstCase(results []StressResult) (StressResult, bool) {
	if len(results) == 0 {
		return StressResult{}, false
	}
	worst := results[0]
	for _, r := range results[1:] {
		if r.Loss.GreaterThan(worst.Loss) {
			worst = r
		}
	}
	return worst, true
}
