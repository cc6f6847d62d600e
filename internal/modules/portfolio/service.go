// Package portfolio provides portfolio-level risk analytics over the weights
// table, the correlation matrix and the portfolio volatility series.
package portfolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/internal/modules/contribution"
)

// Source provides the portfolio datasets
type Source interface {
	Holdings() ([]domain.Holding, error)
	Correlation() (*domain.CorrelationMatrix, error)
	Volatility() ([]domain.VolatilityObservation, error)
}

// CorrelationView is the heatmap plus its diagnostics
type CorrelationView struct {
	Tickers     []string               `json:"tickers"`
	Values      [][]float64            `json:"values"`
	Diagnostics CorrelationDiagnostics `json:"diagnostics"`
}

// ContributionRow joins a risk contribution with the holding it came from
type ContributionRow struct {
	contribution.AssetContribution
	Name           string  `json:"name"`
	WeightPercent  float64 `json:"weight_percent"`
	AvgDailyReturn float64 `json:"avg_daily_return"`
}

// Attribution is the full risk contribution breakdown, largest share first
type Attribution struct {
	PortfolioVolatility float64           `json:"portfolio_volatility"`
	Defined             bool              `json:"defined"`
	TopDriver           *ContributionRow  `json:"top_driver,omitempty"`
	Concentration       float64           `json:"concentration_pct"`
	Rows                []ContributionRow `json:"rows"`
}

// Top returns the first n rows (all of them when n <= 0)
func (a *Attribution) Top(n int) []ContributionRow {
	if n <= 0 || n >= len(a.Rows) {
		return a.Rows
	}
	return a.Rows[:n]
}

// StressReport is the result of every configured scenario
type StressReport struct {
	BaseValue float64        `json:"base_value"`
	Currency  string         `json:"currency"`
	Results   []StressResult `json:"results"`
	Worst     *StressResult  `json:"worst,omitempty"`
}

// Service computes portfolio analytics from the current datasets
type Service struct {
	source    Source
	scenarios *ScenarioSet
	log       zerolog.Logger
}

// NewService creates a new portfolio service. A nil scenario set uses the defaults.
func NewService(source Source, scenarios *ScenarioSet, log zerolog.Logger) *Service {
	if scenarios == nil {
		scenarios = DefaultScenarios()
	}
	return &Service{
		source:    source,
		scenarios: scenarios,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Overview returns the headline metrics
func (s *Service) Overview() (*Overview, error) {
	holdings, err := s.source.Holdings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	series, err := s.source.Volatility()
	if err != nil {
		return nil, fmt.Errorf("failed to load volatility series: %w", err)
	}

	o, err := ComputeOverview(holdings, series)
	if err != nil {
		return nil, err
	}
	if !o.Defined {
		s.log.Warn().
			Float64("latest_volatility", o.LatestVolatility).
			Msg("Diversification ratio undefined")
	}
	return o, nil
}

// Allocation returns the holdings by weight
func (s *Service) Allocation() ([]AllocationRow, error) {
	holdings, err := s.source.Holdings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	return Allocation(holdings), nil
}

// Correlation returns the full matrix and its diagnostics
func (s *Service) Correlation() (*CorrelationView, error) {
	m, err := s.source.Correlation()
	if err != nil {
		return nil, fmt.Errorf("failed to load correlation matrix: %w", err)
	}
	return &CorrelationView{
		Tickers:     m.Tickers,
		Values:      m.Values,
		Diagnostics: DiagnoseCorrelation(m),
	}, nil
}

// VolatilityTrend returns the series with an SMA overlay
func (s *Service) VolatilityTrend(window int) (*VolatilityTrend, error) {
	series, err := s.source.Volatility()
	if err != nil {
		return nil, fmt.Errorf("failed to load volatility series: %w", err)
	}
	return Trend(series, window)
}

// Contribution attributes portfolio volatility to the holdings. A zero-volatility
// portfolio is not an error here: the attribution comes back with Defined=false.
func (s *Service) Contribution() (*Attribution, error) {
	holdings, err := s.source.Holdings()
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	corr, err := s.source.Correlation()
	if err != nil {
		return nil, fmt.Errorf("failed to load correlation matrix: %w", err)
	}

	res, err := contribution.FromHoldings(holdings, corr)
	if errors.Is(err, contribution.ErrUndefinedContribution) {
		s.log.Warn().Int("holdings", len(holdings)).Msg("Risk contribution undefined for zero-volatility portfolio")
	} else if err != nil {
		return nil, err
	}

	byTicker := make(map[string]domain.Holding, len(holdings))
	for _, h := range holdings {
		byTicker[h.Ticker] = h
	}

	a := &Attribution{
		PortfolioVolatility: res.PortfolioVolatility,
		Defined:             res.Defined,
		Concentration:       res.Concentration(),
		Rows:                make([]ContributionRow, 0, len(res.Assets)),
	}
	for _, c := range res.Sorted() {
		h := byTicker[c.Ticker]
		a.Rows = append(a.Rows, ContributionRow{
			AssetContribution: c,
			Name:              domain.TickerName(c.Ticker),
			WeightPercent:     h.WeightPercent,
			AvgDailyReturn:    h.AvgDailyReturn,
		})
	}
	if res.Defined && len(a.Rows) > 0 {
		top := a.Rows[0]
		a.TopDriver = &top
	}
	return a, nil
}

// Stress applies the configured scenarios
func (s *Service) Stress() *StressReport {
	results := s.scenarios.Apply()
	r := &StressReport{
		BaseValue: s.scenarios.BaseValue,
		Currency:  s.scenarios.Currency,
		Results:   results,
	}
	if worst, ok := WorstCase(results); ok {
		r.Worst = &worst
	}
	return r
}
