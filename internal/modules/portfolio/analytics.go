package portfolio

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/pkg/formulas"
)

// HighCorrelationThreshold is the |ρ| at which a pair is flagged as moving together
const HighCorrelationThreshold = 0.8

var (
	// ErrNoVolatility is returned when the portfolio volatility series is empty
	ErrNoVolatility = errors.New("portfolio volatility series is empty")
	// ErrInvalidWindow is returned for a moving-average window below 1
	ErrInvalidWindow = errors.New("moving average window must be at least 1")
)

// Verdict summarises the diversification ratio
type Verdict string

const (
	VerdictHealthy      Verdict = "healthy"
	VerdictConcentrated Verdict = "concentrated"
)

// Overview holds the headline portfolio metrics
type Overview struct {
	LatestDate           time.Time `json:"latest_date"`
	LatestVolatility     float64   `json:"latest_volatility"`
	WeightedReturn       float64   `json:"weighted_return"`
	WeightedVolatility   float64   `json:"weighted_volatility"`
	DiversificationRatio float64   `json:"diversification_ratio"`
	Defined              bool      `json:"diversification_defined"`
	Verdict              Verdict   `json:"verdict"`
	Holdings             int       `json:"holdings"`
	TotalWeightPercent   float64   `json:"total_weight_percent"`
}

// ComputeOverview combines the weights table with the latest observed volatility.
// The diversification ratio is weighted vol over latest vol; it is reported as 0
// and marked undefined when the latest vol is not positive.
func ComputeOverview(holdings []domain.Holding, series []domain.VolatilityObservation) (*Overview, error) {
	if len(series) == 0 {
		return nil, ErrNoVolatility
	}
	latest := series[len(series)-1]

	o := &Overview{
		LatestDate:       latest.Date,
		LatestVolatility: latest.Value,
		Holdings:         len(holdings),
		Verdict:          VerdictConcentrated,
	}
	for _, h := range holdings {
		w := h.Weight()
		o.WeightedReturn += h.AvgDailyReturn * w
		o.WeightedVolatility += h.AvgVolatility * w
		o.TotalWeightPercent += h.WeightPercent
	}

	if latest.Value > 0 {
		o.DiversificationRatio = o.WeightedVolatility / latest.Value
		o.Defined = true
		if o.DiversificationRatio > 1 {
			o.Verdict = VerdictHealthy
		}
	}
	return o, nil
}

// AllocationRow is one holding with its company name
type AllocationRow struct {
	domain.Holding
	Name string `json:"name"`
}

// Allocation returns the holdings ordered by weight, largest first
func Allocation(holdings []domain.Holding) []AllocationRow {
	out := make([]AllocationRow, len(holdings))
	for i, h := range holdings {
		out[i] = AllocationRow{Holding: h, Name: domain.TickerName(h.Ticker)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WeightPercent > out[j].WeightPercent
	})
	return out
}

// CorrelatedPair is a pair of tickers and their correlation
type CorrelatedPair struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Correlation float64 `json:"correlation"`
}

// CorrelationDiagnostics describes the off-diagonal entries of a matrix
type CorrelationDiagnostics struct {
	Average   float64          `json:"average"`
	Max       float64          `json:"max"`
	Min       float64          `json:"min"`
	Pairs     int              `json:"pairs"`
	HighPairs []CorrelatedPair `json:"high_pairs"`
}

// DiagnoseCorrelation scans every off-diagonal entry. HighPairs lists each
// unordered pair with |ρ| at or above HighCorrelationThreshold, strongest first.
func DiagnoseCorrelation(m *domain.CorrelationMatrix) CorrelationDiagnostics {
	d := CorrelationDiagnostics{HighPairs: []CorrelatedPair{}}
	if m == nil || m.Size() < 2 {
		return d
	}

	var off []float64
	for i := range m.Values {
		for j := range m.Values[i] {
			if i == j {
				continue
			}
			off = append(off, m.Values[i][j])
			if j > i && math.Abs(m.Values[i][j]) >= HighCorrelationThreshold {
				d.HighPairs = append(d.HighPairs, CorrelatedPair{
					A:           m.Tickers[i],
					B:           m.Tickers[j],
					Correlation: m.Values[i][j],
				})
			}
		}
	}

	d.Average = formulas.Mean(off)
	d.Max = formulas.Max(off)
	d.Min = formulas.Min(off)
	d.Pairs = len(off) / 2
	sort.SliceStable(d.HighPairs, func(i, j int) bool {
		return math.Abs(d.HighPairs[i].Correlation) > math.Abs(d.HighPairs[j].Correlation)
	})
	return d
}

// TrendPoint is one observation with its moving average
type TrendPoint struct {
	Date       time.Time `json:"date"`
	Volatility float64   `json:"volatility"`
	SMA        *float64  `json:"sma,omitempty"` // nil until the window fills
}

// VolatilityTrend is the portfolio volatility series with an SMA overlay
type VolatilityTrend struct {
	Window int          `json:"window"`
	Points []TrendPoint `json:"points"`
	Latest float64      `json:"latest"`
	Mean   float64      `json:"mean"`
	Min    float64      `json:"min"`
	Max    float64      `json:"max"`
}

// Trend overlays a simple moving average of the given window on the series
func Trend(series []domain.VolatilityObservation, window int) (*VolatilityTrend, error) {
	if window < 1 {
		return nil, ErrInvalidWindow
	}
	if len(series) == 0 {
		return nil, ErrNoVolatility
	}

	values := make([]float64, len(series))
	for i, o := range series {
		values[i] = o.Value
	}
	sma, ok := formulas.SMA(values, window)

	t := &VolatilityTrend{
		Window: window,
		Points: make([]TrendPoint, len(series)),
		Latest: values[len(values)-1],
		Mean:   formulas.Mean(values),
		Min:    formulas.Min(values),
		Max:    formulas.Max(values),
	}
	for i, o := range series {
		t.Points[i] = TrendPoint{Date: o.Date, Volatility: o.Value}
		if ok[i] {
			v := sma[i]
			t.Points[i].SMA = &v
		}
	}
	return t, nil
}
