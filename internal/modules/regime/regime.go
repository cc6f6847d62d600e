// Package regime labels a portfolio volatility series as Low, Medium or High
// volatility using empirical 33rd/66th percentile thresholds.
package regime

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/pkg/formulas"
)

// ErrEmptySeries is returned when there is nothing to classify
var ErrEmptySeries = errors.New("volatility series is empty")

// ErrNonFiniteValue is returned when an observation is NaN or infinite
var ErrNonFiniteValue = errors.New("volatility observation is not finite")

// Label is a volatility regime
type Label string

const (
	// Low - at or below the 33rd percentile
	Low Label = "Low"
	// Medium - above the 33rd and at or below the 66th percentile
	Medium Label = "Medium"
	// High - above the 66th percentile
	High Label = "High"
)

// Labels lists every regime in display order
var Labels = []Label{Low, Medium, High}

// Method selects which observations the thresholds are estimated from
type Method string

const (
	// MethodRetrospective estimates thresholds once over the whole series.
	// Early labels therefore depend on later observations.
	MethodRetrospective Method = "retrospective"
	// MethodExpanding estimates the thresholds for observation i from
	// observations 0..i only.
	MethodExpanding Method = "expanding"
)

const (
	lowerPercentile = 0.33
	upperPercentile = 0.66
)

// ParseMethod maps a query value onto a Method. Empty means retrospective.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodRetrospective:
		return MethodRetrospective, nil
	case MethodExpanding:
		return MethodExpanding, nil
	default:
		return "", fmt.Errorf("unknown regime method %q", s)
	}
}

// Thresholds are the two percentile cut points
type Thresholds struct {
	Lower float64 `json:"q33"`
	Upper float64 `json:"q66"`
}

// Classify labels a single value
func (t Thresholds) Classify(v float64) Label {
	switch {
	case v <= t.Lower:
		return Low
	case v <= t.Upper:
		return Medium
	default:
		return High
	}
}

// Observation is one labelled point in the timeline
type Observation struct {
	Date       time.Time  `json:"date"`
	Volatility float64    `json:"volatility"`
	Regime     Label      `json:"regime"`
	Thresholds Thresholds `json:"thresholds"`
}

// Result is the classified series
type Result struct {
	Method        Method        `json:"method"`
	LookAheadBias bool          `json:"look_ahead_bias"`
	Thresholds    Thresholds    `json:"thresholds"`
	Observations  []Observation `json:"observations"`
	Counts        map[Label]int `json:"counts"`
	Current       Label         `json:"current"`
}

// ComputeThresholds returns the 33rd and 66th percentiles of values
func ComputeThresholds(values []float64) (Thresholds, error) {
	if len(values) == 0 {
		return Thresholds{}, ErrEmptySeries
	}
	q := formulas.Quantiles(values, lowerPercentile, upperPercentile)
	return Thresholds{Lower: q[0], Upper: q[1]}, nil
}

// Classify labels every observation of a date-ordered series
func Classify(series []domain.VolatilityObservation, method Method) (*Result, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	values := make([]float64, len(series))
	for i, obs := range series {
		if math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
			return nil, fmt.Errorf("%w: %s", ErrNonFiniteValue, obs.Date.Format("2006-01-02"))
		}
		values[i] = obs.Value
	}

	result := &Result{
		Method:       method,
		Observations: make([]Observation, len(series)),
		Counts:       make(map[Label]int, len(Labels)),
	}
	for _, l := range Labels {
		result.Counts[l] = 0
	}

	switch method {
	case MethodRetrospective, "":
		result.Method = MethodRetrospective
		result.LookAheadBias = true

		th, err := ComputeThresholds(values)
		if err != nil {
			return nil, err
		}
		result.Thresholds = th
		for i, obs := range series {
			result.Observations[i] = Observation{
				Date:       obs.Date,
				Volatility: obs.Value,
				Regime:     th.Classify(obs.Value),
				Thresholds: th,
			}
		}

	case MethodExpanding:
		// Keep a sorted prefix and insert each new value in place.
		sorted := make([]float64, 0, len(values))
		for i, obs := range series {
			pos := sort.SearchFloat64s(sorted, obs.Value)
			sorted = append(sorted, 0)
			copy(sorted[pos+1:], sorted[pos:])
			sorted[pos] = obs.Value

			th := Thresholds{
				Lower: formulas.QuantileSorted(sorted, lowerPercentile),
				Upper: formulas.QuantileSorted(sorted, upperPercentile),
			}
			result.Observations[i] = Observation{
				Date:       obs.Date,
				Volatility: obs.Value,
				Regime:     th.Classify(obs.Value),
				Thresholds: th,
			}
		}
		result.Thresholds = result.Observations[len(series)-1].Thresholds

	default:
		return nil, fmt.Errorf("unknown regime method %q", method)
	}

	for _, obs := range result.Observations {
		result.Counts[obs.Regime]++
	}
	result.Current = result.Observations[len(result.Observations)-1].Regime

	return result, nil
}

// Distribution returns the share of observations per regime, in percent
func (r *Result) Distribution() map[Label]float64 {
	out := make(map[Label]float64, len(Labels))
	total := len(r.Observations)
	for _, l := range Labels {
		if total == 0 {
			out[l] = 0
			continue
		}
		out[l] = 100 * float64(r.Counts[l]) / float64(total)
	}
	return out
}

// Latest returns the last observation
func (r *Result) Latest() Observation {
	return r.Observations[len(r.Observations)-1]
}
