package regime

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskterm/internal/domain"
)

func series(values ...float64) []domain.VolatilityObservation {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.VolatilityObservation, len(values))
	for i, v := range values {
		out[i] = domain.VolatilityObservation{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func labels(r *Result) []Label {
	out := make([]Label, len(r.Observations))
	for i, o := range r.Observations {
		out[i] = o.Regime
	}
	return out
}

func TestComputeThresholds(t *testing.T) {
	th, err := ComputeThresholds([]float64{4, 1, 3, 2, 5})
	require.NoError(t, err)
	assert.InDelta(t, 2.32, th.Lower, 1e-9)
	assert.InDelta(t, 3.64, th.Upper, 1e-9)

	_, err = ComputeThresholds(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestThresholds_Classify(t *testing.T) {
	th := Thresholds{Lower: 1, Upper: 2}

	tests := []struct {
		value float64
		want  Label
	}{
		{0.5, Low},
		{1, Low},
		{1.5, Medium},
		{2, Medium},
		{2.01, High},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.Classify(tt.value), "value %v", tt.value)
	}
}

func TestClassify_Retrospective(t *testing.T) {
	r, err := Classify(series(1, 2, 3, 4, 5), MethodRetrospective)
	require.NoError(t, err)

	assert.True(t, r.LookAheadBias)
	assert.Equal(t, []Label{Low, Low, Medium, High, High}, labels(r))
	assert.Equal(t, map[Label]int{Low: 2, Medium: 1, High: 2}, r.Counts)
	assert.Equal(t, High, r.Current)
	assert.InDelta(t, 2.32, r.Thresholds.Lower, 1e-9)

	dist := r.Distribution()
	assert.InDelta(t, 40.0, dist[Low], 1e-9)
	assert.InDelta(t, 20.0, dist[Medium], 1e-9)
}

func TestClassify_Expanding(t *testing.T) {
	r, err := Classify(series(5, 4, 3, 2, 1), MethodExpanding)
	require.NoError(t, err)

	assert.False(t, r.LookAheadBias)
	// Each new value is the lowest seen so far.
	assert.Equal(t, []Label{Low, Low, Low, Low, Low}, labels(r))
	assert.Equal(t, r.Observations[4].Thresholds, r.Thresholds)

	retro, err := Classify(series(5, 4, 3, 2, 1), MethodRetrospective)
	require.NoError(t, err)
	assert.Equal(t, []Label{High, High, Medium, Low, Low}, labels(retro))
}

func TestClassify_ExpandingIsCausal(t *testing.T) {
	base := series(1, 2, 3, 4, 5)
	extended := series(1, 2, 3, 4, 5, 100, 0.1)

	a, err := Classify(base, MethodExpanding)
	require.NoError(t, err)
	b, err := Classify(extended, MethodExpanding)
	require.NoError(t, err)

	for i := range a.Observations {
		assert.Equal(t, a.Observations[i], b.Observations[i])
	}
}

func TestClassify_ConstantSeries(t *testing.T) {
	for _, m := range []Method{MethodRetrospective, MethodExpanding} {
		r, err := Classify(series(0.2, 0.2, 0.2, 0.2), m)
		require.NoError(t, err)
		for _, l := range labels(r) {
			assert.Equal(t, Low, l)
		}
		assert.Equal(t, 4, r.Counts[Low])
		assert.Equal(t, 0, r.Counts[High])
	}
}

func TestClassify_SingleObservation(t *testing.T) {
	r, err := Classify(series(0.3), MethodRetrospective)
	require.NoError(t, err)
	assert.Equal(t, Low, r.Current)
	assert.Len(t, r.Counts, 3)
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(nil, MethodRetrospective)
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, err = Classify(series(1), Method("bogus"))
	assert.Error(t, err)

	for _, m := range []Method{MethodRetrospective, MethodExpanding} {
		_, err = Classify(series(0.1, math.NaN(), 0.3), m)
		assert.ErrorIs(t, err, ErrNonFiniteValue)
		_, err = Classify(series(0.1, math.Inf(1)), m)
		assert.ErrorIs(t, err, ErrNonFiniteValue)
	}
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodRetrospective, m)

	m, err = ParseMethod("Expanding")
	require.NoError(t, err)
	assert.Equal(t, MethodExpanding, m)

	_, err = ParseMethod("future")
	assert.Error(t, err)
}
