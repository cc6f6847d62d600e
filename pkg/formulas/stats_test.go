package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile_LinearInterpolation(t *testing.T) {
	data := []float64{4, 1, 3, 2, 5}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"min", 0, 1},
		{"max", 1, 5},
		{"median", 0.5, 3},
		{"q25", 0.25, 2},
		{"q33", 0.33, 2.32},
		{"q66", 0.66, 3.64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(data, tt.p), 1e-12)
		})
	}

	// input must not be reordered
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, data)
}

func TestQuantile_EdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.33))
	assert.Equal(t, 2.0, Quantile([]float64{2, 2, 2}, 0.66))
}

func TestQuantiles_MatchesQuantile(t *testing.T) {
	data := []float64{0.011, 0.019, 0.014, 0.022, 0.017, 0.013}
	qs := Quantiles(data, 0.33, 0.66)
	assert.InDelta(t, Quantile(data, 0.33), qs[0], 1e-15)
	assert.InDelta(t, Quantile(data, 0.66), qs[1], 1e-15)
	assert.Equal(t, []float64{0, 0}, Quantiles(nil, 0.1, 0.2))
}

func TestAverageRanks_Ties(t *testing.T) {
	ranks := AverageRanks([]float64{10, 20, 20, 5})
	assert.Equal(t, []float64{2, 3.5, 3.5, 1}, ranks)
}

func TestPercentileRanks(t *testing.T) {
	pct := PercentileRanks([]float64{0.01, 0.03, 0.02, 0.04})
	assert.InDeltaSlice(t, []float64{0.25, 0.75, 0.5, 1.0}, pct, 1e-12)
}

func TestDescendingRanks(t *testing.T) {
	ranks := DescendingRanks([]float64{0.01, 0.03, 0.02})
	assert.Equal(t, []float64{3, 1, 2}, ranks)
}

func TestSummaryHelpers(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, Mean(data), 1e-12)
	assert.InDelta(t, 2.5, Median(data), 1e-12)
	assert.InDelta(t, 1.2909944487, StdDev(data), 1e-9)
	assert.Equal(t, 1.0, Min(data))
	assert.Equal(t, 4.0, Max(data))

	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev([]float64{3}))
	assert.Equal(t, 0.0, Min(nil))
	assert.Equal(t, 0.0, Max(nil))
}

func TestAnnualize(t *testing.T) {
	assert.InDelta(t, 0.252, AnnualizeReturn(0.001), 1e-12)
	assert.InDelta(t, 0.01*15.874507866, AnnualizeVolatility(0.01), 1e-9)
}
