package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out, ok := SMA(values, 3)

	assert.Equal(t, []bool{false, false, true, true, true}, ok)
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 3.0, out[3], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

func TestSMA_ShortInput(t *testing.T) {
	out, ok := SMA([]float64{1, 2}, 5)
	assert.Len(t, out, 2)
	assert.Equal(t, []bool{false, false}, ok)
}

func TestSMA_PeriodOne(t *testing.T) {
	out, ok := SMA([]float64{3, 4}, 1)
	assert.Equal(t, []float64{3, 4}, out)
	assert.Equal(t, []bool{true, true}, ok)
}
