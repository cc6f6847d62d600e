package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMA calculates the simple moving average of values over period.
// The first period-1 outputs have no full window; ok[i] reports whether
// out[i] is a valid average.
func SMA(values []float64, period int) (out []float64, ok []bool) {
	out = make([]float64, len(values))
	ok = make([]bool, len(values))
	if period <= 0 || len(values) < period {
		return out, ok
	}

	if period == 1 {
		copy(out, values)
		for i := range ok {
			ok[i] = true
		}
		return out, ok
	}

	sma := talib.Sma(values, period)
	for i := period - 1; i < len(values) && i < len(sma); i++ {
		out[i] = sma[i]
		ok[i] = true
	}
	return out, ok
}
