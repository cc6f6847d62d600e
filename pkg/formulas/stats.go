package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is used to annualise daily statistics
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (N-1 denominator)
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Min returns the smallest value, or 0 for an empty slice
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Min(data)
}

// Max returns the largest value, or 0 for an empty slice
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Max(data)
}

// Median returns the 50th percentile using linear interpolation
func Median(data []float64) float64 {
	return Quantile(data, 0.5)
}

// Quantile returns the p-th empirical quantile using linear interpolation
// between closest ranks: h = (n-1)p, q = x[floor(h)] + (h-floor(h)) * (x[floor(h)+1]-x[floor(h)]).
// This is the convention used by the pipeline that produces the datasets.
// The input slice is not modified.
func Quantile(data []float64, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	return QuantileSorted(sorted, p)
}

// QuantileSorted is Quantile over data already sorted ascending. It panics on
// an empty slice.
func QuantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Quantiles computes several quantiles with a single sort
func Quantiles(data []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	if len(data) == 0 {
		return out
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	for i, p := range ps {
		out[i] = QuantileSorted(sorted, p)
	}
	return out
}

// AverageRanks returns 1-based ascending ranks, ties receiving the mean of
// the ranks they span.
func AverageRanks(data []float64) []float64 {
	n := len(data)
	ranks := make([]float64, n)
	if n == 0 {
		return ranks
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return data[idx[a]] < data[idx[b]]
	})

	for i := 0; i < n; {
		j := i
		for j+1 < n && data[idx[j+1]] == data[idx[i]] {
			j++
		}
		// positions i..j share rank ((i+1)+(j+1))/2
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	return ranks
}

// PercentileRanks returns AverageRanks(data)/n, i.e. each value's position in
// the distribution in (0, 1].
func PercentileRanks(data []float64) []float64 {
	ranks := AverageRanks(data)
	n := float64(len(data))
	for i := range ranks {
		ranks[i] /= n
	}
	return ranks
}

// DescendingRanks returns 1-based ranks where the largest value is 1
func DescendingRanks(data []float64) []float64 {
	neg := make([]float64, len(data))
	for i, v := range data {
		neg[i] = -v
	}
	return AverageRanks(neg)
}

// AnnualizeReturn scales a mean daily return to a yearly figure
func AnnualizeReturn(daily float64) float64 {
	return daily * TradingDaysPerYear
}

// AnnualizeVolatility scales a daily volatility by sqrt(252)
func AnnualizeVolatility(daily float64) float64 {
	return daily * math.Sqrt(TradingDaysPerYear)
}
