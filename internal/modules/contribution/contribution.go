// Package contribution attributes portfolio volatility to individual holdings.
//
// Given weights w, volatilities σ and a correlation matrix C over the same
// ordered assets:
//
//	Σ[i][j] = σ[i]·σ[j]·C[i][j]
//	pv      = sqrt(wᵀΣw)
//	m       = Σw / pv          (marginal contribution)
//	t[i]    = w[i]·m[i]        (total contribution, Σt = pv)
//	pct[i]  = 100·t[i] / Σt
//
// When pv is zero the marginal contribution is undefined. Compute then
// returns ErrUndefinedContribution together with a Result whose Defined flag
// is false and whose per-asset contributions are zero. NaN is never produced.
package contribution

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/riskterm/internal/domain"
)

var (
	// ErrUndefinedContribution means portfolio volatility is zero or not finite
	ErrUndefinedContribution = errors.New("risk contribution undefined: portfolio volatility is zero or not finite")
	// ErrDimensionMismatch means weights, volatilities and correlations disagree in size
	ErrDimensionMismatch = errors.New("risk inputs have mismatched dimensions")
	// ErrEmptyPortfolio means there are no assets to attribute
	ErrEmptyPortfolio = errors.New("portfolio has no assets")
)

// AssetContribution is one asset's share of portfolio risk
type AssetContribution struct {
	Ticker     string  `json:"ticker"`
	Weight     float64 `json:"weight"`
	Volatility float64 `json:"volatility"`
	Marginal   float64 `json:"marginal_contribution"`
	Total      float64 `json:"total_contribution"`
	Percent    float64 `json:"risk_contribution_pct"`
}

// Result is the output of Compute
type Result struct {
	PortfolioVariance   float64             `json:"portfolio_variance"`
	PortfolioVolatility float64             `json:"portfolio_volatility"`
	Defined             bool                `json:"defined"`
	Assets              []AssetContribution `json:"assets"`
}

// CovarianceMatrix builds Σ[i][j] = σ[i]·σ[j]·C[i][j].
// The result is symmetrised from the upper triangle of corr.
func CovarianceMatrix(vols []float64, corr [][]float64) *mat.SymDense {
	n := len(vols)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, vols[i]*vols[j]*corr[i][j])
		}
	}
	return cov
}

// Compute attributes portfolio volatility across assets.
// weights are fractions (see FromPercent), vols are non-negative and corr is
// n×n in the same order as tickers.
func Compute(tickers []string, weights, vols []float64, corr [][]float64) (*Result, error) {
	n := len(tickers)
	if n == 0 {
		return nil, ErrEmptyPortfolio
	}
	if len(weights) != n || len(vols) != n || len(corr) != n {
		return nil, fmt.Errorf("%w: %d tickers, %d weights, %d volatilities, %d correlation rows",
			ErrDimensionMismatch, n, len(weights), len(vols), len(corr))
	}
	for i, row := range corr {
		if len(row) != n {
			return nil, fmt.Errorf("%w: correlation row %d has %d columns", ErrDimensionMismatch, i, len(row))
		}
	}

	cov := CovarianceMatrix(vols, corr)
	w := mat.NewVecDense(n, append([]float64(nil), weights...))

	var sw mat.VecDense
	sw.MulVec(cov, w)

	variance := mat.Dot(w, &sw)

	result := &Result{
		PortfolioVariance: variance,
		Assets:            make([]AssetContribution, n),
	}
	for i := range result.Assets {
		result.Assets[i] = AssetContribution{
			Ticker:     tickers[i],
			Weight:     weights[i],
			Volatility: vols[i],
		}
	}

	// A non-PSD correlation input can drive the variance slightly negative.
	if !(variance > 0) || math.IsInf(variance, 0) {
		result.PortfolioVariance = 0
		return result, ErrUndefinedContribution
	}

	pv := math.Sqrt(variance)
	result.PortfolioVolatility = pv

	var sumTotal float64
	for i := range result.Assets {
		marginal := sw.AtVec(i) / pv
		result.Assets[i].Marginal = marginal
		result.Assets[i].Total = weights[i] * marginal
		sumTotal += result.Assets[i].Total
	}

	if sumTotal == 0 || math.IsNaN(sumTotal) {
		return result, ErrUndefinedContribution
	}

	for i := range result.Assets {
		result.Assets[i].Percent = 100 * result.Assets[i].Total / sumTotal
	}
	result.Defined = true

	return result, nil
}

// FromPercent converts percentage-point weights into fractions
func FromPercent(percent []float64) []float64 {
	out := make([]float64, len(percent))
	for i, p := range percent {
		out[i] = p / 100
	}
	return out
}

// FromHoldings runs Compute over the weights table, aligning the correlation
// matrix to the holdings' ticker order by label.
func FromHoldings(holdings []domain.Holding, corr *domain.CorrelationMatrix) (*Result, error) {
	if len(holdings) == 0 {
		return nil, ErrEmptyPortfolio
	}
	if corr == nil {
		return nil, fmt.Errorf("%w: no correlation matrix", ErrDimensionMismatch)
	}

	tickers := make([]string, len(holdings))
	weights := make([]float64, len(holdings))
	vols := make([]float64, len(holdings))
	for i, h := range holdings {
		tickers[i] = h.Ticker
		weights[i] = h.Weight()
		vols[i] = h.AvgVolatility
	}

	aligned, err := corr.Align(tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to align correlation matrix: %w", err)
	}

	return Compute(tickers, weights, vols, aligned.Values)
}

// Sorted returns the assets ordered by percentage contribution, largest first
func (r *Result) Sorted() []AssetContribution {
	out := make([]AssetContribution, len(r.Assets))
	copy(out, r.Assets)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Percent > out[j].Percent
	})
	return out
}

// Top returns the n largest contributors (all of them when n <= 0)
func (r *Result) Top(n int) []AssetContribution {
	sorted := r.Sorted()
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	return sorted[:n]
}

// TopDriver returns the asset with the largest risk share
func (r *Result) TopDriver() (AssetContribution, bool) {
	if len(r.Assets) == 0 || !r.Defined {
		return AssetContribution{}, false
	}
	return r.Sorted()[0], true
}

// Concentration is the top driver's percentage contribution
func (r *Result) Concentration() float64 {
	top, ok := r.TopDriver()
	if !ok {
		return 0
	}
	return top.Percent
}
