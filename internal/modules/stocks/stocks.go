// Package stocks provides stock-level risk analytics over the universe risk
// summary: rankings, percentiles, extremes and summary statistics.
package stocks

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/pkg/formulas"
)

// ErrUnknownTicker is returned when a ticker is not in the universe
var ErrUnknownTicker = errors.New("unknown ticker")

// Category is a volatility-percentile risk bucket
type Category string

const (
	// CategoryLow - percentile at or below 25%
	CategoryLow Category = "LOW"
	// CategoryMedium - percentile above 25% and at or below 75%
	CategoryMedium Category = "MEDIUM"
	// CategoryHigh - percentile above 75%
	CategoryHigh Category = "HIGH"
)

// CategoryFor buckets a percentile in [0, 1]
func CategoryFor(percentile float64) Category {
	switch {
	case percentile > 0.75:
		return CategoryHigh
	case percentile > 0.25:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// ParseCategories parses a comma separated list such as "low,high".
// An empty string selects every category.
func ParseCategories(s string) ([]Category, error) {
	if strings.TrimSpace(s) == "" {
		return []Category{CategoryLow, CategoryMedium, CategoryHigh}, nil
	}
	var out []Category
	for _, part := range strings.Split(s, ",") {
		switch Category(strings.ToUpper(strings.TrimSpace(part))) {
		case CategoryLow:
			out = append(out, CategoryLow)
		case CategoryMedium:
			out = append(out, CategoryMedium)
		case CategoryHigh:
			out = append(out, CategoryHigh)
		default:
			return nil, fmt.Errorf("unknown risk band %q", part)
		}
	}
	return out, nil
}

// Profile is the full risk picture of one stock relative to the universe
type Profile struct {
	Ticker               string   `json:"ticker"`
	Name                 string   `json:"name"`
	AvgDailyReturn       float64  `json:"avg_daily_return"`
	AvgVolatility        float64  `json:"avg_20d_volatility"`
	VolatilityRank       float64  `json:"volatility_rank"` // 1 = most volatile
	UniverseSize         int      `json:"universe_size"`
	Percentile           float64  `json:"percentile"` // share of the universe at or below this volatility
	SharpeProxy          float64  `json:"sharpe_proxy"`
	AnnualizedReturn     float64  `json:"annualized_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	Category             Category `json:"category"`
}

// SeriesSummary holds descriptive statistics of one column
type SeriesSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
}

// Summary describes the universe
type Summary struct {
	Count      int           `json:"count"`
	Volatility SeriesSummary `json:"volatility"`
	Return     SeriesSummary `json:"return"`
}

// Extremes are the most and least volatile stocks
type Extremes struct {
	Highest []domain.StockRisk `json:"highest"`
	Lowest  []domain.StockRisk `json:"lowest"`
}

// LandscapePoint is one stock on the risk/return scatter
type LandscapePoint struct {
	Ticker     string  `json:"ticker"`
	Volatility float64 `json:"volatility"`
	Return     float64 `json:"return"`
}

// Analyzer computes universe-relative statistics. The input rows are not
// modified.
type Analyzer struct {
	rows        []domain.StockRisk
	vols        []float64
	returns     []float64
	descRanks   []float64
	percentiles []float64
	index       map[string]int
}

// NewAnalyzer precomputes ranks for rows
func NewAnalyzer(rows []domain.StockRisk) *Analyzer {
	a := &Analyzer{
		rows:    rows,
		vols:    make([]float64, len(rows)),
		returns: make([]float64, len(rows)),
		index:   make(map[string]int, len(rows)),
	}
	for i, r := range rows {
		a.vols[i] = r.AvgVolatility
		a.returns[i] = r.AvgDailyReturn
		a.index[r.Ticker] = i
	}
	a.descRanks = formulas.DescendingRanks(a.vols)
	a.percentiles = formulas.PercentileRanks(a.vols)
	return a
}

// Len returns the universe size
func (a *Analyzer) Len() int {
	return len(a.rows)
}

func (a *Analyzer) profileAt(i int) Profile {
	r := a.rows[i]
	sharpe := 0.0
	if r.AvgVolatility != 0 {
		sharpe = r.AvgDailyReturn / r.AvgVolatility
	}
	return Profile{
		Ticker:               r.Ticker,
		Name:                 domain.TickerName(r.Ticker),
		AvgDailyReturn:       r.AvgDailyReturn,
		AvgVolatility:        r.AvgVolatility,
		VolatilityRank:       a.descRanks[i],
		UniverseSize:         len(a.rows),
		Percentile:           a.percentiles[i],
		SharpeProxy:          sharpe,
		AnnualizedReturn:     formulas.AnnualizeReturn(r.AvgDailyReturn),
		AnnualizedVolatility: formulas.AnnualizeVolatility(r.AvgVolatility),
		Category:             CategoryFor(a.percentiles[i]),
	}
}

// Profile returns one stock's profile
func (a *Analyzer) Profile(ticker string) (Profile, error) {
	i, ok := a.index[ticker]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	return a.profileAt(i), nil
}

// Profiles returns every stock, most volatile first
func (a *Analyzer) Profiles() []Profile {
	out := make([]Profile, len(a.rows))
	for i := range a.rows {
		out[i] = a.profileAt(i)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AvgVolatility > out[j].AvgVolatility
	})
	return out
}

// Filter returns the profiles whose category is in cats, most volatile first
func (a *Analyzer) Filter(cats ...Category) []Profile {
	want := make(map[Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	all := a.Profiles()
	out := all[:0]
	for _, p := range all {
		if want[p.Category] {
			out = append(out, p)
		}
	}
	return out
}

// Extremes returns the n most and n least volatile stocks. Ties keep input order.
func (a *Analyzer) Extremes(n int) Extremes {
	if n < 0 {
		n = 0
	}
	if n > len(a.rows) {
		n = len(a.rows)
	}

	desc := make([]domain.StockRisk, len(a.rows))
	copy(desc, a.rows)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].AvgVolatility > desc[j].AvgVolatility })

	asc := make([]domain.StockRisk, len(a.rows))
	copy(asc, a.rows)
	sort.SliceStable(asc, func(i, j int) bool { return asc[i].AvgVolatility < asc[j].AvgVolatility })

	return Extremes{Highest: desc[:n], Lowest: asc[:n]}
}

func summarize(values []float64) SeriesSummary {
	if len(values) == 0 {
		return SeriesSummary{}
	}
	q := formulas.Quantiles(values, 0.25, 0.75)
	return SeriesSummary{
		Mean:   formulas.Mean(values),
		Median: formulas.Median(values),
		StdDev: formulas.StdDev(values),
		Min:    formulas.Min(values),
		Max:    formulas.Max(values),
		Q1:     q[0],
		Q3:     q[1],
	}
}

// Summary returns descriptive statistics for volatility and return
func (a *Analyzer) Summary() Summary {
	return Summary{
		Count:      len(a.rows),
		Volatility: summarize(a.vols),
		Return:     summarize(a.returns),
	}
}

// Landscape returns every stock as a (volatility, return) point
func (a *Analyzer) Landscape() []LandscapePoint {
	out := make([]LandscapePoint, len(a.rows))
	for i, r := range a.rows {
		out[i] = LandscapePoint{Ticker: r.Ticker, Volatility: r.AvgVolatility, Return: r.AvgDailyReturn}
	}
	return out
}

// Histogram bins the universe's volatilities
func (a *Analyzer) Histogram(bins int) []formulas.HistogramBin {
	return formulas.Histogram(a.vols, bins)
}
