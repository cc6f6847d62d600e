// Package forecast presents the ML volatility forecasts: per-ticker views,
// rankings, uncertainty leaders and model accuracy distribution.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/pkg/formulas"
)

// ErrUnknownTicker is returned when no forecast exists for a ticker
var ErrUnknownTicker = errors.New("no forecast for ticker")

const (
	// DefaultUncertaintyLeaders is the size of the uncertainty ranking
	DefaultUncertaintyLeaders = 15
	// DefaultAccuracyBins is the RMSE histogram resolution
	DefaultAccuracyBins = 40

	minBubbleSize = 8.0
	bubbleScale   = 1000.0
)

// View is one forecast with derived fields
type View struct {
	domain.Forecast
	Name         string  `json:"name"`
	BandWidthPct float64 `json:"band_width_pct"`
}

// MapPoint is one ticker on the volatility/error risk map
type MapPoint struct {
	Ticker       string  `json:"ticker"`
	PredictedVol float64 `json:"predicted_5d_vol"`
	RMSE         float64 `json:"rmse"`
	BubbleSize   float64 `json:"bubble_size"`
}

// Accuracy is the RMSE distribution across the universe
type Accuracy struct {
	Bins         []formulas.HistogramBin `json:"bins"`
	MeanRMSE     float64                 `json:"mean_rmse"`
	MedianRMSE   float64                 `json:"median_rmse"`
	Selected     string                  `json:"selected,omitempty"`
	SelectedRMSE *float64                `json:"selected_rmse,omitempty"`
	SelectedBin  int                     `json:"selected_bin"` // -1 when no ticker is selected
}

// Analyzer answers questions about a forecast table. Input rows are not modified.
type Analyzer struct {
	rows  []domain.Forecast
	index map[string]int
}

// NewAnalyzer indexes rows by ticker
func NewAnalyzer(rows []domain.Forecast) *Analyzer {
	a := &Analyzer{rows: rows, index: make(map[string]int, len(rows))}
	for i, r := range rows {
		a.index[r.Ticker] = i
	}
	return a
}

func view(f domain.Forecast) View {
	return View{
		Forecast:     f,
		Name:         domain.TickerName(f.Ticker),
		BandWidthPct: f.BandWidthPct(),
	}
}

func (a *Analyzer) views() []View {
	out := make([]View, len(a.rows))
	for i, r := range a.rows {
		out[i] = view(r)
	}
	return out
}

// Tickers returns the forecast tickers in sorted order
func (a *Analyzer) Tickers() []string {
	out := make([]string, 0, len(a.rows))
	for _, r := range a.rows {
		out = append(out, r.Ticker)
	}
	sort.Strings(out)
	return out
}

// Get returns the forecast for ticker
func (a *Analyzer) Get(ticker string) (View, error) {
	i, ok := a.index[ticker]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownTicker, ticker)
	}
	return view(a.rows[i]), nil
}

// Ranking returns every forecast, highest predicted volatility first
func (a *Analyzer) Ranking() []View {
	out := a.views()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PredictedVol > out[j].PredictedVol
	})
	return out
}

// UncertaintyLeaders returns the n forecasts with the widest price band
func (a *Analyzer) UncertaintyLeaders(n int) []View {
	out := a.views()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BandWidthPct > out[j].BandWidthPct
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// BubbleSize scales predicted volatility into a marker size with a floor
func BubbleSize(predictedVol float64) float64 {
	return math.Max(predictedVol*bubbleScale, minBubbleSize)
}

// RiskMap returns (predicted vol, RMSE) points for every ticker
func (a *Analyzer) RiskMap() []MapPoint {
	out := make([]MapPoint, len(a.rows))
	for i, r := range a.rows {
		out[i] = MapPoint{
			Ticker:       r.Ticker,
			PredictedVol: r.PredictedVol,
			RMSE:         r.RMSE,
			BubbleSize:   BubbleSize(r.PredictedVol),
		}
	}
	return out
}

// AccuracyHistogram bins RMSE across the universe and marks the bin holding
// the selected ticker. An unknown selection is an error; an empty one is not.
func (a *Analyzer) AccuracyHistogram(bins int, selected string) (Accuracy, error) {
	rmse := make([]float64, len(a.rows))
	for i, r := range a.rows {
		rmse[i] = r.RMSE
	}

	acc := Accuracy{
		Bins:        formulas.Histogram(rmse, bins),
		MeanRMSE:    formulas.Mean(rmse),
		MedianRMSE:  formulas.Median(rmse),
		SelectedBin: -1,
	}

	if selected == "" {
		return acc, nil
	}

	i, ok := a.index[selected]
	if !ok {
		return Accuracy{}, fmt.Errorf("%w: %s", ErrUnknownTicker, selected)
	}
	v := a.rows[i].RMSE
	acc.Selected = selected
	acc.SelectedRMSE = &v
	for b, bin := range acc.Bins {
		last := b == len(acc.Bins)-1
		if v >= bin.Lower && (v < bin.Upper || (last && v <= bin.Upper)) {
			acc.SelectedBin = b
			break
		}
	}
	return acc, nil
}
