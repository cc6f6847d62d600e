package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/riskterm/internal/domain"
)

// ErrMissingColumn is returned when a required header is absent
var ErrMissingColumn = errors.New("missing required column")

// ErrNonFinite is returned for NaN or infinite numeric cells
var ErrNonFinite = errors.New("non-finite value")

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// columns maps header names to positions
type columns map[string]int

func readTable(r io.Reader) (columns, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file: no header")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return cols, records, nil
}

func (c columns) require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := c[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// row is one record with its 1-based line number (header is line 1)
type row struct {
	cols   columns
	record []string
	line   int
}

func (r row) str(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r row) float(name string) (float64, error) {
	v := r.str(name)
	if v == "" {
		return 0, fmt.Errorf("line %d: column %s is empty", r.line, name)
	}
	f, err := parseFinite(v)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: %w", r.line, name, err)
	}
	return f, nil
}

func (r row) optionalFloat(name string) (*float64, error) {
	v := r.str(name)
	if v == "" || strings.EqualFold(v, "nan") {
		return nil, nil
	}
	f, err := parseFinite(v)
	if err != nil {
		return nil, fmt.Errorf("line %d: column %s: %w", r.line, name, err)
	}
	return &f, nil
}

// parseFinite parses a float and rejects NaN and ±Inf
func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s", ErrNonFinite, s)
	}
	return f, nil
}

func (r row) ticker(name string) (string, error) {
	v := r.str(name)
	if v == "" {
		return "", fmt.Errorf("line %d: column %s is empty", r.line, name)
	}
	return v, nil
}

func rows(cols columns, records [][]string) []row {
	out := make([]row, 0, len(records))
	for i, rec := range records {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		out = append(out, row{cols: cols, record: rec, line: i + 2})
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseStockRisk reads stock_risk_summary.csv
func ParseStockRisk(r io.Reader) ([]domain.StockRisk, error) {
	cols, records, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := cols.require("Stock", "Avg_Daily_Return", "Avg_20D_Volatility"); err != nil {
		return nil, err
	}

	out := make([]domain.StockRisk, 0, len(records))
	for _, rw := range rows(cols, records) {
		ticker, err := rw.ticker("Stock")
		if err != nil {
			return nil, err
		}
		ret, err := rw.float("Avg_Daily_Return")
		if err != nil {
			return nil, err
		}
		vol, err := rw.float("Avg_20D_Volatility")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.StockRisk{Ticker: ticker, AvgDailyReturn: ret, AvgVolatility: vol})
	}
	return out, nil
}

// ParseHoldings reads portfolio_weights_percentage.csv.
// Weights stay in percentage points.
func ParseHoldings(r io.Reader) ([]domain.Holding, error) {
	cols, records, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := cols.require("Stock", "Portfolio_Weight_Percent", "Avg_Daily_Return", "Avg_20D_Volatility", "Risk_Adjusted_Score"); err != nil {
		return nil, err
	}

	out := make([]domain.Holding, 0, len(records))
	for _, rw := range rows(cols, records) {
		var h domain.Holding
		if h.Ticker, err = rw.ticker("Stock"); err != nil {
			return nil, err
		}
		if h.WeightPercent, err = rw.float("Portfolio_Weight_Percent"); err != nil {
			return nil, err
		}
		if h.AvgDailyReturn, err = rw.float("Avg_Daily_Return"); err != nil {
			return nil, err
		}
		if h.AvgVolatility, err = rw.float("Avg_20D_Volatility"); err != nil {
			return nil, err
		}
		if h.RiskAdjustedScore, err = rw.float("Risk_Adjusted_Score"); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// ParseCorrelationMatrix reads stock_return_correlation_matrix.csv. The first
// column holds row labels; rows may appear in any order but must cover the
// same tickers as the header.
func ParseCorrelationMatrix(r io.Reader) (*domain.CorrelationMatrix, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: no header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("correlation header has no tickers")
	}

	tickers := make([]string, len(header)-1)
	position := make(map[string]int, len(tickers))
	for i, name := range header[1:] {
		name = strings.TrimSpace(name)
		if _, dup := position[name]; dup {
			return nil, fmt.Errorf("duplicate ticker %s in header", name)
		}
		tickers[i] = name
		position[name] = i
	}

	values := make([][]float64, len(tickers))
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d: got %d fields, want %d", line, len(record), len(header))
		}

		label := strings.TrimSpace(record[0])
		i, ok := position[label]
		if !ok {
			return nil, fmt.Errorf("line %d: row ticker %s not in header", line, label)
		}
		if values[i] != nil {
			return nil, fmt.Errorf("line %d: duplicate row for %s", line, label)
		}

		rowValues := make([]float64, len(tickers))
		for j, cell := range record[1:] {
			f, err := parseFinite(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, tickers[j], err)
			}
			rowValues[j] = f
		}
		values[i] = rowValues
	}

	for i, v := range values {
		if v == nil {
			return nil, fmt.Errorf("no row for ticker %s", tickers[i])
		}
	}

	return domain.NewCorrelationMatrix(tickers, values)
}

// ParseVolatilitySeries reads portfolio_volatility_all_stocks.csv and
// returns the observations in date order.
func ParseVolatilitySeries(r io.Reader) ([]domain.VolatilityObservation, error) {
	cols, records, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := cols.require("Date", "Portfolio_All_20d_Volatility"); err != nil {
		return nil, err
	}

	out := make([]domain.VolatilityObservation, 0, len(records))
	for _, rw := range rows(cols, records) {
		date, err := parseDate(rw.str("Date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rw.line, err)
		}
		v, err := rw.float("Portfolio_All_20d_Volatility")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.VolatilityObservation{Date: date, Value: v})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// ParseForecasts reads layer2_ml_results.csv. MAE is optional.
func ParseForecasts(r io.Reader) ([]domain.Forecast, error) {
	cols, records, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if err := cols.require("Ticker", "Predicted_5D_Vol", "RMSE", "Latest_Price", "Price_Lower_68", "Price_Upper_68"); err != nil {
		return nil, err
	}

	out := make([]domain.Forecast, 0, len(records))
	for _, rw := range rows(cols, records) {
		var f domain.Forecast
		if f.Ticker, err = rw.ticker("Ticker"); err != nil {
			return nil, err
		}
		if f.PredictedVol, err = rw.float("Predicted_5D_Vol"); err != nil {
			return nil, err
		}
		if f.RMSE, err = rw.float("RMSE"); err != nil {
			return nil, err
		}
		if f.MAE, err = rw.optionalFloat("MAE"); err != nil {
			return nil, err
		}
		if f.LatestPrice, err = rw.float("Latest_Price"); err != nil {
			return nil, err
		}
		if f.PriceLower68, err = rw.float("Price_Lower_68"); err != nil {
			return nil, err
		}
		if f.PriceUpper68, err = rw.float("Price_Upper_68"); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
