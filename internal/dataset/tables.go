// Package dataset loads the read-only CSV tables produced by the offline
// risk pipeline and memoizes the parsed results.
package dataset

import (
	"errors"
	"fmt"
)

// ErrUnknownTable is returned for a table name that is not part of the dataset
var ErrUnknownTable = errors.New("unknown dataset table")

// Table identifies one dataset file
type Table string

const (
	TableStockRisk   Table = "stock_risk"
	TableHoldings    Table = "holdings"
	TableCorrelation Table = "correlation"
	TableVolatility  Table = "volatility"
	TableForecasts   Table = "forecasts"
)

// Tables lists every table in load order
var Tables = []Table{
	TableStockRisk,
	TableHoldings,
	TableCorrelation,
	TableVolatility,
	TableForecasts,
}

var fileNames = map[Table]string{
	TableStockRisk:   "stock_risk_summary.csv",
	TableHoldings:    "portfolio_weights_percentage.csv",
	TableCorrelation: "stock_return_correlation_matrix.csv",
	TableVolatility:  "portfolio_volatility_all_stocks.csv",
	TableForecasts:   "layer2_ml_results.csv",
}

// FileName returns the on-disk file name of the table
func (t Table) FileName() string {
	return fileNames[t]
}

// ParseTable validates a table name
func ParseTable(s string) (Table, error) {
	t := Table(s)
	if _, ok := fileNames[t]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, s)
	}
	return t, nil
}

// TableForFile maps a file name back to its table
func TableForFile(name string) (Table, bool) {
	for t, f := range fileNames {
		if f == name {
			return t, true
		}
	}
	return "", false
}
