package testing

import (
	"os"
	"path/filepath"
	"testing"
)

// Fixture file contents. The numbers are small enough to check by hand:
// the portfolio holds AAPL/NVDA/JNJ at 50/30/20 and the volatility series
// has two observations in each regime.
const (
	StockRiskCSV = `Stock,Avg_Daily_Return,Avg_20D_Volatility
AAPL,0.0010,0.0150
MSFT,0.0008,0.0120
NVDA,0.0020,0.0300
JNJ,0.0003,0.0080
TSLA,0.0015,0.0400
`

	HoldingsCSV = `Stock,Portfolio_Weight_Percent,Avg_Daily_Return,Avg_20D_Volatility,Risk_Adjusted_Score
AAPL,50,0.0010,0.0150,0.0667
NVDA,30,0.0020,0.0300,0.0667
JNJ,20,0.0003,0.0080,0.0375
`

	// Rows are deliberately not in header order.
	CorrelationCSV = `,AAPL,MSFT,NVDA,JNJ,TSLA
NVDA,0.50,0.55,1.00,0.10,0.45
AAPL,1.00,0.85,0.50,0.20,0.40
JNJ,0.20,0.25,0.10,1.00,0.05
TSLA,0.40,0.35,0.45,0.05,1.00
MSFT,0.85,1.00,0.55,0.25,0.35
`

	VolatilityCSV = `Date,Portfolio_All_20d_Volatility
2024-01-02,0.010
2024-01-03,0.012
2024-01-04,0.015
2024-01-05,0.011
2024-01-08,0.020
2024-01-09,0.018
`

	ForecastsCSV = `Ticker,Predicted_5D_Vol,RMSE,MAE,Latest_Price,Price_Lower_68,Price_Upper_68
AAPL,0.018,0.004,0.003,190,180,200
NVDA,0.035,0.009,,480,440,520
JNJ,0.009,0.002,0.0015,160,156,164
`
)

// DatasetFiles maps each dataset file name to its fixture content
var DatasetFiles = map[string]string{
	"stock_risk_summary.csv":              StockRiskCSV,
	"portfolio_weights_percentage.csv":    HoldingsCSV,
	"stock_return_correlation_matrix.csv": CorrelationCSV,
	"portfolio_volatility_all_stocks.csv": VolatilityCSV,
	"layer2_ml_results.csv":               ForecastsCSV,
}

// WriteDataset writes every fixture file into a fresh temporary directory
// and returns the directory.
func WriteDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range DatasetFiles {
		WriteFile(t, dir, name, content)
	}
	return dir
}

// WriteFile writes one file into dir
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}
