// Package domain provides the core risk dataset models.
package domain

import (
	"time"
)

// StockRisk is one row of the per-stock risk summary
type StockRisk struct {
	Ticker         string  `json:"ticker" msgpack:"ticker"`
	AvgDailyReturn float64 `json:"avg_daily_return" msgpack:"avg_daily_return"`
	AvgVolatility  float64 `json:"avg_20d_volatility" msgpack:"avg_20d_volatility"` // rolling 20D, daily fraction
}

// Holding is one row of the portfolio weights table.
// WeightPercent is in percentage points; the rows sum to 100 by construction
// of the input data (not enforced).
type Holding struct {
	Ticker            string  `json:"ticker" msgpack:"ticker"`
	WeightPercent     float64 `json:"weight_percent" msgpack:"weight_percent"`
	AvgDailyReturn    float64 `json:"avg_daily_return" msgpack:"avg_daily_return"`
	AvgVolatility     float64 `json:"avg_20d_volatility" msgpack:"avg_20d_volatility"`
	RiskAdjustedScore float64 `json:"risk_adjusted_score" msgpack:"risk_adjusted_score"`
}

// Weight returns the holding's weight as a fraction
func (h Holding) Weight() float64 {
	return h.WeightPercent / 100
}

// VolatilityObservation is a (date, portfolio volatility) pair
type VolatilityObservation struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Value float64   `json:"value" msgpack:"value"`
}

// Forecast is the ML model output for one ticker
type Forecast struct {
	Ticker       string   `json:"ticker" msgpack:"ticker"`
	PredictedVol float64  `json:"predicted_5d_vol" msgpack:"predicted_5d_vol"`
	RMSE         float64  `json:"rmse" msgpack:"rmse"`
	MAE          *float64 `json:"mae,omitempty" msgpack:"mae,omitempty"` // optional column
	LatestPrice  float64  `json:"latest_price" msgpack:"latest_price"`
	PriceLower68 float64  `json:"price_lower_68" msgpack:"price_lower_68"`
	PriceUpper68 float64  `json:"price_upper_68" msgpack:"price_upper_68"`
}

// BandWidthPct is the width of the 68% price band relative to the latest price, in percent.
// Returns 0 when the latest price is 0.
func (f Forecast) BandWidthPct() float64 {
	if f.LatestPrice == 0 {
		return 0
	}
	return (f.PriceUpper68 - f.PriceLower68) / f.LatestPrice * 100
}

// TickerName returns the company name for a ticker, or the ticker itself
func TickerName(ticker string) string {
	if name, ok := Universe[ticker]; ok {
		return name
	}
	return ticker
}

// Universe maps tracked tickers to company names
var Universe = map[string]string{
	"AAPL":  "Apple Inc.",
	"ABBV":  "AbbVie Inc.",
	"ACN":   "Accenture plc",
	"ADBE":  "Adobe Inc.",
	"ADI":   "Analog Devices",
	"ADP":   "Automatic Data Processing",
	"AMD":   "Advanced Micro Devices",
	"AMGN":  "Amgen Inc.",
	"AMT":   "American Tower",
	"AMZN":  "Amazon.com Inc.",
	"APD":   "Air Products & Chemicals",
	"AXP":   "American Express",
	"BA":    "Boeing Co.",
	"BDX":   "Becton Dickinson",
	"BKNG":  "Booking Holdings",
	"BLK":   "BlackRock Inc.",
	"BMY":   "Bristol Myers Squibb",
	"BRK-B": "Berkshire Hathaway",
	"C":     "Citigroup Inc.",
	"CAT":   "Caterpillar Inc.",
	"CB":    "Chubb Ltd.",
	"CI":    "Cigna Group",
	"CL":    "Colgate-Palmolive",
	"COP":   "ConocoPhillips",
	"CRM":   "Salesforce Inc.",
	"CSCO":  "Cisco Systems",
	"CSX":   "CSX Corp.",
	"CVS":   "CVS Health",
	"CVX":   "Chevron Corp.",
	"DE":    "Deere & Co.",
	"DHR":   "Danaher Corp.",
	"DUK":   "Duke Energy",
	"ELV":   "Elevance Health",
	"EQIX":  "Equinix Inc.",
	"ETN":   "Eaton Corp.",
	"GE":    "General Electric",
	"GILD":  "Gilead Sciences",
	"GM":    "General Motors",
	"GOOG":  "Alphabet Inc. (C)",
	"GOOGL": "Alphabet Inc. (A)",
	"GS":    "Goldman Sachs",
	"HD":    "Home Depot",
	"HON":   "Honeywell",
	"IBM":   "IBM Corp.",
	"INTC":  "Intel Corp.",
	"INTU":  "Intuit Inc.",
	"ISRG":  "Intuitive Surgical",
	"JNJ":   "Johnson & Johnson",
	"JPM":   "JPMorgan Chase",
	"KO":    "Coca-Cola",
	"LIN":   "Linde plc",
	"LMT":   "Lockheed Martin",
	"LOW":   "Lowe's Companies",
	"MCD":   "McDonald's",
	"MDLZ":  "Mondelez Intl.",
	"MDT":   "Medtronic",
	"META":  "Meta Platforms",
	"MMC":   "Marsh & McLennan",
	"MO":    "Altria Group",
	"MRK":   "Merck & Co.",
	"MS":    "Morgan Stanley",
	"MSFT":  "Microsoft Corp.",
	"MU":    "Micron Technology",
	"NEE":   "NextEra Energy",
	"NFLX":  "Netflix Inc.",
	"NOW":   "ServiceNow",
	"NVDA":  "NVIDIA Corp.",
	"PEP":   "PepsiCo",
	"PG":    "Procter & Gamble",
	"PLD":   "Prologis",
	"PM":    "Philip Morris",
	"PNC":   "PNC Financial",
	"PYPL":  "PayPal Holdings",
	"QCOM":  "Qualcomm",
	"REGN":  "Regeneron Pharma",
	"RTX":   "RTX Corp.",
	"SCHW":  "Charles Schwab",
	"SHW":   "Sherwin-Williams",
	"SO":    "Southern Co.",
	"SPGI":  "S&P Global",
	"SYK":   "Stryker Corp.",
	"T":     "AT&T",
	"TGT":   "Target Corp.",
	"TMO":   "Thermo Fisher",
	"TSLA":  "Tesla Inc.",
	"TXN":   "Texas Instruments",
	"UNH":   "UnitedHealth Group",
	"UNP":   "Union Pacific",
	"USB":   "U.S. Bancorp",
	"V":     "Visa Inc.",
	"VRTX":  "Vertex Pharma",
	"VZ":    "Verizon",
	"WFC":   "Wells Fargo",
	"WMT":   "Walmart",
	"XOM":   "Exxon Mobil",
	"ZTS":   "Zoetis Inc.",
}
