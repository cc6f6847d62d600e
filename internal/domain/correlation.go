package domain

import (
	"errors"
	"fmt"
)

// ErrMissingTicker is returned when a ticker is not present in a correlation matrix
var ErrMissingTicker = errors.New("ticker missing from correlation matrix")

// CorrelationMatrix is a square ticker-indexed correlation table.
// It is assumed symmetric with unit diagonal; nothing here enforces that.
type CorrelationMatrix struct {
	Tickers []string    `json:"tickers" msgpack:"tickers"`
	Values  [][]float64 `json:"values" msgpack:"values"`

	index map[string]int
}

// NewCorrelationMatrix builds a matrix from row-major values
func NewCorrelationMatrix(tickers []string, values [][]float64) (*CorrelationMatrix, error) {
	if len(values) != len(tickers) {
		return nil, fmt.Errorf("correlation matrix has %d rows for %d tickers", len(values), len(tickers))
	}
	for i, row := range values {
		if len(row) != len(tickers) {
			return nil, fmt.Errorf("correlation row %s has %d columns, want %d", tickers[i], len(row), len(tickers))
		}
	}

	m := &CorrelationMatrix{Tickers: tickers, Values: values}
	m.Reindex()
	return m, nil
}

// Reindex rebuilds the ticker lookup table. Call it once after decoding a
// matrix, before sharing it between goroutines.
func (m *CorrelationMatrix) Reindex() {
	m.index = make(map[string]int, len(m.Tickers))
	for i, t := range m.Tickers {
		m.index[t] = i
	}
}

// Size returns the matrix dimension
func (m *CorrelationMatrix) Size() int {
	return len(m.Tickers)
}

// IndexOf returns the row/column position of ticker
func (m *CorrelationMatrix) IndexOf(ticker string) (int, bool) {
	if m.index == nil {
		for i, t := range m.Tickers {
			if t == ticker {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := m.index[ticker]
	return i, ok
}

// Get returns the correlation between two tickers
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, ok := m.IndexOf(a)
	if !ok {
		return 0, false
	}
	j, ok := m.IndexOf(b)
	if !ok {
		return 0, false
	}
	return m.Values[i][j], true
}

// Align returns the sub-matrix for tickers, in that order.
// Every ticker must be present.
func (m *CorrelationMatrix) Align(tickers []string) (*CorrelationMatrix, error) {
	pos := make([]int, len(tickers))
	for k, t := range tickers {
		i, ok := m.IndexOf(t)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingTicker, t)
		}
		pos[k] = i
	}

	values := make([][]float64, len(tickers))
	for r, i := range pos {
		values[r] = make([]float64, len(tickers))
		for c, j := range pos {
			values[r][c] = m.Values[i][j]
		}
	}

	out := &CorrelationMatrix{
		Tickers: append([]string(nil), tickers...),
		Values:  values,
	}
	out.Reindex()
	return out, nil
}
