package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/aristath/riskterm/internal/testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--log-level", "disabled"))
	err := root.Execute()
	return out.String(), err
}

func TestStocksCommand(t *testing.T) {
	dir := testingpkg.WriteDataset(t)

	t.Run("table", func(t *testing.T) {
		out, err := run(t, "stocks", "--data-dir", dir)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(out, "Rank"))
		assert.Less(t, strings.Index(out, "TSLA"), strings.Index(out, "JNJ"))
	})

	t.Run("json filtered", func(t *testing.T) {
		out, err := run(t, "stocks", "--data-dir", dir, "--format", "json", "--bands", "high")
		require.NoError(t, err)

		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.NotEmpty(t, rows)
		assert.Equal(t, "TSLA", rows[0]["ticker"])
		for _, r := range rows {
			assert.Equal(t, "HIGH", r["category"])
		}
	})

	t.Run("limit", func(t *testing.T) {
		out, err := run(t, "stocks", "--data-dir", dir, "--format", "json", "--limit", "2")
		require.NoError(t, err)

		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		assert.Len(t, rows, 2)
	})

	t.Run("bad band", func(t *testing.T) {
		_, err := run(t, "stocks", "--data-dir", dir, "--bands", "extreme")
		assert.Error(t, err)
	})
}

func TestContributionCommand(t *testing.T) {
	dir := testingpkg.WriteDataset(t)

	out, err := run(t, "contribution", "--data-dir", dir, "--format", "json")
	require.NoError(t, err)

	var a struct {
		PortfolioVolatility float64 `json:"portfolio_volatility"`
		Defined             bool    `json:"defined"`
		Rows                []struct {
			Ticker string `json:"ticker"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.True(t, a.Defined)
	assert.InDelta(t, 0.0146625, a.PortfolioVolatility, 1e-6)
	require.Len(t, a.Rows, 3)
	assert.Equal(t, "NVDA", a.Rows[0].Ticker)

	out, err = run(t, "contribution", "--data-dir", dir, "--top", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "NVDA")
	assert.NotContains(t, out, "JNJ")

	_, err = run(t, "contribution", "--data-dir", dir, "--top", "0")
	assert.Error(t, err)
}

func TestRegimeCommand(t *testing.T) {
	dir := testingpkg.WriteDataset(t)

	out, err := run(t, "regime", "--data-dir", dir, "--format", "json")
	require.NoError(t, err)

	var res struct {
		Method        string         `json:"method"`
		LookAheadBias bool           `json:"look_ahead_bias"`
		Current       string         `json:"current"`
		Counts        map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "retrospective", res.Method)
	assert.True(t, res.LookAheadBias)
	assert.Equal(t, "High", res.Current)
	assert.Equal(t, map[string]int{"Low": 2, "Medium": 2, "High": 2}, res.Counts)

	out, err = run(t, "regime", "--data-dir", dir, "--method", "expanding", "--last", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "expanding")
	assert.Contains(t, out, "2024-01-09")
	assert.NotContains(t, out, "2024-01-02")

	_, err = run(t, "regime", "--data-dir", dir, "--method", "psychic")
	assert.Error(t, err)
}

func TestForecastCommand(t *testing.T) {
	dir := testingpkg.WriteDataset(t)

	out, err := run(t, "forecast", "--data-dir", dir, "--format", "json", "--ticker", "NVDA")
	require.NoError(t, err)

	var views []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "NVDA", views[0]["ticker"])

	out, err = run(t, "forecast", "--data-dir", dir)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "NVDA"), strings.Index(out, "AAPL"))

	_, err = run(t, "forecast", "--data-dir", dir, "--ticker", "ZZZZ")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	dir := testingpkg.WriteDataset(t)

	t.Run("all tables", func(t *testing.T) {
		out, err := run(t, "check", "--data-dir", dir)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "Table"))
		assert.Equal(t, 5, strings.Count(out, " ok\n"))
	})

	t.Run("by table and file name", func(t *testing.T) {
		out, err := run(t, "check", "holdings", "layer2_ml_results.csv", "--data-dir", dir, "--format", "json")
		require.NoError(t, err)

		var report []tableCheck
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Len(t, report, 2)
		assert.Equal(t, "holdings", report[0].Table)
		assert.Equal(t, 3, report[0].Rows)
		assert.Equal(t, "forecasts", report[1].Table)
		assert.Empty(t, report[1].Error)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := run(t, "check", "prices", "--data-dir", dir)
		assert.Error(t, err)
	})

	t.Run("invalid file", func(t *testing.T) {
		bad := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(bad, "stock_risk_summary.csv"),
			[]byte("Stock,Avg_Daily_Return,Avg_20D_Volatility\nAAPL,0.001,Inf\n"), 0o644))

		out, err := run(t, "check", "stock_risk", "--data-dir", bad)
		require.Error(t, err)
		assert.Contains(t, out, "line 2")
	})
}

func TestSyncCommand(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	t.Setenv("RISKTERM_DATA_DIR", dir)
	t.Setenv("RISKTERM_PERSIST_CACHE", "false")
	t.Setenv("RISKTERM_S3_BUCKET", "")

	out, err := run(t, "sync", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Source string `json:"source"`
		Files  []struct {
			Exists bool `json:"exists"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "local", res.Source)
	require.Len(t, res.Files, 5)
	for _, f := range res.Files {
		assert.True(t, f.Exists)
	}
}

func TestRootCommand_BadFormat(t *testing.T) {
	dir := testingpkg.WriteDataset(t)
	_, err := run(t, "stocks", "--data-dir", dir, "--format", "xml")
	assert.Error(t, err)
}
