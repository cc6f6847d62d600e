package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aristath/riskterm/internal/config"
	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/di"
	"github.com/aristath/riskterm/internal/modules/forecast"
	"github.com/aristath/riskterm/internal/modules/portfolio"
	"github.com/aristath/riskterm/internal/modules/regime"
	"github.com/aristath/riskterm/internal/modules/stocks"
)

func stocksCmd(opts *options) *cobra.Command {
	var (
		bands string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "stocks",
		Short: "Stock risk table, most volatile first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := stocks.ParseCategories(bands)
			if err != nil {
				return err
			}
			rows, err := opts.store().StockRisk()
			if err != nil {
				return err
			}

			profiles := stocks.NewAnalyzer(rows).Filter(cats...)
			if limit > 0 && limit < len(profiles) {
				profiles = profiles[:limit]
			}

			return opts.render(cmd.OutOrStdout(), profiles, func(w io.Writer) {
				fmt.Fprintln(w, "Rank\tTicker\tName\tVolatility\tReturn\tSharpe\tBand")
				for _, p := range profiles {
					fmt.Fprintf(w, "%.0f\t%s\t%s\t%s\t%s\t%.3f\t%s\n",
						p.VolatilityRank, p.Ticker, p.Name, pct(p.AvgVolatility), pct(p.AvgDailyReturn), p.SharpeProxy, p.Category)
				}
			})
		},
	}
	cmd.Flags().StringVar(&bands, "bands", "", "Comma-separated risk bands (low,medium,high)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many rows (0 for all)")
	return cmd
}

func contributionCmd(opts *options) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "contribution",
		Short: "Portfolio risk contribution by holding",
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 1 {
				return fmt.Errorf("--top must be at least 1")
			}
			a, err := portfolio.NewService(opts.store(), nil, opts.log).Contribution()
			if err != nil {
				return err
			}

			rows := a.Top(top)
			return opts.render(cmd.OutOrStdout(), a, func(w io.Writer) {
				if !a.Defined {
					fmt.Fprintln(w, "Portfolio volatility is zero; contributions are undefined")
					return
				}
				fmt.Fprintf(w, "Portfolio volatility\t%s\n", pct(a.PortfolioVolatility))
				fmt.Fprintf(w, "Top %d share\t%.1f%%\n\n", len(rows), a.Concentration)
				fmt.Fprintln(w, "Ticker\tWeight\tVolatility\tMarginal\tTotal\tShare")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%.1f%%\t%s\t%.6f\t%.6f\t%.1f%%\n",
						r.Ticker, r.WeightPercent, pct(r.Volatility), r.Marginal, r.Total, r.Percent)
				}
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 15, "Number of largest contributors to show")
	return cmd
}

func regimeCmd(opts *options) *cobra.Command {
	var (
		method string
		last   int
	)
	cmd := &cobra.Command{
		Use:   "regime",
		Short: "Volatility regime classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := regime.ParseMethod(method)
			if err != nil {
				return err
			}
			series, err := opts.store().Volatility()
			if err != nil {
				return err
			}
			result, err := regime.Classify(series, m)
			if err != nil {
				return err
			}

			obs := result.Observations
			if last > 0 && last < len(obs) {
				obs = obs[len(obs)-last:]
			}
			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "Method\t%s\n", result.Method)
				fmt.Fprintf(w, "Current\t%s\n", result.Current)
				fmt.Fprintf(w, "Thresholds\tq33 %s\tq66 %s\n", pct(result.Thresholds.Lower), pct(result.Thresholds.Upper))
				dist := result.Distribution()
				for _, l := range regime.Labels {
					fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", l, result.Counts[l], dist[l])
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Date\tVolatility\tRegime")
				for _, o := range obs {
					fmt.Fprintf(w, "%s\t%s\t%s\n", o.Date.Format("2006-01-02"), pct(o.Volatility), o.Regime)
				}
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", string(regime.MethodRetrospective), "Threshold method (retrospective|expanding)")
	cmd.Flags().IntVar(&last, "last", 20, "Show the last N observations (0 for all)")
	return cmd
}

func forecastCmd(opts *options) *cobra.Command {
	var ticker string
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "ML volatility forecasts ranked by predicted volatility",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := opts.store().Forecasts()
			if err != nil {
				return err
			}
			a := forecast.NewAnalyzer(rows)

			views := a.Ranking()
			if ticker != "" {
				v, err := a.Get(ticker)
				if err != nil {
					return err
				}
				views = []forecast.View{v}
			}

			return opts.render(cmd.OutOrStdout(), views, func(w io.Writer) {
				fmt.Fprintln(w, "Ticker\tPredicted 5D\tRMSE\tPrice\t68% band\tBand width")
				for _, v := range views {
					fmt.Fprintf(w, "%s\t%s\t%.4f\t%.2f\t%.2f-%.2f\t%.1f%%\n",
						v.Ticker, pct(v.PredictedVol), v.RMSE, v.LatestPrice, v.PriceLower68, v.PriceUpper68, v.BandWidthPct)
				}
			})
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "Show a single ticker")
	return cmd
}

// tableCheck is one row of the check command's report
type tableCheck struct {
	Table string `json:"table"`
	File  string `json:"file"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

// resolveTable accepts a table name or one of the dataset file names
func resolveTable(arg string) (dataset.Table, error) {
	if t, ok := dataset.TableForFile(filepath.Base(arg)); ok {
		return t, nil
	}
	return dataset.ParseTable(arg)
}

func checkCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check [table|file...]",
		Short: "Parse dataset tables and report row counts",
		Long:  "check loads each named table (all tables when none are given) and fails if any of them does not parse.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables := dataset.Tables
			if len(args) > 0 {
				tables = make([]dataset.Table, 0, len(args))
				for _, arg := range args {
					t, err := resolveTable(arg)
					if err != nil {
						return err
					}
					tables = append(tables, t)
				}
			}

			store := opts.store()
			report := make([]tableCheck, 0, len(tables))
			failed := 0
			for _, t := range tables {
				c := tableCheck{Table: string(t), File: t.FileName()}
				n, err := store.Load(t)
				if err != nil {
					c.Error = err.Error()
					failed++
				}
				c.Rows = n
				report = append(report, c)
			}

			if err := opts.render(cmd.OutOrStdout(), report, func(w io.Writer) {
				fmt.Fprintln(w, "Table	File	Rows	Status")
				for _, c := range report {
					status := "ok"
					if c.Error != "" {
						status = c.Error
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", c.Table, c.File, c.Rows, status)
				}
			}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tables failed to load", failed, len(report))
			}
			return nil
		},
	}
}

func syncCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Download the dataset from the configured bucket and report file status",
		Long: "sync runs one dataset sync using the server's environment configuration " +
			"(RISKTERM_S3_*). Without a bucket it only reports the local files.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data-dir") {
				dir, err := filepath.Abs(opts.dataDir)
				if err != nil {
					return err
				}
				cfg.DataDir = dir
				if os.Getenv("RISKTERM_CACHE_DB") == "" {
					cfg.CacheDBPath = config.DefaultCacheDBPath(dir)
				}
			}

			container, _, err := di.Wire(cmd.Context(), cfg, opts.log)
			if err != nil {
				return err
			}
			defer container.Close()

			result, err := container.SyncService.Run(cmd.Context())
			if err != nil {
				return err
			}

			return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) {
				fmt.Fprintf(w, "Source\t%s\n", result.Source)
				fmt.Fprintf(w, "Downloaded\t%d\n", len(result.Downloaded))
				if len(result.Missing) > 0 {
					fmt.Fprintf(w, "Missing in bucket\t%v\n", result.Missing)
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, "File\tPresent\tSize\tModified")
				for _, f := range result.Files {
					modified := "-"
					if f.Exists {
						modified = f.ModTime.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", f.File, f.Exists, f.Size, modified)
				}
			})
		},
	}
}
