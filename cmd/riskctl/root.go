package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/pkg/logger"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// options holds the persistent flags shared by every subcommand
type options struct {
	dataDir  string
	format   string
	logLevel string
	log      zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	defaultDir := os.Getenv("RISKTERM_DATA_DIR")
	if defaultDir == "" {
		defaultDir = "data"
	}

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Equity risk terminal CLI",
		Long:          "riskctl runs the risk terminal's analyses over the CSV dataset and prints them as a table or JSON.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatTable && opts.format != formatJSON {
				return fmt.Errorf("unknown format %q (want %s or %s)", opts.format, formatTable, formatJSON)
			}
			opts.log = logger.New(logger.Config{
				Level:  opts.logLevel,
				Pretty: true,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", defaultDir, "Dataset directory")
	root.PersistentFlags().StringVar(&opts.format, "format", formatTable, "Output format (table|json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	root.AddCommand(
		stocksCmd(opts),
		contributionCmd(opts),
		regimeCmd(opts),
		forecastCmd(opts),
		checkCmd(opts),
		syncCmd(opts),
	)
	return root
}

// store opens the dataset directory with an in-memory cache
func (o *options) store() *dataset.Store {
	return dataset.NewStore(o.dataDir, dataset.NewCache(o.log), o.log)
}

// render prints v as indented JSON, or calls table with a tab writer
func (o *options) render(out io.Writer, v interface{}, table func(w io.Writer)) error {
	if o.format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
