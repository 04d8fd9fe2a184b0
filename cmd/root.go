// Package cmd implements the tally CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/app"
	"github.com/derickschaefer/tally/internal/config"
)

// rootFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
type rootFlags struct {
	BaseURL   string
	DBPath    string
	Format    string
	Out       string
	Timeout   string
	Rate      float64
	Quiet     bool
	Verbose   bool
	Debug     bool
	Ephemeral bool
}

var globalFlags rootFlags

// rootCmd is the base command. Running `tally` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "tally — merchant analytics dashboard in the terminal",
	Long: `tally draws a merchant's payment analytics as terminal charts.

It reads aggregates from an analytics backend, renders a fixed overview,
lets you build charts from a data source, chart kind, period and color
scheme, and keeps the charts you pin across sessions.

'tally serve' runs the analytics backend itself against the payment
processor API (needs SUMUP_API_KEY).

Quick start:
  tally serve &                        # start the backend on :5000
  tally overview                       # draw the overview charts
  tally preview --source daily-revenue --kind area --period 14
  tally pin add --title "Two weeks" --source daily-revenue --period 14
  tally replay                         # redraw every pinned chart`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the process-wide slog handler on stderr.
func setupLogging() {
	level := slog.LevelWarn
	switch {
	case globalFlags.Debug:
		level = slog.LevelDebug
	case globalFlags.Quiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.BaseURL)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return app.New(cfg), nil
}

// applyFlags copies CLI flag overrides onto cfg.
func applyFlags(cfg *config.Config) {
	cfg.Quiet = globalFlags.Quiet
	cfg.Debug = globalFlags.Debug
	cfg.Ephemeral = globalFlags.Ephemeral

	if globalFlags.DBPath != "" {
		cfg.DBPath = globalFlags.DBPath
	}
	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		if d, err := time.ParseDuration(globalFlags.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.BaseURL, "base-url", "",
		"analytics backend URL (overrides env TALLY_BASE_URL and config.json)")
	pf.StringVar(&globalFlags.DBPath, "db", "",
		"pinned chart database path (overrides env TALLY_DB_PATH)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: terminal|json|jsonl|csv|tsv|md (default: terminal)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max backend requests per second (default: 10)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses")
	pf.BoolVar(&globalFlags.Ephemeral, "ephemeral", false,
		"keep pinned charts in memory only for this run")
}
