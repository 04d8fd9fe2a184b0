package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/app"
	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/render"
)

var (
	overviewNoSummary bool
	overviewNoStats   bool
	overviewWatch     time.Duration
)

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Draw the fixed overview: KPIs plus four charts",
	Long: `Draws the key figures for the last 30 days followed by the four overview
charts: revenue trend (30 days), transactions by hour (7 days), revenue by
payment type, and card types (30 days).

The charts are fetched concurrently. A chart whose data cannot be fetched is
reported and skipped; the command fails only when every chart failed.

With --format json each chart is written as one JSON frame per line, which
'tally chart' can draw later.`,
	Example: `  tally overview
  tally overview --no-summary --watch 1m
  tally overview --format json > overview.jsonl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		format := resolveFormat(deps.Config.Format)
		d := dashboard.New(deps.Resolver, nil, newSurface(w, format, !overviewNoStats))

		if overviewWatch <= 0 {
			return drawOverview(cmd.Context(), w, cmd.ErrOrStderr(), deps, d, format)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ticker := time.NewTicker(overviewWatch)
		defer ticker.Stop()
		for {
			if err := drawOverview(ctx, w, cmd.ErrOrStderr(), deps, d, format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %v\n", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func drawOverview(ctx context.Context, w, errW io.Writer, deps *app.Deps, d *dashboard.Dashboard, format string) error {
	start := time.Now()
	machine := render.Machine(format)

	if !overviewNoSummary && !machine {
		if s, err := deps.Client.FetchSummary(ctx); err != nil {
			fmt.Fprintf(errW, "⚠  Key figures: %s\n", notice(err))
		} else {
			result := &model.Result{
				Kind:        model.KindSummary,
				GeneratedAt: time.Now(),
				Command:     "overview",
				Data:        s,
			}
			if err := render.Render(w, result, format); err != nil {
				return err
			}
		}
	}

	report, err := d.Overview(ctx)
	if err := reportOutcome(errW, report, err); err != nil {
		return err
	}
	if globalFlags.Verbose && !machine {
		fmt.Fprintf(w, "\n[%d/%d charts • %dms]\n", report.Drawn(), len(report.Outcomes), time.Since(start).Milliseconds())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(overviewCmd)
	overviewCmd.Flags().BoolVar(&overviewNoSummary, "no-summary", false, "skip the key figures table")
	overviewCmd.Flags().BoolVar(&overviewNoStats, "no-stats", false, "hide the statistics line under each chart")
	overviewCmd.Flags().DurationVar(&overviewWatch, "watch", 0, "redraw every interval until interrupted (e.g. 1m)")
}
