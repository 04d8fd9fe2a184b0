package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/chart"
	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/pipeline"
)

var (
	chartWidth   int
	chartHeight  int
	chartNoStats bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Draw chart frames read as JSONL from stdin",
	Long: `Reads the JSON frames written by 'tally overview', 'tally preview' or
'tally replay' with --format json and draws them as ASCII charts, in order.
No backend is contacted, so saved frames can be redrawn offline.

Width auto-detects from $COLUMNS (falls back to 80). Override with --width
and --height.`,
	Example: `  tally overview --format json | tally chart
  tally replay --format json > pinned.jsonl && tally chart < pinned.jsonl
  tally preview --source daily-revenue --kind area --format json | tally chart --height 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pipeline.IsTTY(os.Stdin) {
			return fmt.Errorf("no input: pipe JSON frames in (e.g. tally overview --format json | tally chart)")
		}
		frames, err := pipeline.ReadFrames(os.Stdin)
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		reg := dashboard.NewRegistry(&dashboard.TerminalSurface{
			W:         w,
			Chart:     chart.Options{Width: chartWidth, Height: chartHeight},
			ShowStats: !chartNoStats,
		})
		defer reg.Close()
		for _, f := range frames {
			if err := reg.Replace(reg.Begin(f.Slot), f.Spec); err != nil {
				return fmt.Errorf("%s: %w", f.Slot, err)
			}
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)

	chartCmd.Flags().IntVar(&chartWidth, "width", 0,
		"chart width in characters (default: auto-detect from $COLUMNS, fallback 80)")
	chartCmd.Flags().IntVar(&chartHeight, "height", 12,
		"line chart height in rows (default 12)")
	chartCmd.Flags().BoolVar(&chartNoStats, "no-stats", false,
		"hide the statistics line under each chart")
}
