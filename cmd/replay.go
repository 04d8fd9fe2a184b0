package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/dashboard"
)

var replayNoStats bool

var replayCmd = &cobra.Command{
	Use:   "replay [ID]",
	Short: "Redraw pinned charts",
	Long: `Redraws every pinned chart in the order it was pinned, or just the one
with the given id. Each chart is fetched and drawn in turn; a chart whose
data cannot be fetched is reported and skipped.`,
	Example: `  tally replay
  tally replay 01907a6e-5c1b-7cc2-9d4e-2b7f3a1e0c55
  tally replay --format json | tally chart`,
	Args: cobra.MaximumNArgs(1),
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

		d, err := deps.Dashboard(newSurface(w, resolveFormat(deps.Config.Format), !replayNoStats))
		if err != nil {
			return err
		}
		defer deps.Close()

		var report dashboard.Report
		if len(args) == 1 {
			report, err = d.ReplayOne(cmd.Context(), args[0])
		} else {
			report, err = d.Replay(cmd.Context())
		}
		if len(report.Outcomes) == 0 && err == nil {
			if !globalFlags.Quiet {
				fmt.Fprintln(cmd.ErrOrStderr(), "No pinned charts. Use: tally pin add --title ...")
			}
			return nil
		}
		return reportOutcome(cmd.ErrOrStderr(), report, err)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayNoStats, "no-stats", false, "hide the statistics line under each chart")
}
