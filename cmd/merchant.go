package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/model"
)

var merchantCmd = &cobra.Command{
	Use:   "merchant",
	Short: "Show the merchant account the backend reports on",
	Example: `  tally merchant
  tally merchant --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		m, err := deps.Client.FetchMerchant(cmd.Context())
		if err != nil {
			return wrapNotice("merchant", err)
		}
		result := &model.Result{
			Kind:        model.KindMerchant,
			GeneratedAt: time.Now(),
			Command:     "merchant",
			Data:        m,
			Stats:       model.ResultStats{Items: 1, DurationMs: time.Since(start).Milliseconds()},
		}
		return renderResult(cmd, result, resolveFormat(deps.Config.Format))
	},
}

func init() {
	rootCmd.AddCommand(merchantCmd)
}
