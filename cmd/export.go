package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/backend"
	"github.com/derickschaefer/tally/internal/export"
	"github.com/derickschaefer/tally/internal/util"
)

var (
	exportLimit int
	exportStart string
	exportEnd   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export transactions as CSV",
	Long: `Downloads the transaction list from the backend and writes it as CSV with
the columns Date, Time, Amount, Status, Payment Type, Card Type and
Transaction ID.

The file is named transactions_YYYY-MM-DD.csv after today's date unless
--out is given. Use --out - to write to stdout.`,
	Example: `  tally export
  tally export --start 2024-03-01 --end 2024-03-31 --limit 1000
  tally export --out - | head`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := backend.TxnOptions{Limit: exportLimit}
		for _, d := range []string{exportStart, exportEnd} {
			if d == "" {
				continue
			}
			if _, err := util.ParseDate(d); err != nil {
				return err
			}
		}
		opts.Start, opts.End = exportStart, exportEnd

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		txns, err := deps.Client.FetchTransactions(cmd.Context(), opts)
		if err != nil {
			return wrapNotice("fetching transactions", err)
		}

		path := globalFlags.Out
		if path == "" {
			path = export.FileName(time.Now())
		}
		if path == "-" {
			return export.WriteTransactionsCSV(cmd.OutOrStdout(), txns)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := export.WriteTransactionsCSV(f, txns); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d transactions to %s\n", len(txns), path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().IntVar(&exportLimit, "limit", 100, "maximum number of transactions")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "first day to include (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last day to include (YYYY-MM-DD)")
}
