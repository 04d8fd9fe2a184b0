package cmd

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/store"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and manage the local database",
	Long: `Commands for inspecting and clearing the local bbolt database that holds
pinned charts. The path comes from --db, TALLY_DB_PATH, config.json or
~/.tally/tally.db, in that order.`,
}

// ─── db stats ─────────────────────────────────────────────────────────────────

var dbStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  tally db stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if deps.Config.Ephemeral {
			return fmt.Errorf("db stats needs the on-disk database; drop --ephemeral")
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		// Sort by bucket name for deterministic output
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", deps.Store.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── db clear ─────────────────────────────────────────────────────────────────

var (
	dbClearBucket string
	dbClearYes    bool
)

var dbClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every entry in a bucket",
	Long: `Deletes every entry in a bucket. The kv bucket holds the pinned charts,
so clearing it unpins everything. --yes is required.

Note: bbolt does not shrink the database file after clearing; free pages are
reused on the next write.`,
	Example: `  tally db clear --yes
  tally db clear --bucket kv --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(store.AllBuckets, dbClearBucket) {
			return fmt.Errorf("unknown bucket %q (buckets: %s)", dbClearBucket, strings.Join(store.AllBuckets, ", "))
		}
		if !dbClearYes {
			return fmt.Errorf("clearing %q deletes data; re-run with --yes", dbClearBucket)
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if deps.Config.Ephemeral {
			return fmt.Errorf("db clear needs the on-disk database; drop --ephemeral")
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Store.ClearBucket(dbClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", dbClearBucket, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", dbClearBucket)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbClearCmd)

	dbClearCmd.Flags().StringVar(&dbClearBucket, "bucket", store.AllBuckets[0], "bucket to clear")
	dbClearCmd.Flags().BoolVar(&dbClearYes, "yes", false, "confirm the deletion")
}
