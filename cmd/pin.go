package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/render"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage pinned charts",
	Long: `Pinned charts are chart builder descriptors saved in the local database.
They survive restarts and are redrawn by 'tally replay'.`,
}

// ─── pin add ──────────────────────────────────────────────────────────────────

var pinAddForm builderFlags

var pinAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Pin a chart without drawing it",
	Example: `  tally pin add --title "Revenue, 2 weeks" --source daily-revenue --kind area --period 14
  tally pin add --title "Payment mix" --source payment-type-breakdown --kind ring --scheme purple`,
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := pinAddForm.descriptor()
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		saved, err := deps.Pinned.Add(desc)
		if err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		if render.Machine(format) {
			return renderResult(cmd, buildDescriptorResult("pin add", saved), format)
		}
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Pinned %q as %s\n", saved.Title, saved.ID)
		}
		return nil
	},
}

// ─── pin list ─────────────────────────────────────────────────────────────────

var pinListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pinned charts, oldest first",
	Example: `  tally pin list
  tally pin list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		descs, err := deps.Pinned.LoadAll()
		if err != nil {
			return err
		}
		return renderResult(cmd, buildDescriptorsResult("pin list", descs), resolveFormat(deps.Config.Format))
	},
}

// ─── pin show ─────────────────────────────────────────────────────────────────

var pinShowCmd = &cobra.Command{
	Use:   "show <ID>",
	Short: "Show one pinned chart's descriptor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		d, err := deps.Pinned.Get(args[0])
		if err != nil {
			return err
		}
		return renderResult(cmd, buildDescriptorResult("pin show", d), resolveFormat(deps.Config.Format))
	},
}

// ─── pin remove ───────────────────────────────────────────────────────────────

var pinRemoveCmd = &cobra.Command{
	Use:     "remove <ID...>",
	Aliases: []string{"rm"},
	Short:   "Unpin charts by id",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		d, err := deps.Dashboard(newSurface(cmd.OutOrStdout(), render.FormatTerminal, false))
		if err != nil {
			return err
		}
		defer deps.Close()

		for _, id := range args {
			if err := d.Remove(id); err != nil {
				return fmt.Errorf("removing %s: %w", id, err)
			}
			if !globalFlags.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Unpinned %s\n", id)
			}
		}
		return nil
	},
}

// ─── pin clear ────────────────────────────────────────────────────────────────

var pinClearYes bool

var pinClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Unpin every chart",
	Long: `Removes every pinned chart. This cannot be undone, so --yes is required.`,
	Example: `  tally pin clear --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		d, err := deps.Dashboard(newSurface(cmd.OutOrStdout(), render.FormatTerminal, false))
		if err != nil {
			return err
		}
		defer deps.Close()

		if err := d.Clear(pinClearYes); err != nil {
			if errors.Is(err, dashboard.ErrNotConfirmed) {
				return fmt.Errorf("%w: re-run with --yes", err)
			}
			return err
		}
		if !globalFlags.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all pinned charts")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(pinCmd)
	pinCmd.AddCommand(pinAddCmd)
	pinCmd.AddCommand(pinListCmd)
	pinCmd.AddCommand(pinShowCmd)
	pinCmd.AddCommand(pinRemoveCmd)
	pinCmd.AddCommand(pinClearCmd)

	pinAddForm.register(pinAddCmd)
	pinClearCmd.Flags().BoolVar(&pinClearYes, "yes", false, "confirm removing every pinned chart")
}
