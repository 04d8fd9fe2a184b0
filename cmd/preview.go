package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/pinned"
)

// builderFlags holds the chart builder form shared by preview and pin add.
type builderFlags struct {
	Title  string
	Source string
	Kind   string
	Period int
	Scheme string
}

func (b *builderFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&b.Title, "title", "", "chart title")
	f.StringVar(&b.Source, "source", string(model.SourceDailyRevenue),
		"data source: daily-revenue|transaction-count|hourly-count|payment-type-breakdown|card-type-breakdown")
	f.StringVar(&b.Kind, "kind", string(model.ChartLine), "chart kind: line|bar|pie|ring|area")
	f.IntVar(&b.Period, "period", 30, "days of history (ignored by payment-type-breakdown)")
	f.StringVar(&b.Scheme, "scheme", string(model.SchemeBlue), "color scheme: blue|green|purple|orange|red")
}

func (b *builderFlags) descriptor() (model.Descriptor, error) {
	return parseDescriptor(b.Title, b.Source, b.Kind, b.Scheme, b.Period)
}

var (
	previewForm builderFlags
	previewPin  bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Build a chart from a data source and draw it",
	Long: `Draws a chart from the builder form: a data source, a chart kind, a
period in days and a color scheme. Nothing is saved unless --pin is given,
in which case the chart is pinned after it drew successfully.`,
	Example: `  tally preview --source daily-revenue --kind area --period 14 --scheme green
  tally preview --source card-type-breakdown --kind pie
  tally preview --source hourly-count --kind bar --period 7 --title "Rush hours" --pin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := previewForm.descriptor()
		if err != nil {
			return err
		}
		if previewPin && desc.Title == "" {
			return pinned.ErrTitleRequired
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		d, err := deps.Dashboard(newSurface(w, resolveFormat(deps.Config.Format), true))
		if err != nil {
			return err
		}
		if _, err := d.Preview(cmd.Context(), desc); err != nil {
			return wrapNotice(string(desc.DataSource), err)
		}

		if !previewPin {
			return nil
		}
		saved, err := d.Save(desc)
		if err != nil {
			return err
		}
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Pinned %q as %s\n", saved.Title, saved.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewForm.register(previewCmd)
	previewCmd.Flags().BoolVar(&previewPin, "pin", false, "pin the chart after drawing it (requires --title)")
}
