package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/backend"
	"github.com/derickschaefer/tally/internal/chart"
	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/render"
)

// resolveFormat returns the effective format string, falling back to "terminal".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTerminal
}

// outputWriter returns w, or a file named by --out. The returned close
// function must always be called.
func outputWriter(w io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// renderResult renders result to --out or the command's stdout.
func renderResult(cmd *cobra.Command, result *model.Result, format string) error {
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeFn()
	if err := render.Render(w, result, format); err != nil {
		return err
	}
	render.PrintFooter(cmd.ErrOrStderr(), result, globalFlags.Verbose)
	return nil
}

// newSurface picks the drawing surface for format: JSON frames for machine
// formats, ASCII charts otherwise.
func newSurface(w io.Writer, format string, stats bool) dashboard.Surface {
	if render.Machine(format) {
		return &dashboard.JSONSurface{W: w}
	}
	return &dashboard.TerminalSurface{W: w, Chart: chart.Options{}, ShowStats: stats}
}

// reportOutcome prints a notice per failed slot and returns an error only
// when every attempted slot failed.
func reportOutcome(w io.Writer, report dashboard.Report, err error) error {
	if err == nil {
		return nil
	}
	if len(report.Outcomes) == 0 {
		return err
	}
	for _, o := range report.Outcomes {
		if o.Err != nil && !globalFlags.Quiet {
			fmt.Fprintf(w, "⚠  %s: %s\n", o.Title, notice(o.Err))
		}
	}
	if report.AllFailed() {
		return fmt.Errorf("no chart could be drawn (%d failed)", len(report.Outcomes))
	}
	return nil
}

// notice shortens backend failures to a user-facing line.
func notice(err error) string {
	if errors.Is(err, backend.ErrUnavailable) {
		return err.Error() + " (retry later)"
	}
	return err.Error()
}

// wrapNotice prefixes err with what was being fetched, keeping the chain
// intact and adding the retry hint for an unavailable backend.
func wrapNotice(what string, err error) error {
	if errors.Is(err, backend.ErrUnavailable) {
		return fmt.Errorf("%s: %w (retry later)", what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// parseDescriptor builds a descriptor from builder flag values.
func parseDescriptor(title, source, kind, scheme string, period int) (model.Descriptor, error) {
	src, err := model.ParseDataSource(source)
	if err != nil {
		return model.Descriptor{}, err
	}
	k, err := model.ParseChartKind(kind)
	if err != nil {
		return model.Descriptor{}, err
	}
	cs, err := model.ParseColorScheme(scheme)
	if err != nil {
		return model.Descriptor{}, err
	}
	d := model.Descriptor{
		Title:       strings.TrimSpace(title),
		ChartKind:   k,
		DataSource:  src,
		Period:      period,
		ColorScheme: cs,
	}
	return d, d.Validate()
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTableTo renders a two-column key/value list with aligned columns.
func printKVTableTo(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

// buildDescriptorsResult wraps descriptors in a Result envelope.
func buildDescriptorsResult(command string, descs []model.Descriptor) *model.Result {
	return &model.Result{
		Kind:        model.KindDescriptors,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        descs,
		Stats:       model.ResultStats{Items: len(descs)},
	}
}

// buildDescriptorResult wraps a single descriptor in a Result envelope.
func buildDescriptorResult(command string, d model.Descriptor) *model.Result {
	return &model.Result{
		Kind:        model.KindDescriptor,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        d,
		Stats:       model.ResultStats{Items: 1},
	}
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
