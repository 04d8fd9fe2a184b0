package cmd

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/tally/internal/analyze"
	"github.com/derickschaefer/tally/internal/chartspec"
	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/render"
	"github.com/derickschaefer/tally/internal/transform"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Statistics over a data source",
	Long: `Analyze operators fetch one data source, the same way a chart would, and
print statistics for each of its value sequences.

Examples:
  tally analyze summary --source daily-revenue --period 30
  tally analyze trend --source transaction-count --period 90 --method theil-sen
  tally analyze transform --source daily-revenue --period 90 --op roll --window 7`,
}

var (
	analyzeSource string
	analyzePeriod int
)

// fetchSeries resolves the --source/--period pair into a normalized series.
func fetchSeries(cmd *cobra.Command) (model.Series, error) {
	src, err := model.ParseDataSource(analyzeSource)
	if err != nil {
		return model.Series{}, err
	}
	// Chart kind and scheme do not affect the data; any valid pair will do.
	desc := model.Descriptor{ChartKind: model.ChartLine, DataSource: src, Period: analyzePeriod, ColorScheme: model.SchemeBlue}
	if err := desc.Validate(); err != nil {
		return model.Series{}, err
	}

	deps, err := buildDeps()
	if err != nil {
		return model.Series{}, err
	}
	series, err := deps.Resolver.Resolve(cmd.Context(), desc)
	if err != nil {
		return model.Series{}, wrapNotice(string(src), err)
	}
	return series, series.Check()
}

// ─── analyze summary ─────────────────────────────────────────────────────────

var analyzeSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Descriptive statistics: count, total, mean, std, min, max, median",
	Example: `  tally analyze summary --source daily-revenue --period 30
  tally analyze summary --source hourly-count --period 7 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		series, err := fetchSeries(cmd)
		if err != nil {
			return err
		}

		format := resolveFormat("")
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		var sums []analyze.Summary
		for _, nv := range series.Series {
			sums = append(sums, analyze.Summarize(nv.Name, nv.Values))
		}
		if render.Machine(format) {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(sums)
		}

		for i, s := range sums {
			if i > 0 {
				fmt.Fprintln(w)
			}
			rows := [][]string{
				{"series", s.Name},
				{"count", fmt.Sprintf("%d", s.Count)},
				{"total", fmtStat(s.Total)},
				{"mean", fmtStat(s.Mean)},
				{"std", fmtStat(s.Std)},
				{"min", fmtStat(s.Min)},
				{"p25", fmtStat(s.P25)},
				{"median", fmtStat(s.Median)},
				{"p75", fmtStat(s.P75)},
				{"max", fmtStat(s.Max)},
				{"first", fmtStat(s.First)},
				{"last", fmtStat(s.Last)},
				{"change", fmtStat(s.Change)},
				{"change_pct", fmtStatPct(s.ChangePct)},
			}
			printKVTableTo(w, rows)
		}
		return nil
	},
}

// ─── analyze trend ────────────────────────────────────────────────────────────

var analyzeTrendMethod string

var analyzeTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Fit a linear trend: slope, intercept, R², direction",
	Example: `  tally analyze trend --source daily-revenue --period 60
  tally analyze trend --source transaction-count --method theil-sen`,
	RunE: func(cmd *cobra.Command, args []string) error {
		series, err := fetchSeries(cmd)
		if err != nil {
			return err
		}

		var trends []analyze.TrendResult
		for _, nv := range series.Series {
			tr, err := analyze.Trend(nv.Name, nv.Values, analyze.TrendMethod(analyzeTrendMethod))
			if err != nil {
				return err
			}
			trends = append(trends, tr)
		}

		format := resolveFormat("")
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()
		if render.Machine(format) {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(trends)
		}

		for _, tr := range trends {
			rows := [][]string{
				{"series", tr.Name},
				{"method", string(tr.Method)},
				{"direction", tr.Direction},
				{"slope_per_step", fmt.Sprintf("%.4f", tr.Slope)},
				{"intercept", fmt.Sprintf("%.4f", tr.Intercept)},
				{"r2", fmt.Sprintf("%.4f", tr.R2)},
			}
			printKVTableTo(w, rows)
		}
		return nil
	},
}

// ─── analyze transform ────────────────────────────────────────────────────────

var analyzeTransformFlags struct {
	Op         string
	Window     int
	MinPeriods int
	Stat       string
	Lag        int
	Order      int
	Freq       string
	How        string
	Method     string
	Base       float64
	Kind       string
}

var analyzeTransformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform a data source and chart the result",
	Long: `Applies one operator to every value sequence of a data source and draws
the result. With a machine format the transformed series is written as JSON,
missing values as null.

Operators:
  roll        rolling window statistic (--window, --min-periods, --stat)
  pct-change  percent change over --lag points
  diff        first or second difference (--order)
  resample    weekly or monthly buckets of daily sources (--freq, --how)
  normalize   zscore or minmax (--method)
  index       rebase so the first non-zero value equals --base`,
	Example: `  tally analyze transform --source daily-revenue --period 90 --op roll --window 7
  tally analyze transform --source transaction-count --period 90 --op resample --freq weekly
  tally analyze transform --source daily-revenue --op pct-change --lag 7 --kind bar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := analyzeTransformFlags
		kind, err := model.ParseChartKind(f.Kind)
		if err != nil {
			return err
		}
		series, err := fetchSeries(cmd)
		if err != nil {
			return err
		}
		out, err := applyTransform(series)
		if err != nil {
			return err
		}

		format := resolveFormat("")
		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		if render.Machine(format) {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(nullableSeries(out))
		}

		reg := dashboard.NewRegistry(&dashboard.TerminalSurface{W: w, ShowStats: true})
		defer reg.Close()
		title := fmt.Sprintf("%s · %s", analyzeSource, f.Op)
		return reg.Replace(reg.Begin("transform"), chartspec.Build(out, kind, model.SchemeBlue, title))
	},
}

// applyTransform runs the operator selected by the transform flags.
func applyTransform(s model.Series) (model.Series, error) {
	f := analyzeTransformFlags
	switch f.Op {
	case "roll":
		return transform.Roll(s, f.Window, f.MinPeriods, transform.RollStat(f.Stat))
	case "pct-change":
		return transform.PctChange(s, f.Lag)
	case "diff":
		return transform.Diff(s, f.Order)
	case "resample":
		return transform.Resample(s, transform.ResampleFreq(f.Freq), transform.ResampleMethod(f.How))
	case "normalize":
		return transform.Normalize(s, transform.NormalizeMethod(f.Method))
	case "index":
		return transform.Index(s, f.Base)
	default:
		return model.Series{}, fmt.Errorf("unknown operator %q (use roll, pct-change, diff, resample, normalize, index)", f.Op)
	}
}

// nullableSeries replaces NaN with nil so the series can be JSON encoded.
func nullableSeries(s model.Series) map[string]interface{} {
	series := make([]map[string]interface{}, len(s.Series))
	for i, nv := range s.Series {
		vals := make([]*float64, len(nv.Values))
		for j, v := range nv.Values {
			v := v
			if !math.IsNaN(v) {
				vals[j] = &v
			}
		}
		series[i] = map[string]interface{}{"name": nv.Name, "values": vals}
	}
	return map[string]interface{}{"labels": s.Labels, "series": series}
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeSummaryCmd)
	analyzeCmd.AddCommand(analyzeTrendCmd)
	analyzeCmd.AddCommand(analyzeTransformCmd)

	pf := analyzeCmd.PersistentFlags()
	pf.StringVar(&analyzeSource, "source", string(model.SourceDailyRevenue), "data source to analyze")
	pf.IntVar(&analyzePeriod, "period", 30, "days of history")

	analyzeTrendCmd.Flags().StringVar(&analyzeTrendMethod, "method", "linear",
		"regression method: linear|theil-sen")

	tf := analyzeTransformCmd.Flags()
	tf.StringVar(&analyzeTransformFlags.Op, "op", "roll", "operator: roll|pct-change|diff|resample|normalize|index")
	tf.IntVar(&analyzeTransformFlags.Window, "window", 7, "roll: window size in points")
	tf.IntVar(&analyzeTransformFlags.MinPeriods, "min-periods", 1, "roll: minimum values per window")
	tf.StringVar(&analyzeTransformFlags.Stat, "stat", "mean", "roll: mean|std|min|max|sum")
	tf.IntVar(&analyzeTransformFlags.Lag, "lag", 1, "pct-change: points to look back")
	tf.IntVar(&analyzeTransformFlags.Order, "order", 1, "diff: 1 or 2")
	tf.StringVar(&analyzeTransformFlags.Freq, "freq", "weekly", "resample: weekly|monthly")
	tf.StringVar(&analyzeTransformFlags.How, "how", "sum", "resample: sum|mean|last")
	tf.StringVar(&analyzeTransformFlags.Method, "method", "zscore", "normalize: zscore|minmax")
	tf.Float64Var(&analyzeTransformFlags.Base, "base", 100, "index: value of the anchor point")
	tf.StringVar(&analyzeTransformFlags.Kind, "kind", string(model.ChartLine), "chart kind: line|bar|area")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func fmtStat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%.4f", v)
}

func fmtStatPct(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%.2f%%", v)
}
