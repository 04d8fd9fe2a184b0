// Package chart provides ASCII terminal rendering for chart specifications.
// Three renderers are available:
//
//   - Bar: horizontal bar chart, one bar per label. Used for bar specs and for
//     line specs too short to plot.
//   - Plot: multi-line ASCII chart with labeled axes. Used for line and area specs.
//   - Share: percentage bars, one per category. Used for pie and ring specs.
//
// Draw picks the renderer from the spec's shape. All renderers treat NaN
// values as gaps, not zeros.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/derickschaefer/tally/internal/chartspec"
	"github.com/derickschaefer/tally/internal/model"
)

// Point is one labeled value.
type Point struct {
	Label string
	Value float64
}

// Points zips labels and values into Points. Extra entries on either side are
// dropped.
func Points(labels []string, values []float64) []Point {
	n := min(len(labels), len(values))
	out := make([]Point, n)
	for i := 0; i < n; i++ {
		out[i] = Point{Label: labels[i], Value: values[i]}
	}
	return out
}

// ─── Draw ────────────────────────────────────────────────────────────────────

// Options controls Draw.
type Options struct {
	// Width is the total character width. If 0, auto-detects from $COLUMNS,
	// falls back to 80.
	Width int
	// Height is the number of plot rows for line charts. If 0, defaults to 12.
	Height int
}

// Draw renders spec to w, one block per dataset.
func Draw(w io.Writer, spec chartspec.Spec, opts Options) error {
	if len(spec.Datasets) == 0 {
		return fmt.Errorf("chart: %q has no datasets", spec.Title)
	}
	if spec.Options.Legend.Display && !spec.Kind.Categorical() {
		writeLegend(w, spec.Datasets)
	}
	for i, ds := range spec.Datasets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := heading(spec, ds)
		pts := Points(spec.Labels, ds.Data)

		var err error
		switch spec.Kind {
		case model.ChartPie, model.ChartRing:
			err = Share(w, title, pts, ShareOptions{Width: opts.Width, Ring: spec.Kind == model.ChartRing})
		case model.ChartLine, model.ChartArea:
			if countValid(pts) < 2 {
				err = Bar(w, title, pts, BarOptions{Width: opts.Width})
				break
			}
			err = Plot(w, title, pts, PlotOptions{Width: opts.Width, Height: opts.Height, Fill: ds.Fill})
		default:
			err = Bar(w, title, pts, BarOptions{Width: opts.Width})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func heading(spec chartspec.Spec, ds chartspec.Dataset) string {
	switch {
	case spec.Title == "":
		return ds.Label
	case len(spec.Datasets) > 1:
		return spec.Title + ": " + ds.Label
	default:
		return spec.Title
	}
}

func writeLegend(w io.Writer, datasets []chartspec.Dataset) {
	names := make([]string, len(datasets))
	for i, ds := range datasets {
		names[i] = "■ " + ds.Label
	}
	fmt.Fprintln(w, strings.Join(names, "   "))
}

func countValid(pts []Point) int {
	n := 0
	for _, p := range pts {
		if !math.IsNaN(p.Value) {
			n++
		}
	}
	return n
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars is the maximum number of bars to render. When exceeded, the
	// last MaxBars points are kept. If 0, no limit is applied.
	MaxBars int
}

// Bar renders a horizontal bar chart of pts to w, one bar per point.
//
// Output example:
//
//	Hourly transactions  0:00 – 23:00
//	0:00    3  ████
//	1:00   12  ████████████████
func Bar(w io.Writer, title string, pts []Point, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	var valid []Point
	for _, p := range pts {
		if !math.IsNaN(p.Value) {
			valid = append(valid, p)
		}
	}
	if len(valid) < 1 {
		return fmt.Errorf("chart bar: no non-NaN values to render")
	}

	maxBars := opts.MaxBars
	if maxBars > 0 && len(valid) > maxBars {
		valid = valid[len(valid)-maxBars:]
	}

	if len(valid) > 60 {
		fmt.Fprintf(w, "⚠  %d bars — consider a shorter period or a line chart\n\n", len(valid))
	}

	minVal, maxVal := valid[0].Value, valid[0].Value
	for _, p := range valid[1:] {
		minVal = math.Min(minVal, p.Value)
		maxVal = math.Max(maxVal, p.Value)
	}

	labelWidth := 0
	valWidth := 0
	for _, p := range valid {
		labelWidth = max(labelWidth, runeLen(p.Label))
		valWidth = max(valWidth, len(formatFloat(p.Value)))
	}

	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	// Bars grow from zero unless the series dips below it.
	baseline := math.Min(0, minVal)
	valRange := maxVal - baseline
	if valRange == 0 {
		valRange = 1
	}

	hasNeg := minVal < 0
	var zeroPos int
	if hasNeg {
		negRange := maxVal - minVal
		if negRange == 0 {
			negRange = 1
		}
		zeroPos = int(math.Round((-minVal / negRange) * float64(barAreaWidth-1)))
	}

	fmt.Fprintf(w, "%s  %s – %s\n", title, valid[0].Label, valid[len(valid)-1].Label)

	for _, p := range valid {
		var bar string
		if hasNeg {
			bar = buildBiBar(p.Value, minVal, maxVal, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round((p.Value - baseline) / valRange * float64(barAreaWidth)))
			if barLen < 1 && p.Value > 0 {
				barLen = 1 // every non-zero bar stays visible
			}
			barLen = min(barLen, barAreaWidth)
			bar = strings.Repeat("█", barLen)
		}

		fmt.Fprintf(w, "%s  %*s  %s\n",
			padRight(p.Label, labelWidth),
			valWidth, formatFloat(p.Value),
			bar,
		)
	}

	return nil
}

// buildBiBar renders a bar that may extend left (negative) or right (positive)
// from a zero baseline at zeroPos within a field of width barAreaWidth.
func buildBiBar(val, minVal, maxVal float64, barAreaWidth, zeroPos int) string {
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
	}
	buf := []rune(strings.Repeat(" ", barAreaWidth))

	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}

	if val >= 0 {
		end := zeroPos + int(math.Round(val/valRange*float64(barAreaWidth-1)))
		if end > barAreaWidth {
			end = barAreaWidth
		}
		for i := zeroPos + 1; i <= end && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		start := zeroPos - int(math.Round((-val)/valRange*float64(barAreaWidth-1)))
		if start < 0 {
			start = 0
		}
		for i := start; i < zeroPos && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	}

	return string(buf)
}

// ─── Share ───────────────────────────────────────────────────────────────────

// ShareOptions controls categorical share rendering.
type ShareOptions struct {
	// Width is the total character width. If 0, auto-detects.
	Width int
	// Ring marks the chart as a ring (hollow) rather than a pie.
	Ring bool
}

// Share renders each point's share of the total as a percentage bar.
// Negative and NaN values are skipped; they have no meaningful share.
//
// Output example:
//
//	Payment types  (pie, total 1.2K)
//	● CARD    72.5%  ██████████████████████
//	● CASH    27.5%  ████████
func Share(w io.Writer, title string, pts []Point, opts ShareOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	var valid []Point
	total := 0.0
	for _, p := range pts {
		if math.IsNaN(p.Value) || p.Value < 0 {
			continue
		}
		valid = append(valid, p)
		total += p.Value
	}
	if len(valid) == 0 {
		return fmt.Errorf("chart share: no non-negative values to render")
	}

	shape, marker := "pie", "●"
	if opts.Ring {
		shape, marker = "ring", "○"
	}
	fmt.Fprintf(w, "%s  (%s, total %s)\n", title, shape, formatFloat(total))

	labelWidth := 0
	for _, p := range valid {
		labelWidth = max(labelWidth, runeLen(p.Label))
	}
	// marker + space + label + 2 + "100.0%" + 2
	barAreaWidth := totalWidth - labelWidth - 12
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	for _, p := range valid {
		pct := 0.0
		if total > 0 {
			pct = p.Value / total * 100
		}
		barLen := int(math.Round(pct / 100 * float64(barAreaWidth)))
		fmt.Fprintf(w, "%s %s  %5.1f%%  %s\n",
			marker, padRight(p.Label, labelWidth), pct, strings.Repeat("█", barLen))
	}
	return nil
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width of the chart (including Y-axis label).
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of data rows in the chart body (not counting axis labels).
	// If 0, defaults to 12.
	Height int
	// Fill shades the area under the line.
	Fill bool
}

// Plot renders a multi-line ASCII chart of pts to w.
func Plot(w io.Writer, title string, pts []Point, opts PlotOptions) error {
	width := opts.Width
	if width <= 0 {
		width = termWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}

	var validVals []float64
	for _, p := range pts {
		if !math.IsNaN(p.Value) {
			validVals = append(validVals, p.Value)
		}
	}
	if len(validVals) < 2 {
		return fmt.Errorf("chart plot: need at least 2 non-NaN values (got %d)", len(validVals))
	}

	minVal, maxVal := validVals[0], validVals[0]
	for _, v := range validVals[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	// Numeric axes start at zero.
	if minVal > 0 {
		minVal = 0
	}

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := 0
	for _, t := range ticks {
		yLabelWidth = max(yLabelWidth, len(formatFloat(t)))
	}
	yAxisWidth := yLabelWidth + 2

	plotWidth := width - yAxisWidth
	if plotWidth < 10 {
		plotWidth = 10
	}

	cols := sampleCols(pts, plotWidth)
	grid := buildGrid(cols, minVal, maxVal, height)
	if opts.Fill {
		fillGrid(grid)
	}

	fmt.Fprintf(w, "%s  (%s to %s)\n", title, pts[0].Label, pts[len(pts)-1].Label)

	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		labelPadded := fmt.Sprintf("%*s", yLabelWidth, label)

		axisCh := "┤"
		if label != "" && math.Abs(minVal) < 1e-9 && row == height-1 {
			axisCh = "┼"
		} else if label == "" {
			axisCh = " "
		}

		fmt.Fprintf(w, "%s%s%s\n", labelPadded, axisCh, string(grid[row]))
	}

	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(pts, plotWidth))

	return nil
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols maps pts onto exactly n columns. When there are more points than
// columns each column averages its bucket; when there are fewer, each point
// is stretched across its share of columns. All-NaN buckets stay NaN.
func sampleCols(pts []Point, n int) []float64 {
	total := len(pts)
	cols := make([]float64, n)
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := (col+1)*total/n - 1
		if hi < lo {
			hi = lo
		}
		if hi >= total {
			hi = total - 1
		}
		sum, count := 0.0, 0
		for i := lo; i <= hi; i++ {
			if !math.IsNaN(pts[i].Value) {
				sum += pts[i].Value
				count++
			}
		}
		if count == 0 {
			cols[col] = math.NaN()
		} else {
			cols[col] = sum / float64(count)
		}
	}
	return cols
}

// rowForValue returns the float row index (0=top=max) for a given value.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

// buildGrid renders columns into a height×width rune grid using
// box-drawing characters to connect adjacent data points.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = make([]rune, len(cols))
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	rowOf := make([]int, len(cols))
	for col, v := range cols {
		if math.IsNaN(v) {
			rowOf[col] = -1 // gap
			continue
		}
		r := int(math.Round(rowForValue(v, minVal, maxVal, height)))
		rowOf[col] = max(0, min(r, height-1))
	}

	for col := 0; col < len(cols); col++ {
		r := rowOf[col]
		if r < 0 {
			continue
		}

		prevRow := -2
		if col > 0 {
			prevRow = rowOf[col-1]
		}
		nextRow := -2
		if col < len(cols)-1 {
			nextRow = rowOf[col+1]
		}

		if prevRow == -2 && nextRow == -2 {
			grid[r][col] = '·'
			continue
		}

		if (prevRow < 0 || prevRow == r) && (nextRow < 0 || nextRow == r) {
			grid[r][col] = '─'
			continue
		}

		goingUp := (nextRow >= 0 && nextRow < r) || (prevRow >= 0 && prevRow < r)
		goingDown := (nextRow >= 0 && nextRow > r) || (prevRow >= 0 && prevRow > r)

		switch {
		case prevRow >= 0 && prevRow < r && nextRow >= 0 && nextRow < r:
			grid[r][col] = '─'
		case prevRow >= 0 && prevRow > r && nextRow >= 0 && nextRow > r:
			grid[r][col] = '─'
		case (prevRow < 0 || prevRow < r) && nextRow >= 0 && nextRow > r:
			grid[r][col] = '╭'
		case (prevRow < 0 || prevRow > r) && nextRow >= 0 && nextRow < r:
			grid[r][col] = '╰'
		case prevRow >= 0 && prevRow < r && (nextRow < 0 || nextRow > r):
			grid[r][col] = '╮'
		case prevRow >= 0 && prevRow > r && (nextRow < 0 || nextRow < r):
			grid[r][col] = '╯'
		default:
			if goingUp || goingDown {
				grid[r][col] = '│'
			} else {
				grid[r][col] = '─'
			}
		}

		if prevRow >= 0 && prevRow != r {
			lo, hi := r, prevRow
			if lo > hi {
				lo, hi = hi, lo
			}
			for fill := lo + 1; fill < hi; fill++ {
				if grid[fill][col] == ' ' {
					grid[fill][col] = '│'
				}
			}
		}
	}

	return grid
}

// fillGrid shades every empty cell below the topmost drawn cell of each column.
func fillGrid(grid [][]rune) {
	if len(grid) == 0 {
		return
	}
	for col := range grid[0] {
		drawn := false
		for row := range grid {
			if grid[row][col] != ' ' {
				drawn = true
				continue
			}
			if drawn {
				grid[row][col] = '░'
			}
		}
	}
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// yTicks returns 3–5 evenly-spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	nTicks := 4
	if height <= 6 {
		nTicks = 3
	}
	ticks := make([]float64, nTicks)
	for i := 0; i < nTicks; i++ {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(nTicks-1)
	}
	return ticks
}

// xAxisLabels builds a padded string with start, middle, and end labels.
func xAxisLabels(pts []Point, plotWidth int) string {
	if len(pts) == 0 {
		return ""
	}
	startLabel := pts[0].Label
	endLabel := pts[len(pts)-1].Label
	midLabel := pts[len(pts)/2].Label

	midPos := plotWidth/2 - runeLen(midLabel)/2
	endPos := plotWidth - runeLen(endLabel)

	buf := []rune(strings.Repeat(" ", plotWidth))

	writeAt := func(pos int, s string) {
		for i, ch := range []rune(s) {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}

	writeAt(0, startLabel)
	if len(pts) > 2 {
		writeAt(midPos, midLabel)
	}
	writeAt(endPos, endLabel)

	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a float for axis labels: no unnecessary trailing zeros,
// at least one decimal place, compact notation for large/small numbers.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		s = strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e3:
		s = strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	if strings.Contains(s, ".") && !strings.Contains(s, "M") && !strings.Contains(s, "K") {
		s = strings.TrimRight(s, "0")
		if strings.HasSuffix(s, ".") {
			s += "0"
		}
	}
	return s
}

func runeLen(s string) int { return len([]rune(s)) }

func padRight(s string, width int) string {
	if n := runeLen(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
