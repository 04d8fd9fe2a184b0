package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/derickschaefer/tally/internal/analyze"
	"github.com/derickschaefer/tally/internal/chart"
	"github.com/derickschaefer/tally/internal/chartspec"
	"github.com/derickschaefer/tally/internal/model"
)

// ─── Terminal ─────────────────────────────────────────────────────────────────

// TerminalSurface draws ASCII charts, each under a slot heading, optionally
// followed by a one-line statistics footer.
type TerminalSurface struct {
	W         io.Writer
	Chart     chart.Options
	ShowStats bool
}

// Draw writes spec to the terminal.
func (s *TerminalSurface) Draw(slot string, spec chartspec.Spec) (Handle, error) {
	fmt.Fprintf(s.W, "\n── %s %s\n", slot, strings.Repeat("─", max(0, 60-len(slot))))
	if err := chart.Draw(s.W, spec, s.Chart); err != nil {
		return nil, err
	}
	if s.ShowStats && !spec.Kind.Categorical() {
		for _, sum := range Stats(seriesOf(spec)) {
			fmt.Fprintln(s.W, statsLine(sum, spec))
		}
	}
	return &printedHandle{slot: slot}, nil
}

// printedHandle marks output already written to a scrolling terminal.
// Destroying it has nothing to take down.
type printedHandle struct {
	slot      string
	destroyed bool
}

func (h *printedHandle) Destroy() { h.destroyed = true }

func statsLine(sum analyze.Summary, spec chartspec.Spec) string {
	line := fmt.Sprintf("  %s  total %s  mean %s  min %s  max %s",
		sum.Name, num(sum.Total), num(sum.Mean), num(sum.Min), num(sum.Max))
	if spec.Kind == model.ChartLine {
		var values []float64
		for _, ds := range spec.Datasets {
			if ds.Label == sum.Name {
				values = ds.Data
				break
			}
		}
		if tr, err := analyze.Trend(sum.Name, values, analyze.TrendTheilSen); err == nil {
			line += "  trend " + tr.Direction
		}
	}
	return line
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return fmt.Sprintf("%.2f", v)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

// JSONSurface writes one JSON object per drawn chart, newline delimited, for
// machine consumers and browser renderers.
type JSONSurface struct {
	W io.Writer
}

// Frame is one chart written by JSONSurface.
type Frame struct {
	Slot string         `json:"slot"`
	Spec chartspec.Spec `json:"spec"`
}

// Draw encodes spec as a Frame.
func (s *JSONSurface) Draw(slot string, spec chartspec.Spec) (Handle, error) {
	if err := json.NewEncoder(s.W).Encode(Frame{Slot: slot, Spec: spec}); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", slot, err)
	}
	return &printedHandle{slot: slot}, nil
}

// ─── Stats ────────────────────────────────────────────────────────────────────

// Stats summarizes every value sequence of s.
func Stats(s model.Series) []analyze.Summary {
	out := make([]analyze.Summary, len(s.Series))
	for i, nv := range s.Series {
		out[i] = analyze.Summarize(nv.Name, nv.Values)
	}
	return out
}

func seriesOf(spec chartspec.Spec) model.Series {
	s := model.Series{Labels: spec.Labels}
	for _, ds := range spec.Datasets {
		s.Series = append(s.Series, model.NamedValues{Name: ds.Label, Values: ds.Data})
	}
	return s
}
