// Package chartspec builds renderer-agnostic chart specifications from a
// normalized series plus style parameters. Builders are pure: the returned
// Spec shares no state with its inputs.
//
// Two entry points exist. Build serves the chart builder and pinned charts
// and always shows the legend. BuildOverview serves the fixed overview charts
// and hides the legend on single-series sequential shapes. The two differ on
// purpose.
package chartspec

import (
	"github.com/derickschaefer/tally/internal/model"
)

// Legend positions.
const (
	PositionTop    = "top"
	PositionBottom = "bottom"
)

// RingCutout is the hollow-center size of ring charts.
const RingCutout = "60%"

const lineTension = 0.4

// Spec is the final render contract.
type Spec struct {
	Kind     model.ChartKind `json:"kind"`
	Title    string          `json:"title,omitempty"`
	Labels   []string        `json:"labels"`
	Datasets []Dataset       `json:"datasets"`
	Options  Options         `json:"options"`
}

// Dataset is one styled value sequence. Sequential shapes carry a single
// background color; categorical shapes carry one per label.
type Dataset struct {
	Label            string    `json:"label"`
	Data             []float64 `json:"data"`
	BorderColor      string    `json:"border_color,omitempty"`
	BackgroundColors []string  `json:"background_colors"`
	Fill             bool      `json:"fill"`
	Tension          float64   `json:"tension,omitempty"`
	BorderWidth      int       `json:"border_width"`
}

// Options holds display options.
type Options struct {
	Legend      Legend `json:"legend"`
	BeginAtZero *bool  `json:"begin_at_zero,omitempty"` // nil: no numeric axis
	Title       Title  `json:"title"`
	Cutout      string `json:"cutout,omitempty"`
}

// Legend controls legend visibility and placement.
type Legend struct {
	Display  bool   `json:"display"`
	Position string `json:"position"`
}

// Title controls the chart heading.
type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text,omitempty"`
}

type legendPolicy int

const (
	legendAlways legendPolicy = iota
	legendCategoricalOnly
)

// Build returns the chart builder specification for s.
func Build(s model.Series, kind model.ChartKind, scheme model.ColorScheme, title string) Spec {
	return build(s, kind, scheme, title, legendAlways)
}

// BuildOverview returns the fixed overview specification for s.
func BuildOverview(s model.Series, kind model.ChartKind, scheme model.ColorScheme, title string) Spec {
	return build(s, kind, scheme, title, legendCategoricalOnly)
}

func build(s model.Series, kind model.ChartKind, scheme model.ColorScheme, title string, policy legendPolicy) Spec {
	shape := kind
	fill := false
	if kind == model.ChartArea {
		shape = model.ChartLine
		fill = true
	}

	spec := Spec{
		Kind:   shape,
		Title:  title,
		Labels: append([]string(nil), s.Labels...),
		Options: Options{
			Title: Title{Display: title != "", Text: title},
		},
	}

	if kind.Categorical() {
		for _, nv := range s.Series {
			spec.Datasets = append(spec.Datasets, categoricalDataset(nv, scheme, len(s.Labels)))
		}
		spec.Options.Legend = Legend{Display: true, Position: PositionBottom}
		if kind == model.ChartRing {
			spec.Options.Cutout = RingCutout
		}
		return spec
	}

	for i, nv := range s.Series {
		spec.Datasets = append(spec.Datasets, sequentialDataset(nv, shape, fill, ColorAt(scheme, i)))
	}
	zero := true
	spec.Options.BeginAtZero = &zero
	spec.Options.Legend = Legend{
		Display:  policy == legendAlways || len(s.Series) > 1,
		Position: PositionTop,
	}
	return spec
}

func sequentialDataset(nv model.NamedValues, shape model.ChartKind, fill bool, color string) Dataset {
	ds := Dataset{
		Label:       nv.Name,
		Data:        append([]float64(nil), nv.Values...),
		BorderColor: color,
		Fill:        fill,
		BorderWidth: 2,
	}
	if fill {
		ds.BackgroundColors = []string{WithAlpha(color, FillAlpha)}
	} else {
		ds.BackgroundColors = []string{color}
	}
	if shape == model.ChartLine {
		ds.Tension = lineTension
	}
	return ds
}

func categoricalDataset(nv model.NamedValues, scheme model.ColorScheme, n int) Dataset {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = ColorAt(scheme, i)
	}
	return Dataset{
		Label:            nv.Name,
		Data:             append([]float64(nil), nv.Values...),
		BackgroundColors: colors,
		BorderWidth:      1,
	}
}
