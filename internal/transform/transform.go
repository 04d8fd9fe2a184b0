// Package transform implements stateless operators over a normalized series.
// Each operator applies to every value sequence of the series and returns a
// new series whose labels line up with the transformed values; no side
// effects, no I/O.
package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/util"
)

// mapValues applies fn to every sequence. fn must return the same number of
// values for every sequence; labels are taken from the last keep entries.
func mapValues(s model.Series, keep int, fn func([]float64) []float64) model.Series {
	out := model.Series{
		Labels: append([]string(nil), s.Labels[len(s.Labels)-keep:]...),
		Series: make([]model.NamedValues, len(s.Series)),
	}
	for i, nv := range s.Series {
		out.Series[i] = model.NamedValues{Name: nv.Name, Values: fn(nv.Values)}
	}
	return out
}

// ─── Percent Change ───────────────────────────────────────────────────────────

// PctChange computes (v[t] - v[t-period]) / |v[t-period]| * 100.
// Leading points that have no prior period are dropped. A zero or NaN base
// yields NaN.
func PctChange(s model.Series, period int) (model.Series, error) {
	if period < 1 {
		return model.Series{}, fmt.Errorf("pct-change: period must be >= 1, got %d", period)
	}
	if len(s.Labels) <= period {
		return model.Series{}, fmt.Errorf("pct-change: need more than %d points, got %d", period, len(s.Labels))
	}
	return mapValues(s, len(s.Labels)-period, func(vals []float64) []float64 {
		out := make([]float64, 0, len(vals)-period)
		for i := period; i < len(vals); i++ {
			curr, prev := vals[i], vals[i-period]
			if math.IsNaN(curr) || math.IsNaN(prev) || prev == 0 {
				out = append(out, math.NaN())
				continue
			}
			out = append(out, (curr-prev)/math.Abs(prev)*100)
		}
		return out
	}), nil
}

// ─── Difference ───────────────────────────────────────────────────────────────

// Diff computes the n-th order difference. order=1: v[t]-v[t-1], order=2: diff of diff.
func Diff(s model.Series, order int) (model.Series, error) {
	if order < 1 || order > 2 {
		return model.Series{}, fmt.Errorf("diff: order must be 1 or 2, got %d", order)
	}
	if len(s.Labels) <= order {
		return model.Series{}, fmt.Errorf("diff: need more than %d points, got %d", order, len(s.Labels))
	}
	for i := 0; i < order; i++ {
		s = mapValues(s, len(s.Labels)-1, func(vals []float64) []float64 {
			out := make([]float64, 0, len(vals)-1)
			for i := 1; i < len(vals); i++ {
				out = append(out, vals[i]-vals[i-1])
			}
			return out
		})
	}
	return s, nil
}

// ─── Index ────────────────────────────────────────────────────────────────────

// Index re-scales every sequence so its first non-NaN, non-zero value equals
// base. All other values are scaled proportionally.
func Index(s model.Series, base float64) (model.Series, error) {
	for _, nv := range s.Series {
		if _, ok := anchor(nv.Values); !ok {
			return model.Series{}, fmt.Errorf("index: %s has no non-zero value to anchor on", nv.Name)
		}
	}
	return mapValues(s, len(s.Labels), func(vals []float64) []float64 {
		a, _ := anchor(vals)
		out := make([]float64, len(vals))
		for i, v := range vals {
			out[i] = v * base / a
		}
		return out
	}), nil
}

func anchor(vals []float64) (float64, bool) {
	for _, v := range vals {
		if !math.IsNaN(v) && v != 0 {
			return v, true
		}
	}
	return 0, false
}

// ─── Normalize ────────────────────────────────────────────────────────────────

// NormalizeMethod selects the normalization algorithm.
type NormalizeMethod string

const (
	NormalizeZScore NormalizeMethod = "zscore"
	NormalizeMinMax NormalizeMethod = "minmax"
)

// Normalize scales every sequence using z-score or min-max normalization.
// NaN values are skipped when computing statistics but preserved in output.
func Normalize(s model.Series, method NormalizeMethod) (model.Series, error) {
	params := make([][2]float64, len(s.Series)) // output = (v - a) / b
	for i, nv := range s.Series {
		vals := finite(nv.Values)
		if len(vals) == 0 {
			return model.Series{}, fmt.Errorf("normalize: %s has no non-NaN values", nv.Name)
		}
		switch method {
		case NormalizeZScore:
			m := mean(vals)
			std := stddev(vals, m)
			if std == 0 {
				return model.Series{}, fmt.Errorf("normalize: %s has zero standard deviation, cannot z-score", nv.Name)
			}
			params[i] = [2]float64{m, std}
		case NormalizeMinMax:
			mn, mx := minmax(vals)
			if mx == mn {
				return model.Series{}, fmt.Errorf("normalize: %s has min == max (%g), cannot min-max normalize", nv.Name, mn)
			}
			params[i] = [2]float64{mn, mx - mn}
		default:
			return model.Series{}, fmt.Errorf("normalize: unknown method %q (use zscore or minmax)", method)
		}
	}

	out := model.Series{Labels: append([]string(nil), s.Labels...), Series: make([]model.NamedValues, len(s.Series))}
	for i, nv := range s.Series {
		p := params[i]
		vals := make([]float64, len(nv.Values))
		for j, v := range nv.Values {
			vals[j] = (v - p[0]) / p[1]
		}
		out.Series[i] = model.NamedValues{Name: nv.Name, Values: vals}
	}
	return out, nil
}

// ─── Resample ─────────────────────────────────────────────────────────────────

// ResampleFreq is the target frequency for resampling daily labels.
type ResampleFreq string

const (
	ResampleWeekly  ResampleFreq = "weekly"
	ResampleMonthly ResampleFreq = "monthly"
)

// ResampleMethod is the aggregation method for resampling.
type ResampleMethod string

const (
	ResampleMean ResampleMethod = "mean"
	ResampleLast ResampleMethod = "last"
	ResampleSum  ResampleMethod = "sum"
)

// Resample aggregates a series with YYYY-MM-DD labels to weeks (starting
// Monday) or calendar months. Labels must be in ascending order; the output
// label is the period's first day. NaN values are skipped in aggregation.
func Resample(s model.Series, freq ResampleFreq, method ResampleMethod) (model.Series, error) {
	if len(s.Labels) == 0 {
		return model.Series{}, fmt.Errorf("resample: empty input")
	}
	switch method {
	case ResampleMean, ResampleLast, ResampleSum:
	default:
		return model.Series{}, fmt.Errorf("resample: unknown method %q (use mean, last, sum)", method)
	}

	// group[i] is the output bucket of input point i
	var labels []string
	group := make([]int, len(s.Labels))
	for i, l := range s.Labels {
		d, err := util.ParseDate(l)
		if err != nil {
			return model.Series{}, fmt.Errorf("resample: %w", err)
		}
		key, err := periodStart(d, freq)
		if err != nil {
			return model.Series{}, err
		}
		if len(labels) == 0 || labels[len(labels)-1] != key {
			labels = append(labels, key)
		}
		group[i] = len(labels) - 1
	}

	out := model.Series{Labels: labels, Series: make([]model.NamedValues, len(s.Series))}
	for i, nv := range s.Series {
		buckets := make([][]float64, len(labels))
		for j, v := range nv.Values {
			if !math.IsNaN(v) {
				buckets[group[j]] = append(buckets[group[j]], v)
			}
		}
		vals := make([]float64, len(labels))
		for j, b := range buckets {
			switch {
			case len(b) == 0:
				vals[j] = math.NaN()
			case method == ResampleMean:
				vals[j] = mean(b)
			case method == ResampleLast:
				vals[j] = b[len(b)-1]
			default:
				vals[j] = sum(b)
			}
		}
		out.Series[i] = model.NamedValues{Name: nv.Name, Values: vals}
	}
	return out, nil
}

// periodStart returns the first day of the period containing d.
func periodStart(d time.Time, freq ResampleFreq) (string, error) {
	switch freq {
	case ResampleWeekly:
		offset := (int(d.Weekday()) + 6) % 7
		return util.FormatDate(d.AddDate(0, 0, -offset)), nil
	case ResampleMonthly:
		return util.FormatDate(time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)), nil
	default:
		return "", fmt.Errorf("resample: unknown frequency %q (use weekly or monthly)", freq)
	}
}

// ─── Rolling Window ───────────────────────────────────────────────────────────

// RollStat selects the statistic for rolling window computation.
type RollStat string

const (
	RollMean RollStat = "mean"
	RollStd  RollStat = "std"
	RollMin  RollStat = "min"
	RollMax  RollStat = "max"
	RollSum  RollStat = "sum"
)

// Roll computes a rolling window statistic. A window holds the current point
// and the (window-1) preceding points. NaN values are skipped; if fewer than
// minPeriods values remain, the output is NaN.
func Roll(s model.Series, window, minPeriods int, stat RollStat) (model.Series, error) {
	if window < 1 {
		return model.Series{}, fmt.Errorf("roll: window must be >= 1, got %d", window)
	}
	if minPeriods < 1 {
		minPeriods = 1
	}
	if minPeriods > window {
		return model.Series{}, fmt.Errorf("roll: min-periods (%d) cannot exceed window (%d)", minPeriods, window)
	}
	switch stat {
	case RollMean, RollStd, RollMin, RollMax, RollSum:
	default:
		return model.Series{}, fmt.Errorf("roll: unknown stat %q (use mean, std, min, max, sum)", stat)
	}

	return mapValues(s, len(s.Labels), func(in []float64) []float64 {
		out := make([]float64, len(in))
		for i := range in {
			vals := finite(in[max(0, i-window+1) : i+1])
			if len(vals) < minPeriods {
				out[i] = math.NaN()
				continue
			}
			switch stat {
			case RollMean:
				out[i] = mean(vals)
			case RollStd:
				out[i] = stddev(vals, mean(vals))
			case RollMin:
				out[i], _ = minmax(vals)
			case RollMax:
				_, out[i] = minmax(vals)
			case RollSum:
				out[i] = sum(vals)
			}
		}
		return out
	}), nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func minmax(vals []float64) (float64, float64) {
	mn, mx := vals[0], vals[0]
	for _, v := range vals[1:] {
		mn = min(mn, v)
		mx = max(mx, v)
	}
	return mn, mx
}
