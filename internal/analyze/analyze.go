// Package analyze computes statistical summaries and trend analysis over
// the value sequences of a normalized series. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for one value sequence.
type Summary struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`   // total points
	Missing   int     `json:"missing"` // NaN count
	Total     float64 `json:"total"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	P25       float64 `json:"p25"`
	Median    float64 `json:"median"`
	P75       float64 `json:"p75"`
	Max       float64 `json:"max"`
	First     float64 `json:"first"`      // first non-NaN value
	Last      float64 `json:"last"`       // last non-NaN value
	Change    float64 `json:"change"`     // Last - First
	ChangePct float64 `json:"change_pct"` // (Last-First)/|First| * 100
}

// Summarize computes descriptive statistics over vals.
// NaN values are excluded from all numeric computations but counted.
func Summarize(name string, vals []float64) Summary {
	s := Summary{Name: name, Count: len(vals)}

	var valid []float64
	for _, v := range vals {
		if math.IsNaN(v) {
			s.Missing++
		} else {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Max = nan, nan, nan, nan
		s.Median, s.P25, s.P75 = nan, nan, nan
		s.First, s.Last, s.Change, s.ChangePct = nan, nan, nan, nan
		return s
	}

	sorted := make([]float64, len(valid))
	copy(sorted, valid)
	sort.Float64s(sorted)

	s.Total = sumF(valid)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = s.Total / float64(len(valid))
	s.Std = stddevF(valid, s.Mean)
	s.Median = percentile(sorted, 50)
	s.P25 = percentile(sorted, 25)
	s.P75 = percentile(sorted, 75)

	s.First = valid[0]
	s.Last = valid[len(valid)-1]
	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / math.Abs(s.First) * 100
	} else {
		s.ChangePct = math.NaN()
	}

	return s
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// Direction values.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// flatThreshold is the fitted change across the window, relative to the mean,
// below which a trend counts as flat.
const flatThreshold = 0.01

// TrendResult holds the output of a trend analysis.
type TrendResult struct {
	Name      string      `json:"name"`
	Method    TrendMethod `json:"method"`
	Slope     float64     `json:"slope"` // units per step (one label)
	Intercept float64     `json:"intercept"`
	R2        float64     `json:"r2"`
	Direction string      `json:"direction"`
}

// Trend fits a trend to vals, which are assumed equally spaced (one step per
// label, as daily and hourly series are). NaN values are excluded.
func Trend(name string, vals []float64, method TrendMethod) (TrendResult, error) {
	tr := TrendResult{Name: name, Method: method}

	var pts []point
	for i, v := range vals {
		if !math.IsNaN(v) {
			pts = append(pts, point{float64(i), v})
		}
	}
	if len(pts) < 2 {
		return tr, fmt.Errorf("trend: need at least 2 non-NaN values, got %d", len(pts))
	}

	switch method {
	case TrendTheilSen:
		tr.Slope = theilSenSlope(pts)
		xMean := meanPts(pts, func(p point) float64 { return p.x })
		yMean := meanPts(pts, func(p point) float64 { return p.y })
		tr.Intercept = yMean - tr.Slope*xMean
	default:
		tr.Slope, tr.Intercept = olsRegress(pts)
	}

	tr.R2 = r2(pts, tr.Slope, tr.Intercept)

	span := pts[len(pts)-1].x - pts[0].x
	fitted := tr.Slope * span
	scale := math.Abs(meanPts(pts, func(p point) float64 { return p.y }))
	if scale == 0 {
		scale = 1
	}
	switch {
	case fitted/scale > flatThreshold:
		tr.Direction = DirectionUp
	case fitted/scale < -flatThreshold:
		tr.Direction = DirectionDown
	default:
		tr.Direction = DirectionFlat
	}
	return tr, nil
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
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

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[j].x - pts[i].x
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	yMean := meanPts(pts, func(p point) float64 { return p.y })

	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return math.Max(0, 1-ssRes/ssTot)
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}
