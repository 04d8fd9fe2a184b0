package analyze_test

import (
	"math"
	"testing"

	"github.com/derickschaefer/tally/internal/analyze"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func vals(v ...float64) []float64 { return v }

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func isNaN(v float64) bool { return math.IsNaN(v) }

var nan = math.NaN()

// ─── Summarize ────────────────────────────────────────────────────────────────

func TestSummarizeBasicCounts(t *testing.T) {
	s := analyze.Summarize("Revenue", vals(1, 2, nan, 4, 5))

	if s.Name != "Revenue" {
		t.Errorf("Name: expected Revenue, got %q", s.Name)
	}
	if s.Count != 5 {
		t.Errorf("Count: expected 5, got %d", s.Count)
	}
	if s.Missing != 1 {
		t.Errorf("Missing: expected 1, got %d", s.Missing)
	}
	if !approxEqual(s.Total, 12, 1e-9) {
		t.Errorf("Total: expected 12, got %g", s.Total)
	}
}

func TestSummarizeMeanAndStd(t *testing.T) {
	s := analyze.Summarize("T", vals(1, 2, 3, 4, 5))

	if !approxEqual(s.Mean, 3.0, 1e-9) {
		t.Errorf("Mean: expected 3.0, got %g", s.Mean)
	}
	// Sample std of [1,2,3,4,5] = sqrt(2.5)
	expectedStd := math.Sqrt(2.5)
	if !approxEqual(s.Std, expectedStd, 1e-6) {
		t.Errorf("Std: expected %g, got %g", expectedStd, s.Std)
	}
}

func TestSummarizeMinMax(t *testing.T) {
	s := analyze.Summarize("T", vals(5, 2, 8, 1, 9, 3))

	if !approxEqual(s.Min, 1.0, 1e-9) {
		t.Errorf("Min: expected 1.0, got %g", s.Min)
	}
	if !approxEqual(s.Max, 9.0, 1e-9) {
		t.Errorf("Max: expected 9.0, got %g", s.Max)
	}
}

func TestSummarizeMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"odd", vals(1, 2, 3, 4, 5), 3},
		{"even", vals(1, 2, 3, 4), 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := analyze.Summarize("T", tt.in)
			if !approxEqual(s.Median, tt.want, 1e-6) {
				t.Errorf("Median: expected %g, got %g", tt.want, s.Median)
			}
		})
	}
}

func TestSummarizePercentiles(t *testing.T) {
	s := analyze.Summarize("T", vals(1, 2, 3, 4, 5))

	if s.P25 >= s.Median {
		t.Errorf("P25 (%g) should be less than Median (%g)", s.P25, s.Median)
	}
	if s.P75 <= s.Median {
		t.Errorf("P75 (%g) should be greater than Median (%g)", s.P75, s.Median)
	}
}

func TestSummarizeFirstLast(t *testing.T) {
	s := analyze.Summarize("T", vals(nan, 10, 20, nan))

	if !approxEqual(s.First, 10.0, 1e-9) {
		t.Errorf("First: expected 10.0 (first non-NaN), got %g", s.First)
	}
	if !approxEqual(s.Last, 20.0, 1e-9) {
		t.Errorf("Last: expected 20.0 (last non-NaN), got %g", s.Last)
	}
}

func TestSummarizeChange(t *testing.T) {
	s := analyze.Summarize("T", vals(100, 110, 120, 130))

	if !approxEqual(s.Change, 30.0, 1e-9) {
		t.Errorf("Change: expected 30.0, got %g", s.Change)
	}
	if !approxEqual(s.ChangePct, 30.0, 1e-9) {
		t.Errorf("ChangePct: expected 30.0%%, got %g", s.ChangePct)
	}
}

func TestSummarizeChangeZeroFirst(t *testing.T) {
	// Quiet first day: no percentage change.
	s := analyze.Summarize("T", vals(0, 10, 20))
	if !isNaN(s.ChangePct) {
		t.Errorf("ChangePct: expected NaN when First=0, got %g", s.ChangePct)
	}
}

func TestSummarizeNaNExcludedFromStats(t *testing.T) {
	sClean := analyze.Summarize("A", vals(1, 2, 3))
	sNaN := analyze.Summarize("B", vals(1, nan, 2, nan, 3))

	if !approxEqual(sClean.Mean, sNaN.Mean, 1e-9) {
		t.Errorf("NaN should not affect mean: %g vs %g", sClean.Mean, sNaN.Mean)
	}
	if !approxEqual(sClean.Min, sNaN.Min, 1e-9) {
		t.Errorf("NaN should not affect min: %g vs %g", sClean.Min, sNaN.Min)
	}
	if !approxEqual(sClean.Max, sNaN.Max, 1e-9) {
		t.Errorf("NaN should not affect max: %g vs %g", sClean.Max, sNaN.Max)
	}
}

func TestSummarizeEmptyInput(t *testing.T) {
	s := analyze.Summarize("T", nil)
	if s.Count != 0 {
		t.Errorf("Count: expected 0 for empty input, got %d", s.Count)
	}
	if s.Total != 0 {
		t.Errorf("Total: expected 0 for empty input, got %g", s.Total)
	}
}

func TestSummarizeAllNaN(t *testing.T) {
	s := analyze.Summarize("T", vals(nan, nan, nan))

	if s.Count != 3 || s.Missing != 3 {
		t.Errorf("Count/Missing: expected 3/3, got %d/%d", s.Count, s.Missing)
	}
	if !isNaN(s.Mean) {
		t.Errorf("Mean: expected NaN for all-NaN input, got %g", s.Mean)
	}
	if !isNaN(s.Min) {
		t.Errorf("Min: expected NaN for all-NaN input, got %g", s.Min)
	}
}

func TestSummarizeSingleValue(t *testing.T) {
	s := analyze.Summarize("T", vals(42))

	if !approxEqual(s.Mean, 42.0, 1e-9) || !approxEqual(s.Min, 42.0, 1e-9) || !approxEqual(s.Max, 42.0, 1e-9) {
		t.Errorf("single value: expected mean/min/max 42, got %g/%g/%g", s.Mean, s.Min, s.Max)
	}
	if !approxEqual(s.Std, 0.0, 1e-9) {
		t.Errorf("Std: expected 0.0 for single value, got %g", s.Std)
	}
}

// ─── Trend ────────────────────────────────────────────────────────────────────

func TestTrendLinearUpward(t *testing.T) {
	tr, err := analyze.Trend("T", vals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Direction != analyze.DirectionUp {
		t.Errorf("Direction: expected up, got %q", tr.Direction)
	}
	if !approxEqual(tr.Slope, 1.0, 1e-9) {
		t.Errorf("Slope: expected 1.0 per step, got %g", tr.Slope)
	}
	if !approxEqual(tr.R2, 1.0, 1e-6) {
		t.Errorf("R2: expected ~1.0 for perfect linear series, got %g", tr.R2)
	}
}

func TestTrendLinearDownward(t *testing.T) {
	tr, err := analyze.Trend("T", vals(10, 9, 8, 7, 6, 5, 4, 3, 2, 1), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Direction != analyze.DirectionDown {
		t.Errorf("Direction: expected down, got %q", tr.Direction)
	}
	if tr.Slope >= 0 {
		t.Errorf("Slope: expected negative for decreasing series, got %g", tr.Slope)
	}
}

func TestTrendFlat(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
	}{
		{"constant", vals(5, 5, 5, 5, 5)},
		{"all zero", vals(0, 0, 0)},
		{"tiny drift", vals(1000, 1000.5, 1001, 1000.5, 1001)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := analyze.Trend("T", tt.in, analyze.TrendLinear)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.Direction != analyze.DirectionFlat {
				t.Errorf("Direction: expected flat, got %q", tr.Direction)
			}
		})
	}
}

func TestTrendR2Range(t *testing.T) {
	in := vals(3.5, 4.4, 14.7, 13.3, 11.1, 8.4, 6.9, 6.0, 6.9, 6.7, 6.4, 6.7)
	for _, m := range []analyze.TrendMethod{analyze.TrendLinear, analyze.TrendTheilSen} {
		tr, err := analyze.Trend("T", in, m)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", m, err)
		}
		if tr.R2 < 0 || tr.R2 > 1 {
			t.Errorf("%s: R2 must be in [0,1], got %g", m, tr.R2)
		}
	}
}

func TestTrendNaNExcluded(t *testing.T) {
	tr, err := analyze.Trend("T", vals(1, nan, 3, nan, 5), analyze.TrendLinear)
	if err != nil {
		t.Fatalf("unexpected error with NaN gaps: %v", err)
	}
	if tr.Direction != analyze.DirectionUp {
		t.Errorf("Direction: expected up for 1,3,5 series, got %q", tr.Direction)
	}
	// Gaps keep their positions: 1 at 0, 3 at 2, 5 at 4.
	if !approxEqual(tr.Slope, 1.0, 1e-9) {
		t.Errorf("Slope: expected 1.0, got %g", tr.Slope)
	}
}

func TestTrendTooFew(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
	}{
		{"single", vals(5)},
		{"one after NaN", vals(nan, 5)},
		{"all NaN", vals(nan, nan, nan)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := analyze.Trend("T", tt.in, analyze.TrendLinear); err == nil {
				t.Error("expected error when fewer than 2 non-NaN values")
			}
		})
	}
}

func TestTrendPreservesNameAndMethod(t *testing.T) {
	tr, err := analyze.Trend("Revenue", vals(1, 2, 3), analyze.TrendTheilSen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Name != "Revenue" {
		t.Errorf("Name: expected Revenue, got %q", tr.Name)
	}
	if tr.Method != analyze.TrendTheilSen {
		t.Errorf("Method: expected theil-sen, got %q", tr.Method)
	}
}

// ─── Theil-Sen ────────────────────────────────────────────────────────────────

func TestTrendTheilSenRobustToOutlier(t *testing.T) {
	// One refund-heavy day in an otherwise growing month.
	in := vals(1, 2, 3, -1000, 5, 6, 7, 8, 9, 10)
	tr, err := analyze.Trend("T", in, analyze.TrendTheilSen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Direction != analyze.DirectionUp {
		t.Errorf("Theil-Sen should be robust to outlier; direction=%q", tr.Direction)
	}
}

// ─── Composition ──────────────────────────────────────────────────────────────

func TestSummarizeThenTrendDirection(t *testing.T) {
	in := vals(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)
	s := analyze.Summarize("T", in)
	tr, err := analyze.Trend("T", in, analyze.TrendLinear)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if s.Change <= 0 {
		t.Errorf("Summary.Change should be positive for upward series, got %g", s.Change)
	}
	if tr.Direction != analyze.DirectionUp {
		t.Errorf("Trend.Direction should be up, got %q", tr.Direction)
	}
}
