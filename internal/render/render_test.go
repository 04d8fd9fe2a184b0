package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/render"
)

func pinnedResult() *model.Result {
	return &model.Result{
		Kind:    model.KindDescriptors,
		Command: "pin list",
		Data: []model.Descriptor{
			{ID: "a1", Title: "Revenue", ChartKind: model.ChartLine, DataSource: model.SourceDailyRevenue, Period: 30, ColorScheme: model.SchemeBlue,
				CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
			{ID: "b2", Title: "Mix | split", ChartKind: model.ChartRing, DataSource: model.SourcePaymentTypes, ColorScheme: model.SchemePurple},
		},
	}
}

func summaryResult() *model.Result {
	s := model.Summary{TotalRevenue: 1234.5, TotalTransactions: 10, AvgTransaction: 123.45, FailedTransactions: 2, Period: "Last 30 days"}
	s.PaymentTypes.Set("POS", 1000)
	s.PaymentTypes.Set("ECOM", 234.5)
	return &model.Result{Kind: model.KindSummary, Command: "overview", Data: &s}
}

func render1(t *testing.T, r *model.Result, format string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := render.Render(&buf, r, format); err != nil {
		t.Fatalf("Render(%s): %v", format, err)
	}
	return buf.String()
}

// ─── Table ────────────────────────────────────────────────────────────────────

func TestDescriptorTable(t *testing.T) {
	out := render1(t, pinnedResult(), render.FormatTerminal)
	for _, want := range []string{"ID", "TITLE", "a1", "Revenue", "30d", "fixed", "ring"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestDescriptorTableEmpty(t *testing.T) {
	out := render1(t, &model.Result{Kind: model.KindDescriptors, Data: []model.Descriptor{}}, render.FormatTable)
	if !strings.Contains(out, "No pinned charts") {
		t.Errorf("expected empty notice, got %q", out)
	}
}

func TestDescriptorDetail(t *testing.T) {
	d := model.Descriptor{ID: "x", Title: "A very long chart title that would be truncated in a list view", ChartKind: model.ChartBar,
		DataSource: model.SourceHourlyCount, Period: 7, ColorScheme: model.SchemeGreen}
	out := render1(t, &model.Result{Kind: model.KindDescriptor, Data: d}, render.FormatTable)
	if !strings.Contains(out, d.Title) {
		t.Errorf("detail view should show the full title:\n%s", out)
	}
	if !strings.Contains(out, "Color Scheme") {
		t.Errorf("detail view should list fields:\n%s", out)
	}
}

func TestSummaryTable(t *testing.T) {
	out := render1(t, summaryResult(), render.FormatTable)
	for _, want := range []string{"1234.50", "123.45", "POS", "ECOM", "LAST 30 DAYS"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "POS") > strings.Index(out, "ECOM") {
		t.Error("payment types should keep payload order")
	}
}

func TestMerchantTable(t *testing.T) {
	m := &model.Merchant{MerchantProfile: model.MerchantProfile{MerchantCode: "MX1", BusinessName: "Cafe", Country: "DE", DefaultCurrency: "EUR"}}
	out := render1(t, &model.Result{Kind: model.KindMerchant, Data: m}, render.FormatTable)
	for _, want := range []string{"MX1", "Cafe", "EUR"} {
		if !strings.Contains(out, want) {
			t.Errorf("merchant output missing %q", want)
		}
	}
}

// ─── Machine formats ──────────────────────────────────────────────────────────

func TestJSONEnvelope(t *testing.T) {
	out := render1(t, pinnedResult(), render.FormatJSON)
	var env struct {
		Kind string             `json:"kind"`
		Data []model.Descriptor `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if env.Kind != model.KindDescriptors || len(env.Data) != 2 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestJSONLOneDescriptorPerLine(t *testing.T) {
	out := render1(t, pinnedResult(), render.FormatJSONL)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var d model.Descriptor
	if err := json.Unmarshal([]byte(lines[1]), &d); err != nil {
		t.Fatalf("line 2: %v", err)
	}
	if d.ID != "b2" {
		t.Errorf("expected b2, got %q", d.ID)
	}
}

func TestCSVDescriptors(t *testing.T) {
	out := render1(t, pinnedResult(), render.FormatCSV)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "id,title,chart_kind,data_source,period,color_scheme,created_at" {
		t.Errorf("header: %q", lines[0])
	}
	if lines[1] != "a1,Revenue,line,daily-revenue,30,blue,2024-03-01T10:00:00Z" {
		t.Errorf("row: %q", lines[1])
	}
}

func TestTSVSummary(t *testing.T) {
	out := render1(t, summaryResult(), render.FormatTSV)
	if !strings.Contains(out, "total_revenue\t1234.50") {
		t.Errorf("tsv summary: %q", out)
	}
	if !strings.Contains(out, "payment_type:ECOM\t234.50") {
		t.Errorf("tsv payment types: %q", out)
	}
}

func TestMarkdownEscapesPipes(t *testing.T) {
	out := render1(t, pinnedResult(), render.FormatMD)
	if !strings.Contains(out, `Mix \| split`) {
		t.Errorf("pipe should be escaped:\n%s", out)
	}
}

func TestMachine(t *testing.T) {
	for format, want := range map[string]bool{
		render.FormatJSON: true, render.FormatCSV: true,
		render.FormatTerminal: false, render.FormatMD: false,
	} {
		if got := render.Machine(format); got != want {
			t.Errorf("Machine(%q) = %v, want %v", format, got, want)
		}
	}
}

func TestPrintFooter(t *testing.T) {
	var buf bytes.Buffer
	r := &model.Result{Warnings: []string{"card-types: backend unavailable"}, Stats: model.ResultStats{Items: 3, DurationMs: 12}}
	render.PrintFooter(&buf, r, true)
	out := buf.String()
	if !strings.Contains(out, "card-types: backend unavailable") || !strings.Contains(out, "3 items") {
		t.Errorf("footer: %q", out)
	}
}
