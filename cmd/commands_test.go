package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/derickschaefer/tally/internal/backend"
	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/model"
)

var cannedBackend = map[string]string{
	"/api/analytics/daily":      `[{"date":"2024-03-13","revenue":120.5,"count":3},{"date":"2024-03-14","revenue":80,"count":2}]`,
	"/api/analytics/hourly":     `[{"hour":9,"revenue":10,"count":2},{"hour":10,"revenue":4,"count":1}]`,
	"/api/analytics/summary":    `{"total_revenue":200.5,"total_transactions":5,"avg_transaction":40.1,"failed_transactions":1,"payment_types":{"POS":150.5,"ECOM":50},"period":"30 days"}`,
	"/api/analytics/card-types": `{"VISA":{"count":4,"revenue":160},"AMEX":{"count":1,"revenue":40.5}}`,
	"/api/merchant":             `{"merchant_profile":{"merchant_code":"MX1","business_name":"Cafe","country":"DE","default_currency":"EUR"}}`,
}

// startBackend serves routes by exact path; anything else is a 404.
func startBackend(t *testing.T, routes map[string]string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// resetFlags puts every flag in the tree back to its default, since flag
// variables are package globals shared across runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the command tree with args after resetting every flag,
// returning what was written to stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeFrames(t *testing.T, s string) []dashboard.Frame {
	t.Helper()
	var frames []dashboard.Frame
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		var f dashboard.Frame
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			t.Fatalf("decoding frame %q: %v", sc.Text(), err)
		}
		frames = append(frames, f)
	}
	return frames
}

func TestCommandRouting(t *testing.T) {
	paths := [][]string{
		{"overview"}, {"preview"}, {"replay"}, {"chart"}, {"export"},
		{"serve"}, {"merchant"}, {"analyze", "summary"}, {"analyze", "trend"}, {"analyze", "transform"},
		{"pin", "add"}, {"pin", "list"}, {"pin", "show"}, {"pin", "remove"}, {"pin", "clear"},
		{"db", "stats"}, {"db", "clear"},
		{"config", "init"}, {"config", "get"}, {"config", "set"},
		{"version"},
	}
	for _, p := range paths {
		c, _, err := rootCmd.Find(p)
		if err != nil {
			t.Errorf("%v: %v", p, err)
			continue
		}
		if c.Name() != p[len(p)-1] {
			t.Errorf("%v resolved to %q", p, c.Name())
		}
	}
}

func TestPreviewWritesFrame(t *testing.T) {
	url := startBackend(t, cannedBackend)
	out, _, err := runCmd(t, "preview", "--base-url", url, "--ephemeral",
		"--source", "transaction-count", "--kind", "bar", "--period", "2", "--format", "json")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	frames := decodeFrames(t, out)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	f := frames[0]
	if f.Slot != dashboard.SlotPreview {
		t.Errorf("slot = %q", f.Slot)
	}
	if f.Spec.Kind != model.ChartBar || len(f.Spec.Labels) != 2 {
		t.Errorf("unexpected spec: %+v", f.Spec)
	}
	if got := f.Spec.Datasets[0].Data; got[0] != 3 || got[1] != 2 {
		t.Errorf("transaction counts = %v", got)
	}
}

func TestPreviewPinRequiresTitle(t *testing.T) {
	_, _, err := runCmd(t, "preview", "--base-url", "http://127.0.0.1:1", "--ephemeral", "--pin")
	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("expected title error, got %v", err)
	}
}

func TestPinAddListReplay(t *testing.T) {
	url := startBackend(t, cannedBackend)
	db := filepath.Join(t.TempDir(), "tally.db")

	if _, _, err := runCmd(t, "pin", "add", "--db", db,
		"--title", "Card mix", "--source", "card-type-breakdown", "--kind", "pie"); err != nil {
		t.Fatalf("pin add: %v", err)
	}
	if _, _, err := runCmd(t, "pin", "add", "--db", db,
		"--title", "Revenue", "--source", "daily-revenue", "--period", "2"); err != nil {
		t.Fatalf("pin add: %v", err)
	}

	out, _, err := runCmd(t, "pin", "list", "--db", db, "--format", "json")
	if err != nil {
		t.Fatalf("pin list: %v", err)
	}
	var listed struct {
		Data []model.Descriptor `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decoding list: %v\n%s", err, out)
	}
	if len(listed.Data) != 2 || listed.Data[0].Title != "Card mix" || listed.Data[1].Title != "Revenue" {
		t.Fatalf("unexpected pinned list: %+v", listed.Data)
	}

	out, _, err = runCmd(t, "replay", "--db", db, "--base-url", url, "--format", "json")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	frames := decodeFrames(t, out)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Slot != dashboard.PinnedSlot(listed.Data[0].ID) {
		t.Errorf("first slot = %q", frames[0].Slot)
	}
	if got := frames[0].Spec.Labels; len(got) != 2 || got[0] != "VISA" {
		t.Errorf("card labels = %v", got)
	}
}

func TestPinClearRequiresYes(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tally.db")
	_, _, err := runCmd(t, "pin", "clear", "--db", db)
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if _, _, err := runCmd(t, "pin", "clear", "--db", db, "--yes"); err != nil {
		t.Fatalf("pin clear --yes: %v", err)
	}
}

func TestOverviewSkipsFailedPanel(t *testing.T) {
	routes := map[string]string{}
	for k, v := range cannedBackend {
		if k != "/api/analytics/card-types" {
			routes[k] = v
		}
	}
	url := startBackend(t, routes)

	out, errOut, err := runCmd(t, "overview", "--base-url", url, "--format", "json")
	if err != nil {
		t.Fatalf("overview with one failed panel should succeed: %v", err)
	}
	frames := decodeFrames(t, out)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for _, f := range frames {
		if f.Slot == "card-types" {
			t.Errorf("failed panel was drawn")
		}
	}
	if !strings.Contains(errOut, "Card types") {
		t.Errorf("expected a notice for the failed panel, got %q", errOut)
	}
}

func TestOverviewAllFailed(t *testing.T) {
	url := startBackend(t, map[string]string{})
	_, _, err := runCmd(t, "overview", "--base-url", url, "--format", "json")
	if err == nil {
		t.Fatal("expected error when every panel failed")
	}
}

func TestMerchantTable(t *testing.T) {
	url := startBackend(t, cannedBackend)
	out, _, err := runCmd(t, "merchant", "--base-url", url)
	if err != nil {
		t.Fatalf("merchant: %v", err)
	}
	for _, want := range []string{"MX1", "Cafe", "EUR"} {
		if !strings.Contains(out, want) {
			t.Errorf("merchant output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeTransformJSON(t *testing.T) {
	url := startBackend(t, cannedBackend)
	out, _, err := runCmd(t, "analyze", "transform", "--base-url", url,
		"--source", "daily-revenue", "--op", "diff", "--format", "json")
	if err != nil {
		t.Fatalf("analyze transform: %v", err)
	}
	var got struct {
		Labels []string `json:"labels"`
		Series []struct {
			Name   string     `json:"name"`
			Values []*float64 `json:"values"`
		} `json:"series"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding: %v\n%s", err, out)
	}
	if len(got.Labels) != 1 || got.Labels[0] != "2024-03-14" {
		t.Fatalf("labels = %v", got.Labels)
	}
	if v := got.Series[0].Values[0]; v == nil || *v != -40.5 {
		t.Errorf("diff value = %v", v)
	}
}

func TestAnalyzeTransformUnknownOp(t *testing.T) {
	url := startBackend(t, cannedBackend)
	_, _, err := runCmd(t, "analyze", "transform", "--base-url", url, "--op", "smooth")
	if err == nil || !strings.Contains(err.Error(), "unknown operator") {
		t.Fatalf("expected unknown operator error, got %v", err)
	}
}

func TestVersionCheck(t *testing.T) {
	routes := map[string]string{"/health": `{"status":"ok"}`}
	url := startBackend(t, routes)

	out, _, err := runCmd(t, "version", "--check", "--base-url", url, "--format", "json")
	if err != nil {
		t.Fatalf("version --check: %v", err)
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decoding: %v\n%s", err, out)
	}
	if info.Version != Version || info.Reachable == nil || !*info.Reachable {
		t.Errorf("unexpected info: %+v", info)
	}

	out, _, err = runCmd(t, "version", "--check", "--base-url", startBackend(t, map[string]string{}))
	if err != nil {
		t.Fatalf("an unreachable backend is not an error: %v", err)
	}
	if !strings.Contains(out, "unreachable") {
		t.Errorf("expected unreachable notice, got %q", out)
	}
}

func TestExportToStdout(t *testing.T) {
	url := startBackend(t, map[string]string{
		"/api/transactions": `{"items":[{"id":"t1","transaction_code":"TX1","timestamp":"2024-03-14T09:30:00Z","amount":12.5,"currency":"EUR","status":"SUCCESSFUL","payment_type":"POS","card_type":"VISA"}]}`,
	})
	out, _, err := runCmd(t, "export", "--base-url", url, "--out", "-")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %q", out)
	}
	if lines[0] != "Date,Time,Amount,Status,Payment Type,Card Type,Transaction ID" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2024-03-14,09:30:00,12.50,SUCCESSFUL,POS,VISA,") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExportRejectsBadDate(t *testing.T) {
	_, _, err := runCmd(t, "export", "--base-url", "http://127.0.0.1:1", "--start", "14/03/2024", "--out", "-")
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("expected date error, got %v", err)
	}
}

func TestDBStatsAndClear(t *testing.T) {
	db := filepath.Join(t.TempDir(), "tally.db")
	if _, _, err := runCmd(t, "pin", "add", "--db", db,
		"--title", "Revenue", "--source", "daily-revenue"); err != nil {
		t.Fatalf("pin add: %v", err)
	}

	out, _, err := runCmd(t, "db", "stats", "--db", db)
	if err != nil {
		t.Fatalf("db stats: %v", err)
	}
	if !strings.Contains(out, db) || !strings.Contains(out, "kv") {
		t.Errorf("stats output missing path or bucket:\n%s", out)
	}

	if _, _, err := runCmd(t, "db", "clear", "--db", db); err == nil {
		t.Fatal("expected db clear without --yes to fail")
	}
	if _, _, err := runCmd(t, "db", "clear", "--bucket", "nope", "--yes", "--db", db); err == nil {
		t.Fatal("expected unknown bucket to fail")
	}
	if _, _, err := runCmd(t, "db", "clear", "--yes", "--db", db); err != nil {
		t.Fatalf("db clear: %v", err)
	}

	out, _, err = runCmd(t, "pin", "list", "--db", db, "--format", "json")
	if err != nil {
		t.Fatalf("pin list: %v", err)
	}
	if strings.Contains(out, "Revenue") {
		t.Errorf("pin survived clear:\n%s", out)
	}
}

func TestPreviewKeepsBackendErrorChain(t *testing.T) {
	url := startBackend(t, map[string]string{})
	_, _, err := runCmd(t, "preview", "--base-url", url, "--ephemeral",
		"--source", "hourly-count", "--kind", "bar", "--period", "7", "--format", "json")
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("expected backend.ErrUnavailable in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "hourly-count") || !strings.Contains(err.Error(), "retry later") {
		t.Errorf("message = %q", err.Error())
	}
}
