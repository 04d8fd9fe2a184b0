// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/util"
)

// Format constants matching --format flag values. Anything unrecognised,
// including "terminal", renders as a table.
const (
	FormatTerminal = "terminal"
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatJSONL    = "jsonl"
	FormatCSV      = "csv"
	FormatTSV      = "tsv"
	FormatMD       = "md"
)

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// Machine reports whether format is meant for programs rather than people.
func Machine(format string) bool {
	switch format {
	case FormatJSON, FormatJSONL, FormatCSV, FormatTSV:
		return true
	}
	return false
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one descriptor per line for descriptor lists and the bare
// payload otherwise.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	if descs, ok := descriptors(result); ok {
		for _, d := range descs {
			if err := enc.Encode(d); err != nil {
				return err
			}
		}
		return nil
	}
	return enc.Encode(result.Data)
}

// ─── Table ────────────────────────────────────────────────────────────────────

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderTable(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindDescriptors, model.KindDescriptor:
		descs, ok := descriptors(result)
		if !ok {
			return fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		if result.Kind == model.KindDescriptor && len(descs) == 1 {
			return renderDescriptorDetail(w, descs[0])
		}
		if len(descs) == 0 {
			fmt.Fprintln(w, "No pinned charts.")
			return nil
		}
		return renderDescriptorTable(w, descs)
	case model.KindSummary:
		s, ok := summary(result)
		if !ok {
			return fmt.Errorf("unexpected data type for summary")
		}
		return renderSummaryTable(w, s)
	case model.KindMerchant:
		m, ok := merchant(result)
		if !ok {
			return fmt.Errorf("unexpected data type for merchant")
		}
		return renderMerchantTable(w, m)
	default:
		// Fallback: JSON
		return renderJSON(w, result)
	}
}

func descriptorRow(d model.Descriptor) []string {
	created := ""
	if !d.CreatedAt.IsZero() {
		created = d.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	return []string{
		d.ID,
		truncate(d.Title, 40),
		string(d.ChartKind),
		string(d.DataSource),
		periodText(d),
		string(d.ColorScheme),
		created,
	}
}

func renderDescriptorTable(w io.Writer, descs []model.Descriptor) error {
	tw := newTable(w, []string{"ID", "TITLE", "KIND", "SOURCE", "PERIOD", "SCHEME", "CREATED"})
	for _, d := range descs {
		tw.Append(descriptorRow(d))
	}
	tw.Render()
	return nil
}

func renderDescriptorDetail(w io.Writer, d model.Descriptor) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	row := descriptorRow(d)
	row[1] = d.Title
	for i, name := range []string{"ID", "Title", "Chart Kind", "Data Source", "Period", "Color Scheme", "Created"} {
		tw.Append([]string{name, row[i]})
	}
	tw.Render()
	return nil
}

func renderSummaryTable(w io.Writer, s *model.Summary) error {
	tw := newTable(w, []string{"METRIC", "VALUE"})
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	tw.Append([]string{"Total Revenue", util.FormatAmount(s.TotalRevenue)})
	tw.Append([]string{"Transactions", strconv.Itoa(s.TotalTransactions)})
	tw.Append([]string{"Average Ticket", util.FormatAmount(s.AvgTransaction)})
	tw.Append([]string{"Failed", strconv.Itoa(s.FailedTransactions)})
	for _, k := range s.PaymentTypes.Keys() {
		v, _ := s.PaymentTypes.Get(k)
		tw.Append([]string{"  " + k, util.FormatAmount(v)})
	}
	if s.Period != "" {
		tw.SetFooter([]string{"Period", s.Period})
	}
	tw.Render()
	return nil
}

func renderMerchantTable(w io.Writer, m *model.Merchant) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	p := m.MerchantProfile
	tw.Append([]string{"Merchant Code", p.MerchantCode})
	tw.Append([]string{"Business Name", p.BusinessName})
	tw.Append([]string{"Country", p.Country})
	tw.Append([]string{"Currency", p.DefaultCurrency})
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch result.Kind {
	case model.KindDescriptors, model.KindDescriptor:
		descs, ok := descriptors(result)
		if !ok {
			return fmt.Errorf("unexpected data type for %s", result.Kind)
		}
		_ = cw.Write([]string{"id", "title", "chart_kind", "data_source", "period", "color_scheme", "created_at"})
		for _, d := range descs {
			created := ""
			if !d.CreatedAt.IsZero() {
				created = d.CreatedAt.UTC().Format(time.RFC3339)
			}
			_ = cw.Write([]string{
				d.ID, d.Title, string(d.ChartKind), string(d.DataSource),
				strconv.Itoa(d.Period), string(d.ColorScheme), created,
			})
		}
	case model.KindSummary:
		s, ok := summary(result)
		if !ok {
			return fmt.Errorf("unexpected data type for summary")
		}
		_ = cw.Write([]string{"metric", "value"})
		_ = cw.Write([]string{"total_revenue", util.FormatAmount(s.TotalRevenue)})
		_ = cw.Write([]string{"total_transactions", strconv.Itoa(s.TotalTransactions)})
		_ = cw.Write([]string{"avg_transaction", util.FormatAmount(s.AvgTransaction)})
		_ = cw.Write([]string{"failed_transactions", strconv.Itoa(s.FailedTransactions)})
		for _, k := range s.PaymentTypes.Keys() {
			v, _ := s.PaymentTypes.Get(k)
			_ = cw.Write([]string{"payment_type:" + k, util.FormatAmount(v)})
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindDescriptors, model.KindDescriptor:
		descs, ok := descriptors(result)
		if !ok {
			return renderJSON(w, result)
		}
		fmt.Fprintf(w, "| ID | TITLE | KIND | SOURCE | PERIOD | SCHEME |\n|----|----|----|----|----|----|\n")
		for _, d := range descs {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
				d.ID, mdEscape(d.Title), d.ChartKind, d.DataSource, periodText(d), d.ColorScheme)
		}
		return nil
	case model.KindSummary:
		s, ok := summary(result)
		if !ok {
			return renderJSON(w, result)
		}
		fmt.Fprintf(w, "| METRIC | VALUE |\n|----|----|\n")
		fmt.Fprintf(w, "| Total Revenue | %s |\n", util.FormatAmount(s.TotalRevenue))
		fmt.Fprintf(w, "| Transactions | %d |\n", s.TotalTransactions)
		fmt.Fprintf(w, "| Average Ticket | %s |\n", util.FormatAmount(s.AvgTransaction))
		fmt.Fprintf(w, "| Failed | %d |\n", s.FailedTransactions)
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func descriptors(result *model.Result) ([]model.Descriptor, bool) {
	switch v := result.Data.(type) {
	case []model.Descriptor:
		return v, true
	case model.Descriptor:
		return []model.Descriptor{v}, true
	case *model.Descriptor:
		return []model.Descriptor{*v}, true
	}
	return nil, false
}

func summary(result *model.Result) (*model.Summary, bool) {
	switch v := result.Data.(type) {
	case *model.Summary:
		return v, true
	case model.Summary:
		return &v, true
	}
	return nil, false
}

func merchant(result *model.Result) (*model.Merchant, bool) {
	switch v := result.Data.(type) {
	case *model.Merchant:
		return v, true
	case model.Merchant:
		return &v, true
	}
	return nil, false
}

// periodText shows the day count, or "fixed" for sources that ignore it.
func periodText(d model.Descriptor) string {
	if !d.DataSource.UsesPeriod() {
		return "fixed"
	}
	return strconv.Itoa(d.Period) + "d"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
