// Package model defines the canonical data types used throughout tally.
// These types are the single source of truth for visualization descriptors,
// normalized series, backend payloads, and the result envelope that every
// command returns.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDescriptor marks a descriptor that violates the closed
// enumerations or the period contract. It indicates a programming error in
// the caller, never a data problem.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// ─── Enumerations ─────────────────────────────────────────────────────────────

// ChartKind is the requested chart shape.
type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
	ChartPie  ChartKind = "pie"
	ChartRing ChartKind = "ring"
	ChartArea ChartKind = "area"
)

// ChartKinds lists every chart kind in display order.
var ChartKinds = []ChartKind{ChartLine, ChartBar, ChartPie, ChartRing, ChartArea}

// Valid reports whether k is a member of the closed set.
func (k ChartKind) Valid() bool {
	switch k {
	case ChartLine, ChartBar, ChartPie, ChartRing, ChartArea:
		return true
	}
	return false
}

// Categorical reports whether k draws one slice per label (pie, ring).
func (k ChartKind) Categorical() bool {
	return k == ChartPie || k == ChartRing
}

// DataSource selects which aggregate query feeds a chart.
type DataSource string

const (
	SourceDailyRevenue     DataSource = "daily-revenue"
	SourceHourlyCount      DataSource = "hourly-count"
	SourcePaymentTypes     DataSource = "payment-type-breakdown"
	SourceCardTypes        DataSource = "card-type-breakdown"
	SourceTransactionCount DataSource = "transaction-count"
)

// DataSources lists every data source in display order.
var DataSources = []DataSource{
	SourceDailyRevenue,
	SourceTransactionCount,
	SourceHourlyCount,
	SourcePaymentTypes,
	SourceCardTypes,
}

// Valid reports whether s is a member of the closed set.
func (s DataSource) Valid() bool {
	switch s {
	case SourceDailyRevenue, SourceHourlyCount, SourcePaymentTypes, SourceCardTypes, SourceTransactionCount:
		return true
	}
	return false
}

// UsesPeriod reports whether the backend query for s takes a day count.
// The payment-type breakdown always covers the backend's fixed summary window.
func (s DataSource) UsesPeriod() bool {
	return s != SourcePaymentTypes
}

// ColorScheme names one of the fixed five-color palettes.
type ColorScheme string

const (
	SchemeBlue   ColorScheme = "blue"
	SchemeGreen  ColorScheme = "green"
	SchemePurple ColorScheme = "purple"
	SchemeOrange ColorScheme = "orange"
	SchemeRed    ColorScheme = "red"
)

// ColorSchemes lists every scheme in display order.
var ColorSchemes = []ColorScheme{SchemeBlue, SchemeGreen, SchemePurple, SchemeOrange, SchemeRed}

// Valid reports whether c is a member of the closed set.
func (c ColorScheme) Valid() bool {
	switch c {
	case SchemeBlue, SchemeGreen, SchemePurple, SchemeOrange, SchemeRed:
		return true
	}
	return false
}

// ParseChartKind parses a user-supplied chart kind. "doughnut" is accepted as
// an alias for ring.
func ParseChartKind(s string) (ChartKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "doughnut" {
		return ChartRing, nil
	}
	k := ChartKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown chart kind %q (want one of %s)", ErrInvalidDescriptor, s, joinValues(ChartKinds))
	}
	return k, nil
}

// ParseDataSource parses a user-supplied data source name.
func ParseDataSource(s string) (DataSource, error) {
	src := DataSource(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("%w: unknown data source %q (want one of %s)", ErrInvalidDescriptor, s, joinValues(DataSources))
	}
	return src, nil
}

// ParseColorScheme parses a user-supplied color scheme name.
func ParseColorScheme(s string) (ColorScheme, error) {
	c := ColorScheme(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown color scheme %q (want one of %s)", ErrInvalidDescriptor, s, joinValues(ColorSchemes))
	}
	return c, nil
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}

// ─── Visualization Descriptor ─────────────────────────────────────────────────

// Descriptor is the unit of chart configuration. Preview descriptors have no
// ID; pinned descriptors get ID and CreatedAt from the descriptor store.
type Descriptor struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	ChartKind   ChartKind   `json:"chart_kind"`
	DataSource  DataSource  `json:"data_source"`
	Period      int         `json:"period"`
	ColorScheme ColorScheme `json:"color_scheme"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
}

// Validate checks the closed enumerations and the period. Semantically odd
// source/kind pairings (a breakdown drawn as a line) are allowed.
func (d Descriptor) Validate() error {
	if !d.ChartKind.Valid() {
		return fmt.Errorf("%w: chart kind %q", ErrInvalidDescriptor, d.ChartKind)
	}
	if !d.DataSource.Valid() {
		return fmt.Errorf("%w: data source %q", ErrInvalidDescriptor, d.DataSource)
	}
	if !d.ColorScheme.Valid() {
		return fmt.Errorf("%w: color scheme %q", ErrInvalidDescriptor, d.ColorScheme)
	}
	if d.DataSource.UsesPeriod() && d.Period <= 0 {
		return fmt.Errorf("%w: period must be a positive day count, got %d", ErrInvalidDescriptor, d.Period)
	}
	return nil
}

// ─── Normalized Series ────────────────────────────────────────────────────────

// NamedValues is one value sequence of a normalized series.
type NamedValues struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Series is the shape-independent resolver output: N labels and one or more
// value sequences of length N.
type Series struct {
	Labels []string      `json:"labels"`
	Series []NamedValues `json:"series"`
}

// Check verifies that every value sequence has exactly len(Labels) entries.
func (s Series) Check() error {
	for _, nv := range s.Series {
		if len(nv.Values) != len(s.Labels) {
			return fmt.Errorf("series %q has %d values for %d labels", nv.Name, len(nv.Values), len(s.Labels))
		}
	}
	return nil
}

// ─── Backend Payloads ─────────────────────────────────────────────────────────

// DailyPoint is one day of the daily revenue series.
type DailyPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

// HourlyPoint is one hour-of-day bucket of the hourly distribution.
type HourlyPoint struct {
	Hour    int     `json:"hour"`
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

// Summary holds overall totals for the backend's summary window.
// PaymentTypes maps payment type to successful revenue, in payload order.
type Summary struct {
	TotalRevenue       float64          `json:"total_revenue"`
	TotalTransactions  int              `json:"total_transactions"`
	AvgTransaction     float64          `json:"avg_transaction"`
	FailedTransactions int              `json:"failed_transactions"`
	PaymentTypes       Ordered[float64] `json:"payment_types"`
	Period             string           `json:"period"`
}

// CardTypeStat aggregates successful transactions for one card type.
type CardTypeStat struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// CardTypes maps card type name to its stats, in payload order.
type CardTypes = Ordered[CardTypeStat]

// MerchantProfile is the subset of the merchant profile tally displays.
type MerchantProfile struct {
	MerchantCode    string `json:"merchant_code"`
	BusinessName    string `json:"business_name"`
	Country         string `json:"country"`
	DefaultCurrency string `json:"default_currency"`
}

// Merchant is the account profile returned by /api/merchant.
type Merchant struct {
	MerchantProfile MerchantProfile `json:"merchant_profile"`
}

// Transaction status values reported by the payment processor.
const (
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
)

// Transaction is a single flat transaction record.
type Transaction struct {
	ID              string  `json:"id"`
	TransactionCode string  `json:"transaction_code"`
	Timestamp       string  `json:"timestamp"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	PaymentType     string  `json:"payment_type"`
	CardType        string  `json:"card_type"`
}

// Time parses Timestamp as RFC 3339. A trailing "Z" or an explicit offset are
// both accepted.
func (t Transaction) Time() (time.Time, error) {
	return time.Parse(time.RFC3339, t.Timestamp)
}

// TransactionPage is the envelope of a transaction history response.
type TransactionPage struct {
	Items []Transaction `json:"items"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing metadata for a command result.
type ResultStats struct {
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindDescriptors = "descriptors"
	KindDescriptor  = "descriptor"
	KindSummary     = "summary"
	KindMerchant    = "merchant"
)
