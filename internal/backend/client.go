// Package backend implements the HTTP client for the dashboard's analytics
// backend. All methods are context-aware and share a rate limiter. Nothing is
// retried: a failed call is reported to the caller as a *Error and the user's
// refresh action is the only retry mechanism.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/derickschaefer/tally/internal/model"
)

const defaultBaseURL = "http://localhost:5000/"

// ErrUnavailable matches every failure to obtain a usable payload from the
// backend: transport errors, non-2xx statuses, and malformed JSON.
var ErrUnavailable = errors.New("backend unavailable")

// Error describes a failed backend call. Status is zero when no HTTP
// response was received.
type Error struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s: HTTP %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes both ErrUnavailable and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrUnavailable, e.Err}
}

// Client is the analytics backend HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		debug:   debug,
	}
}

// ─── Aggregate queries ────────────────────────────────────────────────────────

// FetchDailyRevenue returns revenue and count per day for the trailing days,
// oldest first.
func (c *Client) FetchDailyRevenue(ctx context.Context, days int) ([]model.DailyPoint, error) {
	var out []model.DailyPoint
	if err := c.get(ctx, "api/analytics/daily", daysParam(days), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchHourlyDistribution returns per-hour counts over the trailing days,
// ordered by hour.
func (c *Client) FetchHourlyDistribution(ctx context.Context, days int) ([]model.HourlyPoint, error) {
	var out []model.HourlyPoint
	if err := c.get(ctx, "api/analytics/hourly", daysParam(days), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchSummary returns overall totals and the payment-type breakdown.
func (c *Client) FetchSummary(ctx context.Context) (*model.Summary, error) {
	var out model.Summary
	if err := c.get(ctx, "api/analytics/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCardTypeBreakdown returns per-card-type stats in payload order.
func (c *Client) FetchCardTypeBreakdown(ctx context.Context, days int) (model.CardTypes, error) {
	var out model.CardTypes
	if err := c.get(ctx, "api/analytics/card-types", daysParam(days), &out); err != nil {
		return model.CardTypes{}, err
	}
	return out, nil
}

// Health checks that the backend answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return &Error{Endpoint: "health", Status: http.StatusOK, Err: fmt.Errorf("status %q", out.Status)}
	}
	return nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ─── Merchant & transactions ──────────────────────────────────────────────────

// FetchMerchant returns the merchant profile.
func (c *Client) FetchMerchant(ctx context.Context) (*model.Merchant, error) {
	var out model.Merchant
	if err := c.get(ctx, "api/merchant", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TxnOptions holds optional parameters for FetchTransactions.
type TxnOptions struct {
	Limit int
	Start string // YYYY-MM-DD
	End   string // YYYY-MM-DD
}

// FetchTransactions returns the flat transaction list used by CSV export.
func (c *Client) FetchTransactions(ctx context.Context, opts TxnOptions) ([]model.Transaction, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Start != "" {
		params.Set("start_date", opts.Start)
	}
	if opts.End != "" {
		params.Set("end_date", opts.End)
	}
	var page model.TransactionPage
	if err := c.get(ctx, "api/transactions", params, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

func daysParam(days int) url.Values {
	params := url.Values{}
	params.Set("days", strconv.Itoa(days))
	return params
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

// get performs a single GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Endpoint: endpoint, Err: err}
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	if c.debug {
		slog.Debug("backend request", "url", reqURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tally/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Endpoint: endpoint, Err: fmt.Errorf("http: %w", err)}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	if c.debug {
		slog.Debug("backend response", "status", resp.StatusCode, "bytes", len(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The backend reports failures as {"error": "..."}
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
