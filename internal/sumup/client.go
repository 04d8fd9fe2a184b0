// Package sumup implements the upstream payment-processor client used by
// `tally serve`. Requests carry the merchant's bearer key and share a rate
// limiter. Responses are returned raw for pass-through endpoints or decoded
// into model.Transaction for aggregation.
package sumup

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

const defaultBaseURL = "https://api.sumup.com/v0.1/"

// Day-granular bounds of the transaction window.
const (
	dayLayout    = "2006-01-02"
	oldestSuffix = "T00:00:00Z"
	newestSuffix = "T23:59:59Z"
)

// ErrNoAPIKey is returned when a request is attempted without a key.
var ErrNoAPIKey = errors.New("no payment processor API key configured")

// APIError describes a non-2xx upstream response.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %s: HTTP %d: %s", e.Endpoint, e.Status, e.Message)
}

// Client is the upstream HTTP client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// NewClient creates a Client for the upstream API at baseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
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
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		debug:   debug,
	}
}

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// ─── Merchant ─────────────────────────────────────────────────────────────────

// Merchant returns the merchant profile exactly as the upstream sent it.
func (c *Client) Merchant(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "me", nil)
}

// ─── Transactions ─────────────────────────────────────────────────────────────

// ListOptions bounds a transaction history request. Zero times are omitted.
type ListOptions struct {
	Limit  int
	Oldest time.Time // from 00:00:00Z of this day
	Newest time.Time // to 23:59:59Z of this day
}

// Window returns ListOptions covering the trailing days up to now.
func Window(now time.Time, days, limit int) ListOptions {
	return ListOptions{
		Limit:  limit,
		Oldest: now.AddDate(0, 0, -days),
		Newest: now,
	}
}

func (o ListOptions) params() url.Values {
	params := url.Values{}
	if o.Limit > 0 {
		params.Set("limit", strconv.Itoa(o.Limit))
	}
	if !o.Oldest.IsZero() {
		params.Set("oldest_time", o.Oldest.Format(dayLayout)+oldestSuffix)
	}
	if !o.Newest.IsZero() {
		params.Set("newest_time", o.Newest.Format(dayLayout)+newestSuffix)
	}
	return params
}

// TransactionsRaw returns a transaction history page exactly as sent.
func (c *Client) TransactionsRaw(ctx context.Context, opts ListOptions) (json.RawMessage, error) {
	return c.get(ctx, "me/transactions", opts.params())
}

// Transactions returns the decoded items of a transaction history page.
func (c *Client) Transactions(ctx context.Context, opts ListOptions) ([]model.Transaction, error) {
	raw, err := c.TransactionsRaw(ctx, opts)
	if err != nil {
		return nil, err
	}
	var page model.TransactionPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}
	return page.Items, nil
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	if c.debug {
		slog.Debug("upstream request", "url", reqURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if c.debug {
		slog.Debug("upstream response", "status", resp.StatusCode, "bytes", len(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream %s: response is not JSON", endpoint)
	}
	return json.RawMessage(body), nil
}
