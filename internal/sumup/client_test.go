package sumup_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/tally/internal/sumup"
)

func newClient(t *testing.T, key string, h http.HandlerFunc) *sumup.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return sumup.NewClient(key, srv.URL, 5*time.Second, 100, false)
}

func TestMerchantSendsBearer(t *testing.T) {
	var auth, path string
	c := newClient(t, "sup_sk_test", func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"merchant_profile":{"merchant_code":"M1"}}`))
	})

	raw, err := c.Merchant(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer sup_sk_test", auth)
	assert.Equal(t, "/me", path)
	assert.JSONEq(t, `{"merchant_profile":{"merchant_code":"M1"}}`, string(raw))
}

func TestTransactionsWindowParams(t *testing.T) {
	var query map[string][]string
	c := newClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/transactions", r.URL.Path)
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{"items":[{"id":"a","amount":5,"status":"SUCCESSFUL","timestamp":"2024-03-14T10:00:00Z"}]}`))
	})

	now := time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC)
	items, err := c.Transactions(context.Background(), sumup.Window(now, 7, 1000))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5.0, items[0].Amount)

	assert.Equal(t, []string{"1000"}, query["limit"])
	assert.Equal(t, []string{"2024-03-07T00:00:00Z"}, query["oldest_time"])
	assert.Equal(t, []string{"2024-03-14T23:59:59Z"}, query["newest_time"])
}

func TestTransactionsOmitsZeroBounds(t *testing.T) {
	var rawQuery string
	c := newClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	_, err := c.TransactionsRaw(context.Background(), sumup.ListOptions{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, "limit=100", rawQuery)
}

func TestUpstreamErrorStatus(t *testing.T) {
	c := newClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_code":"NOT_AUTHORIZED"}`))
	})

	_, err := c.Merchant(context.Background())
	var apiErr *sumup.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "NOT_AUTHORIZED")
}

func TestNonJSONBody(t *testing.T) {
	c := newClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})
	_, err := c.Merchant(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not JSON")
}

func TestMissingKey(t *testing.T) {
	called := false
	c := newClient(t, "", func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Merchant(context.Background())
	assert.True(t, errors.Is(err, sumup.ErrNoAPIKey))
	assert.False(t, called, "no request without a key")
	assert.False(t, c.HasKey())
}
