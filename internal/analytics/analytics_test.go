package analytics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derickschaefer/tally/internal/analytics"
	"github.com/derickschaefer/tally/internal/model"
)

func txn(ts string, amount float64, status, ptype, card string) model.Transaction {
	return model.Transaction{Timestamp: ts, Amount: amount, Status: status, PaymentType: ptype, CardType: card}
}

var sample = []model.Transaction{
	txn("2024-03-02T09:15:00Z", 10, model.StatusSuccessful, "POS", "VISA"),
	txn("2024-03-01T18:00:00Z", 20, model.StatusSuccessful, "ECOM", "MASTERCARD"),
	txn("2024-03-02T09:45:00Z", 5, model.StatusSuccessful, "POS", ""),
	txn("2024-03-02T10:00:00Z", 99, model.StatusFailed, "POS", "VISA"),
	txn("2024-03-03T11:00:00Z", 7, "CANCELLED", "CASH", "VISA"),
}

func TestSummarize(t *testing.T) {
	s := analytics.Summarize(sample)

	assert.InDelta(t, 35, s.TotalRevenue, 1e-9)
	assert.Equal(t, 3, s.TotalTransactions)
	assert.InDelta(t, 35.0/3, s.AvgTransaction, 1e-9)
	assert.Equal(t, 1, s.FailedTransactions)
	assert.Equal(t, analytics.SummaryPeriod, s.Period)

	// Payment types hold revenue, not counts, in first-seen order.
	assert.Equal(t, []string{"POS", "ECOM"}, s.PaymentTypes.Keys())
	pos, _ := s.PaymentTypes.Get("POS")
	assert.InDelta(t, 15, pos, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	s := analytics.Summarize(nil)
	assert.Zero(t, s.AvgTransaction)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"payment_types":{}`)
}

func TestSummarizeUnknownPaymentType(t *testing.T) {
	s := analytics.Summarize([]model.Transaction{txn("2024-03-01T00:00:00Z", 3, model.StatusSuccessful, "", "")})
	v, ok := s.PaymentTypes.Get(analytics.Unknown)
	require.True(t, ok)
	assert.InDelta(t, 3, v, 1e-9)
}

func TestDaily(t *testing.T) {
	got := analytics.Daily(append(sample, txn("", 50, model.StatusSuccessful, "POS", "VISA")))
	require.Len(t, got, 2)
	assert.Equal(t, model.DailyPoint{Date: "2024-03-01", Revenue: 20, Count: 1}, got[0])
	assert.Equal(t, model.DailyPoint{Date: "2024-03-02", Revenue: 15, Count: 2}, got[1])
}

func TestHourly(t *testing.T) {
	txns := append(sample,
		txn("2024-03-02T09:30:00+02:00", 1, model.StatusSuccessful, "POS", "VISA"),
		txn("not a time", 100, model.StatusSuccessful, "POS", "VISA"),
	)
	got := analytics.Hourly(txns)
	require.Len(t, got, 24)
	for h, p := range got {
		assert.Equal(t, h, p.Hour)
	}
	// Hour is taken in the timestamp's own offset.
	assert.Equal(t, 3, got[9].Count)
	assert.InDelta(t, 16, got[9].Revenue, 1e-9)
	assert.Equal(t, 1, got[18].Count)
	assert.Zero(t, got[10].Count, "failed transactions are not counted")
}

func TestCardTypes(t *testing.T) {
	got := analytics.CardTypes(sample)
	assert.Equal(t, []string{"VISA", "MASTERCARD", analytics.Unknown}, got.Keys())

	visa, _ := got.Get("VISA")
	assert.Equal(t, model.CardTypeStat{Count: 1, Revenue: 10}, visa)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"VISA":{"count":1,"revenue":10},"MASTERCARD":{"count":1,"revenue":20},"UNKNOWN":{"count":1,"revenue":5}}`, string(b))
}
