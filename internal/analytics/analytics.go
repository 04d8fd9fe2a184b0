// Package analytics aggregates raw transactions into the payloads served by
// the analytics endpoints. Only SUCCESSFUL transactions count toward revenue
// and volume; failed ones are only counted. All functions are pure.
package analytics

import (
	"sort"

	"github.com/derickschaefer/tally/internal/model"
)

// SummaryPeriod labels the fixed summary window.
const SummaryPeriod = "Last 30 days"

// SummaryDays is the length of the summary window.
const SummaryDays = 30

// Unknown labels a missing payment or card type.
const Unknown = "UNKNOWN"

func successful(t model.Transaction) bool { return t.Status == model.StatusSuccessful }

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

// Summarize computes totals, the average ticket, the failed count and the
// revenue per payment type in first-seen order.
func Summarize(txns []model.Transaction) model.Summary {
	s := model.Summary{Period: SummaryPeriod}
	for _, t := range txns {
		switch {
		case successful(t):
			s.TotalRevenue += t.Amount
			s.TotalTransactions++
			ptype := orUnknown(t.PaymentType)
			prev, _ := s.PaymentTypes.Get(ptype)
			s.PaymentTypes.Set(ptype, prev+t.Amount)
		case t.Status == model.StatusFailed:
			s.FailedTransactions++
		}
	}
	if s.TotalTransactions > 0 {
		s.AvgTransaction = s.TotalRevenue / float64(s.TotalTransactions)
	}
	return s
}

// Daily groups revenue and count by the date part of the timestamp, sorted by
// date. Transactions without a timestamp are skipped.
func Daily(txns []model.Transaction) []model.DailyPoint {
	byDate := make(map[string]*model.DailyPoint)
	for _, t := range txns {
		if !successful(t) || len(t.Timestamp) < 10 {
			continue
		}
		date := t.Timestamp[:10]
		p, ok := byDate[date]
		if !ok {
			p = &model.DailyPoint{Date: date}
			byDate[date] = p
		}
		p.Revenue += t.Amount
		p.Count++
	}

	out := make([]model.DailyPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Hourly buckets revenue and count by hour of day, always returning 24 entries
// ordered 0..23. The hour is read in the timestamp's own offset. Unparseable
// timestamps are skipped.
func Hourly(txns []model.Transaction) []model.HourlyPoint {
	out := make([]model.HourlyPoint, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, t := range txns {
		if !successful(t) {
			continue
		}
		ts, err := t.Time()
		if err != nil {
			continue
		}
		out[ts.Hour()].Revenue += t.Amount
		out[ts.Hour()].Count++
	}
	return out
}

// CardTypes counts transactions and sums revenue per card type, in
// first-seen order.
func CardTypes(txns []model.Transaction) model.CardTypes {
	var out model.CardTypes
	for _, t := range txns {
		if !successful(t) {
			continue
		}
		ct := orUnknown(t.CardType)
		stat, _ := out.Get(ct)
		stat.Count++
		stat.Revenue += t.Amount
		out.Set(ct, stat)
	}
	return out
}
