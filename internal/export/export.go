// Package export writes transaction history as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/util"
)

// Header is the CSV header row.
var Header = []string{"Date", "Time", "Amount", "Status", "Payment Type", "Card Type", "Transaction ID"}

// FileName returns the default export file name for the given day.
func FileName(now time.Time) string {
	return fmt.Sprintf("transactions_%s.csv", util.FormatDate(now))
}

// WriteTransactionsCSV writes txns to w with a header row. Date and time are
// taken from the transaction timestamp in UTC. A transaction whose timestamp
// does not parse keeps the raw timestamp in the Date column and an empty Time.
// The transaction code is used as the ID when present.
func WriteTransactionsCSV(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, t := range txns {
		date, clock := t.Timestamp, ""
		if ts, err := t.Time(); err == nil {
			ts = ts.UTC()
			date, clock = ts.Format("2006-01-02"), ts.Format("15:04:05")
		}
		id := t.TransactionCode
		if id == "" {
			id = t.ID
		}
		row := []string{
			date,
			clock,
			util.FormatAmount(t.Amount),
			t.Status,
			t.PaymentType,
			t.CardType,
			id,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing transaction %s: %w", id, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
