// Package resolve turns a visualization descriptor into a normalized series
// by invoking the matching aggregate query and reshaping its payload into
// labels plus named value sequences.
package resolve

import (
	"context"
	"fmt"
	"strconv"

	"github.com/derickschaefer/tally/internal/model"
)

// Series names used for the value sequences.
const (
	NameRevenue      = "Revenue"
	NameTransactions = "Transactions"
)

// Source is the set of aggregate queries the resolver depends on.
// *backend.Client satisfies it.
type Source interface {
	FetchDailyRevenue(ctx context.Context, days int) ([]model.DailyPoint, error)
	FetchHourlyDistribution(ctx context.Context, days int) ([]model.HourlyPoint, error)
	FetchSummary(ctx context.Context) (*model.Summary, error)
	FetchCardTypeBreakdown(ctx context.Context, days int) (model.CardTypes, error)
}

// Resolver maps descriptors to normalized series.
type Resolver struct {
	src Source
}

// New returns a Resolver backed by src.
func New(src Source) *Resolver {
	return &Resolver{src: src}
}

// Resolve issues exactly one aggregate query for d and reshapes the result.
// An unknown data source fails with model.ErrInvalidDescriptor before any
// I/O; backend failures are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, d model.Descriptor) (model.Series, error) {
	var (
		s   model.Series
		err error
	)
	switch d.DataSource {
	case model.SourceDailyRevenue:
		s, err = r.daily(ctx, d.Period, NameRevenue, func(p model.DailyPoint) float64 { return p.Revenue })
	case model.SourceTransactionCount:
		s, err = r.daily(ctx, d.Period, NameTransactions, func(p model.DailyPoint) float64 { return float64(p.Count) })
	case model.SourceHourlyCount:
		s, err = r.hourly(ctx, d.Period)
	case model.SourcePaymentTypes:
		s, err = r.paymentTypes(ctx)
	case model.SourceCardTypes:
		s, err = r.cardTypes(ctx, d.Period)
	default:
		return model.Series{}, fmt.Errorf("%w: data source %q", model.ErrInvalidDescriptor, d.DataSource)
	}
	if err != nil {
		return model.Series{}, fmt.Errorf("resolving %s: %w", d.DataSource, err)
	}
	return s, nil
}

func (r *Resolver) daily(ctx context.Context, days int, name string, value func(model.DailyPoint) float64) (model.Series, error) {
	pts, err := r.src.FetchDailyRevenue(ctx, days)
	if err != nil {
		return model.Series{}, err
	}
	labels := make([]string, len(pts))
	vals := make([]float64, len(pts))
	for i, p := range pts {
		labels[i] = p.Date
		vals[i] = value(p)
	}
	return single(labels, name, vals), nil
}

func (r *Resolver) hourly(ctx context.Context, days int) (model.Series, error) {
	pts, err := r.src.FetchHourlyDistribution(ctx, days)
	if err != nil {
		return model.Series{}, err
	}
	labels := make([]string, len(pts))
	vals := make([]float64, len(pts))
	for i, p := range pts {
		labels[i] = HourLabel(p.Hour)
		vals[i] = float64(p.Count)
	}
	return single(labels, NameTransactions, vals), nil
}

func (r *Resolver) paymentTypes(ctx context.Context) (model.Series, error) {
	sum, err := r.src.FetchSummary(ctx)
	if err != nil {
		return model.Series{}, err
	}
	labels := sum.PaymentTypes.Keys()
	vals := make([]float64, len(labels))
	for i, k := range labels {
		vals[i], _ = sum.PaymentTypes.Get(k)
	}
	return single(labels, NameRevenue, vals), nil
}

func (r *Resolver) cardTypes(ctx context.Context, days int) (model.Series, error) {
	ct, err := r.src.FetchCardTypeBreakdown(ctx, days)
	if err != nil {
		return model.Series{}, err
	}
	labels := ct.Keys()
	vals := make([]float64, len(labels))
	for i, k := range labels {
		stat, _ := ct.Get(k)
		vals[i] = float64(stat.Count)
	}
	return single(labels, NameTransactions, vals), nil
}

func single(labels []string, name string, vals []float64) model.Series {
	return model.Series{
		Labels: labels,
		Series: []model.NamedValues{{Name: name, Values: vals}},
	}
}

// HourLabel formats an hour-of-day bucket as "H:00".
func HourLabel(hour int) string {
	return strconv.Itoa(hour) + ":00"
}
