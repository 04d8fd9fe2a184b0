// Package dashboard orchestrates the overview, the chart builder preview and
// pinned chart replay. It resolves descriptors to series, builds chart
// specifications and hands them to a Registry, which owns what is on screen.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/derickschaefer/tally/internal/chartspec"
	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/pinned"
	"github.com/derickschaefer/tally/internal/util"
)

// ErrNotConfirmed is returned by Clear when the caller did not confirm.
var ErrNotConfirmed = errors.New("clearing pinned charts requires confirmation")

// Slot names.
const (
	SlotPreview      = "builder-preview"
	pinnedSlotPrefix = "pinned-"
)

// PinnedSlot returns the display slot of a pinned descriptor.
func PinnedSlot(id string) string { return pinnedSlotPrefix + id }

// Resolver turns a descriptor into a normalized series.
type Resolver interface {
	Resolve(ctx context.Context, d model.Descriptor) (model.Series, error)
}

// Panel is one fixed overview chart.
type Panel struct {
	Slot       string
	Descriptor model.Descriptor
}

// OverviewPanels are the fixed overview charts, in display order.
var OverviewPanels = []Panel{
	{"revenue-trend", model.Descriptor{Title: "Revenue (30 days)", ChartKind: model.ChartLine, DataSource: model.SourceDailyRevenue, Period: 30, ColorScheme: model.SchemeBlue}},
	{"hourly", model.Descriptor{Title: "Transactions by hour (7 days)", ChartKind: model.ChartBar, DataSource: model.SourceHourlyCount, Period: 7, ColorScheme: model.SchemeGreen}},
	{"payment-types", model.Descriptor{Title: "Revenue by payment type", ChartKind: model.ChartRing, DataSource: model.SourcePaymentTypes, Period: 30, ColorScheme: model.SchemePurple}},
	{"card-types", model.Descriptor{Title: "Card types (30 days)", ChartKind: model.ChartPie, DataSource: model.SourceCardTypes, Period: 30, ColorScheme: model.SchemeOrange}},
}

// Outcome reports how one slot fared.
type Outcome struct {
	Slot  string
	Title string
	Err   error
}

// Report lists the outcome of every slot a call touched, in display order.
type Report struct {
	Outcomes []Outcome
}

// Drawn returns the number of slots drawn successfully.
func (r Report) Drawn() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// AllFailed reports whether at least one slot was attempted and none drew.
func (r Report) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Drawn() == 0
}

// Dashboard ties the resolver, the pinned collection and the registry together.
type Dashboard struct {
	resolver Resolver
	pinned   *pinned.Collection
	registry *Registry
}

// New returns a Dashboard drawing on s.
func New(r Resolver, p *pinned.Collection, s Surface) *Dashboard {
	return &Dashboard{resolver: r, pinned: p, registry: NewRegistry(s)}
}

// Registry returns the slot registry.
func (d *Dashboard) Registry() *Registry { return d.registry }

// Overview resolves the fixed overview charts concurrently and draws every
// one that succeeded, in display order. A failed slot keeps whatever it
// showed before. All failures are returned together as a *util.MultiError.
func (d *Dashboard) Overview(ctx context.Context) (Report, error) {
	type resolved struct {
		ticket Ticket
		series model.Series
		err    error
	}

	results := make([]resolved, len(OverviewPanels))
	var wg sync.WaitGroup
	for i, p := range OverviewPanels {
		i, p := i, p
		results[i].ticket = d.registry.Begin(p.Slot)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i].series, results[i].err = d.resolve(ctx, p.Descriptor)
		}()
	}
	wg.Wait()

	var report Report
	var errs util.MultiError
	for i, p := range OverviewPanels {
		r := results[i]
		err := r.err
		if err == nil {
			spec := chartspec.BuildOverview(r.series, p.Descriptor.ChartKind, p.Descriptor.ColorScheme, p.Descriptor.Title)
			err = d.registry.Replace(r.ticket, spec)
		}
		if err != nil {
			slog.Debug("overview slot failed", "slot", p.Slot, "err", err)
			errs.Add(fmt.Errorf("%s: %w", p.Slot, err))
		}
		report.Outcomes = append(report.Outcomes, Outcome{Slot: p.Slot, Title: p.Descriptor.Title, Err: err})
	}
	return report, errs.Err()
}

// Preview resolves an unsaved descriptor and draws it on the builder slot.
// The built specification is returned.
func (d *Dashboard) Preview(ctx context.Context, desc model.Descriptor) (chartspec.Spec, error) {
	if err := desc.Validate(); err != nil {
		return chartspec.Spec{}, err
	}
	ticket := d.registry.Begin(SlotPreview)
	series, err := d.resolve(ctx, desc)
	if err != nil {
		return chartspec.Spec{}, err
	}
	spec := chartspec.Build(series, desc.ChartKind, desc.ColorScheme, desc.Title)
	if err := d.registry.Replace(ticket, spec); err != nil {
		return chartspec.Spec{}, err
	}
	return spec, nil
}

// Save pins desc and returns the stored descriptor.
func (d *Dashboard) Save(desc model.Descriptor) (model.Descriptor, error) {
	return d.pinned.Add(desc)
}

// Replay draws every pinned descriptor, one after another, each on its own
// slot. A failing descriptor does not stop the others; failures are returned
// together as a *util.MultiError.
func (d *Dashboard) Replay(ctx context.Context) (Report, error) {
	all, err := d.pinned.LoadAll()
	if err != nil {
		return Report{}, err
	}
	return d.replay(ctx, all)
}

// ReplayOne draws a single pinned descriptor.
func (d *Dashboard) ReplayOne(ctx context.Context, id string) (Report, error) {
	desc, err := d.pinned.Get(id)
	if err != nil {
		return Report{}, err
	}
	return d.replay(ctx, []model.Descriptor{desc})
}

func (d *Dashboard) replay(ctx context.Context, descs []model.Descriptor) (Report, error) {
	var report Report
	var errs util.MultiError
	for _, desc := range descs {
		slot := PinnedSlot(desc.ID)
		ticket := d.registry.Begin(slot)
		series, err := d.resolve(ctx, desc)
		if err == nil {
			err = d.registry.Replace(ticket, chartspec.Build(series, desc.ChartKind, desc.ColorScheme, desc.Title))
		}
		if err != nil {
			errs.Add(fmt.Errorf("%s: %w", desc.Title, err))
		}
		report.Outcomes = append(report.Outcomes, Outcome{Slot: slot, Title: desc.Title, Err: err})
	}
	return report, errs.Err()
}

// Remove unpins id and takes its chart down.
func (d *Dashboard) Remove(id string) error {
	if err := d.pinned.RemoveByID(id); err != nil {
		return err
	}
	d.registry.Drop(PinnedSlot(id))
	return nil
}

// Clear unpins everything. It refuses unless confirmed is true.
func (d *Dashboard) Clear(confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := d.pinned.Clear(); err != nil {
		return err
	}
	for _, slot := range d.registry.Slots() {
		if strings.HasPrefix(slot, pinnedSlotPrefix) {
			d.registry.Drop(slot)
		}
	}
	return nil
}

func (d *Dashboard) resolve(ctx context.Context, desc model.Descriptor) (model.Series, error) {
	series, err := d.resolver.Resolve(ctx, desc)
	if err != nil {
		return model.Series{}, err
	}
	if err := series.Check(); err != nil {
		return model.Series{}, fmt.Errorf("resolving %s: %w", desc.DataSource, err)
	}
	return series, nil
}
