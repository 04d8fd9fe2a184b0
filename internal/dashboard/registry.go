package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/derickschaefer/tally/internal/chartspec"
)

// ErrStale is returned by Replace when a newer render of the same slot began
// after the ticket was issued. The stale result is discarded.
var ErrStale = errors.New("render superseded by a newer request")

// Handle is a drawn chart that can be torn down.
type Handle interface {
	Destroy()
}

// Surface draws chart specifications.
type Surface interface {
	Draw(slot string, spec chartspec.Spec) (Handle, error)
}

// Ticket identifies one render request for a slot.
type Ticket struct {
	slot string
	gen  uint64
}

// Slot returns the slot the ticket was issued for.
func (t Ticket) Slot() string { return t.slot }

// Registry maps each display slot to its current handle. It guarantees that
// at most one handle is live per slot and that a slow, older render never
// overwrites a newer one. Draws are serialized.
type Registry struct {
	mu      sync.Mutex
	surface Surface
	gens    map[string]uint64
	handles map[string]Handle
}

// NewRegistry returns an empty Registry drawing on s.
func NewRegistry(s Surface) *Registry {
	return &Registry{
		surface: s,
		gens:    make(map[string]uint64),
		handles: make(map[string]Handle),
	}
}

// Begin starts a render of slot and invalidates any earlier ticket for it.
func (r *Registry) Begin(slot string) Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[slot]++
	return Ticket{slot: slot, gen: r.gens[slot]}
}

// Replace destroys the slot's previous handle and then draws spec in its
// place, so the surface never holds two charts for one slot. A failed draw
// leaves the slot empty. A stale ticket touches nothing and returns ErrStale.
func (r *Registry) Replace(t Ticket, spec chartspec.Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gens[t.slot] != t.gen {
		return fmt.Errorf("%s: %w", t.slot, ErrStale)
	}
	if prev, ok := r.handles[t.slot]; ok {
		prev.Destroy()
		delete(r.handles, t.slot)
	}
	h, err := r.surface.Draw(t.slot, spec)
	if err != nil {
		return fmt.Errorf("drawing %s: %w", t.slot, err)
	}
	r.handles[t.slot] = h
	return nil
}

// Drop destroys the handle of slot, if any, and invalidates in-flight tickets.
func (r *Registry) Drop(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[slot]++
	if h, ok := r.handles[slot]; ok {
		h.Destroy()
		delete(r.handles, slot)
	}
}

// Slots returns the slots that currently hold a chart, sorted.
func (r *Registry) Slots() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.handles))
	for slot := range r.handles {
		out = append(out, slot)
	}
	sort.Strings(out)
	return out
}

// Close destroys every live handle.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for slot, h := range r.handles {
		h.Destroy()
		delete(r.handles, slot)
	}
}
