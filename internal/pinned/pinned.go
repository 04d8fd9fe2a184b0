// Package pinned manages the persisted collection of pinned chart descriptors.
//
// The whole collection is stored as one JSON array under a single key of a
// store.KV. Every mutation rewrites the array and only updates the in-memory
// copy once the write has succeeded.
package pinned

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/derickschaefer/tally/internal/model"
	"github.com/derickschaefer/tally/internal/store"
)

// Key is the storage key of the pinned collection.
const Key = "pinned_charts"

var (
	// ErrTitleRequired is returned when adding a descriptor without a title.
	ErrTitleRequired = errors.New("a title is required to pin a chart")
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = errors.New("pinned chart not found")
	// ErrDuplicateID is returned when adding a descriptor whose id is taken.
	ErrDuplicateID = errors.New("a pinned chart with this id already exists")
)

// Collection is the ordered list of pinned descriptors, oldest first.
type Collection struct {
	mu    sync.Mutex
	kv    store.KV
	items []model.Descriptor

	now   func() time.Time
	newID func() (string, error)
}

// New returns a Collection backed by kv.
func New(kv store.KV) *Collection {
	return &Collection{
		kv:    kv,
		now:   func() time.Time { return time.Now().UTC() },
		newID: newV7,
	}
}

func newV7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// LoadAll reads the collection from storage. A missing or malformed payload
// yields an empty list and a warning; only storage I/O failures are errors.
func (c *Collection) LoadAll() ([]model.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}
	return c.snapshot(), nil
}

// Get returns the pinned descriptor with the given id.
func (c *Collection) Get(id string) (model.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return model.Descriptor{}, err
	}
	for _, d := range c.items {
		if d.ID == id {
			return d, nil
		}
	}
	return model.Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Add validates d, assigns its id and creation time when absent, appends it
// and persists the collection. The stored descriptor is returned.
func (c *Collection) Add(d model.Descriptor) (model.Descriptor, error) {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		return model.Descriptor{}, ErrTitleRequired
	}
	if err := d.Validate(); err != nil {
		return model.Descriptor{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return model.Descriptor{}, err
	}

	if d.ID == "" {
		id, err := c.newID()
		if err != nil {
			return model.Descriptor{}, fmt.Errorf("generating id: %w", err)
		}
		d.ID = id
	} else if slices.ContainsFunc(c.items, func(p model.Descriptor) bool { return p.ID == d.ID }) {
		return model.Descriptor{}, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = c.now()
	}

	next := append(c.snapshot(), d)
	if err := c.persist(next); err != nil {
		return model.Descriptor{}, err
	}
	c.items = next
	return d, nil
}

// RemoveByID removes the descriptor with the given id, keeping the order of
// the rest. An unknown id is a no-op and does not touch storage.
func (c *Collection) RemoveByID(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return err
	}

	next := make([]model.Descriptor, 0, len(c.items))
	for _, d := range c.items {
		if d.ID != id {
			next = append(next, d)
		}
	}
	if len(next) == len(c.items) {
		return nil
	}
	if err := c.persist(next); err != nil {
		return err
	}
	c.items = next
	return nil
}

// Clear removes every pinned descriptor. Asking the user is the caller's job.
func (c *Collection) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.persist([]model.Descriptor{}); err != nil {
		return err
	}
	c.items = nil
	return nil
}

// load refreshes c.items from storage. Caller holds c.mu.
func (c *Collection) load() error {
	raw, ok, err := c.kv.Load(Key)
	if err != nil {
		return fmt.Errorf("loading pinned charts: %w", err)
	}
	c.items = nil
	if !ok || len(raw) == 0 {
		return nil
	}

	var all []model.Descriptor
	if err := json.Unmarshal(raw, &all); err != nil {
		slog.Warn("pinned charts unreadable, starting empty", "key", Key, "err", err)
		return nil
	}
	seen := make(map[string]bool, len(all))
	for _, d := range all {
		if d.ID == "" {
			slog.Warn("skipping pinned chart without id", "title", d.Title)
			continue
		}
		if seen[d.ID] {
			slog.Warn("skipping pinned chart with duplicate id", "id", d.ID, "title", d.Title)
			continue
		}
		if err := d.Validate(); err != nil {
			slog.Warn("skipping invalid pinned chart", "id", d.ID, "err", err)
			continue
		}
		seen[d.ID] = true
		c.items = append(c.items, d)
	}
	return nil
}

func (c *Collection) persist(items []model.Descriptor) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding pinned charts: %w", err)
	}
	if err := c.kv.Save(Key, data); err != nil {
		return fmt.Errorf("saving pinned charts: %w", err)
	}
	return nil
}

func (c *Collection) snapshot() []model.Descriptor {
	out := make([]model.Descriptor, len(c.items))
	copy(out, c.items)
	return out
}
