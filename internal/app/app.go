// Package app wires together configuration, the backend client, and other
// dependencies into a single Deps struct that commands receive at runtime.
package app

import (
	"errors"
	"fmt"

	"github.com/derickschaefer/tally/internal/backend"
	"github.com/derickschaefer/tally/internal/config"
	"github.com/derickschaefer/tally/internal/dashboard"
	"github.com/derickschaefer/tally/internal/pinned"
	"github.com/derickschaefer/tally/internal/resolve"
	"github.com/derickschaefer/tally/internal/store"
	"github.com/derickschaefer/tally/internal/sumup"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store and Pinned are nil until RequireStore is called.
type Deps struct {
	Config   *config.Config
	Client   *backend.Client
	Resolver *resolve.Resolver
	Store    *store.Store // nil when Config.Ephemeral
	Pinned   *pinned.Collection
}

// New builds a Deps from resolved config.
func New(cfg *config.Config) *Deps {
	client := backend.NewClient(
		cfg.BaseURL,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config:   cfg,
		Client:   client,
		Resolver: resolve.New(client),
	}
}

// RequireStore opens the pinned chart store. With Config.Ephemeral set the
// collection lives in memory and is lost on exit.
func (d *Deps) RequireStore() error {
	if d.Pinned != nil {
		return nil
	}
	if d.Config.Ephemeral {
		d.Pinned = pinned.New(store.NewMemory())
		return nil
	}
	if d.Config.DBPath == "" {
		return errors.New("no database path configured (set TALLY_DB_PATH or --db)")
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	d.Store = s
	d.Pinned = pinned.New(s)
	return nil
}

// Dashboard returns a dashboard drawing on surface. It opens the store first.
func (d *Deps) Dashboard(surface dashboard.Surface) (*dashboard.Dashboard, error) {
	if err := d.RequireStore(); err != nil {
		return nil, err
	}
	return dashboard.New(d.Resolver, d.Pinned, surface), nil
}

// Upstream returns a payment-processor client for `serve`.
func (d *Deps) Upstream() (*sumup.Client, error) {
	if err := d.Config.ValidateUpstream(); err != nil {
		return nil, err
	}
	return sumup.NewClient(
		d.Config.APIKey,
		d.Config.UpstreamURL,
		d.Config.Timeout,
		d.Config.Rate,
		d.Config.Debug,
	), nil
}

// Close releases the store, if one was opened.
func (d *Deps) Close() error {
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
