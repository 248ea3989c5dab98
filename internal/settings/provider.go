// Package settings keeps the in-memory copy of the user's timer settings in
// step with the settings row in storage.
package settings

import (
	"context"
	"sync"

	"github.com/zjrosen/standclock/internal/log"
	"github.com/zjrosen/standclock/internal/pubsub"
	"github.com/zjrosen/standclock/internal/sessions/domain"
)

// Provider serves the current settings synchronously and publishes every
// change. Reads never touch storage.
type Provider struct {
	repo   domain.SettingsRepository
	seed   domain.Settings
	broker *pubsub.Broker[domain.Settings]

	mu      sync.RWMutex
	current domain.Settings
}

// NewProvider returns a Provider that serves seed until Reload finds saved
// settings.
func NewProvider(repo domain.SettingsRepository, seed domain.Settings) *Provider {
	return &Provider{
		repo:    repo,
		seed:    seed,
		broker:  pubsub.NewBroker[domain.Settings](),
		current: seed,
	}
}

// Current returns the settings in effect.
func (p *Provider) Current() domain.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Snapshot returns the timer part of Current.
func (p *Provider) Snapshot() domain.SettingsSnapshot {
	return p.Current().Snapshot()
}

// Subscribe returns a channel receiving the settings after every change.
func (p *Provider) Subscribe(ctx context.Context) <-chan pubsub.Event[domain.Settings] {
	return p.broker.Subscribe(ctx)
}

// Update validates s, persists it and then makes it current. On any error
// the current settings are unchanged.
func (p *Provider) Update(ctx context.Context, s domain.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		log.Warn(log.CatSettings, "Rejected settings", "error", err)
		return err
	}
	if err := p.repo.Save(s); err != nil {
		return &domain.PersistenceError{Op: "save settings", Err: err}
	}

	p.swap(s)
	log.Info(log.CatSettings, "Settings updated", "timer", s.Snapshot().String(),
		"eye_care", s.EyeCareEnabled, "activity", s.DefaultBreakActivity)
	return nil
}

// Reload replaces the current settings with the stored row. The first run
// stores the seed so later runs and the CLI agree.
func (p *Provider) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, ok, err := p.repo.Load()
	if err != nil {
		log.ErrorErr(log.CatSettings, "Failed to load settings", err)
		return &domain.PersistenceError{Op: "load settings", Err: err}
	}
	if !ok {
		log.Info(log.CatSettings, "No saved settings, storing defaults", "timer", p.seed.Snapshot().String())
		if err := p.repo.Save(p.seed); err != nil {
			return &domain.PersistenceError{Op: "save settings", Err: err}
		}
		s = p.seed
	}
	if err := s.Validate(); err != nil {
		log.Warn(log.CatSettings, "Stored settings invalid, keeping current", "error", err)
		return err
	}

	if s != p.Current() {
		p.swap(s)
	}
	return nil
}

// Close ends all subscriptions.
func (p *Provider) Close() {
	p.broker.Close()
}

func (p *Provider) swap(s domain.Settings) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	p.broker.Publish(pubsub.UpdatedEvent, s)
}
