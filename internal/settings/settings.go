// Package settings provides snapshot access to the persisted prompt settings:
// per-feature toggles and overrides plus the global prompt modifiers.
//
// Snapshots are fetched fresh for every request and never cached, so changes
// made in the backing store are observed by the next request.
package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrz1836/inkwell/internal/domain"
)

// Provider returns a read-only snapshot of the persisted settings.
type Provider interface {
	Snapshot(ctx context.Context) (domain.Settings, error)
}

// Store is a Provider that can also persist changes.
type Store interface {
	Provider

	// SetFeature persists the settings for one feature.
	SetFeature(ctx context.Context, feature domain.Feature, fs domain.FeatureSettings) error

	// SetModifiers persists the global prompt modifiers.
	SetModifiers(ctx context.Context, mods domain.GlobalModifiers) error
}

// StaticStore is an in-memory Store. It is used when no persistent settings
// source is configured and in tests.
type StaticStore struct {
	mu       sync.RWMutex
	settings domain.Settings
}

// NewStaticStore creates a StaticStore seeded with initial.
func NewStaticStore(initial domain.Settings) *StaticStore {
	return &StaticStore{settings: clone(initial)}
}

// Snapshot returns a copy of the current settings.
func (s *StaticStore) Snapshot(ctx context.Context) (domain.Settings, error) {
	if err := ctx.Err(); err != nil {
		return domain.Settings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.settings), nil
}

// SetFeature updates the settings for one feature.
func (s *StaticStore) SetFeature(_ context.Context, feature domain.Feature, fs domain.FeatureSettings) error {
	if _, err := domain.ParseFeature(string(feature)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.Features == nil {
		s.settings.Features = make(map[domain.Feature]domain.FeatureSettings)
	}
	s.settings.Features[feature] = cloneFeature(fs)
	return nil
}

// SetModifiers replaces the global modifiers.
func (s *StaticStore) SetModifiers(_ context.Context, mods domain.GlobalModifiers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Modifiers = mods
	return nil
}

func clone(in domain.Settings) domain.Settings {
	out := domain.Settings{Modifiers: in.Modifiers}
	if in.Features != nil {
		out.Features = make(map[domain.Feature]domain.FeatureSettings, len(in.Features))
		for k, v := range in.Features {
			out.Features[k] = cloneFeature(v)
		}
	}
	return out
}

func cloneFeature(fs domain.FeatureSettings) domain.FeatureSettings {
	if fs.Enabled != nil {
		enabled := *fs.Enabled
		fs.Enabled = &enabled
	}
	return fs
}

// parseFeatures converts raw feature keys, rejecting any outside the catalog.
func parseFeatures(raw map[string]domain.FeatureSettings) (map[domain.Feature]domain.FeatureSettings, error) {
	if len(raw) == 0 {
		return nil, nil //nolint:nilnil // no persisted feature settings
	}
	out := make(map[domain.Feature]domain.FeatureSettings, len(raw))
	for key, fs := range raw {
		f, err := domain.ParseFeature(key)
		if err != nil {
			return nil, fmt.Errorf("settings: %w", err)
		}
		out[f] = fs
	}
	return out, nil
}
