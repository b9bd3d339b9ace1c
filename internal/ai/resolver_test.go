package ai

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

var (
	textCaps  = domain.NewCapabilitySet(domain.CapabilityTextGeneration)
	imageCaps = domain.NewCapabilitySet(domain.CapabilityImageGeneration)
)

func TestResolve(t *testing.T) {
	t.Run("falls back when preferred is unavailable", func(t *testing.T) {
		services := []domain.ServiceDescriptor{
			{Slug: "a", Capabilities: textCaps, Available: false},
			{Slug: "b", Capabilities: textCaps, Available: true},
		}
		got, err := Resolve(services, textCaps, "a")
		require.NoError(t, err)
		assert.Equal(t, "b", got.Slug)
	})

	t.Run("empty list fails", func(t *testing.T) {
		_, err := Resolve(nil, textCaps, "")
		require.ErrorIs(t, err, inkerrors.ErrNoServiceAvailable)
		require.ErrorIs(t, err, inkerrors.ErrResolution)
	})

	t.Run("preferred wins when it qualifies", func(t *testing.T) {
		services := []domain.ServiceDescriptor{
			{Slug: "a", Capabilities: textCaps, Available: true},
			{Slug: "b", Capabilities: textCaps, Available: true},
		}
		got, err := Resolve(services, textCaps, "b")
		require.NoError(t, err)
		assert.Equal(t, "b", got.Slug)
	})

	t.Run("preferred lacking capability falls back", func(t *testing.T) {
		services := []domain.ServiceDescriptor{
			{Slug: "a", Capabilities: textCaps, Available: true},
			{Slug: "b", Capabilities: imageCaps, Available: true},
		}
		got, err := Resolve(services, imageCaps, "a")
		require.NoError(t, err)
		assert.Equal(t, "b", got.Slug)
	})

	t.Run("unknown preferred falls back", func(t *testing.T) {
		services := []domain.ServiceDescriptor{{Slug: "a", Capabilities: textCaps, Available: true}}
		got, err := Resolve(services, textCaps, "zzz")
		require.NoError(t, err)
		assert.Equal(t, "a", got.Slug)
	})

	t.Run("first registered wins ties", func(t *testing.T) {
		both := textCaps.Add(domain.CapabilityMultimodalInput)
		services := []domain.ServiceDescriptor{
			{Slug: "x", Capabilities: imageCaps, Available: true},
			{Slug: "y", Capabilities: both, Available: true},
			{Slug: "z", Capabilities: both, Available: true},
		}
		for i := 0; i < 5; i++ {
			got, err := Resolve(services, textCaps, "")
			require.NoError(t, err)
			assert.Equal(t, "y", got.Slug)
		}
	})

	t.Run("superset required", func(t *testing.T) {
		services := []domain.ServiceDescriptor{{Slug: "a", Capabilities: textCaps, Available: true}}
		_, err := Resolve(services, textCaps.Add(domain.CapabilityMultimodalInput), "")
		require.ErrorIs(t, err, inkerrors.ErrNoServiceAvailable)
	})
}

func TestResolver_WaitsForProvider(t *testing.T) {
	t.Run("unloaded registry is backend unavailable", func(t *testing.T) {
		reg := NewServiceRegistry()
		reg.Register(textService("a", &MockBackend{}))

		r := NewResolver(reg, fastReadiness(), zerolog.Nop())
		_, err := r.Resolve(context.Background(), textCaps, "")
		require.ErrorIs(t, err, inkerrors.ErrBackendUnavailable)
	})

	t.Run("loaded registry resolves", func(t *testing.T) {
		reg := NewServiceRegistry()
		reg.Register(textService("a", &MockBackend{Unavailable: true}))
		reg.Register(textService("b", &MockBackend{}))
		reg.MarkLoaded()

		r := NewResolver(reg, fastReadiness(), zerolog.Nop())
		got, err := r.Resolve(context.Background(), textCaps, "a")
		require.NoError(t, err)
		assert.Equal(t, "b", got.Slug)
	})
}

func TestWaitForProvider(t *testing.T) {
	t.Run("returns once loaded", func(t *testing.T) {
		loader := &countingLoader{loadedAt: 3}
		err := WaitForProvider(context.Background(), loader, ReadinessOptions{
			Interval: 100 * time.Millisecond, MaxAttempts: 50, Timeout: 5 * time.Second,
			Clock: &steppingClock{now: time.Unix(0, 0)},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, loader.checks)
	})

	t.Run("attempt cap", func(t *testing.T) {
		loader := &countingLoader{}
		err := WaitForProvider(context.Background(), loader, ReadinessOptions{
			Interval: time.Millisecond, MaxAttempts: 50, Timeout: time.Hour,
			Clock: &steppingClock{now: time.Unix(0, 0)},
		})
		require.ErrorIs(t, err, inkerrors.ErrBackendUnavailable)
		assert.Equal(t, 50, loader.checks)
	})

	t.Run("wall clock cap", func(t *testing.T) {
		loader := &countingLoader{}
		err := WaitForProvider(context.Background(), loader, ReadinessOptions{
			Interval: time.Second, MaxAttempts: 1000, Timeout: 5 * time.Second,
			Clock: &steppingClock{now: time.Unix(0, 0)},
		})
		require.ErrorIs(t, err, inkerrors.ErrBackendUnavailable)
		assert.Equal(t, 6, loader.checks)
	})

	t.Run("default bounds", func(t *testing.T) {
		loader := &countingLoader{}
		opts := DefaultReadinessOptions()
		opts.Clock = &steppingClock{now: time.Unix(0, 0)}
		err := WaitForProvider(context.Background(), loader, opts)
		require.ErrorIs(t, err, inkerrors.ErrBackendUnavailable)
		assert.Equal(t, 50, loader.checks)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WaitForProvider(ctx, &countingLoader{}, DefaultReadinessOptions())
		require.ErrorIs(t, err, context.Canceled)
	})
}
