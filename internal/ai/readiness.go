package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/mrz1836/inkwell/internal/clock"
	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/ctxutil"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// ReadinessOptions bounds the wait for the provider registry.
type ReadinessOptions struct {
	// Interval is the delay between checks.
	Interval time.Duration

	// MaxAttempts caps the number of checks.
	MaxAttempts int

	// Timeout caps the total wall-clock wait.
	Timeout time.Duration

	// Clock supplies time. Defaults to the real clock.
	Clock clock.Clock
}

// DefaultReadinessOptions returns the default bounds: 100ms interval,
// 50 attempts, 5 seconds.
func DefaultReadinessOptions() ReadinessOptions {
	return ReadinessOptions{
		Interval:    constants.ProviderReadyInterval,
		MaxAttempts: constants.ProviderReadyMaxAttempts,
		Timeout:     constants.ProviderReadyTimeout,
		Clock:       clock.RealClock{},
	}
}

func (o ReadinessOptions) withDefaults() ReadinessOptions {
	def := DefaultReadinessOptions()
	if o.Interval <= 0 {
		o.Interval = def.Interval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Clock == nil {
		o.Clock = def.Clock
	}
	return o
}

// Loader reports whether a provider registry is populated.
type Loader interface {
	Loaded() bool
}

// WaitForProvider polls p until it reports loaded. It gives up with
// ErrBackendUnavailable after MaxAttempts checks or once Timeout has elapsed,
// whichever comes first.
func WaitForProvider(ctx context.Context, p Loader, opts ReadinessOptions) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	opts = opts.withDefaults()

	deadline := opts.Clock.Now().Add(opts.Timeout)
	for attempt := 1; ; attempt++ {
		if p.Loaded() {
			return nil
		}
		if attempt >= opts.MaxAttempts || !opts.Clock.Now().Before(deadline) {
			return fmt.Errorf("%w: provider registry not loaded after %d attempts", inkerrors.ErrBackendUnavailable, attempt)
		}
		if err := ctxutil.Wait(ctx, opts.Clock.After(opts.Interval)); err != nil {
			return err
		}
	}
}
