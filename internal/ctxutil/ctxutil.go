// Package ctxutil provides context utility functions.
package ctxutil

import (
	"context"
	"time"
)

// Canceled checks if the context has been canceled or exceeded its deadline.
// Returns the context error if done (Canceled or DeadlineExceeded), nil otherwise.
// Use it at function entry points before starting I/O.
func Canceled(ctx context.Context) error {
	return ctx.Err()
}

// Wait blocks until timer fires or ctx is done, whichever comes first.
// It returns the context error when ctx finished first.
func Wait(ctx context.Context, timer <-chan time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return nil
	}
}
