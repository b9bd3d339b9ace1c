package flock

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Lock is a held lock on a sidecar file.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if needed) the lock file at path and retries
// Exclusive every retry interval. It gives up with timeoutErr once timeout
// has elapsed, or with ctx.Err() when ctx ends first.
func Acquire(ctx context.Context, path string, timeout, retry time.Duration, timeoutErr error) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //#nosec G304 -- path is built by the caller from its own config
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := Exclusive(f.Fd()); err == nil {
			return &Lock{f: f}, nil
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, timeoutErr
		}

		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = f.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release unlocks and closes the lock file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := Unlock(l.f.Fd()); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}
