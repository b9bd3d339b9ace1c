// Package clock abstracts the time calls made by the batch tracker's poll loop
// and the provider readiness wait, so tests can run them without real sleeps.
package clock

import "time"

// Clock is the time source used by polling loops.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then sends the current time
	// on the returned channel.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the actual system time.
type RealClock struct{}

// Now returns the current time from the system clock.
func (RealClock) Now() time.Time {
	return time.Now()
}

// After delegates to time.After.
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Ensure RealClock implements Clock.
var _ Clock = RealClock{}

// Fixed is a Clock frozen at T whose timers fire immediately.
// It lets tests drive poll loops without real delays.
type Fixed struct {
	T time.Time
}

// Now returns the fixed time.
func (f Fixed) Now() time.Time {
	return f.T
}

// After returns a channel that already holds the fixed time.
func (f Fixed) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- f.T
	return ch
}

var _ Clock = Fixed{}
