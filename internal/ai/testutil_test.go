package ai

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mrz1836/inkwell/internal/domain"
)

// EnsureNoRealAPIKeys unsets provider API keys for the duration of a test so
// nothing can accidentally reach a real service.
func EnsureNoRealAPIKeys(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

// MockBackend is a test implementation of Backend that records calls.
type MockBackend struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, call *Call) (*Response, error)
	Unavailable  bool
	Calls        []*Call
}

func (m *MockBackend) Generate(ctx context.Context, call *Call) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, call)
	}
	return &Response{Parts: []ResponsePart{{Text: "ok"}}}, nil
}

func (m *MockBackend) Available(context.Context) bool {
	return !m.Unavailable
}

func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// steppingClock advances its own time by the requested duration on every
// After call and fires immediately.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// countingLoader reports loaded after a number of checks.
type countingLoader struct {
	mu       sync.Mutex
	checks   int
	loadedAt int
}

func (l *countingLoader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
	return l.loadedAt > 0 && l.checks >= l.loadedAt
}

func textService(slug string, backend Backend) Service {
	caps := domain.NewCapabilitySet(domain.CapabilityTextGeneration)
	return Service{
		Slug:         slug,
		DisplayName:  slug + " AI",
		Capabilities: caps,
		Models:       []domain.ModelDescriptor{{ID: slug + "-text", Capabilities: caps}},
		Backend:      backend,
	}
}

func fastReadiness() ReadinessOptions {
	return ReadinessOptions{Interval: time.Millisecond, MaxAttempts: 3, Timeout: time.Second, Clock: &steppingClock{now: time.Unix(0, 0)}}
}
