// Package signal turns SIGINT and SIGTERM into context cancellation for
// long-running inkwell commands (serve, batch watch, batch start --watch).
//
// The first signal cancels the handler's context so servers drain and
// trackers stop polling. A second signal while draining invokes the
// configured force hook, which the CLI wires to an immediate exit.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Option configures a Handler.
type Option func(*Handler)

// WithForce sets the hook run on the second signal. The hook receives the
// signal that triggered it.
func WithForce(fn func(os.Signal)) Option {
	return func(h *Handler) {
		h.force = fn
	}
}

// WithSignals replaces the default SIGINT and SIGTERM set.
func WithSignals(sigs ...os.Signal) Option {
	return func(h *Handler) {
		if len(sigs) > 0 {
			h.signals = sigs
		}
	}
}

// Handler cancels a context on the first shutdown signal and escalates on
// the second.
type Handler struct {
	ctx         context.Context //nolint:containedctx // the handler owns the shutdown context
	cancel      context.CancelFunc
	interrupted chan struct{}
	done        chan struct{}
	sigChan     chan os.Signal
	signals     []os.Signal
	force       func(os.Signal)

	mu       sync.Mutex
	received int
	stopOnce sync.Once
}

// NewHandler starts listening for shutdown signals derived from parent.
//
//	h := signal.NewHandler(ctx, signal.WithForce(func(os.Signal) { os.Exit(130) }))
//	defer h.Stop()
//	return srv.Run(h.Context())
func NewHandler(parent context.Context, opts ...Option) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		// Buffered so signal.Notify never drops a delivery.
		sigChan: make(chan os.Signal, 2),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(h)
	}

	signal.Notify(h.sigChan, h.signals...)
	go h.listen()

	return h
}

// Context is canceled by the first signal or by Stop.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted closes when the first signal arrives.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Received returns the number of signals seen so far.
func (h *Handler) Received() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.received
}

// Stop stops listening and cancels the context. Safe to call repeatedly.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

func (h *Handler) handleSignal(sig os.Signal) {
	h.mu.Lock()
	h.received++
	n := h.received
	h.mu.Unlock()

	switch {
	case n == 1:
		h.cancel()
		close(h.interrupted)
	case n == 2 && h.force != nil:
		h.force(sig)
	}
}

// listen keeps draining signals after the first so a second Ctrl+C can
// escalate while the command is shutting down.
func (h *Handler) listen() {
	for {
		select {
		case <-h.done:
			return
		case sig := <-h.sigChan:
			h.handleSignal(sig)
		}
	}
}
