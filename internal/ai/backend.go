// Package ai provides service resolution and generation for inkwell.
//
// It maps operations to required capabilities, resolves a backend service from
// the provider registry, issues the generation call, and normalizes the
// response. Orchestrator ties prompt composition to generation.
//
// IMPORTANT: This package may import internal/constants, internal/errors,
// internal/domain, internal/prompts, internal/settings, internal/clock and
// internal/ctxutil. It MUST NOT import internal/batch, internal/server, or
// internal/cli.
package ai

import (
	"context"

	"github.com/mrz1836/inkwell/internal/domain"
)

// Backend issues generation calls against one AI service.
// Implementations live under internal/provider.
//
// Context should be used to control timeouts. A returned error that is not
// already a *errors.ProviderError is converted into one by the Client.
type Backend interface {
	Generate(ctx context.Context, call *Call) (*Response, error)
}

// AvailabilityReporter is implemented by backends that can tell whether they
// are usable right now, for example because an API key is configured.
// Backends that do not implement it are considered available.
type AvailabilityReporter interface {
	Available(ctx context.Context) bool
}

// Call is a single request to a Backend.
type Call struct {
	// RequestID correlates log lines for one generation.
	RequestID string

	// Operation is the kind of generation requested.
	Operation domain.OperationKind

	// Model is the provider model identifier selected for the call.
	Model string

	// Prompt is the composed prompt text.
	Prompt string

	// Parts are auxiliary payloads passed through unmodified.
	Parts []domain.Part

	// ImageCount is the number of images requested (image generation only).
	ImageCount int

	// AspectRatio is the requested image aspect ratio (image generation only).
	AspectRatio string
}

// Response is the raw backend response: an ordered list of parts.
type Response struct {
	Parts []ResponsePart
}

// ResponsePart is one piece of backend output. Exactly one of Text, Data, or
// FileURI is set.
type ResponsePart struct {
	Text     string
	MimeType string
	Data     []byte
	FileURI  string
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, call *Call) (*Response, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, call *Call) (*Response, error) {
	return f(ctx, call)
}
