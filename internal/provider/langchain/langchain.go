// Package langchain implements ai.Backend on top of langchaingo chat models.
// It covers the OpenAI, Anthropic and Ollama services. None of them are
// registered for image generation.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Kind identifies which langchaingo driver backs a service.
type Kind string

// Supported kinds.
const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
)

// IsValid reports whether k is a supported kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindOpenAI, KindAnthropic, KindOllama:
		return true
	}
	return false
}

// Options configures a langchaingo backend.
type Options struct {
	Kind    Kind
	APIKey  string
	BaseURL string
	// Model is the default model; per-call models override it.
	Model  string
	Logger zerolog.Logger
}

// Backend adapts an llms.Model to ai.Backend.
type Backend struct {
	kind   Kind
	llm    llms.Model
	ready  bool
	logger zerolog.Logger
}

// New creates a backend for the configured kind. A hosted kind with no API key
// still constructs, but reports itself unavailable.
func New(opts Options) (*Backend, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	var (
		model llms.Model
		err   error
		ready = true
	)

	switch opts.Kind {
	case KindOpenAI:
		ready = apiKey != ""
		oo := []openai.Option{openai.WithToken(tokenOrPlaceholder(apiKey)), openai.WithModel(opts.Model)}
		if opts.BaseURL != "" {
			oo = append(oo, openai.WithBaseURL(opts.BaseURL))
		}
		model, err = openai.New(oo...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case KindAnthropic:
		ready = apiKey != ""
		ao := []anthropic.Option{anthropic.WithToken(tokenOrPlaceholder(apiKey)), anthropic.WithModel(opts.Model)}
		if opts.BaseURL != "" {
			ao = append(ao, anthropic.WithBaseURL(opts.BaseURL))
		}
		model, err = anthropic.New(ao...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case KindOllama:
		lo := []ollama.Option{ollama.WithModel(opts.Model)}
		if opts.BaseURL != "" {
			lo = append(lo, ollama.WithServerURL(opts.BaseURL))
		}
		model, err = ollama.New(lo...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported langchain kind %q", inkerrors.ErrConfigInvalidService, opts.Kind)
	}

	return NewWithModel(opts.Kind, model, ready, opts.Logger), nil
}

// NewWithModel wraps an existing llms.Model.
func NewWithModel(kind Kind, model llms.Model, ready bool, logger zerolog.Logger) *Backend {
	return &Backend{
		kind:   kind,
		llm:    model,
		ready:  ready && model != nil,
		logger: logger.With().Str("component", "langchain").Str("kind", string(kind)).Logger(),
	}
}

// The hosted clients refuse to construct without a token. An unavailable
// service is never resolved, so the placeholder is never sent.
func tokenOrPlaceholder(key string) string {
	if key == "" {
		return "unset"
	}
	return key
}

// Available reports whether the backend can serve requests.
func (b *Backend) Available(context.Context) bool {
	return b.ready
}

// Generate implements ai.Backend.
func (b *Backend) Generate(ctx context.Context, call *ai.Call) (*ai.Response, error) {
	if call.Operation == domain.OperationImageGeneration {
		return nil, inkerrors.NewProviderError("", fmt.Sprintf("%s does not support image generation", b.kind))
	}

	parts := make([]llms.ContentPart, 0, len(call.Parts)+1)
	parts = append(parts, llms.TextPart(call.Prompt))
	for _, p := range call.Parts {
		if p.IsInline() {
			parts = append(parts, llms.BinaryPart(p.MimeType, p.Data))
			continue
		}
		parts = append(parts, llms.ImageURLPart(p.URI))
	}
	messages := []llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: parts}}

	var opts []llms.CallOption
	if call.Model != "" {
		opts = append(opts, llms.WithModel(call.Model))
	}

	resp, err := b.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, inkerrors.NewProviderError("", err.Error())
	}

	out := &ai.Response{}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return out, nil
	}
	if text := resp.Choices[0].Content; text != "" {
		out.Parts = append(out.Parts, ai.ResponsePart{Text: text})
	}

	b.logger.Debug().
		Str("request_id", call.RequestID).
		Str("model", call.Model).
		Int("choices", len(resp.Choices)).
		Msg("langchain response received")
	return out, nil
}

// Compile-time checks.
var (
	_ ai.Backend              = (*Backend)(nil)
	_ ai.AvailabilityReporter = (*Backend)(nil)
)
