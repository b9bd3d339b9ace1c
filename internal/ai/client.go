package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Timeout bounds a single backend call. Defaults to constants.DefaultGenerationTimeout.
	Timeout time.Duration

	// Readiness bounds the provider readiness wait.
	Readiness ReadinessOptions
}

// Client issues generation requests to resolved services and normalizes the
// responses. Requests run to completion or error; there is no per-request
// cancellation beyond the caller's context.
type Client struct {
	resolver *Resolver
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewClient creates a Client over provider.
func NewClient(provider Provider, cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultGenerationTimeout
	}
	return &Client{
		resolver: NewResolver(provider, cfg.Readiness, logger),
		timeout:  cfg.Timeout,
		logger:   logger.With().Str("component", "generation").Logger(),
	}
}

// Resolver returns the client's service resolver.
func (c *Client) Resolver() *Resolver {
	return c.resolver
}

// GenerateText runs a text generation. A request without a prompt or feature
// is a no-op and returns an empty result without contacting any backend.
func (c *Client) GenerateText(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" || req.Feature == "" {
		return domain.GenerationResult{}, nil
	}

	caps, err := capabilitiesFor(req)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	resp, target, err := c.dispatch(ctx, req, caps)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	text := textFrom(resp)
	if text == "" {
		return domain.GenerationResult{}, fmt.Errorf("%w: %s", inkerrors.ErrEmptyResponse, target.slug)
	}
	return domain.GenerationResult{Text: text, Service: target.slug, Model: target.model}, nil
}

// GenerateImages runs an image generation and returns at most req.ImageCount
// images. A request without a prompt or feature is a no-op.
func (c *Client) GenerateImages(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" || req.Feature == "" {
		return domain.GenerationResult{}, nil
	}

	req.ImageCount = clampImageCount(req.ImageCount)
	if req.AspectRatio == "" {
		req.AspectRatio = constants.DefaultAspectRatio
	}

	caps := req.Capabilities
	if caps.IsEmpty() {
		caps = domain.NewCapabilitySet(domain.CapabilityImageGeneration)
	}

	resp, target, err := c.dispatch(ctx, req, caps)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	images := imagesFrom(resp)
	if len(images) == 0 {
		return domain.GenerationResult{}, fmt.Errorf("%w: %s returned no images", inkerrors.ErrEmptyResponse, target.slug)
	}
	if len(images) > req.ImageCount {
		images = images[:req.ImageCount]
	}
	return domain.GenerationResult{Images: images, Service: target.slug, Model: target.model}, nil
}

type dispatchTarget struct {
	slug  string
	model string
}

// dispatch resolves the service, selects a model, and calls the backend.
// Resolution always completes before the backend is called.
func (c *Client) dispatch(ctx context.Context, req domain.GenerationRequest, caps domain.CapabilitySet) (*Response, dispatchTarget, error) {
	requestID := uuid.NewString()
	log := c.logger.With().
		Str("request_id", requestID).
		Str("feature", req.Feature.String()).
		Logger()

	desc, err := c.resolver.Resolve(ctx, caps, req.PreferredService)
	if err != nil {
		return nil, dispatchTarget{}, err
	}

	svc, err := c.resolver.Provider().Lookup(desc.Slug)
	if err != nil {
		return nil, dispatchTarget{}, err
	}
	model, err := SelectModel(svc, caps)
	if err != nil {
		return nil, dispatchTarget{}, err
	}
	target := dispatchTarget{slug: svc.Slug, model: model.ID}

	call := &Call{
		RequestID:   requestID,
		Operation:   operationFor(caps),
		Model:       model.ID,
		Prompt:      req.Prompt,
		Parts:       req.Parts,
		ImageCount:  req.ImageCount,
		AspectRatio: req.AspectRatio,
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	log.Debug().
		Str("service", svc.Slug).
		Str("model", model.ID).
		Str("capabilities", caps.String()).
		Int("parts", len(req.Parts)).
		Msg("dispatching generation")

	resp, err := svc.Backend.Generate(callCtx, call)
	if err != nil {
		perr := asProviderError(svc.Slug, err)
		log.Warn().
			Err(perr).
			Str("service", svc.Slug).
			Dur("duration", time.Since(start)).
			Msg("generation failed")
		return nil, target, perr
	}

	log.Info().
		Str("service", svc.Slug).
		Str("model", model.ID).
		Dur("duration", time.Since(start)).
		Msg("generation completed")
	return resp, target, nil
}

// SelectModel returns the first model of svc whose capabilities cover required.
func SelectModel(svc Service, required domain.CapabilitySet) (domain.ModelDescriptor, error) {
	for _, m := range svc.Models {
		if m.Capabilities.Covers(required) {
			return m, nil
		}
	}
	return domain.ModelDescriptor{}, fmt.Errorf("%w: %s has no model supporting %s", inkerrors.ErrInvalidModel, svc.Slug, required)
}

// asProviderError converts a backend error into a *ProviderError, keeping an
// existing one intact.
func asProviderError(slug string, err error) error {
	var pe *inkerrors.ProviderError
	if errors.As(err, &pe) {
		if pe.Service == "" {
			return inkerrors.NewProviderError(slug, pe.Message)
		}
		return pe
	}
	return inkerrors.NewProviderError(slug, err.Error())
}

func clampImageCount(n int) int {
	switch {
	case n <= 0:
		return constants.DefaultImageCount
	case n > constants.MaxImageCount:
		return constants.MaxImageCount
	default:
		return n
	}
}
