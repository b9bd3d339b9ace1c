package ai

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/prompts"
	"github.com/mrz1836/inkwell/internal/settings"
)

// GenerateInput is the input to ComposeAndGenerate.
type GenerateInput struct {
	Feature          domain.Feature    `json:"feature" validate:"required"`
	Content          string            `json:"content"`
	PriorValue       string            `json:"prior_value"`
	Tokens           map[string]string `json:"tokens"`
	PreferredService string            `json:"preferred_service"`
	Parts            []domain.Part     `json:"parts"`
	AllowPartial     bool              `json:"allow_partial"`
}

// ImageInput is the input to GenerateImages.
type ImageInput struct {
	Prompt           string `json:"prompt" validate:"required"`
	Count            int    `json:"count" validate:"gte=0,lte=8"`
	AspectRatio      string `json:"aspect_ratio"`
	PreferredService string `json:"preferred_service"`
}

// Orchestrator is the single entry point combining composition, resolution
// and generation. A fresh settings snapshot is fetched for every call.
type Orchestrator struct {
	settings settings.Provider
	composer *prompts.Composer
	client   *Client
	logger   zerolog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(provider settings.Provider, composer *prompts.Composer, client *Client, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		settings: provider,
		composer: composer,
		client:   client,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Compose builds the prompt for in without generating. It is exposed for
// previews.
func (o *Orchestrator) Compose(ctx context.Context, in GenerateInput) (prompts.Composition, error) {
	snap, err := o.settings.Snapshot(ctx)
	if err != nil {
		return prompts.Composition{}, inkerrors.Wrap(err, "failed to load settings")
	}
	return o.composer.Compose(snap, prompts.ComposeRequest{
		Feature:      in.Feature,
		Content:      in.Content,
		PriorValue:   in.PriorValue,
		Tokens:       in.Tokens,
		AllowPartial: in.AllowPartial,
	})
}

// ComposeAndGenerate composes the prompt for a feature and generates text for
// it. For image_generation the number and aspect_ratio tokens also set the
// image count and ratio of the request.
func (o *Orchestrator) ComposeAndGenerate(ctx context.Context, in GenerateInput) (domain.GenerationResult, error) {
	image := in.Feature.Operation() == domain.OperationImageGeneration
	var (
		count int
		ratio string
	)
	if image {
		var err error
		if count, ratio, in.Tokens, err = imageTokens(in.Tokens); err != nil {
			return domain.GenerationResult{}, err
		}
	}

	composition, err := o.Compose(ctx, in)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	req := domain.GenerationRequest{
		Feature:          composition.Feature(),
		Prompt:           composition.String(),
		Parts:            in.Parts,
		PreferredService: in.PreferredService,
	}
	if image {
		req.ImageCount = count
		req.AspectRatio = ratio
		return o.client.GenerateImages(ctx, req)
	}
	return o.client.GenerateText(ctx, req)
}

// imageTokens reads the image count and aspect ratio from tokens and returns a
// copy of tokens carrying the clamped values, so the prompt and the request
// agree. Absent tokens fall back to the defaults.
func imageTokens(tokens map[string]string) (int, string, map[string]string, error) {
	count := constants.DefaultImageCount
	if v := strings.TrimSpace(tokens["number"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, "", nil, fmt.Errorf("%w: number must be a whole number, got %q", inkerrors.ErrInvalidToken, v)
		}
		count = clampImageCount(n)
	}
	ratio := strings.TrimSpace(tokens["aspect_ratio"])
	if ratio == "" {
		ratio = constants.DefaultAspectRatio
	}

	out := make(map[string]string, len(tokens)+2)
	for k, v := range tokens {
		out[k] = v
	}
	out["number"] = strconv.Itoa(count)
	out["aspect_ratio"] = ratio
	return count, ratio, out, nil
}

// GenerateImages composes the image generation template around prompt and
// returns up to count images.
func (o *Orchestrator) GenerateImages(ctx context.Context, in ImageInput) (domain.GenerationResult, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return domain.GenerationResult{}, nil
	}
	count := clampImageCount(in.Count)
	ratio := in.AspectRatio
	if ratio == "" {
		ratio = constants.DefaultAspectRatio
	}

	composition, err := o.Compose(ctx, GenerateInput{
		Feature: domain.FeatureImageGeneration,
		Content: in.Prompt,
		Tokens: map[string]string{
			"number":       strconv.Itoa(count),
			"aspect_ratio": ratio,
		},
	})
	if err != nil {
		return domain.GenerationResult{}, err
	}

	o.logger.Debug().
		Int("count", count).
		Str("aspect_ratio", ratio).
		Msg("generating images")

	return o.client.GenerateImages(ctx, domain.GenerationRequest{
		Feature:          domain.FeatureImageGeneration,
		Prompt:           composition.String(),
		PreferredService: in.PreferredService,
		ImageCount:       count,
		AspectRatio:      ratio,
	})
}

// Services returns the current provider registry listing.
func (o *Orchestrator) Services(ctx context.Context) ([]domain.ServiceDescriptor, error) {
	p := o.client.Resolver().Provider()
	if err := WaitForProvider(ctx, p, o.client.Resolver().readiness); err != nil {
		return nil, err
	}
	return p.ListAvailableServices(ctx), nil
}

// Settings returns a fresh settings snapshot.
func (o *Orchestrator) Settings(ctx context.Context) (domain.Settings, error) {
	return o.settings.Snapshot(ctx)
}
