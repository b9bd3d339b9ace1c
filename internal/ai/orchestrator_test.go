package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/prompts"
	"github.com/mrz1836/inkwell/internal/settings"
)

func newTestOrchestrator(t *testing.T, store settings.Provider, services ...Service) *Orchestrator {
	t.Helper()
	return NewOrchestrator(store, prompts.NewComposer(nil), newTestClient(t, services...), zerolog.Nop())
}

func TestOrchestrator_ComposeAndGenerate(t *testing.T) {
	t.Run("post title end to end", func(t *testing.T) {
		backend := &MockBackend{GenerateFunc: func(_ context.Context, call *Call) (*Response, error) {
			return &Response{Parts: []ResponsePart{{Text: "Launch Day Is Here"}}}, nil
		}}
		o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}), textService("a", backend))

		res, err := o.ComposeAndGenerate(context.Background(), GenerateInput{
			Feature:    domain.FeaturePostTitle,
			Content:    "Our new product launches today.",
			PriorValue: "Big Launch",
		})
		require.NoError(t, err)
		assert.Equal(t, "Launch Day Is Here", res.Text)

		require.Len(t, backend.Calls, 1)
		prompt := backend.Calls[0].Prompt
		assert.True(t, strings.HasSuffix(prompt, "Our new product launches today."))
		assert.Contains(t, prompt, `different from: "Big Launch"`)
		assert.NotContains(t, prompt, "{{")
	})

	t.Run("settings are read per request", func(t *testing.T) {
		backend := &MockBackend{}
		store := settings.NewStaticStore(domain.Settings{})
		o := newTestOrchestrator(t, store, textService("a", backend))
		in := GenerateInput{Feature: domain.FeaturePostExcerpt, Content: "Body."}

		_, err := o.ComposeAndGenerate(context.Background(), in)
		require.NoError(t, err)

		require.NoError(t, store.SetModifiers(context.Background(), domain.GlobalModifiers{
			BrandVoice: domain.Modifier{Enabled: true, Text: "Sound like a pirate."},
		}))
		_, err = o.ComposeAndGenerate(context.Background(), in)
		require.NoError(t, err)

		require.Len(t, backend.Calls, 2)
		assert.NotContains(t, backend.Calls[0].Prompt, "pirate")
		assert.True(t, strings.HasPrefix(backend.Calls[1].Prompt, "Sound like a pirate."))
	})

	t.Run("composition errors stop before the backend", func(t *testing.T) {
		backend := &MockBackend{}
		o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}), textService("a", backend))

		_, err := o.ComposeAndGenerate(context.Background(), GenerateInput{Feature: domain.FeaturePostTags, Content: "Body."})
		require.ErrorIs(t, err, inkerrors.ErrMissingToken)

		_, err = o.ComposeAndGenerate(context.Background(), GenerateInput{Feature: domain.FeaturePostTitle})
		require.ErrorIs(t, err, inkerrors.ErrEmptyContent)
		assert.Equal(t, 0, backend.CallCount())
	})

	t.Run("disabled feature", func(t *testing.T) {
		off := false
		store := settings.NewStaticStore(domain.Settings{Features: map[domain.Feature]domain.FeatureSettings{
			domain.FeatureSEOTitle: {Enabled: &off},
		}})
		o := newTestOrchestrator(t, store, textService("a", &MockBackend{}))

		_, err := o.ComposeAndGenerate(context.Background(), GenerateInput{Feature: domain.FeatureSEOTitle, Content: "x"})
		require.ErrorIs(t, err, inkerrors.ErrFeatureDisabled)
	})
}

func TestOrchestrator_GenerateImages(t *testing.T) {
	backend := &MockBackend{GenerateFunc: func(_ context.Context, call *Call) (*Response, error) {
		parts := make([]ResponsePart, 0, 5)
		for i := 0; i < 5; i++ {
			parts = append(parts, ResponsePart{MimeType: "image/png", Data: []byte{byte(i)}})
		}
		return &Response{Parts: parts}, nil
	}}
	o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}), imageService("img", backend))

	res, err := o.GenerateImages(context.Background(), ImageInput{Prompt: "a lighthouse at dusk", Count: 3, AspectRatio: "4:3"})
	require.NoError(t, err)
	assert.Len(t, res.Images, 3)

	require.Len(t, backend.Calls, 1)
	prompt := backend.Calls[0].Prompt
	assert.Contains(t, prompt, "Generate 3 image(s)")
	assert.Contains(t, prompt, "4:3")
	assert.True(t, strings.HasSuffix(prompt, "a lighthouse at dusk"))

	res, err = o.GenerateImages(context.Background(), ImageInput{Prompt: " "})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, 1, backend.CallCount())
}

func TestOrchestrator_ComposeAndGenerateImageFeature(t *testing.T) {
	newBackend := func() *MockBackend {
		return &MockBackend{GenerateFunc: func(_ context.Context, call *Call) (*Response, error) {
			parts := make([]ResponsePart, 0, 6)
			for i := 0; i < 6; i++ {
				parts = append(parts, ResponsePart{MimeType: "image/png", Data: []byte{byte(i)}})
			}
			return &Response{Parts: parts}, nil
		}}
	}

	t.Run("tokens set count and ratio", func(t *testing.T) {
		backend := newBackend()
		o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}), imageService("img", backend))

		res, err := o.ComposeAndGenerate(context.Background(), GenerateInput{
			Feature: domain.FeatureImageGeneration,
			Content: "a harbor at dawn",
			Tokens:  map[string]string{"number": "4", "aspect_ratio": "16:9"},
		})
		require.NoError(t, err)
		assert.Len(t, res.Images, 4)

		require.Len(t, backend.Calls, 1)
		call := backend.Calls[0]
		assert.Equal(t, 4, call.ImageCount)
		assert.Equal(t, "16:9", call.AspectRatio)
		assert.Contains(t, call.Prompt, "Generate 4 image(s) with an aspect ratio of 16:9")
	})

	t.Run("count is clamped in prompt and request alike", func(t *testing.T) {
		backend := newBackend()
		o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}), imageService("img", backend))

		_, err := o.ComposeAndGenerate(context.Background(), GenerateInput{
			Feature: domain.FeatureImageGeneration,
			Content: "a harbor at dawn",
			Tokens:  map[string]string{"number": "40"},
		})
		require.NoError(t, err)

		require.Len(t, backend.Calls, 1)
		call := backend.Calls[0]
		assert.Equal(t, 8, call.ImageCount)
		assert.Equal(t, "1:1", call.AspectRatio)
		assert.Contains(t, call.Prompt, "Generate 8 image(s) with an aspect ratio of 1:1")
	})

	t.Run("non-numeric count is rejected", func(t *testing.T) {
		backend := newBackend()
		o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}), imageService("img", backend))

		_, err := o.ComposeAndGenerate(context.Background(), GenerateInput{
			Feature: domain.FeatureImageGeneration,
			Content: "a harbor at dawn",
			Tokens:  map[string]string{"number": "four"},
		})
		require.ErrorIs(t, err, inkerrors.ErrInvalidToken)
		require.ErrorIs(t, err, inkerrors.ErrComposition)
		assert.Zero(t, backend.CallCount())
	})
}

func TestOrchestrator_Services(t *testing.T) {
	o := newTestOrchestrator(t, settings.NewStaticStore(domain.Settings{}),
		textService("a", &MockBackend{}), imageService("b", &MockBackend{Unavailable: true}))

	list, err := o.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Slug)
	assert.False(t, list[1].Available)
}
