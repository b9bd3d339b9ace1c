package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
)

func TestDefaultConfig_ReturnsValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, constants.ProviderReadyInterval, cfg.Provider.ReadyInterval)
	assert.Equal(t, constants.ProviderReadyMaxAttempts, cfg.Provider.ReadyMaxAttempts)
	assert.Equal(t, constants.ProviderReadyTimeout, cfg.Provider.ReadyTimeout)
	assert.Equal(t, constants.BatchPollInterval, cfg.Batch.PollInterval)
	assert.Equal(t, SettingsSourceFile, cfg.Settings.Source)
	assert.False(t, cfg.Batch.Enabled(), "batch is disabled until a base URL is configured")

	slugs := make([]string, 0, len(cfg.Services))
	for _, s := range cfg.Services {
		slugs = append(slugs, s.Slug)
	}
	assert.Equal(t, []string{"gemini", "openai", "anthropic"}, slugs)
}

func TestServiceConfig_Models(t *testing.T) {
	t.Run("gemini splits text and image models", func(t *testing.T) {
		models, err := DefaultServices()[0].Models()
		require.NoError(t, err)
		require.Len(t, models, 2)

		assert.Equal(t, "gemini-2.5-flash", models[0].ID)
		assert.True(t, models[0].Capabilities.Has(domain.CapabilityTextGeneration))
		assert.True(t, models[0].Capabilities.Has(domain.CapabilityMultimodalInput))
		assert.False(t, models[0].Capabilities.Has(domain.CapabilityImageGeneration))

		assert.Equal(t, "gemini-2.5-flash-image", models[1].ID)
		assert.True(t, models[1].Capabilities.Has(domain.CapabilityImageGeneration))
	})

	t.Run("text only service", func(t *testing.T) {
		svc := ServiceConfig{Slug: "local", Kind: KindOllama, Model: "llama3", Capabilities: []string{"text"}}
		models, err := svc.Models()
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, domain.NewCapabilitySet(domain.CapabilityTextGeneration), models[0].Capabilities)
	})

	t.Run("unknown capability", func(t *testing.T) {
		svc := ServiceConfig{Slug: "x", Capabilities: []string{"telepathy"}}
		_, err := svc.Models()
		require.Error(t, err)
	})
}

func TestServiceConfig_NameAndKey(t *testing.T) {
	svc := ServiceConfig{Slug: "openai", APIKeyEnvVar: "INKWELL_TEST_OPENAI_KEY"}
	assert.Equal(t, "openai", svc.Name())

	svc.DisplayName = "OpenAI"
	assert.Equal(t, "OpenAI", svc.Name())

	t.Setenv("INKWELL_TEST_OPENAI_KEY", "  sk-test  ")
	assert.Equal(t, "sk-test", svc.APIKey())

	assert.Empty(t, ServiceConfig{}.APIKey())
}

func TestBatchConfig_Nonce(t *testing.T) {
	b := BatchConfig{NonceEnvVar: "INKWELL_TEST_NONCE"}
	assert.Empty(t, b.Nonce())

	t.Setenv("INKWELL_TEST_NONCE", "abc123")
	assert.Equal(t, "abc123", b.Nonce())
}

func TestConfig_Redacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Redis.Password = "hunter2"

	out := cfg.Redacted()
	assert.Equal(t, "********", out.Settings.Redis.Password)
	assert.Equal(t, "hunter2", cfg.Settings.Redis.Password, "original is untouched")

	data, err := yaml.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.BaseURL = "https://example.com/wp-json/inkwell/v1/batch"

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg.Batch.BaseURL, decoded.Batch.BaseURL)
	assert.Equal(t, cfg.Services, decoded.Services)
	assert.Equal(t, cfg.Server.Addr, decoded.Server.Addr)
}
