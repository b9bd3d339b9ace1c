package config

import (
	"github.com/mrz1836/inkwell/internal/constants"
)

// DefaultServices returns the built-in service list: Gemini first, then the
// hosted langchaingo services. Each reads its API key from the conventional
// environment variable and is unavailable until that key is set.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{
			Slug:         "gemini",
			DisplayName:  "Google Gemini",
			Kind:         KindGemini,
			Model:        "gemini-2.5-flash",
			ImageModel:   "gemini-2.5-flash-image",
			APIKeyEnvVar: "GEMINI_API_KEY",
			Capabilities: []string{"text_generation", "multimodal_input", "image_generation"},
		},
		{
			Slug:         "openai",
			DisplayName:  "OpenAI",
			Kind:         KindOpenAI,
			Model:        "gpt-4o-mini",
			APIKeyEnvVar: "OPENAI_API_KEY",
			Capabilities: []string{"text_generation", "multimodal_input"},
		},
		{
			Slug:         "anthropic",
			DisplayName:  "Anthropic",
			Kind:         KindAnthropic,
			Model:        "claude-sonnet-4-5",
			APIKeyEnvVar: "ANTHROPIC_API_KEY",
			Capabilities: []string{"text_generation", "multimodal_input"},
		},
	}
}

// DefaultConfig returns a new Config with default values.
// These are the base layer that config files, environment variables, and CLI
// flags override.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			ReadyInterval:    constants.ProviderReadyInterval,
			ReadyMaxAttempts: constants.ProviderReadyMaxAttempts,
			ReadyTimeout:     constants.ProviderReadyTimeout,
			RequestTimeout:   constants.DefaultGenerationTimeout,
		},
		Services: DefaultServices(),
		Batch: BatchConfig{
			NonceEnvVar:     "INKWELL_BATCH_NONCE",
			NonceHeader:     constants.DefaultNonceHeader,
			PollInterval:    constants.BatchPollInterval,
			RequestTimeout:  constants.BatchRequestTimeout,
			RunQueueTimeout: constants.BatchRunQueueTimeout,
		},
		Settings: SettingsConfig{
			Source: SettingsSourceFile,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "inkwell",
			},
		},
		Server: ServerConfig{
			Addr:            constants.DefaultServerAddr,
			RateLimitRPS:    constants.DefaultRateLimitRPS,
			RateLimitBurst:  constants.DefaultRateLimitBurst,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
	}
}
