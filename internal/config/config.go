// Package config provides configuration management for inkwell with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (INKWELL_* prefix)
//  3. Project config (.inkwell/config.yaml)
//  4. Global config (~/.inkwell/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
// The services list is replaced as a whole, never merged item by item.
//
// IMPORTANT: This package may import internal/constants, internal/errors and
// internal/domain, but MUST NOT import any other internal packages.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/mrz1836/inkwell/internal/domain"
)

// Service kinds understood by the CLI wiring.
const (
	KindGemini    = "gemini"
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindOllama    = "ollama"
)

// Settings sources.
const (
	SettingsSourceFile   = "file"
	SettingsSourceRedis  = "redis"
	SettingsSourceStatic = "static"
)

// Config is the root configuration structure for inkwell.
type Config struct {
	// Provider controls the provider registry readiness wait and request timeouts.
	Provider ProviderConfig `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Services is the ordered list of AI services. Order is the resolver's
	// tie-break when no preferred service is available.
	Services []ServiceConfig `json:"services" yaml:"services" mapstructure:"services"`

	// Batch configures the server-side batch queue client.
	Batch BatchConfig `json:"batch" yaml:"batch" mapstructure:"batch"`

	// Settings selects where prompt settings are read from.
	Settings SettingsConfig `json:"settings" yaml:"settings" mapstructure:"settings"`

	// Server configures `inkwell serve`.
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
}

// ProviderConfig contains the provider readiness bounds and generation timeout.
type ProviderConfig struct {
	// ReadyInterval is the delay between readiness checks.
	// Default: 100ms
	ReadyInterval time.Duration `json:"ready_interval" yaml:"ready_interval" mapstructure:"ready_interval"`

	// ReadyMaxAttempts caps the number of readiness checks.
	// Default: 50
	ReadyMaxAttempts int `json:"ready_max_attempts" yaml:"ready_max_attempts" mapstructure:"ready_max_attempts"`

	// ReadyTimeout caps the total readiness wait.
	// Default: 5s
	ReadyTimeout time.Duration `json:"ready_timeout" yaml:"ready_timeout" mapstructure:"ready_timeout"`

	// RequestTimeout bounds one generation call.
	// Default: 2m
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// ServiceConfig describes one AI service.
type ServiceConfig struct {
	// Slug is the stable identifier, e.g. "gemini".
	Slug string `json:"slug" yaml:"slug" mapstructure:"slug"`

	// DisplayName is shown in listings. Defaults to the slug.
	DisplayName string `json:"display_name" yaml:"display_name" mapstructure:"display_name"`

	// Kind selects the backend: gemini, openai, anthropic or ollama.
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Model is used for text and multimodal requests.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// ImageModel is used for image generation. Required when the service
	// declares the image_generation capability.
	ImageModel string `json:"image_model,omitempty" yaml:"image_model,omitempty" mapstructure:"image_model"`

	// BaseURL overrides the backend endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKeyEnvVar names the environment variable holding the API key.
	// Keys are never stored in config files.
	APIKeyEnvVar string `json:"api_key_env_var,omitempty" yaml:"api_key_env_var,omitempty" mapstructure:"api_key_env_var"`

	// Capabilities lists the capability names the service supports.
	Capabilities []string `json:"capabilities" yaml:"capabilities" mapstructure:"capabilities"`
}

// Name returns the display name, falling back to the slug.
func (s ServiceConfig) Name() string {
	if strings.TrimSpace(s.DisplayName) != "" {
		return s.DisplayName
	}
	return s.Slug
}

// APIKey reads the service API key from its environment variable.
func (s ServiceConfig) APIKey() string {
	if s.APIKeyEnvVar == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(s.APIKeyEnvVar))
}

// CapabilitySet parses the configured capability names.
func (s ServiceConfig) CapabilitySet() (domain.CapabilitySet, error) {
	return domain.ParseCapabilitySet(s.Capabilities)
}

// Models returns the service's model descriptors. The text model covers text
// and multimodal input; the image model covers image generation.
func (s ServiceConfig) Models() ([]domain.ModelDescriptor, error) {
	caps, err := s.CapabilitySet()
	if err != nil {
		return nil, err
	}

	var models []domain.ModelDescriptor
	if s.Model != "" {
		textCaps := domain.NewCapabilitySet()
		for _, c := range []domain.Capability{domain.CapabilityTextGeneration, domain.CapabilityMultimodalInput} {
			if caps.Has(c) {
				textCaps = textCaps.Add(c)
			}
		}
		if !textCaps.IsEmpty() {
			models = append(models, domain.ModelDescriptor{ID: s.Model, Capabilities: textCaps})
		}
	}
	if s.ImageModel != "" && caps.Has(domain.CapabilityImageGeneration) {
		models = append(models, domain.ModelDescriptor{
			ID:           s.ImageModel,
			Capabilities: domain.NewCapabilitySet(domain.CapabilityImageGeneration),
		})
	}
	return models, nil
}

// BatchConfig configures the batch queue client and tracker.
type BatchConfig struct {
	// BaseURL is the queue root. Empty disables batch commands.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// NonceEnvVar names the environment variable holding the queue nonce.
	NonceEnvVar string `json:"nonce_env_var" yaml:"nonce_env_var" mapstructure:"nonce_env_var"`

	// NonceHeader is the request header carrying the nonce.
	NonceHeader string `json:"nonce_header" yaml:"nonce_header" mapstructure:"nonce_header"`

	// PollInterval is the delay between polls while work is in flight.
	// Default: 1s
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// RequestTimeout bounds count, submit and cancel requests.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// RunQueueTimeout bounds the run-queue kick.
	RunQueueTimeout time.Duration `json:"run_queue_timeout" yaml:"run_queue_timeout" mapstructure:"run_queue_timeout"`
}

// Nonce reads the queue nonce from its environment variable.
func (b BatchConfig) Nonce() string {
	if b.NonceEnvVar == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(b.NonceEnvVar))
}

// Enabled reports whether a queue endpoint is configured.
func (b BatchConfig) Enabled() bool {
	return strings.TrimSpace(b.BaseURL) != ""
}

// SettingsConfig selects the prompt settings provider.
type SettingsConfig struct {
	// Source is file, redis or static.
	Source string `json:"source" yaml:"source" mapstructure:"source"`

	// Path is the YAML settings file. Empty means ~/.inkwell/settings.yaml.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`

	// Redis configures the redis source.
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis settings source.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RateLimitRPS is the sustained per-client request rate.
	RateLimitRPS float64 `json:"rate_limit_rps" yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`

	// RateLimitBurst is the per-client burst.
	RateLimitBurst int `json:"rate_limit_burst" yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Redacted returns a copy safe to print: secrets are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Services = append([]ServiceConfig(nil), c.Services...)
	if out.Settings.Redis.Password != "" {
		out.Settings.Redis.Password = "********"
	}
	return &out
}
