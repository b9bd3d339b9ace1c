package config

import (
	"strings"

	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - readiness interval, timeout and request timeout must be positive; attempts at least 1
//   - service slugs must be unique and non-empty with a known kind, a model,
//     and known capabilities; image generation needs an image model on a gemini service
//   - batch intervals and timeouts must be positive
//   - settings source must be file, redis or static; redis needs an address
//   - server address must be set, rate limits positive
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateProviderConfig(&cfg.Provider); err != nil {
		return err
	}
	if err := validateServices(cfg.Services); err != nil {
		return err
	}
	if err := validateBatchConfig(&cfg.Batch); err != nil {
		return err
	}
	if err := validateSettingsConfig(&cfg.Settings); err != nil {
		return err
	}
	return validateServerConfig(&cfg.Server)
}

func validateProviderConfig(cfg *ProviderConfig) error {
	if cfg.ReadyInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidProvider,
			"provider.ready_interval must be positive, got %s", cfg.ReadyInterval)
	}
	if cfg.ReadyMaxAttempts < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidProvider,
			"provider.ready_max_attempts must be at least 1, got %d", cfg.ReadyMaxAttempts)
	}
	if cfg.ReadyTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidProvider,
			"provider.ready_timeout must be positive, got %s", cfg.ReadyTimeout)
	}
	if cfg.RequestTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidProvider,
			"provider.request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return nil
}

func validateServices(services []ServiceConfig) error {
	seen := make(map[string]bool, len(services))
	for i, svc := range services {
		slug := strings.TrimSpace(svc.Slug)
		if slug == "" {
			return errors.Wrapf(errors.ErrConfigInvalidService, "services[%d].slug is required", i)
		}
		if seen[slug] {
			return errors.Wrapf(errors.ErrConfigInvalidService, "duplicate service slug %q", slug)
		}
		seen[slug] = true

		switch svc.Kind {
		case KindGemini, KindOpenAI, KindAnthropic, KindOllama:
		default:
			return errors.Wrapf(errors.ErrConfigInvalidService,
				"service %q has unknown kind %q", slug, svc.Kind)
		}

		caps, err := svc.CapabilitySet()
		if err != nil {
			return errors.Wrapf(errors.ErrConfigInvalidService, "service %q: %s", slug, err.Error())
		}
		if caps.IsEmpty() {
			return errors.Wrapf(errors.ErrConfigInvalidService, "service %q declares no capabilities", slug)
		}
		if svc.Model == "" && (caps.Has(domain.CapabilityTextGeneration) || caps.Has(domain.CapabilityMultimodalInput)) {
			return errors.Wrapf(errors.ErrConfigInvalidService, "service %q needs a model", slug)
		}
		if caps.Has(domain.CapabilityImageGeneration) {
			if svc.Kind != KindGemini {
				return errors.Wrapf(errors.ErrConfigInvalidService,
					"service %q: image generation is only supported by gemini services", slug)
			}
			if svc.ImageModel == "" {
				return errors.Wrapf(errors.ErrConfigInvalidService,
					"service %q declares image_generation but has no image_model", slug)
			}
		}
	}
	return nil
}

func validateBatchConfig(cfg *BatchConfig) error {
	if cfg.PollInterval <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBatch,
			"batch.poll_interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.RequestTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBatch,
			"batch.request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.RunQueueTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBatch,
			"batch.run_queue_timeout must be positive, got %s", cfg.RunQueueTimeout)
	}
	return nil
}

func validateSettingsConfig(cfg *SettingsConfig) error {
	switch cfg.Source {
	case SettingsSourceFile, SettingsSourceStatic:
		return nil
	case SettingsSourceRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return errors.Wrap(errors.ErrConfigInvalidSettings, "settings.redis.addr is required for the redis source")
		}
		return nil
	default:
		return errors.Wrapf(errors.ErrConfigInvalidSettings,
			"settings.source must be file, redis or static, got %q", cfg.Source)
	}
}

func validateServerConfig(cfg *ServerConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.Wrap(errors.ErrConfigInvalidServer, "server.addr is required")
	}
	if cfg.RateLimitRPS <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.rate_limit_rps must be positive, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst < 1 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.rate_limit_burst must be at least 1, got %d", cfg.RateLimitBurst)
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidServer,
			"server.shutdown_timeout must be positive, got %s", cfg.ShutdownTimeout)
	}
	return nil
}
