package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/batch"
	"github.com/mrz1836/inkwell/internal/config"
	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/prompts"
	"github.com/mrz1836/inkwell/internal/provider/gemini"
	"github.com/mrz1836/inkwell/internal/provider/langchain"
	"github.com/mrz1836/inkwell/internal/settings"
)

// App holds the wired components shared by the subcommands.
type App struct {
	Config       *config.Config
	Registry     *ai.ServiceRegistry
	Settings     settings.Store
	Orchestrator *ai.Orchestrator

	// Tracker is nil when no batch queue is configured.
	Tracker *batch.Tracker

	logger  zerolog.Logger
	closers []func() error
}

// loadConfig reads the configuration. An explicit --config path replaces the
// project layer and must exist; the global config still applies beneath it.
func loadConfig(ctx context.Context, flags *GlobalFlags) (*config.Config, error) {
	if flags.ConfigPath == "" {
		return config.Load(ctx)
	}

	if _, err := os.Stat(flags.ConfigPath); err != nil {
		return nil, errors.NewExitCode2Error(fmt.Errorf("%w: %s", errors.ErrConfigNotFound, flags.ConfigPath))
	}

	globalPath, err := config.GlobalConfigPath()
	if err != nil {
		globalPath = ""
	}
	return config.LoadFromPaths(ctx, flags.ConfigPath, globalPath)
}

// newApp loads configuration and wires the registry, settings store,
// orchestrator and, when configured, the batch tracker.
func newApp(ctx context.Context, flags *GlobalFlags) (*App, error) {
	cfg, err := loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, GetLogger())
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{Config: cfg, logger: logger}

	registry, err := buildRegistry(cfg.Services, logger)
	if err != nil {
		return nil, err
	}
	app.Registry = registry

	store, closeStore, err := buildSettingsStore(ctx, cfg.Settings)
	if err != nil {
		return nil, err
	}
	app.Settings = store
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	client := ai.NewClient(registry, ai.ClientConfig{
		Timeout: cfg.Provider.RequestTimeout,
		Readiness: ai.ReadinessOptions{
			Interval:    cfg.Provider.ReadyInterval,
			MaxAttempts: cfg.Provider.ReadyMaxAttempts,
			Timeout:     cfg.Provider.ReadyTimeout,
		},
	}, logger)
	app.Orchestrator = ai.NewOrchestrator(store, prompts.NewComposer(nil), client, logger)

	if cfg.Batch.Enabled() {
		queue, err := batch.NewHTTPQueueClient(batch.HTTPClientOptions{
			BaseURL:         cfg.Batch.BaseURL,
			Nonce:           cfg.Batch.Nonce(),
			NonceHeader:     cfg.Batch.NonceHeader,
			RequestTimeout:  cfg.Batch.RequestTimeout,
			RunQueueTimeout: cfg.Batch.RunQueueTimeout,
			Logger:          logger,
		})
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Tracker = batch.NewTracker(queue, batch.TrackerOptions{PollInterval: cfg.Batch.PollInterval}, logger)
	}

	return app, nil
}

// buildRegistry registers every configured service in config order and marks
// the registry loaded.
func buildRegistry(services []config.ServiceConfig, logger zerolog.Logger) (*ai.ServiceRegistry, error) {
	registry := ai.NewServiceRegistry()

	for _, sc := range services {
		caps, err := sc.CapabilitySet()
		if err != nil {
			return nil, errors.Wrapf(err, "service %s", sc.Slug)
		}
		models, err := sc.Models()
		if err != nil {
			return nil, errors.Wrapf(err, "service %s", sc.Slug)
		}
		backend, err := newBackend(sc, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "service %s", sc.Slug)
		}

		registry.Register(ai.Service{
			Slug:         sc.Slug,
			DisplayName:  sc.Name(),
			Capabilities: caps,
			Models:       models,
			Backend:      backend,
		})
		logger.Debug().
			Str("service", sc.Slug).
			Str("kind", sc.Kind).
			Strs("capabilities", caps.Strings()).
			Msg("registered AI service")
	}

	registry.MarkLoaded()
	return registry, nil
}

func newBackend(sc config.ServiceConfig, logger zerolog.Logger) (ai.Backend, error) {
	if sc.Kind == config.KindGemini {
		return gemini.New(gemini.Options{
			APIKey:  sc.APIKey(),
			BaseURL: sc.BaseURL,
			Logger:  logger,
		}), nil
	}

	kind := langchain.Kind(sc.Kind)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unsupported kind %q", errors.ErrConfigInvalidService, sc.Kind)
	}
	backend, err := langchain.New(langchain.Options{
		Kind:    kind,
		APIKey:  sc.APIKey(),
		BaseURL: sc.BaseURL,
		Model:   sc.Model,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func buildSettingsStore(ctx context.Context, cfg config.SettingsConfig) (settings.Store, func() error, error) {
	switch cfg.Source {
	case config.SettingsSourceRedis:
		store, err := settings.NewRedisStore(ctx, settings.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.SettingsSourceStatic:
		return settings.NewStaticStore(domain.Settings{}), nil, nil
	default:
		path, err := cfg.SettingsPath()
		if err != nil {
			return nil, nil, err
		}
		return settings.NewFileStore(path), nil, nil
	}
}

// RequireTracker returns the batch tracker or ErrBatchNotConfigured.
func (a *App) RequireTracker() (*batch.Tracker, error) {
	if a.Tracker == nil {
		return nil, errors.ErrBatchNotConfigured
	}
	return a.Tracker, nil
}

// Close stops the tracker and releases the settings store.
func (a *App) Close() error {
	if a.Tracker != nil {
		a.Tracker.Close()
	}
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
