package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/inkwell/internal/errors"
)

// newViperInstance creates a new Viper instance with standard inkwell configuration.
// This includes environment variable prefix (INKWELL_), key replacer, and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("INKWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (INKWELL_* prefix)
//  2. Project config (.inkwell/config.yaml)
//  3. Global config (~/.inkwell/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Int("services", len(cfg.Services)).
		Str("settings.source", cfg.Settings.Source).
		Bool("batch.enabled", cfg.Batch.Enabled()).
		Dur("batch.poll_interval", cfg.Batch.PollInterval).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

// loadGlobalConfig attempts to load the global config file (~/.inkwell/config.yaml).
// Returns nil if the file doesn't exist or home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil || !fileExists(globalConfigPath) {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// loadProjectConfig attempts to load the project config file (.inkwell/config.yaml).
// Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}

	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths.
// projectConfigPath has higher priority than globalConfigPath.
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("provider.ready_interval", d.Provider.ReadyInterval.String())
	v.SetDefault("provider.ready_max_attempts", d.Provider.ReadyMaxAttempts)
	v.SetDefault("provider.ready_timeout", d.Provider.ReadyTimeout.String())
	v.SetDefault("provider.request_timeout", d.Provider.RequestTimeout.String())

	services := make([]map[string]any, 0, len(d.Services))
	for _, s := range d.Services {
		services = append(services, map[string]any{
			"slug":            s.Slug,
			"display_name":    s.DisplayName,
			"kind":            s.Kind,
			"model":           s.Model,
			"image_model":     s.ImageModel,
			"base_url":        s.BaseURL,
			"api_key_env_var": s.APIKeyEnvVar,
			"capabilities":    s.Capabilities,
		})
	}
	v.SetDefault("services", services)

	v.SetDefault("batch.base_url", d.Batch.BaseURL)
	v.SetDefault("batch.nonce_env_var", d.Batch.NonceEnvVar)
	v.SetDefault("batch.nonce_header", d.Batch.NonceHeader)
	v.SetDefault("batch.poll_interval", d.Batch.PollInterval.String())
	v.SetDefault("batch.request_timeout", d.Batch.RequestTimeout.String())
	v.SetDefault("batch.run_queue_timeout", d.Batch.RunQueueTimeout.String())

	v.SetDefault("settings.source", d.Settings.Source)
	v.SetDefault("settings.path", d.Settings.Path)
	v.SetDefault("settings.redis.addr", d.Settings.Redis.Addr)
	v.SetDefault("settings.redis.password", "")
	v.SetDefault("settings.redis.db", d.Settings.Redis.DB)
	v.SetDefault("settings.redis.prefix", d.Settings.Redis.Prefix)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout.String())
}

// applyOverrides merges non-zero override values into the config.
// Services are replaced as a whole when overrides carry any.
func applyOverrides(cfg, overrides *Config) {
	if len(overrides.Services) > 0 {
		cfg.Services = overrides.Services
	}

	if overrides.Provider.RequestTimeout != 0 {
		cfg.Provider.RequestTimeout = overrides.Provider.RequestTimeout
	}

	if overrides.Batch.BaseURL != "" {
		cfg.Batch.BaseURL = overrides.Batch.BaseURL
	}
	if overrides.Batch.PollInterval != 0 {
		cfg.Batch.PollInterval = overrides.Batch.PollInterval
	}

	if overrides.Settings.Source != "" {
		cfg.Settings.Source = overrides.Settings.Source
	}
	if overrides.Settings.Path != "" {
		cfg.Settings.Path = overrides.Settings.Path
	}
	if overrides.Settings.Redis.Addr != "" {
		cfg.Settings.Redis.Addr = overrides.Settings.Redis.Addr
	}

	if overrides.Server.Addr != "" {
		cfg.Server.Addr = overrides.Server.Addr
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// This configures mapstructure to handle time.Duration conversion from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}
