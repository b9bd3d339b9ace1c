// Package constants provides centralized constant values used throughout inkwell.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory and file names used by inkwell for local state.
const (
	// InkwellHome is the hidden directory name where inkwell stores its data.
	// This directory is created in the user's home directory.
	InkwellHome = ".inkwell"

	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = "config.yaml"

	// SettingsFileName is the default name of the prompt settings file
	// used by the file-backed settings provider.
	SettingsFileName = "settings.yaml"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// Settings file locking.
const (
	// SettingsLockTimeout bounds how long a settings write waits for the
	// file lock held by another process.
	SettingsLockTimeout = 5 * time.Second

	// SettingsLockRetry is the pause between lock attempts.
	SettingsLockRetry = 25 * time.Millisecond
)

// Log file rotation settings for the CLI log.
const (
	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "inkwell.log"

	// LogMaxSizeMB is the maximum size in megabytes before the log is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated log files to keep.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum number of days to retain rotated logs.
	LogMaxAgeDays = 28

	// LogCompress controls whether rotated logs are gzip compressed.
	LogCompress = true
)

// Provider readiness wait. The AI provider registry may come up after the
// host process, so dependent operations poll for it within a hard bound.
const (
	// ProviderReadyInterval is the delay between readiness checks.
	ProviderReadyInterval = 100 * time.Millisecond

	// ProviderReadyMaxAttempts caps the number of readiness checks.
	ProviderReadyMaxAttempts = 50

	// ProviderReadyTimeout caps the total wall-clock readiness wait.
	ProviderReadyTimeout = 5 * time.Second
)

// Generation request defaults.
const (
	// DefaultGenerationTimeout bounds a single generation call to a backend.
	DefaultGenerationTimeout = 2 * time.Minute

	// DefaultImageCount is the number of images generated when none is requested.
	DefaultImageCount = 1

	// MaxImageCount is the largest number of images a single request may ask for.
	MaxImageCount = 8

	// DefaultAspectRatio is used for image generation when none is requested.
	DefaultAspectRatio = "1:1"
)

// Batch queue defaults.
const (
	// BatchPollInterval is the delay between batch status polls.
	BatchPollInterval = 1 * time.Second

	// BatchRequestTimeout bounds each count/submit/cancel request.
	BatchRequestTimeout = 30 * time.Second

	// BatchRunQueueTimeout bounds the fire-and-forget run-queue kick.
	BatchRunQueueTimeout = 10 * time.Second

	// BatchMaxResponseBytes caps a queue response body.
	BatchMaxResponseBytes = 1 << 20

	// DefaultNonceHeader is the header carrying the caller-supplied queue nonce.
	DefaultNonceHeader = "X-WP-Nonce"

	// UnknownFailureMessage is reported for failed batch items without a message.
	UnknownFailureMessage = "Unknown"
)

// HTTP server defaults.
const (
	// DefaultServerAddr is the listen address for `inkwell serve`.
	DefaultServerAddr = ":8080"

	// DefaultRateLimitRPS is the per-client request rate for the HTTP API.
	DefaultRateLimitRPS = 5.0

	// DefaultRateLimitBurst is the per-client burst for the HTTP API.
	DefaultRateLimitBurst = 10

	// DefaultShutdownTimeout bounds graceful server shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)
