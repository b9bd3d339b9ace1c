// Package errors provides centralized error handling for inkwell.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// Leaf errors wrap a category sentinel, so callers can check either the precise
// condition (ErrMissingToken) or its family (ErrComposition).
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	// ErrComposition indicates a prompt could not be composed from its inputs.
	// Composition errors are caller errors and are never retried.
	ErrComposition = errors.New("prompt composition failed")

	// ErrConfiguration indicates an invalid or unknown configuration value.
	ErrConfiguration = errors.New("configuration error")

	// ErrResolution indicates no AI service could be selected for a request.
	ErrResolution = errors.New("service resolution failed")
)

// Composition errors.
var (
	// ErrMissingToken indicates a template placeholder was left unsubstituted.
	ErrMissingToken = fmt.Errorf("%w: missing placeholder token", ErrComposition)

	// ErrEmptyContent indicates the feature requires caller content but none was given.
	ErrEmptyContent = fmt.Errorf("%w: content is empty", ErrComposition)

	// ErrInvalidToken indicates a token value the operation cannot use, such as
	// a non-numeric image count.
	ErrInvalidToken = fmt.Errorf("%w: invalid token value", ErrComposition)
)

// Configuration errors.
var (
	// ErrUnknownOperation indicates an operation kind with no capability mapping.
	ErrUnknownOperation = fmt.Errorf("%w: unknown operation", ErrConfiguration)

	// ErrUnknownFeature indicates a feature key outside the supported catalog.
	ErrUnknownFeature = fmt.Errorf("%w: unknown feature", ErrConfiguration)

	// ErrFeatureDisabled indicates the feature has been switched off in settings.
	ErrFeatureDisabled = fmt.Errorf("%w: feature disabled", ErrConfiguration)

	// ErrUnknownJobKind indicates a batch job kind outside the supported set.
	ErrUnknownJobKind = fmt.Errorf("%w: unknown job kind", ErrConfiguration)

	// ErrUnknownCapability indicates a provider capability string that does not
	// map to a known capability.
	ErrUnknownCapability = fmt.Errorf("%w: unknown capability", ErrConfiguration)

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = fmt.Errorf("%w: config is nil", ErrConfiguration)

	// ErrConfigInvalidProvider indicates an invalid provider configuration value.
	ErrConfigInvalidProvider = fmt.Errorf("%w: invalid provider configuration", ErrConfiguration)

	// ErrConfigInvalidService indicates an invalid service definition.
	ErrConfigInvalidService = fmt.Errorf("%w: invalid service configuration", ErrConfiguration)

	// ErrConfigInvalidBatch indicates an invalid batch configuration value.
	ErrConfigInvalidBatch = fmt.Errorf("%w: invalid batch configuration", ErrConfiguration)

	// ErrConfigInvalidSettings indicates an invalid settings source configuration.
	ErrConfigInvalidSettings = fmt.Errorf("%w: invalid settings configuration", ErrConfiguration)

	// ErrConfigInvalidServer indicates an invalid HTTP server configuration value.
	ErrConfigInvalidServer = fmt.Errorf("%w: invalid server configuration", ErrConfiguration)

	// ErrSettingsLocked indicates another process held the settings file lock
	// for longer than the lock timeout.
	ErrSettingsLocked = fmt.Errorf("%w: settings file is locked", ErrConfiguration)
)

// Resolution and generation errors.
var (
	// ErrNoServiceAvailable indicates no available service supports the
	// required capabilities. Recoverable: the user may configure a service and retry.
	ErrNoServiceAvailable = fmt.Errorf("%w: no service available", ErrResolution)

	// ErrServiceNotFound indicates a service slug is not registered.
	ErrServiceNotFound = errors.New("service not found")

	// ErrBackendUnavailable indicates the AI provider registry did not become
	// ready within the bounded wait.
	ErrBackendUnavailable = errors.New("AI backend unavailable")

	// ErrInvalidModel indicates the selected service has no model that supports
	// the requested capabilities.
	ErrInvalidModel = errors.New("invalid model")

	// ErrProviderError indicates the backend returned an error.
	// The concrete error is a *ProviderError carrying the backend message.
	ErrProviderError = errors.New("provider error")

	// ErrEmptyResponse indicates the backend returned no usable content.
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrProviderError)
)

// Batch errors.
var (
	// ErrBatchTransport indicates a batch queue request (count, submit, run-queue,
	// or cancel) failed or returned a malformed payload.
	ErrBatchTransport = errors.New("batch transport error")

	// ErrBatchNotConfigured indicates the batch queue endpoint is not configured.
	ErrBatchNotConfigured = errors.New("batch queue not configured")
)

// CLI and general errors.
var (
	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrOperationCanceled indicates the user canceled an operation.
	ErrOperationCanceled = errors.New("operation canceled by user")

	// ErrInvalidArgument indicates that an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProviderError carries an error message returned by an AI backend.
// The message is passed through unmodified so users can diagnose provider-side
// issues such as quota or invalid keys.
type ProviderError struct {
	// Service is the slug of the service that returned the error.
	Service string
	// Message is the backend-supplied message.
	Message string
}

// NewProviderError creates a ProviderError for the given service.
func NewProviderError(service, message string) *ProviderError {
	return &ProviderError{Service: service, Message: message}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Service == "" {
		return e.Message
	}
	return e.Service + ": " + e.Message
}

// Is reports whether target is ErrProviderError.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderError
}

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}

// IsRecoverable reports whether err is a user-facing recoverable condition:
// the caller should present it and let the user retry the triggering action.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrResolution) ||
		errors.Is(err, ErrBackendUnavailable) ||
		errors.Is(err, ErrProviderError) ||
		errors.Is(err, ErrBatchTransport)
}
