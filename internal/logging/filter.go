// Package logging provides zerolog helpers that keep credentials out of logs.
//
// inkwell handles three kinds of secret: provider API keys, batch queue
// nonces, and settings store passwords. FilteringWriter wraps every sink that
// reaches disk; SafeValue and the hook cover call sites and console output.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // compiled once
	// Anthropic API keys.
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{8,}`),

	// OpenAI API keys, including project keys (sk-proj-...).
	regexp.MustCompile(`sk-(?:proj-)?[a-zA-Z0-9_-]{20,}`),

	// Google API keys.
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{30,}`),

	// API key query parameters, e.g. ?key=... on Google endpoints.
	regexp.MustCompile(`([?&](?:key|api_key|apikey)=)[^&\s"']+`),

	// Key and nonce headers or assignments.
	regexp.MustCompile(`(?i)(x-goog-api-key|x-api-key|x-wp-nonce|api[_-]?key|nonce)(["']?\s*[:=]\s*["']?)[a-zA-Z0-9_-]{8,}`),

	// Bearer tokens.
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/-]{16,}=*`),

	// Credentials embedded in URLs, e.g. redis://:pass@host:6379.
	regexp.MustCompile(`(://[^:/@\s]*:)[^@\s]+@`),

	// Password assignments.
	regexp.MustCompile(`(?i)(password|passwd|secret)(["']?\s*[:=]\s*["']?)[^\s"',}]{4,}`),
}

// replacements mirror sensitivePatterns: a pattern with capture groups keeps
// its prefix groups and only the secret is replaced.
var replacements = []string{ //nolint:gochecknoglobals // paired with sensitivePatterns
	RedactedValue,
	RedactedValue,
	RedactedValue,
	"${1}" + RedactedValue,
	"${1}${2}" + RedactedValue,
	RedactedValue,
	"${1}" + RedactedValue + "@",
	"${1}${2}" + RedactedValue,
}

// sensitiveFieldNames are field names whose values are always redacted.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // lookup table
	"api_key",
	"apikey",
	"api-key",
	"x-goog-api-key",
	"nonce",
	"password",
	"passwd",
	"secret",
	"token",
	"authorization",
	"bearer",
	"credential",
}

// SensitiveDataHook is a zerolog hook that flags events whose message contains
// sensitive data. Zerolog cannot rewrite a message from a hook, so the flag is
// a fallback; FilteringWriter does the actual redaction.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a new SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements the zerolog.Hook interface.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any sensitive pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every sensitive match in value with [REDACTED].
func FilterSensitiveValue(value string) string {
	result := value
	for i, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, replacements[i])
	}
	return result
}

// IsSensitiveFieldName reports whether a field name indicates sensitive data.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFieldNames {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// SafeValue returns value filtered for logging under fieldName.
// Sensitive field names are redacted wholesale.
//
// Usage:
//
//	log.Debug().Str("base_url", logging.SafeValue("base_url", url)).Msg("queue configured")
func SafeValue(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter wraps an io.Writer and redacts sensitive data from output.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a new FilteringWriter that wraps w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success so callers do not
// see a short write when redaction changes the length.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err := fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
