package tui

import (
	"context"
	"io"

	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Output provides methods for structured output to a terminal or pipe.
type Output interface {
	// Success prints a success message.
	Success(msg string)
	// Error prints an error message with its suggested action, if any.
	Error(err error)
	// Warning prints a warning message.
	Warning(msg string)
	// Info prints an informational message.
	Info(msg string)
	// Table prints tabular data.
	Table(headers []string, rows [][]string)
	// JSON outputs a value as JSON.
	JSON(v any) error
	// Spinner starts a progress indicator.
	Spinner(ctx context.Context, msg string) Spinner
}

// ValidateFormat checks an --output value.
func ValidateFormat(format string) error {
	switch format {
	case "", FormatText, FormatJSON:
		return nil
	}
	return inkerrors.ErrInvalidOutputFormat
}

// NewOutput creates the appropriate output based on format.
func NewOutput(w io.Writer, format string) Output {
	if format == FormatJSON {
		return NewJSONOutput(w)
	}
	return NewTTYOutput(w)
}
