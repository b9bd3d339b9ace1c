// Package prompts provides the built-in prompt template store and the prompt
// composer that layers settings, modifiers, and caller content into the final
// prompt sent to a model.
package prompts

import "errors"

// Package errors for prompt management.
var (
	// ErrTemplateNotFound indicates no built-in template exists for a feature.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrInvalidDefaults indicates the embedded defaults could not be parsed.
	ErrInvalidDefaults = errors.New("invalid embedded prompt defaults")
)
