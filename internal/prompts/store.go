package prompts

import (
	"strings"

	"github.com/mrz1836/inkwell/internal/domain"
)

// Store merges built-in definitions with a persisted settings snapshot into
// the effective per-feature prompt configuration. It holds no state of its
// own; every call works from the snapshot it is given.
type Store struct{}

// NewStore creates a Store backed by the embedded defaults.
func NewStore() *Store {
	return &Store{}
}

// Config returns the effective PromptConfig for feature under settings.
func (s *Store) Config(settings domain.Settings, feature domain.Feature) (domain.PromptConfig, error) {
	if _, err := domain.ParseFeature(string(feature)); err != nil {
		return domain.PromptConfig{}, err
	}
	def, err := Lookup(feature)
	if err != nil {
		return domain.PromptConfig{}, err
	}

	persisted := settings.Feature(feature)
	tokens := make([]string, len(def.Tokens))
	copy(tokens, def.Tokens)

	return domain.PromptConfig{
		Enabled:           persisted.IsEnabled(),
		DefaultTemplate:   def.Template,
		UserOverride:      strings.TrimSpace(persisted.Override),
		PlaceholderTokens: tokens,
	}, nil
}

// RequiresContent reports whether composing feature needs caller content.
func (s *Store) RequiresContent(feature domain.Feature) bool {
	def, err := Lookup(feature)
	if err != nil {
		return false
	}
	return def.RequiresContent
}
