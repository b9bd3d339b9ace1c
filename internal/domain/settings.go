package domain

import "strings"

// PromptConfig is the effective prompt configuration for one feature,
// merged from the embedded defaults and the persisted settings snapshot.
type PromptConfig struct {
	// Enabled reports whether the feature may be used.
	Enabled bool `json:"enabled"`

	// DefaultTemplate is the built-in template text.
	DefaultTemplate string `json:"default_template"`

	// UserOverride is the persisted override text; empty means none.
	UserOverride string `json:"user_override,omitempty"`

	// PlaceholderTokens lists the token names the default template declares.
	PlaceholderTokens []string `json:"placeholder_tokens,omitempty"`
}

// HasPlaceholders reports whether the default template declares tokens.
func (c PromptConfig) HasPlaceholders() bool {
	return len(c.PlaceholderTokens) > 0
}

// Modifier is one togglable global prompt modifier.
type Modifier struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	Text    string `json:"text" mapstructure:"text" yaml:"text"`
}

// Active reports whether the modifier applies: enabled with non-blank text.
func (m Modifier) Active() bool {
	return m.Enabled && strings.TrimSpace(m.Text) != ""
}

// GlobalModifiers apply to every composed prompt when active.
type GlobalModifiers struct {
	BrandVoice Modifier `json:"brand_voice" mapstructure:"brand_voice" yaml:"brand_voice"`
	StopWords  Modifier `json:"stop_words" mapstructure:"stop_words" yaml:"stop_words"`
}

// FeatureSettings is the persisted per-feature configuration.
type FeatureSettings struct {
	// Enabled toggles the feature; nil means the default (enabled).
	Enabled *bool `json:"enabled,omitempty" mapstructure:"enabled" yaml:"enabled,omitempty"`

	// Override replaces or extends the default template.
	Override string `json:"override,omitempty" mapstructure:"override" yaml:"override,omitempty"`
}

// IsEnabled reports the effective enabled state.
func (s FeatureSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Settings is a request-scoped, read-only snapshot of persisted configuration.
// A fresh snapshot is fetched for every request.
type Settings struct {
	Features  map[Feature]FeatureSettings `json:"features,omitempty"`
	Modifiers GlobalModifiers             `json:"modifiers"`
}

// Feature returns the persisted settings for f, or the zero value.
func (s Settings) Feature(f Feature) FeatureSettings {
	if s.Features == nil {
		return FeatureSettings{}
	}
	return s.Features[f]
}
