package prompts

import (
	"fmt"
	"strings"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// clauseSeparator joins prompt sections.
const clauseSeparator = "\n\n"

// ComposeRequest holds the caller inputs for one composition.
type ComposeRequest struct {
	// Feature selects the template.
	Feature domain.Feature

	// Content is the free-form caller content, appended last.
	Content string

	// PriorValue is the previously generated value to avoid repeating.
	// Blank means none.
	PriorValue string

	// Tokens supplies values for {{name}} placeholders.
	Tokens map[string]string

	// AllowPartial permits unsubstituted placeholders in the result.
	AllowPartial bool
}

// Composition is the final prompt produced for one request.
// It is immutable once constructed.
type Composition struct {
	feature domain.Feature
	prompt  string
}

// String returns the composed prompt text.
func (c Composition) String() string {
	return c.prompt
}

// Feature returns the feature the prompt was composed for.
func (c Composition) Feature() domain.Feature {
	return c.feature
}

// IsZero reports whether c is the zero Composition.
func (c Composition) IsZero() bool {
	return c.prompt == "" && c.feature == ""
}

// Composer builds final prompts by layering, outermost first: brand voice,
// stop words, the difference clause, the feature template, and the caller content.
type Composer struct {
	store *Store
}

// NewComposer creates a Composer reading templates from store.
func NewComposer(store *Store) *Composer {
	if store == nil {
		store = NewStore()
	}
	return &Composer{store: store}
}

// Compose builds the prompt for req from the given settings snapshot.
// It is a pure function of its inputs.
func (c *Composer) Compose(settings domain.Settings, req ComposeRequest) (Composition, error) {
	cfg, err := c.store.Config(settings, req.Feature)
	if err != nil {
		return Composition{}, err
	}
	if !cfg.Enabled {
		return Composition{}, fmt.Errorf("%w: %s", inkerrors.ErrFeatureDisabled, req.Feature)
	}
	if c.store.RequiresContent(req.Feature) && strings.TrimSpace(req.Content) == "" {
		return Composition{}, fmt.Errorf("%w: %s", inkerrors.ErrEmptyContent, req.Feature)
	}

	template := substitute(baseTemplate(cfg), req.Tokens)
	if !req.AllowPartial {
		if missing := TokensIn(template); len(missing) > 0 {
			return Composition{}, fmt.Errorf("%w: %s", inkerrors.ErrMissingToken, strings.Join(missing, ", "))
		}
	}

	sections := make([]string, 0, 5)
	mods := settings.Modifiers
	if mods.BrandVoice.Active() {
		sections = append(sections, strings.TrimSpace(mods.BrandVoice.Text))
	}
	if mods.StopWords.Active() {
		sections = append(sections, StopWordsClause(mods.StopWords.Text))
	}
	if strings.TrimSpace(req.PriorValue) != "" {
		sections = append(sections, DifferenceClause(req.PriorValue))
	}
	if template != "" {
		sections = append(sections, template)
	}
	if strings.TrimSpace(req.Content) != "" {
		sections = append(sections, req.Content)
	}

	return Composition{
		feature: req.Feature,
		prompt:  strings.Join(sections, clauseSeparator),
	}, nil
}

// StopWordsClause returns the instruction clause for a stop-words list.
func StopWordsClause(words string) string {
	return "Do not use any of the following words or phrases: " + strings.TrimSpace(words)
}

// DifferenceClause returns the instruction clause that asks for output
// different from a prior value.
func DifferenceClause(prior string) string {
	return `Make sure the result is different from: "` + strings.TrimSpace(prior) + `"`
}

// baseTemplate applies the user override. An override replaces a template
// without placeholders and is appended to one with placeholders, so the
// required tokens are still substituted.
func baseTemplate(cfg domain.PromptConfig) string {
	if cfg.UserOverride == "" {
		return cfg.DefaultTemplate
	}
	if !cfg.HasPlaceholders() {
		return cfg.UserOverride
	}
	return cfg.DefaultTemplate + clauseSeparator + cfg.UserOverride
}

// substitute replaces every {{name}} occurrence, spaced braces included, with
// its value. It makes a single pass, so values are never themselves expanded.
// Placeholders without a value are left in place.
func substitute(template string, tokens map[string]string) string {
	if len(tokens) == 0 {
		return template
	}
	return tokenPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := tokenPattern.FindStringSubmatch(match)[1]
		if v, ok := tokens[name]; ok {
			return v
		}
		return match
	})
}
