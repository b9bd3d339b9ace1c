package prompts

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/inkwell/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// tokenPattern matches a {{name}} placeholder.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`) //nolint:gochecknoglobals // compiled once

// Definition is the built-in definition of one feature's prompt.
type Definition struct {
	// Feature is the feature this definition belongs to.
	Feature domain.Feature `yaml:"-"`

	// Template is the default template text.
	Template string `yaml:"template"`

	// Tokens lists the placeholder names the template uses.
	Tokens []string `yaml:"tokens"`

	// RequiresContent reports whether composing needs non-blank caller content.
	RequiresContent bool `yaml:"requires_content"`
}

// registry holds the parsed built-in definitions. It is read-only after init.
type registry struct {
	defs map[domain.Feature]Definition
}

// globalRegistry is the singleton registry instance.
//
//nolint:gochecknoglobals // singleton pattern for the embedded template registry
var globalRegistry *registry

// init loads the embedded defaults at startup.
//
//nolint:gochecknoinits // required to preload embedded templates at package initialization
func init() {
	r, err := loadRegistry(defaultsYAML)
	if err != nil {
		// Defaults are embedded, so this is a build-time bug.
		panic(fmt.Sprintf("failed to load embedded prompt defaults: %v", err))
	}
	globalRegistry = r
}

// loadRegistry parses a defaults document and checks it covers the feature catalog.
func loadRegistry(data []byte) (*registry, error) {
	raw := make(map[string]Definition)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefaults, err)
	}

	r := &registry{defs: make(map[domain.Feature]Definition, len(raw))}
	for key, def := range raw {
		feature, err := domain.ParseFeature(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefaults, err)
		}
		def.Feature = feature
		def.Template = strings.TrimSpace(def.Template)

		declared := make(map[string]bool, len(def.Tokens))
		for _, tok := range def.Tokens {
			declared[tok] = true
		}
		for _, used := range TokensIn(def.Template) {
			if !declared[used] {
				return nil, fmt.Errorf("%w: %s uses undeclared token %q", ErrInvalidDefaults, key, used)
			}
		}
		r.defs[feature] = def
	}

	for _, f := range domain.AllFeatures() {
		if _, ok := r.defs[f]; !ok {
			return nil, fmt.Errorf("%w: no template for %s", ErrInvalidDefaults, f)
		}
	}
	return r, nil
}

// get retrieves the definition for a feature.
func (r *registry) get(f domain.Feature) (Definition, error) {
	def, ok := r.defs[f]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, f)
	}
	return def, nil
}

// Lookup returns the built-in definition for a feature.
func Lookup(f domain.Feature) (Definition, error) {
	return globalRegistry.get(f)
}

// List returns all built-in definitions in catalog order.
func List() []Definition {
	out := make([]Definition, 0, len(globalRegistry.defs))
	for _, f := range domain.AllFeatures() {
		out = append(out, globalRegistry.defs[f])
	}
	return out
}

// TokensIn returns the distinct placeholder names found in s, sorted.
func TokensIn(s string) []string {
	seen := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringSubmatch(s, -1) {
		seen[m[1]] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
