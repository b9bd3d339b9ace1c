package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/prompts"
	"github.com/mrz1836/inkwell/internal/settings"
	"github.com/mrz1836/inkwell/internal/tui"
)

// templatePreviewWidth caps the template column in the features table.
const templatePreviewWidth = 48

// featureRow is one feature with its effective settings.
type featureRow struct {
	Feature         domain.Feature       `json:"feature"`
	Label           string               `json:"label"`
	Operation       domain.OperationKind `json:"operation"`
	Enabled         bool                 `json:"enabled"`
	RequiresContent bool                 `json:"requires_content"`
	Tokens          []string             `json:"tokens,omitempty"`
	Override        string               `json:"override,omitempty"`
	Template        string               `json:"template"`
}

func newFeaturesCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "List and configure prompt features",
	}

	cmd.AddCommand(
		newFeaturesListCmd(flags),
		newFeatureToggleCmd(flags, true),
		newFeatureToggleCmd(flags, false),
		newFeatureOverrideCmd(flags),
		newModifiersCmd(flags),
	)
	return cmd
}

// featureLabel turns a feature key into a display label, e.g. seo_title -> SEO Title.
func featureLabel(f domain.Feature) string {
	words := strings.Fields(strings.ReplaceAll(f.String(), "_", " "))
	caser := cases.Title(language.English)
	for i, w := range words {
		switch w {
		case "seo", "faq":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = caser.String(w)
		}
	}
	return strings.Join(words, " ")
}

func listFeatures(ctx context.Context, store settings.Provider) ([]featureRow, error) {
	snap, err := store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	defs := prompts.List()
	rows := make([]featureRow, 0, len(defs))
	for _, def := range defs {
		fs := snap.Feature(def.Feature)
		rows = append(rows, featureRow{
			Feature:         def.Feature,
			Label:           featureLabel(def.Feature),
			Operation:       def.Feature.Operation(),
			Enabled:         fs.IsEnabled(),
			RequiresContent: def.RequiresContent,
			Tokens:          def.Tokens,
			Override:        fs.Override,
			Template:        def.Template,
		})
	}
	return rows, nil
}

func newFeaturesListCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every feature with its enabled state and template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			rows, err := listFeatures(cmd.Context(), app.Settings)
			if err != nil {
				return err
			}

			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(map[string]any{"features": rows})
			}

			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				enabled := "yes"
				if !r.Enabled {
					enabled = "no"
				}
				template := r.Template
				if r.Override != "" {
					template = "* " + r.Override
				}
				table = append(table, []string{
					r.Feature.String(),
					r.Label,
					string(r.Operation),
					enabled,
					tui.Truncate(strings.Join(strings.Fields(template), " "), templatePreviewWidth),
				})
			}
			out.Table([]string{"FEATURE", "LABEL", "OPERATION", "ENABLED", "TEMPLATE"}, table)
			return nil
		},
	}
}

// updateFeature applies mutate to the persisted settings for the named feature.
func updateFeature(ctx context.Context, store settings.Store, name string, mutate func(*domain.FeatureSettings)) (domain.Feature, error) {
	feature, err := domain.ParseFeature(name)
	if err != nil {
		return "", err
	}
	snap, err := store.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	fs := snap.Feature(feature)
	mutate(&fs)
	return feature, store.SetFeature(ctx, feature, fs)
}

func newFeatureToggleCmd(flags *GlobalFlags, enable bool) *cobra.Command {
	use, verb := "disable", "Disabled"
	if enable {
		use, verb = "enable", "Enabled"
	}

	return &cobra.Command{
		Use:   use + " <feature>",
		Short: cases.Title(language.English).String(use) + " a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			feature, err := updateFeature(cmd.Context(), app.Settings, args[0], func(fs *domain.FeatureSettings) {
				fs.Enabled = &enable
			})
			if err != nil {
				return err
			}

			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(map[string]any{"feature": feature, "enabled": enable})
			}
			out.Success(fmt.Sprintf("%s %s", verb, featureLabel(feature)))
			return nil
		},
	}
}

func newFeatureOverrideCmd(flags *GlobalFlags) *cobra.Command {
	var clearOverride bool

	cmd := &cobra.Command{
		Use:   "override <feature> [text]",
		Short: "Set or clear a feature's template override",
		Long: `Override replaces the feature's default template. For templates with
placeholders the override is appended to the default instead, so the
placeholders keep working.`,
		Example: `  inkwell features override post_title "Keep it under 60 characters."
  inkwell features override post_title --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch {
			case clearOverride && len(args) == 2:
				return errors.NewExitCode2Error(fmt.Errorf("%w: pass override text or --clear, not both", errors.ErrInvalidArgument))
			case !clearOverride && len(args) == 1:
				return errors.NewExitCode2Error(fmt.Errorf("%w: override text or --clear is required", errors.ErrInvalidArgument))
			case !clearOverride:
				text = strings.TrimSpace(args[1])
			}

			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			feature, err := updateFeature(cmd.Context(), app.Settings, args[0], func(fs *domain.FeatureSettings) {
				fs.Override = text
			})
			if err != nil {
				return err
			}

			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(map[string]any{"feature": feature, "override": text})
			}
			if text == "" {
				out.Success("Cleared override for " + featureLabel(feature))
			} else {
				out.Success("Set override for " + featureLabel(feature))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearOverride, "clear", false, "remove the override")
	return cmd
}

func newModifiersCmd(flags *GlobalFlags) *cobra.Command {
	var (
		brandVoice, stopWords     string
		brandVoiceOn, stopWordsOn bool
	)

	cmd := &cobra.Command{
		Use:   "modifiers",
		Short: "Show or update the brand voice and stop words applied to every prompt",
		Example: `  inkwell features modifiers
  inkwell features modifiers --brand-voice "Warm and concise." --brand-voice-enabled
  inkwell features modifiers --stop-words "delve, tapestry" --stop-words-enabled=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			snap, err := app.Settings.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			mods := snap.Modifiers

			f := cmd.Flags()
			changed := false
			if f.Changed("brand-voice") {
				mods.BrandVoice.Text, changed = brandVoice, true
			}
			if f.Changed("brand-voice-enabled") {
				mods.BrandVoice.Enabled, changed = brandVoiceOn, true
			}
			if f.Changed("stop-words") {
				mods.StopWords.Text, changed = stopWords, true
			}
			if f.Changed("stop-words-enabled") {
				mods.StopWords.Enabled, changed = stopWordsOn, true
			}
			if changed {
				if err := app.Settings.SetModifiers(cmd.Context(), mods); err != nil {
					return err
				}
			}

			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(mods)
			}
			out.Table([]string{"MODIFIER", "ACTIVE", "TEXT"}, [][]string{
				{"brand voice", modifierState(mods.BrandVoice), tui.Truncate(mods.BrandVoice.Text, templatePreviewWidth)},
				{"stop words", modifierState(mods.StopWords), tui.Truncate(mods.StopWords.Text, templatePreviewWidth)},
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&brandVoice, "brand-voice", "", "brand voice text")
	cmd.Flags().BoolVar(&brandVoiceOn, "brand-voice-enabled", false, "apply the brand voice")
	cmd.Flags().StringVar(&stopWords, "stop-words", "", "comma-separated words to avoid")
	cmd.Flags().BoolVar(&stopWordsOn, "stop-words-enabled", false, "apply the stop words")
	return cmd
}

func modifierState(m domain.Modifier) string {
	switch {
	case m.Active():
		return "yes"
	case m.Enabled:
		return "no (empty)"
	default:
		return "no"
	}
}
