package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
)

// promptFlags are the composition inputs shared by compose and generate.
type promptFlags struct {
	content     string
	contentFile string
	prior       string
	tokens      []string
	partial     bool
}

func (p *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.content, "content", "", "content appended to the prompt")
	cmd.Flags().StringVar(&p.contentFile, "content-file", "", "read content from a file (- for stdin)")
	cmd.Flags().StringVar(&p.prior, "prior", "", "previously generated value to avoid repeating")
	cmd.Flags().StringArrayVar(&p.tokens, "token", nil, "placeholder value as name=value (repeatable)")
	cmd.Flags().BoolVar(&p.partial, "partial", false, "allow unsubstituted placeholders")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
}

// input builds a GenerateInput for the feature named by arg.
func (p *promptFlags) input(cmd *cobra.Command, arg string) (ai.GenerateInput, error) {
	feature, err := domain.ParseFeature(arg)
	if err != nil {
		return ai.GenerateInput{}, err
	}

	content := p.content
	if p.contentFile != "" {
		content, err = readContent(cmd.InOrStdin(), p.contentFile)
		if err != nil {
			return ai.GenerateInput{}, err
		}
	}

	tokens, err := parseTokens(p.tokens)
	if err != nil {
		return ai.GenerateInput{}, err
	}

	return ai.GenerateInput{
		Feature:      feature,
		Content:      content,
		PriorValue:   p.prior,
		Tokens:       tokens,
		AllowPartial: p.partial,
	}, nil
}

func readContent(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read content from stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied content path
	if err != nil {
		return "", errors.Wrapf(err, "failed to read content file %s", path)
	}
	return string(data), nil
}

// parseTokens turns name=value pairs into a token map. Values may contain '='.
func parseTokens(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	tokens := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewExitCode2Error(fmt.Errorf("%w: --token %q must be name=value", errors.ErrInvalidArgument, pair))
		}
		tokens[name] = value
	}
	return tokens, nil
}

type composeResult struct {
	Feature domain.Feature `json:"feature"`
	Prompt  string         `json:"prompt"`
}

func newComposeCmd(flags *GlobalFlags) *cobra.Command {
	var pf promptFlags

	cmd := &cobra.Command{
		Use:   "compose <feature>",
		Short: "Preview the final prompt for a feature without calling a service",
		Long: `Compose builds the prompt exactly as generate would send it, layering the
brand voice, stop words, difference clause, feature template and content.`,
		Example: `  inkwell compose post_title --content-file draft.md
  inkwell compose post_tags --token number=5 --content-file post.md
  inkwell compose customise_text_rewrite --token type=tweet --token tone=playful --content "..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := pf.input(cmd, args[0])
			if err != nil {
				return err
			}

			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			composition, err := app.Orchestrator.Compose(cmd.Context(), in)
			if err != nil {
				return err
			}

			if flags.Output == OutputJSON {
				return stdout(cmd, flags).JSON(composeResult{Feature: composition.Feature(), Prompt: composition.String()})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), composition.String())
			return err
		},
	}

	pf.register(cmd)
	return cmd
}
