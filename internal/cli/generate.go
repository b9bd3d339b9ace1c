package cli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/tui"
)

func newGenerateCmd(flags *GlobalFlags) *cobra.Command {
	var (
		pf      promptFlags
		service string
		images  []string
		render  bool
	)

	cmd := &cobra.Command{
		Use:   "generate <feature>",
		Short: "Compose a feature prompt and generate text with an AI service",
		Long: `Generate composes the feature prompt, resolves a service with the required
capabilities (preferring --service when it qualifies), and prints the
normalized result.

Images passed with --image are sent inline, which requires a service with
multimodal input. URLs are passed by reference.`,
		Example: `  inkwell generate post_title --content-file draft.md
  inkwell generate image_alt_text --image photo.jpg
  inkwell generate faq_section --content-file post.md --render`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := pf.input(cmd, args[0])
			if err != nil {
				return err
			}
			in.PreferredService = service

			for _, ref := range images {
				part, err := loadPart(ref)
				if err != nil {
					return err
				}
				in.Parts = append(in.Parts, part)
			}

			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			spin := startSpinner(cmd.Context(), cmd, flags, fmt.Sprintf("Generating %s", in.Feature))
			result, err := app.Orchestrator.ComposeAndGenerate(cmd.Context(), in)
			spin.Stop()
			if err != nil {
				return err
			}

			logger := GetLogger()
			logger.Debug().
				Str("feature", in.Feature.String()).
				Str("service", result.Service).
				Str("model", result.Model).
				Msg("generation complete")

			if flags.Output == OutputJSON {
				return stdout(cmd, flags).JSON(result)
			}

			text := result.Text
			if render {
				if rendered, rerr := tui.RenderMarkdown(text, tui.TerminalWidth()); rerr == nil {
					text = rendered
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
			return err
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVar(&service, "service", "", "preferred service slug")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image file or URL to include (repeatable)")
	cmd.Flags().BoolVar(&render, "render", false, "render markdown output for the terminal")
	return cmd
}

// loadPart turns an --image argument into an input part. Remote references
// are passed as URIs; local files are read and sent inline.
func loadPart(ref string) (domain.Part, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "gs://") {
		return domain.Part{MimeType: mime.TypeByExtension(filepath.Ext(ref)), URI: ref}, nil
	}

	data, err := os.ReadFile(ref) //nolint:gosec // user-supplied image path
	if err != nil {
		return domain.Part{}, errors.Wrapf(err, "failed to read image %s", ref)
	}
	if len(data) == 0 {
		return domain.Part{}, errors.NewExitCode2Error(fmt.Errorf("%w: image %s is empty", errors.ErrInvalidArgument, ref))
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(ref)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.Part{}, errors.NewExitCode2Error(fmt.Errorf("%w: %s is not an image (%s)", errors.ErrInvalidArgument, ref, mimeType))
	}
	return domain.Part{MimeType: mimeType, Data: data}, nil
}
