package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
	"github.com/mrz1836/inkwell/internal/errors"
)

type savedImages struct {
	Service string   `json:"service"`
	Model   string   `json:"model,omitempty"`
	Files   []string `json:"files,omitempty"`
	URIs    []string `json:"uris,omitempty"`
}

func newImagesCmd(flags *GlobalFlags) *cobra.Command {
	var (
		count   int
		ratio   string
		service string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "images <prompt>",
		Short: "Generate images from a prompt",
		Example: `  inkwell images "a lighthouse at dusk" --count 2 --aspect-ratio 16:9
  inkwell images "a flat logo of a quill" --out-dir ./art`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 || count > constants.MaxImageCount {
				return errors.NewExitCode2Error(fmt.Errorf("%w: --count must be between 1 and %d", errors.ErrValueOutOfRange, constants.MaxImageCount))
			}

			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			spin := startSpinner(cmd.Context(), cmd, flags, "Generating images")
			result, err := app.Orchestrator.GenerateImages(cmd.Context(), ai.ImageInput{
				Prompt:           args[0],
				Count:            count,
				AspectRatio:      ratio,
				PreferredService: service,
			})
			spin.Stop()
			if err != nil {
				return err
			}

			saved, err := saveImages(outDir, result)
			if err != nil {
				return err
			}

			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(saved)
			}
			for _, f := range saved.Files {
				out.Success("Saved " + f)
			}
			for _, u := range saved.URIs {
				out.Info(u)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", constants.DefaultImageCount, "number of images")
	cmd.Flags().StringVar(&ratio, "aspect-ratio", constants.DefaultAspectRatio, "aspect ratio, e.g. 1:1 or 16:9")
	cmd.Flags().StringVar(&service, "service", "", "preferred service slug")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory to write image files to")
	return cmd
}

// saveImages writes inline images to dir as image-1.png, image-2.png, ...
// File references are returned as-is.
func saveImages(dir string, result domain.GenerationResult) (savedImages, error) {
	saved := savedImages{Service: result.Service, Model: result.Model}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return saved, errors.Wrapf(err, "failed to create %s", dir)
	}

	for i, img := range result.Images {
		if len(img.Data) == 0 {
			if img.URI != "" {
				saved.URIs = append(saved.URIs, img.URI)
			}
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("image-%d%s", i+1, extensionFor(img.MimeType)))
		if err := os.WriteFile(path, img.Data, 0o600); err != nil {
			return saved, errors.Wrapf(err, "failed to write %s", path)
		}
		saved.Files = append(saved.Files, path)
	}
	return saved, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
