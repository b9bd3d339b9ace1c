// Package cli provides the command-line interface for inkwell.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/inkwell/internal/errors"
	"github.com/mrz1836/inkwell/internal/tui"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// It is set during PersistentPreRunE and read through GetLogger.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the initialized logger for use by subcommands.
//
// IMPORTANT: This function MUST only be called after the root command's
// PersistentPreRunE has executed. Before that it returns a zero-value logger
// that discards all output.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func setCLILogger(logger zerolog.Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

// newRootCmd creates the root command and all subcommands.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "inkwell",
		Short: "Inkwell - AI content generation for your site",
		Long: `Inkwell composes prompts for content features, routes them to a capable
AI service, and tracks server-side batch jobs.

Features:
  • Per-feature prompt templates with brand voice and stop words
  • Capability-based routing across Gemini, OpenAI, Anthropic and Ollama
  • Image generation and alt text from images
  • Batch alt text and SEO jobs with live progress
  • An HTTP API with a WebSocket progress stream`,
		Version:       formatVersion(info),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return err
			}
			applyBoundFlags(v, flags)

			if !IsValidOutputFormat(flags.Output) {
				return errors.NewExitCode2Error(fmt.Errorf("%w: %q (expected text or json)", errors.ErrInvalidOutputFormat, flags.Output))
			}

			logger := InitLogger(flags.Verbose, flags.Quiet)
			setCLILogger(logger)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}

	AddGlobalFlags(cmd, flags)

	cmd.AddCommand(
		newComposeCmd(flags),
		newGenerateCmd(flags),
		newImagesCmd(flags),
		newServicesCmd(flags),
		newFeaturesCmd(flags),
		newBatchCmd(flags),
		newServeCmd(flags),
		newConfigCmd(flags),
	)

	return cmd
}

// formatVersion creates a version string from BuildInfo.
func formatVersion(info BuildInfo) string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command. Errors are rendered to stderr in the
// selected output format and returned for exit code mapping.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	defer CloseLogFile()
	return run(ctx, cmd, flags, cmd.ErrOrStderr())
}

func run(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, stderr io.Writer) error {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	format := flags.Output
	if !IsValidOutputFormat(format) {
		format = OutputText
	}
	tui.NewOutput(stderr, format).Error(err)
	return err
}
