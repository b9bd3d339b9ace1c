package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/inkwell/internal/tui"
)

// stdout returns the formatted output for command results.
func stdout(cmd *cobra.Command, flags *GlobalFlags) tui.Output {
	return tui.NewOutput(cmd.OutOrStdout(), flags.Output)
}

// isTerminalWriter reports whether the command's stderr is an interactive terminal.
func isTerminalWriter(cmd *cobra.Command) bool {
	f, ok := cmd.ErrOrStderr().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startSpinner shows progress on stderr for text output on a terminal, and
// a no-op spinner everywhere else so pipes and JSON stay clean.
func startSpinner(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, msg string) tui.Spinner {
	if flags.Output != OutputText || flags.Quiet || !isTerminalWriter(cmd) {
		return tui.NoopSpinner{}
	}
	return tui.NewTerminalSpinner(ctx, cmd.ErrOrStderr(), msg)
}
