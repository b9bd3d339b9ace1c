package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/inkwell/internal/tui"
)

func newServicesCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List configured AI services and their availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			services, err := app.Orchestrator.Services(cmd.Context())
			if err != nil {
				return err
			}

			out := stdout(cmd, flags)
			if flags.Output == OutputJSON {
				return out.JSON(map[string]any{"services": services})
			}

			rows := make([][]string, 0, len(services))
			for _, svc := range services {
				rows = append(rows, []string{
					svc.Slug,
					svc.DisplayName,
					availability(svc.Available),
					strings.Join(svc.Capabilities.Strings(), ", "),
				})
			}
			out.Table([]string{"SLUG", "NAME", "AVAILABLE", "CAPABILITIES"}, rows)
			return nil
		},
	}
}

func availability(available bool) string {
	if available {
		return tui.ServiceIcon(true) + " yes"
	}
	return tui.ServiceIcon(false) + " no"
}
