package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/inkwell/internal/config"
	"github.com/mrz1836/inkwell/internal/errors"
)

// configSource is one config file layer and whether it exists.
type configSource struct {
	Layer  string `json:"layer"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// keyStatus reports whether a service's API key variable is set, never its value.
type keyStatus struct {
	Service string `json:"service"`
	EnvVar  string `json:"env_var"`
	Set     bool   `json:"set"`
}

type configReport struct {
	Sources []configSource `json:"sources"`
	Keys    []keyStatus    `json:"api_keys"`
	Config  *config.Config `json:"config"`
}

func newConfigCmd(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect inkwell configuration",
	}
	cmd.AddCommand(newConfigShowCmd(flags))
	return cmd
}

func newConfigShowCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective inkwell configuration after merging defaults,
~/.inkwell/config.yaml, .inkwell/config.yaml (or --config) and INKWELL_*
environment variables.

API keys are never printed; only whether each key variable is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}

			report := configReport{
				Sources: configSources(flags),
				Keys:    keyStatuses(cfg),
				Config:  cfg.Redacted(),
			}

			if flags.Output == OutputJSON {
				return stdout(cmd, flags).JSON(report)
			}
			return writeConfigYAML(cmd.OutOrStdout(), report)
		},
	}
}

func configSources(flags *GlobalFlags) []configSource {
	var sources []configSource
	if global, err := config.GlobalConfigPath(); err == nil {
		sources = append(sources, configSource{Layer: "global", Path: global, Exists: exists(global)})
	}
	project := config.ProjectConfigPath()
	if flags.ConfigPath != "" {
		project = flags.ConfigPath
	}
	sources = append(sources, configSource{Layer: "project", Path: project, Exists: exists(project)})
	return sources
}

func keyStatuses(cfg *config.Config) []keyStatus {
	out := make([]keyStatus, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		if svc.APIKeyEnvVar == "" {
			continue
		}
		out = append(out, keyStatus{Service: svc.Slug, EnvVar: svc.APIKeyEnvVar, Set: svc.APIKey() != ""})
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeConfigYAML prints the config as YAML with the sources and key status
// as a styled comment header.
func writeConfigYAML(w io.Writer, report configReport) error {
	comment := lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"})

	var header strings.Builder
	for _, src := range report.Sources {
		state := "not found"
		if src.Exists {
			state = "loaded"
		}
		fmt.Fprintf(&header, "# %s: %s (%s)\n", src.Layer, src.Path, state)
	}
	for _, k := range report.Keys {
		state := "unset"
		if k.Set {
			state = "set"
		}
		fmt.Fprintf(&header, "# %s key: $%s (%s)\n", k.Service, k.EnvVar, state)
	}
	if _, err := fmt.Fprint(w, comment.Render(strings.TrimRight(header.String(), "\n"))+"\n"); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report.Config); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return enc.Close()
}
