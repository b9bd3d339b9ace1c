package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/errors"
)

// GlobalConfigDir returns the path to the global inkwell directory.
// This is typically ~/.inkwell on Unix systems.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.InkwellHome), nil
}

// ProjectConfigDir returns the relative path to the project configuration directory.
func ProjectConfigDir() string {
	return constants.InkwellHome
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.ConfigFileName)
}

// SettingsPath returns the prompt settings file to use: the configured path,
// or ~/.inkwell/settings.yaml.
func (s SettingsConfig) SettingsPath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get settings path: %w", err)
	}
	return filepath.Join(dir, constants.SettingsFileName), nil
}
