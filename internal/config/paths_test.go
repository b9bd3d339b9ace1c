package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/inkwell/internal/constants"
)

func TestGlobalConfigDir_Success(t *testing.T) {
	dir, err := GlobalConfigDir()
	require.NoError(t, err)
	assert.Contains(t, dir, constants.InkwellHome)
	assert.True(t, filepath.IsAbs(dir))
}

func TestGlobalConfigPath_Success(t *testing.T) {
	path, err := GlobalConfigPath()
	require.NoError(t, err)
	assert.Equal(t, constants.ConfigFileName, filepath.Base(path))
	assert.True(t, filepath.IsAbs(path))
}

func TestProjectConfigPath(t *testing.T) {
	assert.Equal(t, constants.InkwellHome, ProjectConfigDir())
	assert.Equal(t, filepath.Join(constants.InkwellHome, constants.ConfigFileName), ProjectConfigPath())
}

func TestSettingsConfig_SettingsPath(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		path, err := SettingsConfig{Path: "/tmp/prompts.yaml"}.SettingsPath()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/prompts.yaml", path)
	})

	t.Run("defaults under the global dir", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		path, err := SettingsConfig{}.SettingsPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, constants.InkwellHome, constants.SettingsFileName), path)
	})
}
