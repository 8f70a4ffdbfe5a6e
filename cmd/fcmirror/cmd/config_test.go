package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fcmirror/internal/config"
)

func TestConfigPathCmd_OutputsPath(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, config.GetUserConfigPath()+"\n", out)
}

func TestConfigInit_NewFile(t *testing.T) {
	// Given: no user configuration
	isolateEnv(t)

	// When: running config init
	out, err := run(t, "config", "init")

	// Then: a loadable file with defaults exists
	require.NoError(t, err)
	assert.Contains(t, out, "Created user configuration")
	require.FileExists(t, config.GetUserConfigPath())
	cfg, err := config.LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Search.BatchSize)
}

func TestConfigInit_AlreadyExists(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "config", "init")
	require.NoError(t, err)

	out, err := run(t, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	assert.Contains(t, out, "--force")
}

func TestConfigInit_ForceKeepsSettingsAndBacksUp(t *testing.T) {
	// Given: a partial user config
	isolateEnv(t)
	path := config.GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("remote:\n  base_url: https://docs.example.org\n"), 0o644))

	// When: forcing init
	out, err := run(t, "config", "init", "--force")

	// Then: the setting survives, defaults are filled in, a backup exists
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration upgraded")
	cfg, err := config.LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.org", cfg.Remote.BaseURL)
	assert.Equal(t, 64, cfg.Download.MaxDepth)

	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestConfigShow_MergedIncludesProjectFile(t *testing.T) {
	// Given: a project file in the working directory
	isolateEnv(t)
	require.NoError(t, os.WriteFile(config.ProjectFileName, []byte("download:\n  max_depth: 7\n"), 0o644))

	// When: showing as JSON
	out, err := run(t, "config", "show", "--json")

	// Then: the project value is in effect
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 7, cfg.Download.MaxDepth)
}

func TestConfigShow_Sources(t *testing.T) {
	isolateEnv(t)

	out, err := run(t, "config", "show", "--source", "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "defaults (hardcoded)")
	assert.Contains(t, out, "batch_size: 20")

	out, err = run(t, "config", "show", "--source", "user")
	require.NoError(t, err)
	assert.Contains(t, out, "No user configuration file found")

	_, err = run(t, "config", "show", "--source", "project")
	assert.Error(t, err)
}
