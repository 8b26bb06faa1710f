package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.DefaultProvider)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 120*time.Second, cfg.HardTimeout())
	assert.Equal(t, 5*time.Second, cfg.GracePeriod())
	assert.Equal(t, 60*time.Second, cfg.PermissionTimeoutDuration())
	assert.Equal(t, 10, cfg.HistoryWindow)
}

func TestEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MYSTLIN_DEFAULT_PROVIDER", "codex")
	t.Setenv("MYSTLIN_HARD_TIMEOUT_SEC", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "codex", cfg.DefaultProvider)
	assert.Equal(t, 30*time.Second, cfg.HardTimeout())
}

func TestProjectConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("default_provider: cursor\ncli_paths:\n  cursor: /opt/bin/agent\nskills:\n  - testing\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mystlin.yml"), content, 0644))
	chdir(t, dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cursor", cfg.DefaultProvider)
	assert.Equal(t, "/opt/bin/agent", cfg.CLIPath("cursor"))
	assert.Empty(t, cfg.CLIPath("claude"))
	assert.Equal(t, []string{"testing"}, cfg.Skills)
}

func TestInvalidOnTimeoutRejected(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MYSTLIN_ON_TIMEOUT", "explode")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidPermissionTimeoutRejected(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MYSTLIN_PERMISSION_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
