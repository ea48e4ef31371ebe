package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "default", loaded.Config.Audio.Input)
	require.Equal(t, "info", loaded.Config.Log.Level)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[len(loaded.Warnings)-1].Message, "not found")
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
model:
  path: /opt/models/vosk-small-en
audio:
  input: elgato
  fallback: default
commit:
  command: wtype -
  trailing_space: false
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "/opt/models/vosk-small-en", loaded.Config.Model.Path)
	require.Equal(t, "elgato", loaded.Config.Audio.Input)
	require.Equal(t, []string{"wtype", "-"}, loaded.Config.Commit.Argv)
	require.False(t, loaded.Config.Commit.TrailingSpace)
	require.Equal(t, "debug", loaded.Config.Log.Level)
	require.Empty(t, loaded.Warnings)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [broken"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestLoadRejectsBadCommitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commit:\n  command: \"unterminated 'quote\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit.command")
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/explicit.yaml")
	require.NoError(t, err)
	require.Equal(t, "/tmp/explicit.yaml", path)
}

func TestResolvePathUsesXDGConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "voicekey", "config.yaml"), path)
}

func TestResolvePathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "voicekey", "config.yaml"), path)
}
