package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "gamebox", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "gamebox", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.Len(t, loaded.Warnings, 2)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
	require.Contains(t, loaded.Warnings[1].Message, "$DEEPGRAM_API_KEY")
}

func TestLoadMissingConfigWithKeyHasSingleWarning(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-test")

	loaded, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.NoError(t, err)
	require.Len(t, loaded.Warnings, 1)
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "audio": {
    "input": "alsa_input.usb-mic",
    "fallback": "default"
  },
  "recognizer": {
    "backend": "none"
  },
  "session": {
    "teardown_policy": "always-destroy"
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "alsa_input.usb-mic", loaded.Config.Audio.Input)
	require.Equal(t, "none", loaded.Config.Recognizer.Backend)
	require.Equal(t, "always-destroy", loaded.Config.Session.TeardownPolicy)
	require.Empty(t, loaded.Warnings)
}

func TestLoadWarnsWhenDeepgramKeyMissing(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"wake":{"backend":"manual"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Warnings, 1)
	require.Contains(t, loaded.Warnings[0].Message, "$DEEPGRAM_API_KEY")
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}
