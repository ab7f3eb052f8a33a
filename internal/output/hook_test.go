package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prestond28/road-trip-game-box/internal/bus"
	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRunCommandWithInputWritesStdin(t *testing.T) {
	scriptPath := writeStdinCaptureScript(t)
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")

	err := runCommandWithInput(context.Background(), []string{scriptPath, outputPath}, "hello from gamebox")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello from gamebox", string(data))
}

func TestRunCommandWithInputRejectsEmptyArgv(t *testing.T) {
	err := runCommandWithInput(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}

func TestNewResultHookNilWithoutCommand(t *testing.T) {
	hook := NewResultHook(config.CommandConfig{}, nil)
	require.Nil(t, hook)

	b := bus.New(nil)
	unsubscribe := hook.Attach(b)
	unsubscribe()
	require.Zero(t, b.Subscribers(bus.KindResult))
	hook.Wait()
}

func TestResultHookRunsOnBusResult(t *testing.T) {
	scriptPath := writeAppendScript(t)
	outputPath := filepath.Join(t.TempDir(), "answers.txt")

	hook := NewResultHook(config.CommandConfig{Argv: []string{scriptPath, outputPath}}, nil)
	require.NotNil(t, hook)

	b := bus.New(nil)
	unsubscribe := hook.Attach(b)
	defer unsubscribe()

	b.EmitResult("i spy a bridge")
	hook.Wait()
	b.EmitResult("  ")
	b.EmitResult("yes")
	hook.Wait()

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "i spy a bridge\nyes\n", string(data))
}

func TestResultHookRunReportsFailure(t *testing.T) {
	failScript := writeFailScript(t, "hook failed")

	hook := NewResultHook(config.CommandConfig{Argv: []string{failScript}}, nil)
	err := hook.Run(context.Background(), "red car")
	require.Error(t, err)
	require.Contains(t, err.Error(), "run result hook")
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat > "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeAppendScript(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "append-stdin.sh")
	script := `#!/usr/bin/env bash
set -euo pipefail
cat >> "$1"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
