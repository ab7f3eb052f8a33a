package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"github.com/stretchr/testify/require"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "gamebox")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerStatusStoppedWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "stopped\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerListenFailsWithoutEngine(t *testing.T) {
	paths := setupRunnerEnv(t, "")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "listen"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "gamebox engine is not running")
}

func TestRunnerForwardsCommandsToEngine(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	requests := make(chan ipc.Request, 16)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "gamebox.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "listening"}
		default:
			return ipc.Response{OK: true, Message: req.Command + " handled"}
		}
	})
	defer shutdown()

	runner := Runner{}
	cases := [][]string{
		{"status"},
		{"listen"},
		{"wake"},
		{"speak", "your", "turn"},
		{"awaiting", "on"},
		{"stop"},
		{"cancel"},
	}
	for _, args := range cases {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		runner.Stdout = stdout
		runner.Stderr = stderr

		exitCode := runner.Execute(context.Background(), append([]string{"--config", paths.configPath}, args...))
		require.Equal(t, 0, exitCode, args[0])
		require.Empty(t, stderr.String(), args[0])
	}

	got := make(map[string]ipc.Request)
	for range cases {
		req := <-requests
		got[req.Command] = req
	}
	require.Len(t, got, len(cases))
	require.Equal(t, "your turn", got[ipc.CommandSpeak].Text)
	require.NotNil(t, got[ipc.CommandAwaiting].Value)
	require.True(t, *got[ipc.CommandAwaiting].Value)
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "gamebox.sock")

	shutdown := startIPCServerForRunnerTest(t, socketPath, func(_ context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "listening"}
		default:
			return ipc.Response{OK: false, Error: "no active session"}
		}
	})
	defer shutdown()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "listening", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandCancel}, forwardTimeout)
	require.True(t, handled)
	require.ErrorContains(t, err, "no active session")
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "gamebox.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "gamebox.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	require.True(t, handled)
	require.ErrorContains(t, err, "forward command \"status\":")

	<-done
	require.NoError(t, listener.Close())
}

func TestRunnerDoctorCommandPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t, `{"speaker": {"command": "definitely-not-a-tts --stdin"}, "recognizer": {"backend": "none"}, "wake": {"backend": "manual"}}`)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "[FAIL] definitely-not-a-tts")
}

func TestRunnerDevicesCommandDispatches(t *testing.T) {
	paths := setupRunnerEnv(t, "")
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "devices"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error:")
}

func TestRunnerRunServesEngineUntilCancelled(t *testing.T) {
	paths := setupRunnerEnv(t, `{
		"wake": {"backend": "manual"},
		"recognizer": {"backend": "none"},
		"speaker": {"command": "cat"},
		"indicator": {"enable": false, "sound_enable": false},
	}`)
	socketPath := filepath.Join(paths.runtimeDir, "gamebox.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout := &lockedBuffer{}
	stderr := &lockedBuffer{}
	done := make(chan int, 1)
	go func() {
		runner := Runner{Stdout: stdout, Stderr: stderr}
		done <- runner.Execute(ctx, []string{"--config", paths.configPath, "run"})
	}()

	require.Eventually(t, func() bool {
		alive, _ := ipc.Probe(context.Background(), socketPath, 100*time.Millisecond)
		return alive
	}, 3*time.Second, 20*time.Millisecond)

	resp, err := ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)
	require.Equal(t, "true", resp.Details["wake_active"])

	resp, err = ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandWake}, time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "starting", resp.State)

	resp, err = ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandCancel}, time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK, resp.Error)

	cancel()
	select {
	case code := <-done:
		require.Equal(t, 0, code, stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("run did not exit after cancellation")
	}
	require.Contains(t, stdout.String(), "gamebox running")

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestSocketErrorHelpers(t *testing.T) {
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(nil))

	require.True(t, isSocketMissing(os.ErrNotExist))
	require.True(t, isSocketMissing(errors.New("dial unix /tmp/gamebox.sock: no such file or directory")))
	require.False(t, isSocketMissing(errors.New("other error")))

	require.True(t, isConnectionRefused(syscall.ECONNREFUSED))
	require.False(t, isConnectionRefused(errors.New("other error")))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T, content string) runnerPaths {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("GAMEBOX_SOCKET", "")
	t.Setenv("DEEPGRAM_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(strings.TrimSpace(content)+"\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
