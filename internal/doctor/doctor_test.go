package doctor

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "speaker.command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-tts")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-tts", "--stdin"}, "speaker.command")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "speaker.command command is available")
}

func TestCheckRecognizerDisabled(t *testing.T) {
	check := checkRecognizer(config.RecognizerConfig{Backend: "none"})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "disabled")
}

func TestCheckRecognizerMissingKey(t *testing.T) {
	t.Setenv("GAMEBOX_TEST_KEY", "")
	check := checkRecognizer(config.RecognizerConfig{Backend: "deepgram", APIKeyEnv: "GAMEBOX_TEST_KEY"})
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "$GAMEBOX_TEST_KEY")
}

func TestCheckRecognizerReachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	check := checkRecognizer(config.RecognizerConfig{
		Backend: "deepgram",
		APIKey:  "k",
		URL:     "ws://" + listener.Addr().String() + "/v1/listen",
	})
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, listener.Addr().String())
}

func TestCheckRecognizerUnknownBackend(t *testing.T) {
	check := checkRecognizer(config.RecognizerConfig{Backend: "vosk"})
	require.False(t, check.Pass)
}

func TestEndpointHostPortDefaults(t *testing.T) {
	got, err := endpointHostPort("")
	require.NoError(t, err)
	require.Equal(t, "api.deepgram.com:443", got)

	got, err = endpointHostPort("ws://localhost/v1/listen")
	require.NoError(t, err)
	require.Equal(t, "localhost:80", got)

	_, err = endpointHostPort("not a url at all")
	require.Error(t, err)
}

func TestCheckAddress(t *testing.T) {
	require.True(t, checkAddress("gateway.address", "127.0.0.1:50071").Pass)
	require.False(t, checkAddress("gateway.address", "nope").Pass)
}

func TestRunSkipsAudioWhenManualAndDisabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake-tts"), []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	cfg := config.Default()
	cfg.Wake.Backend = "manual"
	cfg.Recognizer.Backend = "none"
	cfg.Indicator.Enable = false
	cfg.Speaker.Command = config.CommandConfig{Raw: "fake-tts", Argv: []string{"fake-tts"}}

	report := Run(config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	require.True(t, report.OK(), report.String())
	for _, check := range report.Checks {
		require.NotEqual(t, "audio.device", check.Name)
	}
}
