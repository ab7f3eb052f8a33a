package config

import (
	"strings"
	"testing"

	"github.com/prestond28/road-trip-game-box/internal/recognizer"
	"github.com/prestond28/road-trip-game-box/internal/session"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyContentReturnsBase(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-test")

	cfg, warnings, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, Default(), cfg)
}

func TestParseAppliesSectionsOverDefaults(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")

	cfg, warnings, err := Parse(`{
  // manual wake for the car head unit
  "wake": {"backend": "manual", "cooldown_ms": 900},
  "recognizer": {
    "api_key": "  secret  ",
    "model": "nova-2",
    "endpointing_ms": 300,
    "max_results": 3,
  },
  "speaker": {"command": "piper --model 'en_US lessac.onnx' --output-raw", "guard_ms": 20000},
  "session": {
    "timeout_ms": 10000,
    "teardown_policy": "ios",
    "benign_codes": "5, 7",
  },
  "matcher": {"answer_words": ["oui", "non"], "triggers": "i spy, twenty questions"},
  "indicator": {"sound_listen_file": " ~/cues/listen.wav ", "text_listening": "Go ahead"},
  "gateway": {"enable": true, "address": "127.0.0.1:6000"},
  "hooks": {"result": "tee -a /tmp/answers.txt"},
  "log": {"level": "debug"},
}`, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)

	require.Equal(t, "manual", cfg.Wake.Backend)
	require.Equal(t, 900, cfg.Wake.CooldownMS)
	require.Equal(t, 0.015, cfg.Wake.SpeechThreshold)

	require.Equal(t, "secret", cfg.Recognizer.ResolveAPIKey())
	require.Equal(t, "nova-2", cfg.Recognizer.Model)
	require.Equal(t, 300, cfg.Recognizer.EndpointingMS)
	require.Equal(t, 3, cfg.Recognizer.MaxResults)
	require.Equal(t, "en-US", cfg.Recognizer.Locale)

	require.Equal(t, []string{"piper", "--model", "en_US lessac.onnx", "--output-raw"}, cfg.Speaker.Command.Argv)
	require.Equal(t, 20000, cfg.Speaker.GuardMS)

	require.Equal(t, 10000, cfg.Session.TimeoutMS)
	require.Equal(t, "ios", cfg.Session.TeardownPolicy)
	require.Equal(t, []string{"5", "7"}, cfg.Session.BenignCodes)
	require.Equal(t, []string{"Client side error"}, cfg.Session.BenignMessages)
	require.Equal(t, 2500, cfg.Session.EndFallbackMS)

	require.Equal(t, []string{"oui", "non"}, cfg.Matcher.AnswerWords)
	require.Equal(t, []string{"i spy", "twenty questions"}, cfg.Matcher.Triggers)

	require.Equal(t, "~/cues/listen.wav", cfg.Indicator.SoundListenFile)
	require.Equal(t, "Go ahead", cfg.Indicator.TextListening)
	require.True(t, cfg.Indicator.Enable)

	require.True(t, cfg.Gateway.Enable)
	require.Equal(t, "127.0.0.1:6000", cfg.Gateway.Address)
	require.Equal(t, []string{"tee", "-a", "/tmp/answers.txt"}, cfg.Hooks.Result.Argv)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := Parse(`{"speaker":{"command":"unterminated ' quote"}}`, Default())
	require.ErrorContains(t, err, "invalid speaker.command")

	_, _, err = Parse(`{"hooks":{"result":"unterminated ' quote"}}`, Default())
	require.ErrorContains(t, err, "invalid hooks.result")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, _, err := Parse(`{"whisper":{"grpc":"127.0.0.1:50051"}}`, Default())
	require.ErrorContains(t, err, "unknown field")

	_, _, err = Parse(`{"session":{"timeout":15}}`, Default())
	require.ErrorContains(t, err, "unknown field")
}

func TestParseRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := Parse(`{"log":{"level":"info"}}{"log":{"level":"debug"}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := Parse(`{
  "session": {"timeout_ms": "15s"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
	require.Contains(t, err.Error(), "column")
}

func TestParseRunsValidation(t *testing.T) {
	_, _, err := Parse(`{"session":{"teardown_policy":"windows"}}`, Default())
	require.ErrorContains(t, err, "session.teardown_policy")
	require.ErrorContains(t, err, "unknown teardown policy")
}

func TestRecognizerResolveAPIKeyFallsBackToEnv(t *testing.T) {
	t.Setenv("GAMEBOX_TEST_KEY", " from-env ")

	cfg := RecognizerConfig{APIKeyEnv: "GAMEBOX_TEST_KEY"}
	require.Equal(t, "from-env", cfg.ResolveAPIKey())

	cfg.APIKey = "inline"
	require.Equal(t, "inline", cfg.ResolveAPIKey())

	require.Empty(t, RecognizerConfig{}.ResolveAPIKey())
}

func TestDefaultsMatchRuntimeDefaults(t *testing.T) {
	cfg := Default()

	require.Equal(t, session.DefaultTiming(), cfg.Timing())
	require.Equal(t, recognizer.DefaultOptions(), cfg.Recognizer.Options())
	require.Equal(t, recognizer.DefaultBenignPolicy(), cfg.Session.Benign())

	policy, err := cfg.Session.Policy()
	require.NoError(t, err)
	require.Equal(t, session.DefaultPolicy(), policy)

	matcher, err := cfg.Matcher.Build()
	require.NoError(t, err)
	require.True(t, matcher.IsAnswer("Yeah sure"))
}
