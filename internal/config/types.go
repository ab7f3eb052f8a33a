// Package config resolves, parses, validates, and defaults gamebox configuration.
package config

import (
	"os"
	"strings"
)

// Config is the fully materialized runtime configuration used by gamebox.
type Config struct {
	Audio      AudioConfig
	Wake       WakeConfig
	Recognizer RecognizerConfig
	Speaker    SpeakerConfig
	Session    SessionConfig
	Matcher    MatcherConfig
	Indicator  IndicatorConfig
	Gateway    GatewayConfig
	Hooks      HooksConfig
	Log        LogConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// WakeConfig selects the wake-word backend and tunes the energy detector.
type WakeConfig struct {
	Backend          string
	SpeechThreshold  float64
	SilenceThreshold float64
	SpeechFrames     int
	SilenceFrames    int
	CooldownMS       int
}

// RecognizerConfig selects the speech recognizer and its per-session options.
type RecognizerConfig struct {
	Backend        string
	URL            string
	APIKey         string
	APIKeyEnv      string
	Model          string
	Locale         string
	EndpointingMS  int
	UtteranceEndMS int
	DialTimeoutMS  int

	PartialResults            bool
	CompleteSilenceMS         int
	PossiblyCompleteSilenceMS int
	MinimumLengthMS           int
	MaxResults                int
}

// ResolveAPIKey prefers the inline key, then the configured environment variable.
func (r RecognizerConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(r.APIKey); key != "" {
		return key
	}
	if r.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(r.APIKeyEnv))
}

// SpeakerConfig controls the text-to-speech command.
type SpeakerConfig struct {
	Command CommandConfig
	GuardMS int
}

// SessionConfig carries recognition session timing and teardown behavior.
type SessionConfig struct {
	TimeoutMS          int
	EndFallbackMS      int
	WakePrepMS         int
	ProgrammaticPrepMS int
	StartDelayMS       int
	PostEndCancelMS    int
	PostEndCompleteMS  int
	CancelDelayMS      int
	DestroyDelayMS     int
	CompleteDelayMS    int
	DisplayClearMS     int
	TeardownPolicy     string
	BenignCodes        []string
	BenignMessages     []string
}

// MatcherConfig lists the phrases that are emitted before a final result.
type MatcherConfig struct {
	AnswerWords []string
	Triggers    []string
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable          bool
	DesktopAppName  string
	SoundEnable     bool
	SoundListenFile string
	SoundResultFile string
	SoundAlertFile  string
	TextListening   string
	ErrorTimeoutMS  int
}

// GatewayConfig controls the gRPC control service.
type GatewayConfig struct {
	Enable  bool
	Address string
}

// HooksConfig lists optional commands run on engine events.
type HooksConfig struct {
	Result CommandConfig
}

// LogConfig controls the runtime log level.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
