package app

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/audio"
	"github.com/prestond28/road-trip-game-box/internal/bus"
	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/prestond28/road-trip-game-box/internal/engine"
	"github.com/prestond28/road-trip-game-box/internal/indicator"
	"github.com/prestond28/road-trip-game-box/internal/logging"
	"github.com/prestond28/road-trip-game-box/internal/recognizer"
	"github.com/prestond28/road-trip-game-box/internal/recognizer/deepgram"
	"github.com/prestond28/road-trip-game-box/internal/speaker"
	"github.com/prestond28/road-trip-game-box/internal/wake"
)

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Build wires every subsystem named by cfg into an engine. Nothing touches
// the microphone until the engine starts.
func Build(cfg config.Config, logger *slog.Logger) (*engine.Engine, error) {
	logger = logging.OrDiscard(logger)
	capture := audio.DeviceCapture(cfg.Audio.Input, cfg.Audio.Fallback, logger)

	detector, err := wake.NewDetector(cfg.Wake.Backend, energyConfig(cfg.Wake), capture, logger)
	if err != nil {
		return nil, err
	}

	settings, err := buildSettings(cfg)
	if err != nil {
		return nil, err
	}

	var out speaker.Output
	if len(cfg.Speaker.Command.Argv) > 0 {
		out = speaker.NewCommandOutput(cfg.Speaker.Command.Argv, logger)
	}

	return engine.New(engine.Options{
		Settings:   settings,
		Bus:        bus.New(logger),
		Wake:       wake.NewGuard(detector, logger),
		Recognizer: buildRecognizer(cfg.Recognizer, capture, logger),
		Output:     out,
		Indicator:  indicator.NewNotifier(cfg.Indicator, logger),
		Logger:     logger,
	}), nil
}

func buildSettings(cfg config.Config) (engine.Settings, error) {
	policy, err := cfg.Session.Policy()
	if err != nil {
		return engine.Settings{}, fmt.Errorf("session.teardown_policy: %w", err)
	}
	matcher, err := cfg.Matcher.Build()
	if err != nil {
		return engine.Settings{}, fmt.Errorf("matcher: %w", err)
	}
	return engine.Settings{
		Timing:  cfg.Timing(),
		Policy:  policy,
		Benign:  cfg.Session.Benign(),
		Matcher: matcher,
		Locale:  cfg.Recognizer.Locale,
		Options: cfg.Recognizer.Options(),
	}, nil
}

func energyConfig(w config.WakeConfig) wake.EnergyConfig {
	return wake.EnergyConfig{
		SpeechThreshold:  w.SpeechThreshold,
		SilenceThreshold: w.SilenceThreshold,
		SpeechFrames:     w.SpeechFrames,
		SilenceFrames:    w.SilenceFrames,
		Cooldown:         millis(w.CooldownMS),
	}
}

// buildRecognizer never fails: a backend that cannot be built becomes an
// Unavailable recognizer, so listen requests alert instead of crashing.
func buildRecognizer(cfg config.RecognizerConfig, capture audio.CaptureFunc, logger *slog.Logger) recognizer.Recognizer {
	logger = logging.OrDiscard(logger)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "deepgram":
		client, err := deepgram.New(deepgram.Config{
			URL:          cfg.URL,
			APIKey:       cfg.ResolveAPIKey(),
			Model:        cfg.Model,
			Endpointing:  millis(cfg.EndpointingMS),
			UtteranceEnd: millis(cfg.UtteranceEndMS),
			DialTimeout:  millis(cfg.DialTimeoutMS),
			Capture:      capture,
			Logger:       logger,
		})
		if err != nil {
			if errors.Is(err, deepgram.ErrMissingAPIKey) {
				logger.Warn("deepgram api key missing; recognition disabled", "env", cfg.APIKeyEnv)
			} else {
				logger.Error("deepgram recognizer unavailable", "error", err.Error())
			}
			return recognizer.NewUnavailable(err)
		}
		return client
	case "none":
		return recognizer.NewUnavailable(errors.New("recognizer backend is none"))
	default:
		return recognizer.NewUnavailable(fmt.Errorf("unknown recognizer backend %q", cfg.Backend))
	}
}
