package config

import (
	"fmt"
	"strings"

	"github.com/prestond28/road-trip-game-box/internal/logging"
	"github.com/prestond28/road-trip-game-box/internal/session"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch strings.ToLower(strings.TrimSpace(cfg.Wake.Backend)) {
	case "energy", "manual":
	default:
		return nil, fmt.Errorf("wake.backend must be one of: energy, manual")
	}
	if cfg.Wake.SpeechThreshold <= 0 || cfg.Wake.SpeechThreshold > 1 {
		return nil, fmt.Errorf("wake.speech_threshold must be in (0, 1]")
	}
	if cfg.Wake.SilenceThreshold <= 0 || cfg.Wake.SilenceThreshold > cfg.Wake.SpeechThreshold {
		return nil, fmt.Errorf("wake.silence_threshold must be > 0 and <= wake.speech_threshold")
	}
	if cfg.Wake.SpeechFrames <= 0 {
		return nil, fmt.Errorf("wake.speech_frames must be > 0")
	}
	if cfg.Wake.SilenceFrames <= 0 {
		return nil, fmt.Errorf("wake.silence_frames must be > 0")
	}
	if cfg.Wake.CooldownMS < 0 {
		return nil, fmt.Errorf("wake.cooldown_ms must be >= 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Recognizer.Backend))
	switch backend {
	case "deepgram", "none":
	default:
		return nil, fmt.Errorf("recognizer.backend must be one of: deepgram, none")
	}
	if strings.TrimSpace(cfg.Recognizer.Locale) == "" {
		return nil, fmt.Errorf("recognizer.locale must not be empty")
	}
	for field, value := range map[string]int{
		"recognizer.endpointing_ms":               cfg.Recognizer.EndpointingMS,
		"recognizer.utterance_end_ms":             cfg.Recognizer.UtteranceEndMS,
		"recognizer.dial_timeout_ms":              cfg.Recognizer.DialTimeoutMS,
		"recognizer.complete_silence_ms":          cfg.Recognizer.CompleteSilenceMS,
		"recognizer.possibly_complete_silence_ms": cfg.Recognizer.PossiblyCompleteSilenceMS,
		"recognizer.minimum_length_ms":            cfg.Recognizer.MinimumLengthMS,
	} {
		if value < 0 {
			return nil, fmt.Errorf("%s must be >= 0", field)
		}
	}
	if cfg.Recognizer.MaxResults <= 0 {
		return nil, fmt.Errorf("recognizer.max_results must be > 0")
	}
	if backend == "deepgram" && cfg.Recognizer.ResolveAPIKey() == "" {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"recognizer.api_key is empty and $%s is unset; speech recognition will be unavailable",
			cfg.Recognizer.APIKeyEnv,
		)})
	}

	if len(cfg.Speaker.Command.Argv) == 0 {
		return nil, fmt.Errorf("speaker.command must not be empty")
	}
	if cfg.Speaker.GuardMS <= 0 {
		return nil, fmt.Errorf("speaker.guard_ms must be > 0")
	}

	if cfg.Session.TimeoutMS <= 0 {
		return nil, fmt.Errorf("session.timeout_ms must be > 0")
	}
	for field, value := range map[string]int{
		"session.end_fallback_ms":      cfg.Session.EndFallbackMS,
		"session.wake_prep_ms":         cfg.Session.WakePrepMS,
		"session.programmatic_prep_ms": cfg.Session.ProgrammaticPrepMS,
		"session.start_delay_ms":       cfg.Session.StartDelayMS,
		"session.post_end_cancel_ms":   cfg.Session.PostEndCancelMS,
		"session.post_end_complete_ms": cfg.Session.PostEndCompleteMS,
		"session.cancel_delay_ms":      cfg.Session.CancelDelayMS,
		"session.destroy_delay_ms":     cfg.Session.DestroyDelayMS,
		"session.complete_delay_ms":    cfg.Session.CompleteDelayMS,
		"session.display_clear_ms":     cfg.Session.DisplayClearMS,
	} {
		if value < 0 {
			return nil, fmt.Errorf("%s must be >= 0", field)
		}
	}
	if cfg.Session.PostEndCompleteMS < cfg.Session.PostEndCancelMS {
		warnings = append(warnings, Warning{Message: "session.post_end_complete_ms is shorter than session.post_end_cancel_ms; completing right after cancel"})
	}
	if cfg.Session.CancelDelayMS > cfg.Session.DestroyDelayMS || cfg.Session.DestroyDelayMS > cfg.Session.CompleteDelayMS {
		warnings = append(warnings, Warning{Message: "session teardown delays are not increasing; steps still run in cancel, destroy, complete order"})
	}
	if _, err := session.LookupPolicy(cfg.Session.TeardownPolicy); err != nil {
		return nil, fmt.Errorf("session.teardown_policy: %w", err)
	}

	if len(cfg.Matcher.AnswerWords) == 0 {
		warnings = append(warnings, Warning{Message: "matcher.answer_words is empty; yes/no answers wait for final results"})
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Gateway.Enable && strings.TrimSpace(cfg.Gateway.Address) == "" {
		return nil, fmt.Errorf("gateway.address must not be empty when gateway.enable=true")
	}

	if cfg.Hooks.Result.Raw != "" && len(cfg.Hooks.Result.Argv) == 0 {
		return nil, fmt.Errorf("hooks.result is configured but empty")
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	return warnings, nil
}
