package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Audio      *jsoncAudio      `json:"audio"`
	Wake       *jsoncWake       `json:"wake"`
	Recognizer *jsoncRecognizer `json:"recognizer"`
	Speaker    *jsoncSpeaker    `json:"speaker"`
	Session    *jsoncSession    `json:"session"`
	Matcher    *jsoncMatcher    `json:"matcher"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Gateway    *jsoncGateway    `json:"gateway"`
	Hooks      *jsoncHooks      `json:"hooks"`
	Log        *jsoncLog        `json:"log"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncWake struct {
	Backend          *string  `json:"backend"`
	SpeechThreshold  *float64 `json:"speech_threshold"`
	SilenceThreshold *float64 `json:"silence_threshold"`
	SpeechFrames     *int     `json:"speech_frames"`
	SilenceFrames    *int     `json:"silence_frames"`
	CooldownMS       *int     `json:"cooldown_ms"`
}

type jsoncRecognizer struct {
	Backend                   *string `json:"backend"`
	URL                       *string `json:"url"`
	APIKey                    *string `json:"api_key"`
	APIKeyEnv                 *string `json:"api_key_env"`
	Model                     *string `json:"model"`
	Locale                    *string `json:"locale"`
	EndpointingMS             *int    `json:"endpointing_ms"`
	UtteranceEndMS            *int    `json:"utterance_end_ms"`
	DialTimeoutMS             *int    `json:"dial_timeout_ms"`
	PartialResults            *bool   `json:"partial_results"`
	CompleteSilenceMS         *int    `json:"complete_silence_ms"`
	PossiblyCompleteSilenceMS *int    `json:"possibly_complete_silence_ms"`
	MinimumLengthMS           *int    `json:"minimum_length_ms"`
	MaxResults                *int    `json:"max_results"`
}

type jsoncSpeaker struct {
	Command *string `json:"command"`
	GuardMS *int    `json:"guard_ms"`
}

type jsoncSession struct {
	TimeoutMS          *int             `json:"timeout_ms"`
	EndFallbackMS      *int             `json:"end_fallback_ms"`
	WakePrepMS         *int             `json:"wake_prep_ms"`
	ProgrammaticPrepMS *int             `json:"programmatic_prep_ms"`
	StartDelayMS       *int             `json:"start_delay_ms"`
	PostEndCancelMS    *int             `json:"post_end_cancel_ms"`
	PostEndCompleteMS  *int             `json:"post_end_complete_ms"`
	CancelDelayMS      *int             `json:"cancel_delay_ms"`
	DestroyDelayMS     *int             `json:"destroy_delay_ms"`
	CompleteDelayMS    *int             `json:"complete_delay_ms"`
	DisplayClearMS     *int             `json:"display_clear_ms"`
	TeardownPolicy     *string          `json:"teardown_policy"`
	BenignCodes        *jsoncStringList `json:"benign_codes"`
	BenignMessages     *jsoncStringList `json:"benign_messages"`
}

type jsoncMatcher struct {
	AnswerWords *jsoncStringList `json:"answer_words"`
	Triggers    *jsoncStringList `json:"triggers"`
}

type jsoncIndicator struct {
	Enable          *bool   `json:"enable"`
	DesktopAppName  *string `json:"desktop_app_name"`
	SoundEnable     *bool   `json:"sound_enable"`
	SoundListenFile *string `json:"sound_listen_file"`
	SoundResultFile *string `json:"sound_result_file"`
	SoundAlertFile  *string `json:"sound_alert_file"`
	TextListening   *string `json:"text_listening"`
	ErrorTimeoutMS  *int    `json:"error_timeout_ms"`
}

type jsoncGateway struct {
	Enable  *bool   `json:"enable"`
	Address *string `json:"address"`
}

type jsoncHooks struct {
	Result *string `json:"result"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = trimList(list)
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = trimList(strings.Split(single, ","))
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Parse reads JSONC configuration content over base. Empty content yields
// base unchanged after validation.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		warnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, warnings, nil
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if w := payload.Wake; w != nil {
		setString(&cfg.Wake.Backend, w.Backend)
		setValue(&cfg.Wake.SpeechThreshold, w.SpeechThreshold)
		setValue(&cfg.Wake.SilenceThreshold, w.SilenceThreshold)
		setValue(&cfg.Wake.SpeechFrames, w.SpeechFrames)
		setValue(&cfg.Wake.SilenceFrames, w.SilenceFrames)
		setValue(&cfg.Wake.CooldownMS, w.CooldownMS)
	}

	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.Backend, r.Backend)
		setString(&cfg.Recognizer.URL, r.URL)
		setString(&cfg.Recognizer.APIKey, r.APIKey)
		setString(&cfg.Recognizer.APIKeyEnv, r.APIKeyEnv)
		setString(&cfg.Recognizer.Model, r.Model)
		setString(&cfg.Recognizer.Locale, r.Locale)
		setValue(&cfg.Recognizer.EndpointingMS, r.EndpointingMS)
		setValue(&cfg.Recognizer.UtteranceEndMS, r.UtteranceEndMS)
		setValue(&cfg.Recognizer.DialTimeoutMS, r.DialTimeoutMS)
		setValue(&cfg.Recognizer.PartialResults, r.PartialResults)
		setValue(&cfg.Recognizer.CompleteSilenceMS, r.CompleteSilenceMS)
		setValue(&cfg.Recognizer.PossiblyCompleteSilenceMS, r.PossiblyCompleteSilenceMS)
		setValue(&cfg.Recognizer.MinimumLengthMS, r.MinimumLengthMS)
		setValue(&cfg.Recognizer.MaxResults, r.MaxResults)
	}

	if s := payload.Speaker; s != nil {
		if s.Command != nil {
			command, err := parseCommand("speaker.command", *s.Command)
			if err != nil {
				return err
			}
			cfg.Speaker.Command = command
		}
		setValue(&cfg.Speaker.GuardMS, s.GuardMS)
	}

	if s := payload.Session; s != nil {
		setValue(&cfg.Session.TimeoutMS, s.TimeoutMS)
		setValue(&cfg.Session.EndFallbackMS, s.EndFallbackMS)
		setValue(&cfg.Session.WakePrepMS, s.WakePrepMS)
		setValue(&cfg.Session.ProgrammaticPrepMS, s.ProgrammaticPrepMS)
		setValue(&cfg.Session.StartDelayMS, s.StartDelayMS)
		setValue(&cfg.Session.PostEndCancelMS, s.PostEndCancelMS)
		setValue(&cfg.Session.PostEndCompleteMS, s.PostEndCompleteMS)
		setValue(&cfg.Session.CancelDelayMS, s.CancelDelayMS)
		setValue(&cfg.Session.DestroyDelayMS, s.DestroyDelayMS)
		setValue(&cfg.Session.CompleteDelayMS, s.CompleteDelayMS)
		setValue(&cfg.Session.DisplayClearMS, s.DisplayClearMS)
		setString(&cfg.Session.TeardownPolicy, s.TeardownPolicy)
		setList(&cfg.Session.BenignCodes, s.BenignCodes)
		setList(&cfg.Session.BenignMessages, s.BenignMessages)
	}

	if m := payload.Matcher; m != nil {
		setList(&cfg.Matcher.AnswerWords, m.AnswerWords)
		setList(&cfg.Matcher.Triggers, m.Triggers)
	}

	if i := payload.Indicator; i != nil {
		setValue(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setValue(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundListenFile, i.SoundListenFile)
		setString(&cfg.Indicator.SoundResultFile, i.SoundResultFile)
		setString(&cfg.Indicator.SoundAlertFile, i.SoundAlertFile)
		setString(&cfg.Indicator.TextListening, i.TextListening)
		setValue(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if g := payload.Gateway; g != nil {
		setValue(&cfg.Gateway.Enable, g.Enable)
		setString(&cfg.Gateway.Address, g.Address)
	}

	if h := payload.Hooks; h != nil && h.Result != nil {
		command, err := parseCommand("hooks.result", *h.Result)
		if err != nil {
			return err
		}
		cfg.Hooks.Result = command
	}

	if l := payload.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
	}

	return nil
}

func parseCommand(field string, raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src *jsoncStringList) {
	if src != nil {
		*dst = append([]string(nil), (*src)...)
	}
}
