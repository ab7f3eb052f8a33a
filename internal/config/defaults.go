package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	speaker := "espeak-ng --stdin"

	return Config{
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Wake: WakeConfig{
			Backend:          "energy",
			SpeechThreshold:  0.015,
			SilenceThreshold: 0.008,
			SpeechFrames:     3,
			SilenceFrames:    30,
			CooldownMS:       1500,
		},
		Recognizer: RecognizerConfig{
			Backend:                   "deepgram",
			APIKeyEnv:                 "DEEPGRAM_API_KEY",
			Model:                     "nova-3",
			Locale:                    "en-US",
			DialTimeoutMS:             5000,
			PartialResults:            true,
			CompleteSilenceMS:         8000,
			PossiblyCompleteSilenceMS: 6000,
			MinimumLengthMS:           12000,
			MaxResults:                10,
		},
		Speaker: SpeakerConfig{
			Command: CommandConfig{Raw: speaker, Argv: mustParseArgv(speaker)},
			GuardMS: 30000,
		},
		Session: SessionConfig{
			TimeoutMS:          15000,
			EndFallbackMS:      2500,
			WakePrepMS:         2000,
			ProgrammaticPrepMS: 1200,
			StartDelayMS:       200,
			PostEndCancelMS:    100,
			PostEndCompleteMS:  2000,
			CancelDelayMS:      400,
			DestroyDelayMS:     800,
			CompleteDelayMS:    1200,
			DisplayClearMS:     1200,
			TeardownPolicy:     "skip-destroy-on-end",
			BenignCodes:        []string{"5"},
			BenignMessages:     []string{"Client side error"},
		},
		Matcher: MatcherConfig{
			AnswerWords: []string{"yes", "yeah", "yep", "yup", "no", "nope", "nah"},
			Triggers:    []string{"i spy"},
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "gamebox",
			SoundEnable:    true,
			TextListening:  "Listening…",
			ErrorTimeoutMS: 4000,
		},
		Gateway: GatewayConfig{
			Enable:  false,
			Address: "127.0.0.1:50071",
		},
		Log: LogConfig{Level: "info"},
	}
}
