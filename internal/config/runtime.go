package config

import (
	"time"

	"github.com/prestond28/road-trip-game-box/internal/recognizer"
	"github.com/prestond28/road-trip-game-box/internal/session"
)

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Timing converts session delays into the engine's timing table.
func (c Config) Timing() session.Timing {
	s := c.Session
	return session.Timing{
		SessionTimeout:   millis(s.TimeoutMS),
		EndFallback:      millis(s.EndFallbackMS),
		WakePrep:         millis(s.WakePrepMS),
		ProgrammaticPrep: millis(s.ProgrammaticPrepMS),
		StartDelay:       millis(s.StartDelayMS),
		PostEndCancel:    millis(s.PostEndCancelMS),
		PostEndComplete:  millis(s.PostEndCompleteMS),
		CancelDelay:      millis(s.CancelDelayMS),
		DestroyDelay:     millis(s.DestroyDelayMS),
		CompleteDelay:    millis(s.CompleteDelayMS),
		DisplayClear:     millis(s.DisplayClearMS),
		SpeakGuard:       millis(c.Speaker.GuardMS),
	}
}

func (s SessionConfig) Policy() (session.Policy, error) {
	return session.LookupPolicy(s.TeardownPolicy)
}

func (s SessionConfig) Benign() recognizer.BenignPolicy {
	return recognizer.BenignPolicy{
		Codes:     append([]string(nil), s.BenignCodes...),
		Substring: append([]string(nil), s.BenignMessages...),
	}
}

func (m MatcherConfig) Build() (session.Matcher, error) {
	return session.NewMatcher(m.AnswerWords, m.Triggers)
}

// Options converts per-session recognizer tuning.
func (r RecognizerConfig) Options() recognizer.Options {
	return recognizer.Options{
		PartialResults:          r.PartialResults,
		CompleteSilence:         millis(r.CompleteSilenceMS),
		PossiblyCompleteSilence: millis(r.PossiblyCompleteSilenceMS),
		MinimumLength:           millis(r.MinimumLengthMS),
		MaxResults:              r.MaxResults,
	}
}
