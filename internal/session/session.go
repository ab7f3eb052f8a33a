// Package session models one speech-recognition attempt: its lifecycle
// state, the signals it reacts to, and the staged plans that open and close it.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prestond28/road-trip-game-box/internal/clock"
	"github.com/prestond28/road-trip-game-box/internal/fsm"
)

// Origin records what opened a session.
type Origin string

const (
	OriginWake         Origin = "wake"
	OriginProgrammatic Origin = "programmatic"
)

// Session is the single owned record of one recognition attempt. Signal
// methods mutate it and return the side effects the owner must perform.
type Session struct {
	Generation uint64
	ID         string
	Origin     Origin
	State      fsm.State
	StartedAt  time.Time

	SawNaturalEnd    bool
	EmittedResult    bool
	CleanupRequested bool
	CuePlayed        bool
	LastPartialText  string

	Timeout  clock.Timer
	Fallback clock.Timer
}

// Outcome lists the side effects produced by one signal.
type Outcome struct {
	// EnteredListening is set on the starting -> listening transition.
	EnteredListening bool
	// Emit is a result to publish. Empty means nothing to publish.
	Emit string
	// Display is the latest recognized text worth showing.
	Display string
	// ArmFallback asks the owner to arm the post-end fallback teardown.
	ArmFallback bool
	// Teardown asks the owner to request teardown, with Reason.
	Teardown bool
	Reason   string
}

// New opens a session in the starting state.
func New(generation uint64, origin Origin, now time.Time) *Session {
	state, _ := fsm.Transition(fsm.StateIdle, fsm.EventStart)
	return &Session{
		Generation: generation,
		ID:         uuid.NewString(),
		Origin:     origin,
		State:      state,
		StartedAt:  now,
	}
}

// Active reports whether the session still accepts recognizer signals.
func (s *Session) Active() bool {
	if s == nil || s.CleanupRequested {
		return false
	}
	return s.State == fsm.StateStarting || s.State == fsm.StateListening
}

// SpeechStarted handles the recognizer start signal. Only the first one counts.
func (s *Session) SpeechStarted() Outcome {
	if s.CleanupRequested || s.State != fsm.StateStarting {
		return Outcome{}
	}
	s.State, _ = fsm.Transition(s.State, fsm.EventSpeechStarted)
	return Outcome{EnteredListening: true}
}

// Partial handles interim results and runs early-exit matching.
func (s *Session) Partial(values []string, awaitingAnswer bool, m Matcher) Outcome {
	if s.CleanupRequested || s.State != fsm.StateListening || len(values) == 0 {
		return Outcome{}
	}

	var out Outcome
	primary := strings.TrimSpace(values[0])
	if primary != "" && primary != s.LastPartialText {
		s.LastPartialText = primary
		out.Display = primary
	}

	if s.EmittedResult || !m.Match(values, awaitingAnswer) {
		return out
	}

	text := primary
	if text == "" {
		text = firstNonEmpty(values)
	}
	s.EmittedResult = true
	out.Emit = text
	return out
}

// Final handles the final result signal and always requests teardown.
func (s *Session) Final(values []string) Outcome {
	if s.CleanupRequested || s.State != fsm.StateListening {
		return Outcome{}
	}

	out := Outcome{Teardown: true, Reason: "final result"}
	text := ""
	if len(values) > 0 {
		text = strings.TrimSpace(values[0])
	}
	if text != "" && !s.EmittedResult {
		s.EmittedResult = true
		s.LastPartialText = text
		out.Emit = text
		out.Display = text
	}
	return out
}

// End handles the natural end-of-speech signal.
func (s *Session) End() Outcome {
	if s.CleanupRequested || !fsm.HoldsMicrophone(s.State) || s.SawNaturalEnd {
		return Outcome{}
	}
	s.SawNaturalEnd = true
	return Outcome{ArmFallback: true}
}

// Failed handles a recognizer error. Benign errors are dropped.
func (s *Session) Failed(benign bool) Outcome {
	if s.CleanupRequested || benign {
		return Outcome{}
	}
	return Outcome{Teardown: true, Reason: "recognizer error"}
}

// RequestCleanup marks the session for teardown. It reports true only for
// the first request.
func (s *Session) RequestCleanup() bool {
	if s.CleanupRequested {
		return false
	}
	s.CleanupRequested = true
	if next, err := fsm.Transition(s.State, fsm.EventFinalize); err == nil {
		s.State = next
	}
	return true
}

// Complete marks teardown finished and releases timers.
func (s *Session) Complete() {
	s.StopTimers()
	if next, err := fsm.Transition(s.State, fsm.EventTearDown); err == nil {
		s.State = next
	}
}

// StopTimers cancels the hard timeout and the post-end fallback.
func (s *Session) StopTimers() {
	if s.Timeout != nil {
		s.Timeout.Stop()
		s.Timeout = nil
	}
	if s.Fallback != nil {
		s.Fallback.Stop()
		s.Fallback = nil
	}
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
