// Package fsm defines the recognition session lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateListening  State = "listening"
	StateFinalizing State = "finalizing"
	StateTornDown   State = "torn_down"
)

const (
	EventStart         Event = "start"
	EventSpeechStarted Event = "speech_started"
	EventFinalize      Event = "finalize"
	EventTearDown      Event = "tear_down"
	EventReset         Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateStarting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStarting:
		switch event {
		case EventSpeechStarted:
			return StateListening, nil
		case EventFinalize:
			return StateFinalizing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventFinalize:
			return StateFinalizing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateFinalizing:
		switch event {
		case EventTearDown:
			return StateTornDown, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTornDown:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// HoldsMicrophone reports whether a session in state owns the capture path.
func HoldsMicrophone(state State) bool {
	switch state {
	case StateStarting, StateListening, StateFinalizing:
		return true
	default:
		return false
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
