// Package recognizer defines the lifecycle contract the engine drives for one
// speech-recognition backend.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable reports that no recognition backend could be constructed.
var ErrUnavailable = errors.New("speech recognizer unavailable")

// Options tune one recognition attempt.
type Options struct {
	PartialResults          bool
	CompleteSilence         time.Duration
	PossiblyCompleteSilence time.Duration
	MinimumLength           time.Duration
	MaxResults              int
}

// DefaultOptions mirrors the tuning used for hands-free game prompts.
func DefaultOptions() Options {
	return Options{
		PartialResults:          true,
		CompleteSilence:         8 * time.Second,
		PossiblyCompleteSilence: 6 * time.Second,
		MinimumLength:           12 * time.Second,
		MaxResults:              10,
	}
}

// Recognizer is a speech-to-text backend with an explicit listener slot.
//
// Cancel, Stop and Destroy are safe to call when nothing is running.
type Recognizer interface {
	Start(ctx context.Context, locale string, opts Options) error
	Stop() error
	Cancel() error
	Destroy() error
	// Attach installs l as the only listener and returns a function that
	// detaches it. Detach is idempotent and never removes a later listener.
	Attach(l Listener) (detach func())
}

// Listener receives recognizer signals. Nil fields are skipped.
type Listener struct {
	OnStart          func()
	OnPartialResults func([]string)
	OnResults        func([]string)
	OnError          func(Error)
	OnEnd            func()
}

// Error is a backend failure delivered through Listener.OnError.
type Error struct {
	Code    string
	Message string
}

func (e Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// BenignPolicy identifies errors emitted as post-session noise.
type BenignPolicy struct {
	Codes     []string
	Substring []string
}

// DefaultBenignPolicy matches the client-side error raised after a
// recognizer has already been cancelled.
func DefaultBenignPolicy() BenignPolicy {
	return BenignPolicy{Codes: []string{"5"}, Substring: []string{"Client side error"}}
}

// Match reports whether err should be swallowed.
func (p BenignPolicy) Match(err Error) bool {
	for _, code := range p.Codes {
		if code != "" && err.Code == code {
			return true
		}
	}
	for _, sub := range p.Substring {
		if sub != "" && strings.Contains(err.Message, sub) {
			return true
		}
	}
	return false
}

// Unavailable stands in when the configured backend cannot be built.
type Unavailable struct {
	Reason error
	Listeners
}

// NewUnavailable wraps reason so every Start reports ErrUnavailable.
func NewUnavailable(reason error) *Unavailable {
	return &Unavailable{Reason: reason}
}

func (u *Unavailable) Start(context.Context, string, Options) error {
	if u.Reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, u.Reason)
}

func (*Unavailable) Stop() error    { return nil }
func (*Unavailable) Cancel() error  { return nil }
func (*Unavailable) Destroy() error { return nil }

// IsUnavailable reports whether err represents missing recognizer wiring.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
