// Package speaker drives text-to-speech output and tracks whether the
// speaker currently owns the audio path.
package speaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/prestond28/road-trip-game-box/internal/logging"
)

var ErrEmptyText = errors.New("nothing to speak")

// Listener receives output lifecycle signals. Every utterance that starts
// ends with exactly one of OnFinish or OnCancel.
type Listener struct {
	OnStart  func()
	OnFinish func()
	OnCancel func()
}

// Output is a speech synthesizer. Speak returns a channel closed when the
// utterance finishes or is cancelled.
type Output interface {
	Speak(ctx context.Context, text string) (<-chan struct{}, error)
	Stop() error
	SetListener(l Listener)
}

// CommandOutput speaks by running an external synthesizer with the text on
// stdin, e.g. `espeak-ng --stdin`.
type CommandOutput struct {
	argv   []string
	logger *slog.Logger

	mu       sync.Mutex
	listener Listener
	current  *utterance
}

type utterance struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled bool
}

func NewCommandOutput(argv []string, logger *slog.Logger) *CommandOutput {
	logger = logging.OrDiscard(logger)
	return &CommandOutput{argv: append([]string(nil), argv...), logger: logger}
}

func (o *CommandOutput) SetListener(l Listener) {
	o.mu.Lock()
	o.listener = l
	o.mu.Unlock()
}

// Speak interrupts any utterance in progress, then starts text.
func (o *CommandOutput) Speak(ctx context.Context, text string) (<-chan struct{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(o.argv) == 0 {
		return nil, errors.New("speaker command argv cannot be empty")
	}
	_ = o.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, o.argv[0], o.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start speaker %s: %w", o.argv[0], err)
	}

	u := &utterance{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.current = u
	listener := o.listener
	o.mu.Unlock()

	if listener.OnStart != nil {
		listener.OnStart()
	}
	go o.wait(cmd, u)
	return u.done, nil
}

func (o *CommandOutput) wait(cmd *exec.Cmd, u *utterance) {
	err := cmd.Wait()
	u.cancel()

	o.mu.Lock()
	if o.current == u {
		o.current = nil
	}
	cancelled := u.cancelled
	listener := o.listener
	o.mu.Unlock()

	switch {
	case cancelled:
		if listener.OnCancel != nil {
			listener.OnCancel()
		}
	default:
		if err != nil {
			o.logger.Warn("speaker command failed", "error", err)
		}
		if listener.OnFinish != nil {
			listener.OnFinish()
		}
	}
	close(u.done)
}

// Stop cancels the current utterance and waits for its terminal signal.
func (o *CommandOutput) Stop() error {
	o.mu.Lock()
	u := o.current
	if u != nil {
		u.cancelled = true
	}
	o.mu.Unlock()

	if u == nil {
		return nil
	}
	u.cancel()
	<-u.done
	return nil
}
