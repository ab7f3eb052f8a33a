package speaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/clock"
)

// Guard tracks whether output is audible and owns the timer that clears
// the on-screen result once speaking begins.
type Guard struct {
	clock clock.Clock
	delay time.Duration
	clear func()

	speaking atomic.Bool

	mu      sync.Mutex
	pending clock.Timer
}

// NewGuard returns a guard that calls clear to drop the displayed result.
// A nil clear is a no-op.
func NewGuard(c clock.Clock, delay time.Duration, clear func()) *Guard {
	if c == nil {
		c = clock.Real()
	}
	if clear == nil {
		clear = func() {}
	}
	return &Guard{clock: c, delay: delay, clear: clear}
}

func (g *Guard) IsSpeaking() bool {
	return g.speaking.Load()
}

// Started marks output audible. A showing result stays up for the clear
// delay; otherwise the display is cleared now. It reports false when output
// was already marked as speaking.
func (g *Guard) Started(resultShowing bool) bool {
	if g.speaking.Swap(true) {
		return false
	}

	g.mu.Lock()
	g.stopPendingLocked()
	if resultShowing && g.delay > 0 {
		var t clock.Timer
		t = g.clock.AfterFunc(g.delay, func() {
			g.mu.Lock()
			if g.pending != t {
				g.mu.Unlock()
				return
			}
			g.pending = nil
			g.mu.Unlock()
			g.clear()
		})
		g.pending = t
		g.mu.Unlock()
		return true
	}
	g.mu.Unlock()

	g.clear()
	return true
}

// Ended marks output silent. Finish and cancel both land here. A clear still
// pending runs immediately. It reports false when output was not speaking.
func (g *Guard) Ended() bool {
	if !g.speaking.Swap(false) {
		return false
	}

	g.mu.Lock()
	flush := g.stopPendingLocked()
	g.mu.Unlock()

	if flush {
		g.clear()
	}
	return true
}

func (g *Guard) stopPendingLocked() bool {
	if g.pending == nil {
		return false
	}
	g.pending.Stop()
	g.pending = nil
	return true
}

// Say speaks text and waits for it to finish. A guard delay bounds the
// wait so a synthesizer that never reports completion cannot hold the
// microphone forever.
func Say(ctx context.Context, out Output, text string, limit time.Duration) error {
	done, err := out.Speak(ctx, text)
	if err != nil {
		return err
	}

	var timeout <-chan time.Time
	if limit > 0 {
		timer := time.NewTimer(limit)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		_ = out.Stop()
		return ctx.Err()
	case <-timeout:
		_ = out.Stop()
		return errors.New("speech output did not finish in time")
	}
}
