// Package wake owns the wake-word listener and the guard that decides when
// it may hold the microphone.
package wake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prestond28/road-trip-game-box/internal/logging"
)

// Detector is a wake-word listener. Start and Stop must be idempotent, and
// OnTrigger registers the single callback invoked per detection.
type Detector interface {
	Start(ctx context.Context) error
	Stop() error
	OnTrigger(fn func())
}

// Guard tracks whether the wake listener is running and whether its restart
// has been deferred until speech output finishes.
type Guard struct {
	logger   *slog.Logger
	detector Detector

	// mu serializes Start/Stop. Flags are atomic so detector callbacks never
	// wait on a Stop that is itself waiting for the detector.
	mu       sync.Mutex
	active   atomic.Bool
	deferred atomic.Bool
	onWake   atomic.Pointer[func()]
}

func NewGuard(detector Detector, logger *slog.Logger) *Guard {
	logger = logging.OrDiscard(logger)
	g := &Guard{logger: logger, detector: detector}
	detector.OnTrigger(g.trigger)
	return g
}

// OnWake sets the handler for accepted detections.
func (g *Guard) OnWake(fn func()) {
	g.onWake.Store(&fn)
}

// Start runs the listener and clears any deferral. Starting while active is
// a no-op. A failed start leaves the deferral in place.
func (g *Guard) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active.Load() {
		g.deferred.Store(false)
		return nil
	}
	if err := g.detector.Start(ctx); err != nil {
		return fmt.Errorf("start wake listener: %w", err)
	}
	g.active.Store(true)
	g.deferred.Store(false)
	g.logger.Debug("wake listener started")
	return nil
}

// Stop releases the microphone held by the listener. It does not touch the
// deferral flag.
func (g *Guard) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active.Swap(false) {
		return nil
	}
	if err := g.detector.Stop(); err != nil {
		return fmt.Errorf("stop wake listener: %w", err)
	}
	g.logger.Debug("wake listener stopped")
	return nil
}

// Defer records that the listener should restart when output finishes.
func (g *Guard) Defer() {
	g.deferred.Store(true)
}

func (g *Guard) Deferred() bool {
	return g.deferred.Load()
}

func (g *Guard) IsActive() bool {
	return g.active.Load()
}

// Fire injects a detection as if the listener heard the wake phrase. It
// reports false when the listener is not running.
func (g *Guard) Fire() bool {
	if !g.active.Load() {
		return false
	}
	g.trigger()
	return true
}

// trigger forwards a detection only while the listener is active, so late
// callbacks from a stopped detector are dropped.
func (g *Guard) trigger() {
	if !g.active.Load() {
		g.logger.Debug("wake trigger ignored; listener inactive")
		return
	}
	if fn := g.onWake.Load(); fn != nil && *fn != nil {
		(*fn)()
	}
}
