// Package indicator handles desktop notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/prestond28/road-trip-game-box/internal/logging"
)

// Cues are fire-and-forget signals to the player.
type Cues interface {
	CueListen(context.Context)
	Alert(ctx context.Context, title string, message string)
}

// Display shows engine state on the desktop.
type Display interface {
	ShowListening(context.Context)
	ShowResult(ctx context.Context, text string)
	Hide(context.Context)
}

// Controller is the engine-facing indicator contract.
type Controller interface {
	Cues
	Display
}

// listeningTimeoutMS keeps the listening notification up for the longest
// possible session.
const listeningTimeoutMS = 30000

// Notifier routes indicator output through freedesktop notifications and
// plays cues through Pulse or pw-play.
type Notifier struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
	wg             sync.WaitGroup
}

func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logging.OrDiscard(logger)}
}

// CueListen plays the listen cue.
func (n *Notifier) CueListen(context.Context) {
	n.playCue(cueListen)
}

// ShowListening replaces the current notification with the listening text.
func (n *Notifier) ShowListening(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	text := strings.TrimSpace(n.cfg.TextListening)
	if text == "" {
		text = "Listening…"
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, text, "", listeningTimeoutMS)
	})
}

// ShowResult displays recognized text until it is hidden.
func (n *Notifier) ShowResult(ctx context.Context, text string) {
	n.playCue(cueResult)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, "Heard", text, 0)
	})
}

// Alert surfaces an unavailable subsystem.
func (n *Notifier) Alert(ctx context.Context, title string, message string) {
	n.playCue(cueAlert)
	n.logger.Warn("indicator alert", "title", title, "message", message)
	if !n.cfg.Enable {
		return
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 4000
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, title, message, timeout)
	})
}

// Hide dismisses the active notification.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues have played.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) notify(ctx context.Context, summary string, body string, timeoutMS int) error {
	n.mu.Lock()
	replaceID := n.notificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "gamebox"
	}

	id, err := desktopNotify(ctx, appName, replaceID, summary, body, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.notificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismiss(ctx context.Context) error {
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := emitCue(kind, n.cfg); err != nil {
			n.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}

// Nop discards every indicator call.
type Nop struct{}

func (Nop) CueListen(context.Context)             {}
func (Nop) Alert(context.Context, string, string) {}
func (Nop) ShowListening(context.Context)         {}
func (Nop) ShowResult(context.Context, string)    {}
func (Nop) Hide(context.Context)                  {}
