// Package output hands recognized results to external commands.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/bus"
	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/prestond28/road-trip-game-box/internal/logging"
)

const hookTimeout = 5 * time.Second

// ResultHook pipes every emitted result to a configured command on stdin.
// Runs are serialized so a slow command cannot reorder results.
type ResultHook struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger

	runMu sync.Mutex
	wg    sync.WaitGroup
}

// NewResultHook returns nil when no command is configured.
func NewResultHook(cmd config.CommandConfig, logger *slog.Logger) *ResultHook {
	if len(cmd.Argv) == 0 {
		return nil
	}
	return &ResultHook{
		argv:    append([]string(nil), cmd.Argv...),
		timeout: hookTimeout,
		logger:  logging.OrDiscard(logger),
	}
}

// Attach subscribes the hook to results on b. A nil hook attaches nothing.
func (h *ResultHook) Attach(b *bus.Bus) bus.Subscription {
	if h == nil {
		return func() {}
	}
	return b.OnResult(h.dispatch)
}

// dispatch must not block: bus delivery runs on the engine serializer.
func (h *ResultHook) dispatch(text string) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.Run(context.Background(), text); err != nil {
			h.logger.Warn("result hook failed", "command", h.argv[0], "error", err.Error())
		}
	}()
}

// Run executes the hook once and waits for it.
func (h *ResultHook) Run(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := runCommandWithInput(runCtx, h.argv, text+"\n"); err != nil {
		return fmt.Errorf("run result hook: %w", err)
	}
	h.logger.Debug("result hook ran", "command", h.argv[0])
	return nil
}

// Wait blocks until dispatched runs have finished.
func (h *ResultHook) Wait() {
	if h != nil {
		h.wg.Wait()
	}
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
