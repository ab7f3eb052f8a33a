package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

var ErrAlreadyRunning = errors.New("gamebox engine already running")

// SocketEnv overrides the control socket location.
const SocketEnv = "GAMEBOX_SOCKET"

// RuntimeSocketPath returns $GAMEBOX_SOCKET, or gamebox.sock under
// $XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(SocketEnv)); override != "" {
		return override, nil
	}
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set (or set $%s)", SocketEnv)
	}
	return filepath.Join(runtimeDir, "gamebox.sock"), nil
}

// AcquireOptions bounds the stale-socket recovery loop.
type AcquireOptions struct {
	ProbeTimeout time.Duration
	Retries      int
	Backoff      time.Duration
}

func DefaultAcquireOptions() AcquireOptions {
	return AcquireOptions{
		ProbeTimeout: 180 * time.Millisecond,
		Retries:      8,
		Backoff:      25 * time.Millisecond,
	}
}

// Acquire claims path as the single-instance control socket. A socket that
// answers a status probe belongs to a live engine and yields
// ErrAlreadyRunning; one that refuses connections is stale and is removed.
// An inconclusive probe leaves the file alone.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			wait := time.NewTimer(opts.Backoff * time.Duration(attempt))
			select {
			case <-ctx.Done():
				wait.Stop()
				return nil, ctx.Err()
			case <-wait.C:
			}
		}

		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}
		lastErr = err

		alive, err := Probe(ctx, path, opts.ProbeTimeout)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case err != nil:
			return nil, fmt.Errorf("probe existing socket %s: %w", path, err)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
	}

	return nil, fmt.Errorf("acquire socket %s after %d retries: %w", path, opts.Retries, lastErr)
}
