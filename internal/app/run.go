package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/prestond28/road-trip-game-box/internal/gateway"
	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"github.com/prestond28/road-trip-game-box/internal/output"
)

// commandRun owns the runtime socket and serves the engine until ctx ends.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.DefaultAcquireOptions())
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (socket %s)\n", err, socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	eng, err := Build(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("engine wiring failed", "error", err.Error())
		return 1
	}
	defer eng.Shutdown()

	hook := output.NewResultHook(cfg.Hooks.Result, logger)
	unsubscribe := hook.Attach(eng.Bus())
	defer unsubscribe()
	defer hook.Wait()

	if err := eng.Start(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	errCh := make(chan error, 2)
	servers := 1
	go func() { errCh <- ipc.Serve(serverCtx, listener, eng) }()
	if cfg.Gateway.Enable {
		servers++
		go func() { errCh <- gateway.Serve(serverCtx, cfg.Gateway.Address, eng, logger) }()
	}

	logger.Info("engine running", "socket", socketPath, "gateway", cfg.Gateway.Enable)
	fmt.Fprintln(r.Stdout, "gamebox running")

	var failed error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		servers--
		failed = err
		if failed == nil {
			failed = errors.New("server exited unexpectedly")
		}
	}

	serverCancel()
	for ; servers > 0; servers-- {
		if err := <-errCh; err != nil && failed == nil {
			failed = err
		}
	}
	eng.Shutdown()
	<-eng.Done()

	if failed != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", failed)
		logger.Error("engine server failed", "error", failed.Error())
		return 1
	}
	logger.Info("engine stopped")
	return 0
}
