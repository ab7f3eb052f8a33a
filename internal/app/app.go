package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/audio"
	"github.com/prestond28/road-trip-game-box/internal/cli"
	"github.com/prestond28/road-trip-game-box/internal/config"
	"github.com/prestond28/road-trip-game-box/internal/doctor"
	"github.com/prestond28/road-trip-game-box/internal/ipc"
	"github.com/prestond28/road-trip-game-box/internal/logging"
	"github.com/prestond28/road-trip-game-box/internal/version"
)

const binaryName = "gamebox"

const (
	forwardTimeout = 220 * time.Millisecond
	speakTimeout   = 2 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandEvents:
		return r.commandEvents(ctx)
	}

	if req, timeout, ok := forwardRequest(parsed); ok {
		return r.forwardOrFail(ctx, req, timeout)
	}
	fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
	return 2
}

// forwardRequest maps control commands onto engine requests. The engine
// answers speak only after tearing down any live session.
func forwardRequest(parsed cli.Parsed) (ipc.Request, time.Duration, bool) {
	switch parsed.Command {
	case cli.CommandListen:
		return ipc.Request{Command: ipc.CommandListen}, forwardTimeout, true
	case cli.CommandWake:
		return ipc.Request{Command: ipc.CommandWake}, forwardTimeout, true
	case cli.CommandSpeak:
		return ipc.Request{Command: ipc.CommandSpeak, Text: parsed.Text}, speakTimeout, true
	case cli.CommandAwaiting:
		value := parsed.Awaiting
		return ipc.Request{Command: ipc.CommandAwaiting, Value: &value}, forwardTimeout, true
	case cli.CommandStop:
		return ipc.Request{Command: ipc.CommandStop}, forwardTimeout, true
	case cli.CommandCancel:
		return ipc.Request{Command: ipc.CommandCancel}, forwardTimeout, true
	default:
		return ipc.Request{}, 0, false
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// commandStatus prints the engine state, or "stopped" when no engine owns
// the socket.
func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if speaking := resp.Details["speaking"]; speaking == "true" {
		fmt.Fprintln(r.Stdout, "speaking")
	}
	return 0
}

func (r Runner) commandEvents(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(r.Stdout)
	err = ipc.Subscribe(ctx, socketPath, ipc.Request{Command: ipc.CommandEvents}, forwardTimeout, func(resp ipc.Response) error {
		return enc.Encode(resp)
	})
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case isSocketMissing(err), isConnectionRefused(err):
		fmt.Fprintln(r.Stderr, "error: gamebox engine is not running")
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request, timeout time.Duration) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req, timeout)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: gamebox engine is not running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
