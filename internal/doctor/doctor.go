// Package doctor runs readiness diagnostics for config, tools, audio, and
// the speech recognizer.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/audio"
	"github.com/prestond28/road-trip-game-box/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	}}

	c := cfg.Config
	checks = append(checks, checkCommand(c.Speaker.Command.Argv, "speaker.command"))
	if len(c.Hooks.Result.Argv) > 0 {
		checks = append(checks, checkCommand(c.Hooks.Result.Argv, "hooks.result"))
	}
	if c.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications"))
	}

	if strings.EqualFold(c.Wake.Backend, "energy") || strings.EqualFold(c.Recognizer.Backend, "deepgram") {
		checks = append(checks, checkAudioSelection(c))
	}
	checks = append(checks, checkRecognizer(c.Recognizer))
	if c.Gateway.Enable {
		checks = append(checks, checkAddress("gateway.address", c.Gateway.Address))
	}

	return Report{Checks: checks}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRecognizer confirms credentials and that the streaming endpoint
// accepts TCP connections.
func checkRecognizer(cfg config.RecognizerConfig) Check {
	const name = "recognizer"
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "none":
		return Check{Name: name, Pass: true, Message: "disabled; listen requests will alert"}
	case "deepgram":
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}

	if cfg.ResolveAPIKey() == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("api key missing (set recognizer.api_key or $%s)", cfg.APIKeyEnv)}
	}

	hostPort, err := endpointHostPort(cfg.URL)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	conn, err := net.DialTimeout("tcp", hostPort, 2*time.Second)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial %s failed: %v", hostPort, err)}
	}
	_ = conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", hostPort)}
}

func endpointHostPort(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "wss://api.deepgram.com/v1/listen"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid recognizer url %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("recognizer url %q has no host", raw)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "ws", "http":
			port = "80"
		default:
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func checkAddress(name string, address string) Check {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(address)); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("will listen on %s", address)}
}
