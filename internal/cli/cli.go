package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun      Command = "run"
	CommandStatus   Command = "status"
	CommandListen   Command = "listen"
	CommandWake     Command = "wake"
	CommandSpeak    Command = "speak"
	CommandAwaiting Command = "awaiting"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandEvents   Command = "events"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// argCounts lists how many positional arguments each command takes. -1
// means one or more, joined with spaces.
var argCounts = map[Command]int{
	CommandRun:      0,
	CommandStatus:   0,
	CommandListen:   0,
	CommandWake:     0,
	CommandSpeak:    -1,
	CommandAwaiting: 1,
	CommandStop:     0,
	CommandCancel:   0,
	CommandEvents:   0,
	CommandDevices:  0,
	CommandDoctor:   0,
	CommandVersion:  0,
	CommandHelp:     0,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Text       string
	Awaiting   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			want, ok := argCounts[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			if err := parseArgs(&parsed, want, args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func parseArgs(parsed *Parsed, want int, rest []string) error {
	cmd := parsed.Command
	switch {
	case want == 0 && len(rest) > 0:
		return fmt.Errorf("unexpected arguments after command %q", cmd)
	case want == -1:
		text := strings.TrimSpace(strings.Join(rest, " "))
		if text == "" {
			return fmt.Errorf("%s requires text", cmd)
		}
		parsed.Text = text
	case want == 1:
		if len(rest) != 1 {
			return fmt.Errorf("%s requires exactly one argument", cmd)
		}
		switch strings.ToLower(rest[0]) {
		case "on", "true", "yes":
			parsed.Awaiting = true
		case "off", "false", "no":
			parsed.Awaiting = false
		default:
			return fmt.Errorf("%s expects on or off, got %q", cmd, rest[0])
		}
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  run            Run the voice engine in the foreground
  status         Print engine state
  listen         Open a recognition session without the wake phrase
  wake           Inject a wake-phrase detection
  speak TEXT     Speak TEXT through the configured synthesizer
  awaiting on|off
                 Toggle whether yes/no answers end listening early
  stop           Stop speech output in progress
  cancel         Cancel the active recognition session
  events         Stream engine events as JSON lines
  devices        List available input devices
  doctor         Run configuration and environment checks
  version        Print version information
  help           Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/gamebox/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
