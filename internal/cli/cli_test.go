package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/gamebox.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/gamebox.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantErr      string
		wantCmd      Command
		wantHelp     bool
		wantPath     string
		wantText     string
		wantAwaiting bool
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantCmd: CommandVersion,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"toggle"},
			wantErr: "unknown command",
		},
		{
			name:     "speak joins words",
			args:     []string{"speak", "your", "turn"},
			wantCmd:  CommandSpeak,
			wantText: "your turn",
		},
		{
			name:    "speak without text",
			args:    []string{"speak", " "},
			wantErr: "speak requires text",
		},
		{
			name:         "awaiting on",
			args:         []string{"awaiting", "on"},
			wantCmd:      CommandAwaiting,
			wantAwaiting: true,
		},
		{
			name:     "awaiting off with config",
			args:     []string{"--config", "/tmp/cfg", "awaiting", "OFF"},
			wantCmd:  CommandAwaiting,
			wantPath: "/tmp/cfg",
		},
		{
			name:    "awaiting bad value",
			args:    []string{"awaiting", "maybe"},
			wantErr: "expects on or off",
		},
		{
			name:    "awaiting missing value",
			args:    []string{"awaiting"},
			wantErr: "requires exactly one argument",
		},
		{
			name:    "run",
			args:    []string{"run"},
			wantCmd: CommandRun,
		},
		{
			name:    "events",
			args:    []string{"events"},
			wantCmd: CommandEvents,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantText, parsed.Text)
			require.Equal(t, tc.wantAwaiting, parsed.Awaiting)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("gamebox")
	for _, want := range []string{"run", "listen", "speak TEXT", "awaiting on|off", "events", "doctor", "--config PATH"} {
		require.Contains(t, text, want)
	}
}
