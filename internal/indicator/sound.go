package indicator

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/prestond28/road-trip-game-box/internal/config"
)

type cueKind int

const (
	cueListen cueKind = iota + 1
	cueResult
	cueAlert
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueRampMax    = 5 * time.Millisecond
	cueFileLimit  = 4 * time.Second
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

// cueDef pairs a synthesized fallback with the config field that may
// replace it with a sound file.
type cueDef struct {
	name string
	file func(config.IndicatorConfig) string
	pcm  func() []int16
}

func synthesized(tones ...toneSpec) func() []int16 {
	return sync.OnceValue(func() []int16 { return synthesizeCue(tones) })
}

var cueDefs = map[cueKind]cueDef{
	cueListen: {
		name: "listen",
		file: func(c config.IndicatorConfig) string { return c.SoundListenFile },
		pcm: synthesized(
			toneSpec{frequencyHz: 660, duration: 60 * time.Millisecond, volume: 0.2},
			toneSpec{frequencyHz: 880, duration: 60 * time.Millisecond, volume: 0.2},
			toneSpec{frequencyHz: 1320, duration: 90 * time.Millisecond, volume: 0.2},
		),
	},
	cueResult: {
		name: "result",
		file: func(c config.IndicatorConfig) string { return c.SoundResultFile },
		pcm:  synthesized(toneSpec{frequencyHz: 988, duration: 80 * time.Millisecond, volume: 0.16}),
	},
	cueAlert: {
		name: "alert",
		file: func(c config.IndicatorConfig) string { return c.SoundAlertFile },
		pcm: synthesized(
			toneSpec{frequencyHz: 440, duration: 110 * time.Millisecond, volume: 0.2},
			toneSpec{frequencyHz: 330, duration: 160 * time.Millisecond, volume: 0.2},
		),
	},
}

func (k cueKind) String() string {
	if def, ok := cueDefs[k]; ok {
		return def.name
	}
	return "unknown"
}

// emitCue plays the configured file for kind, falling back to the built-in
// tone when no file is set or the file cannot be played.
func emitCue(kind cueKind, cfg config.IndicatorConfig) error {
	if path := cuePath(kind, cfg); path != "" {
		if err := playCueFile(path); err == nil {
			return nil
		}
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playPCM(samples)
}

func cuePath(kind cueKind, cfg config.IndicatorConfig) string {
	def, ok := cueDefs[kind]
	if !ok {
		return ""
	}
	return expandUserPath(def.file(cfg))
}

func cueSamples(kind cueKind) []int16 {
	def, ok := cueDefs[kind]
	if !ok {
		return nil
	}
	return def.pcm()
}

func expandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}

func playCueFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cueFileLimit)
	defer cancel()

	if err := exec.CommandContext(ctx, "pw-play", "--media-role", "Notification", path).Run(); err != nil {
		return fmt.Errorf("play cue file %q: %w", path, err)
	}
	return nil
}

// playPCM streams mono s16 samples to the default Pulse sink and blocks
// until they drain.
func playPCM(samples []int16) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("gamebox cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("gamebox"),
		pulse.ClientApplicationIconName("input-gaming"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// synthesizeCue renders tones back to back with a short silence between.
func synthesizeCue(tones []toneSpec) []int16 {
	var pcm []int16
	gap := make([]int16, samplesForDuration(cueGap))
	for i, tone := range tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(tone)...)
	}
	return pcm
}

func synthesizeTone(tone toneSpec) []int16 {
	n := samplesForDuration(tone.duration)
	if n <= 0 || tone.frequencyHz <= 0 || tone.volume <= 0 {
		return nil
	}
	ramp := max(1, min(n/10, samplesForDuration(cueRampMax)))

	pcm := make([]int16, n)
	step := 2 * math.Pi * tone.frequencyHz / cueSampleRate
	for i := range pcm {
		gain := tone.volume * envelope(i, n, ramp)
		pcm[i] = int16(math.Round(math.Sin(step*float64(i)) * gain * math.MaxInt16))
	}
	return pcm
}

// envelope is a linear attack and release of ramp samples at each end.
func envelope(i, n, ramp int) float64 {
	edge := min(i, n-1-i)
	if edge >= ramp {
		return 1
	}
	return float64(edge) / float64(ramp)
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
