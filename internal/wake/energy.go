package wake

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/audio"
	"github.com/prestond28/road-trip-game-box/internal/logging"
)

// EnergyConfig tunes the RMS hysteresis used by EnergyDetector. Frame counts
// are in 20ms capture chunks.
type EnergyConfig struct {
	SpeechThreshold  float64
	SilenceThreshold float64
	SpeechFrames     int
	SilenceFrames    int
	Cooldown         time.Duration
}

func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		SpeechThreshold:  0.015,
		SilenceThreshold: 0.008,
		SpeechFrames:     3,
		SilenceFrames:    30,
		Cooldown:         1500 * time.Millisecond,
	}
}

// EnergyDetector fires a trigger at the onset of sustained voice energy.
// It stands in for a keyword model: any utterance loud enough to cross the
// speech threshold counts as the wake phrase.
type EnergyDetector struct {
	cfg     EnergyConfig
	capture audio.CaptureFunc
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	onTrigger func()
	source    audio.Source
	done      chan struct{}
}

func NewEnergyDetector(cfg EnergyConfig, capture audio.CaptureFunc, logger *slog.Logger) *EnergyDetector {
	logger = logging.OrDiscard(logger)
	return &EnergyDetector{cfg: cfg, capture: capture, logger: logger, now: time.Now}
}

func (d *EnergyDetector) OnTrigger(fn func()) {
	d.mu.Lock()
	d.onTrigger = fn
	d.mu.Unlock()
}

// Start opens the microphone and begins scanning. Starting twice is a no-op.
func (d *EnergyDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.source != nil {
		return nil
	}
	if d.capture == nil {
		return errors.New("wake detector has no audio capture")
	}
	source, err := d.capture(ctx)
	if err != nil {
		return err
	}
	d.source = source
	d.done = make(chan struct{})
	go d.scan(source.Chunks(), d.done)
	return nil
}

// Stop releases the microphone. It does not wait for the scan loop, which
// may itself be the caller when a trigger handler stops the listener; use
// Wait for that.
func (d *EnergyDetector) Stop() error {
	d.mu.Lock()
	source := d.source
	d.source = nil
	d.mu.Unlock()

	if source == nil {
		return nil
	}
	return source.Stop()
}

// Wait blocks until the most recent scan loop has exited.
func (d *EnergyDetector) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (d *EnergyDetector) scan(chunks <-chan []byte, done chan struct{}) {
	defer close(done)

	vad := newHysteresis(d.cfg)
	var last time.Time
	for chunk := range chunks {
		if !vad.onset(audio.Level(chunk)) {
			continue
		}
		now := d.now()
		if !last.IsZero() && now.Sub(last) < d.cfg.Cooldown {
			continue
		}
		last = now

		d.mu.Lock()
		fn := d.onTrigger
		d.mu.Unlock()

		d.logger.Debug("wake energy onset")
		if fn != nil {
			fn()
		}
	}
}

// hysteresis reports the silence-to-speech edge of an RMS stream.
type hysteresis struct {
	cfg      EnergyConfig
	inSpeech bool
	speech   int
	silence  int
}

func newHysteresis(cfg EnergyConfig) *hysteresis {
	return &hysteresis{cfg: cfg}
}

func (h *hysteresis) onset(level float64) bool {
	if h.inSpeech {
		if level < h.cfg.SilenceThreshold {
			h.silence++
			if h.silence >= h.cfg.SilenceFrames {
				h.inSpeech = false
				h.silence = 0
			}
		} else {
			h.silence = 0
		}
		return false
	}

	if level < h.cfg.SpeechThreshold {
		h.speech = 0
		return false
	}
	h.speech++
	if h.speech < h.cfg.SpeechFrames {
		return false
	}
	h.inSpeech = true
	h.speech = 0
	return true
}
