package wake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prestond28/road-trip-game-box/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestGuardStartStopIdempotent(t *testing.T) {
	det := NewManualDetector()
	g := NewGuard(det, nil)

	require.NoError(t, g.Start(context.Background()))
	require.NoError(t, g.Start(context.Background()))
	require.True(t, g.IsActive())

	require.NoError(t, g.Stop())
	require.NoError(t, g.Stop())
	require.False(t, g.IsActive())

	starts, stops := det.Counts()
	require.Equal(t, 1, starts)
	require.Equal(t, 1, stops)
}

func TestGuardDeferClearedByStart(t *testing.T) {
	g := NewGuard(NewManualDetector(), nil)

	g.Defer()
	require.True(t, g.Deferred())
	require.NoError(t, g.Stop())
	require.True(t, g.Deferred())

	require.NoError(t, g.Start(context.Background()))
	require.False(t, g.Deferred())
}

type failingDetector struct{ ManualDetector }

func (f *failingDetector) Start(context.Context) error { return errors.New("mic busy") }

func TestGuardFailedStartKeepsDeferral(t *testing.T) {
	g := NewGuard(&failingDetector{}, nil)
	g.Defer()

	err := g.Start(context.Background())
	require.ErrorContains(t, err, "start wake listener: mic busy")
	require.False(t, g.IsActive())
	require.True(t, g.Deferred())
}

func TestGuardForwardsTriggersOnlyWhileActive(t *testing.T) {
	det := NewManualDetector()
	g := NewGuard(det, nil)
	wakes := 0
	g.OnWake(func() { wakes++ })

	require.False(t, det.Trigger())

	require.NoError(t, g.Start(context.Background()))
	require.True(t, det.Trigger())
	require.Equal(t, 1, wakes)

	// A stale detector callback after Stop is dropped.
	require.NoError(t, g.Stop())
	g.trigger()
	require.Equal(t, 1, wakes)
}

type fakeSource struct {
	chunks chan []byte
	once   sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{chunks: make(chan []byte, 256)}
}

func (s *fakeSource) Chunks() <-chan []byte { return s.chunks }

func (s *fakeSource) Stop() error {
	s.once.Do(func() { close(s.chunks) })
	return nil
}

func frame(level int16) []byte {
	out := make([]byte, audio.ChunkBytes)
	for i := 0; i < len(out); i += 2 {
		out[i] = byte(level)
		out[i+1] = byte(uint16(level) >> 8)
	}
	return out
}

func TestEnergyDetectorTriggersOnSustainedSpeech(t *testing.T) {
	src := newFakeSource()
	det := NewEnergyDetector(DefaultEnergyConfig(), func(context.Context) (audio.Source, error) {
		return src, nil
	}, nil)

	triggered := make(chan struct{}, 4)
	det.OnTrigger(func() { triggered <- struct{}{} })

	require.NoError(t, det.Start(context.Background()))
	require.NoError(t, det.Start(context.Background()))

	loud, quiet := frame(3000), frame(0)
	src.chunks <- loud
	src.chunks <- quiet
	src.chunks <- loud
	src.chunks <- loud
	src.chunks <- loud

	select {
	case <-triggered:
	case <-time.After(2 * time.Second):
		t.Fatal("expected wake trigger")
	}

	require.NoError(t, det.Stop())
	require.NoError(t, det.Stop())
	det.Wait()
	require.Empty(t, triggered)
}

func TestEnergyDetectorCaptureErrors(t *testing.T) {
	det := NewEnergyDetector(DefaultEnergyConfig(), func(context.Context) (audio.Source, error) {
		return nil, errors.New("no microphones found")
	}, nil)
	require.ErrorContains(t, det.Start(context.Background()), "no microphones")

	require.Error(t, NewEnergyDetector(DefaultEnergyConfig(), nil, nil).Start(context.Background()))
}

func TestHysteresisCooldownAndRelease(t *testing.T) {
	cfg := DefaultEnergyConfig()
	h := newHysteresis(cfg)

	onsets := 0
	feed := func(level float64, n int) {
		for i := 0; i < n; i++ {
			if h.onset(level) {
				onsets++
			}
		}
	}

	feed(0.05, 10)
	require.Equal(t, 1, onsets)

	// Short dips do not end speech.
	feed(0.001, cfg.SilenceFrames-1)
	feed(0.05, 5)
	require.Equal(t, 1, onsets)

	feed(0.001, cfg.SilenceFrames)
	feed(0.05, cfg.SpeechFrames)
	require.Equal(t, 2, onsets)
}

func TestEnergyDetectorCooldownSuppressesRetrigger(t *testing.T) {
	cfg := DefaultEnergyConfig()
	cfg.SilenceFrames = 1
	src := newFakeSource()
	det := NewEnergyDetector(cfg, func(context.Context) (audio.Source, error) { return src, nil }, nil)
	now := time.Unix(0, 0)
	det.now = func() time.Time { return now }

	count := 0
	det.OnTrigger(func() { count++ })
	require.NoError(t, det.Start(context.Background()))

	burst := func() {
		for i := 0; i < cfg.SpeechFrames; i++ {
			src.chunks <- frame(3000)
		}
		src.chunks <- frame(0)
	}
	burst()
	burst()
	require.NoError(t, det.Stop())
	det.Wait()
	require.Equal(t, 1, count)
}

func TestGuardFireRequiresActiveListener(t *testing.T) {
	g := NewGuard(NewManualDetector(), nil)
	fired := 0
	g.OnWake(func() { fired++ })

	require.False(t, g.Fire())
	require.NoError(t, g.Start(context.Background()))
	require.True(t, g.Fire())
	require.Equal(t, 1, fired)
}

func TestNewDetectorBackends(t *testing.T) {
	det, err := NewDetector("Energy", DefaultEnergyConfig(), nil, nil)
	require.NoError(t, err)
	require.IsType(t, &EnergyDetector{}, det)

	det, err = NewDetector("manual", DefaultEnergyConfig(), nil, nil)
	require.NoError(t, err)
	require.IsType(t, &ManualDetector{}, det)

	_, err = NewDetector("porcupine", DefaultEnergyConfig(), nil, nil)
	require.ErrorIs(t, err, ErrNoDetector)
}
