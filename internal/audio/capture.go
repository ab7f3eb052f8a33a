package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/prestond28/road-trip-game-box/internal/logging"
)

// Capture format shared by every consumer of the microphone.
const (
	SampleRate = 16000
	Channels   = 1
	Encoding   = "linear16"
	ChunkBytes = 640 // 20ms @ 16kHz mono s16
)

// Source is a running PCM stream. Chunks is closed after Stop.
type Source interface {
	Chunks() <-chan []byte
	Stop() error
}

// CaptureFunc opens a new Source. Each wake listener or recognition stream
// owns the Source it opens and must Stop it.
type CaptureFunc func(ctx context.Context) (Source, error)

// DeviceCapture returns a CaptureFunc that re-resolves the preferred
// microphone on every open, so unplugged devices fall back cleanly.
func DeviceCapture(input string, fallback string, logger *slog.Logger) CaptureFunc {
	logger = logging.OrDiscard(logger)
	return func(ctx context.Context) (Source, error) {
		selection, err := SelectDevice(ctx, input, fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn(selection.Warning, "device", selection.Device.ID)
		}
		return StartCapture(ctx, selection.Device)
	}
}

// Capture streams fixed-size PCM chunks from one Pulse source.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture opens a 16kHz mono s16 record stream. Cancelling ctx stops it.
func StartCapture(ctx context.Context, device Device) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	c := newCapture(device)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(ChunkBytes),
		pulse.RecordMediaName(appName+" microphone"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.stopCh:
		}
	}()

	return c, nil
}

func newCapture(device Device) *Capture {
	return &Capture{
		device: device,
		chunks: make(chan []byte, 128),
		stopCh: make(chan struct{}),
	}
}

func (c *Capture) Device() Device {
	return c.device
}

func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop releases the device, flushes the residual partial chunk, and closes
// Chunks. Safe to call more than once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	tail := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(tail) > 0 {
		select {
		case c.chunks <- tail:
		default:
		}
	}
	close(c.chunks)
	return nil
}

func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped so Stop's Wait sees it.
	c.inflight.Add(1)
	defer c.inflight.Done()

	c.pending = append(c.pending, buffer...)
	var ready [][]byte
	for len(c.pending) >= ChunkBytes {
		chunk := make([]byte, ChunkBytes)
		copy(chunk, c.pending[:ChunkBytes])
		c.pending = c.pending[ChunkBytes:]
		ready = append(ready, chunk)
	}
	if len(c.pending) == 0 {
		c.pending = nil
	} else {
		c.pending = append([]byte(nil), c.pending...)
	}
	c.mu.Unlock()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range ready {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}
	return len(buffer), nil
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
