package wake

import (
	"context"
	"sync"
)

// ManualDetector never touches the microphone. Detections are injected with
// Trigger, for example from the `gamebox wake` command.
type ManualDetector struct {
	mu        sync.Mutex
	running   bool
	onTrigger func()
	starts    int
	stops     int
}

func NewManualDetector() *ManualDetector {
	return &ManualDetector{}
}

func (d *ManualDetector) Start(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		d.running = true
		d.starts++
	}
	return nil
}

func (d *ManualDetector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.running = false
		d.stops++
	}
	return nil
}

func (d *ManualDetector) OnTrigger(fn func()) {
	d.mu.Lock()
	d.onTrigger = fn
	d.mu.Unlock()
}

// Trigger simulates a detection. It reports false when the detector is not
// running.
func (d *ManualDetector) Trigger() bool {
	d.mu.Lock()
	running, fn := d.running, d.onTrigger
	d.mu.Unlock()

	if !running || fn == nil {
		return false
	}
	fn()
	return true
}

func (d *ManualDetector) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Counts returns how many times the detector actually started and stopped.
func (d *ManualDetector) Counts() (starts int, stops int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts, d.stops
}
