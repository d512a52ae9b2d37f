package capture

import (
	"sync"
	"time"
)

// Debouncer runs a function once its trigger has been quiet for the wait
// window. Each Trigger restarts the window and replaces the pending function.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool

	fire sync.Mutex // held while a callback runs
}

// NewDebouncer creates a trailing debouncer
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger schedules fn after the quiet window; it is a no-op after Stop
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.wait, func() {
		d.fire.Lock()
		defer d.fire.Unlock()

		d.mu.Lock()
		current := !d.stopped && d.seq == seq
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Stop cancels the pending function and waits for a running one to return.
// No function runs after Stop returns. It must not be called from fn.
func (d *Debouncer) Stop() {
	d.fire.Lock()
	defer d.fire.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
