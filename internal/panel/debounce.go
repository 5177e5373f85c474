package panel

import (
	"sync"
	"time"
)

// Debouncer runs the last function passed to Trigger once calls have been
// quiet for delay. A zero delay runs every call synchronously.
type Debouncer struct {
	delay time.Duration

	// run is held while a delayed call executes so Stop can wait it out.
	run sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer creates a [Debouncer].
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any pending call.
func (d *Debouncer) Trigger(fn func()) {
	if d.delay <= 0 {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.run.Lock()
		defer d.run.Unlock()

		d.mu.Lock()
		current := gen == d.gen && !d.stopped
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Stop cancels any pending call and waits for a delayed call that is already
// running. Later Triggers are ignored until [Debouncer.Start].
//
// Stop must not be called from inside a triggered function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	// wait for a call that passed its check before stopped was set
	d.run.Lock()
	d.run.Unlock()
}

// Start re-arms a stopped Debouncer. Calls cancelled by Stop stay cancelled.
func (d *Debouncer) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = false
}
