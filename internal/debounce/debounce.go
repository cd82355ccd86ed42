// Package debounce coalesces bursts of change notifications into a single
// trigger that fires after a quiet period.
package debounce

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// DefaultWindow is the quiet period the playground waits for after the last
// edit before re-rendering.
const DefaultWindow = 300 * time.Millisecond

// Debouncer holds a single pending-trigger slot.
//
// Every Schedule call supersedes whatever was pending. A trigger runs only if
// no later Schedule, Cancel or Stop happened before its window elapsed; a
// sequence number guards against timers that expired while a superseding call
// was in flight.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	debounce func(f func())
	seq      uint64
	pending  bool
	stopped  bool
}

// New creates a debouncer with the given quiet window.
// A non-positive window falls back to DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		window:   window,
		debounce: debounce.New(window),
	}
}

// Window returns the quiet period.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Schedule arms trigger, replacing any pending trigger.
func (d *Debouncer) Schedule(trigger func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.seq++
	current := d.seq
	d.pending = true

	d.debounce(func() {
		d.mu.Lock()
		if d.stopped || !d.pending || d.seq != current {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.mu.Unlock()

		trigger()
	})
}

// Cancel drops the pending trigger, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	d.pending = false
	// Replace the armed timer with a no-op so nothing stays scheduled.
	d.debounce(func() {})
}

// Pending reports whether a trigger is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels the pending trigger and ignores all future Schedule calls.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	d.seq++
	d.pending = false
	d.debounce(func() {})
}
