// Package debounce coalesces bursts of input into one trailing call.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiescence window used for search input
const DefaultDelay = 400 * time.Millisecond

// Debouncer runs fn with the latest value once no new value arrived for the delay.
// Each Trigger cancels the pending run. It is safe for concurrent use.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	pending bool
	value   T
	stopped bool
}

// New creates a debouncer. A zero delay runs fn synchronously on Trigger.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger schedules fn(v), replacing any pending run
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.value = v
	d.pending = true

	if d.delay <= 0 {
		d.pending = false
		d.mu.Unlock()
		d.fn(v)
		return
	}

	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
	d.mu.Unlock()
}

// fire runs the payload only if no later Trigger superseded it
func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.pending = false
	v := d.value
	d.mu.Unlock()
	d.fn(v)
}

// Flush runs the pending call now, if any
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.seq++
	v := d.value
	d.mu.Unlock()
	d.fn(v)
}

// Cancel drops the pending call
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.seq++
}

// Pending reports whether a call is scheduled
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels and disables the debouncer
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.stopped = true
}
