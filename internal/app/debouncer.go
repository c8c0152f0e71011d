package app

import (
	"sync"
	"time"
)

// Debouncer is a restartable trailing-edge timer.
// Each Schedule restarts the window; when the window elapses without another
// Schedule, fn is called once with the latest scheduled value.
type Debouncer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	fn      func(T)
	timer   *time.Timer
	value   T
	pending bool
	gen     uint64
	stopped bool
}

// NewDebouncer creates a debouncer that calls fn after window of quiet.
func NewDebouncer[T any](window time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, fn: fn}
}

// Schedule records v as the latest value and restarts the window.
// It is a no-op after Stop.
func (d *Debouncer[T]) Schedule(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that already fired when Stop was called loses to the newer generation.
	if gen != d.gen || d.stopped || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}

// Cancel drops the pending value without firing.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer[T]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.value = zero
	d.pending = false
	d.gen++
}

// Flush cancels the window and returns the pending value, if any, without
// calling fn.
func (d *Debouncer[T]) Flush() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.value, d.pending
	d.cancelLocked()
	return v, ok
}

// Pending reports whether a window is open.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels the window permanently; later Schedule calls are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}
