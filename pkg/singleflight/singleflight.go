// Package singleflight provides the two primitives behind debounced,
// non-overlapping refreshes: a Debouncer that keeps only the last scheduled
// task inside a quiet window, and a Guard that admits one holder at a time
// without blocking.
package singleflight

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Debouncer runs the most recently scheduled function once delay has passed
// without another Schedule call.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer builds a Debouncer. A non-positive delay runs tasks on the next
// timer tick.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay}
}

// Schedule cancels any pending task and arms fn. It reports false once the
// Debouncer has been stopped.
func (d *Debouncer) Schedule(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a newer Schedule or Stop won the race with this timer
		if d.stopped || seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
	return true
}

// Cancel drops the pending task, if any, and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Pending reports whether a task is armed and has not fired yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending task and rejects future Schedule calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.seq++
	return true
}

// Guard is a non-blocking single-holder flag.
type Guard struct {
	sem  *semaphore.Weighted
	busy atomic.Bool
}

// NewGuard returns a released Guard.
func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// TryAcquire takes the guard if nobody holds it.
func (g *Guard) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.busy.Store(true)
	return true
}

// Release frees the guard. Calling it without holding the guard is a no-op.
func (g *Guard) Release() {
	if !g.busy.CompareAndSwap(true, false) {
		return
	}
	g.sem.Release(1)
}

// Busy reports whether the guard is currently held.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}
