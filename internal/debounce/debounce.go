// Package debounce implements keyed trailing-edge debouncing.
//
// Scheduling a task for a key supersedes any task still pending for that key:
// the earlier one is cancelled and only the most recent fn runs, once wait
// has elapsed since the last Schedule. Tasks for different keys are
// independent.
package debounce

import (
	"sync"
	"time"

	"github.com/roach88/formsync/internal/clock"
)

// Debouncer coalesces bursts of work per key.
//
// Thread-safety: all methods are safe for concurrent use. Task functions run
// without the Debouncer's lock held, so they may call back into it.
type Debouncer struct {
	clock clock.Clock
	wait  time.Duration

	mu    sync.Mutex
	gen   uint64
	tasks map[string]*task
}

type task struct {
	gen   uint64
	timer clock.Timer
	fn    func()
}

// New creates a Debouncer that delays tasks by wait on c. A nil c uses the
// wall clock.
func New(c clock.Clock, wait time.Duration) *Debouncer {
	return &Debouncer{
		clock: clock.OrReal(c),
		wait:  wait,
		tasks: make(map[string]*task),
	}
}

// Schedule arranges for fn to run after the debounce interval, replacing any
// task pending for key.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.tasks[key]; ok {
		prev.timer.Stop()
		supersededTotal.Inc()
	}

	d.gen++
	gen := d.gen
	t := &task{gen: gen, fn: fn}
	t.timer = d.clock.AfterFunc(d.wait, func() { d.fire(key, gen) })
	d.tasks[key] = t
}

// Cancel drops the task pending for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	t := d.take(key)
	if t == nil {
		return false
	}
	t.timer.Stop()
	return true
}

// Flush runs the task pending for key immediately on the calling goroutine.
// It reports whether one was pending.
func (d *Debouncer) Flush(key string) bool {
	t := d.take(key)
	if t == nil {
		return false
	}
	t.timer.Stop()
	firedTotal.Inc()
	t.fn()
	return true
}

// Pending reports whether a task is scheduled for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tasks[key]
	return ok
}

// Stop cancels every pending task.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.tasks {
		t.timer.Stop()
		delete(d.tasks, key)
	}
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	t, ok := d.tasks[key]
	if !ok || t.gen != gen {
		// Superseded or cancelled after the timer had already fired.
		d.mu.Unlock()
		return
	}
	delete(d.tasks, key)
	d.mu.Unlock()

	firedTotal.Inc()
	t.fn()
}

func (d *Debouncer) take(key string) *task {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[key]
	if !ok {
		return nil
	}
	delete(d.tasks, key)
	return t
}
