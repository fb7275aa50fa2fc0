package store

import (
	"sync"
	"time"
)

// debouncer collapses bursts of Schedule calls into one call of fn, delay
// after the last Schedule. Each Schedule resets the delay.
type debouncer struct {
	sched Scheduler
	delay time.Duration
	fn    func()

	mu    sync.Mutex
	gen   uint64
	timer Timer
}

func newDebouncer(sched Scheduler, delay time.Duration, fn func()) *debouncer {
	return &debouncer{sched: sched, delay: delay, fn: fn}
}

func (d *debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs fn unless a later Schedule or Stop superseded this timer. A
// system timer can fire after Stop lost the race, so the generation decides.
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Stop cancels the pending call. It reports whether one was pending.
func (d *debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
