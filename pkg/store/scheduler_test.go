package store

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualSchedulerOrder(t *testing.T) {
	sched := NewManualScheduler()
	var order []string

	sched.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	sched.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	sched.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

	sched.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 20*time.Millisecond, sched.Now())
	assert.Equal(t, 1, sched.Pending())

	sched.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, sched.Pending())
}

func TestManualSchedulerStop(t *testing.T) {
	sched := NewManualScheduler()
	fired := false
	timer := sched.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	sched.Advance(time.Hour)
	assert.False(t, fired)

	timer = sched.AfterFunc(time.Second, func() {})
	sched.Advance(time.Second)
	assert.False(t, timer.Stop(), "stopping a fired timer reports false")
}

func TestManualSchedulerRunsCallsScheduledByCalls(t *testing.T) {
	sched := NewManualScheduler()
	var at []time.Duration

	sched.AfterFunc(10*time.Millisecond, func() {
		at = append(at, sched.Now())
		sched.AfterFunc(10*time.Millisecond, func() { at = append(at, sched.Now()) })
	})

	sched.Advance(25 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, at)
}

func TestDebouncerResets(t *testing.T) {
	sched := NewManualScheduler()
	calls := 0
	d := newDebouncer(sched, 100*time.Millisecond, func() { calls++ })

	d.Schedule()
	sched.Advance(60 * time.Millisecond)
	d.Schedule()
	sched.Advance(60 * time.Millisecond)
	assert.Zero(t, calls)
	assert.True(t, d.Pending())
	assert.Equal(t, 1, sched.Pending(), "a reset replaces the timer instead of stacking")

	sched.Advance(40 * time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.False(t, d.Pending())
}

func TestDebouncerStop(t *testing.T) {
	sched := NewManualScheduler()
	calls := 0
	d := newDebouncer(sched, time.Millisecond, func() { calls++ })

	assert.False(t, d.Stop())
	d.Schedule()
	assert.True(t, d.Stop())
	sched.Advance(time.Second)
	assert.Zero(t, calls)
}

func TestDebouncerIgnoresStaleFire(t *testing.T) {
	// A system timer may fire after Stop lost the race; simulate it by
	// firing an old generation by hand.
	var calls atomic.Int32
	d := newDebouncer(NewManualScheduler(), time.Second, func() { calls.Add(1) })

	d.Schedule()
	stale := d.gen
	d.Schedule()

	d.fire(stale)
	assert.Zero(t, calls.Load())

	d.fire(d.gen)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSystemScheduler(t *testing.T) {
	done := make(chan struct{})
	SystemScheduler.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
}
