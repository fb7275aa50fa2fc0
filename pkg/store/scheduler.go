package store

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop cancels the call. It reports false if the call already ran or
	// was already stopped.
	Stop() bool
}

// Scheduler arms delayed calls for the persistence pipeline.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemScheduler runs calls on the runtime timer. It is the default.
var SystemScheduler Scheduler = systemScheduler{}

// ManualScheduler runs calls only when virtual time is advanced. Calls run
// synchronously on the goroutine calling Advance, in deadline order.
//
//	sched := store.NewManualScheduler()
//	s, _ := store.New(store.WithAdapter(a), store.WithScheduler(sched))
//	...
//	sched.Advance(100 * time.Millisecond) // debounced write happens here
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	s    *ManualScheduler
	at   time.Duration
	seq  uint64
	fn   func()
	done bool
}

// NewManualScheduler creates a ManualScheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{s: m, at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves virtual time forward by d and runs every call that becomes
// due, including calls scheduled by those calls.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := -1
		for i, t := range m.timers {
			if t.at > target {
				continue
			}
			if next < 0 || t.at < m.timers[next].at ||
				(t.at == m.timers[next].at && t.seq < m.timers[next].seq) {
				next = i
			}
		}
		if next < 0 {
			m.now = target
			m.mu.Unlock()
			return
		}
		t := m.timers[next]
		m.timers = append(m.timers[:next], m.timers[next+1:]...)
		t.done = true
		m.now = t.at
		m.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of armed calls.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Now returns the virtual time elapsed since creation.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (t *manualTimer) Stop() bool {
	m := t.s
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			break
		}
	}
	return true
}
