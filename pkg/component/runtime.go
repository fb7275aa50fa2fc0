package component

import (
	"context"
	"errors"
	"sync"
)

// ErrRuntimeClosed is returned by Run after Close.
var ErrRuntimeClosed = errors.New("component: runtime closed")

// Runtime coalesces re-render requests and serializes work onto one event
// loop. It implements batch.Batcher.
type Runtime struct {
	mu         sync.Mutex
	batchDepth int
	pending    []Listener

	queue     chan func()
	closeOnce sync.Once
	done      chan struct{}
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

type runtimeConfig struct {
	queueSize int
}

// WithQueueSize sets the Dispatch queue capacity. Default: 256.
func WithQueueSize(n int) RuntimeOption {
	return func(c *runtimeConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// NewRuntime creates a Runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	cfg := runtimeConfig{queueSize: 256}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Runtime{
		queue: make(chan func(), cfg.queueSize),
		done:  make(chan struct{}),
	}
}

// NewRoot creates a root Owner bound to this runtime.
func (r *Runtime) NewRoot() *Owner {
	o := NewOwner(nil)
	o.runtime = r
	return o
}

// Batch runs fn and renders every listener scheduled during it once, after
// the outermost batch returns. Batches nest. A panic in fn propagates
// unchanged; listeners already queued still render on the way out.
func (r *Runtime) Batch(fn func()) {
	r.mu.Lock()
	r.batchDepth++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.batchDepth--
		complete := r.batchDepth == 0
		r.mu.Unlock()

		if complete {
			r.flush()
		}
	}()

	fn()
}

// Schedule queues l for rendering, or renders it now outside a batch.
// Owners bound to the runtime call it from MarkDirty.
func (r *Runtime) Schedule(l Listener) {
	r.mu.Lock()
	if r.batchDepth > 0 {
		r.pending = append(r.pending, l)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	l.Render()
}

// flush deduplicates and renders all pending listeners.
func (r *Runtime) flush() {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(pending))
	for _, l := range pending {
		if seen[l.ID()] {
			continue
		}
		seen[l.ID()] = true
		l.Render()
	}
}

// Dispatch queues fn to run on the event loop started by Run. It is safe to
// call from any goroutine and returns false if the runtime is closed or the
// queue is full.
func (r *Runtime) Dispatch(fn func()) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	select {
	case r.queue <- fn:
		return true
	default:
		return false
	}
}

// Run processes dispatched work, each item inside its own Batch, until ctx
// is cancelled or Close is called.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return ErrRuntimeClosed
		case fn := <-r.queue:
			r.Batch(fn)
		}
	}
}

// Close stops the event loop. Queued work that has not started is dropped.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}
