// Package batch defines how a store groups subscriber notifications.
//
// The hosting UI runtime decides what "one re-render pass" means. It hands
// the store a Batcher at construction time; the store wraps each fan-out in
// a Batch call. Without one, Immediate runs the fan-out directly and every
// notification is delivered on its own.
package batch

// Batcher coalesces the re-renders triggered inside fn into one pass.
//
// Implementations must run fn synchronously, exactly once, and must let a
// panic raised by fn propagate to the caller unchanged.
type Batcher interface {
	Batch(fn func())
}

// Func adapts an ordinary function to the Batcher interface.
type Func func(fn func())

// Batch calls f(fn).
func (f Func) Batch(fn func()) {
	f(fn)
}

type immediate struct{}

func (immediate) Batch(fn func()) {
	fn()
}

// Immediate runs fn with no coalescing. It is the default Batcher.
var Immediate Batcher = immediate{}

// Run executes fn through b, treating a nil Batcher as Immediate.
func Run(b Batcher, fn func()) {
	if b == nil {
		fn()
		return
	}
	b.Batch(fn)
}
