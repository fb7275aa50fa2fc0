package component

import "sync/atomic"

// Listener is anything that can be told a dependency changed. A Runtime
// queues Listeners while batching and renders each one once.
type Listener interface {
	// MarkDirty requests a re-render.
	MarkDirty()

	// Render re-renders now.
	Render()

	// ID returns a unique identifier, used for deduplication while batching.
	ID() uint64
}

var _ Listener = (*Owner)(nil)

var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}
