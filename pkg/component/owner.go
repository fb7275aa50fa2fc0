package component

import (
	"sync"
	"sync/atomic"
)

// Owner represents one mounted component instance.
//
// When an Owner is disposed, its children are disposed (last created first)
// and then its cleanups run in reverse registration order.
type Owner struct {
	id      uint64
	parent  *Owner
	runtime *Runtime

	children   []*Owner
	childrenMu sync.Mutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	// values stores context values for this scope.
	values   map[any]any
	valuesMu sync.RWMutex

	render   func()
	renderMu sync.Mutex

	disposed    atomic.Bool
	renderCount atomic.Int64

	// Hook slot storage for stable identity across renders.
	hookSlots   []any
	hookSlotIdx int
}

// NewOwner creates an Owner under parent. A nil parent creates a detached
// root with no runtime: MarkDirty then renders synchronously.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		o.runtime = parent.runtime
		parent.addChild(o)
	}

	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// Runtime returns the runtime this owner renders on, or nil.
func (o *Owner) Runtime() *Runtime {
	return o.runtime
}

// IsDisposed returns true if this Owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

// RenderCount returns how many times the render function has run.
func (o *Owner) RenderCount() int64 {
	return o.renderCount.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()

	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// OnCleanup registers fn to run when this Owner is disposed.
// On an already disposed Owner, fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// SetRender installs the function that renders this component.
func (o *Owner) SetRender(fn func()) {
	o.renderMu.Lock()
	defer o.renderMu.Unlock()
	o.render = fn
}

// MarkDirty requests a re-render. Inside a Runtime batch the request is
// queued; otherwise the owner renders immediately.
func (o *Owner) MarkDirty() {
	if o.disposed.Load() {
		return
	}
	if o.runtime != nil {
		o.runtime.Schedule(o)
		return
	}
	o.Render()
}

// Render runs the render function with the hook slot index reset.
func (o *Owner) Render() {
	if o.disposed.Load() {
		return
	}

	o.renderMu.Lock()
	fn := o.render
	o.renderMu.Unlock()

	o.StartRender()
	defer o.EndRender()

	if fn != nil {
		fn()
	}
}

// StartRender resets the hook slot index. Hosts that drive rendering
// themselves call StartRender and EndRender around the component body.
func (o *Owner) StartRender() {
	o.hookSlotIdx = 0
}

// EndRender records a completed render.
func (o *Owner) EndRender() {
	o.renderCount.Add(1)
}

// Dispose disposes this Owner and all its children, then runs cleanups.
// After disposal, the Owner cannot be used.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := make([]*Owner, len(o.children))
	copy(children, o.children)
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// =============================================================================
// Context values
// =============================================================================

// SetValue sets a context value visible to this Owner and its descendants.
func (o *Owner) SetValue(key, value any) {
	o.valuesMu.Lock()
	defer o.valuesMu.Unlock()

	if o.values == nil {
		o.values = make(map[any]any)
	}
	o.values[key] = value
}

// GetValue retrieves a value from this Owner or the nearest ancestor that
// set it. Returns nil if no owner in the chain has the key.
func (o *Owner) GetValue(key any) any {
	v, _ := o.LookupValue(key)
	return v
}

// LookupValue is GetValue with an explicit found flag.
func (o *Owner) LookupValue(key any) (any, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		cur.valuesMu.RLock()
		v, ok := cur.values[key]
		cur.valuesMu.RUnlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// =============================================================================
// Hook Slot Storage for Stable Identity
// =============================================================================

// UseHookSlot returns the value stored for the current hook slot, or nil on
// the first render. The caller creates the value and stores it with
// SetHookSlot.
//
//	func useThing(o *Owner) *thing {
//	    if slot := o.UseHookSlot(); slot != nil {
//	        return slot.(*thing)
//	    }
//	    t := &thing{}
//	    o.SetHookSlot(t)
//	    return t
//	}
func (o *Owner) UseHookSlot() any {
	idx := o.hookSlotIdx
	o.hookSlotIdx++

	if idx < len(o.hookSlots) {
		return o.hookSlots[idx]
	}
	return nil
}

// SetHookSlot stores a value in the slot just returned by UseHookSlot.
func (o *Owner) SetHookSlot(value any) {
	idx := o.hookSlotIdx - 1
	if idx >= 0 && idx < len(o.hookSlots) {
		o.hookSlots[idx] = value
		return
	}
	o.hookSlots = append(o.hookSlots, value)
}
