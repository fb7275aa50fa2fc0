// Package component is the boundary between fusion and the UI runtime that
// renders components.
//
// The store only needs two things from the host: a way to tell a component
// instance "your state changed, render again" and a way to group those
// requests so a burst of writes produces one render pass. Owner provides
// the first, Runtime the second.
//
// # Owners
//
// An Owner is one mounted component instance. Owners form a tree that mirrors
// the component tree; context values set on an owner are visible to its
// descendants, and disposing an owner disposes its children and runs the
// cleanups registered on it.
//
//	rt := component.NewRuntime()
//	root := rt.NewRoot()
//	child := component.NewOwner(root)
//	child.SetRender(func() { ... })
//
// Hook slots give hooks stable identity across renders: the n-th UseHookSlot
// call during a render returns whatever the n-th call stored on the first
// render.
//
// # Batching
//
// Runtime implements batch.Batcher. Owners marked dirty inside a Batch are
// collected, deduplicated by ID and rendered once when the outermost batch
// returns.
//
//	rt.Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	}) // each affected owner renders once
package component
