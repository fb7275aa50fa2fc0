// Package hook binds store keys to components.
//
// Use declares a key on first render, keeps a cached copy in sync through
// a subscription and marks the component dirty whenever the key changes.
// The subscription ends when the component is disposed.
//
//	func Counter(o *component.Owner) {
//	    count := hook.MustUse(o, countKey, 0)
//	    inc := count.Setter()
//	    ...
//	    inc(count.Get() + 1)
//	}
package hook

import (
	"sync"

	"github.com/vango-dev/fusion/pkg/component"
	"github.com/vango-dev/fusion/pkg/key"
	"github.com/vango-dev/fusion/pkg/store"
)

// Option configures Use.
type Option func(*options)

type options struct {
	skipLocalSync bool
}

// SkipLocalSync keeps no cached copy. Get reads the store on every call and
// notifications only mark the component dirty. Useful for keys written
// many times per render pass.
func SkipLocalSync() Option {
	return func(o *options) {
		o.skipLocalSync = true
	}
}

// State is a component's handle on one key. The same *State is returned on
// every render of the component.
type State[T any] struct {
	owner *component.Owner
	store *store.Store
	skip  bool

	mu          sync.RWMutex
	key         key.TypedKey[T]
	cached      T
	setter      func(T) error
	unsubscribe func()
}

// Use returns the State for k in the component being rendered by owner.
//
// On the first render Use resolves the store provided to owner, declares k
// with initial and subscribes to it. Later renders return the same State
// without touching the store, unless k names a different key, in which
// case the State is rebound to the new key. Use fails with ProviderMissing
// if no store was provided, or with KeyAlreadyInitializing if another
// component is declaring k with a different initial value.
func Use[T any](owner *component.Owner, k key.TypedKey[T], initial T, opts ...Option) (*State[T], error) {
	slot := owner.UseHookSlot()
	if slot != nil {
		st, ok := slot.(*State[T])
		if !ok {
			panic("fusion: hook slot type mismatch for hook.Use")
		}
		if st.Key().Name() == k.Name() {
			return st, nil
		}
		if err := st.bind(k, initial); err != nil {
			return nil, err
		}
		return st, nil
	}

	s, err := store.From(owner)
	if err != nil {
		owner.SetHookSlot(nil)
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	st := &State[T]{
		owner: owner,
		store: s,
		skip:  o.skipLocalSync,
	}
	if err := st.bind(k, initial); err != nil {
		owner.SetHookSlot(nil)
		return nil, err
	}
	owner.SetHookSlot(st)
	owner.OnCleanup(st.unbind)
	return st, nil
}

// MustUse is Use that panics with the returned error.
func MustUse[T any](owner *component.Owner, k key.TypedKey[T], initial T, opts ...Option) *State[T] {
	st, err := Use(owner, k, initial, opts...)
	if err != nil {
		panic(err)
	}
	return st
}

// bind declares k and moves the subscription to it.
func (st *State[T]) bind(k key.TypedKey[T], initial T) error {
	v, err := store.DeclareAs(st.store, k, initial)
	if err != nil {
		return err
	}

	st.unbind()

	s := st.store
	st.mu.Lock()
	st.key = k
	if !st.skip {
		st.cached = v
	}
	st.setter = func(v T) error { return store.SetAs(s, k, v) }
	st.mu.Unlock()

	unsubscribe := s.Subscribe(k, func() { st.changed(k) })

	st.mu.Lock()
	st.unsubscribe = unsubscribe
	st.mu.Unlock()
	return nil
}

func (st *State[T]) unbind() {
	st.mu.Lock()
	unsubscribe := st.unsubscribe
	st.unsubscribe = nil
	st.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// changed runs on every accepted write to k.
func (st *State[T]) changed(k key.TypedKey[T]) {
	if !st.skip {
		v, _ := store.GetAs(st.store, k)
		st.mu.Lock()
		if st.key.Name() == k.Name() {
			st.cached = v
		}
		st.mu.Unlock()
	}
	st.owner.MarkDirty()
}

// Get returns the current value.
func (st *State[T]) Get() T {
	if st.skip {
		v, _ := store.GetAs(st.store, st.Key())
		return v
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cached
}

// Set writes v.
func (st *State[T]) Set(v T) error {
	return store.SetAs(st.store, st.Key(), v)
}

// Update writes fn applied to the current value.
func (st *State[T]) Update(fn func(T) T) error {
	return store.UpdateAs(st.store, st.Key(), fn)
}

// Setter returns a write function for the bound key. It is the same func
// value across renders until the key changes.
func (st *State[T]) Setter() func(T) error {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.setter
}

// Key returns the bound key.
func (st *State[T]) Key() key.TypedKey[T] {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.key
}

// Store returns the store the State reads from.
func (st *State[T]) Store() *store.Store {
	return st.store
}
