// Package store is the shared state container behind fusion hooks.
//
// A Store maps string keys to values. Components declare a key with an
// initial value, read it, write it and subscribe to its changes. Any
// number of stores can coexist; a store reaches components through the
// owner tree with Provide and From.
//
// # Declaring and writing
//
// The first declaration of a key wins. Later declarations return the
// current value:
//
//	s, _ := store.New()
//	s.DeclareInitial(key.Plain("counter"), 0)  // 0
//	s.DeclareInitial(key.Plain("counter"), 10) // still 0
//
// Writes that leave the value unchanged (by equal.SimpleDeepEqual) are
// dropped without notifying anyone, so setting the same value repeatedly
// never causes re-renders:
//
//	s.Set(key.Plain("counter"), store.Func(func(prev any) any { return prev.(int) + 1 }))
//	s.Set(key.Plain("counter"), store.Value(1)) // no-op
//
// # Persistence
//
// With WithAdapter, keys named with the persist prefix ("persist." by
// default) or listed with WithPersistKeys are saved as one JSON object per
// namespace. The record is read once in the background when the store is
// created, and written back a debounce delay after the last change:
//
//	s, _ := store.New(
//	    store.WithAdapter(storage.NewLocal(storage.NewDirBackend(".state"))),
//	    store.WithNamespace("myapp"),
//	)
//	<-s.Hydrated()
//
// Persistence failures never affect the in-memory value. They are logged,
// counted and passed to the WithErrorHandler callback.
//
// # Goroutines
//
// Subscribers run synchronously on the goroutine calling Set. For a single
// key, notifications follow the order of Set calls made from one
// goroutine; hosts that write from several goroutines should funnel writes
// through their event loop (see component.Runtime).
//
// Hydration reads the adapter on a background goroutine. Values it
// installs notify subscribers too; pass the host's dispatcher so that
// happens on the event loop:
//
//	rt := component.NewRuntime()
//	s, _ := store.New(
//	    store.WithAdapter(adapter),
//	    store.WithBatcher(rt),
//	    store.WithDispatcher(rt.Dispatch),
//	)
package store
