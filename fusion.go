// Package fusion provides shared, key-addressed state for component trees.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/fusion"
//
// Usage:
//
//	var Count = fusion.CreateKey[int]("count")
//	var Theme = fusion.CreateKey[string]("persist.theme")
//
//	s, _ := fusion.New(fusion.WithAdapter(adapter), fusion.WithNamespace("app"))
//	fusion.Provide(root, s)
//
//	count := fusion.MustUse(owner, Count, 0)
//	count.Set(count.Get() + 1)
package fusion

import (
	"github.com/vango-dev/fusion/pkg/batch"
	"github.com/vango-dev/fusion/pkg/component"
	"github.com/vango-dev/fusion/pkg/equal"
	"github.com/vango-dev/fusion/pkg/hook"
	"github.com/vango-dev/fusion/pkg/key"
	"github.com/vango-dev/fusion/pkg/storage"
	"github.com/vango-dev/fusion/pkg/store"
)

// =============================================================================
// Keys (re-export from pkg/key)
// =============================================================================

// Key is either a PlainKey or a key.TypedKey[T].
type Key = key.Key

// PlainKey is an untyped key.
type PlainKey = key.PlainKey

// CreateKey returns a typed key for name.
func CreateKey[T any](name string) key.TypedKey[T] {
	return key.CreateKey[T](name)
}

// CreateNamespacedKey returns CreateKey[T](namespace + "." + name).
func CreateNamespacedKey[T any](namespace, name string) key.TypedKey[T] {
	return key.CreateNamespacedKey[T](namespace, name)
}

// IsTypedKey reports whether v is a TypedKey.
var IsTypedKey = key.IsTypedKey

// KeyName returns the bare name of a string, PlainKey or TypedKey.
var KeyName = key.Extract

// =============================================================================
// Store (re-export from pkg/store)
// =============================================================================

// Store is the key-addressed state table.
type Store = store.Store

// Option configures a Store.
type Option = store.Option

// Updater produces the next value for Set.
type Updater = store.Updater

// Func is an Updater computed from the previous value.
type Func = store.Func

// DebugEvent describes one accepted change, as seen by OnChange.
type DebugEvent = store.DebugEvent

// New creates a Store.
var New = store.New

// Value returns an Updater that replaces the current value.
var Value = store.Value

// Provide makes s available to owner and its descendants.
var Provide = store.Provide

// From returns the nearest store provided above owner.
var From = store.From

var (
	WithName          = store.WithName
	WithAdapter       = store.WithAdapter
	WithPersistence   = store.WithPersistence
	WithNamespace     = store.WithNamespace
	WithPersistPrefix = store.WithPersistPrefix
	WithPersistKeys   = store.WithPersistKeys
	WithDebounce      = store.WithDebounce
	WithBatcher       = store.WithBatcher
	WithDispatcher    = store.WithDispatcher
	WithLogger        = store.WithLogger
	WithMetrics       = store.WithMetrics
	WithErrorHandler  = store.WithErrorHandler
	WithDevtools      = store.WithDevtools
)

// GetAs returns the value of k as a T.
func GetAs[T any](s *Store, k key.TypedKey[T]) (T, bool) {
	return store.GetAs(s, k)
}

// DeclareAs declares k with initial and returns its effective value.
func DeclareAs[T any](s *Store, k key.TypedKey[T], initial T) (T, error) {
	return store.DeclareAs(s, k, initial)
}

// SetAs writes v to k.
func SetAs[T any](s *Store, k key.TypedKey[T], v T) error {
	return store.SetAs(s, k, v)
}

// UpdateAs writes fn(current) to k.
func UpdateAs[T any](s *Store, k key.TypedKey[T], fn func(T) T) error {
	return store.UpdateAs(s, k, fn)
}

// =============================================================================
// Accessor (re-export from pkg/hook)
// =============================================================================

// Owner is a component instance.
type Owner = component.Owner

// Use binds the current hook slot of owner to k.
func Use[T any](owner *Owner, k key.TypedKey[T], initial T, opts ...hook.Option) (*hook.State[T], error) {
	return hook.Use(owner, k, initial, opts...)
}

// MustUse is Use, panicking on error.
func MustUse[T any](owner *Owner, k key.TypedKey[T], initial T, opts ...hook.Option) *hook.State[T] {
	return hook.MustUse(owner, k, initial, opts...)
}

// SkipLocalSync makes Use read through to the store instead of caching.
var SkipLocalSync = hook.SkipLocalSync

// =============================================================================
// Utilities
// =============================================================================

// Adapter is the persistence backend consumed by a Store.
type Adapter = storage.Adapter

// Batcher groups subscriber notifications.
type Batcher = batch.Batcher

// SimpleDeepEqual is the equality used to skip no-op writes.
var SimpleDeepEqual = equal.SimpleDeepEqual

// Errors.
var (
	ErrProviderMissing        = store.ErrProviderMissing
	ErrKeyAlreadyInitializing = store.ErrKeyAlreadyInitializing
	ErrKeyMissingNoInitial    = store.ErrKeyMissingNoInitial
	ErrPersistenceRead        = store.ErrPersistenceRead
	ErrPersistenceWrite       = store.ErrPersistenceWrite
	ErrStorageAdapterMissing  = store.ErrStorageAdapterMissing
)
