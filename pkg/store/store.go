package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/batch"
	"github.com/vango-dev/fusion/pkg/devtools"
	"github.com/vango-dev/fusion/pkg/equal"
	"github.com/vango-dev/fusion/pkg/key"
	"github.com/vango-dev/fusion/pkg/metrics"
	"github.com/vango-dev/fusion/pkg/storage"
)

// DebugEvent describes one accepted change. See OnChange.
type DebugEvent = devtools.Event

// entry is one slot of the table.
type entry struct {
	value       any
	initialized bool

	// raw holds hydrated JSON not yet given a Go type by a declaration.
	// value then holds the generic decoding of raw.
	raw json.RawMessage

	// dirty is set once the value has been written through Set.
	dirty bool

	// version increments on every commit; Set uses it to detect writes
	// that happened while its updater ran.
	version uint64
}

type subscription struct {
	id     uint64
	fn     func()
	active atomic.Bool
}

type observer struct {
	fn     func(DebugEvent)
	active atomic.Bool
}

// Store is a key-addressed table of values with per-key subscribers and
// optional persistence.
//
// All methods are safe for concurrent use. Subscriber callbacks and
// OnChange observers run on the goroutine that made the change, outside
// the store lock, so they may call back into the store.
type Store struct {
	name      string
	batcher   batch.Batcher
	dispatch  Dispatcher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	onError   func(error)
	createdAt time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	subs      map[string][]*subscription
	guard     map[string]any
	observers []*observer
	nextSubID uint64

	// persistence
	adapter       storage.Adapter
	namespace     string
	persistPrefix string
	persistKeys   map[string]struct{}
	unknown       map[string]json.RawMessage
	debouncer     *debouncer
	pending       atomic.Bool
	writeMu       sync.Mutex

	hydrated     chan struct{}
	hydratedFlag atomic.Bool

	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
	closeErr   error
	closed     atomic.Bool
	unregister func()
}

// New creates a Store.
//
// With an adapter, New starts hydration in the background and returns
// immediately; use Hydrated or WaitHydrated to wait for it. It returns a
// StorageAdapterMissing error if WithPersistence is given without an
// adapter.
func New(opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.requirePersist && cfg.adapter == nil {
		return nil, errors.New(errors.StorageAdapterMissing).WithNamespace(cfg.namespace)
	}
	if cfg.name == "" {
		cfg.name = uuid.NewString()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.scheduler == nil {
		cfg.scheduler = SystemScheduler
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		name:          cfg.name,
		batcher:       cfg.batcher,
		dispatch:      cfg.dispatcher,
		logger:        cfg.logger,
		metrics:       cfg.metrics,
		onError:       cfg.onError,
		createdAt:     time.Now(),
		entries:       make(map[string]*entry),
		subs:          make(map[string][]*subscription),
		guard:         make(map[string]any),
		adapter:       cfg.adapter,
		namespace:     cfg.namespace,
		persistPrefix: cfg.persistPrefix,
		persistKeys:   make(map[string]struct{}, len(cfg.persistKeys)),
		unknown:       make(map[string]json.RawMessage),
		hydrated:      make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, k := range cfg.persistKeys {
		s.persistKeys[k] = struct{}{}
	}

	if cfg.devtools {
		s.unregister = devtools.Register(s)
	}

	if s.adapter == nil {
		s.markHydrated()
		return s, nil
	}

	s.debouncer = newDebouncer(cfg.scheduler, cfg.debounce, s.writeBack)
	go s.hydrate()
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// Get returns the value for k. The boolean is false if k has not been
// declared; a stored nil is returned as (nil, true).
func (s *Store) Get(k key.Key) (any, bool) {
	name := key.Name(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok || !e.initialized {
		return nil, false
	}
	return e.value, true
}

// Has reports whether k has been declared.
func (s *Store) Has(k key.Key) bool {
	_, ok := s.Get(k)
	return ok
}

// Keys returns the declared keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for name, e := range s.entries {
		if e.initialized {
			keys = append(keys, name)
		}
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of every declared key and its value.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() map[string]any {
	out := make(map[string]any, len(s.entries))
	for name, e := range s.entries {
		if e.initialized {
			out[name] = e.value
		}
	}
	return out
}

// DeclareInitial declares k with initial as its starting value and returns
// the value k holds afterwards.
//
// The first declaration wins: if k is already declared, its current value
// is returned and initial is discarded. If k holds a hydrated value that
// no declaration has typed yet, that value is decoded into the dynamic type
// of initial and returned.
//
// While a declaration is being committed, k is held in an initialization
// guard. A concurrent declaration with an equal initial value returns that
// value; one with a different value fails with KeyAlreadyInitializing and
// leaves the store unchanged. OnChange observers for a declaration run
// while the guard is held.
func (s *Store) DeclareInitial(k key.Key, initial any) (any, error) {
	name := key.Name(k)

	s.mu.Lock()
	if e, ok := s.entries[name]; ok && e.initialized {
		v, err := s.adoptLocked(name, e, initial)
		s.mu.Unlock()
		if err != nil {
			s.report(err)
		}
		return v, nil
	}
	if inflight, ok := s.guard[name]; ok {
		s.mu.Unlock()
		if !equal.SimpleDeepEqual(inflight, initial) {
			return nil, errors.New(errors.KeyAlreadyInitializing).WithKey(name)
		}
		return inflight, nil
	}
	s.guard[name] = initial

	var event *DebugEvent
	if len(s.observers) > 0 {
		snap := s.snapshotLocked()
		snap[name] = initial
		event = s.newEvent([]string{name}, snap)
	}
	s.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			delete(s.guard, name)
			s.mu.Unlock()
		}
	}()

	if event != nil {
		s.emit(*event)
	}

	s.mu.Lock()
	delete(s.guard, name)
	var (
		v   any
		err *errors.Error
	)
	if e, ok := s.entries[name]; ok && e.initialized {
		// Hydration landed while observers ran; it is the first writer.
		v, err = s.adoptLocked(name, e, initial)
	} else {
		s.entries[name] = &entry{value: initial, initialized: true}
		v = initial
	}
	count := len(s.entries)
	committed = true
	s.mu.Unlock()

	if err != nil {
		s.report(err)
	}
	s.metrics.SetKeys(s.name, count)
	return v, nil
}

// adoptLocked returns the value of an initialized entry, giving hydrated
// raw data the type of like. On a decode failure the entry takes like.
func (s *Store) adoptLocked(name string, e *entry, like any) (any, *errors.Error) {
	if e.raw == nil || like == nil {
		return e.value, nil
	}

	v, err := decodeLike(e.raw, like)
	e.raw = nil
	e.version++
	if err != nil {
		e.value = like
		return like, errors.New(errors.PersistenceReadError).
			WithKey(name).
			WithNamespace(s.namespace).
			WithMessage("Persisted value does not match the declared type").
			Wrap(err)
	}
	e.value = v
	return v, nil
}

// Updater computes the next value of a key. Use Value or Func.
type Updater interface {
	apply(prev any) any
}

type valueUpdater struct {
	v any
}

func (u valueUpdater) apply(any) any { return u.v }

// Value returns an Updater that replaces the current value with v.
func Value(v any) Updater {
	return valueUpdater{v: v}
}

// Func is an Updater computed from the previous value. It must be pure: it
// may run more than once if the key changes while it runs.
type Func func(prev any) any

func (f Func) apply(prev any) any { return f(prev) }

// Set writes the value produced by u to k.
//
// If k has not been declared, Set fails with KeyMissingNoInitial. If the
// new value equals the current one (equal.SimpleDeepEqual), Set does
// nothing. Otherwise it commits the value and, before returning, calls
// every subscriber of k in registration order inside one Batch of the
// store's batcher.
func (s *Store) Set(k key.Key, u Updater) error {
	return s.set(k, u, nil, false)
}

// SetWithInitial is Set for a key that may not be declared yet: an
// undeclared k is first declared with initial.
func (s *Store) SetWithInitial(k key.Key, u Updater, initial any) error {
	return s.set(k, u, initial, true)
}

func (s *Store) set(k key.Key, u Updater, initial any, hasInitial bool) error {
	name := key.Name(k)
	if u == nil {
		u = Value(nil)
	}

	for {
		s.mu.Lock()
		e, ok := s.entries[name]
		if !ok || !e.initialized {
			s.mu.Unlock()
			if !hasInitial {
				return errors.New(errors.KeyMissingNoInitial).WithKey(name)
			}
			if _, err := s.DeclareInitial(k, initial); err != nil {
				return err
			}
			hasInitial = false
			continue
		}
		prev, version := e.value, e.version
		s.mu.Unlock()

		next := u.apply(prev)

		s.mu.Lock()
		if s.entries[name] != e || e.version != version {
			// Changed underneath the updater; recompute.
			s.mu.Unlock()
			continue
		}
		if equal.SimpleDeepEqual(prev, next) {
			s.mu.Unlock()
			s.metrics.RecordNoopSet(s.name)
			return nil
		}

		e.value = next
		e.version++
		e.raw = nil
		e.dirty = true
		subs := append([]*subscription(nil), s.subs[name]...)
		_, persisted := s.bareName(name)
		var event *DebugEvent
		if len(s.observers) > 0 {
			event = s.newEvent([]string{name}, s.snapshotLocked())
		}
		s.mu.Unlock()

		s.metrics.RecordSet(s.name)
		s.notify(subs)
		if persisted {
			s.scheduleWrite()
		}
		if event != nil {
			s.emit(*event)
		}
		return nil
	}
}

// Remove deletes k, its subscribers and any in-flight declaration.
// Subscribers are not notified. Removing a persisted key schedules a write
// of the record without it.
func (s *Store) Remove(k key.Key) {
	name := key.Name(k)

	s.mu.Lock()
	_, existed := s.entries[name]
	delete(s.entries, name)
	delete(s.guard, name)
	for _, sub := range s.subs[name] {
		sub.active.Store(false)
	}
	delete(s.subs, name)
	_, persisted := s.bareName(name)
	var event *DebugEvent
	if existed && len(s.observers) > 0 {
		event = s.newEvent([]string{name}, s.snapshotLocked())
	}
	count := len(s.entries)
	s.mu.Unlock()

	if !existed {
		return
	}
	s.metrics.SetKeys(s.name, count)
	if persisted {
		s.scheduleWrite()
	}
	if event != nil {
		s.emit(*event)
	}
}

// Subscribe registers fn to be called after every accepted write to k.
// The returned function removes the subscription; it is idempotent, and
// once it returns fn is not called again, even by a fan-out in progress.
func (s *Store) Subscribe(k key.Key, fn func()) (unsubscribe func()) {
	name := key.Name(k)

	s.mu.Lock()
	s.nextSubID++
	sub := &subscription{id: s.nextSubID, fn: fn}
	sub.active.Store(true)
	s.subs[name] = append(s.subs[name], sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)

			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.subs[name]
			for i, other := range list {
				if other.id == sub.id {
					list = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(list) == 0 {
				delete(s.subs, name)
			} else {
				s.subs[name] = list
			}
		})
	}
}

// notify calls every still-active subscription inside one batch.
func (s *Store) notify(subs []*subscription) {
	if len(subs) == 0 {
		return
	}
	n := 0
	defer func() { s.metrics.RecordNotifications(s.name, n) }()

	batch.Run(s.batcher, func() {
		for _, sub := range subs {
			if !sub.active.Load() {
				continue
			}
			n++
			sub.fn()
		}
	})
}

// OnChange registers fn to receive a DebugEvent for every accepted change:
// declarations, writes, removals and hydration. The returned function
// removes fn.
func (s *Store) OnChange(fn func(DebugEvent)) (cancel func()) {
	o := &observer{fn: fn}
	o.active.Store(true)

	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.active.Store(false)

			s.mu.Lock()
			defer s.mu.Unlock()
			for i, other := range s.observers {
				if other == o {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) newEvent(changed []string, snapshot map[string]any) *DebugEvent {
	return &DebugEvent{
		Store:       s.name,
		ChangedKeys: changed,
		Snapshot:    snapshot,
		At:          time.Now(),
	}
}

func (s *Store) emit(ev DebugEvent) {
	s.mu.Lock()
	observers := append([]*observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		if o.active.Load() {
			o.fn(ev)
		}
	}
}

// report logs a persistence error and hands it to the error handler.
func (s *Store) report(err *errors.Error) {
	s.logger.Warn("fusion: persistence error",
		"store", s.name,
		"namespace", s.namespace,
		"key", err.Key,
		"code", err.Code,
		"error", err,
	)
	s.metrics.RecordPersistError(s.name, string(err.Code))
	if s.onError != nil {
		s.onError(err)
	}
}

// Close writes any pending record, stops the pipeline and removes the store
// from the devtools registry. The in-memory table stays usable but no
// longer persists. Close is idempotent; later calls return the first
// result.
func (s *Store) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.debouncer != nil {
			s.debouncer.Stop()
			s.closeErr = s.write(ctx)
		}
		s.cancel()
		if s.unregister != nil {
			s.unregister()
		}
		s.metrics.Forget(s.name)
		s.logger.Debug("fusion: store closed", "store", s.name)
	})
	return s.closeErr
}
