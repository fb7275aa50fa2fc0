package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/equal"
)

// Hydrated returns a channel closed once the initial adapter read has
// finished, successfully or not. Without an adapter it is already closed.
func (s *Store) Hydrated() <-chan struct{} {
	return s.hydrated
}

// IsHydrated reports whether hydration has finished.
func (s *Store) IsHydrated() bool {
	return s.hydratedFlag.Load()
}

// WaitHydrated blocks until hydration has finished or ctx is done.
func (s *Store) WaitHydrated(ctx context.Context) error {
	select {
	case <-s.hydrated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) markHydrated() {
	if s.hydratedFlag.CompareAndSwap(false, true) {
		close(s.hydrated)
	}
}

// bareName maps a store key to its name in the persisted record. The
// boolean is false for keys that are not persisted.
func (s *Store) bareName(name string) (string, bool) {
	if s.adapter == nil {
		return "", false
	}
	if _, ok := s.persistKeys[name]; ok {
		return name, true
	}
	if s.persistPrefix != "" && strings.HasPrefix(name, s.persistPrefix) && len(name) > len(s.persistPrefix) {
		return name[len(s.persistPrefix):], true
	}
	return "", false
}

// keyFor is the inverse of bareName. Allow-listed names take precedence
// over the prefix convention.
func (s *Store) keyFor(bare string) (string, bool) {
	if _, ok := s.persistKeys[bare]; ok {
		return bare, true
	}
	if s.persistPrefix != "" {
		return s.persistPrefix + bare, true
	}
	return "", false
}

// hydrate reads the record for the namespace on its own goroutine, then
// hands the result to deliver. Decoding, applying and notifying happen in
// the delivered function, so with a Dispatcher they run on the host's
// event loop.
func (s *Store) hydrate() {
	start := time.Now()
	s.logger.Debug("fusion: hydrating", "store", s.name, "namespace", s.namespace)

	data, ok, err := s.adapter.GetItem(s.ctx, s.namespace)

	s.deliver(func() {
		var failed error
		defer func() {
			s.metrics.ObserveHydration(s.name, time.Since(start), failed)
			s.markHydrated()
		}()

		if err != nil {
			failed = err
			s.report(errors.New(errors.PersistenceReadError).WithNamespace(s.namespace).Wrap(err))
			return
		}
		if !ok || data == "" {
			s.logger.Debug("fusion: no persisted record", "store", s.name, "namespace", s.namespace)
			return
		}

		var record map[string]json.RawMessage
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			failed = err
			s.report(errors.New(errors.PersistenceReadError).
				WithNamespace(s.namespace).
				WithMessage("Persisted record is not a JSON object").
				Wrap(err))
			return
		}

		s.apply(record)
	})
}

// Dispatch retry policy for a full host queue.
const (
	dispatchRetries = 50
	dispatchBackoff = 10 * time.Millisecond
)

// deliver runs fn through the dispatcher, or inline without one. A
// dispatcher that keeps rejecting fn (closed or saturated event loop) gets
// dispatchRetries attempts; after that fn runs inline so hydration always
// completes.
func (s *Store) deliver(fn func()) {
	if s.dispatch == nil {
		fn()
		return
	}
	for i := 0; i < dispatchRetries; i++ {
		if s.dispatch(fn) {
			return
		}
		select {
		case <-s.ctx.Done():
			fn()
			return
		case <-time.After(dispatchBackoff):
		}
	}
	s.logger.Warn("fusion: dispatcher rejected hydration, applying inline",
		"store", s.name,
		"namespace", s.namespace,
	)
	fn()
}

// apply installs a decoded record. Keys that were never declared get the
// persisted value; keys declared but never written through Set are
// overridden and their subscribers notified; keys already written keep
// their in-memory value. Names that map to no key are kept for later
// writes.
func (s *Store) apply(record map[string]json.RawMessage) {
	names := make([]string, 0, len(record))
	for bare := range record {
		names = append(names, bare)
	}
	sort.Strings(names)

	var (
		changed  []string
		subs     []*subscription
		readErrs []*errors.Error
	)

	s.mu.Lock()
	for _, bare := range names {
		raw := record[bare]
		name, known := s.keyFor(bare)
		if !known {
			s.unknown[bare] = raw
			continue
		}

		e, ok := s.entries[name]
		switch {
		case !ok || !e.initialized:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				readErrs = append(readErrs, s.readError(name, err))
				continue
			}
			s.entries[name] = &entry{value: v, raw: raw, initialized: true}
			changed = append(changed, name)
			subs = append(subs, s.subs[name]...)

		case e.dirty:
			continue

		default:
			v, err := decodeLike(raw, e.value)
			if err != nil {
				readErrs = append(readErrs, s.readError(name, err))
				continue
			}
			if equal.SimpleDeepEqual(v, e.value) {
				continue
			}
			e.value = v
			e.raw = nil
			e.version++
			changed = append(changed, name)
			subs = append(subs, s.subs[name]...)
		}
	}
	var event *DebugEvent
	if len(changed) > 0 && len(s.observers) > 0 {
		event = s.newEvent(changed, s.snapshotLocked())
	}
	count := len(s.entries)
	s.mu.Unlock()

	for _, err := range readErrs {
		s.report(err)
	}
	s.metrics.SetKeys(s.name, count)
	s.logger.Debug("fusion: hydrated",
		"store", s.name,
		"namespace", s.namespace,
		"keys", len(changed),
	)

	s.notify(subs)
	if event != nil {
		s.emit(*event)
	}
}

func (s *Store) readError(name string, err error) *errors.Error {
	return errors.New(errors.PersistenceReadError).
		WithKey(name).
		WithNamespace(s.namespace).
		Wrap(err)
}

// scheduleWrite arms the debounced write-back.
func (s *Store) scheduleWrite() {
	if s.debouncer == nil || s.closed.Load() {
		return
	}
	s.pending.Store(true)
	s.debouncer.Schedule()
}

func (s *Store) writeBack() {
	s.write(s.ctx)
}

// Flush writes the pending record now instead of waiting for the debounce
// delay. It returns nil if nothing is pending.
func (s *Store) Flush(ctx context.Context) error {
	if s.debouncer == nil {
		return nil
	}
	s.debouncer.Stop()
	return s.write(ctx)
}

// write stores the current persisted subset if a write is pending. Writes
// wait for hydration so a record is never replaced before it was read, and
// are serialized so the adapter sees snapshots in commit order.
func (s *Store) write(ctx context.Context) error {
	select {
	case <-s.hydrated:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.pending.Swap(false) {
		return nil
	}

	data, encodeErrs := s.encodeRecord()
	for _, err := range encodeErrs {
		s.report(err)
	}

	err := s.adapter.SetItem(ctx, s.namespace, string(data))
	s.metrics.RecordPersistWrite(s.name, err)
	if err != nil {
		werr := errors.New(errors.PersistenceWriteError).WithNamespace(s.namespace).Wrap(err)
		s.report(werr)
		return werr
	}

	s.logger.Debug("fusion: record written",
		"store", s.name,
		"namespace", s.namespace,
		"bytes", len(data),
	)
	return nil
}

// encodeRecord serializes the persisted subset by value under the lock.
// A value that cannot be encoded is left out and reported.
func (s *Store) encodeRecord() ([]byte, []*errors.Error) {
	var errs []*errors.Error

	s.mu.Lock()
	record := make(map[string]json.RawMessage, len(s.unknown))
	for bare, raw := range s.unknown {
		record[bare] = raw
	}
	for name, e := range s.entries {
		if !e.initialized {
			continue
		}
		bare, ok := s.bareName(name)
		if !ok {
			continue
		}
		if e.raw != nil {
			record[bare] = e.raw
			continue
		}
		raw, err := json.Marshal(e.value)
		if err != nil {
			errs = append(errs, errors.New(errors.PersistenceWriteError).
				WithKey(name).
				WithNamespace(s.namespace).
				WithMessage("Value cannot be encoded as JSON").
				Wrap(err))
			continue
		}
		record[bare] = raw
	}
	s.mu.Unlock()

	// A map of valid RawMessages always marshals.
	data, _ := json.Marshal(record)
	return data, errs
}

// decodeLike decodes raw into a new value of the dynamic type of like.
// A nil like decodes into the generic JSON types.
func decodeLike(raw json.RawMessage, like any) (any, error) {
	if like == nil {
		var v any
		err := json.Unmarshal(raw, &v)
		return v, err
	}
	ptr := reflect.New(reflect.TypeOf(like))
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}
