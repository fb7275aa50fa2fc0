package devtools

import (
	"sort"
	"sync"
	"time"
)

// Event describes one accepted change to a store's key set.
type Event struct {
	// Store is the name of the store that changed.
	Store string `json:"store"`

	// ChangedKeys lists the keys written, declared, removed or hydrated.
	ChangedKeys []string `json:"changedKeys"`

	// Snapshot holds every initialized key after the change.
	Snapshot map[string]any `json:"snapshot"`

	// At is when the change was committed.
	At time.Time `json:"at"`
}

// Source is a store as seen by inspection tools.
type Source interface {
	Name() string
	Snapshot() map[string]any
	OnChange(fn func(Event)) (cancel func())
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Source)
)

// Register publishes s under s.Name(), replacing any source with the same
// name. The returned function removes s again; it does nothing if s was
// replaced in the meantime.
func Register(s Source) (unregister func()) {
	name := s.Name()

	registryMu.Lock()
	registry[name] = s
	registryMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			registryMu.Lock()
			defer registryMu.Unlock()
			if registry[name] == s {
				delete(registry, name)
			}
		})
	}
}

// Lookup returns the source registered under name.
func Lookup(name string) (Source, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	return s, ok
}

// Stores returns the registered names in sorted order.
func Stores() []string {
	registryMu.RLock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	registryMu.RUnlock()

	sort.Strings(names)
	return names
}
