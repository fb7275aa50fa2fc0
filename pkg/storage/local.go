package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// SyncBackend is a synchronous key-value store, such as a process-local map
// or a directory of files.
type SyncBackend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Local adapts a SyncBackend to the Adapter interface. Calls complete before
// returning; a panic in the backend is returned as *PanicError.
type Local struct {
	backend SyncBackend
}

// NewLocal wraps backend.
func NewLocal(backend SyncBackend) *Local {
	return &Local{backend: backend}
}

// GetItem reads key from the backend.
func (l *Local) GetItem(ctx context.Context, key string) (value string, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	defer recoverInto("GetItem", &err)
	return l.backend.Get(key)
}

// SetItem writes key to the backend.
func (l *Local) SetItem(ctx context.Context, key, value string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer recoverInto("SetItem", &err)
	return l.backend.Set(key, value)
}

// RemoveItem deletes key from the backend.
func (l *Local) RemoveItem(ctx context.Context, key string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer recoverInto("RemoveItem", &err)
	return l.backend.Remove(key)
}

// Backend returns the wrapped backend.
func (l *Local) Backend() SyncBackend {
	return l.backend
}

// =============================================================================
// MemoryBackend
// =============================================================================

// MemoryBackend is an in-memory SyncBackend.
type MemoryBackend struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

// Get returns the value stored under key.
func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.items[key]
	return v, ok, nil
}

// Set stores value under key.
func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.items[key] = value
	return nil
}

// Remove deletes key.
func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Len returns the number of stored keys.
// This is for monitoring/testing purposes.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close marks the backend closed and drops its contents.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.items = nil
	return nil
}

// =============================================================================
// DirBackend
// =============================================================================

// DirBackend stores each key as a file in a directory. File names are the
// query-escaped key.
type DirBackend struct {
	dir string
	mu  sync.Mutex
}

// NewDirBackend creates a DirBackend rooted at dir. The directory is created
// on first write.
func NewDirBackend(dir string) *DirBackend {
	return &DirBackend{dir: dir}
}

func (d *DirBackend) path(key string) string {
	return filepath.Join(d.dir, url.QueryEscape(key)+".json")
}

// Get reads the file for key.
func (d *DirBackend) Get(key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes the file for key through a temporary file and rename, so a
// reader never sees a partial value.
func (d *DirBackend) Set(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, d.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Remove deletes the file for key.
func (d *DirBackend) Remove(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Dir returns the backing directory.
func (d *DirBackend) Dir() string {
	return d.dir
}
