package storage

import (
	"context"
	"errors"
	"fmt"
)

// Adapter is the persistence backend consumed by the store.
// Implementations must be safe for concurrent use.
type Adapter interface {
	// GetItem returns the value stored under key.
	// Returns ("", false, nil) if the key does not exist.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
}

// ErrClosed is returned when operations are attempted on a closed backend.
var ErrClosed = errors.New("storage: closed")

// PanicError is returned in place of a panic raised by a backend.
type PanicError struct {
	Op    string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("storage: %s panicked: %v", e.Op, e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// recoverInto converts a panic in the current call into *PanicError.
// Use as: defer recoverInto("GetItem", &err).
func recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		*err = &PanicError{Op: op, Value: r}
	}
}

type noop struct{}

func (noop) GetItem(context.Context, string) (string, bool, error) { return "", false, nil }
func (noop) SetItem(context.Context, string, string) error          { return nil }
func (noop) RemoveItem(context.Context, string) error               { return nil }

// Noop never finds anything and accepts every write.
var Noop Adapter = noop{}
