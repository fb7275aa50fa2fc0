package store

import (
	"github.com/vango-dev/fusion/internal/errors"
)

// Error is the coded error returned by store operations.
type Error = errors.Error

// Code identifies a failure condition.
type Code = errors.Code

// Error codes.
const (
	ProviderMissing        = errors.ProviderMissing
	KeyAlreadyInitializing = errors.KeyAlreadyInitializing
	KeyMissingNoInitial    = errors.KeyMissingNoInitial
	PersistenceReadError   = errors.PersistenceReadError
	PersistenceWriteError  = errors.PersistenceWriteError
	StorageAdapterMissing  = errors.StorageAdapterMissing
)

// Sentinels for errors.Is. Matching is by code, so
//
//	errors.Is(err, store.ErrKeyMissingNoInitial)
//
// holds for any *Error carrying that code, whatever its key or cause.
var (
	ErrProviderMissing        = errors.Sentinel(ProviderMissing)
	ErrKeyAlreadyInitializing = errors.Sentinel(KeyAlreadyInitializing)
	ErrKeyMissingNoInitial    = errors.Sentinel(KeyMissingNoInitial)
	ErrPersistenceRead        = errors.Sentinel(PersistenceReadError)
	ErrPersistenceWrite       = errors.Sentinel(PersistenceWriteError)
	ErrStorageAdapterMissing  = errors.Sentinel(StorageAdapterMissing)
)

// CodeOf returns the code carried by err, or "" if it has none.
func CodeOf(err error) Code {
	return errors.CodeOf(err)
}
