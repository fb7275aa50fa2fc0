package errors

import (
	"fmt"
	"strings"
)

// Code identifies a failure condition.
type Code string

const (
	ProviderMissing        Code = "ProviderMissing"
	KeyAlreadyInitializing Code = "KeyAlreadyInitializing"
	KeyMissingNoInitial    Code = "KeyMissingNoInitial"
	PersistenceReadError   Code = "PersistenceReadError"
	PersistenceWriteError  Code = "PersistenceWriteError"
	StorageAdapterMissing  Code = "StorageAdapterMissing"

	// Configuration file codes, used by the CLI.
	ConfigNotFound Code = "ConfigNotFound"
	ConfigInvalid  Code = "ConfigInvalid"
)

// Category groups codes by who is expected to act on them.
type Category string

const (
	CategoryUsage       Category = "usage"
	CategoryPersistence Category = "persistence"
	CategoryConfig      Category = "config"
)

// Error is a coded fusion error.
type Error struct {
	// Code identifies the failure.
	Code Code

	// Category is copied from the registered template.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Key is the store key involved, if any.
	Key string

	// Namespace is the persistence namespace involved, if any.
	Namespace string

	// DocURL links to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(string(e.Code))
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Key != "" {
		fmt.Fprintf(&b, " (key %q)", e.Key)
	}
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code.
// A target without a code never matches.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithKey records the key involved.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithNamespace records the persistence namespace involved.
func (e *Error) WithNamespace(ns string) *Error {
	e.Namespace = ns
	return e
}

// WithDetail replaces the detailed explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithMessage replaces the short message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered code.
func New(code Code) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Sentinel returns a bare Error for code, suitable for errors.Is targets.
func Sentinel(code Code) *Error {
	return New(code)
}

// FromError wraps err under code unless it already is an *Error.
func FromError(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*Error); ok {
		return fe
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	if fe, ok := As(err); ok {
		return fe.Code
	}
	return ""
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			return fe, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
