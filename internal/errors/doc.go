// Package errors provides the coded error type returned by fusion.
//
// Every failure the store surfaces is an *Error carrying a Code from a fixed
// set and a human-readable message. Codes map to registered templates with a
// category, a short message, a longer explanation and a documentation URL.
//
// # Categories
//
//   - usage: contract violations by calling code (missing provider,
//     conflicting initial values, writes to undeclared keys)
//   - persistence: storage adapter reads and writes
//   - config: invalid store configuration
//
// # Usage
//
//	err := errors.New(errors.KeyMissingNoInitial).WithKey("counter")
//	fmt.Println(err)          // KeyMissingNoInitial: Set on undeclared key (key "counter")
//	fmt.Println(err.Format()) // multi-line terminal rendering
//
// Errors match each other by code, so errors.Is works against the
// sentinels exported by the store package:
//
//	if errors.Is(err, store.ErrKeyMissingNoInitial) { ... }
package errors
