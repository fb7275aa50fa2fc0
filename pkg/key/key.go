// Package key provides the key types used to address slots in a fusion store.
//
// A key is either a PlainKey (a bare string) or a TypedKey[T], which carries
// the value type of its slot as a phantom type parameter so that typed store
// helpers can infer T at compile time:
//
//	var Theme = key.CreateKey[string]("persist.theme")
//	var Cart  = key.CreateNamespacedKey[[]Item]("shop", "cart")
//
//	theme, _ := store.GetAs(s, Theme) // theme is a string
//
// Keys are compared by name only. Two keys created independently with the
// same name address the same slot, whatever their type parameter. Avoiding
// name collisions is the caller's job.
package key

import "reflect"

// Brand is the marker carried by every TypedKey.
const Brand = "FusionStateKey"

// Key is the closed set of key variants accepted by the store:
// PlainKey and TypedKey[T].
type Key interface {
	// Name returns the bare key name used to address the store.
	Name() string

	isKey()
}

// PlainKey is an untyped key.
type PlainKey string

// Name returns the key as a string.
func (k PlainKey) Name() string { return string(k) }

func (PlainKey) isKey() {}

// Plain converts a string into a Key.
func Plain(name string) PlainKey {
	return PlainKey(name)
}

// TypedKey is a key whose slot holds values of type T.
// The type parameter exists only for inference; it has no runtime payload.
type TypedKey[T any] struct {
	name string
}

// CreateKey returns a typed key for name. It never fails.
func CreateKey[T any](name string) TypedKey[T] {
	return TypedKey[T]{name: name}
}

// CreateNamespacedKey is CreateKey(namespace + "." + name).
func CreateNamespacedKey[T any](namespace, name string) TypedKey[T] {
	return CreateKey[T](namespace + "." + name)
}

// Name returns the bare key name.
func (k TypedKey[T]) Name() string { return k.name }

// Brand returns the typed key marker.
func (k TypedKey[T]) Brand() string { return Brand }

// String implements fmt.Stringer.
func (k TypedKey[T]) String() string { return k.name }

func (TypedKey[T]) isKey() {}

func (TypedKey[T]) typed() {}

// typedKey matches any TypedKey instantiation.
type typedKey interface {
	Key
	typed()
}

// IsTypedKey reports whether v is a TypedKey of any type parameter.
// It accepts arbitrary input, including nil.
func IsTypedKey(v any) bool {
	_, ok := v.(typedKey)
	return ok
}

// Name returns the bare key name of k, or "" for a nil key, including a
// nil *TypedKey[T].
func Name(k Key) string {
	if isNil(k) {
		return ""
	}
	return k.Name()
}

func isNil(k Key) bool {
	if k == nil {
		return true
	}
	rv := reflect.ValueOf(k)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Extract returns the bare key name from a string, a PlainKey or a TypedKey.
// The boolean is false for anything else.
func Extract(v any) (string, bool) {
	switch k := v.(type) {
	case nil:
		return "", false
	case string:
		return k, true
	case PlainKey:
		return string(k), true
	case Key:
		if isNil(k) {
			return "", false
		}
		return k.Name(), true
	default:
		return "", false
	}
}
