// Package equal implements the equality check the store uses to elide
// no-op writes.
package equal

import "reflect"

// SimpleDeepEqual reports whether a and b are the same value.
//
// It first checks identity: two pointers, maps, slices or channels
// that share the same address (and length, for slices) are equal without
// looking further. Otherwise it compares structurally: maps by key set and
// values, slices and arrays element-wise, structs field by field, pointers
// and interfaces by what they point to, and everything else with ==.
//
// There is no cycle detection. Comparing two distinct cyclic structures
// recurses until the goroutine stack is exhausted. Callers must not store
// cyclic values in a store whose equality check they rely on.
func SimpleDeepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return deepValueEqual(reflect.ValueOf(a), reflect.ValueOf(b))
}

func deepValueEqual(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	if sameReference(a, b) {
		return true
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()

	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !deepValueEqual(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Slice:
		if a.IsNil() != b.IsNil() || a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !deepValueEqual(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Map:
		if a.IsNil() != b.IsNil() || a.Len() != b.Len() {
			return false
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !deepValueEqual(iter.Value(), bv) {
				return false
			}
		}
		return true

	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !deepValueEqual(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true

	case reflect.Pointer, reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return deepValueEqual(a.Elem(), b.Elem())

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Identity was already checked. Non-nil funcs never compare equal.
		return false

	default:
		return false
	}
}

// sameReference is the identity short-circuit.
func sameReference(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Func:
		return a.IsNil() && b.IsNil()
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if a.Kind() == reflect.UnsafePointer {
			return a.Pointer() == b.Pointer()
		}
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return a.Pointer() == b.Pointer()
	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return false
		}
		return a.Len() == b.Len() && a.Pointer() == b.Pointer()
	default:
		return false
	}
}
