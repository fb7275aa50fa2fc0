package store

import (
	"encoding/json"

	"github.com/vango-dev/fusion/pkg/key"
)

// GetAs returns the value of k as a T. A hydrated value that has not been
// typed by a declaration yet is converted through JSON. The boolean is
// false if k is missing or cannot be converted.
func GetAs[T any](s *Store, k key.TypedKey[T]) (T, bool) {
	v, ok := s.Get(k)
	if !ok {
		var zero T
		return zero, false
	}
	t, err := convert[T](v)
	if err != nil {
		var zero T
		return zero, false
	}
	return t, true
}

// DeclareAs is DeclareInitial for a typed key.
func DeclareAs[T any](s *Store, k key.TypedKey[T], initial T) (T, error) {
	v, err := s.DeclareInitial(k, initial)
	if err != nil {
		var zero T
		return zero, err
	}
	return convert[T](v)
}

// SetAs writes v to k.
func SetAs[T any](s *Store, k key.TypedKey[T], v T) error {
	return s.Set(k, Value(v))
}

// UpdateAs writes fn(current) to k.
func UpdateAs[T any](s *Store, k key.TypedKey[T], fn func(T) T) error {
	return s.Set(k, Func(func(prev any) any {
		p, _ := convert[T](prev)
		return fn(p)
	}))
}

// convert returns v as a T, going through JSON when the dynamic type
// differs. A nil v is the zero T.
func convert[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var out T
	if v == nil {
		return out, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}
