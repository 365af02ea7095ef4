package domain

import (
	"bytes"
	"encoding/json"
)

// Field is a JSON value that remembers whether its key was present and
// whether it was an explicit null, which a plain pointer cannot express.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Value returns a Field holding v.
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a Field that was sent as an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// IsPresent reports whether the key was sent with a non-null value.
func (f Field[T]) IsPresent() bool {
	return f.Set && !f.Null
}

// Ptr returns nil when the field is absent or null, otherwise a pointer to a
// copy of the value.
func (f Field[T]) Ptr() *T {
	if !f.IsPresent() {
		return nil
	}
	v := f.Value
	return &v
}
