// Package patch provides a tri-state JSON field for partial updates.
// A PUT body needs three distinguishable states per field: absent (keep
// the stored value), explicit null (clear it) and a concrete value.
// encoding/json alone collapses the first two into a nil pointer, which
// is exactly the ambiguity that breaks "revert clears the purchase
// fields" if a client omits one of them.
package patch

import "encoding/json"

// Field wraps an optional patch value. Set reports whether the key was
// present in the body at all; Valid reports whether it carried a
// non-null value.
type Field[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// UnmarshalJSON is only called by encoding/json when the key is present,
// so Set is true for both null and concrete values.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

// MarshalJSON round-trips the same three states; unset fields marshal
// as null (callers using omitempty semantics should skip them).
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Of returns a set, non-null field holding v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Valid: true, Value: v}
}

// Null returns a set field carrying an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}
