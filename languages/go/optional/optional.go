// Package optional provides the value type used for fields of the protobuf wrapper
// types (google.protobuf.StringValue, Int32Value, ...). A Value distinguishes "present
// and empty" from holding a value, which is the case a one-of alternative of a wrapper
// type collapses to unset.
package optional

import "fmt"

// Emptier is implemented by Value of any type so callers can check emptiness without
// knowing T.
type Emptier interface {
	IsEmpty() bool
}

// Value is an optional T. The zero value is empty.
type Value[T any] struct {
	v   T
	set bool
}

// Some returns a Value holding v.
func Some[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// None returns an empty Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the held value and true, or the zero value and false if empty.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.set
}

// IsEmpty implements Emptier.
func (v Value[T]) IsEmpty() bool {
	return !v.set
}

// OrElse returns the held value or def if empty.
func (v Value[T]) OrElse(def T) T {
	if v.set {
		return v.v
	}
	return def
}

// Any returns the held value as an any, nil when empty.
func (v Value[T]) Any() any {
	if !v.set {
		return nil
	}
	return v.v
}

func (v Value[T]) String() string {
	if !v.set {
		return "Optional.empty"
	}
	return fmt.Sprintf("Optional[%v]", v.v)
}

// IsEmptyValue reports if x is an Emptier that is empty. Any other value, including
// nil, reports false.
func IsEmptyValue(x any) bool {
	e, ok := x.(Emptier)
	return ok && e.IsEmpty()
}
