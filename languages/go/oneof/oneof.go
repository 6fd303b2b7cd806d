// Package oneof holds the runtime value of a protobuf one-of group: the kind of the
// active alternative and its payload.
//
// K is the enum type generated for the group. Its zero value is the UNSET kind, so the
// zero value of OneOf is an unset group.
package oneof

import "fmt"

// OneOf is a discriminated union value. Kind() == 0 if and only if Value() is nil.
// OneOf is immutable; setting an alternative produces a new value.
type OneOf[K ~int32] struct {
	kind    K
	payload any
}

// New returns a OneOf with the alternative kind active and holding payload. A nil
// payload or a zero kind results in the unset value, so the kind and payload can't
// disagree.
func New[K ~int32](kind K, payload any) OneOf[K] {
	if kind == 0 || payload == nil {
		return OneOf[K]{}
	}
	return OneOf[K]{kind: kind, payload: payload}
}

// Unset returns the OneOf with no active alternative.
func Unset[K ~int32]() OneOf[K] {
	return OneOf[K]{}
}

// Kind returns the active alternative. 0 is UNSET.
func (o OneOf[K]) Kind() K {
	return o.kind
}

// Value returns the payload of the active alternative or nil if unset.
func (o OneOf[K]) Value() any {
	return o.payload
}

// IsSet reports if an alternative is active.
func (o OneOf[K]) IsSet() bool {
	return o.kind != 0
}

// Is reports if kind is the active alternative.
func (o OneOf[K]) Is(kind K) bool {
	return kind != 0 && o.kind == kind
}

func (o OneOf[K]) String() string {
	if !o.IsSet() {
		return "OneOf[UNSET]"
	}
	return fmt.Sprintf("OneOf[%v: %v]", o.kind, o.payload)
}

// As returns the payload if kind is the active alternative and the payload is a T.
// Otherwise it returns the zero value of T and false. It never panics.
func As[T any, K ~int32](o OneOf[K], kind K) (T, bool) {
	var zero T
	if !o.Is(kind) {
		return zero, false
	}
	v, ok := o.payload.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
