// Package enums holds the runtime representation of protobuf enumerations.
//
// Generated enum types implement ProtoOrdinal. The dynamic runtime, which has no
// generated types, uses Value and Group instead.
package enums

import "fmt"

// ProtoOrdinal is implemented by every enum type, including the synthetic enum of a
// one-of group.
type ProtoOrdinal interface {
	// ProtoOrdinal returns the wire number of the value.
	ProtoOrdinal() int32
	// ProtoName returns the name the value was declared with.
	ProtoName() string
}

// Value is a single enum value.
type Value struct {
	Name    string
	Ordinal int32
}

// ProtoOrdinal implements ProtoOrdinal.
func (v Value) ProtoOrdinal() int32 {
	return v.Ordinal
}

// ProtoName implements ProtoOrdinal.
func (v Value) ProtoName() string {
	return v.Name
}

func (v Value) String() string {
	return v.Name
}

// Group is an enum type: the ordered values it declares.
type Group struct {
	// Name is the name of the enum type.
	Name string
	// Values are the values in declared order.
	Values []Value
}

// Default returns the value with ordinal 0. If there is none, the first declared value
// is the default. An empty Group returns an unnamed 0 value.
func (g Group) Default() Value {
	if v, ok := g.ByOrdinal(0); ok {
		return v
	}
	if len(g.Values) > 0 {
		return g.Values[0]
	}
	return Value{}
}

// ByName returns the value named s.
func (g Group) ByName(s string) (Value, bool) {
	// Enums are small, a loop is as fast as a map here and costs no allocation.
	for _, v := range g.Values {
		if v.Name == s {
			return v, true
		}
	}
	return Value{}, false
}

// ByOrdinal returns the first value declared with ordinal i.
func (g Group) ByOrdinal(i int32) (Value, bool) {
	for _, v := range g.Values {
		if v.Ordinal == i {
			return v, true
		}
	}
	return Value{}, false
}

// Lookup returns the value for ordinal i. Ordinals the group doesn't declare are kept
// as an unnamed value so data read from the wire is never lost.
func (g Group) Lookup(i int32) Value {
	if v, ok := g.ByOrdinal(i); ok {
		return v
	}
	return Value{Name: fmt.Sprintf("%s(%d)", g.Name, i), Ordinal: i}
}
