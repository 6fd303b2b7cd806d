// Package model holds the compiled form of a protobuf schema: the field, one-of, enum
// and message specs the compiler derives from the AST, and the declarations it hands to
// an emitter.
//
// Specs are owned by the compile that produced them and are not modified after Compile
// returns.
package model

import (
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// FieldType is the declared protobuf type of a field.
type FieldType uint8

const (
	TypeUnknown  FieldType = 0
	TypeDouble   FieldType = 1
	TypeFloat    FieldType = 2
	TypeInt32    FieldType = 3
	TypeInt64    FieldType = 4
	TypeUint32   FieldType = 5
	TypeUint64   FieldType = 6
	TypeSint32   FieldType = 7
	TypeSint64   FieldType = 8
	TypeFixed32  FieldType = 9
	TypeFixed64  FieldType = 10
	TypeSfixed32 FieldType = 11
	TypeSfixed64 FieldType = 12
	TypeBool     FieldType = 13
	TypeString   FieldType = 14
	TypeBytes    FieldType = 15
	TypeEnum     FieldType = 16
	TypeMessage  FieldType = 17
	// TypeOneOf is the type of the single logical field a one-of group compiles to.
	TypeOneOf FieldType = 18
)

var typeNames = [...]string{
	TypeUnknown:  "unknown",
	TypeDouble:   "double",
	TypeFloat:    "float",
	TypeInt32:    "int32",
	TypeInt64:    "int64",
	TypeUint32:   "uint32",
	TypeUint64:   "uint64",
	TypeSint32:   "sint32",
	TypeSint64:   "sint64",
	TypeFixed32:  "fixed32",
	TypeFixed64:  "fixed64",
	TypeSfixed32: "sfixed32",
	TypeSfixed64: "sfixed64",
	TypeBool:     "bool",
	TypeString:   "string",
	TypeBytes:    "bytes",
	TypeEnum:     "enum",
	TypeMessage:  "message",
	TypeOneOf:    "oneof",
}

func (t FieldType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// ParseScalar returns the FieldType for a scalar type keyword such as "sint64".
func ParseScalar(s string) (FieldType, bool) {
	for t := TypeDouble; t <= TypeBytes; t++ {
		if typeNames[t] == s {
			return t, true
		}
	}
	return TypeUnknown, false
}

// IsScalar reports if t is a numeric, bool, string or bytes type.
func (t FieldType) IsScalar() bool {
	return t >= TypeDouble && t <= TypeBytes
}

// IsNumeric reports if t is encoded as a varint or fixed width number. Enums are numeric.
func (t FieldType) IsNumeric() bool {
	return (t >= TypeDouble && t <= TypeBool) || t == TypeEnum
}

// Packable reports if a repeated field of t may use packed encoding.
func (t FieldType) Packable() bool {
	return t.IsNumeric()
}

// ZigZag reports if t is varint encoded with the ZigZag transform.
func (t FieldType) ZigZag() bool {
	return t == TypeSint32 || t == TypeSint64
}

// WireType returns the wire type a single value of t is encoded with.
func (t FieldType) WireType() protowire.Type {
	switch t {
	case TypeDouble, TypeFixed64, TypeSfixed64:
		return protowire.Fixed64Type
	case TypeFloat, TypeFixed32, TypeSfixed32:
		return protowire.Fixed32Type
	case TypeString, TypeBytes, TypeMessage:
		return protowire.BytesType
	}
	return protowire.VarintType
}

var wrappers = map[string]FieldType{
	"DoubleValue": TypeDouble,
	"FloatValue":  TypeFloat,
	"Int64Value":  TypeInt64,
	"UInt64Value": TypeUint64,
	"Int32Value":  TypeInt32,
	"UInt32Value": TypeUint32,
	"BoolValue":   TypeBool,
	"StringValue": TypeString,
	"BytesValue":  TypeBytes,
}

// WrapperPackage is the package of the well known wrapper types.
const WrapperPackage = "google.protobuf"

// WrapperType reports if name is one of the google.protobuf wrapper messages
// (StringValue, Int32Value, ...) and returns the type it wraps. The name must be
// qualified with the google.protobuf package, optionally with a leading ".".
func WrapperType(name string) (FieldType, bool) {
	name = strings.TrimPrefix(name, ".")
	short, ok := strings.CutPrefix(name, WrapperPackage+".")
	if !ok {
		return TypeUnknown, false
	}
	t, ok := wrappers[short]
	return t, ok
}

// Presence describes how a singular field treats an absent value.
type Presence uint8

const (
	// PresenceImplicit is a proto3 singular scalar, string, bytes or enum field. The
	// default is the type's zero value and an absent value is rejected.
	PresenceImplicit Presence = 0
	// PresenceExplicit is an "optional" field or a singular message field. The default
	// is absent and an absent value is accepted.
	PresenceExplicit Presence = 1
	// PresenceRequired is a proto2 "required" field. The default is absent and an absent
	// value is rejected.
	PresenceRequired Presence = 2
)

func (p Presence) String() string {
	switch p {
	case PresenceExplicit:
		return "explicit"
	case PresenceRequired:
		return "required"
	}
	return "implicit"
}
