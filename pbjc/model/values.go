package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/optional"
)

// GoType returns the Go type a single value of t is held as, using the package names
// of the pbj runtime. Enum and message types return "".
func (t FieldType) GoType() string {
	switch t {
	case TypeDouble:
		return "float64"
	case TypeFloat:
		return "float32"
	case TypeInt32, TypeSint32, TypeSfixed32:
		return "int32"
	case TypeInt64, TypeSint64, TypeSfixed64:
		return "int64"
	case TypeUint32, TypeFixed32:
		return "uint32"
	case TypeUint64, TypeFixed64:
		return "uint64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes.Bytes"
	}
	return ""
}

// Zero returns the zero value of a scalar t in its runtime Go type, nil otherwise.
func (t FieldType) Zero() any {
	switch t {
	case TypeDouble:
		return float64(0)
	case TypeFloat:
		return float32(0)
	case TypeInt32, TypeSint32, TypeSfixed32:
		return int32(0)
	case TypeInt64, TypeSint64, TypeSfixed64:
		return int64(0)
	case TypeUint32, TypeFixed32:
		return uint32(0)
	case TypeUint64, TypeFixed64:
		return uint64(0)
	case TypeBool:
		return false
	case TypeString:
		return ""
	case TypeBytes:
		return bytes.Empty
	}
	return nil
}

// Accepts reports if v has the runtime Go type of a scalar t.
func (t FieldType) Accepts(v any) bool {
	switch v.(type) {
	case float64:
		return t == TypeDouble
	case float32:
		return t == TypeFloat
	case int32:
		return t == TypeInt32 || t == TypeSint32 || t == TypeSfixed32
	case int64:
		return t == TypeInt64 || t == TypeSint64 || t == TypeSfixed64
	case uint32:
		return t == TypeUint32 || t == TypeFixed32
	case uint64:
		return t == TypeUint64 || t == TypeFixed64
	case bool:
		return t == TypeBool
	case string:
		return t == TypeString
	case bytes.Bytes:
		return t == TypeBytes
	}
	return false
}

// WrapperNone returns the empty optional value for a wrapper of t.
func WrapperNone(t FieldType) any {
	switch t {
	case TypeDouble:
		return optional.None[float64]()
	case TypeFloat:
		return optional.None[float32]()
	case TypeInt32:
		return optional.None[int32]()
	case TypeInt64:
		return optional.None[int64]()
	case TypeUint32:
		return optional.None[uint32]()
	case TypeUint64:
		return optional.None[uint64]()
	case TypeBool:
		return optional.None[bool]()
	case TypeString:
		return optional.None[string]()
	case TypeBytes:
		return optional.None[bytes.Bytes]()
	}
	return nil
}

// WrapperSome returns v held in the optional value type for a wrapper of t. v must be
// of t's runtime Go type.
func WrapperSome(t FieldType, v any) (any, error) {
	if !t.Accepts(v) {
		return nil, fmt.Errorf("%T is not a valid %s", v, t)
	}
	switch x := v.(type) {
	case float64:
		return optional.Some(x), nil
	case float32:
		return optional.Some(x), nil
	case int32:
		return optional.Some(x), nil
	case int64:
		return optional.Some(x), nil
	case uint32:
		return optional.Some(x), nil
	case uint64:
		return optional.Some(x), nil
	case bool:
		return optional.Some(x), nil
	case string:
		return optional.Some(x), nil
	case bytes.Bytes:
		return optional.Some(x), nil
	}
	return nil, fmt.Errorf("%s can't be wrapped", t)
}

// WrapperAccepts reports if v is the optional value type for a wrapper of t.
func WrapperAccepts(t FieldType, v any) bool {
	switch v.(type) {
	case optional.Value[float64]:
		return t == TypeDouble
	case optional.Value[float32]:
		return t == TypeFloat
	case optional.Value[int32]:
		return t == TypeInt32
	case optional.Value[int64]:
		return t == TypeInt64
	case optional.Value[uint32]:
		return t == TypeUint32
	case optional.Value[uint64]:
		return t == TypeUint64
	case optional.Value[bool]:
		return t == TypeBool
	case optional.Value[string]:
		return t == TypeString
	case optional.Value[bytes.Bytes]:
		return t == TypeBytes
	}
	return false
}

// ParseDefault parses the literal of a proto2 [default = ...] option for scalar t.
func ParseDefault(t FieldType, lit string) (any, error) {
	switch t {
	case TypeDouble, TypeFloat:
		bits := 64
		if t == TypeFloat {
			bits = 32
		}
		var f float64
		switch strings.ToLower(lit) {
		case "inf":
			f = math.Inf(1)
		case "-inf":
			f = math.Inf(-1)
		case "nan":
			f = math.NaN()
		default:
			var err error
			f, err = strconv.ParseFloat(lit, bits)
			if err != nil {
				return nil, err
			}
		}
		if t == TypeFloat {
			return float32(f), nil
		}
		return f, nil
	case TypeInt32, TypeSint32, TypeSfixed32:
		i, err := strconv.ParseInt(lit, 0, 32)
		return int32(i), err
	case TypeInt64, TypeSint64, TypeSfixed64:
		i, err := strconv.ParseInt(lit, 0, 64)
		return i, err
	case TypeUint32, TypeFixed32:
		u, err := strconv.ParseUint(lit, 0, 32)
		return uint32(u), err
	case TypeUint64, TypeFixed64:
		u, err := strconv.ParseUint(lit, 0, 64)
		return u, err
	case TypeBool:
		return strconv.ParseBool(lit)
	case TypeString:
		return unquote(lit), nil
	case TypeBytes:
		return bytes.Wrap(unquote(lit)), nil
	}
	return nil, fmt.Errorf("type %s has no default literal", t)
}

func unquote(lit string) string {
	if s, err := strconv.Unquote(lit); err == nil {
		return s
	}
	return lit
}
