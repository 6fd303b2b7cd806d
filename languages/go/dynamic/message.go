package dynamic

import (
	"fmt"
	"math"
	"strings"

	"github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/oneof"
	"github.com/bearlytools/pbj/languages/go/optional"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/gostdlib/base/context"
)

// Message is an immutable message value.
type Message struct {
	typ    *Type
	values []any
}

// New is the validating constructor. It takes one value per field, in field order, with
// nil for an absent value. Every field that can't be absent is checked, and a one-of
// whose active alternative holds an empty optional value is reset to UNSET.
func (t *Type) New(ctx context.Context, values ...any) (*Message, error) {
	fields := t.decl.Fields
	if len(values) != len(fields) {
		return nil, errors.E(
			ctx,
			errors.CatUser,
			errors.TypeParameter,
			fmt.Errorf("message %s has %d fields, got %d values: %w", t.FullName(), len(fields), len(values), ErrType),
		)
	}

	vals := make([]any, len(values))
	for i, f := range fields {
		v, err := t.coerce(f, values[i])
		if err != nil {
			return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter, err)
		}
		if l, ok := v.([]any); ok {
			v = append([]any(nil), l...)
		}
		vals[i] = v
	}

	for _, chk := range t.decl.Constructor {
		i, _ := t.index(chk.Field.Name)
		switch chk.Kind {
		case model.CheckPresent:
			if vals[i] == nil {
				return nil, errors.MissingField(ctx, chk.Field.Name)
			}
		case model.CheckNormalizeEmpty:
			o, ok := vals[i].(oneof.OneOf[int32])
			if ok && o.Is(chk.Alternative.Number) && optional.IsEmptyValue(o.Value()) {
				vals[i] = oneof.Unset[int32]()
			}
		}
	}
	return &Message{typ: t, values: vals}, nil
}

// coerce checks v is a valid value for f and converts the loose forms callers commonly
// pass: an int for any integer field, a []T for a repeated field and an unwrapped value
// for a wrapper field. nil is returned unchanged.
func (t *Type) coerce(f *model.FieldSpec, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case f.Repeated:
		list, err := toList(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out := make([]any, len(list))
		for i, e := range list {
			if e == nil {
				return nil, fmt.Errorf("field %q: element %d is nil: %w", f.Name, i, ErrType)
			}
			if out[i], err = t.coerceElem(f, e); err != nil {
				return nil, err
			}
		}
		return out, nil
	case f.IsOneOf():
		o, ok := v.(oneof.OneOf[int32])
		if !ok {
			return nil, fmt.Errorf("one-of %q can't hold a %T: %w", f.Name, v, ErrType)
		}
		if !o.IsSet() {
			return o, nil
		}
		alt := f.OneOf.Alternative(o.Kind())
		if alt == nil {
			return nil, fmt.Errorf("one-of %q has no alternative %d: %w", f.Name, o.Kind(), ErrType)
		}
		p, err := t.coerceElem(alt, o.Value())
		if err != nil {
			return nil, err
		}
		return oneof.New(o.Kind(), p), nil
	}
	return t.coerceElem(f, v)
}

func (t *Type) coerceElem(f *model.FieldSpec, v any) (any, error) {
	bad := func() error {
		return fmt.Errorf("field %q of type %s can't hold a %T: %w", f.Name, typeLabel(f), v, ErrType)
	}
	switch {
	case f.IsWrapper():
		if model.WrapperAccepts(f.Wrapper, v) {
			return v, nil
		}
		inner, err := t.coerceScalar(f.Wrapper, v)
		if err != nil {
			return nil, bad()
		}
		return model.WrapperSome(f.Wrapper, inner)
	case f.Type == model.TypeEnum:
		switch x := v.(type) {
		case enums.Value:
			return x, nil
		case enums.ProtoOrdinal:
			return enums.Value{Name: x.ProtoName(), Ordinal: x.ProtoOrdinal()}, nil
		case int32:
			return t.enumGroup(f).Lookup(x), nil
		case int:
			return t.enumGroup(f).Lookup(int32(x)), nil
		}
		return nil, bad()
	case f.Type == model.TypeMessage:
		switch x := v.(type) {
		case *Message:
			if x == nil {
				return nil, bad()
			}
			if x.typ.FullName() != f.TypeName {
				return nil, fmt.Errorf("field %q wants a %s, got a %s: %w", f.Name, f.TypeName, x.typ.FullName(), ErrType)
			}
			return x, nil
		case bytes.Bytes:
			if t.messageType(f) != nil {
				return nil, bad()
			}
			return x, nil
		}
		return nil, bad()
	}
	s, err := t.coerceScalar(f.Type, v)
	if err != nil {
		return nil, bad()
	}
	return s, nil
}

func (t *Type) coerceScalar(ft model.FieldType, v any) (any, error) {
	if ft.Accepts(v) {
		return v, nil
	}
	switch x := v.(type) {
	case int:
		switch ft.GoType() {
		case "int32":
			if x >= math.MinInt32 && x <= math.MaxInt32 {
				return int32(x), nil
			}
		case "int64":
			return int64(x), nil
		case "uint32":
			if x >= 0 && x <= math.MaxUint32 {
				return uint32(x), nil
			}
		case "uint64":
			if x >= 0 {
				return uint64(x), nil
			}
		}
	case []byte:
		if ft == model.TypeBytes {
			return bytes.New(x), nil
		}
	}
	return nil, ErrType
}

func toList(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []string:
		return listOf(x), nil
	case []int32:
		return listOf(x), nil
	case []int64:
		return listOf(x), nil
	case []uint32:
		return listOf(x), nil
	case []uint64:
		return listOf(x), nil
	case []float32:
		return listOf(x), nil
	case []float64:
		return listOf(x), nil
	case []bool:
		return listOf(x), nil
	case []int:
		return listOf(x), nil
	case []*Message:
		return listOf(x), nil
	}
	return nil, fmt.Errorf("a repeated field can't hold a %T: %w", v, ErrType)
}

func listOf[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func typeLabel(f *model.FieldSpec) string {
	if f.TypeName != "" {
		return f.TypeName
	}
	return f.Type.String()
}

// Type returns the message's Type.
func (m *Message) Type() *Type {
	return m.typ
}

// Get returns the value of the field or one-of group named name. An absent value is nil.
// A repeated field returns a copy of its list.
func (m *Message) Get(name string) (any, error) {
	i, ok := m.typ.index(name)
	if !ok {
		return nil, noField(m.typ, name)
	}
	if l, ok := m.values[i].([]any); ok {
		return append([]any(nil), l...), nil
	}
	return m.values[i], nil
}

// GetOrDefault is Get, except an absent explicit or required field returns the default
// its declaration gives, which may also be nil.
func (m *Message) GetOrDefault(name string) (any, error) {
	v, err := m.Get(name)
	if err != nil || v != nil {
		return v, err
	}
	i, _ := m.typ.index(name)
	if f := m.typ.decl.Fields[i]; declaredOnly(f) {
		return f.Default, nil
	}
	return nil, nil
}

// Has reports if the field named name holds a value. A one-of is present when an
// alternative is active.
func (m *Message) Has(name string) bool {
	i, ok := m.typ.index(name)
	if !ok {
		return false
	}
	if o, ok := m.values[i].(oneof.OneOf[int32]); ok {
		return o.IsSet()
	}
	return m.values[i] != nil
}

// OneOf returns the value of the one-of group named name.
func (m *Message) OneOf(name string) (oneof.OneOf[int32], error) {
	i, ok := m.typ.index(name)
	if !ok || !m.typ.decl.Fields[i].IsOneOf() {
		return oneof.OneOf[int32]{}, noField(m.typ, name)
	}
	return m.values[i].(oneof.OneOf[int32]), nil
}

// Alternative is the accessor for the one-of alternative named name. It returns the
// payload and true if that alternative is active, and nil and false otherwise, including
// when no alternative has that name.
func (m *Message) Alternative(name string) (any, bool) {
	i, alt, ok := m.typ.alternative(name)
	if !ok {
		return nil, false
	}
	o := m.values[i].(oneof.OneOf[int32])
	if !o.Is(alt.Number) {
		return nil, false
	}
	return o.Value(), true
}

// Values returns one value per field, in field order. This is the argument list of the
// copy constructor.
func (m *Message) Values() []any {
	out := make([]any, len(m.values))
	for i, v := range m.values {
		if l, ok := v.([]any); ok {
			v = append([]any(nil), l...)
		}
		out[i] = v
	}
	return out
}

// Equal reports if o is the same Type and every field is equal.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.typ.decl != o.typ.decl {
		return false
	}
	for i := range m.values {
		if !valueEqual(m.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valueEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Message:
		y, ok := b.(*Message)
		return ok && x.Equal(y)
	case oneof.OneOf[int32]:
		y, ok := b.(oneof.OneOf[int32])
		return ok && x.Kind() == y.Kind() && valueEqual(x.Value(), y.Value())
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	case optional.Value[float64]:
		y, ok := b.(optional.Value[float64])
		return ok && x.IsEmpty() == y.IsEmpty() && valueEqual(x.Any(), y.Any())
	case optional.Value[float32]:
		y, ok := b.(optional.Value[float32])
		return ok && x.IsEmpty() == y.IsEmpty() && valueEqual(x.Any(), y.Any())
	}
	return a == b
}

// String renders the message for debugging, for example Person{name=bob, ids=[1 2]}.
func (m *Message) String() string {
	sb := strings.Builder{}
	sb.WriteString(m.typ.decl.Name())
	sb.WriteByte('{')
	for i, f := range m.typ.decl.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", f.Name, m.values[i])
	}
	sb.WriteByte('}')
	return sb.String()
}
