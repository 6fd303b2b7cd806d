package dynamic

import (
	"fmt"
	"math"
	"sort"

	"github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/codec"
	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/oneof"
	"github.com/bearlytools/pbj/languages/go/optional"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/gostdlib/base/context"
	"google.golang.org/protobuf/encoding/protowire"
)

// Parse decodes a message of type t from every remaining byte of r. Fields the type
// doesn't declare are skipped. For a singular field that appears more than once the
// last occurrence wins, and repeated fields accept both packed and unpacked encodings.
// An explicit or required field missing from the wire is absent, even when it declares
// a default; Message.GetOrDefault reads the declared value. The result goes through the
// validating constructor.
func Parse(ctx context.Context, t *Type, r *codec.Reader) (*Message, error) {
	vals, err := t.parse(ctx, r)
	if err != nil {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeWire, fmt.Errorf("parsing %s: %w", t.FullName(), err))
	}
	return t.New(ctx, vals...)
}

// ParseBytes is Parse over a whole byte sequence.
func ParseBytes(ctx context.Context, t *Type, s bytes.Sequence) (*Message, error) {
	return Parse(ctx, t, codec.NewReader(s))
}

// Measure returns the number of bytes the message at r occupies by parsing it.
func (t *Type) Measure(ctx context.Context, r *codec.Reader) (int, error) {
	return codec.Measure(
		r,
		func(r *codec.Reader) error {
			_, err := Parse(ctx, t, r)
			return err
		},
	)
}

func (t *Type) parse(ctx context.Context, r *codec.Reader) ([]any, error) {
	vals := t.absent()
	for !r.Done() {
		num, wt, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		f, group := t.decl.Spec.ByNumber(int32(num))
		if f == nil {
			if err := r.Skip(num, wt); err != nil {
				return nil, err
			}
			continue
		}

		if foreign(f) && wt != protowire.BytesType {
			// An enum from another file is classified as a message; its value can't be kept.
			if err := r.Skip(num, wt); err != nil {
				return nil, err
			}
			continue
		}

		if group != nil {
			i, _ := t.index(group.Name)
			v, err := t.parseValue(ctx, r, f, wt)
			if err != nil {
				return nil, err
			}
			vals[i] = oneof.New(f.Number, v)
			continue
		}

		i, _ := t.index(f.Name)
		if !f.Repeated {
			v, err := t.parseValue(ctx, r, f, wt)
			if err != nil {
				return nil, err
			}
			vals[i] = v
			continue
		}

		list := vals[i].([]any)
		if wt == codec.BytesType && f.Type.Packable() {
			l, err := r.ReadVarint()
			if err != nil {
				return nil, err
			}
			if l > uint64(r.Remaining()) {
				return nil, fmt.Errorf("packed field %q of %d bytes, %d remaining: %w", f.Name, l, r.Remaining(), bytes.ErrUnderflow)
			}
			sub, err := r.Sub(int(l))
			if err != nil {
				return nil, err
			}
			for !sub.Done() {
				v, err := t.parseValue(ctx, sub, f, f.Type.WireType())
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
		} else {
			v, err := t.parseValue(ctx, r, f, wt)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		vals[i] = list
	}
	return vals, nil
}

// foreign reports if f references a type declared outside the file. The compiler
// classifies every such type as a message.
func foreign(f *model.FieldSpec) bool {
	return f.Type == model.TypeMessage && !f.Local && !f.IsWrapper()
}

// parseValue reads one value of field f, whose tag carried the wire type wt.
func (t *Type) parseValue(ctx context.Context, r *codec.Reader, f *model.FieldSpec, wt protowire.Type) (any, error) {
	if want := f.Type.WireType(); wt != want {
		return nil, fmt.Errorf("field %q of type %s has wire type %d, want %d: %w", f.Name, typeLabel(f), wt, want, codec.ErrWireType)
	}

	switch {
	case f.IsWrapper():
		sub, err := subReader(r)
		if err != nil {
			return nil, err
		}
		return parseWrapper(sub, f.Wrapper)
	case f.Type == model.TypeMessage:
		if mt := t.messageType(f); mt != nil {
			sub, err := subReader(r)
			if err != nil {
				return nil, err
			}
			return Parse(ctx, mt, sub)
		}
		s, err := r.ReadLengthDelimited()
		if err != nil {
			return nil, err
		}
		return toBytes(s)
	case f.Type == model.TypeEnum:
		v, err := r.ReadVarint()
		if err != nil {
			return nil, err
		}
		return t.enumGroup(f).Lookup(int32(v)), nil
	}
	return parseScalar(r, f.Type)
}

func parseScalar(r *codec.Reader, ft model.FieldType) (any, error) {
	switch ft.WireType() {
	case codec.Fixed32Type:
		v, err := r.ReadFixed32()
		if err != nil {
			return nil, err
		}
		switch ft {
		case model.TypeFloat:
			return math.Float32frombits(v), nil
		case model.TypeSfixed32:
			return int32(v), nil
		}
		return v, nil
	case codec.Fixed64Type:
		v, err := r.ReadFixed64()
		if err != nil {
			return nil, err
		}
		switch ft {
		case model.TypeDouble:
			return math.Float64frombits(v), nil
		case model.TypeSfixed64:
			return int64(v), nil
		}
		return v, nil
	case codec.BytesType:
		s, err := r.ReadLengthDelimited()
		if err != nil {
			return nil, err
		}
		b, err := toBytes(s)
		if err != nil {
			return nil, err
		}
		if ft == model.TypeString {
			return b.UTF8String(), nil
		}
		return b, nil
	}

	if ft.ZigZag() {
		v, err := r.ReadZigZag()
		if err != nil {
			return nil, err
		}
		if ft == model.TypeSint32 {
			return int32(v), nil
		}
		return v, nil
	}
	v, err := r.ReadVarint()
	if err != nil {
		return nil, err
	}
	switch ft {
	case model.TypeInt32:
		return int32(v), nil
	case model.TypeInt64:
		return int64(v), nil
	case model.TypeUint32:
		return uint32(v), nil
	case model.TypeBool:
		return v != 0, nil
	}
	return v, nil
}

// parseWrapper decodes a well known wrapper message, whose value is field 1. A present
// wrapper without field 1 holds the zero value.
func parseWrapper(r *codec.Reader, ft model.FieldType) (any, error) {
	v := ft.Zero()
	for !r.Done() {
		num, wt, err := r.ReadTag()
		if err != nil {
			return nil, err
		}
		if num != 1 {
			if err := r.Skip(num, wt); err != nil {
				return nil, err
			}
			continue
		}
		if wt != ft.WireType() {
			return nil, fmt.Errorf("wrapper value has wire type %d, want %d: %w", wt, ft.WireType(), codec.ErrWireType)
		}
		if v, err = parseScalar(r, ft); err != nil {
			return nil, err
		}
	}
	return model.WrapperSome(ft, v)
}

func subReader(r *codec.Reader) (*codec.Reader, error) {
	l, err := r.ReadVarint()
	if err != nil {
		return nil, err
	}
	if l > uint64(r.Remaining()) {
		return nil, fmt.Errorf("length %d, %d remaining: %w", l, r.Remaining(), bytes.ErrUnderflow)
	}
	return r.Sub(int(l))
}

func toBytes(s bytes.Sequence) (bytes.Bytes, error) {
	if b, ok := s.(bytes.Bytes); ok {
		return b, nil
	}
	raw, err := bytes.ToSlice(s)
	if err != nil {
		return bytes.Empty, err
	}
	return bytes.New(raw), nil
}

// Marshal encodes m in the protobuf wire format, fields in field number order. Implicit
// presence fields holding their zero value, absent values, empty wrappers and empty
// repeated fields are not written.
func Marshal(m *Message) ([]byte, error) {
	ctx := context.Background()
	w := codec.GetWriter(ctx)
	defer codec.PutWriter(ctx, w)

	if err := m.marshal(w); err != nil {
		return nil, err
	}
	return append([]byte(nil), w.Bytes()...), nil
}

type wireField struct {
	spec *model.FieldSpec
	val  any
}

func (m *Message) marshal(w *codec.Writer) error {
	fields := make([]wireField, 0, len(m.values))
	for i, f := range m.typ.decl.Fields {
		v := m.values[i]
		if v == nil {
			continue
		}
		if f.IsOneOf() {
			o := v.(oneof.OneOf[int32])
			if !o.IsSet() {
				continue
			}
			fields = append(fields, wireField{spec: f.OneOf.Alternative(o.Kind()), val: o.Value()})
			continue
		}
		fields = append(fields, wireField{spec: f, val: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].spec.Number < fields[j].spec.Number })

	for _, wf := range fields {
		f := wf.spec
		num := protowire.Number(f.Number)
		if !f.Repeated {
			if f.Presence == model.PresenceImplicit && IsZero(wf.val) {
				continue
			}
			if err := writeValue(w, num, f, wf.val); err != nil {
				return err
			}
			continue
		}

		list := wf.val.([]any)
		if len(list) == 0 {
			continue
		}
		if f.Packed && f.Type.Packable() {
			body := &codec.Writer{}
			for _, v := range list {
				writeScalar(body, f.Type, v)
			}
			w.WriteTag(num, codec.BytesType)
			w.WriteBytes(body.Bytes())
			continue
		}
		for _, v := range list {
			if err := writeValue(w, num, f, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeValue(w *codec.Writer, num protowire.Number, f *model.FieldSpec, v any) error {
	switch {
	case f.IsWrapper():
		if optional.IsEmptyValue(v) {
			return nil
		}
		inner := &codec.Writer{}
		if x := v.(interface{ Any() any }).Any(); !IsZero(x) {
			inner.WriteTag(1, f.Wrapper.WireType())
			writeScalar(inner, f.Wrapper, x)
		}
		w.WriteTag(num, codec.BytesType)
		w.WriteBytes(inner.Bytes())
		return nil
	case f.Type == model.TypeMessage:
		w.WriteTag(num, codec.BytesType)
		switch x := v.(type) {
		case *Message:
			inner := &codec.Writer{}
			if err := x.marshal(inner); err != nil {
				return err
			}
			w.WriteBytes(inner.Bytes())
			return nil
		case bytes.Bytes:
			return w.WriteSequence(x)
		}
		return fmt.Errorf("field %q can't encode a %T: %w", f.Name, v, ErrType)
	}
	w.WriteTag(num, f.Type.WireType())
	writeScalar(w, f.Type, v)
	return nil
}

// writeScalar writes v without a tag. Enums are written as their ordinal.
func writeScalar(w *codec.Writer, ft model.FieldType, v any) {
	switch x := v.(type) {
	case enums.Value:
		w.WriteVarint(uint64(int64(x.Ordinal)))
	case bool:
		if x {
			w.WriteVarint(1)
		} else {
			w.WriteVarint(0)
		}
	case string:
		w.WriteString(x)
	case bytes.Bytes:
		_ = w.WriteSequence(x)
	case float32:
		w.WriteFixed32(math.Float32bits(x))
	case float64:
		w.WriteFixed64(math.Float64bits(x))
	case int32:
		switch {
		case ft.ZigZag():
			w.WriteZigZag(int64(x))
		case ft == model.TypeSfixed32:
			w.WriteFixed32(uint32(x))
		default:
			w.WriteVarint(uint64(int64(x)))
		}
	case int64:
		switch {
		case ft.ZigZag():
			w.WriteZigZag(x)
		case ft == model.TypeSfixed64:
			w.WriteFixed64(uint64(x))
		default:
			w.WriteVarint(uint64(x))
		}
	case uint32:
		if ft == model.TypeFixed32 {
			w.WriteFixed32(x)
		} else {
			w.WriteVarint(uint64(x))
		}
	case uint64:
		if ft == model.TypeFixed64 {
			w.WriteFixed64(x)
		} else {
			w.WriteVarint(x)
		}
	}
}

// IsZero reports if v is the zero value of its field type: false, 0, an empty string or
// bytes, or the enum value with ordinal 0. Those are not written for implicit presence
// fields.
func IsZero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case enums.Value:
		return x.Ordinal == 0
	case bytes.Bytes:
		return x.Len() == 0
	case float32:
		return math.Float32bits(x) == 0
	case float64:
		return math.Float64bits(x) == 0
	case bool:
		return !x
	case string:
		return x == ""
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	}
	return false
}
