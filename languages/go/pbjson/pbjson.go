// Package pbjson marshals dynamic messages to and from the protobuf JSON mapping.
//
// Field keys are the lower camel JSON names (or the json_name option). 64 bit integers
// are JSON strings, bytes are standard base64, enums are their value names, wrapper
// fields are their bare value and the active one-of alternative is written under its own
// name. Absent values, empty lists and implicit presence fields holding their zero value
// are omitted. A message field whose type isn't in the registry is written as the base64
// of its encoded bytes.
package pbjson

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"strconv"

	pbytes "github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/dynamic"
	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/oneof"
	"github.com/bearlytools/pbj/languages/go/optional"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/context"
)

var (
	// ErrSyntax indicates JSON that doesn't have the shape of the message.
	ErrSyntax = errors.New("invalid JSON for message")
	// ErrUnknownField indicates a key that matches no field of the message.
	ErrUnknownField = errors.New("unknown field")
)

// marshalOptions provides options for writing messages to JSON.
type marshalOptions struct {
	UseEnumNumbers bool
	UseProtoNames  bool
	Multiline      bool
}

// MarshalOption provides options for marshaling messages to JSON.
type MarshalOption func(marshalOptions) (marshalOptions, error)

// WithUseEnumNumbers configures whether enum values are emitted as numbers or strings.
func WithUseEnumNumbers(use bool) MarshalOption {
	return func(m marshalOptions) (marshalOptions, error) {
		m.UseEnumNumbers = use
		return m, nil
	}
}

// WithUseProtoNames uses the field names as declared, such as "first_name", for keys.
func WithUseProtoNames(use bool) MarshalOption {
	return func(m marshalOptions) (marshalOptions, error) {
		m.UseProtoNames = use
		return m, nil
	}
}

// WithMultiline writes one member per line, indented.
func WithMultiline(multi bool) MarshalOption {
	return func(m marshalOptions) (marshalOptions, error) {
		m.Multiline = multi
		return m, nil
	}
}

// Marshal marshals m to JSON.
func Marshal(ctx context.Context, m *dynamic.Message, options ...MarshalOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := MarshalWriter(ctx, m, &buf, options...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalWriter marshals m to JSON, writing to the provided io.Writer.
func MarshalWriter(ctx context.Context, m *dynamic.Message, w io.Writer, options ...MarshalOption) error {
	opts := marshalOptions{}
	for _, opt := range options {
		var err error
		opts, err = opt(opts)
		if err != nil {
			return err
		}
	}

	enc := jsontext.NewEncoder(w, jsontext.Multiline(opts.Multiline))
	if err := writeMessage(enc, m, opts); err != nil {
		return errors.E(ctx, errors.CatInternal, errors.TypeBug, err)
	}
	return nil
}

func writeMessage(enc *jsontext.Encoder, m *dynamic.Message, opts marshalOptions) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	reg := m.Type().Registry()
	for _, f := range m.Type().Decl().Fields {
		v, err := m.Get(f.Name)
		if err != nil {
			return err
		}

		switch {
		case v == nil:
			continue
		case f.IsOneOf():
			o := v.(oneof.OneOf[int32])
			if !o.IsSet() {
				continue
			}
			alt := f.OneOf.Alternative(o.Kind())
			if err := writeName(enc, alt, opts); err != nil {
				return err
			}
			if err := writeValue(enc, reg, alt, o.Value(), opts); err != nil {
				return err
			}
			continue
		case f.Repeated:
			list := v.([]any)
			if len(list) == 0 {
				continue
			}
			if err := writeName(enc, f, opts); err != nil {
				return err
			}
			if err := enc.WriteToken(jsontext.BeginArray); err != nil {
				return err
			}
			for _, e := range list {
				if err := writeValue(enc, reg, f, e, opts); err != nil {
					return err
				}
			}
			if err := enc.WriteToken(jsontext.EndArray); err != nil {
				return err
			}
			continue
		case f.IsWrapper() && optional.IsEmptyValue(v):
			continue
		case f.Presence == model.PresenceImplicit && dynamic.IsZero(v):
			continue
		}

		if err := writeName(enc, f, opts); err != nil {
			return err
		}
		if err := writeValue(enc, reg, f, v, opts); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

func writeName(enc *jsontext.Encoder, f *model.FieldSpec, opts marshalOptions) error {
	if opts.UseProtoNames {
		return enc.WriteToken(jsontext.String(f.Name))
	}
	return enc.WriteToken(jsontext.String(f.JSONName()))
}

// writeValue writes a single value of field f.
func writeValue(enc *jsontext.Encoder, reg *dynamic.Registry, f *model.FieldSpec, v any, opts marshalOptions) error {
	switch x := v.(type) {
	case *dynamic.Message:
		return writeMessage(enc, x, opts)
	case pbytes.Bytes:
		return enc.WriteToken(jsontext.String(base64.StdEncoding.EncodeToString(x.AppendTo(nil))))
	case enums.Value:
		if !opts.UseEnumNumbers {
			if g, ok := reg.Enum(f.TypeName); ok {
				if known, ok := g.ByOrdinal(x.Ordinal); ok {
					return enc.WriteToken(jsontext.String(known.Name))
				}
			}
		}
		// Values the enum doesn't declare are written as numbers.
		return enc.WriteToken(jsontext.Int(int64(x.Ordinal)))
	case string:
		return enc.WriteToken(jsontext.String(x))
	case bool:
		return enc.WriteToken(jsontext.Bool(x))
	case int32:
		return enc.WriteToken(jsontext.Int(int64(x)))
	case uint32:
		return enc.WriteToken(jsontext.Uint(uint64(x)))
	case int64:
		return enc.WriteToken(jsontext.String(strconv.FormatInt(x, 10)))
	case uint64:
		return enc.WriteToken(jsontext.String(strconv.FormatUint(x, 10)))
	case float32:
		f64 := float64(x)
		if math.IsNaN(f64) || math.IsInf(f64, 0) {
			return enc.WriteToken(jsontext.Float(f64))
		}
		return enc.WriteValue(jsontext.Value(strconv.FormatFloat(f64, 'g', -1, 32)))
	case float64:
		return enc.WriteToken(jsontext.Float(x))
	case interface{ Any() any }:
		return writeValue(enc, reg, f, x.Any(), opts)
	}
	return fmt.Errorf("field %q: can't write a %T as JSON", f.Name, v)
}

// unmarshalOptions provides options for reading messages from JSON.
type unmarshalOptions struct {
	IgnoreUnknownFields bool
}

// UnmarshalOption provides options for unmarshaling JSON to a message.
type UnmarshalOption func(unmarshalOptions) (unmarshalOptions, error)

// WithIgnoreUnknownFields skips keys that match no field instead of failing.
func WithIgnoreUnknownFields(ignore bool) UnmarshalOption {
	return func(u unmarshalOptions) (unmarshalOptions, error) {
		u.IgnoreUnknownFields = ignore
		return u, nil
	}
}

// Unmarshal parses JSON data into a message of type t. Keys may be either the JSON name
// or the declared name of a field. A null value leaves the field at its default. The
// result goes through the validating constructor.
func Unmarshal(ctx context.Context, data []byte, t *dynamic.Type, options ...UnmarshalOption) (*dynamic.Message, error) {
	return UnmarshalReader(ctx, bytes.NewReader(data), t, options...)
}

// UnmarshalReader parses JSON from a reader into a message of type t.
func UnmarshalReader(ctx context.Context, r io.Reader, t *dynamic.Type, options ...UnmarshalOption) (*dynamic.Message, error) {
	opts := unmarshalOptions{}
	for _, opt := range options {
		var err error
		opts, err = opt(opts)
		if err != nil {
			return nil, err
		}
	}

	dec := jsontext.NewDecoder(r)
	m, err := readMessage(ctx, dec, t, opts)
	if err != nil {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter, err)
	}
	return m, nil
}

type target struct {
	field *model.FieldSpec
	alt   *model.FieldSpec
}

// keys maps both the JSON and declared names of every field and alternative of t.
func keys(t *dynamic.Type) map[string]target {
	out := map[string]target{}
	for _, f := range t.Decl().Fields {
		if f.IsOneOf() {
			for _, alt := range f.OneOf.Fields {
				out[alt.Name] = target{field: f, alt: alt}
				out[alt.JSONName()] = target{field: f, alt: alt}
			}
			continue
		}
		out[f.Name] = target{field: f}
		out[f.JSONName()] = target{field: f}
	}
	return out
}

func readMessage(ctx context.Context, dec *jsontext.Decoder, t *dynamic.Type, opts unmarshalOptions) (*dynamic.Message, error) {
	if err := expect(dec, '{'); err != nil {
		return nil, err
	}
	fields := keys(t)
	b := t.NewEmptyBuilder()

	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, err
		}
		key := tok.String()
		tgt, ok := fields[key]
		if !ok {
			if !opts.IgnoreUnknownFields {
				return nil, fmt.Errorf("message %s has no field %q: %w", t.FullName(), key, ErrUnknownField)
			}
			if err := dec.SkipValue(); err != nil {
				return nil, err
			}
			continue
		}
		if dec.PeekKind() == 'n' {
			if _, err := dec.ReadToken(); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case tgt.alt != nil:
			v, err := readValue(ctx, dec, t, tgt.alt, opts)
			if err != nil {
				return nil, err
			}
			b.SetAlternative(tgt.alt.Name, v)
		case tgt.field.Repeated:
			if err := expect(dec, '['); err != nil {
				return nil, err
			}
			list := []any{}
			for dec.PeekKind() != ']' {
				v, err := readValue(ctx, dec, t, tgt.field, opts)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.ReadToken(); err != nil {
				return nil, err
			}
			b.Set(tgt.field.Name, list)
		default:
			v, err := readValue(ctx, dec, t, tgt.field, opts)
			if err != nil {
				return nil, err
			}
			b.Set(tgt.field.Name, v)
		}
	}
	if _, err := dec.ReadToken(); err != nil {
		return nil, err
	}
	return b.Build(ctx)
}

func expect(dec *jsontext.Decoder, kind jsontext.Kind) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != kind {
		return fmt.Errorf("got %v, want %v: %w", tok.Kind(), kind, ErrSyntax)
	}
	return nil
}

// readValue reads one value of field f in its runtime Go type.
func readValue(ctx context.Context, dec *jsontext.Decoder, t *dynamic.Type, f *model.FieldSpec, opts unmarshalOptions) (any, error) {
	switch {
	case f.IsWrapper():
		return readScalar(dec, f.Wrapper)
	case f.Type == model.TypeMessage:
		if mt := t.Registry().Type(f.TypeName); mt != nil {
			return readMessage(ctx, dec, mt, opts)
		}
		v, err := readScalar(dec, model.TypeBytes)
		if err != nil {
			return nil, err
		}
		return v, nil
	case f.Type == model.TypeEnum:
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, err
		}
		g, _ := t.Registry().Enum(f.TypeName)
		switch tok.Kind() {
		case '"':
			v, ok := g.ByName(tok.String())
			if !ok {
				return nil, fmt.Errorf("field %q: enum %s has no value %q: %w", f.Name, f.TypeName, tok.String(), ErrSyntax)
			}
			return v, nil
		case '0':
			i, err := strconv.ParseInt(tok.String(), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			return g.Lookup(int32(i)), nil
		}
		return nil, fmt.Errorf("field %q: enum can't be a %v: %w", f.Name, tok.Kind(), ErrSyntax)
	}
	return readScalar(dec, f.Type)
}

func readScalar(dec *jsontext.Decoder, ft model.FieldType) (any, error) {
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	kind := tok.Kind()
	bad := func() error {
		return fmt.Errorf("a %s can't be a %v: %w", ft, kind, ErrSyntax)
	}

	switch ft {
	case model.TypeString:
		if kind != '"' {
			return nil, bad()
		}
		return tok.String(), nil
	case model.TypeBytes:
		if kind != '"' {
			return nil, bad()
		}
		raw, err := base64.StdEncoding.DecodeString(tok.String())
		if err != nil {
			if raw, err = base64.RawURLEncoding.DecodeString(tok.String()); err != nil {
				return nil, fmt.Errorf("bytes are not base64: %w", err)
			}
		}
		return pbytes.New(raw), nil
	case model.TypeBool:
		if kind != 't' && kind != 'f' {
			return nil, bad()
		}
		return tok.Bool(), nil
	}

	if kind != '0' && kind != '"' {
		return nil, bad()
	}
	s := tok.String()
	switch ft {
	case model.TypeDouble, model.TypeFloat:
		bits := 64
		if ft == model.TypeFloat {
			bits = 32
		}
		var f float64
		switch s {
		case "NaN":
			f = math.NaN()
		case "Infinity":
			f = math.Inf(1)
		case "-Infinity":
			f = math.Inf(-1)
		default:
			if f, err = strconv.ParseFloat(s, bits); err != nil {
				return nil, err
			}
		}
		if ft == model.TypeFloat {
			return float32(f), nil
		}
		return f, nil
	case model.TypeInt32, model.TypeSint32, model.TypeSfixed32:
		i, err := strconv.ParseInt(s, 10, 32)
		return int32(i), err
	case model.TypeInt64, model.TypeSint64, model.TypeSfixed64:
		return strconv.ParseInt(s, 10, 64)
	case model.TypeUint32, model.TypeFixed32:
		u, err := strconv.ParseUint(s, 10, 32)
		return uint32(u), err
	case model.TypeUint64, model.TypeFixed64:
		return strconv.ParseUint(s, 10, 64)
	}
	return nil, bad()
}
