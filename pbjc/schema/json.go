package schema

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// DecodeJSON decodes a File from its JSON form. Message elements are single member
// objects keyed by kind, for example {"field": {"name": "id", "type": "int64", "number": 1}}.
func DecodeJSON(data []byte) (*File, error) {
	f := &File{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("schema: could not decode JSON AST: %w", err)
	}
	return f, nil
}

// ReadJSON is DecodeJSON reading from r.
func ReadJSON(r io.Reader) (*File, error) {
	f := &File{}
	if err := json.UnmarshalRead(r, f); err != nil {
		return nil, fmt.Errorf("schema: could not decode JSON AST: %w", err)
	}
	return f, nil
}

// EncodeJSON encodes f in the form DecodeJSON reads.
func EncodeJSON(f *File) ([]byte, error) {
	return json.Marshal(f, jsontext.Multiline(true))
}

// MarshalJSON implements json.Marshaler.
func (e Element) MarshalJSON() ([]byte, error) {
	var v any
	switch {
	case e.Field != nil:
		v = e.Field
	case e.OneOf != nil:
		v = e.OneOf
	case e.Map != nil:
		v = e.Map
	case e.Message != nil:
		v = e.Message
	case e.Enum != nil:
		v = e.Enum
	case e.Option != nil:
		v = e.Option
	case e.Reserved != nil:
		v = e.Reserved
	default:
		if e.Unknown == "" {
			return nil, fmt.Errorf("schema: empty Element")
		}
		v = struct{}{}
	}
	return json.Marshal(map[string]any{e.Kind(): v})
}

// UnmarshalJSON implements json.Unmarshaler. A kind this package doesn't model is kept
// in Unknown rather than failing, so the compiler can report it and move on.
func (e *Element) UnmarshalJSON(b []byte) error {
	var raw map[string]jsontext.Value
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("schema: an element must have exactly one member, had %d", len(raw))
	}

	*e = Element{}
	for kind, val := range raw {
		var target any
		switch kind {
		case KindField:
			e.Field = &Field{}
			target = e.Field
		case KindOneOf:
			e.OneOf = &OneOf{}
			target = e.OneOf
		case KindMap:
			e.Map = &MapField{}
			target = e.Map
		case KindMessage:
			e.Message = &Message{}
			target = e.Message
		case KindEnum:
			e.Enum = &Enum{}
			target = e.Enum
		case KindOption:
			e.Option = &Option{}
			target = e.Option
		case KindReserved:
			e.Reserved = &Reserved{}
			target = e.Reserved
		default:
			e.Unknown = kind
			return nil
		}
		if err := json.Unmarshal(val, target); err != nil {
			return fmt.Errorf("schema: %s element: %w", kind, err)
		}
	}
	return nil
}
