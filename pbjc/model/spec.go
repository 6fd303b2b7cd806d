package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/bearlytools/pbj/languages/go/enums"
)

// FieldSpec describes one declared field of a message. A one-of group is a FieldSpec
// with Type TypeOneOf and OneOf set; its alternatives are FieldSpecs in OneOf.Fields.
type FieldSpec struct {
	// Name is the field name as declared, for example "first_name".
	Name string
	// Type is the declared type. For a wrapper field it is TypeMessage and Wrapper is set.
	Type FieldType
	// Number is the field number. It is 0 for a one-of group.
	Number int32
	// TypeName is the referenced type for TypeEnum and TypeMessage, as resolved by the
	// compiler. It is the dotted path within the file for local types and the name as
	// written for anything else.
	TypeName string
	// Local is set when TypeName names a type declared in the same file.
	Local bool
	// Repeated is set for a repeated field.
	Repeated bool
	// Packed is set for a repeated numeric field that uses packed encoding.
	Packed bool
	// Presence is how a singular field treats absence.
	Presence Presence
	// Wrapper is the type wrapped by a google.protobuf.*Value field, TypeUnknown otherwise.
	Wrapper FieldType
	// JSON is the json_name option, if one was given.
	JSON string
	// Default is the value a builder starts this field with. It is nil when the default
	// is absent. Repeated fields default to an empty list, which is not stored here.
	Default    any
	Doc        string
	Deprecated bool
	// OneOf is set on the group field of a one-of.
	OneOf *OneOfSpec
	// Group is set on an alternative, pointing to the one-of it belongs to.
	Group *OneOfSpec
}

// JSONName returns the key of f in the protobuf JSON mapping. That is the json_name
// option, or the name with each underscore removed and the letter after it upper cased.
func (f *FieldSpec) JSONName() string {
	if f.JSON != "" {
		return f.JSON
	}
	sb := strings.Builder{}
	up := false
	for _, r := range f.Name {
		switch {
		case r == '_':
			up = true
		case up:
			sb.WriteRune(unicode.ToUpper(r))
			up = false
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// IsOneOf reports if f is a one-of group.
func (f *FieldSpec) IsOneOf() bool {
	return f.Type == TypeOneOf
}

// IsWrapper reports if f is a google.protobuf wrapper type, which is held as an
// optional value.
func (f *FieldSpec) IsWrapper() bool {
	return f.Wrapper != TypeUnknown
}

// Nullable reports if the validating constructor accepts an absent value for f.
// Only explicit presence singular fields are nullable. Repeated fields, one-of groups and
// wrapper fields always hold a value, even if that value is empty.
func (f *FieldSpec) Nullable() bool {
	if f.Repeated || f.IsOneOf() || f.IsWrapper() {
		return false
	}
	return f.Presence == PresenceExplicit
}

// String implements fmt.Stringer.
func (f *FieldSpec) String() string {
	if f.IsOneOf() {
		return fmt.Sprintf("oneof %s", f.Name)
	}
	t := f.Type.String()
	if f.TypeName != "" {
		t = f.TypeName
	}
	if f.Repeated {
		t = "repeated " + t
	}
	return fmt.Sprintf("%s %s = %d", t, f.Name, f.Number)
}

// OneOfSpec is a one-of group: mutually exclusive alternatives and the enum that
// discriminates them.
type OneOfSpec struct {
	Name string
	Doc  string
	// Fields are the alternatives in declared order.
	Fields []*FieldSpec
	// Enum has UNSET = 0 and one value per alternative, ordinal = field number, in field
	// number order.
	Enum *EnumSpec
}

// Unset is the name of the enum value for a group with no active alternative.
const Unset = "UNSET"

// NewOneOfSpec returns the spec for a group with the given alternatives and builds its
// discriminating enum. Each alternative's Group is set to the returned spec.
func NewOneOfSpec(name, doc string, alts []*FieldSpec) *OneOfSpec {
	o := &OneOfSpec{Name: name, Doc: doc, Fields: alts}

	sorted := make([]*FieldSpec, len(alts))
	copy(sorted, alts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	e := &EnumSpec{
		Name:   CamelUpper(name) + "OneOfType",
		Doc:    fmt.Sprintf("Enum for the type of value held by the %s one-of.", name),
		Values: []EnumValue{{Name: Unset, Ordinal: 0, Doc: "No value is set."}},
	}
	for _, f := range sorted {
		e.Values = append(e.Values, EnumValue{Name: UpperSnake(f.Name), Ordinal: f.Number, Doc: f.Doc, Deprecated: f.Deprecated})
	}
	o.Enum = e

	for _, f := range alts {
		f.Group = o
	}
	return o
}

// Alternative returns the alternative with field number n.
func (o *OneOfSpec) Alternative(n int32) *FieldSpec {
	for _, f := range o.Fields {
		if f.Number == n {
			return f
		}
	}
	return nil
}

// ByName returns the alternative named name.
func (o *OneOfSpec) ByName(name string) *FieldSpec {
	for _, f := range o.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// EnumValue is a value of an EnumSpec.
type EnumValue struct {
	Name       string
	Ordinal    int32
	Doc        string
	Deprecated bool
}

// EnumSpec maps ordinals to names.
type EnumSpec struct {
	Name string
	// FullName is the dotted path of the enum within the file, for example "Outer.Kind".
	FullName   string
	Doc        string
	Deprecated bool
	Values     []EnumValue
}

// Default returns the value with ordinal 0, or the first declared value if none has
// ordinal 0.
func (e *EnumSpec) Default() EnumValue {
	for _, v := range e.Values {
		if v.Ordinal == 0 {
			return v
		}
	}
	if len(e.Values) > 0 {
		return e.Values[0]
	}
	return EnumValue{}
}

// Group returns the runtime form of the enum.
func (e *EnumSpec) Group() enums.Group {
	g := enums.Group{Name: e.Name, Values: make([]enums.Value, 0, len(e.Values))}
	for _, v := range e.Values {
		g.Values = append(g.Values, enums.Value{Name: v.Name, Ordinal: v.Ordinal})
	}
	return g
}

// MessageSpec is a message: its fields in declared order, with one-of groups in field
// position, and the types it declares.
type MessageSpec struct {
	Name string
	// FullName is the dotted path of the message within the file, for example
	// "Outer.Inner".
	FullName   string
	Doc        string
	Deprecated bool
	Fields     []*FieldSpec
	Nested     []*MessageSpec
	Enums      []*EnumSpec
}

// Field returns the field or one-of group named name.
func (m *MessageSpec) Field(name string) *FieldSpec {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ByNumber returns the field with number n, looking inside one-of groups. For an
// alternative, the group field is also returned.
func (m *MessageSpec) ByNumber(n int32) (field *FieldSpec, group *FieldSpec) {
	for _, f := range m.Fields {
		if f.IsOneOf() {
			if alt := f.OneOf.Alternative(n); alt != nil {
				return alt, f
			}
			continue
		}
		if f.Number == n {
			return f, nil
		}
	}
	return nil, nil
}
