// Package schema defines the protobuf schema AST the pbj compiler consumes.
//
// The AST is produced by an external grammar parser. It is assumed to be syntactically
// valid; this package does no type checking. Two adapters are provided: DecodeJSON reads
// the AST from its JSON form and FromDescriptor converts a protoc FileDescriptorProto.
package schema

// Syntax values of a File.
const (
	Proto2 = "proto2"
	Proto3 = "proto3"
)

// File is a parsed .proto file.
type File struct {
	// Name is the path of the .proto file, used only in diagnostics.
	Name string `json:"name,omitempty"`
	// Syntax is Proto2 or Proto3. An empty Syntax is Proto3.
	Syntax string `json:"syntax,omitempty"`
	// Package is the protobuf package.
	Package string `json:"package,omitempty"`
	// Imports are the files this file imports. They are recorded, not resolved.
	Imports []string `json:"imports,omitempty"`
	// Options are the file level options.
	Options []Option `json:"options,omitempty"`
	// Messages are the top level messages in declared order.
	Messages []*Message `json:"messages,omitempty"`
	// Enums are the top level enums in declared order.
	Enums []*Enum `json:"enums,omitempty"`
}

// IsProto2 reports if the file uses proto2 syntax.
func (f *File) IsProto2() bool {
	return f.Syntax == Proto2
}

// Message is a message definition. Elements are kept in declared order.
type Message struct {
	Name     string    `json:"name"`
	Doc      string    `json:"doc,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Element is a single entry in a message body. Exactly one member is set. Unknown holds
// the kind of an element the AST producer emitted that this package doesn't model.
type Element struct {
	Field    *Field
	OneOf    *OneOf
	Map      *MapField
	Message  *Message
	Enum     *Enum
	Option   *Option
	Reserved *Reserved
	Unknown  string
}

// Kind returns the name of the element kind, matching its JSON key.
func (e Element) Kind() string {
	switch {
	case e.Field != nil:
		return KindField
	case e.OneOf != nil:
		return KindOneOf
	case e.Map != nil:
		return KindMap
	case e.Message != nil:
		return KindMessage
	case e.Enum != nil:
		return KindEnum
	case e.Option != nil:
		return KindOption
	case e.Reserved != nil:
		return KindReserved
	}
	return e.Unknown
}

// Element kinds.
const (
	KindField    = "field"
	KindOneOf    = "oneof"
	KindMap      = "map"
	KindMessage  = "message"
	KindEnum     = "enum"
	KindOption   = "option"
	KindReserved = "reserved"
)

// Label is the cardinality keyword of a field.
type Label string

const (
	// LabelNone is a field with no label: a singular proto3 field.
	LabelNone     Label = ""
	LabelOptional Label = "optional"
	LabelRequired Label = "required"
	LabelRepeated Label = "repeated"
)

// Field is a normal field declaration.
type Field struct {
	Name   string `json:"name"`
	Doc    string `json:"doc,omitempty"`
	Label  Label  `json:"label,omitempty"`
	// Type is a scalar type keyword ("int32", "string", ...) or a message or enum name,
	// possibly dotted or fully qualified with a leading ".".
	Type    string   `json:"type"`
	Number  int32    `json:"number"`
	Options []Option `json:"options,omitempty"`
}

// OneOf is a oneof group.
type OneOf struct {
	Name    string   `json:"name"`
	Doc     string   `json:"doc,omitempty"`
	Fields  []*Field `json:"fields"`
	Options []Option `json:"options,omitempty"`
}

// MapField is a map<K, V> field.
type MapField struct {
	Name      string   `json:"name"`
	Doc       string   `json:"doc,omitempty"`
	KeyType   string   `json:"keyType"`
	ValueType string   `json:"valueType"`
	Number    int32    `json:"number"`
	Options   []Option `json:"options,omitempty"`
}

// Enum is an enum definition.
type Enum struct {
	Name    string       `json:"name"`
	Doc     string       `json:"doc,omitempty"`
	Values  []*EnumValue `json:"values"`
	Options []Option     `json:"options,omitempty"`
}

// EnumValue is a single enum constant.
type EnumValue struct {
	Name    string   `json:"name"`
	Doc     string   `json:"doc,omitempty"`
	Number  int32    `json:"number"`
	Options []Option `json:"options,omitempty"`
}

// Option is an option statement or bracketed field option. Value is the literal text.
type Option struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Range is an inclusive range of field numbers.
type Range struct {
	Start int32 `json:"start"`
	End   int32 `json:"end"`
}

// Reserved is a reserved statement.
type Reserved struct {
	Ranges []Range  `json:"ranges,omitempty"`
	Names  []string `json:"names,omitempty"`
}

// FindOption returns the value of the last option named name.
func FindOption(opts []Option, name string) (string, bool) {
	val, found := "", false
	for _, o := range opts {
		if o.Name == name {
			val, found = o.Value, true
		}
	}
	return val, found
}

// IsDeprecated reports if opts contain "deprecated = true".
func IsDeprecated(opts []Option) bool {
	v, ok := FindOption(opts, "deprecated")
	return ok && v == "true"
}
