package model

// CheckKind is what a FieldCheck does in the validating constructor.
type CheckKind uint8

const (
	// CheckPresent fails construction with an invalid argument error naming the field
	// if the field's value is absent.
	CheckPresent CheckKind = 1
	// CheckNormalizeEmpty resets a one-of group to UNSET if Alternative is the active
	// alternative and its payload is a present but empty optional value. The wire format
	// can't tell "absent" from "present and empty" for these, so both read as unset.
	CheckNormalizeEmpty CheckKind = 2
)

func (k CheckKind) String() string {
	switch k {
	case CheckPresent:
		return "present"
	case CheckNormalizeEmpty:
		return "normalizeEmpty"
	}
	return "unknown"
}

// FieldCheck is one step of a validating constructor. Checks run in order.
type FieldCheck struct {
	Kind  CheckKind
	Field *FieldSpec
	// Alternative is set for CheckNormalizeEmpty.
	Alternative *FieldSpec
}

// Setter is a builder method. A one-of group has one Setter per alternative and none for
// the group.
type Setter struct {
	// Name is the method name, for example "SetFirstName".
	Name  string
	Field *FieldSpec
	// Alternative is set when the setter activates a one-of alternative. Field is then
	// the group.
	Alternative *FieldSpec
}

// Accessor reads one alternative of a one-of group. It yields the payload when that
// alternative is active and reports absence otherwise.
type Accessor struct {
	// Name is the method name, for example "StringValue".
	Name        string
	Group       *FieldSpec
	Alternative *FieldSpec
}

// BuilderDecl is the builder contract of a message.
type BuilderDecl struct {
	// Name is the builder type name, for example "PersonBuilder".
	Name string
	// Fields are the builder slots, one per message field, each starting at the field's
	// default value.
	Fields []*FieldSpec
	// Setters are the chaining setters in field order.
	Setters []Setter
	// CopyParams are the parameters of the copy constructor, one per field, in field
	// order.
	CopyParams []*FieldSpec
}

// EnumDecl is an enum to emit.
type EnumDecl struct {
	Spec *EnumSpec
	// OneOf is set for the synthetic enum of a one-of group.
	OneOf *OneOfSpec
	// Parent is the message the enum is declared in, nil at file scope.
	Parent *MessageDecl
}

// MessageDecl is everything the emitter needs for one message.
type MessageDecl struct {
	Spec *MessageSpec
	// Parent is the enclosing message, nil at file scope.
	Parent *MessageDecl
	// Fields are the value type components in declared order.
	Fields []*FieldSpec
	// Constructor is the validating constructor contract.
	Constructor []FieldCheck
	Builder     BuilderDecl
	// OneOfEnums are the synthetic enums for the one-of groups, in field order.
	OneOfEnums []*EnumDecl
	// Accessors are the typed one-of accessors, one per alternative.
	Accessors []Accessor
	// Nested are the messages declared inside this one.
	Nested []*MessageDecl
	// Enums are the enums declared inside this one.
	Enums []*EnumDecl
	// Imports are the packages the emitted value type needs.
	Imports []string
}

// Name returns the message name.
func (m *MessageDecl) Name() string {
	return m.Spec.Name
}

// FullName returns the dotted path of the message within its file.
func (m *MessageDecl) FullName() string {
	return m.Spec.FullName
}
