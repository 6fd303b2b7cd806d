// Package dynamic runs compiled message declarations without generated code.
//
// A Type wraps a model.MessageDecl. Its constructor, Builder and accessors enforce the
// same contract generated code does: fields that can't be absent are checked, a one-of
// alternative holding an empty optional value collapses to UNSET, and a Builder starts
// every field at its default. Messages are read from and written to the protobuf wire
// format with Parse and Marshal.
//
// Values are held in their runtime Go types: the scalar types from model.FieldType.GoType,
// bytes.Bytes, enums.Value, optional.Value[T] for wrapper fields, oneof.OneOf[int32] for
// one-of groups (the kind is the field number of the active alternative), []any for
// repeated fields and *Message for message fields. A message field whose type isn't
// declared in the compiled file holds its encoded bytes as a bytes.Bytes.
package dynamic

import (
	"fmt"

	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/pbjc/compiler"
	"github.com/bearlytools/pbj/pbjc/model"
)

var (
	// ErrMissingField is wrapped by errors for a field that can't be absent.
	ErrMissingField = errors.ErrMissingField
	// ErrNoField indicates a field or alternative name the message doesn't declare.
	ErrNoField = errors.New("no such field")
	// ErrType indicates a value of the wrong type for a field.
	ErrType = errors.New("value has the wrong type")
)

// Registry holds the Types and enums of one compiled file.
type Registry struct {
	types map[string]*Type
	enums map[string]enums.Group
}

// Load creates a Registry holding every message and enum in res.
func Load(res *compiler.Result) *Registry {
	r := newRegistry()
	for _, e := range res.Enums {
		r.addEnum(e)
	}
	for _, m := range res.Messages {
		r.addMessage(m)
	}
	return r
}

// NewType returns the Type for decl, with its nested messages and enums registered so
// its own fields resolve.
func NewType(decl *model.MessageDecl) *Type {
	r := newRegistry()
	r.addMessage(decl)
	return r.types[decl.FullName()]
}

func newRegistry() *Registry {
	return &Registry{types: map[string]*Type{}, enums: map[string]enums.Group{}}
}

func (r *Registry) addEnum(e *model.EnumDecl) {
	r.enums[e.Spec.FullName] = e.Spec.Group()
}

func (r *Registry) addMessage(m *model.MessageDecl) {
	r.types[m.FullName()] = &Type{decl: m, reg: r}
	for _, e := range m.Enums {
		r.addEnum(e)
	}
	for _, n := range m.Nested {
		r.addMessage(n)
	}
}

// Type returns the message Type with the dotted full name, or nil.
func (r *Registry) Type(fullName string) *Type {
	return r.types[fullName]
}

// Enum returns the enum with the dotted full name.
func (r *Registry) Enum(fullName string) (enums.Group, bool) {
	g, ok := r.enums[fullName]
	return g, ok
}

// Type is a message type.
type Type struct {
	decl *model.MessageDecl
	reg  *Registry
}

// Decl returns the declaration the Type runs.
func (t *Type) Decl() *model.MessageDecl {
	return t.decl
}

// Registry returns the Registry the Type's fields are resolved in.
func (t *Type) Registry() *Registry {
	return t.reg
}

// FullName returns the dotted full name of the message.
func (t *Type) FullName() string {
	return t.decl.FullName()
}

// index returns the position of the field named name in the message.
func (t *Type) index(name string) (int, bool) {
	for i, f := range t.decl.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// alternative finds the one-of alternative named name and the position of its group.
func (t *Type) alternative(name string) (int, *model.FieldSpec, bool) {
	for i, f := range t.decl.Fields {
		if !f.IsOneOf() {
			continue
		}
		if alt := f.OneOf.ByName(name); alt != nil {
			return i, alt, true
		}
	}
	return 0, nil, false
}

// messageType returns the Type for a message field, nil if the type isn't in the
// registry.
func (t *Type) messageType(f *model.FieldSpec) *Type {
	return t.reg.types[f.TypeName]
}

func (t *Type) enumGroup(f *model.FieldSpec) enums.Group {
	if g, ok := t.reg.enums[f.TypeName]; ok {
		return g
	}
	return enums.Group{Name: f.TypeName}
}

// defaults returns a fresh slot list, each at its field's default.
func (t *Type) defaults() []any {
	vals := make([]any, len(t.decl.Fields))
	for i, f := range t.decl.Fields {
		if f.Repeated {
			vals[i] = []any{}
			continue
		}
		vals[i] = f.Default
	}
	return vals
}

// absent returns a fresh slot list for decoding. It is defaults with every explicit and
// required field absent, so a declared default never looks like data that was read.
func (t *Type) absent() []any {
	vals := t.defaults()
	for i, f := range t.decl.Fields {
		if declaredOnly(f) {
			vals[i] = nil
		}
	}
	return vals
}

// declaredOnly reports if the default of f is a declared value standing in for absence.
func declaredOnly(f *model.FieldSpec) bool {
	if f.Repeated || f.IsOneOf() || f.IsWrapper() {
		return false
	}
	return f.Presence != model.PresenceImplicit
}

func noField(t *Type, name string) error {
	return fmt.Errorf("message %s has no field %q: %w", t.FullName(), name, ErrNoField)
}
