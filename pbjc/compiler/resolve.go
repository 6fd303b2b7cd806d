package compiler

import (
	"strings"

	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/bearlytools/pbj/pbjc/schema"
)

type typeKind uint8

const (
	kindMessage typeKind = 1
	kindEnum    typeKind = 2
)

// scope indexes every message and enum declared in a file by dotted full name.
type scope struct {
	pkg   string
	types map[string]typeKind
	enums map[string]*schema.Enum
}

func newScope(f *schema.File) *scope {
	s := &scope{pkg: f.Package, types: map[string]typeKind{}, enums: map[string]*schema.Enum{}}
	for _, e := range f.Enums {
		s.types[e.Name] = kindEnum
		s.enums[e.Name] = e
	}
	for _, m := range f.Messages {
		s.addMessage(m, "")
	}
	return s
}

func (s *scope) addMessage(m *schema.Message, parent string) {
	full := join(parent, m.Name)
	s.types[full] = kindMessage
	for _, e := range m.Elements {
		switch {
		case e.Message != nil:
			s.addMessage(e.Message, full)
		case e.Enum != nil:
			name := join(full, e.Enum.Name)
			s.types[name] = kindEnum
			s.enums[name] = e.Enum
		}
	}
}

// resolved is the outcome of a type reference lookup.
type resolved struct {
	kind typeKind
	// name is the full name of a local type, or the reference as written if not local.
	name  string
	local bool
}

// resolve looks up ref from within the message with full name from. It follows protobuf
// scoping: the innermost enclosing scope is searched first, then each outer scope, then
// the file. A reference that starts with "." is fully qualified. A reference that isn't
// found is assumed to be a message declared elsewhere.
func (s *scope) resolve(ref, from string) resolved {
	if strings.HasPrefix(ref, ".") {
		name := strings.TrimPrefix(ref, ".")
		if s.pkg != "" {
			if local, ok := strings.CutPrefix(name, s.pkg+"."); ok {
				if k, ok := s.types[local]; ok {
					return resolved{kind: k, name: local, local: true}
				}
			}
		} else if k, ok := s.types[name]; ok {
			return resolved{kind: k, name: name, local: true}
		}
		return resolved{kind: kindMessage, name: ref}
	}

	for sc := from; ; {
		if k, ok := s.types[join(sc, ref)]; ok {
			return resolved{kind: k, name: join(sc, ref), local: true}
		}
		if sc == "" {
			break
		}
		if i := strings.LastIndex(sc, "."); i >= 0 {
			sc = sc[:i]
		} else {
			sc = ""
		}
	}

	if s.pkg != "" {
		if local, ok := strings.CutPrefix(ref, s.pkg+"."); ok {
			if k, ok := s.types[local]; ok {
				return resolved{kind: k, name: local, local: true}
			}
		}
	}
	return resolved{kind: kindMessage, name: ref}
}

// enumDefault returns the default value of the local enum with full name name.
func (s *scope) enumDefault(name string) (model.EnumValue, bool) {
	e, ok := s.enums[name]
	if !ok || len(e.Values) == 0 {
		return model.EnumValue{}, false
	}
	for _, v := range e.Values {
		if v.Number == 0 {
			return model.EnumValue{Name: v.Name, Ordinal: v.Number}, true
		}
	}
	return model.EnumValue{Name: e.Values[0].Name, Ordinal: e.Values[0].Number}, true
}

func join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
