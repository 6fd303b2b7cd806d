package golang

import (
	"fmt"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/pbjc/model"
)

// goName converts a dotted full name such as "Person.Address" to "PersonAddress".
func goName(fullName string) string {
	parts := strings.Split(strings.TrimPrefix(fullName, "."), ".")
	for i, p := range parts {
		parts[i] = model.CamelUpper(p)
	}
	return strings.Join(parts, "")
}

// constName is the Go constant for an enum value.
func constName(enumFullName, value string) string {
	return goName(enumFullName) + model.CamelUpper(strings.ToLower(value))
}

// reserved are names emitted code already uses for receivers, parameters and packages.
var reserved = map[string]bool{"ctx": true, "b": true, "x": true, "v": true, "zero": true, "pbjPtr": true}

func init() {
	for name := range runtimePkgs {
		reserved[name] = true
	}
}

// ident makes a lower camel protobuf name usable as a Go variable.
func ident(name string) string {
	id := model.CamelLower(name)
	if token.IsKeyword(id) || reserved[id] {
		return id + "_"
	}
	return id
}

func docLines(doc string) []string {
	if doc == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(doc, "\n"), "\n")
}

type enumValueView struct {
	Const   string
	Ordinal int32
	Name    string
	Doc     []string
	Dep     bool
}

type enumView struct {
	Name   string
	Doc    []string
	Dep    bool
	Values []enumValueView
	// Names has one entry per distinct ordinal, the first declared value wins.
	Names []enumValueView
}

func newEnumView(e *model.EnumDecl) enumView {
	v := enumView{Name: goName(e.Spec.FullName), Doc: docLines(e.Spec.Doc), Dep: e.Spec.Deprecated}
	if e.OneOf != nil && len(v.Doc) == 0 {
		v.Doc = []string{fmt.Sprintf("%s is the active alternative of the %s one-of.", v.Name, e.OneOf.Name)}
	}
	seen := map[int32]bool{}
	for _, ev := range e.Spec.Values {
		val := enumValueView{
			Const:   constName(e.Spec.FullName, ev.Name),
			Ordinal: ev.Ordinal,
			Name:    ev.Name,
			Doc:     docLines(ev.Doc),
			Dep:     ev.Deprecated,
		}
		v.Values = append(v.Values, val)
		if !seen[ev.Ordinal] {
			seen[ev.Ordinal] = true
			v.Names = append(v.Names, val)
		}
	}
	return v
}

type fieldView struct {
	// Var is the struct field, builder field and constructor parameter name.
	Var    string
	Getter string
	Type   string
	Doc    []string
	Dep    bool
	// Elem is the type a getter or setter works with, which differs from Type for fields
	// held as a pointer.
	Elem string
	// Pointer is set for a scalar or enum held as a pointer to record presence.
	Pointer bool
	// Required getters dereference the pointer, the constructor guarantees it.
	Required bool
	Repeated bool
	Default  string
}

type checkView struct {
	Present bool
	Var     string
	Proto   string
	Kind    string
	Enum    string
}

type setterView struct {
	Name  string
	Var   string
	Param string
	// Assign is the right hand side of the assignment to the builder field.
	Assign string
}

type accessorView struct {
	Name  string
	Group string
	Type  string
	Kind  string
	Doc   []string
}

type messageView struct {
	Name      string
	Doc       []string
	Dep       bool
	Builder   string
	Fields    []fieldView
	Checks    []checkView
	Setters   []setterView
	Accessors []accessorView
}

// typer renders Go types and literals for one message.
type typer struct {
	// needPtr is set when a default needs the pointer helper.
	needPtr bool
}

// elemType is the Go type of one value of f, ignoring repetition and presence.
func (ty *typer) elemType(f *model.FieldSpec) string {
	switch {
	case f.IsOneOf():
		return "oneof.OneOf[" + goName(f.OneOf.Enum.FullName) + "]"
	case f.IsWrapper():
		return "optional.Value[" + f.Wrapper.GoType() + "]"
	case f.Type == model.TypeMessage:
		if f.Local {
			return "*" + goName(f.TypeName)
		}
		return "bytes.Bytes"
	case f.Type == model.TypeEnum:
		return goName(f.TypeName)
	}
	return f.Type.GoType()
}

// pointer reports if a singular f is held as a pointer so absence is visible.
func pointer(f *model.FieldSpec) bool {
	if f.Repeated || f.IsOneOf() || f.IsWrapper() || f.Type == model.TypeMessage {
		return false
	}
	return f.Presence != model.PresenceImplicit
}

// nilable reports if the Go type of f has nil as a value.
func nilable(f *model.FieldSpec) bool {
	return pointer(f) || (!f.Repeated && f.Type == model.TypeMessage && f.Local && !f.IsWrapper())
}

func (ty *typer) field(f *model.FieldSpec) fieldView {
	elem := ty.elemType(f)
	v := fieldView{
		Var:      ident(f.Name),
		Getter:   model.CamelUpper(f.Name),
		Doc:      docLines(f.Doc),
		Dep:      f.Deprecated,
		Elem:     elem,
		Type:     elem,
		Pointer:  pointer(f),
		Required: f.Presence == model.PresenceRequired,
		Repeated: f.Repeated,
	}
	switch {
	case f.Repeated:
		v.Type = "[]" + elem
	case v.Pointer:
		v.Type = "*" + elem
	}
	v.Default = ty.defaultExpr(f, v)
	return v
}

// defaultExpr returns the builder's initial value for f, "" when it is the Go zero value.
func (ty *typer) defaultExpr(f *model.FieldSpec, v fieldView) string {
	var lit string
	switch d := f.Default.(type) {
	case nil:
		return ""
	case enums.Value:
		if d.Ordinal == 0 && !v.Pointer {
			return ""
		}
		lit = constName(f.TypeName, d.Name)
	case string:
		if d == "" && !v.Pointer {
			return ""
		}
		lit = strconv.Quote(d)
	case bool:
		if !d && !v.Pointer {
			return ""
		}
		lit = strconv.FormatBool(d)
	case bytes.Bytes:
		if d.Len() == 0 {
			return ""
		}
		lit = "bytes.Wrap(" + strconv.Quote(string(d.AppendTo(nil))) + ")"
	case float64:
		if math.Float64bits(d) == 0 && !v.Pointer {
			return ""
		}
		lit = floatLit(d)
	case float32:
		if math.Float32bits(d) == 0 && !v.Pointer {
			return ""
		}
		lit = floatLit(float64(d))
	case int32, int64, uint32, uint64:
		lit = fmt.Sprintf("%d", d)
		if lit == "0" && !v.Pointer {
			return ""
		}
	default:
		// One-of groups and wrappers start at their zero value.
		return ""
	}
	if v.Pointer {
		ty.needPtr = true
		return fmt.Sprintf("pbjPtr[%s](%s)", v.Elem, lit)
	}
	return lit
}

func floatLit(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "math.Inf(1)"
	case math.IsInf(f, -1):
		return "math.Inf(-1)"
	case math.IsNaN(f):
		return "math.NaN()"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (ty *typer) message(m *model.MessageDecl) messageView {
	name := goName(m.FullName())
	v := messageView{
		Name:    name,
		Doc:     docLines(m.Spec.Doc),
		Dep:     m.Spec.Deprecated,
		Builder: goName(m.FullName()) + "Builder",
	}
	if len(v.Doc) == 0 {
		v.Doc = []string{name + " is an immutable " + m.Name() + " message."}
	}

	vars := map[*model.FieldSpec]string{}
	for _, f := range m.Fields {
		fv := ty.field(f)
		vars[f] = fv.Var
		v.Fields = append(v.Fields, fv)
	}

	for _, chk := range m.Constructor {
		switch chk.Kind {
		case model.CheckPresent:
			// Only a nil holding Go type can be absent. Everything else is present by
			// construction.
			if !nilable(chk.Field) {
				continue
			}
			v.Checks = append(v.Checks, checkView{Present: true, Var: vars[chk.Field], Proto: chk.Field.Name})
		case model.CheckNormalizeEmpty:
			enum := goName(chk.Field.OneOf.Enum.FullName)
			v.Checks = append(v.Checks, checkView{
				Var:  vars[chk.Field],
				Kind: kindConst(chk.Field, chk.Alternative),
				Enum: enum,
			})
		}
	}

	for _, s := range m.Builder.Setters {
		sv := setterView{Name: s.Name, Var: vars[s.Field]}
		switch {
		case s.Alternative != nil:
			sv.Param = ty.elemType(s.Alternative)
			sv.Assign = fmt.Sprintf("oneof.New(%s, any(v))", kindConst(s.Field, s.Alternative))
		case pointer(s.Field):
			sv.Param = ty.elemType(s.Field)
			sv.Assign = "&v"
		default:
			sv.Param = ty.field(s.Field).Type
			sv.Assign = "v"
		}
		v.Setters = append(v.Setters, sv)
	}

	for _, a := range m.Accessors {
		v.Accessors = append(v.Accessors, accessorView{
			Name:  a.Name,
			Group: vars[a.Group],
			Type:  ty.elemType(a.Alternative),
			Kind:  kindConst(a.Group, a.Alternative),
			Doc:   docLines(a.Alternative.Doc),
		})
	}
	return v
}

// kindConst is the one-of enum constant for alt.
func kindConst(group, alt *model.FieldSpec) string {
	for _, ev := range group.OneOf.Enum.Values {
		if ev.Ordinal == alt.Number {
			return constName(group.OneOf.Enum.FullName, ev.Name)
		}
	}
	return constName(group.OneOf.Enum.FullName, model.UpperSnake(alt.Name))
}
