package compiler

import (
	"fmt"

	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/oneof"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/bearlytools/pbj/pbjc/schema"
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/telemetry/otel/trace/span"
	"go.opentelemetry.io/otel/attribute"
)

// Import paths emitted code may need.
const (
	ImportContext  = "github.com/gostdlib/base/context"
	ImportErrors   = "github.com/bearlytools/pbj/languages/go/errors"
	ImportBytes    = "github.com/bearlytools/pbj/languages/go/bytes"
	ImportOneOf    = "github.com/bearlytools/pbj/languages/go/oneof"
	ImportOptional = "github.com/bearlytools/pbj/languages/go/optional"
	ImportEnums    = "github.com/bearlytools/pbj/languages/go/enums"
)

// fieldOptions are the field options the compiler understands.
var fieldOptions = map[string]bool{
	"deprecated": true,
	"packed":     true,
	"default":    true,
	"json_name":  true,
}

// message compiles m. Nested messages and enums are compiled, and emitted, first.
func (c *compiler) message(ctx context.Context, m *schema.Message, parent string, parentDecl *model.MessageDecl) (*model.MessageDecl, error) {
	full := join(parent, m.Name)

	ctx, sp := span.New(ctx, span.WithName("pbjc.compileMessage"))
	defer sp.End()
	sp.Span.SetAttributes(attribute.String("pbjc.message", full))

	spec := &model.MessageSpec{Name: m.Name, FullName: full, Doc: m.Doc}
	decl := &model.MessageDecl{Spec: spec, Parent: parentDecl}

	for _, e := range m.Elements {
		switch {
		case e.Enum != nil:
			ed := c.enum(ctx, e.Enum, full, decl)
			if err := c.emitEnum(ctx, ed); err != nil {
				return nil, err
			}
			spec.Enums = append(spec.Enums, ed.Spec)
			decl.Enums = append(decl.Enums, ed)
		case e.Message != nil:
			nd, err := c.message(ctx, e.Message, full, decl)
			if err != nil {
				return nil, err
			}
			spec.Nested = append(spec.Nested, nd.Spec)
			decl.Nested = append(decl.Nested, nd)
		}
	}

	numbers := map[int32]string{}
	names := map[string]bool{}
	claim := func(f *model.FieldSpec) error {
		if names[f.Name] {
			return fmt.Errorf("message %s declares %q more than once", full, f.Name)
		}
		names[f.Name] = true
		if f.IsOneOf() {
			return nil
		}
		if other, ok := numbers[f.Number]; ok {
			return fmt.Errorf("message %s: fields %q and %q both use number %d", full, other, f.Name, f.Number)
		}
		numbers[f.Number] = f.Name
		return nil
	}

	for _, e := range m.Elements {
		switch {
		case e.Enum != nil, e.Message != nil:
		case e.Option != nil:
			if e.Option.Name == "deprecated" {
				spec.Deprecated = e.Option.Value == "true"
				continue
			}
			c.warn(ctx, &Warning{Code: WarnUnknownOption, Scope: full, Element: e.Option.Name, Text: fmt.Sprintf("message option %q is ignored", e.Option.Name)})
		case e.Reserved != nil:
			// Reserved names and numbers only constrain the schema author.
		case e.Field != nil:
			f := c.field(ctx, e.Field, full)
			if err := claim(f); err != nil {
				return nil, schemaErr(ctx, err)
			}
			spec.Fields = append(spec.Fields, f)
		case e.OneOf != nil:
			g, err := c.oneOf(ctx, e.OneOf, full)
			if err != nil {
				return nil, err
			}
			if err := claim(g); err != nil {
				return nil, schemaErr(ctx, err)
			}
			for _, alt := range g.OneOf.Fields {
				if err := claim(alt); err != nil {
					return nil, schemaErr(ctx, err)
				}
			}
			spec.Fields = append(spec.Fields, g)
		case e.Map != nil:
			c.warn(ctx, &Warning{
				Code:    WarnMapField,
				Scope:   full,
				Element: e.Map.Name,
				Text:    fmt.Sprintf("map field %q is not supported and was left out", e.Map.Name),
			})
		default:
			c.warn(ctx, &Warning{
				Code:    WarnUnknownElement,
				Scope:   full,
				Element: e.Kind(),
				Text:    fmt.Sprintf("unknown element %q was skipped", e.Kind()),
			})
		}
	}
	decl.Fields = spec.Fields

	c.contract(decl)
	for _, f := range spec.Fields {
		if f.IsOneOf() {
			ed := &model.EnumDecl{Spec: f.OneOf.Enum, OneOf: f.OneOf, Parent: decl}
			if err := c.emitEnum(ctx, ed); err != nil {
				return nil, err
			}
			decl.OneOfEnums = append(decl.OneOfEnums, ed)
		}
	}
	decl.Imports = c.messageImports(decl)
	for _, imp := range decl.Imports {
		c.imports[imp] = true
	}

	c.messagesCompiled.Add(ctx, 1)
	if err := c.emitMessage(ctx, decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// contract derives the validating constructor, the builder and the one-of accessors
// from the message's fields.
func (c *compiler) contract(decl *model.MessageDecl) {
	decl.Builder = model.BuilderDecl{
		Name:       decl.Name() + "Builder",
		Fields:     decl.Fields,
		CopyParams: decl.Fields,
	}

	for _, f := range decl.Fields {
		if !f.Nullable() {
			decl.Constructor = append(decl.Constructor, model.FieldCheck{Kind: model.CheckPresent, Field: f})
		}
		if !f.IsOneOf() {
			decl.Builder.Setters = append(decl.Builder.Setters, model.Setter{Name: "Set" + model.CamelUpper(f.Name), Field: f})
			continue
		}
		for _, alt := range f.OneOf.Fields {
			if alt.IsWrapper() {
				decl.Constructor = append(decl.Constructor, model.FieldCheck{Kind: model.CheckNormalizeEmpty, Field: f, Alternative: alt})
			}
			decl.Builder.Setters = append(decl.Builder.Setters, model.Setter{Name: "Set" + model.CamelUpper(alt.Name), Field: f, Alternative: alt})
			decl.Accessors = append(decl.Accessors, model.Accessor{Name: model.CamelUpper(alt.Name), Group: f, Alternative: alt})
		}
	}
}

func (c *compiler) messageImports(decl *model.MessageDecl) []string {
	set := map[string]bool{ImportContext: true}
	for _, chk := range decl.Constructor {
		if chk.Kind == model.CheckPresent {
			set[ImportErrors] = true
		}
	}
	var visit func(f *model.FieldSpec)
	visit = func(f *model.FieldSpec) {
		switch {
		case f.IsOneOf():
			set[ImportOneOf] = true
			set[ImportEnums] = true
			for _, alt := range f.OneOf.Fields {
				visit(alt)
			}
			return
		case f.IsWrapper():
			set[ImportOptional] = true
			if f.Wrapper == model.TypeBytes {
				set[ImportBytes] = true
			}
		case f.Type == model.TypeBytes:
			set[ImportBytes] = true
		}
	}
	for _, f := range decl.Fields {
		visit(f)
	}
	if len(decl.Enums) > 0 {
		set[ImportEnums] = true
	}
	return sortedKeys(set)
}

// field converts a schema field, resolving its type and presence.
func (c *compiler) field(ctx context.Context, sf *schema.Field, scope string) *model.FieldSpec {
	f := &model.FieldSpec{
		Name:       sf.Name,
		Number:     sf.Number,
		Doc:        sf.Doc,
		Deprecated: schema.IsDeprecated(sf.Options),
		Repeated:   sf.Label == schema.LabelRepeated,
	}
	f.JSON, _ = schema.FindOption(sf.Options, "json_name")
	c.resolveType(f, sf.Type, scope)

	switch {
	case sf.Label == schema.LabelRequired:
		f.Presence = model.PresenceRequired
	case sf.Label == schema.LabelOptional, f.Type == model.TypeMessage, c.file.IsProto2():
		f.Presence = model.PresenceExplicit
	default:
		f.Presence = model.PresenceImplicit
	}

	if f.Repeated && f.Type.Packable() {
		packed, ok := schema.FindOption(sf.Options, "packed")
		f.Packed = !c.file.IsProto2()
		if ok {
			f.Packed = packed == "true"
		}
	}

	for _, o := range sf.Options {
		if !fieldOptions[o.Name] {
			c.warn(ctx, &Warning{Code: WarnUnknownOption, Scope: scope, Element: sf.Name, Text: fmt.Sprintf("option %q on field %q is ignored", o.Name, sf.Name)})
		}
	}

	if f.Repeated {
		return f
	}
	switch {
	case f.IsWrapper():
		f.Default = model.WrapperNone(f.Wrapper)
	case f.Presence == model.PresenceImplicit:
		f.Default = c.zero(f)
	}
	if lit, ok := schema.FindOption(sf.Options, "default"); ok {
		c.declaredDefault(ctx, f, lit, scope)
	}
	return f
}

func (c *compiler) resolveType(f *model.FieldSpec, typ, scope string) {
	if t, ok := model.ParseScalar(typ); ok {
		f.Type = t
		return
	}
	if w, ok := model.WrapperType(typ); ok {
		f.Type = model.TypeMessage
		f.Wrapper = w
		f.TypeName = typ
		return
	}
	r := c.scope.resolve(typ, scope)
	f.TypeName = r.name
	f.Local = r.local
	if r.kind == kindEnum {
		f.Type = model.TypeEnum
	} else {
		f.Type = model.TypeMessage
	}
	if !r.local {
		c.dependencies[r.name] = true
	}
}

// zero is the implicit presence default for f.
func (c *compiler) zero(f *model.FieldSpec) any {
	if f.Type == model.TypeEnum {
		v, _ := c.scope.enumDefault(f.TypeName)
		return enums.Value{Name: v.Name, Ordinal: v.Ordinal}
	}
	return f.Type.Zero()
}

func (c *compiler) declaredDefault(ctx context.Context, f *model.FieldSpec, lit, scope string) {
	bad := func(reason string) {
		c.warn(ctx, &Warning{Code: WarnBadDefault, Scope: scope, Element: f.Name, Text: fmt.Sprintf("default %q on field %q is ignored: %s", lit, f.Name, reason)})
	}
	switch {
	case f.Type == model.TypeEnum:
		e, ok := c.scope.enums[f.TypeName]
		if !ok {
			bad("enum is not declared in this file")
			return
		}
		for _, v := range e.Values {
			if v.Name == lit {
				f.Default = enums.Value{Name: v.Name, Ordinal: v.Number}
				return
			}
		}
		bad("no such enum value")
	case f.Type.IsScalar():
		v, err := model.ParseDefault(f.Type, lit)
		if err != nil {
			bad(err.Error())
			return
		}
		f.Default = v
	default:
		bad(fmt.Sprintf("%s fields can't have a default", f.Type))
	}
}

// oneOf compiles a one-of group into its group field.
func (c *compiler) oneOf(ctx context.Context, so *schema.OneOf, scope string) (*model.FieldSpec, error) {
	alts := make([]*model.FieldSpec, 0, len(so.Fields))
	for _, sf := range so.Fields {
		if sf.Label == schema.LabelRepeated {
			return nil, schemaErr(ctx, fmt.Errorf("message %s: one-of %q alternative %q can't be repeated", scope, so.Name, sf.Name))
		}
		alt := c.field(ctx, sf, scope)
		alt.Presence = model.PresenceExplicit
		alt.Default = nil
		alts = append(alts, alt)
	}
	for _, o := range so.Options {
		c.warn(ctx, &Warning{Code: WarnUnknownOption, Scope: scope, Element: so.Name, Text: fmt.Sprintf("option %q on one-of %q is ignored", o.Name, so.Name)})
	}

	group := &model.FieldSpec{
		Name:    so.Name,
		Type:    model.TypeOneOf,
		Doc:     so.Doc,
		OneOf:   model.NewOneOfSpec(so.Name, so.Doc, alts),
		Default: oneof.Unset[int32](),
	}
	group.OneOf.Enum.FullName = join(scope, group.OneOf.Enum.Name)
	return group, nil
}

// enum compiles an enum declared in the message with full name parent, "" at file scope.
func (c *compiler) enum(ctx context.Context, se *schema.Enum, parent string, parentDecl *model.MessageDecl) *model.EnumDecl {
	full := join(parent, se.Name)
	spec := &model.EnumSpec{
		Name:       se.Name,
		FullName:   full,
		Doc:        se.Doc,
		Deprecated: schema.IsDeprecated(se.Options),
	}
	for _, o := range se.Options {
		switch o.Name {
		case "deprecated", "allow_alias":
		default:
			c.warn(ctx, &Warning{Code: WarnUnknownOption, Scope: full, Element: o.Name, Text: fmt.Sprintf("enum option %q is ignored", o.Name)})
		}
	}
	for _, v := range se.Values {
		spec.Values = append(spec.Values, model.EnumValue{
			Name:       v.Name,
			Ordinal:    v.Number,
			Doc:        v.Doc,
			Deprecated: schema.IsDeprecated(v.Options),
		})
	}
	return &model.EnumDecl{Spec: spec, Parent: parentDecl}
}

// schemaErr wraps a structural schema problem.
func schemaErr(ctx context.Context, err error) error {
	return errors.E(ctx, errors.CatUser, errors.TypeSchema, err)
}
