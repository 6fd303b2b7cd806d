package dynamic

import (
	"fmt"

	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/oneof"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/gostdlib/base/context"
)

// Builder accumulates field values for a Type. Every field starts at its default.
// Setters return the Builder so calls chain; the first error a setter hits is held and
// returned by Build.
type Builder struct {
	typ    *Type
	values []any
	err    error
}

// NewBuilder returns a Builder with every field at its default.
func (t *Type) NewBuilder() *Builder {
	return &Builder{typ: t, values: t.defaults()}
}

// NewEmptyBuilder returns a Builder like NewBuilder, except explicit and required fields
// start absent instead of at a declared default. Decoders use it so a missing field
// stays missing when the message is encoded again.
func (t *Type) NewEmptyBuilder() *Builder {
	return &Builder{typ: t, values: t.absent()}
}

// CopyBuilder returns a Builder holding every value of m. Building it without changes
// produces a message Equal to m.
func (m *Message) CopyBuilder() *Builder {
	return &Builder{typ: m.typ, values: m.Values()}
}

// Set sets the ordinary field named name. One-of alternatives are set with
// SetAlternative.
func (b *Builder) Set(name string, v any) *Builder {
	if b.err != nil {
		return b
	}
	s := b.setter(name)
	if s == nil {
		b.err = noField(b.typ, name)
		return b
	}
	i, _ := b.typ.index(s.Field.Name)
	val, err := b.typ.coerce(s.Field, v)
	if err != nil {
		b.err = err
		return b
	}
	b.values[i] = val
	return b
}

// SetAlternative makes the one-of alternative named name active with the payload v,
// replacing whichever alternative of the group was active.
func (b *Builder) SetAlternative(name string, v any) *Builder {
	if b.err != nil {
		return b
	}
	i, alt, ok := b.typ.alternative(name)
	if !ok {
		b.err = noField(b.typ, name)
		return b
	}
	if v == nil {
		b.err = fmt.Errorf("alternative %q can't be set to nil: %w", name, ErrType)
		return b
	}
	p, err := b.typ.coerceElem(alt, v)
	if err != nil {
		b.err = err
		return b
	}
	b.values[i] = oneof.New(alt.Number, p)
	return b
}

// Clear resets the one-of group named name to UNSET.
func (b *Builder) Clear(name string) *Builder {
	if b.err != nil {
		return b
	}
	i, ok := b.typ.index(name)
	if !ok || !b.typ.decl.Fields[i].IsOneOf() {
		b.err = noField(b.typ, name)
		return b
	}
	b.values[i] = oneof.Unset[int32]()
	return b
}

// Build runs the validating constructor over the accumulated values.
func (b *Builder) Build(ctx context.Context) (*Message, error) {
	if b.err != nil {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter, b.err)
	}
	return b.typ.New(ctx, b.values...)
}

func (b *Builder) setter(name string) *model.Setter {
	for i, s := range b.typ.decl.Builder.Setters {
		if s.Alternative == nil && s.Field.Name == name {
			return &b.typ.decl.Builder.Setters[i]
		}
	}
	return nil
}
