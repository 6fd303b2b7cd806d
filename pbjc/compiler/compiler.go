// Package compiler turns a protobuf schema AST into the model declarations pbj emits
// code from.
//
// Compile walks the file depth first. A message's nested messages and enums are compiled
// before its own fields, and declarations are handed to the Emitter in post order, so an
// emitter always sees a type before any message that contains it. Constructs the
// compiler doesn't understand, such as map fields, are logged and returned as Warnings
// and the rest of the file still compiles.
package compiler

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/bearlytools/pbj/pbjc/schema"
	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/telemetry/otel/trace/span"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Emitter receives declarations as they are compiled.
type Emitter interface {
	// EmitMessage is called once per message after all of its nested types.
	EmitMessage(ctx context.Context, m *model.MessageDecl) error
	// EmitEnum is called once per enum, including the synthetic enums of one-of groups.
	EmitEnum(ctx context.Context, e *model.EnumDecl) error
}

// Option is an optional argument to Compile.
type Option func(*compiler)

// WithEmitter sets an Emitter that receives every declaration. An error from the
// Emitter stops the compile.
func WithEmitter(e Emitter) Option {
	return func(c *compiler) {
		c.emitter = e
	}
}

// WithLogger sets the logger warnings are written to. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *compiler) {
		c.log = l
	}
}

// WithGoPackage sets the Go import path of the emitted package. It overrides the file's
// go_package option.
func WithGoPackage(path string) Option {
	return func(c *compiler) {
		c.goPackage = path
	}
}

// WithMeterProvider sets the provider compile metrics are recorded with. The default is
// the meter attached to the Context.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *compiler) {
		c.meterProvider = mp
	}
}

// Result is the output of Compile.
type Result struct {
	// Package is the protobuf package of the file.
	Package string
	// GoPackage is the Go import path of the emitted package, if known.
	GoPackage string
	// Proto2 is set for proto2 files.
	Proto2 bool
	// Messages are the top level messages in declared order.
	Messages []*model.MessageDecl
	// Enums are the top level enums in declared order.
	Enums []*model.EnumDecl
	// Imports are the packages the emitted file needs, sorted.
	Imports []string
	// Dependencies are type names referenced by fields but not declared in the file,
	// sorted. These are resolved by the caller.
	Dependencies []string
	// Warnings are the constructs that were skipped or ignored.
	Warnings []*Warning
}

// Message returns the message with the dotted full name, such as "Outer.Inner".
func (r *Result) Message(fullName string) *model.MessageDecl {
	var find func(ms []*model.MessageDecl) *model.MessageDecl
	find = func(ms []*model.MessageDecl) *model.MessageDecl {
		for _, m := range ms {
			if m.FullName() == fullName {
				return m
			}
			if found := find(m.Nested); found != nil {
				return found
			}
		}
		return nil
	}
	return find(r.Messages)
}

// Enum returns the enum with the dotted full name, such as "Outer.Kind".
func (r *Result) Enum(fullName string) *model.EnumDecl {
	for _, e := range r.Enums {
		if e.Spec.FullName == fullName {
			return e
		}
	}
	var find func(ms []*model.MessageDecl) *model.EnumDecl
	find = func(ms []*model.MessageDecl) *model.EnumDecl {
		for _, m := range ms {
			for _, e := range m.Enums {
				if e.Spec.FullName == fullName {
					return e
				}
			}
			if found := find(m.Nested); found != nil {
				return found
			}
		}
		return nil
	}
	return find(r.Messages)
}

type compiler struct {
	file          *schema.File
	emitter       Emitter
	log           *slog.Logger
	goPackage     string
	meterProvider metric.MeterProvider

	scope *scope

	imports      map[string]bool
	dependencies map[string]bool
	warnings     []*Warning

	messagesCompiled metric.Int64Counter
	warningCount     metric.Int64Counter
}

// Compile compiles f. A nil file, duplicate field numbers or names, and errors from the
// Emitter are returned as errors. Everything else the compiler can't use is a Warning.
func Compile(ctx context.Context, f *schema.File, options ...Option) (*Result, error) {
	if f == nil {
		return nil, errors.E(ctx, errors.CatUser, errors.TypeParameter, errors.New("compiler: nil schema.File"))
	}

	c := &compiler{
		file:         f,
		log:          slog.Default(),
		imports:      map[string]bool{},
		dependencies: map[string]bool{},
	}
	for _, o := range options {
		o(c)
	}
	if c.goPackage == "" {
		c.goPackage, _ = schema.FindOption(f.Options, "go_package")
	}
	if err := c.initMetrics(ctx); err != nil {
		return nil, errors.E(ctx, errors.CatInternal, errors.TypeBug, err)
	}

	ctx, sp := span.New(
		ctx,
		span.WithName("pbjc.Compile"),
		span.WithSpanStartOption(trace.WithSpanKind(trace.SpanKindInternal)),
	)
	defer sp.End()
	sp.Span.SetAttributes(
		attribute.String("pbjc.file", f.Name),
		attribute.String("pbjc.package", f.Package),
	)

	c.scope = newScope(f)

	res := &Result{
		Package:   f.Package,
		GoPackage: c.goPackage,
		Proto2:    f.IsProto2(),
	}

	for _, o := range f.Options {
		switch o.Name {
		case "go_package", "deprecated", "java_package", "java_multiple_files", "java_outer_classname", "optimize_for":
		default:
			c.warn(ctx, &Warning{Code: WarnUnknownOption, Element: o.Name, Text: fmt.Sprintf("file option %q is ignored", o.Name)})
		}
	}

	for _, e := range f.Enums {
		decl := c.enum(ctx, e, "", nil)
		if err := c.emitEnum(ctx, decl); err != nil {
			return nil, err
		}
		res.Enums = append(res.Enums, decl)
	}
	for _, m := range f.Messages {
		decl, err := c.message(ctx, m, "", nil)
		if err != nil {
			return nil, err
		}
		res.Messages = append(res.Messages, decl)
	}

	res.Imports = sortedKeys(c.imports)
	res.Dependencies = sortedKeys(c.dependencies)
	res.Warnings = c.warnings
	return res, nil
}

func (c *compiler) initMetrics(ctx context.Context) error {
	var meter metric.Meter
	if c.meterProvider != nil {
		meter = c.meterProvider.Meter("pbjc")
	} else {
		meter = context.Meter(ctx)
	}

	var err error
	c.messagesCompiled, err = meter.Int64Counter(
		"pbjc.messages_compiled",
		metric.WithDescription("Number of messages compiled, including nested messages"),
	)
	if err != nil {
		return err
	}
	c.warningCount, err = meter.Int64Counter(
		"pbjc.warnings",
		metric.WithDescription("Number of schema constructs skipped or ignored by the compiler"),
	)
	return err
}

// warn records w and logs it. It never fails the compile.
func (c *compiler) warn(ctx context.Context, w *Warning) {
	c.warnings = append(c.warnings, w)
	c.log.WarnContext(ctx, w.Text, "scope", w.Scope, "element", w.Element, "code", w.Code.String())
	c.warningCount.Add(ctx, 1, metric.WithAttributes(attribute.String("code", w.Code.String())))
}

func (c *compiler) emitEnum(ctx context.Context, decl *model.EnumDecl) error {
	if c.emitter == nil {
		return nil
	}
	if err := c.emitter.EmitEnum(ctx, decl); err != nil {
		return fmt.Errorf("compiler: emitting enum %s: %w", decl.Spec.FullName, err)
	}
	return nil
}

func (c *compiler) emitMessage(ctx context.Context, decl *model.MessageDecl) error {
	if c.emitter == nil {
		return nil
	}
	if err := c.emitter.EmitMessage(ctx, decl); err != nil {
		return fmt.Errorf("compiler: emitting message %s: %w", decl.FullName(), err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
