package golang

import (
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bearlytools/pbj/pbjc/compiler"
	"github.com/bearlytools/pbj/pbjc/internal/render"
	"github.com/bearlytools/pbj/pbjc/schema"
	"github.com/gostdlib/base/context"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/tools/go/packages"
)

func personFile() *schema.File {
	return &schema.File{
		Name:    "person.proto",
		Syntax:  schema.Proto3,
		Package: "example.people",
		Enums: []*schema.Enum{
			{Name: "Kind", Values: []*schema.EnumValue{{Name: "KIND_UNSPECIFIED"}, {Name: "ADMIN", Number: 1}, {Name: "ROOT", Number: 1}}},
		},
		Messages: []*schema.Message{
			{
				Name: "Person",
				Doc:  "Person is a person.",
				Elements: []schema.Element{
					{Message: &schema.Message{
						Name: "Address",
						Elements: []schema.Element{
							{Field: &schema.Field{Name: "street", Type: "string", Number: 1}},
						},
					}},
					{Enum: &schema.Enum{Name: "Kind", Values: []*schema.EnumValue{{Name: "HUMAN", Number: 3}, {Name: "ROBOT", Number: 4}}}},
					{Field: &schema.Field{Name: "name", Type: "string", Number: 1, Doc: "The full name."}},
					{Field: &schema.Field{Name: "nick", Label: schema.LabelOptional, Type: "string", Number: 2}},
					{OneOf: &schema.OneOf{Name: "contact", Fields: []*schema.Field{
						{Name: "email", Type: "string", Number: 4},
						{Name: "phone", Type: "google.protobuf.StringValue", Number: 3},
					}}},
					{Field: &schema.Field{Name: "home", Type: "Address", Number: 5}},
					{Field: &schema.Field{Name: "ids", Label: schema.LabelRepeated, Type: "int64", Number: 6}},
					{Field: &schema.Field{Name: "kind", Type: "Kind", Number: 7}},
					{Field: &schema.Field{Name: "type", Type: "bytes", Number: 8}},
					{Field: &schema.Field{Name: "created", Type: "google.protobuf.Timestamp", Number: 10}},
				},
			},
		},
	}
}

func orderFile() *schema.File {
	return &schema.File{
		Name:    "order.proto",
		Syntax:  schema.Proto2,
		Options: []schema.Option{{Name: "go_package", Value: "github.com/acme/orders/orderpb"}},
		Messages: []*schema.Message{
			{
				Name: "Order",
				Elements: []schema.Element{
					{Field: &schema.Field{Name: "id", Label: schema.LabelRequired, Type: "int64", Number: 1}},
					{Field: &schema.Field{Name: "note", Label: schema.LabelOptional, Type: "string", Number: 2, Options: []schema.Option{{Name: "default", Value: "none"}}}},
					{Field: &schema.Field{Name: "ratio", Label: schema.LabelOptional, Type: "double", Number: 3, Options: []schema.Option{{Name: "default", Value: "inf"}}}},
				},
			},
		},
	}
}

// contains compares with runs of whitespace collapsed, so gofmt alignment doesn't matter.
func contains(src, want string) bool {
	squash := func(s string) string { return strings.Join(strings.Fields(s), " ") }
	return strings.Contains(squash(src), squash(want))
}

func renderFile(t *testing.T, f *schema.File, opts ...Option) string {
	t.Helper()
	ctx := context.Background()
	r := New(opts...)
	res, err := compiler.Compile(
		ctx,
		f,
		compiler.WithEmitter(r),
		compiler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		compiler.WithMeterProvider(noop.NewMeterProvider()),
	)
	if err != nil {
		t.Fatalf("Compile(%s): got err == %s, want err == nil", f.Name, err)
	}
	src, err := r.Source(ctx, res)
	if err != nil {
		t.Fatalf("Source(%s): got err == %s, want err == nil", f.Name, err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), f.Name+".go", src, parser.ParseComments); err != nil {
		t.Fatalf("Source(%s): output does not parse: %s\n%s", f.Name, err, src)
	}
	typeCheck(t, f.Name, src)
	return string(src)
}

// typeCheck loads src as a package inside this module, so the runtime imports resolve
// the way they do for users of generated code, and fails on any type error.
func typeCheck(t *testing.T, name string, src []byte) {
	t.Helper()
	if testing.Short() {
		return
	}

	dir, err := os.MkdirTemp(".", "typecheck")
	if err != nil {
		t.Fatalf("typeCheck(%s): %s", name, err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	if err := os.WriteFile(filepath.Join(dir, "gen.go"), src, 0o644); err != nil {
		t.Fatalf("typeCheck(%s): %s", name, err)
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo}
	pkgs, err := packages.Load(cfg, "./"+filepath.ToSlash(dir))
	if err != nil {
		t.Fatalf("typeCheck(%s): packages.Load: %s", name, err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("typeCheck(%s): got %d packages, want 1", name, len(pkgs))
	}
	for _, e := range pkgs[0].Errors {
		t.Errorf("typeCheck(%s): %s", name, e)
	}
	if t.Failed() {
		t.Logf("typeCheck(%s) source:\n%s", name, src)
	}
}

func TestRenderPerson(t *testing.T) {
	src := renderFile(t, personFile(), WithSource("person.proto"))

	want := []string{
		"// Code generated by pbjc. DO NOT EDIT.",
		"// source: person.proto",
		"package people",
		`"github.com/bearlytools/pbj/languages/go/oneof"`,
		`"github.com/bearlytools/pbj/languages/go/optional"`,
		`"github.com/bearlytools/pbj/languages/go/bytes"`,
		"// Person is a person.",
		"type Person struct {",
		"contact oneof.OneOf[PersonContactOneOfType]",
		"home *PersonAddress",
		"type_ bytes.Bytes",
		"created bytes.Bytes",
		"nick *string",
		"func NewPerson(ctx context.Context, name string, nick *string, contact oneof.OneOf[PersonContactOneOfType]",
		"if contact.Is(PersonContactOneOfTypePhone) && optional.IsEmptyValue(contact.Value()) {",
		"contact = oneof.Unset[PersonContactOneOfType]()",
		"// The full name.",
		"func (x Person) Nick() (string, bool) {",
		"func (x Person) Email() (string, bool) {",
		"return oneof.As[optional.Value[string]](x.contact, PersonContactOneOfTypePhone)",
		"func (x Person) CopyBuilder() *PersonBuilder {",
		"kind: PersonKindHuman,",
		"func (b *PersonBuilder) SetPhone(v optional.Value[string]) *PersonBuilder {",
		"b.contact = oneof.New(PersonContactOneOfTypeEmail, any(v))",
		"func (b *PersonBuilder) Build(ctx context.Context) (Person, error) {",
		"PersonContactOneOfTypeUnset PersonContactOneOfType = 0",
		"PersonContactOneOfTypePhone PersonContactOneOfType = 3",
		"func (e PersonKind) ProtoOrdinal() int32 {",
		"type PersonAddress struct {",
		"KindRoot Kind = 1",
	}
	for _, w := range want {
		if !contains(src, w) {
			t.Errorf("TestRenderPerson: output missing %q\n%s", w, src)
		}
	}

	// The alias shares ordinal 1, so only the first declared name is returned.
	if strings.Contains(src, "case KindRoot:") {
		t.Errorf("TestRenderPerson: alias rendered as a duplicate switch case")
	}
	if strings.Contains(src, "languages/go/errors") {
		t.Errorf("TestRenderPerson: errors imported but no field can be absent")
	}
	if strings.Contains(src, "pbjPtr") {
		t.Errorf("TestRenderPerson: pointer helper rendered but unused")
	}
}

func TestRenderOrder(t *testing.T) {
	src := renderFile(t, orderFile())

	want := []string{
		"package orderpb",
		`"github.com/bearlytools/pbj/languages/go/errors"`,
		`"math"`,
		"if id == nil {",
		`return Order{}, errors.MissingField(ctx, "id")`,
		"func (x Order) Id() int64 {",
		"return *x.id",
		`note: pbjPtr[string]("none"),`,
		"ratio: pbjPtr[float64](math.Inf(1)),",
		"func (b *OrderBuilder) SetId(v int64) *OrderBuilder {",
		"b.id = &v",
		"func pbjPtr[T any](v T) *T {",
	}
	for _, w := range want {
		if !contains(src, w) {
			t.Errorf("TestRenderOrder: output missing %q\n%s", w, src)
		}
	}
	if strings.Contains(src, "languages/go/oneof") {
		t.Errorf("TestRenderOrder: oneof imported without a one-of")
	}
}

func TestRenderPackageName(t *testing.T) {
	src := renderFile(t, orderFile(), WithPackageName("shop"))
	if !strings.Contains(src, "package shop\n") {
		t.Errorf("TestRenderPackageName: got\n%s", src)
	}
}

func TestRenderRegistered(t *testing.T) {
	ctx := context.Background()
	res, err := compiler.Compile(
		ctx,
		orderFile(),
		compiler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		compiler.WithMeterProvider(noop.NewMeterProvider()),
	)
	if err != nil {
		t.Fatal(err)
	}

	out, err := render.Render(ctx, res, render.Go)
	if err != nil {
		t.Fatalf("TestRenderRegistered: got err == %s, want err == nil", err)
	}
	if len(out) != 1 || out[0].Lang != render.Go || out[0].GoPackage != "github.com/acme/orders/orderpb" {
		t.Fatalf("TestRenderRegistered: got %+v", out)
	}
	if want := renderFile(t, orderFile()); string(out[0].Native) != want {
		t.Errorf("TestRenderRegistered: Render and the emitter disagree:\n%s\n---\n%s", out[0].Native, want)
	}

	if _, err := render.Render(ctx, res, render.Unknown); err == nil {
		t.Errorf("TestRenderRegistered(Unknown): got err == nil, want error")
	}
}
