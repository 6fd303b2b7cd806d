package compiler

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/bearlytools/pbj/languages/go/enums"
	"github.com/bearlytools/pbj/languages/go/oneof"
	"github.com/bearlytools/pbj/languages/go/optional"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/bearlytools/pbj/pbjc/schema"
	"github.com/gostdlib/base/context"
	"github.com/kylelemons/godebug/pretty"
	"go.opentelemetry.io/otel/metric/noop"
)

// personFile is a proto3 file exercising every element kind.
func personFile() *schema.File {
	return &schema.File{
		Name:    "person.proto",
		Syntax:  schema.Proto3,
		Package: "example",
		Enums: []*schema.Enum{
			{Name: "Kind", Values: []*schema.EnumValue{{Name: "KIND_UNSPECIFIED"}, {Name: "ADMIN", Number: 1}}},
		},
		Messages: []*schema.Message{
			{
				Name: "Person",
				Doc:  "Person is a person.",
				Elements: []schema.Element{
					{Option: &schema.Option{Name: "deprecated", Value: "true"}},
					{Message: &schema.Message{
						Name: "Address",
						Elements: []schema.Element{
							{Field: &schema.Field{Name: "street", Type: "string", Number: 1}},
						},
					}},
					{Enum: &schema.Enum{Name: "Kind", Values: []*schema.EnumValue{{Name: "HUMAN", Number: 3}, {Name: "ROBOT", Number: 4}}}},
					{Field: &schema.Field{Name: "name", Type: "string", Number: 1}},
					{Field: &schema.Field{Name: "nick", Label: schema.LabelOptional, Type: "string", Number: 2}},
					{OneOf: &schema.OneOf{Name: "contact", Fields: []*schema.Field{
						{Name: "email", Type: "string", Number: 4},
						{Name: "phone", Type: "google.protobuf.StringValue", Number: 3},
					}}},
					{Field: &schema.Field{Name: "home", Type: "Address", Number: 5}},
					{Field: &schema.Field{Name: "ids", Label: schema.LabelRepeated, Type: "int64", Number: 6}},
					{Field: &schema.Field{Name: "kind", Type: "Kind", Number: 7}},
					{Field: &schema.Field{Name: "file_kind", Type: ".example.Kind", Number: 8}},
					{Field: &schema.Field{Name: "avatar", Type: "bytes", Number: 9}},
					{Field: &schema.Field{Name: "created", Type: "google.protobuf.Timestamp", Number: 10}},
					{Map: &schema.MapField{Name: "tags", KeyType: "string", ValueType: "string", Number: 11}},
					{Reserved: &schema.Reserved{Names: []string{"old"}}},
					{Unknown: "extensions"},
				},
			},
		},
	}
}

type recorder struct {
	events []string
	failOn string
}

func (r *recorder) EmitMessage(ctx context.Context, m *model.MessageDecl) error {
	r.events = append(r.events, "message "+m.FullName())
	if r.failOn == m.FullName() {
		return fmt.Errorf("emitter broke")
	}
	return nil
}

func (r *recorder) EmitEnum(ctx context.Context, e *model.EnumDecl) error {
	r.events = append(r.events, "enum "+e.Spec.FullName)
	return nil
}

func compile(t *testing.T, f *schema.File, opts ...Option) (*Result, string) {
	t.Helper()
	logs := &bytes.Buffer{}
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
		WithMeterProvider(noop.NewMeterProvider()),
	}, opts...)
	res, err := Compile(context.Background(), f, opts...)
	if err != nil {
		t.Fatalf("Compile(%s): got err == %s, want err == nil", f.Name, err)
	}
	return res, logs.String()
}

func TestCompileEmitOrder(t *testing.T) {
	rec := &recorder{}
	compile(t, personFile(), WithEmitter(rec))

	want := []string{
		"enum Kind",
		"message Person.Address",
		"enum Person.Kind",
		"enum Person.ContactOneOfType",
		"message Person",
	}
	if diff := pretty.Compare(want, rec.events); diff != "" {
		t.Errorf("TestCompileEmitOrder: -want/+got:\n%s", diff)
	}
}

func TestCompileFields(t *testing.T) {
	res, _ := compile(t, personFile())

	person := res.Message("Person")
	if person == nil {
		t.Fatalf("TestCompileFields: Person not found")
	}
	if !person.Spec.Deprecated || person.Spec.Doc != "Person is a person." {
		t.Errorf("TestCompileFields: deprecated/doc got %v/%q", person.Spec.Deprecated, person.Spec.Doc)
	}
	if res.Message("Person.Address") == nil || res.Enum("Person.Kind") == nil || res.Enum("Kind") == nil {
		t.Errorf("TestCompileFields: nested lookups failed")
	}

	type fieldSummary struct {
		Name     string
		Type     string
		TypeName string
		Presence string
		Repeated bool
		Packed   bool
		Nullable bool
		Local    bool
	}
	var got []fieldSummary
	for _, f := range person.Fields {
		got = append(got, fieldSummary{
			Name:     f.Name,
			Type:     f.Type.String(),
			TypeName: f.TypeName,
			Presence: f.Presence.String(),
			Repeated: f.Repeated,
			Packed:   f.Packed,
			Nullable: f.Nullable(),
			Local:    f.Local,
		})
	}
	want := []fieldSummary{
		{Name: "name", Type: "string", Presence: "implicit"},
		{Name: "nick", Type: "string", Presence: "explicit", Nullable: true},
		{Name: "contact", Type: "oneof", Presence: "implicit"},
		{Name: "home", Type: "message", TypeName: "Person.Address", Presence: "explicit", Nullable: true, Local: true},
		{Name: "ids", Type: "int64", Presence: "implicit", Repeated: true, Packed: true},
		{Name: "kind", Type: "enum", TypeName: "Person.Kind", Presence: "implicit", Local: true},
		{Name: "file_kind", Type: "enum", TypeName: "Kind", Presence: "implicit", Local: true},
		{Name: "avatar", Type: "bytes", Presence: "implicit"},
		{Name: "created", Type: "message", TypeName: "google.protobuf.Timestamp", Presence: "explicit", Nullable: true},
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Errorf("TestCompileFields: -want/+got:\n%s", diff)
	}

	if diff := pretty.Compare([]string{"google.protobuf.Timestamp"}, res.Dependencies); diff != "" {
		t.Errorf("TestCompileFields(dependencies): -want/+got:\n%s", diff)
	}
}

func TestCompileDefaults(t *testing.T) {
	res, _ := compile(t, personFile())
	person := res.Message("Person")

	defaults := map[string]any{}
	for _, f := range person.Fields {
		defaults[f.Name] = f.Default
	}

	tests := []struct {
		field string
		want  any
	}{
		{"name", ""},
		{"nick", nil},
		{"contact", oneof.Unset[int32]()},
		{"home", nil},
		{"ids", nil},
		{"kind", enums.Value{Name: "HUMAN", Ordinal: 3}},
		{"file_kind", enums.Value{Name: "KIND_UNSPECIFIED", Ordinal: 0}},
	}
	for _, test := range tests {
		if got := defaults[test.field]; got != test.want {
			t.Errorf("TestCompileDefaults(%s): got %#v, want %#v", test.field, got, test.want)
		}
	}

	phone := person.Spec.Field("contact").OneOf.ByName("phone")
	if phone.Wrapper != model.TypeString || phone.Default != nil {
		t.Errorf("TestCompileDefaults(phone): wrapper %v default %#v", phone.Wrapper, phone.Default)
	}
}

func TestCompileContract(t *testing.T) {
	res, _ := compile(t, personFile())
	person := res.Message("Person")

	var checks []string
	for _, chk := range person.Constructor {
		s := chk.Kind.String() + " " + chk.Field.Name
		if chk.Alternative != nil {
			s += "." + chk.Alternative.Name
		}
		checks = append(checks, s)
	}
	wantChecks := []string{
		"present name",
		"present contact",
		"normalizeEmpty contact.phone",
		"present ids",
		"present kind",
		"present file_kind",
		"present avatar",
	}
	if diff := pretty.Compare(wantChecks, checks); diff != "" {
		t.Errorf("TestCompileContract(constructor): -want/+got:\n%s", diff)
	}

	var setters []string
	for _, s := range person.Builder.Setters {
		setters = append(setters, s.Name)
	}
	wantSetters := []string{"SetName", "SetNick", "SetEmail", "SetPhone", "SetHome", "SetIds", "SetKind", "SetFileKind", "SetAvatar", "SetCreated"}
	if diff := pretty.Compare(wantSetters, setters); diff != "" {
		t.Errorf("TestCompileContract(setters): -want/+got:\n%s", diff)
	}
	if person.Builder.Name != "PersonBuilder" || len(person.Builder.CopyParams) != len(person.Fields) {
		t.Errorf("TestCompileContract: builder %q with %d copy params", person.Builder.Name, len(person.Builder.CopyParams))
	}

	var accessors []string
	for _, a := range person.Accessors {
		accessors = append(accessors, a.Name)
	}
	if diff := pretty.Compare([]string{"Email", "Phone"}, accessors); diff != "" {
		t.Errorf("TestCompileContract(accessors): -want/+got:\n%s", diff)
	}

	if len(person.OneOfEnums) != 1 {
		t.Fatalf("TestCompileContract: got %d one-of enums, want 1", len(person.OneOfEnums))
	}
	oe := person.OneOfEnums[0].Spec
	if oe.Name != "ContactOneOfType" || oe.Values[0].Name != "UNSET" || oe.Values[1].Name != "PHONE" || oe.Values[2].Name != "EMAIL" {
		t.Errorf("TestCompileContract: one-of enum got %+v", oe)
	}

	wantImports := []string{ImportBytes, ImportEnums, ImportErrors, ImportOneOf, ImportOptional, ImportContext}
	for _, imp := range wantImports {
		found := false
		for _, got := range res.Imports {
			if got == imp {
				found = true
			}
		}
		if !found {
			t.Errorf("TestCompileContract: import %q missing from %v", imp, res.Imports)
		}
	}
	addr := res.Message("Person.Address")
	if diff := pretty.Compare([]string{ImportErrors, ImportContext}, addr.Imports); diff != "" {
		t.Errorf("TestCompileContract(Address imports): -want/+got:\n%s", diff)
	}
}

func TestCompileWarnings(t *testing.T) {
	f := personFile()
	f.Options = []schema.Option{{Name: "cc_enable_arenas", Value: "true"}}
	res, logs := compile(t, f)

	var codes []WarnCode
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}
	want := []WarnCode{WarnUnknownOption, WarnMapField, WarnUnknownElement}
	if diff := pretty.Compare(want, codes); diff != "" {
		t.Errorf("TestCompileWarnings: -want/+got:\n%s", diff)
	}
	if res.Warnings[1].Scope != "Person" || res.Warnings[1].Element != "tags" {
		t.Errorf("TestCompileWarnings: map warning got %+v", res.Warnings[1])
	}
	if res.Message("Person").Spec.Field("tags") != nil {
		t.Errorf("TestCompileWarnings: map field was not left out")
	}
	if !strings.Contains(logs, `map field \"tags\" is not supported`) || !strings.Contains(logs, "code=W001") {
		t.Errorf("TestCompileWarnings: log output missing map warning:\n%s", logs)
	}
	if got := res.Warnings[1].String(); got != `W001: Person: map field "tags" is not supported and was left out` {
		t.Errorf("TestCompileWarnings: String() got %q", got)
	}
}

func TestCompileProto2(t *testing.T) {
	f := &schema.File{
		Name:   "legacy.proto",
		Syntax: schema.Proto2,
		Messages: []*schema.Message{
			{
				Name: "Order",
				Elements: []schema.Element{
					{Enum: &schema.Enum{Name: "State", Values: []*schema.EnumValue{{Name: "NEW", Number: 1}, {Name: "DONE", Number: 2}}}},
					{Field: &schema.Field{Name: "id", Label: schema.LabelRequired, Type: "int64", Number: 1}},
					{Field: &schema.Field{Name: "qty", Label: schema.LabelOptional, Type: "int32", Number: 2, Options: []schema.Option{{Name: "default", Value: "5"}}}},
					{Field: &schema.Field{Name: "state", Label: schema.LabelOptional, Type: "State", Number: 3, Options: []schema.Option{{Name: "default", Value: "DONE"}}}},
					{Field: &schema.Field{Name: "note", Label: schema.LabelOptional, Type: "string", Number: 4, Options: []schema.Option{{Name: "default", Value: `"none"`}}}},
					{Field: &schema.Field{Name: "bad", Label: schema.LabelOptional, Type: "uint32", Number: 5, Options: []schema.Option{{Name: "default", Value: "-1"}}}},
					{Field: &schema.Field{Name: "codes", Label: schema.LabelRepeated, Type: "int32", Number: 6}},
					{Field: &schema.Field{Name: "packed", Label: schema.LabelRepeated, Type: "int32", Number: 7, Options: []schema.Option{{Name: "packed", Value: "true"}}}},
				},
			},
		},
	}
	res, _ := compile(t, f)
	order := res.Message("Order")

	wantDefaults := map[string]any{
		"id":    nil,
		"qty":   int32(5),
		"state": enums.Value{Name: "DONE", Ordinal: 2},
		"note":  "none",
		"bad":   nil,
	}
	for name, want := range wantDefaults {
		if got := order.Spec.Field(name).Default; got != want {
			t.Errorf("TestCompileProto2(%s default): got %#v, want %#v", name, got, want)
		}
	}
	if order.Spec.Field("id").Presence != model.PresenceRequired || order.Spec.Field("id").Nullable() {
		t.Errorf("TestCompileProto2: id should be required")
	}
	if order.Spec.Field("codes").Packed || !order.Spec.Field("packed").Packed {
		t.Errorf("TestCompileProto2: proto2 packed handling wrong")
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != WarnBadDefault || res.Warnings[0].Element != "bad" {
		t.Errorf("TestCompileProto2: warnings got %v", res.Warnings)
	}
	// id is required and the repeated fields can't be absent. Everything else is optional.
	if len(order.Constructor) != 3 {
		t.Errorf("TestCompileProto2: got %d constructor checks, want 3", len(order.Constructor))
	}
}

func TestCompileWrapperOptional(t *testing.T) {
	f := &schema.File{
		Messages: []*schema.Message{{
			Name: "W",
			Elements: []schema.Element{
				{Field: &schema.Field{Name: "v", Type: ".google.protobuf.Int32Value", Number: 1}},
			},
		}},
	}
	res, _ := compile(t, f)
	v := res.Message("W").Spec.Field("v")
	if v.Default != optional.None[int32]() || v.Nullable() {
		t.Errorf("TestCompileWrapperOptional: got default %#v nullable %v", v.Default, v.Nullable())
	}
	if len(res.Dependencies) != 0 {
		t.Errorf("TestCompileWrapperOptional: wrapper recorded as dependency: %v", res.Dependencies)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		file *schema.File
		emit *recorder
	}{
		{name: "Error: nil file"},
		{
			name: "Error: duplicate number",
			file: &schema.File{Messages: []*schema.Message{{Name: "A", Elements: []schema.Element{
				{Field: &schema.Field{Name: "a", Type: "int32", Number: 1}},
				{Field: &schema.Field{Name: "b", Type: "int32", Number: 1}},
			}}}},
		},
		{
			name: "Error: duplicate number inside one-of",
			file: &schema.File{Messages: []*schema.Message{{Name: "A", Elements: []schema.Element{
				{Field: &schema.Field{Name: "a", Type: "int32", Number: 1}},
				{OneOf: &schema.OneOf{Name: "o", Fields: []*schema.Field{{Name: "b", Type: "int32", Number: 1}}}},
			}}}},
		},
		{
			name: "Error: duplicate name",
			file: &schema.File{Messages: []*schema.Message{{Name: "A", Elements: []schema.Element{
				{Field: &schema.Field{Name: "a", Type: "int32", Number: 1}},
				{Field: &schema.Field{Name: "a", Type: "int32", Number: 2}},
			}}}},
		},
		{
			name: "Error: repeated one-of alternative",
			file: &schema.File{Messages: []*schema.Message{{Name: "A", Elements: []schema.Element{
				{OneOf: &schema.OneOf{Name: "o", Fields: []*schema.Field{{Name: "b", Label: schema.LabelRepeated, Type: "int32", Number: 1}}}},
			}}}},
		},
		{
			name: "Error: emitter failure",
			file: personFile(),
			emit: &recorder{failOn: "Person.Address"},
		},
	}

	for _, test := range tests {
		opts := []Option{WithMeterProvider(noop.NewMeterProvider()), WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}
		if test.emit != nil {
			opts = append(opts, WithEmitter(test.emit))
		}
		if _, err := Compile(context.Background(), test.file, opts...); err == nil {
			t.Errorf("TestCompileErrors(%s): got err == nil, want err != nil", test.name)
		}
	}
}

func TestResolve(t *testing.T) {
	f := &schema.File{
		Package: "pkg",
		Enums:   []*schema.Enum{{Name: "Kind"}},
		Messages: []*schema.Message{{
			Name: "Outer",
			Elements: []schema.Element{
				{Enum: &schema.Enum{Name: "Kind"}},
				{Message: &schema.Message{Name: "Inner", Elements: []schema.Element{
					{Message: &schema.Message{Name: "Deep"}},
				}}},
			},
		}},
	}
	s := newScope(f)

	tests := []struct {
		ref, from string
		want      resolved
	}{
		{"Kind", "Outer.Inner", resolved{kind: kindEnum, name: "Outer.Kind", local: true}},
		{"Kind", "", resolved{kind: kindEnum, name: "Kind", local: true}},
		{"Inner.Deep", "Outer", resolved{kind: kindMessage, name: "Outer.Inner.Deep", local: true}},
		{"Deep", "Outer.Inner.Deep", resolved{kind: kindMessage, name: "Outer.Inner.Deep", local: true}},
		{".pkg.Kind", "Outer", resolved{kind: kindEnum, name: "Kind", local: true}},
		{"pkg.Outer", "", resolved{kind: kindMessage, name: "Outer", local: true}},
		{"Missing", "Outer", resolved{kind: kindMessage, name: "Missing"}},
		{".other.Kind", "Outer", resolved{kind: kindMessage, name: ".other.Kind"}},
	}
	for _, test := range tests {
		got := s.resolve(test.ref, test.from)
		if got != test.want {
			t.Errorf("TestResolve(%q from %q): got %+v, want %+v", test.ref, test.from, got, test.want)
		}
	}
}
