// Package golang implements the Go language renderer.
//
// Each message becomes an immutable struct with getters, a validating New<Msg>
// constructor, a <Msg>Builder and typed one-of accessors. Each enum, including the
// synthetic enum of a one-of group, becomes an int32 type implementing
// enums.ProtoOrdinal. Message fields whose type is declared in another file are held as
// their encoded bytes.
package golang

import (
	"bytes"
	"embed"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/bearlytools/pbj/pbjc/compiler"
	"github.com/bearlytools/pbj/pbjc/internal/render"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"
)

//go:embed templates/*
var f embed.FS
var templates *template.Template

var buffers = sync.NewPool[*bytes.Buffer](
	context.Background(),
	"pbjcRenderBuffers",
	func() *bytes.Buffer {
		return &bytes.Buffer{}
	},
	sync.WithBuffer(10),
)

func init() {
	t, err := template.ParseFS(f, "templates/*.tmpl")
	if err != nil {
		panic(err)
	}
	templates = t

	if _, ok := render.Supported[render.Go]; ok {
		panic("someone alread registered the Go language renderer")
	}
	render.Supported[render.Go] = func() render.Renderer { return New() }
}

// runtimePkgs are the packages emitted code may use, keyed by the name code refers to them by.
var runtimePkgs = map[string]string{
	"bytes":    compiler.ImportBytes,
	"context":  compiler.ImportContext,
	"enums":    compiler.ImportEnums,
	"errors":   compiler.ImportErrors,
	"math":     "math",
	"oneof":    compiler.ImportOneOf,
	"optional": compiler.ImportOptional,
	"strconv":  "strconv",
}

// Option is an optional argument to New.
type Option func(r *Renderer)

// WithPackageName sets the Go package name of the rendered file. By default it is the
// last element of the file's go_package, or of its protobuf package.
func WithPackageName(name string) Option {
	return func(r *Renderer) {
		r.pkgName = name
	}
}

// WithSource records the name of the .proto file in the generated header.
func WithSource(name string) Option {
	return func(r *Renderer) {
		r.source = name
	}
}

// Renderer implements render.Renderer for the Go language. It is also a compiler.Emitter,
// so it can be handed to compiler.WithEmitter directly.
type Renderer struct {
	pkgName string
	source  string

	body    bytes.Buffer
	needPtr bool
}

// New creates a Renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{}
	for _, o := range options {
		o(r)
	}
	return r
}

// EmitEnum implements compiler.Emitter.EmitEnum().
func (r *Renderer) EmitEnum(ctx context.Context, e *model.EnumDecl) error {
	return r.execute(ctx, "enum.tmpl", newEnumView(e))
}

// EmitMessage implements compiler.Emitter.EmitMessage().
func (r *Renderer) EmitMessage(ctx context.Context, m *model.MessageDecl) error {
	ty := &typer{}
	v := ty.message(m)
	if err := r.execute(ctx, "message.tmpl", v); err != nil {
		return err
	}
	r.needPtr = r.needPtr || ty.needPtr
	return nil
}

func (r *Renderer) execute(ctx context.Context, name string, data any) error {
	buff := buffers.Get(ctx)
	defer func() {
		buff.Reset()
		buffers.Put(ctx, buff)
	}()

	if err := templates.ExecuteTemplate(buff, name, data); err != nil {
		return fmt.Errorf("error rendering %s: %w", name, err)
	}
	r.body.WriteString("\n")
	r.body.Write(buff.Bytes())
	return nil
}

type fileData struct {
	Source  string
	Package string
	Imports []string
	Body    string
	NeedPtr bool
}

// Source implements render.Renderer.Source(). The output is gofmt formatted.
func (r *Renderer) Source(ctx context.Context, res *compiler.Result) ([]byte, error) {
	data := fileData{
		Source:  r.source,
		Package: r.packageName(res),
		Body:    r.body.String(),
		NeedPtr: r.needPtr,
	}
	imports, err := usedImports(data.Package, data.Body)
	if err != nil {
		return nil, err
	}
	data.Imports = imports

	buff := buffers.Get(ctx)
	defer func() {
		buff.Reset()
		buffers.Put(ctx, buff)
	}()
	if err := templates.ExecuteTemplate(buff, "file.tmpl", data); err != nil {
		return nil, fmt.Errorf("error rendering file.tmpl: %w", err)
	}
	out, err := format.Source(buff.Bytes())
	if err != nil {
		return nil, fmt.Errorf("rendered Go does not parse: %w", err)
	}
	return out, nil
}

func (r *Renderer) packageName(res *compiler.Result) string {
	if r.pkgName != "" {
		return r.pkgName
	}
	if res.GoPackage != "" {
		p := res.GoPackage
		if i := strings.Index(p, ";"); i >= 0 {
			return p[i+1:]
		}
		return sanitize(path.Base(p))
	}
	if res.Package != "" {
		parts := strings.Split(res.Package, ".")
		return sanitize(parts[len(parts)-1])
	}
	return "pb"
}

func sanitize(name string) string {
	name = strings.Map(
		func(r rune) rune {
			if r == '-' || r == '.' {
				return '_'
			}
			return r
		},
		name,
	)
	if token.IsKeyword(name) {
		return name + "pb"
	}
	return name
}

// usedImports parses body and returns the import paths of the runtime packages it
// refers to, sorted by path.
func usedImports(pkg, body string) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", "package "+pkg+"\n"+body, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("rendered Go does not parse: %w", err)
	}
	used := map[string]bool{}
	ast.Inspect(
		file,
		func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			if id, ok := sel.X.(*ast.Ident); ok {
				if p, ok := runtimePkgs[id.Name]; ok {
					used[p] = true
				}
			}
			return true
		},
	)
	out := make([]string, 0, len(used))
	for p := range used {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
