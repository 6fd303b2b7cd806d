// Package render sets up the interface for rendering a compiled protobuf file to a language
// native representation. It also supports registering the handlers of those renderers
// (which are in other packages).
package render

import (
	"fmt"
	"sync"

	"github.com/bearlytools/pbj/pbjc/compiler"
	"github.com/bearlytools/pbj/pbjc/model"
	"github.com/gostdlib/base/context"
)

// Lang represents a programming language we can render a compiled file to.
type Lang uint8

const (
	Unknown Lang = 0
	Go      Lang = 1
)

func (l Lang) String() string {
	switch l {
	case Go:
		return "Go"
	}
	return fmt.Sprintf("Lang(%d)", uint8(l))
}

// Renderer receives the declarations of one compiled file and renders them as a single
// language native file. A Renderer is used for one file only.
type Renderer interface {
	compiler.Emitter
	// Source returns the rendered file for everything emitted so far.
	Source(ctx context.Context, res *compiler.Result) ([]byte, error)
}

// Supported has a constructor for every language that registered support.
var Supported = map[Lang]func() Renderer{}

// Rendered represents rendered output for a language.
type Rendered struct {
	// Package is the protobuf package this represents.
	Package string
	// GoPackage is the Go import path, if the file had one.
	GoPackage string
	// Lang is the language this is for.
	Lang Lang
	// Native is the output for the language.
	Native []byte
}

// Render renders res in each of langs. Languages are rendered concurrently.
func Render(ctx context.Context, res *compiler.Result, langs ...Lang) ([]Rendered, error) {
	for _, l := range langs {
		if _, ok := Supported[l]; !ok {
			return nil, fmt.Errorf("language %v is not supported", l)
		}
	}

	out := make([]Rendered, len(langs))
	errs := make([]error, len(langs))
	wg := sync.WaitGroup{}
	pool := context.Pool(ctx)

	for i, l := range langs {
		wg.Add(1)
		pool.Submit(
			ctx,
			func() {
				defer wg.Done()
				r := Supported[l]()
				if err := Walk(ctx, res, r); err != nil {
					errs[i] = err
					return
				}
				b, err := r.Source(ctx, res)
				if err != nil {
					errs[i] = fmt.Errorf("rendering %v: %w", l, err)
					return
				}
				out[i] = Rendered{Package: res.Package, GoPackage: res.GoPackage, Lang: l, Native: b}
			},
		)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Walk hands every declaration in res to e in the order Compile emits them: top level
// enums, then each message after its nested enums, nested messages and one-of enums.
func Walk(ctx context.Context, res *compiler.Result, e compiler.Emitter) error {
	for _, ed := range res.Enums {
		if err := e.EmitEnum(ctx, ed); err != nil {
			return err
		}
	}
	for _, m := range res.Messages {
		if err := walkMessage(ctx, m, e); err != nil {
			return err
		}
	}
	return nil
}

func walkMessage(ctx context.Context, m *model.MessageDecl, e compiler.Emitter) error {
	for _, ed := range m.Enums {
		if err := e.EmitEnum(ctx, ed); err != nil {
			return err
		}
	}
	for _, n := range m.Nested {
		if err := walkMessage(ctx, n, e); err != nil {
			return err
		}
	}
	for _, ed := range m.OneOfEnums {
		if err := e.EmitEnum(ctx, ed); err != nil {
			return err
		}
	}
	return e.EmitMessage(ctx, m)
}
