// Package errors provides the error types used by pbj generated code, the runtime and the
// compiler. New and Is are provided so callers only need to import one errors package.
package errors

import (
	"fmt"

	"github.com/gostdlib/base/context"
	"github.com/gostdlib/base/errors"
)

// Category represents the category of the error.
type Category uint32

func (c Category) Category() string {
	return c.String()
}

func (c Category) String() string {
	switch c {
	case CatUser:
		return "User"
	case CatInternal:
		return "Internal"
	}
	return "Unknown"
}

const (
	// CatUnknown represents an unknown category. This should not be used.
	CatUnknown Category = Category(0)
	// CatUser represents an error that is caused by bad input, either a bad value handed
	// to a constructor or malformed wire data.
	CatUser Category = Category(1)
	// CatInternal represents an internal error.
	CatInternal Category = Category(2)
)

// Type represents the type of the error.
type Type uint16

func (t Type) Type() string {
	return t.String()
}

func (t Type) String() string {
	switch t {
	case TypeBug:
		return "Bug"
	case TypeParameter:
		return "Parameter"
	case TypeWire:
		return "Wire"
	case TypeSchema:
		return "Schema"
	}
	return "Unknown"
}

const (
	// TypeUnknown represents an unknown type.
	TypeUnknown Type = Type(0)
	// TypeBug represents a bug in the calling code, such as a switch statement that
	// doesn't cover a field type.
	TypeBug Type = Type(1)
	// TypeParameter represents a parameter that didn't pass validation. Missing required
	// fields at construction time are reported with this type.
	TypeParameter Type = Type(2)
	// TypeWire represents wire data that could not be decoded.
	TypeWire Type = Type(3)
	// TypeSchema represents a schema AST that the compiler could not use.
	TypeSchema Type = Type(4)
)

// Error is the error type for this module. Error implements github.com/gostdlib/base/errors.E .
type Error = errors.Error

// EOption is an optional argument for E().
type EOption = errors.EOption

// WithCallNum is used if you need to set the runtime.CallNum() in order to get the correct filename and line.
// This defaults to 1 which sets to the frame of the caller of E().
func WithCallNum(i int) EOption {
	return errors.WithCallNum(i)
}

// WithSuppressTraceErr will prevent the trace as being recorded with an error status.
func WithSuppressTraceErr() EOption {
	return errors.WithSuppressTraceErr()
}

// E creates a new Error with the given parameters.
func E(ctx context.Context, c errors.Category, t errors.Type, msg error, options ...errors.EOption) Error {
	// We are a wrapper, so we move the call number up one frame unless the caller set it.
	opts := make([]errors.EOption, 0, len(options)+1)
	opts = append(opts, WithCallNum(2))
	opts = append(opts, options...)

	return errors.E(ctx, c, t, msg, opts...)
}

// ErrMissingField is wrapped by the error a validating constructor returns when a field
// that can't be absent is absent.
var ErrMissingField = errors.New("missing field")

// MissingField returns the invalid argument error for a field named name that was not
// supplied. Generated constructors and the dynamic runtime both use it so the error is
// identical either way.
func MissingField(ctx context.Context, name string) Error {
	return errors.E(
		ctx,
		CatUser,
		TypeParameter,
		fmt.Errorf("parameter %q must be supplied and can not be absent: %w", name, ErrMissingField),
		WithCallNum(2),
	)
}

// New returns an error with the text msg. Sentinel errors in pbj are made with it.
func New(msg string) error {
	return errors.New(msg)
}

// Is reports if any error in the chain of err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
