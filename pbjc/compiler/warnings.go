package compiler

import "fmt"

// WarnCode identifies the kind of a Warning.
type WarnCode uint16

const (
	// WarnMapField is a map field. Map fields are not supported and are left out of the
	// message.
	WarnMapField WarnCode = 1
	// WarnUnknownElement is a message element the compiler doesn't understand.
	WarnUnknownElement WarnCode = 2
	// WarnUnknownOption is an option the compiler doesn't act on.
	WarnUnknownOption WarnCode = 3
	// WarnBadDefault is a [default = ...] option that couldn't be used.
	WarnBadDefault WarnCode = 4
)

func (c WarnCode) String() string {
	return fmt.Sprintf("W%03d", uint16(c))
}

// Warning is a schema construct the compiler skipped or ignored. Warnings never stop a
// compile.
type Warning struct {
	Code WarnCode
	// Scope is the full name of the message or enum the construct was found in. It is
	// empty at file scope.
	Scope string
	// Element is the kind or name of the construct.
	Element string
	// Text describes the problem.
	Text string
}

func (w *Warning) String() string {
	if w.Scope == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Text)
	}
	return fmt.Sprintf("%s: %s: %s", w.Code, w.Scope, w.Text)
}
