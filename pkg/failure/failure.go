// Package failure attributes pipeline errors to the step that produced them.
package failure

import "errors"

type Kind int

const (
	Validation Kind = iota
	Authentication
	Lookup
	List
	Upload
	Configuration
	Filesystem
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Authentication:
		return "authentication"
	case Lookup:
		return "lookup"
	case List:
		return "list"
	case Upload:
		return "upload"
	case Configuration:
		return "configuration"
	case Filesystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// Error is a terminal step failure. Reason is the human readable step
// message shown to the caller; Err keeps the underlying cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func New(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Reason returns the step reason carried by err, or err's message when it
// did not come from a pipeline step.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return err.Error()
}

// Is reports whether err is a step failure of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
