// Package failure tags errors with the stage of the pipeline that produced
// them so callers can decide how far a failure propagates.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindFatalSpecification aborts the adaptation of one CUT.
	KindFatalSpecification Kind = "fatal_specification"
	// KindInstantiation marks a sequence that could not be bound to an adapter.
	KindInstantiation Kind = "instantiation"
	// KindExecution marks a failed, panicking or timed out call.
	KindExecution Kind = "execution"
	// KindResource marks container and project setup failures.
	KindResource Kind = "resource"
	// KindUsage marks invalid user input.
	KindUsage Kind = "usage"
)

// Error is a kind-tagged error.
type Error struct {
	Kind    Kind
	Subject string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := string(e.Kind) + ": "
	if e.Subject != "" {
		msg += e.Subject + ": "
	}

	msg += e.Message

	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}

// New creates a kind-tagged error.
func New(kind Kind, subject, message string, cause error) error {
	return &Error{
		Kind:    kind,
		Subject: subject,
		Message: message,
		Cause:   cause,
	}
}

// Newf creates a kind-tagged error without a cause.
func Newf(kind Kind, subject, format string, args ...any) error {
	return New(kind, subject, fmt.Sprintf(format, args...), nil)
}

// KindOf returns the kind of the outermost tagged error, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}

	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
