package typesys

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrPanic is matched by every PanicError.
	ErrPanic = errors.New("candidate panicked")
	// ErrArity is returned when an invoker receives the wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
	// ErrNilReceiver is returned when an instance member is invoked without a receiver.
	ErrNilReceiver = errors.New("nil receiver")
)

// PanicError carries a value recovered from candidate code.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("candidate panicked: %v", e.Value)
}

// Is matches ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Recovered wraps the result of recover() into a PanicError.
func Recovered(value any) error {
	return &PanicError{Value: value, Stack: string(debug.Stack())}
}
