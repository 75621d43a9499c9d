// Panic recovery for search workers. A panicking fit inside the parallel
// hyperparameter search must become a recorded result, not a crashed run.

package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError is an error created from a recovered panic. It keeps the
// original panic value and the stack trace captured at recovery time.
type PanicError struct {
	PanicValue interface{}
	StackTrace string
	Operation  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String includes the captured stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nstack:\n%s", e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a PanicError for the given operation and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned through err. Use with
// defer on the error return of the enclosing function:
//
//	func (w *worker) run() (err error) {
//	    defer errors.Recover(&err, "worker.run")
//	    ...
//	}
//
// If the function already set an error before panicking, the panic is
// attached to it as additional context.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		panicErr := NewPanicError(operation, r)
		if err == nil {
			return
		}
		if *err != nil {
			*err = Wrapf(*err, "additionally panicked: %v", panicErr)
			return
		}
		*err = WithStack(panicErr)
	}
}
