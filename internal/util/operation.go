package util

import (
	"fmt"
)

// PanicError is produced when user-supplied code (a Rower) panics during an operation
type PanicError struct {
	Op      string      // the operation which panicked, e.g. Visit
	Value   interface{} // the recovered panic value
	Context string      // a description of the data being processed
	Trace   string
}

// NewPanicError wraps a recovered panic value. It must be called from the deferred
// function which recovered, so that the trace includes the panicking frames.
func NewPanicError(op string, value interface{}, context string) *PanicError {
	return &PanicError{Op: op, Value: value, Context: context, Trace: GetTrace()}
}

// Error returns a textual representation of this PanicError
func (e *PanicError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("%s Panic: %v\nRow: %s\n%s", e.Op, e.Value, e.Context, e.Trace)
	}
	return fmt.Sprintf("%s Panic: %v\n%s", e.Op, e.Value, e.Trace)
}

// Unwrap returns the panic value, if it was an error
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// SafeOperation runs op, converting a panic into a PanicError
func SafeOperation(opName string, op func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(opName, r, "")
		}
	}()
	return op()
}
