package fibersync

import (
	"errors"
)

// ErrOperation matches any [OperationError], using [errors.Is].
var ErrOperation = errors.New("fibersync: operation failed")

// OperationError wraps an error reported by an asynchronous engine, via a
// completion handler, that was not directed to an external error slot
// (see [WithErrorOut]).
type OperationError struct {
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Err == nil {
		return ErrOperation.Error()
	}
	return ErrOperation.Error() + ": " + e.Err.Error()
}

// Unwrap returns the engine's error, for use with [errors.Is] and
// [errors.As].
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrOperation.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperation
}
