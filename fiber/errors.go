package fiber

import (
	"errors"
	"fmt"
)

var (
	// ErrInterrupted is returned at interruption points, if cancellation of
	// the calling fiber was requested, see [Fiber.Interrupt].
	ErrInterrupted = errors.New("fiber: interrupted")

	// ErrClosed is returned when operations are attempted on a runtime that
	// has been shut down or closed.
	ErrClosed = errors.New("fiber: runtime closed")
)

// PanicError wraps a value recovered from a panicking fiber.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("fiber: panicked: %v", e.Value)
}

// Unwrap returns the panic value, if it is an error, for use with
// [errors.Is] and [errors.As].
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
