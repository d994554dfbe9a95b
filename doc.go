// Package fibersync implements blocking-style synchronization primitives for
// fibers: cooperatively scheduled execution units, multiplexed many-to-one
// onto a small pool of workers (see package [fiber]).
//
// Blocking a fiber never blocks its worker. The fiber is descheduled, and
// the worker is handed to another fiber. The event that eventually wakes
// the fiber may originate on a different worker, or from a goroutine that
// is not a fiber at all.
//
// # Primitives
//
//   - [WaitQueue]: a FIFO of suspended contexts, plus the spinlock that
//     guards it, implementing the releasing-suspend protocol that all other
//     primitives are built from.
//   - [Mutex]: exclusive ownership, with FIFO hand-off of ownership to
//     queued waiters.
//   - [Handler] and [Result] (and the [VoidHandler] / [VoidResult]
//     variants): a one-shot bridge, adapting a callback-based asynchronous
//     API, such that a fiber may issue a call, then suspend until the
//     callback fires.
//
// # Errors
//
// Conditions a caller is expected to handle are returned as errors:
// [OperationError], wrapping an error reported by an asynchronous engine,
// and [fiber.ErrInterrupted], returned from the interruption point in
// [Result.Get]. Misuse (e.g. unlocking a mutex that the caller does not
// own, or invoking a completion handler twice) indicates a bug, and panics.
package fibersync
