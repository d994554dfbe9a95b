// Package fiber defines the contract between blocking-style synchronization
// primitives and a cooperative, many-to-one scheduler, and provides
// [Runtime], a reference implementation of such a scheduler.
//
// # Model
//
// Fibers are multiplexed onto a small, fixed set of workers. At most one
// fiber executes per worker at any instant, and there is no preemption: a
// fiber gives up its worker only at an explicit suspend or yield point.
// "Blocking" therefore never stops a worker, it deschedules the fiber, and
// hands the worker to the next ready fiber.
//
// The event that wakes a fiber may originate on a different worker (or from
// a goroutine that is not a fiber at all). Unless a fiber is pinned, it may
// be migrated to the waker's worker, before being made ready.
//
// # Releasing suspend
//
// [Context.Suspend] accepts a held lock, and releases it only after the
// calling fiber has been fully descheduled. A fiber publishes itself into
// some lock-protected state (e.g. a wait queue), then suspends, passing the
// lock. Any waker must acquire the same lock before it can observe the
// published state, by which time the fiber is guaranteed to be resumable.
// Releasing the lock and then suspending, as two separate steps, loses
// wake-ups.
package fiber

import (
	"sync"
)

type (
	// Context is a non-owning handle to a schedulable fiber.
	//
	// Methods other than ID and Pinned must be called on the context of the
	// calling fiber, i.e. the receiver is the active context. The argument
	// (if any) is the context being operated on.
	Context interface {
		// ID returns a non-zero identifier, unique within the scheduler.
		ID() uint64

		// Pinned indicates that the context may only ever resume on the
		// worker it is currently assigned to.
		Pinned() bool

		// Suspend deschedules the calling fiber, releasing lk as the last
		// step of descheduling. It returns once the fiber has been made
		// ready (see SetReady) and resumed. The lock is NOT re-acquired.
		// Implementations that panic must do so before releasing lk.
		Suspend(lk sync.Locker)

		// SetReady schedules ctx, which must be suspended, for resumption.
		// As the only exception to the active context rule, a goroutine
		// that is not a fiber may call ctx.SetReady(ctx), to wake ctx on
		// its current worker.
		SetReady(ctx Context)

		// Migrate reassigns ctx, which must be suspended and not pinned, to
		// the worker of the receiver.
		Migrate(ctx Context)

		// InterruptionPoint returns ErrInterrupted if cancellation of the
		// calling fiber has been requested, clearing the request.
		InterruptionPoint() error
	}

	// Scheduler resolves the context executing on the calling goroutine.
	Scheduler interface {
		// Active returns the context of the calling fiber, or nil if the
		// caller is not running as a fiber of this scheduler.
		Active() Context
	}
)
