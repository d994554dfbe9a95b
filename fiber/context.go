package fiber

import (
	"sync"
	"sync/atomic"
)

// Fiber is the [Context] implementation of [Runtime]. Instances are created
// by [Runtime.Go], and passed to the fiber function.
//
// Methods documented as being for the calling fiber must only be called from
// within that fiber's function (i.e. on its own goroutine).
type Fiber struct {
	// Prevent copying
	_ [0]func()

	rt *Runtime

	// the worker the fiber will be (or is) scheduled on
	home atomic.Pointer[worker]

	// the worker currently executing the fiber, only accessed by the fiber
	running *worker

	resume chan *worker
	done   chan struct{}

	// set prior to done being closed
	err error

	id          uint64
	state       atomic.Uint32
	interrupted atomic.Bool
	pinned      bool
}

var _ Context = (*Fiber)(nil)

// ID returns the fiber's identifier, unique within its runtime.
func (f *Fiber) ID() uint64 { return f.id }

// Pinned returns true if the fiber was launched with the [Pinned] option.
func (f *Fiber) Pinned() bool { return f.pinned }

// State returns the current scheduling state of the fiber.
func (f *Fiber) State() State { return State(f.state.Load()) }

// Worker returns the index of the worker the fiber is currently assigned to.
func (f *Fiber) Worker() int { return f.home.Load().id }

// Done returns a channel that is closed when the fiber has finished.
func (f *Fiber) Done() <-chan struct{} { return f.done }

// Err returns the PanicError if the fiber panicked. It must only be called
// after Done is closed.
func (f *Fiber) Err() error { return f.err }

// Interrupt requests cancellation of the fiber. The request is observed at
// the fiber's next interruption point. It does not wake a suspended fiber.
func (f *Fiber) Interrupt() { f.interrupted.Store(true) }

// InterruptionPoint implements [Context.InterruptionPoint].
func (f *Fiber) InterruptionPoint() error {
	if f.interrupted.CompareAndSwap(true, false) {
		return ErrInterrupted
	}
	return nil
}

// Suspend implements [Context.Suspend], for the calling fiber. The lock lk
// must be held, and must tolerate being unlocked by another goroutine.
func (f *Fiber) Suspend(lk sync.Locker) {
	if lk == nil {
		panic(`fiber: suspend requires a lock`)
	}
	w := f.mustBeRunning()
	f.running = nil
	w.yield <- deschedule{kind: deschedSuspend, unlock: lk}
	f.running = <-f.resume
}

// Yield re-queues the calling fiber, behind any other ready fibers of its
// worker.
func (f *Fiber) Yield() {
	w := f.mustBeRunning()
	f.running = nil
	w.yield <- deschedule{kind: deschedYield}
	f.running = <-f.resume
}

// SetReady implements [Context.SetReady]. The receiver must be the calling
// fiber, or ctx itself. ctx must be a suspended fiber, of the same runtime.
func (f *Fiber) SetReady(ctx Context) {
	t := f.sameRuntime(ctx)
	if !t.state.CompareAndSwap(uint32(StateSuspended), uint32(StateReady)) {
		panic(`fiber: set ready of a fiber that is not suspended`)
	}
	t.home.Load().push(t)
}

// Migrate implements [Context.Migrate]. The receiver must be the calling
// fiber. ctx must be a suspended, non-pinned fiber, of the same runtime.
func (f *Fiber) Migrate(ctx Context) {
	t := f.sameRuntime(ctx)
	if t.pinned {
		panic(`fiber: migrate of a pinned fiber`)
	}
	if t.State() != StateSuspended {
		panic(`fiber: migrate of a fiber that is not suspended`)
	}
	w := f.running
	if w == nil {
		w = f.home.Load()
	}
	if prev := t.home.Swap(w); prev != w {
		f.rt.logger.Trace().
			Uint64(`fiber`, t.id).
			Int(`from`, prev.id).
			Int(`to`, w.id).
			Log(`fiber migrated`)
	}
}

func (f *Fiber) sameRuntime(ctx Context) *Fiber {
	t, ok := ctx.(*Fiber)
	if !ok || t == nil {
		panic(`fiber: context is not a fiber`)
	}
	if t.rt != f.rt {
		panic(`fiber: context belongs to a different runtime`)
	}
	return t
}

func (f *Fiber) mustBeRunning() *worker {
	if f.running == nil {
		panic(`fiber: not running`)
	}
	return f.running
}

func (f *Fiber) main(fn func(f *Fiber)) {
	gid := getGoroutineID()
	f.rt.fibers.Store(gid, f)

	f.running = <-f.resume

	defer func() {
		if r := recover(); r != nil {
			f.err = PanicError{Value: r}
			f.rt.logger.Err().
				Uint64(`fiber`, f.id).
				Err(f.err).
				Log(`fiber panicked`)
		}
		f.rt.fibers.Delete(gid)
		w := f.running
		f.running = nil
		close(f.done)
		f.rt.live.Done()
		w.yield <- deschedule{kind: deschedExit}
	}()

	fn(f)
}
