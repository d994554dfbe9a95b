package fibersync

import (
	"github.com/joeycumines/go-fibersync/fiber"
)

type (
	// Handler is the producer side of a one-shot bridge, between a
	// callback-based asynchronous engine and a fiber. The engine invokes it
	// exactly once (see Complete), from any goroutine, to deliver a value
	// and/or an error, waking the fiber blocked in the paired [Result.Get].
	//
	// Typical usage, from within a fiber:
	//
	//	h := fibersync.NewHandler[int](sched)
	//	r := fibersync.NewResult(h)
	//	engine.Start(h.Callback())
	//	v, err := r.Get()
	//
	// See also [Await].
	Handler[T any] struct {
		sched fiber.Scheduler
		state *completion[T]
	}

	// Result is the consumer side of a one-shot bridge. See [Handler].
	Result[T any] struct {
		state *completion[T]
	}

	// HandlerOption configures a Handler created by NewHandler.
	HandlerOption func(c *handlerConfig)

	handlerConfig struct {
		waiter fiber.Context
		out    *error
	}

	// completion is shared by a Handler and its Result.
	// The wait queue holds at most one context, the parked waiter.
	completion[T any] struct {
		sched  fiber.Scheduler
		waiter fiber.Context
		err    error
		out    *error
		value  T
		wq     WaitQueue

		completed bool
		consumed  bool
		bound     bool
	}
)

// WithWaiter sets the context that will call Result.Get, instead of
// resolving the active context of the scheduler.
func WithWaiter(ctx fiber.Context) HandlerOption {
	return func(c *handlerConfig) {
		c.waiter = ctx
	}
}

// WithErrorOut directs the error reported by the engine to *err, instead of
// being returned (as an [OperationError]) by Result.Get. It is written
// before the waiter is woken. A nil err panics.
func WithErrorOut(err *error) HandlerOption {
	if err == nil {
		panic(`fibersync: nil error out`)
	}
	return func(c *handlerConfig) {
		c.out = err
	}
}

// NewHandler initializes a Handler, capturing the waiter: the active context
// of s, unless provided via WithWaiter. It panics if there is no waiter.
//
// The scheduler is also used, on completion, to resolve the waking context,
// and may be nil only if WithWaiter is used.
func NewHandler[T any](s fiber.Scheduler, opts ...HandlerOption) *Handler[T] {
	var c handlerConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.waiter == nil && s != nil {
		c.waiter = s.Active()
	}
	if c.waiter == nil {
		panic(`fibersync: handler has no waiter`)
	}
	return &Handler[T]{
		sched: s,
		state: &completion[T]{
			sched:  s,
			waiter: c.waiter,
			out:    c.out,
		},
	}
}

// NewResult binds a Result to h. Each Handler may be bound only once.
func NewResult[T any](h *Handler[T]) *Result[T] {
	s := h.state
	s.wq.Lock()
	bound := s.bound
	s.bound = true
	s.wq.Unlock()
	if bound {
		panic(`fibersync: handler already bound to a result`)
	}
	return &Result[T]{state: s}
}

// Resolve completes the operation successfully, with value v.
func (h *Handler[T]) Resolve(v T) {
	h.Complete(nil, v)
}

// Complete delivers the outcome of the operation, waking the waiter if it
// has already suspended. If the waiter is not pinned, and the caller is a
// fiber of a different worker, the waiter migrates to the caller's worker.
//
// It must be called at most once, and panics otherwise.
func (h *Handler[T]) Complete(err error, v T) {
	h.state.complete(h.sched, err, v)
}

// Callback returns Complete, in the argument order conventional for Go
// callbacks.
func (h *Handler[T]) Callback() func(v T, err error) {
	return func(v T, err error) {
		h.Complete(err, v)
	}
}

// Get suspends the calling fiber, which must be the handler's waiter, until
// the operation completes. It returns, in order of precedence: an
// [OperationError] (unless WithErrorOut was used), [fiber.ErrInterrupted]
// (or any other error from the waiter's interruption point), or the value.
//
// It must be called at most once, and panics otherwise. If the handler was
// created with a scheduler, calls from any context other than the waiter
// also panic.
func (r *Result[T]) Get() (T, error) {
	s := r.state

	if s.sched != nil {
		if ctx := s.sched.Active(); ctx == nil || ctx.ID() != s.waiter.ID() {
			panic(`fibersync: result consumed by a context other than the waiter`)
		}
	}

	s.wq.Lock()
	if s.consumed {
		s.wq.Unlock()
		panic(`fibersync: result already consumed`)
	}
	s.consumed = true
	for !s.completed {
		// a spurious resume leaves the waiter queued, in place
		s.wq.Park(s.waiter)
		s.wq.Lock()
	}
	err, value := s.err, s.value
	var zero T
	s.value = zero
	s.wq.Unlock()

	if err != nil {
		return zero, &OperationError{Err: err}
	}
	if err := s.waiter.InterruptionPoint(); err != nil {
		return zero, err
	}
	return value, nil
}

func (s *completion[T]) complete(sched fiber.Scheduler, err error, v T) {
	s.wq.Lock()
	defer s.wq.Unlock()

	if s.completed {
		panic(`fibersync: completion handler invoked more than once`)
	}

	s.value = v
	if s.out != nil {
		*s.out = err
	} else {
		s.err = err
	}
	s.completed = true

	if w := s.wq.Pop(); w != nil {
		wake(sched, w)
	}
}

// wake readies w, which must be suspended, migrating it to the worker of the
// active context, if permitted. A caller that is not a fiber of sched
// readies w on its current worker.
func wake(sched fiber.Scheduler, w fiber.Context) {
	var waker fiber.Context
	if sched != nil {
		waker = sched.Active()
	}
	if waker == nil {
		waker = w
	}
	if !w.Pinned() && waker.ID() != w.ID() {
		waker.Migrate(w)
	}
	waker.SetReady(w)
}
