package fiber

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Runtime is a reference many-to-one scheduler: fibers are goroutines, each
// gated by the worker it is assigned to, such that at most one fiber per
// worker is executing at any instant.
//
// Scheduling is deliberately simple: each worker runs its ready queue in
// FIFO order, and there is no work stealing. Fibers only change worker via
// [Fiber.Migrate].
//
// Instances must be initialized using the New factory.
type Runtime struct {
	// Prevent copying
	_ [0]func()

	logger  *logiface.Logger[logiface.Event]
	limiter *catrate.Limiter

	workers []*worker

	// fibers maps goroutine ID to *Fiber, for Active
	fibers sync.Map

	// live tracks fibers that have not yet finished
	live sync.WaitGroup

	stopped     chan struct{}
	workersDone sync.WaitGroup
	stopOnce    sync.Once

	nextID     atomic.Uint64
	nextWorker atomic.Uint64

	backlogDepth int

	// guards closed, and live.Add
	mu     sync.Mutex
	closed bool
}

var _ Scheduler = (*Runtime)(nil)

// New creates and starts a new Runtime.
//
// The Runtime.Shutdown method and/or Runtime.Close method should be called
// when the Runtime is no longer needed.
func New(opts ...Option) (*Runtime, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		logger:       cfg.logger,
		limiter:      cfg.limiter,
		backlogDepth: cfg.backlogDepth,
		stopped:      make(chan struct{}),
		workers:      make([]*worker, cfg.workers),
	}

	for i := range r.workers {
		r.workers[i] = newWorker(r, i)
	}

	r.workersDone.Add(len(r.workers))
	for _, w := range r.workers {
		go w.run()
	}

	r.logger.Debug().
		Int(`workers`, len(r.workers)).
		Log(`fiber runtime started`)

	return r, nil
}

// Workers returns the number of workers.
func (r *Runtime) Workers() int {
	return len(r.workers)
}

// Go launches fn as a new fiber. The fiber is queued on a worker, and will
// start when that worker is available.
//
// Unrecovered panics within fn are recovered, logged, and reported via
// [Fiber.Err]. A panic will occur if fn is nil.
func (r *Runtime) Go(fn func(f *Fiber), opts ...SpawnOption) (*Fiber, error) {
	if fn == nil {
		panic(`fiber: nil function`)
	}

	cfg, err := resolveSpawnOptions(opts, len(r.workers))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.live.Add(1)
	r.mu.Unlock()

	var w *worker
	if cfg.worker >= 0 {
		w = r.workers[cfg.worker]
	} else {
		w = r.workers[(r.nextWorker.Add(1)-1)%uint64(len(r.workers))]
	}

	f := &Fiber{
		id:     r.nextID.Add(1),
		rt:     r,
		pinned: cfg.pinned,
		resume: make(chan *worker),
		done:   make(chan struct{}),
	}
	f.home.Store(w)
	f.state.Store(uint32(StateReady))

	go f.main(fn)

	w.push(f)

	return f, nil
}

// Active returns the fiber running on the calling goroutine, or nil.
func (r *Runtime) Active() Context {
	if v, ok := r.fibers.Load(getGoroutineID()); ok {
		return v.(*Fiber)
	}
	return nil
}

// Shutdown prevents further fibers being launched, waits for all fibers to
// finish, then stops the workers. If ctx is canceled first, the workers are
// stopped regardless, and ctx.Err() is returned. Fibers that are suspended
// at that point are abandoned.
//
// ErrClosed is returned if the runtime was already shut down or closed.
// This method must not be called from a fiber.
func (r *Runtime) Shutdown(ctx context.Context) (err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.live.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.stop()

	return err
}

// Close stops the workers without waiting for fibers to finish. It blocks
// only until fibers that are currently executing reach their next suspend
// or yield point (or exit). All other unfinished fibers are abandoned.
//
// ErrClosed is returned if the runtime was already shut down or closed.
// This method must not be called from a fiber.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.closed = true
	r.mu.Unlock()

	r.stop()

	return nil
}

func (r *Runtime) stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
	})
	r.workersDone.Wait()
	r.logger.Debug().Log(`fiber runtime stopped`)
}

func (r *Runtime) warnBacklog(w *worker, depth int) {
	if _, ok := r.limiter.Allow(w.id); !ok {
		return
	}
	r.logger.Warning().
		Int(`worker`, w.id).
		Int(`depth`, depth).
		Log(`fiber ready queue backlog`)
}
