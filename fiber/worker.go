package fiber

import (
	"sync"

	"github.com/joeycumines/go-fibersync/internal/ring"
)

type deschedKind int

const (
	_ deschedKind = iota
	deschedSuspend
	deschedYield
	deschedExit
)

// deschedule is sent by a fiber to the worker running it, as the last thing
// the fiber does before giving up the worker.
type deschedule struct {
	unlock sync.Locker
	kind   deschedKind
}

// worker runs at most one fiber at a time, from its FIFO ready queue.
type worker struct {
	rt *Runtime

	// signals that the ready queue may be non-empty (buffered, size 1)
	wake chan struct{}

	// receives from the running fiber, when it deschedules
	yield chan deschedule

	ready ring.Ring[*Fiber]
	mu    sync.Mutex

	id int
}

func newWorker(rt *Runtime, id int) *worker {
	return &worker{
		rt:    rt,
		id:    id,
		wake:  make(chan struct{}, 1),
		yield: make(chan deschedule),
	}
}

func (w *worker) run() {
	defer w.rt.workersDone.Done()
	for {
		select {
		case <-w.rt.stopped:
			return
		default:
		}
		f := w.pop()
		if f == nil {
			return
		}
		w.dispatch(f)
	}
}

// pop blocks until a fiber is ready, returning nil if the runtime stopped.
func (w *worker) pop() *Fiber {
	for {
		w.mu.Lock()
		f, ok := w.ready.PopFront()
		w.mu.Unlock()
		if ok {
			return f
		}
		select {
		case <-w.wake:
		case <-w.rt.stopped:
			return nil
		}
	}
}

func (w *worker) push(f *Fiber) {
	w.mu.Lock()
	w.ready.PushBack(f)
	depth := w.ready.Len()
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}

	if w.rt.backlogDepth > 0 && depth >= w.rt.backlogDepth {
		w.rt.warnBacklog(w, depth)
	}
}

// dispatch hands the worker to f, and blocks until f deschedules.
func (w *worker) dispatch(f *Fiber) {
	f.state.Store(uint32(StateRunning))
	f.resume <- w

	d := <-w.yield

	switch d.kind {
	case deschedSuspend:
		// must be visible to any waker, before it can acquire the lock
		f.state.Store(uint32(StateSuspended))
		d.unlock.Unlock()

	case deschedYield:
		f.state.Store(uint32(StateReady))
		f.home.Load().push(f)

	case deschedExit:
		f.state.Store(uint32(StateDone))

	default:
		panic(`fiber: invalid deschedule`)
	}
}
