package fibersync

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-fibersync/fiber"
	"github.com/joeycumines/logiface"
)

// Mutex provides mutual exclusion between fibers. Contended lockers suspend
// (rather than spin or block their worker), and are granted ownership in
// FIFO order: Unlock hands ownership directly to the longest waiting fiber,
// which cannot be overtaken by a concurrent TryLock.
//
// The zero value is an unlocked mutex, without logging. A Mutex must not be
// copied after first use.
type Mutex struct {
	logger *logiface.Logger[logiface.Event]

	wq WaitQueue

	// ID of the owning context, 0 if unlocked
	owner atomic.Uint64
}

// MutexOption configures a Mutex created by NewMutex.
type MutexOption func(m *Mutex)

// WithMutexLogger enables debug logging of contention.
func WithMutexLogger(logger *logiface.Logger[logiface.Event]) MutexOption {
	return func(m *Mutex) {
		m.logger = logger
	}
}

// NewMutex initializes a new, unlocked Mutex. Using the zero value directly
// is equivalent to NewMutex without options.
func NewMutex(opts ...MutexOption) *Mutex {
	var m Mutex
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return &m
}

// TryLock attempts to acquire the mutex for ctx, without suspending.
func (m *Mutex) TryLock(ctx fiber.Context) bool {
	return m.owner.CompareAndSwap(0, ctx.ID())
}

// Lock acquires the mutex for ctx, which must be the calling context,
// suspending it until ownership is handed to it, if necessary. Locking a
// mutex already owned by ctx panics.
func (m *Mutex) Lock(ctx fiber.Context) {
	id := ctx.ID()
	if m.owner.CompareAndSwap(0, id) {
		return
	}

	m.wq.Lock()
	owner := m.owner.Load()
	if owner == id {
		m.wq.Unlock()
		panic(`fibersync: lock of mutex already owned by the caller`)
	}

	var (
		b     *logiface.Builder[logiface.Event]
		start time.Time
	)
	for {
		if owner == id {
			// handed off by Unlock
			m.wq.Unlock()
			break
		}
		// Unlock never clears the owner while there are waiters, so this
		// context is not queued
		if owner == 0 && m.owner.CompareAndSwap(0, id) {
			m.wq.Unlock()
			if b != nil {
				b.Release()
			}
			return
		}
		if owner != 0 {
			if b == nil {
				if b = m.logger.Debug(); b != nil {
					start = time.Now()
				}
			}
			// a spurious resume leaves ctx queued, in place
			m.wq.Park(ctx)
			m.wq.Lock()
		}
		owner = m.owner.Load()
	}

	if b != nil {
		b.Uint64(`fiber`, id).
			Dur(`waited`, time.Since(start)).
			Log(`mutex handed off`)
	}
}

// Unlock releases the mutex, which must be owned by ctx. If there are
// waiters, ownership passes to the first, which is made ready.
func (m *Mutex) Unlock(ctx fiber.Context) {
	if m.owner.Load() != ctx.ID() {
		panic(`fibersync: unlock of mutex not owned by the caller`)
	}

	m.wq.Lock()
	next := m.wq.Pop()
	if next == nil {
		m.owner.Store(0)
		m.wq.Unlock()
		return
	}
	// assigned under the spinlock, so TryLock cannot race the hand-off
	m.owner.Store(next.ID())
	m.wq.Unlock()

	ctx.SetReady(next)
}

// Owner returns the ID of the owning context, or 0 if the mutex is unlocked.
func (m *Mutex) Owner() uint64 {
	return m.owner.Load()
}

// Waiters returns the number of suspended lockers.
func (m *Mutex) Waiters() int {
	m.wq.Lock()
	defer m.wq.Unlock()
	return m.wq.Len()
}

// Destroy asserts that the mutex is idle, i.e. unlocked, without waiters.
func (m *Mutex) Destroy() {
	m.wq.Lock()
	owner, waiters := m.owner.Load(), m.wq.Len()
	m.wq.Unlock()
	if owner != 0 {
		panic(`fibersync: destroy of locked mutex`)
	}
	if waiters != 0 {
		panic(`fibersync: destroy of mutex with waiters`)
	}
}

// Locker binds the mutex to ctx, as a [sync.Locker].
func (m *Mutex) Locker(ctx fiber.Context) sync.Locker {
	return &mutexLocker{m: m, ctx: ctx}
}

type mutexLocker struct {
	m   *Mutex
	ctx fiber.Context
}

func (x *mutexLocker) Lock() { x.m.Lock(x.ctx) }

func (x *mutexLocker) Unlock() { x.m.Unlock(x.ctx) }
