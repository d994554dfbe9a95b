package fibersync

import (
	"github.com/joeycumines/go-fibersync/fiber"
	"github.com/joeycumines/go-fibersync/internal/ring"
	"github.com/joeycumines/go-fibersync/spinlock"
)

// WaitQueue is a FIFO of suspended contexts, guarded by a spinlock. The zero
// value is an empty, unlocked queue.
//
// All methods other than Lock and Unlock require the lock to be held. Misuse
// panics release the lock before panicking.
//
// The protocol: lock, publish the calling context (Park), and let the
// scheduler release the lock once the context is fully descheduled. A waker
// locks, pops, unlocks, then sets the popped context ready. Since the waker
// cannot pop a context before its lock has been released, it can never
// observe a context that is not yet resumable.
type WaitQueue struct {
	splk spinlock.Spinlock
	q    ring.Ring[fiber.Context]
}

// Lock acquires the queue's spinlock.
func (x *WaitQueue) Lock() { x.splk.Lock() }

// Unlock releases the queue's spinlock.
func (x *WaitQueue) Unlock() { x.splk.Unlock() }

// Len returns the number of queued contexts.
func (x *WaitQueue) Len() int { return x.q.Len() }

// Empty returns true if no contexts are queued.
func (x *WaitQueue) Empty() bool { return x.q.Len() == 0 }

// Push appends ctx to the back of the queue. It panics if ctx is nil or
// already queued, releasing the lock first.
func (x *WaitQueue) Push(ctx fiber.Context) {
	if ctx == nil {
		x.Unlock()
		panic(`fibersync: push of nil context`)
	}
	if x.Queued(ctx) {
		x.Unlock()
		panic(`fibersync: context already queued`)
	}
	x.q.PushBack(ctx)
}

// Queued returns true if ctx is in the queue.
func (x *WaitQueue) Queued(ctx fiber.Context) bool {
	id := ctx.ID()
	for i := 0; i < x.q.Len(); i++ {
		if x.q.Get(i).ID() == id {
			return true
		}
	}
	return false
}

// Pop removes and returns the context at the front of the queue, or nil if
// the queue is empty.
func (x *WaitQueue) Pop() fiber.Context {
	ctx, _ := x.q.PopFront()
	return ctx
}

// Park appends ctx, which must be the calling context, then suspends it,
// releasing the lock once it has been descheduled. It returns when ctx is
// resumed, without the lock held.
//
// A context that is still queued, i.e. was resumed without being popped,
// keeps its position. If Suspend panics, ctx is removed from the queue, and
// the lock is released.
func (x *WaitQueue) Park(ctx fiber.Context) {
	if ctx == nil {
		x.Unlock()
		panic(`fibersync: park of nil context`)
	}
	if !x.Queued(ctx) {
		x.q.PushBack(ctx)
	}
	var ok bool
	defer func() {
		if !ok {
			x.remove(ctx.ID())
			x.Unlock()
		}
	}()
	ctx.Suspend(&x.splk)
	ok = true
}

// remove deletes the context with the given ID, preserving order.
func (x *WaitQueue) remove(id uint64) {
	for n := x.q.Len(); n > 0; n-- {
		ctx, _ := x.q.PopFront()
		if ctx.ID() != id {
			x.q.PushBack(ctx)
		}
	}
}
