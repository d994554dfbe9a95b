// Package spinlock implements a small, non-reentrant busy-wait lock, for
// critical sections measured in microseconds.
package spinlock

import (
	"runtime"
	"sync"
	"sync/atomic"
)

const maxBackoff = 16

// Spinlock is a busy-wait mutual exclusion lock. The zero value is unlocked.
//
// Unlike sync.Mutex, it is explicitly permitted (and expected) for a
// Spinlock to be unlocked by a goroutine other than the one that locked it,
// which is what allows a fiber to hand a held lock to its scheduler as part
// of suspending.
//
// A Spinlock must not be copied after first use.
type Spinlock struct {
	_ noCopy
	v atomic.Uint32
}

var _ sync.Locker = (*Spinlock)(nil)

// Lock acquires the lock, spinning until it is available. Between attempts
// the calling goroutine yields, backing off exponentially.
func (x *Spinlock) Lock() {
	backoff := 1
	for !x.v.CompareAndSwap(0, 1) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

// TryLock attempts to acquire the lock without spinning.
func (x *Spinlock) TryLock() bool {
	return x.v.CompareAndSwap(0, 1)
}

// Unlock releases the lock. It panics if the lock is not held.
func (x *Spinlock) Unlock() {
	if !x.v.CompareAndSwap(1, 0) {
		panic(`spinlock: unlock of unlocked spinlock`)
	}
}

// noCopy may be embedded into structs which must not be copied after the
// first use, see go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
