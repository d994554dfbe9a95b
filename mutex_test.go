package fibersync

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/joeycumines/go-fibersync/fiber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutex_zeroValue(t *testing.T) {
	var m Mutex
	a, b := &testContext{id: 1}, &testContext{id: 2}

	require.Zero(t, m.Owner())
	require.True(t, m.TryLock(a))
	require.Equal(t, uint64(1), m.Owner())
	require.False(t, m.TryLock(a))
	require.False(t, m.TryLock(b))

	m.Unlock(a)
	require.Zero(t, m.Owner())
	require.True(t, m.TryLock(b))
	m.Unlock(b)

	// uncontended Lock never suspends
	m.Lock(a)
	require.Equal(t, uint64(1), m.Owner())
	m.Unlock(a)

	m.Destroy()
}

func TestMutex_Unlock_notOwner(t *testing.T) {
	var m Mutex
	a, b := &testContext{id: 1}, &testContext{id: 2}

	require.PanicsWithValue(t, `fibersync: unlock of mutex not owned by the caller`, func() { m.Unlock(a) })

	require.True(t, m.TryLock(a))
	require.PanicsWithValue(t, `fibersync: unlock of mutex not owned by the caller`, func() { m.Unlock(b) })
	require.Equal(t, uint64(1), m.Owner())
}

func TestMutex_Lock_alreadyOwned(t *testing.T) {
	var m Mutex
	a := &testContext{id: 1}
	require.True(t, m.TryLock(a))
	require.PanicsWithValue(t, `fibersync: lock of mutex already owned by the caller`, func() { m.Lock(a) })
	// the spinlock was released
	require.Zero(t, m.Waiters())
}

func TestMutex_Destroy(t *testing.T) {
	var m Mutex
	m.Destroy()

	a := &testContext{id: 1}
	require.True(t, m.TryLock(a))
	require.PanicsWithValue(t, `fibersync: destroy of locked mutex`, m.Destroy)

	m.wq.Lock()
	m.wq.Push(&testContext{id: 2})
	m.wq.Unlock()
	m.owner.Store(0)
	require.PanicsWithValue(t, `fibersync: destroy of mutex with waiters`, m.Destroy)
}

func TestMutex_handOff(t *testing.T) {
	rt := newTestRuntime(t, fiber.WithWorkers(2))

	var (
		m      Mutex
		idA    atomic.Uint64
		idB    atomic.Uint64
		handed atomic.Bool
	)

	a := spawn(t, rt, func(f *fiber.Fiber) {
		m.Lock(f)
		idA.Store(f.ID())
		yieldUntil(f, func() bool { return m.Waiters() == 1 })
		m.Unlock(f)
		// ownership went straight to B, so A cannot take it back
		assert.Equal(t, idB.Load(), m.Owner())
		assert.False(t, m.TryLock(f))
		handed.Store(true)
	}, fiber.OnWorker(0))

	b := spawn(t, rt, func(f *fiber.Fiber) {
		idB.Store(f.ID())
		yieldUntil(f, func() bool { return idA.Load() != 0 })
		m.Lock(f)
		assert.Equal(t, f.ID(), m.Owner())
		yieldUntil(f, handed.Load)
		m.Unlock(f)
	}, fiber.OnWorker(1))

	waitDone(t, a, b)
	require.True(t, handed.Load())
	require.Zero(t, m.Owner())
	m.Destroy()
}

func TestMutex_fifo(t *testing.T) {
	var logs syncBuffer
	rt := newTestRuntime(t, fiber.WithWorkers(1))
	m := NewMutex(WithMutexLogger(newTestLogger(&logs)))

	var order []string

	f1 := spawn(t, rt, func(f *fiber.Fiber) {
		m.Lock(f)
		order = append(order, `F1`)
		yieldUntil(f, func() bool { return m.Waiters() == 2 })
		m.Unlock(f)
		assert.NotZero(t, m.Owner())
		assert.NotEqual(t, f.ID(), m.Owner())
		assert.False(t, m.TryLock(f))
	})
	f2 := spawn(t, rt, func(f *fiber.Fiber) {
		m.Lock(f)
		order = append(order, `F2`)
		m.Unlock(f)
	})
	f3 := spawn(t, rt, func(f *fiber.Fiber) {
		m.Lock(f)
		order = append(order, `F3`)
		m.Unlock(f)
	})

	waitDone(t, f1, f2, f3)
	require.Equal(t, []string{`F1`, `F2`, `F3`}, order)
	m.Destroy()
	require.Equal(t, 2, strings.Count(logs.String(), `mutex handed off`))
}

func TestMutex_Lock_resumedBeforeHandOff(t *testing.T) {
	var logs syncBuffer
	rt := newTestRuntime(t, fiber.WithWorkers(1))
	m := NewMutex(WithMutexLogger(newTestLogger(&logs)))

	var waiter atomic.Pointer[fiber.Fiber]

	holder := spawn(t, rt, func(f *fiber.Fiber) {
		m.Lock(f)
		yieldUntil(f, func() bool { return m.Waiters() == 1 })
		b := waiter.Load()
		f.SetReady(b)
		f.Yield()
		yieldUntil(f, func() bool { return b.State() == fiber.StateSuspended })
		// still the owner, with the waiter queued once
		assert.Equal(t, f.ID(), m.Owner())
		assert.Equal(t, 1, m.Waiters())
		m.Unlock(f)
		assert.Equal(t, b.ID(), m.Owner())
	})

	b := spawn(t, rt, func(f *fiber.Fiber) {
		waiter.Store(f)
		m.Lock(f)
		assert.Equal(t, f.ID(), m.Owner())
		m.Unlock(f)
	})

	waitDone(t, holder, b)
	require.Zero(t, m.Owner())
	m.Destroy()
	require.Equal(t, 1, strings.Count(logs.String(), `mutex handed off`))
}

func TestMutex_mutualExclusion(t *testing.T) {
	const (
		fibers     = 32
		iterations = 200
	)

	rt := newTestRuntime(t, fiber.WithWorkers(4))

	var (
		m      Mutex
		inside atomic.Int32
		count  int
		all    []*fiber.Fiber
	)

	for i := 0; i < fibers; i++ {
		all = append(all, spawn(t, rt, func(f *fiber.Fiber) {
			lk := m.Locker(f)
			for j := 0; j < iterations; j++ {
				if j%3 != 0 || !m.TryLock(f) {
					lk.Lock()
				}
				if n := inside.Add(1); n != 1 {
					assert.Equal(t, int32(1), n)
				}
				count++
				if j%7 == 0 {
					// hold the lock across a reschedule
					f.Yield()
				}
				inside.Add(-1)
				lk.Unlock()
			}
		}))
	}

	waitDone(t, all...)
	require.Equal(t, fibers*iterations, count)
	require.Zero(t, m.Owner())
	m.Destroy()
}
