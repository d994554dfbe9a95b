package fibersync

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/go-fibersync/fiber"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts ...fiber.Option) *fiber.Runtime {
	t.Helper()
	rt, err := fiber.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(ctx); err != nil && err != fiber.ErrClosed {
			t.Errorf("shutdown: %v", err)
		}
	})
	return rt
}

func spawn(t *testing.T, rt *fiber.Runtime, fn func(f *fiber.Fiber), opts ...fiber.SpawnOption) *fiber.Fiber {
	t.Helper()
	f, err := rt.Go(fn, opts...)
	require.NoError(t, err)
	return f
}

func waitDone(t *testing.T, fibers ...*fiber.Fiber) {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for _, f := range fibers {
		select {
		case <-f.Done():
			require.NoError(t, f.Err())
		case <-timeout:
			t.Fatalf("timed out waiting for fiber %d (state %s)", f.ID(), f.State())
		}
	}
}

func waitState(t *testing.T, f *fiber.Fiber, state fiber.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.State() != state {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for fiber %d to be %s (state %s)", f.ID(), state, f.State())
		}
		time.Sleep(time.Millisecond)
	}
}

// yieldUntil yields the calling fiber until cond returns true.
func yieldUntil(f *fiber.Fiber, cond func() bool) {
	for !cond() {
		f.Yield()
	}
}

// testContext is a fiber.Context that supports only the operations that
// never suspend or wake.
type testContext struct {
	id     uint64
	pinned bool
}

func (x *testContext) ID() uint64 { return x.id }
func (x *testContext) Pinned() bool { return x.pinned }
func (x *testContext) Suspend(sync.Locker) { panic(`testContext: suspend`) }
func (x *testContext) SetReady(fiber.Context) { panic(`testContext: set ready`) }
func (x *testContext) Migrate(fiber.Context) { panic(`testContext: migrate`) }
func (x *testContext) InterruptionPoint() error { return nil }

// syncBuffer is a bytes.Buffer safe for concurrent writes.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.b.String()
}

func newTestLogger(w *syncBuffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}
