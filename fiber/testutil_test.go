package fiber

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil && err != ErrClosed {
			t.Errorf("shutdown: %v", err)
		}
	})
	return r
}

func mustGo(t *testing.T, r *Runtime, fn func(f *Fiber), opts ...SpawnOption) *Fiber {
	t.Helper()
	f, err := r.Go(fn, opts...)
	require.NoError(t, err)
	return f
}

func waitDone(t *testing.T, fibers ...*Fiber) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for _, f := range fibers {
		select {
		case <-f.Done():
		case <-timeout:
			t.Fatalf("timed out waiting for fiber %d (state %s)", f.ID(), f.State())
		}
	}
}

func waitState(t *testing.T, f *Fiber, state State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.State() != state {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for fiber %d to be %s (state %s)", f.ID(), state, f.State())
		}
		time.Sleep(time.Millisecond)
	}
}

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
