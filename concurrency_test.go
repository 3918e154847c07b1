package medgemma

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestAcquireReleaseIsMutuallyExclusive(t *testing.T) {
	e := &Engine{slot: make(chan struct{}, 1)}

	ctx := context.Background()

	var running int32
	var maxRunning int32

	var g errgroup.Group

	for i := 0; i < 8; i++ {
		g.Go(func() error {
			if err := acquire(ctx, e); err != nil {
				return err
			}
			defer release(e)

			n := atomic.AddInt32(&running, 1)
			if n > atomic.LoadInt32(&maxRunning) {
				atomic.StoreInt32(&maxRunning, n)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if maxRunning != 1 {
		t.Fatalf("maxRunning = %d, want 1 (slot must serialize callers)", maxRunning)
	}
}

func TestAcquireFailsOnceUnloaded(t *testing.T) {
	e := &Engine{slot: make(chan struct{}, 1)}
	atomic.StoreUint32(&e.closed, 1)

	if err := acquire(context.Background(), e); err == nil {
		t.Fatalf("acquire() on an unloaded engine should fail")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	e := &Engine{slot: make(chan struct{}, 1)}
	e.slot <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := acquire(ctx, e); err == nil {
		t.Fatalf("acquire() should have failed once ctx timed out")
	}
}

func TestRunStreamingRecoversPanic(t *testing.T) {
	e := &Engine{slot: make(chan struct{}, 1)}

	f := func() <-chan int {
		panic("boom")
	}

	ef := func(err error) int { return -1 }

	ch, err := runStreaming(context.Background(), e, f, ef)
	if err != nil {
		t.Fatalf("runStreaming: %v", err)
	}

	var got []int
	for v := range ch {
		got = append(got, v)
	}

	if len(got) != 1 || got[0] != -1 {
		t.Fatalf("got %v, want a single -1 from the recovered panic", got)
	}
}
