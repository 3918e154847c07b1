package medgemma

import (
	"context"
	"fmt"
	"sync/atomic"
)

// acquire fails at once if the engine has already been unloaded; otherwise
// it blocks until the engine's single inference slot is free or ctx is
// done. An Unload that happens while acquire is blocked does not wake it.
// Unlike a pool of N models, an
// Engine never has more than one slot to hand out: at most one inference
// may run per engine handle at a time.
func acquire(ctx context.Context, e *Engine) error {
	if atomic.LoadUint32(&e.closed) == 1 {
		return fmt.Errorf("medgemma: engine has been unloaded")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.slot <- struct{}{}:
		return nil
	}
}

func release(e *Engine) {
	<-e.slot
}

type streamingFunc[T any] func() <-chan T
type errorFunc[T any] func(err error) T

// runStreaming acquires the engine's single slot, runs f in a goroutine,
// and relays every value it emits onto the returned channel, releasing the
// slot once f's channel closes. A panic inside the call to f, on the relay
// goroutine, is converted to one final ef(err) value rather than crashing
// the caller; a panic in a goroutine that f starts itself is not recovered.
func runStreaming[T any](ctx context.Context, e *Engine, f streamingFunc[T], ef errorFunc[T]) (<-chan T, error) {
	if err := acquire(ctx, e); err != nil {
		return nil, err
	}

	out := make(chan T)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				out <- ef(fmt.Errorf("%v", rec))
			}
			close(out)
			release(e)
		}()

		for msg := range f() {
			out <- msg
		}
	}()

	return out, nil
}
