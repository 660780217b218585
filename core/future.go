package core

import (
	"context"
	"sync"
)

// Future is the pending result of a message dispatched to a messagebus.
// It is resolved exactly once; extra Resolve calls are ignored.
//
// Example:
//
//	future, err := bus.HandleMessage(ctx, cmd, nil)
//	if err != nil {
//	    return err
//	}
//	result, err := future.Result(ctx)
type Future struct {
	once   sync.Once
	done   chan struct{}
	result any
	err    error
}

// NewFuture creates an unresolved Future.
func NewFuture() *Future {
	return &Future{
		done: make(chan struct{}),
	}
}

// Resolve completes the future with a result or an error.
// Only the first call has an effect.
func (f *Future) Resolve(result any, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future is resolved or the context is done and
// returns the handling outcome.
func (f *Future) Result(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
