package plaid

import "context"

// Future is the pending result of an operation started with Go. It resolves
// exactly once; results of independent futures arrive in no particular order.
type Future[T any] struct {
	done  chan struct{}
	value T
}

// Go runs fn on its own goroutine with ctx and returns its future result.
//
//	f := plaid.Go(ctx, func(ctx context.Context) plaid.LinkResult {
//		return client.Login(ctx, inst, user, pass, pin)
//	})
//	result, err := f.Await(ctx)
func Go[T any](ctx context.Context, fn func(context.Context) T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends. A canceled wait
// does not cancel the operation itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete invokes callback once with the result, on a goroutine of its
// own. The callback must synchronize any shared state it touches.
func (f *Future[T]) OnComplete(callback func(T)) {
	go func() {
		<-f.done
		callback(f.value)
	}()
}
