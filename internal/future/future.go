// Package future provides the single-assignment result type used by
// permission checks and resolvers that may complete later than the call that
// produced them.
package future

import (
	"context"
	"sync"
)

// Future is a result that becomes available once. The zero value is not
// usable; construct one with New, Go or Resolved.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// New returns an unresolved Future and the function that settles it. Only the
// first call to settle has an effect.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.settle
}

// Resolved returns a Future that is already settled with v and err.
func Resolved[T any](v T, err error) *Future[T] {
	f, settle := New[T]()
	settle(v, err)
	return f
}

// Go runs fn on its own goroutine and returns a Future for its result.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f, settle := New[T]()
	go func() {
		settle(fn(ctx))
	}()
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the Future is settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the Future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
