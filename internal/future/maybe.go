package future

import "context"

// Maybe holds either a value that is available now or a Future that will
// produce it. Callers branch on IsPending or simply Await.
type Maybe[T any] struct {
	value   T
	err     error
	pending *Future[T]
}

// Ready wraps an immediately available result.
func Ready[T any](v T, err error) Maybe[T] {
	return Maybe[T]{value: v, err: err}
}

// Pending wraps a result that is still being computed. A nil f is treated as
// a ready zero value.
func Pending[T any](f *Future[T]) Maybe[T] {
	return Maybe[T]{pending: f}
}

// IsPending reports whether the result has to be awaited.
func (m Maybe[T]) IsPending() bool { return m.pending != nil }

// Future returns the underlying Future, or nil for a ready result.
func (m Maybe[T]) Future() *Future[T] { return m.pending }

// Value returns the ready result. It must not be called on a pending Maybe.
func (m Maybe[T]) Value() (T, error) { return m.value, m.err }

// Await returns the result, suspending only when it is pending.
func (m Maybe[T]) Await(ctx context.Context) (T, error) {
	if m.pending == nil {
		return m.value, m.err
	}
	return m.pending.Await(ctx)
}
