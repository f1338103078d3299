package future

import (
	"fmt"

	"github.com/roasbeef/agata/internal/ensure"
)

// Promise is the exclusive producer handle of a Future. Exactly one of
// Succeed, Fail or Complete takes effect; later calls fail with
// ErrAlreadyCompleted.
type Promise[T any] struct {
	future *Future[T]
}

// NewPromise returns a promise paired with a pending future.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{future: newFuture[T]()}
}

// Future returns the consumer side.
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// Succeed completes the future with v.
func (p *Promise[T]) Succeed(v T) error {
	return p.future.complete(Success(v))
}

// Fail completes the future with err.
func (p *Promise[T]) Fail(err error) error {
	if err == nil {
		return fmt.Errorf("%w: failure cause must not be nil",
			ensure.ErrPrecondition)
	}

	return p.future.complete(Failure[T](err))
}

// Complete completes the future with t.
func (p *Promise[T]) Complete(t Try[T]) error {
	return p.future.complete(t)
}

// Completed returns a future already completed with t.
func Completed[T any](t Try[T]) *Future[T] {
	p := NewPromise[T]()
	_ = p.Complete(t)

	return p.Future()
}
