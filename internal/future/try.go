package future

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/agata/internal/ensure"
)

// Try is the outcome of a computation: either a value or the error that
// prevented it.
type Try[T any] struct {
	value T
	err   error
}

// Success returns a successful Try carrying v.
func Success[T any](v T) Try[T] {
	return Try[T]{value: v}
}

// Failure returns a failed Try carrying err. A nil err is itself reported
// as a precondition failure so the Try never looks successful by accident.
func Failure[T any](err error) Try[T] {
	if err == nil {
		err = fmt.Errorf("%w: failure cause must not be nil",
			ensure.ErrPrecondition)
	}

	return Try[T]{err: err}
}

// TryOf converts an fn.Result into a Try.
func TryOf[T any](r fn.Result[T]) Try[T] {
	v, err := r.Unpack()
	if err != nil {
		return Failure[T](err)
	}

	return Success(v)
}

// IsSuccess reports whether t carries a value.
func (t Try[T]) IsSuccess() bool {
	return t.err == nil
}

// IsFailure reports whether t carries an error.
func (t Try[T]) IsFailure() bool {
	return t.err != nil
}

// Value returns the carried value. On a failure it returns the carried
// error.
func (t Try[T]) Value() (T, error) {
	if t.err != nil {
		var zero T
		return zero, t.err
	}

	return t.value, nil
}

// Cause returns the carried error. It fails with ErrNotFailed on a
// success.
func (t Try[T]) Cause() (error, error) {
	if t.err == nil {
		return nil, ErrNotFailed
	}

	return t.err, nil
}

// Result converts t into an fn.Result.
func (t Try[T]) Result() fn.Result[T] {
	if t.err != nil {
		return fn.Err[T](t.err)
	}

	return fn.Ok(t.value)
}

// String implements fmt.Stringer.
func (t Try[T]) String() string {
	if t.err != nil {
		return fmt.Sprintf("Failure(%v)", t.err)
	}

	return fmt.Sprintf("Success(%v)", t.value)
}
