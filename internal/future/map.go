package future

import (
	"context"
	"fmt"
)

// Map returns a future completed with mapper applied to the value of f.
// If f fails, the returned future fails with the same error and mapper is
// not called. A mapper that returns an error or panics fails the returned
// future with that error.
//
// Map consumes the single callback slot of f; mapping or observing f a
// second time yields a future failed with ErrCallbackAlreadySet.
func Map[T, R any](f *Future[T], exec Execute,
	mapper func(T) (R, error)) *Future[R] {

	return MapResult(f, exec, func(t Try[T]) Try[R] {
		v, err := t.Value()
		if err != nil {
			return Failure[R](err)
		}

		return protect("mapper", func() (R, error) {
			return mapper(v)
		})
	})
}

// MapResult returns a future completed with mapper applied to the outcome
// of f, whether it succeeded or failed. A panicking mapper fails the
// returned future.
func MapResult[T, R any](f *Future[T], exec Execute,
	mapper func(Try[T]) Try[R]) *Future[R] {

	p := NewPromise[R]()

	err := f.OnComplete(exec, func(t Try[T]) {
		_ = p.Complete(protectTry("mapper", func() Try[R] {
			return mapper(t)
		}))
	})
	if err != nil {
		_ = p.Fail(err)
	}

	return p.Future()
}

// protect runs call and converts a panic into a failed Try.
func protect[R any](what string, call func() (R, error)) Try[R] {
	return protectTry(what, func() Try[R] {
		v, err := call()
		if err != nil {
			return Failure[R](err)
		}

		return Success(v)
	})
}

// protectTry runs call and converts a panic into a failed Try.
func protectTry[R any](what string, call func() Try[R]) (t Try[R]) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s panicked: %v", what, r)
			log.DebugS(context.Background(), "Recovered panic",
				"source", what, "err", err)

			t = Failure[R](err)
		}
	}()

	return call()
}
