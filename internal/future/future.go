// Package future implements a lock-free, single assignment result cell
// (Future) with its producer handle (Promise), a one-shot completion
// callback, and composable transformations.
//
// All state of a Future lives in one immutable snapshot that is replaced
// atomically as a whole. Completing the future and registering its callback
// are both compare-and-swap loops over that snapshot, which makes the two
// commutative: whichever of them lands second observes the other and fires
// the callback, so the callback runs exactly once regardless of arrival
// order.
package future

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roasbeef/agata/internal/ensure"
)

var (
	// ErrAlreadyCompleted is returned when completing a future that has
	// already been completed.
	ErrAlreadyCompleted = errors.New("future already completed")

	// ErrCallbackAlreadySet is returned when a second completion
	// callback is registered.
	ErrCallbackAlreadySet = errors.New("future callback already set")

	// ErrNotCompleted is returned when reading the outcome of a pending
	// future.
	ErrNotCompleted = errors.New("future not completed")

	// ErrNotSucceeded is returned when reading the value of a failed
	// future. It wraps the failure cause.
	ErrNotSucceeded = errors.New("future did not succeed")

	// ErrNotFailed is returned when reading the error of a successful
	// future or Try.
	ErrNotFailed = errors.New("no failure to report")
)

// Status is the lifecycle stage of a Future.
type Status uint8

const (
	// StatusPending means no outcome has been set yet.
	StatusPending Status = iota

	// StatusSucceeded means the future completed with a value.
	StatusSucceeded

	// StatusFailed means the future completed with an error.
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// snapshot is the immutable state of a Future. A new snapshot is built for
// every transition; published snapshots are never mutated.
type snapshot[T any] struct {
	status Status
	value  T
	err    error

	exec     Execute
	callback func(Try[T])
}

// outcome returns the Try of a completed snapshot.
func (s *snapshot[T]) outcome() Try[T] {
	if s.status == StatusFailed {
		return Try[T]{err: s.err}
	}

	return Try[T]{value: s.value}
}

// Future is the read side of a single assignment result. It is completed
// through its Promise.
type Future[T any] struct {
	state atomic.Pointer[snapshot[T]]
}

// newFuture returns a pending future.
func newFuture[T any]() *Future[T] {
	f := &Future[T]{}
	f.state.Store(&snapshot[T]{})

	return f
}

// Status returns the current lifecycle stage.
func (f *Future[T]) Status() Status {
	return f.state.Load().status
}

// Completed reports whether an outcome has been set.
func (f *Future[T]) Completed() bool {
	return f.Status() != StatusPending
}

// Ready reports whether an outcome has been set. It lets a Future be
// watched by an awaiter.
func (f *Future[T]) Ready() bool {
	return f.Completed()
}

// Result returns the value of a successful future. It fails with
// ErrNotCompleted while pending, and with ErrNotSucceeded wrapping the cause
// once failed.
func (f *Future[T]) Result() (T, error) {
	var zero T

	s := f.state.Load()
	switch s.status {
	case StatusPending:
		return zero, ErrNotCompleted

	case StatusFailed:
		return zero, fmt.Errorf("%w: %w", ErrNotSucceeded, s.err)

	default:
		return s.value, nil
	}
}

// Err returns the cause of a failed future. It fails with ErrNotCompleted
// while pending and with ErrNotFailed once succeeded.
func (f *Future[T]) Err() (error, error) {
	s := f.state.Load()
	switch s.status {
	case StatusPending:
		return nil, ErrNotCompleted

	case StatusSucceeded:
		return nil, ErrNotFailed

	default:
		return s.err, nil
	}
}

// Outcome returns the Try of a completed future. The boolean is false while
// the future is pending.
func (f *Future[T]) Outcome() (Try[T], bool) {
	s := f.state.Load()
	if s.status == StatusPending {
		return Try[T]{}, false
	}

	return s.outcome(), true
}

// OnComplete registers cb to receive the outcome. If the future is already
// complete cb is dispatched immediately, otherwise it is dispatched by the
// completing call. At most one callback may be registered; a second one
// fails with ErrCallbackAlreadySet.
func (f *Future[T]) OnComplete(exec Execute, cb func(Try[T])) error {
	if cb == nil {
		return fmt.Errorf("%w: callback must not be nil",
			ensure.ErrPrecondition)
	}

	for {
		cur := f.state.Load()
		if cur.callback != nil {
			return ErrCallbackAlreadySet
		}

		next := *cur
		next.exec = exec
		next.callback = cb

		if !f.state.CompareAndSwap(cur, &next) {
			continue
		}

		// The outcome was already present, so the completing call has
		// come and gone without seeing a callback. It is ours to fire.
		if cur.status != StatusPending {
			dispatch(exec, cb, cur.outcome())
		}

		return nil
	}
}

// complete sets the outcome, failing with ErrAlreadyCompleted if one is
// already present.
func (f *Future[T]) complete(t Try[T]) error {
	status := StatusSucceeded
	if t.IsFailure() {
		status = StatusFailed
	}

	for {
		cur := f.state.Load()
		if cur.status != StatusPending {
			return ErrAlreadyCompleted
		}

		next := *cur
		next.status = status
		next.value = t.value
		next.err = t.err

		if !f.state.CompareAndSwap(cur, &next) {
			continue
		}

		// A callback registered before completion is fired by us.
		if cur.callback != nil {
			dispatch(cur.exec, cur.callback, t)
		}

		return nil
	}
}

// String implements fmt.Stringer.
func (f *Future[T]) String() string {
	s := f.state.Load()
	switch s.status {
	case StatusPending:
		return "Future(pending)"
	default:
		return fmt.Sprintf("Future(%v)", s.outcome())
	}
}
