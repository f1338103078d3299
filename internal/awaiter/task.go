package awaiter

import (
	"errors"
	"fmt"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// ErrTaskPending is returned when reading the outcome of an unfinished
// task.
var ErrTaskPending = errors.New("task still running")

// Task is an asynchronous computation with an outcome that can be read once
// it is ready.
type Task[T any] interface {
	Awaitable

	// Outcome returns the task's value or error. It fails with
	// ErrTaskPending before the task is ready.
	Outcome() (T, error)
}

// taskOutcome is published once the task body returns.
type taskOutcome[T any] struct {
	value T
	err   error
}

// goTask is a Task driven by its own goroutine.
type goTask[T any] struct {
	outcome atomic.Pointer[taskOutcome[T]]
}

// Spawn runs body on a new goroutine and returns the Task tracking it. A
// panic in body becomes the task's error.
func Spawn[T any](body func() (T, error)) Task[T] {
	t := &goTask[T]{}

	go func() {
		out := &taskOutcome[T]{}
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("task panicked: %v", r)
			}
			t.outcome.Store(out)
		}()

		out.value, out.err = body()
	}()

	return t
}

// Ready reports whether the task body has returned.
func (t *goTask[T]) Ready() bool {
	return t.outcome.Load() != nil
}

// Outcome returns the value and error of the task body.
func (t *goTask[T]) Outcome() (T, error) {
	out := t.outcome.Load()
	if out == nil {
		var zero T
		return zero, ErrTaskPending
	}

	return out.value, out.err
}

// allOf is ready once each of its members is.
type allOf struct {
	members []Awaitable

	// cursor indexes the first member not yet seen ready. Readiness is
	// sticky, so members before it are never asked again.
	cursor atomix.Int64
}

// All returns an Awaitable that is ready once every one of as is ready. All
// of nothing is immediately ready.
func All(as ...Awaitable) Awaitable {
	return &allOf{members: append([]Awaitable(nil), as...)}
}

// Ready implements Awaitable.
func (a *allOf) Ready() bool {
	i := int(a.cursor.Load())
	for i < len(a.members) {
		if !a.members[i].Ready() {
			a.cursor.Store(int64(i))
			return false
		}
		i++
	}
	a.cursor.Store(int64(i))

	return true
}
