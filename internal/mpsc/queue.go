// Package mpsc implements an unbounded, intrusive, lock-free
// multi-producer single-consumer queue (Vyukov's node based design).
//
// Push may be called from any number of goroutines. Pop must only be called
// by one consumer at a time; consumers may change over the queue's life as
// long as hand-over is ordered by some other synchronization (the actor
// mailbox hands the consumer role over through its drain state CAS).
package mpsc

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// Queue is an unbounded MPSC queue. The zero value is not usable, use New.
type Queue[T any] struct {
	// head is the consumer's dummy node; the next value lives in
	// head.next.
	head atomic.Pointer[node[T]]

	// tail is the last linked node, swapped by producers.
	tail atomic.Pointer[node[T]]

	// size counts values that have been fully linked and not yet popped.
	size atomix.Int64
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	stub := &node[T]{}
	q := &Queue[T]{}
	q.head.Store(stub)
	q.tail.Store(stub)

	return q
}

// Push appends v. It never blocks and never fails.
func (q *Queue[T]) Push(v T) {
	n := &node[T]{value: v}

	// Between the swap and the link the new node is unreachable from
	// head; the consumer sees the queue as empty until the link lands.
	prev := q.tail.Swap(n)
	prev.next.Store(n)

	q.size.Add(1)
}

// Pop removes the oldest linked value. It returns false when no linked
// value is available.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T

	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return zero, false
	}

	v := next.value

	// next becomes the new dummy, drop its reference to the value.
	next.value = zero
	q.head.Store(next)

	q.size.Add(-1)

	return v, true
}

// Empty reports whether no linked value is available. It is safe to call
// from any goroutine; a producer mid-push may not be visible yet.
func (q *Queue[T]) Empty() bool {
	return q.head.Load().next.Load() == nil
}

// Len returns the approximate number of queued values.
func (q *Queue[T]) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}

	return int(n)
}
