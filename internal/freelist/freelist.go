// Package freelist provides a bounded, lock-free free-list used to recycle
// short lived objects (callable wrappers, awaiter bridges, receive buffers).
package freelist

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
)

// List retains up to a fixed number of idle values. Values beyond the limit
// are not retained and are left to the garbage collector.
type List[T any] struct {
	// free holds the idle values. Its capacity is the limit rounded up
	// to a power of two, so the limit itself is enforced by size.
	free lfq.Queue[T]

	limit int64

	// size is the number of values currently retained.
	size atomix.Int64

	newValue func() T
}

// New creates a free-list retaining at most limit values. newValue builds a
// fresh value whenever the list is empty.
func New[T any](limit int, newValue func() T) *List[T] {
	if limit < 0 {
		limit = 0
	}

	// lfq queues need at least two slots.
	capacity := limit
	if capacity < 2 {
		capacity = 2
	}

	return &List[T]{
		free:     lfq.BuildMPMC[T](lfq.New(capacity).Compact()),
		limit:    int64(limit),
		newValue: newValue,
	}
}

// Get returns an idle value, or a new one if none is retained. The boolean
// reports whether the value was recycled.
func (l *List[T]) Get() (T, bool) {
	v, err := l.free.Dequeue()
	if err != nil {
		return l.newValue(), false
	}
	l.size.Add(-1)

	return v, true
}

// Put offers v back to the list. It returns false if the list is full and v
// was dropped.
func (l *List[T]) Put(v T) bool {
	if l.size.Add(1) > l.limit {
		l.size.Add(-1)
		return false
	}

	if err := l.free.Enqueue(&v); err != nil {
		l.size.Add(-1)
		return false
	}

	return true
}

// Len returns the approximate number of retained values.
func (l *List[T]) Len() int {
	return int(l.size.Load())
}

// Limit returns the maximum number of retained values.
func (l *List[T]) Limit() int {
	return int(l.limit)
}
