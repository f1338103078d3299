package future

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/agata/internal/threadpool"
)

// Execute selects where a completion callback runs. It is chosen by the
// consumer when registering the callback, independent of whoever completes
// the future.
type Execute struct {
	pool fn.Option[threadpool.ThreadPool]
}

// Inline runs callbacks directly on the goroutine that completes the future,
// or on the registering goroutine if the future is already complete.
var Inline = Execute{}

// On schedules callbacks onto pool.
func On(pool threadpool.ThreadPool) Execute {
	if pool == nil {
		return Inline
	}

	return Execute{pool: fn.Some(pool)}
}

// IsInline reports whether callbacks run without a pool hop.
func (e Execute) IsInline() bool {
	return e.pool.IsNone()
}

// String implements fmt.Stringer.
func (e Execute) String() string {
	if e.IsInline() {
		return "inline"
	}

	return "pool"
}

// dispatch delivers t to cb according to e.
func dispatch[T any](e Execute, cb func(Try[T]), t Try[T]) {
	e.pool.WhenSome(func(p threadpool.ThreadPool) {
		p.Schedule(func() {
			cb(t)
		})
	})

	if e.IsInline() {
		invokeInline(cb, t)
	}
}

// invokeInline runs an inline callback, containing any panic so that it
// cannot unwind into the producer that completed the future.
func invokeInline[T any](cb func(Try[T]), t Try[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorS(context.Background(), "Completion callback "+
				"panicked", fmt.Errorf("%v", r),
				"stack", string(debug.Stack()))
		}
	}()

	cb(t)
}
