package future

import (
	"code.hybscloud.com/iox"
	"github.com/roasbeef/agata/internal/awaiter"
	"github.com/roasbeef/agata/internal/freelist"
	"github.com/roasbeef/agata/internal/threadpool"
)

// bridgePoolSize bounds the number of idle task bridges kept for reuse.
const bridgePoolSize = 10000

// Start runs body on pool and returns a future of its outcome. A panic in
// body fails the future.
func Start[T any](pool threadpool.ThreadPool,
	body func() (T, error)) *Future[T] {

	p := NewPromise[T]()
	pool.Schedule(func() {
		_ = p.Complete(protect("task", body))
	})

	return p.Future()
}

// bridge completes a promise from a task once the awaiter reports the task
// ready. Bridges are recycled through a per type free-list.
type bridge[T any] struct {
	task    awaiter.Task[T]
	promise *Promise[T]
	home    *freelist.List[*bridge[T]]
}

// Invoke moves the task outcome into the promise and recycles the bridge.
func (b *bridge[T]) Invoke() {
	task, promise := b.task, b.promise
	b.task, b.promise = nil, nil
	b.home.Put(b)

	_ = promise.Complete(protect("task outcome", task.Outcome))
}

// Bridges recycles the bridge objects used by From. One instance per
// result type is enough; it is safe for concurrent use.
type Bridges[T any] struct {
	list *freelist.List[*bridge[T]]
}

// NewBridges returns an empty bridge free-list.
func NewBridges[T any]() *Bridges[T] {
	b := &Bridges[T]{}
	b.list = freelist.New(bridgePoolSize, func() *bridge[T] {
		return &bridge[T]{home: b.list}
	})

	return b
}

// From returns a future completed with the outcome of task once aw sees it
// ready. The bridge object connecting the two is drawn from pool.
func From[T any](aw awaiter.Awaiter, pool *Bridges[T],
	task awaiter.Task[T]) *Future[T] {

	p := NewPromise[T]()

	b, _ := pool.list.Get()
	b.task = task
	b.promise = p

	aw.Await(task, b)

	return p.Future()
}

// Waitable is anything whose completion can be polled.
type Waitable interface {
	Completed() bool
}

// WaitAll busy polls until every one of ws has completed. Each pass drops
// the completed entries from the working set, then yields with an adaptive
// backoff that resets whenever a pass made progress.
func WaitAll(ws ...Waitable) {
	pending := append([]Waitable(nil), ws...)

	var bo iox.Backoff
	for len(pending) > 0 {
		remaining := pending[:0]
		for _, w := range pending {
			if !w.Completed() {
				remaining = append(remaining, w)
			}
		}

		progress := len(remaining) < len(pending)
		clear(pending[len(remaining):])
		pending = remaining

		switch {
		case len(pending) == 0:
			return

		case progress:
			bo.Reset()

		default:
			bo.Wait()
		}
	}
}
