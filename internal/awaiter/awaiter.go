// Package awaiter bridges externally driven asynchronous handles into the
// future and actor world.
//
// A PollAwaiter owns one dedicated goroutine, locked to its OS thread, that
// repeatedly polls every registered Awaitable and runs its callback once it
// reports ready. Polling trades CPU for simplicity: it works with any handle
// that can answer "are you done yet" and needs no cooperation from whoever
// drives it.
package awaiter

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/google/uuid"
	"github.com/roasbeef/agata/internal/ensure"
	"github.com/roasbeef/agata/internal/mpsc"
	"github.com/roasbeef/agata/internal/threadpool"
)

// ErrClosed is returned when using an awaiter after Close.
var ErrClosed = errors.New("awaiter closed")

// Awaitable is a handle that can report whether it has completed. Once
// Ready returns true it must keep returning true.
type Awaitable interface {
	Ready() bool
}

// ReadyFunc adapts a function to Awaitable.
type ReadyFunc func() bool

// Ready calls f.
func (f ReadyFunc) Ready() bool {
	return f()
}

// Awaiter runs a callback once an Awaitable becomes ready. The callback of
// every accepted registration runs exactly once.
type Awaiter interface {
	Await(a Awaitable, onReady threadpool.Action)
}

// entry is one pending registration.
type entry struct {
	awaitable Awaitable
	onReady   threadpool.Action
}

// PollAwaiter is the busy polling Awaiter.
type PollAwaiter struct {
	name     string
	priority threadpool.Priority

	queue *mpsc.Queue[entry]

	// scratch holds the entries found not ready during one pass. Only
	// the polling goroutine touches it.
	scratch []entry

	// registering counts Await calls between their closed check and the
	// end of their push. Close waits for it to drain so the shutdown
	// pass sees every accepted registration.
	registering atomix.Int64

	closed atomic.Bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

// NewPollAwaiter starts a poll loop whose thread runs at priority. An empty
// name is replaced by a generated one.
func NewPollAwaiter(name string, priority threadpool.Priority) *PollAwaiter {
	if name == "" {
		name = "awaiter-" + uuid.NewString()
	}

	a := &PollAwaiter{
		name:     name,
		priority: priority,
		queue:    mpsc.New[entry](),
		quit:     make(chan struct{}),
	}

	a.wg.Add(1)
	go a.loop()

	return a
}

// Name returns the awaiter's name.
func (a *PollAwaiter) Name() string {
	return a.name
}

// Await registers onReady to run on the poll goroutine once aw is ready.
// Registrations after Close are dropped with a warning. Nil arguments are
// programmer errors and panic.
func (a *PollAwaiter) Await(aw Awaitable, onReady threadpool.Action) {
	if err := ensure.NotNil(aw, "awaitable"); err != nil {
		panic(err)
	}
	if err := ensure.NotNil(onReady, "onReady"); err != nil {
		panic(err)
	}

	a.registering.Add(1)
	defer a.registering.Add(-1)

	if a.closed.Load() {
		log.WarnS(context.Background(), "Await on closed awaiter",
			ErrClosed, "awaiter", a.name)

		return
	}

	a.queue.Push(entry{awaitable: aw, onReady: onReady})
}

// Pending returns the number of registrations waiting to become ready.
// Entries in the middle of a poll pass are not counted.
func (a *PollAwaiter) Pending() int {
	return int(a.queue.Len())
}

// Close stops the poll loop and waits for it to exit. Registrations that
// never became ready are dropped.
func (a *PollAwaiter) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}

	var bo iox.Backoff
	for a.registering.Load() != 0 {
		bo.Wait()
	}

	close(a.quit)
	a.wg.Wait()
}

// loop is the poll goroutine.
func (a *PollAwaiter) loop() {
	defer a.wg.Done()

	if err := threadpool.PinThread(a.priority); err != nil {
		log.WarnS(context.Background(), "Unable to set awaiter "+
			"priority", err, "awaiter", a.name)
	}

	log.DebugS(context.Background(), "Awaiter started", "awaiter", a.name)

	var bo iox.Backoff
	for {
		select {
		case <-a.quit:
			a.shutdown()
			return

		default:
		}

		if a.poll() {
			bo.Reset()
		} else {
			bo.Wait()
		}
	}
}

// poll runs one pass over the queue and reports whether any callback ran.
func (a *PollAwaiter) poll() bool {
	progress := false
	for {
		e, ok := a.queue.Pop()
		if !ok {
			break
		}

		if !e.awaitable.Ready() {
			a.scratch = append(a.scratch, e)
			continue
		}

		a.invoke(e.onReady)
		progress = true
	}

	for i := range a.scratch {
		a.queue.Push(a.scratch[i])
		a.scratch[i] = entry{}
	}
	a.scratch = a.scratch[:0]

	return progress
}

// invoke runs a callback, logging any panic so the loop keeps going.
func (a *PollAwaiter) invoke(onReady threadpool.Action) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorS(context.Background(), "Awaiter callback "+
				"panicked", fmt.Errorf("%v", r),
				"awaiter", a.name, "stack", string(debug.Stack()))
		}
	}()

	onReady.Invoke()
}

// shutdown drops whatever is still registered.
func (a *PollAwaiter) shutdown() {
	dropped := 0
	for {
		if _, ok := a.queue.Pop(); !ok {
			break
		}
		dropped++
	}

	if dropped > 0 {
		log.WarnS(context.Background(), "Awaiter closed with pending "+
			"registrations", ErrClosed, "awaiter", a.name,
			"dropped", dropped)
	} else {
		log.DebugS(context.Background(), "Awaiter stopped",
			"awaiter", a.name)
	}
}

var _ Awaiter = (*PollAwaiter)(nil)
