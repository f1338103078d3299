// Package threadpool defines the unit-of-work executors that actors and
// future continuations run on.
//
// Two policies are provided. SharedPool hands every unit to the Go runtime
// scheduler, the process wide general purpose pool. FixedPool owns a fixed
// set of workers, each pinned to its own OS thread with a configurable
// priority, for work that should not compete with ambient background
// goroutines.
package threadpool

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/roasbeef/agata/internal/freelist"
)

// wrapperPoolSize bounds the number of idle callable wrappers retained for
// reuse.
const wrapperPoolSize = 10000

// Action is a reusable unit of work.
type Action interface {
	// Invoke runs the unit of work.
	Invoke()
}

// ActionFunc adapts a plain function to Action.
type ActionFunc func()

// Invoke calls f.
func (f ActionFunc) Invoke() {
	f()
}

// ThreadPool executes units of work asynchronously. A scheduled unit runs
// eventually, possibly concurrently with other units; no ordering holds
// between different units.
type ThreadPool interface {
	// Schedule runs fn on the pool.
	Schedule(fn func())

	// ScheduleAction runs a on the pool.
	ScheduleAction(a Action)
}

// funcAction is the pooled adapter from a plain callable to an Action.
type funcAction struct {
	fn func()
}

// funcActions recycles funcAction wrappers.
var funcActions = freelist.New(wrapperPoolSize, func() *funcAction {
	return &funcAction{}
})

// wrap adapts fn into a pooled Action.
func wrap(fn func()) Action {
	w, _ := funcActions.Get()
	w.fn = fn

	return w
}

// Invoke releases the wrapper back to its free-list and runs the callable.
// The wrapper is released first so a panicking callable does not leak it.
func (w *funcAction) Invoke() {
	fn := w.fn
	w.fn = nil
	funcActions.Put(w)

	fn()
}

// run invokes a, recovering and logging any panic so the executing worker
// survives.
func run(pool string, a Action) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorS(context.Background(), "Unit of work panicked",
				fmt.Errorf("%v", r), "pool", pool,
				"stack", string(debug.Stack()))
		}
	}()

	a.Invoke()
}
