// Package actor serializes all work against a subject through a mailbox.
//
// An actor owns one subject value. Actions scheduled on the actor run one at
// a time, in the order they reached the mailbox, on whatever thread pool the
// actor was created with; different actors run in parallel. The mailbox is
// an unbounded lock-free queue paired with a drain state (Idle, Draining,
// Dead). A producer that moves the state from Idle to Draining submits one
// drain step to the pool; every drain step runs exactly one action and then
// either resubmits itself or goes back to Idle, re-checking the mailbox so a
// push racing with that transition is never stranded.
package actor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/roasbeef/agata/internal/ensure"
	"github.com/roasbeef/agata/internal/mpsc"
	"github.com/roasbeef/agata/internal/threadpool"
)

// drainState is the lifecycle stage of a mailbox.
type drainState uint32

const (
	// stateIdle means no drain step is queued or running.
	stateIdle drainState = iota

	// stateDraining means exactly one drain step is queued or running.
	stateDraining

	// stateDead means the kill notification ran; nothing runs again.
	stateDead

	// stateSweeping is a dead actor whose mailbox is being emptied by
	// whoever won the Dead to Sweeping CAS.
	stateSweeping
)

// String implements fmt.Stringer.
func (s drainState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateDraining:
		return "draining"
	case stateDead:
		return "dead"
	case stateSweeping:
		return "sweeping"
	default:
		return fmt.Sprintf("drainState(%d)", uint32(s))
	}
}

// message is one mailbox entry. onDrop, if set, is told when the entry is
// discarded because the actor died before reaching it.
type message[T any] struct {
	run    func(T)
	onDrop func()
}

// actor is the mailbox and subject behind a Ref.
type actor[T any] struct {
	name    string
	system  *System
	pool    threadpool.ThreadPool
	subject T

	mailbox *mpsc.Queue[message[T]]
	state   atomic.Uint32

	// kill is set once, from nil to the notification of the first Kill.
	kill atomic.Pointer[func(T)]
}

func newActor[T any](sys *System, name string, subject T) *actor[T] {
	return &actor[T]{
		name:    name,
		system:  sys,
		pool:    sys.pool,
		subject: subject,
		mailbox: mpsc.New[message[T]](),
	}
}

// load returns the current drain state.
func (a *actor[T]) load() drainState {
	return drainState(a.state.Load())
}

// cas moves the drain state from old to new.
func (a *actor[T]) cas(old, new drainState) bool {
	return a.state.CompareAndSwap(uint32(old), uint32(new))
}

// post enqueues msg and makes sure a drain will see it. It returns false if
// the actor is dead or being killed, in which case msg is dropped.
func (a *actor[T]) post(msg message[T]) bool {
	if a.kill.Load() != nil || a.isDead() {
		log.WarnS(context.Background(), "Action scheduled on dead "+
			"actor dropped", nil, "actor", a.name,
			"system", a.system.name)

		return false
	}

	a.mailbox.Push(msg)
	a.trySchedule()

	// The actor may have died between the check above and the push, in
	// which case no drain step will ever pop msg.
	if a.load() == stateDead {
		a.sweep()
	}

	return true
}

// terminate registers the kill notification. Only the first call wins.
func (a *actor[T]) terminate(notification func(T)) bool {
	if !a.kill.CompareAndSwap(nil, &notification) {
		log.WarnS(context.Background(), "Actor already killed, "+
			"notification dropped", nil, "actor", a.name,
			"system", a.system.name)

		return false
	}

	a.trySchedule()

	return true
}

// trySchedule submits a drain step unless one is already in flight.
func (a *actor[T]) trySchedule() {
	if a.cas(stateIdle, stateDraining) {
		a.pool.ScheduleAction(a)
	}
}

// hasWork reports whether a drain step would have something to do.
func (a *actor[T]) hasWork() bool {
	return !a.mailbox.Empty() || a.kill.Load() != nil
}

// Invoke runs one drain step. It is only ever running once per actor, which
// makes it the single consumer of the mailbox.
func (a *actor[T]) Invoke() {
	if k := a.kill.Load(); k != nil {
		a.die(*k)
		return
	}

	if msg, ok := a.mailbox.Pop(); ok {
		a.invoke("action", msg.run)
	} else if DebugEnabled() {
		// A producer is between publishing and linking its entry, or
		// a previous step already took what woke us.
		log.DebugS(context.Background(), "Drain step found empty "+
			"mailbox", "actor", a.name)
	}

	if a.hasWork() {
		a.pool.ScheduleAction(a)
		return
	}

	a.state.Store(uint32(stateIdle))

	// A producer may have pushed after our check but failed its CAS
	// while we were still draining.
	if a.hasWork() && a.cas(stateIdle, stateDraining) {
		a.pool.ScheduleAction(a)
	}
}

// die runs the kill notification, discards the rest of the mailbox and
// removes the actor from its system.
func (a *actor[T]) die(notification func(T)) {
	a.invoke("kill notification", notification)

	a.discard()
	a.system.removeActor(a.name, a)

	// The drain state stays Draining until here, so no other drain step
	// can start.
	a.state.Store(uint32(stateDead))

	// Pushes that got past the kill check in post and landed after the
	// discard above.
	a.sweep()

	log.DebugS(context.Background(), "Actor terminated", "actor", a.name,
		"system", a.system.name)
}

// sweep empties the mailbox of a dead actor. The consumer role goes to the
// caller that moves the state from Dead to Sweeping. A producer that pushes
// while someone else sweeps finished its push before that sweeper stores
// Dead again, so the sweeper's emptiness check sees it.
func (a *actor[T]) sweep() {
	for !a.mailbox.Empty() {
		if !a.cas(stateDead, stateSweeping) {
			return
		}

		a.discard()
		a.state.Store(uint32(stateDead))
	}
}

// discard pops every queued message, telling each one it was dropped. The
// caller must hold the consumer role.
func (a *actor[T]) discard() {
	dropped := 0
	for {
		msg, ok := a.mailbox.Pop()
		if !ok {
			break
		}
		if msg.onDrop != nil {
			msg.onDrop()
		}
		dropped++
	}

	if dropped > 0 {
		log.WarnS(context.Background(), "Pending actions dropped by "+
			"kill", nil, "actor", a.name, "dropped", dropped)
	}
}

// isDead reports whether the actor reached Dead, including while its
// mailbox is being swept.
func (a *actor[T]) isDead() bool {
	s := a.load()
	return s == stateDead || s == stateSweeping
}

// invoke runs fn against the subject, logging a panic instead of letting it
// escape the drain step.
func (a *actor[T]) invoke(what string, fn func(T)) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorS(context.Background(), "Actor "+what+
				" panicked", fmt.Errorf("%v", r),
				"actor", a.name, "system", a.system.name,
				"stack", string(debug.Stack()))
		}
	}()

	fn(a.subject)
}

// Ref is a typed handle to an actor. It does not own the subject.
type Ref[T any] struct {
	actor *actor[T]
}

// Name returns the actor's name within its system.
func (r *Ref[T]) Name() string {
	return r.actor.name
}

// Schedule queues action to run against the subject. Actions run one at a
// time in mailbox order. After Kill the action is dropped with a warning.
// A nil action is a programmer error and panics.
func (r *Ref[T]) Schedule(action func(T)) {
	if action == nil {
		panic(fmt.Errorf("%w: action must not be nil",
			ensure.ErrPrecondition))
	}

	r.actor.post(message[T]{run: action})
}

// Kill terminates the actor. The notification runs once, after the action
// currently executing (if any) and in place of everything still queued.
// Only the first Kill has an effect; later ones are logged and dropped.
func (r *Ref[T]) Kill(notification func(T)) {
	if notification == nil {
		panic(fmt.Errorf("%w: kill notification must not be nil",
			ensure.ErrPrecondition))
	}

	r.actor.terminate(notification)
}

// IsIdle reports whether the actor has nothing queued or running.
func (r *Ref[T]) IsIdle() bool {
	return r.actor.load() == stateIdle && r.actor.mailbox.Empty()
}

// IsBusy reports whether a drain step is queued or running.
func (r *Ref[T]) IsBusy() bool {
	return r.actor.load() == stateDraining
}

// IsDead reports whether the kill notification has run.
func (r *Ref[T]) IsDead() bool {
	return r.actor.isDead()
}

// Pending returns the approximate number of queued actions.
func (r *Ref[T]) Pending() int {
	return r.actor.mailbox.Len()
}

// String implements fmt.Stringer.
func (r *Ref[T]) String() string {
	return fmt.Sprintf("actor(%s/%s, %v)", r.actor.system.name,
		r.actor.name, r.actor.load())
}
