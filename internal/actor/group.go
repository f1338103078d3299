package actor

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"github.com/roasbeef/agata/internal/ensure"
	"github.com/roasbeef/agata/internal/future"
)

// Group spreads work over a fixed set of actors of the same subject type.
// Members are named "<prefix>-<index>" in the system.
type Group[T any] struct {
	prefix  string
	members []*Ref[T]

	next atomix.Uint64
}

// NewGroup creates size actors named after prefix, building each subject
// with factory.
func NewGroup[T any](s *System, prefix string, size int,
	factory func(idx int) (T, error)) (*Group[T], error) {

	if err := ensure.That(size > 0, "group size",
		"must be positive"); err != nil {

		return nil, err
	}
	if err := ensure.NotNil(factory, "group factory"); err != nil {
		return nil, err
	}

	g := &Group[T]{
		prefix:  prefix,
		members: make([]*Ref[T], size),
	}
	for i := range g.members {
		idx := i
		ref, err := ActorOfWith(s, fmt.Sprintf("%s-%d", prefix, idx),
			func() (T, error) {
				return factory(idx)
			},
		)
		if err != nil {
			return nil, err
		}
		g.members[i] = ref
	}

	return g, nil
}

// Size returns the number of members.
func (g *Group[T]) Size() int {
	return len(g.members)
}

// Members returns a copy of the member refs.
func (g *Group[T]) Members() []*Ref[T] {
	members := make([]*Ref[T], len(g.members))
	copy(members, g.members)

	return members
}

// pick returns the next member in round-robin order.
func (g *Group[T]) pick() *Ref[T] {
	idx := (g.next.Add(1) - 1) % uint64(len(g.members))
	return g.members[idx]
}

// Schedule hands action to the next member.
func (g *Group[T]) Schedule(action func(T)) {
	g.pick().Schedule(action)
}

// Broadcast schedules action on every member.
func (g *Group[T]) Broadcast(action func(T)) {
	for _, m := range g.members {
		m.Schedule(action)
	}
}

// Kill kills every member with the same notification.
func (g *Group[T]) Kill(notification func(T)) {
	for _, m := range g.members {
		m.Kill(notification)
	}
}

// AskGroup runs query on the next member of g.
func AskGroup[T, R any](g *Group[T],
	query func(T) (R, error)) *future.Future[R] {

	return Ask(g.pick(), query)
}

// AskAll runs query on every member of g. The futures are in member order.
func AskAll[T, R any](g *Group[T],
	query func(T) (R, error)) []*future.Future[R] {

	futures := make([]*future.Future[R], len(g.members))
	for i, m := range g.members {
		futures[i] = Ask(m, query)
	}

	return futures
}
