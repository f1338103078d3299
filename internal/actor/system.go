package actor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/roasbeef/agata/internal/ensure"
	"github.com/roasbeef/agata/internal/future"
	"github.com/roasbeef/agata/internal/threadpool"
)

var (
	// ErrFactoryExists is returned when a second factory is registered
	// for the same subject type.
	ErrFactoryExists = errors.New("factory already registered")

	// ErrUnknownType is returned when an actor is requested for a
	// subject type without a registered factory.
	ErrUnknownType = errors.New("no factory registered for type")

	// ErrTypeMismatch is returned when an existing actor name is
	// requested with a different subject type.
	ErrTypeMismatch = errors.New("actor type mismatch")

	// ErrNilSubject is returned when a factory yields a nil subject.
	ErrNilSubject = errors.New("factory returned nil subject")

	// ErrActorDead is the failure of an Ask whose action never ran
	// because the actor was killed.
	ErrActorDead = errors.New("actor is dead")
)

// registration is one live actor in a system.
type registration struct {
	subjectType reflect.Type

	// ref is the *Ref[T] handed out for this name.
	ref any

	// owner identifies the actor so a stale removal cannot evict a
	// newer actor registered under the same name.
	owner any
}

// System owns a set of named actors sharing one thread pool, plus the
// factories used to create their subjects.
type System struct {
	name string
	pool threadpool.ThreadPool

	// mu guards both registries. Actor creation happens entirely under
	// it so a name is bound at most once.
	mu        sync.Mutex
	factories map[reflect.Type]func() (any, error)
	actors    map[string]registration
}

// NewSystem creates an empty system whose actors run on pool.
func NewSystem(name string, pool threadpool.ThreadPool) (*System, error) {
	if err := ensure.NotBlank(name, "system name"); err != nil {
		return nil, err
	}
	if err := ensure.NotNil(pool, "thread pool"); err != nil {
		return nil, err
	}

	return &System{
		name:      name,
		pool:      pool,
		factories: make(map[reflect.Type]func() (any, error)),
		actors:    make(map[string]registration),
	}, nil
}

// Name returns the system name.
func (s *System) Name() string {
	return s.name
}

// Pool returns the pool actors of this system run on.
func (s *System) Pool() threadpool.ThreadPool {
	return s.pool
}

// Len returns the number of live actors.
func (s *System) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.actors)
}

// typeOf returns the declared type T, which may be an interface.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterFactory registers the constructor of subjects of type T. Each
// type may be registered once.
func RegisterFactory[T any](s *System, factory func() (T, error)) error {
	if factory == nil {
		return fmt.Errorf("%w: factory must not be nil",
			ensure.ErrPrecondition)
	}

	typ := typeOf[T]()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.factories[typ]; ok {
		return fmt.Errorf("%w: type=%v system=%s", ErrFactoryExists,
			typ, s.name)
	}

	s.factories[typ] = func() (any, error) {
		return factory()
	}

	return nil
}

// ActorOf returns the actor registered under name, creating it with the
// factory registered for T if it does not exist yet.
func ActorOf[T any](s *System, name string) (*Ref[T], error) {
	return actorOf[T](s, name, nil)
}

// ActorOfWith is ActorOf with a caller supplied factory in place of the
// registered one. The factory is only called if name is not bound yet.
func ActorOfWith[T any](s *System, name string,
	factory func() (T, error)) (*Ref[T], error) {

	if factory == nil {
		return nil, fmt.Errorf("%w: factory must not be nil",
			ensure.ErrPrecondition)
	}

	return actorOf(s, name, factory)
}

// actorOf is the locked lookup or create path shared by ActorOf and
// ActorOfWith. A nil factory selects the registered one.
func actorOf[T any](s *System, name string,
	factory func() (T, error)) (*Ref[T], error) {

	if err := ensure.NotBlank(name, "actor name"); err != nil {
		return nil, err
	}

	typ := typeOf[T]()

	s.mu.Lock()
	defer s.mu.Unlock()

	if reg, ok := s.actors[name]; ok {
		ref, ok := reg.ref.(*Ref[T])
		if !ok {
			return nil, fmt.Errorf("%w: actor=%s have=%v want=%v",
				ErrTypeMismatch, name, reg.subjectType, typ)
		}

		return ref, nil
	}

	subject, err := create(s, typ, factory)
	if err != nil {
		return nil, fmt.Errorf("create actor %s: %w", name, err)
	}

	a := newActor(s, name, subject)
	ref := &Ref[T]{actor: a}
	s.actors[name] = registration{
		subjectType: typ,
		ref:         ref,
		owner:       a,
	}

	log.DebugS(context.Background(), "Actor created", "actor", name,
		"type", typ.String(), "system", s.name)

	return ref, nil
}

// create builds a subject of type typ. Callers hold mu.
func create[T any](s *System, typ reflect.Type,
	factory func() (T, error)) (T, error) {

	var zero T

	var (
		subject any
		err     error
	)
	if factory != nil {
		subject, err = factory()
	} else {
		registered, ok := s.factories[typ]
		if !ok {
			return zero, fmt.Errorf("%w: type=%v system=%s",
				ErrUnknownType, typ, s.name)
		}
		subject, err = registered()
	}
	if err != nil {
		return zero, err
	}

	if ensure.IsNil(subject) {
		return zero, fmt.Errorf("%w: type=%v", ErrNilSubject, typ)
	}

	return subject.(T), nil
}

// removeActor unbinds name if it still belongs to owner.
func (s *System) removeActor(name string, owner any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reg, ok := s.actors[name]; ok && reg.owner == owner {
		delete(s.actors, name)
	}
}

// Ask runs query against the subject of ref in mailbox order and returns a
// future of its result. A panicking query fails the future; if the actor is
// killed before the query runs, the future fails with ErrActorDead.
func Ask[T, R any](ref *Ref[T], query func(T) (R, error)) *future.Future[R] {
	p := future.NewPromise[R]()
	if query == nil {
		_ = p.Fail(fmt.Errorf("%w: query must not be nil",
			ensure.ErrPrecondition))

		return p.Future()
	}

	msg := message[T]{
		run: func(subject T) {
			defer func() {
				if r := recover(); r != nil {
					_ = p.Fail(fmt.Errorf("ask on %s "+
						"panicked: %v", ref.Name(), r))
				}
			}()

			v, err := query(subject)
			if err != nil {
				_ = p.Fail(err)
				return
			}
			_ = p.Succeed(v)
		},
		onDrop: func() {
			_ = p.Fail(fmt.Errorf("%w: %s", ErrActorDead,
				ref.Name()))
		},
	}

	if !ref.actor.post(msg) {
		_ = p.Fail(fmt.Errorf("%w: %s", ErrActorDead, ref.Name()))
	}

	return p.Future()
}
