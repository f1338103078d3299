package threadpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/agata/internal/ensure"
)

// DefaultQueueCapacity is the size of the lock-free run queue of a
// FixedPool. Work beyond it spills into an overflow list.
const DefaultQueueCapacity = 4096

// FixedPoolConfig configures a FixedPool.
type FixedPoolConfig struct {
	// Name identifies the pool in logs. A random name is generated if
	// none is given.
	Name fn.Option[string]

	// Workers is the number of dedicated workers. Defaults to the
	// number of CPUs.
	Workers fn.Option[int]

	// Priority is applied to every worker thread.
	Priority Priority

	// QueueCapacity sizes the lock-free run queue.
	QueueCapacity fn.Option[int]
}

// DefaultFixedPoolConfig returns a config with one normal priority worker
// per CPU.
func DefaultFixedPoolConfig() FixedPoolConfig {
	return FixedPoolConfig{
		Priority: PriorityNormal,
	}
}

// FixedPool executes work on a fixed set of dedicated workers. Each worker
// is pinned to its own OS thread.
//
// Schedule never blocks and never drops work: when the lock-free run queue
// is full, units spill into a mutex guarded overflow list that workers
// drain once the run queue is empty.
type FixedPool struct {
	name     string
	workers  int
	priority Priority

	runq lfq.Queue[Action]

	overflowMu  sync.Mutex
	overflow    []Action
	overflowLen atomix.Int64

	// wake holds at most one token per worker. A worker that found no
	// work parks on it.
	wake chan struct{}

	// scheduling counts ScheduleAction calls between their closed check
	// and the end of their enqueue. Close waits for it to reach zero
	// before releasing the workers, so nothing lands in the queues after
	// the workers' final drain.
	scheduling atomix.Int64

	// dropped counts units rejected because the pool was closed.
	dropped atomix.Int64

	quit   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewFixedPool starts a pool according to cfg.
func NewFixedPool(cfg FixedPoolConfig) (*FixedPool, error) {
	workers := cfg.Workers.UnwrapOr(runtime.NumCPU())
	if err := ensure.That(workers > 0, "workers",
		"must be positive"); err != nil {

		return nil, err
	}

	capacity := cfg.QueueCapacity.UnwrapOr(DefaultQueueCapacity)
	if err := ensure.That(capacity >= 2, "queue capacity",
		"must be at least 2"); err != nil {

		return nil, err
	}

	name := cfg.Name.UnwrapOrFunc(func() string {
		return "fixed-" + uuid.NewString()
	})

	p := &FixedPool{
		name:     name,
		workers:  workers,
		priority: cfg.Priority,
		runq:     lfq.BuildMPMC[Action](lfq.New(capacity)),
		wake:     make(chan struct{}, workers),
		quit:     make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}

	log.DebugS(context.Background(), "Fixed thread pool started",
		"pool", name, "workers", workers,
		"priority", cfg.Priority.String())

	return p, nil
}

// Name returns the pool name.
func (p *FixedPool) Name() string {
	return p.name
}

// Workers returns the number of workers.
func (p *FixedPool) Workers() int {
	return p.workers
}

// Schedule runs fn on one of the pool's workers.
func (p *FixedPool) Schedule(fn func()) {
	p.ScheduleAction(wrap(fn))
}

// ScheduleAction runs a on one of the pool's workers. Work scheduled after
// Close is dropped with a warning.
func (p *FixedPool) ScheduleAction(a Action) {
	p.scheduling.Add(1)
	defer p.scheduling.Add(-1)

	if p.closed.Load() {
		p.dropped.Add(1)
		log.WarnS(context.Background(), "Work scheduled on closed pool",
			nil, "pool", p.name)

		return
	}

	if err := p.runq.Enqueue(&a); err != nil {
		p.overflowMu.Lock()
		p.overflow = append(p.overflow, a)
		p.overflowLen.Add(1)
		p.overflowMu.Unlock()
	}

	// If the wake buffer is full every worker already has a pending
	// token and will look at the queues again.
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting work, lets the workers finish everything already
// queued and waits for them to exit.
func (p *FixedPool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	var bo iox.Backoff
	for p.scheduling.Load() != 0 {
		bo.Wait()
	}

	close(p.quit)
	p.wg.Wait()

	log.DebugS(context.Background(), "Fixed thread pool stopped",
		"pool", p.name, "dropped", p.dropped.Load())
}

// Dropped returns the number of units rejected because the pool was
// closed.
func (p *FixedPool) Dropped() int64 {
	return p.dropped.Load()
}

// next takes the next queued unit, preferring the lock-free run queue.
func (p *FixedPool) next() (Action, bool) {
	if a, err := p.runq.Dequeue(); err == nil {
		return a, true
	}

	if p.overflowLen.Load() == 0 {
		return nil, false
	}

	p.overflowMu.Lock()
	defer p.overflowMu.Unlock()

	if len(p.overflow) == 0 {
		return nil, false
	}

	a := p.overflow[0]
	p.overflow[0] = nil
	p.overflow = p.overflow[1:]
	p.overflowLen.Add(-1)

	return a, true
}

// worker is the loop of one dedicated worker.
func (p *FixedPool) worker(idx int) {
	defer p.wg.Done()

	if err := PinThread(p.priority); err != nil {
		log.WarnS(context.Background(), "Unable to set worker priority",
			err, "pool", p.name, "worker", idx)
	}

	for {
		if a, ok := p.next(); ok {
			run(p.name, a)
			continue
		}

		select {
		case <-p.wake:

		case <-p.quit:
			for {
				a, ok := p.next()
				if !ok {
					return
				}
				run(p.name, a)
			}
		}
	}
}

var _ ThreadPool = (*FixedPool)(nil)

// String implements fmt.Stringer.
func (p *FixedPool) String() string {
	return fmt.Sprintf("FixedPool(%s, workers=%d)", p.name, p.workers)
}
