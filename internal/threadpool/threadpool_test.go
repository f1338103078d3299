package threadpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/agata/internal/ensure"
	"github.com/stretchr/testify/require"
)

// runAll schedules n counting units on pool from several goroutines and
// waits for every one of them to run.
func runAll(t *testing.T, pool ThreadPool, n int) {
	t.Helper()

	var (
		ran  atomic.Int64
		done sync.WaitGroup
	)
	done.Add(n)

	const producers = 4
	var submit sync.WaitGroup
	for p := 0; p < producers; p++ {
		submit.Add(1)
		go func(p int) {
			defer submit.Done()
			for i := p; i < n; i += producers {
				pool.Schedule(func() {
					ran.Add(1)
					done.Done()
				})
			}
		}(p)
	}
	submit.Wait()

	waitGroup(t, &done)
	require.EqualValues(t, n, ran.Load())
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("scheduled work did not finish")
	}
}

// TestSharedPoolRunsEverything checks the shared pool executes all work.
func TestSharedPoolRunsEverything(t *testing.T) {
	t.Parallel()

	pool := NewSharedPool("shared-test")
	require.Equal(t, "shared-test", pool.Name())

	runAll(t, pool, 10000)
}

// TestFixedPoolRunsEverything checks the fixed pool executes all work,
// including work that overflows a tiny run queue.
func TestFixedPoolRunsEverything(t *testing.T) {
	t.Parallel()

	pool, err := NewFixedPool(FixedPoolConfig{
		Name:          fn.Some("fixed-test"),
		Workers:       fn.Some(3),
		QueueCapacity: fn.Some(2),
	})
	require.NoError(t, err)
	defer pool.Close()

	require.Equal(t, "fixed-test", pool.Name())
	require.Equal(t, 3, pool.Workers())

	runAll(t, pool, 20000)
}

// TestFixedPoolDefaults checks the default configuration.
func TestFixedPoolDefaults(t *testing.T) {
	t.Parallel()

	pool, err := NewFixedPool(DefaultFixedPoolConfig())
	require.NoError(t, err)
	defer pool.Close()

	require.Positive(t, pool.Workers())
	require.Contains(t, pool.Name(), "fixed-")
}

// TestFixedPoolRejectsBadConfig checks construction preconditions.
func TestFixedPoolRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewFixedPool(FixedPoolConfig{Workers: fn.Some(0)})
	require.ErrorIs(t, err, ensure.ErrPrecondition)

	_, err = NewFixedPool(FixedPoolConfig{QueueCapacity: fn.Some(1)})
	require.ErrorIs(t, err, ensure.ErrPrecondition)
}

// TestFixedPoolCloseDrains checks that Close runs queued work first and that
// later work is dropped.
func TestFixedPoolCloseDrains(t *testing.T) {
	t.Parallel()

	pool, err := NewFixedPool(FixedPoolConfig{
		Workers:       fn.Some(1),
		QueueCapacity: fn.Some(4),
	})
	require.NoError(t, err)

	block := make(chan struct{})
	pool.Schedule(func() { <-block })

	var ran atomic.Int32
	for i := 0; i < 100; i++ {
		pool.Schedule(func() { ran.Add(1) })
	}

	close(block)
	pool.Close()
	require.EqualValues(t, 100, ran.Load())

	pool.Schedule(func() { ran.Add(1) })
	time.Sleep(10 * time.Millisecond)
	require.EqualValues(t, 100, ran.Load())

	pool.Close()
}

// TestFixedPoolScheduleRacingClose schedules from several goroutines while
// the pool closes and checks that every unit either ran or was counted as
// dropped, and that nothing runs once Close has returned.
func TestFixedPoolScheduleRacingClose(t *testing.T) {
	t.Parallel()

	const producers = 8

	for round := 0; round < 100; round++ {
		pool, err := NewFixedPool(FixedPoolConfig{
			Workers:       fn.Some(2),
			QueueCapacity: fn.Some(8),
		})
		require.NoError(t, err)

		var (
			ran       atomic.Int64
			scheduled atomic.Int64
			stop      atomic.Bool
			wg        sync.WaitGroup
		)
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for !stop.Load() {
					scheduled.Add(1)
					pool.Schedule(func() { ran.Add(1) })
				}
			}()
		}

		time.Sleep(time.Millisecond)
		pool.Close()
		afterClose := ran.Load()

		stop.Store(true)
		wg.Wait()

		require.Equal(t, afterClose, ran.Load(), "round %d", round)
		require.Equal(t, scheduled.Load(), ran.Load()+pool.Dropped(),
			"round %d", round)
	}
}

// TestPanicDoesNotKillWorker checks that a panicking unit leaves the worker
// usable.
func TestPanicDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	pool, err := NewFixedPool(FixedPoolConfig{Workers: fn.Some(1)})
	require.NoError(t, err)
	defer pool.Close()

	pool.Schedule(func() { panic("unit") })

	done := make(chan struct{})
	pool.ScheduleAction(ActionFunc(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after panic")
	}
}

// TestWrapperRecycling checks that callable wrappers are returned to the
// free-list after running.
func TestWrapperRecycling(t *testing.T) {
	a := wrap(func() {})
	w, ok := a.(*funcAction)
	require.True(t, ok)
	require.NotNil(t, w.fn)

	a.Invoke()
	require.Nil(t, w.fn)
	require.Positive(t, funcActions.Len())
}

// TestParsePriority checks priority flag parsing.
func TestParsePriority(t *testing.T) {
	t.Parallel()

	for p, name := range priorityNames {
		got, err := ParsePriority(name)
		require.NoError(t, err)
		require.Equal(t, p, got)
		require.Equal(t, name, p.String())
	}

	got, err := ParsePriority(" Above-Normal ")
	require.NoError(t, err)
	require.Equal(t, PriorityAboveNormal, got)

	_, err = ParsePriority("realtime")
	require.Error(t, err)

	var zero Priority
	require.Equal(t, PriorityNormal, zero)
	require.Zero(t, PriorityNormal.niceValue())
	require.Greater(t, PriorityLowest.niceValue(),
		PriorityHighest.niceValue())
}
