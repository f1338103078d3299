package bufpool

import (
	"sync"
	"testing"

	"github.com/roasbeef/agata/internal/ensure"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestReleaseWrongSize checks that foreign buffers are rejected.
func TestReleaseWrongSize(t *testing.T) {
	t.Parallel()

	p, err := New(16, 4)
	require.NoError(t, err)

	buf := p.Acquire()
	require.Len(t, buf, 16)

	require.ErrorIs(t, p.Release(make([]byte, 8)), ErrBufferSize)
	require.ErrorIs(t, p.Release(buf[:15]), ErrBufferSize)
	require.NoError(t, p.Release(buf))
	require.EqualValues(t, 1, p.Pooled())
}

// TestBoundedAllocation checks that cycling up to the pool size never
// allocates more than that many buffers, and that overflow is discarded.
func TestBoundedAllocation(t *testing.T) {
	t.Parallel()

	const maxIdle = 8

	p, err := New(32, maxIdle)
	require.NoError(t, err)
	require.Equal(t, maxIdle, p.MaxPoolSize())
	require.Equal(t, 32, p.BufferSize())

	for round := 0; round < 100; round++ {
		held := make([][]byte, 0, maxIdle)
		for i := 0; i < maxIdle; i++ {
			held = append(held, p.Acquire())
		}
		for _, buf := range held {
			require.NoError(t, p.Release(buf))
		}
	}
	require.EqualValues(t, maxIdle, p.Allocated())
	require.EqualValues(t, maxIdle, p.Pooled())

	// One extra buffer beyond the limit is dropped without error.
	extra := make([]byte, 32)
	require.NoError(t, p.Release(extra))
	require.EqualValues(t, maxIdle, p.Pooled())
}

// TestConstructorPreconditions checks argument validation.
func TestConstructorPreconditions(t *testing.T) {
	t.Parallel()

	_, err := New(0, 1)
	require.ErrorIs(t, err, ensure.ErrPrecondition)

	_, err = New(1, -1)
	require.ErrorIs(t, err, ensure.ErrPrecondition)

	p, err := New(4, 0)
	require.NoError(t, err)
	require.NoError(t, p.Release(p.Acquire()))
	require.Zero(t, p.Pooled())
}

// TestConcurrentCycles hammers the pool from several goroutines.
func TestConcurrentCycles(t *testing.T) {
	t.Parallel()

	const (
		workers = 8
		maxIdle = 16
	)

	p, err := New(64, maxIdle)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				buf := p.Acquire()
				buf[0] = byte(w)
				if err := p.Release(buf); err != nil {
					t.Errorf("release: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Each worker holds at most one buffer at a time.
	require.LessOrEqual(t, p.Allocated(), int64(workers))
	require.LessOrEqual(t, p.Pooled(), int64(maxIdle))
}

// TestPoolModel checks the counters against a simple model under random
// acquire and release sequences.
func TestPoolModel(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		maxIdle := rapid.IntRange(0, 10).Draw(rt, "maxIdle")
		p, err := New(8, maxIdle)
		if err != nil {
			rt.Fatalf("new: %v", err)
		}

		var (
			held      [][]byte
			pooled    int
			allocated int
		)
		steps := rapid.IntRange(0, 200).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(held) > 0 && rapid.Bool().Draw(rt, "release") {
				buf := held[len(held)-1]
				held = held[:len(held)-1]
				if err := p.Release(buf); err != nil {
					rt.Fatalf("release: %v", err)
				}
				if pooled < maxIdle {
					pooled++
				}
				continue
			}

			held = append(held, p.Acquire())
			if pooled > 0 {
				pooled--
			} else {
				allocated++
			}
		}

		if int(p.Pooled()) != pooled {
			rt.Fatalf("pooled %d, model %d", p.Pooled(), pooled)
		}
		if int(p.Allocated()) != allocated {
			rt.Fatalf("allocated %d, model %d", p.Allocated(),
				allocated)
		}
	})
}
