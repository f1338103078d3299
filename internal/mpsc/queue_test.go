package mpsc

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestQueueFIFO checks single producer ordering.
func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := New[int]()
	require.True(t, q.Empty())

	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	require.False(t, q.Empty())
	require.Equal(t, 10, q.Len())

	for i := 0; i < 10; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	_, ok := q.Pop()
	require.False(t, ok)
	require.True(t, q.Empty())
	require.Zero(t, q.Len())
}

// TestQueueConcurrentProducers checks that nothing is lost or duplicated
// and that each producer's values keep their relative order.
func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	const (
		producers = 8
		perProd   = 10000
	)

	type item struct {
		producer int
		seq      int
	}

	q := New[item]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				q.Push(item{producer: p, seq: i})
			}
		}(p)
	}

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}

	received := 0
	for received < producers*perProd {
		v, ok := q.Pop()
		if !ok {
			runtime.Gosched()
			continue
		}

		require.Equal(t, last[v.producer]+1, v.seq)
		last[v.producer] = v.seq
		received++
	}

	wg.Wait()
	require.True(t, q.Empty())
}

// TestQueueModel compares the queue with a slice model.
func TestQueueModel(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		q := New[int]()
		var model []int

		ops := rapid.IntRange(1, 200).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			if rapid.Bool().Draw(t, "push") {
				v := rapid.Int().Draw(t, "value")
				q.Push(v)
				model = append(model, v)
				continue
			}

			v, ok := q.Pop()
			if len(model) == 0 {
				if ok {
					t.Fatalf("pop from empty queue returned %d", v)
				}
				continue
			}
			if !ok || v != model[0] {
				t.Fatalf("pop got (%d, %v), want %d", v, ok,
					model[0])
			}
			model = model[1:]
		}

		if q.Len() != len(model) {
			t.Fatalf("len %d, model %d", q.Len(), len(model))
		}
	})
}
