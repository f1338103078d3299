package future

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/roasbeef/agata/internal/awaiter"
	"github.com/roasbeef/agata/internal/threadpool"
	"github.com/stretchr/testify/require"
)

// TestMapSuccess maps a successful future.
func TestMapSuccess(t *testing.T) {
	t.Parallel()

	p := NewPromise[int]()
	mapped := Map(p.Future(), Inline, func(v int) (string, error) {
		return strconv.Itoa(v * 2), nil
	})
	require.False(t, mapped.Completed())

	require.NoError(t, p.Succeed(21))

	v, err := mapped.Result()
	require.NoError(t, err)
	require.Equal(t, "42", v)
}

// TestMapFailureSkipsMapper checks that a failed source short-circuits.
func TestMapFailureSkipsMapper(t *testing.T) {
	t.Parallel()

	p := NewPromise[int]()
	require.NoError(t, p.Fail(errBoom))

	called := false
	mapped := Map(p.Future(), Inline, func(v int) (int, error) {
		called = true
		return v, nil
	})

	require.False(t, called)
	cause, err := mapped.Err()
	require.NoError(t, err)
	require.ErrorIs(t, cause, errBoom)
}

// TestMapMapperErrors checks that a mapper error or panic fails the result.
func TestMapMapperErrors(t *testing.T) {
	t.Parallel()

	errMapper := errors.New("mapper failed")

	failing := Map(Completed(Success(1)), Inline,
		func(int) (int, error) {
			return 0, errMapper
		},
	)
	cause, err := failing.Err()
	require.NoError(t, err)
	require.ErrorIs(t, cause, errMapper)

	panicking := Map(Completed(Success(1)), Inline,
		func(int) (int, error) {
			panic("bad mapper")
		},
	)
	cause, err = panicking.Err()
	require.NoError(t, err)
	require.ErrorContains(t, cause, "bad mapper")
}

// TestMapResultSeesFailure checks that MapResult can recover a failure.
func TestMapResultSeesFailure(t *testing.T) {
	t.Parallel()

	recovered := MapResult(Completed(Failure[int](errBoom)), Inline,
		func(r Try[int]) Try[string] {
			if r.IsFailure() {
				return Success("recovered")
			}
			return Success("ok")
		},
	)

	v, err := recovered.Result()
	require.NoError(t, err)
	require.Equal(t, "recovered", v)
}

// TestMapTwiceFails checks that a second transformation reports the taken
// callback slot.
func TestMapTwiceFails(t *testing.T) {
	t.Parallel()

	src := NewPromise[int]().Future()
	identity := func(v int) (int, error) { return v, nil }

	_ = Map(src, Inline, identity)
	second := Map(src, Inline, identity)

	cause, err := second.Err()
	require.NoError(t, err)
	require.ErrorIs(t, cause, ErrCallbackAlreadySet)
}

// TestMapChainOnPool chains transformations across a pool.
func TestMapChainOnPool(t *testing.T) {
	t.Parallel()

	pool, err := threadpool.NewFixedPool(threadpool.FixedPoolConfig{})
	require.NoError(t, err)
	defer pool.Close()

	p := NewPromise[int]()
	exec := On(pool)

	plusOne := func(v int) (int, error) { return v + 1, nil }
	out := Map(Map(Map(p.Future(), exec, plusOne), exec, plusOne), exec,
		plusOne)

	require.NoError(t, p.Succeed(0))
	WaitAll(out)

	v, err := out.Result()
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

// TestStart runs bodies on a pool and waits for all of them.
func TestStart(t *testing.T) {
	t.Parallel()

	pool := threadpool.NewSharedPool("start-test")

	const n = 100
	futures := make([]Waitable, 0, n)
	typed := make([]*Future[int], 0, n)
	for i := 0; i < n; i++ {
		f := Start(pool, func() (int, error) {
			return i * i, nil
		})
		futures = append(futures, f)
		typed = append(typed, f)
	}

	WaitAll(futures...)

	for i, f := range typed {
		v, err := f.Result()
		require.NoError(t, err)
		require.Equal(t, i*i, v)
	}

	panicked := Start(pool, func() (int, error) {
		panic("task")
	})
	WaitAll(panicked)

	cause, err := panicked.Err()
	require.NoError(t, err)
	require.ErrorContains(t, cause, "task panicked")
}

// TestFromTask bridges spawned tasks through a poll awaiter.
func TestFromTask(t *testing.T) {
	t.Parallel()

	aw := awaiter.NewPollAwaiter("from-test", threadpool.PriorityNormal)
	defer aw.Close()

	bridges := NewBridges[string]()

	release := make(chan struct{})
	slow := awaiter.Spawn(func() (string, error) {
		<-release
		return "slow", nil
	})
	failing := awaiter.Spawn(func() (string, error) {
		return "", errBoom
	})

	slowF := From(aw, bridges, slow)
	failF := From(aw, bridges, failing)

	WaitAll(failF)
	cause, err := failF.Err()
	require.NoError(t, err)
	require.ErrorIs(t, cause, errBoom)

	require.False(t, slowF.Completed())
	close(release)

	require.Eventually(t, slowF.Completed, 5*time.Second,
		time.Millisecond)

	v, err := slowF.Result()
	require.NoError(t, err)
	require.Equal(t, "slow", v)
}

// TestWaitAllEmpty returns immediately.
func TestWaitAllEmpty(t *testing.T) {
	t.Parallel()

	WaitAll()
	WaitAll(Completed(Success(1)), Completed(Failure[int](errBoom)))
}
