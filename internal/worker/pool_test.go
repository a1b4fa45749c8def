package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/regradar/internal/logger"
)

func TestPoolRunsTasks(t *testing.T) {
	pool, err := NewPool(Config{Name: "test", Workers: 2, QueueSize: 10}, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}

	wg.Wait()
	require.NoError(t, pool.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 5, ran)

	submitted, completed, rejected := pool.Stats()
	require.EqualValues(t, 5, submitted)
	require.EqualValues(t, 5, completed)
	require.EqualValues(t, 0, rejected)
}

func TestPoolRejectsWhenFull(t *testing.T) {
	pool, err := NewPool(Config{Name: "test", Workers: 1, QueueSize: 1}, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	block := make(chan struct{})
	started := make(chan struct{})

	// Occupy the single worker.
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-block
	}))
	<-started

	// Fill the queue.
	require.NoError(t, pool.Submit(func(ctx context.Context) {}))

	// Next submission is rejected, not dropped silently.
	err = pool.Submit(func(ctx context.Context) {})
	require.ErrorIs(t, err, ErrQueueFull)

	_, _, rejected := pool.Stats()
	require.EqualValues(t, 1, rejected)

	close(block)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestPoolRejectsWhenStopped(t *testing.T) {
	pool, err := NewPool(Config{Name: "test", Workers: 1, QueueSize: 1}, logger.NewNoOp())
	require.NoError(t, err)

	err = pool.Submit(func(ctx context.Context) {})
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestPoolDrainsQueuedTasksOnStop(t *testing.T) {
	pool, err := NewPool(Config{Name: "test", Workers: 1, QueueSize: 5}, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}

	require.NoError(t, pool.Stop(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, ran, "queued tasks still run during drain")
}

func TestPoolRecoversFromPanic(t *testing.T) {
	pool, err := NewPool(Config{Name: "test", Workers: 1, QueueSize: 2}, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) { panic("boom") }))
	require.NoError(t, pool.Submit(func(ctx context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}

	require.NoError(t, pool.Stop(context.Background()))
}

func TestPoolSubmitDuringStop(t *testing.T) {
	// Submissions racing Stop's channel close must either land or get
	// ErrNotRunning; a send on the closed channel would panic here.
	for i := 0; i < 50; i++ {
		pool, err := NewPool(Config{Name: "test", Workers: 2, QueueSize: 4}, logger.NewNoOp())
		require.NoError(t, err)
		require.NoError(t, pool.Start())

		start := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for k := 0; k < 20; k++ {
					if err := pool.Submit(func(ctx context.Context) {}); errors.Is(err, ErrNotRunning) {
						return
					}
				}
			}()
		}

		close(start)
		require.NoError(t, pool.Stop(context.Background()))
		wg.Wait()
	}
}

func TestPoolConfigValidation(t *testing.T) {
	_, err := NewPool(Config{Name: "test", Workers: 0, QueueSize: 1}, logger.NewNoOp())
	require.Error(t, err)

	_, err = NewPool(Config{Name: "test", Workers: 1, QueueSize: 0}, logger.NewNoOp())
	require.Error(t, err)
}
