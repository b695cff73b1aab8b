package engine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerPool_DrainProcessesQueued(t *testing.T) {
	var processed atomic.Int32
	p := newWorkerPool[int](context.Background(), 2, 16, func(_ context.Context, n int) {
		processed.Add(int32(n))
	})

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Enqueue(context.Background(), 1))
	}
	p.Drain()
	require.EqualValues(t, 10, processed.Load())

	require.ErrorIs(t, p.Enqueue(context.Background(), 1), errPoolClosed)
	p.Drain() // idempotent
}

func TestWorkerPool_EnqueueHonoursContext(t *testing.T) {
	block := make(chan struct{})
	p := newWorkerPool[int](context.Background(), 1, 1, func(context.Context, int) { <-block })
	defer func() {
		close(block)
		p.Drain()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Enqueue(ctx, 1), context.Canceled)
	require.Equal(t, 1, p.QueueCap())
}
