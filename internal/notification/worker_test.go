package notification

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_DispatchRunsJob(t *testing.T) {
	wp := NewWorkerPool(2, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	done := make(chan struct{})
	ok := wp.Dispatch(ctx, func(context.Context) { close(done) })
	assert.True(t, ok)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to run")
	}
}

func TestWorkerPool_InlineBeforeStart(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())

	var ran atomic.Bool
	ok := wp.Dispatch(context.Background(), func(context.Context) { ran.Store(true) })
	assert.True(t, ok)
	assert.True(t, ran.Load(), "job must run synchronously when the pool is not started")
}

func TestWorkerPool_RejectsAfterShutdown(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	wp.Start(ctx)
	cancel()
	// Give the worker a moment to observe cancellation.
	time.Sleep(20 * time.Millisecond)

	ok := wp.Dispatch(ctx, func(context.Context) { t.Error("job must not run") })
	assert.False(t, ok)
}

func TestWorkerPool_StoppedPoolDoesNotBlockLiveCaller(t *testing.T) {
	wp := NewWorkerPool(2, zerolog.Nop())
	poolCtx, cancel := context.WithCancel(context.Background())
	wp.Start(poolCtx)
	cancel()
	<-wp.done

	result := make(chan bool, 1)
	go func() {
		result <- wp.Dispatch(context.Background(), func(context.Context) {})
	}()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a stopped pool")
	}
}

func TestWorkerPool_JobRunsUnderCallerContext(t *testing.T) {
	wp := NewWorkerPool(1, zerolog.Nop())
	poolCtx, stop := context.WithCancel(context.Background())
	defer stop()
	wp.Start(poolCtx)

	passCtx, cancelPass := context.WithCancel(context.Background())
	got := make(chan context.Context, 1)
	require.True(t, wp.Dispatch(passCtx, func(ctx context.Context) { got <- ctx }))

	var jobCtx context.Context
	select {
	case jobCtx = <-got:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to run")
	}
	require.NoError(t, jobCtx.Err())

	cancelPass()
	assert.ErrorIs(t, jobCtx.Err(), context.Canceled)
	assert.NoError(t, poolCtx.Err())
}

func TestNewWorkerPool_MinimumSize(t *testing.T) {
	wp := NewWorkerPool(0, zerolog.Nop())
	assert.Equal(t, 1, wp.size)
}
