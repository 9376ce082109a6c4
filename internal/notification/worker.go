package notification

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// job is one independent unit of dispatch work. It runs under the context
// of the caller that submitted it.
type job func(ctx context.Context)

type task struct {
	ctx context.Context
	run job
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan task
	done    chan struct{}
	started atomic.Bool
	log     zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, log zerolog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size: size,
		// Unbuffered: a job handed over is always picked up by a live worker.
		jobs: make(chan task),
		done: make(chan struct{}),
		log:  log.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the worker goroutines. Calling it again is a no-op.
func (wp *WorkerPool) Start(ctx context.Context) {
	if !wp.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		close(wp.done)
	}()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case t := <-wp.jobs:
			t.run(t.ctx)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch hands a job to the pool and reports whether it was accepted.
// Before Start the job runs inline on the caller's goroutine. Once the
// pool's context is done no job is accepted.
func (wp *WorkerPool) Dispatch(ctx context.Context, j job) bool {
	if !wp.started.Load() {
		j(ctx)
		return true
	}
	select {
	case <-wp.done:
		return false
	default:
	}
	select {
	case wp.jobs <- task{ctx: ctx, run: j}:
		return true
	case <-wp.done:
		return false
	case <-ctx.Done():
		return false
	}
}
