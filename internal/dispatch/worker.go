package dispatch

import (
	"context"
	"errors"
	"sync"

	logx "seerrgram/pkg/logx"
)

// ErrQueueFull is returned by Enqueue when the work queue is at
// capacity; the boundary layer maps it to backpressure (503).
var ErrQueueFull = errors.New("dispatch queue full")

// Queue decouples webhook acceptance from delivery: the HTTP handler
// enqueues and returns immediately, workers dispatch in the background.
// Delivery failures are therefore never visible to the original caller.
type Queue struct {
	engine  *Engine
	jobs    chan RawEvent
	workers int
	log     logx.Logger

	mu     sync.Mutex
	closed bool
}

func NewQueue(engine *Engine, workers, size int, log logx.Logger) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if size <= 0 {
		size = 256
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Queue{
		engine:  engine,
		jobs:    make(chan RawEvent, size),
		workers: workers,
		log:     log,
	}
}

// Enqueue hands an event to the workers without blocking. After
// shutdown it reports the queue as full rather than accepting work that
// would never run.
func (q *Queue) Enqueue(e RawEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueFull
	}
	select {
	case q.jobs <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending reports the number of queued events.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Run starts the workers and blocks until ctx is cancelled, then drains
// what is already queued before returning. Each event is processed to
// completion by exactly one worker; there is no ordering guarantee
// between distinct events.
func (q *Queue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q.worker(ctx, n)
		}(i)
	}

	<-ctx.Done()
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	wg.Wait()
	return nil
}

func (q *Queue) worker(ctx context.Context, n int) {
	log := q.log.With(logx.Int("worker", n))
	for e := range q.jobs {
		// Dispatch outlives ctx cancellation so queued events still
		// complete during shutdown.
		if _, err := q.engine.Dispatch(context.WithoutCancel(ctx), e); err != nil {
			log.Error("dispatch failed", logx.Err(err))
		}
	}
}
