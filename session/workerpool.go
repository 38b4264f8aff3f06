package session

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/semaphore"
)

// Pool is the fixed-size command-dispatch worker pool: a bounded number of
// concurrent workers, with submission blocking once the queue of pending
// closures is saturated. github.com/sourcegraph/conc/pool supplies the
// bounded-goroutine pool; golang.org/x/sync/semaphore supplies the
// bounded pending-queue backpressure pool.Pool alone does not enforce
// (WithMaxGoroutines only bounds concurrently *running* work, not work
// queued ahead of it).
type Pool struct {
	p   *pool.Pool
	sem *semaphore.Weighted
}

// NewPool creates a pool with size concurrent workers and a pending queue
// bounded at queueDepth closures; Submit blocks once that depth is reached
// instead of growing the queue without limit.
func NewPool(size, queueDepth int) *Pool {
	return &Pool{
		p:   pool.New().WithMaxGoroutines(size),
		sem: semaphore.NewWeighted(int64(queueDepth)),
	}
}

// Submit blocks until a queue slot is available, then runs fn on a pool
// worker. ctx bounds only the wait for a free slot, not fn's own execution.
func (wp *Pool) Submit(ctx context.Context, fn func()) error {
	if err := wp.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	wp.p.Go(func() {
		defer wp.sem.Release(1)
		fn()
	})
	return nil
}

// Wait blocks until every submitted closure has completed.
func (wp *Pool) Wait() {
	wp.p.Wait()
}
