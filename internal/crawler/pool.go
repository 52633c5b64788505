package crawler

import (
	"context"
	"errors"
	"sync"
)

// ErrFrontierFull is returned by TrySubmit when the bounded frontier queue
// cannot take another target. The engine drops the link rather than blocking
// a worker, which caps frontier growth on highly interlinked sites.
var ErrFrontierFull = errors.New("frontier queue full")

type task func(ctx context.Context)

// workerPool runs crawl tasks on a fixed set of workers over a bounded queue.
type workerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan task
	wg     sync.WaitGroup
}

func newWorkerPool(parent context.Context, concurrency, queueSize int) (*workerPool, error) {
	if concurrency <= 0 || queueSize <= 0 {
		return nil, errors.New("worker pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &workerPool{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan task, queueSize),
	}
	pool.start(concurrency)
	return pool, nil
}

func (p *workerPool) start(concurrency int) {
	// Workers drain the queue until it closes. They deliberately do not
	// bail out on context cancellation: every queued task must still run
	// (tasks observe the cancelled context and return immediately), so a
	// caller waiting on task completion never deadlocks.
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task(p.ctx)
			}
		}()
	}
}

// submit blocks until the task is queued or a context cancels. Only safe
// from outside the pool's own workers.
func (p *workerPool) submit(ctx context.Context, fn task) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- fn:
		return nil
	}
}

// trySubmit queues the task without blocking. Workers use this to enqueue
// discovered links; blocking here could deadlock the pool against itself.
func (p *workerPool) trySubmit(fn task) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.tasks <- fn:
		return nil
	default:
		return ErrFrontierFull
	}
}

// close stops the workers after the queue drains. Callers must not submit
// once close has been called.
func (p *workerPool) close() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}
