// Package worker provides a bounded worker pool for parallel document
// ingestion. Jobs carry their own results; the pool never interprets
// them beyond delivery.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work to be executed by the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job execution.
type Result interface {
	Err() error
}

// Pool manages a fixed set of workers that execute jobs concurrently.
// Submit all jobs after Start, then call Wait exactly once to collect
// the results. Results are appended as workers finish, so submission
// never deadlocks however many jobs are queued.
type Pool struct {
	workers int
	jobs    chan Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	results []Result
}

// NewPool creates a pool with the given number of workers. The pool
// stops accepting and executing work when ctx is cancelled.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: workers,
		// Buffered so a burst of submissions does not block the producer.
		jobs:   make(chan Job, workers*2),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			p.mu.Lock()
			p.results = append(p.results, result)
			p.mu.Unlock()
		}
	}
}

// Submit queues a job for execution. Submissions after cancellation
// are dropped.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobs <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it and
// returns all results. The pool cannot be reused afterwards.
func (p *Pool) Wait() []Result {
	close(p.jobs)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown cancels outstanding work and waits for the workers to exit.
// Results of jobs that finished before the cancellation remain
// available via Wait on the drained queue.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
