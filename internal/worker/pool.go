// Package worker runs independent evaluations on a bounded set of goroutines
// and throttles outbound calls per host.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of work. Index is the position the result is reported at.
type Job interface {
	Index() int
	Execute(ctx context.Context) Result
}

// Result is what a Job produces.
type Result interface {
	Position() int
	Err() error
}

// Pool executes submitted jobs on a fixed number of workers.
type Pool struct {
	workers   int
	jobs      chan Job
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	inputOnce sync.Once
	closeOnce sync.Once
}

// NewPool creates a pool bound to ctx. Fewer than one worker is treated as one.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			res := job.Execute(p.ctx)
			select {
			case p.results <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false if the pool was cancelled first.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Close marks the end of submissions. Once every queued job has finished the
// results channel is closed.
func (p *Pool) Close() {
	p.inputOnce.Do(func() {
		close(p.jobs)
		go func() {
			p.wg.Wait()
			p.closeResults()
		}()
	})
}

// Results yields results as jobs complete. It must be drained concurrently
// with Submit once the queue fills up.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Shutdown cancels outstanding work and waits for workers to exit.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
		p.cancel()
	})
}
