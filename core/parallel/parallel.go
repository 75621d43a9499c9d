// Package parallel provides the worker pool used by the hyperparameter
// search. The pool is an explicit object with a defined lifecycle (create,
// run, wait) rather than process-wide ambient parallelism, so a search
// always knows how many workers it owns and when they have drained.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers returns the conventional pool size: one worker per core,
// minus one core reserved for the coordinating goroutine.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Pool runs independent tasks with a bounded number of workers.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count; zero or negative
// selects DefaultWorkers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{workers: workers}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Run executes every task and blocks until all have finished. Task errors
// do not cancel the remaining tasks; each task is expected to record its
// own failure and return nil. The returned error is the first task error,
// kept only as a guard against tasks that violate that contract.
func (p *Pool) Run(ctx context.Context, tasks []func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task(ctx)
		})
	}
	return g.Wait()
}

// Chunked divides items into contiguous ranges and processes them with at
// most the pool's worker count of goroutines. Used for data-parallel loops
// where per-item goroutines would be wasteful.
func (p *Pool) Chunked(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	workers := p.workers
	if workers > items {
		workers = items
	}
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunk
		end := start + chunk
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
