package worker

import (
	"context"
	"sync"
)

// Task is a unit of work executed by a Pool
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of goroutines
type Pool struct {
	workers int
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes tasks and blocks until every started task has returned.
// Tasks still queued when ctx is cancelled are not started. It reports
// how many tasks ran.
func (p *Pool) Run(ctx context.Context, tasks []Task) int {
	queue := make(chan Task)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		runs int
	)

	workers := p.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				task(ctx)
				mu.Lock()
				runs++
				mu.Unlock()
			}
		}()
	}

submit:
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break submit
		case queue <- task:
		}
	}
	close(queue)
	wg.Wait()

	return runs
}
