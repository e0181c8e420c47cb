package utils

import (
	"fmt"
	"sync"
)

// WorkerPool runs named jobs on a bounded number of goroutines and
// collects their errors.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	errs      map[string]error
}

// NewWorkerPool creates a WorkerPool running at most maxWorkers jobs at once.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		semaphore: make(chan struct{}, maxWorkers),
		errs:      make(map[string]error),
	}
}

// Submit enqueues a job for execution in the pool. It blocks while all
// workers are busy.
func (wp *WorkerPool) Submit(name string, job func() error) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		defer func() {
			if r := recover(); r != nil {
				wp.record(name, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := job(); err != nil {
			wp.record(name, err)
		}
	}()
}

// Wait blocks until all submitted jobs have completed and returns the
// errors keyed by job name. The map is empty when every job succeeded.
func (wp *WorkerPool) Wait() map[string]error {
	wp.wg.Wait()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	out := make(map[string]error, len(wp.errs))
	for k, v := range wp.errs {
		out[k] = v
	}
	return out
}

func (wp *WorkerPool) record(name string, err error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.errs[name] = err
}
