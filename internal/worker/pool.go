package worker

import (
	"context"
	"sync"
)

// Task is a unit of work producing a T
type Task[T any] func(ctx context.Context) T

// Pool runs tasks on a fixed number of goroutines
type Pool[T any] struct {
	workers    int
	tasks      chan Task[T]
	results    chan T
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a new pool with the specified number of workers.
// The pool stops early when ctx is cancelled.
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T]{
		workers:    workers,
		tasks:      make(chan Task[T], workers*2),
		results:    make(chan T, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			result := task(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// submit queues a task; it is dropped if the pool was cancelled
func (p *Pool[T]) submit(task Task[T]) {
	select {
	case <-p.ctx.Done():
	case p.tasks <- task:
	}
}

// Run queues every task from a separate goroutine and collects all results.
// It returns early, with the results gathered so far, once the pool's context is cancelled.
func (p *Pool[T]) Run(tasks []Task[T]) []T {
	go func() {
		for _, t := range tasks {
			p.submit(t)
		}
		close(p.tasks)
	}()
	return p.collect()
}

func (p *Pool[T]) collect() []T {
	go func() {
		p.wg.Wait()
		p.closeResults()
		p.cancelFunc()
	}()

	var results []T
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Shutdown stops the pool immediately
func (p *Pool[T]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool[T]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
