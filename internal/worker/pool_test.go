package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func errTask(fail bool, executed *int32) Task[error] {
	return func(ctx context.Context) error {
		if executed != nil {
			atomic.AddInt32(executed, 1)
		}
		if fail {
			return errors.New("task error")
		}
		return nil
	}
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()

	p1 := NewPool[error](ctx, 5)
	if p1.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p1.workers)
	}
	p1.Shutdown()

	p2 := NewPool[error](ctx, 0)
	if p2.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.workers)
	}
	p2.Shutdown()

	p3 := NewPool[error](ctx, -1)
	if p3.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p3.workers)
	}
	p3.Shutdown()
}

func TestPool_RunExecutesEveryTask(t *testing.T) {
	pool := NewPool[error](context.Background(), 2)
	pool.Start()

	var executed int32
	tasks := make([]Task[error], 4)
	for i := range tasks {
		tasks[i] = errTask(false, &executed)
	}

	results := pool.Run(tasks)

	if len(results) != len(tasks) {
		t.Errorf("expected %d results, got %d", len(tasks), len(results))
	}
	if atomic.LoadInt32(&executed) != int32(len(tasks)) {
		t.Errorf("expected %d executed tasks, got %d", len(tasks), executed)
	}
}

func TestPool_RunManyTasks(t *testing.T) {
	pool := NewPool[int](context.Background(), 3)
	pool.Start()

	tasks := make([]Task[int], 100)
	for i := range tasks {
		n := i
		tasks[i] = func(ctx context.Context) int { return n }
	}

	results := pool.Run(tasks)
	if len(results) != 100 {
		t.Fatalf("expected 100 results, got %d", len(results))
	}

	sum := 0
	for _, r := range results {
		sum += r
	}
	if sum != 4950 {
		t.Errorf("expected sum 4950, got %d", sum)
	}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	pool := NewPool[error](context.Background(), workers)
	pool.Start()

	var current int32
	var maxConcurrent int32
	var completed int32
	var mu sync.Mutex

	tasks := make([]Task[error], 50)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			curr := atomic.AddInt32(&current, 1)
			mu.Lock()
			if curr > maxConcurrent {
				maxConcurrent = curr
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			atomic.AddInt32(&completed, 1)
			return nil
		}
	}

	pool.Run(tasks)

	if atomic.LoadInt32(&completed) != int32(len(tasks)) {
		t.Errorf("expected %d completed tasks, got %d", len(tasks), completed)
	}

	mu.Lock()
	max := maxConcurrent
	mu.Unlock()

	if max > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", max, workers)
	}
}

func TestPool_ErrorResults(t *testing.T) {
	pool := NewPool[error](context.Background(), 2)
	pool.Start()

	results := pool.Run([]Task[error]{errTask(true, nil), errTask(false, nil)})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failures := 0
	for _, err := range results {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 error, got %d", failures)
	}
}

func TestPool_QueueAfterShutdown(t *testing.T) {
	pool := NewPool[error](context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.submit(errTask(false, nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("queueing after shutdown blocked")
	}
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool[error](ctx, 1)
	pool.Start()

	started := make(chan struct{})
	task := func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		pool.Run([]Task[error]{task})
		close(done)
	}()

	<-started
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Run did not return after parent cancel")
	}
}
