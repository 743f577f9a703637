package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"govbid/internal/logger"
)

var (
	ErrClosing   = errors.New("worker pool is shutting down")
	ErrQueueFull = errors.New("worker pool queue is full")
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	isClosing atomic.Bool
	mu        sync.RWMutex // guards close(taskQueue) against concurrent Submit
	ctx       context.Context
	cancel    context.CancelFunc
	log       *logger.Logger
}

func NewWorkerPool(size, buffer int, log *logger.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	wp := &WorkerPool{
		taskQueue: make(chan Task, buffer),
		ctx:       ctx,
		cancel:    cancel,
		log:       log.With("component", "WorkerPool"),
	}

	for range size {
		wp.wg.Add(1)
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		if err := wp.run(task); err != nil {
			wp.log.Warn("Worker task failed", "error", err)
		}
	}
}

func (wp *WorkerPool) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error("Worker task panicked", "panic", r)
			err = errors.New("task panicked")
		}
	}()
	return task(wp.ctx)
}

// Submit queues t without blocking.
func (wp *WorkerPool) Submit(t Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.isClosing.Load() {
		return ErrClosing
	}
	select {
	case wp.taskQueue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. If ctx
// expires first, running tasks see their context cancelled.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.isClosing.Swap(true) {
		close(wp.taskQueue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}
