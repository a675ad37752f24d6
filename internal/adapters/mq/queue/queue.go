// Package queue defines the contract for enqueuing and consuming tasks.
//
// The in-memory queue is bounded: producers block while it is full, which
// keeps the number of pools held in memory proportional to the capacity.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/wres/internal/domain/model"
	"github.com/okian/wres/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Task represents the payload type flowing through the queue.
type Task = model.Task

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task, waiting for space. It returns ErrClosed once the
	// queue is closed and the context error when ctx ends first.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue returns a channel that receives tasks as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close stops accepting tasks. Queued tasks are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.tasks = make(chan Task, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a task to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error { //nolint:gocritic // hugeParam: Task must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.tasks <- t:
		metrics.RecordQueueEnqueue()
		q.updateSize()
		return nil
	case <-q.done:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive tasks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		for t := range q.tasks {
			select {
			case out <- t:
				metrics.RecordQueueDequeue()
				q.updateSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return q.updateSize()
}

func (q *InMemoryQueue) updateSize() int {
	size := len(q.tasks)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue. Blocked producers are released
// before the task channel is closed.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)

		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed = true
		close(q.tasks)
	})
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
