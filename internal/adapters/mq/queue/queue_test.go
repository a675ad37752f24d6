package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/model"
	"github.com/okian/wres/internal/domain/statistic"
)

func task(id metric.ID) model.Task {
	return model.NewTask(statistic.Key{}, id, 0, 0, nil)
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	t1 := task(metric.MeanError)
	if err := q.Enqueue(ctx, t1); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != t1.ID {
		t.Errorf("expected task %s, got %s", t1.ID, got.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_BlocksWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, task(metric.MeanError)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(short, task(metric.MeanError)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while full, got %v", err)
	}

	// A consumer frees space for a blocked producer.
	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, task(metric.SampleSize)) }()
	tasks := q.Dequeue(ctx)
	<-tasks

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected blocked enqueue to succeed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked enqueue was not released")
	}

	if got := <-tasks; got.Metric != metric.SampleSize {
		t.Errorf("expected %s, got %s", metric.SampleSize, got.Metric)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, task(metric.MeanError)); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- q.Enqueue(ctx, task(metric.MeanError)) }()
	time.Sleep(10 * time.Millisecond)

	if err := q.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed for blocked producer, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked producer was not released by close")
	}

	if err := q.Enqueue(ctx, task(metric.MeanError)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}

	// Queued tasks are still delivered, then the channel closes.
	n := 0
	for range q.Dequeue(ctx) {
		n++
	}
	if n != 1 {
		t.Errorf("expected 1 drained task, got %d", n)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8))
	ctx := context.Background()
	producers := 10
	perProducer := 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if err := q.Enqueue(ctx, task(metric.MeanError)); err != nil {
					t.Errorf("enqueue failed: %v", err)
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		_ = q.Close()
	}()

	received := 0
	for range q.Dequeue(ctx) {
		received++
	}
	if received != producers*perProducer {
		t.Errorf("expected %d tasks, got %d", producers*perProducer, received)
	}
}
