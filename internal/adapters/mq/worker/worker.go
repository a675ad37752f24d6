// Package worker runs evaluation tasks off the queue and records their outcomes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/okian/wres/internal/adapters/mq/queue"
	"github.com/okian/wres/internal/domain/model"
	"github.com/okian/wres/pkg/logger"
	"github.com/okian/wres/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Task abstracts what workers read off the queue.
type Task = queue.Task

// Recorder receives the outcome of every task, including failed ones.
// It is called concurrently from all workers.
type Recorder interface {
	Record(ctx context.Context, t Task, out model.Outcome, err error)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, t Task, out model.Outcome, err error)

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, t Task, out model.Outcome, err error) { //nolint:gocritic // hugeParam
	f(ctx, t, out, err)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker processes tasks and hands outcomes to a Recorder.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	recorder Recorder
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		recorder: recorder,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, task)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs a single task and records its outcome.
func (w *InMemoryWorker) process(ctx context.Context, task Task) { //nolint:gocritic // hugeParam: Task must be passed by value for channel semantics
	start := time.Now()
	out, err := task.Run(ctx)
	latency := float64(time.Since(start).Milliseconds())
	metrics.RecordWorkerProcessingLatency(latency)

	if err != nil {
		metrics.RecordMetricComputation(string(task.Metric), "error", latency)
		metrics.RecordErrorByComponent("worker", "metric_error")
		w.logger.Debug(ctx, "task failed",
			logger.String("task", task.ID.String()),
			logger.String("metric", string(task.Metric)),
			logger.String("pool", task.Key.String()),
			logger.Error(err),
		)
	} else {
		metrics.RecordMetricComputation(string(task.Metric), "ok", latency)
	}

	w.recorder.Record(ctx, task, out, err)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown     chan struct{}
	shutdownOnce sync.Once
	refresh      time.Duration

	logger logger.Logger
}

// NewPool creates a new worker pool. A count below one uses the number of CPUs.
func NewPool(workerCount int, queue Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		refresh:  metrics.RefreshInterval(),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			recorder,
			append(slices.Clone(opts), WithName("worker-"+strconv.Itoa(i)))...,
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)

	return pool
}

// RefreshInterval returns how often the pool samples runtime metrics.
func (p *Pool) RefreshInterval() time.Duration { return p.refresh }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater samples runtime metrics at the metrics refresh interval
// until the pool stops.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(p.refresh)
	defer ticker.Stop()

	p.updateMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained, or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	defer p.stopUpdater()
	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pool) stopUpdater() {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
}

// Shutdown gracefully shuts down the entire worker pool. Queued tasks that
// no worker has taken are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.stopUpdater()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		if err := worker.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			timedOut = true
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("worker pool shutdown timed out: %w", shutdownCtx.Err())
	}
	return nil
}
