// Package model contains the units of work passed between the orchestrator and the workers.
package model

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/statistic"
)

// Outcome is what a task produces: a final statistic for metrics computed
// once, or a mergeable state for metrics computed per batch.
type Outcome struct {
	Statistic statistic.Statistic
	State     statistic.State
}

// Task computes one metric for one pool.
type Task struct {
	ID      uuid.UUID     // unique per task, used in logs
	Key     statistic.Key // window and declared threshold of the pool
	Metric  metric.ID
	Batch   int // index of the batch the pool came from
	Pairs   int // sample size of the pool
	Compute func(ctx context.Context) (Outcome, error)
}

// NewTask wraps a computation into a task with a fresh id.
func NewTask(key statistic.Key, id metric.ID, batch, pairs int, compute func(ctx context.Context) (Outcome, error)) Task {
	return Task{
		ID:      uuid.New(),
		Key:     key,
		Metric:  id,
		Batch:   batch,
		Pairs:   pairs,
		Compute: compute,
	}
}

// Run executes the task. A task without a computation yields an empty outcome.
func (t Task) Run(ctx context.Context) (Outcome, error) {
	if t.Compute == nil {
		return Outcome{}, nil
	}
	return t.Compute(ctx)
}
