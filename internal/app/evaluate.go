package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/adapters/mq/queue"
	"github.com/okian/wres/internal/adapters/mq/worker"
	"github.com/okian/wres/internal/adapters/repository"
	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/model"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/scoring"
	"github.com/okian/wres/internal/domain/slicer"
	"github.com/okian/wres/internal/domain/statistic"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
	"github.com/okian/wres/pkg/logger"
	"github.com/okian/wres/pkg/metrics"
)

// Request declares what to compute for one feature.
type Request struct {
	Feature    string
	Unit       string
	Metrics    []metric.ID
	Windows    []timewindow.TimeWindow
	Thresholds []threshold.Threshold
	// Digits rounds resolved quantile thresholds; negative means no rounding.
	Digits int
}

// plan splits the requested metrics by the pair type they consume.
type plan struct {
	single      []metric.ID
	dichotomous []metric.ID
	probability []metric.ID
	ensemble    []metric.ID
}

func (s *Service) plan(req Request, ensemble bool) (plan, error) {
	var p plan
	if len(req.Metrics) == 0 {
		return p, fmt.Errorf("%w: no metrics", ErrInvalidRequest)
	}
	if len(req.Windows) == 0 {
		return p, fmt.Errorf("%w: no time windows", ErrInvalidRequest)
	}
	reg := s.catalog.Registry()
	for _, id := range req.Metrics {
		d, ok := reg.Descriptor(id)
		if !ok {
			return p, fmt.Errorf("%w: %w: %s", ErrInvalidRequest, metric.ErrUnknownMetric, id)
		}
		var err error
		switch d.Input {
		case metric.SingleValuedInput:
			_, err = s.catalog.SingleValued(id)
			p.single = append(p.single, id)
		case metric.DichotomousInput:
			_, err = s.catalog.Dichotomous(id)
			p.dichotomous = append(p.dichotomous, id)
		case metric.ProbabilityInput:
			if !ensemble {
				return p, fmt.Errorf("%w: %s needs ensemble forecasts", ErrInvalidRequest, id)
			}
			_, err = s.catalog.Probability(id)
			p.probability = append(p.probability, id)
		case metric.EnsembleInput:
			if !ensemble {
				return p, fmt.Errorf("%w: %s needs ensemble forecasts", ErrInvalidRequest, id)
			}
			_, err = s.catalog.Ensemble(id)
			p.ensemble = append(p.ensemble, id)
		default:
			err = fmt.Errorf("%w: %s for %s input", scoring.ErrUnsupportedMetric, id, d.Input)
		}
		if err != nil {
			return p, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if (len(p.dichotomous) > 0 || len(p.probability) > 0) && len(req.Thresholds) == 0 {
		return p, fmt.Errorf("%w: dichotomous and probability metrics need at least one threshold", ErrInvalidRequest)
	}
	return p, nil
}

// run is the state of one evaluation.
type run struct {
	id      uuid.UUID
	req     Request
	stats   *statistic.Map
	queue   *queue.InMemoryQueue
	catalog *scoring.Catalog
	logger  logger.Logger
}

// Record implements worker.Recorder. Failures are kept per key and metric and
// never stop the rest of the evaluation.
func (r *run) Record(ctx context.Context, t model.Task, out model.Outcome, err error) { //nolint:gocritic // hugeParam
	if err == nil {
		switch {
		case out.State != nil:
			err = r.stats.Merge(t.Key, t.Metric, out.State)
		case out.Statistic != nil:
			err = r.stats.Put(t.Key, out.Statistic)
		}
	}
	if err == nil {
		return
	}
	r.stats.Fail(t.Key, t.Metric, err)
	metrics.RecordEvaluationError(string(t.Metric))
	r.logger.Warn(ctx, "metric computation failed",
		logger.String("evaluation", r.id.String()),
		logger.String("window", t.Key.Window.String()),
		logger.String("threshold", t.Key.Threshold.String()),
		logger.String("metric", string(t.Metric)),
		logger.Int("batch", t.Batch),
		logger.Error(err),
	)
}

func (r *run) finish(id metric.ID, st statistic.State) (statistic.Statistic, error) {
	f, ok := r.catalog.Finisher(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no finisher", scoring.ErrUnsupportedMetric, id)
	}
	return f.Finish(st, r.req.Unit)
}

// pending holds the pools of non-collectable metrics until every batch is sliced.
type pending[S pairs.Pair] struct {
	keys  []statistic.Key
	pools map[statistic.Key][]*pairs.Pool[S]
	ids   map[statistic.Key][]metric.ID
}

func newPending[S pairs.Pair]() *pending[S] {
	return &pending[S]{
		pools: make(map[statistic.Key][]*pairs.Pool[S]),
		ids:   make(map[statistic.Key][]metric.ID),
	}
}

func (p *pending[S]) add(k statistic.Key, pool *pairs.Pool[S], ids []metric.ID) {
	if _, ok := p.pools[k]; !ok {
		p.keys = append(p.keys, k)
		p.ids[k] = ids
	}
	p.pools[k] = append(p.pools[k], pool)
}

// schedule enqueues the collectable metrics of each pool and defers the others.
func schedule[S pairs.Pair](
	ctx context.Context,
	r *run,
	batch int,
	sliced []slicer.Sliced[S],
	ids []metric.ID,
	get func(metric.ID) (scoring.Metric[S], error),
	later *pending[S],
) error {
	for _, sl := range sliced {
		metrics.RecordPoolCreated(sl.Pool.Len())
		var deferred []metric.ID
		for _, id := range ids {
			m, err := get(id)
			if err != nil {
				return err
			}
			c, ok := m.(scoring.Collectable[S])
			if !ok {
				deferred = append(deferred, id)
				continue
			}
			pool := sl.Pool
			task := model.NewTask(sl.Key, id, batch, pool.Len(), func(context.Context) (model.Outcome, error) {
				st, err := c.Collect(pool)
				return model.Outcome{State: st}, err
			})
			if err := r.queue.Enqueue(ctx, task); err != nil {
				return err
			}
		}
		if len(deferred) > 0 {
			later.add(sl.Key, sl.Pool, deferred)
		}
	}
	return nil
}

// flush enqueues the deferred metrics over the concatenation of every batch's pool.
func flush[S pairs.Pair](ctx context.Context, r *run, later *pending[S], get func(metric.ID) (scoring.Metric[S], error)) error {
	for _, k := range later.keys {
		pool, err := pairs.Concat(later.pools[k]...)
		if err != nil {
			for _, id := range later.ids[k] {
				r.stats.Fail(k, id, err)
			}
			continue
		}
		for _, id := range later.ids[k] {
			m, err := get(id)
			if err != nil {
				return err
			}
			task := model.NewTask(k, id, -1, pool.Len(), func(context.Context) (model.Outcome, error) {
				st, err := m.Apply(pool)
				return model.Outcome{Statistic: st}, err
			})
			if err := r.queue.Enqueue(ctx, task); err != nil {
				return err
			}
		}
	}
	return nil
}

// evaluate runs produce against a fresh queue and worker pool, then snapshots
// the aggregated statistics.
func (s *Service) evaluate(ctx context.Context, req Request, produce func(ctx context.Context, r *run) error) (*repository.Evaluation, error) {
	log, err := s.begin()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	r := &run{
		id:      uuid.New(),
		req:     req,
		stats:   statistic.NewMap(statistic.WithStripes(s.stripes)),
		queue:   queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize)),
		catalog: s.catalog,
		logger:  log,
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info(ctx, "evaluation started",
		logger.String("evaluation", r.id.String()),
		logger.String("feature", req.Feature),
		logger.Int("metrics", len(req.Metrics)),
		logger.Int("windows", len(req.Windows)),
		logger.Int("thresholds", len(req.Thresholds)),
	)

	pool := worker.NewPool(s.workerCount, r.queue, r, worker.WithLogger(log))
	pool.Start(ctx)

	perr := produce(ctx, r)
	_ = r.queue.Close()
	var werr error
	if perr != nil {
		cancel()
		_ = pool.Wait(context.Background())
	} else if werr = pool.Wait(ctx); werr == nil {
		werr = ctx.Err()
	}

	if err := errors.Join(perr, werr); err != nil {
		metrics.RecordEvaluation("error", time.Since(started).Seconds())
		log.Error(ctx, "evaluation failed",
			logger.String("evaluation", r.id.String()),
			logger.String("feature", req.Feature),
			logger.Error(err),
		)
		s.end(ctx, nil, err)
		return nil, fmt.Errorf("evaluation %s: %w", r.id, err)
	}

	results := r.stats.Results(r.finish)
	e := &repository.Evaluation{
		ID:       r.id,
		Feature:  req.Feature,
		Unit:     req.Unit,
		Started:  started,
		Finished: time.Now(),
		Results:  results,
	}
	e.Duration = e.Finished.Sub(started)

	metrics.RecordEvaluation("ok", e.Duration.Seconds())
	metrics.UpdateStatisticsCount(results.Len())
	log.Info(ctx, "evaluation finished",
		logger.String("evaluation", r.id.String()),
		logger.String("feature", req.Feature),
		logger.Int("statistics", results.Len()),
		logger.Int("failures", len(results.Failures())),
		logger.Float64("seconds", e.Duration.Seconds()),
	)
	s.end(ctx, e, nil)
	return e, nil
}

// EvaluateSingleValued evaluates batches of single-valued pairs. Each batch is
// sliced by window and threshold; collectable metrics are merged across
// batches and the others are computed once over the concatenated pools.
func (s *Service) EvaluateSingleValued(ctx context.Context, req Request, batches []slicer.Input[pairs.SingleValued]) (*repository.Evaluation, error) {
	p, err := s.plan(req, false)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, req, func(ctx context.Context, r *run) error {
		single := newPending[pairs.SingleValued]()
		dichotomous := newPending[pairs.Dichotomous]()
		for b, in := range batches {
			windows, err := slicer.ByWindow(in, req.Windows)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b, err)
			}
			for _, wp := range windows {
				if err := s.scheduleSingleValued(ctx, r, b, p, wp, single, dichotomous); err != nil {
					return fmt.Errorf("batch %d: %w", b, err)
				}
			}
		}
		if err := flush(ctx, r, single, s.catalog.SingleValued); err != nil {
			return err
		}
		return flush(ctx, r, dichotomous, s.catalog.Dichotomous)
	})
}

func (s *Service) scheduleSingleValued(
	ctx context.Context,
	r *run,
	batch int,
	p plan,
	wp *pairs.Pool[pairs.SingleValued],
	single *pending[pairs.SingleValued],
	dichotomous *pending[pairs.Dichotomous],
) error {
	req := r.req
	if len(p.single) > 0 {
		sliced, err := slicer.ByThreshold(wp, req.Thresholds, req.Digits)
		if err != nil {
			return err
		}
		if err := schedule(ctx, r, batch, sliced, p.single, s.catalog.SingleValued, single); err != nil {
			return err
		}
	}
	if len(p.dichotomous) > 0 {
		sliced, err := slicer.ToDichotomous(wp, req.Thresholds, req.Digits)
		if err != nil {
			return err
		}
		if err := schedule(ctx, r, batch, sliced, p.dichotomous, s.catalog.Dichotomous, dichotomous); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateEnsemble evaluates batches of ensemble pairs. Single-valued and
// dichotomous metrics consume the ensemble mean; probability metrics consume
// the forecast probability of each threshold; ensemble metrics consume the
// members directly.
func (s *Service) EvaluateEnsemble(ctx context.Context, req Request, batches []slicer.Input[pairs.Ensemble]) (*repository.Evaluation, error) {
	p, err := s.plan(req, true)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, req, func(ctx context.Context, r *run) error {
		single := newPending[pairs.SingleValued]()
		dichotomous := newPending[pairs.Dichotomous]()
		probability := newPending[pairs.Probability]()
		for b, in := range batches {
			windows, err := slicer.ByWindow(in, req.Windows)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b, err)
			}
			for _, wp := range windows {
				if len(p.single) > 0 || len(p.dichotomous) > 0 {
					mean, err := pairs.Transform(wp, pairs.ToEnsembleMean)
					if err != nil {
						return fmt.Errorf("batch %d: %w", b, err)
					}
					if err := s.scheduleEnsembleMean(ctx, r, b, p, wp, mean, single, dichotomous); err != nil {
						return fmt.Errorf("batch %d: %w", b, err)
					}
				}
				if len(p.probability) > 0 {
					sliced, err := slicer.ToProbability(wp, req.Thresholds, req.Digits)
					if err != nil {
						return fmt.Errorf("batch %d: %w", b, err)
					}
					if err := schedule(ctx, r, b, sliced, p.probability, s.catalog.Probability, probability); err != nil {
						return fmt.Errorf("batch %d: %w", b, err)
					}
				}
			}
		}
		if err := flush(ctx, r, single, s.catalog.SingleValued); err != nil {
			return err
		}
		if err := flush(ctx, r, dichotomous, s.catalog.Dichotomous); err != nil {
			return err
		}
		return flush(ctx, r, probability, s.catalog.Probability)
	})
}

func (s *Service) scheduleEnsembleMean(
	ctx context.Context,
	r *run,
	batch int,
	p plan,
	wp *pairs.Pool[pairs.Ensemble],
	mean *pairs.Pool[pairs.SingleValued],
	single *pending[pairs.SingleValued],
	dichotomous *pending[pairs.Dichotomous],
) error {
	req := r.req
	if len(p.single) > 0 {
		sliced, err := slicer.ByThreshold(wp, req.Thresholds, req.Digits)
		if err != nil {
			return err
		}
		means, err := slicer.EnsembleMean(sliced)
		if err != nil {
			return err
		}
		if err := schedule(ctx, r, batch, means, p.single, s.catalog.SingleValued, single); err != nil {
			return err
		}
	}
	if len(p.dichotomous) > 0 {
		sliced, err := slicer.ToDichotomous(mean, req.Thresholds, req.Digits)
		if err != nil {
			return err
		}
		if err := schedule(ctx, r, batch, sliced, p.dichotomous, s.catalog.Dichotomous, dichotomous); err != nil {
			return err
		}
	}
	return nil
}
