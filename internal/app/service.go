// Package service orchestrates evaluations: it slices pairs into pools, fans
// metric computations out to a worker pool and aggregates the statistics.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wres/internal/adapters/repository"
	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/scoring"
	"github.com/okian/wres/pkg/logger"
)

// Default service configuration constants.
const (
	defaultQueueSize = 1024
	defaultHistory   = 64
	defaultStripes   = 16
)

// Service runs evaluations. Evaluations are independent and may run concurrently.
type Service struct {
	mu sync.RWMutex

	catalog *scoring.Catalog
	store   *repository.Store

	workerCount int
	queueSize   int
	history     int
	stripes     int

	started   bool
	running   int
	completed int
	failed    int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines per evaluation.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the task queue of each evaluation.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithHistory sets how many finished evaluations are retained.
func WithHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.history = n
		}
	}
}

// WithStripes sets the number of lock stripes of the aggregation map.
func WithStripes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.stripes = n
		}
	}
}

// WithCatalog sets the metric catalog.
func WithCatalog(c *scoring.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		history:     defaultHistory,
		stripes:     defaultStripes,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.catalog == nil {
		s.catalog = scoring.NewCatalog(metric.NewRegistry())
	}
	s.store = repository.NewStore(repository.WithCapacity(s.history))

	return s
}

// Start marks the service ready to accept evaluations.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("metrics", len(s.catalog.Registry().IDs())),
	)
	return nil
}

// Stop stops accepting evaluations. Running evaluations complete.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "evaluation service stopped")
}

// Catalog returns the metric catalog.
func (s *Service) Catalog() *scoring.Catalog { return s.catalog }

// Evaluation returns a retained evaluation by id.
func (s *Service) Evaluation(ctx context.Context, id uuid.UUID) (*repository.Evaluation, error) {
	return s.store.Get(ctx, id)
}

// Recent returns up to n of the most recently finished evaluations, newest first.
func (s *Service) Recent(ctx context.Context, n int) ([]*repository.Evaluation, error) {
	return s.store.Recent(ctx, n)
}

func (s *Service) begin() (logger.Logger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrStopped
	}
	s.running++
	return s.logger, nil
}

func (s *Service) end(ctx context.Context, e *repository.Evaluation, err error) {
	s.mu.Lock()
	s.running--
	if err != nil {
		s.failed++
	} else {
		s.completed++
	}
	s.mu.Unlock()

	if err == nil && e != nil {
		if serr := s.store.Save(ctx, e); serr != nil {
			s.logger.Warn(ctx, "failed to retain evaluation", logger.Error(serr))
		}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"running":     s.running,
		"completed":   s.completed,
		"failed":      s.failed,
		"retained":    s.store.Count(context.Background()),
	}

	recent, err := s.store.Recent(context.Background(), 1)
	if err == nil && len(recent) == 1 {
		last := recent[0]
		stats["lastEvaluation"] = map[string]interface{}{
			"id":         last.ID.String(),
			"feature":    last.Feature,
			"statistics": last.Results.Len(),
			"failures":   len(last.Results.Failures()),
			"durationMs": last.Duration.Milliseconds(),
			"finishedAt": last.Finished.Format(time.RFC3339),
		}
	}
	return stats
}
