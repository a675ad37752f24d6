package main

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/wres/internal/adapters/http/api"
	"github.com/okian/wres/internal/adapters/reading"
	"github.com/okian/wres/internal/adapters/repository"
	"github.com/okian/wres/internal/adapters/writing"
	service "github.com/okian/wres/internal/app"
	"github.com/okian/wres/internal/config"
	"github.com/okian/wres/internal/domain/climatology"
	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/persistence"
	"github.com/okian/wres/internal/domain/scoring"
	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/pkg/logger"
	"github.com/okian/wres/pkg/metrics"
)

func newEvaluateCmd(configPath *string) *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the declared evaluation and write its statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			return evaluate(cmd.Context(), cfg, cmd.OutOrStdout(), serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "keep serving the monitoring routes after the evaluation until interrupted")
	return cmd
}

// series holds what was read for one evaluation.
type series[R any] struct {
	left     []*timeseries.TimeSeries[float64]
	right    [][]*timeseries.TimeSeries[R]
	baseline []*timeseries.TimeSeries[R]
}

// load reads the left, right and baseline sources concurrently. Right sources
// are read through a bounded chunked reader, one batch per source.
func load[R any](
	ctx context.Context,
	cfg *config.Config,
	reader *reading.CSV,
	readRight func(ctx context.Context, path string) ([]*timeseries.TimeSeries[R], error),
) (*series[R], error) {
	e := &cfg.Evaluation
	out := &series[R]{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.left, err = reader.SingleValuedFile(gctx, e.Left)
		return err
	})
	g.Go(func() error {
		loads := make([]reading.Load[[]*timeseries.TimeSeries[R]], len(e.Right))
		for i, path := range e.Right {
			loads[i] = func(ctx context.Context) ([]*timeseries.TimeSeries[R], error) { return readRight(ctx, path) }
		}
		var err error
		out.right, err = reading.ReadAll(gctx, cfg.ReadConcurrency, loads)
		return err
	})
	if e.Baseline != "" {
		g.Go(func() error {
			var err error
			out.baseline, err = readRight(gctx, e.Baseline)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// prepare restricts the series to the declared feature and converts them to the declared unit.
func prepare[R any](e *config.Evaluation, in *series[R], apply func(R, func(float64) float64) R) (*timeseries.TimeSeries[float64], *series[R], error) {
	lefts, err := toUnit(in.left, e.Unit, convertValue)
	if err != nil {
		return nil, nil, err
	}
	left, err := observed(lefts, e.Feature)
	if err != nil {
		return nil, nil, err
	}
	out := &series[R]{right: make([][]*timeseries.TimeSeries[R], len(in.right))}
	for i, batch := range in.right {
		if out.right[i], err = toUnit(ofFeature(batch, e.Feature), e.Unit, apply); err != nil {
			return nil, nil, err
		}
	}
	if out.baseline, err = toUnit(ofFeature(in.baseline, e.Feature), e.Unit, apply); err != nil {
		return nil, nil, err
	}
	return left, out, nil
}

func generator(ctx context.Context, e *config.Evaluation, left *timeseries.TimeSeries[float64]) (*climatology.Generator, error) {
	var opts []climatology.Option
	if e.Climatology.Bounded() {
		opts = append(opts, climatology.WithInterval(e.Climatology.Start, e.Climatology.End))
	}
	source := func(context.Context) ([]*timeseries.TimeSeries[float64], error) {
		return []*timeseries.TimeSeries[float64]{left}, nil
	}
	return climatology.New(ctx, source, nil, e.Unit, opts...)
}

func persister(ctx context.Context, e *config.Evaluation, left *timeseries.TimeSeries[float64]) (*persistence.Generator, error) {
	source := func(context.Context) ([]*timeseries.TimeSeries[float64], error) {
		return []*timeseries.TimeSeries[float64]{left}, nil
	}
	return persistence.New(ctx, source, e.Unit, persistence.WithOrder(e.Persistence.Order))
}

func evaluateSingleValued(ctx context.Context, cfg *config.Config, svc *service.Service, req service.Request) (*repository.Evaluation, error) {
	e := &cfg.Evaluation
	reader := reading.NewCSV()
	read, err := load(ctx, cfg, reader, reader.SingleValuedFile)
	if err != nil {
		return nil, err
	}
	left, in, err := prepare(e, read, convertValue)
	if err != nil {
		return nil, err
	}

	var baseline baselineFunc[float64, pairs.SingleValued]
	switch {
	case e.Baseline != "":
		baseline = sourceBaseline(in.baseline, pairs.SingleValuedOf)
	case e.Climatology.Enabled:
		g, err := generator(ctx, e, left)
		if err != nil {
			return nil, err
		}
		baseline = climatologyBaseline[float64](g, climatologyMean)
	case e.Persistence.Enabled:
		g, err := persister(ctx, e, left)
		if err != nil {
			return nil, err
		}
		baseline = persistenceBaseline[float64](g, pairs.SingleValuedOf)
	}

	meta := pairs.Metadata{Feature: e.Feature, Unit: e.Unit, TimeScale: left.Metadata().TimeScale}
	batches, err := inputs(ctx, meta, left, in.right, pairs.SingleValuedOf, baseline)
	if err != nil {
		return nil, err
	}
	return svc.EvaluateSingleValued(ctx, req, batches)
}

func evaluateEnsemble(ctx context.Context, cfg *config.Config, svc *service.Service, req service.Request) (*repository.Evaluation, error) {
	e := &cfg.Evaluation
	reader := reading.NewCSV()
	read, err := load(ctx, cfg, reader, reader.EnsembleFile)
	if err != nil {
		return nil, err
	}
	left, in, err := prepare(e, read, convertEnsemble)
	if err != nil {
		return nil, err
	}

	var baseline baselineFunc[timeseries.Ensemble, pairs.Ensemble]
	switch {
	case e.Baseline != "":
		baseline = sourceBaseline(in.baseline, pairs.EnsembleOf)
	case e.Climatology.Enabled:
		g, err := generator(ctx, e, left)
		if err != nil {
			return nil, err
		}
		baseline = climatologyBaseline[timeseries.Ensemble](g, pairs.EnsembleOf)
	case e.Persistence.Enabled:
		g, err := persister(ctx, e, left)
		if err != nil {
			return nil, err
		}
		baseline = persistenceBaseline[timeseries.Ensemble](g, persistedMember)
	}

	meta := pairs.Metadata{Feature: e.Feature, Unit: e.Unit, TimeScale: left.Metadata().TimeScale}
	batches, err := inputs(ctx, meta, left, in.right, pairs.EnsembleOf, baseline)
	if err != nil {
		return nil, err
	}
	return svc.EvaluateEnsemble(ctx, req, batches)
}

// evaluate runs the declared evaluation, writes its statistics and reports a
// summary to out. With an address configured, the monitoring routes are
// served while it runs, and afterwards until ctx ends when serve is set.
func evaluate(ctx context.Context, cfg *config.Config, out io.Writer, serve bool) error {
	log := logger.Get().Named("cli")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Configure(metrics.WithRefreshInterval(cfg.MetricsRefresh))

	e := &cfg.Evaluation
	reg := metric.NewRegistry()
	ids, err := e.MetricIDs(reg)
	if err != nil {
		return err
	}
	thresholds, err := e.BuildThresholds()
	if err != nil {
		return err
	}
	windows, err := e.Windows()
	if err != nil {
		return err
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithHistory(cfg.History),
		service.WithStripes(cfg.Stripes),
		service.WithCatalog(scoring.NewCatalog(reg,
			scoring.WithROCPoints(e.ROCPoints),
			scoring.WithReliabilityBins(e.ReliabilityBins))),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srvCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	var srvDone chan error
	if cfg.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		srvDone = make(chan error, 1)
		go func() { srvDone <- api.Serve(srvCtx, ln, api.NewServer(svc).Handler()) }()
	}

	req := service.Request{
		Feature:    e.Feature,
		Unit:       e.Unit,
		Metrics:    ids,
		Windows:    windows,
		Thresholds: thresholds,
		Digits:     e.Digits(),
	}
	var result *repository.Evaluation
	if e.Ensemble {
		result, err = evaluateEnsemble(ctx, cfg, svc, req)
	} else {
		result, err = evaluateSingleValued(ctx, cfg, svc, req)
	}
	if err != nil {
		return err
	}

	rows, err := writing.NewCSV().Write(ctx, e.Output, e.Feature, result.Results)
	if err != nil {
		return err
	}
	for _, f := range result.Results.Failures() {
		_, _ = fmt.Fprintf(out, "failed: %s %s: %v\n", f.Metric, f.Key, f.Err)
	}
	_, _ = fmt.Fprintf(out, "evaluation %s: %d statistics, %d failures, %d rows written to %s\n",
		result.ID, result.Results.Len(), len(result.Results.Failures()), rows, e.Output)

	if srvDone == nil {
		return nil
	}
	if serve {
		log.Info(ctx, "serving monitoring routes until interrupted", logger.String("addr", cfg.Addr))
		<-ctx.Done()
	}
	stopServer()
	return <-srvDone
}
