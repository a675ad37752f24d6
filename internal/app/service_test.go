package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	service "github.com/okian/wres/internal/app"
	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/slicer"
	"github.com/okian/wres/internal/domain/statistic"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
	"github.com/okian/wres/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var t0 = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

func timed[S pairs.Pair](ps ...S) []pairs.Timed[S] {
	out := make([]pairs.Timed[S], len(ps))
	for i, p := range ps {
		out[i] = pairs.Timed[S]{ReferenceTime: t0, ValidTime: t0.Add(time.Duration(i+1) * time.Hour), Pair: p}
	}
	return out
}

func started(t *testing.T, opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func value(res *statistic.Results, k statistic.Key, id metric.ID) float64 {
	s, ok := res.Statistic(k, id)
	So(ok, ShouldBeTrue)
	return s.(statistic.DoubleScore).Value()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
			service.WithHistory(4),
			service.WithStripes(4),
			service.WithLogger(nil),
		)

		Convey("Then it should not accept evaluations before starting", func() {
			_, err := svc.EvaluateSingleValued(context.Background(), service.Request{
				Metrics: []metric.ID{metric.MeanError},
				Windows: []timewindow.TimeWindow{timewindow.Unbounded()},
			}, nil)
			So(errors.Is(err, service.ErrStopped), ShouldBeTrue)
		})

		Convey("When starting and stopping the service", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["workerCount"], ShouldEqual, 2)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_EvaluateSingleValued(t *testing.T) {
	Convey("Given two batches of single-valued pairs", t, func() {
		svc := started(t, service.WithWorkerCount(3), service.WithQueueSize(2))
		defer svc.Stop()

		window, err := timewindow.Leads(0, 24*time.Hour)
		So(err, ShouldBeNil)
		above, err := threshold.New(threshold.Greater, threshold.Left, []float64{2})
		So(err, ShouldBeNil)

		batches := []slicer.Input[pairs.SingleValued]{
			{Meta: pairs.Metadata{Feature: "DRRC2", Unit: "CMS"}, Pairs: timed(
				pairs.SingleValued{Left: 1, Right: 2}, pairs.SingleValued{Left: 2, Right: 3})},
			{Meta: pairs.Metadata{Feature: "DRRC2", Unit: "CMS"}, Pairs: timed(
				pairs.SingleValued{Left: 3, Right: 5}, pairs.SingleValued{Left: 4, Right: 4})},
		}
		req := service.Request{
			Feature:    "DRRC2",
			Unit:       "CMS",
			Metrics:    []metric.ID{metric.MeanError, metric.PearsonCorrelationCoefficient, metric.SampleSize, metric.ProbabilityOfDetection},
			Windows:    []timewindow.TimeWindow{window},
			Thresholds: []threshold.Threshold{above},
			Digits:     -1,
		}

		e, err := svc.EvaluateSingleValued(context.Background(), req, batches)
		So(err, ShouldBeNil)
		res := e.Results
		all := statistic.Key{Window: window, Threshold: threshold.AllData()}
		gt := statistic.Key{Window: window, Threshold: above}

		Convey("Then the all-data key should come first", func() {
			keys := res.Keys()
			So(len(keys), ShouldEqual, 2)
			So(keys[0], ShouldResemble, all)
			So(len(res.Failures()), ShouldEqual, 0)
		})

		Convey("Then collectable metrics should be merged across batches", func() {
			So(value(res, all, metric.MeanError), ShouldAlmostEqual, 1.0, 1e-12)
			So(value(res, all, metric.SampleSize), ShouldEqual, 4)
			So(value(res, gt, metric.MeanError), ShouldAlmostEqual, 1.0, 1e-12)
		})

		Convey("Then other metrics should see the concatenated pool", func() {
			So(value(res, all, metric.PearsonCorrelationCoefficient), ShouldAlmostEqual, 0.8, 1e-12)
			So(value(res, gt, metric.PearsonCorrelationCoefficient), ShouldAlmostEqual, -1.0, 1e-12)
		})

		Convey("Then dichotomous metrics should skip the all-data threshold", func() {
			_, ok := res.Statistic(all, metric.ProbabilityOfDetection)
			So(ok, ShouldBeFalse)
			// observed left > 2: (3,5) and (4,4) are hits; no misses.
			So(value(res, gt, metric.ProbabilityOfDetection), ShouldEqual, 1)
		})

		Convey("Then the evaluation should be retained", func() {
			got, err := svc.Evaluation(context.Background(), e.ID)
			So(err, ShouldBeNil)
			So(got.Feature, ShouldEqual, "DRRC2")
			recent, err := svc.Recent(context.Background(), 1)
			So(err, ShouldBeNil)
			So(recent[0].ID, ShouldEqual, e.ID)
			So(svc.GetStats()["completed"], ShouldEqual, 1)
			So(svc.GetStats()["lastEvaluation"], ShouldNotBeNil)
		})
	})

	Convey("Given an invalid request", t, func() {
		svc := started(t)
		defer svc.Stop()
		window := timewindow.Unbounded()

		Convey("Then probability metrics should need ensembles", func() {
			_, err := svc.EvaluateSingleValued(context.Background(), service.Request{
				Metrics: []metric.ID{metric.BrierScore},
				Windows: []timewindow.TimeWindow{window},
			}, nil)
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Then ensemble metrics should need ensembles", func() {
			_, err := svc.EvaluateSingleValued(context.Background(), service.Request{
				Metrics: []metric.ID{metric.ContinuousRankedProbabilityScore},
				Windows: []timewindow.TimeWindow{window},
			}, nil)
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "needs ensemble forecasts")
		})

		Convey("Then unknown metrics should be rejected", func() {
			_, err := svc.EvaluateSingleValued(context.Background(), service.Request{
				Metrics: []metric.ID{"NOT_A_METRIC"},
				Windows: []timewindow.TimeWindow{window},
			}, nil)
			So(errors.Is(err, metric.ErrUnknownMetric), ShouldBeTrue)
		})

		Convey("Then windows should be required", func() {
			_, err := svc.EvaluateSingleValued(context.Background(), service.Request{
				Metrics: []metric.ID{metric.MeanError},
			}, nil)
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("Then dichotomous metrics should need thresholds", func() {
			_, err := svc.EvaluateSingleValued(context.Background(), service.Request{
				Metrics: []metric.ID{metric.ContingencyTable},
				Windows: []timewindow.TimeWindow{window},
			}, nil)
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})
	})

	Convey("Given a cancelled context", t, func() {
		svc := started(t, service.WithQueueSize(1), service.WithWorkerCount(1))
		defer svc.Stop()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.EvaluateSingleValued(ctx, service.Request{
			Metrics: []metric.ID{metric.MeanError, metric.MeanAbsoluteError, metric.SampleSize},
			Windows: []timewindow.TimeWindow{timewindow.Unbounded()},
		}, []slicer.Input[pairs.SingleValued]{{Pairs: timed(pairs.SingleValued{Left: 1, Right: 1})}})

		Convey("Then the evaluation should fail with the context error", func() {
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(svc.GetStats()["failed"], ShouldEqual, 1)
		})
	})
}

func TestService_EvaluateEnsemble(t *testing.T) {
	Convey("Given ensemble pairs", t, func() {
		svc := started(t)
		defer svc.Stop()

		above, err := threshold.New(threshold.Greater, threshold.LeftAndRight, []float64{1.5})
		So(err, ShouldBeNil)
		window := timewindow.Unbounded()
		batches := []slicer.Input[pairs.Ensemble]{{
			Meta: pairs.Metadata{Feature: "DRRC2", Unit: "CMS"},
			Pairs: timed(
				pairs.Ensemble{Left: 1, Right: []float64{0, 1, 2, 3}},
				pairs.Ensemble{Left: 3, Right: []float64{2, 2, 2, 0}},
			),
		}}
		req := service.Request{
			Feature:    "DRRC2",
			Unit:       "CMS",
			Metrics: []metric.ID{
				metric.MeanError, metric.BrierScore, metric.ThreatScore,
				metric.ContinuousRankedProbabilityScore, metric.RankHistogram,
			},
			Windows:    []timewindow.TimeWindow{window},
			Thresholds: []threshold.Threshold{above},
			Digits:     -1,
		}

		e, err := svc.EvaluateEnsemble(context.Background(), req, batches)
		So(err, ShouldBeNil)
		res := e.Results
		all := statistic.Key{Window: window, Threshold: threshold.AllData()}
		gt := statistic.Key{Window: window, Threshold: above}

		Convey("Then single-valued metrics should use the ensemble mean", func() {
			So(value(res, all, metric.MeanError), ShouldAlmostEqual, -0.5, 1e-12)
		})

		Convey("Then an empty slice should give a missing value", func() {
			So(math.IsNaN(value(res, gt, metric.MeanError)), ShouldBeTrue)
		})

		Convey("Then probability metrics should use member fractions", func() {
			So(value(res, gt, metric.BrierScore), ShouldAlmostEqual, 0.15625, 1e-12)
		})

		Convey("Then dichotomous metrics should classify the ensemble mean", func() {
			// means are 1.5 and 1.5, neither above 1.5; observed 3 is a miss.
			So(value(res, gt, metric.ThreatScore), ShouldEqual, 0)
		})

		Convey("Then ensemble metrics should use every member", func() {
			So(value(res, all, metric.ContinuousRankedProbabilityScore), ShouldAlmostEqual, 0.75, 1e-12)
			s, ok := res.Statistic(all, metric.RankHistogram)
			So(ok, ShouldBeTrue)
			freq, _ := s.(statistic.Diagram).Dimension(metric.ObservedRelativeFrequency)
			So(freq, ShouldResemble, []float64{0, 0.25, 0.25, 0, 0.5})
		})
	})
}
