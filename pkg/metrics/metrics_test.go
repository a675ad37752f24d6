package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating a manager with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("p"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.metricPrefix, ShouldEqual, "p")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})

			Convey("And the metrics should be registered on the custom registry", func() {
				manager.poolsCreated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_p_pools_created_total")
			})
		})

		Convey("When the global manager is configured", func() {
			Configure(WithRefreshInterval(3 * time.Second))
			defer Configure(WithRefreshInterval(defaultRefreshInterval))

			Convey("Then the refresh interval should follow", func() {
				So(RefreshInterval(), ShouldEqual, 3*time.Second)
			})
		})

		Convey("When empty values are supplied", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "wres")
				So(manager.subsystem, ShouldEqual, "evaluation")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When pools are recorded", func() {
			before := testutil.ToFloat64(globalManager.poolsCreated)
			pairsBefore := testutil.ToFloat64(globalManager.pairsSliced)
			RecordPoolCreated(12)
			RecordPoolCreated(3)

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.poolsCreated)-before, ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.pairsSliced)-pairsBefore, ShouldEqual, 15)
			})
		})

		Convey("When metric computations are recorded", func() {
			counter := globalManager.metricComputations.WithLabelValues("MEAN_ERROR", "ok")
			before := testutil.ToFloat64(counter)
			RecordMetricComputation("MEAN_ERROR", "ok", 1.5)

			Convey("Then the labelled counter should advance", func() {
				So(testutil.ToFloat64(counter)-before, ShouldEqual, 1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.7)
			UpdateWorkerActiveCount(4)
			UpdateStatisticsCount(21)

			Convey("Then they should hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.7)
				So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.statisticsCollected), ShouldEqual, 21)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordEvaluation("ok", 0.25)
				RecordEvaluationError("ROC_SCORE")
				RecordClimatologyMembers(3)
				RecordSeriesRead("left", 2)
				RecordRowsWritten(10)
				UpdateReadsInFlight(1)
				RecordHTTPRequest("stats", "GET", "200", 1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1)
				RecordWorkerProcessingLatency(2)
				RecordErrorByComponent("queue", "closed")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("When the registry is requested", func() {
			Convey("Then the custom registry should be returned", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
