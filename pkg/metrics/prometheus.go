// Package metrics provides Prometheus metrics for the WRES evaluation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the evaluation engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Evaluation metrics
	evaluationsTotal    *prometheus.CounterVec
	poolsCreated        prometheus.Counter
	pairsSliced         prometheus.Counter
	metricComputations  *prometheus.CounterVec
	metricLatency       *prometheus.HistogramVec
	climatologyMembers  prometheus.Counter
	evaluationErrors    *prometheus.CounterVec
	evaluationDuration  prometheus.Histogram
	statisticsCollected prometheus.Gauge

	// I/O metrics
	seriesRead     *prometheus.CounterVec
	rowsWritten    prometheus.Counter
	readInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpRequestDur *prometheus.HistogramVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWaitLatency   prometheus.Histogram

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Error metrics
	errorRateByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wres",
		subsystem:        "evaluation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.evaluationsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("evaluations_total"),
		Help: "Total number of evaluations by outcome",
	}, []string{"status"})

	m.poolsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("pools_created_total"),
		Help: "Total number of pools sliced by time window and threshold",
	})

	m.pairsSliced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("pairs_sliced_total"),
		Help: "Total number of pairs placed into pools",
	})

	m.metricComputations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("metric_computations_total"),
		Help: "Total number of metric computations by metric and status",
	}, []string{"metric", "status"})

	m.metricLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("metric_latency_milliseconds"),
		Help:    "Histogram of metric computation latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"metric"})

	m.climatologyMembers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("climatology_members_total"),
		Help: "Total number of climatological ensemble members generated",
	})

	m.evaluationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("errors_total"),
		Help: "Total number of failed (window, threshold, metric) computations",
	}, []string{"metric"})

	m.evaluationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("duration_seconds"),
		Help:    "Histogram of whole evaluation duration in seconds",
		Buckets: m.histogramBuckets,
	})

	m.statisticsCollected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("statistics"),
		Help: "Number of statistics held by the latest evaluation",
	})

	m.seriesRead = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "io", ConstLabels: labels,
		Name: m.name("series_read_total"),
		Help: "Total number of time-series read by source",
	}, []string{"source"})

	m.rowsWritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "io", ConstLabels: labels,
		Name: m.name("rows_written_total"),
		Help: "Total number of statistic rows written",
	})

	m.readInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "io", ConstLabels: labels,
		Name: m.name("reads_in_flight"),
		Help: "Number of reads currently in flight",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name: m.name("requests_total"),
		Help: "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDur = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", ConstLabels: labels,
		Name:    m.name("request_duration_milliseconds"),
		Help:    "Histogram of HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name: m.name("size"),
		Help: "Current number of tasks in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name: m.name("capacity"),
		Help: "Maximum capacity of the task queue",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name: m.name("utilization_ratio"),
		Help: "Queue utilization ratio (0.0 to 1.0)",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name: m.name("enqueue_total"),
		Help: "Total number of tasks enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name: m.name("dequeue_total"),
		Help: "Total number of tasks dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name: m.name("enqueue_errors_total"),
		Help: "Total number of enqueue failures",
	})

	m.queueWaitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "queue", ConstLabels: labels,
		Name:    m.name("enqueue_wait_milliseconds"),
		Help:    "Histogram of time producers spent waiting to enqueue, in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "worker", ConstLabels: labels,
		Name: m.name("active_count"),
		Help: "Number of workers in the pool",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "worker", ConstLabels: labels,
		Name:    m.name("processing_latency_milliseconds"),
		Help:    "Histogram of task processing latency in milliseconds",
		Buckets: m.histogramBuckets,
	})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "errors", ConstLabels: labels,
		Name: m.name("by_component_total"),
		Help: "Total number of errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: m.name("memory_bytes"),
		Help: "Current allocated heap memory in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", ConstLabels: labels,
		Name: m.name("goroutines"),
		Help: "Current number of goroutines",
	})
}

// Evaluation metrics

// RecordEvaluation records a finished evaluation by status (ok, partial, failed).
func RecordEvaluation(status string, seconds float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluationsTotal.WithLabelValues(status).Inc()
	globalManager.evaluationDuration.Observe(seconds)
}

// RecordPoolCreated records a sliced pool and its size.
func RecordPoolCreated(pairs int) {
	if !globalManager.enabled {
		return
	}
	globalManager.poolsCreated.Inc()
	globalManager.pairsSliced.Add(float64(pairs))
}

// RecordMetricComputation records one metric computation.
func RecordMetricComputation(metric, status string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.metricComputations.WithLabelValues(metric, status).Inc()
	globalManager.metricLatency.WithLabelValues(metric).Observe(latencyMs)
}

// RecordEvaluationError records a failed (window, threshold, metric) computation.
func RecordEvaluationError(metric string) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluationErrors.WithLabelValues(metric).Inc()
}

// RecordClimatologyMembers records generated climatological members.
func RecordClimatologyMembers(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.climatologyMembers.Add(float64(count))
}

// UpdateStatisticsCount sets the number of statistics held by the latest evaluation.
func UpdateStatisticsCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.statisticsCollected.Set(float64(count))
}

// I/O metrics

// RecordSeriesRead records time-series read from a source.
func RecordSeriesRead(source string, count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.seriesRead.WithLabelValues(source).Add(float64(count))
}

// RecordRowsWritten records statistic rows written.
func RecordRowsWritten(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.rowsWritten.Add(float64(count))
}

// UpdateReadsInFlight sets the number of reads in flight.
func UpdateReadsInFlight(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.readInFlight.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDur.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Queue metrics

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue records an enqueue.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue records a dequeue.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError records an enqueue failure.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long an enqueue waited for space.
func RecordQueueProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueWaitLatency.Observe(latencyMs)
}

// Worker metrics

// UpdateWorkerActiveCount sets the number of workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records task processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// Error metrics

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RefreshInterval returns how often sampled gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom registry holding all metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
