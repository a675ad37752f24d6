// Package config defines process configuration and the evaluation declaration.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Functions accept context.Context as the first parameter.
//   - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
	// Addr configures the monitoring HTTP listen address, e.g. ":9080". Empty disables it.
	Addr string `koanf:"addr"`
	// QueueSize bounds the task queue of each evaluation.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`
	// WorkerCount sets the number of metric workers.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`
	// ReadConcurrency bounds the number of sources read at once.
	ReadConcurrency int `koanf:"read_concurrency" validate:"gte=1"`
	// History is how many finished evaluations are kept for monitoring.
	History int `koanf:"history" validate:"gte=1"`
	// Stripes is the number of lock stripes of the aggregation map.
	Stripes int `koanf:"stripes" validate:"gte=1"`
	// MetricsRefresh is how often runtime gauges are sampled.
	MetricsRefresh time.Duration `koanf:"metrics_refresh" validate:"gt=0"`

	// Evaluation declares what to evaluate.
	Evaluation Evaluation `koanf:"evaluation"`
}

// New creates a Config with defaults. The evaluation declaration is left
// empty; Load fills its defaults after the file and environment are applied.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            "",
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU(),
		ReadConcurrency: 4,
		History:         64,
		Stripes:         16,
		MetricsRefresh:  10 * time.Second,
	}
}
