// Package writing persists evaluation statistics.
package writing

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/okian/wres/internal/domain/statistic"
	"github.com/okian/wres/internal/domain/timewindow"
	"github.com/okian/wres/pkg/logger"
	"github.com/okian/wres/pkg/metrics"
)

// Header lists the output columns.
var Header = []string{
	"feature", "unit",
	"earliest_reference_time", "latest_reference_time", "earliest_lead", "latest_lead",
	"threshold", "metric", "component", "index", "value", "sample_size",
}

// Option applies a configuration option to the CSV writer.
type Option func(*CSV)

// WithLogger sets a custom logger for the writer.
func WithLogger(l logger.Logger) Option {
	return func(w *CSV) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithFileMode sets the permissions of new files.
func WithFileMode(mode os.FileMode) Option {
	return func(w *CSV) {
		if mode != 0 {
			w.mode = mode
		}
	}
}

// CSV appends one row per statistic value to a file. Writes to the same path
// are serialised; different paths are written concurrently.
type CSV struct {
	locks  sync.Map // path -> *sync.Mutex
	mode   os.FileMode
	logger logger.Logger
}

// NewCSV creates a CSV writer.
func NewCSV(opts ...Option) *CSV {
	w := &CSV{mode: 0o644, logger: logger.Get().Named("writing")}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *CSV) lock(path string) *sync.Mutex {
	mu, _ := w.locks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Write appends the statistics of results for feature to path and returns the
// number of rows written. A header is written when the file is new or empty.
func (w *CSV) Write(ctx context.Context, path, feature string, results *statistic.Results) (int, error) {
	if results == nil {
		return 0, fmt.Errorf("%w: nil results", ErrWrite)
	}
	mu := w.lock(path)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, w.mode)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			_ = f.Close()
			return 0, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
		}
	}

	rows := 0
	for _, k := range results.Keys() {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return rows, fmt.Errorf("%w: %w", ErrWrite, err)
		}
		for _, s := range results.Get(k) {
			for _, rec := range Rows(feature, k, s) {
				if err := cw.Write(rec); err != nil {
					_ = f.Close()
					return rows, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
				}
				rows++
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return rows, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return rows, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}

	metrics.RecordRowsWritten(rows)
	w.logger.Info(ctx, "wrote statistics",
		logger.String("path", path),
		logger.String("feature", feature),
		logger.Int("rows", rows),
		logger.Int("failures", len(results.Failures())))
	return rows, nil
}

// Rows renders one statistic as output records, one per flattened value.
func Rows(feature string, k statistic.Key, s statistic.Statistic) [][]string {
	meta := s.Metadata()
	w := k.Window
	prefix := []string{
		feature, meta.Unit,
		formatTime(w.EarliestTime, timewindow.MinTime), formatTime(w.LatestTime, timewindow.MaxTime),
		formatLead(w.EarliestLead), formatLead(w.LatestLead),
		k.Threshold.String(), string(meta.Metric),
	}
	entries := statistic.Flatten(s)
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		rec := make([]string, 0, len(Header))
		rec = append(rec, prefix...)
		rec = append(rec,
			e.Name,
			strconv.Itoa(e.Index),
			strconv.FormatFloat(e.Value, 'g', -1, 64),
			strconv.Itoa(meta.SampleSize),
		)
		out = append(out, rec)
	}
	return out
}

// formatTime leaves unbounded times empty.
func formatTime(t, unbounded time.Time) string {
	if t.Equal(unbounded) {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatLead(d time.Duration) string {
	if d == timewindow.MinLead || d == timewindow.MaxLead {
		return ""
	}
	return d.String()
}
