// Package reading loads time-series from sources.
package reading

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/pkg/logger"
	"github.com/okian/wres/pkg/metrics"
)

// Columns that precede the value columns, in order.
var header = []string{"feature", "variable", "unit", "reference_time", "valid_time"}

// checkEvery is how many rows are parsed between context checks.
const checkEvery = 4096

// Option applies a configuration option to the CSV reader.
type Option func(*CSV)

// WithLogger sets a custom logger for the reader.
func WithLogger(l logger.Logger) Option {
	return func(c *CSV) {
		if l != nil {
			c.logger = l
		}
	}
}

// CSV reads time-series from comma-separated text with the columns
// feature,variable,unit,reference_time,valid_time followed by one or more
// value columns. Times are RFC 3339. An empty reference time marks an
// observation; an empty value is missing and read as NaN.
//
// Rows are grouped into series by feature, variable, unit and reference
// time, in order of first appearance.
type CSV struct {
	logger logger.Logger
}

// NewCSV creates a CSV reader.
func NewCSV(opts ...Option) *CSV {
	c := &CSV{logger: logger.Get().Named("reading")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadSingleValued reads series with exactly one value column.
func (c *CSV) ReadSingleValued(ctx context.Context, r io.Reader, source string) ([]*timeseries.TimeSeries[float64], error) {
	return read(ctx, c, r, source, func(labels []string, values []float64) (float64, error) {
		if len(labels) != 1 {
			return 0, fmt.Errorf("expected one value column, found %d", len(labels))
		}
		return values[0], nil
	})
}

// ReadEnsemble reads ensemble series. Members are labelled by the value column headers.
func (c *CSV) ReadEnsemble(ctx context.Context, r io.Reader, source string) ([]*timeseries.TimeSeries[timeseries.Ensemble], error) {
	return read(ctx, c, r, source, func(labels []string, values []float64) (timeseries.Ensemble, error) {
		return timeseries.NewEnsemble(values, labels)
	})
}

// SingleValuedFile opens path and reads single-valued series from it.
func (c *CSV) SingleValuedFile(ctx context.Context, path string) ([]*timeseries.TimeSeries[float64], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = f.Close() }()
	return c.ReadSingleValued(ctx, f, path)
}

// EnsembleFile opens path and reads ensemble series from it.
func (c *CSV) EnsembleFile(ctx context.Context, path string) ([]*timeseries.TimeSeries[timeseries.Ensemble], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = f.Close() }()
	return c.ReadEnsemble(ctx, f, path)
}

type groupKey struct {
	feature, variable, unit string
	reference               time.Time
}

type group[T any] struct {
	meta   timeseries.Metadata
	events []timeseries.Event[T]
}

func read[T any](
	ctx context.Context,
	c *CSV,
	r io.Reader,
	source string,
	value func(labels []string, values []float64) (T, error),
) ([]*timeseries.TimeSeries[T], error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading header: %w", ErrRead, source, err)
	}
	if len(head) <= len(header) {
		return nil, fmt.Errorf("%w: %s: header needs %s and at least one value column",
			ErrRead, source, strings.Join(header, ","))
	}
	for i, name := range header {
		if !strings.EqualFold(strings.TrimSpace(head[i]), name) {
			return nil, fmt.Errorf("%w: %s: column %d is %q, want %q", ErrRead, source, i+1, head[i], name)
		}
	}
	labels := make([]string, 0, len(head)-len(header))
	for _, h := range head[len(header):] {
		labels = append(labels, strings.TrimSpace(h))
	}

	var order []groupKey
	groups := make(map[groupKey]*group[T])
	for row := 2; ; row++ {
		if row%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrRead, source, err)
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, source, err)
		}

		k, vt, values, err := parseRow(rec, len(labels))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %w", ErrRead, source, row, err)
		}
		v, err := value(labels, values)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: row %d: %w", ErrRead, source, row, err)
		}

		g, ok := groups[k]
		if !ok {
			meta := timeseries.Metadata{Feature: k.feature, Variable: k.variable, Unit: k.unit}
			if !k.reference.IsZero() {
				meta.ReferenceTimes = map[timeseries.ReferenceTimeType]time.Time{timeseries.T0: k.reference}
			}
			g = &group[T]{meta: meta}
			groups[k] = g
			order = append(order, k)
		}
		g.events = append(g.events, timeseries.Event[T]{Time: vt, Value: v})
	}

	out := make([]*timeseries.TimeSeries[T], 0, len(order))
	for _, k := range order {
		g := groups[k]
		s, err := timeseries.New(g.meta, g.events...)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRead, source, err)
		}
		out = append(out, s)
	}

	metrics.RecordSeriesRead(source, len(out))
	c.logger.Debug(ctx, "read time-series",
		logger.String("source", source),
		logger.Int("series", len(out)),
		logger.Int("value_columns", len(labels)))
	return out, nil
}

func parseRow(rec []string, width int) (groupKey, time.Time, []float64, error) {
	if len(rec) != len(header)+width {
		return groupKey{}, time.Time{}, nil, fmt.Errorf("expected %d columns, found %d", len(header)+width, len(rec))
	}
	k := groupKey{
		feature:  strings.TrimSpace(rec[0]),
		variable: strings.TrimSpace(rec[1]),
		unit:     strings.TrimSpace(rec[2]),
	}
	if k.feature == "" {
		return groupKey{}, time.Time{}, nil, errors.New("empty feature")
	}
	if ref := strings.TrimSpace(rec[3]); ref != "" {
		t, err := time.Parse(time.RFC3339, ref)
		if err != nil {
			return groupKey{}, time.Time{}, nil, fmt.Errorf("reference_time: %w", err)
		}
		k.reference = t.UTC()
	}
	vt, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[4]))
	if err != nil {
		return groupKey{}, time.Time{}, nil, fmt.Errorf("valid_time: %w", err)
	}

	values := make([]float64, width)
	for i, s := range rec[len(header):] {
		s = strings.TrimSpace(s)
		if s == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return groupKey{}, time.Time{}, nil, fmt.Errorf("value column %d: %w", i+1, err)
		}
		values[i] = v
	}
	return k, vt.UTC(), values, nil
}
