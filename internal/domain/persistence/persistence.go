// Package persistence generates persistence baselines: forecasts that repeat
// an earlier observed value.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/internal/domain/units"
	"github.com/okian/wres/pkg/logger"
)

// ErrBaselineGenerator is wrapped by every failure to build or apply a generator.
var ErrBaselineGenerator = errors.New("baseline generator error")

// Source supplies the observation-like series a generator persists.
type Source func(ctx context.Context) ([]*timeseries.TimeSeries[float64], error)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithOrder sets the lag: the Nth source value before the reference time, or
// before each valid time when the template has no reference time.
func WithOrder(n int) Option {
	return func(g *Generator) { g.order = n }
}

// WithUpscaler sets the upscaler used when a template's time scale differs from the source's.
func WithUpscaler(u timeseries.Upscaler) Option {
	return func(g *Generator) {
		if u != nil {
			g.upscaler = u
		}
	}
}

// WithLogger sets a custom logger for the generator.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// Generator is immutable and safe for concurrent use.
type Generator struct {
	sources     map[string]*timeseries.TimeSeries[float64]
	sourceScale *timeseries.TimeScale
	upscaler    timeseries.Upscaler
	unit        string
	order       int

	logger logger.Logger
}

// New reads the source eagerly and builds a generator that converts values to targetUnit.
func New(ctx context.Context, source Source, targetUnit string, opts ...Option) (*Generator, error) {
	g := &Generator{
		upscaler: timeseries.NewUpscaler(),
		unit:     targetUnit,
		order:    1,
		logger:   logger.Get().Named("persistence"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.order < 1 {
		return nil, fmt.Errorf("%w: a positive order of persistence is required: %d", ErrBaselineGenerator, g.order)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: no persistence source", ErrBaselineGenerator)
	}
	series, err := source(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading persistence source: %w", ErrBaselineGenerator, err)
	}

	byFeature := make(map[string]map[time.Time]float64)
	metas := make(map[string]timeseries.Metadata)
	for _, s := range series {
		if s == nil || s.Len() < g.order {
			continue
		}
		meta := s.Metadata()
		if _, ok := meta.ReferenceTime(timeseries.T0); ok {
			return nil, fmt.Errorf("%w: discovered a time-series with a reference time of type %s, which indicates "+
				"a forecast; declare observation-like time-series as the persistence source", ErrBaselineGenerator, timeseries.T0)
		}
		events, ok := byFeature[meta.Feature]
		if !ok {
			events = make(map[time.Time]float64)
			byFeature[meta.Feature] = events
			metas[meta.Feature] = meta
		}
		for _, e := range s.Events() {
			if _, dup := events[e.Time]; !dup {
				events[e.Time] = e.Value
			}
		}
	}
	if len(byFeature) == 0 {
		return nil, fmt.Errorf("%w: cannot generate a persistence baseline without a time-series; "+
			"the persistence source was empty", ErrBaselineGenerator)
	}

	g.sources = make(map[string]*timeseries.TimeSeries[float64], len(byFeature))
	for feature, events := range byFeature {
		out := make([]timeseries.Event[float64], 0, len(events))
		for t, v := range events {
			out = append(out, timeseries.Event[float64]{Time: t, Value: v})
		}
		s, err := timeseries.New(metas[feature], out...)
		if err != nil {
			return nil, fmt.Errorf("%w: consolidating feature %q: %w", ErrBaselineGenerator, feature, err)
		}
		g.sources[feature] = s
		g.sourceScale = metas[feature].TimeScale
	}

	g.logger.Debug(ctx, "created persistence generator",
		logger.Int("features", len(g.sources)),
		logger.Int("order", g.order))
	return g, nil
}

// Apply returns the persistence series for a template. A template with a T0
// reference time gets the Nth source value before T0 at every valid time.
// Otherwise each valid time gets the Nth source value before it. Valid times
// without an admissible value are left out.
func Apply[T any](ctx context.Context, g *Generator, template *timeseries.TimeSeries[T]) (*timeseries.TimeSeries[float64], error) {
	if template == nil {
		return nil, fmt.Errorf("%w: nil template", ErrBaselineGenerator)
	}
	meta := template.Metadata()
	source, ok := g.sources[meta.Feature]
	if !ok {
		return nil, fmt.Errorf("%w: failed to discover a source time-series for the template feature %q; "+
			"source time-series were available for features %v", ErrBaselineGenerator, meta.Feature, g.features())
	}
	convert, err := units.Converter(source.Metadata().Unit, g.unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaselineGenerator, err)
	}
	outMeta := meta.WithUnit(g.unit)

	valid := make([]time.Time, 0, template.Len())
	for _, e := range template.Events() {
		valid = append(valid, e.Time)
	}
	if len(valid) == 0 {
		return timeseries.New[float64](outMeta)
	}
	upscale := meta.TimeScale != nil && g.sourceScale != nil && !meta.TimeScale.Equal(*g.sourceScale)

	var events []timeseries.Event[float64]
	if t0, ok := meta.ReferenceTime(timeseries.T0); ok {
		v, found, err := g.forReferenceTime(source, t0, meta.TimeScale, upscale)
		if err != nil {
			return nil, err
		}
		if found {
			for _, vt := range valid {
				events = append(events, timeseries.Event[float64]{Time: vt, Value: convert(v)})
			}
		}
	} else {
		search := source
		if upscale {
			if search, err = g.upscaler.Upscale(source, *meta.TimeScale, valid); err != nil {
				return nil, fmt.Errorf("%w: upscaling feature %q to %s: %w", ErrBaselineGenerator, meta.Feature, meta.TimeScale, err)
			}
		}
		all := search.Events()
		for _, vt := range valid {
			if e, ok := nthEarlier(all, vt, g.order); ok && admissible(e.Value) {
				events = append(events, timeseries.Event[float64]{Time: vt, Value: convert(e.Value)})
			}
		}
	}

	out, err := timeseries.New(outMeta, events...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaselineGenerator, err)
	}
	g.logger.Debug(ctx, "generated persistence",
		logger.String("feature", meta.Feature),
		logger.Int("events", out.Len()))
	return out, nil
}

func (g *Generator) forReferenceTime(source *timeseries.TimeSeries[float64], t0 time.Time, scale *timeseries.TimeScale, upscale bool) (float64, bool, error) {
	e, ok := nthEarlier(source.Events(), t0, g.order)
	if !ok {
		return 0, false, nil
	}
	v := e.Value
	if upscale {
		up, err := g.upscaler.Upscale(source, *scale, []time.Time{e.Time})
		if err != nil {
			return 0, false, fmt.Errorf("%w: upscaling to %s: %w", ErrBaselineGenerator, scale, err)
		}
		if v, ok = up.At(e.Time); !ok {
			return 0, false, nil
		}
	}
	return v, admissible(v), nil
}

// nthEarlier finds the event order places before t. An event exactly at t is
// skipped over; otherwise the latest event before t counts as the first.
func nthEarlier(events []timeseries.Event[float64], t time.Time, order int) (timeseries.Event[float64], bool) {
	if len(events) == 0 || !events[0].Time.Before(t) {
		return timeseries.Event[float64]{}, false
	}
	// i is the first event at or after t, so i-1 is the latest before t either way.
	i := sort.Search(len(events), func(i int) bool { return !events[i].Time.Before(t) })
	idx := i - order
	if idx < 0 {
		return timeseries.Event[float64]{}, false
	}
	return events[idx], true
}

func admissible(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (g *Generator) features() []string {
	fs := make([]string, 0, len(g.sources))
	for f := range g.sources {
		fs = append(fs, f)
	}
	sort.Strings(fs)
	return fs
}
