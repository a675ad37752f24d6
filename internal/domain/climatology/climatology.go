// Package climatology generates climatological ensembles from historical
// observations, for use as a skill baseline.
package climatology

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/internal/domain/timewindow"
	"github.com/okian/wres/internal/domain/units"
	"github.com/okian/wres/pkg/logger"
	"github.com/okian/wres/pkg/metrics"
)

// ErrBaselineGenerator is wrapped by every failure to build or apply a generator.
var ErrBaselineGenerator = errors.New("baseline generator error")

// Source supplies the historical series a generator is built from.
type Source func(ctx context.Context) ([]*timeseries.TimeSeries[float64], error)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithInterval restricts the climatology to valid times within [minimum, maximum].
func WithInterval(minimum, maximum time.Time) Option {
	return func(g *Generator) {
		g.minimum, g.maximum = minimum.UTC(), maximum.UTC()
		g.bounded = true
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

// Generator produces climatological ensembles: for a valid time, one member
// per other year of record holding the historical value at the same day and
// time of year. It is immutable and safe for concurrent use.
type Generator struct {
	sources     map[string]*timeseries.TimeSeries[float64]
	sourceScale *timeseries.TimeScale
	upscaler    timeseries.Upscaler
	unit        string

	minimum time.Time
	maximum time.Time
	bounded bool

	logger logger.Logger
}

// New reads the source eagerly and builds a generator that converts values to targetUnit.
// The upscaler is used when a template's time scale differs from the source's.
func New(ctx context.Context, source Source, upscaler timeseries.Upscaler, targetUnit string, opts ...Option) (*Generator, error) {
	g := &Generator{
		upscaler: upscaler,
		unit:     targetUnit,
		minimum:  timewindow.MinTime,
		maximum:  timewindow.MaxTime,
		logger:   logger.Get().Named("climatology"),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.bounded && !g.maximum.After(g.minimum) {
		return nil, fmt.Errorf("%w: the climatology period is invalid: the maximum %s must be later than the minimum %s",
			ErrBaselineGenerator, g.maximum.Format(time.RFC3339), g.minimum.Format(time.RFC3339))
	}
	if source == nil {
		return nil, fmt.Errorf("%w: no climatology source", ErrBaselineGenerator)
	}
	if g.upscaler == nil {
		g.upscaler = timeseries.NewUpscaler()
	}

	series, err := source(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading climatology source: %w", ErrBaselineGenerator, err)
	}

	total := 0
	for _, s := range series {
		if s == nil {
			continue
		}
		total += s.Len()
		if _, ok := s.Metadata().ReferenceTime(timeseries.T0); ok {
			return nil, fmt.Errorf("%w: discovered one or more time-series that contained a reference time with type %s, "+
				"which indicates a forecast; declare observation-like time-series as the climatology source",
				ErrBaselineGenerator, timeseries.T0)
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: cannot create a climatology time-series without one or more source time-series "+
			"that contain some events", ErrBaselineGenerator)
	}

	g.sources, err = g.consolidate(ctx, series)
	if err != nil {
		return nil, err
	}
	for _, f := range g.features() {
		g.sourceScale = g.sources[f].Metadata().TimeScale
		break
	}

	g.logger.Debug(ctx, "created climatology generator",
		logger.Int("features", len(g.sources)),
		logger.Int("events", total),
		logger.String("minimum", g.minimum.Format(time.RFC3339)),
		logger.String("maximum", g.maximum.Format(time.RFC3339)))
	return g, nil
}

// consolidate merges the series of each feature into one. At a duplicated
// time the first event wins and a warning is logged.
func (g *Generator) consolidate(ctx context.Context, series []*timeseries.TimeSeries[float64]) (map[string]*timeseries.TimeSeries[float64], error) {
	type group struct {
		meta   timeseries.Metadata
		events map[time.Time]float64
		dups   []time.Time
	}
	groups := make(map[string]*group)
	for _, s := range series {
		if s == nil {
			continue
		}
		meta := s.Metadata()
		gr, ok := groups[meta.Feature]
		if !ok {
			gr = &group{meta: meta, events: make(map[time.Time]float64)}
			groups[meta.Feature] = gr
		}
		for _, e := range s.Events() {
			if _, dup := gr.events[e.Time]; dup {
				gr.dups = append(gr.dups, e.Time)
				continue
			}
			gr.events[e.Time] = e.Value
		}
	}

	out := make(map[string]*timeseries.TimeSeries[float64], len(groups))
	for feature, gr := range groups {
		events := make([]timeseries.Event[float64], 0, len(gr.events))
		for t, v := range gr.events {
			events = append(events, timeseries.Event[float64]{Time: t, Value: v})
		}
		s, err := timeseries.New(gr.meta, events...)
		if err != nil {
			return nil, fmt.Errorf("%w: consolidating feature %q: %w", ErrBaselineGenerator, feature, err)
		}
		out[feature] = s
		if len(gr.dups) > 0 {
			slices.SortFunc(gr.dups, func(a, b time.Time) int { return a.Compare(b) })
			g.logger.Warn(ctx, "duplicate events in climatology source, using the first event at each time",
				logger.String("feature", feature),
				logger.Int("duplicates", len(gr.dups)),
				logger.String("first_duplicate", gr.dups[0].Format(time.RFC3339)))
		}
	}
	return out, nil
}

func (g *Generator) features() []string {
	fs := make([]string, 0, len(g.sources))
	for f := range g.sources {
		fs = append(fs, f)
	}
	sort.Strings(fs)
	return fs
}

// Apply returns a climatological ensemble at each valid time for the feature,
// unit and time scale in meta. Years without a value at a valid time are
// omitted from that ensemble; the year of the valid time itself is always
// omitted. Labels are four-digit years in ascending order.
func (g *Generator) Apply(ctx context.Context, meta timeseries.Metadata, validTimes []time.Time) (*timeseries.TimeSeries[timeseries.Ensemble], error) {
	source, ok := g.sources[meta.Feature]
	if !ok {
		return nil, fmt.Errorf("%w: failed to discover a source time-series for the template feature %q; "+
			"source time-series were only available for features %v", ErrBaselineGenerator, meta.Feature, g.features())
	}
	outMeta := meta.WithUnit(g.unit)
	if len(validTimes) == 0 {
		return timeseries.New[timeseries.Ensemble](outMeta)
	}

	convert, err := units.Converter(source.Metadata().Unit, g.unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaselineGenerator, err)
	}
	years := sourceYears(source)

	var targets []time.Time
	for _, vt := range validTimes {
		for _, y := range years {
			if t, ok := g.target(vt.UTC(), y); ok {
				targets = append(targets, t)
			}
		}
	}
	// Valid times a whole number of years apart share targets.
	slices.SortFunc(targets, time.Time.Compare)
	targets = slices.CompactFunc(targets, time.Time.Equal)

	lookup := source
	if meta.TimeScale != nil && g.sourceScale != nil && !meta.TimeScale.Equal(*g.sourceScale) {
		lookup, err = g.upscaler.Upscale(source, *meta.TimeScale, targets)
		if err != nil {
			return nil, fmt.Errorf("%w: upscaling feature %q to %s: %w", ErrBaselineGenerator, meta.Feature, meta.TimeScale, err)
		}
	}

	events := make([]timeseries.Event[timeseries.Ensemble], 0, len(validTimes))
	members := 0
	for _, vt := range validTimes {
		vt = vt.UTC()
		var values []float64
		var labels []string
		for _, y := range years {
			t, ok := g.target(vt, y)
			if !ok {
				continue
			}
			v, ok := lookup.At(t)
			if !ok {
				continue
			}
			values = append(values, convert(v))
			labels = append(labels, fmt.Sprintf("%04d", y))
		}
		ens, err := timeseries.NewEnsemble(values, labels)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBaselineGenerator, err)
		}
		members += len(values)
		events = append(events, timeseries.Event[timeseries.Ensemble]{Time: vt, Value: ens})
	}
	metrics.RecordClimatologyMembers(members)

	out, err := timeseries.New(outMeta, events...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaselineGenerator, err)
	}
	g.logger.Debug(ctx, "generated climatology",
		logger.String("feature", meta.Feature),
		logger.Int("events", len(events)),
		logger.Int("members", members))
	return out, nil
}

// target moves t into year y. It reports false for the year of t itself, for
// dates that do not exist in y and for times outside the interval.
func (g *Generator) target(t time.Time, y int) (time.Time, bool) {
	if y == t.Year() {
		return time.Time{}, false
	}
	moved := time.Date(y, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if moved.Month() != t.Month() {
		return time.Time{}, false
	}
	if moved.Before(g.minimum) || moved.After(g.maximum) {
		return time.Time{}, false
	}
	return moved, true
}

func sourceYears(s *timeseries.TimeSeries[float64]) []int {
	seen := make(map[int]bool)
	var years []int
	for _, e := range s.Events() {
		if y := e.Time.Year(); !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

// ApplyTo generates the climatology for the valid times of a template series.
func ApplyTo[T any](ctx context.Context, g *Generator, template *timeseries.TimeSeries[T]) (*timeseries.TimeSeries[timeseries.Ensemble], error) {
	if template == nil {
		return nil, fmt.Errorf("%w: nil template", ErrBaselineGenerator)
	}
	events := template.Events()
	times := make([]time.Time, len(events))
	for i, e := range events {
		times[i] = e.Time
	}
	return g.Apply(ctx, template.Metadata(), times)
}

// Labels returns the years of record of a feature, as four-digit strings.
func (g *Generator) Labels(feature string) []string {
	s, ok := g.sources[feature]
	if !ok {
		return nil
	}
	years := sourceYears(s)
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = fmt.Sprintf("%04d", y)
	}
	return out
}
