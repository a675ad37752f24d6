package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/wres/internal/domain/climatology"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/persistence"
	"github.com/okian/wres/internal/domain/slicer"
	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/internal/domain/units"
)

// baselineFunc returns the baseline pairs of one batch of right series.
type baselineFunc[R any, S pairs.Pair] func(ctx context.Context, left *timeseries.TimeSeries[float64], right []*timeseries.TimeSeries[R]) ([]pairs.Timed[S], error)

// observed merges the left series of feature into one. The first event at a time wins.
func observed(series []*timeseries.TimeSeries[float64], feature string) (*timeseries.TimeSeries[float64], error) {
	var meta *timeseries.Metadata
	seen := make(map[time.Time]bool)
	var events []timeseries.Event[float64]
	for _, s := range series {
		m := s.Metadata()
		if m.Feature != feature {
			continue
		}
		if meta == nil {
			meta = &m
		}
		for _, e := range s.Events() {
			if !seen[e.Time] {
				seen[e.Time] = true
				events = append(events, e)
			}
		}
	}
	if meta == nil {
		return nil, fmt.Errorf("no observations for feature %q", feature)
	}
	return timeseries.New(*meta, events...)
}

// climatologyOf returns the finite observed values.
func climatologyOf(left *timeseries.TimeSeries[float64]) []float64 {
	out := make([]float64, 0, left.Len())
	for _, e := range left.Events() {
		if !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0) {
			out = append(out, e.Value)
		}
	}
	return out
}

func ofFeature[R any](series []*timeseries.TimeSeries[R], feature string) []*timeseries.TimeSeries[R] {
	out := make([]*timeseries.TimeSeries[R], 0, len(series))
	for _, s := range series {
		if s.Metadata().Feature == feature {
			out = append(out, s)
		}
	}
	return out
}

// toUnit converts the values of every series to unit.
func toUnit[T any](series []*timeseries.TimeSeries[T], unit string, apply func(T, func(float64) float64) T) ([]*timeseries.TimeSeries[T], error) {
	out := make([]*timeseries.TimeSeries[T], len(series))
	for i, s := range series {
		meta := s.Metadata()
		if units.Same(meta.Unit, unit) {
			out[i] = s
			continue
		}
		convert, err := units.Converter(meta.Unit, unit)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", meta.Feature, err)
		}
		events := s.Events()
		for j := range events {
			events[j].Value = apply(events[j].Value, convert)
		}
		if out[i], err = timeseries.New(meta.WithUnit(unit), events...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func convertValue(v float64, f func(float64) float64) float64 { return f(v) }

func convertEnsemble(e timeseries.Ensemble, f func(float64) float64) timeseries.Ensemble {
	members := e.Members()
	for i := range members {
		members[i] = f(members[i])
	}
	out, _ := timeseries.NewEnsemble(members, e.Labels())
	return out
}

// inputs pairs each batch of right series with the observations.
func inputs[R any, S pairs.Pair](
	ctx context.Context,
	meta pairs.Metadata,
	left *timeseries.TimeSeries[float64],
	batches [][]*timeseries.TimeSeries[R],
	combine func(float64, R) (S, bool),
	baseline baselineFunc[R, S],
) ([]slicer.Input[S], error) {
	clim := climatologyOf(left)
	out := make([]slicer.Input[S], 0, len(batches))
	for i, batch := range batches {
		in := slicer.Input[S]{Meta: meta, Climatology: clim}
		for _, rs := range batch {
			in.Pairs = append(in.Pairs, pairs.ByValidTime(left, rs, combine)...)
		}
		if baseline != nil {
			b, err := baseline(ctx, left, batch)
			if err != nil {
				return nil, fmt.Errorf("baseline for batch %d: %w", i, err)
			}
			in.Baseline = b
		}
		out = append(out, in)
	}
	return out, nil
}

// sourceBaseline pairs baseline series with the batches whose right series
// share their reference time. Series without a reference time go to the
// first batch.
func sourceBaseline[R any, S pairs.Pair](series []*timeseries.TimeSeries[R], combine func(float64, R) (S, bool)) baselineFunc[R, S] {
	byRef := timeseries.GroupByReferenceTime(series, timeseries.T0)
	used := make(map[time.Time]bool)
	return func(_ context.Context, left *timeseries.TimeSeries[float64], right []*timeseries.TimeSeries[R]) ([]pairs.Timed[S], error) {
		out := []pairs.Timed[S]{}
		take := func(ref time.Time) {
			if used[ref] {
				return
			}
			used[ref] = true
			for _, bs := range byRef[ref] {
				out = append(out, pairs.ByValidTime(left, bs, combine)...)
			}
		}
		take(time.Time{})
		for _, rs := range right {
			ref, _ := rs.Metadata().ReferenceTime(timeseries.T0)
			take(ref.UTC())
		}
		return out, nil
	}
}

// climatologyBaseline pairs the observations with a climatological ensemble
// generated for the valid times of each right series.
func climatologyBaseline[R any, S pairs.Pair](g *climatology.Generator, combine func(float64, timeseries.Ensemble) (S, bool)) baselineFunc[R, S] {
	return func(ctx context.Context, left *timeseries.TimeSeries[float64], right []*timeseries.TimeSeries[R]) ([]pairs.Timed[S], error) {
		out := []pairs.Timed[S]{}
		for _, rs := range right {
			clim, err := climatology.ApplyTo(ctx, g, rs)
			if err != nil {
				return nil, err
			}
			out = append(out, pairs.ByValidTime(left, clim, combine)...)
		}
		return out, nil
	}
}

// persistenceBaseline pairs the observations with the persistence forecast
// generated for each right series.
func persistenceBaseline[R any, S pairs.Pair](g *persistence.Generator, combine func(float64, float64) (S, bool)) baselineFunc[R, S] {
	return func(ctx context.Context, left *timeseries.TimeSeries[float64], right []*timeseries.TimeSeries[R]) ([]pairs.Timed[S], error) {
		out := []pairs.Timed[S]{}
		for _, rs := range right {
			p, err := persistence.Apply(ctx, g, rs)
			if err != nil {
				return nil, err
			}
			out = append(out, pairs.ByValidTime(left, p, combine)...)
		}
		return out, nil
	}
}

// persistedMember makes a one-member ensemble of a persisted value.
func persistedMember(l, r float64) (pairs.Ensemble, bool) {
	return pairs.Ensemble{Left: l, Right: []float64{r}}, true
}

// climatologyMean reduces a climatological ensemble to its mean.
func climatologyMean(l float64, e timeseries.Ensemble) (pairs.SingleValued, bool) {
	return pairs.SingleValued{Left: l, Right: e.Mean()}, e.Size() > 0
}
