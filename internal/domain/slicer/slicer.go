// Package slicer cuts the pairs of a feature into pools by time window and threshold.
package slicer

import (
	"fmt"

	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timewindow"
)

// Input holds the timed pairs of one feature. A nil Baseline means there is
// no skill baseline.
type Input[S pairs.Pair] struct {
	Meta        pairs.Metadata
	Pairs       []pairs.Timed[S]
	Baseline    []pairs.Timed[S]
	Climatology []float64
}

// Sliced is a pool and the key its statistics are stored under.
type Sliced[S pairs.Pair] struct {
	Key  statistic.Key
	Pool *pairs.Pool[S]
}

// Filterable is the set of pair types that can be filtered by a value threshold.
type Filterable interface {
	pairs.SingleValued | pairs.Ensemble
}

// ByWindow returns one pool per window, in window order. A pool holds the pairs
// whose reference time, valid time and lead fall in the window and may be empty.
func ByWindow[S pairs.Pair](in Input[S], windows []timewindow.TimeWindow) ([]*pairs.Pool[S], error) {
	out := make([]*pairs.Pool[S], 0, len(windows))
	for _, w := range windows {
		meta := in.Meta
		meta.Window = w
		main := pairs.SliceTimed(in.Pairs, w.Contains)
		var base []S
		if in.Baseline != nil {
			base = pairs.SliceTimed(in.Baseline, w.Contains)
		}
		p, err := pairs.Derive(main, base, meta)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w, err)
		}
		out = append(out, p.WithClimatology(in.Climatology))
	}
	return out, nil
}

// ByThreshold filters a pool by each threshold, preceded by the all-data
// threshold. Probability thresholds are first resolved against the pool's
// climatology and rounded to digits. The key carries the declared threshold;
// the pool metadata carries the resolved one.
func ByThreshold[S Filterable](pool *pairs.Pool[S], thresholds []threshold.Threshold, digits int) ([]Sliced[S], error) {
	all := withAllData(thresholds)
	out := make([]Sliced[S], 0, len(all))
	for _, t := range all {
		resolved, err := threshold.Resolve(t, pool.Climatology(), digits)
		if err != nil {
			return nil, fmt.Errorf("threshold %s: %w", t, err)
		}
		keep, keepBaseline := predicates[S](resolved)
		meta := pool.Metadata()
		meta.Threshold = resolved
		out = append(out, Sliced[S]{
			Key:  statistic.Key{Window: meta.Window, Threshold: t.Declared()},
			Pool: pool.Filter(keep, keepBaseline).WithMetadata(meta),
		})
	}
	return out, nil
}

func withAllData(ts []threshold.Threshold) []threshold.Threshold {
	out := []threshold.Threshold{threshold.AllData()}
	for _, t := range ts {
		if !t.IsAllData() {
			out = append(out, t)
		}
	}
	return out
}

// ToDichotomous classifies a single-valued pool at each threshold. The all-data
// threshold has no meaning for dichotomous metrics and is skipped.
func ToDichotomous(pool *pairs.Pool[pairs.SingleValued], thresholds []threshold.Threshold, digits int) ([]Sliced[pairs.Dichotomous], error) {
	return convert(pool, thresholds, digits, pairs.ToDichotomous)
}

// ToProbability turns an ensemble pool into probability pools, one per
// threshold, skipping the all-data threshold.
func ToProbability(pool *pairs.Pool[pairs.Ensemble], thresholds []threshold.Threshold, digits int) ([]Sliced[pairs.Probability], error) {
	return convert(pool, thresholds, digits, pairs.ToProbability)
}

func convert[S, T pairs.Pair](
	pool *pairs.Pool[S],
	thresholds []threshold.Threshold,
	digits int,
	fn func(threshold.Threshold) func(S) (T, bool),
) ([]Sliced[T], error) {
	out := make([]Sliced[T], 0, len(thresholds))
	for _, t := range thresholds {
		if t.IsAllData() {
			continue
		}
		resolved, err := threshold.Resolve(t, pool.Climatology(), digits)
		if err != nil {
			return nil, fmt.Errorf("threshold %s: %w", t, err)
		}
		p, err := pairs.Transform(pool, fn(resolved))
		if err != nil {
			return nil, fmt.Errorf("threshold %s: %w", t, err)
		}
		meta := pool.Metadata()
		meta.Threshold = resolved
		out = append(out, Sliced[T]{
			Key:  statistic.Key{Window: meta.Window, Threshold: t.Declared()},
			Pool: p.WithMetadata(meta),
		})
	}
	return out, nil
}

// EnsembleMean reduces sliced ensemble pools to their ensemble means.
func EnsembleMean(in []Sliced[pairs.Ensemble]) ([]Sliced[pairs.SingleValued], error) {
	out := make([]Sliced[pairs.SingleValued], 0, len(in))
	for _, s := range in {
		p, err := pairs.Transform(s.Pool, pairs.ToEnsembleMean)
		if err != nil {
			return nil, fmt.Errorf("ensemble mean for %s: %w", s.Key, err)
		}
		out = append(out, Sliced[pairs.SingleValued]{Key: s.Key, Pool: p})
	}
	return out, nil
}
