package pairs

import (
	"time"

	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timeseries"
)

// ByValidTime pairs left and right events that share a valid time, in time order.
// The reference time is the right series' T0, or the valid time when it has none.
// Pairs for which combine reports false are skipped.
func ByValidTime[R any, S Pair](
	left *timeseries.TimeSeries[float64],
	right *timeseries.TimeSeries[R],
	combine func(l float64, r R) (S, bool),
) []Timed[S] {
	if left == nil || right == nil {
		return nil
	}
	ref, hasRef := right.Metadata().ReferenceTime(timeseries.T0)
	out := make([]Timed[S], 0, right.Len())
	for _, e := range right.Events() {
		l, ok := left.At(e.Time)
		if !ok {
			continue
		}
		p, ok := combine(l, e.Value)
		if !ok {
			continue
		}
		rt := e.Time
		if hasRef {
			rt = ref.UTC()
		}
		out = append(out, Timed[S]{ValidTime: e.Time, ReferenceTime: rt, Pair: p})
	}
	return out
}

// SingleValuedOf is a combine function for single-valued right series.
func SingleValuedOf(l, r float64) (SingleValued, bool) {
	return SingleValued{Left: l, Right: r}, true
}

// EnsembleOf is a combine function for ensemble right series.
func EnsembleOf(l float64, r timeseries.Ensemble) (Ensemble, bool) {
	return Ensemble{Left: l, Right: r.Members()}, r.Size() > 0
}

// Untimed drops the times from timed pairs.
func Untimed[S Pair](ts []Timed[S]) []S {
	out := make([]S, len(ts))
	for i, t := range ts {
		out[i] = t.Pair
	}
	return out
}

// SliceTimed keeps the timed pairs whose times satisfy keep.
func SliceTimed[S Pair](ts []Timed[S], keep func(reference, valid time.Time) bool) []S {
	out := make([]S, 0, len(ts))
	for _, t := range ts {
		if keep(t.ReferenceTime, t.ValidTime) {
			out = append(out, t.Pair)
		}
	}
	return out
}

// ToDichotomous classifies both sides of a single-valued pair with the threshold.
// Pairs with a non-finite side are dropped.
func ToDichotomous(t threshold.Threshold) func(SingleValued) (Dichotomous, bool) {
	return func(p SingleValued) (Dichotomous, bool) {
		if !isFinite(p.Left) || !isFinite(p.Right) {
			return Dichotomous{}, false
		}
		return Dichotomous{Left: t.Test(p.Left), Right: t.Test(p.Right)}, true
	}
}

// ToProbability turns an ensemble pair into a probability pair: the left is 1
// when the observation meets the threshold and the right is the fraction of
// finite members that meet it. Pairs without a finite observation or member are dropped.
func ToProbability(t threshold.Threshold) func(Ensemble) (Probability, bool) {
	return func(p Ensemble) (Probability, bool) {
		if !isFinite(p.Left) {
			return Probability{}, false
		}
		n, hits := 0, 0
		for _, m := range p.Right {
			if !isFinite(m) {
				continue
			}
			n++
			if t.Test(m) {
				hits++
			}
		}
		if n == 0 {
			return Probability{}, false
		}
		left := 0.0
		if t.Test(p.Left) {
			left = 1
		}
		return Probability{Left: left, Right: float64(hits) / float64(n)}, true
	}
}

// ToEnsembleMean reduces an ensemble pair to its ensemble mean.
func ToEnsembleMean(p Ensemble) (SingleValued, bool) {
	return SingleValued{Left: p.Left, Right: p.Mean()}, true
}

// ProbabilityToSingleValued views a probability pair as a single-valued pair.
func ProbabilityToSingleValued(p Probability) (SingleValued, bool) {
	return SingleValued(p), true
}

// IsFinite reports whether both sides of a single-valued pair are finite.
func IsFinite(p SingleValued) bool {
	return isFinite(p.Left) && isFinite(p.Right)
}
