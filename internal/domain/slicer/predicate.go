package slicer

import (
	"math"

	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/threshold"
)

// sides exposes the left value, the single right value and the right members of a pair.
// The single right value of an ensemble is its mean.
func sides[S Filterable](p S) (left, right float64, members []float64) {
	switch v := any(p).(type) {
	case pairs.SingleValued:
		return v.Left, v.Right, []float64{v.Right}
	case pairs.Ensemble:
		return v.Left, v.Mean(), v.Right
	}
	return math.NaN(), math.NaN(), nil
}

func anyPasses(t threshold.Threshold, values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) && t.Test(v) {
			return true
		}
	}
	return false
}

// predicates returns the filters for the main and baseline pairs implied by the
// threshold's data type. A BASELINE threshold keeps every main pair and filters
// the baseline on its right value.
func predicates[S Filterable](t threshold.Threshold) (keep, keepBaseline func(S) bool) {
	passes := func(v float64) bool { return !math.IsNaN(v) && t.Test(v) }
	all := func(S) bool { return true }

	switch t.DataType {
	case threshold.Left:
		keep = func(p S) bool { l, _, _ := sides(p); return passes(l) }
	case threshold.Right:
		keep = func(p S) bool { _, r, _ := sides(p); return passes(r) }
	case threshold.AnyRight:
		keep = func(p S) bool { _, _, m := sides(p); return anyPasses(t, m) }
	case threshold.LeftAndAnyRight:
		keep = func(p S) bool { l, _, m := sides(p); return passes(l) && anyPasses(t, m) }
	case threshold.Baseline:
		return all, func(p S) bool { _, r, _ := sides(p); return passes(r) }
	default:
		keep = func(p S) bool { l, r, _ := sides(p); return passes(l) && passes(r) }
	}
	return keep, keep
}
