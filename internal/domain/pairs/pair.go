// Package pairs holds the paired left (observed) and right (predicted) values
// that metrics consume, and the immutable pools that group them.
package pairs

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// SingleValued pairs an observation with a single-valued prediction.
type SingleValued struct {
	Left  float64
	Right float64
}

// Ensemble pairs an observation with ensemble members.
type Ensemble struct {
	Left  float64
	Right []float64
}

// Mean returns the ensemble mean of the finite members, or NaN.
func (e Ensemble) Mean() float64 {
	var sum float64
	n := 0
	for _, m := range e.Right {
		if isFinite(m) {
			sum += m
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Dichotomous pairs an observed and predicted binary outcome.
type Dichotomous struct {
	Left  bool
	Right bool
}

// Probability pairs an observed outcome probability (0 or 1 for a binary event)
// with a forecast probability. Both lie in [0,1].
type Probability struct {
	Left  float64
	Right float64
}

// NewProbability validates both probabilities.
func NewProbability(left, right float64) (Probability, error) {
	if !inUnit(left) || !inUnit(right) {
		return Probability{}, fmt.Errorf("%w: probabilities (%v, %v) must be in [0,1]", ErrInvalidPair, left, right)
	}
	return Probability{Left: left, Right: right}, nil
}

// Multicategory pairs one-hot encoded observed and predicted categories.
type Multicategory struct {
	Left  []bool
	Right []bool
}

// Pair is the set of pair types a Pool can hold.
type Pair interface {
	SingleValued | Ensemble | Dichotomous | Probability | Multicategory
}

// Timed is a pair with its valid time, reference time and lead duration.
type Timed[S Pair] struct {
	ValidTime     time.Time
	ReferenceTime time.Time
	Pair          S
}

// Lead returns the valid time minus the reference time.
func (t Timed[S]) Lead() time.Duration { return t.ValidTime.Sub(t.ReferenceTime) }

func inUnit(v float64) bool { return v >= 0 && v <= 1 }

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// validate checks the shape of every pair. Multicategory pairs must share one category count.
func validate[S Pair](ps []S) error {
	width := -1
	for i, p := range ps {
		switch v := any(p).(type) {
		case Probability:
			if !inUnit(v.Left) || !inUnit(v.Right) {
				return fmt.Errorf("%w: probability pair %d (%v, %v) outside [0,1]", ErrMalformedPair, i, v.Left, v.Right)
			}
		case Ensemble:
			if v.Right == nil {
				return fmt.Errorf("%w: ensemble pair %d has no members", ErrMalformedPair, i)
			}
		case Multicategory:
			if len(v.Left) != len(v.Right) {
				return fmt.Errorf("%w: multicategory pair %d has %d observed and %d predicted categories",
					ErrMalformedPair, i, len(v.Left), len(v.Right))
			}
			if len(v.Left) < 2 {
				return fmt.Errorf("%w: multicategory pair %d needs at least two categories", ErrMalformedPair, i)
			}
			if width >= 0 && len(v.Left) != width {
				return fmt.Errorf("%w: multicategory pair %d has %d categories, expected %d",
					ErrMalformedPair, i, len(v.Left), width)
			}
			width = len(v.Left)
		}
	}
	return nil
}

func clonePair[S Pair](p S) S {
	switch v := any(p).(type) {
	case Ensemble:
		v.Right = slices.Clone(v.Right)
		return any(v).(S)
	case Multicategory:
		v.Left, v.Right = slices.Clone(v.Left), slices.Clone(v.Right)
		return any(v).(S)
	default:
		return p
	}
}
