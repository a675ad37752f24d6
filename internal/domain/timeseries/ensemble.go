package timeseries

import (
	"fmt"
	"slices"

	"github.com/montanaflynn/stats"
)

// Ensemble is a set of members valid at one time, with optional labels.
type Ensemble struct {
	members []float64
	labels  []string
}

// NewEnsemble builds an ensemble. Labels, when given, must match the members one to one.
func NewEnsemble(members []float64, labels []string) (Ensemble, error) {
	if len(labels) > 0 && len(labels) != len(members) {
		return Ensemble{}, fmt.Errorf("%w: %d labels for %d members", ErrInvalidEvent, len(labels), len(members))
	}
	return Ensemble{members: slices.Clone(members), labels: slices.Clone(labels)}, nil
}

// Members returns a copy of the member values.
func (e Ensemble) Members() []float64 { return slices.Clone(e.members) }

// Labels returns a copy of the member labels.
func (e Ensemble) Labels() []string { return slices.Clone(e.labels) }

// Size returns the number of members.
func (e Ensemble) Size() int { return len(e.members) }

// Member returns the value labelled with the given label.
func (e Ensemble) Member(label string) (float64, bool) {
	i := slices.Index(e.labels, label)
	if i < 0 {
		return 0, false
	}
	return e.members[i], true
}

// Mean returns the ensemble mean, or NaN without members.
func (e Ensemble) Mean() float64 {
	m, err := stats.Mean(e.members)
	if err != nil {
		return nan()
	}
	return m
}
