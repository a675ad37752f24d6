package statistic

import (
	"fmt"
	"math"
)

// State is the additive intermediate form of a metric. Merging is commutative
// and associative, so partial states from independent batches can be folded
// in any order.
type State interface {
	Merge(other State) (State, error)
}

func nan() float64 { return math.NaN() }

// Moments are running sums over finite single-valued pairs, with e = right - left.
// The spread of the left values is kept as a running mean and sum of squared
// deviations so that it stays accurate for large values with a small spread.
type Moments struct {
	Count        int
	SumLeft      float64
	SumRight     float64
	SumRight2    float64
	SumLeftRight float64
	SumError     float64
	SumAbsError  float64
	SumError2    float64
	MeanLeft     float64
	M2Left       float64
	// Baseline holds the same sums over the baseline pairs, if any.
	Baseline *Moments
}

// Add accumulates one pair.
func (m *Moments) Add(left, right float64) {
	e := right - left
	m.Count++
	m.SumLeft += left
	m.SumRight += right
	m.SumRight2 += right * right
	m.SumLeftRight += left * right
	m.SumError += e
	m.SumAbsError += math.Abs(e)
	m.SumError2 += e * e
	d := left - m.MeanLeft
	m.MeanLeft += d / float64(m.Count)
	m.M2Left += d * (left - m.MeanLeft)
}

// Merge implements State. Either both sides carry a baseline or neither does.
func (m Moments) Merge(other State) (State, error) {
	o, ok := other.(Moments)
	if !ok {
		return nil, fmt.Errorf("%w: moments with %T", ErrIncompatibleState, other)
	}
	if (m.Baseline == nil) != (o.Baseline == nil) {
		return nil, fmt.Errorf("%w: moments with and without a baseline", ErrIncompatibleState)
	}
	out := Moments{
		Count:        m.Count + o.Count,
		SumLeft:      m.SumLeft + o.SumLeft,
		SumRight:     m.SumRight + o.SumRight,
		SumRight2:    m.SumRight2 + o.SumRight2,
		SumLeftRight: m.SumLeftRight + o.SumLeftRight,
		SumError:     m.SumError + o.SumError,
		SumAbsError:  m.SumAbsError + o.SumAbsError,
		SumError2:    m.SumError2 + o.SumError2,
	}
	switch {
	case o.Count == 0:
		out.MeanLeft, out.M2Left = m.MeanLeft, m.M2Left
	case m.Count == 0:
		out.MeanLeft, out.M2Left = o.MeanLeft, o.M2Left
	default:
		na, nb, n := float64(m.Count), float64(o.Count), float64(out.Count)
		d := o.MeanLeft - m.MeanLeft
		out.MeanLeft = m.MeanLeft + d*nb/n
		out.M2Left = m.M2Left + o.M2Left + d*d*na*nb/n
	}
	if m.Baseline != nil {
		b, err := m.Baseline.Merge(*o.Baseline)
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		bm := b.(Moments)
		out.Baseline = &bm
	}
	return out, nil
}

// MeanSquareError returns SumError2/Count or NaN when empty.
func (m Moments) MeanSquareError() float64 {
	if m.Count == 0 {
		return nan()
	}
	return m.SumError2 / float64(m.Count)
}

// LeftVariance returns the population variance of the left values.
func (m Moments) LeftVariance() float64 {
	if m.Count == 0 {
		return nan()
	}
	return m.M2Left / float64(m.Count)
}

// Contingency counts the outcomes of a 2x2 table. Forecast is the right side,
// observed the left.
type Contingency struct {
	Hits             int
	FalseAlarms      int
	Misses           int
	CorrectNegatives int
}

// Add accumulates one dichotomous outcome.
func (c *Contingency) Add(observed, forecast bool) {
	switch {
	case forecast && observed:
		c.Hits++
	case forecast:
		c.FalseAlarms++
	case observed:
		c.Misses++
	default:
		c.CorrectNegatives++
	}
}

// Total returns the number of outcomes counted.
func (c Contingency) Total() int {
	return c.Hits + c.FalseAlarms + c.Misses + c.CorrectNegatives
}

// Merge implements State.
func (c Contingency) Merge(other State) (State, error) {
	o, ok := other.(Contingency)
	if !ok {
		return nil, fmt.Errorf("%w: contingency with %T", ErrIncompatibleState, other)
	}
	return Contingency{
		Hits:             c.Hits + o.Hits,
		FalseAlarms:      c.FalseAlarms + o.FalseAlarms,
		Misses:           c.Misses + o.Misses,
		CorrectNegatives: c.CorrectNegatives + o.CorrectNegatives,
	}, nil
}

// ReliabilityBins holds per-bin sums of forecast probability and observed outcome.
type ReliabilityBins struct {
	SumForecast []float64
	SumObserved []float64
	Count       []int
}

// NewReliabilityBins returns empty sums for n bins.
func NewReliabilityBins(n int) ReliabilityBins {
	return ReliabilityBins{
		SumForecast: make([]float64, n),
		SumObserved: make([]float64, n),
		Count:       make([]int, n),
	}
}

// Merge implements State. Both sides must have the same number of bins.
func (r ReliabilityBins) Merge(other State) (State, error) {
	o, ok := other.(ReliabilityBins)
	if !ok {
		return nil, fmt.Errorf("%w: reliability bins with %T", ErrIncompatibleState, other)
	}
	if len(o.Count) != len(r.Count) {
		return nil, fmt.Errorf("%w: %d bins with %d bins", ErrIncompatibleState, len(r.Count), len(o.Count))
	}
	out := NewReliabilityBins(len(r.Count))
	for i := range r.Count {
		out.SumForecast[i] = r.SumForecast[i] + o.SumForecast[i]
		out.SumObserved[i] = r.SumObserved[i] + o.SumObserved[i]
		out.Count[i] = r.Count[i] + o.Count[i]
	}
	return out, nil
}

// ScoreSum accumulates per-pair scores, e.g. the continuous ranked probability score.
type ScoreSum struct {
	Count int
	Sum   float64
	// Baseline holds the same sum over the baseline pairs, if any.
	Baseline *ScoreSum
}

// Mean returns Sum/Count or NaN when empty.
func (s ScoreSum) Mean() float64 {
	if s.Count == 0 {
		return nan()
	}
	return s.Sum / float64(s.Count)
}

// Merge implements State. Either both sides carry a baseline or neither does.
func (s ScoreSum) Merge(other State) (State, error) {
	o, ok := other.(ScoreSum)
	if !ok {
		return nil, fmt.Errorf("%w: score sum with %T", ErrIncompatibleState, other)
	}
	if (s.Baseline == nil) != (o.Baseline == nil) {
		return nil, fmt.Errorf("%w: score sums with and without a baseline", ErrIncompatibleState)
	}
	out := ScoreSum{Count: s.Count + o.Count, Sum: s.Sum + o.Sum}
	if s.Baseline != nil {
		b, _ := s.Baseline.Merge(*o.Baseline)
		bs := b.(ScoreSum)
		out.Baseline = &bs
	}
	return out, nil
}

// RankCounts holds the weight of observations falling at each rank among the
// ensemble members. An ensemble of m members has m+1 ranks; a nil Counts means
// no pair has been counted yet.
type RankCounts struct {
	Counts []float64
	Pairs  int
}

// Merge implements State. Both sides must count the same number of ranks.
func (r RankCounts) Merge(other State) (State, error) {
	o, ok := other.(RankCounts)
	if !ok {
		return nil, fmt.Errorf("%w: rank counts with %T", ErrIncompatibleState, other)
	}
	switch {
	case r.Counts == nil:
		return o, nil
	case o.Counts == nil:
		return r, nil
	case len(r.Counts) != len(o.Counts):
		return nil, fmt.Errorf("%w: %d ranks with %d ranks", ErrIncompatibleState, len(r.Counts), len(o.Counts))
	}
	out := RankCounts{Counts: make([]float64, len(r.Counts)), Pairs: r.Pairs + o.Pairs}
	for i := range r.Counts {
		out.Counts[i] = r.Counts[i] + o.Counts[i]
	}
	return out, nil
}
