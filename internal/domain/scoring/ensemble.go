package scoring

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

// finiteMembers returns the sorted finite members of an ensemble pair, or
// false when the observation or every member is missing.
func finiteMembers(p pairs.Ensemble) ([]float64, bool) {
	if !isFinite(p.Left) {
		return nil, false
	}
	out := make([]float64, 0, len(p.Right))
	for _, m := range p.Right {
		if isFinite(m) {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out, len(out) > 0
}

// crps is the continuous ranked probability score of one ensemble forecast,
// E|X-y| - E|X-X'|/2 over the empirical distribution of the sorted members.
func crps(y float64, sorted []float64) float64 {
	m := float64(len(sorted))
	var spread float64
	for k, x := range sorted {
		spread += x * (2*float64(k) - m + 1)
	}
	abs := make([]float64, len(sorted))
	for i, x := range sorted {
		abs[i] = math.Abs(x - y)
	}
	return floats.Sum(abs)/m - spread/(m*m)
}

func crpsSum(ps []pairs.Ensemble) statistic.ScoreSum {
	var s statistic.ScoreSum
	for _, p := range ps {
		if members, ok := finiteMembers(p); ok {
			s.Count++
			s.Sum += crps(p.Left, members)
		}
	}
	return s
}

// rankedProbabilityScore is the mean CRPS, or its skill against the baseline.
type rankedProbabilityScore struct {
	score
	skill bool
}

func (s *rankedProbabilityScore) Apply(pool *pairs.Pool[pairs.Ensemble]) (statistic.Statistic, error) {
	st, err := s.Collect(pool)
	if err != nil {
		return nil, err
	}
	return s.Finish(st, pool.Metadata().Unit)
}

func (s *rankedProbabilityScore) Collect(pool *pairs.Pool[pairs.Ensemble]) (statistic.State, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if s.skill && !pool.HasBaseline() {
		return nil, fmt.Errorf("%w: %s needs a baseline", ErrMetricInput, s.ID())
	}
	sum := crpsSum(pool.Pairs())
	if pool.HasBaseline() {
		b := crpsSum(pool.Baseline().Pairs())
		sum.Baseline = &b
	}
	return sum, nil
}

func (s *rankedProbabilityScore) Finish(state statistic.State, unit string) (statistic.Statistic, error) {
	sum, ok := state.(statistic.ScoreSum)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot finish %T", ErrMetricInput, s.ID(), state)
	}
	if !s.skill {
		return s.single(unit, sum.Count, sum.Mean()), nil
	}
	if sum.Baseline == nil {
		return nil, fmt.Errorf("%w: %s needs a baseline", ErrMetricInput, s.ID())
	}
	return s.single(unit, sum.Count, 1-divide(sum.Mean(), sum.Baseline.Mean())), nil
}

// rankHistogram counts where each observation falls among its sorted members.
// Ties share their weight equally across the ranks they span. Every counted
// pair must have the same number of finite members.
type rankHistogram struct {
	base
}

func (r *rankHistogram) Apply(pool *pairs.Pool[pairs.Ensemble]) (statistic.Statistic, error) {
	st, err := r.Collect(pool)
	if err != nil {
		return nil, err
	}
	return r.Finish(st, pool.Metadata().Unit)
}

func (r *rankHistogram) Collect(pool *pairs.Pool[pairs.Ensemble]) (statistic.State, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	var out statistic.RankCounts
	for i, p := range pool.Pairs() {
		members, ok := finiteMembers(p)
		if !ok {
			continue
		}
		if out.Counts == nil {
			out.Counts = make([]float64, len(members)+1)
		}
		if len(members)+1 != len(out.Counts) {
			return nil, fmt.Errorf("%w: pair %d has %d members, expected %d", ErrMetricInput, i, len(members), len(out.Counts)-1)
		}
		below, ties := 0, 0
		for _, m := range members {
			switch {
			case m < p.Left:
				below++
			case m == p.Left:
				ties++
			}
		}
		w := 1 / float64(ties+1)
		for k := below; k <= below+ties; k++ {
			out.Counts[k] += w
		}
		out.Pairs++
	}
	return out, nil
}

func (r *rankHistogram) Finish(state statistic.State, _ string) (statistic.Statistic, error) {
	rc, ok := state.(statistic.RankCounts)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot finish %T", ErrMetricInput, r.ID(), state)
	}
	ranks := make([]float64, len(rc.Counts))
	freq := make([]float64, len(rc.Counts))
	for i, c := range rc.Counts {
		ranks[i] = float64(i + 1)
		freq[i] = divide(c, float64(rc.Pairs))
	}
	return statistic.Diagram{
		Meta: r.meta("", rc.Pairs),
		Dimensions: []statistic.Dimension{
			{Name: metric.RankOrder, Values: ranks},
			{Name: metric.ObservedRelativeFrequency, Values: freq},
		},
	}, nil
}
