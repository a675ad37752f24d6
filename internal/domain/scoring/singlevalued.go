package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

// momentScore is a score computed from the additive moments of finite pairs.
// Pairs of type S are viewed as single-valued pairs through toSingle, which lets
// the Brier scores reuse the mean square error machinery over probability pairs.
type momentScore[S pairs.Pair] struct {
	score
	toSingle func(S) (pairs.SingleValued, bool)
	fn       func(statistic.Moments) float64
}

func newMomentScore[S pairs.Pair](d metric.Descriptor, toSingle func(S) (pairs.SingleValued, bool), fn func(statistic.Moments) float64) *momentScore[S] {
	return &momentScore[S]{score: score{base{d}}, toSingle: toSingle, fn: fn}
}

func (s *momentScore[S]) Apply(pool *pairs.Pool[S]) (statistic.Statistic, error) {
	st, err := s.Collect(pool)
	if err != nil {
		return nil, err
	}
	return s.Finish(st, pool.Metadata().Unit)
}

func (s *momentScore[S]) Collect(pool *pairs.Pool[S]) (statistic.State, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	m := s.moments(pool.Pairs())
	if pool.HasBaseline() {
		b := s.moments(pool.Baseline().Pairs())
		m.Baseline = &b
	}
	return m, nil
}

func (s *momentScore[S]) moments(ps []S) statistic.Moments {
	var m statistic.Moments
	for _, p := range ps {
		sv, ok := s.toSingle(p)
		if ok && pairs.IsFinite(sv) {
			m.Add(sv.Left, sv.Right)
		}
	}
	return m
}

func (s *momentScore[S]) Finish(state statistic.State, unit string) (statistic.Statistic, error) {
	m, ok := state.(statistic.Moments)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot finish %T", ErrMetricInput, s.ID(), state)
	}
	return s.single(unit, m.Count, s.fn(m)), nil
}

func meanError(m statistic.Moments) float64 { return divide(m.SumError, float64(m.Count)) }

func meanAbsoluteError(m statistic.Moments) float64 {
	return divide(m.SumAbsError, float64(m.Count))
}

func meanSquareError(m statistic.Moments) float64 { return m.MeanSquareError() }

func rootMeanSquareError(m statistic.Moments) float64 { return math.Sqrt(m.MeanSquareError()) }

func sumOfSquareError(m statistic.Moments) float64 {
	if m.Count == 0 {
		return math.NaN()
	}
	return m.SumError2
}

func biasFraction(m statistic.Moments) float64 { return divide(m.SumError, m.SumLeft) }

func volumetricEfficiency(m statistic.Moments) float64 {
	return divide(m.SumLeft-m.SumAbsError, m.SumLeft)
}

func sampleSize(m statistic.Moments) float64 { return float64(m.Count) }

// meanSquareErrorSkill is 1 - MSE/MSE_ref, where the reference is the baseline
// when present and otherwise the sample climatology of the left values.
func meanSquareErrorSkill(m statistic.Moments) float64 {
	ref := m.LeftVariance()
	if m.Baseline != nil {
		ref = m.Baseline.MeanSquareError()
	}
	return 1 - divide(m.MeanSquareError(), ref)
}

// pairedScore is a score over the finite left and right values that needs the
// whole sample at once.
type pairedScore struct {
	score
	fn func(left, right []float64) float64
}

func (s *pairedScore) Apply(pool *pairs.Pool[pairs.SingleValued]) (statistic.Statistic, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	left, right := finiteSides(pool.Pairs())
	return s.single(pool.Metadata().Unit, len(left), s.fn(left, right)), nil
}

func finiteSides(ps []pairs.SingleValued) (left, right []float64) {
	left = make([]float64, 0, len(ps))
	right = make([]float64, 0, len(ps))
	for _, p := range ps {
		if pairs.IsFinite(p) {
			left = append(left, p.Left)
			right = append(right, p.Right)
		}
	}
	return left, right
}

func pearson(left, right []float64) float64 {
	if len(left) < 2 {
		return math.NaN()
	}
	return stat.Correlation(left, right, nil)
}

func coefficientOfDetermination(left, right []float64) float64 {
	r := pearson(left, right)
	return r * r
}

func klingGupta(left, right []float64) float64 {
	if len(left) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(left, right, nil)
	ml, sl := stat.MeanStdDev(left, nil)
	mr, sr := stat.MeanStdDev(right, nil)
	variability := divide(sr, sl) - 1
	bias := divide(mr, ml) - 1
	return 1 - math.Sqrt((r-1)*(r-1)+variability*variability+bias*bias)
}

func indexOfAgreement(left, right []float64) float64 {
	if len(left) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(left, nil)
	var den float64
	for i := range left {
		den += math.Abs(right[i]-mean) + math.Abs(left[i]-mean)
	}
	return 1 - divide(floats.Distance(left, right, 1), den)
}
