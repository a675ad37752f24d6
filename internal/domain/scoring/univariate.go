package scoring

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

// univariate applies one summary statistic to each side of a pool
// independently: the left values, the right values and, when there is a
// baseline, the baseline's right values. Non-finite values are ignored.
type univariate struct {
	score
	fn func(stats.Float64Data) (float64, error)
}

func (u *univariate) Apply(pool *pairs.Pool[pairs.SingleValued]) (statistic.Statistic, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	ps := pool.Pairs()
	left := make(stats.Float64Data, 0, len(ps))
	right := make(stats.Float64Data, 0, len(ps))
	for _, p := range ps {
		if isFinite(p.Left) {
			left = append(left, p.Left)
		}
		if isFinite(p.Right) {
			right = append(right, p.Right)
		}
	}
	out := statistic.DoubleScore{
		Meta: u.meta(pool.Metadata().Unit, len(ps)),
		Components: []statistic.Component{
			{Name: metric.Left, Value: u.eval(left)},
			{Name: metric.Right, Value: u.eval(right)},
		},
	}
	if pool.HasBaseline() {
		bs := pool.Baseline().Pairs()
		base := make(stats.Float64Data, 0, len(bs))
		for _, p := range bs {
			if isFinite(p.Right) {
				base = append(base, p.Right)
			}
		}
		out.Components = append(out.Components, statistic.Component{Name: metric.Baseline, Value: u.eval(base)})
	}
	return out, nil
}

// eval returns NaN for empty input or when the statistic is undefined.
func (u *univariate) eval(values stats.Float64Data) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	v, err := u.fn(values)
	if err != nil {
		return math.NaN()
	}
	return finiteOrMissing(v)
}

func univariateFunc(id metric.ID) func(stats.Float64Data) (float64, error) {
	switch id {
	case metric.Mean:
		return stats.Mean
	case metric.Minimum:
		return stats.Min
	case metric.Maximum:
		return stats.Max
	case metric.Median:
		return stats.Median
	case metric.StandardDeviation:
		return func(d stats.Float64Data) (float64, error) {
			if len(d) < 2 {
				return math.NaN(), nil
			}
			return stats.StandardDeviationSample(d)
		}
	case metric.MeanAbsolute:
		return func(d stats.Float64Data) (float64, error) {
			abs := make(stats.Float64Data, len(d))
			for i, v := range d {
				abs[i] = math.Abs(v)
			}
			return stats.Mean(abs)
		}
	default:
		return nil
	}
}
