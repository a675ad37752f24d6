package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

const (
	defaultROCPoints         = 10
	defaultReliabilityBins   = 10
	rocTieTolerance          = 1e-7
	reliabilityLowerSentinel = -1.0
)

func occurred(p pairs.Probability) bool { return p.Left == 1 }

// rocScore is the area under the relative operating characteristic curve,
// reported as a skill score together with the area itself.
type rocScore struct {
	score
}

func (r *rocScore) Apply(pool *pairs.Pool[pairs.Probability]) (statistic.Statistic, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	area := areaUnderCurve(pool.Pairs())
	skill := 2*area - 1
	if pool.HasBaseline() {
		ref := areaUnderCurve(pool.Baseline().Pairs())
		skill = divide(area-ref, 1-ref)
	}
	return statistic.DoubleScore{
		Meta: r.meta("", pool.Len()),
		Components: []statistic.Component{
			{Name: metric.Main, Value: finiteOrMissing(skill)},
			{Name: metric.AreaUnderCurve, Value: area},
		},
	}, nil
}

// areaUnderCurve follows Mason and Graham (2002): every pair of an occurrence
// and a non-occurrence whose forecasts are misordered counts two, a tie counts one.
// It is NaN unless both outcomes are present.
func areaUnderCurve(ps []pairs.Probability) float64 {
	var yes, no []float64
	for _, p := range ps {
		if occurred(p) {
			yes = append(yes, p.Right)
		} else {
			no = append(no, p.Right)
		}
	}
	if len(yes) == 0 || len(no) == 0 {
		return math.NaN()
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(yes)))
	sort.Sort(sort.Reverse(sort.Float64Slice(no)))

	var rhs float64
	for _, o := range yes {
		for _, n := range no {
			if math.Abs(n-o) < rocTieTolerance {
				rhs++
				continue
			}
			if n < o {
				break
			}
			rhs += 2
		}
	}
	return 1 - rhs/(2*float64(len(yes))*float64(len(no)))
}

// rocDiagram reports detection and false detection rates for a ladder of
// probability classifiers, anchored at (0,0) and (1,1).
type rocDiagram struct {
	base
	points int
}

func (r *rocDiagram) Apply(pool *pairs.Pool[pairs.Probability]) (statistic.Statistic, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	ps := pool.Pairs()
	pod := make([]float64, r.points+1)
	pofd := make([]float64, r.points+1)
	pod[r.points], pofd[r.points] = 1, 1
	for i := 1; i < r.points; i++ {
		classifier := 1 - float64(i)/float64(r.points)
		var c statistic.Contingency
		for _, p := range ps {
			c.Add(occurred(p), p.Right > classifier)
		}
		pod[i] = detection(c)
		pofd[i] = falseDetection(c)
	}
	return statistic.Diagram{
		Meta: r.meta("", len(ps)),
		Dimensions: []statistic.Dimension{
			{Name: metric.DetectionRate, Values: pod},
			{Name: metric.FalseDetectionRate, Values: pofd},
		},
	}, nil
}

// reliabilityDiagram compares mean forecast probability with observed relative
// frequency in equal-width bins. Bin i holds forecasts in (i/bins, (i+1)/bins];
// the first bin also holds 0.
type reliabilityDiagram struct {
	base
	bins int
}

func (r *reliabilityDiagram) Apply(pool *pairs.Pool[pairs.Probability]) (statistic.Statistic, error) {
	st, err := r.Collect(pool)
	if err != nil {
		return nil, err
	}
	return r.Finish(st, pool.Metadata().Unit)
}

func (r *reliabilityDiagram) Collect(pool *pairs.Pool[pairs.Probability]) (statistic.State, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	st := statistic.NewReliabilityBins(r.bins)
	for _, p := range pool.Pairs() {
		i := r.bin(p.Right)
		st.SumForecast[i] += p.Right
		st.SumObserved[i] += p.Left
		st.Count[i]++
	}
	return st, nil
}

func (r *reliabilityDiagram) bin(p float64) int {
	for i := 0; i < r.bins; i++ {
		lower := float64(i) / float64(r.bins)
		if i == 0 {
			lower = reliabilityLowerSentinel
		}
		upper := float64(i+1) / float64(r.bins)
		if p > lower && p <= upper {
			return i
		}
	}
	return r.bins - 1
}

func (r *reliabilityDiagram) Finish(state statistic.State, _ string) (statistic.Statistic, error) {
	st, ok := state.(statistic.ReliabilityBins)
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot finish %T", ErrMetricInput, r.ID(), state)
	}
	var forecast, observed, samples []float64
	total := 0
	for i, n := range st.Count {
		if n == 0 {
			continue
		}
		forecast = append(forecast, st.SumForecast[i]/float64(n))
		observed = append(observed, st.SumObserved[i]/float64(n))
		samples = append(samples, float64(n))
		total += n
	}
	return statistic.Diagram{
		Meta: r.meta("", total),
		Dimensions: []statistic.Dimension{
			{Name: metric.ForecastProbability, Values: forecast},
			{Name: metric.ObservedRelativeFrequency, Values: observed},
			{Name: metric.SampleCount, Values: samples},
		},
	}, nil
}
