package scoring

import (
	"fmt"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithROCPoints sets the number of probability classifiers of the ROC diagram.
func WithROCPoints(n int) Option {
	return func(c *Catalog) {
		if n > 1 {
			c.rocPoints = n
		}
	}
}

// WithReliabilityBins sets the number of bins of the reliability diagram.
func WithReliabilityBins(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.reliabilityBins = n
		}
	}
}

// Catalog holds one instance of every metric in a registry, grouped by the
// pair type it consumes. It is immutable once built.
type Catalog struct {
	registry        *metric.Registry
	rocPoints       int
	reliabilityBins int

	singleValued map[metric.ID]Metric[pairs.SingleValued]
	ensemble     map[metric.ID]Metric[pairs.Ensemble]
	probability  map[metric.ID]Metric[pairs.Probability]
	dichotomous  map[metric.ID]Metric[pairs.Dichotomous]
}

// NewCatalog instantiates the metrics of reg.
func NewCatalog(reg *metric.Registry, opts ...Option) *Catalog {
	c := &Catalog{
		registry:        reg,
		rocPoints:       defaultROCPoints,
		reliabilityBins: defaultReliabilityBins,
		singleValued:    make(map[metric.ID]Metric[pairs.SingleValued]),
		ensemble:        make(map[metric.ID]Metric[pairs.Ensemble]),
		probability:     make(map[metric.ID]Metric[pairs.Probability]),
		dichotomous:     make(map[metric.ID]Metric[pairs.Dichotomous]),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, id := range reg.IDs() {
		d, _ := reg.Descriptor(id)
		switch d.Input {
		case metric.SingleValuedInput:
			if m := c.newSingleValued(d); m != nil {
				c.singleValued[id] = m
			}
		case metric.EnsembleInput:
			if m := c.newEnsemble(d); m != nil {
				c.ensemble[id] = m
			}
		case metric.ProbabilityInput:
			if m := c.newProbability(d); m != nil {
				c.probability[id] = m
			}
		case metric.DichotomousInput:
			if m := c.newDichotomous(d); m != nil {
				c.dichotomous[id] = m
			}
		}
	}
	return c
}

func singleIdentity(p pairs.SingleValued) (pairs.SingleValued, bool) { return p, true }

func (c *Catalog) newSingleValued(d metric.Descriptor) Metric[pairs.SingleValued] {
	moment := func(fn func(statistic.Moments) float64) Metric[pairs.SingleValued] {
		return newMomentScore(d, singleIdentity, fn)
	}
	paired := func(fn func(l, r []float64) float64) Metric[pairs.SingleValued] {
		return &pairedScore{score: score{base{d}}, fn: fn}
	}
	switch d.ID {
	case metric.MeanError:
		return moment(meanError)
	case metric.MeanAbsoluteError:
		return moment(meanAbsoluteError)
	case metric.MeanSquareError:
		return moment(meanSquareError)
	case metric.RootMeanSquareError:
		return moment(rootMeanSquareError)
	case metric.SumOfSquareError:
		return moment(sumOfSquareError)
	case metric.BiasFraction:
		return moment(biasFraction)
	case metric.VolumetricEfficiency:
		return moment(volumetricEfficiency)
	case metric.SampleSize:
		return moment(sampleSize)
	case metric.MeanSquareErrorSkillScore:
		return moment(meanSquareErrorSkill)
	case metric.PearsonCorrelationCoefficient:
		return paired(pearson)
	case metric.CoefficientOfDetermination:
		return paired(coefficientOfDetermination)
	case metric.KlingGuptaEfficiency:
		return paired(klingGupta)
	case metric.IndexOfAgreement:
		return paired(indexOfAgreement)
	}
	if fn := univariateFunc(d.ID); fn != nil {
		return &univariate{score: score{base{d}}, fn: fn}
	}
	return nil
}

func (c *Catalog) newEnsemble(d metric.Descriptor) Metric[pairs.Ensemble] {
	switch d.ID {
	case metric.ContinuousRankedProbabilityScore:
		return &rankedProbabilityScore{score: score{base{d}}}
	case metric.ContinuousRankedProbabilitySkillScore:
		return &rankedProbabilityScore{score: score{base{d}}, skill: true}
	case metric.RankHistogram:
		return &rankHistogram{base{d}}
	}
	return nil
}

func (c *Catalog) newProbability(d metric.Descriptor) Metric[pairs.Probability] {
	switch d.ID {
	case metric.BrierScore:
		return newMomentScore(d, pairs.ProbabilityToSingleValued, meanSquareError)
	case metric.BrierSkillScore:
		return newMomentScore(d, pairs.ProbabilityToSingleValued, meanSquareErrorSkill)
	case metric.RelativeOperatingCharacteristicScore:
		return &rocScore{score{base{d}}}
	case metric.RelativeOperatingCharacteristicDiagram:
		return &rocDiagram{base: base{d}, points: c.rocPoints}
	case metric.ReliabilityDiagram:
		return &reliabilityDiagram{base: base{d}, bins: c.reliabilityBins}
	}
	return nil
}

func (c *Catalog) newDichotomous(d metric.Descriptor) Metric[pairs.Dichotomous] {
	table := func(fn func(statistic.Contingency) float64) Metric[pairs.Dichotomous] {
		return &contingencyScore{score: score{base{d}}, fn: fn}
	}
	switch d.ID {
	case metric.ContingencyTable:
		return &contingencyTable{base{d}}
	case metric.ProbabilityOfDetection:
		return table(detection)
	case metric.ProbabilityOfFalseDetection:
		return table(falseDetection)
	case metric.ThreatScore:
		return table(threat)
	case metric.EquitableThreatScore:
		return table(equitableThreat)
	case metric.FrequencyBias:
		return table(frequencyBias)
	case metric.PeirceSkillScore:
		return table(peirce)
	}
	return nil
}

// Registry returns the registry the catalog was built from.
func (c *Catalog) Registry() *metric.Registry { return c.registry }

// SingleValued returns the metric for single-valued pairs.
func (c *Catalog) SingleValued(id metric.ID) (Metric[pairs.SingleValued], error) {
	return lookup(c.singleValued, id)
}

// Ensemble returns the metric for ensemble pairs.
func (c *Catalog) Ensemble(id metric.ID) (Metric[pairs.Ensemble], error) {
	return lookup(c.ensemble, id)
}

// Probability returns the metric for probability pairs.
func (c *Catalog) Probability(id metric.ID) (Metric[pairs.Probability], error) {
	return lookup(c.probability, id)
}

// Dichotomous returns the metric for dichotomous pairs.
func (c *Catalog) Dichotomous(id metric.ID) (Metric[pairs.Dichotomous], error) {
	return lookup(c.dichotomous, id)
}

// Finisher returns the finishing half of a collectable metric.
func (c *Catalog) Finisher(id metric.ID) (Finisher, bool) {
	for _, m := range []any{c.singleValued[id], c.ensemble[id], c.probability[id], c.dichotomous[id]} {
		if f, ok := m.(Finisher); ok {
			return f, true
		}
	}
	return nil, false
}

func lookup[S pairs.Pair](m map[metric.ID]Metric[S], id metric.ID) (Metric[S], error) {
	if v, ok := m[id]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMetric, id)
}
