package metric

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownMetric is returned when a name matches no registered metric.
var ErrUnknownMetric = errors.New("unknown metric")

// Descriptor holds the fixed properties of a metric.
type Descriptor struct {
	ID             ID
	Input          SampleDataGroup
	Output         StatisticGroup
	RealUnits      bool
	Skill          bool
	Proper         bool
	StrictlyProper bool
	Decomposable   bool
	ScoreGroup     ScoreGroup
	Minimum        float64
	Maximum        float64
	Perfect        float64
}

// Name returns the metric name in title case, e.g. "Brier Score".
func (d Descriptor) Name() string {
	words := strings.Split(strings.ToLower(string(d.ID)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Registry is an immutable lookup table of metric descriptors.
// Build it once with NewRegistry and pass it to whatever needs it.
type Registry struct {
	byID  map[ID]Descriptor
	order []ID
}

// NewRegistry returns a registry of every supported metric.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[ID]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Lookup finds a metric by name. Matching ignores case and treats spaces and
// hyphens as underscores, so "brier score" and "BRIER_SCORE" are the same.
func (r *Registry) Lookup(name string) (Descriptor, error) {
	norm := strings.ToUpper(strings.TrimSpace(name))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	d, ok := r.byID[ID(norm)]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return d, nil
}

// Descriptor returns the descriptor of id.
func (r *Registry) Descriptor(id ID) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns every registered metric in registration order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

// ByInput returns the registered metrics that consume the given pair type.
func (r *Registry) ByInput(g SampleDataGroup) []ID {
	var out []ID
	for _, id := range r.order {
		if r.byID[id].Input == g {
			out = append(out, id)
		}
	}
	return out
}

var (
	inf = math.Inf(1)
	nan = math.NaN()
)

func score(id ID, in SampleDataGroup, minimum, maximum, perfect float64) Descriptor {
	return Descriptor{
		ID: id, Input: in, Output: DoubleScore, ScoreGroup: NoDecomposition,
		Minimum: minimum, Maximum: maximum, Perfect: perfect,
	}
}

func withUnits(d Descriptor) Descriptor { d.RealUnits = true; return d }
func skill(d Descriptor) Descriptor     { d.Skill = true; return d }

func proper(d Descriptor, strictly bool) Descriptor {
	d.Proper, d.StrictlyProper = true, strictly
	return d
}

func decomposable(d Descriptor, g ScoreGroup) Descriptor {
	d.Decomposable, d.ScoreGroup = true, g
	return d
}

func shaped(id ID, in SampleDataGroup, out StatisticGroup) Descriptor {
	return Descriptor{ID: id, Input: in, Output: out, ScoreGroup: NoDecomposition, Minimum: nan, Maximum: nan, Perfect: nan}
}

var descriptors = []Descriptor{
	withUnits(score(MeanError, SingleValuedInput, -inf, inf, 0)),
	withUnits(score(MeanAbsoluteError, SingleValuedInput, 0, inf, 0)),
	decomposable(withUnits(score(MeanSquareError, SingleValuedInput, 0, inf, 0)), NoDecomposition),
	withUnits(score(RootMeanSquareError, SingleValuedInput, 0, inf, 0)),
	withUnits(score(SumOfSquareError, SingleValuedInput, 0, inf, 0)),
	score(BiasFraction, SingleValuedInput, -inf, inf, 0),
	score(PearsonCorrelationCoefficient, SingleValuedInput, -1, 1, 1),
	score(CoefficientOfDetermination, SingleValuedInput, 0, 1, 1),
	skill(score(MeanSquareErrorSkillScore, SingleValuedInput, -inf, 1, 1)),
	skill(score(KlingGuptaEfficiency, SingleValuedInput, -inf, 1, 1)),
	skill(score(IndexOfAgreement, SingleValuedInput, 0, 1, 1)),
	score(VolumetricEfficiency, SingleValuedInput, -inf, 1, 1),
	score(SampleSize, SingleValuedInput, 0, inf, nan),

	withUnits(score(Mean, SingleValuedInput, -inf, inf, nan)),
	withUnits(score(Minimum, SingleValuedInput, -inf, inf, nan)),
	withUnits(score(Maximum, SingleValuedInput, -inf, inf, nan)),
	withUnits(score(StandardDeviation, SingleValuedInput, 0, inf, nan)),
	withUnits(score(Median, SingleValuedInput, -inf, inf, nan)),
	withUnits(score(MeanAbsolute, SingleValuedInput, 0, inf, nan)),

	decomposable(proper(score(BrierScore, ProbabilityInput, 0, 1, 0), true), NoDecomposition),
	skill(score(BrierSkillScore, ProbabilityInput, -inf, 1, 1)),
	skill(score(RelativeOperatingCharacteristicScore, ProbabilityInput, -inf, 1, 1)),
	shaped(RelativeOperatingCharacteristicDiagram, ProbabilityInput, Diagram),
	shaped(ReliabilityDiagram, ProbabilityInput, Diagram),

	decomposable(proper(withUnits(score(ContinuousRankedProbabilityScore, EnsembleInput, 0, inf, 0)), true), CR),
	skill(score(ContinuousRankedProbabilitySkillScore, EnsembleInput, -inf, 1, 1)),
	shaped(RankHistogram, EnsembleInput, Diagram),

	shaped(ContingencyTable, DichotomousInput, Matrix),
	score(ProbabilityOfDetection, DichotomousInput, 0, 1, 1),
	score(ProbabilityOfFalseDetection, DichotomousInput, 0, 1, 0),
	score(ThreatScore, DichotomousInput, 0, 1, 1),
	skill(score(EquitableThreatScore, DichotomousInput, -1.0/3, 1, 1)),
	score(FrequencyBias, DichotomousInput, 0, inf, 1),
	skill(score(PeirceSkillScore, DichotomousInput, -1, 1, 1)),
}
