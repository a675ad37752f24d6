// Package scoring defines the metric contract and the verification metrics.
package scoring

import (
	"errors"
	"math"

	"github.com/okian/wres/internal/domain/metric"
	"github.com/okian/wres/internal/domain/pairs"
	"github.com/okian/wres/internal/domain/statistic"
)

var (
	// ErrNilPool is returned when a metric is applied to a nil pool.
	ErrNilPool = errors.New("pool is nil")
	// ErrMetricInput is returned when a metric cannot consume its input.
	ErrMetricInput = errors.New("invalid metric input")
	// ErrUnsupportedMetric is returned when a catalog has no metric for an id and pair type.
	ErrUnsupportedMetric = errors.New("unsupported metric")
)

// Metric computes one statistic from a pool. Implementations are stateless
// and may be applied to many pools concurrently.
type Metric[S pairs.Pair] interface {
	ID() metric.ID
	Apply(pool *pairs.Pool[S]) (statistic.Statistic, error)
}

// RealUnits is implemented by metrics whose output carries the pool's unit.
type RealUnits interface {
	HasRealUnits() bool
}

// SkillScore is implemented by scores measured against a reference.
type SkillScore interface {
	IsSkillScore() bool
}

// Proper is implemented by probability scores.
type Proper interface {
	IsProper() bool
	IsStrictlyProper() bool
}

// Decomposable is implemented by scores with a decomposition class.
type Decomposable interface {
	IsDecomposable() bool
	ScoreGroup() metric.ScoreGroup
}

// Collectable is implemented by metrics whose result can be built from
// additive state, so that pools processed in separate batches can be merged.
// Finish(Collect(a) merged with Collect(b)) equals Apply on the union of a and b.
// Finish takes the measurement unit of the pools the state came from.
type Collectable[S pairs.Pair] interface {
	Metric[S]
	Collect(pool *pairs.Pool[S]) (statistic.State, error)
	Finish(state statistic.State, unit string) (statistic.Statistic, error)
}

// Finisher is the non-generic half of Collectable, used once states are merged.
type Finisher interface {
	Finish(state statistic.State, unit string) (statistic.Statistic, error)
}

// base supplies identity and units to every metric.
type base struct {
	d metric.Descriptor
}

func (b base) ID() metric.ID { return b.d.ID }

func (b base) HasRealUnits() bool { return b.d.RealUnits }

func (b base) Descriptor() metric.Descriptor { return b.d }

func (b base) meta(unit string, n int) statistic.Meta {
	if !b.d.RealUnits {
		unit = ""
	}
	return statistic.Meta{Metric: b.d.ID, SampleSize: n, Unit: unit}
}

// score adds the score capabilities.
type score struct {
	base
}

func (s score) IsSkillScore() bool            { return s.d.Skill }
func (s score) IsProper() bool                { return s.d.Proper }
func (s score) IsStrictlyProper() bool        { return s.d.StrictlyProper }
func (s score) IsDecomposable() bool          { return s.d.Decomposable }
func (s score) ScoreGroup() metric.ScoreGroup { return s.d.ScoreGroup }

func (s score) single(unit string, n int, v float64) statistic.DoubleScore {
	return statistic.DoubleScore{
		Meta:       s.meta(unit, n),
		Components: []statistic.Component{{Name: metric.Main, Value: finiteOrMissing(v)}},
	}
}

// finiteOrMissing maps infinities to NaN so that undefined results read as missing.
func finiteOrMissing(v float64) float64 {
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func divide(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return finiteOrMissing(num / den)
}
