package pairs

import (
	"fmt"
	"slices"

	"github.com/okian/wres/internal/domain/threshold"
	"github.com/okian/wres/internal/domain/timeseries"
	"github.com/okian/wres/internal/domain/timewindow"
)

// Metadata describes a pool.
type Metadata struct {
	Feature   string
	Unit      string
	Window    timewindow.TimeWindow
	Threshold threshold.Threshold
	TimeScale *timeseries.TimeScale
}

// Pool is an immutable collection of pairs of one type, the unit of work a metric consumes.
type Pool[S Pair] struct {
	meta        Metadata
	pairs       []S
	baseline    *Pool[S]
	climatology []float64
}

// Of validates and wraps pairs into a pool. A nil baseline means there is no
// skill baseline; a non-nil baseline must be non-empty and well formed.
func Of[S Pair](ps []S, baseline []S, meta Metadata) (*Pool[S], error) {
	if ps == nil {
		return nil, ErrNilPairs
	}
	if len(ps) == 0 {
		return nil, ErrEmptyPairs
	}
	if err := validate(ps); err != nil {
		return nil, err
	}
	p := &Pool[S]{meta: meta, pairs: cloneAll(ps)}

	if baseline != nil {
		if len(baseline) == 0 {
			return nil, ErrEmptyBaseline
		}
		if err := validate(baseline); err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		p.baseline = &Pool[S]{meta: meta, pairs: cloneAll(baseline)}
	}
	return p, nil
}

// Derive builds a pool from pairs selected out of a larger sample. Unlike Of it
// accepts empty pairs and an empty, non-nil baseline; shapes are still validated.
func Derive[S Pair](ps []S, baseline []S, meta Metadata) (*Pool[S], error) {
	if err := validate(ps); err != nil {
		return nil, err
	}
	p := &Pool[S]{meta: meta, pairs: cloneAll(ps)}
	if baseline != nil {
		if err := validate(baseline); err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		p.baseline = &Pool[S]{meta: meta, pairs: cloneAll(baseline)}
	}
	return p, nil
}

// Empty returns a pool without pairs. Empty pools only arise from slicing and
// metrics answer them with missing values.
func Empty[S Pair](meta Metadata) *Pool[S] {
	return &Pool[S]{meta: meta, pairs: []S{}}
}

func cloneAll[S Pair](ps []S) []S {
	out := make([]S, len(ps))
	for i, p := range ps {
		out[i] = clonePair(p)
	}
	return out
}

// Metadata returns the pool metadata.
func (p *Pool[S]) Metadata() Metadata { return p.meta }

// Pairs returns the pairs in order. The slice is a copy; member slices are shared and must not be modified.
func (p *Pool[S]) Pairs() []S { return slices.Clone(p.pairs) }

// Len returns the number of pairs.
func (p *Pool[S]) Len() int { return len(p.pairs) }

// Baseline returns the baseline pool or nil.
func (p *Pool[S]) Baseline() *Pool[S] { return p.baseline }

// HasBaseline reports whether a baseline is present.
func (p *Pool[S]) HasBaseline() bool { return p.baseline != nil }

// Climatology returns a copy of the climatological sample, if any.
func (p *Pool[S]) Climatology() []float64 { return slices.Clone(p.climatology) }

// WithClimatology returns a copy of the pool carrying a climatological sample.
func (p *Pool[S]) WithClimatology(c []float64) *Pool[S] {
	cp := *p
	cp.climatology = slices.Clone(c)
	return &cp
}

// WithMetadata returns a copy of the pool, and of its baseline, with new metadata.
func (p *Pool[S]) WithMetadata(meta Metadata) *Pool[S] {
	cp := *p
	cp.meta = meta
	if p.baseline != nil {
		b := *p.baseline
		b.meta = meta
		cp.baseline = &b
	}
	return &cp
}

// Filter returns a pool keeping the main pairs that satisfy keep and the baseline
// pairs that satisfy keepBaseline. A nil keepBaseline uses keep. The result may be empty.
func (p *Pool[S]) Filter(keep, keepBaseline func(S) bool) *Pool[S] {
	if keepBaseline == nil {
		keepBaseline = keep
	}
	cp := &Pool[S]{meta: p.meta, pairs: filter(p.pairs, keep), climatology: p.climatology}
	if p.baseline != nil {
		cp.baseline = &Pool[S]{meta: p.meta, pairs: filter(p.baseline.pairs, keepBaseline)}
	}
	return cp
}

func filter[S Pair](ps []S, keep func(S) bool) []S {
	out := make([]S, 0, len(ps))
	for _, p := range ps {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Transform maps every main and baseline pair to another pair type. Pairs for
// which fn reports false are dropped. The transformed pairs are validated.
func Transform[S, T Pair](p *Pool[S], fn func(S) (T, bool)) (*Pool[T], error) {
	if p == nil {
		return nil, ErrNilPairs
	}
	main, err := transform(p.pairs, fn)
	if err != nil {
		return nil, err
	}
	out := &Pool[T]{meta: p.meta, pairs: main, climatology: p.climatology}
	if p.baseline != nil {
		base, err := transform(p.baseline.pairs, fn)
		if err != nil {
			return nil, fmt.Errorf("baseline: %w", err)
		}
		out.baseline = &Pool[T]{meta: p.meta, pairs: base}
	}
	return out, nil
}

func transform[S, T Pair](ps []S, fn func(S) (T, bool)) ([]T, error) {
	out := make([]T, 0, len(ps))
	for _, p := range ps {
		if t, ok := fn(p); ok {
			out = append(out, t)
		}
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Concat joins pools in order. Baselines are joined when every pool has one.
// The metadata and climatology of the first pool are kept.
func Concat[S Pair](pools ...*Pool[S]) (*Pool[S], error) {
	if len(pools) == 0 {
		return nil, ErrNilPairs
	}
	out := &Pool[S]{meta: pools[0].meta, climatology: pools[0].climatology}
	withBaseline := true
	for _, p := range pools {
		if p == nil {
			return nil, ErrNilPairs
		}
		out.pairs = append(out.pairs, p.pairs...)
		withBaseline = withBaseline && p.baseline != nil
	}
	if out.pairs == nil {
		out.pairs = []S{}
	}
	if withBaseline {
		base := make([]S, 0)
		for _, p := range pools {
			base = append(base, p.baseline.pairs...)
		}
		out.baseline = &Pool[S]{meta: out.meta, pairs: base}
	}
	if err := validate(out.pairs); err != nil {
		return nil, err
	}
	return out, nil
}
