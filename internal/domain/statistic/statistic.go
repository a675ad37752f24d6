// Package statistic holds metric outputs, the additive state behind them and
// the map that aggregates both by time window and threshold.
package statistic

import (
	"github.com/okian/wres/internal/domain/metric"
)

// Meta is carried by every statistic.
type Meta struct {
	Metric     metric.ID
	SampleSize int
	// Unit is empty for dimensionless metrics.
	Unit string
}

// Statistic is the output of one metric applied to one pool.
type Statistic interface {
	Metadata() Meta
	Group() metric.StatisticGroup
}

// Metadata returns the statistic metadata.
func (m Meta) Metadata() Meta { return m }

// Component is one named value of a score.
type Component struct {
	Name  metric.Component
	Value float64
}

// DoubleScore is a score with ordered named components.
type DoubleScore struct {
	Meta
	Components []Component
}

// Group implements Statistic.
func (DoubleScore) Group() metric.StatisticGroup { return metric.DoubleScore }

// Component returns the value of the named component.
func (s DoubleScore) Component(name metric.Component) (float64, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

// Value returns the MAIN component, or the first component when there is none.
func (s DoubleScore) Value() float64 {
	if v, ok := s.Component(metric.Main); ok {
		return v
	}
	if len(s.Components) > 0 {
		return s.Components[0].Value
	}
	return nan()
}

// Dimension is one named vector of a diagram.
type Dimension struct {
	Name   metric.Dimension
	Values []float64
}

// Diagram is a set of parallel vectors.
type Diagram struct {
	Meta
	Dimensions []Dimension
}

// Group implements Statistic.
func (Diagram) Group() metric.StatisticGroup { return metric.Diagram }

// Dimension returns the named vector.
func (d Diagram) Dimension(name metric.Dimension) ([]float64, bool) {
	for _, dim := range d.Dimensions {
		if dim.Name == name {
			return dim.Values, true
		}
	}
	return nil, false
}

// Matrix is a table of values with named rows and columns.
type Matrix struct {
	Meta
	Rows    []string
	Columns []string
	Values  [][]float64
}

// Group implements Statistic.
func (Matrix) Group() metric.StatisticGroup { return metric.Matrix }

// Entry is one flattened value of a statistic.
type Entry struct {
	Name  string
	Index int
	Value float64
}

// Flatten lists every value of a statistic in output order.
// Matrix entries are named "row:column".
func Flatten(s Statistic) []Entry {
	var out []Entry
	switch v := s.(type) {
	case DoubleScore:
		for _, c := range v.Components {
			out = append(out, Entry{Name: string(c.Name), Value: c.Value})
		}
	case Diagram:
		for _, d := range v.Dimensions {
			for i, x := range d.Values {
				out = append(out, Entry{Name: string(d.Name), Index: i, Value: x})
			}
		}
	case Matrix:
		for i, row := range v.Values {
			for j, x := range row {
				out = append(out, Entry{Name: v.Rows[i] + ":" + v.Columns[j], Index: i*len(row) + j, Value: x})
			}
		}
	}
	return out
}
