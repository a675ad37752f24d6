// Package threshold defines the thresholds pools are sliced or classified by.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel kinds for threshold errors.
var (
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidQuantile  = errors.New("invalid quantile")
)

// Operator is the comparison applied by a threshold.
type Operator string

// Operators.
const (
	Greater      Operator = "GREATER"
	Less         Operator = "LESS"
	GreaterEqual Operator = "GREATER_EQUAL"
	LessEqual    Operator = "LESS_EQUAL"
	Equal        Operator = "EQUAL"
	Between      Operator = "BETWEEN"
)

var operatorSymbols = map[Operator]string{
	Greater: ">", Less: "<", GreaterEqual: ">=", LessEqual: "<=", Equal: "=", Between: ">=",
}

// DataType selects which side of a pair a threshold is applied to.
type DataType string

// Data types.
const (
	Left            DataType = "LEFT"
	Right           DataType = "RIGHT"
	LeftAndRight    DataType = "LEFT_AND_RIGHT"
	AnyRight        DataType = "ANY_RIGHT"
	LeftAndAnyRight DataType = "LEFT_AND_ANY_RIGHT"
	Baseline        DataType = "BASELINE"
)

// equalTolerance is the absolute tolerance of the EQUAL operator.
const equalTolerance = 1e-8

// Threshold is comparable and can be used as a map key. Build it with New.
//
// For probability thresholds Probability and ProbabilityUpper hold the
// declared probabilities and Value and Upper hold the resolved quantiles
// once Resolve has been called.
type Threshold struct {
	Name             string
	Operator         Operator
	DataType         DataType
	Value            float64
	Upper            float64
	Probability      float64
	ProbabilityUpper float64
	IsProbability    bool
	Resolved         bool
	Unit             string
}

// Option configures a threshold.
type Option func(*Threshold)

// WithName sets a display name.
func WithName(name string) Option {
	return func(t *Threshold) { t.Name = name }
}

// WithUnit sets the unit of a value threshold.
func WithUnit(unit string) Option {
	return func(t *Threshold) { t.Unit = unit }
}

// AsProbability marks the values as non-exceedance probabilities to be resolved against a climatology.
func AsProbability() Option {
	return func(t *Threshold) { t.IsProbability = true }
}

// New builds and validates a threshold. BETWEEN takes two values, every other operator one.
func New(op Operator, dataType DataType, values []float64, opts ...Option) (Threshold, error) {
	t := Threshold{Operator: op, DataType: dataType}
	for _, opt := range opts {
		opt(&t)
	}
	if _, ok := operatorSymbols[op]; !ok {
		return Threshold{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidThreshold, op)
	}
	switch dataType {
	case Left, Right, LeftAndRight, AnyRight, LeftAndAnyRight, Baseline:
	default:
		return Threshold{}, fmt.Errorf("%w: unknown data type %q", ErrInvalidThreshold, dataType)
	}

	want := 1
	if op == Between {
		want = 2
	}
	if len(values) != want {
		return Threshold{}, fmt.Errorf("%w: %s needs %d value(s), got %d", ErrInvalidThreshold, op, want, len(values))
	}
	for _, v := range values {
		if math.IsNaN(v) {
			return Threshold{}, fmt.Errorf("%w: value is NaN", ErrInvalidThreshold)
		}
		if t.IsProbability && (v < 0 || v > 1) {
			return Threshold{}, fmt.Errorf("%w: probability %v is outside [0,1]", ErrInvalidThreshold, v)
		}
	}
	if op == Between && values[0] >= values[1] {
		return Threshold{}, fmt.Errorf("%w: BETWEEN needs value1 < value2, got %v and %v",
			ErrInvalidThreshold, values[0], values[1])
	}

	if t.IsProbability {
		t.Probability = values[0]
		if op == Between {
			t.ProbabilityUpper = values[1]
		}
		return t, nil
	}
	t.Value = values[0]
	if op == Between {
		t.Upper = values[1]
	}
	t.Resolved = true
	return t, nil
}

// AllData returns the threshold that admits every finite pair.
func AllData() Threshold {
	return Threshold{Name: "all data", Operator: Greater, DataType: LeftAndRight, Value: math.Inf(-1), Resolved: true}
}

// IsAllData reports whether t is the all-data threshold.
func (t Threshold) IsAllData() bool {
	return t.Operator == Greater && math.IsInf(t.Value, -1) && !t.IsProbability
}

// Test applies the operator to v. BETWEEN is half-open: lower <= v < upper.
func (t Threshold) Test(v float64) bool {
	switch t.Operator {
	case Greater:
		return v > t.Value
	case Less:
		return v < t.Value
	case GreaterEqual:
		return v >= t.Value
	case LessEqual:
		return v <= t.Value
	case Equal:
		return math.Abs(v-t.Value) < equalTolerance
	case Between:
		return v >= t.Value && v < t.Upper
	default:
		return false
	}
}

// Declared returns the threshold as declared, dropping any resolved quantile values.
func (t Threshold) Declared() Threshold {
	if !t.IsProbability {
		return t
	}
	t.Value, t.Upper, t.Resolved = 0, 0, false
	return t
}

func (t Threshold) String() string {
	if t.IsAllData() {
		return "All data"
	}
	var b strings.Builder
	if t.Name != "" {
		b.WriteString(t.Name)
		b.WriteString(" ")
	}
	sym := operatorSymbols[t.Operator]
	if t.IsProbability {
		b.WriteString("Pr " + sym + " " + format(t.Probability))
		if t.Operator == Between {
			b.WriteString(" & Pr < " + format(t.ProbabilityUpper))
		}
		if t.Resolved {
			b.WriteString(" (" + sym + " " + format(t.Value))
			if t.Operator == Between {
				b.WriteString(" & < " + format(t.Upper))
			}
			b.WriteString(")")
		}
	} else {
		b.WriteString(sym + " " + format(t.Value))
		if t.Operator == Between {
			b.WriteString(" & < " + format(t.Upper))
		}
		if t.Unit != "" {
			b.WriteString(" " + t.Unit)
		}
	}
	b.WriteString(" " + string(t.DataType))
	return b.String()
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
