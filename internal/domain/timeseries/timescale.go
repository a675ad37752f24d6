package timeseries

import (
	"fmt"
	"math"
	"time"
)

// TimeScaleFunction is how values are aggregated over a time scale period.
type TimeScaleFunction string

// Time scale functions.
const (
	Mean    TimeScaleFunction = "MEAN"
	Total   TimeScaleFunction = "TOTAL"
	Minimum TimeScaleFunction = "MINIMUM"
	Maximum TimeScaleFunction = "MAXIMUM"
)

// instantaneousPeriod is the largest period still considered instantaneous.
const instantaneousPeriod = 60 * time.Second

// TimeScale is the period over which each value is valid and how it was aggregated.
type TimeScale struct {
	Period   time.Duration
	Function TimeScaleFunction
}

// IsInstantaneous reports whether the period is sixty seconds or less.
func (t TimeScale) IsInstantaneous() bool {
	return t.Period <= instantaneousPeriod
}

// Equal reports whether two time scales match.
func (t TimeScale) Equal(o TimeScale) bool {
	if t.IsInstantaneous() && o.IsInstantaneous() {
		return true
	}
	return t.Period == o.Period && t.Function == o.Function
}

func (t TimeScale) String() string {
	if t.IsInstantaneous() {
		return "INSTANTANEOUS"
	}
	return fmt.Sprintf("[%s,%s]", t.Period, t.Function)
}

func nan() float64 { return math.NaN() }
