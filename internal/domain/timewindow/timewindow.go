// Package timewindow defines the time windows that pools are sliced by.
//
// A window bounds reference (issue) times and lead durations. Reference
// bounds are closed. Lead bounds are (earliest, latest], collapsing to an
// exact match when earliest equals latest. When the valid-time flag is set
// the time bounds apply to valid times instead of reference times.
package timewindow

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTimeWindow reports inverted or malformed window bounds.
var ErrInvalidTimeWindow = errors.New("invalid time window")

// Bounds used for unbounded windows.
var (
	MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Duration bounds used for unbounded windows.
const (
	MinLead time.Duration = math.MinInt64
	MaxLead time.Duration = math.MaxInt64
)

// TimeWindow is comparable and can be used as a map key.
type TimeWindow struct {
	EarliestTime time.Time
	LatestTime   time.Time
	EarliestLead time.Duration
	LatestLead   time.Duration
	ValidTime    bool
}

// New validates the bounds. Times are normalised to UTC.
func New(earliest, latest time.Time, earliestLead, latestLead time.Duration, validTime bool) (TimeWindow, error) {
	earliest, latest = earliest.UTC(), latest.UTC()
	if latest.Before(earliest) {
		return TimeWindow{}, fmt.Errorf("%w: latest time %s is before earliest time %s",
			ErrInvalidTimeWindow, latest.Format(time.RFC3339), earliest.Format(time.RFC3339))
	}
	if latestLead < earliestLead {
		return TimeWindow{}, fmt.Errorf("%w: latest lead %s is before earliest lead %s",
			ErrInvalidTimeWindow, latestLead, earliestLead)
	}
	return TimeWindow{
		EarliestTime: earliest,
		LatestTime:   latest,
		EarliestLead: earliestLead,
		LatestLead:   latestLead,
		ValidTime:    validTime,
	}, nil
}

// Unbounded returns a window that contains every pair.
func Unbounded() TimeWindow {
	return TimeWindow{EarliestTime: MinTime, LatestTime: MaxTime, EarliestLead: MinLead, LatestLead: MaxLead}
}

// Leads returns a window bounding lead durations only.
func Leads(earliest, latest time.Duration) (TimeWindow, error) {
	return New(MinTime, MaxTime, earliest, latest, false)
}

// Contains reports whether a pair with the given reference and valid time falls in the window.
func (w TimeWindow) Contains(reference, valid time.Time) bool {
	t := reference
	if w.ValidTime {
		t = valid
	}
	if t.Before(w.EarliestTime) || t.After(w.LatestTime) {
		return false
	}
	return w.ContainsLead(valid.Sub(reference))
}

// ContainsLead reports whether a lead duration falls in the window.
func (w TimeWindow) ContainsLead(lead time.Duration) bool {
	if w.EarliestLead == w.LatestLead {
		return lead == w.EarliestLead
	}
	if w.EarliestLead == MinLead {
		return lead <= w.LatestLead
	}
	return lead > w.EarliestLead && lead <= w.LatestLead
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s, %s, %s]",
		w.EarliestTime.Format(time.RFC3339), w.LatestTime.Format(time.RFC3339), w.EarliestLead, w.LatestLead)
}

// LeadWindows generates lead-duration windows of the given period, each starting
// frequency after the previous one, from earliest up to latest.
// A zero frequency defaults to the period, giving back-to-back windows.
func LeadWindows(earliest, latest, period, frequency time.Duration) ([]TimeWindow, error) {
	if latest < earliest {
		return nil, fmt.Errorf("%w: latest lead %s is before earliest lead %s", ErrInvalidTimeWindow, latest, earliest)
	}
	if period < 0 || frequency < 0 {
		return nil, fmt.Errorf("%w: period and frequency must not be negative", ErrInvalidTimeWindow)
	}
	if frequency == 0 {
		frequency = period
	}
	if period == 0 {
		var out []TimeWindow
		if frequency == 0 {
			frequency = time.Hour
		}
		for lead := earliest; lead <= latest; lead += frequency {
			w, _ := Leads(lead, lead)
			out = append(out, w)
		}
		return out, nil
	}
	var out []TimeWindow
	for lower := earliest; lower+period <= latest; lower += frequency {
		w, err := Leads(lower, lower+period)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
