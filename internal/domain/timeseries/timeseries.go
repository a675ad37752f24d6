// Package timeseries models immutable, time-ordered sequences of events that
// share one metadata record. Observations, single-valued forecasts and
// ensemble forecasts are all time-series with a different value type.
package timeseries

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"
)

// ReferenceTimeType tags the reference (basis) times of a series.
type ReferenceTimeType string

// Reference time types.
const (
	T0                ReferenceTimeType = "T0"
	Issued            ReferenceTimeType = "ISSUED"
	AnalysisStartTime ReferenceTimeType = "ANALYSIS_START_TIME"
	LatestObservation ReferenceTimeType = "LATEST_OBSERVATION"
	UnknownReference  ReferenceTimeType = "UNKNOWN"
)

// Event is a single time-stamped value.
type Event[T any] struct {
	Time  time.Time
	Value T
}

// Metadata describes every event in a series.
type Metadata struct {
	Variable       string
	Feature        string
	Unit           string
	TimeScale      *TimeScale
	ReferenceTimes map[ReferenceTimeType]time.Time
}

// ReferenceTime returns the reference time of the given type, if any.
func (m Metadata) ReferenceTime(t ReferenceTimeType) (time.Time, bool) {
	rt, ok := m.ReferenceTimes[t]
	return rt, ok
}

// WithUnit returns a copy with the unit replaced.
func (m Metadata) WithUnit(unit string) Metadata {
	c := m.clone()
	c.Unit = unit
	return c
}

// WithTimeScale returns a copy with the time scale replaced.
func (m Metadata) WithTimeScale(ts *TimeScale) Metadata {
	c := m.clone()
	c.TimeScale = ts
	return c
}

func (m Metadata) clone() Metadata {
	c := m
	if m.ReferenceTimes != nil {
		c.ReferenceTimes = maps.Clone(m.ReferenceTimes)
	}
	if m.TimeScale != nil {
		ts := *m.TimeScale
		c.TimeScale = &ts
	}
	return c
}

// TimeSeries is an immutable, time-ordered set of events without duplicate times.
type TimeSeries[T any] struct {
	metadata Metadata
	events   []Event[T]
}

// New validates and sorts the events. Event times are normalised to UTC.
func New[T any](meta Metadata, events ...Event[T]) (*TimeSeries[T], error) {
	sorted := make([]Event[T], len(events))
	for i, e := range events {
		if e.Time.IsZero() {
			return nil, fmt.Errorf("%w: event %d has no time", ErrInvalidEvent, i)
		}
		sorted[i] = Event[T]{Time: e.Time.UTC(), Value: e.Value}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time.Equal(sorted[i-1].Time) {
			return nil, fmt.Errorf("%w: %s in series for %q", ErrDuplicateTime,
				sorted[i].Time.Format(time.RFC3339), meta.Feature)
		}
	}
	return &TimeSeries[T]{metadata: meta.clone(), events: sorted}, nil
}

// Of is New for callers that construct known-valid series, such as tests and fixtures. It panics on error.
func Of[T any](meta Metadata, events ...Event[T]) *TimeSeries[T] {
	ts, err := New(meta, events...)
	if err != nil {
		panic(err)
	}
	return ts
}

// Metadata returns a copy of the series metadata.
func (s *TimeSeries[T]) Metadata() Metadata { return s.metadata.clone() }

// Events returns a copy of the ordered events.
func (s *TimeSeries[T]) Events() []Event[T] { return slices.Clone(s.events) }

// Len returns the number of events.
func (s *TimeSeries[T]) Len() int { return len(s.events) }

// IsEmpty reports whether the series has no events.
func (s *TimeSeries[T]) IsEmpty() bool { return len(s.events) == 0 }

// At returns the value at exactly the given time.
func (s *TimeSeries[T]) At(t time.Time) (T, bool) {
	i, found := slices.BinarySearchFunc(s.events, t, func(e Event[T], target time.Time) int {
		return e.Time.Compare(target)
	})
	if !found {
		var zero T
		return zero, false
	}
	return s.events[i].Value, true
}

// Between returns the events with from < time <= to, in order.
func (s *TimeSeries[T]) Between(from, to time.Time) []Event[T] {
	lo := sort.Search(len(s.events), func(i int) bool { return s.events[i].Time.After(from) })
	hi := sort.Search(len(s.events), func(i int) bool { return s.events[i].Time.After(to) })
	if lo >= hi {
		return nil
	}
	return slices.Clone(s.events[lo:hi])
}

// GroupByReferenceTime groups series sharing a reference time of the given type.
// Series without that reference time are grouped under the zero time.
func GroupByReferenceTime[T any](series []*TimeSeries[T], rt ReferenceTimeType) map[time.Time][]*TimeSeries[T] {
	out := make(map[time.Time][]*TimeSeries[T])
	for _, s := range series {
		t, _ := s.metadata.ReferenceTime(rt)
		out[t.UTC()] = append(out[t.UTC()], s)
	}
	return out
}
