package timeseries

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// Upscaler aggregates a series to a coarser time scale.
type Upscaler interface {
	// Upscale returns one event per end time whose window (end-period, end] is fully covered.
	// When endsAt is empty the source event times are used as end times.
	Upscale(series *TimeSeries[float64], desired TimeScale, endsAt []time.Time) (*TimeSeries[float64], error)
}

// DefaultUpscaler aggregates with the desired time scale function.
type DefaultUpscaler struct{}

// NewUpscaler returns the default upscaler.
func NewUpscaler() *DefaultUpscaler { return &DefaultUpscaler{} }

// Upscale implements Upscaler.
func (u *DefaultUpscaler) Upscale(series *TimeSeries[float64], desired TimeScale, endsAt []time.Time) (*TimeSeries[float64], error) {
	if series == nil {
		return nil, fmt.Errorf("%w: nil series", ErrUpscale)
	}
	if len(endsAt) == 0 {
		endsAt = make([]time.Time, 0, series.Len())
		for _, e := range series.events {
			endsAt = append(endsAt, e.Time)
		}
	}

	expected := 0
	if src := series.metadata.TimeScale; src != nil {
		if src.Equal(desired) {
			return pick(series, endsAt)
		}
		if !src.IsInstantaneous() {
			if desired.Period < src.Period {
				return nil, fmt.Errorf("%w: cannot downscale from %s to %s", ErrUpscale, src, desired)
			}
			if desired.Period%src.Period != 0 {
				return nil, fmt.Errorf("%w: %s is not an integer multiple of %s", ErrUpscale, desired, src)
			}
			expected = int(desired.Period / src.Period)
		}
	}
	if desired.IsInstantaneous() {
		return nil, fmt.Errorf("%w: cannot upscale to an instantaneous time scale", ErrUpscale)
	}

	out := make([]Event[float64], 0, len(endsAt))
	for _, end := range endsAt {
		window := series.Between(end.Add(-desired.Period), end)
		if len(window) == 0 || (expected > 0 && len(window) != expected) {
			continue
		}
		values := make([]float64, 0, len(window))
		for _, e := range window {
			if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
				break
			}
			values = append(values, e.Value)
		}
		if len(values) != len(window) {
			continue
		}
		v, err := aggregate(desired.Function, values)
		if err != nil {
			return nil, err
		}
		out = append(out, Event[float64]{Time: end, Value: v})
	}

	ts := desired
	return New(series.metadata.WithTimeScale(&ts), out...)
}

func pick(series *TimeSeries[float64], endsAt []time.Time) (*TimeSeries[float64], error) {
	out := make([]Event[float64], 0, len(endsAt))
	for _, t := range endsAt {
		if v, ok := series.At(t); ok {
			out = append(out, Event[float64]{Time: t, Value: v})
		}
	}
	return New(series.metadata, out...)
}

func aggregate(fn TimeScaleFunction, values stats.Float64Data) (float64, error) {
	var (
		v   float64
		err error
	)
	switch fn {
	case Mean:
		v, err = stats.Mean(values)
	case Total:
		v, err = stats.Sum(values)
	case Minimum:
		v, err = stats.Min(values)
	case Maximum:
		v, err = stats.Max(values)
	default:
		return 0, fmt.Errorf("%w: unsupported function %q", ErrUpscale, fn)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpscale, err)
	}
	return v, nil
}
