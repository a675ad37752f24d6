// Package units converts measurements between the units used by hydrologic
// time-series. Conversions are linear: canonical = value*scale + offset.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for unit errors.
var (
	ErrUnknownUnit       = errors.New("unknown measurement unit")
	ErrIncompatibleUnits = errors.New("incompatible measurement units")
)

// Dimension groups units that can be converted into each other.
type Dimension string

// Supported dimensions.
const (
	Flow        Dimension = "flow"
	Length      Dimension = "length"
	Temperature Dimension = "temperature"
)

type unit struct {
	dimension Dimension
	scale     float64
	offset    float64
}

// Canonical units: m3/s for flow, metres for length, kelvin for temperature.
var table = map[string]unit{
	"CMS":   {Flow, 1, 0},
	"M3/S":  {Flow, 1, 0},
	"CFS":   {Flow, 0.028316846592, 0},
	"FT3/S": {Flow, 0.028316846592, 0},
	"M":     {Length, 1, 0},
	"FT":    {Length, 0.3048, 0},
	"MM":    {Length, 0.001, 0},
	"CM":    {Length, 0.01, 0},
	"IN":    {Length, 0.0254, 0},
	"K":     {Temperature, 1, 0},
	"C":     {Temperature, 1, 273.15},
	"F":     {Temperature, 5.0 / 9.0, 273.15 - 32*5.0/9.0},
}

func lookup(name string) (unit, error) {
	u, ok := table[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return u, nil
}

// Same reports whether two unit names denote the same unit.
func Same(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Converter returns a function converting values from one unit to another.
// Identical names always convert by identity, even when the unit is not in the table.
func Converter(from, to string) (func(float64) float64, error) {
	if Same(from, to) {
		return func(v float64) float64 { return v }, nil
	}
	f, err := lookup(from)
	if err != nil {
		return nil, err
	}
	t, err := lookup(to)
	if err != nil {
		return nil, err
	}
	if f.dimension != t.dimension {
		return nil, fmt.Errorf("%w: %s (%s) to %s (%s)", ErrIncompatibleUnits, from, f.dimension, to, t.dimension)
	}
	return func(v float64) float64 {
		return (v*f.scale + f.offset - t.offset) / t.scale
	}, nil
}

// Convert converts a single value.
func Convert(v float64, from, to string) (float64, error) {
	fn, err := Converter(from, to)
	if err != nil {
		return 0, err
	}
	return fn(v), nil
}
