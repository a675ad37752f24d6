package timeseries

import "errors"

// Sentinel kinds for time-series errors.
var (
	ErrInvalidEvent  = errors.New("invalid event")
	ErrDuplicateTime = errors.New("duplicate event time")
	ErrInvalidSeries = errors.New("invalid time-series")
	ErrUpscale       = errors.New("upscaling failed")
)
