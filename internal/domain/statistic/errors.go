package statistic

import "errors"

var (
	// ErrIncompatibleState is returned when merging states of different kinds or shapes.
	ErrIncompatibleState = errors.New("incompatible metric state")
	// ErrDuplicateStatistic is returned when a final statistic is stored twice for one key and metric.
	ErrDuplicateStatistic = errors.New("duplicate statistic")
)
