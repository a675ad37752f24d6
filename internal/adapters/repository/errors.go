package repository

import "errors"

// Sentinel kinds for evaluation store errors.
var (
	ErrNotFound     = errors.New("evaluation not found")
	ErrInvalidLimit = errors.New("invalid evaluation limit")
	ErrNilResults   = errors.New("evaluation has no results")
)
