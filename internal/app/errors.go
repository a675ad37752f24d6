package service

import "errors"

// Sentinel kinds for evaluation errors.
var (
	ErrStopped        = errors.New("service stopped")
	ErrInvalidRequest = errors.New("invalid evaluation request")
)
