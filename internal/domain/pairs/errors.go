package pairs

import "errors"

// ErrPool is wrapped by every pool construction failure.
var ErrPool = errors.New("pool error")

// Specific pool construction failures. Each wraps ErrPool.
var (
	ErrNilPairs      = wrap("pairs are nil")
	ErrEmptyPairs    = wrap("pairs are empty")
	ErrEmptyBaseline = wrap("baseline pairs are present but empty")
	ErrMalformedPair = wrap("malformed pair")
	ErrInvalidPair   = errors.New("invalid pair")
)

type poolError struct{ msg string }

func (e *poolError) Error() string { return e.msg }
func (e *poolError) Unwrap() error { return ErrPool }

func wrap(msg string) error { return &poolError{msg: msg} }
