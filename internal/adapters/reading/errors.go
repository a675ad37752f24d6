package reading

import "errors"

// ErrRead is wrapped by every failure to read a source.
var ErrRead = errors.New("read failed")
