package writing

import "errors"

// ErrWrite is wrapped by every failure to write statistics.
var ErrWrite = errors.New("write failed")
