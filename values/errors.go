package values

import "github.com/pkg/errors"

// ErrNaN is returned by WriteDouble/WriteFloat for a NaN argument — a
// validation error, recoverable by the caller without corrupting the
// encoder's state.
var ErrNaN = errors.New("values: can't write NaN")
