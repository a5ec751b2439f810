package storage

import "github.com/pkg/errors"

var (
	// ErrAlreadyOpen names the failure of opening a Store twice. Create and
	// Open do not return it; they return the wrapped pebble error instead.
	ErrAlreadyOpen = errors.New("storage: already open")

	// ErrClosed names the failure of using a Store after Close. Store
	// methods do not check for a closed Store and do not return it.
	ErrClosed = errors.New("storage: store is closed")

	// ErrBodyLogFull is returned by BodyLog.Append once the log has grown
	// past Options.MaxLogLen.
	ErrBodyLogFull = errors.New("storage: body log is full")
)
