package revtree

import "github.com/pkg/errors"

// ErrCorruptRevisionData signals a malformed raw tree: either more than
// MaxRevisions records, or the trailing zero terminator is not where the
// record stream says it should end. Decoding returns this; it never leaves
// a partially-built Tree behind.
var ErrCorruptRevisionData = errors.New("revtree: corrupt revision data")

// Status codes surfaced by Insert/InsertByParentID.
const (
	StatusBadGeneration = 400
	StatusExists        = 200
	StatusCreated       = 201
	StatusParentMissing = 404
	StatusConflict      = 409
)
