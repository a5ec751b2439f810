// Package delta implements the byte-delta collaborator (CreateDelta/
// ApplyDelta) behind revtree.Tree.Compress/Decompress/ReadBody.
package delta

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/otterdb/revtree/revtree"
)

// Flags mirrors the delta collaborator's flag parameter; the only flag
// meaningful to this codec is NoChecksum.
type Flags uint8

const (
	// NoChecksum omits the delta's own integrity check, appropriate when
	// the storage layer underneath already validates pages end to end.
	NoChecksum Flags = 0x01
)

// Codec implements revtree.DeltaCodec against diffmatchpatch's patch
// format. It has no state of its own; a single Codec can be shared across
// every Tree.
//
// Flags is kept for contract parity with the CreateDelta/ApplyDelta
// signature; diffmatchpatch's patch text carries no embedded checksum to
// begin with, so NoChecksum has no effect on this codec.
type Codec struct {
	Flags Flags
}

var _ revtree.DeltaCodec = (*Codec)(nil)

// NewCodec returns a Codec with the given flags (commonly NoChecksum, the
// usual default for revision bodies).
func NewCodec(flags Flags) *Codec {
	return &Codec{Flags: flags}
}

func (c *Codec) dmp() *diffmatchpatch.DiffMatchPatch {
	return diffmatchpatch.New()
}

// CreateDelta produces a byte delta that ApplyDelta can later use to
// reconstitute target from reference.
//
// diffmatchpatch operates on decoded runes, so this is exact for the
// UTF-8 document bodies this encoder targets but would lose information
// on arbitrary binary input; that tradeoff is accepted here rather than
// reaching for a byte-oriented diff library the example pack doesn't carry.
func (c *Codec) CreateDelta(reference, target []byte) (out []byte, ok bool) {
	dmp := c.dmp()
	diffs := dmp.DiffMain(string(reference), string(target), false)
	patches := dmp.PatchMake(string(reference), diffs)
	return []byte(dmp.PatchToText(patches)), true
}

// ApplyDelta reconstitutes target from reference and a delta previously
// produced by CreateDelta. Returns ok=false if the delta doesn't parse or
// doesn't apply cleanly against reference.
func (c *Codec) ApplyDelta(reference, delta []byte) (target []byte, ok bool) {
	dmp := c.dmp()
	patches, err := dmp.PatchFromText(string(delta))
	if err != nil {
		return nil, false
	}
	result, applied := dmp.PatchApply(patches, string(reference))
	for _, a := range applied {
		if !a {
			return nil, false
		}
	}
	return []byte(result), true
}
