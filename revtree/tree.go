package revtree

// Tree is a per-document collection of Revisions: a DAG encoded as a flat,
// mutation-ordered array. Indices (Revision.Index, parentIndex,
// deltaRefIndex) are stable only between mutations; Sort, Prune and Purge
// may renumber them. A *Revision handed out by Insert, Get, At and the like
// points into the revision array and is likewise valid only until the next
// mutation: an Insert may move the array, leaving an earlier pointer at a
// stale copy that no longer tracks the tree.
//
// Tree is single-owner and not safe for concurrent use. Callers that need
// concurrent access to many documents' trees (e.g. storage.Store) serialize
// access per document themselves.
type Tree struct {
	revs []Revision

	// bodyOffset is the file offset of the document this tree was loaded
	// from, or 0 if the tree has never been persisted.
	bodyOffset uint64

	sorted  bool
	changed bool
	unknown bool

	// insertedData is the arena of owned byte buffers backing every
	// Revision's revID/body slices allocated by Insert/InsertHistory.
	// Entries are never freed individually; the arena lives as long as
	// the Tree.
	insertedData [][]byte

	// bodyLoader materializes a revision's body when it isn't held inline,
	// e.g. after RemoveBody evicted it to OldBodyOffset. Optional; nil
	// means the body is unavailable.
	bodyLoader BodyLoader

	// deltaCodec creates and applies the byte deltas behind Compress,
	// Decompress and ReadBody. Optional; nil means compression is
	// unavailable (Compress always fails, ReadBody can't expand a
	// compressed revision).
	deltaCodec DeltaCodec
}

// BodyLoader materializes the current (possibly still-compressed) body of
// a revision whose inline body has been evicted. storage.Store implements
// this against the append-only body log.
type BodyLoader interface {
	ReadBody(rev *Revision) []byte
}

// New returns an empty, already-sorted Tree.
func New() *Tree {
	return &Tree{sorted: true}
}

// Unknown returns a placeholder Tree that fails fast on any accessor other
// than IsUnknown() itself: a tree constructed without having been decoded
// from anything yet.
func Unknown() *Tree {
	return &Tree{sorted: true, unknown: true}
}

// IsUnknown reports whether this Tree is a content-free placeholder.
func (t *Tree) IsUnknown() bool { return t.unknown }

// SetBodyLoader installs the collaborator used to materialize bodies that
// have been evicted from the tree (see RemoveBody).
func (t *Tree) SetBodyLoader(l BodyLoader) { t.bodyLoader = l }

// BodyOffset returns the file offset of the document this tree was loaded
// from, or 0.
func (t *Tree) BodyOffset() uint64 { return t.bodyOffset }

// SetBodyOffset records the file offset the tree's document was (or will
// be) saved at. Storage layers call this after a successful save.
func (t *Tree) SetBodyOffset(off uint64) { t.bodyOffset = off }

// Changed reports whether any mutation has happened since the tree was
// decoded or created, or since the last ClearChanged. Encode does not
// reset it.
func (t *Tree) Changed() bool { return t.changed }

// ClearChanged resets the changed flag; storage layers call this right
// after a successful Encode+save.
func (t *Tree) ClearChanged() { t.changed = false }

// Len returns the number of revisions currently in the tree.
func (t *Tree) Len() int {
	t.assertKnown()
	return len(t.revs)
}

func (t *Tree) assertKnown() {
	if t.unknown {
		panic("revtree: accessing an unknown tree")
	}
}

// at returns the revision at idx, or nil for kNoParent.
func (t *Tree) at(idx uint16) *Revision {
	if idx == kNoParent {
		return nil
	}
	return &t.revs[idx]
}

// reindex fixes up every Revision.owner/index after t.revs has been
// reallocated or reordered (append, sort, compact all call this).
func (t *Tree) reindex() {
	for i := range t.revs {
		t.revs[i].owner = t
		t.revs[i].index = i
	}
}

// Get returns the revision with the given revID, or nil.
func (t *Tree) Get(revID []byte) *Revision {
	for i := range t.revs {
		if bytesEqual(t.revs[i].revID, revID) {
			return &t.revs[i]
		}
	}
	t.assertKnown()
	return nil
}

// GetBySequence returns the revision with the given sequence, or nil.
func (t *Tree) GetBySequence(seq uint64) *Revision {
	for i := range t.revs {
		if t.revs[i].sequence == seq {
			return &t.revs[i]
		}
	}
	t.assertKnown()
	return nil
}

// At returns the revision at the given index. Panics if out of range.
func (t *Tree) At(index int) *Revision {
	t.assertKnown()
	return &t.revs[index]
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// own copies p into the tree's arena and returns a slice pointing into the
// arena, keeping it alive for the tree's lifetime.
func (t *Tree) own(p []byte) []byte {
	cp := make([]byte, len(p))
	copy(cp, p)
	t.insertedData = append(t.insertedData, cp)
	return cp
}
