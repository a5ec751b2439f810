// Package revtree implements a per-document revision DAG: generation-numbered
// revision identifiers, conflict-aware insertion, delta-compressed bodies,
// pruning/purging, and a compact big-endian binary encoding.
package revtree

import (
	"bytes"
	"fmt"
)

// Flags is the set of persisted and transient bits a Revision carries.
// Leaf, Deleted and HasAttachments are written to disk; New is not.
type Flags uint8

const (
	FlagDeleted        Flags = 0x01
	FlagLeaf           Flags = 0x02
	FlagNew            Flags = 0x04
	FlagHasAttachments Flags = 0x08

	// persistentFlags is the subset of Flags written to the raw record.
	persistentFlags = FlagLeaf | FlagDeleted | FlagHasAttachments
)

func (f Flags) String() string {
	var b bytes.Buffer
	if f&FlagLeaf != 0 {
		b.WriteString(" leaf")
	}
	if f&FlagDeleted != 0 {
		b.WriteString(" del")
	}
	if f&FlagHasAttachments != 0 {
		b.WriteString(" attachments")
	}
	if f&FlagNew != 0 {
		b.WriteString(" new")
	}
	return b.String()
}

// kNoParent is the sentinel stored in parentIndex/deltaRefIndex meaning
// "no parent" / "not compressed". It must not collide with any valid index,
// which the 65,535-revision ceiling guarantees (see Tree.Insert).
const kNoParent = uint16(0xFFFF)

// MaxRevisions is the largest number of revisions a Tree can hold; both
// parentIndex and deltaRefIndex are 16-bit.
const MaxRevisions = 0xFFFF

// Revision is one node of a document's revision DAG.
type Revision struct {
	revID         []byte // <generation>-<suffix>, owned by the tree's arena
	sequence      uint64
	body          []byte // inline bytes, possibly a delta; owned by the arena
	oldBodyOffset uint64
	flags         Flags
	parentIndex   uint16
	deltaRefIndex uint16

	owner *Tree // back-reference, never ownership
	index int   // this revision's current position in owner.revs
}

// RevID returns the revision identifier (<generation>-<suffix>).
func (r *Revision) RevID() []byte { return r.revID }

// Sequence returns the document sequence this revision was saved under,
// or 0 if the revision has never been saved.
func (r *Revision) Sequence() uint64 { return r.sequence }

// Body returns the revision's inline body. It may be a delta against
// DeltaReference(); it is empty if the body has been evicted (see OldBodyOffset).
func (r *Revision) Body() []byte { return r.body }

// OldBodyOffset returns the file offset at which the body used to live
// before it was evicted from the tree, or 0.
func (r *Revision) OldBodyOffset() uint64 { return r.oldBodyOffset }

func (r *Revision) Flags() Flags { return r.flags }

func (r *Revision) IsLeaf() bool            { return r.flags&FlagLeaf != 0 }
func (r *Revision) IsDeleted() bool         { return r.flags&FlagDeleted != 0 }
func (r *Revision) HasAttachments() bool    { return r.flags&FlagHasAttachments != 0 }
func (r *Revision) IsNew() bool             { return r.flags&FlagNew != 0 }
func (r *Revision) IsActive() bool          { return r.IsLeaf() && !r.IsDeleted() }
func (r *Revision) IsCompressed() bool      { return r.deltaRefIndex != kNoParent }

func (r *Revision) addFlag(f Flags)   { r.flags |= f }
func (r *Revision) clearFlag(f Flags) { r.flags &^= f }

// Index returns this revision's current position within its owning tree.
// Indices are invalidated by Sort, Prune and Purge.
func (r *Revision) Index() int {
	if r.owner == nil {
		panic("revtree: revision has no owner")
	}
	return r.index
}

// Parent returns the parent revision, or nil at the root.
func (r *Revision) Parent() *Revision {
	if r.parentIndex == kNoParent {
		return nil
	}
	return r.owner.at(r.parentIndex)
}

// DeltaReference returns the revision whose body is the base this
// revision's body is a delta against, or nil if the body is not compressed.
func (r *Revision) DeltaReference() *Revision {
	if r.deltaRefIndex == kNoParent {
		return nil
	}
	return r.owner.at(r.deltaRefIndex)
}

// History walks Parent() from this revision to the root, leaf first.
func (r *Revision) History() []*Revision {
	h := make([]*Revision, 0, 4)
	for rev := r; rev != nil; rev = rev.Parent() {
		h = append(h, rev)
	}
	return h
}

// String renders a one-line debug dump, e.g. "(3) 2-beef  leaf".
func (r *Revision) String() string {
	return fmt.Sprintf("(%d) %s %s", r.sequence, r.revID, r.flags)
}

// Generation returns the numeric generation prefix of a revID, the positive
// decimal run before the first '-'. Returns 0 if the revID has no '-' or
// does not start with at least one digit.
func Generation(revID []byte) uint32 {
	i := bytes.IndexByte(revID, '-')
	if i <= 0 {
		return 0
	}
	var gen uint32
	for _, c := range revID[:i] {
		if c < '0' || c > '9' {
			return 0
		}
		gen = gen*10 + uint32(c-'0')
	}
	return gen
}

func suffix(revID []byte) []byte {
	i := bytes.IndexByte(revID, '-')
	if i < 0 {
		return nil
	}
	return revID[i+1:]
}

// revIDLess reports whether a sorts before b in *ascending* priority:
// "higher revID wins" — generation first (numeric), then suffix bytewise,
// both descending so the winner compares least.
func revIDLess(a, b []byte) bool {
	ga, gb := Generation(a), Generation(b)
	if ga != gb {
		return ga > gb // higher generation wins -> sorts first -> "less"
	}
	return bytes.Compare(suffix(a), suffix(b)) > 0 // higher suffix wins
}
