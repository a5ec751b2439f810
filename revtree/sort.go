package revtree

import "sort"

// Sort orders revisions by descending priority: leaves before non-leaves,
// non-deleted before deleted, otherwise higher revID wins. It is a no-op
// if the tree is already sorted.
//
// The index-aliasing trick: stash each revision's current parentIndex,
// overwrite parentIndex with the revision's own (pre-sort) index, sort,
// then read the post-sort parentIndex back out to recover where each
// revision came from — giving an old-to-new index map without a second
// allocation keyed by identity. parentIndex and deltaRefIndex are then
// rewritten through that map.
func (t *Tree) Sort() {
	if t.sorted {
		return
	}
	n := len(t.revs)

	oldParents := make([]uint16, n)
	for i := 0; i < n; i++ {
		oldParents[i] = t.revs[i].parentIndex
		t.revs[i].parentIndex = uint16(i)
	}

	sort.SliceStable(t.revs, func(a, b int) bool {
		return revisionLess(&t.revs[a], &t.revs[b])
	})

	oldToNew := make([]uint16, n)
	for i := 0; i < n; i++ {
		oldIndex := t.revs[i].parentIndex
		oldToNew[oldIndex] = uint16(i)
	}

	for i := 0; i < n; i++ {
		oldIndex := t.revs[i].parentIndex
		parent := oldParents[oldIndex]
		if parent != kNoParent {
			parent = oldToNew[parent]
		}
		t.revs[i].parentIndex = parent

		if d := t.revs[i].deltaRefIndex; d != kNoParent {
			t.revs[i].deltaRefIndex = oldToNew[d]
		}
	}

	t.reindex()
	t.sorted = true
}

// revisionLess reports whether a outranks b under the priority rule: leaf
// before non-leaf, then non-deleted before deleted, then higher revID.
func revisionLess(a, b *Revision) bool {
	if a.IsLeaf() != b.IsLeaf() {
		return a.IsLeaf()
	}
	if a.IsDeleted() != b.IsDeleted() {
		return !a.IsDeleted()
	}
	return revIDLess(a.revID, b.revID)
}

// CurrentRevision sorts the tree and returns the winning revision, revs[0].
func (t *Tree) CurrentRevision() *Revision {
	t.assertKnown()
	t.Sort()
	return &t.revs[0]
}

// CurrentRevisions returns every leaf revision, in array order.
func (t *Tree) CurrentRevisions() []*Revision {
	t.assertKnown()
	var cur []*Revision
	for i := range t.revs {
		if t.revs[i].IsLeaf() {
			cur = append(cur, &t.revs[i])
		}
	}
	return cur
}

// HasConflict reports whether more than one leaf is active (non-deleted).
// In the sorted state this is a cheap check of revs[1]; unsorted, it scans.
func (t *Tree) HasConflict() bool {
	if len(t.revs) < 2 {
		t.assertKnown()
		return false
	}
	if t.sorted {
		return t.revs[1].IsActive()
	}
	active := 0
	for i := range t.revs {
		if t.revs[i].IsActive() {
			active++
			if active > 1 {
				return true
			}
		}
	}
	return false
}
