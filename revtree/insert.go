package revtree

// Insert adds a new revision under parent (nil for a root revision),
// applying the conflict and generation-arithmetic rules that govern
// revision IDs. It returns the new Revision (nil on any non-2xx outcome)
// and an HTTP-style status code.
func (t *Tree) Insert(revID []byte, body []byte, deleted, hasAttachments bool, parent *Revision, allowConflict bool) (*Revision, int) {
	t.assertKnown()

	newGen := Generation(revID)
	if newGen == 0 {
		return nil, StatusBadGeneration
	}
	if t.Get(revID) != nil {
		return nil, StatusExists
	}

	var parentGen uint32
	if parent != nil {
		if !allowConflict && !parent.IsLeaf() {
			return nil, StatusConflict
		}
		parentGen = Generation(parent.revID)
	} else if !allowConflict && len(t.revs) > 0 {
		return nil, StatusConflict
	}

	if newGen != parentGen+1 {
		return nil, StatusBadGeneration
	}

	status := StatusCreated
	if deleted {
		status = StatusExists
	}
	return t.insertNew(revID, body, parent, deleted, hasAttachments), status
}

// InsertByParentID is Insert, but the parent is named by revID rather than
// passed as a *Revision. An empty parentRevID means "no parent".
func (t *Tree) InsertByParentID(revID, body []byte, deleted, hasAttachments bool, parentRevID []byte, allowConflict bool) (*Revision, int) {
	var parent *Revision
	if len(parentRevID) > 0 {
		parent = t.Get(parentRevID)
		if parent == nil {
			return nil, StatusParentMissing
		}
	}
	return t.Insert(revID, body, deleted, hasAttachments, parent, allowConflict)
}

// insertNew is the unchecked low-level insert: it always succeeds, owns
// copies of revID and body in the tree's arena, and leaves Leaf/New set on
// the new revision (clearing Leaf on parent, if any).
func (t *Tree) insertNew(revID, body []byte, parent *Revision, deleted, hasAttachments bool) *Revision {
	t.assertKnown()
	if len(t.revs) >= MaxRevisions {
		panic("revtree: tree already holds MaxRevisions revisions")
	}

	newRev := Revision{
		revID:         t.own(revID),
		body:          t.own(body),
		flags:         FlagLeaf | FlagNew,
		parentIndex:   kNoParent,
		deltaRefIndex: kNoParent,
	}
	if deleted {
		newRev.addFlag(FlagDeleted)
	}
	if hasAttachments {
		newRev.addFlag(FlagHasAttachments)
	}
	if parent != nil {
		newRev.parentIndex = uint16(parent.Index())
		parent.clearFlag(FlagLeaf)
	}

	t.revs = append(t.revs, newRev)
	t.reindex()
	t.changed = true
	if len(t.revs) > 1 {
		t.sorted = false
	}
	return &t.revs[len(t.revs)-1]
}

// InsertHistory inserts a leaf-first chain of revisions: history[0] is the
// new leaf, each subsequent entry its parent, down to a common ancestor
// already present in the tree (or the root). Only history[0] carries body/
// deleted/hasAttachments; intermediate entries are inserted with empty
// bodies. Returns the index within history of the common ancestor, or -1
// if generations in history do not decrease by exactly 1 at each step.
func (t *Tree) InsertHistory(history [][]byte, body []byte, deleted, hasAttachments bool) int {
	if len(history) == 0 {
		panic("revtree: InsertHistory requires a non-empty history")
	}

	var lastGen uint32
	var parent *Revision
	i := 0
	for ; i < len(history); i++ {
		gen := Generation(history[i])
		if lastGen > 0 && gen != lastGen-1 {
			return -1
		}
		lastGen = gen
		parent = t.Get(history[i])
		if parent != nil {
			break
		}
	}
	commonAncestorIndex := i

	if i > 0 {
		i--
		for ; i > 0; i-- {
			parent = t.insertNew(history[i], nil, parent, false, false)
		}
		t.insertNew(history[0], body, parent, deleted, hasAttachments)
	}
	return commonAncestorIndex
}
