package revtree

// DeltaCodec is the pluggable delta collaborator: CreateDelta(reference,
// target) produces a byte delta; ApplyDelta reconstitutes target from
// reference and that delta. Both report failure via a boolean rather than
// an error — a failure here is always recoverable by the caller and never
// corrupts the tree. delta.Codec implements this against go-diff.
type DeltaCodec interface {
	CreateDelta(reference, target []byte) (delta []byte, ok bool)
	ApplyDelta(reference, delta []byte) (target []byte, ok bool)
}

// SetDeltaCodec installs the collaborator used by Compress/Decompress/
// ReadBody to create and apply deltas.
func (t *Tree) SetDeltaCodec(c DeltaCodec) { t.deltaCodec = c }

// inlineBody returns rev's body directly if it is present and not itself
// a delta, or nil if expanding it requires recursing through a reference
// (compressed) or consulting the body loader (evicted).
func (t *Tree) inlineBody(rev *Revision) []byte {
	if len(rev.body) > 0 && !rev.IsCompressed() {
		return rev.body
	}
	return nil
}

// ReadBody materializes rev's current, fully-expanded body: following the
// delta-reference chain and/or consulting the BodyLoader as needed. Returns
// nil if the body is unavailable.
func (t *Tree) ReadBody(rev *Revision) []byte {
	if inline := t.inlineBody(rev); inline != nil {
		out := make([]byte, len(inline))
		copy(out, inline)
		return out
	}
	if len(rev.body) == 0 {
		if t.bodyLoader == nil {
			return nil
		}
		return t.bodyLoader.ReadBody(rev)
	}
	return t.readBodyOfRevision(rev)
}

// readBodyOfRevision expands a compressed rev by applying its delta against
// its reference's body, recursing through the reference if it is itself
// compressed. Recursion terminates because deltaRefIndex chains are
// acyclic by construction (Compress refuses to create a cycle).
func (t *Tree) readBodyOfRevision(rev *Revision) []byte {
	if len(rev.body) == 0 {
		return nil
	}
	ref := rev.DeltaReference()
	if ref == nil {
		out := make([]byte, len(rev.body))
		copy(out, rev.body)
		return out
	}

	refBody := t.inlineBody(ref)
	if refBody == nil {
		refBody = t.ReadBody(ref)
	}
	if refBody == nil || t.deltaCodec == nil {
		return nil
	}
	target, ok := t.deltaCodec.ApplyDelta(refBody, rev.body)
	if !ok {
		return nil
	}
	return target
}

// replaceBody is the low-level subroutine behind Compress/Decompress/
// RemoveBody: a nil body evicts the current body, remembering the tree's
// bodyOffset (if it has been persisted) so a BodyLoader can re-find the
// bytes later.
func (t *Tree) replaceBody(rev *Revision, body []byte) {
	if body != nil {
		rev.body = t.own(body)
	} else {
		if len(rev.body) == 0 {
			return // no-op
		}
		if t.bodyOffset > 0 {
			rev.oldBodyOffset = t.bodyOffset
		}
		rev.body = nil
	}
	t.changed = true
}

// Compress replaces target's body with a delta against reference's body.
// A no-op if target is already compressed; refuses (returns false) if
// that would create a cycle in the delta-reference chain, or if either
// body is unavailable.
func (t *Tree) Compress(target, reference *Revision) bool {
	if target.IsCompressed() {
		return true
	}
	for rev := reference; rev != nil; rev = rev.DeltaReference() {
		if rev == target {
			return false
		}
	}
	if t.deltaCodec == nil {
		return false
	}

	targetData := t.ReadBody(target)
	referenceData := t.ReadBody(reference)
	if targetData == nil || referenceData == nil {
		return false
	}
	delta, ok := t.deltaCodec.CreateDelta(referenceData, targetData)
	if !ok {
		return false
	}
	t.replaceBody(target, delta)
	target.deltaRefIndex = uint16(reference.Index())
	return true
}

// Decompress expands rev's body in place and clears its delta reference.
// A no-op if rev is not compressed; returns false if the body can't be
// materialized.
func (t *Tree) Decompress(rev *Revision) bool {
	if !rev.IsCompressed() {
		return true
	}
	body := t.ReadBody(rev)
	if body == nil {
		return false
	}
	t.replaceBody(rev, body)
	rev.deltaRefIndex = kNoParent
	return true
}

// RemoveBody clears rev's body. If another revision uses rev as its delta
// reference, RemoveBody either refuses (allowExpansion=false) or expands
// every such dependent first (allowExpansion=true) so their bodies don't
// become unreadable.
func (t *Tree) RemoveBody(rev *Revision, allowExpansion bool) bool {
	if len(rev.body) == 0 {
		return true
	}
	idx := uint16(rev.Index())
	for i := range t.revs {
		if t.revs[i].deltaRefIndex == idx {
			if !allowExpansion || !t.Decompress(&t.revs[i]) {
				return false
			}
		}
	}
	t.replaceBody(rev, nil)
	return true
}
