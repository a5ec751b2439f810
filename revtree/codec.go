package revtree

import "encoding/binary"

// Raw on-disk record layout, all multi-byte fields big-endian except the
// sequence/offset varints:
//
//	size:          u32  total byte length of this record
//	parentIndex:   u16
//	deltaRefIndex: u16
//	flags:         u8   persistentFlags | hasBodyOffset | hasData
//	revIDLen:      u8
//	revID:         revIDLen bytes
//	sequence:      uvarint
//	body:          HasData bytes filling the record, or HasBodyOffset varint, or nothing
//
// A sequence of these is followed by a trailing zero u32.
const (
	hasBodyOffset byte = 0x40
	hasData       byte = 0x80

	rawHeaderLen = 4 + 2 + 2 + 1 + 1 // size, parentIndex, deltaRefIndex, flags, revIDLen
)

func varintLen(x uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], x)
}

// Decode rebuilds a Tree from its on-disk encoding. raw's bytes are
// referenced directly by the resulting Revisions (no copies are made);
// the caller must keep raw alive for the Tree's lifetime, or copy first.
// seq is the document sequence inherited by any revision stored with
// sequence==0; docOffset is the file offset of the owning document.
func Decode(raw []byte, seq uint64, docOffset uint64) (*Tree, error) {
	t := &Tree{bodyOffset: docOffset, sorted: true}

	var revs []Revision
	pos := 0
	for {
		if pos+4 > len(raw) {
			return nil, ErrCorruptRevisionData
		}
		size := binary.BigEndian.Uint32(raw[pos : pos+4])
		if size == 0 {
			if pos != len(raw)-4 {
				return nil, ErrCorruptRevisionData
			}
			break
		}
		if len(revs) >= MaxRevisions {
			return nil, ErrCorruptRevisionData
		}
		if pos+int(size) > len(raw) || size < rawHeaderLen {
			return nil, ErrCorruptRevisionData
		}
		rec := raw[pos : pos+int(size)]
		rev, err := decodeRevision(rec)
		if err != nil {
			return nil, err
		}
		if rev.sequence == 0 {
			rev.sequence = seq
		}
		revs = append(revs, rev)
		pos += int(size)
	}

	t.revs = revs
	t.reindex()
	return t, nil
}

func decodeRevision(rec []byte) (Revision, error) {
	if len(rec) < rawHeaderLen {
		return Revision{}, ErrCorruptRevisionData
	}
	parentIndex := binary.BigEndian.Uint16(rec[4:6])
	deltaRefIndex := binary.BigEndian.Uint16(rec[6:8])
	flags := rec[8]
	revIDLen := int(rec[9])
	if rawHeaderLen+revIDLen > len(rec) {
		return Revision{}, ErrCorruptRevisionData
	}
	revID := rec[rawHeaderLen : rawHeaderLen+revIDLen]
	rest := rec[rawHeaderLen+revIDLen:]

	seq, n := binary.Uvarint(rest)
	if n <= 0 {
		return Revision{}, ErrCorruptRevisionData
	}
	rest = rest[n:]

	rev := Revision{
		revID:         revID,
		sequence:      seq,
		parentIndex:   parentIndex,
		deltaRefIndex: deltaRefIndex,
		flags:         Flags(flags) & persistentFlags,
	}
	switch {
	case flags&hasData != 0:
		rev.body = rest
	case flags&hasBodyOffset != 0:
		off, n := binary.Uvarint(rest)
		if n <= 0 {
			return Revision{}, ErrCorruptRevisionData
		}
		rev.oldBodyOffset = off
	}
	return rev, nil
}

// Encode sorts the tree into canonical order (Sort) and serializes it to
// the on-disk format described above, terminated by a trailing zero u32.
func (t *Tree) Encode() []byte {
	t.Sort()

	size := 4
	for i := range t.revs {
		size += t.sizeToWrite(&t.revs[i])
	}
	buf := make([]byte, 0, size)
	for i := range t.revs {
		buf = t.writeRevision(buf, &t.revs[i])
	}
	buf = append(buf, 0, 0, 0, 0)
	return buf
}

func (t *Tree) sizeToWrite(rev *Revision) int {
	n := rawHeaderLen + len(rev.revID) + varintLen(rev.sequence)
	if len(rev.body) > 0 {
		n += len(rev.body)
	} else if off := t.effectiveOldBodyOffset(rev); off > 0 {
		n += varintLen(off)
	}
	return n
}

func (t *Tree) effectiveOldBodyOffset(rev *Revision) uint64 {
	if rev.oldBodyOffset != 0 {
		return rev.oldBodyOffset
	}
	return t.bodyOffset
}

func (t *Tree) writeRevision(dst []byte, rev *Revision) []byte {
	flags := byte(rev.flags) & byte(persistentFlags)
	hasInlineBody := len(rev.body) > 0
	offset := t.effectiveOldBodyOffset(rev)
	if hasInlineBody {
		flags |= hasData
	} else if offset > 0 {
		flags |= hasBodyOffset
	}

	total := t.sizeToWrite(rev)
	start := len(dst)
	dst = append(dst, make([]byte, total)...)

	binary.BigEndian.PutUint32(dst[start:], uint32(total))
	binary.BigEndian.PutUint16(dst[start+4:], rev.parentIndex)
	binary.BigEndian.PutUint16(dst[start+6:], rev.deltaRefIndex)
	dst[start+8] = flags
	dst[start+9] = byte(len(rev.revID))

	p := start + rawHeaderLen
	p += copy(dst[p:], rev.revID)

	var seqBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(seqBuf[:], rev.sequence)
	p += copy(dst[p:], seqBuf[:n])

	if hasInlineBody {
		copy(dst[p:], rev.body)
	} else if offset > 0 {
		var offBuf [binary.MaxVarintLen64]byte
		m := binary.PutUvarint(offBuf[:], offset)
		copy(dst[p:], offBuf[:m])
	}
	return dst
}
