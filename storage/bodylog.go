package storage

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/otterdb/revtree/revtree"
)

// BodyLog is an append-only log of full tree snapshots: every successful
// SaveTree call appends the document's freshly-encoded bytes here before
// writing the same bytes to pebble, and records the returned offset as
// the tree's BodyOffset. A revision whose inline body is later evicted
// (RemoveBody) remembers that offset as its OldBodyOffset; BodyLog
// re-reads the snapshot at that offset and pulls the revision's body
// back out of it, the same way a log-structured store re-finds an old
// document record to recover a body the live structure no longer holds.
type BodyLog struct {
	mu      sync.Mutex
	file    *os.File
	size    int64
	maxSize int64
}

var _ revtree.BodyLoader = (*BodyLog)(nil)

// OpenBodyLog opens (creating if necessary) the append-only log at path.
func OpenBodyLog(path string, maxSize int64) (*BodyLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open body log")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "storage: stat body log")
	}
	size := info.Size()
	if size == 0 {
		// An OldBodyOffset of 0 means "unset", so no snapshot may start at
		// offset 0: a fresh log begins with an empty record.
		var header [4]byte
		if _, err := f.Write(header[:]); err != nil {
			f.Close()
			return nil, errors.Wrap(err, "storage: init body log")
		}
		size = int64(len(header))
	}
	return &BodyLog{file: f, size: size, maxSize: maxSize}, nil
}

// Append writes one length-prefixed snapshot record and returns the file
// offset of its start, for later use as a Revision.OldBodyOffset.
func (l *BodyLog) Append(snapshot []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxSize > 0 && l.size+int64(len(snapshot))+4 > l.maxSize {
		return 0, ErrBodyLogFull
	}

	off := l.size
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(snapshot)))
	if _, err := l.file.Write(lenBuf[:]); err != nil {
		return 0, errors.Wrap(err, "storage: append body log")
	}
	if _, err := l.file.Write(snapshot); err != nil {
		return 0, errors.Wrap(err, "storage: append body log")
	}
	l.size += 4 + int64(len(snapshot))
	return uint64(off), nil
}

func (l *BodyLog) readSnapshot(offset uint64) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := l.file.ReadAt(lenBuf[:], int64(offset)); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, size)
	if _, err := l.file.ReadAt(buf, int64(offset)+4); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadBody implements revtree.BodyLoader: it re-decodes the snapshot rev
// was last seen whole in and returns that snapshot's copy of rev's body.
// Returns nil if the offset is unset or the snapshot can't be read back
// (e.g. the log was rotated out from under an old offset).
func (l *BodyLog) ReadBody(rev *revtree.Revision) []byte {
	off := rev.OldBodyOffset()
	if off == 0 {
		return nil
	}
	raw, err := l.readSnapshot(off)
	if err != nil {
		return nil
	}
	old, err := revtree.Decode(raw, rev.Sequence(), off)
	if err != nil {
		return nil
	}
	oldRev := old.Get(rev.RevID())
	if oldRev == nil {
		return nil
	}
	return old.ReadBody(oldRev)
}

func (l *BodyLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
