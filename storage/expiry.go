package storage

import (
	"encoding/binary"
	"iter"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

const (
	expiryPrefix byte = 'X' // (expiresAt, id) -> nil, ordered for range scan
	byIDPrefix   byte = 'I' // id -> expiresAt, to find and clear a stale X entry
)

func expiryKey(expiresAt time.Time, id string) []byte {
	key := make([]byte, 0, 1+8+len(id))
	key = append(key, expiryPrefix)
	key = binary.BigEndian.AppendUint64(key, uint64(expiresAt.Unix()))
	return append(key, id...)
}

func expiryKeyID(key []byte) string {
	return string(key[9:])
}

func byIDKey(id string) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, byIDPrefix)
	return append(key, id...)
}

// ExpiryIndex tracks each document's expiry time in a pebble key range
// ordered by (expiresAt, id), so documents past their expiry can be
// enumerated and purged without a full table scan.
type ExpiryIndex struct {
	db *pebble.DB
}

func NewExpiryIndex(db *pebble.DB) *ExpiryIndex {
	return &ExpiryIndex{db: db}
}

// Set records id's expiry time, replacing any previously recorded one.
func (e *ExpiryIndex) Set(id string, expiresAt time.Time) error {
	b := e.db.NewBatch()
	defer b.Close()

	if old, ok, err := e.lookup(id); err != nil {
		return err
	} else if ok {
		if err := b.Delete(expiryKey(old, id), nil); err != nil {
			return err
		}
	}
	if err := b.Set(expiryKey(expiresAt, id), nil, nil); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(expiresAt.Unix()))
	if err := b.Set(byIDKey(id), buf[:], nil); err != nil {
		return err
	}
	return errors.Wrap(b.Commit(pebble.Sync), "storage: set expiry")
}

// Clear removes any expiry recorded for id.
func (e *ExpiryIndex) Clear(id string) error {
	old, ok, err := e.lookup(id)
	if err != nil || !ok {
		return err
	}
	b := e.db.NewBatch()
	defer b.Close()
	if err := b.Delete(expiryKey(old, id), nil); err != nil {
		return err
	}
	if err := b.Delete(byIDKey(id), nil); err != nil {
		return err
	}
	return errors.Wrap(b.Commit(pebble.Sync), "storage: clear expiry")
}

func (e *ExpiryIndex) lookup(id string) (time.Time, bool, error) {
	v, closer, err := e.db.Get(byIDKey(id))
	if err == pebble.ErrNotFound {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	defer closer.Close()
	return time.Unix(int64(binary.BigEndian.Uint64(v)), 0), true, nil
}

// Enumerate yields every document ID whose recorded expiry is at or
// before now, in expiry order.
func (e *ExpiryIndex) Enumerate(now time.Time) iter.Seq[string] {
	return func(yield func(string) bool) {
		upper := expiryKey(now.Add(time.Second), "")
		it, err := e.db.NewIter(&pebble.IterOptions{
			LowerBound: []byte{expiryPrefix},
			UpperBound: upper,
		})
		if err != nil {
			return
		}
		defer it.Close()
		for valid := it.First(); valid; valid = it.Next() {
			if !yield(expiryKeyID(it.Key())) {
				return
			}
		}
	}
}

// PurgeExpired deletes both the expiry-index entries and the document
// itself for every ID past its expiry, returning the count removed.
func (e *ExpiryIndex) PurgeExpired(now time.Time, docs ExpiryDeleter) (int, error) {
	n := 0
	for id := range e.Enumerate(now) {
		if err := e.Clear(id); err != nil {
			return n, err
		}
		if err := docs.DeleteDocument(id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ExpiryDeleter is the narrow slice of Store that PurgeExpired needs,
// kept separate so ExpiryIndex doesn't import Store back.
type ExpiryDeleter interface {
	DeleteDocument(id string) error
}
