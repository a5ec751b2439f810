package storage

import (
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *pebble.DB {
	db, err := pebble.Open(t.TempDir(), &pebble.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExpiryIndexSetAndEnumerate(t *testing.T) {
	idx := NewExpiryIndex(openTestDB(t))
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, idx.Set("doc1", now.Add(-time.Minute)))
	require.NoError(t, idx.Set("doc2", now.Add(time.Hour)))

	var expired []string
	for id := range idx.Enumerate(now) {
		expired = append(expired, id)
	}
	assert.Equal(t, []string{"doc1"}, expired)
}

func TestExpiryIndexSetReplacesPriorEntry(t *testing.T) {
	idx := NewExpiryIndex(openTestDB(t))
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, idx.Set("doc1", now.Add(time.Hour)))
	require.NoError(t, idx.Set("doc1", now.Add(-time.Minute)))

	var expired []string
	for id := range idx.Enumerate(now) {
		expired = append(expired, id)
	}
	assert.Equal(t, []string{"doc1"}, expired, "the stale far-future entry must not still be enumerable")
}

func TestExpiryIndexClear(t *testing.T) {
	idx := NewExpiryIndex(openTestDB(t))
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, idx.Set("doc1", now.Add(-time.Minute)))
	require.NoError(t, idx.Clear("doc1"))

	var expired []string
	for id := range idx.Enumerate(now) {
		expired = append(expired, id)
	}
	assert.Empty(t, expired)
}

type fakeDeleter struct {
	deleted []string
}

func (f *fakeDeleter) DeleteDocument(id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestExpiryIndexPurgeExpired(t *testing.T) {
	idx := NewExpiryIndex(openTestDB(t))
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, idx.Set("doc1", now.Add(-time.Hour)))
	require.NoError(t, idx.Set("doc2", now.Add(-time.Minute)))
	require.NoError(t, idx.Set("doc3", now.Add(time.Hour)))

	del := &fakeDeleter{}
	n, err := idx.PurgeExpired(now, del)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"doc1", "doc2"}, del.deleted)

	var remaining []string
	for id := range idx.Enumerate(now.Add(2 * time.Hour)) {
		remaining = append(remaining, id)
	}
	assert.Equal(t, []string{"doc3"}, remaining)
}
