package revtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortLeafBeforeNonLeaf(t *testing.T) {
	tr := New()
	rev1, _ := tr.Insert([]byte("1-a"), []byte("b1"), false, false, nil, false)
	tr.Insert([]byte("2-b"), []byte("b2"), false, false, rev1, false)

	tr.Sort()
	assert.True(t, tr.At(0).IsLeaf())
	assert.False(t, tr.At(1).IsLeaf())
	assert.Equal(t, "2-b", string(tr.At(0).RevID()))
}

func TestSortNonDeletedBeforeDeleted(t *testing.T) {
	tr := New()
	rev1, _ := tr.Insert([]byte("1-a"), []byte("b1"), false, false, nil, true)
	tr.Insert([]byte("2-b"), []byte("b2"), true, false, rev1, true) // deleted leaf
	tr.Insert([]byte("2-c"), []byte("b3"), false, false, rev1, true) // active leaf

	tr.Sort()
	assert.Equal(t, "2-c", string(tr.At(0).RevID()), "active leaf outranks deleted leaf")
}

func TestSortPreservesParentChains(t *testing.T) {
	tr := New()
	rev1, _ := tr.Insert([]byte("1-a"), []byte("b1"), false, false, nil, false)
	rev2, _ := tr.Insert([]byte("2-b"), []byte("b2"), false, false, rev1, false)
	tr.Insert([]byte("3-c"), []byte("b3"), false, false, rev2, false)

	tr.Sort()

	leaf := tr.Get([]byte("3-c"))
	require.NotNil(t, leaf)
	history := leaf.History()
	require.Len(t, history, 3)
	assert.Equal(t, "3-c", string(history[0].RevID()))
	assert.Equal(t, "2-b", string(history[1].RevID()))
	assert.Equal(t, "1-a", string(history[2].RevID()))
	assert.Nil(t, history[2].Parent())
}

func TestSortIsNoOpWhenAlreadySorted(t *testing.T) {
	tr := New()
	tr.Insert([]byte("1-a"), []byte("b1"), false, false, nil, false)
	tr.Sort()
	assert.True(t, tr.sorted)
	tr.Sort() // should be a cheap no-op, not re-derive anything
	assert.True(t, tr.sorted)
}

func TestCurrentRevisionsReturnsAllLeaves(t *testing.T) {
	tr := New()
	rev1, _ := tr.Insert([]byte("1-a"), []byte("b1"), false, false, nil, false)
	tr.Insert([]byte("2-b"), []byte("b2"), false, false, rev1, false)
	tr.Insert([]byte("2-c"), []byte("b3"), false, false, rev1, true)

	leaves := tr.CurrentRevisions()
	assert.Len(t, leaves, 2)
}

func TestHasConflictUnsortedMatchesSorted(t *testing.T) {
	tr := New()
	rev1, _ := tr.Insert([]byte("1-a"), []byte("b1"), false, false, nil, false)
	tr.Insert([]byte("2-b"), []byte("b2"), false, false, rev1, false)
	tr.Insert([]byte("2-c"), []byte("b3"), false, false, rev1, true)

	assert.False(t, tr.sorted)
	assert.True(t, tr.HasConflict())

	tr.Sort()
	assert.True(t, tr.HasConflict())
}
