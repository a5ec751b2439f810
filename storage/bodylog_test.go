package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otterdb/revtree/revtree"
)

func TestBodyLogAppendAndReadSnapshot(t *testing.T) {
	log, err := OpenBodyLog(filepath.Join(t.TempDir(), "bodies.log"), 0)
	require.NoError(t, err)
	defer log.Close()

	off, err := log.Append([]byte("hello world"))
	require.NoError(t, err)
	got, err := log.readSnapshot(off)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)
}

func TestBodyLogReadBodyRecoversEvictedBody(t *testing.T) {
	log, err := OpenBodyLog(filepath.Join(t.TempDir(), "bodies.log"), 0)
	require.NoError(t, err)
	defer log.Close()

	tr := revtree.New()
	rev1, status := tr.Insert([]byte("1-a"), []byte("first body"), false, false, nil, false)
	require.Equal(t, revtree.StatusCreated, status)

	snapshot := tr.Encode()
	off, err := log.Append(snapshot)
	require.NoError(t, err)

	tr.SetBodyOffset(off)
	require.True(t, tr.RemoveBody(rev1, false))
	require.Empty(t, rev1.Body())
	require.NotZero(t, rev1.OldBodyOffset())

	tr.SetBodyLoader(log)
	got := tr.ReadBody(rev1)
	require.Equal(t, []byte("first body"), got)
}

func TestBodyLogAppendRespectsMaxSize(t *testing.T) {
	log, err := OpenBodyLog(filepath.Join(t.TempDir(), "bodies.log"), 8)
	require.NoError(t, err)
	defer log.Close()

	_, err = log.Append([]byte("this is way too long for the cap"))
	require.ErrorIs(t, err, ErrBodyLogFull)
}
