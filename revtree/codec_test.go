package revtree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLinearTree(t *testing.T) *Tree {
	tr := New()
	rev1, status := tr.Insert([]byte("1-a"), []byte("body1"), false, false, nil, false)
	require.Equal(t, StatusCreated, status)
	_, status = tr.Insert([]byte("2-b"), []byte("body2"), false, false, rev1, false)
	require.Equal(t, StatusCreated, status)
	return tr
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tr := buildLinearTree(t)
	encoded := tr.Encode()

	decoded, err := Decode(encoded, 42, 0)
	require.NoError(t, err)
	require.Equal(t, tr.Len(), decoded.Len())

	for i := 0; i < tr.Len(); i++ {
		want := tr.At(i)
		got := decoded.At(i)
		assert.Equal(t, want.RevID(), got.RevID())
		assert.Equal(t, want.Flags()&persistentFlags, got.Flags()&persistentFlags)
		assert.Equal(t, want.Body(), got.Body())
	}
}

func TestEncodeTerminator(t *testing.T) {
	tr := buildLinearTree(t)
	encoded := tr.Encode()

	require.True(t, len(encoded) >= 4)
	tail := encoded[len(encoded)-4:]
	assert.Equal(t, []byte{0, 0, 0, 0}, tail)
}

func TestEncodeLengthMatchesScenario(t *testing.T) {
	tr := New()
	rev1, _ := tr.Insert([]byte("1-a"), []byte("body1"), false, false, nil, false)
	tr.Insert([]byte("2-b"), []byte("body2"), false, false, rev1, false)

	encoded := tr.Encode()

	sizeOf := func(revID, body []byte, seq uint64) int {
		n := rawHeaderLen + len(revID) + varintLen(seq)
		n += len(body)
		return n // rawHeaderLen already counts the leading size field
	}
	want := sizeOf([]byte("1-a"), []byte("body1"), tr.Get([]byte("1-a")).Sequence()) +
		sizeOf([]byte("2-b"), []byte("body2"), tr.Get([]byte("2-b")).Sequence()) +
		4 // terminator
	assert.Equal(t, want, len(encoded))
}

func TestDecodeRejectsMissingTerminator(t *testing.T) {
	tr := buildLinearTree(t)
	encoded := tr.Encode()
	truncated := encoded[:len(encoded)-4] // drop the terminator

	_, err := Decode(truncated, 1, 0)
	assert.ErrorIs(t, err, ErrCorruptRevisionData)
}

func TestDecodeInheritsSequenceWhenZero(t *testing.T) {
	tr := New()
	tr.Insert([]byte("1-a"), []byte("body1"), false, false, nil, false)
	// A freshly-inserted revision has sequence 0 until persisted.
	encoded := tr.Encode()

	decoded, err := Decode(encoded, 99, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), decoded.At(0).Sequence())
}

func TestDecodeRejectsTruncatedRecord(t *testing.T) {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, 100) // claims 100 bytes but buffer is only 4
	_, err := Decode(raw, 1, 0)
	assert.ErrorIs(t, err, ErrCorruptRevisionData)
}
