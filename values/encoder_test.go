package values

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIntNarrowing(t *testing.T) {
	cases := []struct {
		i    int64
		code typeCode
		size int
	}{
		{0, kInt8Code, 1},
		{127, kInt8Code, 1},
		{-128, kInt8Code, 1},
		{128, kInt16Code, 2},
		{-32768, kInt16Code, 2},
		{32768, kInt32Code, 4},
		{1 << 40, kInt64Code, 8},
		{math.MinInt64, kInt64Code, 8},
	}
	for _, c := range cases {
		e := NewEncoder()
		e.WriteInt(c.i)
		out := e.Output()
		require.Equal(t, byte(c.code), out[0])
		require.Len(t, out, 1+c.size)

		var buf [8]byte
		copy(buf[8-c.size:], out[1:])
		// sign-extend
		if out[1]&0x80 != 0 {
			for i := 0; i < 8-c.size; i++ {
				buf[i] = 0xFF
			}
		}
		got := int64(binary.BigEndian.Uint64(buf[:]))
		assert.Equal(t, c.i, got)
	}
}

func TestWriteUIntDelegatesUnderInt64Max(t *testing.T) {
	e := NewEncoder()
	e.WriteUInt(300)
	out := e.Output()
	assert.Equal(t, byte(kInt16Code), out[0])
}

func TestWriteUIntEmitsUInt64Beyond(t *testing.T) {
	e := NewEncoder()
	e.WriteUInt(uint64(math.MaxInt64) + 1)
	out := e.Output()
	require.Equal(t, byte(kUInt64Code), out[0])
	require.Len(t, out, 9)
	assert.Equal(t, uint64(math.MaxInt64)+1, binary.BigEndian.Uint64(out[1:]))
}

func TestWriteDoubleDemotesExactIntegers(t *testing.T) {
	e := NewEncoder()
	require.NoError(t, e.WriteDouble(42))
	out := e.Output()
	assert.Equal(t, byte(kInt8Code), out[0])
}

func TestWriteDoubleKeepsFractional(t *testing.T) {
	e := NewEncoder()
	require.NoError(t, e.WriteDouble(3.5))
	out := e.Output()
	require.Equal(t, byte(kFloat64Code), out[0])
	assert.Equal(t, 3.5, math.Float64frombits(binary.BigEndian.Uint64(out[1:])))
}

func TestWriteDoubleRejectsNaN(t *testing.T) {
	e := NewEncoder()
	assert.ErrorIs(t, e.WriteDouble(math.NaN()), ErrNaN)
}

func TestWriteFloatRejectsNaN(t *testing.T) {
	e := NewEncoder()
	assert.ErrorIs(t, e.WriteFloat(float32(math.NaN())), ErrNaN)
}

// TestFloatDoubleDemotionAsymmetry documents the preserved asymmetry: a
// value that demotes through WriteDouble (fits int64) need not demote
// through WriteFloat (doesn't fit int32).
func TestFloatDoubleDemotionAsymmetry(t *testing.T) {
	big := 1e10

	ed := NewEncoder()
	require.NoError(t, ed.WriteDouble(big))
	assert.Equal(t, byte(kInt64Code), ed.Output()[0], "1e10 fits int64, so WriteDouble demotes")

	ef := NewEncoder()
	require.NoError(t, ef.WriteFloat(float32(big)))
	assert.Equal(t, byte(kFloat32Code), ef.Output()[0], "1e10 doesn't fit int32, so WriteFloat does not demote")
}

func TestEncoderBasicDictScenario(t *testing.T) {
	// beginDict(2); writeKey("a"); writeInt(1); writeKey("bb"); writeInt(300); endDict()
	e := NewEncoder()
	e.BeginDict(2)
	e.WriteKey("a", false)
	e.WriteInt(1)
	e.WriteKey("bb", false)
	e.WriteInt(300)
	e.EndDict()

	out := e.Output()
	require.Equal(t, byte(kDictCode), out[0])
	count, n := binary.Uvarint(out[1:])
	require.Equal(t, uint64(2), count)
	pos := 1 + n

	hashIndexPos := pos
	hashA := binary.BigEndian.Uint16(out[hashIndexPos:])
	hashBB := binary.BigEndian.Uint16(out[hashIndexPos+2:])
	assert.Equal(t, HashCodeString("a"), hashA)
	assert.Equal(t, HashCodeString("bb"), hashBB)
	pos += 4

	require.Equal(t, byte(kStringCode), out[pos])
	pos++
	keyLen, n := binary.Uvarint(out[pos:])
	require.Equal(t, uint64(1), keyLen)
	pos += n
	assert.Equal(t, "a", string(out[pos:pos+1]))
	pos++

	require.Equal(t, byte(kInt8Code), out[pos])
	pos++
	assert.Equal(t, int8(1), int8(out[pos]))
	pos++

	require.Equal(t, byte(kStringCode), out[pos])
	pos++
	keyLen, n = binary.Uvarint(out[pos:])
	require.Equal(t, uint64(2), keyLen)
	pos += n
	assert.Equal(t, "bb", string(out[pos:pos+2]))
	pos += 2

	require.Equal(t, byte(kInt16Code), out[pos])
	pos++
	assert.Equal(t, int16(300), int16(binary.BigEndian.Uint16(out[pos:])))
}

func TestEncoderDictMismatchedCountPanics(t *testing.T) {
	e := NewEncoder()
	e.BeginDict(2)
	e.WriteKey("a", false)
	e.WriteInt(1)
	assert.Panics(t, func() { e.EndDict() })
}

func TestEncoderArrayMismatchedCountPanics(t *testing.T) {
	e := NewEncoder()
	e.BeginArray(3)
	e.WriteInt(1)
	e.WriteInt(2)
	assert.Panics(t, func() { e.EndArray() })
}

func TestEncoderArrayExactCountSucceeds(t *testing.T) {
	e := NewEncoder()
	e.BeginArray(2)
	e.WriteInt(1)
	e.WriteInt(2)
	assert.NotPanics(t, func() { e.EndArray() })
}

func TestStringSharing(t *testing.T) {
	// ["hello!", "world.", "hello!"]
	e := NewEncoder()
	e.EnableSharedStrings()
	e.BeginArray(3)
	e.WriteString("hello!", false)
	firstHelloOffset := 1 + 1 // array code + uvarint(3) is 1 byte, then first element's code byte
	e.WriteString("world.", false)
	thirdOffset := e.out.Length()
	e.WriteString("hello!", false)
	e.EndArray()

	out := e.Output()
	require.Equal(t, byte(kSharedStringCode), out[firstHelloOffset], "first occurrence's code byte was rewritten")
	require.Equal(t, byte(kSharedStringRefCode), out[thirdOffset])

	dist, n := binary.Uvarint(out[thirdOffset+1:])
	assert.Equal(t, uint64(thirdOffset-firstHelloOffset), dist)
	assert.Greater(t, n, 0)
}

func TestStringSharingRespectsLengthBounds(t *testing.T) {
	e := NewEncoder()
	e.EnableSharedStrings()
	e.BeginArray(2)
	e.WriteString("hi", false) // too short (< kMinSharedStringLength) to share
	e.WriteString("hi", false)
	e.EndArray()

	out := e.Output()
	// Both occurrences should be plain strings; none rewritten to shared.
	for _, b := range out {
		assert.NotEqual(t, byte(kSharedStringCode), b)
	}
}

func TestExternStringTable(t *testing.T) {
	table := NewExternTable(10)
	e := NewEncoder()
	e.SetExternTable(table)

	e.WriteString("repeat-me", true)
	require.Equal(t, 1, table.Len())
	out1 := append([]byte{}, e.Output()...)

	e2 := NewEncoder()
	e2.SetExternTable(table)
	e2.WriteString("repeat-me", true)
	out2 := e2.Output()

	assert.Equal(t, byte(kExternStringRefCode), out1[0])
	assert.Equal(t, byte(kExternStringRefCode), out2[0])
	id, _ := binary.Uvarint(out2[1:])
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, "repeat-me", table.At(uint32(id)))
}

func TestExternTableCapsGrowth(t *testing.T) {
	table := NewExternTable(1)
	e := NewEncoder()
	e.SetExternTable(table)

	e.WriteString("first", true)
	require.Equal(t, 1, table.Len())

	e.WriteString("second", true) // table full, falls through to plain string
	require.Equal(t, 1, table.Len())
	_ = e.Output()
	// second write's code byte is somewhere after the first; just check
	// it wasn't recorded as an extern ref.
	assert.NotContains(t, table.Strings(), "second")
}

func TestNestedArrayInDictCountsAsOneItem(t *testing.T) {
	e := NewEncoder()
	e.BeginDict(1)
	e.WriteKey("nested", false)
	e.BeginArray(2)
	e.WriteInt(1)
	e.WriteInt(2)
	e.EndArray()
	assert.NotPanics(t, func() { e.EndDict() })
}
