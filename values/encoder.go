package values

import (
	"encoding/binary"
	"math"
	"time"
)

// frame tracks one open array/dict: how many items it should hold (count),
// how many have been written so far (i), and — for dicts — the key-hash
// side index being filled in as keys are written.
type frame struct {
	count    int
	i        int
	hashes   []uint16
	indexPos int
}

// Encoder is a streaming, single-owner writer for the tagged value format.
// It is not safe for concurrent use, matching revtree.Tree.
type Encoder struct {
	out *Writer

	sharingEnabled bool
	shared         map[string]int // string -> output offset of its code byte

	extern *ExternTable

	stack []frame
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{out: NewWriter()}
}

// EnableSharedStrings turns on intra-document string sharing: candidate
// strings (length in [4,100]) repeated within this encoding are written
// once and referenced thereafter.
func (e *Encoder) EnableSharedStrings() {
	e.sharingEnabled = true
	if e.shared == nil {
		e.shared = make(map[string]int)
	}
}

// SetExternTable installs the caller-owned table consulted before
// shared-string handling.
func (e *Encoder) SetExternTable(t *ExternTable) { e.extern = t }

// Output borrows the bytes written so far; see Writer.Output.
func (e *Encoder) Output() []byte { return e.out.Output() }

// ExtractOutput transfers ownership of the written bytes to the caller.
func (e *Encoder) ExtractOutput() []byte { return e.out.ExtractOutput() }

func (e *Encoder) addTypeCode(c typeCode) { e.out.WriteByte(byte(c)) }

func (e *Encoder) addUVarint(n uint64) {
	var buf [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(buf[:], n)
	e.out.Write(buf[:l])
}

// countItem registers one written value against the innermost open
// array/dict frame, if any. Writing outside any frame (top-level values)
// is always allowed and simply has nothing to count against.
func (e *Encoder) countItem() {
	if len(e.stack) == 0 {
		return
	}
	e.stack[len(e.stack)-1].i++
}

func (e *Encoder) top() *frame { return &e.stack[len(e.stack)-1] }

// WriteNull writes the null value.
func (e *Encoder) WriteNull() {
	e.addTypeCode(kNullCode)
	e.countItem()
}

// WriteBool writes a boolean value.
func (e *Encoder) WriteBool(b bool) {
	if b {
		e.addTypeCode(kTrueCode)
	} else {
		e.addTypeCode(kFalseCode)
	}
	e.countItem()
}

// WriteInt writes a signed integer using the narrowest of Int8/16/32/64
// that can represent it.
func (e *Encoder) WriteInt(i int64) {
	var code typeCode
	var size int
	switch {
	case i >= math.MinInt8 && i <= math.MaxInt8:
		code, size = kInt8Code, 1
	case i >= math.MinInt16 && i <= math.MaxInt16:
		code, size = kInt16Code, 2
	case i >= math.MinInt32 && i <= math.MaxInt32:
		code, size = kInt32Code, 4
	default:
		code, size = kInt64Code, 8
	}
	e.addTypeCode(code)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	e.out.Write(buf[8-size:])
	e.countItem()
}

// WriteUInt writes an unsigned integer: delegated to WriteInt whenever it
// is below math.MaxInt64 (the overwhelmingly common case), else emits a
// raw UInt64.
func (e *Encoder) WriteUInt(u uint64) {
	if u < uint64(math.MaxInt64) {
		e.WriteInt(int64(u))
		return
	}
	e.addTypeCode(kUInt64Code)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	e.out.Write(buf[:])
	e.countItem()
}

// WriteDouble writes a float64, demoting to the narrowest integer form
// when n holds an exact int64 value. Returns ErrNaN for NaN.
func (e *Encoder) WriteDouble(n float64) error {
	if math.IsNaN(n) {
		return ErrNaN
	}
	if n == float64(int64(n)) {
		e.WriteInt(int64(n))
		return nil
	}
	e.addTypeCode(kFloat64Code)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(n))
	e.out.Write(buf[:])
	e.countItem()
	return nil
}

// WriteFloat writes a float32, demoting to the narrowest integer form
// when n holds an exact int32 value. Returns ErrNaN for NaN.
//
// This mirrors an asymmetry in the original encoder: WriteDouble demotes
// against int64, WriteFloat demotes against int32 — a float64 holding,
// say, 1e10 is demoted (fits int64) while the equivalent float32 is not
// (doesn't fit int32). That asymmetry is preserved rather than "fixed".
func (e *Encoder) WriteFloat(n float32) error {
	if math.IsNaN(float64(n)) {
		return ErrNaN
	}
	if n == float32(int32(n)) {
		e.WriteInt(int64(int32(n)))
		return nil
	}
	e.addTypeCode(kFloat32Code)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], math.Float32bits(n))
	e.out.Write(buf[:])
	e.countItem()
	return nil
}

// WriteRawNumber writes a number in its original textual/decimal form
// (e.g. a JSON number string too large to round-trip through float64).
func (e *Encoder) WriteRawNumber(s []byte) {
	e.addTypeCode(kRawNumberCode)
	e.addUVarint(uint64(len(s)))
	e.out.Write(s)
	e.countItem()
}

// WriteDate writes a timestamp as seconds since the Unix epoch.
func (e *Encoder) WriteDate(t time.Time) {
	e.addTypeCode(kDateCode)
	e.addUVarint(uint64(t.Unix()))
	e.countItem()
}

// WriteData writes an opaque byte blob.
func (e *Encoder) WriteData(s []byte) {
	e.addTypeCode(kDataCode)
	e.addUVarint(uint64(len(s)))
	e.out.Write(s)
	e.countItem()
}

// WriteString writes a string value, applying extern-table interning
// and/or intra-document sharing if enabled. canAddExtern controls whether
// a string not already in the extern table may be added to it.
func (e *Encoder) WriteString(s string, canAddExtern bool) {
	e.writeStringBody(s, canAddExtern)
	e.countItem()
}

// writeStringBody is the shared implementation behind WriteString and
// WriteKey: it does NOT count against the enclosing frame, since a dict
// key is not itself counted as a dict item.
func (e *Encoder) writeStringBody(s string, canAddExtern bool) {
	if e.extern != nil {
		if id, ok := e.extern.lookupID(s); ok {
			e.writeExternStringRef(id)
			return
		}
		if canAddExtern && e.extern.hasRoom() {
			id := e.extern.add(s)
			e.writeExternStringRef(id)
			return
		}
	}

	if e.sharingEnabled && len(s) >= kMinSharedStringLength && len(s) <= kMaxSharedStringLength {
		curOffset := e.out.Length()
		if firstOffset, ok := e.shared[s]; ok {
			e.out.Rewrite(firstOffset, []byte{byte(kSharedStringCode)})
			e.addTypeCode(kSharedStringRefCode)
			e.addUVarint(uint64(curOffset - firstOffset))
			return
		}
		e.shared[s] = curOffset
	}

	e.addTypeCode(kStringCode)
	e.addUVarint(uint64(len(s)))
	e.out.Write([]byte(s))
}

func (e *Encoder) writeExternStringRef(id uint32) {
	e.addTypeCode(kExternStringRefCode)
	e.addUVarint(uint64(id))
}

// BeginArray opens an array of count elements. Exactly count values must
// be written before the matching EndArray.
func (e *Encoder) BeginArray(count uint32) {
	e.countItem()
	e.addTypeCode(kArrayCode)
	e.pushCount(count)
}

// EndArray closes the array opened by the matching BeginArray. Panics
// (contract violation) if the wrong number of elements was written.
func (e *Encoder) EndArray() { e.popState() }

// BeginDict opens a dict of count key/value pairs, reserving count×2
// bytes for the key-hash index filled in by WriteKey/WriteExternKey and
// rewritten at EndDict.
func (e *Encoder) BeginDict(count uint32) {
	e.countItem()
	e.addTypeCode(kDictCode)
	e.pushCount(count)

	top := e.top()
	top.hashes = make([]uint16, count)
	top.indexPos = e.out.Length()
	e.out.Write(make([]byte, int(count)*2))
}

// WriteKey writes a dict key (as a string, possibly shared/extern) and
// records its hash in the pending key-hash index. Must be followed by
// exactly one value write before the next WriteKey or EndDict.
func (e *Encoder) WriteKey(key string, canAddExtern bool) {
	top := e.top()
	top.hashes[top.i] = HashCodeString(key)
	e.writeStringBody(key, canAddExtern)
}

// WriteExternKey writes a dict key already known to live in the extern
// table at externRef, using the caller-supplied hash rather than
// recomputing it.
func (e *Encoder) WriteExternKey(externRef uint32, hash uint16) {
	top := e.top()
	top.hashes[top.i] = hash
	e.writeExternStringRef(externRef)
}

// EndDict closes the dict opened by the matching BeginDict, rewriting the
// reserved key-hash index with its final contents. Panics (contract
// violation) if the wrong number of key/value pairs was written.
func (e *Encoder) EndDict() {
	top := e.top()
	buf := make([]byte, len(top.hashes)*2)
	for i, h := range top.hashes {
		binary.BigEndian.PutUint16(buf[i*2:], h)
	}
	e.out.Rewrite(top.indexPos, buf)
	e.popState()
}

func (e *Encoder) pushCount(count uint32) {
	e.addUVarint(uint64(count))
	e.stack = append(e.stack, frame{count: int(count)})
}

// popState closes the innermost frame. A mismatched count is a contract
// violation: it means the caller's BeginX(count)/EndX pair disagrees with
// the number of values actually written, which can only happen from a
// bug in the calling code.
func (e *Encoder) popState() {
	top := e.top()
	if top.i != top.count {
		panic("values: mismatched count")
	}
	e.stack = e.stack[:len(e.stack)-1]
}
