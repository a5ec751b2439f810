// Package values implements a tagged value encoder: a streaming writer
// that emits a compact, self-describing binary format for scalars, dates,
// blobs, strings (with intra-document sharing and an extern-table
// interning option), arrays and dictionaries.
package values

// typeCode is the one-byte tag prefixing every encoded value.
type typeCode byte

const (
	kNullCode typeCode = iota
	kFalseCode
	kTrueCode
	kInt8Code
	kInt16Code
	kInt32Code
	kInt64Code
	kUInt64Code
	kFloat32Code
	kFloat64Code
	kRawNumberCode
	kDateCode
	kDataCode
	kStringCode
	kSharedStringCode
	kSharedStringRefCode
	kExternStringRefCode
	kArrayCode
	kDictCode
)

// kMinSharedStringLength and kMaxSharedStringLength bound which strings are
// candidates for intra-document sharing: too short and the ref costs more
// than repeating the string; too long and the rewrite-on-second-occurrence
// trick stops paying for itself.
const (
	kMinSharedStringLength = 4
	kMaxSharedStringLength = 100
)
