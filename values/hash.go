package values

import "github.com/cespare/xxhash/v2"

// HashCode is the stable 16-bit function of key bytes used to populate a
// dict's key-hash index. Any function that agrees between writer and
// reader is sufficient; we take the low 16 bits of xxhash64 rather than
// hand-rolling a polynomial rolling hash.
func HashCode(key []byte) uint16 {
	return uint16(xxhash.Sum64(key))
}

// HashCodeString is HashCode for a string key, avoiding a []byte copy.
func HashCodeString(key string) uint16 {
	return uint16(xxhash.Sum64String(key))
}
