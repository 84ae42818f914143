package idhash

import (
	"crypto/sha256"
	"encoding/binary"
)

// Seed derives a 32-byte program-address seed from a label and ordered parts.
// Formula: SHA256(label|part0|part1|...)
func Seed(label string, parts ...[]byte) []byte {
	h := sha256.New()
	h.Write([]byte(label))
	for _, p := range parts {
		h.Write([]byte{'|'})
		h.Write(p)
	}
	return h.Sum(nil)
}

// Uint64 encodes n big-endian for use as a seed part.
func Uint64(n uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return buf[:]
}
