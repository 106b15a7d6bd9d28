// Package hashutil includes all hash-function related helpers for the chain.
package hashutil

import (
	"github.com/minio/sha256-simd"
)

// Hash defines a function that returns the sha256 checksum of the data passed in.
func Hash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashConcat hashes the concatenation of the provided byte slices. Each part
// is length-prefixed so that distinct field layouts can never collide.
func HashConcat(parts ...[]byte) [32]byte {
	h := sha256.New()
	var length [8]byte
	for _, p := range parts {
		for i, l := 0, len(p); i < 8; i++ {
			length[i] = byte(l >> (8 * i))
		}
		h.Write(length[:])
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}
