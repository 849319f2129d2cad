package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a fixed 256-bit hash, compatible with source.File.Hash.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:8]) }

// Combine builds a module hash: H(content || dep1 || dep2 ...). deps must be
// in a deterministic order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
