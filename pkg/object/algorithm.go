package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Algorithm selects the digest used for content addressing. A repository
// picks one algorithm at init time and never mixes them: every hash in the
// object graph, every ref file and the index all use the same digest.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA1   Algorithm = "sha1"
)

// ParseAlgorithm validates a configured algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case SHA256:
		return SHA256, nil
	case SHA1:
		return SHA1, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", name)
	}
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	if a == SHA1 {
		return sha1.New()
	}
	return sha256.New()
}

// RawLen is the digest size in bytes.
func (a Algorithm) RawLen() int {
	if a == SHA1 {
		return sha1.Size
	}
	return sha256.Size
}

// HexLen is the length of a hex-encoded Hash.
func (a Algorithm) HexLen() int {
	return a.RawLen() * 2
}

// ZeroHash is the all-zero hash used as a placeholder in reflog entries.
func (a Algorithm) ZeroHash() Hash {
	buf := make([]byte, a.HexLen())
	for i := range buf {
		buf[i] = '0'
	}
	return Hash(buf)
}

// HashBytes computes the raw digest of data as a lowercase hex Hash.
func (a Algorithm) HashBytes(data []byte) Hash {
	h := a.New()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashObject computes the digest of the envelope "type len\0content".
// Identical kind and content always yield an identical identifier.
func (a Algorithm) HashObject(objType ObjectType, data []byte) Hash {
	h := a.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(data))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
