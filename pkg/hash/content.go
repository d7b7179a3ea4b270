package hash

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"

	"golang.org/x/crypto/blake2b"
)

const (
	AlgorithmFNV     = "fnv"
	AlgorithmBlake2b = "blake2b"
)

// Hasher fingerprints document text for change detection. Implementations
// are deterministic and unsalted.
type Hasher interface {
	Sum(content string) string
}

// FNVHasher is the fast default: 64-bit FNV-1a, hex encoded.
type FNVHasher struct{}

func (FNVHasher) Sum(content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Blake2bHasher trades speed for collision resistance.
type Blake2bHasher struct{}

func (Blake2bHasher) Sum(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func New(algorithm string) (Hasher, error) {
	switch algorithm {
	case "", AlgorithmFNV:
		return FNVHasher{}, nil
	case AlgorithmBlake2b:
		return Blake2bHasher{}, nil
	default:
		return nil, fmt.Errorf("unknown content hash algorithm: %s", algorithm)
	}
}
