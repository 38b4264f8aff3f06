// Package hashfamily exposes the runtime's multi-hash digest family: SHA-1,
// SHA-256, SHA-512, SHA3-256, SHA3-384, SHA3-512, each as a streaming
// digest and as a one-shot Digest call.
package hashfamily

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Algorithm identifies one of the six supported hash algorithms.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
	SHA512
	SHA3_256
	SHA3_384
	SHA3_512
)

// Size returns the algorithm's documented digest length in bytes.
func (a Algorithm) Size() int {
	switch a {
	case SHA1:
		return sha1.Size
	case SHA256:
		return sha256.Size
	case SHA512:
		return sha512.Size
	case SHA3_256:
		return 32
	case SHA3_384:
		return 48
	case SHA3_512:
		return 64
	default:
		return 0
	}
}

func (a Algorithm) String() string {
	switch a {
	case SHA1:
		return "SHA-1"
	case SHA256:
		return "SHA-256"
	case SHA512:
		return "SHA-512"
	case SHA3_256:
		return "SHA3-256"
	case SHA3_384:
		return "SHA3-384"
	case SHA3_512:
		return "SHA3-512"
	default:
		return "unknown"
	}
}

// New returns a fresh streaming hash.Hash for the algorithm.
func New(a Algorithm) (hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case SHA3_256:
		return sha3.New256(), nil
	case SHA3_384:
		return sha3.New384(), nil
	case SHA3_512:
		return sha3.New512(), nil
	default:
		return nil, fmt.Errorf("hashfamily: unknown algorithm %v", a)
	}
}

// Digest computes a one-shot digest of data under the given algorithm.
func Digest(a Algorithm, data []byte) ([]byte, error) {
	h, err := New(a)
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(nil), nil
}

// Sha512_256 computes the truncated SHA-512/256 variant used by HashId.
// Go's stdlib exposes this as crypto/sha512.Sum512_256, wired directly
// rather than through the streaming New() switch since it isn't one of the
// six user-selectable algorithms.
func Sha512_256(data []byte) []byte {
	sum := sha512.Sum512_256(data)
	return sum[:]
}
