// Package hashid implements HashId, the runtime's immutable triple-hash
// content identifier: the concatenation of SHA-512/256, SHA3-256, and
// Streebog-256 digests of the hashed input. Modeled as a fixed-size byte
// array wrapped with Equal/String methods rather than a bare []byte.
package hashid

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/streebog"
	"github.com/cvsouth/u8node/errs"
)

// Size is the fixed length of a HashId: three 32-byte digests concatenated.
const Size = 96

// HashId is an immutable content identifier.
type HashId struct {
	digest [Size]byte
}

// Of computes the HashId of data by hashing it under all three algorithms,
// in order: SHA-512/256, SHA3-256, Streebog-256.
func Of(data []byte) HashId {
	var id HashId
	copy(id.digest[0:32], hashfamily.Sha512_256(data))
	sha3, _ := hashfamily.Digest(hashfamily.SHA3_256, data)
	copy(id.digest[32:64], sha3)
	copy(id.digest[64:96], streebog.Hash256(data))
	return id
}

// FromDigest adopts a precomputed 96-byte digest sequence as-is, without
// re-hashing it.
func FromDigest(digest []byte) (HashId, error) {
	var id HashId
	if len(digest) != Size {
		return id, fmt.Errorf("%w: HashId digest must be %d bytes, got %d", errs.ErrInvalidArgument, Size, len(digest))
	}
	copy(id.digest[:], digest)
	return id, nil
}

// Bytes returns the raw 96-byte digest sequence.
func (id HashId) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id.digest[:])
	return out
}

// Equal reports whether two HashIds carry the same digest.
func (id HashId) Equal(other HashId) bool {
	return id.digest == other.digest
}

// Compare orders two HashIds lexicographically over their concatenated
// digest bytes, returning -1, 0, or 1.
func (id HashId) Compare(other HashId) int {
	return bytes.Compare(id.digest[:], other.digest[:])
}

// String renders the HashId in its Base64 textual form (128 characters).
func (id HashId) String() string {
	return base64.StdEncoding.EncodeToString(id.digest[:])
}

// Parse reconstructs a HashId from its Base64 textual form.
func Parse(s string) (HashId, error) {
	var id HashId
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: invalid HashId base64: %v", errs.ErrInvalidArgument, err)
	}
	return FromDigest(raw)
}
