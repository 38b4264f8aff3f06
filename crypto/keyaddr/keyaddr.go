// Package keyaddr implements KeyAddress, the runtime's compact identifier
// for an RSA public key: a prefix byte, a SHA3-256 or SHA3-384 digest of
// the key's components, and a trailing CRC32 checksum, rendered textually
// through safe58 — the same prefix-byte-plus-digest-plus-checksum shape
// used for other identity fingerprints elsewhere, generalized here to
// SHA3 and RSA.
package keyaddr

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math/big"

	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/crypto/safe58"
	"github.com/cvsouth/u8node/errs"
)

// typeMark identifies the key scheme the address was derived from. RSA is
// the only scheme in use today; the field exists so future key types can
// share the wire shape without a format break.
const typeMarkRSA = 0

const (
	maskRSA2048 = 1
	maskRSA4096 = 2
)

// ShortSize is the length of a short (SHA3-256-based) KeyAddress.
const ShortSize = 1 + 32 + 4

// LongSize is the length of a long (SHA3-384-based) KeyAddress.
const LongSize = 1 + 48 + 4

// KeyAddress is an immutable compact identifier derived from an RSA public
// key.
type KeyAddress struct {
	raw []byte
}

// From derives a KeyAddress for pub. long selects the SHA3-384 digest (53
// bytes total); otherwise SHA3-256 is used (37 bytes total).
func From(pub *rsakey.Key, long bool) (KeyAddress, error) {
	mask, err := keyMaskFor(pub)
	if err != nil {
		return KeyAddress{}, err
	}
	prefix := byte(mask<<4) | typeMarkRSA

	alg := hashfamily.SHA3_256
	if long {
		alg = hashfamily.SHA3_384
	}
	digest, err := hashfamily.Digest(alg, keyComponents(pub))
	if err != nil {
		return KeyAddress{}, err
	}

	body := append([]byte{prefix}, digest...)
	checksum := crc32.ChecksumIEEE(body)
	var checksumBytes [4]byte
	binary.BigEndian.PutUint32(checksumBytes[:], checksum)

	return KeyAddress{raw: append(body, checksumBytes[:]...)}, nil
}

func keyMaskFor(pub *rsakey.Key) (int, error) {
	bits := pub.PublicKey().N.BitLen()
	switch {
	case bits <= 2048:
		return maskRSA2048, nil
	case bits <= 4096:
		return maskRSA4096, nil
	default:
		return 0, fmt.Errorf("%w: KeyAddress supports only 2048/4096-bit RSA keys, got %d bits", errs.ErrInvalidArgument, bits)
	}
}

// keyComponents concatenates the minimal big-endian byte encodings of e and
// N (no fixed-width padding, e.g. 65537 is 3 bytes: 0x01 0x00 0x01), matching
// the GMP-based minimal-byte encoding a peer's own key-identity derivation
// uses so that KeyAddress values agree across implementations.
func keyComponents(pub *rsakey.Key) []byte {
	n := pub.PublicKey().N.Bytes()
	e := big.NewInt(int64(pub.PublicKey().E)).Bytes()
	return append(e, n...)
}

// IsLong reports whether this KeyAddress used the SHA3-384 (long) digest.
func (a KeyAddress) IsLong() bool {
	return len(a.raw) == LongSize
}

// Bytes returns the raw `prefix ‖ digest ‖ crc32` byte sequence.
func (a KeyAddress) Bytes() []byte {
	out := make([]byte, len(a.raw))
	copy(out, a.raw)
	return out
}

// Match recomputes the expected KeyAddress from pub and reports whether it
// equals a.
func (a KeyAddress) Match(pub *rsakey.Key) bool {
	recomputed, err := From(pub, a.IsLong())
	if err != nil {
		return false
	}
	return string(recomputed.raw) == string(a.raw)
}

// String renders the KeyAddress in its Safe58 textual form.
func (a KeyAddress) String() string {
	return safe58.Encode(a.raw)
}

// Parse reconstructs a KeyAddress from its Safe58 textual form, verifying
// the trailing checksum and the overall length.
func Parse(s string) (KeyAddress, error) {
	raw, err := safe58.Decode(s)
	if err != nil {
		return KeyAddress{}, err
	}
	if len(raw) != ShortSize && len(raw) != LongSize {
		return KeyAddress{}, fmt.Errorf("%w: KeyAddress must decode to %d or %d bytes, got %d", errs.ErrInvalidArgument, ShortSize, LongSize, len(raw))
	}
	body, checksumBytes := raw[:len(raw)-4], raw[len(raw)-4:]
	want := crc32.ChecksumIEEE(body)
	got := binary.BigEndian.Uint32(checksumBytes)
	if want != got {
		return KeyAddress{}, fmt.Errorf("%w: KeyAddress checksum mismatch", errs.ErrInvalidArgument)
	}
	return KeyAddress{raw: raw}, nil
}
