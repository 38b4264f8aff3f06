// Package rsakey implements the RsaKey record: RSA key generation,
// RSASSA-PSS signing/verification (MGF1-SHA-1 regardless of the data-hash
// choice, maximum salt length), and RSAES-OAEP encryption (SHA-1
// label/MGF hash). Key generation and OAEP lean on stdlib crypto/rsa
// directly rather than an ecosystem wrapper; PSS signing/verification is
// hand-rolled in pss.go because stdlib's rsa.SignPSS/VerifyPSS cannot
// express an MGF1 hash independent of the data hash (see that file's
// comment).
package rsakey

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"

	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/errs"
)

// MinBits is the minimum mandated RSA key strength.
const MinBits = 2048

// PublicExponent is the fixed RSA public exponent used for key generation.
const PublicExponent = 65537

// Kind discriminates public/private/passworded on the wire.
type Kind int

const (
	KindPrivate   Kind = 0
	KindPublic    Kind = 1
	KindPassworded Kind = 2
)

// Key is an owned, immutable RSA key record. A Key constructed from
// GeneratePrivate or a parsed private-key payload carries a private half;
// otherwise it is public-only.
type Key struct {
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey // nil for public-only keys
}

// Generate produces a fresh RSA key pair of the requested bit strength.
func Generate(bits int) (*Key, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: RSA key strength %d below minimum %d", errs.ErrInvalidArgument, bits, MinBits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate RSA key: %w", err)
	}
	if priv.PublicKey.E != PublicExponent {
		// crypto/rsa.GenerateKey always uses 65537; this guards the invariant
		// explicitly in case that default ever changes upstream.
		return nil, fmt.Errorf("generated key has unexpected public exponent %d", priv.PublicKey.E)
	}
	priv.Precompute()
	return &Key{pub: &priv.PublicKey, priv: priv}, nil
}

// FromPublic wraps an existing public key.
func FromPublic(pub *rsa.PublicKey) *Key {
	return &Key{pub: pub}
}

// FromPrivate wraps an existing private key.
func FromPrivate(priv *rsa.PrivateKey) *Key {
	priv.Precompute()
	return &Key{pub: &priv.PublicKey, priv: priv}
}

// IsPrivate reports whether this Key carries a private half.
func (k *Key) IsPrivate() bool { return k.priv != nil }

// Public returns the public-only projection of this key.
func (k *Key) Public() *Key { return &Key{pub: k.pub} }

// PublicKey exposes the underlying stdlib public key.
func (k *Key) PublicKey() *rsa.PublicKey { return k.pub }

// PrivateKey exposes the underlying stdlib private key, or nil if this Key
// is public-only.
func (k *Key) PrivateKey() *rsa.PrivateKey { return k.priv }

// Sign produces an RSASSA-PSS signature over data's digest under the
// algorithm alg, with the mask-generation hash always pinned to SHA-1
// regardless of alg and the maximum salt length allowed by the modulus. Go's
// stdlib rsa.SignPSS ties the MGF1 hash to the same opts.Hash used for the
// data digest, so it cannot express that independence; the PSS encoding
// and raw RSA trapdoor are hand-rolled in pss.go instead (see its package
// comment).
func (k *Key) Sign(data []byte, alg hashfamily.Algorithm) ([]byte, error) {
	if k.priv == nil {
		return nil, fmt.Errorf("%w: signing requires a private key", errs.ErrInvalidArgument)
	}
	digest, err := hashfamily.Digest(alg, data)
	if err != nil {
		return nil, err
	}
	emBits := k.pub.N.BitLen() - 1
	em, err := emsaPSSEncode(digest, emBits, alg)
	if err != nil {
		return nil, err
	}
	return rawSign(em, k.priv.D, k.pub.N), nil
}

// Verify checks an RSASSA-PSS signature produced by Sign under the same
// data-hash algorithm; a mismatched algorithm always fails.
func (k *Key) Verify(data, sig []byte, alg hashfamily.Algorithm) bool {
	digest, err := hashfamily.Digest(alg, data)
	if err != nil {
		return false
	}
	emBits := k.pub.N.BitLen() - 1
	emLen := (emBits + 7) / 8
	em := rawVerify(sig, k.pub.E, k.pub.N)
	if em == nil || len(em) != emLen {
		return false
	}
	return emsaPSSVerify(digest, em, emBits, alg)
}

// Encrypt performs RSAES-OAEP encryption with SHA-1 as both label and MGF hash.
func (k *Key) Encrypt(plaintext []byte) ([]byte, error) {
	ct, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, k.pub, plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("RSA-OAEP encrypt: %w", err)
	}
	return ct, nil
}

// Decrypt performs RSAES-OAEP decryption with SHA-1 as both label and MGF hash.
func (k *Key) Decrypt(ciphertext []byte) ([]byte, error) {
	if k.priv == nil {
		return nil, fmt.Errorf("%w: decryption requires a private key", errs.ErrInvalidArgument)
	}
	pt, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, k.priv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("RSA-OAEP decrypt: %w", err)
	}
	return pt, nil
}
