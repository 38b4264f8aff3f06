// Package symmetric implements SymmetricKey, the runtime's encrypt-then-MAC
// construction: AES-256-CTR for confidentiality and HMAC-SHA-256 for
// integrity, built directly on crypto/aes and crypto/cipher rather than an
// AEAD wrapper library, matching the explicit encrypt-then-MAC
// construction this runtime's wire format expects.
package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/cvsouth/u8node/errs"
)

// KeySize is the length of each of the two key halves (AES-256 and
// HMAC-SHA-256); the full key material block is 2*KeySize = 64 bytes.
const KeySize = 32

// IVSize is the random initialization vector length prefixed to ciphertext.
const IVSize = 16

// macSize is the trailing HMAC-SHA-256 tag length.
const macSize = sha256.Size

// Key carries independent 32-byte AES-256 and HMAC-SHA-256 halves (64 bytes
// of key material total — each primitive mandates its own 32-byte key).
// Key.Bytes exposes the concatenation for storage alongside a KeyInfo record.
type Key struct {
	aesKey  [32]byte
	hmacKey [32]byte
}

// Generate produces a fresh random SymmetricKey.
func Generate() (*Key, error) {
	var k Key
	if _, err := rand.Read(k.aesKey[:]); err != nil {
		return nil, fmt.Errorf("generate AES key: %w", err)
	}
	if _, err := rand.Read(k.hmacKey[:]); err != nil {
		return nil, fmt.Errorf("generate HMAC key: %w", err)
	}
	return &k, nil
}

// FromBytes adopts a precomputed 64-byte key material block: the first 32
// bytes are the AES-256 key, the last 32 the HMAC-SHA-256 key.
func FromBytes(material []byte) (*Key, error) {
	if len(material) != 64 {
		return nil, fmt.Errorf("%w: SymmetricKey material must be 64 bytes, got %d", errs.ErrInvalidArgument, len(material))
	}
	var k Key
	copy(k.aesKey[:], material[:32])
	copy(k.hmacKey[:], material[32:])
	return &k, nil
}

// Bytes returns the 64-byte key material block.
func (k *Key) Bytes() []byte {
	out := make([]byte, 64)
	copy(out[:32], k.aesKey[:])
	copy(out[32:], k.hmacKey[:])
	return out
}

// Encrypt produces `IV ‖ AES-CTR(plaintext) ‖ HMAC(IV ‖ ciphertext)`.
func (k *Key) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(k.aesKey[:])
	if err != nil {
		return nil, fmt.Errorf("new AES cipher: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate IV: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, plaintext)

	mac := hmac.New(sha256.New, k.hmacKey[:])
	mac.Write(iv)
	mac.Write(ciphertext)
	tag := mac.Sum(nil)

	out := make([]byte, 0, IVSize+len(ciphertext)+macSize)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out, nil
}

// Decrypt verifies the trailing HMAC tag before decrypting, per the
// encrypt-then-MAC invariant: a tampered envelope never reaches AES-CTR.
func (k *Key) Decrypt(envelope []byte) ([]byte, error) {
	if len(envelope) < IVSize+macSize {
		return nil, fmt.Errorf("%w: SymmetricKey envelope too short", errs.ErrInvalidArgument)
	}
	iv := envelope[:IVSize]
	ciphertext := envelope[IVSize : len(envelope)-macSize]
	gotTag := envelope[len(envelope)-macSize:]

	mac := hmac.New(sha256.New, k.hmacKey[:])
	mac.Write(iv)
	mac.Write(ciphertext)
	wantTag := mac.Sum(nil)
	if !hmac.Equal(gotTag, wantTag) {
		return nil, fmt.Errorf("%w: SymmetricKey authentication tag mismatch", errs.ErrAuthenticationFailed)
	}

	block, err := aes.NewCipher(k.aesKey[:])
	if err != nil {
		return nil, fmt.Errorf("new AES cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}
