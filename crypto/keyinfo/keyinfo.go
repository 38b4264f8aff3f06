// Package keyinfo implements KeyInfo, the runtime's metadata record
// describing how a key was derived or should be used: a plain struct with
// an explicit Validate method enforcing field invariants at construction
// time rather than deep in the consumer.
package keyinfo

import (
	"crypto/rand"
	"fmt"

	"github.com/cvsouth/u8node/crypto/pbkdf2"
	"github.com/cvsouth/u8node/errs"
)

// Algorithm identifies the kind of key this record describes.
type Algorithm int

const (
	RSAPrivate Algorithm = iota
	RSAPublic
	AES256
)

func (a Algorithm) String() string {
	switch a {
	case RSAPrivate:
		return "RSAPrivate"
	case RSAPublic:
		return "RSAPublic"
	case AES256:
		return "AES256"
	default:
		return "unknown"
	}
}

// KeyInfo describes a key's algorithm, optional PRF derivation, and length.
type KeyInfo struct {
	Algorithm  Algorithm
	Tag        []byte // optional, algorithm-defined
	PRF        pbkdf2.PRF
	KeyLength  int
	Iterations int
	Salt       []byte
}

// defaultSaltLength is used when PRF is set but Salt is empty.
const defaultSaltLength = 16

// New constructs a KeyInfo, defaulting Salt when a PRF is requested but none
// was supplied, and enforcing:
//   - RSA kinds never carry a PRF.
//   - AES256 is always exactly 32 bytes.
//   - PRF-bearing keys require Iterations ≥ pbkdf2.MinIterations and
//     KeyLength ≥ 16.
func New(info KeyInfo) (KeyInfo, error) {
	switch info.Algorithm {
	case RSAPrivate, RSAPublic:
		if info.PRF != pbkdf2.PRFNone {
			return KeyInfo{}, fmt.Errorf("%w: RSA KeyInfo cannot carry a PRF", errs.ErrInvalidArgument)
		}
	case AES256:
		if info.KeyLength != 32 {
			return KeyInfo{}, fmt.Errorf("%w: AES256 KeyInfo must declare KeyLength 32, got %d", errs.ErrInvalidArgument, info.KeyLength)
		}
	default:
		return KeyInfo{}, fmt.Errorf("%w: unknown KeyInfo algorithm %v", errs.ErrInvalidArgument, info.Algorithm)
	}

	if info.PRF != pbkdf2.PRFNone {
		if info.Iterations < pbkdf2.MinIterations {
			return KeyInfo{}, fmt.Errorf("%w: KeyInfo iteration count %d below minimum %d", errs.ErrInvalidArgument, info.Iterations, pbkdf2.MinIterations)
		}
		if info.KeyLength < 16 {
			return KeyInfo{}, fmt.Errorf("%w: KeyInfo key length %d below minimum 16", errs.ErrInvalidArgument, info.KeyLength)
		}
		if len(info.Salt) == 0 {
			salt := make([]byte, defaultSaltLength)
			if _, err := rand.Read(salt); err != nil {
				return KeyInfo{}, fmt.Errorf("generate default KeyInfo salt: %w", err)
			}
			info.Salt = salt
		}
	}

	return info, nil
}
