// Package pbkdf2 derives keys from passwords: standard PBKDF2
// parameterized by PRF (SHA-1/256/512), salt, iteration count, and output
// length, rejecting iteration counts below 100.
package pbkdf2

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	xpbkdf2 "golang.org/x/crypto/pbkdf2"

	"github.com/cvsouth/u8node/errs"
)

// PRF identifies the pseudorandom function underlying derivation.
type PRF int

const (
	PRFNone PRF = iota
	PRFHMACSHA1
	PRFHMACSHA256
	PRFHMACSHA512
)

// MinIterations is the minimum accepted iteration count; Derive rejects
// anything below it.
const MinIterations = 100

func newHash(p PRF) (func() hash.Hash, error) {
	switch p {
	case PRFHMACSHA1:
		return sha1.New, nil
	case PRFHMACSHA256:
		return sha256.New, nil
	case PRFHMACSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PRF %v", errs.ErrInvalidArgument, p)
	}
}

// Derive computes a PBKDF2 key of keyLen bytes from password and salt using
// prf and iterations rounds.
func Derive(password, salt []byte, iterations, keyLen int, prf PRF) ([]byte, error) {
	if iterations < MinIterations {
		return nil, fmt.Errorf("%w: iteration count %d below minimum %d", errs.ErrInvalidArgument, iterations, MinIterations)
	}
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: key length must be positive", errs.ErrInvalidArgument)
	}
	h, err := newHash(prf)
	if err != nil {
		return nil, err
	}
	return xpbkdf2.Key(password, salt, iterations, keyLen, h), nil
}
