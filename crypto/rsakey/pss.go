package rsakey

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/errs"
)

// Stdlib crypto/rsa.SignPSS/VerifyPSS always use the same hash for both the
// message digest and the MGF1 mask — there is no way to pin MGF1 to SHA-1
// independent of the data-hash choice through that API, but that
// independence is required here, so PSS encoding/verification and the raw
// RSA trapdoor are hand-rolled per RFC 8017 §9.1 / §5.2 instead of
// depending on a library that doesn't expose the knob this needs.

func mgf1(seed []byte, maskLen int) []byte {
	var out []byte
	var counter uint32
	for len(out) < maskLen {
		h := sha1.New()
		h.Write(seed)
		var cntBuf [4]byte
		binary.BigEndian.PutUint32(cntBuf[:], counter)
		h.Write(cntBuf[:])
		out = append(out, h.Sum(nil)...)
		counter++
	}
	return out[:maskLen]
}

// emsaPSSEncode encodes a precomputed message digest mHash (hashed under
// alg) into an encoded message of emLen bytes, per RFC 8017 §9.1.1, with
// the MGF1 mask always keyed on SHA-1.
func emsaPSSEncode(mHash []byte, emBits int, alg hashfamily.Algorithm) ([]byte, error) {
	hLen := alg.Size()
	emLen := (emBits + 7) / 8
	sLen := emLen - hLen - 2 // maximum salt length allowed by the modulus
	if sLen < 0 {
		return nil, fmt.Errorf("%w: RSA modulus too small for PSS with %s", errs.ErrInvalidArgument, alg)
	}

	salt := make([]byte, sLen)
	if sLen > 0 {
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate PSS salt: %w", err)
		}
	}

	mPrime := make([]byte, 0, 8+hLen+sLen)
	mPrime = append(mPrime, make([]byte, 8)...)
	mPrime = append(mPrime, mHash...)
	mPrime = append(mPrime, salt...)

	hDigest, err := hashfamily.Digest(alg, mPrime)
	if err != nil {
		return nil, err
	}

	psLen := emLen - sLen - hLen - 2
	db := make([]byte, 0, emLen-hLen-1)
	db = append(db, make([]byte, psLen)...)
	db = append(db, 0x01)
	db = append(db, salt...)

	dbMask := mgf1(hDigest, len(db))
	maskedDB := make([]byte, len(db))
	for i := range db {
		maskedDB[i] = db[i] ^ dbMask[i]
	}

	clearBits := 8*emLen - emBits
	if clearBits > 0 {
		maskedDB[0] &= 0xFF >> uint(clearBits)
	}

	em := append(maskedDB, hDigest...)
	em = append(em, 0xbc)
	return em, nil
}

func emsaPSSVerify(mHash, em []byte, emBits int, alg hashfamily.Algorithm) bool {
	hLen := alg.Size()
	emLen := (emBits + 7) / 8
	if len(em) != emLen || emLen < hLen+2 {
		return false
	}
	if em[len(em)-1] != 0xbc {
		return false
	}
	maskedDB := em[:emLen-hLen-1]
	hDigest := em[emLen-hLen-1 : emLen-1]

	clearBits := 8*emLen - emBits
	if clearBits > 0 {
		if maskedDB[0]&(0xFF<<uint(8-clearBits)) != 0 {
			return false
		}
	}

	dbMask := mgf1(hDigest, len(maskedDB))
	db := make([]byte, len(maskedDB))
	for i := range maskedDB {
		db[i] = maskedDB[i] ^ dbMask[i]
	}
	if clearBits > 0 {
		db[0] &= 0xFF >> uint(clearBits)
	}

	psEnd := -1
	for i, b := range db {
		if b == 0x01 {
			psEnd = i
			break
		}
		if b != 0x00 {
			return false
		}
	}
	if psEnd < 0 {
		return false
	}
	salt := db[psEnd+1:]

	mPrime := make([]byte, 0, 8+hLen+len(salt))
	mPrime = append(mPrime, make([]byte, 8)...)
	mPrime = append(mPrime, mHash...)
	mPrime = append(mPrime, salt...)
	hPrime, err := hashfamily.Digest(alg, mPrime)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(hPrime, hDigest) == 1
}

// rawSign performs the RSA signature primitive (RSASP1): s = EM^d mod n,
// encoded as a big-endian byte string the size of the modulus.
func rawSign(em []byte, d, n *big.Int) []byte {
	k := (n.BitLen() + 7) / 8
	m := new(big.Int).SetBytes(em)
	s := new(big.Int).Exp(m, d, n)
	return leftPad(s.Bytes(), k)
}

// rawVerify performs the RSA verification primitive (RSAVP1): EM = s^e mod n.
func rawVerify(sig []byte, e int, n *big.Int) []byte {
	k := (n.BitLen() + 7) / 8
	s := new(big.Int).SetBytes(sig)
	if s.Cmp(n) >= 0 {
		return nil
	}
	m := new(big.Int).Exp(s, big.NewInt(int64(e)), n)
	return leftPad(m.Bytes(), k)
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
