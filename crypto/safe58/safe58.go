// Package safe58 implements the runtime's Base58-like textual codec: a
// 58-character alphabet chosen to avoid visually ambiguous glyphs, plus a
// non-strict decode mode that transparently remaps ambiguous input
// characters before decoding.
//
// The alphabet differs from standard Base58, so it can't reuse an existing
// Base58 library directly, but the leading-zero-byte handling and the
// big.Int-based division loop below follow the same structure a standard
// Base58 codec uses.
package safe58

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cvsouth/u8node/errs"
)

// Alphabet is the runtime's Safe58 character set.
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	alphabetBytes = []byte(Alphabet)
	base          = big.NewInt(int64(len(Alphabet)))
	decodeMap     [256]int8
)

func init() {
	for i := range decodeMap {
		decodeMap[i] = -1
	}
	for i, c := range alphabetBytes {
		decodeMap[c] = int8(i)
	}
}

// Encode converts data to its Safe58 textual form. Each leading zero byte
// becomes a leading '1' (the alphabet's zero-value character), matching
// Base58's convention for preserving byte-length information.
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	leadingZeros := 0
	for leadingZeros < len(data) && data[leadingZeros] == 0 {
		leadingZeros++
	}

	n := new(big.Int).SetBytes(data)
	var out []byte
	zero := big.NewInt(0)
	mod := new(big.Int)
	for n.Cmp(zero) > 0 {
		n.DivMod(n, base, mod)
		out = append(out, alphabetBytes[mod.Int64()])
	}
	for i := 0; i < leadingZeros; i++ {
		out = append(out, alphabetBytes[0])
	}
	reverse(out)
	return string(out)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// nonStrictRemap transparently maps the visually ambiguous characters
// `I|!l` to '1' and `O0` to 'o' before decoding.
func nonStrictRemap(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'I', '|', '!', 'l':
			sb.WriteRune('1')
		case 'O', '0':
			sb.WriteRune('o')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Decode parses a Safe58 string in strict mode: any character outside the
// alphabet, including the visually ambiguous ones, is rejected.
func Decode(s string) ([]byte, error) {
	return decode(s)
}

// DecodeNonStrict parses a Safe58 string after first remapping the visually
// ambiguous characters `I|!l` → '1' and `O0` → 'o'.
func DecodeNonStrict(s string) ([]byte, error) {
	return decode(nonStrictRemap(s))
}

func decode(s string) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}

	leadingOnes := 0
	for leadingOnes < len(s) && s[leadingOnes] == alphabetBytes[0] {
		leadingOnes++
	}

	n := new(big.Int)
	for i := 0; i < len(s); i++ {
		digit := decodeMap[s[i]]
		if digit < 0 {
			return nil, fmt.Errorf("%w: invalid Safe58 character %q at offset %d", errs.ErrInvalidArgument, s[i], i)
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(digit)))
	}

	decoded := n.Bytes()
	out := make([]byte, leadingOnes+len(decoded))
	copy(out[leadingOnes:], decoded)
	return out, nil
}
