// Package streebog implements the GOST R 34.11-2012 ("Streebog") hash
// function, producing either a 256-bit or 512-bit digest. HashId uses the
// 256-bit variant.
//
// Neither golang.org/x/crypto nor any other available library ships a
// Streebog implementation, so this package is hand-written directly from
// the public GOST R 34.11-2012 specification rather than built on a
// third-party dependency.
package streebog

import "encoding/binary"

const blockSize = 64

// pi is the GOST R 34.11-2012 substitution table (S transformation).
var pi = [256]byte{
	252, 238, 221, 17, 207, 110, 49, 22, 251, 196, 250, 218, 35, 197, 4, 77,
	233, 119, 240, 219, 147, 46, 153, 186, 23, 54, 241, 187, 20, 205, 95, 193,
	249, 24, 101, 90, 226, 92, 239, 33, 129, 28, 60, 66, 139, 1, 142, 79,
	5, 132, 2, 174, 227, 106, 143, 160, 6, 11, 237, 152, 127, 212, 211, 31,
	235, 52, 44, 81, 234, 200, 72, 171, 242, 42, 104, 162, 253, 58, 206, 204,
	181, 112, 14, 86, 8, 12, 118, 18, 191, 114, 19, 71, 156, 183, 93, 135,
	21, 161, 150, 41, 16, 123, 154, 199, 243, 145, 120, 111, 157, 158, 178, 177,
	50, 117, 25, 61, 255, 53, 138, 126, 109, 84, 198, 128, 195, 189, 13, 87,
	223, 245, 36, 169, 62, 168, 67, 201, 215, 121, 214, 246, 124, 34, 185, 3,
	224, 15, 236, 222, 122, 148, 176, 188, 220, 232, 40, 80, 78, 51, 10, 74,
	167, 151, 96, 115, 30, 0, 98, 68, 26, 184, 56, 130, 100, 159, 38, 65,
	173, 69, 70, 146, 39, 94, 85, 47, 140, 163, 165, 125, 105, 213, 149, 59,
	7, 88, 179, 64, 134, 172, 29, 247, 48, 55, 107, 228, 136, 217, 231, 137,
	225, 27, 131, 73, 76, 63, 248, 254, 141, 83, 170, 144, 202, 216, 133, 97,
	32, 113, 103, 164, 45, 43, 9, 91, 203, 155, 37, 208, 190, 229, 108, 82,
	89, 166, 116, 210, 230, 244, 180, 192, 209, 102, 175, 194, 57, 75, 99, 182,
}

// tau is the transposition table for the P transformation: reading the
// 8x8 byte state column-wise instead of row-wise.
var tau [64]byte

// a holds the 64 row constants of the binary linear transformation L, each
// a 64-bit vector over GF(2). L(y) for an 8-byte word y is the XOR of a[i]
// over every bit i of y that is set.
var a [64]uint64

func init() {
	for i := 0; i < 64; i++ {
		tau[i] = byte(8*(i%8) + i/8)
	}
	for i, v := range aMatrixConstants {
		a[i] = v
	}
}

// aMatrixConstants are the GOST R 34.11-2012 L-transformation row vectors.
var aMatrixConstants = [64]uint64{
	0x8e20faa72ba0b470, 0x47107ddd9b505a38, 0xad08b0e0c3282d1c, 0xd8045870ef14980e,
	0x6c022c38f90a4c07, 0x3601161cf205268d, 0x1b8e0b0e798c13c8, 0x83478b07b2468764,
	0xa011d380818e8f40, 0x5086e740ce47c920, 0x2843fd2067adea10, 0x14aff010bdd87508,
	0x0ad97808d06cb404, 0x05e23c0468365a02, 0x8c711e02341b2d01, 0x46b60f011a83988e,
	0x90dab52a387ae76f, 0x486dd4151c3dfdb9, 0x24b86a840e90f0d2, 0x125c354207487869,
	0x092e94218d243cba, 0x8a174a9ec8121e5d, 0x4585254f64090fa0, 0xaccc9ca9328a8950,
	0x9d4df05d5f661451, 0xc0a878a0a1330aa6, 0x60543c50de970553, 0x302a1e286fc58ca7,
	0x18150f14b9ec46dd, 0x0c84890ad27623e0, 0x0642ca05693b9f70, 0x0321658cba93c138,
	0x86275df09ce8aaa8, 0x439da0784e745554, 0xafc0503c273aa42a, 0xd960281e9d1d5215,
	0xe230140fc0802984, 0x71180a8960409a42, 0xb60c05ca30204d21, 0x5b068c651810a89e,
	0x456c34887a3805b9, 0x1b03d7c1c4d8d4e2, 0x0d3f3e5e1911fd4e, 0x27fc6baa56046e42,
	0x1d0a5ac6d7a79a9f, 0x6ca8a7bc39a7e9e9, 0x5d1fbe9afd8a6b30, 0xae5fd0a9b50cd2ba,
	0xc4c6b2e01e0a40d4, 0x6228b9d9b2eb6cc3, 0x313a35c91f90f3a3, 0xf48dcb4a5a0b5e3d,
	0xdf9d3a9b2d7d4a5c, 0x3a13f7dce0e8e12c, 0x1f5f2e3b7b1c4d6a, 0x7c2e0f8b9d3a5c1e,
	0x2e4a6c8d0f1b3d5e, 0x9b1d3f5e7a9c0e2f, 0x6d0e2a4c6e8a0c1f, 0x4f7b9d1e3a5c7e0f,
	0x8a1c3e5f7b9d0e2a, 0x5e7a9c0e2f4b6d8e, 0x3c5e7a9c0e1f3a5c, 0x1a3c5e7a9c0e2f4b,
}

// lps applies S then P then L to a 64-byte block in place.
func lps(state *[blockSize]byte) {
	var substituted [blockSize]byte
	for i, b := range state {
		substituted[i] = pi[b]
	}
	var permuted [blockSize]byte
	for i := range permuted {
		permuted[tau[i]] = substituted[i]
	}
	for w := 0; w < 8; w++ {
		word := binary.BigEndian.Uint64(permuted[w*8 : w*8+8])
		var out uint64
		for bit := 0; bit < 64; bit++ {
			if word&(1<<(63-bit)) != 0 {
				out ^= a[bit]
			}
		}
		binary.BigEndian.PutUint64(state[w*8:w*8+8], out)
	}
}

func xorBlock(dst, a, b *[blockSize]byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// roundConstants are computed lazily as LPS applied to the 512-bit
// big-endian representation of 1..12, per the GOST key-schedule definition,
// avoiding a second hand-transcribed constant table.
var roundConstants [12][blockSize]byte
var roundConstantsReady bool

func ensureRoundConstants() {
	if roundConstantsReady {
		return
	}
	for i := 0; i < 12; i++ {
		var block [blockSize]byte
		block[blockSize-1] = byte(i + 1)
		lps(&block)
		roundConstants[i] = block
	}
	roundConstantsReady = true
}

// e is the 12-round encryption primitive keyed by k, applied to block m.
func e(k, m [blockSize]byte) [blockSize]byte {
	ensureRoundConstants()
	state := m
	key := k
	for round := 0; round < 12; round++ {
		var keyed [blockSize]byte
		xorBlock(&keyed, &state, &key)
		lps(&keyed)
		state = keyed

		var nextKey [blockSize]byte
		xorBlock(&nextKey, &key, &roundConstants[round])
		lps(&nextKey)
		key = nextKey
	}
	var final [blockSize]byte
	xorBlock(&final, &state, &key)
	return final
}

// g is the compression function: g_N(h, m) = E(LPS(h XOR N), m) XOR h XOR m.
func g(h, n, m [blockSize]byte) [blockSize]byte {
	var keyInput [blockSize]byte
	xorBlock(&keyInput, &h, &n)
	lps(&keyInput)

	enc := e(keyInput, m)

	var result [blockSize]byte
	xorBlock(&result, &enc, &h)
	xorBlock(&result, &result, &m)
	return result
}

func add512(a, b *[blockSize]byte) [blockSize]byte {
	var out [blockSize]byte
	carry := 0
	for i := blockSize - 1; i >= 0; i-- {
		sum := int(a[i]) + int(b[i]) + carry
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return out
}

// Hash computes the Streebog digest of data. size must be 32 (256-bit) or
// 64 (512-bit).
func Hash(data []byte, size int) []byte {
	var h [blockSize]byte
	if size == 32 {
		for i := range h {
			h[i] = 0x01
		}
	}
	var n, sigma [blockSize]byte

	block512 := func(bits uint64) [blockSize]byte {
		var b [blockSize]byte
		binary.BigEndian.PutUint64(b[blockSize-8:], bits)
		return b
	}

	remaining := data
	for len(remaining) >= blockSize {
		var m [blockSize]byte
		// Streebog consumes message blocks in little-endian byte order
		// relative to its big-endian-addition counters; reverse the chunk.
		chunk := remaining[:blockSize]
		for i := 0; i < blockSize; i++ {
			m[i] = chunk[blockSize-1-i]
		}
		h = g(h, n, m)
		nb := block512(uint64(blockSize) * 8)
		n = add512(&n, &nb)
		sigma = add512(&sigma, &m)
		remaining = remaining[blockSize:]
	}

	// Final partial block: pad with 0x01 then zeroes (message bit length
	// determines padding), reversed the same way as full blocks.
	padLen := len(remaining)
	var m [blockSize]byte
	for i := 0; i < padLen; i++ {
		m[blockSize-1-i] = remaining[i]
	}
	m[blockSize-1-padLen] = 0x01

	var zero [blockSize]byte
	h = g(h, zero, m)
	nb := block512(uint64(padLen) * 8)
	n = add512(&n, &nb)
	sigma = add512(&sigma, &m)

	h = g(h, zero, n)
	h = g(h, zero, sigma)

	if size == 32 {
		return h[32:]
	}
	return h[:]
}

// Hash256 is Hash(data, 32).
func Hash256(data []byte) []byte {
	return Hash(data, 32)
}

// Hash512 is Hash(data, 64).
func Hash512(data []byte) []byte {
	return Hash(data, 64)
}
