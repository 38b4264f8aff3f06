package rsakey

import (
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/errs"
)

// Marshal encodes k using a boss array `[kind, e, N]` for a public-only
// key, or `[kind, e, p, q]` for a private key (the CRT parameters dP, dQ,
// qP and d itself are reconstructible from p, q, e and are not carried on
// the wire).
func Marshal(k *Key) ([]byte, error) {
	var arr boss.Array
	if k.priv == nil {
		arr = boss.Array{
			boss.Int(KindPublic),
			boss.Int(int64(k.pub.E)),
			boss.Bytes(k.pub.N.Bytes()),
		}
	} else {
		if len(k.priv.Primes) != 2 {
			return nil, fmt.Errorf("%w: only two-prime RSA keys can be marshaled", errs.ErrInvalidArgument)
		}
		arr = boss.Array{
			boss.Int(KindPrivate),
			boss.Int(int64(k.pub.E)),
			boss.Bytes(k.priv.Primes[0].Bytes()),
			boss.Bytes(k.priv.Primes[1].Bytes()),
		}
	}
	return boss.Encode(arr)
}

// Parse decodes the wire form produced by Marshal.
func Parse(data []byte) (*Key, error) {
	v, err := boss.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse RSA key: %w", err)
	}
	arr, ok := v.(boss.Array)
	if !ok || len(arr) < 3 {
		return nil, fmt.Errorf("%w: RSA key wire form must be an array of at least 3 elements", errs.ErrDecoding)
	}
	kindVal, ok := arr[0].(boss.Int)
	if !ok {
		return nil, fmt.Errorf("%w: RSA key kind must be an integer", errs.ErrDecoding)
	}
	eVal, ok := arr[1].(boss.Int)
	if !ok {
		return nil, fmt.Errorf("%w: RSA key exponent must be an integer", errs.ErrDecoding)
	}

	switch Kind(kindVal) {
	case KindPublic:
		nBytes, ok := arr[2].(boss.Bytes)
		if !ok {
			return nil, fmt.Errorf("%w: RSA public key modulus must be bytes", errs.ErrDecoding)
		}
		pub := &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(eVal)}
		return FromPublic(pub), nil
	case KindPrivate:
		if len(arr) < 4 {
			return nil, fmt.Errorf("%w: RSA private key wire form requires p and q", errs.ErrDecoding)
		}
		pBytes, ok1 := arr[2].(boss.Bytes)
		qBytes, ok2 := arr[3].(boss.Bytes)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w: RSA private key p/q must be bytes", errs.ErrDecoding)
		}
		p := new(big.Int).SetBytes(pBytes)
		q := new(big.Int).SetBytes(qBytes)
		n := new(big.Int).Mul(p, q)

		// d = e^-1 mod lcm(p-1, q-1), the same private-exponent derivation
		// crypto/rsa.GenerateKey performs internally; only p, q, e travel on
		// the wire, so d and the CRT parameters are rebuilt here.
		one := big.NewInt(1)
		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)
		gcd := new(big.Int).GCD(nil, nil, pMinus1, qMinus1)
		lcm := new(big.Int).Div(new(big.Int).Mul(pMinus1, qMinus1), gcd)
		e := big.NewInt(int64(eVal))
		d := new(big.Int).ModInverse(e, lcm)
		if d == nil {
			return nil, fmt.Errorf("%w: RSA public exponent has no inverse for the given primes", errs.ErrDecoding)
		}

		priv := &rsa.PrivateKey{
			PublicKey: rsa.PublicKey{N: n, E: int(eVal)},
			D:         d,
			Primes:    []*big.Int{p, q},
		}
		if err := priv.Validate(); err != nil {
			return nil, fmt.Errorf("%w: reconstructed RSA private key failed validation: %v", errs.ErrDecoding, err)
		}
		priv.Precompute()
		return FromPrivate(priv), nil
	default:
		return nil, fmt.Errorf("%w: unsupported RSA key kind %d", errs.ErrDecoding, kindVal)
	}
}
