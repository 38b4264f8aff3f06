// Package extsig implements the "extended signature" convenience wrapper
// around RSA-PSS: it signs a boss-serialized body of
// `{key, created_at, sha512, sha3_384, pub_key?}` with a mandatory SHA-512
// signature and optional SHA3-256/SHA3-384 variants over the same body.
//
// A naive reading would treat missing sign2/sign3 as automatic success,
// which lets a signer silently omit every optional signature. This
// implementation requires at least one of sign2/sign3 to be present, and
// every signature that is present — sign, sign2, and sign3 alike — must
// verify.
//
// Checks a bundle of independent signatures over one shared payload before
// trusting it, the same layered-verification shape used elsewhere for
// handshake certificates.
package extsig

import (
	"fmt"
	"time"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/errs"
)

// Body is the signed payload embedded in every ExtendedSignature.
type Body struct {
	Key       string
	CreatedAt time.Time
	Sha512    []byte
	Sha3_384  []byte
	PubKey    []byte // nil when no public key is embedded
}

// ExtendedSignature wraps Body with one mandatory and two optional RSA-PSS
// signatures over its boss-encoded form.
type ExtendedSignature struct {
	Body        Body
	EncodedBody []byte // the exact bytes every signature was computed over
	Sign        []byte // mandatory, SHA-512
	Sign2       []byte // optional, SHA3-256
	Sign3       []byte // optional, SHA3-384
}

func encodeBody(b Body) ([]byte, error) {
	m := boss.NewMap()
	m.Set("key", boss.String(b.Key))
	m.Set("created_at", boss.Time(b.CreatedAt))
	m.Set("sha512", boss.Bytes(b.Sha512))
	m.Set("sha3_384", boss.Bytes(b.Sha3_384))
	if b.PubKey != nil {
		m.Set("pub_key", boss.Bytes(b.PubKey))
	}
	return boss.Encode(m)
}

// Create signs data under signer, embedding keyID and, optionally, pubKey
// in the body. includeSign2/includeSign3 control which optional variant
// signatures are produced.
func Create(signer *rsakey.Key, keyID string, data, pubKey []byte, includeSign2, includeSign3 bool) (*ExtendedSignature, error) {
	if !includeSign2 && !includeSign3 {
		return nil, fmt.Errorf("%w: extended signature requires at least one of sign2/sign3", errs.ErrInvalidArgument)
	}

	sha512, err := hashfamily.Digest(hashfamily.SHA512, data)
	if err != nil {
		return nil, err
	}
	sha3384, err := hashfamily.Digest(hashfamily.SHA3_384, data)
	if err != nil {
		return nil, err
	}

	body := Body{Key: keyID, CreatedAt: time.Now().UTC(), Sha512: sha512, Sha3_384: sha3384, PubKey: pubKey}
	encoded, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode extended signature body: %w", err)
	}

	sig1, err := signer.Sign(encoded, hashfamily.SHA512)
	if err != nil {
		return nil, fmt.Errorf("extended signature primary sign: %w", err)
	}

	es := &ExtendedSignature{Body: body, EncodedBody: encoded, Sign: sig1}

	if includeSign2 {
		sig2, err := signer.Sign(encoded, hashfamily.SHA3_256)
		if err != nil {
			return nil, fmt.Errorf("extended signature sign2: %w", err)
		}
		es.Sign2 = sig2
	}
	if includeSign3 {
		sig3, err := signer.Sign(encoded, hashfamily.SHA3_384)
		if err != nil {
			return nil, fmt.Errorf("extended signature sign3: %w", err)
		}
		es.Sign3 = sig3
	}

	return es, nil
}

// Verify checks es against the given public key and the original data,
// returning the embedded Body iff every present signature validates, at
// least one of Sign2/Sign3 is present, and the body's embedded digests
// match a freshly computed digest of data.
func Verify(pub *rsakey.Key, es *ExtendedSignature, data []byte) (*Body, error) {
	if len(es.Sign2) == 0 && len(es.Sign3) == 0 {
		return nil, fmt.Errorf("%w: extended signature carries neither sign2 nor sign3", errs.ErrModuleBadSignature)
	}

	encoded, err := encodeBody(es.Body)
	if err != nil {
		return nil, fmt.Errorf("re-encode extended signature body: %w", err)
	}
	if string(encoded) != string(es.EncodedBody) {
		return nil, fmt.Errorf("%w: extended signature body re-encoding mismatch", errs.ErrModuleBadSignature)
	}

	if !pub.Verify(encoded, es.Sign, hashfamily.SHA512) {
		return nil, fmt.Errorf("%w: extended signature primary (SHA-512) signature invalid", errs.ErrModuleBadSignature)
	}
	if len(es.Sign2) > 0 && !pub.Verify(encoded, es.Sign2, hashfamily.SHA3_256) {
		return nil, fmt.Errorf("%w: extended signature sign2 (SHA3-256) signature invalid", errs.ErrModuleBadSignature)
	}
	if len(es.Sign3) > 0 && !pub.Verify(encoded, es.Sign3, hashfamily.SHA3_384) {
		return nil, fmt.Errorf("%w: extended signature sign3 (SHA3-384) signature invalid", errs.ErrModuleBadSignature)
	}

	sha512, err := hashfamily.Digest(hashfamily.SHA512, data)
	if err != nil {
		return nil, err
	}
	sha3384, err := hashfamily.Digest(hashfamily.SHA3_384, data)
	if err != nil {
		return nil, err
	}
	if string(sha512) != string(es.Body.Sha512) || string(sha3384) != string(es.Body.Sha3_384) {
		return nil, fmt.Errorf("%w: extended signature body digest does not match data", errs.ErrModuleBadSignature)
	}

	body := es.Body
	return &body, nil
}
