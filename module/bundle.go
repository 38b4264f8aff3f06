package module

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/errs"
)

// Trailer is the signature trailer appended after a bundle zip's own
// end-of-central-directory record. Go's archive/zip already parses the
// EOCD's comment-length-prefixed comment field into Reader.Comment, which
// is repurposed here as the trailer's carrier — no custom trailer parsing
// is needed beyond decoding that comment as boss.
type Trailer struct {
	PubKey    []byte
	Signature []byte // RSA-PSS/SHA3-512 signature over the archive body
}

func decodeTrailer(comment string) (Trailer, error) {
	v, err := boss.DecodeBytes([]byte(comment))
	if err != nil {
		return Trailer{}, fmt.Errorf("%w: decode signature trailer: %v", errs.ErrModuleBadSignature, err)
	}
	m, ok := v.(*boss.Map)
	if !ok {
		return Trailer{}, fmt.Errorf("%w: signature trailer is not a mapping", errs.ErrModuleBadSignature)
	}
	pubVal, _ := m.Get("pub_key")
	sigVal, _ := m.Get("sha3_512")
	pubBytes, ok1 := pubVal.(boss.Bytes)
	sigBytes, ok2 := sigVal.(boss.Bytes)
	if !ok1 || !ok2 {
		return Trailer{}, fmt.Errorf("%w: signature trailer missing pub_key/sha3_512", errs.ErrModuleBadSignature)
	}
	return Trailer{PubKey: pubBytes, Signature: sigBytes}, nil
}

// encodeTrailer is the inverse of decodeTrailer, used by signing tools
// (cmd/u8node signmodule) to append a fresh trailer to an unsigned bundle.
func encodeTrailer(t Trailer) ([]byte, error) {
	m := boss.NewMap()
	m.Set("pub_key", boss.Bytes(t.PubKey))
	m.Set("sha3_512", boss.Bytes(t.Signature))
	return boss.Encode(m)
}

// Bundle is an opened, signature-verified module archive.
type Bundle struct {
	zr       *zip.Reader
	Manifest Manifest
	SignedBy *rsakey.Key // the public key whose signature the bundle carried
}

// bodyBytes returns the portion of raw preceding the end-of-central-
// directory record's 2-byte comment-length field: the signed "archive body".
func bodyBytes(raw []byte, commentLen int) ([]byte, error) {
	cut := len(raw) - 2 - commentLen
	if cut < 0 {
		return nil, fmt.Errorf("%w: truncated signature trailer", errs.ErrModuleBadSignature)
	}
	return raw[:cut], nil
}

// Open parses raw as a zip bundle, verifies its signature trailer against
// the embedded public key, and extracts manifest.yaml. It does NOT consult
// the trust resolver — callers use Loader.Load for the full, trust-checked
// sequence.
func Open(raw []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open module bundle: %w", err)
	}

	trailer, err := decodeTrailer(zr.Comment)
	if err != nil {
		return nil, err
	}
	body, err := bodyBytes(raw, len(zr.Comment))
	if err != nil {
		return nil, err
	}

	signer, err := rsakey.Parse(trailer.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: parse signer public key: %v", errs.ErrModuleBadSignature, err)
	}
	if !signer.Verify(body, trailer.Signature, hashfamily.SHA3_512) {
		return nil, fmt.Errorf("%w: archive body signature invalid", errs.ErrModuleBadSignature)
	}

	manifestData, err := readZipFile(zr, "manifest.yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrModuleManifestMissing, err)
	}
	manifest, err := ParseManifest(manifestData)
	if err != nil {
		return nil, err
	}

	return &Bundle{zr: zr, Manifest: manifest, SignedBy: signer}, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// ReadFile reads one file from the bundle's zip tree.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	return readZipFile(b.zr, name)
}

// HasDir reports whether the bundle contains a directory entry (or any
// file under it), used to detect u8core's mandatory jslib subdirectory.
func (b *Bundle) HasDir(prefix string) bool {
	for _, f := range b.zr.File {
		if len(f.Name) >= len(prefix) && f.Name[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
