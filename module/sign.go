package module

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/rsakey"
)

// Sign takes an unsigned (or previously signed, trailer discarded) bundle
// zip and returns a new archive signed by signer: the same entries,
// rewritten with a fresh signature trailer as the zip comment. Used by
// cmd/u8node's signmodule subcommand.
func Sign(raw []byte, signer *rsakey.Key) ([]byte, error) {
	if !signer.IsPrivate() {
		return nil, fmt.Errorf("sign module: signing key must be a private key")
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("sign module: open bundle: %w", err)
	}

	body, err := rebuildBody(zr)
	if err != nil {
		return nil, err
	}

	// The signed body stops before the archive's 2-byte comment-length
	// field, the same bytes Open verifies.
	sig, err := signer.Sign(body[:len(body)-2], hashfamily.SHA3_512)
	if err != nil {
		return nil, fmt.Errorf("sign module: %w", err)
	}
	pubBytes, err := rsakey.Marshal(signer.Public())
	if err != nil {
		return nil, fmt.Errorf("sign module: marshal public key: %w", err)
	}
	trailer, err := encodeTrailer(Trailer{PubKey: pubBytes, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("sign module: encode trailer: %w", err)
	}

	return rebuildWithComment(zr, string(trailer))
}

// rebuildBody re-serializes zr's entries into a fresh, comment-less zip
// archive; everything before its trailing 2-byte comment-length field is
// what gets signed.
func rebuildBody(zr *zip.Reader) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := copyEntries(zw, zr); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("sign module: build archive body: %w", err)
	}
	return buf.Bytes(), nil
}

// rebuildWithComment re-serializes zr's entries again, this time setting
// comment as the archive's EOCD comment before closing.
func rebuildWithComment(zr *zip.Reader, comment string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := copyEntries(zw, zr); err != nil {
		return nil, err
	}
	if err := zw.SetComment(comment); err != nil {
		return nil, fmt.Errorf("sign module: set signature trailer: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("sign module: build signed archive: %w", err)
	}
	return buf.Bytes(), nil
}

func copyEntries(zw *zip.Writer, zr *zip.Reader) error {
	for _, f := range zr.File {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: f.Method})
		if err != nil {
			return fmt.Errorf("sign module: write entry %s: %w", f.Name, err)
		}
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("sign module: read entry %s: %w", f.Name, err)
		}
		_, copyErr := io.Copy(w, r)
		_ = r.Close()
		if copyErr != nil {
			return fmt.Errorf("sign module: copy entry %s: %w", f.Name, copyErr)
		}
	}
	return nil
}
