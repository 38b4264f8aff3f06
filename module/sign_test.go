package module

import (
	"testing"

	"github.com/cvsouth/u8node/crypto/rsakey"
)

func TestSignProducesABundleOpenAccepts(t *testing.T) {
	signer, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	unsigned := buildZip(t, "", map[string]string{
		"manifest.yaml": "name: widget\n",
		"jslib/init.js": "// init\n",
	})

	signed, err := Sign(unsigned, signer)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	bundle, err := Open(signed)
	if err != nil {
		t.Fatalf("Open(signed): %v", err)
	}
	if bundle.Manifest.Name != "widget" {
		t.Fatalf("Manifest.Name = %q, want widget", bundle.Manifest.Name)
	}
	if !keysEqual(bundle.SignedBy, signer) {
		t.Fatal("bundle.SignedBy does not match the signing key")
	}
}

func TestSignRejectsPublicOnlyKey(t *testing.T) {
	signer, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	unsigned := buildZip(t, "", map[string]string{"manifest.yaml": "name: widget\n"})

	if _, err := Sign(unsigned, signer.Public()); err == nil {
		t.Fatal("expected Sign to reject a public-only key")
	}
}

func TestSignOverwritesAnExistingTrailer(t *testing.T) {
	original, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("generate original signer: %v", err)
	}
	replacement, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("generate replacement signer: %v", err)
	}
	files := map[string]string{"manifest.yaml": "name: widget\n"}
	signedOnce := buildSignedBundle(t, original, files)

	resigned, err := Sign(signedOnce, replacement)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	bundle, err := Open(resigned)
	if err != nil {
		t.Fatalf("Open(resigned): %v", err)
	}
	if !keysEqual(bundle.SignedBy, replacement) {
		t.Fatal("expected the re-signed bundle to be signed by the replacement key")
	}
}
