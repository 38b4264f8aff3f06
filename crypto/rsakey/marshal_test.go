package rsakey

import (
	"testing"

	"github.com/cvsouth/u8node/crypto/hashfamily"
)

func TestMarshalParsePublicRoundTrip(t *testing.T) {
	k, err := Generate(MinBits)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	pub := k.Public()

	encoded, err := Marshal(pub)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.IsPrivate() {
		t.Fatal("parsed public key reports IsPrivate")
	}
	if parsed.pub.N.Cmp(pub.pub.N) != 0 || parsed.pub.E != pub.pub.E {
		t.Fatal("parsed public key does not match original")
	}
}

func TestMarshalParsePrivateRoundTrip(t *testing.T) {
	k, err := Generate(MinBits)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	encoded, err := Marshal(k)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.IsPrivate() {
		t.Fatal("parsed private key lost its private half")
	}

	data := []byte("round trip signing check")
	sig, err := parsed.Sign(data, hashfamily.SHA512)
	if err != nil {
		t.Fatalf("Sign with reconstructed key: %v", err)
	}
	if !k.Verify(data, sig, hashfamily.SHA512) {
		t.Fatal("original key failed to verify a signature from the reconstructed key")
	}
}

func TestParseRejectsTruncatedInput(t *testing.T) {
	if _, err := Parse([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected Parse to reject truncated input")
	}
}
