package rsakey

import (
	"testing"

	"github.com/cvsouth/u8node/crypto/hashfamily"
)

// generateTestKey produces a key at the minimum mandated strength, the only
// modulus size these tests exercise.
func generateTestKey(t *testing.T) *Key {
	t.Helper()
	k, err := Generate(MinBits)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return k
}

func TestGenerateRejectsWeakBits(t *testing.T) {
	if _, err := Generate(1024); err == nil {
		t.Fatal("expected error for sub-minimum bit strength")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	k := generateTestKey(t)
	msg := []byte("the quick brown fox jumps over the lazy dog")

	for _, alg := range []hashfamily.Algorithm{hashfamily.SHA1, hashfamily.SHA256, hashfamily.SHA512, hashfamily.SHA3_256, hashfamily.SHA3_384, hashfamily.SHA3_512} {
		sig, err := k.Sign(msg, alg)
		if err != nil {
			t.Fatalf("Sign(%s): %v", alg, err)
		}
		if !k.Public().Verify(msg, sig, alg) {
			t.Fatalf("Verify(%s) rejected a genuine signature", alg)
		}
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	k := generateTestKey(t)
	msg := []byte("original payload")
	sig, err := k.Sign(msg, hashfamily.SHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if k.Public().Verify([]byte("tampered payload"), sig, hashfamily.SHA256) {
		t.Fatal("Verify accepted a signature over a different message")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	k := generateTestKey(t)
	msg := []byte("original payload")
	sig, err := k.Sign(msg, hashfamily.SHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig[0] ^= 0xff
	if k.Public().Verify(msg, sig, hashfamily.SHA256) {
		t.Fatal("Verify accepted a corrupted signature")
	}
}

func TestVerifyRejectsMismatchedAlgorithm(t *testing.T) {
	k := generateTestKey(t)
	msg := []byte("original payload")
	sig, err := k.Sign(msg, hashfamily.SHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if k.Public().Verify(msg, sig, hashfamily.SHA512) {
		t.Fatal("Verify accepted a signature checked under the wrong hash algorithm")
	}
}

func TestSignRequiresPrivateKey(t *testing.T) {
	k := generateTestKey(t)
	pubOnly := k.Public()
	if _, err := pubOnly.Sign([]byte("x"), hashfamily.SHA256); err == nil {
		t.Fatal("expected error signing with a public-only key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	k := generateTestKey(t)
	plaintext := []byte("a short secret message")
	ct, err := k.Public().Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := k.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != string(plaintext) {
		t.Fatalf("Decrypt = %q, want %q", pt, plaintext)
	}
}

func TestDecryptRequiresPrivateKey(t *testing.T) {
	k := generateTestKey(t)
	pubOnly := k.Public()
	ct, err := pubOnly.Encrypt([]byte("x"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := pubOnly.Decrypt(ct); err == nil {
		t.Fatal("expected error decrypting with a public-only key")
	}
}

func TestSignaturesAreNotDeterministic(t *testing.T) {
	k := generateTestKey(t)
	msg := []byte("same message")
	sig1, err := k.Sign(msg, hashfamily.SHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig2, err := k.Sign(msg, hashfamily.SHA256)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if string(sig1) == string(sig2) {
		t.Fatal("two PSS signatures over the same message were identical; salt is not random")
	}
}
