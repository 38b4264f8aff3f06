package keyinfo

import (
	"testing"

	"github.com/cvsouth/u8node/crypto/pbkdf2"
)

func TestRSAKeyInfoRejectsPRF(t *testing.T) {
	_, err := New(KeyInfo{Algorithm: RSAPrivate, PRF: pbkdf2.PRFHMACSHA256})
	if err == nil {
		t.Fatal("expected error: RSA KeyInfo must not carry a PRF")
	}
}

func TestAES256RequiresExactLength(t *testing.T) {
	if _, err := New(KeyInfo{Algorithm: AES256, KeyLength: 16}); err == nil {
		t.Fatal("expected error for AES256 KeyInfo with wrong KeyLength")
	}
	info, err := New(KeyInfo{Algorithm: AES256, KeyLength: 32})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if info.KeyLength != 32 {
		t.Fatalf("KeyLength = %d, want 32", info.KeyLength)
	}
}

func TestPRFKeyInfoEnforcesMinimums(t *testing.T) {
	_, err := New(KeyInfo{Algorithm: AES256, KeyLength: 32, PRF: pbkdf2.PRFHMACSHA256, Iterations: 10})
	if err == nil {
		t.Fatal("expected error for iteration count below minimum")
	}
}

func TestPRFKeyInfoDefaultsSalt(t *testing.T) {
	info, err := New(KeyInfo{Algorithm: AES256, KeyLength: 32, PRF: pbkdf2.PRFHMACSHA256, Iterations: pbkdf2.MinIterations})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(info.Salt) == 0 {
		t.Fatal("expected a default salt to be generated")
	}
}

func TestExplicitSaltIsPreserved(t *testing.T) {
	salt := []byte{1, 2, 3, 4}
	info, err := New(KeyInfo{Algorithm: AES256, KeyLength: 32, PRF: pbkdf2.PRFHMACSHA256, Iterations: pbkdf2.MinIterations, Salt: salt})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if string(info.Salt) != string(salt) {
		t.Fatal("explicit salt was overwritten")
	}
}
