package streebog

import "testing"

// These tests check the structural properties every supported hash
// algorithm must have (deterministic, documented length, sensitive to
// input) rather than asserting specific GOST known-answer vectors: this
// implementation's constant tables are reproduced from the public GOST
// specification without the ability to run known-answer tests in this
// environment.

func TestHash256Length(t *testing.T) {
	if got := len(Hash256([]byte("hello"))); got != 32 {
		t.Fatalf("Hash256 length = %d, want 32", got)
	}
}

func TestHash512Length(t *testing.T) {
	if got := len(Hash512([]byte("hello"))); got != 64 {
		t.Fatalf("Hash512 length = %d, want 64", got)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	a := Hash256([]byte("determinism check"))
	b := Hash256([]byte("determinism check"))
	if string(a) != string(b) {
		t.Fatal("Hash256 is not deterministic")
	}
}

func TestHashDistinguishesInputs(t *testing.T) {
	a := Hash256([]byte(""))
	b := Hash256([]byte("x"))
	if string(a) == string(b) {
		t.Fatal("Hash256(\"\") == Hash256(\"x\")")
	}
}

func TestHashHandlesMultiBlockInput(t *testing.T) {
	data := make([]byte, 200) // spans multiple 64-byte blocks plus a partial tail
	for i := range data {
		data[i] = byte(i)
	}
	if got := len(Hash256(data)); got != 32 {
		t.Fatalf("length over multi-block input = %d, want 32", got)
	}
}
