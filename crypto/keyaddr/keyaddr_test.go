package keyaddr

import (
	"testing"

	"github.com/cvsouth/u8node/crypto/rsakey"
)

func testKey(t *testing.T) *rsakey.Key {
	t.Helper()
	k, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("rsakey.Generate: %v", err)
	}
	return k
}

func TestFromMatchesSelf(t *testing.T) {
	k := testKey(t)
	for _, long := range []bool{false, true} {
		addr, err := From(k.Public(), long)
		if err != nil {
			t.Fatalf("From(long=%v): %v", long, err)
		}
		if !addr.Match(k.Public()) {
			t.Fatalf("Match(long=%v) rejected the key it was derived from", long)
		}
	}
}

func TestShortAndLongSizes(t *testing.T) {
	k := testKey(t)
	short, err := From(k.Public(), false)
	if err != nil {
		t.Fatalf("From(short): %v", err)
	}
	if len(short.Bytes()) != ShortSize {
		t.Fatalf("short KeyAddress length = %d, want %d", len(short.Bytes()), ShortSize)
	}
	if short.IsLong() {
		t.Fatal("short KeyAddress reports IsLong() = true")
	}

	long, err := From(k.Public(), true)
	if err != nil {
		t.Fatalf("From(long): %v", err)
	}
	if len(long.Bytes()) != LongSize {
		t.Fatalf("long KeyAddress length = %d, want %d", len(long.Bytes()), LongSize)
	}
	if !long.IsLong() {
		t.Fatal("long KeyAddress reports IsLong() = false")
	}
}

func TestSafe58RoundTrip(t *testing.T) {
	k := testKey(t)
	addr, err := From(k.Public(), false)
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	parsed, err := Parse(addr.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", addr.String(), err)
	}
	if string(parsed.Bytes()) != string(addr.Bytes()) {
		t.Fatal("Parse(String()) did not reproduce the original KeyAddress")
	}
}

func TestMatchRejectsDifferentKey(t *testing.T) {
	k1 := testKey(t)
	k2 := testKey(t)
	addr, err := From(k1.Public(), false)
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if addr.Match(k2.Public()) {
		t.Fatal("Match accepted an unrelated key")
	}
}

func TestParseRejectsTamperedChecksum(t *testing.T) {
	k := testKey(t)
	addr, err := From(k.Public(), false)
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	raw := addr.Bytes()
	raw[len(raw)-1] ^= 0xff
	tampered := KeyAddress{raw: raw}
	if _, err := Parse(tampered.String()); err == nil {
		t.Fatal("Parse accepted a KeyAddress with a tampered checksum")
	}
}

func TestParseRejectsWrongLength(t *testing.T) {
	if _, err := Parse("abc"); err == nil {
		t.Fatal("Parse accepted an undersized payload")
	}
}
