package boss

import (
	"testing"
	"time"
)

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	b, err := Encode(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeBytes(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestScalarRoundTrip(t *testing.T) {
	cases := []Value{
		Int(0), Int(1), Int(-1), Int(42), Int(-42), Int(1 << 40),
		String(""), String("hello"),
		Bytes(nil), Bytes([]byte{1, 2, 3}),
		true, false,
		3.14159,
		Time(time.Unix(1700000000, 0).UTC()),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		if !Equal(c, got) {
			t.Fatalf("round-trip mismatch: want %#v, got %#v", c, got)
		}
	}
}

func TestArrayAndMapRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("a", String("x"))
	m.Set("b", String("x"))
	m.Set("c", Array{String("x"), String("x")})

	got := roundTrip(t, Value(m))
	gotMap, ok := got.(*Map)
	if !ok {
		t.Fatalf("expected *Map, got %T", got)
	}
	if !m.Equal(gotMap) {
		t.Fatalf("mapping round-trip mismatch")
	}
}

func TestCachingShrinksRepeatedStrings(t *testing.T) {
	m := NewMap()
	m.Set("a", String("x"))
	m.Set("b", String("x"))
	m.Set("c", Array{String("x"), String("x")})

	cached, err := Encode(m)
	if err != nil {
		t.Fatal(err)
	}

	// Naive: same structure but every "x" is a fresh, never-reused literal.
	naive := NewMap()
	naive.Set("a", String("x1"))
	naive.Set("b", String("x2"))
	naive.Set("c", Array{String("x3"), String("x4")})
	uncached, err := Encode(naive)
	if err != nil {
		t.Fatal(err)
	}

	if len(cached) >= len(uncached) {
		t.Fatalf("expected caching to shrink output: cached=%d uncached=%d", len(cached), len(uncached))
	}
}

func TestEmptyStringsAndBytesAreNeverCached(t *testing.T) {
	arr := Array{String(""), String(""), Bytes(nil), Bytes(nil)}
	got := roundTrip(t, arr)
	gotArr, ok := got.(Array)
	if !ok || len(gotArr) != 4 {
		t.Fatalf("unexpected decode result: %#v", got)
	}
}

func TestStreamModeEmitsMarkerOnce(t *testing.T) {
	w := new(countingWriter)
	e := NewEncoder(w)
	if err := e.SetStreamMode(); err != nil {
		t.Fatal(err)
	}
	if err := e.SetStreamMode(); err != nil { // idempotent
		t.Fatal(err)
	}
	if w.n != 1 { // the marker is a single header byte
		t.Fatalf("stream-mode marker wrote %d bytes, want 1", w.n)
	}
}

type countingWriter struct{ n int }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

func TestDecodeErrorsOnTruncatedInput(t *testing.T) {
	_, err := DecodeBytes([]byte{typeString<<0 | (5 << 3)}) // claims 5-byte string, none follow
	if err == nil {
		t.Fatal("expected error on truncated input")
	}
}

func TestDecodeErrorsOnOutOfRangeReference(t *testing.T) {
	// type code 5 (cache ref), value 3, with an empty cache.
	b := []byte{typeCacheRef | (3 << 3)}
	_, err := DecodeBytes(b)
	if err == nil {
		t.Fatal("expected error on out-of-range cache reference")
	}
}

func TestDecodeErrorsOnUnknownExtraSubcode(t *testing.T) {
	b := []byte{typeExtra | (20 << 3)} // subcode 20 is not assigned
	_, err := DecodeBytes(b)
	if err == nil {
		t.Fatal("expected error")
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte{0})
	f.Add([]byte{typeString | (0 << 3)})
	f.Fuzz(func(t *testing.T, data []byte) {
		// Decoding arbitrary bytes must never panic, only error.
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic on input %x: %v", data, r)
			}
		}()
		_, _ = DecodeBytes(data)
	})
}
