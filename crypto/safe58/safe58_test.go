package safe58

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello world"),
		[]byte{0x00, 0x00, 0x01, 0x02, 0x03},
		[]byte{0xff, 0xff, 0xff},
		{},
	}
	for _, data := range cases {
		encoded := Encode(data)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if string(decoded) != string(data) {
			t.Fatalf("round trip of %v produced %v", data, decoded)
		}
	}
}

func TestEncodePreservesLeadingZeros(t *testing.T) {
	data := []byte{0x00, 0x00, 0x2a}
	encoded := Encode(data)
	if encoded[0] != '1' || encoded[1] != '1' {
		t.Fatalf("Encode did not preserve leading zero bytes: %q", encoded)
	}
}

func TestDecodeRejectsInvalidCharacter(t *testing.T) {
	if _, err := Decode("I"); err == nil {
		t.Fatal("strict Decode accepted the ambiguous character 'I'")
	}
	if _, err := Decode("0"); err == nil {
		t.Fatal("strict Decode accepted the ambiguous character '0'")
	}
}

func TestDecodeNonStrictRemapsAmbiguousCharacters(t *testing.T) {
	// "I|!l" all remap to '1', and "O0" both remap to 'o'.
	want, err := Decode("1oo1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := DecodeNonStrict("I0Ol")
	if err != nil {
		t.Fatalf("DecodeNonStrict: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("DecodeNonStrict(\"I0Ol\") = %v, want Decode(\"1oo1\") = %v", got, want)
	}
}

func TestDecodeNonStrictRemapsAllAmbiguousGlyphs(t *testing.T) {
	for _, s := range []string{"I", "|", "!", "l"} {
		if _, err := DecodeNonStrict(s); err != nil {
			t.Fatalf("DecodeNonStrict(%q) failed to remap: %v", s, err)
		}
	}
	for _, s := range []string{"O", "0"} {
		if _, err := DecodeNonStrict(s); err != nil {
			t.Fatalf("DecodeNonStrict(%q) failed to remap: %v", s, err)
		}
	}
}

func TestAlphabetLength(t *testing.T) {
	if len(Alphabet) != 58 {
		t.Fatalf("alphabet length = %d, want 58", len(Alphabet))
	}
}
