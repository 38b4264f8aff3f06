package session

import "testing"

func TestStoreGetOrCreateIsIdempotentPerFingerprint(t *testing.T) {
	s := NewStore()
	a := s.GetOrCreate("fp-1", nil)
	b := s.GetOrCreate("fp-1", nil)
	if a != b {
		t.Fatal("GetOrCreate returned distinct sessions for the same fingerprint")
	}

	c := s.GetOrCreate("fp-2", nil)
	if c.ID == a.ID {
		t.Fatal("distinct fingerprints were assigned the same session id")
	}

	found, ok := s.ByID(a.ID)
	if !ok || found != a {
		t.Fatal("ByID did not return the session created by GetOrCreate")
	}
}

func TestStoreByIDMissing(t *testing.T) {
	s := NewStore()
	if _, ok := s.ByID(999); ok {
		t.Fatal("expected ByID to report missing for an unknown session id")
	}
}

func TestStoreEvictsOldestFingerprintWhenBoundExceeded(t *testing.T) {
	s, err := NewStoreSized(2)
	if err != nil {
		t.Fatalf("NewStoreSized: %v", err)
	}
	a := s.GetOrCreate("fp-1", nil)
	_ = s.GetOrCreate("fp-2", nil)
	_ = s.GetOrCreate("fp-3", nil) // evicts fp-1, the least recently used

	if _, ok := s.ByID(a.ID); ok {
		t.Fatal("expected ByID to report the evicted session's id as missing")
	}
}
