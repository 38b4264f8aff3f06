package session

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/crypto/symmetric"
)

// DefaultMaxSessions bounds the server-side session table so a flood of
// distinct client keys cannot grow it without limit.
const DefaultMaxSessions = 8192

// ServerNonceSize and ClientNonceSize are the fixed nonce lengths for a
// per-peer session record.
const (
	ServerNonceSize = 48
	ClientNonceSize = 47
)

// State is a per-peer session record, held server-side and keyed by the
// client key's fingerprint. It is lazily populated leg by leg as the
// handshake progresses.
type State struct {
	mu sync.Mutex

	ID          uint64
	PeerKey     *rsakey.Key // client's public key
	ServerNonce []byte      // 48 random bytes, generated on Connect
	ClientNonce []byte      // 47 bytes, set on GetToken
	SymKey      *symmetric.Key

	// EncryptedToken caches the session-key blob returned to GetToken so a
	// retried request is idempotent — it gets the same answer instead of
	// re-deriving a fresh key underneath an in-flight handshake.
	EncryptedToken []byte
}

// Lock and Unlock guard the mutable fields above (ServerNonce, ClientNonce,
// SymKey, EncryptedToken) against concurrent handshake/command requests for
// the same session.
func (st *State) Lock()   { st.mu.Lock() }
func (st *State) Unlock() { st.mu.Unlock() }

// Store is the server-side session table: fingerprint→session for handshake
// lookup and id→session for command dispatch. A mutex protects each map,
// guarding the concern it covers rather than the struct as a whole, the
// same split-by-concern discipline used elsewhere for shared state guarded
// by plain sync.Mutex fields. The fingerprint side is bounded by an LRU
// (rather than an unbounded map) so a flood of distinct client keys evicts
// the oldest idle sessions instead of growing without limit; eviction
// removes the matching id-side entry too, so a dropped session's numeric id
// reads back as unknown on both paths. createMu serializes get-or-create so
// two concurrent handshakes for the same never-seen fingerprint cannot each
// install a different State; idMu guards byID separately, since the LRU's
// eviction callback must be able to update byID without re-entering createMu.
type Store struct {
	createMu      sync.Mutex
	byFingerprint *lru.Cache[string, *State]

	idMu   sync.Mutex
	byID   map[uint64]*State
	nextID atomic.Uint64
}

// NewStore creates a session store bounded to DefaultMaxSessions entries.
func NewStore() *Store {
	s, err := NewStoreSized(DefaultMaxSessions)
	if err != nil {
		// DefaultMaxSessions is a positive compile-time constant; the only
		// failure mode of lru.New is a non-positive size.
		panic(err)
	}
	return s
}

// NewStoreSized creates a session store bounded to maxSessions entries.
func NewStoreSized(maxSessions int) (*Store, error) {
	s := &Store{byID: make(map[uint64]*State)}
	cache, err := lru.NewWithEvict[string, *State](maxSessions, func(_ string, st *State) {
		s.idMu.Lock()
		delete(s.byID, st.ID)
		s.idMu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	s.byFingerprint = cache
	return s, nil
}

// GetOrCreate returns the existing session for fingerprint, or creates one
// with a fresh monotonic id if absent.
func (s *Store) GetOrCreate(fingerprint string, peerKey *rsakey.Key) *State {
	s.createMu.Lock()
	defer s.createMu.Unlock()

	if st, ok := s.byFingerprint.Get(fingerprint); ok {
		return st
	}
	st := &State{ID: s.nextID.Add(1), PeerKey: peerKey}
	s.idMu.Lock()
	s.byID[st.ID] = st
	s.idMu.Unlock()
	s.byFingerprint.Add(fingerprint, st)
	return st
}

// ByID looks up a session by its id, as used for command dispatch.
func (s *Store) ByID(id uint64) (*State, bool) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	st, ok := s.byID[id]
	return st, ok
}
