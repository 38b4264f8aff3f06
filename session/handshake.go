package session

import (
	"crypto/rand"
	"fmt"

	"github.com/cvsouth/u8node/boss"
)

// EncodeNoncePair serializes {client_nonce, server_nonce} exactly as the
// get-token leg signs and the verify leg re-checks it: signatures are over
// the serialized nonce pair, never over raw nonce concatenations.
func EncodeNoncePair(clientNonce, serverNonce []byte) ([]byte, error) {
	m := boss.NewMap()
	m.Set("client_nonce", boss.Bytes(clientNonce))
	m.Set("server_nonce", boss.Bytes(serverNonce))
	encoded, err := boss.Encode(m)
	if err != nil {
		return nil, fmt.Errorf("encode nonce pair: %w", err)
	}
	return encoded, nil
}

// RandomServerNonce returns a fresh 48-byte server nonce.
func RandomServerNonce() ([]byte, error) {
	return randomBytes(ServerNonceSize)
}

// RandomClientNonce returns a fresh 47-byte client nonce.
func RandomClientNonce() ([]byte, error) {
	return randomBytes(ClientNonceSize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}
