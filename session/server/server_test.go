package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/session"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *rsakey.Key) {
	t.Helper()
	signer, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("generate server key: %v", err)
	}
	s := New(signer, 2, 8, nil, nil)
	s.Handle("hello", func(ctx context.Context, params *boss.Map) (*boss.Map, error) {
		return boss.NewMap(), nil
	})
	ts := httptest.NewServer(s.Mux())
	t.Cleanup(ts.Close)
	return s, ts, signer
}

func TestConnectIsIdempotentPerClientKey(t *testing.T) {
	_, ts, _ := newTestServer(t)
	clientKey, err := rsakey.Generate(rsakey.MinBits)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	pubBytes, err := rsakey.Marshal(clientKey.Public())
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}

	httpClient := ts.Client()
	req := boss.NewMap()
	req.Set("client_key", boss.Bytes(pubBytes))

	resp1, err := session.Post(context.Background(), httpClient, ts.URL+"/connect", req)
	if err != nil {
		t.Fatalf("first connect: %v", err)
	}
	resp2, err := session.Post(context.Background(), httpClient, ts.URL+"/connect", req)
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}

	nonce1, _ := resp1.Get("server_nonce")
	nonce2, _ := resp2.Get("server_nonce")
	id1, _ := resp1.Get("session_id")
	id2, _ := resp2.Get("session_id")
	if string(nonce1.(boss.Bytes)) != string(nonce2.(boss.Bytes)) {
		t.Fatal("repeated connect from the same client key issued a different server_nonce")
	}
	if id1.(boss.Int) != id2.(boss.Int) {
		t.Fatal("repeated connect from the same client key issued a different session_id")
	}
}

func TestGetTokenRejectsBadSignature(t *testing.T) {
	_, ts, _ := newTestServer(t)
	clientKey, _ := rsakey.Generate(rsakey.MinBits)
	otherKey, _ := rsakey.Generate(rsakey.MinBits)
	pubBytes, _ := rsakey.Marshal(clientKey.Public())

	httpClient := ts.Client()
	connectReq := boss.NewMap()
	connectReq.Set("client_key", boss.Bytes(pubBytes))
	connectResp, err := session.Post(context.Background(), httpClient, ts.URL+"/connect", connectReq)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	serverNonceVal, _ := connectResp.Get("server_nonce")
	idVal, _ := connectResp.Get("session_id")
	serverNonce := []byte(serverNonceVal.(boss.Bytes))
	sessionID := int64(idVal.(boss.Int))

	clientNonce, err := session.RandomClientNonce()
	if err != nil {
		t.Fatalf("RandomClientNonce: %v", err)
	}
	pairEncoded, err := session.EncodeNoncePair(clientNonce, serverNonce)
	if err != nil {
		t.Fatalf("EncodeNoncePair: %v", err)
	}
	// Sign with the WRONG key so the server's verification must fail.
	badSig, err := otherKey.Sign(pairEncoded, hashfamily.SHA512)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tokenReq := boss.NewMap()
	tokenReq.Set("data", boss.Bytes(pairEncoded))
	tokenReq.Set("signature", boss.Bytes(badSig))
	tokenReq.Set("session_id", boss.Int(sessionID))

	if _, err := session.Post(context.Background(), httpClient, ts.URL+"/get_token", tokenReq); err == nil {
		t.Fatal("expected get_token to reject a signature from an unrecognized key")
	}
}

func TestGetTokenRejectsUnknownSession(t *testing.T) {
	_, ts, _ := newTestServer(t)
	httpClient := ts.Client()

	tokenReq := boss.NewMap()
	tokenReq.Set("data", boss.Bytes([]byte("irrelevant")))
	tokenReq.Set("signature", boss.Bytes([]byte("irrelevant")))
	tokenReq.Set("session_id", boss.Int(999))

	if _, err := session.Post(context.Background(), httpClient, ts.URL+"/get_token", tokenReq); err == nil {
		t.Fatal("expected get_token to reject an unknown session id")
	}
}

func TestCommandRejectsMissingHandshake(t *testing.T) {
	_, ts, _ := newTestServer(t)
	httpClient := ts.Client()
	clientKey, _ := rsakey.Generate(rsakey.MinBits)
	pubBytes, _ := rsakey.Marshal(clientKey.Public())

	connectReq := boss.NewMap()
	connectReq.Set("client_key", boss.Bytes(pubBytes))
	connectResp, err := session.Post(context.Background(), httpClient, ts.URL+"/connect", connectReq)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	idVal, _ := connectResp.Get("session_id")

	cmdReq := boss.NewMap()
	cmdReq.Set("command", boss.String("hello"))
	cmdReq.Set("params", boss.Bytes([]byte("not encrypted")))
	cmdReq.Set("session_id", idVal)

	if _, err := session.Post(context.Background(), httpClient, ts.URL+"/command", cmdReq); err == nil {
		t.Fatal("expected command to fail before get_token establishes a symmetric key")
	}
}
