// Package client implements the client half of the secure session: the
// three-leg Connect/GetToken/Verify handshake against a pinned server
// public key, followed by symmetric-key-encrypted command RPC.
//
// Uses a plain *http.Client with an explicit timeout rather than a
// framework, and a dial-then-verify sequencing for the handshake's own
// wait-then-check structure.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/crypto/symmetric"
	"github.com/cvsouth/u8node/errs"
	"github.com/cvsouth/u8node/session"
)

// Client is one handshake-and-command session against a single server.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	identity    *rsakey.Key // client's own private key
	serverKey   *rsakey.Key // pinned server public key
	pool        *session.Pool

	sessionID uint64
	symKey    *symmetric.Key
}

// New creates a Client that will dial baseURL, authenticate as identity,
// and pin the server's public key to serverKey. poolSize/queueDepth bound
// the client's own command worker pool and its queue of pending request
// closures.
func New(baseURL string, identity, serverKey *rsakey.Key, poolSize, queueDepth int) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		identity:   identity,
		serverKey:  serverKey,
		pool:       session.NewPool(poolSize, queueDepth),
	}
}

// Handshake performs all three legs (Connect, GetToken, Verify) and adopts
// the resulting symmetric key.
func (c *Client) Handshake(ctx context.Context) error {
	serverNonce, err := c.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	clientNonce, err := session.RandomClientNonce()
	if err != nil {
		return err
	}

	symKey, err := c.getToken(ctx, clientNonce, serverNonce)
	if err != nil {
		return fmt.Errorf("get_token: %w", err)
	}
	c.symKey = symKey
	return nil
}

func (c *Client) connect(ctx context.Context) (serverNonce []byte, err error) {
	pubBytes, err := rsakey.Marshal(c.identity.Public())
	if err != nil {
		return nil, err
	}
	req := boss.NewMap()
	req.Set("client_key", boss.Bytes(pubBytes))

	resp, err := session.Post(ctx, c.httpClient, c.baseURL+"/connect", req)
	if err != nil {
		return nil, err
	}

	nonceVal, _ := resp.Get("server_nonce")
	idVal, _ := resp.Get("session_id")
	nonce, ok1 := nonceVal.(boss.Bytes)
	id, ok2 := idVal.(boss.Int)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: malformed connect response", errs.ErrDecoding)
	}
	c.sessionID = uint64(id)
	return nonce, nil
}

func (c *Client) getToken(ctx context.Context, clientNonce, serverNonce []byte) (*symmetric.Key, error) {
	pairEncoded, err := session.EncodeNoncePair(clientNonce, serverNonce)
	if err != nil {
		return nil, err
	}
	signature, err := c.identity.Sign(pairEncoded, hashfamily.SHA512)
	if err != nil {
		return nil, err
	}

	req := boss.NewMap()
	req.Set("data", boss.Bytes(pairEncoded))
	req.Set("signature", boss.Bytes(signature))
	req.Set("session_id", boss.Int(int64(c.sessionID)))

	resp, err := session.Post(ctx, c.httpClient, c.baseURL+"/get_token", req)
	if err != nil {
		return nil, err
	}

	return c.verify(clientNonce, resp)
}

// verify implements handshake leg 3: check the server's signature against
// the pinned server public key, confirm the echoed client_nonce, decrypt
// encrypted_token, and adopt the embedded symmetric key.
func (c *Client) verify(clientNonce []byte, resp *boss.Map) (*symmetric.Key, error) {
	echoVal, _ := resp.Get("client_nonce")
	tokenVal, _ := resp.Get("encrypted_token")
	sigVal, _ := resp.Get("signature")
	echo, ok1 := echoVal.(boss.Bytes)
	token, ok2 := tokenVal.(boss.Bytes)
	sig, ok3 := sigVal.(boss.Bytes)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: malformed get_token response", errs.ErrDecoding)
	}

	replyPair := boss.NewMap()
	replyPair.Set("client_nonce", boss.Bytes(echo))
	replyPair.Set("encrypted_token", boss.Bytes(token))
	replyEncoded, err := boss.Encode(replyPair)
	if err != nil {
		return nil, err
	}
	if !c.serverKey.Verify(replyEncoded, sig, hashfamily.SHA512) {
		return nil, fmt.Errorf("%w: server get_token signature invalid", errs.ErrSessionBadSignature)
	}

	if string(echo) != string(clientNonce) {
		return nil, fmt.Errorf("%w: client_nonce echo mismatch", errs.ErrSessionBadNonce)
	}

	plaintext, err := c.identity.Decrypt(token)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt encrypted_token: %v", errs.ErrAuthenticationFailed, err)
	}
	decoded, err := boss.DecodeBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecoding, err)
	}
	inner, ok := decoded.(*boss.Map)
	if !ok {
		return nil, fmt.Errorf("%w: encrypted_token payload must be a mapping", errs.ErrDecoding)
	}
	skVal, _ := inner.Get("sk")
	skBytes, ok := skVal.(boss.Bytes)
	if !ok {
		return nil, fmt.Errorf("%w: encrypted_token payload missing sk", errs.ErrDecoding)
	}
	return symmetric.FromBytes(skBytes)
}

// Command runs one symmetric-key-encrypted command RPC after a successful
// Handshake, and blocks until the reply is received.
func (c *Client) Command(ctx context.Context, command string, params *boss.Map) (*boss.Map, error) {
	if c.symKey == nil {
		return nil, fmt.Errorf("%w: Handshake must complete before issuing commands", errs.ErrSessionKeyMismatch)
	}

	type outcome struct {
		resp *boss.Map
		err  error
	}
	done := make(chan outcome, 1)
	submitErr := c.pool.Submit(ctx, func() {
		resp, err := c.doCommand(ctx, command, params)
		done <- outcome{resp, err}
	})
	if submitErr != nil {
		return nil, fmt.Errorf("submit command: %w", submitErr)
	}

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) doCommand(ctx context.Context, command string, params *boss.Map) (*boss.Map, error) {
	inner := boss.NewMap()
	inner.Set("command", boss.String(command))
	if params != nil {
		inner.Set("params", params)
	}
	innerEncoded, err := boss.Encode(inner)
	if err != nil {
		return nil, err
	}
	encrypted, err := c.symKey.Encrypt(innerEncoded)
	if err != nil {
		return nil, err
	}

	req := boss.NewMap()
	req.Set("command", boss.String(command))
	req.Set("params", boss.Bytes(encrypted))
	req.Set("session_id", boss.Int(int64(c.sessionID)))

	resp, err := session.Post(ctx, c.httpClient, c.baseURL+"/command", req)
	if err != nil {
		return nil, err
	}
	resultVal, _ := resp.Get("result")
	encryptedReply, ok := resultVal.(boss.Bytes)
	if !ok {
		return nil, fmt.Errorf("%w: malformed command response", errs.ErrDecoding)
	}
	plaintext, err := c.symKey.Decrypt(encryptedReply)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt command reply: %v", errs.ErrAuthenticationFailed, err)
	}
	decoded, err := boss.DecodeBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDecoding, err)
	}
	reply, ok := decoded.(*boss.Map)
	if !ok {
		return nil, fmt.Errorf("%w: command reply must decode to a mapping", errs.ErrDecoding)
	}
	return reply, nil
}

// Hello issues the mandatory hello command that must succeed before any
// other command.
func (c *Client) Hello(ctx context.Context) error {
	_, err := c.Command(ctx, "hello", nil)
	return err
}
