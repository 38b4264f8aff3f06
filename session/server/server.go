// Package server implements the server half of the secure session: an
// HTTP listener exposing /connect, /get_token, and /command, backing
// three-leg handshake state in a session.Store and dispatching decrypted
// commands to registered handlers on a bounded worker pool.
//
// The listener plumbing follows the general "one mux, one ListenAndServe"
// shape of a standard Go HTTP service, with the worker pool and session
// bookkeeping layered on top.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cvsouth/u8node/boss"
	"github.com/cvsouth/u8node/crypto/hashfamily"
	"github.com/cvsouth/u8node/crypto/hashid"
	"github.com/cvsouth/u8node/crypto/rsakey"
	"github.com/cvsouth/u8node/crypto/symmetric"
	"github.com/cvsouth/u8node/errs"
	"github.com/cvsouth/u8node/session"
)

// Handler answers one dispatched command with a reply mapping.
type Handler func(ctx context.Context, params *boss.Map) (*boss.Map, error)

// Server is the SecureSession server: one signing identity, a session
// table, a registered command dispatch table, and a bounded worker pool.
type Server struct {
	signer  *rsakey.Key
	store   *session.Store
	pool    *session.Pool
	logger  *slog.Logger
	metrics *metrics

	handlers map[string]Handler

	httpServer *http.Server
}

// New creates a Server signing with signer (the server's own RSA identity)
// and bounded by poolSize concurrent command workers with queueDepth
// pending closures. If reg is non-nil, the server's handshake/command
// counters are registered against it.
func New(signer *rsakey.Key, poolSize, queueDepth int, logger *slog.Logger, reg prometheus.Registerer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		signer:   signer,
		store:    session.NewStore(),
		pool:     session.NewPool(poolSize, queueDepth),
		logger:   logger,
		metrics:  newMetrics(reg),
		handlers: make(map[string]Handler),
	}
}

// Handle registers a command handler. "hello" must be registered before the
// server takes requests (via ListenAndServe or Mux): a single hello command
// is expected to succeed before any other command.
func (s *Server) Handle(command string, h Handler) {
	s.handlers[command] = h
}

// Mux builds the http.Handler exposing /connect, /get_token, and /command.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/get_token", s.handleGetToken)
	mux.HandleFunc("/command", s.handleCommand)
	return mux
}

// ListenAndServe starts the HTTP listener on addr, blocking until it
// returns (typically on Shutdown or a listener error).
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Mux()}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func fingerprintOf(pub *rsakey.Key) (string, error) {
	encoded, err := rsakey.Marshal(pub)
	if err != nil {
		return "", err
	}
	return hashid.Of(encoded).String(), nil
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var handlerErr error
	defer func() { s.metrics.observeHandshake("connect", handlerErr) }()
	fail := func(err error) { handlerErr = err; s.fail(w, err) }

	req, err := session.DecodeRequest(r)
	if err != nil {
		fail(err)
		return
	}
	clientKeyVal, ok := req.Get("client_key")
	if !ok {
		fail(fmt.Errorf("%w: connect requires client_key", errs.ErrInvalidArgument))
		return
	}
	clientKeyBytes, ok := clientKeyVal.(boss.Bytes)
	if !ok {
		fail(fmt.Errorf("%w: client_key must be bytes", errs.ErrInvalidArgument))
		return
	}
	clientKey, err := rsakey.Parse(clientKeyBytes)
	if err != nil {
		fail(err)
		return
	}

	fingerprint, err := fingerprintOf(clientKey)
	if err != nil {
		fail(err)
		return
	}
	st := s.store.GetOrCreate(fingerprint, clientKey)

	st.Lock()
	if st.ServerNonce == nil {
		nonce, err := session.RandomServerNonce()
		if err != nil {
			st.Unlock()
			fail(err)
			return
		}
		st.ServerNonce = nonce
	}
	serverNonce := st.ServerNonce
	id := st.ID
	st.Unlock()

	resp := boss.NewMap()
	resp.Set("server_nonce", boss.Bytes(serverNonce))
	resp.Set("session_id", boss.Int(int64(id)))
	s.ok(w, resp)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	var handlerErr error
	defer func() { s.metrics.observeHandshake("get_token", handlerErr) }()
	fail := func(err error) { handlerErr = err; s.fail(w, err) }

	req, err := session.DecodeRequest(r)
	if err != nil {
		fail(err)
		return
	}
	idVal, dataVal, sigVal := mustGet(req, "session_id"), mustGet(req, "data"), mustGet(req, "signature")
	id64, ok1 := idVal.(boss.Int)
	data, ok2 := dataVal.(boss.Bytes)
	sig, ok3 := sigVal.(boss.Bytes)
	if !ok1 || !ok2 || !ok3 {
		fail(fmt.Errorf("%w: get_token requires session_id, data, signature", errs.ErrInvalidArgument))
		return
	}

	st, ok := s.store.ByID(uint64(id64))
	if !ok {
		fail(fmt.Errorf("%w: session %d", errs.ErrSessionUnknown, id64))
		return
	}

	if !st.PeerKey.Verify(data, sig, hashfamily.SHA512) {
		fail(fmt.Errorf("%w: get_token signature invalid", errs.ErrSessionBadSignature))
		return
	}

	decoded, err := boss.DecodeBytes(data)
	if err != nil {
		fail(fmt.Errorf("%w: %v", errs.ErrDecoding, err))
		return
	}
	pair, ok := decoded.(*boss.Map)
	if !ok {
		fail(fmt.Errorf("%w: get_token data must be a mapping", errs.ErrDecoding))
		return
	}
	clientNonceVal, _ := pair.Get("client_nonce")
	serverNonceVal, _ := pair.Get("server_nonce")
	clientNonce, ok1 := clientNonceVal.(boss.Bytes)
	serverNonceEcho, ok2 := serverNonceVal.(boss.Bytes)
	if !ok1 || !ok2 {
		fail(fmt.Errorf("%w: get_token data missing nonce fields", errs.ErrInvalidArgument))
		return
	}

	st.Lock()
	defer st.Unlock()
	if string(serverNonceEcho) != string(st.ServerNonce) {
		fail(fmt.Errorf("%w: get_token server_nonce mismatch", errs.ErrSessionBadNonce))
		return
	}

	if st.EncryptedToken == nil {
		st.ClientNonce = clientNonce
		symKey, err := symmetric.Generate()
		if err != nil {
			fail(err)
			return
		}
		st.SymKey = symKey

		skMap := boss.NewMap()
		skMap.Set("sk", boss.Bytes(symKey.Bytes()))
		skEncoded, err := boss.Encode(skMap)
		if err != nil {
			fail(err)
			return
		}
		encryptedToken, err := st.PeerKey.Encrypt(skEncoded)
		if err != nil {
			fail(err)
			return
		}
		st.EncryptedToken = encryptedToken
	}

	replyPair := boss.NewMap()
	replyPair.Set("client_nonce", boss.Bytes(st.ClientNonce))
	replyPair.Set("encrypted_token", boss.Bytes(st.EncryptedToken))
	replyEncoded, err := boss.Encode(replyPair)
	if err != nil {
		fail(err)
		return
	}
	replySig, err := s.signer.Sign(replyEncoded, hashfamily.SHA512)
	if err != nil {
		fail(err)
		return
	}

	resp := boss.NewMap()
	resp.Set("client_nonce", boss.Bytes(st.ClientNonce))
	resp.Set("encrypted_token", boss.Bytes(st.EncryptedToken))
	resp.Set("signature", boss.Bytes(replySig))
	s.ok(w, resp)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	correlationID := uuid.New().String()
	var commandName string
	var handlerErr error
	defer func() { s.metrics.observeCommand(commandName, handlerErr) }()
	fail := func(err error) {
		handlerErr = err
		s.logger.Warn("command failed", "correlation_id", correlationID, "command", commandName, "error", err)
		if werr := session.WriteError(w, err.Error()); werr != nil {
			s.logger.Error("write session error response", "correlation_id", correlationID, "error", werr)
		}
	}

	req, err := session.DecodeRequest(r)
	if err != nil {
		fail(err)
		return
	}
	commandVal, paramsVal, idVal := mustGet(req, "command"), mustGet(req, "params"), mustGet(req, "session_id")
	command, ok1 := commandVal.(boss.String)
	encParams, ok2 := paramsVal.(boss.Bytes)
	id64, ok3 := idVal.(boss.Int)
	if !ok1 || !ok2 || !ok3 {
		fail(fmt.Errorf("%w: command requires command, params, session_id", errs.ErrInvalidArgument))
		return
	}
	commandName = string(command)

	st, ok := s.store.ByID(uint64(id64))
	if !ok {
		fail(fmt.Errorf("%w: session %d", errs.ErrSessionUnknown, id64))
		return
	}
	st.Lock()
	symKey := st.SymKey
	st.Unlock()
	if symKey == nil {
		fail(fmt.Errorf("%w: session %d has no established key", errs.ErrSessionKeyMismatch, id64))
		return
	}

	plaintext, err := symKey.Decrypt(encParams)
	if err != nil {
		fail(fmt.Errorf("%w: %v", errs.ErrAuthenticationFailed, err))
		return
	}
	decoded, err := boss.DecodeBytes(plaintext)
	if err != nil {
		fail(fmt.Errorf("%w: %v", errs.ErrDecoding, err))
		return
	}
	inner, ok := decoded.(*boss.Map)
	if !ok {
		fail(fmt.Errorf("%w: command params must decode to a mapping", errs.ErrDecoding))
		return
	}
	paramsInnerVal, _ := inner.Get("params")
	paramsInner, _ := paramsInnerVal.(*boss.Map)

	handler, ok := s.handlers[string(command)]
	if !ok {
		fail(fmt.Errorf("%w: unregistered command %q", errs.ErrInvalidArgument, command))
		return
	}

	// Dispatched on the bounded worker pool: every user-facing command
	// handler is invoked on the pool.
	type outcome struct {
		reply *boss.Map
		err   error
	}
	done := make(chan outcome, 1)
	submitErr := s.pool.Submit(r.Context(), func() {
		start := time.Now()
		reply, err := handler(r.Context(), paramsInner)
		if s.metrics != nil {
			s.metrics.commandLatency.Observe(time.Since(start).Seconds())
		}
		done <- outcome{reply, err}
	})
	if submitErr != nil {
		fail(fmt.Errorf("submit command to worker pool: %w", submitErr))
		return
	}
	out := <-done
	if out.err != nil {
		fail(out.err)
		return
	}
	reply := out.reply
	replyEncoded, err := boss.Encode(reply)
	if err != nil {
		fail(err)
		return
	}
	encryptedReply, err := symKey.Encrypt(replyEncoded)
	if err != nil {
		fail(err)
		return
	}
	resp := boss.NewMap()
	resp.Set("result", boss.Bytes(encryptedReply))
	s.ok(w, resp)
}

func mustGet(m *boss.Map, key string) boss.Value {
	v, _ := m.Get(key)
	return v
}

func (s *Server) ok(w http.ResponseWriter, resp *boss.Map) {
	if err := session.WriteOK(w, resp); err != nil {
		s.logger.Error("write session response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Warn("session request failed", "error", err)
	if werr := session.WriteError(w, err.Error()); werr != nil {
		s.logger.Error("write session error response", "error", werr)
	}
}
