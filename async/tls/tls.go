// Package tls implements async TLS: the same surface as TCP plus
// certificate-based listen/connect and a handshake timeout that closes the
// half-built handle and fires errs.ErrTlsHandshakeTimeout. Dials a TCP
// connection, wraps it in crypto/tls, and bounds the handshake with an
// explicit deadline.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/cvsouth/u8node/async"
	"github.com/cvsouth/u8node/errs"
)

// Conn is a TLS connection, either accepted from a Listener or dialed.
type Conn struct {
	*async.Handle
	conn      *tls.Conn
	resetSeen bool
}

// Listener is a listening TLS handle; each accepted connection shares its
// TLS context (*tls.Config) with the listener it came from.
type Listener struct {
	*async.Handle
	ln     net.Listener
	config *tls.Config
}

func loadConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}

// Listen binds ip:port and calls onAccept for every incoming connection
// once its TLS handshake completes within timeout (0 = infinite).
func Listen(loop *async.Loop, ip string, port int, certPath, keyPath string, onAccept func(*Conn, error), backlog int, timeout time.Duration) (*Listener, error) {
	config, err := loadConfig(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tls listen %s: %w", addr, err)
	}
	ln := tls.NewListener(raw, config)

	h := async.NewHandle(loop)
	h.SetState(async.StateReady)
	l := &Listener{Handle: h, ln: ln, config: config}

	go func() {
		for {
			rawConn, err := ln.Accept()
			if err != nil {
				if h.IsClosed() {
					return
				}
				loop.Submit(func() { h.SetError(err) })
				return
			}
			tlsConn := rawConn.(*tls.Conn)
			go acceptHandshake(loop, tlsConn, timeout, onAccept)
		}
	}()

	return l, nil
}

func acceptHandshake(loop *async.Loop, tlsConn *tls.Conn, timeout time.Duration, onAccept func(*Conn, error)) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		_ = tlsConn.SetDeadline(time.Now().Add(timeout))
	}
	err := tlsConn.HandshakeContext(ctx)
	if timeout > 0 {
		_ = tlsConn.SetDeadline(time.Time{})
	}
	loop.Submit(func() {
		if err != nil {
			_ = tlsConn.Close()
			onAccept(nil, errs.ErrTlsHandshakeTimeout)
			return
		}
		h := async.NewHandle(loop)
		h.SetState(async.StateReady)
		onAccept(&Conn{Handle: h, conn: tlsConn}, nil)
	})
}

// Close stops accepting new connections.
func (l *Listener) Close() *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	loop := l.Loop()
	l.CloseLatch()
	err := l.ln.Close()
	loop.Submit(func() { resolve(struct{}{}, err) })
	return fut
}

// Connect dials ip:port and completes a TLS handshake within timeout
// (0 = infinite), presenting the given client certificate.
func Connect(loop *async.Loop, ip string, port int, certPath, keyPath string, timeout time.Duration) *async.Future[*Conn] {
	fut, resolve := async.NewFuture[*Conn]()
	h := async.NewHandle(loop)
	h.SetState(async.StateOpening)

	h.Enqueue(func() {
		config, err := loadConfig(certPath, keyPath)
		if err != nil {
			loop.Submit(func() {
				h.SetError(err)
				resolve(nil, err)
			})
			return
		}

		dialer := &net.Dialer{Timeout: timeout}
		rawConn, err := dialer.Dial("tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
		if err != nil {
			loop.Submit(func() {
				h.SetError(err)
				resolve(nil, err)
			})
			return
		}

		tlsConn := tls.Client(rawConn, config)
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
			_ = tlsConn.SetDeadline(time.Now().Add(timeout))
		}
		err = tlsConn.HandshakeContext(ctx)
		if timeout > 0 {
			_ = tlsConn.SetDeadline(time.Time{})
		}

		loop.Submit(func() {
			if err != nil {
				_ = tlsConn.Close()
				h.SetError(errs.ErrTlsHandshakeTimeout)
				resolve(nil, errs.ErrTlsHandshakeTimeout)
				return
			}
			h.SetState(async.StateReady)
			resolve(&Conn{Handle: h, conn: tlsConn}, nil)
		})
	})

	return fut
}

// Read reads up to maxBytes from the connection.
func (c *Conn) Read(maxBytes int) *async.Future[[]byte] {
	fut, resolve := async.NewFuture[[]byte]()
	loop := c.Loop()
	c.Enqueue(func() {
		buf := make([]byte, maxBytes)
		n, err := c.conn.Read(buf)
		loop.Submit(func() { resolve(buf[:n], err) })
	})
	return fut
}

// Write writes data to the connection.
func (c *Conn) Write(data []byte) *async.Future[int] {
	fut, resolve := async.NewFuture[int]()
	loop := c.Loop()
	c.Enqueue(func() {
		n, err := c.conn.Write(data)
		loop.Submit(func() { resolve(n, err) })
	})
	return fut
}

// Close closes the connection.
func (c *Conn) Close() *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	loop := c.Loop()
	c.CloseLatch()
	err := c.conn.Close()
	loop.Submit(func() { resolve(struct{}{}, err) })
	return fut
}
