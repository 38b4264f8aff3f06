// Package tcp implements async TCP: listen/accept, connect, read/write, and
// keepalive control. Listen spawns a dedicated accept goroutine that calls
// back into user code per connection; Connect follows the same
// dial-then-handshake sequencing.
package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cvsouth/u8node/async"
	"github.com/cvsouth/u8node/errs"
)

// Conn is a connected TCP handle, either accepted or dialed.
type Conn struct {
	*async.Handle
	conn      net.Conn
	resetSeen bool
}

// Listener is a listening TCP handle.
type Listener struct {
	*async.Handle
	ln net.Listener
}

// Listen binds addr and calls onAccept for every incoming connection; the
// callback should call Accept to adopt the connection (or close it to
// refuse it). backlog is accepted for API symmetry and not applied: the
// listener always uses the system default backlog.
func Listen(loop *async.Loop, ip string, port int, onAccept func(*Conn), backlog int) (*Listener, error) {
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen %s: %w", addr, err)
	}
	h := async.NewHandle(loop)
	h.SetState(async.StateReady)
	l := &Listener{Handle: h, ln: ln}

	go func() {
		for {
			raw, err := ln.Accept()
			if err != nil {
				if h.IsClosed() {
					return
				}
				loop.Submit(func() { h.SetError(err) })
				return
			}
			child := &Conn{Handle: async.NewHandle(loop), conn: raw}
			child.SetState(async.StateReady)
			loop.Submit(func() { onAccept(child) })
		}
	}()

	return l, nil
}

// Accept is a no-op adoption hook retained for symmetry with the portable
// API's accept(childHandle) shape: the child Conn passed to onAccept is
// already live and ready to use.
func (l *Listener) Accept(child *Conn) *Conn { return child }

// Close stops accepting new connections.
func (l *Listener) Close() *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	loop := l.Loop()
	l.CloseLatch()
	err := l.ln.Close()
	loop.Submit(func() { resolve(struct{}{}, err) })
	return fut
}

// Connect dials ip:port, optionally binding the local address first.
func Connect(loop *async.Loop, bindIP string, bindPort int, ip string, port int) *async.Future[*Conn] {
	fut, resolve := async.NewFuture[*Conn]()
	h := async.NewHandle(loop)
	h.SetState(async.StateOpening)
	h.Enqueue(func() {
		dialer := &net.Dialer{Timeout: 30 * time.Second}
		if bindIP != "" {
			localAddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(bindIP, fmt.Sprintf("%d", bindPort)))
			if err != nil {
				loop.Submit(func() {
					h.SetError(err)
					resolve(nil, err)
				})
				return
			}
			dialer.LocalAddr = localAddr
		}
		raw, err := dialer.Dial("tcp", net.JoinHostPort(ip, fmt.Sprintf("%d", port)))
		loop.Submit(func() {
			if err != nil {
				h.SetError(err)
				resolve(nil, err)
				return
			}
			h.SetState(async.StateReady)
			resolve(&Conn{Handle: h, conn: raw}, nil)
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
		loop.Submit(func() { resolve(buf[:n], c.translate(err)) })
	})
	return fut
}

// Write writes data to the connection.
func (c *Conn) Write(data []byte) *async.Future[int] {
	fut, resolve := async.NewFuture[int]()
	loop := c.Loop()
	c.Enqueue(func() {
		n, err := c.conn.Write(data)
		loop.Submit(func() { resolve(n, c.translate(err)) })
	})
	return fut
}

// translate records a connection reset and surfaces errs.ErrConnectionReset
// for it and for any subsequent operation on this handle, until the handle
// is closed.
func (c *Conn) translate(err error) error {
	if c.resetSeen {
		return errs.ErrConnectionReset
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return errs.ErrEOF
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		c.resetSeen = true
		return errs.ErrConnectionReset
	}
	return err
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

// EnableKeepAlive turns on TCP keepalive with the given probe delay.
func (c *Conn) EnableKeepAlive(delay time.Duration) error {
	tc, ok := c.conn.(*net.TCPConn)
	if !ok {
		return fmt.Errorf("%w: keepalive requires a TCP connection", errs.ErrInvalidArgument)
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	return tc.SetKeepAlivePeriod(delay)
}

// DisableKeepAlive turns off TCP keepalive.
func (c *Conn) DisableKeepAlive() error {
	tc, ok := c.conn.(*net.TCPConn)
	if !ok {
		return fmt.Errorf("%w: keepalive requires a TCP connection", errs.ErrInvalidArgument)
	}
	return tc.SetKeepAlive(false)
}
