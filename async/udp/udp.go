// Package udp implements async UDP: a bound socket supporting a persistent
// receive mode (repeated callback firing until StopRecv), one-shot send,
// and a default-peer-filtered read/write mode. Receive mode and read mode
// are mutually exclusive per handle.
package udp

import (
	"fmt"
	"net"

	"github.com/cvsouth/u8node/async"
	"github.com/cvsouth/u8node/errs"
)

// Datagram is one received UDP packet.
type Datagram struct {
	Data []byte
	Addr *net.UDPAddr
}

// Socket is a bound UDP handle.
type Socket struct {
	*async.Handle
	conn       *net.UDPConn
	bufferSize int

	defaultPeer *net.UDPAddr

	recvActive bool
	stopRecvCh chan struct{}
}

// Open binds ip:port with the given per-receive buffer size.
func Open(loop *async.Loop, ip string, port int, bufferSize int) (*Socket, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp open %s:%d: %w", ip, port, err)
	}
	h := async.NewHandle(loop)
	h.SetState(async.StateReady)
	return &Socket{Handle: h, conn: conn, bufferSize: bufferSize}, nil
}

// SetDefaultPeer configures the peer address used by Read/Write's
// single-shot, peer-filtered mode.
func (s *Socket) SetDefaultPeer(ip string, port int) {
	s.defaultPeer = &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
}

// Recv enters receive mode, calling onPacket for every datagram received
// until StopRecv is called. While receive mode is active, Read fails with
// errs.ErrInvalidArgument; Recv does not wait for or cancel a Read that was
// already queued.
func (s *Socket) Recv(onPacket func(Datagram, error)) error {
	if s.recvActive {
		return fmt.Errorf("%w: socket is already in receive mode", errs.ErrInvalidArgument)
	}
	s.recvActive = true
	s.stopRecvCh = make(chan struct{})
	loop := s.Loop()
	stopCh := s.stopRecvCh

	go func() {
		buf := make([]byte, s.bufferSize)
		for {
			select {
			case <-stopCh:
				return
			default:
			}
			n, addr, err := s.conn.ReadFromUDP(buf)
			data := append([]byte(nil), buf[:n]...)
			select {
			case <-stopCh:
				return
			default:
			}
			loop.Submit(func() {
				if err != nil {
					onPacket(Datagram{}, err)
					return
				}
				onPacket(Datagram{Data: data, Addr: addr}, nil)
			})
			if err != nil {
				return
			}
		}
	}()
	return nil
}

// StopRecv exits receive mode. A subsequent Recv call may re-enter it.
func (s *Socket) StopRecv() {
	if !s.recvActive {
		return
	}
	close(s.stopRecvCh)
	s.recvActive = false
}

// Send transmits data to ip:port.
func (s *Socket) Send(data []byte, ip string, port int) *async.Future[int] {
	fut, resolve := async.NewFuture[int]()
	loop := s.Loop()
	s.Enqueue(func() {
		n, err := s.conn.WriteToUDP(data, &net.UDPAddr{IP: net.ParseIP(ip), Port: port})
		loop.Submit(func() { resolve(n, err) })
	})
	return fut
}

// Read performs a single-shot read filtered to the configured default peer.
func (s *Socket) Read(maxBytes int) *async.Future[[]byte] {
	fut, resolve := async.NewFuture[[]byte]()
	loop := s.Loop()
	if s.recvActive {
		loop.Submit(func() { resolve(nil, fmt.Errorf("%w: Read is not available in receive mode", errs.ErrInvalidArgument)) })
		return fut
	}
	if s.defaultPeer == nil {
		loop.Submit(func() { resolve(nil, fmt.Errorf("%w: Read requires SetDefaultPeer", errs.ErrInvalidArgument)) })
		return fut
	}
	s.Enqueue(func() {
		buf := make([]byte, maxBytes)
		for {
			n, addr, err := s.conn.ReadFromUDP(buf)
			if err != nil {
				loop.Submit(func() { resolve(nil, err) })
				return
			}
			if addr.IP.Equal(s.defaultPeer.IP) && addr.Port == s.defaultPeer.Port {
				data := append([]byte(nil), buf[:n]...)
				loop.Submit(func() { resolve(data, nil) })
				return
			}
		}
	})
	return fut
}

// Write performs a single-shot write to the configured default peer.
func (s *Socket) Write(data []byte) *async.Future[int] {
	fut, resolve := async.NewFuture[int]()
	if s.defaultPeer == nil {
		resolve(0, fmt.Errorf("%w: Write requires SetDefaultPeer", errs.ErrInvalidArgument))
		return fut
	}
	return s.Send(data, s.defaultPeer.IP.String(), s.defaultPeer.Port)
}

// Close releases the socket, stopping receive mode if active.
func (s *Socket) Close() *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	loop := s.Loop()
	s.StopRecv()
	s.CloseLatch()
	err := s.conn.Close()
	loop.Submit(func() { resolve(struct{}{}, err) })
	return fut
}
