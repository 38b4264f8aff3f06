package udp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cvsouth/u8node/async"
)

func TestSendRecvRoundTrip(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()
	ctx := context.Background()

	server, err := Open(loop, "127.0.0.1", 0, 1024)
	if err != nil {
		t.Fatalf("Open server: %v", err)
	}
	defer server.Close()

	client, err := Open(loop, "127.0.0.1", 0, 1024)
	if err != nil {
		t.Fatalf("Open client: %v", err)
	}
	defer client.Close()

	received := make(chan Datagram, 1)
	if err := server.conn.SetReadDeadline(time.Time{}); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	if err := server.Recv(func(d Datagram, err error) {
		if err == nil {
			received <- d
		}
	}); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	serverAddr := server.conn.LocalAddr().(*net.UDPAddr)
	if _, err := client.Send([]byte("hi"), serverAddr.IP.String(), serverAddr.Port).Wait(ctx); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case d := <-received:
		if string(d.Data) != "hi" {
			t.Fatalf("received %q, want %q", d.Data, "hi")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the datagram")
	}

	server.StopRecv()
}

func TestRecvCannotBeEnteredTwice(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	s, err := Open(loop, "127.0.0.1", 0, 1024)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Recv(func(Datagram, error) {}); err != nil {
		t.Fatalf("first Recv: %v", err)
	}
	if err := s.Recv(func(Datagram, error) {}); err == nil {
		t.Fatal("expected second concurrent Recv to fail")
	}
	s.StopRecv()
}
