package tls

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cvsouth/u8node/async"
)

// writeTestCert generates a self-signed certificate/key pair for localhost
// and writes both as PEM files under dir, returning their paths.
func writeTestCert(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("x509.CreateCertificate: %v", err)
	}

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	certOut, err := os.Create(certPath)
	if err != nil {
		t.Fatalf("create cert file: %v", err)
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		t.Fatalf("pem.Encode cert: %v", err)
	}

	keyOut, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("create key file: %v", err)
	}
	defer keyOut.Close()
	if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}); err != nil {
		t.Fatalf("pem.Encode key: %v", err)
	}
	return certPath, keyPath
}

func TestListenConnectHandshakeEcho(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()
	ctx := context.Background()

	dir := t.TempDir()
	certPath, keyPath := writeTestCert(t, dir)

	accepted := make(chan *Conn, 1)
	ln, err := Listen(loop, "127.0.0.1", 0, certPath, keyPath, func(c *Conn, err error) {
		if err == nil {
			accepted <- c
		}
	}, 0, 2*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	port := ln.ln.Addr().(*net.TCPAddr).Port
	client, err := Connect(loop, "127.0.0.1", port, certPath, keyPath, 2*time.Second).Wait(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	var server *Conn
	select {
	case server = <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("server never completed the TLS handshake")
	}
	defer server.Close()

	if _, err := client.Write([]byte("secure")).Wait(ctx); err != nil {
		t.Fatalf("client Write: %v", err)
	}
	got, err := server.Read(6).Wait(ctx)
	if err != nil {
		t.Fatalf("server Read: %v", err)
	}
	if string(got) != "secure" {
		t.Fatalf("server Read = %q, want %q", got, "secure")
	}
}

func TestConnectFailsAgainstUnreachablePort(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	dir := t.TempDir()
	certPath, keyPath := writeTestCert(t, dir)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := Connect(loop, "127.0.0.1", port, certPath, keyPath, time.Second).Wait(ctx); err == nil {
		t.Fatal("expected Connect to fail against a closed port")
	}
}
