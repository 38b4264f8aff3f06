package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cvsouth/u8node/async"
)

func TestWriteFileThenReadFileRoundTrip(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "roundtrip.txt")
	data := []byte("hello async runtime")

	if _, err := WriteFile(loop, path, data).Wait(context.Background()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(loop, path).Wait(context.Background())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("ReadFile = %q, want %q", got, data)
	}
}

func TestOpenReadWriteClose(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "handle.txt")
	ctx := context.Background()

	f, err := Open(loop, path, ReadWrite, OpenFlags{Create: true, Truncate: true}, 0o022).Wait(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Write([]byte("payload")).Wait(ctx); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := f.Close().Wait(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("file contents = %q, want %q", got, "payload")
	}
}

func TestReadFileRejectsOversizedFiles(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(path, make([]byte, maxReadFileSize+1), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := ReadFile(loop, path).Wait(context.Background()); err == nil {
		t.Fatal("expected ReadFile to reject a file over the size guard")
	}
}

func TestReadFilePartHonorsTimeout(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "part.bin")
	if err := os.WriteFile(path, make([]byte, 1024), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	data, err := ReadFilePart(loop, path, 0, 1024, 2*time.Second, 128).Wait(context.Background())
	if err != nil {
		t.Fatalf("ReadFilePart: %v", err)
	}
	if len(data) != 1024 {
		t.Fatalf("ReadFilePart returned %d bytes, want 1024", len(data))
	}
}

func TestRemove(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := Remove(loop, path).Wait(context.Background()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("file still exists after Remove")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "idempotent.txt")
	ctx := context.Background()
	f, err := Open(loop, path, Write, OpenFlags{Create: true}, 0).Wait(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := f.Close().Wait(ctx); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if _, err := f.Close().Wait(ctx); err != nil {
		t.Fatalf("second Close should succeed as a no-op: %v", err)
	}
}
