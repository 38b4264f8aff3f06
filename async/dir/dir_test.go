package dir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cvsouth/u8node/async"
)

func TestOpenAndNextListsEntries(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	base := t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Mkdir(filepath.Join(base, "sub"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	d, err := Open(loop, base).Wait(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	seen := map[string]EntryType{}
	for {
		e, ok := d.Next()
		if !ok {
			break
		}
		seen[e.Name] = e.Type
	}
	if seen["a.txt"] != EntryFile {
		t.Fatalf("a.txt type = %v, want EntryFile", seen["a.txt"])
	}
	if seen["sub"] != EntryDir {
		t.Fatalf("sub type = %v, want EntryDir", seen["sub"])
	}
}

func TestCreateDirThenRemoveDir(t *testing.T) {
	loop := async.NewLoop(nil)
	defer loop.Close()

	path := filepath.Join(t.TempDir(), "newdir")
	ctx := context.Background()
	if _, err := CreateDir(loop, path, 0o755).Wait(ctx); err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	info, err := Stat(loop, path).Wait(ctx)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("Stat reports created path is not a directory")
	}
	if _, err := RemoveDir(loop, path).Wait(ctx); err != nil {
		t.Fatalf("RemoveDir: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("directory still exists after RemoveDir")
	}
}
