// Package dir implements directory scanning: open a scan, pull entries one
// at a time, plus createDir, removeDir, and stat. Built the same way
// async/file is: blocking os calls dispatched off the handle's FIFO worker,
// completions resolved as Futures on the owning Loop.
package dir

import (
	"os"

	"github.com/cvsouth/u8node/async"
)

// EntryType distinguishes the kind of directory entry.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDir
	EntryOther
)

// Entry is one directory listing result.
type Entry struct {
	Name string
	Type EntryType
}

// Dir is an open directory scan handle.
type Dir struct {
	*async.Handle
	entries []os.DirEntry
	pos     int
}

// Open opens path for scanning.
func Open(loop *async.Loop, path string) *async.Future[*Dir] {
	fut, resolve := async.NewFuture[*Dir]()
	h := async.NewHandle(loop)
	h.SetState(async.StateOpening)
	h.Enqueue(func() {
		entries, err := os.ReadDir(path)
		loop.Submit(func() {
			if err != nil {
				h.SetError(err)
				resolve(nil, err)
				return
			}
			h.SetState(async.StateReady)
			resolve(&Dir{Handle: h, entries: entries}, nil)
		})
	})
	return fut
}

// Next yields the next entry and true, or a zero Entry and false once the
// scan is exhausted.
func (d *Dir) Next() (Entry, bool) {
	if d.pos >= len(d.entries) {
		return Entry{}, false
	}
	e := d.entries[d.pos]
	d.pos++
	entryType := EntryFile
	switch {
	case e.IsDir():
		entryType = EntryDir
	case e.Type()&os.ModeType != 0 && e.Type()&os.ModeType != os.ModeDir:
		entryType = EntryOther
	}
	return Entry{Name: e.Name(), Type: entryType}, true
}

// Close releases the scan handle.
func (d *Dir) Close() *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	loop := d.Loop()
	d.CloseLatch()
	loop.Submit(func() { resolve(struct{}{}, nil) })
	return fut
}

// CreateDir creates path with the given permission mode.
func CreateDir(loop *async.Loop, path string, mode os.FileMode) *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	go func() {
		err := os.Mkdir(path, mode)
		loop.Submit(func() { resolve(struct{}{}, err) })
	}()
	return fut
}

// RemoveDir removes the (empty) directory at path.
func RemoveDir(loop *async.Loop, path string) *async.Future[struct{}] {
	fut, resolve := async.NewFuture[struct{}]()
	go func() {
		err := os.Remove(path)
		loop.Submit(func() { resolve(struct{}{}, err) })
	}()
	return fut
}

// Stat stats path.
func Stat(loop *async.Loop, path string) *async.Future[os.FileInfo] {
	fut, resolve := async.NewFuture[os.FileInfo]()
	go func() {
		info, err := os.Stat(path)
		loop.Submit(func() { resolve(info, err) })
	}()
	return fut
}
