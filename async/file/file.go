// Package file implements async file I/O: open/read/write/close/stat on a
// handle, plus the high-level helpers readFile, readFilePart, writeFile,
// and remove. Blocking os.File calls are dispatched onto the handle's FIFO
// worker so completions surface as Futures resolved on the owning Loop's
// goroutine.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cvsouth/u8node/async"
	"github.com/cvsouth/u8node/errs"
)

// OpenMode is the portable file open-mode enum.
type OpenMode int

const (
	Read OpenMode = iota
	Write
	ReadWrite
	Append
)

// OpenFlags augments OpenMode with the Create/Truncate modifiers.
type OpenFlags struct {
	Create   bool
	Truncate bool
}

// maxReadFileSize guards readFile; larger files must use ReadFilePart.
const maxReadFileSize = 10 << 20 // 10 MiB

// File is an open file handle.
type File struct {
	*async.Handle
	f *os.File
}

func toOSFlags(mode OpenMode, flags OpenFlags) int {
	var f int
	switch mode {
	case Read:
		f = os.O_RDONLY
	case Write:
		f = os.O_WRONLY
	case ReadWrite:
		f = os.O_RDWR
	case Append:
		f = os.O_WRONLY | os.O_APPEND
	}
	if flags.Create {
		f |= os.O_CREATE
	}
	if flags.Truncate {
		f |= os.O_TRUNC
	}
	return f
}

// Open opens path under loop, returning a Future that resolves to the ready
// File handle.
func Open(loop *async.Loop, path string, mode OpenMode, flags OpenFlags, umask os.FileMode) *async.Future[*File] {
	h := async.NewHandle(loop)
	h.SetState(async.StateOpening)
	fut, resolve := futurePair[*File]()
	h.Enqueue(func() {
		osFlags := toOSFlags(mode, flags)
		perm := os.FileMode(0o666) &^ umask
		f, err := os.OpenFile(path, osFlags, perm)
		loop.Submit(func() {
			if err != nil {
				h.SetError(err)
				resolve(nil, fmt.Errorf("open %s: %w", path, err))
				return
			}
			h.SetState(async.StateReady)
			resolve(&File{Handle: h, f: f}, nil)
		})
	})
	return fut
}

// Read reads up to maxBytes from the file, resolving to the data actually
// read (io.EOF surfaces as errs.ErrEOF, not a zero-length success).
func (fl *File) Read(maxBytes int) *async.Future[[]byte] {
	fut, resolve := futurePair[[]byte]()
	loop := fl.Loop()
	fl.Enqueue(func() {
		buf := make([]byte, maxBytes)
		n, err := fl.f.Read(buf)
		loop.Submit(func() {
			if err != nil && n == 0 {
				resolve(nil, translateReadErr(err))
				return
			}
			resolve(buf[:n], nil)
		})
	})
	return fut
}

// Write writes data to the file, resolving to the number of bytes written.
func (fl *File) Write(data []byte) *async.Future[int] {
	fut, resolve := futurePair[int]()
	loop := fl.Loop()
	fl.Enqueue(func() {
		n, err := fl.f.Write(data)
		loop.Submit(func() { resolve(n, err) })
	})
	return fut
}

// Close closes the file, per the close-latch invariant: a second Close is a
// no-op success.
func (fl *File) Close() *async.Future[struct{}] {
	fut, resolve := futurePair[struct{}]()
	loop := fl.Loop()
	if !fl.CloseLatch() {
		loop.Submit(func() { resolve(struct{}{}, nil) })
		return fut
	}
	err := fl.f.Close()
	loop.Submit(func() { resolve(struct{}{}, err) })
	return fut
}

// Stat stats path without requiring an open handle.
func Stat(loop *async.Loop, path string) *async.Future[os.FileInfo] {
	fut, resolve := futurePair[os.FileInfo]()
	go func() {
		info, err := os.Stat(path)
		loop.Submit(func() { resolve(info, err) })
	}()
	return fut
}

// ReadFile reads path wholesale, rejecting anything over maxReadFileSize;
// larger files require ReadFilePart.
func ReadFile(loop *async.Loop, path string) *async.Future[[]byte] {
	fut, resolve := futurePair[[]byte]()
	go func() {
		info, err := os.Stat(path)
		if err != nil {
			loop.Submit(func() { resolve(nil, err) })
			return
		}
		if info.Size() > maxReadFileSize {
			loop.Submit(func() {
				resolve(nil, fmt.Errorf("%w: %s is %d bytes, exceeds ReadFile's %d-byte guard; use ReadFilePart", errs.ErrInvalidArgument, path, info.Size(), maxReadFileSize))
			})
			return
		}
		data, err := os.ReadFile(path)
		loop.Submit(func() { resolve(data, err) })
	}()
	return fut
}

// ReadFilePart reads up to maxBytes from path starting at pos, bounding
// latency by timeout: if timeout elapses before maxBytes have been read in
// blockSize chunks, whatever has been read so far is returned.
func ReadFilePart(loop *async.Loop, path string, pos int64, maxBytes int, timeout time.Duration, blockSize int) *async.Future[[]byte] {
	fut, resolve := futurePair[[]byte]()
	if blockSize <= 0 {
		blockSize = 64 * 1024
	}
	go func() {
		f, err := os.Open(path)
		if err != nil {
			loop.Submit(func() { resolve(nil, err) })
			return
		}
		defer f.Close()

		ctx := context.Background()
		var cancel context.CancelFunc
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		out := make([]byte, 0, maxBytes)
		offset := pos
		for len(out) < maxBytes {
			select {
			case <-ctx.Done():
				loop.Submit(func() { resolve(out, nil) })
				return
			default:
			}
			chunk := blockSize
			if remaining := maxBytes - len(out); chunk > remaining {
				chunk = remaining
			}
			buf := make([]byte, chunk)
			n, readErr := f.ReadAt(buf, offset)
			out = append(out, buf[:n]...)
			offset += int64(n)
			if readErr != nil {
				loop.Submit(func() { resolve(out, nil) })
				return
			}
		}
		loop.Submit(func() { resolve(out, nil) })
	}()
	return fut
}

// WriteFile writes data to path wholesale, creating or truncating it.
func WriteFile(loop *async.Loop, path string, data []byte) *async.Future[struct{}] {
	fut, resolve := futurePair[struct{}]()
	go func() {
		err := os.WriteFile(path, data, 0o644)
		loop.Submit(func() { resolve(struct{}{}, err) })
	}()
	return fut
}

// Remove removes the file at path.
func Remove(loop *async.Loop, path string) *async.Future[struct{}] {
	fut, resolve := futurePair[struct{}]()
	go func() {
		err := os.Remove(path)
		loop.Submit(func() { resolve(struct{}{}, err) })
	}()
	return fut
}

func translateReadErr(err error) error {
	if errors.Is(err, io.EOF) {
		return errs.ErrEOF
	}
	return err
}

func futurePair[T any]() (*async.Future[T], func(T, error)) {
	return async.NewFuture[T]()
}
