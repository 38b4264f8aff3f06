package boss

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// cacheKey identifies a cacheable value by its kind and raw bytes, so that
// distinct values which happen to share a representation (e.g. two equal
// strings) are still recognized as "the same value" for reference caching.
type cacheKey struct {
	kind byte // 's' string, 'b' bytes, 'a' array, 'm' mapping
	raw  string
}

// Encoder writes values to an underlying io.Writer using the boss wire
// format. An Encoder is single-use-per-session: its cache must never be
// shared across encode calls that aren't part of the same logical document,
// and it is not safe for concurrent use.
type Encoder struct {
	w          io.Writer
	cache      map[cacheKey]int
	nextIndex  int
	streamMode bool
}

// NewEncoder creates an encoder in tree mode (the default): every new
// string, byte sequence, array, and mapping is cached and referenced on
// reuse.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, cache: make(map[cacheKey]int)}
}

// SetStreamMode switches the encoder to stream mode, in which no further
// caching occurs. It emits the STREAM_MODE marker exactly once, at the
// point of the mode change, and is a no-op if already in stream mode.
func (e *Encoder) SetStreamMode() error {
	if e.streamMode {
		return nil
	}
	e.streamMode = true
	return writeHeader(e.w, typeExtra, extraStreamMode)
}

// Encode writes v to the encoder's writer.
func (e *Encoder) Encode(v Value) error {
	switch t := v.(type) {
	case nil:
		return decodingError("cannot encode nil value")
	case Int:
		return e.encodeInt(int64(t))
	case bool:
		if t {
			return writeHeader(e.w, typeExtra, extraTrue)
		}
		return writeHeader(e.w, typeExtra, extraFalse)
	case float64:
		if err := writeHeader(e.w, typeExtra, extraDouble); err != nil {
			return err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t))
		_, err := e.w.Write(buf[:])
		return err
	case Time:
		if err := writeHeader(e.w, typeExtra, extraTime); err != nil {
			return err
		}
		return writeHeader(e.w, typeIntPositive, uint64(timeToUnix(t)))
	case String:
		return e.encodeString(string(t))
	case Bytes:
		return e.encodeBytes([]byte(t))
	case Array:
		return e.encodeArray(t)
	case *Map:
		return e.encodeMap(t)
	default:
		return decodingError("unsupported value type %T", v)
	}
}

func (e *Encoder) encodeInt(n int64) error {
	switch n {
	case 0:
		return writeHeader(e.w, typeExtra, extraDZero)
	case 1:
		return writeHeader(e.w, typeExtra, extraDOne)
	case -1:
		return writeHeader(e.w, typeExtra, extraDMinusOne)
	}
	if n >= 0 {
		return writeHeader(e.w, typeIntPositive, uint64(n))
	}
	return writeHeader(e.w, typeIntNegative, uint64(-n))
}

// encodeString handles the "empty strings are never cached" rule directly.
func (e *Encoder) encodeString(s string) error {
	if s == "" {
		return writeHeader(e.w, typeString, 0)
	}
	if !e.streamMode {
		key := cacheKey{kind: 's', raw: s}
		if idx, ok := e.cache[key]; ok {
			return writeHeader(e.w, typeCacheRef, uint64(idx))
		}
		e.cache[key] = e.nextIndex
		e.nextIndex++
	}
	b := []byte(s)
	if err := writeHeader(e.w, typeString, uint64(len(b))); err != nil {
		return err
	}
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) encodeBytes(b []byte) error {
	if len(b) == 0 {
		return writeHeader(e.w, typeBytes, 0)
	}
	if !e.streamMode {
		key := cacheKey{kind: 'b', raw: string(b)}
		if idx, ok := e.cache[key]; ok {
			return writeHeader(e.w, typeCacheRef, uint64(idx))
		}
		e.cache[key] = e.nextIndex
		e.nextIndex++
	}
	if err := writeHeader(e.w, typeBytes, uint64(len(b))); err != nil {
		return err
	}
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) encodeArray(a Array) error {
	slot, body, err := e.encodeContainerBody(func(sub *Encoder) error {
		if err := writeHeader(sub.w, typeArray, uint64(len(a))); err != nil {
			return err
		}
		for _, v := range a {
			if err := sub.Encode(v); err != nil {
				return fmt.Errorf("encode array element: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return e.emitContainer('a', slot, body)
}

func (e *Encoder) encodeMap(m *Map) error {
	slot, body, err := e.encodeContainerBody(func(sub *Encoder) error {
		if err := writeHeader(sub.w, typeMapping, uint64(m.Len())); err != nil {
			return err
		}
		var encErr error
		m.Each(func(key string, v Value) {
			if encErr != nil {
				return
			}
			if encErr = sub.encodeString(key); encErr != nil {
				return
			}
			encErr = sub.Encode(v)
		})
		return encErr
	})
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	return e.emitContainer('m', slot, body)
}

// encodeContainerBody runs fn against a child encoder that shares this
// encoder's cache and next-index counter but writes into an in-memory
// buffer instead of e.w, returning the fully encoded bytes. Outside stream
// mode the container's own cache slot is reserved before its children are
// encoded and returned as slot, so slots are numbered in order of first
// appearance, the order in which the decoder assigns them. Array/mapping
// caching is keyed by this content (see emitContainer), matching the rule
// already applied to strings and bytes in encodeString/encodeBytes, so the
// container's content must be fully known before we can tell whether it
// has been seen before.
func (e *Encoder) encodeContainerBody(fn func(*Encoder) error) (int, []byte, error) {
	slot := e.nextIndex
	childStart := slot
	if !e.streamMode {
		childStart++
	}
	var buf bytes.Buffer
	sub := &Encoder{w: &buf, cache: e.cache, nextIndex: childStart, streamMode: e.streamMode}
	if err := fn(sub); err != nil {
		return 0, nil, err
	}
	e.nextIndex = sub.nextIndex
	return slot, buf.Bytes(), nil
}

// emitContainer looks up body (a container's fully encoded form, including
// its own header) in the cache by content; on a hit it writes a cache
// reference instead and releases the reserved slot, on a miss it registers
// body under slot and writes it verbatim.
func (e *Encoder) emitContainer(kind byte, slot int, body []byte) error {
	if e.streamMode {
		_, err := e.w.Write(body)
		return err
	}
	key := cacheKey{kind: kind, raw: string(body)}
	if idx, ok := e.cache[key]; ok {
		// A body identical to a cached one registered nothing new while it
		// was encoded, so the counter goes back to the reserved slot.
		e.nextIndex = slot
		return writeHeader(e.w, typeCacheRef, uint64(idx))
	}
	e.cache[key] = slot
	_, err := e.w.Write(body)
	return err
}

func timeToUnix(t Time) int64 {
	return time.Time(t).Unix()
}
