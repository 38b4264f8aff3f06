// Package boss implements the binary, back-reference-aware serialization
// format ("boss") used to shuttle structured values between the module
// loader, the secure session protocol, and the async runtime's wire-level
// neighbors.
//
// The wire format is a tagged value universe (ints, strings, bytes, arrays,
// mappings, doubles, booleans, timestamps) encoded with a 3-bit type code
// plus a variable-length value, and an encoder-local cache of
// previously-seen strings/bytes/arrays/maps that lets repeated values be
// emitted once and referenced thereafter.
package boss

import "time"

// Map preserves insertion order on iteration — a plain Go map cannot do
// that, so mappings are modeled as an ordered slice of key/value pairs
// instead.
type Map struct {
	keys   []string
	values []Value
	index  map[string]int
}

// NewMap creates an empty ordered mapping.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Set inserts or updates a key, preserving first-insertion order.
func (m *Map) Set(key string, v Value) *Map {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.values[i] = v
		return m
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
	return m
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil || m.index == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. Callers must not mutate the
// returned slice.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Each iterates entries in insertion order.
func (m *Map) Each(fn func(key string, v Value)) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		fn(k, m.values[i])
	}
}

// Equal reports structural equality: same keys in the same order with equal values.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k {
			return false
		}
		if !Equal(m.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

// Array is an ordered list of tagged values.
type Array []Value

// Value is the tagged-value universe: one of Int, String, Bytes, Array,
// *Map, float64, bool, or Time (a time.Time wrapper, second resolution);
// a bare time.Time is not accepted by the encoder. A nil Value
// represents no value at all and is never itself a valid member — callers
// build values from the concrete Go types above.
type Value any

// Int wraps an arbitrary-precision-capable signed integer. The wire format
// supports unbounded magnitude; Go's int64 covers every value this runtime
// produces or expects to decode (timestamps, lengths, counters), so Int is
// a plain int64 rather than *big.Int.
type Int int64

// String is a UTF-8 string value, distinct from the Go built-in only to
// select the correct wire type code at encode time (a bare Go string could
// otherwise be mistaken for Bytes).
type String string

// Bytes is an opaque byte sequence value.
type Bytes []byte

// Time is a wall-clock instant with second resolution.
type Time time.Time

// Equal reports whether two tagged values are structurally equal, so that
// decoding an encoded value always reproduces the original.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytesEqual(av, bv)
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case Time:
		bv, ok := b.(Time)
		return ok && time.Time(av).Equal(time.Time(bv))
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case nil:
		return b == nil
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
