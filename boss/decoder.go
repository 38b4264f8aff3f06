package boss

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Decoder reads values from an underlying reader using the boss wire
// format. It auto-switches to stream mode upon reading the STREAM_MODE
// marker, mirroring the encoder's mode change.
type Decoder struct {
	r          *bufio.Reader
	cache      []Value
	streamMode bool
}

// NewDecoder creates a decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: br}
}

// Decode reads and returns the next value.
func (d *Decoder) Decode() (Value, error) {
	typeCode, value, err := readHeader(d.r)
	if err != nil {
		return nil, err
	}
	switch typeCode {
	case typeIntPositive:
		return Int(value), nil
	case typeIntNegative:
		return Int(-int64(value)), nil
	case typeExtra:
		return d.decodeExtra(value)
	case typeString:
		return d.decodeString(value)
	case typeBytes:
		return d.decodeBytes(value)
	case typeCacheRef:
		return d.decodeCacheRef(value)
	case typeArray:
		return d.decodeArray(value)
	case typeMapping:
		return d.decodeMapping(value)
	default:
		return nil, decodingError("unknown type code %d", typeCode)
	}
}

func (d *Decoder) decodeExtra(sub uint64) (Value, error) {
	switch sub {
	case extraDZero:
		return Int(0), nil
	case extraDOne:
		return Int(1), nil
	case extraDMinusOne:
		return Int(-1), nil
	case extraDouble:
		var buf [8]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return nil, decodingError("read double: %v", err)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
	case extraTrue:
		return true, nil
	case extraFalse:
		return false, nil
	case extraTime:
		typeCode, value, err := readHeader(d.r)
		if err != nil {
			return nil, decodingError("read time payload: %v", err)
		}
		if typeCode != typeIntPositive {
			return nil, decodingError("time payload must be a non-negative integer, got type code %d", typeCode)
		}
		return Time(time.Unix(int64(value), 0).UTC()), nil
	case extraStreamMode:
		d.streamMode = true
		return d.Decode()
	default:
		return nil, decodingError("unknown extra subcode %d", sub)
	}
}

func (d *Decoder) decodeString(length uint64) (Value, error) {
	if length == 0 {
		return String(""), nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, decodingError("read string: %v", err)
	}
	v := String(buf)
	if !d.streamMode {
		d.cache = append(d.cache, v)
	}
	return v, nil
}

func (d *Decoder) decodeBytes(length uint64) (Value, error) {
	if length == 0 {
		return Bytes(nil), nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, decodingError("read bytes: %v", err)
	}
	v := Bytes(buf)
	if !d.streamMode {
		d.cache = append(d.cache, v)
	}
	return v, nil
}

func (d *Decoder) decodeCacheRef(index uint64) (Value, error) {
	if index >= uint64(len(d.cache)) {
		return nil, decodingError("cache reference %d out of range (cache has %d entries)", index, len(d.cache))
	}
	return d.cache[index], nil
}

func (d *Decoder) decodeArray(count uint64) (Value, error) {
	// Reserve the cache slot before decoding elements so a self-referencing
	// (or sibling-referencing) structure resolves correctly, matching the
	// encoder's "first appearance" ordering.
	placeholder := len(d.cache)
	if !d.streamMode {
		d.cache = append(d.cache, nil)
	}
	arr := make(Array, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := d.Decode()
		if err != nil {
			return nil, decodingError("array element %d: %v", i, err)
		}
		arr = append(arr, v)
	}
	if !d.streamMode {
		d.cache[placeholder] = arr
	}
	return arr, nil
}

func (d *Decoder) decodeMapping(count uint64) (Value, error) {
	placeholder := len(d.cache)
	if !d.streamMode {
		d.cache = append(d.cache, nil)
	}
	m := NewMap()
	for i := uint64(0); i < count; i++ {
		keyVal, err := d.Decode()
		if err != nil {
			return nil, decodingError("mapping key %d: %v", i, err)
		}
		key, ok := keyVal.(String)
		if !ok {
			return nil, decodingError("mapping key %d is not a string", i)
		}
		val, err := d.Decode()
		if err != nil {
			return nil, decodingError("mapping value for key %q: %v", key, err)
		}
		m.Set(string(key), val)
	}
	if !d.streamMode {
		d.cache[placeholder] = m
	}
	return m, nil
}

// Encode is a convenience one-shot helper: encode v to a fresh byte slice.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBytes is a convenience one-shot helper: decode the first value in b.
func DecodeBytes(b []byte) (Value, error) {
	return NewDecoder(bytes.NewReader(b)).Decode()
}
