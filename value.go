package ebml

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// ValueKind identifies which of the six leaf value kinds a Value holds.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindUint
	KindFloat
	KindDate
	KindString
	KindBinary
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// unixToMillenniumNanos is the number of nanoseconds between the Unix epoch
// (1970-01-01T00:00:00Z) and the EBML "millennium" epoch (2001-01-01T00:00:00Z).
const unixToMillenniumNanos = 978_307_200_000_000_000
const unixToMillenniumSeconds = 978_307_200

// Value is a typed EBML leaf value. Each numeric/float kind carries a
// "stored width" reflecting the exact number of bytes its wire encoding
// occupies; string and binary report their encoded byte size directly.
// The zero Value is not meaningful — always construct one via a New*
// function or DecodeValue.
type Value struct {
	kind ValueKind

	width int // byte width for Int/Uint/Float; 8 for Date

	i       int64   // Int, Date (nanos since millennium)
	u       uint64  // Uint
	f       float64 // Float, when width is 0, 4, or 8
	f10     [10]byte
	hasF10  bool
	s       string
	padding int
	b       []byte
}

// Kind reports which leaf value kind this Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// EncodedByteSize returns the number of bytes this value occupies on the
// wire, including any string padding.
func (v Value) EncodedByteSize() uint64 {
	switch v.kind {
	case KindString:
		return uint64(len(v.s) + v.padding)
	case KindBinary:
		return uint64(len(v.b))
	default:
		return uint64(v.width)
	}
}

// intWidthFor returns the smallest big-endian two's-complement byte width
// (0..8) whose range contains data; width 0 is reserved for the value 0.
func intWidthFor(data int64) int {
	if data == 0 {
		return 0
	}
	for w := 1; w <= 8; w++ {
		bits := uint(8 * w)
		if w == 8 {
			return 8 // every remaining int64 fits in 8 bytes
		}
		max := int64(1)<<(bits-1) - 1
		min := -(int64(1) << (bits - 1))
		if data >= min && data <= max {
			return w
		}
	}
	return 8
}

// uintWidthFor returns the smallest big-endian byte width (0..8) whose
// range contains data; width 0 is reserved for the value 0.
func uintWidthFor(data uint64) int {
	if data == 0 {
		return 0
	}
	for w := 1; w < 8; w++ {
		max := uint64(1)<<(8*w) - 1
		if data <= max {
			return w
		}
	}
	return 8
}

// NewInt constructs an Int value, choosing the smallest width whose
// two's-complement range contains v.
func NewInt(v int64) Value {
	return Value{kind: KindInt, width: intWidthFor(v), i: v}
}

// NewUint constructs an Uint value, choosing the smallest width whose
// range contains v.
func NewUint(v uint64) Value {
	return Value{kind: KindUint, width: uintWidthFor(v), u: v}
}

// NewFloat32 constructs a 4-byte Float value, or the 0-byte Float if v is
// exactly 0.0.
func NewFloat32(v float32) Value {
	if v == 0 {
		return Value{kind: KindFloat, width: 0}
	}
	return Value{kind: KindFloat, width: 4, f: float64(v)}
}

// NewFloat64 constructs an 8-byte Float value, or the 0-byte Float if v is
// exactly 0.0.
func NewFloat64(v float64) Value {
	if v == 0 {
		return Value{kind: KindFloat, width: 0}
	}
	return Value{kind: KindFloat, width: 8, f: v}
}

// NewFloat10 constructs a 10-byte Float value from its opaque wire bytes.
// This library does not interpret 80-bit extended-precision floats; raw is
// carried as-is and any Restriction check against it always fails.
func NewFloat10(raw [10]byte) Value {
	return Value{kind: KindFloat, width: 10, f10: raw, hasF10: true}
}

// NewDate constructs a Date value from nanoseconds since the EBML
// millennium epoch, 2001-01-01T00:00:00Z.
func NewDate(nanosSinceMillennium int64) Value {
	return Value{kind: KindDate, width: 8, i: nanosSinceMillennium}
}

// NewDateFromUnixNanos constructs a Date value from nanoseconds since the
// Unix epoch, returning an error if the conversion underflows int64.
func NewDateFromUnixNanos(unixNanos int64) (Value, error) {
	const threshold = math.MinInt64 + unixToMillenniumNanos
	if unixNanos < threshold {
		return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("date value out of range"))
	}
	return NewDate(unixNanos - unixToMillenniumNanos), nil
}

// NewDateFromUnixSeconds constructs a Date value from seconds since the
// Unix epoch, returning an error if the conversion overflows.
func NewDateFromUnixSeconds(unixSeconds int64) (Value, error) {
	seconds := unixSeconds - unixToMillenniumSeconds
	const nanosPerSecond = 1_000_000_000
	if seconds > math.MaxInt64/nanosPerSecond || seconds < math.MinInt64/nanosPerSecond {
		return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("date value out of range"))
	}
	return NewDate(seconds * nanosPerSecond), nil
}

// NewString constructs a String value with no padding.
func NewString(s string) Value {
	return Value{kind: KindString, width: len(s), s: s}
}

// NewStringWithPadding constructs a String value with paddingLen zero
// bytes appended on the wire; the padding is reflected in
// EncodedByteSize but not in the canonical representation returned by
// String().
func NewStringWithPadding(s string, paddingLen int) Value {
	return Value{kind: KindString, width: len(s), s: s, padding: paddingLen}
}

// NewBinary constructs a Binary value.
func NewBinary(b []byte) Value {
	return Value{kind: KindBinary, width: len(b), b: append([]byte(nil), b...)}
}

// Int returns the canonical signed representation and true, if this Value
// holds an Int.
func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Uint returns the canonical unsigned representation and true, if this
// Value holds an Uint.
func (v Value) Uint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}
	return v.u, true
}

// Float returns the canonical float64 representation and true, if this
// Value holds a Float of width 0, 4, or 8. A 10-byte Float returns
// (0, false); use Float10 instead.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat || v.width == 10 {
		return 0, false
	}
	return v.f, true
}

// Float10 returns the opaque 10-byte payload and true, if this Value
// holds a 10-byte Float.
func (v Value) Float10() ([10]byte, bool) {
	if v.kind != KindFloat || !v.hasF10 {
		return [10]byte{}, false
	}
	return v.f10, true
}

// Date returns the nanoseconds-since-millennium representation and true,
// if this Value holds a Date.
func (v Value) Date() (int64, bool) {
	if v.kind != KindDate {
		return 0, false
	}
	return v.i, true
}

// UnixNanos converts a Date value to nanoseconds since the Unix epoch.
func (v Value) UnixNanos() (int64, bool) {
	nanos, ok := v.Date()
	if !ok {
		return 0, false
	}
	return nanos + unixToMillenniumNanos, true
}

// StringValue returns the canonical representation (padding dropped) and
// true, if this Value holds a String.
func (v Value) StringValue() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Binary returns the raw bytes and true, if this Value holds Binary.
func (v Value) Binary() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	return v.b, true
}

// DecodeValue interprets raw, the exact payload bytes of an element, as a
// value of the given kind. kind is supplied by the caller (normally the
// schema's ElementType for the element's ID); EBML payload bytes do not
// self-describe their kind.
func DecodeValue(kind ValueKind, raw []byte) (Value, error) {
	switch kind {
	case KindInt:
		if len(raw) > 8 {
			return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("int value has %d bytes, max is 8", len(raw)))
		}
		var u uint64
		for _, b := range raw {
			u = u<<8 | uint64(b)
		}
		if len(raw) > 0 && len(raw) < 8 && raw[0]&0x80 != 0 {
			u |= ^uint64(0) << uint(8*len(raw))
		}
		return Value{kind: KindInt, width: len(raw), i: int64(u)}, nil

	case KindUint:
		if len(raw) > 8 {
			return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("uint value has %d bytes, max is 8", len(raw)))
		}
		var u uint64
		for _, b := range raw {
			u = u<<8 | uint64(b)
		}
		return Value{kind: KindUint, width: len(raw), u: u}, nil

	case KindFloat:
		switch len(raw) {
		case 0:
			return Value{kind: KindFloat, width: 0}, nil
		case 4:
			bits := binary.BigEndian.Uint32(raw)
			return Value{kind: KindFloat, width: 4, f: float64(math.Float32frombits(bits))}, nil
		case 8:
			bits := binary.BigEndian.Uint64(raw)
			return Value{kind: KindFloat, width: 8, f: math.Float64frombits(bits)}, nil
		case 10:
			var f10 [10]byte
			copy(f10[:], raw)
			return Value{kind: KindFloat, width: 10, f10: f10, hasF10: true}, nil
		default:
			return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("float value has %d bytes, must be 0, 4, 8, or 10", len(raw)))
		}

	case KindDate:
		if len(raw) != 8 {
			return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("date value has %d bytes, must be 8", len(raw)))
		}
		nanos := int64(binary.BigEndian.Uint64(raw))
		return Value{kind: KindDate, width: 8, i: nanos}, nil

	case KindString:
		end := len(raw)
		for end > 0 && raw[end-1] == 0x00 {
			end--
		}
		if !utf8.Valid(raw[:end]) {
			return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("string value is not valid utf-8"))
		}
		return Value{kind: KindString, width: end, s: string(raw[:end]), padding: len(raw) - end}, nil

	case KindBinary:
		return Value{kind: KindBinary, width: len(raw), b: append([]byte(nil), raw...)}, nil

	default:
		return Value{}, newError(ErrMalformedDocument, "", fmt.Errorf("unknown value kind %v", kind))
	}
}

// Encode renders v to its exact wire-payload bytes.
func Encode(v Value) ([]byte, error) {
	switch v.kind {
	case KindInt:
		out := make([]byte, v.width)
		u := uint64(v.i)
		for i := v.width - 1; i >= 0; i-- {
			out[i] = byte(u)
			u >>= 8
		}
		return out, nil

	case KindUint:
		out := make([]byte, v.width)
		u := v.u
		for i := v.width - 1; i >= 0; i-- {
			out[i] = byte(u)
			u >>= 8
		}
		return out, nil

	case KindFloat:
		switch v.width {
		case 0:
			return nil, nil
		case 4:
			out := make([]byte, 4)
			binary.BigEndian.PutUint32(out, math.Float32bits(float32(v.f)))
			return out, nil
		case 8:
			out := make([]byte, 8)
			binary.BigEndian.PutUint64(out, math.Float64bits(v.f))
			return out, nil
		case 10:
			if !v.hasF10 {
				return nil, newError(ErrMalformedDocument, "", fmt.Errorf("10-byte float value has no payload"))
			}
			out := make([]byte, 10)
			copy(out, v.f10[:])
			return out, nil
		default:
			return nil, newError(ErrMalformedDocument, "", fmt.Errorf("invalid float width %d", v.width))
		}

	case KindDate:
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, uint64(v.i))
		return out, nil

	case KindString:
		out := make([]byte, len(v.s)+v.padding)
		copy(out, v.s)
		return out, nil

	case KindBinary:
		return append([]byte(nil), v.b...), nil

	default:
		return nil, newError(ErrMalformedDocument, "", fmt.Errorf("unknown value kind %v", v.kind))
	}
}
