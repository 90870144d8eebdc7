package ebml

import "fmt"

// Id is an EBML element ID: a Vint restricted to width 1-4 whose decoded
// value additionally falls inside one of four width-class ranges. Unlike a
// general Vint, an Id has no unknown-sentinel state.
type Id struct {
	value uint32
	width int
}

// idClassRanges gives the inclusive [min, max] decoded-value range legal
// for each width class, indexed by width-1.
var idClassRanges = [4][2]uint32{
	{0x01, 0x7E},             // Class A, width 1
	{0x7F, 0x3FFE},           // Class B, width 2
	{0x3FFF, 0x1F_FFFE},      // Class C, width 3
	{0x1F_FFFF, 0x0FFF_FFFE}, // Class D, width 4
}

// DecodeId decodes an Id from the front of peeked. It decodes the
// underlying Vint and then, per this library's stricter-than-upstream
// contract, verifies the decoded value lies in the width's class range
// before accepting it — a Vint of width <= 4 whose value falls in a gap
// (e.g. width 2 holding 0x50, below Class B's 0x7F floor) is ErrIdOutOfRange,
// not a silently accepted ID.
func DecodeId(peeked []byte) (Id, int, error) {
	v, n, err := DecodeVint(peeked)
	if err != nil {
		return Id{}, 0, err
	}
	if v.IsUnknown() || v.Width() > 4 {
		return Id{}, 0, newError(ErrIdOutOfRange, "", fmt.Errorf("width %d is not a valid id width", v.Width()))
	}
	value, _ := v.Value()
	lo, hi := idClassRanges[v.Width()-1][0], idClassRanges[v.Width()-1][1]
	if uint32(value) < lo || uint32(value) > hi {
		return Id{}, 0, newError(ErrIdOutOfRange, "", fmt.Errorf("decoded value 0x%X is outside the class-%d range 0x%X..0x%X", value, v.Width(), lo, hi))
	}
	return Id{value: uint32(value), width: v.Width()}, n, nil
}

// NewClassA constructs a width-1 Id from its decoded (not wire-encoded)
// value, 0x01..0x7E.
func NewClassA(value uint8) (Id, error) { return newClassId(uint32(value), 1) }

// NewClassB constructs a width-2 Id from its decoded value, 0x7F..0x3FFE.
func NewClassB(value uint16) (Id, error) { return newClassId(uint32(value), 2) }

// NewClassC constructs a width-3 Id from its decoded value, 0x3FFF..0x1FFFFE.
func NewClassC(value uint32) (Id, error) { return newClassId(value, 3) }

// NewClassD constructs a width-4 Id from its decoded value, 0x1FFFFF..0xFFFFFFE.
func NewClassD(value uint32) (Id, error) { return newClassId(value, 4) }

func newClassId(value uint32, width int) (Id, error) {
	lo, hi := idClassRanges[width-1][0], idClassRanges[width-1][1]
	if value < lo || value > hi {
		return Id{}, newError(ErrIdOutOfRange, "", fmt.Errorf("value 0x%X is outside the class-%d range 0x%X..0x%X", value, width, lo, hi))
	}
	return Id{value: value, width: width}, nil
}

// FromEncoded classifies the literal wire-form integer data (marker bits
// still in place, as quoted in EBML documentation, e.g. 0x1A45DFA3 for the
// EBML header) into the Id it represents, or an error if data does not fall
// in any width class's encoded range.
func FromEncoded(data uint32) (Id, error) {
	switch {
	case data >= 0x0000_0080 && data <= 0x0000_00FE:
		return NewClassA(uint8(data & 0x7F))
	case data >= 0x0000_4000 && data <= 0x0000_7FFF:
		return NewClassB(uint16(data & 0x3FFF))
	case data >= 0x0020_0000 && data <= 0x003F_FFFF:
		return NewClassC(data & 0x1F_FFFF)
	case data >= 0x1000_0000 && data <= 0x1FFF_FFFF:
		return NewClassD(data & 0x0FFF_FFFF)
	default:
		return Id{}, newError(ErrIdOutOfRange, "", fmt.Errorf("0x%X is not a valid encoded id", data))
	}
}

// Width returns the ID's class width, 1-4.
func (id Id) Width() int { return id.width }

// Decoded returns the ID's decoded numeric value, i.e. the value without
// its marker bit(s).
func (id Id) Decoded() uint32 { return id.value }

// Encoded returns the ID's literal wire-form integer, marker bits included,
// as EBML documentation conventionally quotes IDs (e.g. 0x1A45DFA3).
func (id Id) Encoded() uint32 {
	tailLen := id.width - 1
	marker := uint32(1) << uint(7-tailLen+8*tailLen)
	return marker | id.value
}

// Encode renders this Id to its minimal wire form.
func (id Id) Encode() ([]byte, error) {
	v := Vint{value: uint64(id.value), width: id.width}
	return v.Encode()
}

// Equal reports whether two Ids denote the same element.
func (id Id) Equal(other Id) bool {
	return id.value == other.value && id.width == other.width
}

func (id Id) String() string {
	return fmt.Sprintf("0x%X", id.Encoded())
}
