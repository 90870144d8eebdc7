package ebml

import (
	"testing"

	"github.com/onsi/gomega"
)

func TestNewIntWidths(t *testing.T) {
	g := gomega.NewWithT(t)

	cases := []struct {
		v     int64
		width int
	}{
		{0, 0},
		{1, 1},
		{-1, 1},
		{-129, 2},
		{128, 2},
		{-32_769, 3},
		{32_768, 3},
		{-8_388_609, 4},
		{8_388_608, 4},
		{-2_147_483_649, 5},
		{2_147_483_648, 5},
		{-549_755_813_889, 6},
		{549_755_813_888, 6},
		{-140_737_488_355_329, 7},
		{140_737_488_355_328, 7},
		{-36_028_797_018_963_969, 8},
		{36_028_797_018_963_968, 8},
	}
	for _, c := range cases {
		val := NewInt(c.v)
		g.Expect(val.EncodedByteSize()).To(gomega.Equal(uint64(c.width)), "value %d", c.v)
		got, ok := val.Int()
		g.Expect(ok).To(gomega.BeTrue())
		g.Expect(got).To(gomega.Equal(c.v))
	}
}

func TestNewUintWidths(t *testing.T) {
	g := gomega.NewWithT(t)

	cases := []struct {
		v     uint64
		width int
	}{
		{0, 0},
		{1, 1},
		{256, 2},
		{65_536, 3},
		{16_777_216, 4},
		{4_294_967_296, 5},
		{1_099_511_627_776, 6},
		{281_474_976_710_656, 7},
		{72_057_594_037_927_936, 8},
	}
	for _, c := range cases {
		val := NewUint(c.v)
		g.Expect(val.EncodedByteSize()).To(gomega.Equal(uint64(c.width)), "value %d", c.v)
		got, ok := val.Uint()
		g.Expect(ok).To(gomega.BeTrue())
		g.Expect(got).To(gomega.Equal(c.v))
	}
}

func TestFloatWidths(t *testing.T) {
	g := gomega.NewWithT(t)

	z32 := NewFloat32(0.0)
	g.Expect(z32.EncodedByteSize()).To(gomega.Equal(uint64(0)))
	f, ok := z32.Float()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(f).To(gomega.Equal(0.0))

	one32 := NewFloat32(1.0)
	g.Expect(one32.EncodedByteSize()).To(gomega.Equal(uint64(4)))
	f, _ = one32.Float()
	g.Expect(f).To(gomega.Equal(1.0))

	z64 := NewFloat64(0.0)
	g.Expect(z64.EncodedByteSize()).To(gomega.Equal(uint64(0)))

	one64 := NewFloat64(1.0)
	g.Expect(one64.EncodedByteSize()).To(gomega.Equal(uint64(8)))
	f, _ = one64.Float()
	g.Expect(f).To(gomega.Equal(1.0))

	var raw [10]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	f10 := NewFloat10(raw)
	g.Expect(f10.EncodedByteSize()).To(gomega.Equal(uint64(10)))
	got, ok := f10.Float10()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(got).To(gomega.Equal(raw))
	_, ok = f10.Float()
	g.Expect(ok).To(gomega.BeFalse())
}

func TestStringPaddingAffectsSizeNotRepr(t *testing.T) {
	g := gomega.NewWithT(t)

	plain := NewString("abcd")
	g.Expect(plain.EncodedByteSize()).To(gomega.Equal(uint64(4)))
	s, ok := plain.StringValue()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(s).To(gomega.Equal("abcd"))

	padded := NewStringWithPadding("asdfg", 100)
	g.Expect(padded.EncodedByteSize()).To(gomega.Equal(uint64(105)))
	s, _ = padded.StringValue()
	g.Expect(s).To(gomega.Equal("asdfg"))
}

func TestBinaryValue(t *testing.T) {
	g := gomega.NewWithT(t)

	bin := NewBinary([]byte{0x01, 0x02})
	g.Expect(bin.EncodedByteSize()).To(gomega.Equal(uint64(2)))
	got, ok := bin.Binary()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(got).To(gomega.Equal([]byte{0x01, 0x02}))
}

func TestValueEncodeDecodeRoundTrip(t *testing.T) {
	g := gomega.NewWithT(t)

	intVal := NewInt(-8_388_609)
	raw, err := Encode(intVal)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	decoded, err := DecodeValue(KindInt, raw)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	got, ok := decoded.Int()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(got).To(gomega.Equal(int64(-8_388_609)))

	uintVal := NewUint(4_294_967_296)
	raw, err = Encode(uintVal)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	decoded, err = DecodeValue(KindUint, raw)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	gotU, ok := decoded.Uint()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(gotU).To(gomega.Equal(uint64(4_294_967_296)))

	strVal := NewStringWithPadding("hello", 3)
	raw, err = Encode(strVal)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(len(raw)).To(gomega.Equal(8))
	decoded, err = DecodeValue(KindString, raw)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	gotS, ok := decoded.StringValue()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(gotS).To(gomega.Equal("hello"))
	g.Expect(decoded.EncodedByteSize()).To(gomega.Equal(uint64(8)))
}

func TestDateRoundTripsThroughUnixNanos(t *testing.T) {
	g := gomega.NewWithT(t)

	val, err := NewDateFromUnixSeconds(1_492_661_200) // 2017-04-20T04:06:40Z
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(val.EncodedByteSize()).To(gomega.Equal(uint64(8)))

	unixNanos, ok := val.UnixNanos()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(unixNanos).To(gomega.Equal(int64(1_492_661_200_000_000_000)))
}

func TestDecodeValueRejectsInvalidFloatWidth(t *testing.T) {
	g := gomega.NewWithT(t)

	_, err := DecodeValue(KindFloat, []byte{0x00, 0x01, 0x02})
	g.Expect(err).To(gomega.HaveOccurred())
}
