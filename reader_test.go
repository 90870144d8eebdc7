package ebml

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/onsi/gomega"
)

func newTestReader(g *gomega.WithT, data []byte, schema *Schema) *Reader {
	src, err := NewPeekReader(bytes.NewReader(data))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	return NewReader(src, schema)
}

// TestReaderMinimumValidHeader reproduces the smallest legal document: an
// EBML header declaring a finite size that exactly covers a single DocType
// child, followed by clean end of input.
func TestReaderMinimumValidHeader(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{
		0x1A, 0x45, 0xDF, 0xA3, // EBML header id
		0x87,             // declared size 7 = DocType id(2) + size(1) + payload(4)
		0x42, 0x82,       // DocType id
		0x84,             // size 4
		0x74, 0x65, 0x73, 0x74, // "test"
	}
	r := newTestReader(g, data, StandardSchema())

	ev, err := r.Next()
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventBeginContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("EBML"))
	size, ok := ev.DeclaredSize.Value()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(size).To(gomega.Equal(uint64(7)))

	ev, err = r.Next()
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventValue))
	g.Expect(ev.Element.Name).To(gomega.Equal("DocType"))
	s, ok := ev.Value.StringValue()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(s).To(gomega.Equal("test"))

	ev, err = r.Next()
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventEndContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("EBML"))

	_, err = r.Next()
	g.Expect(err).To(gomega.Equal(io.EOF))
}

// TestReaderUnknownSizeContainerEndsOnIllegalOuterChild builds a three-level
// schema (P > A > X, with sibling element B legal only under P) and a
// document where A declares an unknown size. A's content is a single X
// value; the stream then presents B's id, which is not a legal child of A.
// The reader must close A without consuming B's id, letting P consume it on
// the next call.
func TestReaderUnknownSizeContainerEndsOnIllegalOuterChild(t *testing.T) {
	g := gomega.NewWithT(t)

	s := NewSchema()
	p := &ContainerType{Name: "P", ID: mustID(NewClassA(0x10)), Cardinality: CardinalityZeroOrMany,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny}
	g.Expect(s.AddContainerType(p)).To(gomega.Succeed())
	a := &ContainerType{Name: "A", ID: mustID(NewClassA(0x11)), Cardinality: CardinalityZeroOrMany,
		AllowedParent: p, MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny}
	g.Expect(s.AddContainerType(a)).To(gomega.Succeed())
	g.Expect(s.AddElementType(&ElementType{Name: "X", ID: mustID(NewClassA(0x12)), Kind: KindUint,
		Cardinality: CardinalityZeroOrMany, AllowedParent: a, MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny})).To(gomega.Succeed())
	g.Expect(s.AddElementType(&ElementType{Name: "B", ID: mustID(NewClassA(0x13)), Kind: KindUint,
		Cardinality: CardinalityZeroOrMany, AllowedParent: p, MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny})).To(gomega.Succeed())

	data := []byte{
		0x90, 0x88, // P id, size 8
		0x91, 0xFF, // A id, unknown size
		0x92, 0x81, 0x05, // X id, size 1, value 5
		0x93, 0x81, 0x07, // B id, size 1, value 7
	}
	r := newTestReader(g, data, s)

	ev, err := r.Next() // BeginContainer(P)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventBeginContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("P"))

	ev, err = r.Next() // BeginContainer(A), unknown size
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventBeginContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("A"))
	g.Expect(ev.DeclaredSize.IsUnknown()).To(gomega.BeTrue())

	ev, err = r.Next() // Value(X=5)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventValue))
	got, _ := ev.Value.Uint()
	g.Expect(got).To(gomega.Equal(uint64(5)))

	ev, err = r.Next() // EndContainer(A), B's id left unconsumed
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventEndContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("A"))

	ev, err = r.Next() // Value(B=7), consumed by P
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventValue))
	g.Expect(ev.Element.Name).To(gomega.Equal("B"))
	got, _ = ev.Value.Uint()
	g.Expect(got).To(gomega.Equal(uint64(7)))

	ev, err = r.Next() // EndContainer(P), budget exhausted
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventEndContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("P"))

	_, err = r.Next()
	g.Expect(err).To(gomega.Equal(io.EOF))
}

// TestReaderUnexpectedChildInFiniteContainer puts an illegal id inside a
// finite-sized container, which must fail immediately rather than close the
// container the way an unknown-size one would.
func TestReaderUnexpectedChildInFiniteContainer(t *testing.T) {
	g := gomega.NewWithT(t)

	s := NewSchema()
	p := &ContainerType{Name: "P", ID: mustID(NewClassA(0x10)), Cardinality: CardinalityZeroOrMany,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny}
	g.Expect(s.AddContainerType(p)).To(gomega.Succeed())
	a := &ContainerType{Name: "A", ID: mustID(NewClassA(0x11)), Cardinality: CardinalityZeroOrMany,
		AllowedParent: p, MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny}
	g.Expect(s.AddContainerType(a)).To(gomega.Succeed())
	g.Expect(s.AddElementType(&ElementType{Name: "B", ID: mustID(NewClassA(0x13)), Kind: KindUint,
		Cardinality: CardinalityZeroOrMany, AllowedParent: p, MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny})).To(gomega.Succeed())

	data := []byte{
		0x90, 0x83, // P id, size 3
		0x91, 0x81, // A id, size 1 (finite)
		0x93, 0x81, 0x07, // B id: illegal under A
	}
	r := newTestReader(g, data, s)

	_, err := r.Next() // BeginContainer(P)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	ev, err := r.Next() // BeginContainer(A)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventBeginContainer))

	_, err = r.Next()
	g.Expect(err).To(gomega.HaveOccurred())
	var ebmlErr *Error
	g.Expect(errors.As(err, &ebmlErr)).To(gomega.BeTrue())
	g.Expect(ebmlErr.Kind).To(gomega.Equal(ErrUnexpectedChild))

	// The Reader is now terminal: further calls return the same error.
	_, err2 := r.Next()
	g.Expect(err2).To(gomega.Equal(err))
}

// TestReaderTruncatedPayload declares a payload larger than what the
// underlying source actually has left to read.
func TestReaderTruncatedPayload(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{
		0x1A, 0x45, 0xDF, 0xA3, // EBML header id
		0x8B,             // declared size 11 (irrelevant; truncation hits first)
		0x42, 0x82,       // DocType id
		0x88,             // declared payload size 8
		0x74, 0x65, 0x73, 0x74, 0x6B, 0x61, // only 6 bytes: "testka"
	}
	r := newTestReader(g, data, StandardSchema())

	_, err := r.Next() // BeginContainer(EBML)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	_, err = r.Next()
	g.Expect(err).To(gomega.HaveOccurred())
	var ebmlErr *Error
	g.Expect(errors.As(err, &ebmlErr)).To(gomega.BeTrue())
	g.Expect(ebmlErr.Kind).To(gomega.Equal(ErrTruncatedInput))
}

// TestReaderRestrictionViolation supplies a DocType payload byte outside the
// ASCII-printable restriction StandardSchema declares for it.
func TestReaderRestrictionViolation(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{
		0x1A, 0x45, 0xDF, 0xA3, // EBML header id
		0x84,       // declared size 4 = DocType id(2) + size(1) + payload(1)
		0x42, 0x82, // DocType id
		0x81,       // size 1
		0x1F,       // below the 0x20 floor
	}
	r := newTestReader(g, data, StandardSchema())

	_, err := r.Next() // BeginContainer(EBML)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	_, err = r.Next()
	g.Expect(err).To(gomega.HaveOccurred())
	var ebmlErr *Error
	g.Expect(errors.As(err, &ebmlErr)).To(gomega.BeTrue())
	g.Expect(ebmlErr.Kind).To(gomega.Equal(ErrRestrictionViolated))
}

// TestReaderMissingRequiredChild opens a CRC32 container with zero children,
// even though CRC32Value is declared CardinalityExactlyOne under it. The
// document must still begin with the EBML header, so an empty one precedes
// the CRC32 container.
func TestReaderMissingRequiredChild(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{
		0x1A, 0x45, 0xDF, 0xA3, 0x80, // EBML header id, size 0
		0xC3, 0x80, // CRC32 id, size 0
	}
	r := newTestReader(g, data, StandardSchema())

	ev, err := r.Next() // BeginContainer(EBML)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventBeginContainer))

	ev, err = r.Next() // EndContainer(EBML), size 0
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventEndContainer))

	ev, err = r.Next() // BeginContainer(CRC32)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(ev.Kind).To(gomega.Equal(EventBeginContainer))
	g.Expect(ev.Container.Name).To(gomega.Equal("CRC32"))

	_, err = r.Next()
	g.Expect(err).To(gomega.HaveOccurred())
	var ebmlErr *Error
	g.Expect(errors.As(err, &ebmlErr)).To(gomega.BeTrue())
	g.Expect(ebmlErr.Kind).To(gomega.Equal(ErrMissingRequiredChild))
}

// TestReaderWrongRootID confirms that a document opening with any id other
// than the schema's designated root — even one otherwise legal anywhere,
// like CRC32's AllowedParent-nil container — is rejected as ErrWrongID
// rather than silently accepted as the document's first element.
func TestReaderWrongRootID(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{
		0xC3, 0x80, // CRC32 id, size 0 — not the EBML header
	}
	r := newTestReader(g, data, StandardSchema())

	_, err := r.Next()
	g.Expect(err).To(gomega.HaveOccurred())
	var ebmlErr *Error
	g.Expect(errors.As(err, &ebmlErr)).To(gomega.BeTrue())
	g.Expect(ebmlErr.Kind).To(gomega.Equal(ErrWrongID))
}
