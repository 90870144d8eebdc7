package edtd

import (
	"testing"

	"github.com/onsi/gomega"
	"github.com/zrneely/ebml"
)

// TestParseHeaderBlock reproduces spec.md's header-value worked example,
// checking that a declare header block overrides the standard DocType
// element's Default.
func TestParseHeaderBlock(t *testing.T) {
	g := gomega.NewWithT(t)

	schema, err := Parse(`
		declare header {
			DocType := "my-format";
			DocTypeVersion := 3;
		}
	`)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	docType, ok := schema.ElementByName("DocType")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(docType.Default).NotTo(gomega.BeNil())
	s, ok := docType.Default.StringValue()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(s).To(gomega.Equal("my-format"))

	version, ok := schema.ElementByName("DocTypeVersion")
	g.Expect(ok).To(gomega.BeTrue())
	u, ok := version.Default.Uint()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(u).To(gomega.Equal(uint64(3)))
}

// TestParseNamedTypeAlias reproduces the worked example from spec.md's EDTD
// section: a bounded int type with a default, referenced later by name.
func TestParseNamedTypeAlias(t *testing.T) {
	g := gomega.NewWithT(t)

	schema, err := Parse(`
		Foo := int [ range: -25..100; def: 25; ];
		Bar := Foo [ id: 0x4DBB; parent: EBML; card: ?; ];
	`)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	bar, ok := schema.ElementByName("Bar")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(bar.Kind).To(gomega.Equal(ebml.KindInt))
	g.Expect(bar.Cardinality).To(gomega.Equal(ebml.CardinalityZeroOrOne))

	i, ok := bar.Default.Int()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(i).To(gomega.Equal(int64(25)))

	g.Expect(bar.Restriction.Matches(ebml.NewInt(0))).To(gomega.BeTrue())
	g.Expect(bar.Restriction.Matches(ebml.NewInt(200))).To(gomega.BeFalse())

	ebmlContainer, ok := schema.ContainerByName("EBML")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(bar.AllowedParent).To(gomega.Equal(ebmlContainer))
}

// TestParseElementDeclaration checks id/parent/level/card properties on a
// direct (non-aliased) value type.
func TestParseElementDeclaration(t *testing.T) {
	g := gomega.NewWithT(t)

	schema, err := Parse(`
		Segment := container [ id: 0x18538067; parent: EBML; card: 1; ];
		Track := uint [ id: 0xAE; parent: Segment; level: 1..2; card: *; range: 0..255; ];
	`)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	segment, ok := schema.ContainerByName("Segment")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(segment.Cardinality).To(gomega.Equal(ebml.CardinalityExactlyOne))

	track, ok := schema.ElementByName("Track")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(track.AllowedParent).To(gomega.Equal(segment))
	g.Expect(track.MinAllowedLevel).To(gomega.Equal(1))
	g.Expect(track.MaxAllowedLevel).To(gomega.Equal(2))
	g.Expect(track.Cardinality).To(gomega.Equal(ebml.CardinalityZeroOrMany))
	g.Expect(track.Restriction.Matches(ebml.NewUint(10))).To(gomega.BeTrue())
	g.Expect(track.Restriction.Matches(ebml.NewUint(1000))).To(gomega.BeFalse())
}

// TestParseOrderedContainer checks that the ordered property controls
// ChildOrder.
func TestParseOrderedContainer(t *testing.T) {
	g := gomega.NewWithT(t)

	schema, err := Parse(`
		Chapters := container [ id: 0x1043A770; parent: EBML; ordered: yes; ];
	`)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	chapters, ok := schema.ContainerByName("Chapters")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(chapters.ChildOrder).To(gomega.Equal(ebml.ChildOrderSignificant))
}

// TestParseFloatRange exercises the float range's explicit inclusive/
// exclusive bound syntax.
func TestParseFloatRange(t *testing.T) {
	g := gomega.NewWithT(t)

	schema, err := Parse(`
		Gain := float [ id: 0x9F; parent: EBML; range: 0.0<=..<1.0; ];
	`)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	gain, ok := schema.ElementByName("Gain")
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(gain.Restriction.Matches(ebml.NewFloat64(0.0))).To(gomega.BeTrue())
	g.Expect(gain.Restriction.Matches(ebml.NewFloat64(0.999))).To(gomega.BeTrue())
	g.Expect(gain.Restriction.Matches(ebml.NewFloat64(1.0))).To(gomega.BeFalse())
}

// TestParseDateDefault exercises a full date literal default value.
func TestParseDateDefault(t *testing.T) {
	g := gomega.NewWithT(t)

	schema, err := Parse(`
		Timestamp := date [ id: 0x4461; parent: EBML; def: 20010101T00:00:01; ];
	`)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	ts, ok := schema.ElementByName("Timestamp")
	g.Expect(ok).To(gomega.BeTrue())
	nanos, ok := ts.Default.Date()
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(nanos).To(gomega.Equal(int64(1_000_000_000)))
}

// TestParseMultiParentRejected confirms the deliberate restriction that a
// type may declare at most one parent, since AllowedParent is a single
// pointer in the compiled schema.
func TestParseMultiParentRejected(t *testing.T) {
	g := gomega.NewWithT(t)

	_, err := Parse(`
		Foo := uint [ id: 0x9F; parent: EBML, CRC32; ];
	`)
	g.Expect(err).To(gomega.HaveOccurred())
	var ee *ebml.Error
	g.Expect(err).To(gomega.BeAssignableToTypeOf(ee))
}

// TestParseSyntaxError confirms a malformed declaration surfaces as
// ErrEdtdSyntax with a *SyntaxError cause.
func TestParseSyntaxError(t *testing.T) {
	g := gomega.NewWithT(t)

	_, err := Parse(`Foo := ;`)
	g.Expect(err).To(gomega.HaveOccurred())

	ee, ok := err.(*ebml.Error)
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(ee.Kind).To(gomega.Equal(ebml.ErrEdtdSyntax))

	var se *SyntaxError
	g.Expect(ee.Err).To(gomega.BeAssignableToTypeOf(se))
}

// TestParseUnknownParent confirms an unresolved parent name compiles to a
// schema-conflict error rather than panicking.
func TestParseUnknownParent(t *testing.T) {
	g := gomega.NewWithT(t)

	_, err := Parse(`
		Foo := uint [ id: 0x9F; parent: NoSuchContainer; ];
	`)
	g.Expect(err).To(gomega.HaveOccurred())
	ee, ok := err.(*ebml.Error)
	g.Expect(ok).To(gomega.BeTrue())
	g.Expect(ee.Kind).To(gomega.Equal(ebml.ErrSchemaConflict))
}
