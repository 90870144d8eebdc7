package edtd

import "github.com/zrneely/ebml"

// file is the parsed, uncompiled shape of an EDTD source: the header block
// statements (if any) followed by the sequence of type declarations, in
// source order. compile walks this into an *ebml.Schema.
type file struct {
	headers []headerStmt
	decls   []typeDecl
}

// literalKind classifies a header statement's value, mirroring the seven
// shapes spec.md §4.7 names for hblock values.
type literalKind int

const (
	litUint literalKind = iota
	litInt
	litFloat
	litDate
	litString
	litBinary
	litNamed
)

// headerStmt is one `name := value;` line inside a `declare header { }`
// block. Its value sets the Default of the standard header element of the
// same name, when one exists (see compile).
type headerStmt struct {
	offset int
	name   string
	kind   literalKind

	u     uint64
	i     int64
	f     float64
	date  int64 // nanoseconds since the 2001-01-01 millennium epoch
	s     string
	b     []byte
	named string
}

// typeKind classifies what a typeDecl's right-hand side names.
type typeKind int

const (
	kindInt typeKind = iota
	kindUint
	kindFloat
	kindDate
	kindString
	kindBinary
	kindContainer
	kindNamed // references a previously declared typeDecl by name
)

// typeDecl is one `name := kind [ properties ];` declaration. A decl that
// carries an id property names an actual schema element or container
// (kindContainer, or any value kind); one without is a reusable named-type
// alias that a later decl's kindNamed may reference.
type typeDecl struct {
	offset int
	name   string
	kind   typeKind
	ref    string // set when kind == kindNamed

	hasID bool
	id    uint32 // wire-form (marker bits included), per FromEncoded

	parents []string // AllowedParent candidates; exactly one is expected once resolved

	hasLevel       bool
	levelMin       int
	levelHasMax    bool
	levelMax       int

	hasCard bool
	card    ebml.Cardinality

	hasOrdered bool
	ordered    bool

	restriction ebml.Restriction
	def         *ebml.Value
}
