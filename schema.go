package ebml

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/segmentio/encoding/json"
)

// Cardinality constrains how many times a child type may occur under a
// given parent. Reader and Writer check only the lower bound: an
// ExactlyOne or OneOrMany child must occur at least once. Upper bounds
// (ZeroOrOne, ExactlyOne) are not checked; a repeated child is accepted.
type Cardinality int

const (
	// CardinalityZeroOrMany permits any number of occurrences, including
	// none.
	CardinalityZeroOrMany Cardinality = iota
	// CardinalityZeroOrOne permits at most one occurrence.
	CardinalityZeroOrOne
	// CardinalityExactlyOne requires exactly one occurrence.
	CardinalityExactlyOne
	// CardinalityOneOrMany requires at least one occurrence.
	CardinalityOneOrMany
)

func (c Cardinality) String() string {
	switch c {
	case CardinalityZeroOrMany:
		return "ZeroOrMany"
	case CardinalityZeroOrOne:
		return "ZeroOrOne"
	case CardinalityExactlyOne:
		return "ExactlyOne"
	case CardinalityOneOrMany:
		return "OneOrMany"
	default:
		return "Unknown"
	}
}

// required reports whether this cardinality obligates at least one
// occurrence.
func (c Cardinality) required() bool {
	return c == CardinalityExactlyOne || c == CardinalityOneOrMany
}

// ChildOrder says whether a container's children must appear in the order
// its schema declares them.
type ChildOrder int

const (
	// ChildOrderSignificant declares that children appear in declaration
	// order. Reader does not check the order; it reports this setting as
	// Event.Ordered on BeginContainer.
	ChildOrderSignificant ChildOrder = iota
	// ChildOrderInsignificant permits children in any order.
	ChildOrderInsignificant
)

func (o ChildOrder) String() string {
	if o == ChildOrderSignificant {
		return "Significant"
	}
	return "Insignificant"
}

// LevelAny is the wildcard nesting-level bound: "unconstrained" for either
// MinAllowedLevel or MaxAllowedLevel.
const LevelAny = -1

// MaxLevelCeiling stands in for a true right-unbounded nesting maximum,
// which this library does not model; schema authors wanting "as deep as
// the document goes" should use this value rather than LevelAny, which
// instead means "no constraint at all" (also matches at level 0).
const MaxLevelCeiling = 1 << 16

// ElementType describes a leaf EBML element in a schema: its identity,
// value kind, cardinality under its parent, nesting bounds, optional
// default value, and optional value Restriction.
type ElementType struct {
	Name            string
	ID              Id
	Kind            ValueKind
	Cardinality     Cardinality
	AllowedParent   *ContainerType // nil means "any container"
	MinAllowedLevel int            // LevelAny for unconstrained
	MaxAllowedLevel int            // LevelAny for unconstrained
	Default         *Value
	Restriction     Restriction // nil means no restriction
}

// ContainerType describes a container EBML element: the same identity and
// placement attributes as ElementType, plus ChildOrder.
type ContainerType struct {
	Name            string
	ID              Id
	Cardinality     Cardinality
	AllowedParent   *ContainerType
	MinAllowedLevel int
	MaxAllowedLevel int
	ChildOrder      ChildOrder
}

// ChildKind is the result of a schema child lookup: exactly one of Element
// or Container is set.
type ChildKind struct {
	Element   *ElementType
	Container *ContainerType
}

// IsContainer reports whether the looked-up child is a container.
func (c ChildKind) IsContainer() bool { return c.Container != nil }

// Name returns the child's symbolic name regardless of which field is set.
func (c ChildKind) Name() string {
	if c.Container != nil {
		return c.Container.Name
	}
	if c.Element != nil {
		return c.Element.Name
	}
	return ""
}

// identifierPattern matches the EDTD identifier grammar
// ([A-Za-z_][A-Za-z0-9_]*), reused here so hand-built schemas use names the
// EDTD parser could also produce.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema is an immutable-after-construction, ID-keyed description of the
// element and container types legal for a document type. A Schema may be
// shared between multiple Readers.
type Schema struct {
	elementsByID     map[uint32]*ElementType
	containersByID   map[uint32]*ContainerType
	elementsByName   map[string]*ElementType
	containersByName map[string]*ContainerType
	root             *ContainerType
}

// NewSchema constructs an empty Schema with no element or container types.
func NewSchema() *Schema {
	return &Schema{
		elementsByID:     make(map[uint32]*ElementType),
		containersByID:   make(map[uint32]*ContainerType),
		elementsByName:   make(map[string]*ElementType),
		containersByName: make(map[string]*ContainerType),
	}
}

func (s *Schema) nameTaken(name string) bool {
	_, e := s.elementsByName[name]
	_, c := s.containersByName[name]
	return e || c
}

func (s *Schema) idTaken(id Id) bool {
	_, e := s.elementsByID[id.Encoded()]
	_, c := s.containersByID[id.Encoded()]
	return e || c
}

// AddElementType registers et in the schema, after validating its name
// against the identifier grammar and checking that neither its name nor
// its ID is already registered.
func (s *Schema) AddElementType(et *ElementType) error {
	if !identifierPattern.MatchString(et.Name) {
		return newError(ErrSchemaConflict, et.Name, fmt.Errorf("name is not a valid identifier"))
	}
	if s.nameTaken(et.Name) {
		return newError(ErrSchemaConflict, et.Name, fmt.Errorf("name is already registered"))
	}
	if s.idTaken(et.ID) {
		return newError(ErrSchemaConflict, et.Name, fmt.Errorf("id %s is already registered", et.ID))
	}
	s.elementsByID[et.ID.Encoded()] = et
	s.elementsByName[et.Name] = et
	return nil
}

// AddContainerType registers ct in the schema, under the same validation
// as AddElementType.
func (s *Schema) AddContainerType(ct *ContainerType) error {
	if !identifierPattern.MatchString(ct.Name) {
		return newError(ErrSchemaConflict, ct.Name, fmt.Errorf("name is not a valid identifier"))
	}
	if s.nameTaken(ct.Name) {
		return newError(ErrSchemaConflict, ct.Name, fmt.Errorf("name is already registered"))
	}
	if s.idTaken(ct.ID) {
		return newError(ErrSchemaConflict, ct.Name, fmt.Errorf("id %s is already registered", ct.ID))
	}
	s.containersByID[ct.ID.Encoded()] = ct
	s.containersByName[ct.Name] = ct
	return nil
}

// ContainerByName looks up a previously registered container by name, for
// use as the AllowedParent of other types being built.
func (s *Schema) ContainerByName(name string) (*ContainerType, bool) {
	ct, ok := s.containersByName[name]
	return ct, ok
}

// ElementByName looks up a previously registered element by name, for
// callers (such as the edtd parser) that need to patch an element's
// attributes after StandardSchema has constructed it.
func (s *Schema) ElementByName(name string) (*ElementType, bool) {
	et, ok := s.elementsByName[name]
	return et, ok
}

// SetRoot designates ct as the schema's root container: the only type a
// Reader will accept as a document's first top-level id (spec.md
// invariant (c), "a schema is rooted at a single container type"). ct
// must already be registered in this schema via AddContainerType. Unlike
// an AllowedParent of nil — which only means "legal under any container,
// at any depth" and may describe more than one type, e.g. the standard
// CRC32 container — Root identifies exactly one type as the designated
// first element of a document.
func (s *Schema) SetRoot(ct *ContainerType) error {
	if s.containersByName[ct.Name] != ct {
		return newError(ErrSchemaConflict, ct.Name, fmt.Errorf("cannot be designated root: not registered in this schema"))
	}
	s.root = ct
	return nil
}

// Root returns the schema's designated root container, or nil if none has
// been set. A nil Root disables Reader's first-id check entirely, for
// schemas (typically ad hoc ones built directly with NewSchema for
// testing) that don't model a real document type with a fixed header.
func (s *Schema) Root() *ContainerType { return s.root }

func legalChild(allowedParent, parent *ContainerType, minLevel, maxLevel, level int) bool {
	if allowedParent != nil && allowedParent != parent {
		return false
	}
	if minLevel != LevelAny && level < minLevel {
		return false
	}
	if maxLevel != LevelAny && level > maxLevel {
		return false
	}
	return true
}

// LookupChild reports the ChildKind of id as a child of parent at nesting
// level level, per the legality rule: AllowedParent must be parent or the
// Any wildcard, and level must fall within MinAllowedLevel..MaxAllowedLevel
// (each independently possibly LevelAny).
func (s *Schema) LookupChild(parent *ContainerType, id Id, level int) (ChildKind, bool) {
	if et, ok := s.elementsByID[id.Encoded()]; ok {
		if legalChild(et.AllowedParent, parent, et.MinAllowedLevel, et.MaxAllowedLevel, level) {
			return ChildKind{Element: et}, true
		}
		return ChildKind{}, false
	}
	if ct, ok := s.containersByID[id.Encoded()]; ok {
		if legalChild(ct.AllowedParent, parent, ct.MinAllowedLevel, ct.MaxAllowedLevel, level) {
			return ChildKind{Container: ct}, true
		}
		return ChildKind{}, false
	}
	return ChildKind{}, false
}

type schemaDumpElement struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Cardinality string `json:"cardinality"`
}

type schemaDumpContainer struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Cardinality string `json:"cardinality"`
	ChildOrder  string `json:"childOrder"`
}

type schemaDump struct {
	Elements   []schemaDumpElement   `json:"elements"`
	Containers []schemaDumpContainer `json:"containers"`
}

// MarshalJSON renders the schema's element and container tables for
// debugging/introspection, sorted by name for stable output. Restrictions,
// defaults, and parent/level constraints are not serialized; this is a
// human-readable summary, not a round-trippable encoding.
func (s *Schema) MarshalJSON() ([]byte, error) {
	dump := schemaDump{}
	for _, et := range s.elementsByName {
		dump.Elements = append(dump.Elements, schemaDumpElement{
			Name:        et.Name,
			ID:          et.ID.String(),
			Kind:        et.Kind.String(),
			Cardinality: et.Cardinality.String(),
		})
	}
	for _, ct := range s.containersByName {
		dump.Containers = append(dump.Containers, schemaDumpContainer{
			Name:        ct.Name,
			ID:          ct.ID.String(),
			Cardinality: ct.Cardinality.String(),
			ChildOrder:  ct.ChildOrder.String(),
		})
	}
	sort.Slice(dump.Elements, func(i, j int) bool { return dump.Elements[i].Name < dump.Elements[j].Name })
	sort.Slice(dump.Containers, func(i, j int) bool { return dump.Containers[i].Name < dump.Containers[j].Name })
	return json.Marshal(dump)
}

// StandardSchema returns a Schema containing the standard EBML header
// container and its seven optional children, plus the CRC32 container
// (with its required CRC32Value) and Void, shared by every EBML document
// type regardless of DocType.
func StandardSchema() *Schema {
	s := NewSchema()

	header := &ContainerType{
		Name:            "EBML",
		ID:              mustID(NewClassD(0x0A45DFA3)),
		Cardinality:     CardinalityZeroOrMany,
		AllowedParent:   nil, // Any: a document may repeat the header before new segments
		MinAllowedLevel: 0,
		MaxAllowedLevel: 0,
		ChildOrder:      ChildOrderSignificant,
	}
	must(s.AddContainerType(header))
	must(s.SetRoot(header))

	uintDefault := func(v uint64) *Value { val := NewUint(v); return &val }

	must(s.AddElementType(&ElementType{
		Name: "EBMLVersion", ID: mustID(FromEncoded(0x4286)), Kind: KindUint,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny, Default: uintDefault(1),
	}))
	must(s.AddElementType(&ElementType{
		Name: "EBMLReadVersion", ID: mustID(FromEncoded(0x42F7)), Kind: KindUint,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny, Default: uintDefault(1),
	}))
	must(s.AddElementType(&ElementType{
		Name: "EBMLMaxIDWidth", ID: mustID(FromEncoded(0x42F2)), Kind: KindUint,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny, Default: uintDefault(4),
	}))
	must(s.AddElementType(&ElementType{
		Name: "EBMLMaxSizeWidth", ID: mustID(FromEncoded(0x42F3)), Kind: KindUint,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny, Default: uintDefault(8),
	}))
	must(s.AddElementType(&ElementType{
		Name: "DocType", ID: mustID(FromEncoded(0x4282)), Kind: KindString,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny,
		Restriction: StringClosed(0x20, 0x7E),
	}))
	must(s.AddElementType(&ElementType{
		Name: "DocTypeVersion", ID: mustID(FromEncoded(0x4287)), Kind: KindUint,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny, Default: uintDefault(1),
	}))
	must(s.AddElementType(&ElementType{
		Name: "DocTypeReadVersion", ID: mustID(FromEncoded(0x4285)), Kind: KindUint,
		Cardinality: CardinalityZeroOrOne, AllowedParent: header,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny, Default: uintDefault(1),
	}))

	crc32 := &ContainerType{
		Name:            "CRC32",
		ID:              mustID(FromEncoded(0xC3)),
		Cardinality:     CardinalityZeroOrMany,
		AllowedParent:   nil,
		MinAllowedLevel: LevelAny,
		MaxAllowedLevel: LevelAny,
		ChildOrder:      ChildOrderSignificant,
	}
	must(s.AddContainerType(crc32))
	must(s.AddElementType(&ElementType{
		Name: "CRC32Value", ID: mustID(FromEncoded(0x42FE)), Kind: KindBinary,
		Cardinality: CardinalityExactlyOne, AllowedParent: crc32,
		MinAllowedLevel: LevelAny, MaxAllowedLevel: LevelAny,
	}))

	must(s.AddElementType(&ElementType{
		Name: "Void", ID: mustID(FromEncoded(0xEC)), Kind: KindBinary,
		Cardinality: CardinalityZeroOrMany, AllowedParent: nil,
		MinAllowedLevel: 1, MaxAllowedLevel: 8192,
	}))

	return s
}

// mustID panics if constructing a well-known standard ID fails; every
// call site above uses a constant that is known in advance to be valid.
func mustID(id Id, err error) Id {
	if err != nil {
		panic(err)
	}
	return id
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
