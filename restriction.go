package ebml

// Restriction is a value-range predicate attached to an ElementType. Every
// restriction is a pure function of a Value and is safe to share between
// readers.
type Restriction interface {
	// Matches reports whether value satisfies the restriction. A value of
	// a kind the restriction doesn't apply to never matches.
	Matches(Value) bool
}

// Intersection matches iff every child restriction matches.
type Intersection struct {
	children []Restriction
}

// NewIntersection composes children into a Restriction that matches iff
// all of them do.
func NewIntersection(children ...Restriction) Intersection {
	return Intersection{children: append([]Restriction(nil), children...)}
}

func (r Intersection) Matches(v Value) bool {
	for _, child := range r.children {
		if !child.Matches(v) {
			return false
		}
	}
	return true
}

// Union matches iff any child restriction matches. A plain slice of
// same-kind range items (IntRangeList, UintRangeList, ...) is itself interpreted
// as a union, per their Matches implementations below.
type Union struct {
	children []Restriction
}

// NewUnion composes children into a Restriction that matches iff any of
// them does.
func NewUnion(children ...Restriction) Union {
	return Union{children: append([]Restriction(nil), children...)}
}

func (r Union) Matches(v Value) bool {
	for _, child := range r.children {
		if child.Matches(v) {
			return true
		}
	}
	return false
}

// intRangeKind classifies an IntRangeItem's shape.
type intRangeKind int

const (
	intSingle intRangeKind = iota
	intFrom
	intTo
	intBounded
)

// IntRangeItem restricts Int values: Single(v), From{min} (min..), To{max}
// (..max), or Bounded{min,max} (min..=max), all inclusive.
type IntRangeItem struct {
	kind     intRangeKind
	single   int64
	min, max int64
}

func IntSingle(v int64) IntRangeItem            { return IntRangeItem{kind: intSingle, single: v} }
func IntFrom(min int64) IntRangeItem            { return IntRangeItem{kind: intFrom, min: min} }
func IntTo(max int64) IntRangeItem              { return IntRangeItem{kind: intTo, max: max} }
func IntBounded(min, max int64) IntRangeItem    { return IntRangeItem{kind: intBounded, min: min, max: max} }

func (r IntRangeItem) Matches(v Value) bool {
	value, ok := v.Int()
	if !ok {
		return false
	}
	switch r.kind {
	case intSingle:
		return value == r.single
	case intFrom:
		return value >= r.min
	case intTo:
		return value <= r.max
	case intBounded:
		return value >= r.min && value <= r.max
	default:
		return false
	}
}

// IntRangeList is a slice of IntRangeItems interpreted as a union: a value
// matches if it satisfies any item.
type IntRangeList []IntRangeItem

func (rs IntRangeList) Matches(v Value) bool {
	for _, r := range rs {
		if r.Matches(v) {
			return true
		}
	}
	return false
}

// uintRangeKind classifies an UintRangeItem's shape. Uint has no To
// variant: the implicit lower bound is 0.
type uintRangeKind int

const (
	uintSingle uintRangeKind = iota
	uintFrom
	uintBounded
)

// UintRangeItem restricts Uint values: Single(v), From{min} (min..), or
// Bounded{min,max} (min..=max), all inclusive.
type UintRangeItem struct {
	kind     uintRangeKind
	single   uint64
	min, max uint64
}

func UintSingle(v uint64) UintRangeItem         { return UintRangeItem{kind: uintSingle, single: v} }
func UintFrom(min uint64) UintRangeItem         { return UintRangeItem{kind: uintFrom, min: min} }
func UintBounded(min, max uint64) UintRangeItem { return UintRangeItem{kind: uintBounded, min: min, max: max} }

func (r UintRangeItem) Matches(v Value) bool {
	value, ok := v.Uint()
	if !ok {
		return false
	}
	switch r.kind {
	case uintSingle:
		return value == r.single
	case uintFrom:
		return value >= r.min
	case uintBounded:
		return value >= r.min && value <= r.max
	default:
		return false
	}
}

// UintRangeList is a slice of UintRangeItems interpreted as a union.
type UintRangeList []UintRangeItem

func (rs UintRangeList) Matches(v Value) bool {
	for _, r := range rs {
		if r.Matches(v) {
			return true
		}
	}
	return false
}

// FloatRangeItem restricts Float values of width 0, 4, or 8. Each endpoint
// carries its own inclusive/exclusive flag. A 10-byte Float never matches,
// since its payload is opaque.
type FloatRangeItem struct {
	hasMin                 bool
	min                    float64
	minInclusive           bool
	hasMax                 bool
	max                    float64
	maxInclusive           bool
}

// FloatOpenLeft restricts to values <= max (or < max if !inclusive).
func FloatOpenLeft(max float64, inclusive bool) FloatRangeItem {
	return FloatRangeItem{hasMax: true, max: max, maxInclusive: inclusive}
}

// FloatOpenRight restricts to values >= min (or > min if !inclusive).
func FloatOpenRight(min float64, inclusive bool) FloatRangeItem {
	return FloatRangeItem{hasMin: true, min: min, minInclusive: inclusive}
}

// FloatClosed restricts to values between min and max, each independently
// inclusive or exclusive.
func FloatClosed(min float64, minInclusive bool, max float64, maxInclusive bool) FloatRangeItem {
	return FloatRangeItem{hasMin: true, min: min, minInclusive: minInclusive, hasMax: true, max: max, maxInclusive: maxInclusive}
}

func (r FloatRangeItem) Matches(v Value) bool {
	if v.Kind() != KindFloat {
		return false
	}
	x, ok := v.Float()
	if !ok {
		return false // 10-byte float: opaque, always fails
	}
	if r.hasMin {
		if r.minInclusive {
			if x < r.min {
				return false
			}
		} else if x <= r.min {
			return false
		}
	}
	if r.hasMax {
		if r.maxInclusive {
			if x > r.max {
				return false
			}
		} else if x >= r.max {
			return false
		}
	}
	return true
}

// DateRangeItem restricts Date values, expressed in nanoseconds since the
// 2001-01-01 millennium epoch, closed on both sides where bounded.
type DateRangeItem struct {
	hasMin   bool
	min      int64
	hasMax   bool
	max      int64
}

func DateOpenLeft(max int64) DateRangeItem         { return DateRangeItem{hasMax: true, max: max} }
func DateOpenRight(min int64) DateRangeItem        { return DateRangeItem{hasMin: true, min: min} }
func DateClosed(min, max int64) DateRangeItem      { return DateRangeItem{hasMin: true, min: min, hasMax: true, max: max} }

func (r DateRangeItem) Matches(v Value) bool {
	value, ok := v.Date()
	if !ok {
		return false
	}
	if r.hasMin && value < r.min {
		return false
	}
	if r.hasMax && value > r.max {
		return false
	}
	return true
}

// StringRangeItem restricts every Unicode scalar value (codepoint) in a
// String value to lie in [Min, Max] (or equal Single). Scalar values run
// 0..=0x10FFFF, excluding the surrogate range, matching Go's rune type.
type StringRangeItem struct {
	single   rune
	hasRange bool
	min, max rune
}

func StringSingle(r rune) StringRangeItem          { return StringRangeItem{single: r} }
func StringOpenRight(min rune) StringRangeItem     { return StringRangeItem{hasRange: true, min: min, max: 0x10FFFF} }
func StringClosed(min, max rune) StringRangeItem   { return StringRangeItem{hasRange: true, min: min, max: max} }

func (r StringRangeItem) matchesRune(c rune) bool {
	if r.hasRange {
		return c >= r.min && c <= r.max
	}
	return c == r.single
}

func (r StringRangeItem) Matches(v Value) bool {
	s, ok := v.StringValue()
	if !ok {
		return false
	}
	for _, c := range s {
		if !r.matchesRune(c) {
			return false
		}
	}
	return true
}

// StringRangeList is a slice of StringRangeItems interpreted as a union
// per-codepoint: every codepoint in the string must match at least one
// item in the list.
type StringRangeList []StringRangeItem

func (rs StringRangeList) Matches(v Value) bool {
	s, ok := v.StringValue()
	if !ok {
		return false
	}
	for _, c := range s {
		matched := false
		for _, r := range rs {
			if r.matchesRune(c) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// BinaryRangeItem restricts every byte in a Binary value to lie in
// [Min, Max] (or equal Single). Bytes run 0..=0xFF.
type BinaryRangeItem struct {
	single   byte
	hasRange bool
	min, max byte
}

func BinarySingle(b byte) BinaryRangeItem        { return BinaryRangeItem{single: b} }
func BinaryOpenRight(min byte) BinaryRangeItem   { return BinaryRangeItem{hasRange: true, min: min, max: 0xFF} }
func BinaryClosed(min, max byte) BinaryRangeItem { return BinaryRangeItem{hasRange: true, min: min, max: max} }

func (r BinaryRangeItem) matchesByte(b byte) bool {
	if r.hasRange {
		return b >= r.min && b <= r.max
	}
	return b == r.single
}

func (r BinaryRangeItem) Matches(v Value) bool {
	data, ok := v.Binary()
	if !ok {
		return false
	}
	for _, b := range data {
		if !r.matchesByte(b) {
			return false
		}
	}
	return true
}

// BinaryRangeList is a slice of BinaryRangeItems interpreted as a union
// per-byte.
type BinaryRangeList []BinaryRangeItem

func (rs BinaryRangeList) Matches(v Value) bool {
	data, ok := v.Binary()
	if !ok {
		return false
	}
	for _, b := range data {
		matched := false
		for _, r := range rs {
			if r.matchesByte(b) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
