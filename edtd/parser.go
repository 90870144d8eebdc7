package edtd

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zrneely/ebml"
)

// millennium is the EBML Date epoch: 2001-01-01T00:00:00Z.
var millennium = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Parse compiles EDTD source text into a Schema seeded with the standard
// EBML header (ebml.StandardSchema) plus every element and container type
// the text declares. It is one-shot: the full input is lexed and parsed
// before compilation begins, per the lexer's complete-input discipline
// (see lex's doc comment and DESIGN.md).
func Parse(src string) (*ebml.Schema, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, wrapSyntax(err)
	}
	p := &parser{toks: toks}
	f, err := p.parseFile()
	if err != nil {
		return nil, wrapSyntax(err)
	}
	schema, err := compile(f)
	if err != nil {
		return nil, err
	}
	return schema, nil
}

func wrapSyntax(err error) error {
	se, ok := err.(*SyntaxError)
	if !ok {
		return err
	}
	return &ebml.Error{Kind: ebml.ErrEdtdSyntax, Err: se}
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool { return p.peek().kind == tokEOF }

func (p *parser) expectKind(k tokenKind, expected string) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, &SyntaxError{Offset: t.offset, Expected: expected, Found: t.text}
	}
	return p.next(), nil
}

func (p *parser) expectPunct(text string) (token, error) {
	t := p.peek()
	if t.kind != tokPunct || t.text != text {
		return token{}, &SyntaxError{Offset: t.offset, Expected: "'" + text + "'", Found: t.text}
	}
	return p.next(), nil
}

func (p *parser) expectIdent(text string) (token, error) {
	t := p.peek()
	if t.kind != tokIdent || t.text != text {
		return token{}, &SyntaxError{Offset: t.offset, Expected: "'" + text + "'", Found: t.text}
	}
	return p.next(), nil
}

func (p *parser) isPunct(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) parseFile() (*file, error) {
	f := &file{}
	for !p.atEOF() {
		t := p.peek()
		if t.kind == tokIdent && t.text == "declare" {
			stmts, err := p.parseHeaderBlock()
			if err != nil {
				return nil, err
			}
			f.headers = append(f.headers, stmts...)
			continue
		}
		d, err := p.parseTypeDecl()
		if err != nil {
			return nil, err
		}
		f.decls = append(f.decls, *d)
	}
	return f, nil
}

func (p *parser) parseHeaderBlock() ([]headerStmt, error) {
	if _, err := p.expectIdent("declare"); err != nil {
		return nil, err
	}
	if _, err := p.expectIdent("header"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []headerStmt
	for !p.isPunct("}") {
		st, err := p.parseHeaderStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, *st)
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

// parseHeaderStmt parses `name := value;`, choosing among the seven value
// shapes spec.md §4.7 lists by the lexed token's own kind and text shape
// (which already disambiguates Uint/Int/Float/Date the way the original
// parser's Uint-then-Int-then-Float alternative order does).
func (p *parser) parseHeaderStmt() (*headerStmt, error) {
	nameTok, err := p.expectKind(tokIdent, "a header field name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":="); err != nil {
		return nil, err
	}
	valTok := p.next()
	st := &headerStmt{offset: nameTok.offset, name: nameTok.text}
	switch valTok.kind {
	case tokNumber:
		if !strings.ContainsAny(valTok.text, ".eE") && !strings.HasPrefix(valTok.text, "-") {
			u, err := strconv.ParseUint(valTok.text, 10, 64)
			if err != nil {
				return nil, &SyntaxError{Offset: valTok.offset, Expected: "a uint literal", Found: valTok.text}
			}
			st.kind, st.u = litUint, u
		} else if !strings.ContainsAny(valTok.text, ".eE") {
			i, err := strconv.ParseInt(valTok.text, 10, 64)
			if err != nil {
				return nil, &SyntaxError{Offset: valTok.offset, Expected: "an int literal", Found: valTok.text}
			}
			st.kind, st.i = litInt, i
		} else {
			fl, err := strconv.ParseFloat(valTok.text, 64)
			if err != nil {
				return nil, &SyntaxError{Offset: valTok.offset, Expected: "a float literal", Found: valTok.text}
			}
			st.kind, st.f = litFloat, fl
		}
	case tokDate:
		nanos, err := parseDateLiteralText(valTok.text)
		if err != nil {
			return nil, err
		}
		st.kind, st.date = litDate, nanos
	case tokString:
		st.kind, st.s = litString, valTok.text
	case tokHex:
		b, err := decodeHex(valTok.text)
		if err != nil {
			return nil, err
		}
		if utf8.Valid(b) {
			st.kind, st.s = litString, string(b)
		} else {
			st.kind, st.b = litBinary, b
		}
	case tokIdent:
		st.kind, st.named = litNamed, valTok.text
	default:
		return nil, &SyntaxError{Offset: valTok.offset, Expected: "a header value", Found: valTok.text}
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return st, nil
}

var typeKeywords = map[string]typeKind{
	"int": kindInt, "uint": kindUint, "float": kindFloat,
	"date": kindDate, "string": kindString, "binary": kindBinary,
	"container": kindContainer,
}

func (p *parser) parseTypeDecl() (*typeDecl, error) {
	nameTok, err := p.expectKind(tokIdent, "a type name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":="); err != nil {
		return nil, err
	}
	kindTok, err := p.expectKind(tokIdent, "a type (int/uint/float/date/string/binary/container, or a previously declared name)")
	if err != nil {
		return nil, err
	}
	d := &typeDecl{offset: nameTok.offset, name: nameTok.text}
	if k, ok := typeKeywords[kindTok.text]; ok {
		d.kind = k
	} else {
		d.kind = kindNamed
		d.ref = kindTok.text
	}

	if p.isPunct("[") {
		p.next()
		for !p.isPunct("]") {
			if err := p.parseProperty(d); err != nil {
				return nil, err
			}
		}
		p.next() // "]"
	}
	if p.isPunct(";") {
		p.next()
	}
	return d, nil
}

var propertyNames = map[string]bool{
	"id": true, "parent": true, "level": true, "card": true,
	"ordered": true, "range": true, "def": true, "size": true,
}

func (p *parser) parseProperty(d *typeDecl) error {
	nameTok, err := p.expectKind(tokIdent, "a property name")
	if err != nil {
		return err
	}
	if !propertyNames[nameTok.text] {
		return &SyntaxError{Offset: nameTok.offset, Expected: "a known property (id/parent/level/card/ordered/range/def/size)", Found: nameTok.text}
	}
	if _, err := p.expectPunct(":"); err != nil {
		return err
	}

	switch nameTok.text {
	case "id":
		hexTok, err := p.expectKind(tokHex, "a hex id literal (0x...)")
		if err != nil {
			return err
		}
		b, err := decodeHex(hexTok.text)
		if err != nil {
			return err
		}
		id32, err := bytesToUint32(b)
		if err != nil {
			return &SyntaxError{Offset: hexTok.offset, Expected: "at most 4 id bytes", Found: hexTok.text}
		}
		d.hasID, d.id = true, id32

	case "parent":
		first, err := p.expectKind(tokIdent, "a parent type name")
		if err != nil {
			return err
		}
		d.parents = []string{first.text}
		for p.isPunct(",") {
			p.next()
			nt, err := p.expectKind(tokIdent, "a parent type name")
			if err != nil {
				return err
			}
			d.parents = append(d.parents, nt.text)
		}

	case "level":
		startTok, err := p.expectKind(tokNumber, "a level lower bound")
		if err != nil {
			return err
		}
		start, err := strconv.ParseUint(startTok.text, 10, 32)
		if err != nil {
			return &SyntaxError{Offset: startTok.offset, Expected: "a non-negative integer", Found: startTok.text}
		}
		if _, err := p.expectPunct(".."); err != nil {
			return err
		}
		d.hasLevel, d.levelMin = true, int(start)
		if p.peek().kind == tokNumber {
			endTok := p.next()
			end, err := strconv.ParseUint(endTok.text, 10, 32)
			if err != nil {
				return &SyntaxError{Offset: endTok.offset, Expected: "a non-negative integer", Found: endTok.text}
			}
			d.levelHasMax, d.levelMax = true, int(end)
		}

	case "card":
		t := p.next()
		switch {
		case t.kind == tokPunct && t.text == "*":
			d.card = ebml.CardinalityZeroOrMany
		case t.kind == tokPunct && t.text == "?":
			d.card = ebml.CardinalityZeroOrOne
		case t.kind == tokPunct && t.text == "+":
			d.card = ebml.CardinalityOneOrMany
		case t.kind == tokNumber && t.text == "1":
			d.card = ebml.CardinalityExactlyOne
		default:
			return &SyntaxError{Offset: t.offset, Expected: "one of * ? 1 +", Found: t.text}
		}
		d.hasCard = true

	case "ordered":
		t := p.next()
		switch {
		case t.kind == tokIdent && t.text == "yes", t.kind == tokNumber && t.text == "1":
			d.ordered = true
		case t.kind == tokIdent && t.text == "no", t.kind == tokNumber && t.text == "0":
			d.ordered = false
		default:
			return &SyntaxError{Offset: t.offset, Expected: "yes, no, 1, or 0", Found: t.text}
		}
		d.hasOrdered = true

	case "size":
		// Parsed for EDTD compatibility but not wired: spec.md's
		// ContainerType carries no size-restriction attribute. See
		// DESIGN.md.
		if _, err := p.parseUintRangeItems(); err != nil {
			return err
		}
		if _, err := p.expectPunct(";"); err == nil {
			return nil
		}
		return &SyntaxError{Offset: p.peek().offset, Expected: "';'", Found: p.peek().text}

	case "range":
		r, err := p.parseRange(d.kind)
		if err != nil {
			return err
		}
		d.restriction = r

	case "def":
		v, err := p.parseDefault(d.kind)
		if err != nil {
			return err
		}
		d.def = v
	}

	if nameTok.text != "size" {
		if _, err := p.expectPunct(";"); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseRange(k typeKind) (ebml.Restriction, error) {
	var items []ebml.Restriction
	for {
		var item ebml.Restriction
		var err error
		switch k {
		case kindInt:
			item, err = p.parseIntRangeItem()
		case kindUint:
			item, err = p.parseUintRangeItemAsRestriction()
		case kindFloat:
			item, err = p.parseFloatRangeItem()
		case kindDate:
			item, err = p.parseDateRangeItem()
		case kindString:
			item, err = p.parseStringRangeItem()
		case kindBinary:
			item, err = p.parseBinaryRangeItem()
		default:
			return nil, &SyntaxError{Offset: p.peek().offset, Expected: "a range only applies to a value-bearing type"}
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.isPunct(",") {
			p.next()
			continue
		}
		break
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return ebml.NewUnion(items...), nil
}

func (p *parser) parseIntRangeItem() (ebml.Restriction, error) {
	if p.isPunct("..") {
		p.next()
		end, err := p.parseIntLit()
		if err != nil {
			return nil, err
		}
		return ebml.IntTo(end), nil
	}
	start, err := p.parseIntLit()
	if err != nil {
		return nil, err
	}
	if p.isPunct("..") {
		p.next()
		if p.peek().kind == tokNumber {
			end, err := p.parseIntLit()
			if err != nil {
				return nil, err
			}
			return ebml.IntBounded(start, end), nil
		}
		return ebml.IntFrom(start), nil
	}
	return ebml.IntSingle(start), nil
}

// rawUintRange is the shared shape behind a uint/string/binary range item:
// the original grammar derives string and binary ranges from the same
// uint-range syntax, reinterpreting the bounds as codepoints or bytes.
type rawUintRange struct {
	isSingle bool
	single   uint64
	hasMin   bool
	min      uint64
	hasMax   bool
	max      uint64
}

func (p *parser) parseUintRangeItems() ([]rawUintRange, error) {
	var items []rawUintRange
	for {
		item, err := p.parseRawUintRange()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.isPunct(",") {
			p.next()
			continue
		}
		return items, nil
	}
}

func (p *parser) parseRawUintRange() (rawUintRange, error) {
	start, err := p.parseUintLit()
	if err != nil {
		return rawUintRange{}, err
	}
	if p.isPunct("..") {
		p.next()
		if p.peek().kind == tokNumber {
			end, err := p.parseUintLit()
			if err != nil {
				return rawUintRange{}, err
			}
			return rawUintRange{hasMin: true, min: start, hasMax: true, max: end}, nil
		}
		return rawUintRange{hasMin: true, min: start}, nil
	}
	return rawUintRange{isSingle: true, single: start}, nil
}

func (p *parser) parseUintRangeItemAsRestriction() (ebml.Restriction, error) {
	r, err := p.parseRawUintRange()
	if err != nil {
		return nil, err
	}
	return rawToUintItem(r), nil
}

func rawToUintItem(r rawUintRange) ebml.UintRangeItem {
	switch {
	case r.isSingle:
		return ebml.UintSingle(r.single)
	case r.hasMax:
		return ebml.UintBounded(r.min, r.max)
	default:
		return ebml.UintFrom(r.min)
	}
}

func (p *parser) parseFloatRangeItem() (ebml.Restriction, error) {
	if p.isPunct("<") || p.isPunct("<=") {
		inc := p.next().text == "<="
		end, err := p.parseFloatLit()
		if err != nil {
			return nil, err
		}
		return ebml.FloatOpenLeft(end, inc), nil
	}
	if p.isPunct(">") || p.isPunct(">=") {
		inc := p.next().text == ">="
		start, err := p.parseFloatLit()
		if err != nil {
			return nil, err
		}
		return ebml.FloatOpenRight(start, inc), nil
	}
	start, err := p.parseFloatLit()
	if err != nil {
		return nil, err
	}
	if !p.isPunct("<") && !p.isPunct("<=") {
		return nil, &SyntaxError{Offset: p.peek().offset, Expected: "'<' or '<=' after a float range's start", Found: p.peek().text}
	}
	includeStart := p.next().text == "<="
	if _, err := p.expectPunct(".."); err != nil {
		return nil, err
	}
	if !p.isPunct("<") && !p.isPunct("<=") {
		return nil, &SyntaxError{Offset: p.peek().offset, Expected: "'<' or '<=' before a float range's end", Found: p.peek().text}
	}
	includeEnd := p.next().text == "<="
	end, err := p.parseFloatLit()
	if err != nil {
		return nil, err
	}
	return ebml.FloatClosed(start, includeStart, end, includeEnd), nil
}

func (p *parser) parseDateRangeItem() (ebml.Restriction, error) {
	if p.isPunct("..") {
		p.next()
		end, err := p.parseDateLit()
		if err != nil {
			return nil, err
		}
		return ebml.DateOpenLeft(end), nil
	}
	start, err := p.parseDateLit()
	if err != nil {
		return nil, err
	}
	if p.isPunct("..") {
		p.next()
		if p.peek().kind == tokDate || p.peek().kind == tokNumber {
			end, err := p.parseDateLit()
			if err != nil {
				return nil, err
			}
			return ebml.DateClosed(start, end), nil
		}
		return ebml.DateOpenRight(start), nil
	}
	return ebml.DateClosed(start, start), nil
}

// parseStringRangeItem/parseBinaryRangeItem reinterpret the uint-range
// grammar over Unicode scalar values / bytes, matching the original
// UintRangeItem::to_string_range_item/to_binary_range_item bound checks.
func (p *parser) parseStringRangeItem() (ebml.Restriction, error) {
	tok := p.peek()
	r, err := p.parseRawUintRange()
	if err != nil {
		return nil, err
	}
	const maxScalar = 0x10FFFF
	switch {
	case r.isSingle:
		if r.single > maxScalar {
			return nil, &SyntaxError{Offset: tok.offset, Expected: "a codepoint <= 0x10FFFF", Found: tok.text}
		}
		return ebml.StringSingle(rune(r.single)), nil
	case r.hasMax:
		if r.max > maxScalar {
			return nil, &SyntaxError{Offset: tok.offset, Expected: "a codepoint <= 0x10FFFF", Found: tok.text}
		}
		return ebml.StringClosed(rune(r.min), rune(r.max)), nil
	default:
		if r.min > maxScalar {
			return nil, &SyntaxError{Offset: tok.offset, Expected: "a codepoint <= 0x10FFFF", Found: tok.text}
		}
		return ebml.StringOpenRight(rune(r.min)), nil
	}
}

func (p *parser) parseBinaryRangeItem() (ebml.Restriction, error) {
	tok := p.peek()
	r, err := p.parseRawUintRange()
	if err != nil {
		return nil, err
	}
	const maxByte = 0xFF
	switch {
	case r.isSingle:
		if r.single > maxByte {
			return nil, &SyntaxError{Offset: tok.offset, Expected: "a byte value <= 0xFF", Found: tok.text}
		}
		return ebml.BinarySingle(byte(r.single)), nil
	case r.hasMax:
		if r.max > maxByte {
			return nil, &SyntaxError{Offset: tok.offset, Expected: "a byte value <= 0xFF", Found: tok.text}
		}
		return ebml.BinaryClosed(byte(r.min), byte(r.max)), nil
	default:
		if r.min > maxByte {
			return nil, &SyntaxError{Offset: tok.offset, Expected: "a byte value <= 0xFF", Found: tok.text}
		}
		return ebml.BinaryOpenRight(byte(r.min)), nil
	}
}

func (p *parser) parseDefault(k typeKind) (*ebml.Value, error) {
	var v ebml.Value
	switch k {
	case kindInt:
		i, err := p.parseIntLit()
		if err != nil {
			return nil, err
		}
		v = ebml.NewInt(i)
	case kindUint:
		u, err := p.parseUintLit()
		if err != nil {
			return nil, err
		}
		v = ebml.NewUint(u)
	case kindFloat:
		f, err := p.parseFloatLit()
		if err != nil {
			return nil, err
		}
		v = ebml.NewFloat64(f)
	case kindDate:
		d, err := p.parseDateLit()
		if err != nil {
			return nil, err
		}
		v = ebml.NewDate(d)
	case kindString:
		t := p.peek()
		switch t.kind {
		case tokString:
			p.next()
			v = ebml.NewString(t.text)
		case tokHex:
			p.next()
			b, err := decodeHex(t.text)
			if err != nil {
				return nil, err
			}
			v = ebml.NewString(string(b))
		default:
			return nil, &SyntaxError{Offset: t.offset, Expected: "a quoted string or hex literal", Found: t.text}
		}
	case kindBinary:
		t := p.peek()
		switch t.kind {
		case tokHex:
			p.next()
			b, err := decodeHex(t.text)
			if err != nil {
				return nil, err
			}
			v = ebml.NewBinary(b)
		case tokString:
			p.next()
			v = ebml.NewBinary([]byte(t.text))
		default:
			return nil, &SyntaxError{Offset: t.offset, Expected: "a hex literal or quoted string", Found: t.text}
		}
	default:
		return nil, &SyntaxError{Offset: p.peek().offset, Expected: "a default only applies to a value-bearing type"}
	}
	return &v, nil
}

func (p *parser) parseIntLit() (int64, error) {
	t, err := p.expectKind(tokNumber, "an integer literal")
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, &SyntaxError{Offset: t.offset, Expected: "an integer literal", Found: t.text}
	}
	return i, nil
}

func (p *parser) parseUintLit() (uint64, error) {
	t, err := p.expectKind(tokNumber, "a non-negative integer literal")
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(t.text, 10, 64)
	if err != nil {
		return 0, &SyntaxError{Offset: t.offset, Expected: "a non-negative integer literal", Found: t.text}
	}
	return u, nil
}

func (p *parser) parseFloatLit() (float64, error) {
	t, err := p.expectKind(tokNumber, "a float literal")
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, &SyntaxError{Offset: t.offset, Expected: "a float literal", Found: t.text}
	}
	return f, nil
}

func (p *parser) parseDateLit() (int64, error) {
	t := p.peek()
	switch t.kind {
	case tokDate:
		p.next()
		return parseDateLiteralText(t.text)
	case tokNumber:
		return p.parseIntLit()
	default:
		return 0, &SyntaxError{Offset: t.offset, Expected: "a date literal or an integer nanosecond offset", Found: t.text}
	}
}

func parseDateLiteralText(s string) (int64, error) {
	if len(s) < 17 {
		return 0, &SyntaxError{Expected: "a complete date literal", Found: s}
	}
	year, errY := strconv.Atoi(s[0:4])
	month, errMo := strconv.Atoi(s[4:6])
	day, errD := strconv.Atoi(s[6:8])
	hour, errH := strconv.Atoi(s[9:11])
	minute, errMi := strconv.Atoi(s[12:14])
	second, errS := strconv.Atoi(s[15:17])
	if errY != nil || errMo != nil || errD != nil || errH != nil || errMi != nil || errS != nil {
		return 0, &SyntaxError{Expected: "numeric date components", Found: s}
	}
	nsec := 0
	if len(s) > 17 && s[17] == '.' {
		frac := s[18:]
		if len(frac) >= 9 {
			frac = frac[:9]
		} else {
			frac = frac + strings.Repeat("0", 9-len(frac))
		}
		n, err := strconv.Atoi(frac)
		if err != nil {
			return 0, &SyntaxError{Expected: "fractional-second digits", Found: frac}
		}
		nsec = n
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, nsec, time.UTC)
	return t.Sub(millennium).Nanoseconds(), nil
}

func bytesToUint32(b []byte) (uint32, error) {
	if len(b) == 0 || len(b) > 4 {
		return 0, &SyntaxError{Expected: "1 to 4 id bytes"}
	}
	var v uint32
	for _, x := range b {
		v = v<<8 | uint32(x)
	}
	return v, nil
}
