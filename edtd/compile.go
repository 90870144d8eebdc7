package edtd

import (
	"fmt"

	"github.com/zrneely/ebml"
)

// compile walks a parsed file into a Schema. It starts from
// ebml.StandardSchema, so every EDTD document inherits the seven standard
// header fields and the CRC32 container without needing to redeclare them.
//
// Declarations are applied in source order: a typeDecl without an id
// property is stashed as a named alias (kindNamed lookups resolve against
// it); one with an id property is registered into the schema immediately,
// so a later decl's `parent: Foo` can resolve Foo via Schema.ContainerByName
// as soon as it has been declared. Header statements are applied last, once
// every alias a Named header value might reference has been seen.
func compile(f *file) (*ebml.Schema, error) {
	schema := ebml.StandardSchema()
	aliases := map[string]*typeDecl{}

	for i := range f.decls {
		d := &f.decls[i]
		if !d.hasID {
			if d.kind == kindContainer {
				return nil, schemaErr(d.name, "a container type declaration must carry an id property")
			}
			aliases[d.name] = d
			continue
		}
		if err := compileDecl(schema, d, aliases); err != nil {
			return nil, err
		}
	}

	for _, h := range f.headers {
		if err := applyHeaderStmt(schema, h, aliases); err != nil {
			return nil, err
		}
	}

	return schema, nil
}

func compileDecl(schema *ebml.Schema, d *typeDecl, aliases map[string]*typeDecl) error {
	kind := d.kind
	restriction := d.restriction
	def := d.def

	if kind == kindNamed {
		base, ok := aliases[d.ref]
		if !ok {
			return schemaErr(d.name, fmt.Sprintf("references undeclared type %q", d.ref))
		}
		kind = base.kind
		if restriction == nil {
			restriction = base.restriction
		}
		if def == nil {
			def = base.def
		}
	}

	id, err := ebml.FromEncoded(d.id)
	if err != nil {
		return schemaErr(d.name, err.Error())
	}

	var allowedParent *ebml.ContainerType
	switch len(d.parents) {
	case 0:
		allowedParent = nil
	case 1:
		ct, ok := schema.ContainerByName(d.parents[0])
		if !ok {
			return schemaErr(d.name, fmt.Sprintf("unknown parent container %q", d.parents[0]))
		}
		allowedParent = ct
	default:
		// spec.md's AllowedParent is a single container (or the Any
		// wildcard), not a set; a multi-parent declaration has no
		// representation in the compiled schema.
		return schemaErr(d.name, "declares more than one parent, but a type may have only one AllowedParent")
	}

	minLevel, maxLevel := ebml.LevelAny, ebml.LevelAny
	if d.hasLevel {
		minLevel = d.levelMin
		if d.levelHasMax {
			maxLevel = d.levelMax
		}
	}

	cardinality := ebml.CardinalityZeroOrMany
	if d.hasCard {
		cardinality = d.card
	}

	if kind == kindContainer {
		childOrder := ebml.ChildOrderInsignificant
		if d.hasOrdered && d.ordered {
			childOrder = ebml.ChildOrderSignificant
		}
		return schema.AddContainerType(&ebml.ContainerType{
			Name:            d.name,
			ID:              id,
			Cardinality:     cardinality,
			AllowedParent:   allowedParent,
			MinAllowedLevel: minLevel,
			MaxAllowedLevel: maxLevel,
			ChildOrder:      childOrder,
		})
	}

	return schema.AddElementType(&ebml.ElementType{
		Name:            d.name,
		ID:              id,
		Kind:            mapValueKind(kind),
		Cardinality:     cardinality,
		AllowedParent:   allowedParent,
		MinAllowedLevel: minLevel,
		MaxAllowedLevel: maxLevel,
		Default:         def,
		Restriction:     restriction,
	})
}

func mapValueKind(k typeKind) ebml.ValueKind {
	switch k {
	case kindInt:
		return ebml.KindInt
	case kindUint:
		return ebml.KindUint
	case kindFloat:
		return ebml.KindFloat
	case kindDate:
		return ebml.KindDate
	case kindString:
		return ebml.KindString
	default:
		return ebml.KindBinary
	}
}

// applyHeaderStmt sets the Default of the standard header element h names,
// the effect a `declare header { ... }` block has on the compiled schema.
func applyHeaderStmt(schema *ebml.Schema, h headerStmt, aliases map[string]*typeDecl) error {
	headerFields := map[string]bool{
		"EBMLVersion": true, "EBMLReadVersion": true, "EBMLMaxIDWidth": true,
		"EBMLMaxSizeWidth": true, "DocType": true, "DocTypeVersion": true,
		"DocTypeReadVersion": true,
	}
	et, ok := schema.ElementByName(h.name)
	if !ok || !headerFields[h.name] {
		return schemaErr(h.name, "header block references an unknown header field")
	}

	if h.kind == litNamed {
		alias, ok := aliases[h.named]
		if !ok || alias.def == nil {
			return schemaErr(h.name, fmt.Sprintf("references %q, which has no default value to inherit", h.named))
		}
		v := *alias.def
		et.Default = &v
		return nil
	}

	var v ebml.Value
	switch h.kind {
	case litUint:
		v = ebml.NewUint(h.u)
	case litInt:
		v = ebml.NewInt(h.i)
	case litFloat:
		v = ebml.NewFloat64(h.f)
	case litDate:
		v = ebml.NewDate(h.date)
	case litString:
		v = ebml.NewString(h.s)
	case litBinary:
		v = ebml.NewBinary(h.b)
	}
	et.Default = &v
	return nil
}

func schemaErr(name, msg string) error {
	return &ebml.Error{Kind: ebml.ErrSchemaConflict, Name: name, Err: fmt.Errorf("%s", msg)}
}
