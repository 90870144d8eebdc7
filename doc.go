// Package ebml provides functionality for reading and writing documents in the
// Extensible Binary Markup Language (EBML) — a binary, self-describing,
// schema-driven container format best known as the substrate of the Matroska
// media container.
//
// EBML is a tree-structured binary format where every node is a triple of
// ID, SIZE, and DATA. Like XML, it is extensible: a "Document Type
// Definition" (EDTD, see the edtd subpackage) describes the element and
// container types legal for a particular use, their cardinality, nesting,
// and value restrictions. This package implements:
//
//   - The variable-width integer (VINT) codec underlying every size and ID
//     on the wire, including the four ID width classes and the reserved
//     "unknown size" sentinel (Vint, Id).
//   - The in-memory schema model (Schema, ElementType, ContainerType) and a
//     validating, schema-driven streaming reader (Reader) that walks a
//     document as a linear sequence of typed, validated events.
//   - The typed leaf value model (Value) and value-range restrictions
//     (Restriction).
//   - A writer (Writer) that inverts the reader, for producing documents.
//
// Example usage:
//
//	f, err := os.Open("sample.mkv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	src, err := NewPeekReader(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := NewReader(src, StandardSchema())
//	for {
//	    event, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("%+v\n", event)
//	}
//
// The library is single-threaded: a Reader holds exclusive access to its
// byte source and frame stack, and nothing suspends except synchronous I/O
// on that source. A Schema is immutable after construction and may be
// shared between readers; Restrictions are pure predicates and always safe
// to share.
package ebml
