// Package edtd parses an EBML Document Type Definition (EDTD) — the
// textual schema language used to describe a document type's element and
// container types, their identities, cardinalities, nesting bounds, and
// value restrictions — into an *ebml.Schema ready to drive a Reader or
// Writer.
//
// A schema file is a sequence of statements: header-value blocks
// (`declare header { ... }`, fixed values a document type pins for its
// standard EBML header fields) and type declarations (`name := kind [
// properties ];`). A type declaration with an `id:` property registers an
// actual element or container type in the schema; one without registers
// a reusable named alias (a value kind plus range/default) that later
// declarations can reference by name.
package edtd
