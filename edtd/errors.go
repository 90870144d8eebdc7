package edtd

import "fmt"

// SyntaxError reports a rejected EDTD source: the byte offset of the
// offending token and a short description of what the parser expected
// there, per spec.md §7's EdtdSyntax{offset, expected}.
type SyntaxError struct {
	Offset   int
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	if e.Found != "" {
		return fmt.Sprintf("edtd: at offset %d: expected %s, found %q", e.Offset, e.Expected, e.Found)
	}
	return fmt.Sprintf("edtd: at offset %d: expected %s", e.Offset, e.Expected)
}
