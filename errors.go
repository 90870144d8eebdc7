package ebml

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrorKind classifies the terminal condition a Reader or Writer hit. Every
// error this package returns that originates from decoding or validating a
// document can be inspected with errors.As to recover its Kind.
type ErrorKind int

const (
	// ErrTruncatedInput indicates the source ended mid-token: a VINT, Id,
	// or element payload was cut off before it was fully readable.
	ErrTruncatedInput ErrorKind = iota
	// ErrIdOutOfRange indicates an element ID's width or decoded value was
	// not legal for any of the four ID width classes.
	ErrIdOutOfRange
	// ErrMalformedDocument indicates a VINT was malformed (e.g. a leading
	// zero byte) or a value's bytes do not match its declared kind/width.
	ErrMalformedDocument
	// ErrWrongID indicates the expected root ID was not the first ID read
	// from the source.
	ErrWrongID
	// ErrUnexpectedChild indicates an ID that is not a legal child of the
	// current container appeared inside a finite-sized container.
	ErrUnexpectedChild
	// ErrMissingRequiredChild indicates a container closed without an
	// ExactlyOne or OneOrMany child type ever occurring.
	ErrMissingRequiredChild
	// ErrRestrictionViolated indicates a value failed its declared
	// Restriction.
	ErrRestrictionViolated
	// ErrSchemaConflict indicates a schema that cannot be built as
	// declared: an invalid or already registered name or id, an unknown or
	// multiple parent, or an unknown header field. Combinations of nesting
	// level and parent constraints are not cross-checked.
	ErrSchemaConflict
	// ErrEdtdSyntax indicates the EDTD parser rejected its input text; see
	// edtd.SyntaxError for the offset and expected-production detail.
	ErrEdtdSyntax
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTruncatedInput:
		return "truncated input"
	case ErrIdOutOfRange:
		return "id out of range"
	case ErrMalformedDocument:
		return "malformed document"
	case ErrWrongID:
		return "wrong id"
	case ErrUnexpectedChild:
		return "unexpected child"
	case ErrMissingRequiredChild:
		return "missing required child"
	case ErrRestrictionViolated:
		return "restriction violated"
	case ErrSchemaConflict:
		return "schema conflict"
	case ErrEdtdSyntax:
		return "edtd syntax error"
	default:
		return "unknown ebml error"
	}
}

// Error is the concrete error type returned by this package's decoding and
// validation paths. It carries an ErrorKind so callers can switch on the
// failure category without string matching, plus an optional wrapped cause.
type Error struct {
	Kind ErrorKind
	// Name is the element or container name involved, when known.
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		if e.Err != nil {
			return fmt.Sprintf("ebml: %s (%s): %v", e.Kind, e.Name, e.Err)
		}
		return fmt.Sprintf("ebml: %s (%s)", e.Kind, e.Name)
	}
	if e.Err != nil {
		return fmt.Sprintf("ebml: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ebml: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is comparisons against the sentinel-like zero-value
// *Error{Kind: k} pattern used by this package's own tests.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newError(kind ErrorKind, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}

// errOversizedPayload reports that a declared element size exceeds the
// Reader's buffering ceiling, rendering both figures in human-readable form.
func errOversizedPayload(name string, declared, ceiling uint64) error {
	return newError(ErrMalformedDocument, name, fmt.Errorf(
		"declared size %s exceeds the %s buffering ceiling; raise ReaderOptions.MaxBufferedPayload to accept it",
		humanize.Bytes(declared), humanize.Bytes(ceiling),
	))
}

// errShortPayload reports a truncated element payload with human-readable
// byte counts for the declared versus available length.
func errShortPayload(name string, declared, available uint64) error {
	return newError(ErrTruncatedInput, name, fmt.Errorf(
		"declared %s but only %s remained", humanize.Bytes(declared), humanize.Bytes(available),
	))
}

// errDocumentIncomplete reports that the source ended while a non-root
// container was still open, awaiting more children or its terminator.
var errDocumentIncomplete = newError(ErrTruncatedInput, "", fmt.Errorf("document ended before the root container closed"))
