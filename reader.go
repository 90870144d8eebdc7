package ebml

import (
	"fmt"
	"io"
)

// defaultMaxBufferedPayload is the largest element payload ReadN will pull
// into memory in one call before a Reader refuses it with ErrMalformedDocument
// (wrapping errOversizedPayload). Payloads above the ceiling are rejected,
// not streamed in slices. Callers expecting larger payloads (cluster block
// data, attachments) should raise it via ReaderOptions.
const defaultMaxBufferedPayload = 1 << 24 // 16 MiB

// EventKind classifies an Event returned from Reader.Next.
type EventKind int

const (
	// EventBeginContainer fires when a container's ID and declared size
	// have been read and a new frame has been pushed onto the stack.
	EventBeginContainer EventKind = iota
	// EventValue fires when a leaf element has been fully read, decoded,
	// and checked against its Restriction.
	EventValue
	// EventEndContainer fires when a container's frame closes, either
	// because its finite byte budget was exhausted or because an
	// unknown-size container met an ID that isn't one of its legal
	// children.
	EventEndContainer
)

func (k EventKind) String() string {
	switch k {
	case EventBeginContainer:
		return "BeginContainer"
	case EventValue:
		return "Value"
	case EventEndContainer:
		return "EndContainer"
	default:
		return "Unknown"
	}
}

// Event is one step of a document's depth-first traversal. Which fields are
// meaningful depends on Kind: BeginContainer sets Container, DeclaredSize,
// and Ordered; Value sets Element and Value; EndContainer sets Container.
type Event struct {
	Kind EventKind

	Container    *ContainerType
	DeclaredSize Vint
	// Ordered mirrors the container type's ChildOrder: true when its
	// children are declared to appear in schema order.
	Ordered bool

	Element *ElementType
	Value   Value
}

// frame is one level of the reader's traversal stack: the container whose
// children are currently being read (nil for the virtual document root),
// the level at which those children occur, the remaining byte budget (when
// finite), and which of its required children have not yet been seen.
type frame struct {
	container *ContainerType
	level     int

	hasRemaining bool
	remaining    uint64
	unknownSize  bool

	requiredRemaining map[string]bool
}

// ReaderOptions configures a Reader beyond its schema and byte source.
type ReaderOptions struct {
	// MaxBufferedPayload caps how large a single element's payload may be
	// before Next refuses to buffer it. Zero selects defaultMaxBufferedPayload.
	MaxBufferedPayload uint64
}

// Reader performs a streaming, depth-first traversal of an EBML document
// against a Schema, producing one Event per call to Next. Once Next returns
// a non-nil error, the Reader is done: it returns that same error on every
// subsequent call rather than attempting to resynchronize.
type Reader struct {
	src    ByteSource
	schema *Schema
	opts   ReaderOptions

	frames    []*frame
	checkRoot bool
	err       error
	done      bool
}

// NewReader constructs a Reader over src validated against schema, with
// default options.
func NewReader(src ByteSource, schema *Schema) *Reader {
	return NewReaderWithOptions(src, schema, ReaderOptions{})
}

// NewReaderWithOptions constructs a Reader with explicit options.
func NewReaderWithOptions(src ByteSource, schema *Schema, opts ReaderOptions) *Reader {
	if opts.MaxBufferedPayload == 0 {
		opts.MaxBufferedPayload = defaultMaxBufferedPayload
	}
	root := &frame{level: 0}
	return &Reader{src: src, schema: schema, opts: opts, frames: []*frame{root}, checkRoot: schema.Root() != nil}
}

func (r *Reader) top() *frame { return r.frames[len(r.frames)-1] }

func (r *Reader) pushFrame(f *frame) { r.frames = append(r.frames, f) }

func (r *Reader) popFrame() *frame {
	f := r.top()
	r.frames = r.frames[:len(r.frames)-1]
	return f
}

// chargeBudget deducts consumed bytes from every ancestor frame with a
// finite byte budget, innermost first. unknownSize and root frames are left
// untouched; they have no budget to exhaust.
func (r *Reader) chargeBudget(consumed uint64) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		f := r.frames[i]
		if f.hasRemaining {
			if consumed > f.remaining {
				f.remaining = 0
			} else {
				f.remaining -= consumed
			}
		}
	}
}

// markSeen records, on the immediate parent frame, that a legal child of
// the given name has occurred, clearing it from that frame's set of
// not-yet-seen required children.
func (r *Reader) markSeen(f *frame, name string) {
	if f.requiredRemaining != nil {
		delete(f.requiredRemaining, name)
	}
}

// endContainerEvent finalizes a popped frame: it fails with
// ErrMissingRequiredChild if any ExactlyOne/OneOrMany child type never
// occurred, otherwise it returns the EndContainer event.
func endContainerEvent(f *frame) (Event, error) {
	for name := range f.requiredRemaining {
		return Event{}, newError(ErrMissingRequiredChild, name, fmt.Errorf("required child %q never occurred", name))
	}
	return Event{Kind: EventEndContainer, Container: f.container}, nil
}

// fail records err as the Reader's terminal state and returns it.
func (r *Reader) fail(err error) (Event, error) {
	r.err = err
	return Event{}, err
}

// Next advances the traversal by one step and returns the resulting Event.
// It returns io.EOF once the document's top-level frame is exhausted with
// no more bytes remaining, and a non-nil *Error for any violation listed
// under ErrorKind.
func (r *Reader) Next() (Event, error) {
	if r.err != nil {
		return Event{}, r.err
	}
	if r.done {
		return Event{}, io.EOF
	}

	top := r.top()

	// Step 1: a finite frame's budget is exhausted — close it without
	// looking at the next ID at all.
	if top.hasRemaining && top.remaining == 0 {
		r.popFrame()
		ev, err := endContainerEvent(top)
		if err != nil {
			return r.fail(err)
		}
		return ev, nil
	}

	peeked := r.src.Peek()
	if len(peeked) == 0 {
		if len(r.frames) == 1 {
			r.done = true
			return Event{}, io.EOF
		}
		return r.fail(errDocumentIncomplete)
	}

	id, idWidth, err := DecodeId(peeked)
	if err != nil {
		return r.fail(err)
	}

	if r.checkRoot {
		r.checkRoot = false
		root := r.schema.Root()
		if id.Encoded() != root.ID.Encoded() {
			return r.fail(newError(ErrWrongID, root.Name, fmt.Errorf("document must begin with %s (id %s), found id %s", root.Name, root.ID, id)))
		}
	}

	childLevel := top.level
	child, ok := r.schema.LookupChild(top.container, id, childLevel)
	if !ok {
		if top.unknownSize {
			// The unknown-size container ends here, without consuming the
			// ID: the enclosing frame resolves it on its own next call.
			r.popFrame()
			ev, err := endContainerEvent(top)
			if err != nil {
				return r.fail(err)
			}
			return ev, nil
		}
		return r.fail(newError(ErrUnexpectedChild, "", fmt.Errorf("id %s is not a legal child at level %d", id, childLevel)))
	}

	if _, err := r.src.Advance(idWidth); err != nil {
		return r.fail(err)
	}

	sizeVint, sizeWidth, err := DecodeVint(r.src.Peek())
	if err != nil {
		return r.fail(err)
	}
	if _, err := r.src.Advance(sizeWidth); err != nil {
		return r.fail(err)
	}
	r.chargeBudget(uint64(idWidth + sizeWidth))
	r.markSeen(top, child.Name())

	if child.IsContainer() {
		ct := child.Container
		next := &frame{container: ct, level: childLevel + 1}
		if sizeVint.IsUnknown() {
			next.unknownSize = true
		} else {
			size, _ := sizeVint.Value()
			next.hasRemaining = true
			next.remaining = size
		}
		next.requiredRemaining = r.schema.requiredChildrenFor(ct, next.level)
		r.pushFrame(next)
		return Event{
			Kind:         EventBeginContainer,
			Container:    ct,
			DeclaredSize: sizeVint,
			Ordered:      ct.ChildOrder == ChildOrderSignificant,
		}, nil
	}

	et := child.Element
	if sizeVint.IsUnknown() {
		return r.fail(newError(ErrMalformedDocument, et.Name, fmt.Errorf("unknown size is not legal for a leaf element")))
	}
	size, _ := sizeVint.Value()
	if size > r.opts.MaxBufferedPayload {
		return r.fail(errOversizedPayload(et.Name, size, r.opts.MaxBufferedPayload))
	}
	raw, err := r.src.ReadN(size)
	if err != nil {
		return r.fail(errShortPayload(et.Name, size, uint64(len(raw))))
	}
	r.chargeBudget(size)

	val, err := DecodeValue(et.Kind, raw)
	if err != nil {
		return r.fail(err)
	}
	if et.Restriction != nil && !et.Restriction.Matches(val) {
		return r.fail(newError(ErrRestrictionViolated, et.Name, fmt.Errorf("value does not satisfy the declared restriction")))
	}
	return Event{Kind: EventValue, Element: et, Value: val}, nil
}

// requiredChildrenFor scans the schema for every element or container type
// that is both a legal child of parent at level and obligated to occur at
// least once (CardinalityExactlyOne or CardinalityOneOrMany), returning
// their names as a set awaiting satisfaction.
func (s *Schema) requiredChildrenFor(parent *ContainerType, level int) map[string]bool {
	out := make(map[string]bool)
	for name, et := range s.elementsByName {
		if et.Cardinality.required() && legalChild(et.AllowedParent, parent, et.MinAllowedLevel, et.MaxAllowedLevel, level) {
			out[name] = true
		}
	}
	for name, ct := range s.containersByName {
		if ct.Cardinality.required() && legalChild(ct.AllowedParent, parent, ct.MinAllowedLevel, ct.MaxAllowedLevel, level) {
			out[name] = true
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
