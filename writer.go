package ebml

import (
	"fmt"
	"io"
)

// writeFrame tracks one open container during encoding: how many bytes
// have been written into it so far (checked against its declared size at
// WriteEndContainer, when finite) and which required children remain
// unseen, mirroring frame on the read side.
type writeFrame struct {
	container *ContainerType
	declared  Vint
	written   uint64

	requiredRemaining map[string]bool
}

// Writer encodes a document as the exact inverse of Reader: a caller-driven
// sequence of WriteBeginContainer/WriteValue/WriteEndContainer calls
// produces the same byte stream a Reader walking that schema would produce
// Events for. Unlike Reader, a Writer has no implicit document-root frame:
// every call operates against whatever frame is currently open, or the
// stream's top level when none is.
type Writer struct {
	dst    io.Writer
	schema *Schema
	stack  []*writeFrame
}

// NewWriter constructs a Writer that encodes against schema, writing to dst.
func NewWriter(dst io.Writer, schema *Schema) *Writer {
	return &Writer{dst: dst, schema: schema}
}

func (w *Writer) top() *writeFrame {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

// charge records n more bytes written into every open ancestor frame,
// innermost first. Only finite-sized frames have the count checked, at
// WriteEndContainer.
func (w *Writer) charge(n uint64) {
	for i := len(w.stack) - 1; i >= 0; i-- {
		w.stack[i].written += n
	}
}

func (w *Writer) markSeen(name string) {
	top := w.top()
	if top != nil && top.requiredRemaining != nil {
		delete(top.requiredRemaining, name)
	}
}

// WriteBeginContainer writes ct's id and declared size and pushes a new
// open frame for its children. declaredSize may be the unknown sentinel
// (UnknownVint), in which case WriteEndContainer later writes nothing
// further — the container's extent is implicit, exactly as on the read
// side.
func (w *Writer) WriteBeginContainer(ct *ContainerType, declaredSize Vint) error {
	if err := w.writeIDAndSize(ct.ID, declaredSize); err != nil {
		return err
	}
	w.markSeen(ct.Name)
	w.stack = append(w.stack, &writeFrame{container: ct, declared: declaredSize})
	// The new frame's children occur one level deeper than the frame
	// itself, the same convention Reader's frame.level uses.
	w.top().requiredRemaining = w.schema.requiredChildrenFor(ct, len(w.stack))
	return nil
}

// WriteEndContainer closes the innermost open frame. It fails with
// ErrMissingRequiredChild if a CardinalityExactlyOne/OneOrMany child type
// of that frame was never written, or with ErrMalformedDocument if the
// frame was finite-sized and the bytes actually written don't match its
// declared size.
func (w *Writer) WriteEndContainer() error {
	if len(w.stack) == 0 {
		return newError(ErrMalformedDocument, "", fmt.Errorf("no open container to end"))
	}
	f := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]

	for name := range f.requiredRemaining {
		return newError(ErrMissingRequiredChild, name, fmt.Errorf("required child %q was never written", name))
	}
	if declared, ok := f.declared.Value(); ok && declared != f.written {
		return newError(ErrMalformedDocument, f.container.Name, fmt.Errorf(
			"declared size %d does not match %d bytes actually written", declared, f.written))
	}
	return nil
}

// WriteValue encodes et's id, size, and v's wire payload, charging the
// bytes written against every open ancestor frame.
func (w *Writer) WriteValue(et *ElementType, v Value) error {
	if v.Kind() != et.Kind {
		return newError(ErrMalformedDocument, et.Name, fmt.Errorf(
			"value kind %s does not match element kind %s", v.Kind(), et.Kind))
	}
	if et.Restriction != nil && !et.Restriction.Matches(v) {
		return newError(ErrRestrictionViolated, et.Name, fmt.Errorf("value does not satisfy the declared restriction"))
	}
	payload, err := Encode(v)
	if err != nil {
		return err
	}
	size, err := NewVint(uint64(len(payload)))
	if err != nil {
		return err
	}
	if err := w.writeIDAndSize(et.ID, size); err != nil {
		return err
	}
	if _, err := w.dst.Write(payload); err != nil {
		return err
	}
	w.charge(uint64(len(payload)))
	w.markSeen(et.Name)
	return nil
}

func (w *Writer) writeIDAndSize(id Id, size Vint) error {
	idBytes, err := id.Encode()
	if err != nil {
		return err
	}
	sizeBytes, err := size.Encode()
	if err != nil {
		return err
	}
	if _, err := w.dst.Write(idBytes); err != nil {
		return err
	}
	if _, err := w.dst.Write(sizeBytes); err != nil {
		return err
	}
	w.charge(uint64(len(idBytes) + len(sizeBytes)))
	return nil
}
