package ebml

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// ByteSource is what a Reader consumes: an 8-byte lookahead window plus
// bulk reads for element payloads. Vint/Id decoding only ever needs to
// see the front of the window; the reader advances it byte-by-byte as it
// confirms how much of a token it actually consumed.
type ByteSource interface {
	// Peek returns up to 8 bytes starting at the current position without
	// consuming them. It may return fewer than 8 if the source is near
	// EOF.
	Peek() []byte
	// Advance consumes amount bytes and refills the peek window. Returns
	// true if the source has reached EOF (fewer than 8 bytes remain in
	// the window after advancing).
	Advance(amount int) (eof bool, err error)
	// ReadN consumes and returns exactly n bytes, which may span beyond
	// the 8-byte peek window. Returns io.ErrUnexpectedEOF if fewer than n
	// bytes remain.
	ReadN(n uint64) ([]byte, error)
}

// PeekReader is a ByteSource over a plain io.Reader, maintaining an
// 8-byte lookahead buffer. The buffering and advance discipline mirrors a
// classic peekable-byte-stream reader: peeking never consumes, and
// advancing re-fills from the front.
type PeekReader struct {
	buf    []byte
	source io.Reader
}

// NewPeekReader wraps source in a PeekReader, immediately filling its
// 8-byte lookahead window (fewer bytes if source is already near EOF).
func NewPeekReader(source io.Reader) (*PeekReader, error) {
	filled := make([]byte, 8)
	read, err := io.ReadFull(source, filled)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return &PeekReader{buf: filled[:read], source: source}, nil
}

// Peek returns the current lookahead window.
func (p *PeekReader) Peek() []byte { return p.buf }

// Advance consumes amount bytes: for amount < 8 it drops that many bytes
// off the front and reads exactly that many more onto the back; for
// amount >= 8 it discards amount-8 bytes entirely and reads a fresh
// 8-byte window. Returns true if fewer than 8 bytes remain buffered,
// meaning the source has hit EOF. amount must not exceed what Peek last
// reported was available; callers only ever advance by a width they
// already confirmed was present in the peek window.
func (p *PeekReader) Advance(amount int) (bool, error) {
	if amount < 8 {
		if amount > len(p.buf) {
			return false, newError(ErrTruncatedInput, "", nil)
		}
		remaining := append([]byte(nil), p.buf[amount:]...)
		fill := make([]byte, amount)
		read, err := io.ReadFull(p.source, fill)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return false, err
		}
		p.buf = append(remaining, fill[:read]...)
	} else {
		if _, err := io.CopyN(io.Discard, p.source, int64(amount-8)); err != nil && err != io.EOF {
			return false, err
		}
		fill := make([]byte, 8)
		read, err := io.ReadFull(p.source, fill)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return false, err
		}
		p.buf = fill[:read]
	}
	return len(p.buf) < 8, nil
}

// ReadN reads exactly n bytes, first draining whatever is already
// buffered in the peek window (consuming it, same as Advance) and then
// reading the remainder directly from source.
func (p *PeekReader) ReadN(n uint64) ([]byte, error) {
	out := make([]byte, 0, n)
	fromBuf := uint64(len(p.buf))
	if fromBuf > n {
		fromBuf = n
	}
	out = append(out, p.buf[:fromBuf]...)
	remaining := n - fromBuf

	leftover := append([]byte(nil), p.buf[fromBuf:]...)

	if remaining > 0 {
		direct := make([]byte, remaining)
		read, err := io.ReadFull(p.source, direct)
		if err != nil {
			out = append(out, direct[:read]...)
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return out, io.ErrUnexpectedEOF
			}
			return out, err
		}
		out = append(out, direct...)
	}

	// Refill the peek window: keep whatever of the old buffer wasn't
	// consumed (only possible when n left some of it unused) and top it
	// back up to 8 bytes from source.
	need := 8 - len(leftover)
	fill := make([]byte, need)
	read, err := io.ReadFull(p.source, fill)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return out, err
	}
	p.buf = append(leftover, fill[:read]...)

	return out, nil
}

// MMapSource is a ByteSource over a memory-mapped file, for large media
// files where copying the whole document into a buffer first would be
// wasteful. Reads are served directly from the mapping; Close unmaps it.
type MMapSource struct {
	data mmap.MMap
	pos  int
}

// OpenMappedFile memory-maps f read-only and returns a ByteSource over it.
// The caller remains responsible for f's lifetime; Close the returned
// MMapSource before closing f.
func OpenMappedFile(f *os.File) (*MMapSource, error) {
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &MMapSource{data: data}, nil
}

// Close unmaps the underlying file.
func (m *MMapSource) Close() error { return m.data.Unmap() }

func (m *MMapSource) Peek() []byte {
	end := m.pos + 8
	if end > len(m.data) {
		end = len(m.data)
	}
	return m.data[m.pos:end]
}

func (m *MMapSource) Advance(amount int) (bool, error) {
	m.pos += amount
	if m.pos > len(m.data) {
		m.pos = len(m.data)
	}
	return len(m.data)-m.pos < 8, nil
}

func (m *MMapSource) ReadN(n uint64) ([]byte, error) {
	if uint64(len(m.data)-m.pos) < n {
		out := m.data[m.pos:]
		m.pos = len(m.data)
		return out, io.ErrUnexpectedEOF
	}
	out := m.data[m.pos : m.pos+int(n)]
	m.pos += int(n)
	return out, nil
}
