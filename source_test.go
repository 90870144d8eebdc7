package ebml

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/onsi/gomega"
)

func TestPeekReaderAdvancing(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	r, err := NewPeekReader(bytes.NewReader(data))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	g.Expect(r.Peek()).To(gomega.Equal([]byte{0, 1, 2, 3, 4, 5, 6, 7}))

	eof, err := r.Advance(1)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(eof).To(gomega.BeFalse())
	g.Expect(r.Peek()).To(gomega.Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}))

	eof, err = r.Advance(4)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(eof).To(gomega.BeFalse())
	g.Expect(r.Peek()).To(gomega.Equal([]byte{5, 6, 7, 8, 9, 10, 11, 12}))
}

func TestPeekReaderAdvanceAtLeastEight(t *testing.T) {
	g := gomega.NewWithT(t)

	data := make([]byte, 255)
	for i := range data {
		data[i] = byte(i)
	}
	r, err := NewPeekReader(bytes.NewReader(data))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	eof, err := r.Advance(13)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(eof).To(gomega.BeFalse())
	g.Expect(r.Peek()).To(gomega.Equal([]byte{13, 14, 15, 16, 17, 18, 19, 20}))
}

func TestPeekReaderEOF(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	r, err := NewPeekReader(bytes.NewReader(data))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	eof, err := r.Advance(100)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(eof).To(gomega.BeTrue())
	g.Expect(len(r.Peek())).To(gomega.Equal(0))
}

func TestPeekReaderReadN(t *testing.T) {
	g := gomega.NewWithT(t)

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	r, err := NewPeekReader(bytes.NewReader(data))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	got, err := r.ReadN(3)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(got).To(gomega.Equal([]byte{0, 1, 2}))
	g.Expect(r.Peek()).To(gomega.Equal([]byte{3, 4, 5, 6, 7, 8, 9, 10}))

	got, err = r.ReadN(20)
	g.Expect(err).To(gomega.HaveOccurred())
	g.Expect(got).To(gomega.Equal([]byte{3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}))
}

// TestMMapSourceReadNTruncated confirms ReadN returns the bytes that were
// actually present, not nil, when a declared size runs past EOF.
func TestMMapSourceReadNTruncated(t *testing.T) {
	g := gomega.NewWithT(t)

	f, err := os.CreateTemp(t.TempDir(), "mmap-source-*")
	g.Expect(err).NotTo(gomega.HaveOccurred())
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	_, err = f.Write(data)
	g.Expect(err).NotTo(gomega.HaveOccurred())

	m, err := OpenMappedFile(f)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() { _ = m.Close(); _ = f.Close() }()

	got, err := m.ReadN(20)
	g.Expect(err).To(gomega.Equal(io.ErrUnexpectedEOF))
	g.Expect(got).To(gomega.Equal(data))
}
