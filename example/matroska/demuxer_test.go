package matroska

import (
	"bytes"
	"io"
	"testing"

	"github.com/onsi/gomega"
	"github.com/zrneely/ebml"
)

// newTestSource wraps data in a PeekReader, the same ByteSource every other
// package's tests build against bytes.Reader.
func newTestSource(g *gomega.WithT, data []byte) ebml.ByteSource {
	src, err := ebml.NewPeekReader(bytes.NewReader(data))
	g.Expect(err).NotTo(gomega.HaveOccurred())
	return src
}

// minimalDocument builds the smallest document exercising every metadata
// section Demuxer scans plus one Cluster holding a single keyframe
// SimpleBlock: an EBML header, a Segment containing Info (TimecodeScale),
// Tracks (one video TrackEntry), and a Cluster (Timecode 0, one
// SimpleBlock).
func minimalDocument() []byte {
	return []byte{
		// EBML header: DocType "matroska"
		0x1A, 0x45, 0xDF, 0xA3, 0x8B,
		0x42, 0x82, 0x88, 'm', 'a', 't', 'r', 'o', 's', 'k', 'a',

		// Segment, size 55
		0x18, 0x53, 0x80, 0x67, 0xB7,

		// Info, size 7: TimecodeScale = 1000000
		0x15, 0x49, 0xA9, 0x66, 0x87,
		0x2A, 0xD7, 0xB1, 0x83, 0x0F, 0x42, 0x40,

		// Tracks, size 21
		0x16, 0x54, 0xAE, 0x6B, 0x95,
		// TrackEntry, size 19
		0xAE, 0x93,
		// TrackNumber = 1
		0xD7, 0x81, 0x01,
		// TrackUID = 1000
		0x73, 0xC5, 0x82, 0x03, 0xE8,
		// TrackType = 1 (video)
		0x83, 0x81, 0x01,
		// CodecID = "V_TEST"
		0x86, 0x86, 'V', '_', 'T', 'E', 'S', 'T',

		// Cluster, size 12
		0x1F, 0x43, 0xB6, 0x75, 0x8C,
		// Timecode = 0
		0xE7, 0x80,
		// SimpleBlock: track 1, rel timecode 0, flags 0x80 (keyframe), "DATA"
		0xA3, 0x88, 0x81, 0x00, 0x00, 0x80, 'D', 'A', 'T', 'A',
	}
}

func TestDemuxerScansMetadataAndStopsAtFirstCluster(t *testing.T) {
	g := gomega.NewWithT(t)

	d, err := NewDemuxer(newTestSource(g, minimalDocument()))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	info := d.GetFileInfo()
	g.Expect(info.DocType).To(gomega.Equal("matroska"))
	g.Expect(info.TimecodeScale).To(gomega.Equal(uint64(1000000)))

	g.Expect(d.GetNumTracks()).To(gomega.Equal(1))
	track, err := d.GetTrackInfo(0)
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(track.Number).To(gomega.Equal(uint64(1)))
	g.Expect(track.UID).To(gomega.Equal(uint64(1000)))
	g.Expect(track.Type).To(gomega.Equal(uint64(1)))
	g.Expect(track.CodecID).To(gomega.Equal("V_TEST"))
	g.Expect(track.Enabled).To(gomega.BeTrue())

	g.Expect(d.pendingCluster).To(gomega.BeTrue())
}

func TestDemuxerReadPacketDecodesSimpleBlock(t *testing.T) {
	g := gomega.NewWithT(t)

	d, err := NewDemuxer(newTestSource(g, minimalDocument()))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	pkt, err := d.ReadPacket()
	g.Expect(err).NotTo(gomega.HaveOccurred())
	g.Expect(pkt.TrackNumber).To(gomega.Equal(uint64(1)))
	g.Expect(pkt.Timecode).To(gomega.Equal(int64(0)))
	g.Expect(pkt.Keyframe).To(gomega.BeTrue())
	g.Expect(pkt.Data).To(gomega.Equal([]byte("DATA")))

	_, err = d.ReadPacket()
	g.Expect(err).To(gomega.Equal(io.EOF))
}

func TestDemuxerTrackIndexOutOfRange(t *testing.T) {
	g := gomega.NewWithT(t)

	d, err := NewDemuxer(newTestSource(g, minimalDocument()))
	g.Expect(err).NotTo(gomega.HaveOccurred())

	_, err = d.GetTrackInfo(5)
	g.Expect(err).To(gomega.HaveOccurred())
}
