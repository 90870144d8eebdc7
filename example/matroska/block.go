package matroska

import (
	"fmt"

	"github.com/zrneely/ebml"
)

// decodeBlock parses a SimpleBlock or BlockGroup Block payload: a VINT
// track number, a 2-byte big-endian signed timecode relative to the
// enclosing Cluster's Timecode, a 1-byte flags field, then raw frame data
// (lacing is rejected rather than decoded: this example handles
// single-frame blocks only).
func decodeBlock(raw []byte, clusterTime int64) (Packet, byte, error) {
	trackNum, n, err := ebml.DecodeVint(raw)
	if err != nil {
		return Packet{}, 0, fmt.Errorf("matroska: block track number: %w", err)
	}
	num, ok := trackNum.Value()
	if !ok {
		return Packet{}, 0, fmt.Errorf("matroska: block track number is unknown-size")
	}
	raw = raw[n:]
	if len(raw) < 3 {
		return Packet{}, 0, fmt.Errorf("matroska: block too short for timecode and flags")
	}

	rel := int16(uint16(raw[0])<<8 | uint16(raw[1]))
	flags := raw[2]
	if flags&0x06 != 0 {
		return Packet{}, 0, fmt.Errorf("matroska: laced blocks are not supported by this example")
	}

	return Packet{
		TrackNumber: num,
		Timecode:    clusterTime + int64(rel),
		Data:        raw[3:],
	}, flags, nil
}
