package matroska

import (
	"sync"

	"github.com/zrneely/ebml"
	"github.com/zrneely/ebml/edtd"
)

// schemaSource is a worked EDTD document type: enough of real Matroska's
// element tree (segment info, tracks, clusters, cues, attachments, chapters,
// tags) to drive Demuxer end to end. It is parsed once, by edtd.Parse, the
// same entry point a hand-written .edtd file would use.
const schemaSource = `
declare header {
	DocType := "matroska";
}

// Segment has no parent clause: like EBML itself it is legal at the
// document root, not nested inside the EBML header container.
Segment := container [ id: 0x18538067; card: *; ];

Info := container [ id: 0x1549A966; parent: Segment; card: *; ];
TimecodeScale := uint [ id: 0x2AD7B1; parent: Info; card: ?; def: 1000000; ];
Duration := float [ id: 0x4489; parent: Info; card: ?; ];
Title := string [ id: 0x7BA9; parent: Info; card: ?; ];
MuxingApp := string [ id: 0x4D80; parent: Info; card: ?; ];
WritingApp := string [ id: 0x5741; parent: Info; card: ?; ];

Tracks := container [ id: 0x1654AE6B; parent: Segment; card: ?; ];
TrackEntry := container [ id: 0xAE; parent: Tracks; card: *; ];
TrackNumber := uint [ id: 0xD7; parent: TrackEntry; card: ?; ];
TrackUID := uint [ id: 0x73C5; parent: TrackEntry; card: ?; ];
TrackType := uint [ id: 0x83; parent: TrackEntry; card: ?; ];
FlagEnabled := uint [ id: 0xB9; parent: TrackEntry; card: ?; def: 1; ];
FlagDefault := uint [ id: 0x88; parent: TrackEntry; card: ?; def: 1; ];
FlagLacing := uint [ id: 0x9C; parent: TrackEntry; card: ?; def: 1; ];
TrackName := string [ id: 0x536E; parent: TrackEntry; card: ?; ];
TrackLanguage := string [ id: 0x22B59C; parent: TrackEntry; card: ?; def: "eng"; ];
CodecID := string [ id: 0x86; parent: TrackEntry; card: ?; ];
CodecPrivate := binary [ id: 0x63A2; parent: TrackEntry; card: ?; ];

Video := container [ id: 0xE0; parent: TrackEntry; card: ?; ];
PixelWidth := uint [ id: 0xB0; parent: Video; card: ?; ];
PixelHeight := uint [ id: 0xBA; parent: Video; card: ?; ];
DisplayWidth := uint [ id: 0x54B0; parent: Video; card: ?; ];
DisplayHeight := uint [ id: 0x54BA; parent: Video; card: ?; ];
FlagInterlaced := uint [ id: 0x9A; parent: Video; card: ?; ];

Audio := container [ id: 0xE1; parent: TrackEntry; card: ?; ];
SamplingFrequency := float [ id: 0xB5; parent: Audio; card: ?; def: 8000.0; ];
OutputSamplingFrequency := float [ id: 0x78B5; parent: Audio; card: ?; ];
Channels := uint [ id: 0x9F; parent: Audio; card: ?; def: 1; ];
BitDepth := uint [ id: 0x6264; parent: Audio; card: ?; ];

Cluster := container [ id: 0x1F43B675; parent: Segment; card: *; ];
Timecode := uint [ id: 0xE7; parent: Cluster; card: ?; ];
SimpleBlock := binary [ id: 0xA3; parent: Cluster; card: *; ];
BlockGroup := container [ id: 0xA0; parent: Cluster; card: *; ];
Block := binary [ id: 0xA1; parent: BlockGroup; card: ?; ];
BlockDuration := uint [ id: 0x9B; parent: BlockGroup; card: ?; ];
ReferenceBlock := int [ id: 0xFB; parent: BlockGroup; card: *; ];

Cues := container [ id: 0x1C53BB6B; parent: Segment; card: ?; ];
CuePoint := container [ id: 0xBB; parent: Cues; card: *; ];
CueTime := uint [ id: 0xB3; parent: CuePoint; card: ?; ];
CueTrackPositions := container [ id: 0xB7; parent: CuePoint; card: *; ];
CueTrack := uint [ id: 0xF7; parent: CueTrackPositions; card: ?; ];
CueClusterPosition := uint [ id: 0xF1; parent: CueTrackPositions; card: ?; ];

Attachments := container [ id: 0x1941A469; parent: Segment; card: ?; ];
AttachedFile := container [ id: 0x61A7; parent: Attachments; card: *; ];
FileDescription := string [ id: 0x467E; parent: AttachedFile; card: ?; ];
FileName := string [ id: 0x466E; parent: AttachedFile; card: ?; ];
FileMimeType := string [ id: 0x4660; parent: AttachedFile; card: ?; ];
FileData := binary [ id: 0x465C; parent: AttachedFile; card: ?; ];
FileUID := uint [ id: 0x46AE; parent: AttachedFile; card: ?; ];

Chapters := container [ id: 0x1043A770; parent: Segment; card: ?; ordered: yes; ];
EditionEntry := container [ id: 0x45B9; parent: Chapters; card: *; ];
ChapterAtom := container [ id: 0xB6; parent: EditionEntry; card: *; ordered: yes; ];
ChapterUID := uint [ id: 0x73C4; parent: ChapterAtom; card: ?; ];
ChapterTimeStart := uint [ id: 0x91; parent: ChapterAtom; card: ?; ];
ChapterTimeEnd := uint [ id: 0x92; parent: ChapterAtom; card: ?; ];
ChapterDisplay := container [ id: 0xB8; parent: ChapterAtom; card: *; ];
ChapString := string [ id: 0x85; parent: ChapterDisplay; card: ?; ];
ChapLanguage := string [ id: 0x437C; parent: ChapterDisplay; card: ?; def: "eng"; ];

Tags := container [ id: 0x1254C367; parent: Segment; card: ?; ];
Tag := container [ id: 0x7373; parent: Tags; card: *; ];
SimpleTag := container [ id: 0x67C8; parent: Tag; card: *; ];
TagName := string [ id: 0x45A3; parent: SimpleTag; card: ?; ];
TagString := string [ id: 0x4487; parent: SimpleTag; card: ?; ];
`

var (
	schemaOnce sync.Once
	schema     *ebml.Schema
	schemaErr  error
)

// Schema returns the compiled document type described by schemaSource,
// parsing it once and caching the result.
func Schema() (*ebml.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = edtd.Parse(schemaSource)
	})
	return schema, schemaErr
}
