// Package matroska is a worked document type built on the generic ebml
// engine: a schema covering the parts of real Matroska needed to demux
// tracks and frames, plus a thin Demuxer that walks a document with
// ebml.Reader instead of a hand-rolled element switch.
package matroska

import (
	"fmt"
	"io"

	"github.com/zrneely/ebml"
)

// Demuxer scans a Matroska document's metadata up front — segment info,
// tracks, cues, attachments, chapters, tags — then streams frame packets on
// demand from ReadPacket. It makes a single forward pass over src; there is
// no seeking (SPEC_FULL.md's random-access Non-goal).
type Demuxer struct {
	reader *ebml.Reader

	info        SegmentInfo
	tracks      []TrackInfo
	attachments []Attachment
	chapters    []Chapter
	tags        []Tag
	cues        []CuePoint

	pendingCluster bool
	clusterTime    int64
	inBlockGroup   bool
	blockGroupPkt  *Packet
	sawReference   bool

	done bool
}

// NewDemuxer builds a Reader over src against Schema and eagerly consumes
// every Segment-level child up to (but not including) the first Cluster,
// collecting the metadata sections ReadPacket's callers need before any
// frame arrives.
func NewDemuxer(src ebml.ByteSource) (*Demuxer, error) {
	schema, err := Schema()
	if err != nil {
		return nil, err
	}
	d := &Demuxer{
		reader: ebml.NewReader(src, schema),
		info:   SegmentInfo{TimecodeScale: 1000000},
	}
	if err := d.scanMetadata(); err != nil {
		return nil, err
	}
	return d, nil
}

// cursor tracks which metadata struct an in-progress BeginContainer/
// EndContainer pair is filling in, since scanMetadata dispatches purely by
// element/container name (every name in Schema is globally unique, so no
// path tracking is needed).
type cursor struct {
	track      *TrackInfo
	attachment *Attachment
	chapter    *Chapter
	display    *ChapterDisplay
	tag        *Tag
	simpleTag  *SimpleTagEntry
	cue        *CuePoint
}

func (d *Demuxer) scanMetadata() error {
	var c cursor
	for {
		ev, err := d.reader.Next()
		if err == io.EOF {
			d.done = true
			return nil
		}
		if err != nil {
			return err
		}

		switch ev.Kind {
		case ebml.EventBeginContainer:
			switch ev.Container.Name {
			case "Cluster":
				d.pendingCluster = true
				return nil
			case "TrackEntry":
				c.track = &TrackInfo{Enabled: true, Default: true, Lacing: true, Language: "eng"}
			case "Video":
				if c.track != nil {
					c.track.Video = &VideoInfo{}
				}
			case "Audio":
				if c.track != nil {
					c.track.Audio = &AudioInfo{SamplingFrequency: 8000, Channels: 1}
				}
			case "AttachedFile":
				c.attachment = &Attachment{}
			case "ChapterAtom":
				c.chapter = &Chapter{}
			case "ChapterDisplay":
				c.display = &ChapterDisplay{Language: "eng"}
			case "Tag":
				c.tag = &Tag{}
			case "SimpleTag":
				c.simpleTag = &SimpleTagEntry{}
			case "CuePoint":
				c.cue = &CuePoint{}
			}

		case ebml.EventValue:
			d.applyValue(&c, ev)

		case ebml.EventEndContainer:
			switch ev.Container.Name {
			case "TrackEntry":
				if c.track != nil {
					d.tracks = append(d.tracks, *c.track)
					c.track = nil
				}
			case "AttachedFile":
				if c.attachment != nil {
					d.attachments = append(d.attachments, *c.attachment)
					c.attachment = nil
				}
			case "ChapterDisplay":
				if c.chapter != nil && c.display != nil {
					c.chapter.Displays = append(c.chapter.Displays, *c.display)
				}
				c.display = nil
			case "ChapterAtom":
				if c.chapter != nil {
					d.chapters = append(d.chapters, *c.chapter)
					c.chapter = nil
				}
			case "SimpleTag":
				if c.tag != nil && c.simpleTag != nil {
					c.tag.SimpleTags = append(c.tag.SimpleTags, *c.simpleTag)
				}
				c.simpleTag = nil
			case "Tag":
				if c.tag != nil {
					d.tags = append(d.tags, *c.tag)
					c.tag = nil
				}
			case "CuePoint":
				if c.cue != nil {
					d.cues = append(d.cues, *c.cue)
					c.cue = nil
				}
			}
		}
	}
}

// applyValue routes one decoded leaf element into whichever struct its
// enclosing container is currently building.
func (d *Demuxer) applyValue(c *cursor, ev ebml.Event) {
	name := ev.Element.Name
	switch name {
	case "DocType":
		d.info.DocType, _ = ev.Value.StringValue()
		return
	case "DocTypeVersion":
		d.info.DocTypeVersion, _ = ev.Value.Uint()
		return
	case "TimecodeScale":
		d.info.TimecodeScale, _ = ev.Value.Uint()
		return
	case "Duration":
		d.info.DurationScaled, _ = ev.Value.Float()
		return
	case "Title":
		d.info.Title, _ = ev.Value.StringValue()
		return
	case "MuxingApp":
		d.info.MuxingApp, _ = ev.Value.StringValue()
		return
	case "WritingApp":
		d.info.WritingApp, _ = ev.Value.StringValue()
		return
	}

	if c.track != nil {
		switch name {
		case "TrackNumber":
			c.track.Number, _ = ev.Value.Uint()
			return
		case "TrackUID":
			c.track.UID, _ = ev.Value.Uint()
			return
		case "TrackType":
			c.track.Type, _ = ev.Value.Uint()
			return
		case "TrackName":
			c.track.Name, _ = ev.Value.StringValue()
			return
		case "TrackLanguage":
			c.track.Language, _ = ev.Value.StringValue()
			return
		case "CodecID":
			c.track.CodecID, _ = ev.Value.StringValue()
			return
		case "CodecPrivate":
			c.track.CodecPrivate, _ = ev.Value.Binary()
			return
		case "FlagEnabled":
			u, _ := ev.Value.Uint()
			c.track.Enabled = u != 0
			return
		case "FlagDefault":
			u, _ := ev.Value.Uint()
			c.track.Default = u != 0
			return
		case "FlagLacing":
			u, _ := ev.Value.Uint()
			c.track.Lacing = u != 0
			return
		}
		if c.track.Video != nil {
			switch name {
			case "PixelWidth":
				c.track.Video.PixelWidth, _ = ev.Value.Uint()
				return
			case "PixelHeight":
				c.track.Video.PixelHeight, _ = ev.Value.Uint()
				return
			case "DisplayWidth":
				c.track.Video.DisplayWidth, _ = ev.Value.Uint()
				return
			case "DisplayHeight":
				c.track.Video.DisplayHeight, _ = ev.Value.Uint()
				return
			case "FlagInterlaced":
				u, _ := ev.Value.Uint()
				c.track.Video.FlagInterlaced = u != 0
				return
			}
		}
		if c.track.Audio != nil {
			switch name {
			case "SamplingFrequency":
				c.track.Audio.SamplingFrequency, _ = ev.Value.Float()
				return
			case "OutputSamplingFrequency":
				c.track.Audio.OutputSamplingFrequency, _ = ev.Value.Float()
				return
			case "Channels":
				c.track.Audio.Channels, _ = ev.Value.Uint()
				return
			case "BitDepth":
				c.track.Audio.BitDepth, _ = ev.Value.Uint()
				return
			}
		}
	}

	if c.attachment != nil {
		switch name {
		case "FileDescription":
			c.attachment.Description, _ = ev.Value.StringValue()
			return
		case "FileName":
			c.attachment.Name, _ = ev.Value.StringValue()
			return
		case "FileMimeType":
			c.attachment.MimeType, _ = ev.Value.StringValue()
			return
		case "FileData":
			c.attachment.Data, _ = ev.Value.Binary()
			return
		case "FileUID":
			c.attachment.UID, _ = ev.Value.Uint()
			return
		}
	}

	if c.display != nil {
		switch name {
		case "ChapString":
			c.display.String, _ = ev.Value.StringValue()
			return
		case "ChapLanguage":
			c.display.Language, _ = ev.Value.StringValue()
			return
		}
	}
	if c.chapter != nil {
		switch name {
		case "ChapterUID":
			c.chapter.UID, _ = ev.Value.Uint()
			return
		case "ChapterTimeStart":
			c.chapter.TimeStart, _ = ev.Value.Uint()
			return
		case "ChapterTimeEnd":
			c.chapter.TimeEnd, _ = ev.Value.Uint()
			return
		}
	}

	if c.simpleTag != nil {
		switch name {
		case "TagName":
			c.simpleTag.Name, _ = ev.Value.StringValue()
			return
		case "TagString":
			c.simpleTag.Value, _ = ev.Value.StringValue()
			return
		}
	}

	if c.cue != nil {
		switch name {
		case "CueTime":
			c.cue.Time, _ = ev.Value.Uint()
			return
		case "CueTrack":
			c.cue.Track, _ = ev.Value.Uint()
			return
		case "CueClusterPosition":
			c.cue.Position, _ = ev.Value.Uint()
			return
		}
	}
}

// GetNumTracks returns the number of tracks found during the metadata scan.
func (d *Demuxer) GetNumTracks() int { return len(d.tracks) }

// GetTrackInfo returns the nth track's metadata.
func (d *Demuxer) GetTrackInfo(n int) (TrackInfo, error) {
	if n < 0 || n >= len(d.tracks) {
		return TrackInfo{}, fmt.Errorf("matroska: track index %d out of range (have %d)", n, len(d.tracks))
	}
	return d.tracks[n], nil
}

// GetFileInfo returns the segment-wide metadata.
func (d *Demuxer) GetFileInfo() SegmentInfo { return d.info }

// GetAttachments returns every AttachedFile found during the scan.
func (d *Demuxer) GetAttachments() []Attachment { return d.attachments }

// GetChapters returns every ChapterAtom found during the scan, flattened
// across editions.
func (d *Demuxer) GetChapters() []Chapter { return d.chapters }

// GetTags returns every Tag found during the scan.
func (d *Demuxer) GetTags() []Tag { return d.tags }

// GetCues returns every CuePoint found during the scan.
func (d *Demuxer) GetCues() []CuePoint { return d.cues }

// ReadPacket returns the next frame from the document's Clusters, advancing
// the underlying Reader. It returns io.EOF once the document is exhausted.
func (d *Demuxer) ReadPacket() (Packet, error) {
	if d.done {
		return Packet{}, io.EOF
	}
	for {
		ev, err := d.reader.Next()
		if err == io.EOF {
			d.done = true
			return Packet{}, io.EOF
		}
		if err != nil {
			return Packet{}, err
		}

		switch ev.Kind {
		case ebml.EventBeginContainer:
			if ev.Container.Name == "BlockGroup" {
				d.inBlockGroup = true
				d.blockGroupPkt = nil
				d.sawReference = false
			}

		case ebml.EventValue:
			switch ev.Element.Name {
			case "Timecode":
				u, _ := ev.Value.Uint()
				d.clusterTime = int64(u)
			case "SimpleBlock":
				raw, _ := ev.Value.Binary()
				pkt, flags, err := decodeBlock(raw, d.clusterTime)
				if err != nil {
					return Packet{}, err
				}
				pkt.Keyframe = flags&0x80 != 0
				return pkt, nil
			case "Block":
				if d.inBlockGroup {
					raw, _ := ev.Value.Binary()
					pkt, _, err := decodeBlock(raw, d.clusterTime)
					if err != nil {
						return Packet{}, err
					}
					d.blockGroupPkt = &pkt
				}
			case "ReferenceBlock":
				d.sawReference = true
			}

		case ebml.EventEndContainer:
			if ev.Container.Name == "BlockGroup" {
				d.inBlockGroup = false
				if d.blockGroupPkt != nil {
					pkt := *d.blockGroupPkt
					pkt.Keyframe = !d.sawReference
					d.blockGroupPkt = nil
					return pkt, nil
				}
			}
		}
	}
}
