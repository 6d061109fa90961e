package mux

import (
	"fmt"
	"io"
	"path/filepath"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/packetizer"
	"mkvtool/pkg/tags"
)

// Space reserved after the SeekHead and Info for the values
// that are only known when the file is finalized.
const (
	seekHeadReserve = 160
	infoPadding     = 256
)

// Segment size field length, patched at finalize.
const segmentSizeLength = 8

// link identifies a neighbouring file of a split output.
type link struct {
	uid  []byte
	name string
}

// segment writes one output file.
type segment struct {
	out     mmio.Stream
	name    string
	index   int
	profile matroska.Profile
	uid     []byte

	// Absolute stream positions.
	segmentPos  int64
	dataStart   int64
	seekHeadPos int64
	infoPos     int64
	infoSpace   int64
	end         int64

	info  *ebml.Element
	prev  *link
	seeks []seekEntry

	clusters []ClusterInfo
	cues     []CueEntry
}

type seekEntry struct {
	id  ebml.ID
	pos int64 // Relative to the segment data.
}

func (s *segment) tell() (int64, error) {
	return mmio.Tell(s.out)
}

func (s *segment) write(el *ebml.Element) (int64, error) {
	pos, err := s.tell()
	if err != nil {
		return 0, err
	}
	if err := el.Marshal(ebml.NewWriter(s.out)); err != nil {
		return 0, fmt.Errorf("write element 0x%x at offset %d: %w", uint32(el.ID), pos, err)
	}
	if end := pos + int64(el.TotalSize()); end > s.end {
		s.end = end
	}
	return pos, nil
}

// writeLevel1 writes a top level element and records it for the SeekHead.
func (s *segment) writeLevel1(el *ebml.Element) error {
	el = s.profile.Filter(el)
	if el == nil {
		return nil
	}
	pos, err := s.write(el)
	if err != nil {
		return err
	}
	s.seeks = append(s.seeks, seekEntry{id: el.ID, pos: pos - s.dataStart})
	return nil
}

func (m *Muxer) infoElement(s *segment, duration float64, next *link) *ebml.Element {
	info := ebml.NewMaster(matroska.IDInfo,
		ebml.NewUint(matroska.IDTimestampScale, uint64(m.opts.TimestampScale)),
		ebml.NewUnicode(matroska.IDMuxingApp, m.opts.MuxingApp),
		ebml.NewUnicode(matroska.IDWritingApp, m.opts.WritingApp),
		ebml.NewBinary(matroska.IDSegmentUID, s.uid),
		ebml.NewDate(matroska.IDDateUTC, m.opts.Now().UTC()),
		ebml.NewFloat(matroska.IDDuration, duration),
	)
	if m.opts.Title != "" {
		info.Add(ebml.NewUnicode(matroska.IDTitle, m.opts.Title))
	}
	if s.prev != nil {
		info.Add(
			ebml.NewBinary(matroska.IDPrevUID, s.prev.uid),
			ebml.NewUnicode(matroska.IDPrevFilename, s.prev.name),
		)
	}
	if next != nil {
		info.Add(
			ebml.NewBinary(matroska.IDNextUID, next.uid),
			ebml.NewUnicode(matroska.IDNextFilename, next.name),
		)
	}
	return m.opts.Profile.Filter(info)
}

func trackElement(t *packetizer.Track, p matroska.Profile) *ebml.Element {
	lacing := t.Lacing && p.AllowsLacing(t.Type)
	el := ebml.NewMaster(matroska.IDTrackEntry,
		ebml.NewUint(matroska.IDTrackNumber, t.Number),
		ebml.NewUint(matroska.IDTrackUID, t.UID),
		ebml.NewUint(matroska.IDTrackType, t.Type),
		ebml.NewUint(matroska.IDFlagDefault, boolUint(t.Default)),
		ebml.NewUint(matroska.IDFlagLacing, boolUint(lacing)),
		ebml.NewString(matroska.IDCodecID, t.CodecID),
	)
	if t.Forced {
		el.Add(ebml.NewUint(matroska.IDFlagForced, 1))
	}
	if t.DefaultDuration > 0 {
		el.Add(ebml.NewUint(matroska.IDDefaultDuration, uint64(t.DefaultDuration)))
	}
	if t.Name != "" {
		el.Add(ebml.NewUnicode(matroska.IDName, t.Name))
	}
	if t.Language != "" {
		el.Add(ebml.NewString(matroska.IDLanguage, t.Language))
	}
	if len(t.CodecPrivate) > 0 {
		el.Add(ebml.NewBinary(matroska.IDCodecPrivate, t.CodecPrivate))
	}
	if v := t.Video; v != nil {
		video := ebml.NewMaster(matroska.IDVideo,
			ebml.NewUint(matroska.IDPixelWidth, v.PixelWidth),
			ebml.NewUint(matroska.IDPixelHeight, v.PixelHeight),
		)
		if v.DisplayWidth != 0 && v.DisplayHeight != 0 {
			video.Add(
				ebml.NewUint(matroska.IDDisplayWidth, v.DisplayWidth),
				ebml.NewUint(matroska.IDDisplayHeight, v.DisplayHeight),
			)
		}
		el.Add(video)
	}
	if a := t.Audio; a != nil {
		audio := ebml.NewMaster(matroska.IDAudio,
			ebml.NewFloat(matroska.IDSamplingFrequency, a.SamplingFrequency),
			ebml.NewUint(matroska.IDChannels, a.Channels),
		)
		if a.BitDepth != 0 {
			audio.Add(ebml.NewUint(matroska.IDBitDepth, a.BitDepth))
		}
		el.Add(audio)
	}
	return el
}

func boolUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// reserve writes a Void of n bytes.
func (s *segment) reserve(n int) error {
	void, err := ebml.NewVoid(n)
	if err != nil {
		return err
	}
	_, err = s.write(void)
	return err
}

// openSegment writes the file header up to and including the Tracks.
func (m *Muxer) openSegment(out mmio.Stream, name string, index int, uid []byte, prev *link) (*segment, error) {
	s := &segment{
		out:     out,
		name:    name,
		index:   index,
		profile: m.opts.Profile,
		uid:     uid,
		prev:    prev,
	}

	if _, err := s.write(m.opts.Profile.Header()); err != nil {
		return nil, err
	}

	seg := &ebml.Element{
		ID:          matroska.IDSegment,
		Type:        ebml.TypeMaster,
		UnknownSize: true,
		SizeLength:  segmentSizeLength,
	}
	var err error
	if s.segmentPos, err = s.tell(); err != nil {
		return nil, err
	}
	w := ebml.NewWriter(out)
	if err := seg.MarshalHeader(w); err != nil {
		return nil, fmt.Errorf("write segment header: %w", err)
	}
	s.dataStart = s.segmentPos + w.Written()

	s.seekHeadPos = s.dataStart
	if err := s.reserve(seekHeadReserve); err != nil {
		return nil, err
	}

	if s.infoPos, err = s.tell(); err != nil {
		return nil, err
	}
	s.info = m.infoElement(s, 0, nil)
	if err := s.writeLevel1(s.info); err != nil {
		return nil, err
	}
	if err := s.reserve(infoPadding); err != nil {
		return nil, err
	}
	s.infoSpace = int64(s.info.TotalSize()) + infoPadding

	tracks := ebml.NewMaster(matroska.IDTracks)
	for _, t := range m.tracks {
		tracks.Add(trackElement(t.track, m.opts.Profile))
	}
	if err := s.writeLevel1(tracks); err != nil {
		return nil, err
	}
	return s, nil
}

// writeCluster renders c and records its position and cue points.
func (s *segment) writeCluster(c *cluster) error {
	el := ebml.NewMaster(matroska.IDCluster, ebml.NewUint(matroska.IDTimestamp, uint64(c.timestamp)))

	// Offsets of the blocks from the start of the cluster payload.
	rel := int64(el.Children[0].TotalSize())
	var cuePoints []CueEntry
	for _, b := range c.blocks {
		bel, err := b.element(c.timestamp)
		if err != nil {
			return err
		}
		if b.cue {
			cuePoints = append(cuePoints, CueEntry{
				Time:             b.timestamp,
				Track:            b.track.track.Number,
				RelativePosition: rel,
			})
		}
		rel += int64(bel.TotalSize())
		el.Add(bel)
	}

	pos, err := s.write(el)
	if err != nil {
		return err
	}
	clusterPos := pos - s.dataStart
	for i := range cuePoints {
		cuePoints[i].ClusterPosition = clusterPos
	}
	s.cues = append(s.cues, cuePoints...)
	s.clusters = append(s.clusters, ClusterInfo{
		Timestamp: c.timestamp,
		Position:  clusterPos,
		Size:      int64(el.TotalSize()),
		Blocks:    len(c.blocks),
	})
	return nil
}

func cuesElement(cues []CueEntry) *ebml.Element {
	el := ebml.NewMaster(matroska.IDCues)
	for _, c := range cues {
		el.Add(ebml.NewMaster(matroska.IDCuePoint,
			ebml.NewUint(matroska.IDCueTime, uint64(c.Time)),
			ebml.NewMaster(matroska.IDCueTrackPositions,
				ebml.NewUint(matroska.IDCueTrack, c.Track),
				ebml.NewUint(matroska.IDCueClusterPosition, uint64(c.ClusterPosition)),
				ebml.NewUint(matroska.IDCueRelativePosition, uint64(c.RelativePosition)),
			),
		))
	}
	return el
}

func attachmentsElement(attachments []Attachment) *ebml.Element {
	el := ebml.NewMaster(matroska.IDAttachments)
	for _, a := range attachments {
		f := ebml.NewMaster(matroska.IDAttachedFile)
		if a.Description != "" {
			f.Add(ebml.NewUnicode(matroska.IDFileDescription, a.Description))
		}
		f.Add(
			ebml.NewUnicode(matroska.IDFileName, a.Name),
			ebml.NewString(matroska.IDFileMimeType, a.MimeType),
			ebml.NewBinary(matroska.IDFileData, a.Data),
			ebml.NewUint(matroska.IDFileUID, a.UID),
		)
		el.Add(f)
	}
	return el
}

// fileMetadata holds the per file chapter and tag trees.
type fileMetadata struct {
	chapters *chapters.Chapters
	tags     *tags.Tags
}

// finalize writes the trailing elements and patches the header.
func (m *Muxer) finalize(s *segment, meta fileMetadata, duration float64, next *link) error {
	if len(s.cues) > 0 {
		if err := s.writeLevel1(cuesElement(s.cues)); err != nil {
			return err
		}
	}
	if !meta.chapters.Empty() {
		if err := s.writeLevel1(meta.chapters.ToEBML(s.profile)); err != nil {
			return err
		}
	}
	if !meta.tags.Empty() {
		if err := s.writeLevel1(meta.tags.ToEBML(s.profile)); err != nil {
			return err
		}
	}
	if s.index == 0 && len(m.opts.Attachments) > 0 {
		if err := s.writeLevel1(attachmentsElement(m.opts.Attachments)); err != nil {
			return err
		}
	}

	end, err := s.tell()
	if err != nil {
		return err
	}

	info := m.infoElement(s, duration, next)
	if err := s.patch(s.infoPos, info, s.infoSpace); err != nil {
		return fmt.Errorf("info: %w", err)
	}

	seekHead := ebml.NewMaster(matroska.IDSeekHead)
	for _, e := range s.seeks {
		var id [ebml.MaxIDLength]byte
		n := ebml.PutID(id[:], e.id)
		seekHead.Add(ebml.NewMaster(matroska.IDSeek,
			ebml.NewBinary(matroska.IDSeekID, id[:n]),
			ebml.NewUint(matroska.IDSeekPosition, uint64(e.pos)),
		))
	}
	if err := s.patch(s.seekHeadPos, seekHead, seekHeadReserve); err != nil {
		return fmt.Errorf("seek head: %w", err)
	}

	var size [segmentSizeLength]byte
	if err := ebml.PutSize(size[:], uint64(end-s.dataStart), segmentSizeLength); err != nil {
		return err
	}
	if _, err := s.out.Seek(s.dataStart-segmentSizeLength, io.SeekStart); err != nil {
		return err
	}
	if _, err := s.out.Write(size[:]); err != nil {
		return fmt.Errorf("patch segment size: %w", err)
	}
	if _, err := s.out.Seek(end, io.SeekStart); err != nil {
		return err
	}
	return nil
}

// patch overwrites the space reserved at pos with el, followed by
// a Void covering the rest.
func (s *segment) patch(pos int64, el *ebml.Element, space int64) error {
	left := space - int64(el.TotalSize())
	switch {
	case left < 0:
		return fmt.Errorf("%w: need %d bytes, have %d", ErrReserveTooSmall, el.TotalSize(), space)
	case left == 1:
		// A Void can't be one byte, grow the size field instead.
		el.SizeLength = ebml.SizeLength(el.DataSize()) + 1
		left = 0
	}

	if _, err := s.out.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	if _, err := s.write(el); err != nil {
		return err
	}
	if left > 0 {
		return s.reserve(int(left))
	}
	return nil
}

func baseName(name string) string {
	return filepath.Base(name)
}
