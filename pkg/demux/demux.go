// Package demux reads Matroska and WebM files: the segment
// metadata, the packets of each track and the embedded
// chapters, tags and attachments.
package demux

import (
	"errors"
	"fmt"
	"io"
	"time"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/packetizer"
	"mkvtool/pkg/tags"
)

// ErrNotMatroska is returned for input that isn't a Matroska file.
var ErrNotMatroska = errors.New("not a Matroska file")

// probeSize is the number of bytes Probe looks at.
const probeSize = 64 * 1024

// Info is the segment information.
type Info struct {
	TimestampScale int64

	// Duration in timestamp scale units.
	Duration float64

	Title        string
	MuxingApp    string
	WritingApp   string
	DateUTC      time.Time
	SegmentUID   []byte
	PrevUID      []byte
	PrevFilename string
	NextUID      []byte
	NextFilename string
}

// CuePoint is one indexed position.
type CuePoint struct {
	Time             int64 // Timestamp scale units.
	Track            uint64
	ClusterPosition  int64
	RelativePosition int64
}

// Attachment is an embedded file.
type Attachment struct {
	UID         uint64
	Name        string
	MimeType    string
	Description string
	Data        []byte
}

// File is an opened Matroska file.
type File struct {
	DocType     string
	Info        Info
	Tracks      []*packetizer.Track
	Cues        []CuePoint
	Chapters    *chapters.Chapters
	Tags        *tags.Tags
	Attachments []Attachment

	r *ebml.Reader

	// Absolute positions, segmentEnd is -1 for unknown size.
	dataStart    int64
	segmentEnd   int64
	firstCluster int64
}

// Probe reports whether s looks like a Matroska file. The
// position of s is not changed.
func Probe(s mmio.Stream) bool {
	ok := false
	mmio.SavePos(s, func() error { //nolint:errcheck
		pc, err := mmio.NewProbeCache(s, probeSize, false)
		if err != nil {
			return err
		}
		r, err := ebml.NewReader(pc, matroska.Schema)
		if err != nil {
			return err
		}
		_, err = readHeader(r)
		ok = err == nil
		return nil
	})
	return ok
}

// readHeader reads the EBML header and returns the document type.
func readHeader(r *ebml.Reader) (string, error) {
	h, err := r.ReadHeader()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotMatroska, err)
	}
	if h.ID != ebml.IDEBML {
		return "", fmt.Errorf("%w: no EBML header", ErrNotMatroska)
	}
	el, err := r.ReadBody(h)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotMatroska, err)
	}
	docType := el.GetString(ebml.IDDocType, "matroska")
	if docType != "matroska" && docType != "webm" {
		return "", fmt.Errorf("%w: doc type %q", ErrNotMatroska, docType)
	}
	return docType, nil
}

// Open reads the header and metadata of the file in rs. Clusters
// are skipped, elements after them are found through the SeekHead.
func Open(rs io.ReadSeeker) (*File, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r, err := ebml.NewReader(rs, matroska.Schema)
	if err != nil {
		return nil, err
	}
	f := &File{
		r:            r,
		firstCluster: -1,
		Info:         Info{TimestampScale: 1000000},
	}
	if f.DocType, err = readHeader(r); err != nil {
		return nil, err
	}

	var h ebml.Header
	for {
		if h, err = r.ReadHeader(); err != nil {
			return nil, fmt.Errorf("%w: no segment: %v", ErrNotMatroska, err)
		}
		if h.ID == matroska.IDSegment {
			break
		}
		if err := r.Skip(h); err != nil {
			return nil, err
		}
	}
	f.dataStart = h.DataOffset()
	f.segmentEnd = h.End()

	if err := f.readMetadata(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) inSegment(pos int64) bool {
	return f.segmentEnd < 0 || pos < f.segmentEnd
}

func (f *File) readMetadata() error {
	r := f.r
	seen := make(map[int64]bool)
	var targets []int64

	handle := func(h ebml.Header) error {
		seen[h.Offset] = true
		el, err := r.ReadBody(h)
		if err != nil {
			return err
		}
		if el.ID == matroska.IDSeekHead {
			targets = append(targets, f.seekTargets(el)...)
			return nil
		}
		return f.parseLevel1(el)
	}

	for f.inSegment(r.Pos()) {
		h, err := r.ReadHeader()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if h.ID == matroska.IDCluster {
			if f.firstCluster < 0 {
				f.firstCluster = h.Offset
			}
			if h.UnknownSize {
				break
			}
			if err := r.Skip(h); err != nil {
				return err
			}
			continue
		}
		if !isMetadata(h.ID) {
			if err := r.Skip(h); err != nil {
				return err
			}
			continue
		}
		if err := handle(h); err != nil {
			return err
		}
	}

	for len(targets) > 0 {
		pos := targets[0]
		targets = targets[1:]
		if seen[pos] {
			continue
		}
		seen[pos] = true
		if err := r.SeekTo(pos); err != nil {
			return err
		}
		h, err := r.ReadHeader()
		if err != nil {
			return fmt.Errorf("seek head target %d: %w", pos, err)
		}
		if !isMetadata(h.ID) {
			continue
		}
		if err := handle(h); err != nil {
			return err
		}
	}
	return nil
}

func isMetadata(id ebml.ID) bool {
	return matroska.IsTopLevel(id) && id != matroska.IDCluster
}

func (f *File) seekTargets(el *ebml.Element) []int64 {
	var ret []int64
	for _, seek := range el.FindAll(matroska.IDSeek) {
		if seek.Find(matroska.IDSeekPosition) == nil {
			continue
		}
		ret = append(ret, f.dataStart+int64(seek.GetUint(matroska.IDSeekPosition, 0)))
	}
	return ret
}

func (f *File) parseLevel1(el *ebml.Element) error {
	var err error
	switch el.ID {
	case matroska.IDInfo:
		f.Info = parseInfo(el)
	case matroska.IDTracks:
		f.Tracks = nil
		for _, e := range el.FindAll(matroska.IDTrackEntry) {
			f.Tracks = append(f.Tracks, parseTrack(e))
		}
	case matroska.IDCues:
		f.Cues = parseCues(el)
	case matroska.IDChapters:
		f.Chapters, err = chapters.FromEBML(el)
	case matroska.IDTags:
		f.Tags, err = tags.FromEBML(el)
	case matroska.IDAttachments:
		f.Attachments = parseAttachments(el)
	}
	return err
}

func parseInfo(el *ebml.Element) Info {
	info := Info{
		TimestampScale: int64(el.GetUint(matroska.IDTimestampScale, 1000000)),
		Duration:       el.GetFloat(matroska.IDDuration, 0),
		Title:          el.GetString(matroska.IDTitle, ""),
		MuxingApp:      el.GetString(matroska.IDMuxingApp, ""),
		WritingApp:     el.GetString(matroska.IDWritingApp, ""),
		SegmentUID:     el.GetBinary(matroska.IDSegmentUID),
		PrevUID:        el.GetBinary(matroska.IDPrevUID),
		PrevFilename:   el.GetString(matroska.IDPrevFilename, ""),
		NextUID:        el.GetBinary(matroska.IDNextUID),
		NextFilename:   el.GetString(matroska.IDNextFilename, ""),
	}
	if d := el.Find(matroska.IDDateUTC); d != nil {
		info.DateUTC = d.Date
	}
	return info
}

func parseTrack(el *ebml.Element) *packetizer.Track {
	t := &packetizer.Track{
		Number:          el.GetUint(matroska.IDTrackNumber, 0),
		UID:             el.GetUint(matroska.IDTrackUID, 0),
		Type:            el.GetUint(matroska.IDTrackType, 0),
		CodecID:         el.GetString(matroska.IDCodecID, ""),
		CodecPrivate:    ebml.Binary(el.GetBinary(matroska.IDCodecPrivate)).Clone(),
		DefaultDuration: int64(el.GetUint(matroska.IDDefaultDuration, 0)),
		Language:        el.GetString(matroska.IDLanguage, "eng"),
		Name:            el.GetString(matroska.IDName, ""),
		Default:         el.GetUint(matroska.IDFlagDefault, 1) == 1,
		Forced:          el.GetUint(matroska.IDFlagForced, 0) == 1,
		Lacing:          el.GetUint(matroska.IDFlagLacing, 1) == 1,
	}
	if v := el.Find(matroska.IDVideo); v != nil {
		t.Video = &packetizer.VideoParams{
			PixelWidth:    v.GetUint(matroska.IDPixelWidth, 0),
			PixelHeight:   v.GetUint(matroska.IDPixelHeight, 0),
			DisplayWidth:  v.GetUint(matroska.IDDisplayWidth, 0),
			DisplayHeight: v.GetUint(matroska.IDDisplayHeight, 0),
		}
	}
	if a := el.Find(matroska.IDAudio); a != nil {
		t.Audio = &packetizer.AudioParams{
			SamplingFrequency: a.GetFloat(matroska.IDSamplingFrequency, 8000),
			Channels:          a.GetUint(matroska.IDChannels, 1),
			BitDepth:          a.GetUint(matroska.IDBitDepth, 0),
		}
	}
	return t
}

func parseCues(el *ebml.Element) []CuePoint {
	var ret []CuePoint
	for _, point := range el.FindAll(matroska.IDCuePoint) {
		t := int64(point.GetUint(matroska.IDCueTime, 0))
		for _, pos := range point.FindAll(matroska.IDCueTrackPositions) {
			ret = append(ret, CuePoint{
				Time:             t,
				Track:            pos.GetUint(matroska.IDCueTrack, 0),
				ClusterPosition:  int64(pos.GetUint(matroska.IDCueClusterPosition, 0)),
				RelativePosition: int64(pos.GetUint(matroska.IDCueRelativePosition, 0)),
			})
		}
	}
	return ret
}

func parseAttachments(el *ebml.Element) []Attachment {
	var ret []Attachment
	for _, f := range el.FindAll(matroska.IDAttachedFile) {
		ret = append(ret, Attachment{
			UID:         f.GetUint(matroska.IDFileUID, 0),
			Name:        f.GetString(matroska.IDFileName, ""),
			MimeType:    f.GetString(matroska.IDFileMimeType, ""),
			Description: f.GetString(matroska.IDFileDescription, ""),
			Data:        f.GetBinary(matroska.IDFileData),
		})
	}
	return ret
}

// Track returns the track with the given number.
func (f *File) Track(number uint64) *packetizer.Track {
	for _, t := range f.Tracks {
		if t.Number == number {
			return t
		}
	}
	return nil
}

// DataStart returns the stream position of the segment data,
// which cue and seek positions are relative to.
func (f *File) DataStart() int64 {
	return f.dataStart
}

// Duration returns the segment duration in ns.
func (f *File) Duration() int64 {
	return int64(f.Info.Duration * float64(f.Info.TimestampScale))
}
