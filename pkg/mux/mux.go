// Package mux interleaves the packets of several tracks by
// timestamp and writes them as Matroska clusters, optionally
// split over several linked files.
package mux

import (
	"context"
	"errors"
	"fmt"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/packetizer"

	"github.com/google/uuid"
)

// ErrNegativeTimestamp is returned for packets before timestamp zero.
var ErrNegativeTimestamp = errors.New("negative timestamp")

// ClusterInfo describes a written cluster. Timestamp is in
// timestamp scale units, Position is relative to the segment data.
type ClusterInfo struct {
	Timestamp int64
	Position  int64
	Size      int64
	Blocks    int
}

// CueEntry is a written cue point. Time is in timestamp scale units,
// ClusterPosition is relative to the segment data and
// RelativePosition to the cluster data.
type CueEntry struct {
	Time             int64
	Track            uint64
	ClusterPosition  int64
	RelativePosition int64
}

// FileResult describes one output file.
type FileResult struct {
	Name       string
	SegmentUID []byte
	PrevUID    []byte
	NextUID    []byte

	// Start and End of the contained packets in ns.
	Start int64
	End   int64
	Size  int64

	Clusters []ClusterInfo
	Cues     []CueEntry
}

// Result of a Run.
type Result struct {
	Files []FileResult
}

type trackState struct {
	p     packetizer.Packetizer
	track *packetizer.Track

	head    packetizer.Packet
	hasHead bool
	done    bool
	last    int64 // ns.

	lastTicks int64
	hasLast   bool
}

// Muxer writes the packets of its tracks to Outputs.
type Muxer struct {
	outputs Outputs
	opts    Options

	tracks   []*trackState
	chapters *chapters.Chapters

	// Split state.
	splitTrack *trackState
	hasVideo   bool
	boundaries []int64
	boundary   int

	seg       *segment
	cluster   *cluster
	fileStart int64
	fileEnd   int64
	fileBlks  int
	result    Result
}

// New returns a Muxer. The chapters in opts are copied and
// completed with the mandatory elements. Duplicate chapter or
// edition uids fail with matroska.ErrDuplicateUID.
func New(outputs Outputs, opts Options) (*Muxer, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	m := &Muxer{outputs: outputs, opts: opts}
	m.opts.Attachments = append([]Attachment(nil), opts.Attachments...)

	if !opts.Chapters.Empty() {
		m.chapters = opts.Chapters.Clone()
		m.chapters.FixMandatory(opts.UIDs)
		if err := m.chapters.Validate(); err != nil {
			return nil, fmt.Errorf("chapters: %w", err)
		}
	}

	for i := range m.opts.Attachments {
		a := &m.opts.Attachments[i]
		if a.UID == 0 {
			a.UID = opts.UIDs.New(matroska.UIDAttachment)
			continue
		}
		if err := opts.UIDs.Add(matroska.UIDAttachment, a.UID); err != nil {
			return nil, fmt.Errorf("attachment %s: %w", a.Name, err)
		}
	}

	switch opts.Split.Mode {
	case SplitTimestamps:
		m.boundaries = opts.Split.Timestamps
	case SplitChapters:
		for _, ts := range m.chapters.StartTimes() {
			if ts > 0 {
				m.boundaries = append(m.boundaries, ts)
			}
		}
	}
	return m, nil
}

// AddTrack registers a packetizer. Tracks are numbered in the
// order they are added, which also breaks timestamp ties.
func (m *Muxer) AddTrack(p packetizer.Packetizer) (*packetizer.Track, error) {
	t := p.Track()
	if err := m.opts.Profile.CheckCodec(t.CodecID); err != nil {
		return nil, err
	}
	t.Number = uint64(len(m.tracks) + 1)
	if t.UID == 0 {
		t.UID = m.opts.UIDs.New(matroska.UIDTrack)
	} else if err := m.opts.UIDs.Add(matroska.UIDTrack, t.UID); err != nil {
		return nil, fmt.Errorf("track %d: %w", t.Number, err)
	}

	ts := &trackState{p: p, track: t}
	m.tracks = append(m.tracks, ts)
	if t.IsVideo() && !m.hasVideo {
		m.hasVideo = true
		m.splitTrack = ts
	}
	return t, nil
}

// Run muxes all packets. On error the current output is closed
// without being finalized.
func (m *Muxer) Run(ctx context.Context) (res *Result, err error) {
	if len(m.tracks) == 0 {
		return nil, ErrNoTracks
	}
	if err := m.opts.Tags.CheckTargets(m.opts.UIDs); err != nil {
		return nil, err
	}

	if m.opts.ReadAhead > 0 {
		sources := make([]packetizer.Packetizer, len(m.tracks))
		for i, t := range m.tracks {
			sources[i] = t.p
		}
		pf := packetizer.Prefetch(ctx, sources, m.opts.ReadAhead)
		for i, p := range pf.Packetizers() {
			m.tracks[i].p = p
		}
		defer func() {
			if cerr := pf.Close(); cerr != nil && err == nil {
				res, err = nil, cerr
			}
		}()
	}

	out, name, err := m.outputs.Create(0)
	if err != nil {
		return nil, err
	}
	if err := m.startFile(out, name, 0, newSegmentUID(), nil, 0); err != nil {
		out.Close()
		return nil, err
	}
	defer func() {
		if err != nil {
			m.abort()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := m.nextTrack(ctx)
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		pkt := t.head
		t.hasHead = false
		if err := m.mux(ctx, t, pkt); err != nil {
			return nil, err
		}
	}

	if err := m.renderCluster(ctx); err != nil {
		return nil, err
	}
	if err := m.finishFile(nil, -1); err != nil {
		return nil, err
	}
	return &m.result, nil
}

// nextTrack returns the track with the earliest pending packet
// or nil when all tracks are done. Every track that isn't done
// must have a packet pending before a choice is made.
func (m *Muxer) nextTrack(ctx context.Context) (*trackState, error) {
	var best *trackState
	for _, t := range m.tracks {
		if !t.hasHead && !t.done {
			pkt, ok, err := t.p.Next(ctx)
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", t.track.Number, err)
			}
			if !ok {
				t.done = true
				continue
			}
			if pkt.Timestamp < 0 {
				return nil, fmt.Errorf("track %d: %w: %d", t.track.Number, ErrNegativeTimestamp, pkt.Timestamp)
			}
			if pkt.Timestamp < t.last {
				return nil, fmt.Errorf("track %d: %w: %d after %d",
					t.track.Number, packetizer.ErrTimestampOrder, pkt.Timestamp, t.last)
			}
			t.last = pkt.Timestamp
			t.head = pkt
			t.hasHead = true
		}
		if t.hasHead && (best == nil || t.head.Timestamp < best.head.Timestamp) {
			best = t
		}
	}
	return best, nil
}

// ticks converts ns to timestamp scale units.
func (m *Muxer) ticks(ns int64) int64 {
	scale := m.opts.TimestampScale
	return (ns + scale/2) / scale
}

func (m *Muxer) mux(ctx context.Context, t *trackState, pkt packetizer.Packet) error {
	if m.shouldSplit(t, pkt) {
		if err := m.split(ctx, pkt.Timestamp); err != nil {
			return err
		}
	}

	var offset int64
	if m.opts.Split.NoLinking {
		offset = m.fileStart
	}
	ticks := m.ticks(pkt.Timestamp - offset)

	if c := m.cluster; c != nil && m.clusterFull(c, ticks, pkt.Timestamp) {
		if err := m.renderCluster(ctx); err != nil {
			return err
		}
	}
	c := m.cluster
	if c == nil {
		c = &cluster{timestamp: ticks, start: pkt.Timestamp}
		m.cluster = c
	}

	duration := pkt.Duration
	if duration <= 0 {
		duration = t.track.DefaultDuration
	}
	end := pkt.Timestamp + duration
	group, groupDuration := m.blockGroup(t.track, pkt)

	if !group && c.canLace(t, pkt.LaceGroup, pkt.Timestamp, pkt.Keyframe) {
		c.appendFrame(pkt.Data, end)
	} else {
		b := &block{
			track:     t,
			timestamp: ticks,
			keyframe:  pkt.Keyframe,
			cue:       pkt.Keyframe && m.cueTrack(t) && !m.opts.DisableCues,
			frames:    [][]byte{pkt.Data},
			laceGroup: pkt.LaceGroup,
			next:      end,
			group:     group,
			duration:  groupDuration,
		}
		if group && !pkt.Keyframe && t.hasLast {
			b.reference = t.lastTicks - ticks
		}
		c.add(b)
		c.lace = nil
		if pkt.LaceGroup != 0 && !group && t.track.Lacing && m.opts.Profile.AllowsLacing(t.track.Type) {
			c.lace = b
		}
		m.fileBlks++
	}

	t.lastTicks, t.hasLast = ticks, true
	if end > m.fileEnd {
		m.fileEnd = end
	}
	return nil
}

// clusterFull reports whether a packet at ticks must start a new cluster.
func (m *Muxer) clusterFull(c *cluster, ticks, ts int64) bool {
	switch {
	case !c.fits(ticks):
		return true
	case m.opts.MaxClusterDuration > 0 && ts-c.start >= m.opts.MaxClusterDuration:
		return true
	case m.opts.MaxClusterSize > 0 && c.size >= m.opts.MaxClusterSize:
		return true
	case m.opts.MaxClusterBlocks > 0 && len(c.blocks) >= m.opts.MaxClusterBlocks:
		return true
	}
	return false
}

// blockGroup reports whether the packet needs a BlockGroup to
// store its duration, and the duration in ticks.
func (m *Muxer) blockGroup(t *packetizer.Track, pkt packetizer.Packet) (bool, int64) {
	if pkt.Duration <= 0 {
		return false, 0
	}
	d := m.ticks(pkt.Duration)
	if t.Type == matroska.TrackTypeSubtitle {
		return true, d
	}
	if t.DefaultDuration > 0 && d != m.ticks(t.DefaultDuration) {
		return true, d
	}
	return false, 0
}

// cueTrack reports whether keyframes of t are indexed. Only video
// tracks are indexed unless there is no video.
func (m *Muxer) cueTrack(t *trackState) bool {
	return !m.hasVideo || t.track.IsVideo()
}

func (m *Muxer) renderCluster(ctx context.Context) error {
	c := m.cluster
	if c == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cluster = nil
	if err := m.seg.writeCluster(c); err != nil {
		return err
	}
	m.opts.Logger.Debug().Src("mux").File(m.seg.name).
		Msgf("cluster at %d with %d blocks", c.timestamp, len(c.blocks))
	return nil
}

// shouldSplit reports whether pkt starts a new file.
func (m *Muxer) shouldSplit(t *trackState, pkt packetizer.Packet) bool {
	sp := m.opts.Split
	if sp.Mode == SplitNone || m.fileBlks == 0 || !pkt.Keyframe {
		return false
	}
	if m.splitTrack != nil && t != m.splitTrack {
		return false
	}
	if sp.MaxFiles > 0 && m.seg.index+1 >= sp.MaxFiles {
		return false
	}

	switch sp.Mode {
	case SplitSize:
		size := m.seg.end
		if m.cluster != nil {
			size += m.cluster.size
		}
		return size >= sp.Size
	case SplitDuration:
		return pkt.Timestamp-m.fileStart >= sp.Duration
	case SplitTimestamps, SplitChapters:
		for m.boundary < len(m.boundaries) && m.boundaries[m.boundary] <= m.fileStart {
			m.boundary++
		}
		return m.boundary < len(m.boundaries) && pkt.Timestamp >= m.boundaries[m.boundary]
	}
	return false
}

// split finalizes the current file and starts the next one at ts.
func (m *Muxer) split(ctx context.Context, ts int64) error {
	if err := m.renderCluster(ctx); err != nil {
		return err
	}

	index := m.seg.index + 1
	out, name, err := m.outputs.Create(index)
	if err != nil {
		return err
	}
	uid := newSegmentUID()

	var next, prev *link
	if !m.opts.Split.NoLinking {
		next = &link{uid: uid, name: baseName(name)}
		prev = &link{uid: m.seg.uid, name: baseName(m.seg.name)}
	}
	if err := m.finishFile(next, ts); err != nil {
		out.Close()
		return err
	}
	if err := m.startFile(out, name, index, uid, prev, ts); err != nil {
		out.Close()
		return err
	}
	return nil
}

func (m *Muxer) startFile(out mmio.Stream, name string, index int, uid []byte, prev *link, start int64) error {
	s, err := m.openSegment(out, name, index, uid, prev)
	if err != nil {
		return err
	}
	m.seg = s
	m.fileStart = start
	m.fileEnd = start
	m.fileBlks = 0
	for _, t := range m.tracks {
		t.hasLast = false
	}
	m.opts.Logger.Info().Src("mux").File(name).Msgf("writing file %d", index+1)
	return nil
}

// fileMetadata returns the chapters and tags of the current
// file, which ends at nextStart or is the last file if negative.
func (m *Muxer) fileMetadata(nextStart int64) fileMetadata {
	var meta fileMetadata
	if m.chapters != nil {
		c := m.chapters.Clone()
		var offset int64
		if m.opts.Split.NoLinking {
			offset = -m.fileStart
		}
		if c.SelectTimeframe(m.fileStart, nextStart, offset) {
			meta.chapters = c
		}
	}
	if !m.opts.Tags.Empty() {
		t := m.opts.Tags.Clone()
		keep := func(uint64) bool { return false }
		if meta.chapters != nil {
			keep = meta.chapters.HasAtom
		}
		t.RetainChapterUIDs(keep)
		meta.tags = t
	}
	return meta
}

func (m *Muxer) finishFile(next *link, nextStart int64) error {
	s := m.seg
	duration := float64(m.fileEnd-m.fileStart) / float64(m.opts.TimestampScale)
	if err := m.finalize(s, m.fileMetadata(nextStart), duration, next); err != nil {
		return err
	}
	m.seg = nil
	if err := s.out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.name, err)
	}

	f := FileResult{
		Name:       s.name,
		SegmentUID: s.uid,
		Start:      m.fileStart,
		End:        m.fileEnd,
		Size:       s.end,
		Clusters:   s.clusters,
		Cues:       s.cues,
	}
	if s.prev != nil {
		f.PrevUID = s.prev.uid
	}
	if next != nil {
		f.NextUID = next.uid
	}
	m.result.Files = append(m.result.Files, f)

	m.opts.Logger.Info().Src("mux").File(s.name).
		Msgf("finished, %d clusters, %d bytes", len(s.clusters), s.end)
	return nil
}

// abort closes the current output without finalizing it.
func (m *Muxer) abort() {
	if m.seg == nil {
		return
	}
	m.seg.out.Close()
	m.opts.Logger.Error().Src("mux").File(m.seg.name).Msg("aborted, output is incomplete")
	m.seg = nil
}

func newSegmentUID() []byte {
	u := uuid.New()
	return u[:]
}
