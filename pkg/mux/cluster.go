package mux

import (
	"math"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
)

// block is a SimpleBlock or BlockGroup waiting for its cluster to be rendered.
type block struct {
	track     *trackState
	timestamp int64 // Ticks.
	keyframe  bool
	cue       bool
	frames    [][]byte

	// Laced frames share the lace group of the first frame.
	laceGroup int
	next      int64 // Expected timestamp of the next laced frame in ns.

	group     bool  // Written as a BlockGroup.
	duration  int64 // Ticks, BlockGroup only.
	reference int64 // Ticks relative to this block, 0 is none.
}

func (b *block) size() int64 {
	n := int64(8)
	for _, f := range b.frames {
		n += int64(len(f)) + 2
	}
	return n
}

func (b *block) element(clusterTimestamp int64) (*ebml.Element, error) {
	mb := matroska.Block{
		Track:     b.track.track.Number,
		Timestamp: int16(b.timestamp - clusterTimestamp),
		Keyframe:  b.keyframe,
		Lacing:    matroska.ChooseLacing(b.frames),
		Frames:    b.frames,
	}
	if !b.group {
		data, err := mb.Marshal(true)
		if err != nil {
			return nil, err
		}
		return ebml.NewBinary(matroska.IDSimpleBlock, data), nil
	}

	data, err := mb.Marshal(false)
	if err != nil {
		return nil, err
	}
	el := ebml.NewMaster(matroska.IDBlockGroup, ebml.NewBinary(matroska.IDBlock, data))
	if b.duration > 0 {
		el.Add(ebml.NewUint(matroska.IDBlockDuration, uint64(b.duration)))
	}
	if b.reference != 0 {
		el.Add(ebml.NewInt(matroska.IDReferenceBlock, b.reference))
	}
	return el, nil
}

// cluster collects blocks until it is rendered.
type cluster struct {
	timestamp int64 // Ticks.
	start     int64 // ns of the first block.
	blocks    []*block
	size      int64

	// Last block if more frames may be laced into it.
	lace *block
}

func (c *cluster) add(b *block) {
	c.blocks = append(c.blocks, b)
	c.size += b.size()
}

// fits reports whether a block at ticks can be stored
// relative to the cluster timestamp.
func (c *cluster) fits(ticks int64) bool {
	rel := ticks - c.timestamp
	return rel >= math.MinInt16 && rel <= math.MaxInt16
}

// canLace reports whether a frame can be appended to the open lace.
func (c *cluster) canLace(t *trackState, laceGroup int, ts int64, keyframe bool) bool {
	l := c.lace
	return l != nil &&
		l.track == t &&
		laceGroup != 0 &&
		l.laceGroup == laceGroup &&
		l.keyframe == keyframe &&
		l.next == ts &&
		len(l.frames) < matroska.MaxLacedFrames
}

func (c *cluster) appendFrame(data []byte, next int64) {
	c.lace.frames = append(c.lace.frames, data)
	c.lace.next = next
	c.size += int64(len(data)) + 2
}
