package demux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/packetizer"
)

// PacketReader reads the packets of all tracks in file order.
type PacketReader struct {
	f *File

	inCluster  bool
	clusterEnd int64 // -1 for unknown size.
	clusterTS  int64
	blocks     int
	done       bool

	pending []packetizer.Packet
}

// Packets returns a reader positioned at the first cluster.
// Only one reader may be used at a time.
func (f *File) Packets() (*PacketReader, error) {
	pr := &PacketReader{f: f}
	if f.firstCluster < 0 {
		pr.done = true
		return pr, nil
	}
	if err := f.r.SeekTo(f.firstCluster); err != nil {
		return nil, err
	}
	return pr, nil
}

// Next returns the next packet, ok is false at the end of the file.
func (pr *PacketReader) Next(ctx context.Context) (packetizer.Packet, bool, error) {
	for len(pr.pending) == 0 {
		if pr.done {
			return packetizer.Packet{}, false, nil
		}
		if err := ctx.Err(); err != nil {
			return packetizer.Packet{}, false, err
		}
		if err := pr.step(); err != nil {
			return packetizer.Packet{}, false, err
		}
	}
	pkt := pr.pending[0]
	pr.pending = pr.pending[1:]
	return pkt, true, nil
}

// step reads one element.
func (pr *PacketReader) step() error {
	r := pr.f.r
	if !pr.inCluster {
		if !pr.f.inSegment(r.Pos()) {
			pr.done = true
			return nil
		}
		h, err := r.ReadHeader()
		if errors.Is(err, io.EOF) {
			pr.done = true
			return nil
		}
		if err != nil {
			return err
		}
		if h.ID == matroska.IDCluster {
			pr.inCluster = true
			pr.clusterEnd = h.End()
			pr.clusterTS = 0
			return nil
		}
		return r.Skip(h)
	}

	if pr.clusterEnd >= 0 && r.Pos() >= pr.clusterEnd {
		pr.inCluster = false
		return nil
	}
	h, err := r.ReadHeader()
	if errors.Is(err, io.EOF) {
		pr.done = true
		return nil
	}
	if err != nil {
		return err
	}
	// A cluster of unknown size ends at the next top level element.
	if pr.clusterEnd < 0 && (matroska.IsTopLevel(h.ID) || h.ID == ebml.IDEBML) {
		pr.inCluster = false
		return r.SeekTo(h.Offset)
	}

	switch h.ID {
	case matroska.IDTimestamp:
		el, err := r.ReadBody(h)
		if err != nil {
			return err
		}
		pr.clusterTS = int64(el.Uint)
	case matroska.IDSimpleBlock:
		el, err := r.ReadBody(h)
		if err != nil {
			return err
		}
		return pr.addBlock(el.Binary, true, false, 0, h.Offset)
	case matroska.IDBlockGroup:
		el, err := r.ReadBody(h)
		if err != nil {
			return err
		}
		data := el.GetBinary(matroska.IDBlock)
		if data == nil {
			return fmt.Errorf("%w: block group without block at offset %d",
				ebml.ErrMalformedElement, h.Offset)
		}
		keyframe := el.Find(matroska.IDReferenceBlock) == nil
		duration := int64(el.GetUint(matroska.IDBlockDuration, 0))
		return pr.addBlock(data, false, keyframe, duration, h.Offset)
	default:
		return r.Skip(h)
	}
	return nil
}

func (pr *PacketReader) addBlock(data []byte, simple, keyframe bool, duration, offset int64) error {
	var b matroska.Block
	if err := b.Unmarshal(data, simple); err != nil {
		return fmt.Errorf("block at offset %d: %w", offset, err)
	}
	if simple {
		keyframe = b.Keyframe
	}
	t := pr.f.Track(b.Track)
	if t == nil {
		return nil
	}
	pr.blocks++

	scale := pr.f.Info.TimestampScale
	ts := (pr.clusterTS + int64(b.Timestamp)) * scale
	frameDuration := t.DefaultDuration
	if duration > 0 && len(b.Frames) == 1 {
		frameDuration = duration * scale
	}
	var laceGroup int
	if b.Lacing != matroska.LacingNone {
		laceGroup = pr.blocks
	}

	for i, frame := range b.Frames {
		pr.pending = append(pr.pending, packetizer.Packet{
			TrackID:   b.Track,
			Timestamp: ts + int64(i)*t.DefaultDuration,
			Duration:  frameDuration,
			Data:      frame,
			Keyframe:  keyframe,
			LaceGroup: laceGroup,
		})
	}
	return nil
}

// dispatcher distributes the packets of one PacketReader to
// per-track queues. It is called from prefetch workers.
type dispatcher struct {
	mu     sync.Mutex
	pr     *PacketReader
	queues map[uint64][]packetizer.Packet
	done   bool
	err    error
}

func (d *dispatcher) next(ctx context.Context, number uint64) (packetizer.Packet, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if q := d.queues[number]; len(q) > 0 {
			d.queues[number] = q[1:]
			return q[0], true, nil
		}
		if d.err != nil {
			return packetizer.Packet{}, false, d.err
		}
		if d.done {
			return packetizer.Packet{}, false, nil
		}
		pkt, ok, err := d.pr.Next(ctx)
		if err != nil {
			// Cancellation of one reader doesn't poison the others.
			if !errors.Is(err, context.Canceled) {
				d.err = err
			}
			return packetizer.Packet{}, false, err
		}
		if !ok {
			d.done = true
			continue
		}
		if q, ok := d.queues[pkt.TrackID]; ok {
			d.queues[pkt.TrackID] = append(q, pkt)
		}
	}
}

// trackPacketizer is a packetizer for one track of a File.
type trackPacketizer struct {
	d      *dispatcher
	number uint64
	track  *packetizer.Track
}

func (p *trackPacketizer) Track() *packetizer.Track {
	return p.track
}

func (p *trackPacketizer) Next(ctx context.Context) (packetizer.Packet, bool, error) {
	pkt, ok, err := p.d.next(ctx, p.number)
	if ok {
		pkt.TrackID = p.track.Number
	}
	return pkt, ok, err
}

func (p *trackPacketizer) CanConnectTo(other packetizer.Packetizer) packetizer.Connection {
	return packetizer.CanConnect(p.track, other.Track())
}

// Packetizers returns packetizers for the given track numbers, or
// for all tracks if none are given. Packets of other tracks are
// dropped. The returned tracks are copies that may be modified.
func (f *File) Packetizers(numbers ...uint64) ([]packetizer.Packetizer, error) {
	if len(numbers) == 0 {
		for _, t := range f.Tracks {
			numbers = append(numbers, t.Number)
		}
	}
	pr, err := f.Packets()
	if err != nil {
		return nil, err
	}

	d := &dispatcher{pr: pr, queues: make(map[uint64][]packetizer.Packet)}
	var ret []packetizer.Packetizer
	for _, n := range numbers {
		t := f.Track(n)
		if t == nil {
			return nil, fmt.Errorf("no track %d", n)
		}
		if _, exists := d.queues[n]; exists {
			continue
		}
		d.queues[n] = nil
		ret = append(ret, &trackPacketizer{d: d, number: n, track: t.Clone()})
	}
	return ret, nil
}
