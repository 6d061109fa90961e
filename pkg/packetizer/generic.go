package packetizer

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Chunk is a frame delivered by a codec reader.
type Chunk struct {
	Data []byte

	// Timestamp in nanoseconds, negative if unknown. Unknown
	// timestamps continue from the previous chunk.
	Timestamp int64

	// Duration in nanoseconds, zero for the track default.
	Duration  int64
	Keyframe  bool
	LaceGroup int
}

// ChunkSource delivers the chunks of one track. ReadChunk returns
// io.EOF after the last chunk.
type ChunkSource interface {
	ReadChunk(ctx context.Context) (Chunk, error)
}

// Generic is a packetizer over a ChunkSource.
type Generic struct {
	track *Track
	src   ChunkSource

	next  int64
	last  int64
	count int
	ended bool
}

// NewGeneric returns a packetizer for track reading from src.
func NewGeneric(track *Track, src ChunkSource) *Generic {
	return &Generic{track: track, src: src}
}

// Track implements Packetizer.
func (g *Generic) Track() *Track {
	return g.track
}

// Next implements Packetizer.
func (g *Generic) Next(ctx context.Context) (Packet, bool, error) {
	if g.ended {
		return Packet{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return Packet{}, false, err
	}

	c, err := g.src.ReadChunk(ctx)
	if errors.Is(err, io.EOF) {
		g.ended = true
		return Packet{}, false, nil
	}
	if err != nil {
		return Packet{}, false, err
	}

	ts := c.Timestamp
	if ts < 0 {
		ts = g.next
	}
	if g.count > 0 && ts < g.last {
		return Packet{}, false, fmt.Errorf("%w: track %d: %d after %d",
			ErrTimestampOrder, g.track.Number, ts, g.last)
	}
	duration := c.Duration
	if duration <= 0 {
		duration = g.track.DefaultDuration
	}
	g.last = ts
	g.next = ts + duration
	g.count++

	return Packet{
		TrackID:   g.track.Number,
		Timestamp: ts,
		Duration:  duration,
		Data:      c.Data,
		Keyframe:  c.Keyframe,
		LaceGroup: c.LaceGroup,
	}, true, nil
}

// CanConnectTo implements Packetizer.
func (g *Generic) CanConnectTo(other Packetizer) Connection {
	return CanConnect(g.track, other.Track())
}

// SliceSource is a ChunkSource over a fixed list of chunks.
type SliceSource struct {
	chunks []Chunk
}

// NewSliceSource returns a source delivering chunks in order.
func NewSliceSource(chunks ...Chunk) *SliceSource {
	return &SliceSource{chunks: chunks}
}

// ReadChunk implements ChunkSource.
func (s *SliceSource) ReadChunk(ctx context.Context) (Chunk, error) {
	if len(s.chunks) == 0 {
		return Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}
