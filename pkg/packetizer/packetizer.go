// Package packetizer turns elementary streams into timestamped packets
// for the muxer. Codec specific readers deliver chunks through a
// ChunkSource and the Generic packetizer handles timestamps and end of
// track. Append chains compatible packetizers into one track.
package packetizer

import (
	"context"
	"errors"
	"fmt"

	"mkvtool/pkg/matroska"
)

// Errors.
var (
	ErrIncompatibleAppend = errors.New("incompatible append")
	ErrTimestampOrder     = errors.New("timestamps are not monotonic")
)

// VideoParams are the video properties of a track.
type VideoParams struct {
	PixelWidth    uint64
	PixelHeight   uint64
	DisplayWidth  uint64
	DisplayHeight uint64
}

// AudioParams are the audio properties of a track.
type AudioParams struct {
	SamplingFrequency float64
	Channels          uint64
	BitDepth          uint64
}

// Track describes the output track of a packetizer.
type Track struct {
	Number       uint64
	UID          uint64
	Type         uint64
	CodecID      string
	CodecPrivate []byte

	// DefaultDuration is the nominal frame duration in nanoseconds.
	DefaultDuration int64

	Language string
	Name     string
	Default  bool
	Forced   bool
	Lacing   bool

	Video *VideoParams
	Audio *AudioParams
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	c := *t
	if t.CodecPrivate != nil {
		c.CodecPrivate = append([]byte(nil), t.CodecPrivate...)
	}
	if t.Video != nil {
		v := *t.Video
		c.Video = &v
	}
	if t.Audio != nil {
		a := *t.Audio
		c.Audio = &a
	}
	return &c
}

// IsVideo reports whether t is a video track.
func (t *Track) IsVideo() bool {
	return t.Type == matroska.TrackTypeVideo
}

// Packet is one frame of a track. Timestamps and durations are
// in nanoseconds.
type Packet struct {
	TrackID   uint64
	Timestamp int64
	Duration  int64
	Data      []byte
	Keyframe  bool

	// Consecutive packets with the same non-zero LaceGroup may be
	// stored in one laced block.
	LaceGroup int
}

// End returns the timestamp after the packet.
func (p Packet) End() int64 {
	return p.Timestamp + p.Duration
}

// Connection is the result of a connect check.
type Connection struct {
	OK     bool
	Reason string
}

// Packetizer produces the packets of one track in timestamp order.
type Packetizer interface {
	Track() *Track

	// Next returns the next packet. ok is false at the end of the
	// track, and stays false on later calls.
	Next(ctx context.Context) (pkt Packet, ok bool, err error)

	// CanConnectTo reports whether the packets of other can be
	// appended after the packets of this packetizer.
	CanConnectTo(other Packetizer) Connection
}

// CanConnect compares the properties two tracks must share to be
// appended. The reason names the first difference.
func CanConnect(a, b *Track) Connection {
	fail := func(format string, v ...interface{}) Connection {
		return Connection{Reason: fmt.Sprintf(format, v...)}
	}
	switch {
	case a.Type != b.Type:
		return fail("track types differ: %d and %d", a.Type, b.Type)
	case a.CodecID != b.CodecID:
		return fail("codecs differ: %s and %s", a.CodecID, b.CodecID)
	}

	if (a.Audio == nil) != (b.Audio == nil) {
		return fail("audio parameters missing")
	}
	if a.Audio != nil {
		switch {
		case a.Audio.SamplingFrequency != b.Audio.SamplingFrequency:
			return fail("sampling frequencies differ: %v and %v",
				a.Audio.SamplingFrequency, b.Audio.SamplingFrequency)
		case a.Audio.Channels != b.Audio.Channels:
			return fail("channel counts differ: %d and %d", a.Audio.Channels, b.Audio.Channels)
		case a.Audio.BitDepth != b.Audio.BitDepth:
			return fail("bit depths differ: %d and %d", a.Audio.BitDepth, b.Audio.BitDepth)
		}
	}

	if (a.Video == nil) != (b.Video == nil) {
		return fail("video parameters missing")
	}
	if a.Video != nil {
		if a.Video.PixelWidth != b.Video.PixelWidth || a.Video.PixelHeight != b.Video.PixelHeight {
			return fail("dimensions differ: %dx%d and %dx%d",
				a.Video.PixelWidth, a.Video.PixelHeight,
				b.Video.PixelWidth, b.Video.PixelHeight)
		}
	}

	if string(a.CodecPrivate) != string(b.CodecPrivate) {
		return fail("codec private data differs")
	}
	return Connection{OK: true}
}
