package aac

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/packetizer"
)

// CodecID is the Matroska codec id of AAC tracks.
const CodecID = "A_AAC"

// Probe reports whether rs starts with an ADTS frame, optionally
// after an ID3v2 tag. The position of rs is not changed.
func Probe(rs io.ReadSeeker) bool {
	ok := false
	mmio.SavePos(rs, func() error { //nolint:errcheck
		if _, err := mmio.SkipID3v2Tag(rs); err != nil {
			return err
		}
		buf := make([]byte, HeaderSize)
		if _, err := io.ReadFull(rs, buf); err != nil {
			return err
		}
		_, err := ParseHeader(buf)
		ok = err == nil
		return nil
	})
	return ok
}

// source reads ADTS frames and timestamps them by sample count.
type source struct {
	r      *bufio.Reader
	offset int64
	config Config
	frames int64
}

// ReadChunk implements packetizer.ChunkSource.
func (s *source) ReadChunk(ctx context.Context) (packetizer.Chunk, error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(s.r, header)
	if n == 0 && errors.Is(err, io.EOF) {
		return packetizer.Chunk{}, io.EOF
	}
	if err != nil {
		return packetizer.Chunk{}, fmt.Errorf("truncated ADTS header at offset %d", s.offset)
	}

	h, err := ParseHeader(header)
	if err != nil {
		return packetizer.Chunk{}, fmt.Errorf("at offset %d: %w", s.offset, err)
	}
	if h.RawBlocks != 1 {
		return packetizer.Chunk{}, fmt.Errorf("at offset %d: %w", s.offset, ErrMultipleBlocks)
	}
	if h.Config != s.config {
		return packetizer.Chunk{}, fmt.Errorf("at offset %d: stream parameters changed", s.offset)
	}

	// The CRC is not kept.
	if !h.ProtectionAbsent {
		if _, err := s.r.Discard(2); err != nil {
			return packetizer.Chunk{}, fmt.Errorf("truncated ADTS header at offset %d", s.offset)
		}
	}
	au := make([]byte, h.FrameLength-h.Size())
	if _, err := io.ReadFull(s.r, au); err != nil {
		return packetizer.Chunk{}, fmt.Errorf("truncated ADTS frame at offset %d", s.offset)
	}
	s.offset += int64(h.FrameLength)

	// Computed from the frame count so rounding errors don't add up.
	rate := int64(s.config.SampleRate)
	ts := s.frames * SamplesPerFrame * 1e9 / rate
	s.frames++
	next := s.frames * SamplesPerFrame * 1e9 / rate

	return packetizer.Chunk{
		Data:      au,
		Timestamp: ts,
		Duration:  next - ts,
		Keyframe:  true,
		LaceGroup: 1,
	}, nil
}

// New returns a packetizer for the ADTS stream in rs. An ID3v2 tag
// at the start is skipped.
func New(rs io.ReadSeeker) (*packetizer.Generic, error) {
	skipped, err := mmio.SkipID3v2Tag(rs)
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(rs)
	peek, err := r.Peek(HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("no ADTS header: %w", err)
	}
	h, err := ParseHeader(peek)
	if err != nil {
		return nil, err
	}
	private, err := h.Config.Encode()
	if err != nil {
		return nil, err
	}

	track := &packetizer.Track{
		Type:            matroska.TrackTypeAudio,
		CodecID:         CodecID,
		CodecPrivate:    private,
		DefaultDuration: SamplesPerFrame * 1e9 / int64(h.Config.SampleRate),
		Lacing:          true,
		Audio: &packetizer.AudioParams{
			SamplingFrequency: float64(h.Config.SampleRate),
			Channels:          uint64(h.Config.ChannelCount),
		},
	}
	src := &source{r: r, offset: skipped, config: h.Config}
	return packetizer.NewGeneric(track, src), nil
}
