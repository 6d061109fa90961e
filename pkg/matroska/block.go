package matroska

import (
	"errors"
	"fmt"

	"mkvtool/pkg/ebml"
)

// Lacing is the frame packing method of a block.
type Lacing uint8

// Lacing methods, as stored in the block flags.
const (
	LacingNone  Lacing = 0
	LacingXiph  Lacing = 1
	LacingFixed Lacing = 2
	LacingEBML  Lacing = 3
)

// MaxLacedFrames is the largest number of frames in one block.
const MaxLacedFrames = 256

// Block flags.
const (
	flagKeyframe    = 0x80
	flagInvisible   = 0x08
	flagLacingMask  = 0x06
	flagDiscardable = 0x01
)

// Errors.
var (
	ErrBlockShort         = errors.New("block too short")
	ErrBlockNoFrames      = errors.New("block has no frames")
	ErrBlockTooManyFrames = errors.New("too many frames in block")
	ErrBlockLaceSize      = errors.New("invalid lace sizes")
)

// Block is the payload of a SimpleBlock or a Block element.
type Block struct {
	Track       uint64
	Timestamp   int16 // Relative to the cluster timestamp.
	Keyframe    bool  // SimpleBlock only.
	Invisible   bool
	Discardable bool // SimpleBlock only.
	Lacing      Lacing
	Frames      [][]byte
}

// Marshal encodes the block. simple selects the SimpleBlock flag layout.
func (b *Block) Marshal(simple bool) ([]byte, error) {
	if len(b.Frames) == 0 {
		return nil, ErrBlockNoFrames
	}
	if len(b.Frames) > MaxLacedFrames {
		return nil, fmt.Errorf("%w: %d", ErrBlockTooManyFrames, len(b.Frames))
	}
	lacing := b.Lacing
	if len(b.Frames) == 1 {
		lacing = LacingNone
	} else if lacing == LacingNone {
		return nil, fmt.Errorf("%w: %d frames without lacing", ErrBlockLaceSize, len(b.Frames))
	}

	track, err := ebml.EncodeSize(b.Track, 0)
	if err != nil {
		return nil, err
	}

	var flags byte
	if simple && b.Keyframe {
		flags |= flagKeyframe
	}
	if b.Invisible {
		flags |= flagInvisible
	}
	if simple && b.Discardable {
		flags |= flagDiscardable
	}
	flags |= byte(lacing) << 1

	buf := make([]byte, 0, len(track)+3+b.payloadSize()+len(b.Frames)*2)
	buf = append(buf, track...)
	buf = append(buf, byte(uint16(b.Timestamp)>>8), byte(b.Timestamp), flags)

	if lacing != LacingNone {
		buf = append(buf, byte(len(b.Frames)-1))
		sizes, err := b.laceHeader(lacing)
		if err != nil {
			return nil, err
		}
		buf = append(buf, sizes...)
	}
	for _, f := range b.Frames {
		buf = append(buf, f...)
	}
	return buf, nil
}

func (b *Block) payloadSize() int {
	n := 0
	for _, f := range b.Frames {
		n += len(f)
	}
	return n
}

func (b *Block) laceHeader(lacing Lacing) ([]byte, error) {
	last := len(b.Frames) - 1
	var buf []byte
	switch lacing {
	case LacingXiph:
		for _, f := range b.Frames[:last] {
			n := len(f)
			for n >= 255 {
				buf = append(buf, 255)
				n -= 255
			}
			buf = append(buf, byte(n))
		}
	case LacingFixed:
		for _, f := range b.Frames {
			if len(f) != len(b.Frames[0]) {
				return nil, fmt.Errorf("%w: fixed lacing with unequal frames", ErrBlockLaceSize)
			}
		}
	case LacingEBML:
		first, err := ebml.EncodeSize(uint64(len(b.Frames[0])), 0)
		if err != nil {
			return nil, err
		}
		buf = append(buf, first...)
		for i := 1; i < last; i++ {
			diff, err := ebml.EncodeSigned(int64(len(b.Frames[i]) - len(b.Frames[i-1])))
			if err != nil {
				return nil, err
			}
			buf = append(buf, diff...)
		}
	}
	return buf, nil
}

// ChooseLacing returns fixed lacing when all frames have the
// same size and EBML lacing otherwise.
func ChooseLacing(frames [][]byte) Lacing {
	if len(frames) < 2 {
		return LacingNone
	}
	for _, f := range frames[1:] {
		if len(f) != len(frames[0]) {
			return LacingEBML
		}
	}
	return LacingFixed
}

// Unmarshal decodes a block. simple selects the SimpleBlock flag layout.
func (b *Block) Unmarshal(buf []byte, simple bool) error {
	track, n, _, err := ebml.ParseSize(buf)
	if err != nil {
		return fmt.Errorf("track number: %w", err)
	}
	buf = buf[n:]
	if len(buf) < 3 {
		return ErrBlockShort
	}
	b.Track = track
	b.Timestamp = int16(uint16(buf[0])<<8 | uint16(buf[1]))
	flags := buf[2]
	b.Keyframe = simple && flags&flagKeyframe != 0
	b.Invisible = flags&flagInvisible != 0
	b.Discardable = simple && flags&flagDiscardable != 0
	b.Lacing = Lacing((flags & flagLacingMask) >> 1)
	buf = buf[3:]

	if b.Lacing == LacingNone {
		b.Frames = [][]byte{buf}
		return nil
	}

	if len(buf) < 1 {
		return ErrBlockShort
	}
	count := int(buf[0]) + 1
	buf = buf[1:]

	sizes, rest, err := parseLaceSizes(b.Lacing, count, buf)
	if err != nil {
		return err
	}
	b.Frames = make([][]byte, count)
	for i, size := range sizes {
		b.Frames[i] = rest[:size]
		rest = rest[size:]
	}
	return nil
}

func parseLaceSizes(lacing Lacing, count int, buf []byte) ([]int, []byte, error) {
	sizes := make([]int, count)
	last := count - 1
	total := 0

	switch lacing {
	case LacingXiph:
		for i := 0; i < last; i++ {
			for {
				if len(buf) == 0 {
					return nil, nil, ErrBlockShort
				}
				v := int(buf[0])
				buf = buf[1:]
				sizes[i] += v
				if v != 255 {
					break
				}
			}
			total += sizes[i]
		}
	case LacingFixed:
		if len(buf)%count != 0 {
			return nil, nil, fmt.Errorf("%w: %d bytes in %d frames", ErrBlockLaceSize, len(buf), count)
		}
		for i := range sizes {
			sizes[i] = len(buf) / count
		}
		return sizes, buf, nil
	case LacingEBML:
		first, n, _, err := ebml.ParseSize(buf)
		if err != nil {
			return nil, nil, err
		}
		buf = buf[n:]
		sizes[0] = int(first)
		total = sizes[0]
		for i := 1; i < last; i++ {
			diff, n, err := ebml.ParseSigned(buf)
			if err != nil {
				return nil, nil, err
			}
			buf = buf[n:]
			sizes[i] = sizes[i-1] + int(diff)
			if sizes[i] < 0 {
				return nil, nil, ErrBlockLaceSize
			}
			total += sizes[i]
		}
	}

	if total > len(buf) {
		return nil, nil, fmt.Errorf("%w: %d bytes declared, %d available", ErrBlockLaceSize, total, len(buf))
	}
	sizes[last] = len(buf) - total
	return sizes, buf, nil
}
