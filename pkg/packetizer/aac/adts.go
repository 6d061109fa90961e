package aac

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/icza/bitio"
)

// ADTS errors.
var (
	ErrSyncwordInvalid    = errors.New("invalid ADTS syncword")
	ErrFrameLengthInvalid = errors.New("invalid ADTS frame length")
	ErrMultipleBlocks     = errors.New("ADTS frames with more than one raw block are not supported")
)

// HeaderSize is the size of an ADTS header without CRC.
const HeaderSize = 7

// Header is a parsed ADTS frame header.
// refs: https://wiki.multimedia.cx/index.php/ADTS
type Header struct {
	MPEG2            bool
	ProtectionAbsent bool
	Config           Config

	// FrameLength includes the header.
	FrameLength int
	RawBlocks   int
}

// Size returns the header size including the optional CRC.
func (h Header) Size() int {
	if h.ProtectionAbsent {
		return HeaderSize
	}
	return HeaderSize + 2
}

// ParseHeader parses the ADTS header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrFrameLengthInvalid
	}

	r := bitio.NewReader(bytes.NewReader(buf[:HeaderSize]))
	if sync := r.TryReadBits(12); sync != 0xfff {
		return Header{}, ErrSyncwordInvalid
	}

	var h Header
	h.MPEG2 = r.TryReadBool()
	r.TryReadBits(2) // Layer.
	h.ProtectionAbsent = r.TryReadBool()
	h.Config.Type = ObjectType(r.TryReadBits(2) + 1)

	index := r.TryReadBits(4)
	if int(index) >= len(sampleRates) {
		return Header{}, fmt.Errorf("%w: index %d", ErrSampleRateInvalid, index)
	}
	h.Config.SampleRate = sampleRates[index]

	r.TryReadBool() // Private bit.
	chans := r.TryReadBits(3)
	r.TryReadBits(4) // Originality, home, copyright bits.
	h.FrameLength = int(r.TryReadBits(13))
	r.TryReadBits(11) // Buffer fullness.
	h.RawBlocks = int(r.TryReadBits(2)) + 1
	if r.TryError != nil {
		return Header{}, r.TryError
	}

	var err error
	if h.Config.ChannelCount, err = channelCount(chans); err != nil {
		return Header{}, err
	}
	if h.FrameLength < h.Size() {
		return Header{}, fmt.Errorf("%w: %d", ErrFrameLengthInvalid, h.FrameLength)
	}
	return h, nil
}

// MarshalADTS prefixes an access unit with an ADTS header.
func MarshalADTS(c Config, au []byte) ([]byte, error) {
	index, ok := sampleRateIndex(c.SampleRate)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSampleRateInvalid, c.SampleRate)
	}
	chans, err := channelConfig(c.ChannelCount)
	if err != nil {
		return nil, err
	}
	frameLen := len(au) + HeaderSize
	if frameLen >= 1<<13 {
		return nil, fmt.Errorf("%w: %d", ErrFrameLengthInvalid, frameLen)
	}
	fullness := 0x07FF // like ffmpeg does

	buf := make([]byte, frameLen)
	buf[0] = 0xFF
	buf[1] = 0xF1
	buf[2] = uint8((int(c.Type-1)&0x03)<<6 | index<<2 | int(chans>>2)&0x01)
	buf[3] = uint8(int(chans&0x03)<<6 | (frameLen>>11)&0x03)
	buf[4] = uint8((frameLen >> 3) & 0xFF)
	buf[5] = uint8((frameLen&0x07)<<5 | ((fullness >> 6) & 0x1F))
	buf[6] = uint8((fullness & 0x3F) << 2)
	copy(buf[HeaderSize:], au)
	return buf, nil
}
