// Package aac reads ADTS AAC streams.
package aac

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/icza/bitio"
)

// ObjectType is a MPEG-4 audio object type.
type ObjectType uint8

// Object types.
const (
	ObjectTypeAACMain ObjectType = 1
	ObjectTypeAACLC   ObjectType = 2
	ObjectTypeAACSSR  ObjectType = 3
	ObjectTypeAACLTP  ObjectType = 4
)

// SamplesPerFrame is the number of samples in one AAC frame.
const SamplesPerFrame = 1024

var sampleRates = []int{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

func sampleRateIndex(rate int) (int, bool) {
	for i, r := range sampleRates {
		if r == rate {
			return i, true
		}
	}
	return 0, false
}

// Errors.
var (
	ErrSampleRateInvalid   = errors.New("invalid sample rate")
	ErrChannelCountInvalid = errors.New("invalid channel count")
)

// Config is the AudioSpecificConfig stored as codec private data.
type Config struct {
	Type         ObjectType
	SampleRate   int
	ChannelCount int
}

func channelConfig(count int) (uint64, error) {
	switch {
	case count >= 1 && count <= 6:
		return uint64(count), nil
	case count == 8:
		return 7, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrChannelCountInvalid, count)
}

func channelCount(config uint64) (int, error) {
	switch {
	case config >= 1 && config <= 6:
		return int(config), nil
	case config == 7:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: configuration %d", ErrChannelCountInvalid, config)
}

// Encode returns the AudioSpecificConfig bytes.
func (c Config) Encode() ([]byte, error) {
	chans, err := channelConfig(c.ChannelCount)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	w.TryWriteBits(uint64(c.Type), 5)
	if index, ok := sampleRateIndex(c.SampleRate); ok {
		w.TryWriteBits(uint64(index), 4)
	} else {
		w.TryWriteBits(15, 4)
		w.TryWriteBits(uint64(c.SampleRate), 24)
	}
	w.TryWriteBits(chans, 4)

	// frameLengthFlag, dependsOnCoreCoder, extensionFlag.
	w.TryWriteBits(0, 3)
	if w.TryError != nil {
		return nil, w.TryError
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses an AudioSpecificConfig.
func (c *Config) Decode(b []byte) error {
	r := bitio.NewReader(bytes.NewReader(b))
	c.Type = ObjectType(r.TryReadBits(5))
	index := r.TryReadBits(4)
	if index == 15 {
		c.SampleRate = int(r.TryReadBits(24))
	} else if int(index) < len(sampleRates) {
		c.SampleRate = sampleRates[index]
	} else {
		return fmt.Errorf("%w: index %d", ErrSampleRateInvalid, index)
	}
	chans := r.TryReadBits(4)
	if r.TryError != nil {
		return r.TryError
	}

	var err error
	c.ChannelCount, err = channelCount(chans)
	return err
}
