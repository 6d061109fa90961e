package mmio

import (
	"fmt"
	"io"
)

const (
	id3HeaderSize = 10
	id3FooterFlag = 0x10
)

// SkipID3v2Tag skips an ID3v2 tag at the current position and returns
// its total size. If there is no tag, it returns 0 and the position
// is left unchanged.
func SkipID3v2Tag(s io.ReadSeeker) (int64, error) {
	start, err := Tell(s)
	if err != nil {
		return 0, err
	}

	var size int64
	err = SavePos(s, func() error {
		var buf [id3HeaderSize]byte
		if _, err := io.ReadFull(s, buf[:]); err != nil {
			return nil //nolint:nilerr
		}
		size = id3TagSize(buf)
		return nil
	})
	if err != nil || size == 0 {
		return 0, err
	}

	if _, err := s.Seek(start+size, io.SeekStart); err != nil {
		return 0, fmt.Errorf("skip id3 tag: %w", err)
	}
	return size, nil
}

// id3TagSize returns the total tag size, or 0 if buf is not a tag header.
func id3TagSize(buf [id3HeaderSize]byte) int64 {
	if buf[0] != 'I' || buf[1] != 'D' || buf[2] != '3' {
		return 0
	}
	if buf[3] == 0xFF || buf[4] == 0xFF {
		return 0
	}
	var size int64
	for _, b := range buf[6:10] {
		if b&0x80 != 0 {
			return 0
		}
		size = size<<7 | int64(b)
	}
	size += id3HeaderSize
	if buf[5]&id3FooterFlag != 0 {
		size += id3HeaderSize
	}
	return size
}
