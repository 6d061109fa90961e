// Package mmio provides the seekable stream types used by the
// muxer and demuxer: files, memory buffers, a null sink and
// read-only decorators for buffered and probing access.
package mmio

import (
	"errors"
	"fmt"
	"io"
)

// Errors.
var (
	ErrSeek        = errors.New("seek error")
	ErrWrongAccess = errors.New("wrong access")
)

// Stream is a seekable byte stream.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Size returns the current size of the stream.
	Size() (int64, error)
}

// Tell returns the current position of s.
func Tell(s io.Seeker) (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}

// SavePos records the position of s, calls fn and restores the
// position afterwards, also when fn fails or panics.
func SavePos(s io.Seeker, fn func() error) (err error) {
	pos, err := Tell(s)
	if err != nil {
		return err
	}
	defer func() {
		if _, serr := s.Seek(pos, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("restore position %d: %w", pos, serr)
		}
	}()
	return fn()
}

// target resolves a seek request against the current position and size.
func target(pos, size, offset int64, whence int) (int64, error) {
	var t int64
	switch whence {
	case io.SeekStart:
		t = offset
	case io.SeekCurrent:
		t = pos + offset
	case io.SeekEnd:
		t = size + offset
	default:
		return 0, fmt.Errorf("%w: invalid whence %d", ErrSeek, whence)
	}
	if t < 0 {
		return 0, fmt.Errorf("%w: negative position %d", ErrSeek, t)
	}
	return t, nil
}
