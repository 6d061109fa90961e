package mmio

import (
	"errors"
	"fmt"
	"io"
)

// DefaultWindow is the default ReadBuffer window size.
const DefaultWindow = 1 << 20

// ReadBuffer is a read-only decorator that keeps one window of
// the inner stream in memory. Seeks that land inside the window
// only move a cursor. Other seeks drop the window and the inner
// stream is repositioned on the next read.
type ReadBuffer struct {
	*Proxy

	buf    []byte
	offset int64 // Inner position of buf[0].
	fill   int
	cursor int
}

// NewReadBuffer returns a buffered reader over inner.
func NewReadBuffer(inner Stream, window int, owns bool) *ReadBuffer {
	if window <= 0 {
		window = DefaultWindow
	}
	pos, err := Tell(inner)
	if err != nil {
		pos = 0
	}
	return &ReadBuffer{
		Proxy:  NewProxy(inner, owns),
		buf:    make([]byte, window),
		offset: pos,
	}
}

// Read implements io.Reader.
func (b *ReadBuffer) Read(p []byte) (int, error) {
	var n int
	for n < len(p) {
		if b.cursor == b.fill {
			if err := b.refill(); err != nil {
				if n > 0 && errors.Is(err, io.EOF) {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(p[n:], b.buf[b.cursor:b.fill])
		b.cursor += c
		n += c
	}
	return n, nil
}

func (b *ReadBuffer) refill() error {
	b.offset += int64(b.fill)
	b.fill = 0
	b.cursor = 0

	if _, err := b.inner.Seek(b.offset, io.SeekStart); err != nil {
		return err
	}
	n, err := b.inner.Read(b.buf)
	b.fill = n
	if n > 0 {
		return nil
	}
	if err == nil {
		err = io.EOF
	}
	return err
}

// Write always fails.
func (b *ReadBuffer) Write([]byte) (int, error) {
	return 0, fmt.Errorf("%w: read buffer is read-only", ErrWrongAccess)
}

// Seek implements io.Seeker.
func (b *ReadBuffer) Seek(offset int64, whence int) (int64, error) {
	pos := b.offset + int64(b.cursor)
	var size int64
	if whence == io.SeekEnd {
		s, err := b.inner.Size()
		if err != nil {
			return 0, err
		}
		size = s
	}
	t, err := target(pos, size, offset, whence)
	if err != nil {
		return 0, err
	}

	if t >= b.offset && t <= b.offset+int64(b.fill) {
		b.cursor = int(t - b.offset)
		return t, nil
	}

	b.offset = t
	b.fill = 0
	b.cursor = 0
	return t, nil
}
