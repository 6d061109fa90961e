package mmio

import (
	"bytes"
	"fmt"
	"io"
)

// Memory is an in-memory Stream.
type Memory struct {
	buf      bytes.Buffer
	pos      int
	readOnly bool
}

// NewMemory returns a writable memory stream initialized with b.
func NewMemory(b []byte) *Memory {
	m := &Memory{}
	m.buf.Write(b)
	return m
}

// NewMemoryReader returns a read-only memory stream over a copy of b.
func NewMemoryReader(b []byte) *Memory {
	m := NewMemory(b)
	m.readOnly = true
	return m
}

// Read implements io.Reader.
func (m *Memory) Read(p []byte) (int, error) {
	if m.pos >= m.buf.Len() {
		return 0, io.EOF
	}
	n := copy(p, m.buf.Bytes()[m.pos:])
	m.pos += n
	return n, nil
}

// Write implements io.Writer.
func (m *Memory) Write(p []byte) (n int, err error) {
	if m.readOnly {
		return 0, fmt.Errorf("%w: memory stream is read-only", ErrWrongAccess)
	}

	// If the offset is past the end of the buffer, grow the buffer with null bytes.
	if extra := m.pos - m.buf.Len(); extra > 0 {
		if _, err := m.buf.Write(make([]byte, extra)); err != nil {
			return n, err
		}
	}

	// If the offset isn't at the end of the buffer, write as much as we can.
	if m.pos < m.buf.Len() {
		n = copy(m.buf.Bytes()[m.pos:], p)
		p = p[n:]
	}

	// If there are remaining bytes, append them to the buffer.
	if len(p) > 0 {
		var bn int
		bn, err = m.buf.Write(p)
		n += bn
	}

	m.pos += n
	return n, err
}

// Seek implements io.Seeker.
func (m *Memory) Seek(offset int64, whence int) (int64, error) {
	t, err := target(int64(m.pos), int64(m.buf.Len()), offset, whence)
	if err != nil {
		return 0, err
	}
	m.pos = int(t)
	return t, nil
}

// Size returns the buffer length.
func (m *Memory) Size() (int64, error) {
	return int64(m.buf.Len()), nil
}

// Close is a no-op, the contents stay available.
func (m *Memory) Close() error {
	return nil
}

// Bytes returns the underlying byte slice.
func (m *Memory) Bytes() []byte {
	return m.buf.Bytes()
}
