package ebml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// DefaultMaxPayload is the largest non-master payload a Reader
// materializes unless configured otherwise.
const DefaultMaxPayload = 256 << 20

// Header is a decoded element header.
type Header struct {
	ID          ID
	Size        uint64
	SizeLength  int
	UnknownSize bool

	// Offset is the stream position of the id.
	Offset     int64
	HeaderSize int
}

// DataOffset returns the stream position of the payload.
func (h Header) DataOffset() int64 {
	return h.Offset + int64(h.HeaderSize)
}

// End returns the stream position after the payload, or -1 if the size is unknown.
func (h Header) End() int64 {
	if h.UnknownSize {
		return -1
	}
	return h.DataOffset() + int64(h.Size)
}

// Reader decodes elements from a seekable stream. Master
// elements are only materialized on request and can be
// skipped by their declared size.
type Reader struct {
	rs     io.ReadSeeker
	schema Schema
	pos    int64

	// MaxPayload limits the size of a single materialized payload.
	MaxPayload uint64
}

// NewReader returns a Reader positioned at the current offset of rs.
func NewReader(rs io.ReadSeeker, schema Schema) (*Reader, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("tell: %w", err)
	}
	return &Reader{
		rs:         rs,
		schema:     schema,
		pos:        pos,
		MaxPayload: DefaultMaxPayload,
	}, nil
}

// Pos returns the current stream position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// SeekTo moves to an absolute stream position.
func (r *Reader) SeekTo(pos int64) error {
	if _, err := r.rs.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	r.pos = pos
	return nil
}

func (r *Reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.rs, buf)
	r.pos += int64(n)
	return err
}

func malformed(off int64, format string, a ...interface{}) error {
	return fmt.Errorf("%w: at offset %d: %s", ErrMalformedElement, off, fmt.Sprintf(format, a...))
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// ReadHeader decodes the next element header. It returns io.EOF
// if the stream ends exactly at an element boundary.
func (r *Reader) ReadHeader() (Header, error) {
	h := Header{Offset: r.pos}
	var buf [MaxSizeLength]byte

	if err := r.readFull(buf[:1]); err != nil {
		return h, err
	}
	n := vintLength(buf[0])
	if n > MaxIDLength {
		return h, malformed(h.Offset, "invalid id prefix 0x%02x", buf[0])
	}
	if err := r.readFull(buf[1:n]); err != nil {
		if isEOF(err) {
			return h, malformed(h.Offset, "truncated id")
		}
		return h, err
	}
	id, _, err := ParseID(buf[:n])
	if err != nil {
		return h, err
	}

	if err := r.readFull(buf[:1]); err != nil {
		if isEOF(err) {
			return h, malformed(h.Offset, "truncated size")
		}
		return h, err
	}
	m := vintLength(buf[0])
	if m > MaxSizeLength {
		return h, malformed(h.Offset, "invalid size prefix 0x%02x", buf[0])
	}
	if err := r.readFull(buf[1:m]); err != nil {
		if isEOF(err) {
			return h, malformed(h.Offset, "truncated size")
		}
		return h, err
	}
	size, _, unknown, err := ParseSize(buf[:m])
	if err != nil {
		return h, err
	}

	h.ID = id
	h.Size = size
	h.SizeLength = m
	h.UnknownSize = unknown
	h.HeaderSize = n + m
	return h, nil
}

// Skip moves past the payload of h without decoding it.
func (r *Reader) Skip(h Header) error {
	if h.UnknownSize {
		return fmt.Errorf("%w: cannot skip element 0x%x at offset %d",
			ErrUnknownSize, uint32(h.ID), h.Offset)
	}
	return r.SeekTo(h.End())
}

// ReadBody materializes the payload of h. The reader must be
// positioned at h.DataOffset().
func (r *Reader) ReadBody(h Header) (*Element, error) {
	if h.UnknownSize {
		return nil, malformed(h.Offset, "element 0x%x has unknown size", uint32(h.ID))
	}
	t := r.schema.TypeOf(h.ID)
	if t == TypeMaster {
		return r.readMaster(h)
	}
	if h.Size > r.MaxPayload {
		return nil, fmt.Errorf("%w: element 0x%x at offset %d declares %d bytes",
			ErrAllocationFailure, uint32(h.ID), h.Offset, h.Size)
	}
	buf := make([]byte, h.Size)
	if err := r.readFull(buf); err != nil {
		if isEOF(err) {
			return nil, malformed(h.Offset, "truncated payload of element 0x%x", uint32(h.ID))
		}
		return nil, err
	}
	el, err := decodePayload(h.ID, t, buf)
	if err != nil {
		return nil, malformed(h.Offset, "%v", err)
	}
	el.SizeLength = h.SizeLength
	return el, nil
}

func (r *Reader) readMaster(h Header) (*Element, error) {
	el := &Element{ID: h.ID, Type: TypeMaster, SizeLength: h.SizeLength}
	end := h.End()
	for r.pos < end {
		ch, err := r.ReadHeader()
		if err != nil {
			if isEOF(err) {
				return nil, malformed(h.Offset, "truncated master 0x%x", uint32(h.ID))
			}
			return nil, err
		}
		if ch.UnknownSize || ch.End() > end {
			return nil, malformed(ch.Offset, "child 0x%x overruns parent 0x%x",
				uint32(ch.ID), uint32(h.ID))
		}
		child, err := r.ReadBody(ch)
		if err != nil {
			return nil, err
		}
		el.Children = append(el.Children, child)
	}
	return el, nil
}

// ReadElement reads the next header and materializes its payload.
func (r *Reader) ReadElement() (*Element, error) {
	h, err := r.ReadHeader()
	if err != nil {
		return nil, err
	}
	return r.ReadBody(h)
}

func decodePayload(id ID, t Type, buf []byte) (*Element, error) {
	el := &Element{ID: id, Type: t, DataLength: len(buf)}
	switch t {
	case TypeUint, TypeInt, TypeFloat, TypeDate:
		el.Empty = len(buf) == 0
	}
	switch t {
	case TypeUint:
		if len(buf) > 8 {
			return nil, fmt.Errorf("uint of %d bytes", len(buf))
		}
		for _, b := range buf {
			el.Uint = el.Uint<<8 | uint64(b)
		}
	case TypeInt:
		if len(buf) > 8 {
			return nil, fmt.Errorf("int of %d bytes", len(buf))
		}
		var v uint64
		for _, b := range buf {
			v = v<<8 | uint64(b)
		}
		if n := len(buf); n > 0 && n < 8 && buf[0]&0x80 != 0 {
			v |= ^uint64(0) << (8 * uint(n))
		}
		el.Int = int64(v)
	case TypeFloat:
		switch len(buf) {
		case 0:
		case 4:
			el.Float = float64(math.Float32frombits(uint32(beUint(buf))))
		case 8:
			el.Float = math.Float64frombits(beUint(buf))
		default:
			return nil, fmt.Errorf("float of %d bytes", len(buf))
		}
	case TypeString, TypeUnicode:
		if i := bytes.IndexByte(buf, 0); i >= 0 {
			el.String = string(buf[:i])
		} else {
			el.String = string(buf)
		}
	case TypeDate:
		switch len(buf) {
		case 0:
			el.Date = Epoch
		case 8:
			el.Date = Epoch.Add(time.Duration(int64(beUint(buf))))
		default:
			return nil, fmt.Errorf("date of %d bytes", len(buf))
		}
	default:
		el.Binary = Binary(buf)
		el.DataLength = 0
	}
	return el, nil
}

func beUint(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// Decode decodes the first element of b.
func Decode(b []byte, schema Schema) (*Element, error) {
	r, err := NewReader(bytes.NewReader(b), schema)
	if err != nil {
		return nil, err
	}
	el, err := r.ReadElement()
	if errors.Is(err, io.EOF) {
		return nil, malformed(0, "empty input")
	}
	return el, err
}

// DecodeAll decodes consecutive elements until the end of b.
func DecodeAll(b []byte, schema Schema) ([]*Element, error) {
	r, err := NewReader(bytes.NewReader(b), schema)
	if err != nil {
		return nil, err
	}
	var ret []*Element
	for {
		el, err := r.ReadElement()
		if errors.Is(err, io.EOF) {
			return ret, nil
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, el)
	}
}
