package ebml

import (
	"bytes"
	"fmt"
	"math"
)

func uintLength(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}

func intLength(v int64) int {
	n := 1
	for n < 8 {
		shift := uint(8*n - 1)
		if v >= -(int64(1)<<shift) && v < int64(1)<<shift {
			break
		}
		n++
	}
	return n
}

// DataSize returns the payload size of the element.
func (e *Element) DataSize() uint64 {
	if e.Empty && e.isZero() {
		return 0
	}
	switch e.Type {
	case TypeMaster:
		var n uint64
		for _, c := range e.Children {
			n += c.TotalSize()
		}
		return n
	case TypeUint:
		return uint64(maxInt(uintLength(e.Uint), e.DataLength))
	case TypeInt:
		return uint64(maxInt(intLength(e.Int), e.DataLength))
	case TypeFloat:
		if e.DataLength == 4 {
			return 4
		}
		return 8
	case TypeString, TypeUnicode:
		return uint64(maxInt(len(e.String), e.DataLength))
	case TypeDate:
		return 8
	}
	return uint64(len(e.Binary))
}

func (e *Element) isZero() bool {
	switch e.Type {
	case TypeUint:
		return e.Uint == 0
	case TypeInt:
		return e.Int == 0
	case TypeFloat:
		return e.Float == 0 && !math.Signbit(e.Float)
	case TypeDate:
		return e.Date.Equal(Epoch)
	}
	return false
}

func (e *Element) sizeLength(dataSize uint64) int {
	if e.UnknownSize {
		if e.SizeLength == 0 {
			return MaxSizeLength
		}
		return e.SizeLength
	}
	return maxInt(SizeLength(dataSize), e.SizeLength)
}

// HeaderSize returns the size of the id and size fields.
func (e *Element) HeaderSize() uint64 {
	return uint64(e.ID.Length() + e.sizeLength(e.DataSize()))
}

// TotalSize returns the encoded size including the header.
func (e *Element) TotalSize() uint64 {
	data := e.DataSize()
	return uint64(e.ID.Length()+e.sizeLength(data)) + data
}

// MarshalHeader writes the id and size fields.
func (e *Element) MarshalHeader(w *Writer) error {
	if !e.ID.Valid() {
		return fmt.Errorf("%w: 0x%x", ErrInvalidID, uint32(e.ID))
	}
	data := e.DataSize()
	n := e.sizeLength(data)

	var buf [MaxIDLength + MaxSizeLength]byte
	idLen := PutID(buf[:], e.ID)
	if e.UnknownSize {
		if e.Type != TypeMaster {
			return fmt.Errorf("%w: element 0x%x is %v", ErrUnknownSize, uint32(e.ID), e.Type)
		}
		if err := PutUnknownSize(buf[idLen:], n); err != nil {
			return err
		}
	} else if err := PutSize(buf[idLen:], data, n); err != nil {
		return err
	}
	w.TryWrite(buf[:idLen+n])
	return w.TryError
}

// Marshal writes the element and its children.
func (e *Element) Marshal(w *Writer) error {
	if err := e.validate(); err != nil {
		return err
	}
	if err := e.MarshalHeader(w); err != nil {
		return err
	}
	return e.marshalData(w)
}

func (e *Element) validate() error {
	switch e.Type {
	case TypeUint, TypeInt:
		if e.DataLength > 8 {
			return fmt.Errorf("%w: %d", ErrInvalidDataLength, e.DataLength)
		}
	case TypeFloat:
		if e.DataLength != 0 && e.DataLength != 4 && e.DataLength != 8 {
			return fmt.Errorf("%w: float %d", ErrInvalidDataLength, e.DataLength)
		}
	}
	return nil
}

func (e *Element) marshalData(w *Writer) error {
	size := int(e.DataSize())
	if size == 0 && e.Type != TypeMaster {
		return w.TryError
	}
	switch e.Type {
	case TypeMaster:
		for _, c := range e.Children {
			if err := c.Marshal(w); err != nil {
				return err
			}
		}
		return nil
	case TypeUint:
		w.TryWriteUint(e.Uint, size)
	case TypeInt:
		w.TryWriteUint(uint64(e.Int), size)
	case TypeFloat:
		if size == 4 {
			w.TryWriteUint(uint64(math.Float32bits(float32(e.Float))), 4)
		} else {
			w.TryWriteUint(math.Float64bits(e.Float), 8)
		}
	case TypeString, TypeUnicode:
		w.TryWrite([]byte(e.String))
		if pad := size - len(e.String); pad > 0 {
			w.TryWrite(make([]byte, pad))
		}
	case TypeDate:
		w.TryWriteUint(uint64(e.Date.Sub(Epoch).Nanoseconds()), 8)
	default:
		w.TryWrite(e.Binary)
	}
	return w.TryError
}

// Encode returns the encoded element.
func Encode(e *Element) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(e.TotalSize()))
	if err := e.Marshal(NewWriter(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewVoid returns a Void element that encodes to exactly total bytes.
func NewVoid(total int) (*Element, error) {
	switch {
	case total < 2:
		return nil, fmt.Errorf("%w: void of %d bytes", ErrInvalidDataLength, total)
	case total-2 <= int(sizeMax(1)):
		return &Element{ID: IDVoid, Type: TypeBinary, Binary: make(Binary, total-2)}, nil
	default:
		return &Element{
			ID:         IDVoid,
			Type:       TypeBinary,
			Binary:     make(Binary, total-1-MaxSizeLength),
			SizeLength: MaxSizeLength,
		}, nil
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
