package ebml

import (
	"errors"
	"fmt"
	"math/bits"
)

// Vint limits.
const (
	MaxIDLength   = 4
	MaxSizeLength = 8
)

// Errors.
var (
	ErrInvalidSizeLength = errors.New("invalid size length")
	ErrSizeTooLarge      = errors.New("size too large for length")
	ErrInvalidID         = errors.New("invalid element id")
)

// sizeMax returns the largest known size that fits in n bytes.
// The all-ones value is reserved for unknown size.
func sizeMax(n int) uint64 {
	return (uint64(1) << (7 * uint(n))) - 2
}

// SizeLength returns the minimal number of bytes needed to encode v.
func SizeLength(v uint64) int {
	for n := 1; n < MaxSizeLength; n++ {
		if v <= sizeMax(n) {
			return n
		}
	}
	return MaxSizeLength
}

// PutSize encodes v as a size vint of exactly n bytes.
func PutSize(buf []byte, v uint64, n int) error {
	if n < 1 || n > MaxSizeLength {
		return fmt.Errorf("%w: %d", ErrInvalidSizeLength, n)
	}
	if v > sizeMax(n) {
		return fmt.Errorf("%w: %d in %d bytes", ErrSizeTooLarge, v, n)
	}
	v |= uint64(1) << (7 * uint(n))
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return nil
}

// PutUnknownSize writes the all-ones size marker of n bytes.
func PutUnknownSize(buf []byte, n int) error {
	if n < 1 || n > MaxSizeLength {
		return fmt.Errorf("%w: %d", ErrInvalidSizeLength, n)
	}
	buf[0] = 0xFF >> uint(n-1)
	for i := 1; i < n; i++ {
		buf[i] = 0xFF
	}
	return nil
}

// EncodeSize returns v encoded in n bytes, or in the minimal length when n is 0.
func EncodeSize(v uint64, n int) ([]byte, error) {
	if n == 0 {
		n = SizeLength(v)
	}
	buf := make([]byte, n)
	if err := PutSize(buf, v, n); err != nil {
		return nil, err
	}
	return buf, nil
}

// vintLength returns the total length announced by the first byte of a vint.
func vintLength(first byte) int {
	return bits.LeadingZeros8(first) + 1
}

// ParseSize decodes a size vint from the start of buf.
// It returns the value, the number of bytes consumed and whether
// the value is the unknown-size marker.
func ParseSize(buf []byte) (v uint64, n int, unknown bool, err error) {
	if len(buf) == 0 {
		return 0, 0, false, ErrMalformedElement
	}
	n = vintLength(buf[0])
	if n > MaxSizeLength {
		return 0, 0, false, fmt.Errorf("%w: invalid size prefix 0x%02x", ErrMalformedElement, buf[0])
	}
	if len(buf) < n {
		return 0, 0, false, fmt.Errorf("%w: truncated size", ErrMalformedElement)
	}
	v = uint64(buf[0] & (0xFF >> uint(n)))
	for i := 1; i < n; i++ {
		v = v<<8 | uint64(buf[i])
	}
	all := (uint64(1) << (7 * uint(n))) - 1
	return v, n, v == all, nil
}

// Length returns the number of bytes used by the encoded id.
func (id ID) Length() int {
	switch {
	case id <= 0xFF:
		return 1
	case id <= 0xFFFF:
		return 2
	case id <= 0xFFFFFF:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the id's marker bit agrees with its length.
func (id ID) Valid() bool {
	if id == 0 {
		return false
	}
	n := id.Length()
	first := byte(id >> (8 * uint(n-1)))
	return vintLength(first) == n
}

// PutID writes the id to buf and returns the number of bytes written.
func PutID(buf []byte, id ID) int {
	n := id.Length()
	for i := n - 1; i >= 0; i-- {
		buf[i] = byte(id)
		id >>= 8
	}
	return n
}

// ParseID decodes an element id from the start of buf.
func ParseID(buf []byte) (ID, int, error) {
	if len(buf) == 0 {
		return 0, 0, ErrMalformedElement
	}
	n := vintLength(buf[0])
	if n > MaxIDLength {
		return 0, 0, fmt.Errorf("%w: invalid id prefix 0x%02x", ErrMalformedElement, buf[0])
	}
	if len(buf) < n {
		return 0, 0, fmt.Errorf("%w: truncated id", ErrMalformedElement)
	}
	var id ID
	for i := 0; i < n; i++ {
		id = id<<8 | ID(buf[i])
	}
	return id, n, nil
}

// signedBias is the offset used by signed vints of length n.
func signedBias(n int) int64 {
	return (int64(1) << (7*uint(n) - 1)) - 1
}

// SignedSizeLength returns the minimal length of a signed vint holding v.
func SignedSizeLength(v int64) int {
	for n := 1; n < MaxSizeLength; n++ {
		b := signedBias(n)
		if v >= -b && v <= b {
			return n
		}
	}
	return MaxSizeLength
}

// EncodeSigned encodes v as a signed vint, as used by EBML lacing.
func EncodeSigned(v int64) ([]byte, error) {
	n := SignedSizeLength(v)
	return EncodeSize(uint64(v+signedBias(n)), n)
}

// ParseSigned decodes a signed vint.
func ParseSigned(buf []byte) (int64, int, error) {
	v, n, _, err := ParseSize(buf)
	if err != nil {
		return 0, 0, err
	}
	return int64(v) - signedBias(n), n, nil
}
