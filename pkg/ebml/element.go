// Package ebml implements the Extensible Binary Meta Language
// element codec used by Matroska and WebM.
package ebml

import (
	"bytes"
	"errors"
	"math"
	"time"
)

// Errors.
var (
	ErrMalformedElement  = errors.New("malformed element")
	ErrAllocationFailure = errors.New("allocation failure")
	ErrUnknownSize       = errors.New("unknown size not allowed")
	ErrInvalidDataLength = errors.New("invalid data length")
)

// ID is an element id including its length marker bits.
type ID uint32

// Type is the payload type of an element.
type Type uint8

// Element types.
const (
	TypeBinary Type = iota
	TypeMaster
	TypeUint
	TypeInt
	TypeFloat
	TypeString
	TypeUnicode
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeMaster:
		return "master"
	case TypeUint:
		return "uint"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeUnicode:
		return "utf-8"
	case TypeDate:
		return "date"
	}
	return "binary"
}

// Epoch is the zero point of date elements.
var Epoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Binary is an owned byte payload.
type Binary []byte

// Clone returns a deep copy.
func (b Binary) Clone() Binary {
	if b == nil {
		return nil
	}
	c := make(Binary, len(b))
	copy(c, b)
	return c
}

// Equal reports whether both payloads have the same size and bytes.
func (b Binary) Equal(o Binary) bool {
	return len(b) == len(o) && bytes.Equal(b, o)
}

// Element is a single EBML element. Only the field matching Type is used.
type Element struct {
	ID   ID
	Type Type

	Uint     uint64
	Int      int64
	Float    float64
	String   string
	Binary   Binary
	Date     time.Time
	Children []*Element

	// SizeLength forces the length of the size vint, 0 is minimal.
	SizeLength int

	// DataLength forces the payload length of numeric and
	// string elements, 0 is minimal. Floats use 4 or 8.
	DataLength int

	// Empty writes a zero length payload for numeric and date
	// elements that hold their zero value.
	Empty bool

	// UnknownSize writes the all-ones size marker. Masters only.
	UnknownSize bool
}

// NewUint returns an unsigned integer element.
func NewUint(id ID, v uint64) *Element {
	return &Element{ID: id, Type: TypeUint, Uint: v}
}

// NewInt returns a signed integer element.
func NewInt(id ID, v int64) *Element {
	return &Element{ID: id, Type: TypeInt, Int: v}
}

// NewFloat returns an 8 byte float element.
func NewFloat(id ID, v float64) *Element {
	return &Element{ID: id, Type: TypeFloat, Float: v}
}

// NewString returns an ASCII string element.
func NewString(id ID, v string) *Element {
	return &Element{ID: id, Type: TypeString, String: v}
}

// NewUnicode returns a UTF-8 string element.
func NewUnicode(id ID, v string) *Element {
	return &Element{ID: id, Type: TypeUnicode, String: v}
}

// NewBinary returns a binary element holding a copy of v.
func NewBinary(id ID, v []byte) *Element {
	return &Element{ID: id, Type: TypeBinary, Binary: Binary(v).Clone()}
}

// NewDate returns a date element.
func NewDate(id ID, v time.Time) *Element {
	return &Element{ID: id, Type: TypeDate, Date: v.UTC()}
}

// NewMaster returns a master element with the given children.
func NewMaster(id ID, children ...*Element) *Element {
	return &Element{ID: id, Type: TypeMaster, Children: children}
}

// Add appends children and returns the element.
func (e *Element) Add(children ...*Element) *Element {
	for _, c := range children {
		if c != nil {
			e.Children = append(e.Children, c)
		}
	}
	return e
}

// Find returns the first child with the given id.
func (e *Element) Find(id ID) *Element {
	for _, c := range e.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindAll returns all children with the given id.
func (e *Element) FindAll(id ID) []*Element {
	var ret []*Element
	for _, c := range e.Children {
		if c.ID == id {
			ret = append(ret, c)
		}
	}
	return ret
}

// Remove deletes all children with the given id.
func (e *Element) Remove(id ID) {
	kept := e.Children[:0]
	for _, c := range e.Children {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(e.Children); i++ {
		e.Children[i] = nil
	}
	e.Children = kept
}

// Set replaces the first child with the same id or appends it.
func (e *Element) Set(child *Element) {
	for i, c := range e.Children {
		if c.ID == child.ID {
			e.Children[i] = child
			return
		}
	}
	e.Children = append(e.Children, child)
}

// GetUint returns the value of the first uint child or def.
func (e *Element) GetUint(id ID, def uint64) uint64 {
	if c := e.Find(id); c != nil {
		return c.Uint
	}
	return def
}

// GetInt returns the value of the first int child or def.
func (e *Element) GetInt(id ID, def int64) int64 {
	if c := e.Find(id); c != nil {
		return c.Int
	}
	return def
}

// GetFloat returns the value of the first float child or def.
func (e *Element) GetFloat(id ID, def float64) float64 {
	if c := e.Find(id); c != nil {
		return c.Float
	}
	return def
}

// GetString returns the value of the first string child or def.
func (e *Element) GetString(id ID, def string) string {
	if c := e.Find(id); c != nil {
		return c.String
	}
	return def
}

// GetBinary returns the payload of the first binary child.
func (e *Element) GetBinary(id ID) []byte {
	if c := e.Find(id); c != nil {
		return c.Binary
	}
	return nil
}

// Clone returns a deep copy that shares no memory with e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	c.Binary = e.Binary.Clone()
	if e.Children != nil {
		c.Children = make([]*Element, len(e.Children))
		for i, child := range e.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Equal reports whether two elements are structurally equal.
// Encoding hints are ignored.
func (e *Element) Equal(o *Element) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.ID != o.ID || e.Type != o.Type {
		return false
	}
	switch e.Type {
	case TypeMaster:
		if len(e.Children) != len(o.Children) {
			return false
		}
		for i := range e.Children {
			if !e.Children[i].Equal(o.Children[i]) {
				return false
			}
		}
		return true
	case TypeUint:
		return e.Uint == o.Uint
	case TypeInt:
		return e.Int == o.Int
	case TypeFloat:
		return e.Float == o.Float || (math.IsNaN(e.Float) && math.IsNaN(o.Float))
	case TypeString, TypeUnicode:
		return e.String == o.String
	case TypeDate:
		return e.Date.Equal(o.Date)
	}
	return e.Binary.Equal(o.Binary)
}
