package mmio

import (
	"fmt"
	"io"
	"os"
)

// Access is the mode a file is opened with.
type Access int

// Access modes.
const (
	ReadOnly Access = iota
	Create
	ReadWrite
)

// File is a Stream backed by an operating system file.
type File struct {
	f      *os.File
	access Access
}

// OpenFile opens name with the given access mode.
// Create truncates or creates the file.
func OpenFile(name string, access Access) (*File, error) {
	var flag int
	switch access {
	case ReadOnly:
		flag = os.O_RDONLY
	case Create:
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ReadWrite:
		flag = os.O_RDWR
	default:
		return nil, fmt.Errorf("%w: mode %d", ErrWrongAccess, access)
	}
	f, err := os.OpenFile(name, flag, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f, access: access}, nil
}

// Name returns the file name.
func (f *File) Name() string {
	return f.f.Name()
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	return f.f.Read(p)
}

// Write implements io.Writer.
func (f *File) Write(p []byte) (int, error) {
	if f.access == ReadOnly {
		return 0, fmt.Errorf("%w: %s is read-only", ErrWrongAccess, f.f.Name())
	}
	return f.f.Write(p)
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart && offset < 0 {
		return 0, fmt.Errorf("%w: negative position %d", ErrSeek, offset)
	}
	pos, err := f.f.Seek(offset, whence)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSeek, err)
	}
	return pos, nil
}

// Size returns the file size.
func (f *File) Size() (int64, error) {
	stat, err := f.f.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

// Truncate changes the file size.
func (f *File) Truncate(size int64) error {
	if f.access == ReadOnly {
		return fmt.Errorf("%w: %s is read-only", ErrWrongAccess, f.f.Name())
	}
	return f.f.Truncate(size)
}

// Close closes the file.
func (f *File) Close() error {
	return f.f.Close()
}
