package mux

import (
	"fmt"
	"path/filepath"
	"strings"

	"mkvtool/pkg/mmio"
)

// Outputs creates the output streams. Create is called with the
// zero based file index before each file is written.
type Outputs interface {
	Create(index int) (mmio.Stream, string, error)
}

// FileOutputs writes to files. When splitting, the files are
// named "name-001.mkv", "name-002.mkv" and so on.
type FileOutputs struct {
	Path  string
	Split bool
}

// Name returns the file name for index.
func (o FileOutputs) Name(index int) string {
	if !o.Split {
		return o.Path
	}
	ext := filepath.Ext(o.Path)
	return fmt.Sprintf("%s-%03d%s", strings.TrimSuffix(o.Path, ext), index+1, ext)
}

// Create implements Outputs.
func (o FileOutputs) Create(index int) (mmio.Stream, string, error) {
	name := o.Name(index)
	f, err := mmio.OpenFile(name, mmio.Create)
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

// MemoryOutputs keeps the files in memory.
type MemoryOutputs struct {
	Files []*mmio.Memory
}

// Create implements Outputs.
func (o *MemoryOutputs) Create(index int) (mmio.Stream, string, error) {
	m := mmio.NewMemory(nil)
	o.Files = append(o.Files, m)
	return m, fmt.Sprintf("memory-%03d", index+1), nil
}

// NullOutputs discards everything, used for dry runs.
type NullOutputs struct{}

// Create implements Outputs.
func (NullOutputs) Create(index int) (mmio.Stream, string, error) {
	return &mmio.Null{}, fmt.Sprintf("null-%03d", index+1), nil
}
