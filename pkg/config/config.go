// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mux"

	"gopkg.in/yaml.v3"
)

// Errors.
var (
	ErrInvalidJob   = errors.New("invalid job")
	ErrInvalidSplit = errors.New("invalid split")
	ErrInvalidSize  = errors.New("invalid size")
)

// Input is one input file. Inputs with Append set are appended
// to the tracks of the input before them.
type Input struct {
	Path string `yaml:"path"`

	// Tracks selects tracks of Matroska inputs, empty selects all.
	Tracks []uint64 `yaml:"tracks"`

	Language string `yaml:"language"`
	Name     string `yaml:"name"`
	Append   bool   `yaml:"append"`
}

// Attachment is a file to embed.
type Attachment struct {
	Path        string `yaml:"path"`
	Name        string `yaml:"name"`
	MimeType    string `yaml:"mimeType"`
	Description string `yaml:"description"`
}

// Job is a mux job.
type Job struct {
	Output string  `yaml:"output"`
	Inputs []Input `yaml:"inputs"`

	WebM  bool   `yaml:"webm"`
	Title string `yaml:"title"`

	// Split is a split spec, see ParseSplit.
	Split         string `yaml:"split"`
	SplitMaxFiles int    `yaml:"splitMaxFiles"`
	NoLinking     bool   `yaml:"noLinking"`

	Chapters        string       `yaml:"chapters"`
	ChapterLanguage string       `yaml:"chapterLanguage"`
	Tags            string       `yaml:"tags"`
	Attachments     []Attachment `yaml:"attachments"`

	TimestampScale int64  `yaml:"timestampScale"`
	ClusterLength  string `yaml:"clusterLength"`
	ReadAhead      int    `yaml:"readAhead"`
	DisableCues    bool   `yaml:"disableCues"`

	// FailFast turns chapter and tag document errors into job errors.
	FailFast bool `yaml:"failFast"`
	DryRun   bool `yaml:"dryRun"`

	// MinFreeSpace is kept free on the output disk, see ParseSize.
	MinFreeSpace string `yaml:"minFreeSpace"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// Defaults.
const (
	DefaultReadAhead    = 16
	DefaultMinFreeSpace = "100M"
)

// Load reads and prepares the job file at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	return Parse(path, data)
}

// Parse unmarshals a job file. Relative paths are resolved
// against the directory of jobPath.
func Parse(jobPath string, data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", filepath.Base(jobPath), err)
	}
	if err := job.Prepare(filepath.Dir(jobPath)); err != nil {
		return nil, err
	}
	return &job, nil
}

// Prepare fills in defaults, resolves paths against dir and
// validates the job.
func (j *Job) Prepare(dir string) error {
	j.Dir = dir
	if j.ReadAhead == 0 {
		j.ReadAhead = DefaultReadAhead
	}
	if j.MinFreeSpace == "" {
		j.MinFreeSpace = DefaultMinFreeSpace
	}

	if j.Output == "" && !j.DryRun {
		return fmt.Errorf("%w: output is not set", ErrInvalidJob)
	}
	if len(j.Inputs) == 0 {
		return fmt.Errorf("%w: no inputs", ErrInvalidJob)
	}
	if j.Inputs[0].Append {
		return fmt.Errorf("%w: first input can't be appended", ErrInvalidJob)
	}

	j.Output = j.resolve(j.Output)
	for i := range j.Inputs {
		if j.Inputs[i].Path == "" {
			return fmt.Errorf("%w: input %d has no path", ErrInvalidJob, i+1)
		}
		j.Inputs[i].Path = j.resolve(j.Inputs[i].Path)
	}
	j.Chapters = j.resolve(j.Chapters)
	j.Tags = j.resolve(j.Tags)
	for i := range j.Attachments {
		a := &j.Attachments[i]
		if a.Path == "" {
			return fmt.Errorf("%w: attachment %d has no path", ErrInvalidJob, i+1)
		}
		a.Path = j.resolve(a.Path)
		if a.Name == "" {
			a.Name = filepath.Base(a.Path)
		}
		if a.MimeType == "" {
			a.MimeType = guessMimeType(a.Name)
		}
	}

	if _, err := j.MuxOptions(); err != nil {
		return err
	}
	if _, err := ParseSize(j.MinFreeSpace); err != nil {
		return fmt.Errorf("minFreeSpace: %w", err)
	}
	return nil
}

func (j *Job) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(j.Dir, path)
}

func guessMimeType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// MuxOptions returns the muxer options of the job. Chapters, tags
// and attachments are loaded separately.
func (j *Job) MuxOptions() (mux.Options, error) {
	opts := mux.Options{
		Profile:        matroska.ProfileMatroska,
		TimestampScale: j.TimestampScale,
		Title:          j.Title,
		ReadAhead:      j.ReadAhead,
		DisableCues:    j.DisableCues,
	}
	if j.WebM {
		opts.Profile = matroska.ProfileWebM
	}
	if j.TimestampScale < 0 {
		return opts, fmt.Errorf("%w: timestampScale %d", ErrInvalidJob, j.TimestampScale)
	}
	if j.ClusterLength != "" {
		d, err := ParseDuration(j.ClusterLength)
		if err != nil {
			return opts, fmt.Errorf("%w: clusterLength: %v", ErrInvalidJob, err)
		}
		opts.MaxClusterDuration = d
	}

	split, err := ParseSplit(j.Split)
	if err != nil {
		return opts, err
	}
	if j.SplitMaxFiles < 0 {
		return opts, fmt.Errorf("%w: splitMaxFiles %d", ErrInvalidJob, j.SplitMaxFiles)
	}
	split.MaxFiles = j.SplitMaxFiles
	split.NoLinking = j.NoLinking
	opts.Split = split
	return opts, nil
}

// ParseSplit parses a split spec:
//
//	size:100M
//	duration:10m or duration:00:10:00
//	timestamps:00:01:00,00:02:30.5
//	chapters:all
//
// An empty spec disables splitting.
func ParseSplit(spec string) (mux.Split, error) {
	if spec == "" {
		return mux.Split{}, nil
	}
	mode, arg, ok := strings.Cut(spec, ":")
	if !ok || arg == "" {
		return mux.Split{}, fmt.Errorf("%w: %q", ErrInvalidSplit, spec)
	}

	switch mode {
	case "size":
		size, err := ParseSize(arg)
		if err != nil {
			return mux.Split{}, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
		}
		if size == 0 {
			return mux.Split{}, fmt.Errorf("%w: zero size", ErrInvalidSplit)
		}
		return mux.Split{Mode: mux.SplitSize, Size: size}, nil

	case "duration":
		d, err := ParseDuration(arg)
		if err != nil {
			return mux.Split{}, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
		}
		if d == 0 {
			return mux.Split{}, fmt.Errorf("%w: zero duration", ErrInvalidSplit)
		}
		return mux.Split{Mode: mux.SplitDuration, Duration: d}, nil

	case "timestamps":
		var timestamps []int64
		for _, s := range strings.Split(arg, ",") {
			ts, err := ParseDuration(s)
			if err != nil {
				return mux.Split{}, fmt.Errorf("%w: %v", ErrInvalidSplit, err)
			}
			if len(timestamps) != 0 && ts <= timestamps[len(timestamps)-1] {
				return mux.Split{}, fmt.Errorf("%w: timestamps must be increasing", ErrInvalidSplit)
			}
			timestamps = append(timestamps, ts)
		}
		return mux.Split{Mode: mux.SplitTimestamps, Timestamps: timestamps}, nil

	case "chapters":
		if arg != "all" {
			return mux.Split{}, fmt.Errorf("%w: only chapters:all is supported", ErrInvalidSplit)
		}
		return mux.Split{Mode: mux.SplitChapters}, nil
	}
	return mux.Split{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidSplit, mode)
}

// ParseDuration parses "HH:MM:SS[.fraction]" or a Go duration
// like "10m" and returns ns.
func ParseDuration(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return chapters.ParseTimestamp(s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration: %q", s)
	}
	return int64(d), nil
}

// ParseSize parses a byte count with an optional binary
// suffix: K, M or G.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}
	multiplier := int64(1)
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		multiplier = 1 << 10
	case "M":
		multiplier = 1 << 20
	case "G":
		multiplier = 1 << 30
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	return n * multiplier, nil
}
