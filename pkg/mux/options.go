package mux

import (
	"errors"
	"fmt"
	"time"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/log"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/tags"
)

// Errors.
var (
	ErrNoTracks        = errors.New("no tracks")
	ErrInvalidOption   = errors.New("invalid option")
	ErrReserveTooSmall = errors.New("reserved header space too small")
)

// SplitMode selects when a new output file is started.
type SplitMode int

// Split modes.
const (
	SplitNone SplitMode = iota
	SplitSize
	SplitDuration
	SplitTimestamps
	SplitChapters
)

func (m SplitMode) String() string {
	switch m {
	case SplitNone:
		return "none"
	case SplitSize:
		return "size"
	case SplitDuration:
		return "duration"
	case SplitTimestamps:
		return "timestamps"
	case SplitChapters:
		return "chapters"
	}
	return "unknown"
}

// Split configures output splitting.
type Split struct {
	Mode SplitMode

	// Size is the approximate file size in bytes for SplitSize.
	Size int64

	// Duration is the file duration in ns for SplitDuration.
	Duration int64

	// Timestamps are absolute split points in ns for SplitTimestamps.
	Timestamps []int64

	// MaxFiles stops splitting after this many files, 0 is unlimited.
	MaxFiles int

	// NoLinking makes every file start at timestamp zero and
	// omits the segment link fields.
	NoLinking bool
}

// Attachment is a file embedded in the output.
type Attachment struct {
	Name        string
	MimeType    string
	Description string
	Data        []byte
	UID         uint64
}

// Options configures a Muxer.
type Options struct {
	Profile matroska.Profile

	// TimestampScale is the length of one timestamp tick in ns.
	TimestampScale int64

	// A new cluster is started when one of these would be exceeded.
	// MaxClusterDuration is in ns, 0 selects 5 seconds and a
	// negative value disables the limit.
	MaxClusterDuration int64
	MaxClusterSize     int64
	MaxClusterBlocks   int

	Split Split

	Chapters    *chapters.Chapters
	Tags        *tags.Tags
	Attachments []Attachment

	Title      string
	MuxingApp  string
	WritingApp string

	// UIDs registers track, chapter and attachment uids.
	// A crypto/rand backed registry is used if nil.
	UIDs *matroska.UIDs

	// ReadAhead is the per-track prefetch depth, 0 disables prefetching.
	ReadAhead int

	DisableCues bool

	Logger *log.Logger

	// Now returns the DateUTC value.
	Now func() time.Time
}

// Defaults.
const (
	DefaultTimestampScale     = 1000000
	DefaultMaxClusterDuration = int64(5 * time.Second)
	DefaultMaxClusterSize     = 1536 * 1024
	DefaultApp                = "mkvtool"
)

func (o Options) withDefaults() (Options, error) {
	if o.TimestampScale == 0 {
		o.TimestampScale = DefaultTimestampScale
	}
	if o.TimestampScale < 0 {
		return o, fmt.Errorf("%w: timestamp scale %d", ErrInvalidOption, o.TimestampScale)
	}
	if o.MaxClusterDuration == 0 {
		o.MaxClusterDuration = DefaultMaxClusterDuration
	}
	if o.MaxClusterSize == 0 {
		o.MaxClusterSize = DefaultMaxClusterSize
	}
	if o.MuxingApp == "" {
		o.MuxingApp = DefaultApp
	}
	if o.WritingApp == "" {
		o.WritingApp = DefaultApp
	}
	if o.UIDs == nil {
		o.UIDs = matroska.NewUIDs()
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	switch o.Split.Mode {
	case SplitNone, SplitChapters:
	case SplitSize:
		if o.Split.Size <= 0 {
			return o, fmt.Errorf("%w: split size %d", ErrInvalidOption, o.Split.Size)
		}
	case SplitDuration:
		if o.Split.Duration <= 0 {
			return o, fmt.Errorf("%w: split duration %d", ErrInvalidOption, o.Split.Duration)
		}
	case SplitTimestamps:
		for i := 1; i < len(o.Split.Timestamps); i++ {
			if o.Split.Timestamps[i] <= o.Split.Timestamps[i-1] {
				return o, fmt.Errorf("%w: split timestamps must be increasing", ErrInvalidOption)
			}
		}
	default:
		return o, fmt.Errorf("%w: split mode %d", ErrInvalidOption, o.Split.Mode)
	}
	if o.Split.MaxFiles < 0 {
		return o, fmt.Errorf("%w: max files %d", ErrInvalidOption, o.Split.MaxFiles)
	}
	return o, nil
}
