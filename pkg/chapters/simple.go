package chapters

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
)

var (
	simpleTimeLine = regexp.MustCompile(
		`^\s*CHAPTER\d+\s*=\s*(\d+)\s*:\s*(\d+)\s*:\s*(\d+)\s*[\.,]\s*(\d+)`)
	simpleTimeText = regexp.MustCompile(`^\s*CHAPTER\d+\s*=(.*)`)
	simpleNameLine = regexp.MustCompile(`^\s*CHAPTER\d+NAME\s*=(.*)`)
)

// Options control how chapter documents are converted.
type Options struct {
	// Only chapters intersecting [Min, Max) are kept.
	// Zero or negative Max means no upper bound.
	Min int64
	Max int64

	// Offset is added to all timestamps after selection.
	Offset int64

	// Language and Country of generated displays. Language
	// defaults to "eng".
	Language string
	Country  string

	// NameFormat for cue sheet chapters, default "%p - %t".
	NameFormat string

	UIDs *matroska.UIDs
}

func (o Options) withDefaults() Options {
	if o.Max <= 0 {
		o.Max = -1
	}
	if o.Language == "" {
		o.Language = "eng"
	}
	if o.NameFormat == "" {
		o.NameFormat = "%p - %t"
	}
	if o.UIDs == nil {
		o.UIDs = matroska.NewUIDs()
	}
	return o
}

// ProbeSimple reports whether the first non-empty lines are a
// CHAPTERxx= line followed by a CHAPTERxxNAME= line.
func ProbeSimple(lines []string) bool {
	var content []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		content = append(content, line)
		if len(content) == 2 {
			break
		}
	}
	return len(content) == 2 &&
		simpleTimeLine.MatchString(content[0]) &&
		simpleNameLine.MatchString(content[1])
}

// ParseSimple parses OGM style chapters:
//
//	CHAPTER01=00:00:00.000
//	CHAPTER01NAME=Intro
func ParseSimple(r io.Reader, opts Options) (*Chapters, error) {
	lines, err := mmio.ReadLines(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}
	c, err := parseSimpleLines(lines, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}
	return c, nil
}

func parseSimpleLines(lines []string, opts Options) (*Chapters, error) {
	opts = opts.withDefaults()

	edition := &Edition{UID: opts.UIDs.New(matroska.UIDEdition)}
	var (
		expectName bool
		start      int64
		timeText   string
		err        error
	)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if !expectName {
			m := simpleTimeLine.FindStringSubmatch(line)
			if m == nil {
				return nil, fmt.Errorf("'%s' is not a CHAPTERxx=... line", line)
			}
			var v [4]int64
			for i := range v {
				if v[i], err = strconv.ParseInt(m[i+1], 10, 64); err != nil {
					return nil, fmt.Errorf("'%s': %w", line, err)
				}
			}
			hours, minutes, seconds, msecs := v[0], v[1], v[2], v[3]
			if minutes > 59 {
				return nil, fmt.Errorf("invalid minute: %d", minutes)
			}
			if seconds > 59 {
				return nil, fmt.Errorf("invalid second: %d", seconds)
			}
			start = (((hours*60+minutes)*60+seconds)*1000 + msecs) * 1e6
			timeText = strings.TrimSpace(simpleTimeText.FindStringSubmatch(line)[1])
			expectName = true
			continue
		}

		m := simpleNameLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("'%s' is not a CHAPTERxxNAME=... line", line)
		}
		name := m[1]
		if name == "" {
			name = timeText
		}
		edition.Atoms = append(edition.Atoms, &Atom{
			UID:     opts.UIDs.New(matroska.UIDChapter),
			Start:   start,
			Enabled: true,
			Displays: []Display{{
				String:   name,
				Language: opts.Language,
				Country:  opts.Country,
			}},
		})
		expectName = false
	}
	if expectName {
		return nil, fmt.Errorf("missing CHAPTERxxNAME= line after '%s'", timeText)
	}

	c := &Chapters{Editions: []*Edition{edition}}
	c.SelectTimeframe(opts.Min, opts.Max, opts.Offset)
	return c, nil
}
