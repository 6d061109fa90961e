package chapters

import (
	"fmt"
	"io"
	"strings"

	"mkvtool/pkg/mmio"
	"mkvtool/pkg/tags"
)

// Format of a chapter document.
type Format int

// Chapter formats.
const (
	FormatXML Format = iota
	FormatSimple
	FormatCue
)

func (f Format) String() string {
	switch f {
	case FormatSimple:
		return "simple"
	case FormatCue:
		return "cue"
	}
	return "xml"
}

// Document is a parsed chapter document. Tags is only set for cue sheets.
type Document struct {
	Format   Format
	Chapters *Chapters
	Tags     *tags.Tags
}

// Parse detects the format of a chapter document and parses it.
// Text with a byte order mark is converted to UTF-8. Errors wrap
// ErrChapterParse and name the document. Duplicate uids in XML
// documents also wrap matroska.ErrDuplicateUID.
func Parse(r io.Reader, name string, opts Options) (*Document, error) {
	text, err := mmio.ReadText(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChapterParse, name, err)
	}
	opts = opts.withDefaults()

	doc, err := parse(text, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrChapterParse, name, err)
	}
	return doc, nil
}

func parse(text string, opts Options) (*Document, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}

	switch {
	case ProbeSimple(lines):
		c, err := parseSimpleLines(lines, opts)
		if err != nil {
			return nil, err
		}
		return &Document{Format: FormatSimple, Chapters: c}, nil

	case ProbeCue(lines):
		c, t, err := parseCue(text, opts)
		if err != nil {
			return nil, err
		}
		return &Document{Format: FormatCue, Chapters: c, Tags: t}, nil
	}

	c, err := parseXML(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	c.SelectTimeframe(opts.Min, opts.Max, opts.Offset)
	c.FixMandatory(opts.UIDs)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Document{Format: FormatXML, Chapters: c}, nil
}
