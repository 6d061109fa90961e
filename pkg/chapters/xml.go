package chapters

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ParseXML parses a chapter XML document.
func ParseXML(r io.Reader) (*Chapters, error) {
	c, err := parseXML(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChapterParse, err)
	}
	return c, nil
}

func parseXML(r io.Reader) (*Chapters, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	root := xmlquery.FindOne(doc, "/Chapters")
	if root == nil {
		return nil, errors.New("root element must be <Chapters>")
	}

	c := &Chapters{}
	for _, n := range root.SelectElements("EditionEntry") {
		e, err := parseEdition(n)
		if err != nil {
			return nil, err
		}
		c.Editions = append(c.Editions, e)
	}
	return c, nil
}

func parseEdition(n *xmlquery.Node) (*Edition, error) {
	e := &Edition{}
	var err error
	if e.UID, err = optUint(n, "EditionUID", 0); err != nil {
		return nil, err
	}
	if e.Hidden, err = optBool(n, "EditionFlagHidden", false); err != nil {
		return nil, err
	}
	if e.Default, err = optBool(n, "EditionFlagDefault", false); err != nil {
		return nil, err
	}
	if e.Ordered, err = optBool(n, "EditionFlagOrdered", false); err != nil {
		return nil, err
	}
	for _, child := range n.SelectElements("ChapterAtom") {
		a, err := parseAtom(child)
		if err != nil {
			return nil, err
		}
		e.Atoms = append(e.Atoms, a)
	}
	return e, nil
}

func parseAtom(n *xmlquery.Node) (*Atom, error) {
	a := &Atom{}
	start := n.SelectElement("ChapterTimeStart")
	if start == nil {
		return nil, errors.New("<ChapterAtom> without <ChapterTimeStart>")
	}
	var err error
	if a.Start, err = ParseTimestamp(start.InnerText()); err != nil {
		return nil, fmt.Errorf("<ChapterTimeStart>: %w", err)
	}
	if end := n.SelectElement("ChapterTimeEnd"); end != nil {
		if a.End, err = ParseTimestamp(end.InnerText()); err != nil {
			return nil, fmt.Errorf("<ChapterTimeEnd>: %w", err)
		}
		a.HasEnd = true
	}
	if a.UID, err = optUint(n, "ChapterUID", 0); err != nil {
		return nil, err
	}
	if a.Hidden, err = optBool(n, "ChapterFlagHidden", false); err != nil {
		return nil, err
	}
	if a.Enabled, err = optBool(n, "ChapterFlagEnabled", true); err != nil {
		return nil, err
	}
	if a.PhysicalEquiv, err = optUint(n, "ChapterPhysicalEquiv", 0); err != nil {
		return nil, err
	}
	for _, track := range n.SelectElements("ChapterTrack") {
		for _, num := range track.SelectElements("ChapterTrackNumber") {
			v, err := parseUint(num)
			if err != nil {
				return nil, err
			}
			a.Tracks = append(a.Tracks, v)
		}
	}
	for _, d := range n.SelectElements("ChapterDisplay") {
		display := Display{Language: "eng"}
		if s := d.SelectElement("ChapterString"); s != nil {
			display.String = s.InnerText()
		}
		if l := d.SelectElement("ChapterLanguage"); l != nil {
			display.Language = strings.TrimSpace(l.InnerText())
		}
		if c := d.SelectElement("ChapterCountry"); c != nil {
			display.Country = strings.TrimSpace(c.InnerText())
		}
		a.Displays = append(a.Displays, display)
	}
	for _, child := range n.SelectElements("ChapterAtom") {
		ca, err := parseAtom(child)
		if err != nil {
			return nil, err
		}
		a.Atoms = append(a.Atoms, ca)
	}
	return a, nil
}

func parseUint(n *xmlquery.Node) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(n.InnerText()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("<%s>: %w", n.Data, err)
	}
	return v, nil
}

func optUint(n *xmlquery.Node, name string, def uint64) (uint64, error) {
	child := n.SelectElement(name)
	if child == nil {
		return def, nil
	}
	return parseUint(child)
}

func optBool(n *xmlquery.Node, name string, def bool) (bool, error) {
	child := n.SelectElement(name)
	if child == nil {
		return def, nil
	}
	v, err := parseUint(child)
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, fmt.Errorf("<%s>: must be 0 or 1", name)
	}
	return v == 1, nil
}

type xmlChapters struct {
	XMLName  xml.Name     `xml:"Chapters"`
	Editions []xmlEdition `xml:"EditionEntry"`
}

type xmlEdition struct {
	UID     uint64    `xml:"EditionUID,omitempty"`
	Hidden  int       `xml:"EditionFlagHidden"`
	Default int       `xml:"EditionFlagDefault"`
	Ordered int       `xml:"EditionFlagOrdered,omitempty"`
	Atoms   []xmlAtom `xml:"ChapterAtom"`
}

type xmlAtom struct {
	UID           uint64       `xml:"ChapterUID,omitempty"`
	Start         string       `xml:"ChapterTimeStart"`
	End           string       `xml:"ChapterTimeEnd,omitempty"`
	Hidden        int          `xml:"ChapterFlagHidden"`
	Enabled       int          `xml:"ChapterFlagEnabled"`
	PhysicalEquiv uint64       `xml:"ChapterPhysicalEquiv,omitempty"`
	Tracks        *xmlTracks   `xml:"ChapterTrack"`
	Displays      []xmlDisplay `xml:"ChapterDisplay"`
	Atoms         []xmlAtom    `xml:"ChapterAtom"`
}

type xmlTracks struct {
	Numbers []uint64 `xml:"ChapterTrackNumber"`
}

type xmlDisplay struct {
	String   string `xml:"ChapterString"`
	Language string `xml:"ChapterLanguage"`
	Country  string `xml:"ChapterCountry,omitempty"`
}

// WriteXML writes c as a chapter XML document.
func (c *Chapters) WriteXML(w io.Writer) error {
	doc := xmlChapters{}
	for _, e := range c.Editions {
		doc.Editions = append(doc.Editions, xmlEdition{
			UID:     e.UID,
			Hidden:  boolInt(e.Hidden),
			Default: boolInt(e.Default),
			Ordered: boolInt(e.Ordered),
			Atoms:   atomsToXML(e.Atoms),
		})
	}

	if _, err := io.WriteString(w, xml.Header+"<!DOCTYPE Chapters SYSTEM \"matroskachapters.dtd\">\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func atomsToXML(atoms []*Atom) []xmlAtom {
	var ret []xmlAtom
	for _, a := range atoms {
		x := xmlAtom{
			UID:           a.UID,
			Start:         FormatTimestamp(clamp(a.Start)),
			Hidden:        boolInt(a.Hidden),
			Enabled:       boolInt(a.Enabled),
			PhysicalEquiv: a.PhysicalEquiv,
			Atoms:         atomsToXML(a.Atoms),
		}
		if a.HasEnd {
			x.End = FormatTimestamp(clamp(a.End))
		}
		if len(a.Tracks) != 0 {
			x.Tracks = &xmlTracks{Numbers: a.Tracks}
		}
		for _, d := range a.Displays {
			x.Displays = append(x.Displays, xmlDisplay(d))
		}
		ret = append(ret, x)
	}
	return ret
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
