package tags

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ErrParse is returned for invalid tag documents.
var ErrParse = errors.New("tag parse error")

// ParseXML parses a tag XML document. name is used in errors.
func ParseXML(r io.Reader, name string) (*Tags, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
	}
	root := xmlquery.FindOne(doc, "/Tags")
	if root == nil {
		return nil, fmt.Errorf("%w: %s: root element must be <Tags>", ErrParse, name)
	}

	t := &Tags{}
	for _, tagNode := range root.SelectElements("Tag") {
		tag, err := parseTag(tagNode)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
		}
		t.Tags = append(t.Tags, tag)
	}
	return t, nil
}

func parseTag(n *xmlquery.Node) (*Tag, error) {
	tag := &Tag{}
	if targets := n.SelectElement("Targets"); targets != nil {
		var err error
		if v := targets.SelectElement("TargetTypeValue"); v != nil {
			if tag.Targets.TypeValue, err = parseUint(v); err != nil {
				return nil, err
			}
		}
		if v := targets.SelectElement("TargetType"); v != nil {
			tag.Targets.Type = strings.TrimSpace(v.InnerText())
		}
		lists := []struct {
			name string
			dst  *[]uint64
		}{
			{"TrackUID", &tag.Targets.TrackUIDs},
			{"EditionUID", &tag.Targets.EditionUIDs},
			{"ChapterUID", &tag.Targets.ChapterUIDs},
			{"AttachmentUID", &tag.Targets.AttachmentUIDs},
		}
		for _, l := range lists {
			for _, v := range targets.SelectElements(l.name) {
				uid, err := parseUint(v)
				if err != nil {
					return nil, err
				}
				*l.dst = append(*l.dst, uid)
			}
		}
	}
	for _, s := range n.SelectElements("Simple") {
		simple, err := parseSimple(s)
		if err != nil {
			return nil, err
		}
		tag.Simples = append(tag.Simples, simple)
	}
	return tag, nil
}

func parseSimple(n *xmlquery.Node) (Simple, error) {
	s := Simple{Language: "und", Default: true}
	name := n.SelectElement("Name")
	if name == nil {
		return s, errors.New("<Simple> without <Name>")
	}
	s.Name = name.InnerText()
	if v := n.SelectElement("String"); v != nil {
		s.Value = v.InnerText()
	}
	if v := n.SelectElement("Binary"); v != nil {
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(v.InnerText()))
		if err != nil {
			return s, fmt.Errorf("binary of %q: %w", s.Name, err)
		}
		s.Binary = b
	}
	if v := n.SelectElement("TagLanguage"); v != nil {
		s.Language = strings.TrimSpace(v.InnerText())
	}
	if v := n.SelectElement("DefaultLanguage"); v != nil {
		d, err := parseUint(v)
		if err != nil {
			return s, err
		}
		s.Default = d == 1
	}
	for _, child := range n.SelectElements("Simple") {
		c, err := parseSimple(child)
		if err != nil {
			return s, err
		}
		s.Simples = append(s.Simples, c)
	}
	return s, nil
}

func parseUint(n *xmlquery.Node) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(n.InnerText()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("<%s>: %w", n.Data, err)
	}
	return v, nil
}

type xmlTags struct {
	XMLName xml.Name `xml:"Tags"`
	Tags    []xmlTag `xml:"Tag"`
}

type xmlTag struct {
	Targets xmlTargets  `xml:"Targets"`
	Simples []xmlSimple `xml:"Simple"`
}

type xmlTargets struct {
	TypeValue      uint64   `xml:"TargetTypeValue,omitempty"`
	Type           string   `xml:"TargetType,omitempty"`
	TrackUIDs      []uint64 `xml:"TrackUID"`
	EditionUIDs    []uint64 `xml:"EditionUID"`
	ChapterUIDs    []uint64 `xml:"ChapterUID"`
	AttachmentUIDs []uint64 `xml:"AttachmentUID"`
}

type xmlSimple struct {
	Name     string      `xml:"Name"`
	String   *string     `xml:"String"`
	Binary   string      `xml:"Binary,omitempty"`
	Language string      `xml:"TagLanguage,omitempty"`
	Default  int         `xml:"DefaultLanguage"`
	Simples  []xmlSimple `xml:"Simple"`
}

// WriteXML writes t as a tag XML document.
func (t *Tags) WriteXML(w io.Writer) error {
	doc := xmlTags{}
	for _, tag := range t.Tags {
		doc.Tags = append(doc.Tags, xmlTag{
			Targets: xmlTargets{
				TypeValue:      tag.Targets.TypeValue,
				Type:           tag.Targets.Type,
				TrackUIDs:      tag.Targets.TrackUIDs,
				EditionUIDs:    tag.Targets.EditionUIDs,
				ChapterUIDs:    tag.Targets.ChapterUIDs,
				AttachmentUIDs: tag.Targets.AttachmentUIDs,
			},
			Simples: simplesToXML(tag.Simples),
		})
	}

	if _, err := io.WriteString(w, xml.Header+"<!DOCTYPE Tags SYSTEM \"matroskatags.dtd\">\n"); err != nil {
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

func simplesToXML(simples []Simple) []xmlSimple {
	var ret []xmlSimple
	for _, s := range simples {
		x := xmlSimple{
			Name:     s.Name,
			Language: s.Language,
			Simples:  simplesToXML(s.Simples),
		}
		if s.Binary != nil {
			x.Binary = base64.StdEncoding.EncodeToString(s.Binary)
		} else {
			v := s.Value
			x.String = &v
		}
		if s.Default {
			x.Default = 1
		}
		ret = append(ret, x)
	}
	return ret
}
