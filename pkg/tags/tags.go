// Package tags holds Matroska tag trees and converts them
// between XML documents and EBML elements.
package tags

import (
	"fmt"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
)

// Target type values.
const (
	TargetCollection uint64 = 70
	TargetAlbum      uint64 = 50
	TargetPart       uint64 = 40
	TargetTrack      uint64 = 30
	TargetSubtrack   uint64 = 20
	TargetShot       uint64 = 10
)

// Targets selects what a tag applies to. Empty uid lists
// mean the whole segment.
type Targets struct {
	TypeValue      uint64
	Type           string
	TrackUIDs      []uint64
	EditionUIDs    []uint64
	ChapterUIDs    []uint64
	AttachmentUIDs []uint64
}

// Simple is a name/value pair, possibly with nested values.
type Simple struct {
	Name     string
	Value    string
	Binary   []byte
	Language string
	Default  bool
	Simples  []Simple
}

// Tag is a set of simple tags with one target.
type Tag struct {
	Targets Targets
	Simples []Simple
}

// Tags is the tag tree of a segment.
type Tags struct {
	Tags []*Tag
}

// NewSimple returns a default-language string tag.
func NewSimple(name, value string) Simple {
	return Simple{Name: name, Value: value, Language: "und", Default: true}
}

// Empty reports whether there are no tags.
func (t *Tags) Empty() bool {
	return t == nil || len(t.Tags) == 0
}

// Add appends a tag.
func (t *Tags) Add(tag *Tag) {
	t.Tags = append(t.Tags, tag)
}

// Merge moves all tags of o into t.
func (t *Tags) Merge(o *Tags) {
	if o == nil {
		return
	}
	t.Tags = append(t.Tags, o.Tags...)
}

// Clone returns a deep copy.
func (t *Tags) Clone() *Tags {
	if t == nil {
		return nil
	}
	c := &Tags{}
	for _, tag := range t.Tags {
		c.Tags = append(c.Tags, tag.clone())
	}
	return c
}

func (t *Tag) clone() *Tag {
	c := &Tag{Targets: t.Targets}
	c.Targets.TrackUIDs = cloneUIDs(t.Targets.TrackUIDs)
	c.Targets.EditionUIDs = cloneUIDs(t.Targets.EditionUIDs)
	c.Targets.ChapterUIDs = cloneUIDs(t.Targets.ChapterUIDs)
	c.Targets.AttachmentUIDs = cloneUIDs(t.Targets.AttachmentUIDs)
	c.Simples = cloneSimples(t.Simples)
	return c
}

func cloneUIDs(uids []uint64) []uint64 {
	if uids == nil {
		return nil
	}
	return append([]uint64(nil), uids...)
}

func cloneSimples(simples []Simple) []Simple {
	if simples == nil {
		return nil
	}
	ret := make([]Simple, len(simples))
	for i, s := range simples {
		ret[i] = s
		ret[i].Binary = ebml.Binary(s.Binary).Clone()
		ret[i].Simples = cloneSimples(s.Simples)
	}
	return ret
}

// RetainChapterUIDs removes chapter targets for which keep
// returns false. Tags left without any chapter target are dropped
// when they only targeted chapters.
func (t *Tags) RetainChapterUIDs(keep func(uid uint64) bool) {
	if t == nil {
		return
	}
	kept := t.Tags[:0]
	for _, tag := range t.Tags {
		if len(tag.Targets.ChapterUIDs) == 0 {
			kept = append(kept, tag)
			continue
		}
		var uids []uint64
		for _, uid := range tag.Targets.ChapterUIDs {
			if keep(uid) {
				uids = append(uids, uid)
			}
		}
		if len(uids) == 0 {
			continue
		}
		tag.Targets.ChapterUIDs = uids
		kept = append(kept, tag)
	}
	t.Tags = kept
}

// RemapChapterUIDs replaces chapter target uids found in m.
func (t *Tags) RemapChapterUIDs(m map[uint64]uint64) {
	if t == nil {
		return
	}
	for _, tag := range t.Tags {
		for i, uid := range tag.Targets.ChapterUIDs {
			if n, ok := m[uid]; ok {
				tag.Targets.ChapterUIDs[i] = n
			}
		}
	}
}

// CheckTargets returns an error if a target references a uid
// that isn't registered.
func (t *Tags) CheckTargets(uids *matroska.UIDs) error {
	if t == nil {
		return nil
	}
	check := func(kind matroska.UIDKind, list []uint64) error {
		for _, uid := range list {
			if !uids.Has(kind, uid) {
				return fmt.Errorf("%w: tag targets unknown %v uid %d",
					matroska.ErrDuplicateUID, kind, uid)
			}
		}
		return nil
	}
	for _, tag := range t.Tags {
		if err := check(matroska.UIDTrack, tag.Targets.TrackUIDs); err != nil {
			return err
		}
		if err := check(matroska.UIDEdition, tag.Targets.EditionUIDs); err != nil {
			return err
		}
		if err := check(matroska.UIDChapter, tag.Targets.ChapterUIDs); err != nil {
			return err
		}
		if err := check(matroska.UIDAttachment, tag.Targets.AttachmentUIDs); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the value of the first simple tag called name.
func (t *Tag) Find(name string) (string, bool) {
	for _, s := range t.Simples {
		if s.Name == name {
			return s.Value, true
		}
	}
	return "", false
}
