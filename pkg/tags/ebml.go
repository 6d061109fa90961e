package tags

import (
	"fmt"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
)

// ToEBML returns the Tags element, filtered for the profile.
func (t *Tags) ToEBML(p matroska.Profile) *ebml.Element {
	el := ebml.NewMaster(matroska.IDTags)
	for _, tag := range t.Tags {
		targets := ebml.NewMaster(matroska.IDTargets)
		if tag.Targets.TypeValue != 0 {
			targets.Add(ebml.NewUint(matroska.IDTargetTypeValue, tag.Targets.TypeValue))
		}
		if tag.Targets.Type != "" {
			targets.Add(ebml.NewString(matroska.IDTargetType, tag.Targets.Type))
		}
		for _, uid := range tag.Targets.TrackUIDs {
			targets.Add(ebml.NewUint(matroska.IDTagTrackUID, uid))
		}
		for _, uid := range tag.Targets.EditionUIDs {
			targets.Add(ebml.NewUint(matroska.IDTagEditionUID, uid))
		}
		for _, uid := range tag.Targets.ChapterUIDs {
			targets.Add(ebml.NewUint(matroska.IDTagChapterUID, uid))
		}
		for _, uid := range tag.Targets.AttachmentUIDs {
			targets.Add(ebml.NewUint(matroska.IDTagAttachmentUID, uid))
		}

		tagEl := ebml.NewMaster(matroska.IDTag, targets)
		for _, s := range tag.Simples {
			tagEl.Add(simpleToEBML(s))
		}
		el.Add(tagEl)
	}
	return p.Filter(el)
}

func simpleToEBML(s Simple) *ebml.Element {
	lang := s.Language
	if lang == "" {
		lang = "und"
	}
	el := ebml.NewMaster(matroska.IDSimpleTag,
		ebml.NewUnicode(matroska.IDTagName, s.Name),
		ebml.NewString(matroska.IDTagLanguage, lang),
		ebml.NewUint(matroska.IDTagDefault, boolUint(s.Default)),
	)
	if s.Binary != nil {
		el.Add(ebml.NewBinary(matroska.IDTagBinary, s.Binary))
	} else {
		el.Add(ebml.NewUnicode(matroska.IDTagString, s.Value))
	}
	for _, child := range s.Simples {
		el.Add(simpleToEBML(child))
	}
	return el
}

// FromEBML converts a Tags element.
func FromEBML(el *ebml.Element) (*Tags, error) {
	if el.ID != matroska.IDTags {
		return nil, fmt.Errorf("%w: element 0x%x is not Tags", ErrParse, uint32(el.ID))
	}
	t := &Tags{}
	for _, tagEl := range el.FindAll(matroska.IDTag) {
		tag := &Tag{}
		if targets := tagEl.Find(matroska.IDTargets); targets != nil {
			tag.Targets.TypeValue = targets.GetUint(matroska.IDTargetTypeValue, 0)
			tag.Targets.Type = targets.GetString(matroska.IDTargetType, "")
			tag.Targets.TrackUIDs = uintValues(targets, matroska.IDTagTrackUID)
			tag.Targets.EditionUIDs = uintValues(targets, matroska.IDTagEditionUID)
			tag.Targets.ChapterUIDs = uintValues(targets, matroska.IDTagChapterUID)
			tag.Targets.AttachmentUIDs = uintValues(targets, matroska.IDTagAttachmentUID)
		}
		for _, s := range tagEl.FindAll(matroska.IDSimpleTag) {
			tag.Simples = append(tag.Simples, simpleFromEBML(s))
		}
		t.Tags = append(t.Tags, tag)
	}
	return t, nil
}

func simpleFromEBML(el *ebml.Element) Simple {
	s := Simple{
		Name:     el.GetString(matroska.IDTagName, ""),
		Value:    el.GetString(matroska.IDTagString, ""),
		Language: el.GetString(matroska.IDTagLanguage, "und"),
		Default:  el.GetUint(matroska.IDTagDefault, 1) == 1,
	}
	if b := el.Find(matroska.IDTagBinary); b != nil {
		s.Binary = b.Binary.Clone()
	}
	for _, child := range el.FindAll(matroska.IDSimpleTag) {
		s.Simples = append(s.Simples, simpleFromEBML(child))
	}
	return s
}

func uintValues(el *ebml.Element, id ebml.ID) []uint64 {
	var ret []uint64
	for _, c := range el.FindAll(id) {
		ret = append(ret, c.Uint)
	}
	return ret
}

func boolUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
