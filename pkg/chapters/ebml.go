package chapters

import (
	"fmt"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
)

// ToEBML returns the Chapters element, filtered for the profile.
// Call FixMandatory first.
func (c *Chapters) ToEBML(p matroska.Profile) *ebml.Element {
	el := ebml.NewMaster(matroska.IDChapters)
	for _, e := range c.Editions {
		edition := ebml.NewMaster(matroska.IDEditionEntry,
			ebml.NewUint(matroska.IDEditionUID, e.UID),
			ebml.NewUint(matroska.IDEditionFlagHidden, uintBool(e.Hidden)),
			ebml.NewUint(matroska.IDEditionFlagDefault, uintBool(e.Default)),
		)
		if e.Ordered {
			edition.Add(ebml.NewUint(matroska.IDEditionFlagOrdered, 1))
		}
		for _, a := range e.Atoms {
			edition.Add(atomToEBML(a))
		}
		el.Add(edition)
	}
	return p.Filter(el)
}

func atomToEBML(a *Atom) *ebml.Element {
	el := ebml.NewMaster(matroska.IDChapterAtom,
		ebml.NewUint(matroska.IDChapterUID, a.UID),
		ebml.NewUint(matroska.IDChapterTimeStart, uint64(clamp(a.Start))),
	)
	if a.HasEnd {
		el.Add(ebml.NewUint(matroska.IDChapterTimeEnd, uint64(clamp(a.End))))
	}
	el.Add(
		ebml.NewUint(matroska.IDChapterFlagHidden, uintBool(a.Hidden)),
		ebml.NewUint(matroska.IDChapterFlagEnabled, uintBool(a.Enabled)),
	)
	if a.PhysicalEquiv != 0 {
		el.Add(ebml.NewUint(matroska.IDChapterPhysicalEquiv, a.PhysicalEquiv))
	}
	if len(a.Tracks) != 0 {
		tracks := ebml.NewMaster(matroska.IDChapterTrack)
		for _, uid := range a.Tracks {
			tracks.Add(ebml.NewUint(matroska.IDChapterTrackUID, uid))
		}
		el.Add(tracks)
	}
	for _, d := range a.Displays {
		display := ebml.NewMaster(matroska.IDChapterDisplay,
			ebml.NewUnicode(matroska.IDChapString, d.String),
			ebml.NewString(matroska.IDChapLanguage, d.Language),
		)
		if d.Country != "" {
			display.Add(ebml.NewString(matroska.IDChapCountry, d.Country))
		}
		el.Add(display)
	}
	for _, child := range a.Atoms {
		el.Add(atomToEBML(child))
	}
	return el
}

// FromEBML converts a Chapters element.
func FromEBML(el *ebml.Element) (*Chapters, error) {
	if el.ID != matroska.IDChapters {
		return nil, fmt.Errorf("%w: element 0x%x is not Chapters", ErrChapterParse, uint32(el.ID))
	}
	c := &Chapters{}
	for _, editionEl := range el.FindAll(matroska.IDEditionEntry) {
		e := &Edition{
			UID:     editionEl.GetUint(matroska.IDEditionUID, 0),
			Hidden:  editionEl.GetUint(matroska.IDEditionFlagHidden, 0) == 1,
			Default: editionEl.GetUint(matroska.IDEditionFlagDefault, 0) == 1,
			Ordered: editionEl.GetUint(matroska.IDEditionFlagOrdered, 0) == 1,
		}
		for _, atomEl := range editionEl.FindAll(matroska.IDChapterAtom) {
			e.Atoms = append(e.Atoms, atomFromEBML(atomEl))
		}
		c.Editions = append(c.Editions, e)
	}
	return c, nil
}

func atomFromEBML(el *ebml.Element) *Atom {
	a := &Atom{
		UID:           el.GetUint(matroska.IDChapterUID, 0),
		Start:         int64(el.GetUint(matroska.IDChapterTimeStart, 0)),
		Hidden:        el.GetUint(matroska.IDChapterFlagHidden, 0) == 1,
		Enabled:       el.GetUint(matroska.IDChapterFlagEnabled, 1) == 1,
		PhysicalEquiv: el.GetUint(matroska.IDChapterPhysicalEquiv, 0),
	}
	if end := el.Find(matroska.IDChapterTimeEnd); end != nil {
		a.End, a.HasEnd = int64(end.Uint), true
	}
	if tracks := el.Find(matroska.IDChapterTrack); tracks != nil {
		for _, t := range tracks.FindAll(matroska.IDChapterTrackUID) {
			a.Tracks = append(a.Tracks, t.Uint)
		}
	}
	for _, d := range el.FindAll(matroska.IDChapterDisplay) {
		a.Displays = append(a.Displays, Display{
			String:   d.GetString(matroska.IDChapString, ""),
			Language: d.GetString(matroska.IDChapLanguage, "eng"),
			Country:  d.GetString(matroska.IDChapCountry, ""),
		})
	}
	for _, child := range el.FindAll(matroska.IDChapterAtom) {
		a.Atoms = append(a.Atoms, atomFromEBML(child))
	}
	return a
}

func uintBool(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
