// Package chapters holds Matroska chapter trees, the text formats
// they are read from and written to, and the tree operations the
// muxer needs: timeframe selection, merging and uid repair.
package chapters

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"mkvtool/pkg/matroska"
)

// ErrChapterParse is returned for malformed chapter documents.
var ErrChapterParse = errors.New("chapter parse error")

// Physical equivalents used by cue sheets.
const (
	PhysicalIndex uint64 = 10
	PhysicalTrack uint64 = 20
)

// Display is a chapter name in one language.
type Display struct {
	String   string
	Language string
	Country  string
}

// Atom is a chapter. Times are in nanoseconds.
type Atom struct {
	UID    uint64
	Start  int64
	End    int64
	HasEnd bool

	Hidden        bool
	Enabled       bool
	PhysicalEquiv uint64
	Tracks        []uint64
	Displays      []Display
	Atoms         []*Atom
}

// Edition is an alternative set of chapters.
type Edition struct {
	UID     uint64
	Hidden  bool
	Default bool
	Ordered bool
	Atoms   []*Atom
}

// Chapters is the chapter tree of a segment.
type Chapters struct {
	Editions []*Edition
}

// Empty reports whether c has no chapters.
func (c *Chapters) Empty() bool {
	if c == nil {
		return true
	}
	for _, e := range c.Editions {
		if len(e.Atoms) != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (c *Chapters) Clone() *Chapters {
	if c == nil {
		return nil
	}
	ret := &Chapters{}
	for _, e := range c.Editions {
		ce := *e
		ce.Atoms = cloneAtoms(e.Atoms)
		ret.Editions = append(ret.Editions, &ce)
	}
	return ret
}

func cloneAtoms(atoms []*Atom) []*Atom {
	if atoms == nil {
		return nil
	}
	ret := make([]*Atom, len(atoms))
	for i, a := range atoms {
		ca := *a
		if a.Tracks != nil {
			ca.Tracks = append([]uint64(nil), a.Tracks...)
		}
		if a.Displays != nil {
			ca.Displays = append([]Display(nil), a.Displays...)
		}
		ca.Atoms = cloneAtoms(a.Atoms)
		ret[i] = &ca
	}
	return ret
}

// Walk calls fn for every atom, parents before children.
func (c *Chapters) Walk(fn func(e *Edition, a *Atom)) {
	if c == nil {
		return
	}
	var walk func(e *Edition, atoms []*Atom)
	walk = func(e *Edition, atoms []*Atom) {
		for _, a := range atoms {
			fn(e, a)
			walk(e, a.Atoms)
		}
	}
	for _, e := range c.Editions {
		walk(e, e.Atoms)
	}
}

// FindAtom returns the atom with uid, or nil.
func (c *Chapters) FindAtom(uid uint64) *Atom {
	var found *Atom
	c.Walk(func(_ *Edition, a *Atom) {
		if found == nil && a.UID == uid {
			found = a
		}
	})
	return found
}

// FindEdition returns the edition with uid. Uid 0 returns the first edition.
func (c *Chapters) FindEdition(uid uint64) *Edition {
	if c == nil || len(c.Editions) == 0 {
		return nil
	}
	if uid == 0 {
		return c.Editions[0]
	}
	for _, e := range c.Editions {
		if e.UID == uid {
			return e
		}
	}
	return nil
}

// HasAtom reports whether a chapter with uid exists.
func (c *Chapters) HasAtom(uid uint64) bool {
	return c.FindAtom(uid) != nil
}

// StartTimes returns the sorted, deduplicated start times of all
// top level atoms.
func (c *Chapters) StartTimes() []int64 {
	if c == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	var ret []int64
	for _, e := range c.Editions {
		for _, a := range e.Atoms {
			if _, ok := seen[a.Start]; ok {
				continue
			}
			seen[a.Start] = struct{}{}
			ret = append(ret, a.Start)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// Validate returns an error if a uid is zero or used twice.
func (c *Chapters) Validate() error {
	return c.RegisterUIDs(matroska.NewSeededUIDs(0))
}

// RegisterUIDs adds all edition and chapter uids to uids.
func (c *Chapters) RegisterUIDs(uids *matroska.UIDs) error {
	if c == nil {
		return nil
	}
	for _, e := range c.Editions {
		if err := uids.Add(matroska.UIDEdition, e.UID); err != nil {
			return fmt.Errorf("edition: %w", err)
		}
	}
	var err error
	c.Walk(func(_ *Edition, a *Atom) {
		if err != nil {
			return
		}
		if err2 := uids.Add(matroska.UIDChapter, a.UID); err2 != nil {
			err = fmt.Errorf("chapter at %s: %w", FormatTimestamp(a.Start), err2)
		}
	})
	return err
}

// FixMandatory fills in the elements every edition and atom must
// carry: missing uids are generated and displays get a language.
func (c *Chapters) FixMandatory(uids *matroska.UIDs) {
	if c == nil {
		return
	}
	if uids == nil {
		uids = matroska.NewUIDs()
	}
	// Existing uids must not be handed out again. Duplicates are
	// left for Validate to report.
	for _, e := range c.Editions {
		if e.UID != 0 {
			uids.Add(matroska.UIDEdition, e.UID) //nolint:errcheck
		}
	}
	c.Walk(func(_ *Edition, a *Atom) {
		if a.UID != 0 {
			uids.Add(matroska.UIDChapter, a.UID) //nolint:errcheck
		}
	})

	for _, e := range c.Editions {
		if e.UID == 0 {
			e.UID = uids.New(matroska.UIDEdition)
		}
	}
	c.Walk(func(_ *Edition, a *Atom) {
		if a.UID == 0 {
			a.UID = uids.New(matroska.UIDChapter)
		}
		for i := range a.Displays {
			if a.Displays[i].Language == "" {
				a.Displays[i].Language = "eng"
			}
		}
	})
}

// SelectTimeframe keeps the atoms whose [start, end) interval
// intersects [min, max) and shifts the kept atoms by offset. An atom
// without an end lasts until the start of its next sibling; the last
// one is unbounded. A negative max means no upper bound. Editions left
// without atoms are removed. It returns false if nothing is left.
func (c *Chapters) SelectTimeframe(min, max, offset int64) bool {
	if c == nil {
		return false
	}
	var editions []*Edition
	for _, e := range c.Editions {
		e.Atoms = selectAtoms(e.Atoms, min, max, offset)
		if len(e.Atoms) != 0 {
			editions = append(editions, e)
		}
	}
	c.Editions = editions
	return len(editions) != 0
}

func selectAtoms(atoms []*Atom, min, max, offset int64) []*Atom {
	var kept []*Atom
	for i, a := range atoms {
		end := int64(math.MaxInt64)
		switch {
		case a.HasEnd:
			end = a.End
		case i+1 < len(atoms):
			end = atoms[i+1].Start
		}
		if end <= a.Start {
			end = a.Start + 1
		}
		if end <= min || (max >= 0 && a.Start >= max) {
			continue
		}
		a.Atoms = selectAtoms(a.Atoms, min, max, offset)
		a.Start += offset
		if a.HasEnd {
			a.End += offset
		}
		kept = append(kept, a)
	}
	return kept
}

// Adjust shifts all timestamps by offset, clamping at zero.
func (c *Chapters) Adjust(offset int64) {
	c.Walk(func(_ *Edition, a *Atom) {
		a.Start = clamp(a.Start + offset)
		if a.HasEnd {
			a.End = clamp(a.End + offset)
		}
	})
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// MergeEntries merges sibling atoms that share a uid. The merged
// atom spans both intervals and holds the children of both.
func (c *Chapters) MergeEntries() {
	if c == nil {
		return
	}
	for _, e := range c.Editions {
		e.Atoms = mergeAtoms(e.Atoms)
	}
}

func mergeAtoms(atoms []*Atom) []*Atom {
	var ret []*Atom
	index := make(map[uint64]*Atom)
	for _, a := range atoms {
		prev, ok := index[a.UID]
		if !ok || a.UID == 0 {
			index[a.UID] = a
			ret = append(ret, a)
			continue
		}
		if a.Start < prev.Start {
			prev.Start = a.Start
		}
		switch {
		case prev.HasEnd && a.HasEnd:
			if a.End > prev.End {
				prev.End = a.End
			}
		case a.HasEnd:
			prev.End, prev.HasEnd = a.End, true
		}
		prev.Atoms = append(prev.Atoms, a.Atoms...)
	}
	for _, a := range ret {
		a.Atoms = mergeAtoms(a.Atoms)
	}
	return ret
}

// MoveByEdition moves the editions of src into c. Editions with a
// uid already present in c are merged into the existing edition.
func (c *Chapters) MoveByEdition(src *Chapters) {
	if src == nil {
		return
	}
	for _, e := range src.Editions {
		if existing := c.findEditionUID(e.UID); existing != nil {
			existing.Atoms = append(existing.Atoms, e.Atoms...)
			continue
		}
		c.Editions = append(c.Editions, e)
	}
	src.Editions = nil
}

func (c *Chapters) findEditionUID(uid uint64) *Edition {
	if uid == 0 {
		return nil
	}
	for _, e := range c.Editions {
		if e.UID == uid {
			return e
		}
	}
	return nil
}

// Merge shifts src by offset and merges it into c. Chapter uids that
// collide after merging are replaced. The returned map holds the
// replaced uids of src so tags targeting them can be updated.
func (c *Chapters) Merge(src *Chapters, offset int64, uids *matroska.UIDs) map[uint64]uint64 {
	if src == nil {
		return nil
	}
	if uids == nil {
		uids = matroska.NewUIDs()
	}
	src.Adjust(offset)

	srcAtoms := make(map[*Atom]struct{})
	src.Walk(func(_ *Edition, a *Atom) { srcAtoms[a] = struct{}{} })

	c.MoveByEdition(src)
	c.MergeEntries()

	remap := make(map[uint64]uint64)
	seen := make(map[uint64]struct{})
	c.Walk(func(_ *Edition, a *Atom) {
		if _, dup := seen[a.UID]; !dup && a.UID != 0 {
			seen[a.UID] = struct{}{}
			return
		}
		uid := uids.New(matroska.UIDChapter)
		for {
			if _, used := seen[uid]; !used {
				break
			}
			uid = uids.New(matroska.UIDChapter)
		}
		if _, fromSrc := srcAtoms[a]; fromSrc && a.UID != 0 {
			remap[a.UID] = uid
		}
		a.UID = uid
		seen[uid] = struct{}{}
	})
	return remap
}
