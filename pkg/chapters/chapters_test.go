package chapters

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/tags"

	"github.com/stretchr/testify/require"
)

const simpleDoc = `CHAPTER01=00:00:00.000
CHAPTER01NAME=Intro

CHAPTER02=00:01:30.500
CHAPTER02NAME=
`

func startsOf(atoms []*Atom) []int64 {
	var ret []int64
	for _, a := range atoms {
		ret = append(ret, a.Start)
	}
	return ret
}

func TestParseSimple(t *testing.T) {
	c, err := ParseSimple(strings.NewReader(simpleDoc), Options{UIDs: matroska.NewSeededUIDs(1)})
	require.NoError(t, err)
	require.Len(t, c.Editions, 1)

	atoms := c.Editions[0].Atoms
	require.Equal(t, []int64{0, 90_500_000_000}, startsOf(atoms))
	require.Equal(t, []Display{{String: "Intro", Language: "eng"}}, atoms[0].Displays)
	require.Equal(t, "00:01:30.500", atoms[1].Displays[0].String)
	require.False(t, atoms[1].HasEnd)
	require.True(t, atoms[1].Enabled)
	require.NoError(t, c.Validate())
}

func TestParseSimpleErrors(t *testing.T) {
	cases := map[string]string{
		"minute":   "CHAPTER01=00:60:00.000\nCHAPTER01NAME=a\n",
		"second":   "CHAPTER01=00:00:60.000\nCHAPTER01NAME=a\n",
		"noName":   "CHAPTER01=00:00:00.000\n",
		"twoTimes": "CHAPTER01=00:00:00.000\nCHAPTER02=00:00:01.000\n",
		"noTime":   "CHAPTER01NAME=a\n",
		"garbage":  "CHAPTER01=00:00:00.000\nGARBAGE\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSimple(strings.NewReader(doc), Options{})
			require.ErrorIs(t, err, ErrChapterParse)
		})
	}
}

func TestParseSimpleTimeframe(t *testing.T) {
	// Ten chapters, ten seconds apart.
	var doc strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&doc, "CHAPTER%02d=00:%02d:%02d.000\nCHAPTER%02dNAME=c%d\n",
			i+1, i*10/60, i*10%60, i+1, i)
	}
	const s = int64(1e9)

	cases := []struct {
		name     string
		min      int64
		max      int64
		offset   int64
		expected []int64
	}{
		{"all", 0, 0, 0, []int64{0, 10 * s, 20 * s, 30 * s, 40 * s, 50 * s, 60 * s, 70 * s, 80 * s, 90 * s}},
		{"window", 25 * s, 55 * s, 0, []int64{20 * s, 30 * s, 40 * s, 50 * s}},
		{"aligned", 30 * s, 50 * s, 0, []int64{30 * s, 40 * s}},
		{"offset", 25 * s, 55 * s, 7 * s, []int64{27 * s, 37 * s, 47 * s, 57 * s}},
		{"negativeOffset", 30 * s, 50 * s, -30 * s, []int64{0, 10 * s}},
		{"unboundedTail", 95 * s, 0, 0, []int64{90 * s}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Options{Min: tc.min, Max: tc.max, Offset: tc.offset}
			c, err := ParseSimple(strings.NewReader(doc.String()), opts)
			require.NoError(t, err)
			require.Len(t, c.Editions, 1)
			require.Equal(t, tc.expected, startsOf(c.Editions[0].Atoms))
		})
	}
}

const cueDoc = `REM GENRE Rock
REM DATE 1999
PERFORMER "The Band"
TITLE "The Album"
FILE "album.wav" WAVE
  TRACK 01 AUDIO
    TITLE "First"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Second"
    PERFORMER "Guest"
    INDEX 00 04:46:62
    INDEX 01 04:49:64
`

func TestParseCue(t *testing.T) {
	c, tg, err := ParseCue(cueDoc, Options{UIDs: matroska.NewSeededUIDs(1)})
	require.NoError(t, err)
	require.Len(t, c.Editions, 1)

	atoms := c.Editions[0].Atoms
	require.Len(t, atoms, 2)
	require.Equal(t, "The Band - First", atoms[0].Displays[0].String)
	require.Equal(t, "Guest - Second", atoms[1].Displays[0].String)
	require.Equal(t, PhysicalTrack, atoms[1].PhysicalEquiv)

	msf := func(m, s, f int64) int64 { return m*60e9 + s*1e9 + f*1e9/75 }
	index0, index1 := msf(4, 46, 62), msf(4, 49, 64)
	require.Equal(t, index1, atoms[1].Start)
	require.Equal(t, []int64{index0, index1}, startsOf(atoms[1].Atoms))
	require.Equal(t, "INDEX 00", atoms[1].Atoms[0].Displays[0].String)
	require.True(t, atoms[1].Atoms[0].Hidden)
	require.Equal(t, "INDEX 01", atoms[0].Atoms[0].Displays[0].String)

	require.Len(t, tg.Tags, 3)
	album := tg.Tags[0]
	require.Equal(t, tags.TargetAlbum, album.Targets.TypeValue)
	v, _ := album.Find("ARTIST")
	require.Equal(t, "The Band", v)

	second := tg.Tags[2]
	require.Equal(t, []uint64{atoms[1].UID}, second.Targets.ChapterUIDs)
	for name, expected := range map[string]string{
		"TITLE":         "Second",
		"ARTIST":        "Guest",
		"PART_NUMBER":   "2",
		"GENRE":         "Rock",
		"DATE_RELEASED": "1999",
	} {
		v, ok := second.Find(name)
		require.True(t, ok, name)
		require.Equal(t, expected, v)
	}
}

func TestParseCueTimeframe(t *testing.T) {
	c, tg, err := ParseCue(cueDoc, Options{Max: 60e9})
	require.NoError(t, err)
	require.Len(t, c.Editions[0].Atoms, 1)
	require.Len(t, tg.Tags, 2)
	require.Equal(t, []uint64{c.Editions[0].Atoms[0].UID}, tg.Tags[1].Targets.ChapterUIDs)
}

func TestParseCueNameFormat(t *testing.T) {
	c, _, err := ParseCue(cueDoc, Options{NameFormat: "%N. %t (%n) 100%"})
	require.NoError(t, err)
	require.Equal(t, "02. Second (2) 100%", c.Editions[0].Atoms[1].Displays[0].String)
}

func TestParseCueErrors(t *testing.T) {
	cases := map[string]string{
		"noIndex":    "TITLE \"a\"\nTRACK 01 AUDIO\nTRACK 02 AUDIO\nINDEX 01 00:00:00\n",
		"badIndex":   "TITLE \"a\"\nTRACK 01 AUDIO\nINDEX 01 00:00\n",
		"indexOrder": "TITLE \"a\"\nTRACK 01 AUDIO\nINDEX 02 00:00:00\n",
		"quote":      "TITLE \"a\nTRACK 01 AUDIO\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseCue(doc, Options{})
			require.ErrorIs(t, err, ErrChapterParse)
		})
	}
}

func testChapters() *Chapters {
	return &Chapters{Editions: []*Edition{
		{
			UID:     1,
			Default: true,
			Atoms: []*Atom{
				{
					UID:     10,
					Start:   0,
					End:     90_500_000_000,
					HasEnd:  true,
					Enabled: true,
					Tracks:  []uint64{3, 4},
					Displays: []Display{
						{String: "Intro", Language: "eng"},
						{String: "Einleitung", Language: "ger", Country: "de"},
					},
					Atoms: []*Atom{
						{UID: 11, Start: 1_000_000_001, Hidden: true, Enabled: true, PhysicalEquiv: PhysicalIndex},
					},
				},
				{UID: 12, Start: 90_500_000_000, Enabled: false},
			},
		},
		{UID: 2, Hidden: true, Ordered: true, Atoms: []*Atom{
			{UID: 20, Start: 5_000_000_000, Enabled: true, Displays: []Display{{String: "x", Language: "und"}}},
		}},
	}}
}

func TestXMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testChapters().WriteXML(&buf))
	require.Contains(t, buf.String(), "<ChapterTimeEnd>00:01:30.500000000</ChapterTimeEnd>")

	got, err := ParseXML(&buf)
	require.NoError(t, err)
	require.Equal(t, testChapters(), got)
}

func TestParseXMLErrors(t *testing.T) {
	cases := map[string]string{
		"root":    "<Tags/>",
		"noStart": "<Chapters><EditionEntry><ChapterAtom/></EditionEntry></Chapters>",
		"start": "<Chapters><EditionEntry><ChapterAtom>" +
			"<ChapterTimeStart>1:99:00</ChapterTimeStart></ChapterAtom></EditionEntry></Chapters>",
		"flag":      "<Chapters><EditionEntry><EditionFlagHidden>2</EditionFlagHidden></EditionEntry></Chapters>",
		"uid":       "<Chapters><EditionEntry><EditionUID>x</EditionUID></EditionEntry></Chapters>",
		"truncated": "<Chapters><EditionEntry",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseXML(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrChapterParse)
		})
	}
}

func TestEBMLRoundTrip(t *testing.T) {
	buf, err := ebml.Encode(testChapters().ToEBML(matroska.ProfileMatroska))
	require.NoError(t, err)

	decoded, err := ebml.Decode(buf, matroska.Schema)
	require.NoError(t, err)
	got, err := FromEBML(decoded)
	require.NoError(t, err)
	require.Equal(t, testChapters(), got)

	_, err = FromEBML(ebml.NewMaster(matroska.IDTags))
	require.ErrorIs(t, err, ErrChapterParse)
}

func TestParse(t *testing.T) {
	var xmlDoc bytes.Buffer
	require.NoError(t, testChapters().WriteXML(&xmlDoc))

	cases := []struct {
		name     string
		doc      string
		expected Format
	}{
		{"simple", simpleDoc, FormatSimple},
		{"cue", cueDoc, FormatCue},
		{"xml", xmlDoc.String(), FormatXML},
		{"bom", "\xef\xbb\xbf" + simpleDoc, FormatSimple},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Parse(strings.NewReader(tc.doc), tc.name, Options{})
			require.NoError(t, err)
			require.Equal(t, tc.expected, doc.Format)
			require.False(t, doc.Chapters.Empty())
			require.NoError(t, doc.Chapters.Validate())
		})
	}

	_, err := Parse(strings.NewReader("nonsense"), "bad.txt", Options{})
	require.ErrorIs(t, err, ErrChapterParse)
	require.Contains(t, err.Error(), "bad.txt")
}

func TestParseDuplicateUIDs(t *testing.T) {
	c := testChapters()
	c.Editions[1].Atoms[0].UID = 10
	var doc bytes.Buffer
	require.NoError(t, c.WriteXML(&doc))

	_, err := Parse(&doc, "dup.xml", Options{})
	require.ErrorIs(t, err, ErrChapterParse)
	require.ErrorIs(t, err, matroska.ErrDuplicateUID)
}

func TestFixMandatory(t *testing.T) {
	c := &Chapters{Editions: []*Edition{{Atoms: []*Atom{
		{UID: 5, Displays: []Display{{String: "a"}}},
		{Start: 1},
	}}}}
	uids := matroska.NewSeededUIDs(3)
	c.FixMandatory(uids)

	require.NotZero(t, c.Editions[0].UID)
	require.Equal(t, uint64(5), c.Editions[0].Atoms[0].UID)
	require.NotZero(t, c.Editions[0].Atoms[1].UID)
	require.Equal(t, "eng", c.Editions[0].Atoms[0].Displays[0].Language)
	require.True(t, uids.Has(matroska.UIDChapter, 5))
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	c := testChapters()
	require.NoError(t, c.Validate())

	c.Editions[1].Atoms[0].UID = 11
	require.ErrorIs(t, c.Validate(), matroska.ErrDuplicateUID)
}

func TestFind(t *testing.T) {
	c := testChapters()
	require.Equal(t, int64(1_000_000_001), c.FindAtom(11).Start)
	require.Nil(t, c.FindAtom(99))
	require.Equal(t, uint64(1), c.FindEdition(0).UID)
	require.Equal(t, uint64(2), c.FindEdition(2).UID)
	require.Nil(t, c.FindEdition(3))
	require.Equal(t, []int64{0, 5e9, 90_500_000_000}, c.StartTimes())
}

func TestAdjust(t *testing.T) {
	c := testChapters()
	c.Adjust(-2e9)
	require.Equal(t, int64(0), c.Editions[0].Atoms[0].Start)
	require.Equal(t, int64(88_500_000_000), c.Editions[0].Atoms[0].End)
	require.Equal(t, int64(0), c.FindAtom(11).Start)
	require.Equal(t, int64(3e9), c.FindAtom(20).Start)
}

func TestSelectTimeframeEmpty(t *testing.T) {
	c := &Chapters{Editions: []*Edition{
		{UID: 1, Atoms: []*Atom{{UID: 1, Start: 0, End: 5, HasEnd: true}}},
		{UID: 2, Atoms: []*Atom{{UID: 2, Start: 12, End: 15, HasEnd: true}}},
	}}
	require.True(t, c.SelectTimeframe(10, 20, -10))
	require.Len(t, c.Editions, 1)
	require.Equal(t, int64(2), c.Editions[0].Atoms[0].Start)
	require.Equal(t, int64(5), c.Editions[0].Atoms[0].End)

	require.False(t, c.SelectTimeframe(100, -1, 0))
	require.True(t, c.Empty())
}

func TestMerge(t *testing.T) {
	dst := &Chapters{Editions: []*Edition{{UID: 1, Atoms: []*Atom{
		{UID: 10, End: 3e9, HasEnd: true, Enabled: true},
	}}}}
	src := &Chapters{Editions: []*Edition{
		{UID: 1, Atoms: []*Atom{{UID: 10, End: 2e9, HasEnd: true, Enabled: true}}},
		{UID: 2, Atoms: []*Atom{{UID: 10, Start: 1e9, Enabled: true}}},
	}}

	remap := dst.Merge(src, 2e9, matroska.NewSeededUIDs(1))
	require.Len(t, dst.Editions, 2)
	require.Empty(t, src.Editions)

	merged := dst.Editions[0].Atoms
	require.Len(t, merged, 1)
	require.Equal(t, int64(0), merged[0].Start)
	require.Equal(t, int64(4e9), merged[0].End)

	moved := dst.Editions[1].Atoms[0]
	require.Equal(t, int64(3e9), moved.Start)
	require.NotEqual(t, uint64(10), moved.UID)
	require.Equal(t, map[uint64]uint64{10: moved.UID}, remap)
	require.NoError(t, dst.Validate())
}

func TestMergeEntriesNested(t *testing.T) {
	c := &Chapters{Editions: []*Edition{{UID: 1, Atoms: []*Atom{
		{UID: 1, Start: 5, Atoms: []*Atom{{UID: 3, Start: 5}}},
		{UID: 1, Start: 2, Atoms: []*Atom{{UID: 3, Start: 7}, {UID: 4, Start: 8}}},
	}}}}
	c.MergeEntries()

	atoms := c.Editions[0].Atoms
	require.Len(t, atoms, 1)
	require.Equal(t, int64(2), atoms[0].Start)
	require.Equal(t, []int64{5, 8}, startsOf(atoms[0].Atoms))
}

func TestClone(t *testing.T) {
	c := testChapters()
	clone := c.Clone()
	clone.Editions[0].Atoms[0].Displays[0].String = "changed"
	clone.Editions[0].Atoms[0].Atoms[0].Start = 42
	clone.Editions[0].Atoms[0].Tracks[0] = 42
	require.Equal(t, testChapters(), c)
}

func TestTimestamp(t *testing.T) {
	cases := map[string]int64{
		"00:00:00":             0,
		"01:02:03.5":           3723_500_000_000,
		"00:00:01,000000001":   1_000_000_001,
		"12345":                12345,
		"100:00:00.000000000 ": 360000e9,
	}
	for s, expected := range cases {
		got, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		require.Equal(t, expected, got, s)
	}
	for _, s := range []string{"", "1:60:00", "a", "-5", "1:2"} {
		_, err := ParseTimestamp(s)
		require.Error(t, err, s)
	}
	require.Equal(t, "01:02:03.500000000", FormatTimestamp(3723_500_000_000))
}
