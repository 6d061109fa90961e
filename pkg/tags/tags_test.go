package tags

import (
	"bytes"
	"strings"
	"testing"

	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"

	"github.com/stretchr/testify/require"
)

func testTags() *Tags {
	return &Tags{Tags: []*Tag{
		{
			Targets: Targets{TypeValue: TargetAlbum, Type: "ALBUM"},
			Simples: []Simple{
				NewSimple("ARTIST", "Someone"),
				{Name: "TITLE", Value: "Record", Language: "eng", Default: true, Simples: []Simple{
					NewSimple("SORT_WITH", "Record, The"),
				}},
			},
		},
		{
			Targets: Targets{TypeValue: TargetTrack, ChapterUIDs: []uint64{11, 12}},
			Simples: []Simple{
				{Name: "COVER", Binary: []byte{1, 2, 3}, Language: "und"},
			},
		},
	}}
}

const testXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE Tags SYSTEM "matroskatags.dtd">
<Tags>
  <Tag>
    <Targets>
      <TargetTypeValue>50</TargetTypeValue>
      <TrackUID>7</TrackUID>
    </Targets>
    <Simple>
      <Name>TITLE</Name>
      <String>Hello</String>
      <TagLanguage>ger</TagLanguage>
      <DefaultLanguage>0</DefaultLanguage>
    </Simple>
  </Tag>
</Tags>
`

func TestParseXML(t *testing.T) {
	got, err := ParseXML(strings.NewReader(testXML), "tags.xml")
	require.NoError(t, err)
	expected := &Tags{Tags: []*Tag{{
		Targets: Targets{TypeValue: 50, TrackUIDs: []uint64{7}},
		Simples: []Simple{{Name: "TITLE", Value: "Hello", Language: "ger"}},
	}}}
	require.Equal(t, expected, got)
}

func TestParseXMLErrors(t *testing.T) {
	cases := map[string]string{
		"root":    "<Chapters/>",
		"uid":     "<Tags><Tag><Targets><TrackUID>x</TrackUID></Targets></Tag></Tags>",
		"noName":  "<Tags><Tag><Simple><String>a</String></Simple></Tag></Tags>",
		"syntax":  "<Tags><Tag>",
		"binary":  "<Tags><Tag><Simple><Name>A</Name><Binary>!!</Binary></Simple></Tag></Tags>",
		"default": "<Tags><Tag><Simple><Name>A</Name><DefaultLanguage>y</DefaultLanguage></Simple></Tag></Tags>",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseXML(strings.NewReader(doc), "bad.xml")
			require.ErrorIs(t, err, ErrParse)
			require.Contains(t, err.Error(), "bad.xml")
		})
	}
}

func TestXMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testTags().WriteXML(&buf))

	got, err := ParseXML(&buf, "x")
	require.NoError(t, err)
	require.Equal(t, testTags(), got)
}

func TestEBMLRoundTrip(t *testing.T) {
	el := testTags().ToEBML(matroska.ProfileMatroska)
	buf, err := ebml.Encode(el)
	require.NoError(t, err)

	decoded, err := ebml.Decode(buf, matroska.Schema)
	require.NoError(t, err)
	got, err := FromEBML(decoded)
	require.NoError(t, err)
	require.Equal(t, testTags(), got)

	_, err = FromEBML(ebml.NewMaster(matroska.IDChapters))
	require.ErrorIs(t, err, ErrParse)
}

func TestRetainChapterUIDs(t *testing.T) {
	tags := testTags()
	tags.RetainChapterUIDs(func(uid uint64) bool { return uid == 12 })
	require.Len(t, tags.Tags, 2)
	require.Equal(t, []uint64{12}, tags.Tags[1].Targets.ChapterUIDs)

	tags.RetainChapterUIDs(func(uint64) bool { return false })
	require.Len(t, tags.Tags, 1)
	require.Equal(t, TargetAlbum, tags.Tags[0].Targets.TypeValue)
}

func TestRemapAndCheckTargets(t *testing.T) {
	tags := testTags()
	tags.RemapChapterUIDs(map[uint64]uint64{11: 21})
	require.Equal(t, []uint64{21, 12}, tags.Tags[1].Targets.ChapterUIDs)

	uids := matroska.NewSeededUIDs(1)
	require.NoError(t, uids.Add(matroska.UIDChapter, 21))
	require.ErrorIs(t, tags.CheckTargets(uids), matroska.ErrDuplicateUID)
	require.NoError(t, uids.Add(matroska.UIDChapter, 12))
	require.NoError(t, tags.CheckTargets(uids))
}

func TestClone(t *testing.T) {
	tags := testTags()
	c := tags.Clone()
	c.Tags[1].Simples[0].Binary[0] = 9
	c.Tags[1].Targets.ChapterUIDs[0] = 9
	require.Equal(t, testTags(), tags)

	v, ok := tags.Tags[0].Find("ARTIST")
	require.True(t, ok)
	require.Equal(t, "Someone", v)
}
