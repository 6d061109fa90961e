package mux

import (
	"bytes"
	"context"
	"math/bits"
	"sort"
	"testing"
	"time"

	"mkvtool/pkg/chapters"
	"mkvtool/pkg/demux"
	"mkvtool/pkg/ebml"
	"mkvtool/pkg/matroska"
	"mkvtool/pkg/mmio"
	"mkvtool/pkg/packetizer"
	"mkvtool/pkg/tags"

	"github.com/stretchr/testify/require"
)

func videoTrack() *packetizer.Track {
	return &packetizer.Track{
		Type:            matroska.TrackTypeVideo,
		CodecID:         "V_MPEG4/ISO/AVC",
		DefaultDuration: 40e6,
		Video:           &packetizer.VideoParams{PixelWidth: 640, PixelHeight: 480},
	}
}

func audioTrack() *packetizer.Track {
	return &packetizer.Track{
		Type:            matroska.TrackTypeAudio,
		CodecID:         "A_PCM/INT/LIT",
		DefaultDuration: 20e6,
		Audio:           &packetizer.AudioParams{SamplingFrequency: 48000, Channels: 2, BitDepth: 16},
	}
}

// periodic returns n packets spaced by step ns, every keyEvery'th is a keyframe.
func periodic(track *packetizer.Track, n int, step int64, keyEvery int) *packetizer.Generic {
	chunks := make([]packetizer.Chunk, n)
	for i := range chunks {
		chunks[i] = packetizer.Chunk{
			Data:      []byte{byte(track.Type), byte(i)},
			Timestamp: int64(i) * step,
			Keyframe:  i%keyEvery == 0,
		}
	}
	return packetizer.NewGeneric(track, packetizer.NewSliceSource(chunks...))
}

func testOptions() Options {
	return Options{
		UIDs: matroska.NewSeededUIDs(1),
		Now:  func() time.Time { return time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func testChapters() *chapters.Chapters {
	atom := func(uid uint64, start int64, name string) *chapters.Atom {
		return &chapters.Atom{
			UID:      uid,
			Start:    start,
			Enabled:  true,
			Displays: []chapters.Display{{String: name, Language: "eng"}},
		}
	}
	return &chapters.Chapters{Editions: []*chapters.Edition{{
		UID: 10,
		Atoms: []*chapters.Atom{
			atom(1, 0, "One"),
			atom(2, 300e6, "Two"),
			atom(3, 600e6, "Three"),
		},
	}}}
}

func chapterUIDs(c *chapters.Chapters) []uint64 {
	if c == nil {
		return nil
	}
	var ret []uint64
	c.Walk(func(_ *chapters.Edition, a *chapters.Atom) {
		ret = append(ret, a.UID)
	})
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func muxAll(t *testing.T, opts Options, ps ...packetizer.Packetizer) (*Result, *MemoryOutputs) {
	t.Helper()
	outs := &MemoryOutputs{}
	m, err := New(outs, opts)
	require.NoError(t, err)
	for _, p := range ps {
		_, err := m.AddTrack(p)
		require.NoError(t, err)
	}
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, outs.Files, len(res.Files))
	return res, outs
}

func openMemory(t *testing.T, m *mmio.Memory) *demux.File {
	t.Helper()
	f, err := demux.Open(mmio.NewMemoryReader(m.Bytes()))
	require.NoError(t, err)
	return f
}

func readPackets(t *testing.T, f *demux.File) []packetizer.Packet {
	t.Helper()
	pr, err := f.Packets()
	require.NoError(t, err)
	var ret []packetizer.Packet
	for {
		pkt, ok, err := pr.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return ret
		}
		ret = append(ret, pkt)
	}
}

func trackTimestamps(pkts []packetizer.Packet, track uint64) []int64 {
	var ret []int64
	for _, p := range pkts {
		if p.TrackID == track {
			ret = append(ret, p.Timestamp)
		}
	}
	return ret
}

func steps(n int, step int64) []int64 {
	ret := make([]int64, n)
	for i := range ret {
		ret[i] = int64(i) * step
	}
	return ret
}

// clusterDataStart checks that a cluster starts at pos and
// returns the position of its payload.
func clusterDataStart(t *testing.T, data []byte, pos int64) int64 {
	t.Helper()
	require.Equal(t, []byte{0x1F, 0x43, 0xB6, 0x75}, data[pos:pos+4])
	sizeLen := bits.LeadingZeros8(data[pos+4]) + 1
	return pos + 4 + int64(sizeLen)
}

func TestEndToEnd(t *testing.T) {
	opts := testOptions()
	opts.Chapters = testChapters()
	res, outs := muxAll(t, opts,
		periodic(videoTrack(), 25, 40e6, 5),
		periodic(audioTrack(), 50, 20e6, 1),
	)
	require.Len(t, res.Files, 1)
	file := res.Files[0]
	require.Equal(t, int64(0), file.Start)
	require.Equal(t, int64(1000e6), file.End)
	require.Equal(t, int64(0), file.Clusters[0].Timestamp)

	data := outs.Files[0].Bytes()
	f := openMemory(t, outs.Files[0])
	require.Equal(t, "matroska", f.DocType)
	require.Equal(t, float64(1000), f.Info.Duration)
	require.Equal(t, int64(1000000), f.Info.TimestampScale)
	require.Equal(t, file.SegmentUID, f.Info.SegmentUID)
	require.Len(t, f.Tracks, 2)
	require.Equal(t, "V_MPEG4/ISO/AVC", f.Tracks[0].CodecID)
	require.Equal(t, uint64(640), f.Tracks[0].Video.PixelWidth)
	require.Equal(t, uint64(2), f.Tracks[1].Audio.Channels)

	// Merged order is non-decreasing and covers [0, 1000) ms without gaps.
	pkts := readPackets(t, f)
	require.Len(t, pkts, 75)
	for i := 1; i < len(pkts); i++ {
		require.LessOrEqual(t, pkts[i-1].Timestamp, pkts[i].Timestamp)
	}
	require.Equal(t, steps(25, 40e6), trackTimestamps(pkts, 1))
	require.Equal(t, steps(50, 20e6), trackTimestamps(pkts, 2))

	// A cue for every video keyframe, pointing at its block.
	var cueTimes []int64
	for _, c := range f.Cues {
		require.Equal(t, uint64(1), c.Track)
		cueTimes = append(cueTimes, c.Time)

		start := clusterDataStart(t, data, f.DataStart()+c.ClusterPosition)
		require.Equal(t, byte(0xA3), data[start+c.RelativePosition])
	}
	require.Equal(t, []int64{0, 200, 400, 600, 800}, cueTimes)
	require.Len(t, file.Cues, 5)

	// The chapter tree survives the trip through the file and XML.
	require.Equal(t, []uint64{1, 2, 3}, chapterUIDs(f.Chapters))
	var xml bytes.Buffer
	require.NoError(t, f.ExtractChapters(&xml))
	parsed, err := chapters.ParseXML(&xml)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, chapterUIDs(parsed))
}

func TestOrdering(t *testing.T) {
	irregular := func(track *packetizer.Track, ts ...int64) *packetizer.Generic {
		var chunks []packetizer.Chunk
		for _, v := range ts {
			chunks = append(chunks, packetizer.Chunk{Data: []byte{1}, Timestamp: v, Duration: 1e6, Keyframe: true})
		}
		return packetizer.NewGeneric(track, packetizer.NewSliceSource(chunks...))
	}
	for _, readAhead := range []int{0, 2} {
		opts := testOptions()
		opts.ReadAhead = readAhead
		_, outs := muxAll(t, opts,
			irregular(audioTrack(), 0, 5e6, 5e6, 90e6, 91e6),
			irregular(audioTrack(), 0, 1e6, 50e6, 50e6),
			irregular(audioTrack(), 3e6, 4e6, 89e6),
		)
		pkts := readPackets(t, openMemory(t, outs.Files[0]))
		require.Len(t, pkts, 12)

		var order []uint64
		for i, p := range pkts {
			if i > 0 {
				require.LessOrEqual(t, pkts[i-1].Timestamp, p.Timestamp)
			}
			order = append(order, p.TrackID)
		}
		// Ties go to the track that was added first.
		require.Equal(t, []uint64{1, 2, 2, 3, 3, 1, 1, 2, 2, 3, 1, 1}, order)
	}
}

func TestInt16Bound(t *testing.T) {
	opts := testOptions()
	opts.MaxClusterDuration = -1
	p := packetizer.NewGeneric(audioTrack(), packetizer.NewSliceSource(
		packetizer.Chunk{Data: []byte{1}, Timestamp: 0, Keyframe: true},
		packetizer.Chunk{Data: []byte{2}, Timestamp: 32767e6, Keyframe: true},
		packetizer.Chunk{Data: []byte{3}, Timestamp: 32768e6, Keyframe: true},
		packetizer.Chunk{Data: []byte{4}, Timestamp: 40000e6, Keyframe: true},
	))
	res, outs := muxAll(t, opts, p)

	clusters := res.Files[0].Clusters
	require.Len(t, clusters, 2)
	require.Equal(t, int64(0), clusters[0].Timestamp)
	require.Equal(t, 2, clusters[0].Blocks)
	require.Equal(t, int64(32768), clusters[1].Timestamp)
	require.Equal(t, 2, clusters[1].Blocks)

	pkts := readPackets(t, openMemory(t, outs.Files[0]))
	require.Equal(t, []int64{0, 32767e6, 32768e6, 40000e6}, trackTimestamps(pkts, 1))
}

func TestClusterLimits(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		opts := testOptions()
		opts.MaxClusterDuration = 100e6
		res, _ := muxAll(t, opts, periodic(audioTrack(), 50, 20e6, 1))
		require.Len(t, res.Files[0].Clusters, 10)
	})
	t.Run("blocks", func(t *testing.T) {
		opts := testOptions()
		opts.MaxClusterBlocks = 7
		res, _ := muxAll(t, opts, periodic(audioTrack(), 50, 20e6, 1))
		require.Len(t, res.Files[0].Clusters, 8)
	})
}

func TestLacing(t *testing.T) {
	laced := func(sizes ...int) *packetizer.Generic {
		track := audioTrack()
		track.Lacing = true
		var chunks []packetizer.Chunk
		for i, size := range sizes {
			data := make([]byte, size)
			data[0] = byte(i)
			chunks = append(chunks, packetizer.Chunk{Data: data, Timestamp: -1, Keyframe: true, LaceGroup: 1})
		}
		return packetizer.NewGeneric(track, packetizer.NewSliceSource(chunks...))
	}
	cases := map[string][]int{
		"fixed": {4, 4, 4, 4, 4, 4, 4, 4, 4, 4},
		"ebml":  {4, 9, 1, 300, 2, 2},
	}
	for name, sizes := range cases {
		t.Run(name, func(t *testing.T) {
			res, outs := muxAll(t, testOptions(), laced(sizes...))
			require.Len(t, res.Files[0].Clusters, 1)
			require.Equal(t, 1, res.Files[0].Clusters[0].Blocks)
			require.Len(t, res.Files[0].Cues, 1)

			pkts := readPackets(t, openMemory(t, outs.Files[0]))
			require.Len(t, pkts, len(sizes))
			for i, p := range pkts {
				require.Equal(t, int64(i)*20e6, p.Timestamp)
				require.Len(t, p.Data, sizes[i])
				require.Equal(t, byte(i), p.Data[0])
			}
		})
	}

	t.Run("disabled", func(t *testing.T) {
		track := audioTrack()
		chunks := []packetizer.Chunk{
			{Data: []byte{1}, Timestamp: -1, Keyframe: true, LaceGroup: 1},
			{Data: []byte{2}, Timestamp: -1, Keyframe: true, LaceGroup: 1},
		}
		res, _ := muxAll(t, testOptions(), packetizer.NewGeneric(track, packetizer.NewSliceSource(chunks...)))
		require.Equal(t, 2, res.Files[0].Clusters[0].Blocks)
	})
}

func TestBlockGroup(t *testing.T) {
	subs := &packetizer.Track{Type: matroska.TrackTypeSubtitle, CodecID: "S_TEXT/UTF8"}
	video := videoTrack()
	res, outs := muxAll(t, testOptions(),
		packetizer.NewGeneric(subs, packetizer.NewSliceSource(
			packetizer.Chunk{Data: []byte("hi"), Timestamp: 0, Duration: 1500e6, Keyframe: true},
		)),
		packetizer.NewGeneric(video, packetizer.NewSliceSource(
			packetizer.Chunk{Data: []byte{1}, Timestamp: 0, Keyframe: true},
			packetizer.Chunk{Data: []byte{2}, Timestamp: 40e6, Duration: 80e6},
		)),
	)
	require.Len(t, res.Files[0].Cues, 1)

	pkts := readPackets(t, openMemory(t, outs.Files[0]))
	require.Len(t, pkts, 3)
	require.Equal(t, uint64(1), pkts[0].TrackID)
	require.Equal(t, int64(1500e6), pkts[0].Duration)
	require.True(t, pkts[0].Keyframe)

	require.True(t, pkts[1].Keyframe)
	require.Equal(t, int64(40e6), pkts[1].Duration)

	require.False(t, pkts[2].Keyframe)
	require.Equal(t, int64(80e6), pkts[2].Duration)
}

func splitVideo() *packetizer.Generic {
	return periodic(videoTrack(), 25, 40e6, 5)
}

func fileStarts(res *Result) []int64 {
	var ret []int64
	for _, f := range res.Files {
		ret = append(ret, f.Start)
	}
	return ret
}

func TestSplit(t *testing.T) {
	cases := map[string]struct {
		split    Split
		expected []int64
	}{
		"duration":   {Split{Mode: SplitDuration, Duration: 400e6}, []int64{0, 400e6, 800e6}},
		"maxFiles":   {Split{Mode: SplitDuration, Duration: 400e6, MaxFiles: 2}, []int64{0, 400e6}},
		"timestamps": {Split{Mode: SplitTimestamps, Timestamps: []int64{200e6, 600e6}}, []int64{0, 200e6, 600e6}},
		"chapters":   {Split{Mode: SplitChapters}, []int64{0, 400e6, 600e6}},
		"size":       {Split{Mode: SplitSize, Size: 1}, []int64{0, 200e6, 400e6, 600e6, 800e6}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			opts.Split = tc.split
			opts.Chapters = testChapters()
			res, outs := muxAll(t, opts, splitVideo())
			require.Equal(t, tc.expected, fileStarts(res))

			total := 0
			for _, m := range outs.Files {
				total += len(readPackets(t, openMemory(t, m)))
			}
			require.Equal(t, 25, total)
		})
	}
}

func TestSplitLinking(t *testing.T) {
	opts := testOptions()
	opts.Split = Split{Mode: SplitDuration, Duration: 400e6}
	opts.Chapters = testChapters()
	res, outs := muxAll(t, opts, splitVideo())
	require.Len(t, res.Files, 3)

	require.Nil(t, res.Files[0].PrevUID)
	require.Equal(t, res.Files[1].SegmentUID, res.Files[0].NextUID)
	require.Equal(t, res.Files[0].SegmentUID, res.Files[1].PrevUID)
	require.Equal(t, res.Files[2].SegmentUID, res.Files[1].NextUID)
	require.Nil(t, res.Files[2].NextUID)

	f := openMemory(t, outs.Files[1])
	require.Equal(t, res.Files[0].SegmentUID, f.Info.PrevUID)
	require.Equal(t, "memory-001", f.Info.PrevFilename)
	require.Equal(t, res.Files[2].SegmentUID, f.Info.NextUID)
	require.Equal(t, "memory-003", f.Info.NextFilename)
	require.Equal(t, float64(400), f.Info.Duration)

	// Timestamps stay absolute.
	pkts := readPackets(t, f)
	require.Equal(t, int64(400e6), pkts[0].Timestamp)

	expectedChapters := [][]uint64{{1, 2}, {2, 3}, {3}}
	for i, m := range outs.Files {
		require.Equal(t, expectedChapters[i], chapterUIDs(openMemory(t, m).Chapters))
	}
}

func TestSplitNoLinking(t *testing.T) {
	opts := testOptions()
	opts.Split = Split{Mode: SplitDuration, Duration: 400e6, NoLinking: true}
	opts.Chapters = testChapters()
	res, outs := muxAll(t, opts, splitVideo())
	require.Len(t, res.Files, 3)
	require.Nil(t, res.Files[0].NextUID)

	f := openMemory(t, outs.Files[1])
	require.Nil(t, f.Info.PrevUID)
	require.Empty(t, f.Info.NextFilename)

	pkts := readPackets(t, f)
	require.Equal(t, steps(10, 40e6), trackTimestamps(pkts, 1))

	var starts []int64
	for _, a := range f.Chapters.Editions[0].Atoms {
		starts = append(starts, a.Start)
	}
	require.Equal(t, []int64{0, 200e6}, starts)
}

func TestWebM(t *testing.T) {
	opts := testOptions()
	opts.Profile = matroska.ProfileWebM
	opts.Attachments = []Attachment{{Name: "a.txt", MimeType: "text/plain", Data: []byte("a")}}

	m, err := New(&MemoryOutputs{}, opts)
	require.NoError(t, err)
	aacTrack := audioTrack()
	aacTrack.CodecID = "A_AAC"
	_, err = m.AddTrack(packetizer.NewGeneric(aacTrack, packetizer.NewSliceSource()))
	require.ErrorIs(t, err, matroska.ErrCodecNotAllowed)

	video := videoTrack()
	video.CodecID = "V_VP9"
	res, outs := muxAll(t, opts, periodic(video, 5, 40e6, 1))
	require.Len(t, res.Files, 1)

	f := openMemory(t, outs.Files[0])
	require.Equal(t, "webm", f.DocType)
	require.Empty(t, f.Attachments)
}

func TestAttachmentsAndTags(t *testing.T) {
	opts := testOptions()
	opts.Chapters = testChapters()
	opts.Attachments = []Attachment{{Name: "cover.jpg", MimeType: "image/jpeg", Data: []byte{0xFF, 0xD8}}}
	opts.Tags = &tags.Tags{Tags: []*tags.Tag{
		{Targets: tags.Targets{TypeValue: tags.TargetTrack, ChapterUIDs: []uint64{2}}, Simples: []tags.Simple{tags.NewSimple("TITLE", "Two")}},
		{Targets: tags.Targets{TypeValue: tags.TargetAlbum}, Simples: []tags.Simple{tags.NewSimple("TITLE", "Album")}},
	}}
	opts.Split = Split{Mode: SplitDuration, Duration: 400e6}
	_, outs := muxAll(t, opts, splitVideo())

	first := openMemory(t, outs.Files[0])
	require.Len(t, first.Attachments, 1)
	require.NotZero(t, first.Attachments[0].UID)
	var data bytes.Buffer
	require.NoError(t, first.ExtractAttachment(first.Attachments[0].UID, &data))
	require.Equal(t, []byte{0xFF, 0xD8}, data.Bytes())
	require.Len(t, first.Tags.Tags, 2)

	last := openMemory(t, outs.Files[2])
	require.Empty(t, last.Attachments)
	require.Len(t, last.Tags.Tags, 1)
	title, _ := last.Tags.Tags[0].Find("TITLE")
	require.Equal(t, "Album", title)
}

func TestInvalidTagTarget(t *testing.T) {
	opts := testOptions()
	opts.Tags = &tags.Tags{Tags: []*tags.Tag{
		{Targets: tags.Targets{ChapterUIDs: []uint64{99}}, Simples: []tags.Simple{tags.NewSimple("A", "b")}},
	}}
	m, err := New(&MemoryOutputs{}, opts)
	require.NoError(t, err)
	_, err = m.AddTrack(splitVideo())
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.ErrorIs(t, err, matroska.ErrDuplicateUID)
}

func TestDuplicateChapterUID(t *testing.T) {
	t.Run("atom", func(t *testing.T) {
		opts := testOptions()
		c := testChapters()
		c.Editions[0].Atoms[2].UID = 2
		opts.Chapters = c
		_, err := New(&MemoryOutputs{}, opts)
		require.ErrorIs(t, err, matroska.ErrDuplicateUID)
	})
	t.Run("edition", func(t *testing.T) {
		opts := testOptions()
		c := testChapters()
		c.Editions = append(c.Editions, &chapters.Edition{
			UID:   10,
			Atoms: []*chapters.Atom{{UID: 4, Enabled: true}},
		})
		opts.Chapters = c
		_, err := New(&MemoryOutputs{}, opts)
		require.ErrorIs(t, err, matroska.ErrDuplicateUID)
	})
	t.Run("generated", func(t *testing.T) {
		opts := testOptions()
		c := testChapters()
		c.Editions[0].UID = 0
		c.Editions[0].Atoms[0].UID = 0
		opts.Chapters = c
		_, err := New(&MemoryOutputs{}, opts)
		require.NoError(t, err)
	})
}

func TestDuplicateTrackUID(t *testing.T) {
	m, err := New(&MemoryOutputs{}, testOptions())
	require.NoError(t, err)
	a, b := audioTrack(), audioTrack()
	a.UID, b.UID = 5, 5
	_, err = m.AddTrack(packetizer.NewGeneric(a, packetizer.NewSliceSource()))
	require.NoError(t, err)
	_, err = m.AddTrack(packetizer.NewGeneric(b, packetizer.NewSliceSource()))
	require.ErrorIs(t, err, matroska.ErrDuplicateUID)
}

func TestNoTracks(t *testing.T) {
	m, err := New(&MemoryOutputs{}, testOptions())
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.ErrorIs(t, err, ErrNoTracks)
}

func TestInvalidOptions(t *testing.T) {
	cases := map[string]Split{
		"size":       {Mode: SplitSize},
		"duration":   {Mode: SplitDuration, Duration: -1},
		"timestamps": {Mode: SplitTimestamps, Timestamps: []int64{2, 1}},
		"maxFiles":   {Mode: SplitNone, MaxFiles: -1},
	}
	for name, split := range cases {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			opts.Split = split
			_, err := New(&MemoryOutputs{}, opts)
			require.ErrorIs(t, err, ErrInvalidOption)
		})
	}
}

func TestCanceled(t *testing.T) {
	outs := &MemoryOutputs{}
	m, err := New(outs, testOptions())
	require.NoError(t, err)
	_, err = m.AddTrack(splitVideo())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The segment size was never patched.
	header, err := ebml.Encode(matroska.ProfileMatroska.Header())
	require.NoError(t, err)
	data := outs.Files[0].Bytes()
	sizePos := len(header) + 4
	require.Equal(t, []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, data[sizePos:sizePos+8])
}

func TestTimestampOrder(t *testing.T) {
	outs := &MemoryOutputs{}
	m, err := New(outs, testOptions())
	require.NoError(t, err)
	_, err = m.AddTrack(&unorderedPacketizer{track: audioTrack()})
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.ErrorIs(t, err, packetizer.ErrTimestampOrder)
}

type unorderedPacketizer struct {
	track *packetizer.Track
	n     int
}

func (p *unorderedPacketizer) Track() *packetizer.Track { return p.track }

func (p *unorderedPacketizer) Next(context.Context) (packetizer.Packet, bool, error) {
	p.n++
	return packetizer.Packet{Timestamp: int64(10-p.n) * 1e6, Keyframe: true}, true, nil
}

func (p *unorderedPacketizer) CanConnectTo(other packetizer.Packetizer) packetizer.Connection {
	return packetizer.CanConnect(p.track, other.Track())
}

func TestNullOutputs(t *testing.T) {
	m, err := New(NullOutputs{}, testOptions())
	require.NoError(t, err)
	_, err = m.AddTrack(periodic(audioTrack(), 50, 20e6, 1))
	require.NoError(t, err)
	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "null-001", res.Files[0].Name)
	require.Positive(t, res.Files[0].Size)
}

func TestFileOutputsName(t *testing.T) {
	require.Equal(t, "out.mkv", FileOutputs{Path: "out.mkv"}.Name(3))
	require.Equal(t, "dir/out-002.mkv", FileOutputs{Path: "dir/out.mkv", Split: true}.Name(1))
}
