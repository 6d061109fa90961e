package packetizer

import (
	"context"
	"errors"
	"testing"

	"mkvtool/pkg/matroska"

	"github.com/stretchr/testify/require"
)

func audioTrack() *Track {
	return &Track{
		Type:            matroska.TrackTypeAudio,
		CodecID:         "A_PCM/INT/LIT",
		DefaultDuration: 20e6,
		Audio:           &AudioParams{SamplingFrequency: 48000, Channels: 2, BitDepth: 16},
	}
}

func newAudio(n int) *Generic {
	var chunks []Chunk
	for i := 0; i < n; i++ {
		chunks = append(chunks, Chunk{Data: []byte{byte(i)}, Timestamp: -1, Keyframe: true})
	}
	return NewGeneric(audioTrack(), NewSliceSource(chunks...))
}

func readAll(t *testing.T, p Packetizer) []Packet {
	t.Helper()
	var ret []Packet
	for {
		pkt, ok, err := p.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return ret
		}
		ret = append(ret, pkt)
	}
}

func timestamps(pkts []Packet) []int64 {
	var ret []int64
	for _, p := range pkts {
		ret = append(ret, p.Timestamp)
	}
	return ret
}

func TestGeneric(t *testing.T) {
	t.Run("synthesized", func(t *testing.T) {
		p := newAudio(3)
		p.Track().Number = 4
		pkts := readAll(t, p)
		require.Equal(t, []int64{0, 20e6, 40e6}, timestamps(pkts))
		require.Equal(t, uint64(4), pkts[2].TrackID)
		require.Equal(t, int64(20e6), pkts[2].Duration)

		// End of track is sticky.
		_, ok, err := p.Next(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
	})
	t.Run("explicit", func(t *testing.T) {
		p := NewGeneric(audioTrack(), NewSliceSource(
			Chunk{Timestamp: 100, Duration: 5},
			Chunk{Timestamp: -1},
			Chunk{Timestamp: 200},
		))
		require.Equal(t, []int64{100, 105, 200}, timestamps(readAll(t, p)))
	})
	t.Run("order", func(t *testing.T) {
		p := NewGeneric(audioTrack(), NewSliceSource(
			Chunk{Timestamp: 100},
			Chunk{Timestamp: 50},
		))
		_, _, err := p.Next(context.Background())
		require.NoError(t, err)
		_, _, err = p.Next(context.Background())
		require.ErrorIs(t, err, ErrTimestampOrder)
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _, err := newAudio(1).Next(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCanConnect(t *testing.T) {
	video := func() *Track {
		return &Track{
			Type:    matroska.TrackTypeVideo,
			CodecID: "V_MPEG4/ISO/AVC",
			Video:   &VideoParams{PixelWidth: 640, PixelHeight: 480},
		}
	}
	cases := map[string]struct {
		modify func(*Track)
		reason string
	}{
		"same":     {func(*Track) {}, ""},
		"type":     {func(t *Track) { t.Type = matroska.TrackTypeSubtitle }, "track types differ"},
		"codec":    {func(t *Track) { t.CodecID = "V_VP9" }, "codecs differ"},
		"size":     {func(t *Track) { t.Video.PixelWidth = 1280 }, "dimensions differ"},
		"private":  {func(t *Track) { t.CodecPrivate = []byte{1} }, "codec private"},
		"noVideo":  {func(t *Track) { t.Video = nil }, "video parameters"},
		"addAudio": {func(t *Track) { t.Audio = &AudioParams{} }, "audio parameters"},
		"display":  {func(t *Track) { t.Video.DisplayWidth = 10 }, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := video()
			tc.modify(b)
			c := CanConnect(video(), b)
			require.Equal(t, tc.reason == "", c.OK)
			require.Contains(t, c.Reason, tc.reason)
		})
	}

	a, b := audioTrack(), audioTrack()
	b.Audio.Channels = 6
	require.Contains(t, CanConnect(a, b).Reason, "channel counts differ")
}

func TestAppend(t *testing.T) {
	p, err := Append(newAudio(2), newAudio(3))
	require.NoError(t, err)
	require.Equal(t,
		[]int64{0, 20e6, 40e6, 60e6, 80e6},
		timestamps(readAll(t, p)))

	single := newAudio(1)
	p, err = Append(single)
	require.NoError(t, err)
	require.Same(t, Packetizer(single), p)

	other := audioTrack()
	other.Audio.SamplingFrequency = 44100
	_, err = Append(newAudio(1), newAudio(1), NewGeneric(other, NewSliceSource()))
	require.ErrorIs(t, err, ErrIncompatibleAppend)
	require.Contains(t, err.Error(), "part 3")
}

func TestAppendGap(t *testing.T) {
	first := NewGeneric(audioTrack(), NewSliceSource(
		Chunk{Timestamp: 0, Duration: 10},
		Chunk{Timestamp: 100, Duration: 10},
	))
	second := NewGeneric(audioTrack(), NewSliceSource(
		Chunk{Timestamp: 5, Duration: 10},
	))
	p, err := Append(first, second)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 100, 115}, timestamps(readAll(t, p)))
}

func TestPrefetch(t *testing.T) {
	ps := []Packetizer{newAudio(50), newAudio(7)}
	pf := Prefetch(context.Background(), ps, 2)

	prefetched := pf.Packetizers()
	require.Len(t, prefetched, 2)
	require.Same(t, ps[0].Track(), prefetched[0].Track())

	// Read interleaved so both workers block on full queues.
	var a, b []Packet
	for i := 0; i < 60; i++ {
		for j, dst := range []*[]Packet{&a, &b} {
			pkt, ok, err := prefetched[j].Next(context.Background())
			require.NoError(t, err)
			if ok {
				*dst = append(*dst, pkt)
			}
		}
	}
	require.Len(t, a, 50)
	require.Len(t, b, 7)
	require.Equal(t, int64(49*20e6), a[49].Timestamp)
	require.NoError(t, pf.Close())
}

type failingSource struct{}

var errRead = errors.New("read failed")

func (failingSource) ReadChunk(context.Context) (Chunk, error) {
	return Chunk{}, errRead
}

func TestPrefetchError(t *testing.T) {
	pf := Prefetch(context.Background(), []Packetizer{
		NewGeneric(audioTrack(), failingSource{}),
	}, 4)
	p := pf.Packetizers()[0]

	_, ok, err := p.Next(context.Background())
	require.False(t, ok)
	require.ErrorIs(t, err, errRead)

	// The error is sticky.
	_, _, err = p.Next(context.Background())
	require.ErrorIs(t, err, errRead)
	require.ErrorIs(t, pf.Close(), errRead)
}

func TestPrefetchClose(t *testing.T) {
	pf := Prefetch(context.Background(), []Packetizer{newAudio(1000)}, 1)
	require.NoError(t, pf.Close())
}

func TestTrackClone(t *testing.T) {
	a := audioTrack()
	a.CodecPrivate = []byte{1}
	c := a.Clone()
	c.Audio.Channels = 1
	c.CodecPrivate[0] = 2
	require.Equal(t, uint64(2), a.Audio.Channels)
	require.Equal(t, byte(1), a.CodecPrivate[0])
}
