package mmio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testData(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func checkWrite(t *testing.T, w io.Writer, data []byte) {
	t.Helper()
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

func checkSeek(t *testing.T, s io.Seeker, offset int64, whence int, expected int64) {
	t.Helper()
	pos, err := s.Seek(offset, whence)
	require.NoError(t, err)
	require.Equal(t, expected, pos)
}

func TestMemory(t *testing.T) {
	m := NewMemory(nil)
	checkWrite(t, m, []byte{1, 2, 3})
	checkSeek(t, m, 5, io.SeekStart, 5)
	checkWrite(t, m, []byte{6})
	require.Equal(t, []byte{1, 2, 3, 0, 0, 6}, m.Bytes())

	checkSeek(t, m, -2, io.SeekEnd, 4)
	buf := make([]byte, 4)
	n, err := m.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte{0, 6}, buf[:n])

	_, err = m.Read(buf)
	require.ErrorIs(t, err, io.EOF)

	_, err = m.Seek(-1, io.SeekStart)
	require.ErrorIs(t, err, ErrSeek)

	size, err := m.Size()
	require.NoError(t, err)
	require.Equal(t, int64(6), size)
}

func TestMemoryReaderIsReadOnly(t *testing.T) {
	m := NewMemoryReader([]byte{1})
	_, err := m.Write([]byte{2})
	require.ErrorIs(t, err, ErrWrongAccess)
}

func TestNull(t *testing.T) {
	var n Null
	checkWrite(t, &n, make([]byte, 100))
	checkSeek(t, &n, 10, io.SeekStart, 10)

	buf := []byte{1, 2, 3}
	c, err := n.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, c)
	require.Equal(t, []byte{0, 0, 0}, buf)

	pos, err := Tell(&n)
	require.NoError(t, err)
	require.Equal(t, int64(13), pos)

	checkSeek(t, &n, 0, io.SeekEnd, 100)
	size, err := n.Size()
	require.NoError(t, err)
	require.Equal(t, int64(100), size)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bin")

	f, err := OpenFile(path, Create)
	require.NoError(t, err)
	checkWrite(t, f, []byte{1, 2, 3, 4})
	size, err := f.Size()
	require.NoError(t, err)
	require.Equal(t, int64(4), size)
	require.NoError(t, f.Close())

	f, err = OpenFile(path, ReadOnly)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte{5})
	require.ErrorIs(t, err, ErrWrongAccess)

	_, err = f.Seek(-1, io.SeekStart)
	require.ErrorIs(t, err, ErrSeek)

	checkSeek(t, f, 2, io.SeekStart, 2)
	buf := make([]byte, 2)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{3, 4}, buf)

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing"), ReadOnly)
	require.ErrorIs(t, err, os.ErrNotExist)
}

type closeCounter struct {
	*Memory
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestProxyOwnership(t *testing.T) {
	inner := &closeCounter{Memory: NewMemory(nil)}
	require.NoError(t, NewProxy(inner, false).Close())
	require.Equal(t, 0, inner.closed)

	p := NewProxy(inner, true)
	checkWrite(t, p, []byte{1, 2})
	require.Equal(t, []byte{1, 2}, inner.Bytes())
	require.NoError(t, p.Close())
	require.Equal(t, 1, inner.closed)
}

type countingStream struct {
	*Memory
	reads int
	seeks int
}

func (c *countingStream) Read(p []byte) (int, error) {
	c.reads++
	return c.Memory.Read(p)
}

func (c *countingStream) Seek(offset int64, whence int) (int64, error) {
	c.seeks++
	return c.Memory.Seek(offset, whence)
}

func TestReadBuffer(t *testing.T) {
	data := testData(100)
	inner := &countingStream{Memory: NewMemoryReader(data)}
	b := NewReadBuffer(inner, 16, false)

	buf := make([]byte, 4)
	_, err := io.ReadFull(b, buf)
	require.NoError(t, err)
	require.Equal(t, data[:4], buf)
	require.Equal(t, 1, inner.reads)

	t.Run("inWindow", func(t *testing.T) {
		reads, seeks := inner.reads, inner.seeks
		checkSeek(t, b, 12, io.SeekStart, 12)
		checkSeek(t, b, -10, io.SeekCurrent, 2)
		_, err := io.ReadFull(b, buf)
		require.NoError(t, err)
		require.Equal(t, data[2:6], buf)
		require.Equal(t, reads, inner.reads)
		require.Equal(t, seeks, inner.seeks)
	})

	t.Run("outOfWindow", func(t *testing.T) {
		reads := inner.reads
		seeks := inner.seeks
		checkSeek(t, b, 50, io.SeekStart, 50)
		require.Equal(t, seeks, inner.seeks, "seek must be lazy")

		_, err := io.ReadFull(b, buf)
		require.NoError(t, err)
		require.Equal(t, data[50:54], buf)
		require.Equal(t, reads+1, inner.reads)
		require.Equal(t, seeks+1, inner.seeks)
	})

	t.Run("refillBound", func(t *testing.T) {
		checkSeek(t, b, 0, io.SeekStart, 0)
		big := make([]byte, 40)
		_, err := io.ReadFull(b, big)
		require.NoError(t, err)
		require.Equal(t, data[:40], big)
		require.LessOrEqual(t, b.fill, 16)
	})

	t.Run("end", func(t *testing.T) {
		checkSeek(t, b, -3, io.SeekEnd, 97)
		rest, err := io.ReadAll(b)
		require.NoError(t, err)
		require.Equal(t, data[97:], rest)
	})

	t.Run("write", func(t *testing.T) {
		_, err := b.Write([]byte{1})
		require.ErrorIs(t, err, ErrWrongAccess)
	})
}

func TestProbeCache(t *testing.T) {
	data := testData(100)

	t.Run("horizon", func(t *testing.T) {
		c, err := NewProbeCache(NewMemoryReader(data), 32, false)
		require.NoError(t, err)
		require.Equal(t, int64(32), c.Horizon())

		got, err := io.ReadAll(c)
		require.NoError(t, err)
		require.Equal(t, data[:32], got)

		// At the horizon.
		pos, err := Tell(c)
		require.NoError(t, err)
		require.Equal(t, int64(32), pos)
		_, err = c.Seek(32, io.SeekStart)
		require.ErrorIs(t, err, ErrSeek)
		_, err = c.Seek(0, io.SeekEnd)
		require.ErrorIs(t, err, ErrSeek)

		checkSeek(t, c, 31, io.SeekStart, 31)
		for _, pos := range []int64{32, 33, 1000} {
			_, err = c.Seek(pos, io.SeekStart)
			require.ErrorIs(t, err, ErrSeek)
		}
		_, err = c.Write([]byte{1})
		require.ErrorIs(t, err, ErrWrongAccess)
	})

	t.Run("shortStream", func(t *testing.T) {
		c, err := NewProbeCache(NewMemoryReader(data[:10]), 32, false)
		require.NoError(t, err)
		require.Equal(t, int64(10), c.Horizon())

		buf := make([]byte, 20)
		n, err := c.Read(buf)
		require.NoError(t, err)
		require.Equal(t, 10, n)
		require.Equal(t, data[:10], buf[:n])
	})

	t.Run("lazyFill", func(t *testing.T) {
		inner := &countingStream{Memory: NewMemoryReader(data)}
		c, err := NewProbeCache(inner, 64, false)
		require.NoError(t, err)

		buf := make([]byte, 8)
		_, err = io.ReadFull(c, buf)
		require.NoError(t, err)
		require.Len(t, c.cache, 8)

		checkSeek(t, c, 0, io.SeekStart, 0)
		reads := inner.reads
		_, err = io.ReadFull(c, buf)
		require.NoError(t, err)
		require.Equal(t, reads, inner.reads)
		require.Equal(t, data[:8], buf)
	})
}

func TestSavePos(t *testing.T) {
	m := NewMemoryReader(testData(10))
	checkSeek(t, m, 3, io.SeekStart, 3)

	errTest := errors.New("test")
	err := SavePos(m, func() error {
		checkSeek(t, m, 8, io.SeekStart, 8)
		return errTest
	})
	require.ErrorIs(t, err, errTest)
	pos, _ := Tell(m)
	require.Equal(t, int64(3), pos)

	require.Panics(t, func() {
		SavePos(m, func() error { //nolint:errcheck
			checkSeek(t, m, 9, io.SeekStart, 9)
			panic("boom")
		})
	})
	pos, _ = Tell(m)
	require.Equal(t, int64(3), pos)
}

func TestSkipID3v2Tag(t *testing.T) {
	header := func(flags byte, size [4]byte) []byte {
		return append([]byte{'I', 'D', '3', 4, 0, flags}, size[:]...)
	}
	cases := map[string]struct {
		input    []byte
		expected int64
	}{
		"tag": {
			append(header(0, [4]byte{0, 0, 0x01, 0x7f}), make([]byte, 300)...),
			10 + 255,
		},
		"footer": {
			append(header(0x10, [4]byte{0, 0, 0, 5}), make([]byte, 40)...),
			10 + 5 + 10,
		},
		"otherFlags": {
			append(header(0xe0, [4]byte{0, 0, 0, 5}), make([]byte, 40)...),
			10 + 5,
		},
		"noMagic": {
			[]byte("RIFF\x00\x00\x00\x00WAVEfmt "),
			0,
		},
		"invalidSize": {
			header(0, [4]byte{0, 0, 0x80, 0}),
			0,
		},
		"short": {
			[]byte("ID3"),
			0,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			m := NewMemoryReader(tc.input)
			n, err := SkipID3v2Tag(m)
			require.NoError(t, err)
			require.Equal(t, tc.expected, n)

			pos, err := Tell(m)
			require.NoError(t, err)
			require.Equal(t, tc.expected, pos)
		})
	}
}

func TestReadLines(t *testing.T) {
	utf16 := []byte{0xff, 0xfe, 'a', 0, '\r', 0, '\n', 0, 0xe9, 0, '\n', 0}
	cases := map[string]struct {
		input    []byte
		expected []string
	}{
		"plain":   {[]byte("a\r\nb\n"), []string{"a", "b"}},
		"utf8BOM": {append([]byte{0xef, 0xbb, 0xbf}, "x=1\n"...), []string{"x=1"}},
		"utf16le": {utf16, []string{"a", "é"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			lines, err := ReadLines(bytes.NewReader(tc.input))
			require.NoError(t, err)
			require.Equal(t, tc.expected, lines)
		})
	}
}
