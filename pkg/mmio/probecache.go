package mmio

import (
	"fmt"
	"io"
)

// ProbeCache is a read-only view of the first bytes of a stream,
// used to detect file types without disturbing the inner stream
// more than necessary. The view ends at min(requested, size).
type ProbeCache struct {
	*Proxy

	cache   []byte
	horizon int64
	pos     int64
}

// NewProbeCache returns a cache of at most requested bytes of inner.
func NewProbeCache(inner Stream, requested int64, owns bool) (*ProbeCache, error) {
	size, err := inner.Size()
	if err != nil {
		return nil, err
	}
	horizon := requested
	if size < horizon {
		horizon = size
	}
	return &ProbeCache{
		Proxy:   NewProxy(inner, owns),
		horizon: horizon,
	}, nil
}

// Horizon returns the number of bytes reachable through the cache.
func (c *ProbeCache) Horizon() int64 {
	return c.horizon
}

// Read implements io.Reader. Reads never go beyond the horizon.
func (c *ProbeCache) Read(p []byte) (int, error) {
	if c.pos >= c.horizon {
		return 0, io.EOF
	}
	end := c.pos + int64(len(p))
	if end > c.horizon {
		end = c.horizon
	}
	if end > int64(len(c.cache)) {
		if err := c.fill(end); err != nil {
			return 0, err
		}
	}
	if c.pos >= int64(len(c.cache)) {
		return 0, io.EOF
	}
	if end > int64(len(c.cache)) {
		end = int64(len(c.cache))
	}
	n := copy(p, c.cache[c.pos:end])
	c.pos += int64(n)
	return n, nil
}

func (c *ProbeCache) fill(end int64) error {
	have := int64(len(c.cache))
	if _, err := c.inner.Seek(have, io.SeekStart); err != nil {
		return err
	}
	buf := make([]byte, end-have)
	n, err := io.ReadFull(c.inner, buf)
	c.cache = append(c.cache, buf[:n]...)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}
	return nil
}

// Write always fails.
func (c *ProbeCache) Write([]byte) (int, error) {
	return 0, fmt.Errorf("%w: probe cache is read-only", ErrWrongAccess)
}

// Seek implements io.Seeker. Positions at or beyond the horizon
// are rejected. Seek(0, io.SeekCurrent) always reports the position.
func (c *ProbeCache) Seek(offset int64, whence int) (int64, error) {
	if offset == 0 && whence == io.SeekCurrent {
		return c.pos, nil
	}
	t, err := target(c.pos, c.horizon, offset, whence)
	if err != nil {
		return 0, err
	}
	if t >= c.horizon {
		return 0, fmt.Errorf("%w: position %d beyond cache horizon %d", ErrSeek, t, c.horizon)
	}
	c.pos = t
	return t, nil
}

// Size returns the horizon.
func (c *ProbeCache) Size() (int64, error) {
	return c.horizon, nil
}
