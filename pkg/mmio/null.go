package mmio

// Null is a sink that only tracks a virtual position.
// Reads return zeros and writes are discarded.
type Null struct {
	pos  int64
	size int64
}

// Read fills p with zeros.
func (n *Null) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	n.advance(int64(len(p)))
	return len(p), nil
}

// Write discards p.
func (n *Null) Write(p []byte) (int, error) {
	n.advance(int64(len(p)))
	return len(p), nil
}

func (n *Null) advance(d int64) {
	n.pos += d
	if n.pos > n.size {
		n.size = n.pos
	}
}

// Seek implements io.Seeker.
func (n *Null) Seek(offset int64, whence int) (int64, error) {
	t, err := target(n.pos, n.size, offset, whence)
	if err != nil {
		return 0, err
	}
	n.pos = t
	if t > n.size {
		n.size = t
	}
	return t, nil
}

// Size returns the furthest position reached.
func (n *Null) Size() (int64, error) {
	return n.size, nil
}

// Close is a no-op.
func (n *Null) Close() error {
	return nil
}
