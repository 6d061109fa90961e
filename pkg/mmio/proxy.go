package mmio

// Proxy passes all calls to an inner stream. The inner stream is
// closed together with the proxy only when the proxy owns it.
type Proxy struct {
	inner Stream
	owns  bool
}

// NewProxy returns a proxy for inner.
func NewProxy(inner Stream, owns bool) *Proxy {
	return &Proxy{inner: inner, owns: owns}
}

// Inner returns the wrapped stream.
func (p *Proxy) Inner() Stream {
	return p.inner
}

// Read implements io.Reader.
func (p *Proxy) Read(b []byte) (int, error) {
	return p.inner.Read(b)
}

// Write implements io.Writer.
func (p *Proxy) Write(b []byte) (int, error) {
	return p.inner.Write(b)
}

// Seek implements io.Seeker.
func (p *Proxy) Seek(offset int64, whence int) (int64, error) {
	return p.inner.Seek(offset, whence)
}

// Size returns the size of the inner stream.
func (p *Proxy) Size() (int64, error) {
	return p.inner.Size()
}

// Close closes the inner stream if owned.
func (p *Proxy) Close() error {
	if p.owns {
		return p.inner.Close()
	}
	return nil
}
