package packetizer

import (
	"context"
	"fmt"
)

type appended struct {
	parts []Packetizer
	cur   int

	offset  int64
	lastEnd int64
}

// Append returns a packetizer that plays first and then every
// packetizer of rest. Each part is shifted to start where the
// previous part ended. Every part must be able to connect to the
// one before it.
func Append(first Packetizer, rest ...Packetizer) (Packetizer, error) {
	prev := first
	for i, p := range rest {
		if c := prev.CanConnectTo(p); !c.OK {
			return nil, fmt.Errorf("%w: part %d: %s", ErrIncompatibleAppend, i+2, c.Reason)
		}
		prev = p
	}
	if len(rest) == 0 {
		return first, nil
	}
	return &appended{parts: append([]Packetizer{first}, rest...)}, nil
}

func (a *appended) Track() *Track {
	return a.parts[0].Track()
}

func (a *appended) Next(ctx context.Context) (Packet, bool, error) {
	for a.cur < len(a.parts) {
		pkt, ok, err := a.parts[a.cur].Next(ctx)
		if err != nil {
			return Packet{}, false, err
		}
		if !ok {
			a.offset = a.lastEnd
			a.cur++
			continue
		}
		pkt.Timestamp += a.offset
		pkt.TrackID = a.Track().Number
		if end := pkt.End(); end > a.lastEnd {
			a.lastEnd = end
		}
		return pkt, true, nil
	}
	return Packet{}, false, nil
}

func (a *appended) CanConnectTo(other Packetizer) Connection {
	return CanConnect(a.Track(), other.Track())
}
