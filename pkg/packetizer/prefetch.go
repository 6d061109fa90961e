package packetizer

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Prefetcher reads ahead on every packetizer in its own goroutine.
type Prefetcher struct {
	cancel context.CancelFunc
	group  *errgroup.Group
	queues []*queue
}

type queue struct {
	src Packetizer
	ch  chan Packet

	// Set before ch is closed.
	err error
}

// Prefetch starts reading up to depth packets ahead on each
// packetizer. The packetizers returned by Packetizers deliver the
// same packets in the same order. Close must be called.
func Prefetch(ctx context.Context, ps []Packetizer, depth int) *Prefetcher {
	if depth < 1 {
		depth = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)

	p := &Prefetcher{cancel: cancel, group: group}
	for _, src := range ps {
		q := &queue{src: src, ch: make(chan Packet, depth)}
		p.queues = append(p.queues, q)
		group.Go(func() error {
			defer close(q.ch)
			for {
				pkt, ok, err := q.src.Next(ctx)
				if err != nil {
					q.err = err
					return err
				}
				if !ok {
					return nil
				}
				select {
				case q.ch <- pkt:
				case <-ctx.Done():
					q.err = ctx.Err()
					return q.err
				}
			}
		})
	}
	return p
}

// Packetizers returns the prefetching packetizers in input order.
func (p *Prefetcher) Packetizers() []Packetizer {
	ret := make([]Packetizer, len(p.queues))
	for i, q := range p.queues {
		ret[i] = q
	}
	return ret
}

// Close stops the workers and returns the first read error.
func (p *Prefetcher) Close() error {
	p.cancel()
	err := p.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (q *queue) Track() *Track {
	return q.src.Track()
}

// Next blocks until the worker delivered a packet or ended.
func (q *queue) Next(ctx context.Context) (Packet, bool, error) {
	select {
	case pkt, ok := <-q.ch:
		if !ok {
			return Packet{}, false, q.err
		}
		return pkt, true, nil
	case <-ctx.Done():
		return Packet{}, false, ctx.Err()
	}
}

func (q *queue) CanConnectTo(other Packetizer) Connection {
	return q.src.CanConnectTo(other)
}
