package demux

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mkvtool/pkg/packetizer/aac"
)

// Extraction errors.
var (
	ErrNoChapters   = errors.New("file has no chapters")
	ErrNoTags       = errors.New("file has no tags")
	ErrNoAttachment = errors.New("no such attachment")
)

// ExtractTrack writes the raw frames of a track to w. AAC
// frames get ADTS headers so the output can be played.
func (f *File) ExtractTrack(ctx context.Context, number uint64, w io.Writer) (int, error) {
	ps, err := f.Packetizers(number)
	if err != nil {
		return 0, err
	}
	p := ps[0]

	frame := func(data []byte) ([]byte, error) { return data, nil }
	if p.Track().CodecID == aac.CodecID {
		var config aac.Config
		if err := config.Decode(p.Track().CodecPrivate); err != nil {
			return 0, fmt.Errorf("track %d: %w", number, err)
		}
		frame = func(data []byte) ([]byte, error) {
			return aac.MarshalADTS(config, data)
		}
	}

	count := 0
	for {
		pkt, ok, err := p.Next(ctx)
		if err != nil {
			return count, err
		}
		if !ok {
			return count, nil
		}
		data, err := frame(pkt.Data)
		if err != nil {
			return count, fmt.Errorf("frame at %d: %w", pkt.Timestamp, err)
		}
		if _, err := w.Write(data); err != nil {
			return count, err
		}
		count++
	}
}

// ExtractChapters writes the chapters as XML.
func (f *File) ExtractChapters(w io.Writer) error {
	if f.Chapters.Empty() {
		return ErrNoChapters
	}
	return f.Chapters.WriteXML(w)
}

// ExtractTags writes the tags as XML.
func (f *File) ExtractTags(w io.Writer) error {
	if f.Tags.Empty() {
		return ErrNoTags
	}
	return f.Tags.WriteXML(w)
}

// Attachment returns the attachment with the given uid.
func (f *File) Attachment(uid uint64) (*Attachment, error) {
	for i := range f.Attachments {
		if f.Attachments[i].UID == uid {
			return &f.Attachments[i], nil
		}
	}
	return nil, fmt.Errorf("%w: uid %d", ErrNoAttachment, uid)
}

// ExtractAttachment writes the data of an attachment to w.
func (f *File) ExtractAttachment(uid uint64, w io.Writer) error {
	a, err := f.Attachment(uid)
	if err != nil {
		return err
	}
	_, err = w.Write(a.Data)
	return err
}
