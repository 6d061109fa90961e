package matroska

import (
	"errors"
	"fmt"
	"strings"

	"mkvtool/pkg/ebml"
)

// Profile selects the output document type and the element
// and codec restrictions that come with it.
type Profile int

// Profiles.
const (
	ProfileMatroska Profile = iota
	ProfileWebM
)

// Errors.
var (
	ErrUnknownProfile   = errors.New("unknown profile")
	ErrCodecNotAllowed  = errors.New("codec not allowed")
	ErrElementForbidden = errors.New("element not allowed")
)

// ParseProfile parses "matroska" or "webm".
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(s) {
	case "", "matroska", "mkv":
		return ProfileMatroska, nil
	case "webm":
		return ProfileWebM, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

func (p Profile) String() string {
	if p == ProfileWebM {
		return "webm"
	}
	return "matroska"
}

// DocType returns the EBML document type.
func (p Profile) DocType() string {
	return p.String()
}

// Header returns the EBML header for the profile.
func (p Profile) Header() *ebml.Element {
	return ebml.NewHeader(p.DocType(), 4, 2)
}

// Elements that are not part of the WebM subset.
var webmForbidden = map[ebml.ID]struct{}{
	IDAttachments:          {},
	IDChapterTranslate:     {},
	IDSegmentFamily:        {},
	IDSegmentFilename:      {},
	IDPrevUID:              {},
	IDPrevFilename:         {},
	IDNextUID:              {},
	IDNextFilename:         {},
	IDContentEncodings:     {},
	IDSilentTracks:         {},
	IDCodecState:           {},
	IDChapterSegmentUID:    {},
	IDChapterPhysicalEquiv: {},
	IDChapterTrack:         {},
	IDCueBlockNumber:       {},
}

var webmCodecs = map[string]struct{}{
	"V_VP8":                 {},
	"V_VP9":                 {},
	"V_AV1":                 {},
	"A_VORBIS":              {},
	"A_OPUS":                {},
	"S_TEXT/WEBVTT":         {},
	"D_WEBVTT/SUBTITLES":    {},
	"D_WEBVTT/CAPTIONS":     {},
	"D_WEBVTT/DESCRIPTIONS": {},
	"D_WEBVTT/METADATA":     {},
}

// Allows reports whether the element may appear in the output.
func (p Profile) Allows(id ebml.ID) bool {
	if p != ProfileWebM {
		return true
	}
	_, forbidden := webmForbidden[id]
	return !forbidden
}

// CheckCodec returns an error if codecID can't be stored.
func (p Profile) CheckCodec(codecID string) error {
	if p != ProfileWebM {
		return nil
	}
	if _, ok := webmCodecs[codecID]; !ok {
		return fmt.Errorf("%w in %v: %s", ErrCodecNotAllowed, p, codecID)
	}
	return nil
}

// AllowsLacing reports whether blocks of the given track type may be laced.
func (p Profile) AllowsLacing(trackType uint64) bool {
	return p != ProfileWebM || trackType == TrackTypeAudio
}

// Filter returns a copy of el without the elements the profile
// doesn't allow, or nil if el itself is not allowed.
func (p Profile) Filter(el *ebml.Element) *ebml.Element {
	if el == nil || !p.Allows(el.ID) {
		return nil
	}
	c := *el
	c.Binary = el.Binary.Clone()
	c.Children = nil
	for _, child := range el.Children {
		if f := p.Filter(child); f != nil {
			c.Children = append(c.Children, f)
		}
	}
	return &c
}

// Track types.
const (
	TrackTypeVideo    uint64 = 0x01
	TrackTypeAudio    uint64 = 0x02
	TrackTypeComplex  uint64 = 0x03
	TrackTypeLogo     uint64 = 0x10
	TrackTypeSubtitle uint64 = 0x11
	TrackTypeButtons  uint64 = 0x12
	TrackTypeControl  uint64 = 0x20
)
