package matroska

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand"
	"sync"
)

// ErrDuplicateUID is returned for zero or already used uids.
var ErrDuplicateUID = errors.New("duplicate or invalid uid")

// UIDKind is a uid namespace.
type UIDKind int

// UID namespaces.
const (
	UIDTrack UIDKind = iota
	UIDChapter
	UIDEdition
	UIDAttachment
	numUIDKinds
)

func (k UIDKind) String() string {
	switch k {
	case UIDTrack:
		return "track"
	case UIDChapter:
		return "chapter"
	case UIDEdition:
		return "edition"
	case UIDAttachment:
		return "attachment"
	}
	return "unknown"
}

// UIDs hands out unique non-zero identifiers per namespace.
type UIDs struct {
	mu   sync.Mutex
	used [numUIDKinds]map[uint64]struct{}
	rand func() uint64
}

// NewUIDs returns a registry backed by crypto/rand.
func NewUIDs() *UIDs {
	return newUIDs(func() uint64 {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}
		return binary.BigEndian.Uint64(b[:])
	})
}

// NewSeededUIDs returns a deterministic registry.
func NewSeededUIDs(seed int64) *UIDs {
	r := mrand.New(mrand.NewSource(seed)) //nolint:gosec
	return newUIDs(r.Uint64)
}

func newUIDs(rand func() uint64) *UIDs {
	u := &UIDs{rand: rand}
	for i := range u.used {
		u.used[i] = make(map[uint64]struct{})
	}
	return u
}

// Add registers an existing uid.
func (u *UIDs) Add(kind UIDKind, uid uint64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if uid == 0 {
		return fmt.Errorf("%w: %v uid 0", ErrDuplicateUID, kind)
	}
	if _, exists := u.used[kind][uid]; exists {
		return fmt.Errorf("%w: %v uid %d", ErrDuplicateUID, kind, uid)
	}
	u.used[kind][uid] = struct{}{}
	return nil
}

// Has reports whether uid is registered.
func (u *UIDs) Has(kind UIDKind, uid uint64) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, exists := u.used[kind][uid]
	return exists
}

// New returns and registers a fresh uid.
func (u *UIDs) New(kind UIDKind) uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	for {
		uid := u.rand()
		if uid == 0 {
			continue
		}
		if _, exists := u.used[kind][uid]; exists {
			continue
		}
		u.used[kind][uid] = struct{}{}
		return uid
	}
}
