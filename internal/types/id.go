package types

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const tempPrefix = "temp-"

// ID identifies a board entity. A temporary ID is assigned locally when an
// entity is created and lives only in the working copy; a remote ID is the
// authoritative identifier assigned by the remote store. The zero ID is empty.
type ID struct {
	value string
	temp  bool
}

// RemoteID wraps an identifier assigned by the remote store.
func RemoteID(v string) ID {
	return ID{value: v}
}

// ParseID restores an ID from its string form. Strings carrying the
// temporary prefix yield a temporary ID.
func ParseID(s string) ID {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, tempPrefix) {
		return ID{value: s, temp: true}
	}
	return ID{value: s}
}

// IsTemp reports whether the ID was assigned locally and not yet reconciled.
func (id ID) IsTemp() bool { return id.temp }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id.value == "" }

func (id ID) String() string { return id.value }

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	*id = ParseID(string(b))
	return nil
}

// TempIDGenerator hands out temporary IDs of the form temp-<unixMillis>-<seq>.
// The sequence makes IDs minted within the same millisecond distinct.
type TempIDGenerator struct {
	mu  sync.Mutex
	seq uint64
	now func() time.Time
}

// NewTempIDGenerator returns a generator using the wall clock.
func NewTempIDGenerator() *TempIDGenerator {
	return &TempIDGenerator{now: time.Now}
}

// Next returns a fresh temporary ID.
func (g *TempIDGenerator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	return ID{value: fmt.Sprintf("%s%d-%d", tempPrefix, now().UnixMilli(), g.seq), temp: true}
}

// IDs converts strings to IDs, skipping empty entries.
func IDs(values ...string) []ID {
	out := make([]ID, 0, len(values))
	for _, v := range values {
		if id := ParseID(v); !id.IsZero() {
			out = append(out, id)
		}
	}
	return out
}
