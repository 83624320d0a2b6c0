// Package entityid defines the stable entity handle used across lobbies,
// state stores and the wire codec. IDs are opaque 64-bit bit patterns,
// serialized on the wire as decimal strings per the external interface.
package entityid

import (
	"strconv"
	"sync/atomic"
)

// ID is a stable handle for a player, projectile or flag entity. Values
// are arena-local: uniqueness is only guaranteed within a single lobby's
// allocator, never globally.
type ID uint64

// Nil is the zero value, used to mean "no entity".
const Nil ID = 0

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// MarshalJSON renders the ID as a quoted decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON parses a quoted decimal string back into an ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	value, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(value)
	return nil
}

// Allocator hands out unique, monotonically increasing IDs for a single
// lobby's entity arena. Never shared across lobbies.
type Allocator struct {
	next uint64
}

// Next returns the next unused ID. Safe for concurrent use.
func (a *Allocator) Next() ID {
	return ID(atomic.AddUint64(&a.next, 1))
}
