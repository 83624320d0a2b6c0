package collision

import "github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"

// Mask bits identify which broad category of entity a collider belongs
// to; a collision only counts when both sides' masks intersect.
type Mask uint32

const (
	MaskNone       Mask = 0
	MaskTank       Mask = 1 << iota
	MaskProjectile
	MaskFlag
)

// Layer pairs a mask with a set of entities this collider explicitly
// ignores (e.g. a flag ignoring its own team while in base).
type Layer struct {
	Mask   Mask
	Ignore map[entityid.ID]struct{}
}

// None returns the layer that participates in no collisions: a zero
// mask never intersects anything.
func None() Layer { return Layer{} }

// NewLayer builds a layer with the given mask and ignore set.
func NewLayer(mask Mask, ignore ...entityid.ID) Layer {
	l := Layer{Mask: mask}
	if len(ignore) > 0 {
		l.Ignore = make(map[entityid.ID]struct{}, len(ignore))
		for _, id := range ignore {
			l.Ignore[id] = struct{}{}
		}
	}
	return l
}

func (l Layer) ignores(id entityid.ID) bool {
	if l.Ignore == nil {
		return false
	}
	_, ok := l.Ignore[id]
	return ok
}

// CanCollide reports whether an entity carrying layer `self` (with id
// selfID) may collide with an entity carrying layer `other` (with id
// otherID): both masks must intersect and neither may ignore the other.
func CanCollide(self Layer, selfID entityid.ID, other Layer, otherID entityid.ID) bool {
	if self.Mask == MaskNone || other.Mask == MaskNone {
		return false
	}
	if self.Mask&other.Mask == 0 {
		return false
	}
	if self.ignores(otherID) || other.ignores(selfID) {
		return false
	}
	return true
}
