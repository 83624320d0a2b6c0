// Package ctf implements the capture-the-flag rules: the flag
// pickup/drop/return/score state machine and the per-tick transitions
// the scheduler drives it through.
package ctf

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/collision"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
)

// Flag is one lobby's capture-the-flag flag entity.
type Flag struct {
	ID        entityid.ID
	Team      string // the team whose base this flag starts at
	Status    state.FlagStatus
	CarrierID entityid.ID
	Transform geom.Transform
	BasePos   geom.Vector3 // this flag's home base position, for ReturnToBase
	Collider  geom.Vector3 // half-extents
	Layer     collision.Layer
}

// NewInBase seeds a flag at its team's base, ignoring that team's own
// roster so a team cannot pick up its own in-base flag.
func NewInBase(id entityid.ID, team string, basePos geom.Vector3, halfExtents geom.Vector3, teammates []entityid.ID) *Flag {
	return &Flag{
		ID:        id,
		Team:      team,
		Status:    state.FlagInBase,
		Transform: geom.Transform{Position: basePos, Rotation: geom.IdentityQuaternion},
		BasePos:   basePos,
		Collider:  halfExtents,
		Layer:     collision.NewLayer(collision.MaskFlag, teammates...),
	}
}

// OBB returns the flag's current oriented bounding box.
func (f *Flag) OBB() collision.OBB {
	return collision.NewOBB(f.Transform.Position, f.Transform.Rotation, f.Collider)
}

// PickUp transitions InBase|Dropped -> Carried, clearing the collision
// layer so the flag no longer participates in further OBB tests while
// carried.
func (f *Flag) PickUp(carrier entityid.ID) {
	f.Status = state.FlagCarried
	f.CarrierID = carrier
	f.Layer = collision.None()
}

// FollowCarrier mirrors the carrier's transform onto the flag, run every
// tick the flag is Carried.
func (f *Flag) FollowCarrier(carrierTransform geom.Transform) {
	f.Transform = carrierTransform
}

// Drop transitions Carried -> Dropped at the flag's current (last
// carrier) position, re-arming the Flag mask with an empty ignore set so
// anyone may pick it up.
func (f *Flag) Drop() {
	f.Status = state.FlagDropped
	f.CarrierID = entityid.Nil
	f.Layer = collision.NewLayer(collision.MaskFlag)
}

// ReturnToBase transitions Dropped or Carried -> InBase, restoring the
// own-team-ignore layer.
func (f *Flag) ReturnToBase(basePos geom.Vector3, teammates []entityid.ID) {
	f.Status = state.FlagInBase
	f.Transform = geom.Transform{Position: basePos, Rotation: geom.IdentityQuaternion}
	f.CarrierID = entityid.Nil
	f.Layer = collision.NewLayer(collision.MaskFlag, teammates...)
}

// RefreshIgnore re-seeds the in-base ignore set with the team's current
// roster, a no-op unless the flag is currently InBase. Called whenever a
// lobby's team roster changes so a newly joined teammate cannot pick up
// their own in-base flag.
func (f *Flag) RefreshIgnore(teammates []entityid.ID) {
	if f.Status != state.FlagInBase {
		return
	}
	f.Layer = collision.NewLayer(collision.MaskFlag, teammates...)
}

// ToGameState converts the flag to its wire-visible snapshot.
func (f *Flag) ToGameState() state.FlagGameState {
	return state.FlagGameState{
		ID:        f.ID,
		Team:      f.Team,
		Status:    f.Status,
		CarrierID: f.CarrierID,
		Transform: f.Transform,
	}
}
