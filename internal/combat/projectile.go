// Package combat implements projectile spawn/advance/despawn and
// damage resolution on tank hits. Damage is a flat per-tank-type
// amount; the hit side is recorded for future directional armor.
package combat

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/collision"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
)

// HalfExtents is the fixed collider half-size used for every projectile's
// OBB test against tanks, since tank config does not carry a per-shot
// caliber.
var HalfExtents = geom.Vector3{X: 0.08, Y: 0.08, Z: 0.08}

// Projectile is one live shot in a lobby.
type Projectile struct {
	ID         entityid.ID
	Owner      entityid.ID
	Damage     float64
	Speed      float64
	Transform  geom.Transform
	Collider   geom.Vector3
	Layer      collision.Layer
	TicksLeft  int
	TicksTotal int
}

// Spawn constructs a projectile at the turret's world transform, per the
// Shoot command handler. Its collision layer ignores its own
// owner so a tank cannot instantly shoot itself.
func Spawn(id, owner entityid.ID, turretWorldTransform geom.Transform, damage, speed float64, ticksToLive int) *Projectile {
	return &Projectile{
		ID:         id,
		Owner:      owner,
		Damage:     damage,
		Speed:      speed,
		Transform:  turretWorldTransform,
		Collider:   HalfExtents,
		Layer:      collision.NewLayer(collision.MaskProjectile, owner),
		TicksLeft:  ticksToLive,
		TicksTotal: ticksToLive,
	}
}

// OBB returns the projectile's current oriented bounding box.
func (p *Projectile) OBB() collision.OBB {
	return collision.NewOBB(p.Transform.Position, p.Transform.Rotation, p.Collider)
}

// Advance moves the projectile by rotation * (0,0,speed).
func (p *Projectile) Advance() {
	p.Transform.Position = p.Transform.Position.Add(p.Transform.Rotation.RotateVector(geom.Vector3{Z: p.Speed}))
}

// TickDespawnTimer decrements the despawn countdown and reports whether
// the projectile has reached zero and should be removed.
func (p *Projectile) TickDespawnTimer() bool {
	if p.TicksLeft <= 0 {
		return true
	}
	p.TicksLeft--
	return p.TicksLeft <= 0
}
