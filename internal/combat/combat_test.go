package combat

import (
	"testing"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
)

func TestProjectileAdvanceMovesAlongFacing(t *testing.T) {
	p := Spawn(entityid.ID(1), entityid.ID(2), geom.Transform{Rotation: geom.IdentityQuaternion}, 10, 2, 5)
	p.Advance()
	if p.Transform.Position.Z != 2 {
		t.Fatalf("expected projectile to advance 2 along +Z, got %+v", p.Transform.Position)
	}
}

func TestProjectileDespawnsAtZero(t *testing.T) {
	p := Spawn(entityid.ID(1), entityid.ID(2), geom.Transform{}, 10, 1, 2)
	if p.TickDespawnTimer() {
		t.Fatalf("expected projectile to survive first tick")
	}
	if !p.TickDespawnTimer() {
		t.Fatalf("expected projectile to despawn on second tick")
	}
}

func TestResolveDamageKillsOnLethalHit(t *testing.T) {
	result := ResolveDamage(ImpactContext{
		TargetBody:    geom.Transform{Rotation: geom.IdentityQuaternion},
		TargetHealth:  10,
		TargetAlive:   true,
		ProjectileDir: geom.Vector3{Z: 1},
		Damage:        15,
	})
	if !result.KilledThisHit {
		t.Fatalf("expected lethal hit to report a kill")
	}
	if result.RemainingHP >= 0 {
		t.Fatalf("expected negative remaining HP, got %v", result.RemainingHP)
	}
}

func TestResolveDamageDoesNotDoubleKill(t *testing.T) {
	result := ResolveDamage(ImpactContext{
		TargetBody:   geom.Transform{Rotation: geom.IdentityQuaternion},
		TargetHealth: -5,
		TargetAlive:  false,
		Damage:       10,
	})
	if result.KilledThisHit {
		t.Fatalf("expected an already-dead target not to register a new kill")
	}
}

func TestResolveHitSideFront(t *testing.T) {
	side := ResolveHitSide(geom.Transform{Rotation: geom.IdentityQuaternion}, geom.Vector3{Z: 1})
	if side != HitFront {
		t.Fatalf("expected FRONT, got %v", side)
	}
}
