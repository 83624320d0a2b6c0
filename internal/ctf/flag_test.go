package ctf

import (
	"testing"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/collision"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
)

func tankLayer() collision.Layer {
	return collision.NewLayer(collision.MaskTank | collision.MaskProjectile | collision.MaskFlag)
}

func flagInvariantHolds(t *testing.T, f *Flag) {
	t.Helper()
	count := 0
	for _, s := range []state.FlagStatus{state.FlagInBase, state.FlagCarried, state.FlagDropped} {
		if f.Status == s {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one flag status to hold, got %q", f.Status)
	}
}

func TestNewInBaseIgnoresOwnTeam(t *testing.T) {
	mate := entityid.ID(5)
	f := NewInBase(entityid.ID(1), "red", geom.Vector3{}, geom.Vector3{X: 1, Y: 1, Z: 1}, []entityid.ID{mate})
	flagInvariantHolds(t, f)
	if f.Status != state.FlagInBase {
		t.Fatalf("expected InBase, got %v", f.Status)
	}
	if collision.CanCollide(f.Layer, f.ID, tankLayer(), mate) {
		t.Fatalf("expected flag to ignore its own teammate")
	}
}

func TestPickUpThenFollowCarrier(t *testing.T) {
	f := NewInBase(entityid.ID(1), "red", geom.Vector3{}, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	carrier := entityid.ID(9)
	f.PickUp(carrier)
	flagInvariantHolds(t, f)
	if f.Status != state.FlagCarried || f.CarrierID != carrier {
		t.Fatalf("expected Carried by %v, got status=%v carrier=%v", carrier, f.Status, f.CarrierID)
	}
	if f.Layer.Mask != collision.MaskNone {
		t.Fatalf("expected carried flag to stop colliding, got mask %v", f.Layer.Mask)
	}
	moved := geom.Transform{Position: geom.Vector3{X: 3, Y: 0, Z: 4}, Rotation: geom.IdentityQuaternion}
	f.FollowCarrier(moved)
	if f.Transform != moved {
		t.Fatalf("expected flag to mirror carrier transform, got %+v", f.Transform)
	}
}

func TestDropThenReturnToBase(t *testing.T) {
	base := geom.Vector3{X: 10, Y: 0, Z: 10}
	f := NewInBase(entityid.ID(1), "red", base, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	f.PickUp(entityid.ID(9))
	f.Drop()
	flagInvariantHolds(t, f)
	if f.Status != state.FlagDropped || f.CarrierID != entityid.Nil {
		t.Fatalf("expected Dropped with no carrier, got status=%v carrier=%v", f.Status, f.CarrierID)
	}
	if f.Layer.Mask != collision.MaskFlag {
		t.Fatalf("expected dropped flag to re-arm Flag mask, got %v", f.Layer.Mask)
	}
	mate := entityid.ID(3)
	f.ReturnToBase(base, []entityid.ID{mate})
	flagInvariantHolds(t, f)
	if f.Status != state.FlagInBase || f.Transform.Position != base {
		t.Fatalf("expected flag back InBase at %+v, got status=%v pos=%+v", base, f.Status, f.Transform.Position)
	}
	if collision.CanCollide(f.Layer, f.ID, tankLayer(), mate) {
		t.Fatalf("expected returned flag to ignore its own teammate again")
	}
}

func TestTickFlagPickedUpByEnemyOnOverlap(t *testing.T) {
	f := NewInBase(entityid.ID(1), "red", geom.Vector3{}, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	enemy := TankRef{ID: entityid.ID(2), Team: "blue", Alive: true,
		Transform: geom.Transform{Rotation: geom.IdentityQuaternion},
		Collider:  geom.Vector3{X: 1, Y: 1, Z: 1}, Layer: tankLayer()}
	events := TickFlag(f, []TankRef{enemy})
	if len(events) != 1 || events[0].Kind != EventPickedUp {
		t.Fatalf("expected a single PICKED_UP event, got %+v", events)
	}
	if f.Status != state.FlagCarried || f.CarrierID != enemy.ID {
		t.Fatalf("expected flag carried by enemy, got %+v", f)
	}
}

func TestTickFlagIgnoresOwnTeamWhileInBase(t *testing.T) {
	mate := entityid.ID(2)
	f := NewInBase(entityid.ID(1), "red", geom.Vector3{}, geom.Vector3{X: 1, Y: 1, Z: 1}, []entityid.ID{mate})
	own := TankRef{ID: mate, Team: "red", Alive: true,
		Transform: geom.Transform{Rotation: geom.IdentityQuaternion},
		Collider:  geom.Vector3{X: 1, Y: 1, Z: 1}, Layer: tankLayer()}
	events := TickFlag(f, []TankRef{own})
	if len(events) != 0 {
		t.Fatalf("expected no events when only teammates overlap an in-base flag, got %+v", events)
	}
	if f.Status != state.FlagInBase {
		t.Fatalf("expected flag to remain InBase, got %v", f.Status)
	}
}

func TestTickFlagDropsWhenCarrierDisappears(t *testing.T) {
	f := NewInBase(entityid.ID(1), "red", geom.Vector3{}, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	carrier := entityid.ID(2)
	f.PickUp(carrier)
	events := TickFlag(f, nil) // carrier no longer present in the roster
	if len(events) != 1 || events[0].Kind != EventDropped {
		t.Fatalf("expected a single DROPPED event, got %+v", events)
	}
	if f.Status != state.FlagDropped {
		t.Fatalf("expected flag dropped, got %v", f.Status)
	}
}

func TestTickFlagDroppedReturnsToBaseOnOwnTeamTouch(t *testing.T) {
	base := geom.Vector3{X: 5, Y: 0, Z: 5}
	f := NewInBase(entityid.ID(1), "red", base, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	f.PickUp(entityid.ID(2))
	f.Drop()
	own := TankRef{ID: entityid.ID(3), Team: "red", Alive: true,
		Transform: f.Transform,
		Collider:  geom.Vector3{X: 1, Y: 1, Z: 1}, Layer: tankLayer()}
	events := TickFlag(f, []TankRef{own})
	if len(events) != 1 || events[0].Kind != EventReturned {
		t.Fatalf("expected a single RETURNED event, got %+v", events)
	}
	if f.Status != state.FlagInBase || f.Transform.Position != base {
		t.Fatalf("expected flag back at base %+v, got %+v", base, f.Transform.Position)
	}
}

func TestEvaluateScoringRequiresOwnFlagInBase(t *testing.T) {
	redBase := Base{Team: "red", Transform: geom.Transform{Rotation: geom.IdentityQuaternion}, Collider: geom.Vector3{X: 2, Y: 2, Z: 2}}
	redFlag := NewInBase(entityid.ID(1), "red", geom.Vector3{}, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	blueFlag := NewInBase(entityid.ID(2), "blue", geom.Vector3{X: 50}, geom.Vector3{X: 1, Y: 1, Z: 1}, nil)
	carrier := entityid.ID(9)
	blueFlag.PickUp(carrier)
	blueFlag.FollowCarrier(geom.Transform{Rotation: geom.IdentityQuaternion})

	tanks := []TankRef{{ID: carrier, Team: "red", Alive: true,
		Transform: geom.Transform{Rotation: geom.IdentityQuaternion}, Collider: geom.Vector3{X: 1, Y: 1, Z: 1}, Layer: tankLayer()}}
	flags := map[entityid.ID]*Flag{redFlag.ID: redFlag, blueFlag.ID: blueFlag}
	flagsByTeam := map[string]*Flag{"red": redFlag, "blue": blueFlag}
	bases := map[string]Base{"red": redBase}

	events := EvaluateScoring(flags, flagsByTeam, tanks, bases)
	if len(events) != 1 || events[0].Kind != EventScored {
		t.Fatalf("expected a single SCORED event when own flag is in base, got %+v", events)
	}
	if blueFlag.Status != state.FlagInBase {
		t.Fatalf("expected captured flag to reset to InBase, got %v", blueFlag.Status)
	}

	// Re-run with the carrying team's own flag away from its base: no score.
	blueFlag.PickUp(carrier)
	redFlag.PickUp(entityid.ID(99))
	events = EvaluateScoring(flags, flagsByTeam, tanks, bases)
	if len(events) != 0 {
		t.Fatalf("expected no SCORED event while own flag is not in base, got %+v", events)
	}
}
