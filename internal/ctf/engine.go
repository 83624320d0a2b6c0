package ctf

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/collision"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
)

// TankRef is the minimal view of a tank the CTF engine needs, supplied
// by the simulation step each tick.
type TankRef struct {
	ID        entityid.ID
	Team      string
	Alive     bool
	Transform geom.Transform
	Collider  geom.Vector3 // half-extents
	Layer     collision.Layer
}

func (t TankRef) obb() collision.OBB {
	return collision.NewOBB(t.Transform.Position, t.Transform.Rotation, t.Collider)
}

// Base is one team's flag-return point.
type Base struct {
	Team      string
	Transform geom.Transform
	Collider  geom.Vector3
}

func (b Base) obb() collision.OBB {
	return collision.NewOBB(b.Transform.Position, b.Transform.Rotation, b.Collider)
}

// EventKind tags which CTF transition fired this tick.
type EventKind string

const (
	EventPickedUp EventKind = "PICKED_UP"
	EventDropped  EventKind = "DROPPED"
	EventReturned EventKind = "RETURNED"
	EventScored   EventKind = "SCORED"
)

// Event reports one CTF transition for the scheduler to turn into a
// broadcast envelope and/or a score increment.
type Event struct {
	Kind   EventKind
	Flag   entityid.ID
	Player entityid.ID
	Team   string
}

func findTank(tanks []TankRef, id entityid.ID) (TankRef, bool) {
	for _, t := range tanks {
		if t.ID == id {
			return t, true
		}
	}
	return TankRef{}, false
}

func teammatesOf(tanks []TankRef, team string) []entityid.ID {
	var ids []entityid.ID
	for _, t := range tanks {
		if t.Team == team {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// TickFlag evaluates one flag's transitions for the current tick against
// the live tank roster and its own base. It does not
// handle scoring (EvaluateScoring below), since scoring requires
// comparing against the carrier's own team's flag, not this flag alone.
func TickFlag(f *Flag, tanks []TankRef) []Event {
	var events []Event
	switch f.Status {
	case state.FlagInBase:
		for _, tank := range tanks {
			if !tank.Alive || tank.Team == f.Team {
				continue
			}
			if !collision.CanCollide(f.Layer, f.ID, tank.Layer, tank.ID) {
				continue
			}
			if collision.Intersects(f.OBB(), tank.obb()) {
				f.PickUp(tank.ID)
				events = append(events, Event{Kind: EventPickedUp, Flag: f.ID, Player: tank.ID, Team: tank.Team})
				break
			}
		}
	case state.FlagCarried:
		carrier, ok := findTank(tanks, f.CarrierID)
		if !ok || !carrier.Alive {
			f.Drop()
			events = append(events, Event{Kind: EventDropped, Flag: f.ID})
			break
		}
		f.FollowCarrier(carrier.Transform)
	case state.FlagDropped:
		for _, tank := range tanks {
			if !tank.Alive {
				continue
			}
			if !collision.CanCollide(f.Layer, f.ID, tank.Layer, tank.ID) {
				continue
			}
			if !collision.Intersects(f.OBB(), tank.obb()) {
				continue
			}
			if tank.Team == f.Team {
				f.ReturnToBase(f.BasePos, teammatesOf(tanks, f.Team))
				events = append(events, Event{Kind: EventReturned, Flag: f.ID, Player: tank.ID, Team: tank.Team})
			} else {
				f.PickUp(tank.ID)
				events = append(events, Event{Kind: EventPickedUp, Flag: f.ID, Player: tank.ID, Team: tank.Team})
			}
			break
		}
	}
	return events
}

// EvaluateScoring checks every carried flag: if its carrier's tank
// overlaps their own team's base while that team's own flag is InBase,
// the carrying team scores and the carried flag resets to InBase.
// flagsByTeam maps a team name to the flag that starts at that team's
// base (used to test "own flag is InBase").
func EvaluateScoring(flags map[entityid.ID]*Flag, flagsByTeam map[string]*Flag, tanks []TankRef, bases map[string]Base) []Event {
	var events []Event
	for _, f := range flags {
		if f.Status != state.FlagCarried {
			continue
		}
		carrier, ok := findTank(tanks, f.CarrierID)
		if !ok || !carrier.Alive {
			continue
		}
		base, ok := bases[carrier.Team]
		if !ok {
			continue
		}
		ownFlag, ok := flagsByTeam[carrier.Team]
		if !ok || ownFlag.Status != state.FlagInBase {
			continue
		}
		if !collision.Intersects(carrier.obb(), base.obb()) {
			continue
		}
		f.ReturnToBase(f.BasePos, teammatesOf(tanks, f.Team))
		events = append(events, Event{Kind: EventScored, Flag: f.ID, Player: carrier.ID, Team: carrier.Team})
	}
	return events
}
