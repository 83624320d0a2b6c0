// Package lobby implements the lobby registry and client lifecycle:
// named, created-on-demand lobbies, each owning a roster, a spectator
// set, and the authoritative simulation state its scheduler ticks.
package lobby

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/collision"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/transport"
)

// tankLayerMask enrolls a live tank in every collision group it can
// meet: other tanks, incoming projectiles, and flags.
const tankLayerMask = collision.MaskTank | collision.MaskProjectile | collision.MaskFlag

// PlayerState distinguishes a tank entity's combat lifecycle, separate
// from the lobby-level ClientType.
type PlayerState string

const (
	StateAlive      PlayerState = "ALIVE"
	StateDead       PlayerState = "DEAD"
	StateSpectating PlayerState = "SPECTATING"
)

// Player is the server-side entity backing one connected client (or one
// dummy), holding everything the simulation needs to move, shoot, and
// project its state.
type Player struct {
	ID          entityid.ID
	Channel     *transport.Channel // nil for dummies
	DisplayName string
	ClientType  protocol.ClientType
	Team        string
	SpawnIndex  int
	TankType    tankconfig.Type
	Config      tankconfig.Config

	Body       geom.Transform
	WantedBody geom.Transform
	Turret     geom.Transform // local to Body

	Layer collision.Layer

	Health                 float64
	State                  PlayerState
	ShootCooldownTicksLeft int
	RespawnTicksLeft       int

	// FlagCarrier names the flag this player currently carries, or
	// entityid.Nil if none. Kept in lockstep with the flag's own
	// carrier field.
	FlagCarrier entityid.ID
}

// NewPlayer constructs a player entity at its spawn transform, alive,
// at full configured health.
func NewPlayer(id entityid.ID, name string, clientType protocol.ClientType, team string, spawnIndex int, tankType tankconfig.Type, cfg tankconfig.Config, spawn geom.Transform, channel *transport.Channel) *Player {
	return &Player{
		ID:          id,
		Channel:     channel,
		DisplayName: name,
		ClientType:  clientType,
		Team:        team,
		SpawnIndex:  spawnIndex,
		TankType:    tankType,
		Config:      cfg,
		Body:        spawn,
		WantedBody:  spawn,
		Turret:      geom.IdentityTransform,
		Layer:       collision.NewLayer(tankLayerMask),
		Health:      cfg.MaxHealth,
		State:       StateAlive,
		FlagCarrier: entityid.Nil,
	}
}

// IsSpectator reports whether this player occupies the spectator set
// rather than a team roster slot.
func (p *Player) IsSpectator() bool {
	return p.ClientType == protocol.ClientSpectator
}

// IsDummy reports whether this player is a server-driven dummy
// (ClientType DUMMY).
func (p *Player) IsDummy() bool {
	return p.ClientType == protocol.ClientDummy
}

// Alive reports whether the player's tank is currently alive.
func (p *Player) Alive() bool {
	return p.State == StateAlive
}

// Kill transitions the player to Dead, arms its respawn timer, and
// clears its collision layer so a corpse cannot be hit twice. The
// caller is responsible for dropping any carried flag.
func (p *Player) Kill() {
	p.State = StateDead
	p.Health = 0
	p.Layer = collision.None()
	p.RespawnTicksLeft = p.Config.RespawnTimer
}

// TickRespawnTimer decrements the respawn countdown and reports whether
// it has just reached zero, the tick on which the respawn procedure
// runs.
func (p *Player) TickRespawnTimer() bool {
	if p.State != StateDead || p.RespawnTicksLeft <= 0 {
		return false
	}
	p.RespawnTicksLeft--
	return p.RespawnTicksLeft <= 0
}

// Respawn resets the player to full health, alive, at the given spawn
// transform, with its collision layer restored.
func (p *Player) Respawn(spawn geom.Transform) {
	p.Body = spawn
	p.WantedBody = spawn
	p.Turret = geom.IdentityTransform
	p.Health = p.Config.MaxHealth
	p.State = StateAlive
	p.Layer = collision.NewLayer(tankLayerMask)
}

// Collider returns this player's half-extents, for OBB/sweep queries.
func (p *Player) Collider() geom.Vector3 {
	return p.Config.HalfSize()
}

// TurretWorldTransform composes the player's body and local turret
// transforms into the turret's world-space pose, used to spawn
// projectiles.
func (p *Player) TurretWorldTransform() geom.Transform {
	rotation := p.Body.Rotation.Mul(p.Turret.Rotation)
	position := p.Body.Position.Add(p.Body.Rotation.RotateVector(p.Turret.Position))
	return geom.Transform{Position: position, Rotation: rotation}
}
