// Package command implements the command processor: draining a lobby's
// inbox each tick, validating envelope targets, and dispatching the
// surviving commands into the simulation as wanted-transform intent.
package command

import (
	"errors"
	"math"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/combat"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
)

// ErrNoSender is a state-inconsistency error: every dispatched
// envelope must carry a sender set by the server on ingress.
var ErrNoSender = errors.New("command: envelope has no sender")

// legalTargets enumerates each client-originated message kind's allowed
// Target kinds. A mismatch is a rule error, never fatal to the lobby.
var legalTargets = map[protocol.Kind]map[protocol.TargetKind]bool{
	protocol.KindStartGame:               {protocol.TargetServerOnly: true},
	protocol.KindMoveTankCommand:         {protocol.TargetToSelf: true},
	protocol.KindRotateTankBodyCommand:   {protocol.TargetToSelf: true},
	protocol.KindRotateTankTurretCommand: {protocol.TargetToSelf: true},
	protocol.KindShootCommand:            {protocol.TargetToSelf: true},
	protocol.KindSimpleText: {
		protocol.TargetToEveryone:      true,
		protocol.TargetToTeam:          true,
		protocol.TargetToLobbyDirectly: true,
		protocol.TargetClient:          true,
		protocol.TargetToSelf:          true,
	},
}

// IsLegalTarget reports whether target is a declared-legal recipient set
// for kind. Kinds with no declared entry (e.g. server-originated
// broadcasts, which are never validated this way) are always legal.
func IsLegalTarget(kind protocol.Kind, target protocol.TargetKind) bool {
	allowed, ok := legalTargets[kind]
	if !ok {
		return true
	}
	return allowed[target]
}

// Dispatch processes one envelope already due this tick. It
// mutates the sending player's wanted transform/turret/cooldown/
// projectile set in place and, on a rule violation, appends a
// MessageError to the sender's immediate outbox. It never returns an
// error that should tear down the lobby.
func Dispatch(l *lobby.Lobby, env protocol.Envelope, tick uint64, log *logging.Logger) {
	if !env.HasSender {
		log.Error("command: dropping envelope with no sender")
		return
	}
	player, ok := l.Players[env.Sender]
	if !ok {
		// State inconsistency: the sender left mid-tick. The
		// operation aborts silently; the tick continues.
		return
	}

	kind := env.Message.Kind()
	if !IsLegalTarget(kind, env.Target.Kind) {
		pushError(l, env.Sender, protocol.ErrInvalidTarget, "", tick)
		return
	}

	switch msg := env.Message.(type) {
	case *protocol.StartGame:
		ApplyStartGame(l, msg, env.Sender, tick)
	case *protocol.MoveTankCommand:
		ApplyMove(player, msg.Distance)
	case *protocol.RotateTankBodyCommand:
		ApplyRotateBody(player, msg.Angle)
	case *protocol.RotateTankTurretCommand:
		ApplyRotateTurret(player, msg.Yaw, msg.Pitch)
	case *protocol.ShootCommand:
		ApplyShoot(l, player, tick)
	case *protocol.SimpleText:
		relay(l, env, tick)
	default:
		log.Warn("command: no dispatch handler for kind", logging.String("kind", string(kind)))
	}
}

// ApplyStartGame attempts the ReadyToStart -> InProgress transition,
// fills empty slots with dummies if requested, respawns every
// non-spectator, and broadcasts a per-recipient GameStarts. A rule violation (wrong state, incomplete roster) reports
// MessageError to the sender alone; the lobby is left untouched.
func ApplyStartGame(l *lobby.Lobby, msg *protocol.StartGame, sender entityid.ID, tick uint64) {
	gameStarts, toRespawn, err := l.StartGame(msg.FillEmptySlotsWithDummies)
	if err != nil {
		code := protocol.ErrLobbyManagementError
		if errors.Is(err, lobby.ErrNotReadyToStart) || errors.Is(err, lobby.ErrRosterIncomplete) {
			code = protocol.ErrLobbyNotReadyToStart
		}
		pushError(l, sender, code, err.Error(), tick)
		return
	}

	for _, p := range toRespawn {
		l.RespawnPlayer(p)
		personalized := gameStarts
		personalized.ClientID = p.ID
		queueGameStarts(l, p.ID, personalized, tick)
	}
	for id := range l.Spectators {
		queueGameStarts(l, id, gameStarts, tick)
	}
}

func queueGameStarts(l *lobby.Lobby, recipient entityid.ID, msg protocol.GameStarts, tick uint64) {
	outbox, ok := l.Outboxes[recipient]
	if !ok {
		return
	}
	outbox.PushBack(protocol.Envelope{Target: protocol.Self(), Message: msg, TickSent: tick})
}

func pushError(l *lobby.Lobby, sender entityid.ID, code protocol.ErrorCode, detail string, tick uint64) {
	outbox, ok := l.Outboxes[sender]
	if !ok {
		return
	}
	outbox.PushBack(protocol.Envelope{
		Target:   protocol.Self(),
		Message:  protocol.MessageError{Code: code, Detail: detail},
		TickSent: tick,
	})
}

func relay(l *lobby.Lobby, env protocol.Envelope, tick uint64) {
	for _, id := range l.Recipients(env.Target, env.Sender) {
		outbox, ok := l.Outboxes[id]
		if !ok {
			continue
		}
		outbox.PushBack(protocol.Envelope{
			Target:    env.Target,
			Message:   env.Message,
			Sender:    env.Sender,
			HasSender: true,
			TickSent:  tick,
		})
	}
}

// ApplyMove sets the player's wanted transform to the current transform
// translated along its body-local +Z axis by distance, clamped to
// ±move_speed.
func ApplyMove(p *lobby.Player, distance float64) {
	limit := p.Config.MoveSpeed
	distance = clamp(distance, -limit, limit)
	translation := p.WantedBody.Rotation.RotateVector(geom.Vector3{Z: distance})
	p.WantedBody.Position = p.WantedBody.Position.Add(translation)
}

// ApplyRotateBody rotates the player's wanted body yaw by angle degrees,
// clamped to ±body_rotation_speed.
func ApplyRotateBody(p *lobby.Player, angleDeg float64) {
	limit := p.Config.BodyRotationSpeed
	angleDeg = clamp(angleDeg, -limit, limit)
	p.WantedBody.Rotation = p.WantedBody.Rotation.Mul(geom.FromAxisAngleYDeg(angleDeg))
}

// ApplyRotateTurret rotates the player's local turret by yaw/pitch
// degrees, each clamped to its configured max rotation speed, with
// pitch further clamped to the configured pitch range and roll forced
// to zero.
func ApplyRotateTurret(p *lobby.Player, yawDeg, pitchDeg float64) {
	yawDeg = clamp(yawDeg, -p.Config.TurretYawRotationSpeed, p.Config.TurretYawRotationSpeed)
	pitchDeg = clamp(pitchDeg, -p.Config.TurretPitchRotationSpeed, p.Config.TurretPitchRotationSpeed)

	currentPitch := turretPitchDeg(p.Turret.Rotation)
	newPitch := geom.ClampAngleDeg(currentPitch+pitchDeg, p.Config.TurretMinPitch, p.Config.TurretMaxPitch)
	newYaw := p.Turret.Rotation.YawDeg() + yawDeg

	// Roll is forced to zero: compose yaw then pitch only, no twist about
	// the turret's local Z axis.
	yawQuat := geom.FromAxisAngleYDeg(newYaw)
	pitchQuat := fromAxisAngleXDeg(newPitch)
	p.Turret.Rotation = yawQuat.Mul(pitchQuat)
}

// turretPitchDeg extracts the local pitch (rotation about X) a turret
// quaternion built by ApplyRotateTurret encodes, assuming zero roll.
func turretPitchDeg(q geom.Quaternion) float64 {
	sinp := 2 * (q.W*q.X - q.Y*q.Z)
	sinp = clamp(sinp, -1, 1)
	return math.Asin(sinp) * 180 / math.Pi
}

func fromAxisAngleXDeg(deg float64) geom.Quaternion {
	rad := deg * math.Pi / 180
	half := rad / 2
	return geom.Quaternion{X: math.Sin(half), W: math.Cos(half)}
}

// ApplyShoot spawns a projectile at the turret's world transform if the
// player's shoot cooldown has elapsed, resetting it.
func ApplyShoot(l *lobby.Lobby, p *lobby.Player, tick uint64) *combat.Projectile {
	if p.ShootCooldownTicksLeft > 0 || !p.Alive() {
		return nil
	}
	id := l.NextEntityID()
	proj := combat.Spawn(id, p.ID, p.TurretWorldTransform(), p.Config.ProjectileDamage, p.Config.ProjectileSpeed, projectileLifetimeTicks)
	l.Projectiles[id] = proj
	p.ShootCooldownTicksLeft = p.Config.ShootCooldown
	return proj
}

// projectileLifetimeTicks bounds how long an unexploded shot survives
// before its despawn timer retires it.
const projectileLifetimeTicks = 200

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// RunDummyDriver applies the canonical load-test dummy behavior to every
// dummy in the lobby: max forward move, max body rotation, max turret
// yaw, every tick. Dummy commands
// never arrive over the wire, so they bypass target validation entirely.
func RunDummyDriver(l *lobby.Lobby) {
	for _, p := range l.Players {
		if !p.IsDummy() || !p.Alive() {
			continue
		}
		ApplyMove(p, p.Config.MoveSpeed)
		ApplyRotateBody(p, p.Config.BodyRotationSpeed)
		ApplyRotateTurret(p, p.Config.TurretYawRotationSpeed, 0)
	}
}
