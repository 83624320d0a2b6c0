// Package scheduler implements the per-lobby fixed-tick driver that
// runs housekeeping, command dispatch, simulation sub-steps and state
// publication in a fixed order, one independently ticking loop per
// lobby.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/collision"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/combat"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/command"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/ctf"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/egress"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/httpapi"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
)

// Deps bundles the per-tick collaborators a lobby's Tick needs beyond
// its own state, so the step stays easy to unit test without a real
// transport or visibility implementation wired in.
type Deps struct {
	Log        *logging.Logger
	Visibility state.Visibility
	Metrics    *httpapi.Metrics
}

// Tick advances lobby l by exactly one fixed step, running the
// sub-steps in their fixed order. While the lobby has not started,
// it only drains the inbox (so StartGame and other lobby-management
// traffic is handled) without touching the simulation clock. Holds the
// lobby lock for the whole step so connection-goroutine joins and
// removals never interleave with a tick.
func Tick(l *lobby.Lobby, deps Deps) {
	log := deps.Log
	if log == nil {
		log = logging.NewTestLogger()
	}

	l.Lock()
	defer l.Unlock()

	if l.Status != lobby.StatusInProgress {
		dispatchPreStart(l, log)
		egress.Publish(l, log)
		return
	}

	l.GameState.Tick++
	tick := l.GameState.Tick
	l.PublishTick(tick)

	runHousekeeping(l, tick)
	collectAndDispatch(l, tick, log)
	moveProjectiles(l)
	runSimulationStep(l, tick, log)
	updateLobbyGameState(l)

	egress.QueueGameState(l, deps.Visibility)
	bytesWritten := egress.Publish(l, log)

	if deps.Metrics != nil {
		deps.Metrics.RecordTick()
		deps.Metrics.RecordOutboxBytes(l.Name, bytesWritten)
	}
}

// runHousekeeping decrements cooldowns, despawn timers and respawn
// timers, respawning anyone whose timer just reached zero.
func runHousekeeping(l *lobby.Lobby, tick uint64) {
	for _, p := range l.Players {
		if p.ShootCooldownTicksLeft > 0 {
			p.ShootCooldownTicksLeft--
		}
		if p.TickRespawnTimer() {
			l.RespawnPlayer(p)
		}
	}
	for id, proj := range l.Projectiles {
		if proj.TickDespawnTimer() {
			delete(l.Projectiles, id)
		}
	}
}

// dispatchPreStart drains everything queued while the lobby has not
// started ticking yet. Tick-schedule bookkeeping does not apply before
// the first tick: every queued envelope is due now.
func dispatchPreStart(l *lobby.Lobby, log *logging.Logger) {
	for _, env := range l.SwapInbox() {
		command.Dispatch(l, env, l.GameState.Tick, log)
	}
}

// collectAndDispatch drains the inbox and dispatches every envelope
// whose tick_to_process exactly matches the current tick. An envelope
// scheduled for a later tick stays queued; one scheduled for an
// earlier tick is stale and is dropped with a warning, never dispatched.
func collectAndDispatch(l *lobby.Lobby, tick uint64, log *logging.Logger) {
	pending := l.SwapInbox()
	var deferred []protocol.Envelope
	for _, env := range pending {
		switch {
		case env.TickToProcess > tick:
			deferred = append(deferred, env)
		case env.TickToProcess < tick:
			log.Warn("command: dropping stale envelope",
				logging.Uint64("tickToProcess", env.TickToProcess), logging.Uint64("tick", tick))
		default:
			command.Dispatch(l, env, tick, log)
		}
	}
	l.RequeueInbox(deferred)

	command.RunDummyDriver(l)

	egress.FlushImmediate(l, log)
}

// moveProjectiles advances every live projectile by one tick's worth of
// travel.
func moveProjectiles(l *lobby.Lobby) {
	for _, proj := range l.Projectiles {
		proj.Advance()
	}
}

// runSimulationStep resolves tank movement against the tile map,
// projectile-vs-world and projectile-vs-tank hits, and the CTF flag
// state machine, in that order.
func runSimulationStep(l *lobby.Lobby, tick uint64, log *logging.Logger) {
	sweepTanks(l)
	resolveProjectileHits(l, tick, log)
	runCTF(l, tick, log)
}

func sweepTanks(l *lobby.Lobby) {
	for _, p := range l.Players {
		if !p.Alive() {
			continue
		}
		collider := collision.Collider{HalfSize: p.Collider(), MaxSlope: p.Config.MaxSlope}
		result := collision.Sweep(p.Body, p.WantedBody, collider, l.Map)
		p.Body = result.Safe
		p.WantedBody = result.Safe
	}
}

func resolveProjectileHits(l *lobby.Lobby, tick uint64, log *logging.Logger) {
	for id, proj := range l.Projectiles {
		if outOfBounds(l, proj) {
			delete(l.Projectiles, id)
			continue
		}
		target := findHitTarget(l, proj)
		if target == nil {
			continue
		}
		applyHit(l, proj, target, tick, log)
		delete(l.Projectiles, id)
	}
}

func outOfBounds(l *lobby.Lobby, proj *combat.Projectile) bool {
	tile := l.Map.TileAt(proj.Transform.Position)
	_, err := l.Map.FloorHeight(tile.X, tile.Z)
	return err != nil
}

func findHitTarget(l *lobby.Lobby, proj *combat.Projectile) *lobby.Player {
	projOBB := proj.OBB()
	for _, p := range l.Players {
		if !p.Alive() {
			continue
		}
		if !collision.CanCollide(proj.Layer, proj.ID, p.Layer, p.ID) {
			continue
		}
		tankOBB := collision.NewOBB(p.Body.Position, p.Body.Rotation, p.Collider())
		if collision.Intersects(projOBB, tankOBB) {
			return p
		}
	}
	return nil
}

func applyHit(l *lobby.Lobby, proj *combat.Projectile, target *lobby.Player, tick uint64, log *logging.Logger) {
	direction := proj.Transform.Rotation.RotateVector(geom.Vector3{Z: 1})
	result := combat.ResolveDamage(combat.ImpactContext{
		TargetBody:    target.Body,
		TargetHealth:  target.Health,
		TargetAlive:   target.Alive(),
		ProjectileDir: direction,
		Damage:        proj.Damage,
	})
	target.Health = result.RemainingHP
	if !result.KilledThisHit {
		return
	}
	dropCarriedFlag(l, target, tick)
	target.Kill()
	egress.QueueBroadcast(l, protocol.Everyone(), entityid.Nil, protocol.ClientDied{Player: target.ID, KilledBy: proj.Owner}, tick)
	log.Info("tank killed", logging.Uint64("player", uint64(target.ID)), logging.Uint64("killedBy", uint64(proj.Owner)))
}

func dropCarriedFlag(l *lobby.Lobby, p *lobby.Player, tick uint64) {
	if p.FlagCarrier == entityid.Nil {
		return
	}
	if flag, ok := l.Flags[p.FlagCarrier]; ok {
		flag.Drop()
		egress.QueueBroadcast(l, protocol.Everyone(), entityid.Nil, protocol.FlagGotDropped{Flag: flag.ID}, tick)
	}
	p.FlagCarrier = entityid.Nil
}

func runCTF(l *lobby.Lobby, tick uint64, log *logging.Logger) {
	tanks := tankRefs(l)
	for _, flag := range l.Flags {
		events := ctf.TickFlag(flag, tanks)
		publishCTFEvents(l, events, tick)
	}
	bases := ctfBases(l)
	scored := ctf.EvaluateScoring(l.Flags, l.FlagsByTeam, tanks, bases)
	for _, ev := range scored {
		l.Score[ev.Team]++
		log.Info("team scored", logging.String("team", ev.Team), logging.Uint64("scorer", uint64(ev.Player)))
	}
	publishCTFEvents(l, scored, tick)
	syncFlagCarriers(l)
}

func tankRefs(l *lobby.Lobby) []ctf.TankRef {
	refs := make([]ctf.TankRef, 0, len(l.Players))
	for _, p := range l.Players {
		refs = append(refs, ctf.TankRef{
			ID:        p.ID,
			Team:      p.Team,
			Alive:     p.Alive(),
			Transform: p.Body,
			Collider:  p.Collider(),
			Layer:     p.Layer,
		})
	}
	return refs
}

// syncFlagCarriers mirrors each flag's carrier back onto the carrying
// player's FlagCarrier field, and clears it for players no longer
// holding a carried flag, keeping the two sides of the relationship
// consistent after ctf.TickFlag's transitions run.
func syncFlagCarriers(l *lobby.Lobby) {
	carried := map[entityid.ID]entityid.ID{}
	for _, flag := range l.Flags {
		if flag.Status == state.FlagCarried {
			carried[flag.CarrierID] = flag.ID
		}
	}
	for _, p := range l.Players {
		if flagID, ok := carried[p.ID]; ok {
			p.FlagCarrier = flagID
		} else {
			p.FlagCarrier = entityid.Nil
		}
	}
}

func ctfBases(l *lobby.Lobby) map[string]ctf.Base {
	bases := make(map[string]ctf.Base, len(l.FlagsByTeam))
	for team, flag := range l.FlagsByTeam {
		bases[team] = ctf.Base{
			Team:      team,
			Transform: geom.Transform{Position: flag.BasePos, Rotation: geom.IdentityQuaternion},
			Collider:  flag.Collider,
		}
	}
	return bases
}

func publishCTFEvents(l *lobby.Lobby, events []ctf.Event, tick uint64) {
	for _, ev := range events {
		switch ev.Kind {
		case ctf.EventPickedUp:
			egress.QueueBroadcast(l, protocol.Everyone(), entityid.Nil, protocol.FlagGotPickedUp{Flag: ev.Flag, Player: ev.Player}, tick)
		case ctf.EventDropped:
			egress.QueueBroadcast(l, protocol.Everyone(), entityid.Nil, protocol.FlagGotDropped{Flag: ev.Flag}, tick)
		case ctf.EventReturned:
			egress.QueueBroadcast(l, protocol.Everyone(), entityid.Nil, protocol.FlagReturnedInBase{Flag: ev.Flag}, tick)
		case ctf.EventScored:
			egress.QueueBroadcast(l, protocol.Everyone(), entityid.Nil, protocol.TeamScored{Team: ev.Team, Score: l.Score[ev.Team], Scorer: ev.Player}, tick)
		}
	}
}

// updateLobbyGameState rebuilds the authoritative LobbyGameState from
// the live entities, from scratch, every tick.
func updateLobbyGameState(l *lobby.Lobby) {
	gs := state.NewLobbyGameState()
	gs.Tick = l.GameState.Tick
	gs.TickProcessed = l.GameState.Tick

	for id, p := range l.Players {
		gs.ClientStates[id] = state.ClientState{
			ID:                     id,
			Body:                   p.Body,
			Turret:                 p.Turret,
			ShootCooldownTicksLeft: p.ShootCooldownTicksLeft,
			Health:                 p.Health,
			Alive:                  p.Alive(),
		}
	}
	for id, proj := range l.Projectiles {
		gs.ProjectileStates[id] = state.ProjectileState{
			ID:        id,
			Owner:     proj.Owner,
			Transform: proj.Transform,
			Damage:    proj.Damage,
		}
	}
	for id, flag := range l.Flags {
		gs.FlagStates[id] = flag.ToGameState()
	}
	for team, score := range l.Score {
		gs.Score[team] = score
	}

	l.GameState = gs
}

// Loop drives one lobby's Tick at its configured tick rate with a
// fixed-timestep accumulator: wall-clock catch-up runs as many Ticks
// as have become due rather than dropping them.
type Loop struct {
	lobby    *lobby.Lobby
	deps     Deps
	interval time.Duration
	ticker   *time.Ticker
	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewLoop builds a Loop for l, ticking at l.TickRate times per second.
func NewLoop(l *lobby.Lobby, deps Deps) *Loop {
	hz := l.TickRate
	if hz <= 0 {
		hz = 20
	}
	return &Loop{
		lobby:    l,
		deps:     deps,
		interval: time.Second / time.Duration(hz),
	}
}

// Start begins ticking until ctx is cancelled or Stop is called.
func (lp *Loop) Start(ctx context.Context) {
	if lp == nil {
		return
	}
	lp.ticker = time.NewTicker(lp.interval)
	lp.quit = make(chan struct{})
	lp.done = make(chan struct{})
	go func() {
		defer close(lp.done)
		defer lp.ticker.Stop()
		last := time.Now()
		accumulator := time.Duration(0)
		for {
			select {
			case <-ctx.Done():
				return
			case <-lp.quit:
				return
			case now := <-lp.ticker.C:
				accumulator += now.Sub(last)
				last = now
				for accumulator >= lp.interval {
					Tick(lp.lobby, lp.deps)
					accumulator -= lp.interval
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for its goroutine to exit. Safe to
// call more than once, and a no-op if the loop was never started.
func (lp *Loop) Stop() {
	if lp == nil || lp.quit == nil {
		return
	}
	lp.stopOnce.Do(func() { close(lp.quit) })
	<-lp.done
}
