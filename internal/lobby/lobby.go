package lobby

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/ctf"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/combat"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/state"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/transport"
)

// Status is a lobby's lifecycle state.
type Status string

const (
	StatusSettingUp    Status = "SETTING_UP"
	StatusReadyToStart Status = "READY_TO_START"
	StatusInProgress   Status = "IN_PROGRESS"
	StatusFinished     Status = "FINISHED"
)

var (
	// ErrTeamFull is returned when a requested team has no free roster slot.
	ErrTeamFull = errors.New("lobby: team is full")
	// ErrSpawnTaken is returned when a requested spawn index is already assigned.
	ErrSpawnTaken = errors.New("lobby: spawn point already assigned")
	// ErrNotReadyToStart is returned when StartGame is attempted outside ReadyToStart.
	ErrNotReadyToStart = errors.New("lobby: not ready to start")
	// ErrRosterIncomplete is returned when StartGame is attempted without
	// filling every team slot and dummies were not requested.
	ErrRosterIncomplete = errors.New("lobby: roster incomplete")
)

const flagColliderHalf = 0.5

// Lobby owns one map instance, its roster, and its authoritative
// simulation state. Roster and simulation state are guarded by mu:
// connection goroutines take it for joins and removals, and the
// scheduler holds it for the whole duration of a tick, so the two
// never interleave. The inbox has its own mutex so reader goroutines
// can enqueue commands while a tick is in flight.
type Lobby struct {
	mu      sync.Mutex
	inboxMu sync.Mutex

	Name     string
	MapName  string
	Map      *gamemap.Definition
	Catalog  tankconfig.Catalog
	Status   Status
	TickRate int

	Teams       map[string]*TeamState
	Players     map[entityid.ID]*Player // non-spectator roster, includes dummies
	Spectators  map[entityid.ID]*Player
	Projectiles map[entityid.ID]*combat.Projectile
	Flags       map[entityid.ID]*ctf.Flag
	FlagsByTeam map[string]*ctf.Flag

	allocator entityid.Allocator

	Inbox []protocol.Envelope

	GameState *state.LobbyGameState
	Outboxes  map[entityid.ID]*Outbox

	// Score is the persistent per-team score tally, surviving across the
	// per-tick LobbyGameState rebuild.
	Score map[string]int

	// tickAtomic mirrors GameState.Tick so a connection's read-loop
	// goroutine can tag tick_received without touching
	// GameState, which is scheduler-thread-only.
	tickAtomic atomic.Uint64
}

// Lock takes the lobby's roster/state lock. The scheduler holds it for
// one whole tick; connection goroutines hold it briefly for joins and
// removals.
func (l *Lobby) Lock() { l.mu.Lock() }

// Unlock releases the roster/state lock.
func (l *Lobby) Unlock() { l.mu.Unlock() }

// CurrentTick returns the lobby's current tick, safe to call from any
// goroutine.
func (l *Lobby) CurrentTick() uint64 {
	return l.tickAtomic.Load()
}

// PublishTick records tick as the lobby's atomically-readable current
// tick. Called once per Tick by the scheduler right after incrementing
// GameState.Tick.
func (l *Lobby) PublishTick(tick uint64) {
	l.tickAtomic.Store(tick)
}

// Outbox is one client's pending-send queue, drained to its transport
// channel at the end of each tick.
type Outbox struct {
	Queue []protocol.Envelope
}

// PushFront places an envelope ahead of everything already queued, used
// for the per-tick GameState push.
func (o *Outbox) PushFront(e protocol.Envelope) {
	o.Queue = append([]protocol.Envelope{e}, o.Queue...)
}

// PushBack appends an envelope to the end of the queue.
func (o *Outbox) PushBack(e protocol.Envelope) {
	o.Queue = append(o.Queue, e)
}

// Drain empties and returns the queue.
func (o *Outbox) Drain() []protocol.Envelope {
	drained := o.Queue
	o.Queue = nil
	return drained
}

// NewLobby constructs an empty lobby over the given map, registering one
// team per team that declares a Spawn marker (its capacity is that team's
// spawn count) and seeding one flag per team that declares a FlagBase
// marker.
func NewLobby(name, mapName string, mapDef *gamemap.Definition, catalog tankconfig.Catalog, tickRate int) *Lobby {
	l := &Lobby{
		Name:        name,
		MapName:     mapName,
		Map:         mapDef,
		Catalog:     catalog,
		Status:      StatusSettingUp,
		TickRate:    tickRate,
		Teams:       make(map[string]*TeamState),
		Players:     make(map[entityid.ID]*Player),
		Spectators:  make(map[entityid.ID]*Player),
		Projectiles: make(map[entityid.ID]*combat.Projectile),
		Flags:       make(map[entityid.ID]*ctf.Flag),
		FlagsByTeam: make(map[string]*ctf.Flag),
		GameState:   state.NewLobbyGameState(),
		Outboxes:    make(map[entityid.ID]*Outbox),
		Score:       make(map[string]int),
	}
	for _, marker := range mapDef.Markers {
		if marker.Kind == gamemap.MarkerSpawn {
			l.teamOrCreate(marker.Team)
		}
	}
	l.seedFlags()
	l.Status = StatusReadyToStart
	return l
}

func (l *Lobby) seedFlags() {
	seen := map[string]bool{}
	for _, marker := range l.Map.Markers {
		if marker.Kind != gamemap.MarkerFlagBase || seen[marker.Team] {
			continue
		}
		seen[marker.Team] = true
		for _, base := range l.Map.FlagBases(marker.Team) {
			pos, err := l.Map.WorldPosOfTile(base.Tile.X, base.Tile.Z)
			if err != nil {
				continue
			}
			id := l.allocator.Next()
			half := geom.Vector3{X: flagColliderHalf, Y: flagColliderHalf, Z: flagColliderHalf}
			flag := ctf.NewInBase(id, marker.Team, pos, half, l.teammateIDs(marker.Team))
			l.Flags[id] = flag
			l.FlagsByTeam[marker.Team] = flag
		}
	}
}

func (l *Lobby) teammateIDs(team string) []entityid.ID {
	t, ok := l.Teams[team]
	if !ok {
		return nil
	}
	out := make([]entityid.ID, len(t.Members))
	copy(out, t.Members)
	return out
}

func (l *Lobby) teamOrCreate(name string) *TeamState {
	t, ok := l.Teams[name]
	if !ok {
		t = &TeamState{Name: name, Color: defaultTeamColor(len(l.Teams)), MaxPlayers: l.Map.SpawnCount(name)}
		l.Teams[name] = t
	}
	return t
}

var paletteColors = []string{"#d62728", "#1f77b4", "#2ca02c", "#9467bd", "#ff7f0e"}

func defaultTeamColor(index int) string {
	return paletteColors[index%len(paletteColors)]
}

// HandleFirstContact resolves a newly-accepted client's FirstContact
// message, assigning it to a roster or the spectator set.
func (l *Lobby) HandleFirstContact(msg *protocol.FirstContact, channel *transport.Channel) (*Player, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.allocator.Next()

	if msg.ClientType == protocol.ClientSpectator {
		p := &Player{ID: id, Channel: channel, DisplayName: msg.BotName, ClientType: protocol.ClientSpectator, State: StateSpectating}
		l.Spectators[id] = p
		l.Outboxes[id] = &Outbox{}
		return p, nil
	}

	team := ""
	if msg.TeamName != nil {
		team = *msg.TeamName
	}
	teamState := l.teamOrCreate(team)
	if !teamState.HasFreeSlot() {
		return nil, fmt.Errorf("%w: %q", ErrTeamFull, team)
	}

	tankType := tankconfig.LightTank
	if msg.TankType != nil {
		tankType = *msg.TankType
	}
	cfg, ok := l.Catalog.Get(tankType)
	if !ok {
		return nil, fmt.Errorf("lobby: unknown tank type %q", tankType)
	}

	spawnIndex := l.nextFreeSpawnIndex(team, msg.AssignedSpawnPoint)
	spawnPos, yawDeg, err := l.Map.SpawnPoint(team, spawnIndex)
	if err != nil {
		return nil, fmt.Errorf("lobby: resolving spawn point: %w", err)
	}
	spawn := geom.Transform{Position: spawnPos, Rotation: geom.FromAxisAngleYDeg(yawDeg)}

	p := NewPlayer(id, msg.BotName, msg.ClientType, team, spawnIndex, tankType, cfg, spawn, channel)
	l.Players[id] = p
	teamState.addMember(id)
	l.Outboxes[id] = &Outbox{}
	if flag, ok := l.FlagsByTeam[team]; ok {
		flag.RefreshIgnore(l.teammateIDs(team))
	}
	return p, nil
}

func (l *Lobby) nextFreeSpawnIndex(team string, requested *int) int {
	taken := map[int]bool{}
	for _, p := range l.Players {
		if p.Team == team {
			taken[p.SpawnIndex] = true
		}
	}
	if requested != nil && !taken[*requested] {
		return *requested
	}
	for i := 0; ; i++ {
		if !taken[i] {
			return i
		}
	}
}

// StartGame transitions ReadyToStart -> InProgress, filling empty team
// slots with dummies if requested, and returns the GameStarts message to
// broadcast plus the set of players to respawn. Called from
// the scheduler's turn, which already holds the lobby lock.
func (l *Lobby) StartGame(fillWithDummies bool) (protocol.GameStarts, []*Player, error) {
	if l.Status != StatusReadyToStart {
		return protocol.GameStarts{}, nil, ErrNotReadyToStart
	}

	if fillWithDummies {
		l.fillEmptySlotsWithDummies()
	} else if !l.rosterComplete() {
		return protocol.GameStarts{}, nil, ErrRosterIncomplete
	}

	l.Status = StatusInProgress

	connected := make([]entityid.ID, 0, len(l.Players))
	teamConfigs := make([]protocol.TeamConfig, 0, len(l.Teams))
	for name, t := range l.Teams {
		teamConfigs = append(teamConfigs, protocol.TeamConfig{
			Name: name, Color: t.Color, MaxPlayers: t.MaxPlayers, AssignedPlayers: t.AssignedPlayers(),
		})
	}
	tankConfigs := map[tankconfig.Type]tankconfig.Config{}
	toRespawn := make([]*Player, 0, len(l.Players))
	for id, p := range l.Players {
		connected = append(connected, id)
		tankConfigs[p.TankType] = p.Config
		toRespawn = append(toRespawn, p)
	}

	msg := protocol.GameStarts{
		TickRate:         l.TickRate,
		ConnectedClients: connected,
		MapDefinition:    l.Map,
		TeamConfigs:      teamConfigs,
		TankConfigs:      tankConfigs,
	}
	return msg, toRespawn, nil
}

func (l *Lobby) rosterComplete() bool {
	for _, t := range l.Teams {
		if t.MaxPlayers > 0 && t.AssignedPlayers() < t.MaxPlayers {
			return false
		}
	}
	return true
}

func (l *Lobby) fillEmptySlotsWithDummies() {
	dummyCatalogType := tankconfig.LightTank
	cfg, ok := l.Catalog.Get(dummyCatalogType)
	if !ok {
		return
	}
	for name, t := range l.Teams {
		for t.MaxPlayers > 0 && t.AssignedPlayers() < t.MaxPlayers {
			id := l.allocator.Next()
			spawnIndex := l.nextFreeSpawnIndex(name, nil)
			pos, yaw, err := l.Map.SpawnPoint(name, spawnIndex)
			if err != nil {
				break
			}
			spawn := geom.Transform{Position: pos, Rotation: geom.FromAxisAngleYDeg(yaw)}
			dummy := NewPlayer(id, fmt.Sprintf("dummy-%d", id), protocol.ClientDummy, name, spawnIndex, dummyCatalogType, cfg, spawn, nil)
			l.Players[id] = dummy
			t.addMember(id)
			l.Outboxes[id] = &Outbox{}
		}
	}
}

// RemovePlayer removes id from whichever set it belongs to.
// It returns true if the lobby is now empty of non-dummy occupants and
// should be destroyed by the caller's registry cleanup pass.
func (l *Lobby) RemovePlayer(id entityid.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.Players[id]; ok {
		if t, ok := l.Teams[p.Team]; ok {
			t.removeMember(id)
			if flag, ok := l.FlagsByTeam[p.Team]; ok {
				flag.RefreshIgnore(l.teammateIDs(p.Team))
			}
		}
		delete(l.Players, id)
	}
	delete(l.Spectators, id)
	delete(l.Outboxes, id)

	return l.isEmpty()
}

func (l *Lobby) isEmpty() bool {
	if len(l.Spectators) > 0 {
		return false
	}
	for _, p := range l.Players {
		if !p.IsDummy() {
			return false
		}
	}
	return true
}

// RespawnPlayer resets p to its assigned spawn point. A missing spawn
// point leaves p untouched; the caller sees it stay dead.
func (l *Lobby) RespawnPlayer(p *Player) {
	spawnPos, yawDeg, err := l.Map.SpawnPoint(p.Team, p.SpawnIndex)
	if err != nil {
		return
	}
	p.Respawn(geom.Transform{Position: spawnPos, Rotation: geom.FromAxisAngleYDeg(yawDeg)})
}

// NextEntityID allocates a fresh entity id from this lobby's arena, used
// by the command processor to name newly spawned projectiles.
func (l *Lobby) NextEntityID() entityid.ID {
	return l.allocator.Next()
}

// Enqueue appends env to the lobby's inbox. Safe for concurrent callers:
// this is the one inbox-mutating operation invoked from a connection's
// reader goroutine rather than the owning scheduler goroutine.
func (l *Lobby) Enqueue(env protocol.Envelope) {
	l.inboxMu.Lock()
	l.Inbox = append(l.Inbox, env)
	l.inboxMu.Unlock()
}

// SwapInbox atomically takes ownership of every envelope queued so far,
// leaving the inbox empty for the next tick's producers.
func (l *Lobby) SwapInbox() []protocol.Envelope {
	l.inboxMu.Lock()
	defer l.inboxMu.Unlock()
	pending := l.Inbox
	l.Inbox = nil
	return pending
}

// RequeueInbox prepends envs (commands deferred to a future tick) ahead
// of anything enqueued by reader goroutines since the last SwapInbox.
func (l *Lobby) RequeueInbox(envs []protocol.Envelope) {
	if len(envs) == 0 {
		return
	}
	l.inboxMu.Lock()
	l.Inbox = append(envs, l.Inbox...)
	l.inboxMu.Unlock()
}

// OccupantCount returns the number of connected players, dummies, and
// spectators currently in the lobby, for the ops readiness handler.
func (l *Lobby) OccupantCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Players) + len(l.Spectators)
}

// AnyByID looks a player or spectator up by id regardless of which set
// it belongs to.
func (l *Lobby) AnyByID(id entityid.ID) (*Player, bool) {
	if p, ok := l.Players[id]; ok {
		return p, true
	}
	if p, ok := l.Spectators[id]; ok {
		return p, true
	}
	return nil, false
}

// TeammatesOf returns the roster ids of every non-spectator player on
// team, for CTF own-team-ignore bookkeeping outside this package.
func (l *Lobby) TeammatesOf(team string) []entityid.ID {
	return l.teammateIDs(team)
}

// Recipients resolves a Target into the concrete set of entity ids that
// should receive an envelope addressed to it.
func (l *Lobby) Recipients(target protocol.Target, sender entityid.ID) []entityid.ID {
	switch target.Kind {
	case protocol.TargetToEveryone:
		out := make([]entityid.ID, 0, len(l.Players)+len(l.Spectators))
		for id := range l.Players {
			out = append(out, id)
		}
		for id := range l.Spectators {
			out = append(out, id)
		}
		return out
	case protocol.TargetToLobbyDirectly:
		out := make([]entityid.ID, 0, len(l.Players))
		for id := range l.Players {
			out = append(out, id)
		}
		return out
	case protocol.TargetToTeam:
		team := ""
		if p, ok := l.Players[sender]; ok {
			team = p.Team
		}
		return l.teammateIDs(team)
	case protocol.TargetClient:
		return []entityid.ID{target.ClientID}
	case protocol.TargetToSelf:
		if sender == entityid.Nil {
			return nil
		}
		return []entityid.ID{sender}
	case protocol.TargetServerOnly:
		return nil
	default:
		return nil
	}
}
