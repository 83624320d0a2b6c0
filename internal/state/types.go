// Package state defines the authoritative and per-client projected game
// state, and the projector that builds personalized views each tick.
package state

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
)

// ClientState is one player's authoritative, wire-visible state.
type ClientState struct {
	ID                     entityid.ID    `json:"id"`
	Body                   geom.Transform `json:"body"`
	Turret                 geom.Transform `json:"turret"`
	ShootCooldownTicksLeft int            `json:"shootCooldownTicksLeft"`
	Health                 float64        `json:"health"`
	Alive                  bool           `json:"alive"`
}

// ProjectileState is one live projectile's wire-visible state.
type ProjectileState struct {
	ID        entityid.ID    `json:"id"`
	Owner     entityid.ID    `json:"owner"`
	Transform geom.Transform `json:"transform"`
	Damage    float64        `json:"damage"`
}

// FlagStatus enumerates the CTF flag state machine states.
type FlagStatus string

const (
	FlagInBase  FlagStatus = "IN_BASE"
	FlagCarried FlagStatus = "CARRIED"
	FlagDropped FlagStatus = "DROPPED"
)

// FlagGameState is one flag's wire-visible state.
type FlagGameState struct {
	ID        entityid.ID    `json:"id"`
	Team      string         `json:"team"`
	Status    FlagStatus     `json:"status"`
	CarrierID entityid.ID    `json:"carrierId,omitempty"`
	Transform geom.Transform `json:"transform"`
}

// LobbyGameState is the authoritative per-tick snapshot of one lobby,
// rebuilt from the live entities at the end of every tick.
type LobbyGameState struct {
	Tick             uint64                          `json:"tick"`
	ClientStates     map[entityid.ID]ClientState     `json:"clientStates"`
	ProjectileStates map[entityid.ID]ProjectileState `json:"projectileStates"`
	FlagStates       map[entityid.ID]FlagGameState   `json:"flagStates"`
	Score            map[string]int                  `json:"score"`
	TickProcessed    uint64                          `json:"tickProcessed"`
}

// NewLobbyGameState returns an empty state ready to be populated.
func NewLobbyGameState() *LobbyGameState {
	return &LobbyGameState{
		ClientStates:     make(map[entityid.ID]ClientState),
		ProjectileStates: make(map[entityid.ID]ProjectileState),
		FlagStates:       make(map[entityid.ID]FlagGameState),
		Score:            make(map[string]int),
	}
}

// PersonalizedClientGameState is one player's information-hidden
// projection of LobbyGameState.
type PersonalizedClientGameState struct {
	Tick              uint64                          `json:"tick"`
	PersonalState     ClientState                     `json:"personalState"`
	OtherClientStates map[entityid.ID]*ClientState    `json:"otherClientStates"`
	ProjectileStates  map[entityid.ID]ProjectileState `json:"projectileStates"`
	FlagStates        map[entityid.ID]FlagGameState   `json:"flagStates"`
}
