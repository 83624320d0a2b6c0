package protocol

import (
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
)

// Message is any concrete envelope payload. Implementations are plain
// structs with JSON field tags; Kind ties each back to its wire tag.
type Message interface {
	Kind() Kind
}

// ClientType distinguishes how an accepted connection participates in a
// lobby once first contact completes.
type ClientType string

const (
	ClientPlayer    ClientType = "PLAYER"
	ClientDummy     ClientType = "DUMMY"
	ClientSpectator ClientType = "SPECTATOR"
)

// ErrorCode enumerates MessageError payload reasons.
type ErrorCode string

const (
	ErrInvalidTarget        ErrorCode = "INVALID_TARGET"
	ErrLobbyNotReadyToStart ErrorCode = "LOBBY_NOT_READY_TO_START"
	ErrLobbyManagementError ErrorCode = "LOBBY_MANAGEMENT_ERROR"
	ErrRuleViolation        ErrorCode = "RULE_VIOLATION"
)

// --- Client -> Server ---

type FirstContact struct {
	BotName            string           `json:"botName"`
	LobbyName          string           `json:"lobbyName"`
	MapName            *string          `json:"mapName,omitempty"`
	ClientType         ClientType       `json:"clientType"`
	TeamName           *string          `json:"teamName,omitempty"`
	AssignedSpawnPoint *int             `json:"assignedSpawnPoint,omitempty"`
	TankType           *tankconfig.Type `json:"tankType,omitempty"`
}

func (FirstContact) Kind() Kind { return KindFirstContact }

type StartGame struct {
	FillEmptySlotsWithDummies bool `json:"fillEmptySlotsWithDummies"`
}

func (StartGame) Kind() Kind { return KindStartGame }

type MoveTankCommand struct {
	Distance float64 `json:"distance"`
}

func (MoveTankCommand) Kind() Kind { return KindMoveTankCommand }

type RotateTankBodyCommand struct {
	Angle float64 `json:"angle"`
}

func (RotateTankBodyCommand) Kind() Kind { return KindRotateTankBodyCommand }

type RotateTankTurretCommand struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

func (RotateTankTurretCommand) Kind() Kind { return KindRotateTankTurretCommand }

type ShootCommand struct{}

func (ShootCommand) Kind() Kind { return KindShootCommand }

type SimpleText struct {
	Text string `json:"text"`
}

func (SimpleText) Kind() Kind { return KindSimpleText }

// --- Server -> Client ---

type TeamConfig struct {
	Name            string `json:"name"`
	Color           string `json:"color"`
	MaxPlayers      int    `json:"maxPlayers"`
	AssignedPlayers int    `json:"assignedPlayers"`
}

type GameStarts struct {
	TickRate         int                                   `json:"tickRate"`
	ClientID         entityid.ID                           `json:"clientId"`
	ConnectedClients []entityid.ID                         `json:"connectedClients"`
	MapDefinition    *gamemap.Definition                   `json:"mapDefinition"`
	TeamConfigs      []TeamConfig                          `json:"teamConfigs"`
	TankConfigs      map[tankconfig.Type]tankconfig.Config `json:"tankConfigs"`
}

func (GameStarts) Kind() Kind { return KindGameStarts }

// GameState carries an already-built JSON payload (either a
// PersonalizedClientGameState for players/dummies, or the full
// LobbyGameState for spectators) produced by internal/state. It is kept
// opaque here to avoid an import cycle between protocol and state.
type GameState struct {
	Tick    uint64 `json:"tick"`
	Payload any    `json:"payload"`
}

func (GameState) Kind() Kind { return KindGameState }

type FlagGotPickedUp struct {
	Flag   entityid.ID `json:"flag"`
	Player entityid.ID `json:"player"`
}

func (FlagGotPickedUp) Kind() Kind { return KindFlagGotPickedUp }

type FlagGotDropped struct {
	Flag entityid.ID `json:"flag"`
}

func (FlagGotDropped) Kind() Kind { return KindFlagGotDropped }

type FlagReturnedInBase struct {
	Flag entityid.ID `json:"flag"`
}

func (FlagReturnedInBase) Kind() Kind { return KindFlagReturnedInBase }

type TeamScored struct {
	Team   string      `json:"team"`
	Score  int         `json:"score"`
	Scorer entityid.ID `json:"scorer"`
}

func (TeamScored) Kind() Kind { return KindTeamScored }

type MessageError struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail,omitempty"`
}

func (MessageError) Kind() Kind { return KindMessageError }

// ClientDied announces a tank kill: both the victim and, when known, the
// killer (zero when death came from the environment rather than a shot).
type ClientDied struct {
	Player   entityid.ID `json:"player"`
	KilledBy entityid.ID `json:"killedBy,omitempty"`
}

func (ClientDied) Kind() Kind { return KindClientDied }

// registry maps every known Kind to a constructor producing a pointer
// ready to decode into, used by envelope unmarshaling.
var registry = map[Kind]func() Message{
	KindFirstContact:            func() Message { return &FirstContact{} },
	KindStartGame:               func() Message { return &StartGame{} },
	KindMoveTankCommand:         func() Message { return &MoveTankCommand{} },
	KindRotateTankBodyCommand:   func() Message { return &RotateTankBodyCommand{} },
	KindRotateTankTurretCommand: func() Message { return &RotateTankTurretCommand{} },
	KindShootCommand:            func() Message { return &ShootCommand{} },
	KindSimpleText:              func() Message { return &SimpleText{} },
	KindGameStarts:              func() Message { return &GameStarts{} },
	KindGameState:               func() Message { return &GameState{} },
	KindFlagGotPickedUp:         func() Message { return &FlagGotPickedUp{} },
	KindFlagGotDropped:          func() Message { return &FlagGotDropped{} },
	KindFlagReturnedInBase:      func() Message { return &FlagReturnedInBase{} },
	KindTeamScored:              func() Message { return &TeamScored{} },
	KindMessageError:            func() Message { return &MessageError{} },
	KindClientDied:              func() Message { return &ClientDied{} },
}
