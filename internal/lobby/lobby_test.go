package lobby

import (
	"testing"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
)

func twoTeamMap() *gamemap.Definition {
	return &gamemap.Definition{
		Width: 10, Depth: 10, TileSize: 1,
		Heights: make([]float64, 100),
		Markers: []gamemap.Marker{
			{Tile: gamemap.Tile{X: 0, Z: 0}, Team: "red", Kind: gamemap.MarkerSpawn, ID: 0},
			{Tile: gamemap.Tile{X: 9, Z: 9}, Team: "blue", Kind: gamemap.MarkerSpawn, ID: 0},
			{Tile: gamemap.Tile{X: 3, Z: 3}, Team: "red", Kind: gamemap.MarkerFlagBase, ID: 1},
			{Tile: gamemap.Tile{X: 6, Z: 6}, Team: "blue", Kind: gamemap.MarkerFlagBase, ID: 1},
		},
	}
}

func newStartedLobby(t *testing.T) *Lobby {
	t.Helper()
	return NewLobby("l1", "m1", twoTeamMap(), tankconfig.DefaultCatalog(), 20)
}

func teamName(s string) *string { return &s }

func TestNewLobbySeedsOneFlagPerTeam(t *testing.T) {
	l := newStartedLobby(t)
	if len(l.Flags) != 2 {
		t.Fatalf("expected 2 flags, got %d", len(l.Flags))
	}
	if _, ok := l.FlagsByTeam["red"]; !ok {
		t.Fatalf("expected a red flag seeded")
	}
	if _, ok := l.FlagsByTeam["blue"]; !ok {
		t.Fatalf("expected a blue flag seeded")
	}
	if l.Status != StatusReadyToStart {
		t.Fatalf("expected a freshly built lobby to be ReadyToStart, got %v", l.Status)
	}
}

func TestHandleFirstContactAssignsTeamAndSpawn(t *testing.T) {
	l := newStartedLobby(t)
	fc := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	p, err := l.HandleFirstContact(fc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Team != "red" {
		t.Fatalf("expected team red, got %q", p.Team)
	}
	if _, ok := l.Players[p.ID]; !ok {
		t.Fatalf("expected player registered in roster")
	}
	if _, ok := l.Outboxes[p.ID]; !ok {
		t.Fatalf("expected an outbox allocated for the new player")
	}
}

func TestHandleFirstContactRejectsFullTeam(t *testing.T) {
	l := newStartedLobby(t) // red has exactly one spawn point => capacity 1
	fc := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	if _, err := l.HandleFirstContact(fc, nil); err != nil {
		t.Fatalf("first join should succeed: %v", err)
	}
	fc2 := &protocol.FirstContact{BotName: "bob", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	if _, err := l.HandleFirstContact(fc2, nil); err == nil {
		t.Fatalf("expected ErrTeamFull for a second red-team join")
	}
}

func TestHandleFirstContactSpectatorJoinsSpectatorSet(t *testing.T) {
	l := newStartedLobby(t)
	fc := &protocol.FirstContact{BotName: "watcher", LobbyName: "l1", ClientType: protocol.ClientSpectator}
	p, err := l.HandleFirstContact(fc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := l.Spectators[p.ID]; !ok {
		t.Fatalf("expected spectator registered in spectator set")
	}
	if _, ok := l.Players[p.ID]; ok {
		t.Fatalf("spectator must not occupy the player roster")
	}
}

func TestStartGameRequiresReadyToStart(t *testing.T) {
	l := newStartedLobby(t)
	l.Status = StatusInProgress
	if _, _, err := l.StartGame(false); err != ErrNotReadyToStart {
		t.Fatalf("expected ErrNotReadyToStart, got %v", err)
	}
}

func TestStartGameRejectsIncompleteRosterWithoutDummies(t *testing.T) {
	l := newStartedLobby(t)
	fc := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	if _, err := l.HandleFirstContact(fc, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// blue's single slot is still empty.
	if _, _, err := l.StartGame(false); err != ErrRosterIncomplete {
		t.Fatalf("expected ErrRosterIncomplete, got %v", err)
	}
	if l.Status != StatusReadyToStart {
		t.Fatalf("a rejected StartGame must not change lobby status, got %v", l.Status)
	}
}

func TestStartGameFillsEmptySlotsWithDummies(t *testing.T) {
	l := newStartedLobby(t)
	fc := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	if _, err := l.HandleFirstContact(fc, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, toRespawn, err := l.StartGame(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Status != StatusInProgress {
		t.Fatalf("expected InProgress after StartGame, got %v", l.Status)
	}
	if len(toRespawn) != 2 {
		t.Fatalf("expected 2 players to respawn (1 real + 1 dummy), got %d", len(toRespawn))
	}
	if len(msg.ConnectedClients) != 2 {
		t.Fatalf("expected 2 connected clients in GameStarts, got %d", len(msg.ConnectedClients))
	}
}

func TestRemovePlayerDestroysEmptyLobby(t *testing.T) {
	l := newStartedLobby(t)
	fc := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	p, err := l.HandleFirstContact(fc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if destroyed := l.RemovePlayer(p.ID); !destroyed {
		t.Fatalf("expected lobby to report empty after its only player leaves")
	}
	if _, ok := l.Players[p.ID]; ok {
		t.Fatalf("expected player removed from roster")
	}
}

func TestRemovePlayerKeepsLobbyWithRemainingOccupants(t *testing.T) {
	l := newStartedLobby(t)
	red := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	p1, _ := l.HandleFirstContact(red, nil)
	spectator := &protocol.FirstContact{BotName: "watcher", LobbyName: "l1", ClientType: protocol.ClientSpectator}
	if _, err := l.HandleFirstContact(spectator, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if destroyed := l.RemovePlayer(p1.ID); destroyed {
		t.Fatalf("expected lobby to survive while a spectator remains")
	}
}

func TestRecipientsResolveTeamTargetToTeammatesOnly(t *testing.T) {
	l := newStartedLobby(t)
	red := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	p1, _ := l.HandleFirstContact(red, nil)
	blue := &protocol.FirstContact{BotName: "bob", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("blue")}
	p2, _ := l.HandleFirstContact(blue, nil)

	recipients := l.Recipients(protocol.Team(), p1.ID)
	if len(recipients) != 1 || recipients[0] != p1.ID {
		t.Fatalf("expected team target to resolve only to sender's teammates, got %v (p2=%v)", recipients, p2.ID)
	}
}

func TestSwapInboxIsolatesProducers(t *testing.T) {
	l := newStartedLobby(t)
	l.Enqueue(protocol.Envelope{Message: &protocol.ShootCommand{}})
	l.Enqueue(protocol.Envelope{Message: &protocol.ShootCommand{}})
	pending := l.SwapInbox()
	if len(pending) != 2 {
		t.Fatalf("expected 2 queued envelopes, got %d", len(pending))
	}
	if len(l.Inbox) != 0 {
		t.Fatalf("expected inbox cleared after swap, got %d remaining", len(l.Inbox))
	}
}
