package lobby

import (
	"errors"
	"testing"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/protocol"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
)

func newTestRegistry() *Registry {
	lookup := func(mapName string) (*gamemap.Definition, error) {
		if mapName != "arena" {
			return nil, errors.New("unknown map")
		}
		return twoTeamMap(), nil
	}
	return NewRegistry(lookup, tankconfig.DefaultCatalog(), 20, 0)
}

func TestGetOrCreateRequiresMapNameOnFirstCreate(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.GetOrCreate("l1", ""); err == nil {
		t.Fatalf("expected an error creating a lobby with no map name")
	}
}

func TestGetOrCreateIsIdempotentByName(t *testing.T) {
	r := newTestRegistry()
	l1, err := r.GetOrCreate("l1", "arena")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l2, err := r.GetOrCreate("l1", "arena")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l1 != l2 {
		t.Fatalf("expected GetOrCreate to return the same lobby for a repeated name")
	}
}

func TestRegistryRemovePlayerDestroysEmptyLobby(t *testing.T) {
	r := newTestRegistry()
	l, err := r.GetOrCreate("l1", "arena")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fc := &protocol.FirstContact{BotName: "alice", LobbyName: "l1", ClientType: protocol.ClientPlayer, TeamName: teamName("red")}
	p, err := l.HandleFirstContact(fc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if destroyed := r.RemovePlayer("l1", p.ID); !destroyed {
		t.Fatalf("expected the lobby to be destroyed once its only player leaves")
	}
	if _, ok := r.Get("l1"); ok {
		t.Fatalf("expected the registry to have dropped the destroyed lobby")
	}
}

func TestRegistryRemovePlayerUnknownLobbyIsNoop(t *testing.T) {
	r := newTestRegistry()
	if destroyed := r.RemovePlayer("nope", entityid.ID(1)); destroyed {
		t.Fatalf("expected removing a player from an unknown lobby to report no destruction")
	}
}

func TestRemoveLobbyAnnouncesAndDrops(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.GetOrCreate("l1", "arena"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, ok := r.RemoveLobby("l1")
	if !ok {
		t.Fatalf("expected RemoveLobby to find the lobby")
	}
	if l.Name != "l1" {
		t.Fatalf("expected the removed lobby to be returned, got %q", l.Name)
	}
	if _, ok := r.Get("l1"); ok {
		t.Fatalf("expected lobby gone from the registry after removal")
	}
}

func TestGetOrCreateEnforcesLobbyLimit(t *testing.T) {
	lookup := func(string) (*gamemap.Definition, error) { return twoTeamMap(), nil }
	r := NewRegistry(lookup, tankconfig.DefaultCatalog(), 20, 1)
	if _, err := r.GetOrCreate("l1", "arena"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.GetOrCreate("l2", "arena"); !errors.Is(err, ErrLobbyLimit) {
		t.Fatalf("expected ErrLobbyLimit creating a second lobby, got %v", err)
	}
	// An existing lobby is still reachable at the cap.
	if _, err := r.GetOrCreate("l1", "arena"); err != nil {
		t.Fatalf("expected lookup of an existing lobby to succeed at the cap: %v", err)
	}
}

func TestAllReturnsEveryRegisteredLobby(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.GetOrCreate("l1", "arena"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.GetOrCreate("l2", "arena"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(r.All()); got != 2 {
		t.Fatalf("expected 2 lobbies, got %d", got)
	}
}
