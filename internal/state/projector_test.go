package state

import (
	"testing"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
)

func TestBuildPersonalizedHidesEnemiesByDefault(t *testing.T) {
	self := entityid.ID(1)
	mate := entityid.ID(2)
	enemy := entityid.ID(3)

	lobbyState := NewLobbyGameState()
	lobbyState.Tick = 7
	lobbyState.ClientStates[self] = ClientState{ID: self, Alive: true}
	lobbyState.ClientStates[mate] = ClientState{ID: mate, Alive: true}
	lobbyState.ClientStates[enemy] = ClientState{ID: enemy, Alive: true}

	teamOf := func(id entityid.ID) (string, bool) {
		switch id {
		case self, mate:
			return "red", true
		case enemy:
			return "blue", true
		}
		return "", false
	}

	got := BuildPersonalized(lobbyState, self, "red", teamOf, nil)
	if got.Tick != 7 {
		t.Fatalf("expected tick 7, got %d", got.Tick)
	}
	if got.PersonalState.ID != self {
		t.Fatalf("expected personal state for self, got %+v", got.PersonalState)
	}
	if _, ok := got.OtherClientStates[mate]; !ok {
		t.Fatalf("expected teammate to always be visible")
	}
	if _, ok := got.OtherClientStates[enemy]; ok {
		t.Fatalf("expected enemy hidden by default visibility")
	}
}

type alwaysVisible struct{}

func (alwaysVisible) IsVisible(entityid.ID, entityid.ID) bool { return true }

func TestBuildPersonalizedRespectsCustomVisibility(t *testing.T) {
	self := entityid.ID(1)
	enemy := entityid.ID(2)
	lobbyState := NewLobbyGameState()
	lobbyState.ClientStates[self] = ClientState{ID: self}
	lobbyState.ClientStates[enemy] = ClientState{ID: enemy}

	teamOf := func(id entityid.ID) (string, bool) {
		if id == self {
			return "red", true
		}
		return "blue", true
	}

	got := BuildPersonalized(lobbyState, self, "red", teamOf, alwaysVisible{})
	if _, ok := got.OtherClientStates[enemy]; !ok {
		t.Fatalf("expected custom visibility to reveal the enemy")
	}
}
