package state

import "github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"

// Visibility is the extension point for enemy observability, e.g. a
// future line-of-sight model. The default implementation hides every
// enemy unconditionally.
type Visibility interface {
	IsVisible(viewer, target entityid.ID) bool
}

// DefaultVisibility always hides enemies; teammates are handled
// separately by BuildPersonalized and are never subject to this check.
type DefaultVisibility struct{}

// IsVisible always returns false: no enemy is ever observable.
func (DefaultVisibility) IsVisible(entityid.ID, entityid.ID) bool { return false }

// TeamLookup resolves a player's team, or ok=false if the player is not
// a roster member (e.g. already removed this tick).
type TeamLookup func(playerID entityid.ID) (team string, ok bool)

// BuildPersonalized rebuilds viewer's PersonalizedClientGameState from
// scratch: the personal state is always included, teammates are always
// present, enemies are included only when vis reports them observable,
// and projectile/flag state is identical for everyone.
func BuildPersonalized(lobbyState *LobbyGameState, viewer entityid.ID, viewerTeam string, teamOf TeamLookup, vis Visibility) *PersonalizedClientGameState {
	if vis == nil {
		vis = DefaultVisibility{}
	}
	personalized := &PersonalizedClientGameState{
		Tick:              lobbyState.Tick,
		OtherClientStates: make(map[entityid.ID]*ClientState),
		ProjectileStates:  lobbyState.ProjectileStates,
		FlagStates:        lobbyState.FlagStates,
	}
	if self, ok := lobbyState.ClientStates[viewer]; ok {
		personalized.PersonalState = self
	}
	for id, cs := range lobbyState.ClientStates {
		if id == viewer {
			continue
		}
		cs := cs
		if team, ok := teamOf(id); ok && team == viewerTeam {
			personalized.OtherClientStates[id] = &cs
			continue
		}
		if vis.IsVisible(viewer, id) {
			personalized.OtherClientStates[id] = &cs
		}
	}
	return personalized
}
