package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
)

// TargetKind enumerates the message-target variants.
type TargetKind string

const (
	TargetToEveryone      TargetKind = "TO_EVERYONE"
	TargetToTeam          TargetKind = "TO_TEAM"
	TargetToLobbyDirectly TargetKind = "TO_LOBBY_DIRECTLY"
	TargetClient          TargetKind = "CLIENT"
	TargetServerOnly      TargetKind = "SERVER_ONLY"
	TargetToSelf          TargetKind = "TO_SELF"
)

// Target names the intended recipient set of one envelope. Only
// TargetClient carries data (the recipient's entity id).
type Target struct {
	Kind     TargetKind
	ClientID entityid.ID
}

// Everyone, Team, LobbyDirectly, ServerOnly and Self are the
// parameterless Target constructors.
func Everyone() Target      { return Target{Kind: TargetToEveryone} }
func Team() Target          { return Target{Kind: TargetToTeam} }
func LobbyDirectly() Target { return Target{Kind: TargetToLobbyDirectly} }
func ServerOnly() Target    { return Target{Kind: TargetServerOnly} }
func Self() Target          { return Target{Kind: TargetToSelf} }

// Client builds a Target addressed to a single client entity.
func Client(id entityid.ID) Target { return Target{Kind: TargetClient, ClientID: id} }

type wireTarget struct {
	Kind     TargetKind   `json:"kind"`
	ClientID *entityid.ID `json:"clientId,omitempty"`
}

// MarshalJSON renders the target as `{"kind": "...", "clientId": "..."}`.
func (t Target) MarshalJSON() ([]byte, error) {
	w := wireTarget{Kind: t.Kind}
	if t.Kind == TargetClient {
		w.ClientID = &t.ClientID
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the target's tagged representation.
func (t *Target) UnmarshalJSON(data []byte) error {
	var w wireTarget
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Target{Kind: w.Kind}
	if w.Kind == TargetClient {
		if w.ClientID == nil {
			return fmt.Errorf("protocol: CLIENT target missing clientId")
		}
		t.ClientID = *w.ClientID
	}
	return nil
}

// Equal reports whether two targets denote the same recipient set.
func (t Target) Equal(o Target) bool {
	return t.Kind == o.Kind && (t.Kind != TargetClient || t.ClientID == o.ClientID)
}
