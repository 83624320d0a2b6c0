package lobby

import "github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"

// TeamState tracks one lobby team's configured capacity and current
// roster.
type TeamState struct {
	Name       string
	Color      string
	MaxPlayers int
	Members    []entityid.ID
}

// AssignedPlayers reports how many roster slots are currently filled.
func (t *TeamState) AssignedPlayers() int {
	return len(t.Members)
}

// HasFreeSlot reports whether the team can accept another roster member.
func (t *TeamState) HasFreeSlot() bool {
	return t.MaxPlayers <= 0 || t.AssignedPlayers() < t.MaxPlayers
}

func (t *TeamState) addMember(id entityid.ID) {
	t.Members = append(t.Members, id)
}

func (t *TeamState) removeMember(id entityid.ID) {
	for i, m := range t.Members {
		if m == id {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return
		}
	}
}
