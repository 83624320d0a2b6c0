package lobby

import (
	"fmt"
	"sync"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/entityid"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
)

// MapLookup resolves an already-parsed map definition by name. Asset
// discovery and parsing belong to an external collaborator; the server
// only consumes the result.
type MapLookup func(mapName string) (*gamemap.Definition, error)

// ErrLobbyLimit is returned when creating another lobby would exceed
// the registry's configured cap.
var ErrLobbyLimit = fmt.Errorf("lobby: lobby limit reached")

// Registry is the lone piece of process-wide mutable state:
// a name -> Lobby mapping, touched only on accept, first contact, and
// cleanup.
type Registry struct {
	mu         sync.Mutex
	lobbies    map[string]*Lobby
	lookup     MapLookup
	catalog    tankconfig.Catalog
	tickRate   int
	maxLobbies int
}

// NewRegistry constructs an empty registry. maxLobbies of zero disables
// the lobby cap.
func NewRegistry(lookup MapLookup, catalog tankconfig.Catalog, tickRate, maxLobbies int) *Registry {
	return &Registry{
		lobbies:    make(map[string]*Lobby),
		lookup:     lookup,
		catalog:    catalog,
		tickRate:   tickRate,
		maxLobbies: maxLobbies,
	}
}

// GetOrCreate returns the named lobby, creating it (with mapName
// required) if absent.
func (r *Registry) GetOrCreate(lobbyName, mapName string) (*Lobby, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.lobbies[lobbyName]; ok {
		return l, nil
	}
	if mapName == "" {
		return nil, fmt.Errorf("lobby: map name required to create lobby %q", lobbyName)
	}
	if r.maxLobbies > 0 && len(r.lobbies) >= r.maxLobbies {
		return nil, fmt.Errorf("%w (%d)", ErrLobbyLimit, r.maxLobbies)
	}
	mapDef, err := r.lookup(mapName)
	if err != nil {
		return nil, fmt.Errorf("lobby: resolving map %q: %w", mapName, err)
	}
	l := NewLobby(lobbyName, mapName, mapDef, r.catalog, r.tickRate)
	r.lobbies[lobbyName] = l
	return l, nil
}

// Get looks up an existing lobby by name without creating one.
func (r *Registry) Get(lobbyName string) (*Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lobbies[lobbyName]
	return l, ok
}

// RemovePlayer removes a player from its lobby and runs cleanup,
// destroying the lobby if it is now empty.
func (r *Registry) RemovePlayer(lobbyName string, playerID entityid.ID) (destroyed bool) {
	r.mu.Lock()
	l, ok := r.lobbies[lobbyName]
	r.mu.Unlock()
	if !ok {
		return false
	}
	if l.RemovePlayer(playerID) {
		r.mu.Lock()
		delete(r.lobbies, lobbyName)
		r.mu.Unlock()
		return true
	}
	return false
}

// RemoveLobby forcibly destroys a lobby, returning it so the caller can
// announce the removal to its occupants before discarding it.
func (r *Registry) RemoveLobby(lobbyName string) (*Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lobbies[lobbyName]
	if !ok {
		return nil, false
	}
	delete(r.lobbies, lobbyName)
	return l, true
}

// All returns every currently registered lobby, for the scheduler to
// drive one tick loop per lobby.
func (r *Registry) All() []*Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		out = append(out, l)
	}
	return out
}
