// Package gamemap models the tile-height map and markers handed to the
// server by the asset pipeline. Parsing map
// files is explicitly out of scope; this package only exposes the
// read-only query operations the simulation needs.
package gamemap

import (
	"fmt"
	"math"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"
)

// MarkerKind distinguishes spawn points from flag bases on the map.
type MarkerKind int

const (
	MarkerSpawn MarkerKind = iota
	MarkerFlagBase
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerSpawn:
		return "SPAWN"
	case MarkerFlagBase:
		return "FLAG_BASE"
	default:
		return "SPAWN"
	}
}

// MarshalJSON renders the marker kind as its SCREAMING_SNAKE_CASE tag.
func (k MarkerKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON parses the marker kind's SCREAMING_SNAKE_CASE tag.
func (k *MarkerKind) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"SPAWN"`:
		*k = MarkerSpawn
	case `"FLAG_BASE"`:
		*k = MarkerFlagBase
	default:
		return fmt.Errorf("gamemap: unknown marker kind %s", data)
	}
	return nil
}

// Tile identifies an integer tile coordinate.
type Tile struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Marker is a single annotated tile: a team spawn point or flag base.
type Marker struct {
	Tile Tile       `json:"tile"`
	Team string     `json:"group"`
	Kind MarkerKind `json:"kind"`
	// ID disambiguates multiple spawn points for a team, or names which
	// flag number a FlagBase marker seeds.
	ID int `json:"id"`
}

// Definition is the immutable, pre-parsed map description.
type Definition struct {
	Width   int       `json:"width"`
	Depth   int       `json:"depth"`
	Heights []float64 `json:"heights"` // row-major, length Width*Depth; Heights[z*Width+x]
	Markers []Marker  `json:"markers"`

	// TileSize is the world-space edge length of one tile.
	TileSize float64 `json:"tileSize"`
}

// ErrOutOfBounds is returned by queries against a tile outside the grid.
var ErrOutOfBounds = fmt.Errorf("gamemap: tile out of bounds")

func (d *Definition) inBounds(x, z int) bool {
	return x >= 0 && x < d.Width && z >= 0 && z < d.Depth
}

// FloorHeight returns the floor height at integer tile (tx, tz).
func (d *Definition) FloorHeight(tx, tz int) (float64, error) {
	if !d.inBounds(tx, tz) {
		return 0, ErrOutOfBounds
	}
	return d.Heights[tz*d.Width+tx], nil
}

// TileAt converts a world-space XZ position to the tile it falls in.
func (d *Definition) TileAt(worldXZ geom.Vector3) Tile {
	size := d.tileSize()
	return Tile{
		X: int(math.Floor(worldXZ.X / size)),
		Z: int(math.Floor(worldXZ.Z / size)),
	}
}

// WorldPosOfTile returns the world-space center of tile (tx, tz), with Y
// set to the tile's floor height.
func (d *Definition) WorldPosOfTile(tx, tz int) (geom.Vector3, error) {
	height, err := d.FloorHeight(tx, tz)
	if err != nil {
		return geom.Vector3{}, err
	}
	size := d.tileSize()
	return geom.Vector3{
		X: (float64(tx) + 0.5) * size,
		Y: height,
		Z: (float64(tz) + 0.5) * size,
	}, nil
}

func (d *Definition) tileSize() float64 {
	if d.TileSize <= 0 {
		return 1
	}
	return d.TileSize
}

// SpawnPoint locates the spawn marker with the given team and id and
// returns its world position plus a yaw facing into the map (0 degrees,
// i.e. +Z). Markers do not carry orientation data in this model; a fixed
// canonical facing is returned, left for the caller to override.
func (d *Definition) SpawnPoint(team string, id int) (geom.Vector3, float64, error) {
	for _, marker := range d.Markers {
		if marker.Kind == MarkerSpawn && marker.Team == team && marker.ID == id {
			pos, err := d.WorldPosOfTile(marker.Tile.X, marker.Tile.Z)
			if err != nil {
				return geom.Vector3{}, 0, err
			}
			return pos, 0, nil
		}
	}
	return geom.Vector3{}, 0, fmt.Errorf("gamemap: no spawn point %d for team %q", id, team)
}

// FlagBases returns every FlagBase marker belonging to team, in marker
// declaration order; a lobby seeds exactly one flag per returned base.
func (d *Definition) FlagBases(team string) []Marker {
	var bases []Marker
	for _, marker := range d.Markers {
		if marker.Kind == MarkerFlagBase && marker.Team == team {
			bases = append(bases, marker)
		}
	}
	return bases
}

// SpawnCount returns the number of distinct spawn marker ids declared
// for team, i.e. that team's roster capacity: the map, not a separate
// config knob, decides how many slots a team has.
func (d *Definition) SpawnCount(team string) int {
	seen := map[int]bool{}
	for _, marker := range d.Markers {
		if marker.Kind == MarkerSpawn && marker.Team == team {
			seen[marker.ID] = true
		}
	}
	return len(seen)
}

// ProbeRange returns the half-open tile range [min, max) on one axis that
// a footprint spanning [minWorld, maxWorld] touches.
func ProbeRange(minWorld, maxWorld, tileSize float64) (int, int) {
	if tileSize <= 0 {
		tileSize = 1
	}
	min := int(math.Floor(minWorld / tileSize))
	max := int(math.Ceil(maxWorld / tileSize))
	if max <= min {
		max = min + 1
	}
	return min, max
}
