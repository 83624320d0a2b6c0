// Package tankconfig models the per-TankType tuning table handed to the
// server by an external collaborator. The server never parses these
// from disk; it only consumes already-constructed values.
package tankconfig

import "github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/geom"

// Type enumerates the tank archetypes a lobby may field.
type Type string

const (
	LightTank              Type = "LIGHT_TANK"
	HeavyTank              Type = "HEAVY_TANK"
	SelfPropelledArtillery Type = "SELF_PROPELLED_ARTILLERY"
)

// Config captures every tunable for one TankType.
type Config struct {
	Size                     geom.Vector3 `json:"size"`
	MaxSlope                 float64      `json:"maxSlope"`
	MoveSpeed                float64      `json:"moveSpeed"`
	BodyRotationSpeed        float64      `json:"bodyRotationSpeed"`
	TurretYawRotationSpeed   float64      `json:"turretYawRotationSpeed"`
	TurretPitchRotationSpeed float64      `json:"turretPitchRotationSpeed"`
	TurretMinPitch           float64      `json:"turretMinPitch"`
	TurretMaxPitch           float64      `json:"turretMaxPitch"`
	ShootCooldown            int          `json:"shootCooldown"`
	ProjectileDamage         float64      `json:"projectileDamage"`
	ProjectileSpeed          float64      `json:"projectileSpeed"`
	RespawnTimer             int          `json:"respawnTimer"`
	MaxHealth                float64      `json:"maxHealth"`
}

// HalfSize returns half of each configured size dimension, the unit used
// by the collider/OBB math.
func (c Config) HalfSize() geom.Vector3 {
	return geom.Vector3{X: c.Size.X / 2, Y: c.Size.Y / 2, Z: c.Size.Z / 2}
}

// Catalog maps every supported TankType to its Config. Constructed by the
// collaborator that owns asset loading; the server treats it read-only.
type Catalog map[Type]Config

// Get returns the Config for t and whether it was present.
func (c Catalog) Get(t Type) (Config, bool) {
	cfg, ok := c[t]
	return cfg, ok
}

// DefaultCatalog returns a reasonable built-in catalog, used by tests and
// by operators who have not supplied their own tuning table.
func DefaultCatalog() Catalog {
	return Catalog{
		LightTank: {
			Size:                     geom.Vector3{X: 1.8, Y: 1.2, Z: 3.2},
			MaxSlope:                 0.6,
			MoveSpeed:                0.25,
			BodyRotationSpeed:        4.0,
			TurretYawRotationSpeed:   6.0,
			TurretPitchRotationSpeed: 3.0,
			TurretMinPitch:           -10,
			TurretMaxPitch:           30,
			ShootCooldown:            20,
			ProjectileDamage:         18,
			ProjectileSpeed:          1.6,
			RespawnTimer:             100,
			MaxHealth:                80,
		},
		HeavyTank: {
			Size:                     geom.Vector3{X: 2.4, Y: 1.6, Z: 4.0},
			MaxSlope:                 0.5,
			MoveSpeed:                0.12,
			BodyRotationSpeed:        2.0,
			TurretYawRotationSpeed:   3.0,
			TurretPitchRotationSpeed: 2.0,
			TurretMinPitch:           -5,
			TurretMaxPitch:           20,
			ShootCooldown:            40,
			ProjectileDamage:         40,
			ProjectileSpeed:          1.2,
			RespawnTimer:             160,
			MaxHealth:                160,
		},
		SelfPropelledArtillery: {
			Size:                     geom.Vector3{X: 2.0, Y: 1.4, Z: 4.4},
			MaxSlope:                 0.4,
			MoveSpeed:                0.15,
			BodyRotationSpeed:        2.5,
			TurretYawRotationSpeed:   2.0,
			TurretPitchRotationSpeed: 1.5,
			TurretMinPitch:           0,
			TurretMaxPitch:           60,
			ShootCooldown:            80,
			ProjectileDamage:         65,
			ProjectileSpeed:          1.0,
			RespawnTimer:             180,
			MaxHealth:                60,
		},
	}
}
